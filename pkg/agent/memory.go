package agent

import (
	"github.com/corvand/continuo/pkg/models"
)

// summarizeConversation bounds the carried history to maxMessages entries:
// the original system message stays at index 0 and the most recent messages
// form the remainder. Summarized-away messages are never replayed to the
// model again.
func summarizeConversation(messages []models.ConversationMessage, maxMessages int) []models.ConversationMessage {
	if maxMessages < 2 {
		maxMessages = 2
	}

	if len(messages) <= maxMessages {
		return messages
	}

	summarized := make([]models.ConversationMessage, 0, maxMessages)
	summarized = append(summarized, messages[0])
	summarized = append(summarized, messages[len(messages)-(maxMessages-1):]...)

	return summarized
}

// survivingIDs filters saved message ids down to those still present in the
// summarized conversation, so the carried checkpoint stays bounded.
func survivingIDs(savedIDs map[string]bool, messages []models.ConversationMessage) []string {
	survivors := make([]string, 0, len(messages))

	for _, message := range messages {
		if savedIDs[message.ID] {
			survivors = append(survivors, message.ID)
		}
	}

	return survivors
}
