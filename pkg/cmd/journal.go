package cmd

import (
	"fmt"
	"strings"

	"github.com/corvand/continuo/pkg/substrate"
	"github.com/corvand/continuo/pkg/substrate/journal"
)

// NewJournalStore builds a journal store from a URL. `redis://...` selects
// Redis, `file://path` a directory-backed store, and an empty URL the
// in-memory store.
func NewJournalStore(journalURL string) substrate.JournalStore {
	switch {
	case journalURL == "" || journalURL == "memory://":
		return journal.NewMemoryStore()
	case strings.HasPrefix(journalURL, "redis://"):
		store, err := journal.NewRedisStore(journalURL)
		if err != nil {
			panic(fmt.Errorf("failed to create redis journal store: %w", err))
		}

		return store
	default:
		store, err := journal.NewFileStore(strings.TrimPrefix(journalURL, "file://"))
		if err != nil {
			panic(fmt.Errorf("failed to create file journal store: %w", err))
		}

		return store
	}
}
