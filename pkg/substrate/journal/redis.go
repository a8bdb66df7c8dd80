package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/corvand/continuo/pkg/substrate"
	redis "github.com/redis/go-redis/v9"
)

// RedisStore persists journals in Redis, one key group per execution. It is
// the store to use when workers on different hosts may resume each other's
// executions.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	return &RedisStore{
		client:    redis.NewClient(opts),
		keyPrefix: "continuo:journal",
	}, nil
}

func (s *RedisStore) recordsKey(executionID string) string {
	return fmt.Sprintf("%s:%s:records", s.keyPrefix, executionID)
}

func (s *RedisStore) signalsKey(executionID string) string {
	return fmt.Sprintf("%s:%s:signals", s.keyPrefix, executionID)
}

func (s *RedisStore) continuationKey(executionID string) string {
	return fmt.Sprintf("%s:%s:continuation", s.keyPrefix, executionID)
}

func (s *RedisStore) heartbeatKey(executionID string) string {
	return fmt.Sprintf("%s:%s:heartbeat", s.keyPrefix, executionID)
}

func (s *RedisStore) Append(ctx context.Context, executionID string, record *substrate.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode journal record: %w", err)
	}

	if err := s.client.RPush(ctx, s.recordsKey(executionID), data).Err(); err != nil {
		return fmt.Errorf("failed to append journal record: %w", err)
	}

	return nil
}

func (s *RedisStore) Records(ctx context.Context, executionID string) ([]*substrate.Record, error) {
	raw, err := s.client.LRange(ctx, s.recordsKey(executionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read journal records: %w", err)
	}

	if len(raw) == 0 {
		return nil, substrate.ErrJournalNotFound
	}

	records := make([]*substrate.Record, 0, len(raw))

	for _, item := range raw {
		var record substrate.Record
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			return nil, fmt.Errorf("failed to decode journal record: %w", err)
		}

		records = append(records, &record)
	}

	return records, nil
}

func (s *RedisStore) Reset(ctx context.Context, executionID string, continuation []byte) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.recordsKey(executionID))
	pipe.Set(ctx, s.continuationKey(executionID), continuation, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to reset journal: %w", err)
	}

	return nil
}

func (s *RedisStore) Continuation(ctx context.Context, executionID string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.continuationKey(executionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("failed to read continuation: %w", err)
	}

	return data, true, nil
}

func (s *RedisStore) SetSignal(ctx context.Context, executionID, name string, payload []byte) error {
	if err := s.client.HSet(ctx, s.signalsKey(executionID), name, payload).Err(); err != nil {
		return fmt.Errorf("failed to persist signal %s: %w", name, err)
	}

	return nil
}

func (s *RedisStore) PendingSignal(ctx context.Context, executionID, name string) ([]byte, bool, error) {
	data, err := s.client.HGet(ctx, s.signalsKey(executionID), name).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("failed to read signal %s: %w", name, err)
	}

	return data, true, nil
}

func (s *RedisStore) ClearSignal(ctx context.Context, executionID, name string) error {
	if err := s.client.HDel(ctx, s.signalsKey(executionID), name).Err(); err != nil {
		return fmt.Errorf("failed to clear signal %s: %w", name, err)
	}

	return nil
}

func (s *RedisStore) SetHeartbeat(ctx context.Context, executionID string, at time.Time, _ []byte) error {
	err := s.client.Set(ctx, s.heartbeatKey(executionID), at.Format(time.RFC3339Nano), 0).Err()
	if err != nil {
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}

	return nil
}

func (s *RedisStore) LastHeartbeat(ctx context.Context, executionID string) (time.Time, bool, error) {
	value, err := s.client.Get(ctx, s.heartbeatKey(executionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}

		return time.Time{}, false, fmt.Errorf("failed to read heartbeat: %w", err)
	}

	at, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse heartbeat timestamp: %w", err)
	}

	return at, true, nil
}

func (s *RedisStore) Close(_ context.Context) error {
	return s.client.Close()
}
