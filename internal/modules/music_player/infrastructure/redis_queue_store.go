package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/redis/go-redis/v9"

	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

// removedMarker replaces an entry just before LREM deletes it by value.
const removedMarker = "__removed__"

// maxRemoveRetries bounds optimistic-lock retries in RemoveAt.
const maxRemoveRetries = 5

// RedisQueueStore keeps each guild's queue in a Redis list of JSON entries at <prefix>:queue:<guild>.
type RedisQueueStore struct {
	client *redis.Client
	prefix string
}

// NewRedisQueueStore creates a store on an existing client.
func NewRedisQueueStore(client *redis.Client, prefix string) *RedisQueueStore {
	if prefix == "" {
		prefix = "musicbot"
	}
	return &RedisQueueStore{client: client, prefix: prefix}
}

func (s *RedisQueueStore) key(guildID snowflake.ID) string {
	return fmt.Sprintf("%s:queue:%s", s.prefix, guildID)
}

func (s *RedisQueueStore) Get(ctx context.Context, guildID snowflake.ID) []domain.QueueEntry {
	values, err := s.client.LRange(ctx, s.key(guildID), 0, -1).Result()
	if err != nil {
		slog.Warn("failed to read saved queue", "guild", guildID, "error", err)
		return []domain.QueueEntry{}
	}

	entries := make([]domain.QueueEntry, 0, len(values))
	for _, value := range values {
		var stored storedEntry
		if err := json.Unmarshal([]byte(value), &stored); err != nil {
			slog.Warn("skipping corrupt saved queue entry", "guild", guildID, "error", err)
			continue
		}
		entries = append(entries, stored.toDomain())
	}
	return entries
}

func (s *RedisQueueStore) Len(ctx context.Context, guildID snowflake.ID) int {
	n, err := s.client.LLen(ctx, s.key(guildID)).Result()
	if err != nil {
		slog.Warn("failed to read saved queue length", "guild", guildID, "error", err)
		return 0
	}
	return int(n)
}

func (s *RedisQueueStore) Append(ctx context.Context, guildID snowflake.ID, entry domain.QueueEntry) error {
	data, err := json.Marshal(toStoredEntry(entry))
	if err != nil {
		return fmt.Errorf("failed to encode queue entry: %w", err)
	}
	if err := s.client.RPush(ctx, s.key(guildID), data).Err(); err != nil {
		return fmt.Errorf("failed to append queue entry: %w", err)
	}
	return nil
}

// RemoveAt marks the entry at index and deletes the mark in one transaction,
// retrying if the list changes between the length check and EXEC.
func (s *RedisQueueStore) RemoveAt(ctx context.Context, guildID snowflake.ID, index int) (bool, error) {
	key := s.key(guildID)
	removed := false

	remove := func(tx *redis.Tx) error {
		n, err := tx.LLen(ctx, key).Result()
		if err != nil {
			return err
		}
		if index < 1 || int64(index) > n {
			removed = false
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.LSet(ctx, key, int64(index-1), removedMarker)
			pipe.LRem(ctx, key, 1, removedMarker)
			return nil
		})
		if err == nil {
			removed = true
		}
		return err
	}

	for range maxRemoveRetries {
		err := s.client.Watch(ctx, remove, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("failed to remove queue entry: %w", err)
		}
		return removed, nil
	}
	return false, fmt.Errorf("failed to remove queue entry: %w", redis.TxFailedErr)
}

func (s *RedisQueueStore) Truncate(ctx context.Context, guildID snowflake.ID, keep int) error {
	var err error
	if keep <= 0 {
		err = s.client.Del(ctx, s.key(guildID)).Err()
	} else {
		err = s.client.LTrim(ctx, s.key(guildID), 0, int64(keep-1)).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to truncate queue: %w", err)
	}
	return nil
}

func (s *RedisQueueStore) Clear(ctx context.Context, guildID snowflake.ID) error {
	return s.Truncate(ctx, guildID, 0)
}

func (s *RedisQueueStore) PopFront(ctx context.Context, guildID snowflake.ID) (*domain.QueueEntry, error) {
	value, err := s.client.LPop(ctx, s.key(guildID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop queue entry: %w", err)
	}

	var stored storedEntry
	if err := json.Unmarshal([]byte(value), &stored); err != nil {
		return nil, fmt.Errorf("failed to decode queue entry: %w", err)
	}
	entry := stored.toDomain()
	return &entry, nil
}

// Ping checks that Redis is reachable.
func (s *RedisQueueStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Ensure RedisQueueStore implements domain.QueueRepository.
var _ domain.QueueRepository = (*RedisQueueStore)(nil)
