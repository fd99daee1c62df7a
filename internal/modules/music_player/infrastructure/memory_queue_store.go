package infrastructure

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

// MemoryQueueStore is an in-memory QueueRepository. Nothing survives a restart.
type MemoryQueueStore struct {
	mu     sync.RWMutex
	queues map[snowflake.ID][]domain.QueueEntry
}

// NewMemoryQueueStore creates a new MemoryQueueStore.
func NewMemoryQueueStore() *MemoryQueueStore {
	return &MemoryQueueStore{
		queues: make(map[snowflake.ID][]domain.QueueEntry),
	}
}

func (r *MemoryQueueStore) Get(_ context.Context, guildID snowflake.ID) []domain.QueueEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]domain.QueueEntry{}, r.queues[guildID]...)
}

func (r *MemoryQueueStore) Len(_ context.Context, guildID snowflake.ID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.queues[guildID])
}

func (r *MemoryQueueStore) Append(_ context.Context, guildID snowflake.ID, entry domain.QueueEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.queues[guildID] = append(r.queues[guildID], entry)
	return nil
}

func (r *MemoryQueueStore) RemoveAt(_ context.Context, guildID snowflake.ID, index int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := r.queues[guildID]
	if index < 1 || index > len(q) {
		return false, nil
	}
	r.set(guildID, append(q[:index-1:index-1], q[index:]...))
	return true, nil
}

func (r *MemoryQueueStore) Truncate(_ context.Context, guildID snowflake.ID, keep int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if q := r.queues[guildID]; keep < len(q) {
		r.set(guildID, q[:max(keep, 0)])
	}
	return nil
}

func (r *MemoryQueueStore) Clear(ctx context.Context, guildID snowflake.ID) error {
	return r.Truncate(ctx, guildID, 0)
}

func (r *MemoryQueueStore) PopFront(_ context.Context, guildID snowflake.ID) (*domain.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := r.queues[guildID]
	if len(q) == 0 {
		return nil, nil
	}
	head := q[0]
	r.set(guildID, q[1:])
	return &head, nil
}

// set stores q, dropping the guild when its queue is empty. Callers must hold r.mu.
func (r *MemoryQueueStore) set(guildID snowflake.ID, q []domain.QueueEntry) {
	if len(q) == 0 {
		delete(r.queues, guildID)
		return
	}
	r.queues[guildID] = q
}

// Count returns the number of guilds with a non-empty queue (for testing/monitoring).
func (r *MemoryQueueStore) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.queues)
}

// Ensure MemoryQueueStore implements domain.QueueRepository.
var _ domain.QueueRepository = (*MemoryQueueStore)(nil)
