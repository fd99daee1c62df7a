package infrastructure

import (
	"context"
	"sync"
	"testing"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

func TestMemoryQueueStore_Contract(t *testing.T) {
	runQueueStoreContract(t, func(*testing.T) domain.QueueRepository {
		return NewMemoryQueueStore()
	})
}

func TestMemoryQueueStore_GetReturnsCopy(t *testing.T) {
	repo := NewMemoryQueueStore()
	guildID := snowflake.ID(123)
	ctx := context.Background()

	if err := repo.Append(ctx, guildID, testEntry("a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := repo.Get(ctx, guildID)
	entries[0].Track.Title = "mutated"

	if got := repo.Get(ctx, guildID)[0].Track.Title; got != "a" {
		t.Errorf("expected stored entry to be unchanged, got %q", got)
	}
}

func TestMemoryQueueStore_Count(t *testing.T) {
	repo := NewMemoryQueueStore()
	ctx := context.Background()

	if repo.Count() != 0 {
		t.Errorf("expected count 0, got %d", repo.Count())
	}

	_ = repo.Append(ctx, snowflake.ID(1), testEntry("a"))
	if repo.Count() != 1 {
		t.Errorf("expected count 1, got %d", repo.Count())
	}

	_ = repo.Append(ctx, snowflake.ID(2), testEntry("b"))
	if repo.Count() != 2 {
		t.Errorf("expected count 2, got %d", repo.Count())
	}

	_ = repo.Clear(ctx, snowflake.ID(1))
	if repo.Count() != 1 {
		t.Errorf("expected count 1 after clear, got %d", repo.Count())
	}

	_, _ = repo.PopFront(ctx, snowflake.ID(2))
	if repo.Count() != 0 {
		t.Errorf("expected count 0 after popping the last entry, got %d", repo.Count())
	}
}

func TestMemoryQueueStore_ConcurrentAccess(t *testing.T) {
	repo := NewMemoryQueueStore()
	ctx := context.Background()
	var wg sync.WaitGroup

	for i := range 100 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_ = repo.Append(ctx, snowflake.ID(id), testEntry("a"))
		}(i)
	}

	wg.Wait()

	if repo.Count() != 100 {
		t.Errorf("expected 100 queues, got %d", repo.Count())
	}

	for i := range 100 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if repo.Len(ctx, snowflake.ID(id)) != 1 {
				t.Errorf("expected one entry for guild %d", id)
			}
		}(i)
	}

	wg.Wait()
}
