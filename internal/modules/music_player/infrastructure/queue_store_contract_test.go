package infrastructure

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

func testEntry(title string) domain.QueueEntry {
	return domain.NewQueueEntry(domain.Track{
		Encoded:    "encoded-" + title,
		Identifier: "id-" + title,
		Title:      title,
		Author:     "Author",
		URI:        "https://example.com/" + title,
		Duration:   3*time.Minute + 25*time.Second,
		SourceName: "youtube",
	}, snowflake.ID(42), time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
}

func entryTitles(entries []domain.QueueEntry) []string {
	titles := make([]string, len(entries))
	for i, e := range entries {
		titles[i] = e.Track.Title
	}
	return titles
}

// runQueueStoreContract checks the behaviour every QueueRepository backend shares.
func runQueueStoreContract(t *testing.T, newStore func(t *testing.T) domain.QueueRepository) {
	guild := snowflake.ID(1)
	other := snowflake.ID(2)

	seed := func(t *testing.T, store domain.QueueRepository, titles ...string) {
		t.Helper()
		for _, title := range titles {
			require.NoError(t, store.Append(context.Background(), guild, testEntry(title)))
		}
	}

	t.Run("untouched guild is empty", func(t *testing.T) {
		store := newStore(t)
		assert.Empty(t, store.Get(context.Background(), guild))
		assert.Zero(t, store.Len(context.Background(), guild))
	})

	t.Run("append keeps order and round-trips fields", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, "a", "b", "c")

		got := store.Get(context.Background(), guild)
		assert.Equal(t, []string{"a", "b", "c"}, entryTitles(got))
		assert.Equal(t, 3, store.Len(context.Background(), guild))
		assert.True(t, got[0].SameAs(testEntry("a")))
		assert.Equal(t, testEntry("a"), got[0])
		assert.Empty(t, store.Get(context.Background(), other))
	})

	t.Run("remove at 1-based index", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, "a", "b", "c")

		ok, err := store.RemoveAt(context.Background(), guild, 2)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []string{"a", "c"}, entryTitles(store.Get(context.Background(), guild)))
	})

	t.Run("remove out of range leaves queue", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, "a", "b")

		for _, index := range []int{0, -1, 3} {
			ok, err := store.RemoveAt(context.Background(), guild, index)
			require.NoError(t, err)
			assert.False(t, ok, "index %d", index)
		}
		assert.Equal(t, []string{"a", "b"}, entryTitles(store.Get(context.Background(), guild)))
	})

	t.Run("truncate keeps the first entries", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, "a", "b", "c")

		require.NoError(t, store.Truncate(context.Background(), guild, 1))
		assert.Equal(t, []string{"a"}, entryTitles(store.Get(context.Background(), guild)))

		require.NoError(t, store.Truncate(context.Background(), guild, 5))
		assert.Equal(t, []string{"a"}, entryTitles(store.Get(context.Background(), guild)))
	})

	t.Run("clear empties only that guild", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, "a", "b")
		require.NoError(t, store.Append(context.Background(), other, testEntry("x")))

		require.NoError(t, store.Clear(context.Background(), guild))

		assert.Empty(t, store.Get(context.Background(), guild))
		assert.Equal(t, []string{"x"}, entryTitles(store.Get(context.Background(), other)))
		require.NoError(t, store.Clear(context.Background(), guild))
	})

	t.Run("pop front", func(t *testing.T) {
		store := newStore(t)
		seed(t, store, "a", "b")

		head, err := store.PopFront(context.Background(), guild)
		require.NoError(t, err)
		require.NotNil(t, head)
		assert.Equal(t, "a", head.Track.Title)

		head, err = store.PopFront(context.Background(), guild)
		require.NoError(t, err)
		require.NotNil(t, head)
		assert.Equal(t, "b", head.Track.Title)

		head, err = store.PopFront(context.Background(), guild)
		require.NoError(t, err)
		assert.Nil(t, head)
	})

	t.Run("concurrent appends across guilds", func(t *testing.T) {
		store := newStore(t)
		const guilds, perGuild = 5, 10

		var wg sync.WaitGroup
		for g := range guilds {
			for i := range perGuild {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := store.Append(context.Background(), snowflake.ID(100+g), testEntry(fmt.Sprintf("g%d-%d", g, i)))
					assert.NoError(t, err)
				}()
			}
		}
		wg.Wait()

		for g := range guilds {
			assert.Equal(t, perGuild, store.Len(context.Background(), snowflake.ID(100+g)))
		}
	})
}
