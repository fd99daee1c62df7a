package domain

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// QueueRepository is the durable, guild-keyed store of queue entries.
// A guild that was never touched has an empty queue. Indices are 1-based.
type QueueRepository interface {
	// Get returns the guild's entries in order. Read failures degrade to an empty queue.
	Get(ctx context.Context, guildID snowflake.ID) []QueueEntry

	// Len returns the number of entries stored for the guild.
	Len(ctx context.Context, guildID snowflake.ID) int

	// Append adds an entry to the end of the guild's queue.
	Append(ctx context.Context, guildID snowflake.ID, entry QueueEntry) error

	// RemoveAt removes the entry at the 1-based index.
	// Returns false without mutating anything if index is outside [1, length].
	RemoveAt(ctx context.Context, guildID snowflake.ID, index int) (bool, error)

	// Truncate keeps the first keep entries of the guild's queue.
	Truncate(ctx context.Context, guildID snowflake.ID, keep int) error

	// Clear empties the guild's queue.
	Clear(ctx context.Context, guildID snowflake.ID) error

	// PopFront removes and returns the first entry, or nil if the queue is empty.
	PopFront(ctx context.Context, guildID snowflake.ID) (*QueueEntry, error)
}
