package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// QueueEntry is a single track request. Entries are immutable once created.
type QueueEntry struct {
	Track       Track
	RequestedBy snowflake.ID
	EnqueuedAt  time.Time
}

// NewQueueEntry creates a QueueEntry stamped with the given time in UTC.
func NewQueueEntry(track Track, requestedBy snowflake.ID, now time.Time) QueueEntry {
	return QueueEntry{
		Track:       track,
		RequestedBy: requestedBy,
		EnqueuedAt:  now.UTC(),
	}
}

// SameAs reports whether e and other describe the same request.
func (e QueueEntry) SameAs(other QueueEntry) bool {
	return e.Track.Encoded == other.Track.Encoded &&
		e.RequestedBy == other.RequestedBy &&
		e.EnqueuedAt.Equal(other.EnqueuedAt)
}
