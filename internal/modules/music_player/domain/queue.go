package domain

import "sync"

// Queue is a guild's playback queue. It is head-inclusive: the entry at index 0 is the
// track handed to the node (playing or paused) once playback has started, the rest are
// upcoming. All indices are 0-based.
type Queue struct {
	mu      sync.RWMutex
	entries []QueueEntry
}

// NewQueue creates a new empty Queue.
func NewQueue() *Queue {
	return &Queue{
		entries: make([]QueueEntry, 0),
	}
}

// Len returns the number of entries in the queue.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}

// IsEmpty returns true if the queue has no entries.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Append adds entries to the end of the queue and returns the new length.
func (q *Queue) Append(entries ...QueueEntry) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, entries...)
	return len(q.entries)
}

// Head returns the first entry without removing it.
func (q *Queue) Head() (QueueEntry, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if len(q.entries) == 0 {
		return QueueEntry{}, false
	}
	return q.entries[0], true
}

// PopFront removes and returns the first entry.
func (q *Queue) PopFront() (QueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return QueueEntry{}, false
	}
	entry := q.entries[0]
	q.entries = q.entries[1:]
	return entry, true
}

// GetAt returns the entry at the given index without removing it.
func (q *Queue) GetAt(index int) (QueueEntry, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if index < 0 || index >= len(q.entries) {
		return QueueEntry{}, false
	}
	return q.entries[index], true
}

// RemoveAt removes and returns the entry at the given index.
// The relative order of the remaining entries is preserved.
func (q *Queue) RemoveAt(index int) (QueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if index < 0 || index >= len(q.entries) {
		return QueueEntry{}, false
	}
	entry := q.entries[index]
	q.entries = append(q.entries[:index:index], q.entries[index+1:]...)
	return entry, true
}

// Truncate keeps the first keep entries and returns how many were dropped.
func (q *Queue) Truncate(keep int) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if keep < 0 {
		keep = 0
	}
	if keep >= len(q.entries) {
		return 0
	}
	dropped := len(q.entries) - keep
	q.entries = q.entries[:keep:keep]
	return dropped
}

// Clear removes all entries and returns how many were removed.
func (q *Queue) Clear() int {
	return q.Truncate(0)
}

// List returns a copy of all entries in the queue.
func (q *Queue) List() []QueueEntry {
	q.mu.RLock()
	defer q.mu.RUnlock()
	result := make([]QueueEntry, len(q.entries))
	copy(result, q.entries)
	return result
}
