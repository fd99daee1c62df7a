package infrastructure

import (
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

// storedTrack is the persisted form of a track. Field names are part of the on-disk format.
type storedTrack struct {
	Encoded    string `json:"encoded"`
	Identifier string `json:"identifier,omitempty"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	URI        string `json:"uri,omitempty"`
	DurationMs int64  `json:"durationMs"`
	SourceName string `json:"sourceName,omitempty"`
	IsStream   bool   `json:"isStream,omitempty"`
}

// storedEntry is one persisted queue entry: { track, user, time }.
type storedEntry struct {
	Track storedTrack  `json:"track"`
	User  snowflake.ID `json:"user"`
	Time  time.Time    `json:"time"`
}

func toStoredEntry(entry domain.QueueEntry) storedEntry {
	t := entry.Track
	return storedEntry{
		Track: storedTrack{
			Encoded:    t.Encoded,
			Identifier: t.Identifier,
			Title:      t.Title,
			Author:     t.Author,
			URI:        t.URI,
			DurationMs: t.DurationMs(),
			SourceName: t.SourceName,
			IsStream:   t.IsStream,
		},
		User: entry.RequestedBy,
		Time: entry.EnqueuedAt.UTC(),
	}
}

func (e storedEntry) toDomain() domain.QueueEntry {
	return domain.QueueEntry{
		Track: domain.Track{
			Encoded:    e.Track.Encoded,
			Identifier: e.Track.Identifier,
			Title:      e.Track.Title,
			Author:     e.Track.Author,
			URI:        e.Track.URI,
			Duration:   time.Duration(e.Track.DurationMs) * time.Millisecond,
			SourceName: e.Track.SourceName,
			IsStream:   e.Track.IsStream,
		},
		RequestedBy: e.User,
		EnqueuedAt:  e.Time.UTC(),
	}
}

func toDomainEntries(stored []storedEntry) []domain.QueueEntry {
	entries := make([]domain.QueueEntry, len(stored))
	for i, e := range stored {
		entries[i] = e.toDomain()
	}
	return entries
}
