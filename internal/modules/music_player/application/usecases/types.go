package usecases

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

// Re-export domain types for presentation layer use.
// This allows presentation to depend only on usecases without importing domain directly.

// Track is an alias for domain.Track.
type Track = domain.Track

// QueueEntry is an alias for domain.QueueEntry.
type QueueEntry = domain.QueueEntry

// SessionState is an alias for domain.SessionState.
type SessionState = domain.SessionState

// DefaultPageSize is the number of entries shown per queue page.
const DefaultPageSize = 10

// PlayInput contains the input for the Play use case.
type PlayInput struct {
	GuildID        snowflake.ID
	UserID         snowflake.ID
	VoiceChannelID snowflake.ID // 0 if the user is not in voice
	TextChannelID  snowflake.ID
	Query          string
}

// PlayOutput contains the result of the Play use case.
type PlayOutput struct {
	Entry     QueueEntry
	QueueSize int  // playback queue length after enqueueing, current track included
	Started   bool // the entry started playing right away
	Recreated bool // a degraded session was replaced
	Restored  int  // saved entries restored ahead of the new one
}

// StopInput contains the input for the Stop use case.
type StopInput struct {
	GuildID        snowflake.ID
	VoiceChannelID snowflake.ID
}

// PauseInput contains the input for the Pause use case.
type PauseInput struct {
	GuildID        snowflake.ID
	VoiceChannelID snowflake.ID
}

// ResumeInput contains the input for the Resume use case.
type ResumeInput struct {
	GuildID        snowflake.ID
	VoiceChannelID snowflake.ID
}

// SkipInput contains the input for the Skip use case.
type SkipInput struct {
	GuildID        snowflake.ID
	VoiceChannelID snowflake.ID
}

// SkipOutput contains the result of the Skip use case.
type SkipOutput struct {
	Skipped QueueEntry
}

// ListInput contains the input for the List use case.
type ListInput struct {
	GuildID  snowflake.ID
	Page     int // 1-indexed, defaults to 1
	PageSize int // defaults to DefaultPageSize
}

// ListOutput contains the result of the List use case.
type ListOutput struct {
	Entries    []QueueEntry // entries on the requested page
	PageStart  int          // 0-indexed position of Entries[0] in the whole queue
	Total      int
	Page       int
	TotalPages int
	State      SessionState
	Playing    bool // the first queue entry is current on the node
	Saved      bool // no live session and the durable store still holds entries
	Degraded   bool
}

// RemoveInput contains the input for the Remove use case.
type RemoveInput struct {
	GuildID snowflake.ID
	Index   int // 1-indexed, as shown by List
}

// RemoveOutput contains the result of the Remove use case.
type RemoveOutput struct {
	Removed    QueueEntry
	WasCurrent bool // the removed entry was playing and has been stopped
}

// ClearInput contains the input for the Clear use case.
type ClearInput struct {
	GuildID snowflake.ID
}

// ClearOutput contains the result of the Clear use case.
type ClearOutput struct {
	Cleared int
}
