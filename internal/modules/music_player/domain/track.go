package domain

import (
	"strconv"
	"time"
)

// Track describes a playable item returned by the playback node's search.
// Only Encoded is meaningful to the node; everything else is display metadata.
type Track struct {
	Encoded    string // Lavalink encoded track data
	Identifier string
	Title      string
	Author     string
	URI        string
	Duration   time.Duration
	SourceName string // e.g., "youtube", "soundcloud"
	IsStream   bool
}

// DurationMs returns the track length in milliseconds.
func (t Track) DurationMs() int64 {
	return t.Duration.Milliseconds()
}

// IsValid returns true if the track has the minimum required fields.
func (t Track) IsValid() bool {
	return t.Encoded != "" && t.Title != ""
}

// FormattedDuration returns the duration as a human-readable string (mm:ss or hh:mm:ss).
func (t Track) FormattedDuration() string {
	if t.IsStream {
		return "LIVE"
	}

	totalSeconds := int(t.Duration.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
