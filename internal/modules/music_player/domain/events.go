package domain

import (
	"github.com/disgoorg/snowflake/v2"
)

// TrackEndReason represents why a track ended.
type TrackEndReason string

const (
	// TrackEndFinished means the track finished normally.
	TrackEndFinished TrackEndReason = "finished"
	// TrackEndLoadFailed means the track failed to load.
	TrackEndLoadFailed TrackEndReason = "load_failed"
	// TrackEndStopped means the track was stopped (skip, or removal of the current entry).
	TrackEndStopped TrackEndReason = "stopped"
	// TrackEndReplaced means the track was replaced by another.
	TrackEndReplaced TrackEndReason = "replaced"
	// TrackEndCleanup means the node cleaned the player up.
	TrackEndCleanup TrackEndReason = "cleanup"
)

// ShouldAdvanceQueue returns true if this end reason should advance the queue.
func (r TrackEndReason) ShouldAdvanceQueue() bool {
	return r == TrackEndFinished || r == TrackEndLoadFailed || r == TrackEndStopped
}

// NodeConnectedEvent is published when the playback node (re)connects.
type NodeConnectedEvent struct {
	Node string
}

// NodeErrorEvent is published when the playback node reports a failure or drops.
type NodeErrorEvent struct {
	Node    string
	Message string
}

// TrackEndedEvent is published when a track ends on a guild's player.
type TrackEndedEvent struct {
	GuildID snowflake.ID
	Encoded string // encoded data of the track that ended, empty if unknown
	Reason  TrackEndReason
}

// TrackStartedEvent is published after a queue entry has been handed to the node.
type TrackStartedEvent struct {
	GuildID       snowflake.ID
	TextChannelID snowflake.ID
	Entry         QueueEntry
}

// SessionClosedEvent is published after a guild's session has been destroyed.
type SessionClosedEvent struct {
	GuildID       snowflake.ID
	TextChannelID snowflake.ID
}
