package usecases

import (
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
)

// Errors returned by the session manager. All of them are recovered at the command boundary.
var (
	// ErrNoVoiceChannel is returned when a command requires voice presence and the caller has none.
	ErrNoVoiceChannel = errors.New("you must be in a voice channel")

	// ErrNotInitialized is returned when the playback node is not connected yet.
	ErrNotInitialized = errors.New("music playback is not ready yet")

	// ErrNoTrackFound is returned when a search yields no results.
	ErrNoTrackFound = errors.New("no matching track found")

	// ErrEmptyQueue is returned when the queue is empty.
	ErrEmptyQueue = errors.New("the queue is empty")

	// ErrInvalidIndex is returned when a queue position is outside [1, queue size].
	ErrInvalidIndex = errors.New("invalid queue position")

	// ErrInvalidState is returned when pause or resume is called out of sequence.
	ErrInvalidState = errors.New("invalid playback state for this command")

	// ErrNodeTimeout is returned when the playback node does not answer in time.
	ErrNodeTimeout = errors.New("the playback node timed out")

	// ErrNodeError is returned when the playback node fails.
	ErrNodeError = errors.New("the playback node failed")

	// ErrSessionDegraded is returned when the node failed while the session was active.
	ErrSessionDegraded = errors.New("playback session was interrupted by a node failure")

	// ErrVoiceChannelMismatch is returned when the session is bound to another voice channel.
	ErrVoiceChannelMismatch = errors.New("already playing in another voice channel")

	// ErrNothingPlaying is returned by stop when the guild has no session.
	ErrNothingPlaying = errors.New("nothing is currently playing")

	// ErrQueueNotSaved is returned when the durable queue could not be written.
	ErrQueueNotSaved = fmt.Errorf("%w: the queue could not be saved", ErrNotInitialized)

	// ErrDispatcherClosed is returned for commands arriving during shutdown.
	ErrDispatcherClosed = fmt.Errorf("%w: shutting down", ErrNotInitialized)
)

// VoiceChannelMismatchError reports the channel an existing session is bound to.
type VoiceChannelMismatchError struct {
	BoundChannelID snowflake.ID
}

func (e *VoiceChannelMismatchError) Error() string {
	return fmt.Sprintf("%s: <#%d>", ErrVoiceChannelMismatch, e.BoundChannelID)
}

func (e *VoiceChannelMismatchError) Unwrap() error {
	return ErrVoiceChannelMismatch
}

// Outcome returns a low-cardinality label for err, used for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrQueueNotSaved):
		return "queue_not_saved"
	case errors.Is(err, ErrDispatcherClosed):
		return "shutting_down"
	case errors.Is(err, ErrNoVoiceChannel):
		return "no_voice_channel"
	case errors.Is(err, ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, ErrNoTrackFound):
		return "no_track_found"
	case errors.Is(err, ErrEmptyQueue):
		return "empty_queue"
	case errors.Is(err, ErrInvalidIndex):
		return "invalid_index"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrNodeTimeout):
		return "node_timeout"
	case errors.Is(err, ErrNodeError):
		return "node_error"
	case errors.Is(err, ErrSessionDegraded):
		return "session_degraded"
	case errors.Is(err, ErrVoiceChannelMismatch):
		return "voice_channel_mismatch"
	case errors.Is(err, ErrNothingPlaying):
		return "nothing_playing"
	default:
		return "error"
	}
}
