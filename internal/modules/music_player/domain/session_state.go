package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a session state change is not allowed.
var ErrInvalidTransition = errors.New("invalid session state transition")

// SessionState is the lifecycle state of a guild's playback session.
type SessionState int

const (
	StateIdle      SessionState = iota // Session exists, nothing handed to the node
	StateAwaiting                      // A play request is resolving its search
	StatePlaying                       // A track is playing (or queued behind one)
	StatePaused                        // The current track is paused
	StateDestroyed                     // Terminal; session removed from the registry
)

// String returns a human-readable representation of the state.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaiting:
		return "awaiting"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

var sessionTransitions = map[SessionState][]SessionState{
	StateIdle:      {StateAwaiting, StatePlaying, StateDestroyed},
	StateAwaiting:  {StateIdle, StatePlaying, StatePaused, StateDestroyed},
	StatePlaying:   {StateAwaiting, StatePlaying, StatePaused, StateIdle, StateDestroyed},
	StatePaused:    {StateAwaiting, StatePlaying, StatePaused, StateIdle, StateDestroyed},
	StateDestroyed: nil,
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s SessionState) CanTransitionTo(next SessionState) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition returns next if the move is allowed, or an error wrapping ErrInvalidTransition.
func (s SessionState) Transition(next SessionState) (SessionState, error) {
	if !s.CanTransitionTo(next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}

// IsActive returns true if a track is current on the node.
func (s SessionState) IsActive() bool {
	return s == StatePlaying || s == StatePaused
}
