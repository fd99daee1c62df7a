package ports

import (
	"context"

	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

// EventSubscriber defines the interface for subscribing to events.
// Handlers are registered once at startup and invoked when events occur.
type EventSubscriber interface {
	OnNodeConnected(handler func(context.Context, domain.NodeConnectedEvent))
	OnNodeError(handler func(context.Context, domain.NodeErrorEvent))
	OnTrackEnded(handler func(context.Context, domain.TrackEndedEvent))
	OnTrackStarted(handler func(context.Context, domain.TrackStartedEvent))
	OnSessionClosed(handler func(context.Context, domain.SessionClosedEvent))
}
