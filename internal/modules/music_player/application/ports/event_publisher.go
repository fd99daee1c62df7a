package ports

import "github.com/sglre6355/musicbot/internal/modules/music_player/domain"

// EventPublisher defines the interface for publishing events asynchronously.
type EventPublisher interface {
	PublishNodeConnected(event domain.NodeConnectedEvent)
	PublishNodeError(event domain.NodeErrorEvent)
	PublishTrackEnded(event domain.TrackEndedEvent)
	PublishTrackStarted(event domain.TrackStartedEvent)
	PublishSessionClosed(event domain.SessionClosedEvent)
}
