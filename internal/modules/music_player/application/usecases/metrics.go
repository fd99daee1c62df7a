package usecases

import "github.com/sglre6355/musicbot/internal/modules/music_player/domain"

// Metrics records session manager activity.
type Metrics interface {
	CommandHandled(command, outcome string)
	SessionsActive(count int)
	NodeUp(up bool)
	TrackEnded(reason domain.TrackEndReason)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) CommandHandled(string, string)    {}
func (NoopMetrics) SessionsActive(int)               {}
func (NoopMetrics) NodeUp(bool)                      {}
func (NoopMetrics) TrackEnded(domain.TrackEndReason) {}
