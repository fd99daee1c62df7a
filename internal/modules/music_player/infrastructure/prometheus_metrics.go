package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sglre6355/musicbot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

// PrometheusMetrics records session manager activity as Prometheus collectors.
type PrometheusMetrics struct {
	commands       *prometheus.CounterVec
	activeSessions prometheus.Gauge
	nodeUp         prometheus.Gauge
	trackEnds      *prometheus.CounterVec
}

// NewPrometheusMetrics registers the music collectors with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "musicbot",
				Name:      "commands_total",
				Help:      "Music commands handled, by command and outcome",
			},
			[]string{"command", "outcome"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "musicbot",
				Name:      "active_sessions",
				Help:      "Guilds with a live playback session",
			},
		),
		nodeUp: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "musicbot",
				Name:      "node_up",
				Help:      "1 if the playback node is connected",
			},
		),
		trackEnds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "musicbot",
				Name:      "track_end_total",
				Help:      "Track end events reported by the playback node, by reason",
			},
			[]string{"reason"},
		),
	}
}

func (m *PrometheusMetrics) CommandHandled(command, outcome string) {
	m.commands.WithLabelValues(command, outcome).Inc()
}

func (m *PrometheusMetrics) SessionsActive(count int) {
	m.activeSessions.Set(float64(count))
}

func (m *PrometheusMetrics) NodeUp(up bool) {
	if up {
		m.nodeUp.Set(1)
		return
	}
	m.nodeUp.Set(0)
}

func (m *PrometheusMetrics) TrackEnded(reason domain.TrackEndReason) {
	m.trackEnds.WithLabelValues(string(reason)).Inc()
}

// Ensure PrometheusMetrics implements usecases.Metrics.
var _ usecases.Metrics = (*PrometheusMetrics)(nil)
