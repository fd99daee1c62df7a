package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sglre6355/musicbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/musicbot/internal/modules/music_player/application/session"
	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
	"golang.org/x/sync/errgroup"
)

// DefaultNodeTimeout bounds every call to the playback node.
const DefaultNodeTimeout = 10 * time.Second

// SessionManager runs every guild command and node event through the guild's
// serialization region and keeps the durable queue mirrored with the player queue.
type SessionManager struct {
	registry   *session.Registry
	store      domain.QueueRepository
	node       ports.NodeClient
	dispatcher *Dispatcher
	publisher  ports.EventPublisher
	subscriber ports.EventSubscriber
	metrics    Metrics

	nodeTimeout time.Duration
	now         func() time.Time
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(
	registry *session.Registry,
	store domain.QueueRepository,
	node ports.NodeClient,
	dispatcher *Dispatcher,
	publisher ports.EventPublisher,
	subscriber ports.EventSubscriber,
	metrics Metrics,
	nodeTimeout time.Duration,
) *SessionManager {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if nodeTimeout <= 0 {
		nodeTimeout = DefaultNodeTimeout
	}
	return &SessionManager{
		registry:    registry,
		store:       store,
		node:        node,
		dispatcher:  dispatcher,
		publisher:   publisher,
		subscriber:  subscriber,
		metrics:     metrics,
		nodeTimeout: nodeTimeout,
		now:         time.Now,
	}
}

// Start registers node event handlers with the subscriber. Call it once.
func (m *SessionManager) Start() {
	m.subscriber.OnTrackEnded(m.handleTrackEnded)
	m.subscriber.OnNodeError(m.handleNodeError)
	m.subscriber.OnNodeConnected(m.handleNodeConnected)

	m.metrics.NodeUp(m.node.Connected())

	slog.Debug("session manager started")
}

// Shutdown drains pending guild work and destroys every live session.
// The durable queue is kept so the next process can restore it.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.dispatcher.Close()

	var g errgroup.Group
	for _, s := range m.registry.All() {
		g.Go(func() error {
			defer m.registry.Remove(s.GuildID())

			err := m.nodeCall(ctx, "destroy", s.Player().Destroy)
			if err != nil {
				return fmt.Errorf("guild %d: %w", s.GuildID(), err)
			}
			return nil
		})
	}
	err := g.Wait()

	m.metrics.SessionsActive(m.registry.Count())
	return err
}

// nodeCall runs fn with the node timeout and maps failures onto the error taxonomy.
func (m *SessionManager) nodeCall(
	ctx context.Context,
	op string,
	fn func(context.Context) error,
) error {
	ctx, cancel := context.WithTimeout(ctx, m.nodeTimeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrNodeTimeout)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrNodeError, err)
}

// observe records the outcome of a command. err is read when the deferred call runs.
func (m *SessionManager) observe(command string, err *error) {
	m.metrics.CommandHandled(command, Outcome(*err))
}

// destroySession tears down the session's player and deregisters it. The store is untouched.
func (m *SessionManager) destroySession(ctx context.Context, s *session.Session) {
	if err := m.nodeCall(ctx, "destroy", s.Player().Destroy); err != nil {
		slog.Warn("failed to destroy player", "guild", s.GuildID(), "error", err)
	}

	s.SetNowPlaying(nil)
	_ = s.SetState(domain.StateDestroyed)
	m.registry.Remove(s.GuildID())
	m.metrics.SessionsActive(m.registry.Count())

	if m.publisher != nil {
		m.publisher.PublishSessionClosed(domain.SessionClosedEvent{
			GuildID:       s.GuildID(),
			TextChannelID: s.TextChannelID(),
		})
	}

	slog.Debug("destroyed session", "guild", s.GuildID())
}

// startHead hands the queue head to the node and marks it as now playing.
func (m *SessionManager) startHead(ctx context.Context, s *session.Session) error {
	head, ok := s.Queue().Head()
	if !ok {
		return ErrEmptyQueue
	}

	if err := m.nodeCall(ctx, "play", s.Player().Play); err != nil {
		return err
	}

	s.SetNowPlaying(&head)

	if m.publisher != nil {
		m.publisher.PublishTrackStarted(domain.TrackStartedEvent{
			GuildID:       s.GuildID(),
			TextChannelID: s.TextChannelID(),
			Entry:         head,
		})
	}

	slog.Debug("started track", "guild", s.GuildID(), "track", head.Track.Title)
	return nil
}

// dropHead removes the first entry from the player queue and the store.
func (m *SessionManager) dropHead(ctx context.Context, s *session.Session) (domain.QueueEntry, bool) {
	entry, ok := s.Queue().PopFront()
	if !ok {
		return domain.QueueEntry{}, false
	}
	if _, err := m.store.PopFront(ctx, s.GuildID()); err != nil {
		slog.Warn("failed to pop saved queue entry", "guild", s.GuildID(), "error", err)
	}
	return entry, true
}

// playNextOrClose plays the new queue head, or destroys the session if nothing is left.
func (m *SessionManager) playNextOrClose(ctx context.Context, s *session.Session) error {
	s.SetNowPlaying(nil)

	if s.Queue().IsEmpty() {
		m.destroySession(ctx, s)
		return nil
	}

	if err := m.startHead(ctx, s); err != nil {
		_ = s.SetState(domain.StateIdle)
		return err
	}
	return s.SetState(domain.StatePlaying)
}

// degradedError returns ErrSessionDegraded if the node failed under s.
func degradedError(s *session.Session) error {
	if degraded, reason := s.Degraded(); degraded {
		return fmt.Errorf("%w (%s)", ErrSessionDegraded, reason)
	}
	return nil
}
