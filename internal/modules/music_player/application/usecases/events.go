package usecases

import (
	"context"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

func (m *SessionManager) handleTrackEnded(_ context.Context, event domain.TrackEndedEvent) {
	m.metrics.TrackEnded(event.Reason)

	// Only advance queue for certain end reasons
	if !event.Reason.ShouldAdvanceQueue() {
		slog.Debug("track ended but should not advance queue",
			"guild", event.GuildID,
			"reason", event.Reason,
		)
		return
	}

	err := m.dispatcher.Post(event.GuildID, func(ctx context.Context) error {
		return m.onTrackEnded(ctx, event)
	})
	if err != nil {
		slog.Warn("dropped track end", "guild", event.GuildID, "error", err)
	}
}

func (m *SessionManager) onTrackEnded(ctx context.Context, event domain.TrackEndedEvent) error {
	s := m.registry.Get(event.GuildID)
	if s == nil {
		slog.Debug("track ended but no session", "guild", event.GuildID)
		return nil
	}

	current := s.NowPlaying()
	if current == nil || (event.Encoded != "" && current.Track.Encoded != event.Encoded) {
		slog.Debug("ignoring stale track end", "guild", event.GuildID, "reason", event.Reason)
		return nil
	}

	slog.Debug("track ended, advancing queue",
		"guild", event.GuildID,
		"reason", event.Reason,
		"track", current.Track.Title,
	)

	// The head may already be gone if the current entry was removed.
	if head, ok := s.Queue().Head(); ok && head.SameAs(*current) {
		m.dropHead(ctx, s)
	}

	return m.playNextOrClose(ctx, s)
}

func (m *SessionManager) handleNodeError(_ context.Context, event domain.NodeErrorEvent) {
	slog.Warn("playback node error", "node", event.Node, "error", event.Message)
	m.metrics.NodeUp(false)

	for _, s := range m.registry.All() {
		err := m.dispatcher.Post(s.GuildID(), func(context.Context) error {
			if m.registry.Get(s.GuildID()) != s || !s.State().IsActive() {
				return nil
			}
			s.MarkDegraded(event.Message)
			slog.Info("marked session degraded", "guild", s.GuildID())
			return nil
		})
		if err != nil {
			slog.Warn("failed to mark session degraded", "guild", s.GuildID(), "error", err)
		}
	}
}

func (m *SessionManager) handleNodeConnected(_ context.Context, event domain.NodeConnectedEvent) {
	slog.Info("connected to playback node", "node", event.Node)
	m.metrics.NodeUp(true)
}

// VoiceDisconnected tears down the guild's session after the bot was removed from its
// voice channel by someone else. The saved queue is kept for the next play.
func (m *SessionManager) VoiceDisconnected(guildID snowflake.ID) {
	err := m.dispatcher.Post(guildID, func(ctx context.Context) error {
		s := m.registry.Get(guildID)
		if s == nil || s.Player().Connected() {
			// Stale event: the session rejoined or was replaced.
			return nil
		}
		slog.Info("disconnected from voice, closing session", "guild", guildID)
		m.destroySession(ctx, s)
		return nil
	})
	if err != nil {
		slog.Warn("dropped voice disconnect", "guild", guildID, "error", err)
	}
}
