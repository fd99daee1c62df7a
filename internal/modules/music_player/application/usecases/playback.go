package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/musicbot/internal/modules/music_player/application/session"
	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

// Play searches for the query and enqueues the top result, creating the guild's
// session if needed. Playback starts immediately when the player is idle.
func (m *SessionManager) Play(ctx context.Context, input PlayInput) (_ *PlayOutput, err error) {
	defer m.observe("play", &err)

	if input.VoiceChannelID == 0 {
		return nil, ErrNoVoiceChannel
	}

	var output *PlayOutput
	err = m.dispatcher.Run(ctx, input.GuildID, func(ctx context.Context) error {
		var playErr error
		output, playErr = m.play(ctx, input)
		return playErr
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}

func (m *SessionManager) play(ctx context.Context, input PlayInput) (*PlayOutput, error) {
	if !m.node.Connected() {
		return nil, ErrNotInitialized
	}

	recreated := false
	if existing := m.registry.Get(input.GuildID); existing != nil {
		if degraded, reason := existing.Degraded(); degraded {
			slog.Info("recreating degraded session", "guild", input.GuildID, "reason", reason)
			m.destroySession(ctx, existing)
			recreated = true
		}
	}

	s, created, err := m.registry.GetOrCreate(
		input.GuildID,
		input.VoiceChannelID,
		input.TextChannelID,
		m.node,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNodeError, err)
	}
	if !created && s.VoiceChannelID() != input.VoiceChannelID {
		return nil, &VoiceChannelMismatchError{BoundChannelID: s.VoiceChannelID()}
	}

	restored := 0
	if created {
		m.metrics.SessionsActive(m.registry.Count())
		if saved := m.store.Get(ctx, input.GuildID); len(saved) > 0 {
			restored = s.Queue().Append(saved...)
			slog.Info("restored saved queue", "guild", input.GuildID, "entries", restored)
		}
	}

	previous := s.State()
	if err := s.SetState(domain.StateAwaiting); err != nil {
		return nil, err
	}

	abort := func() {
		if created && restored == 0 {
			m.destroySession(ctx, s)
			return
		}
		_ = s.SetState(previous)
	}

	tracks, err := m.search(ctx, input.Query, input.UserID)
	if err != nil {
		abort()
		return nil, err
	}

	if err := m.nodeCall(ctx, "connect", s.Player().Connect); err != nil {
		abort()
		return nil, err
	}

	entry := domain.NewQueueEntry(tracks[0], input.UserID, m.now())
	if err := m.store.Append(ctx, input.GuildID, entry); err != nil {
		slog.Error("failed to save queue entry", "guild", input.GuildID, "error", err)
		abort()
		return nil, fmt.Errorf("%w: %w", ErrQueueNotSaved, err)
	}
	size := s.Queue().Append(entry)

	output := &PlayOutput{
		Entry:     entry,
		QueueSize: size,
		Recreated: recreated,
		Restored:  restored,
	}

	// A current entry whose track end is still on its way counts as busy, so only
	// the track end advances the head.
	player := s.Player()
	if s.NowPlaying() != nil || player.Playing() || player.Paused() {
		// Queued behind the current track.
		return output, s.SetState(previous)
	}

	if err := m.startHead(ctx, s); err != nil {
		_ = s.SetState(domain.StateIdle)
		return nil, err
	}
	if err := s.SetState(domain.StatePlaying); err != nil {
		return nil, err
	}

	head, _ := s.Queue().Head()
	output.Started = head.SameAs(entry)
	return output, nil
}

func (m *SessionManager) search(
	ctx context.Context,
	query string,
	requester snowflake.ID,
) ([]domain.Track, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrNoTrackFound
	}

	var tracks []domain.Track
	err := m.nodeCall(ctx, "search", func(ctx context.Context) error {
		var searchErr error
		tracks, searchErr = m.node.Search(ctx, query, requester)
		return searchErr
	})
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, ErrNoTrackFound
	}
	return tracks, nil
}

// Stop destroys the guild's session unconditionally and clears both queues.
func (m *SessionManager) Stop(ctx context.Context, input StopInput) (err error) {
	defer m.observe("stop", &err)

	if input.VoiceChannelID == 0 {
		return ErrNoVoiceChannel
	}

	return m.dispatcher.Run(ctx, input.GuildID, func(ctx context.Context) error {
		s := m.registry.Get(input.GuildID)
		if s == nil {
			if err := m.store.Clear(ctx, input.GuildID); err != nil {
				slog.Warn("failed to clear saved queue", "guild", input.GuildID, "error", err)
			}
			return ErrNothingPlaying
		}

		s.Queue().Clear()
		m.destroySession(ctx, s)

		if err := m.store.Clear(ctx, input.GuildID); err != nil {
			return fmt.Errorf("%w: %w", ErrQueueNotSaved, err)
		}
		return nil
	})
}

// Pause pauses the current track. The session must be playing.
func (m *SessionManager) Pause(ctx context.Context, input PauseInput) (err error) {
	defer m.observe("pause", &err)

	if input.VoiceChannelID == 0 {
		return ErrNoVoiceChannel
	}

	return m.dispatcher.Run(ctx, input.GuildID, func(ctx context.Context) error {
		return m.setPaused(ctx, m.registry.Get(input.GuildID), true)
	})
}

// Resume resumes the current track. The session must be paused.
func (m *SessionManager) Resume(ctx context.Context, input ResumeInput) (err error) {
	defer m.observe("resume", &err)

	if input.VoiceChannelID == 0 {
		return ErrNoVoiceChannel
	}

	return m.dispatcher.Run(ctx, input.GuildID, func(ctx context.Context) error {
		return m.setPaused(ctx, m.registry.Get(input.GuildID), false)
	})
}

func (m *SessionManager) setPaused(ctx context.Context, s *session.Session, paused bool) error {
	if s == nil {
		return ErrInvalidState
	}
	if err := degradedError(s); err != nil {
		return err
	}

	from, to := domain.StatePlaying, domain.StatePaused
	if !paused {
		from, to = domain.StatePaused, domain.StatePlaying
	}
	if s.State() != from {
		return fmt.Errorf("%w: session is %s", ErrInvalidState, s.State())
	}

	err := m.nodeCall(ctx, "pause", func(ctx context.Context) error {
		return s.Player().Pause(ctx, paused)
	})
	if err != nil {
		return err
	}
	return s.SetState(to)
}

// Skip ends the current track. The queue advances when the node reports the track end.
func (m *SessionManager) Skip(ctx context.Context, input SkipInput) (_ *SkipOutput, err error) {
	defer m.observe("skip", &err)

	if input.VoiceChannelID == 0 {
		return nil, ErrNoVoiceChannel
	}

	var output *SkipOutput
	err = m.dispatcher.Run(ctx, input.GuildID, func(ctx context.Context) error {
		s := m.registry.Get(input.GuildID)
		if s == nil || s.Queue().IsEmpty() {
			return ErrEmptyQueue
		}
		if err := degradedError(s); err != nil {
			return err
		}

		head, _ := s.Queue().Head()
		player := s.Player()
		if player.Playing() || player.Paused() {
			if err := m.nodeCall(ctx, "stop", player.Stop); err != nil {
				return err
			}
			output = &SkipOutput{Skipped: head}
			return nil
		}

		// Nothing on the node to stop, so no track end will follow.
		skipped, _ := m.dropHead(ctx, s)
		output = &SkipOutput{Skipped: skipped}
		return m.playNextOrClose(ctx, s)
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}
