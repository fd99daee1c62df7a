package session

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/musicbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

// Session is the live playback context of one guild.
// It is not safe for concurrent use; callers mutate it only from the guild's dispatcher.
type Session struct {
	guildID        snowflake.ID
	voiceChannelID snowflake.ID
	textChannelID  snowflake.ID
	player         ports.PlayerHandle
	createdAt      time.Time

	state      domain.SessionState
	nowPlaying *domain.QueueEntry

	degraded       bool
	degradedReason string
}

// New wraps a freshly created player handle in an idle session.
func New(guildID, voiceChannelID, textChannelID snowflake.ID, player ports.PlayerHandle) *Session {
	return &Session{
		guildID:        guildID,
		voiceChannelID: voiceChannelID,
		textChannelID:  textChannelID,
		player:         player,
		createdAt:      time.Now(),
		state:          domain.StateIdle,
	}
}

func (s *Session) GuildID() snowflake.ID        { return s.guildID }
func (s *Session) VoiceChannelID() snowflake.ID { return s.voiceChannelID }
func (s *Session) TextChannelID() snowflake.ID  { return s.textChannelID }
func (s *Session) Player() ports.PlayerHandle   { return s.player }
func (s *Session) CreatedAt() time.Time         { return s.createdAt }
func (s *Session) State() domain.SessionState   { return s.state }

// Queue returns the player's playback queue.
func (s *Session) Queue() *domain.Queue {
	return s.player.Queue()
}

// SetState moves the session to next if the transition is allowed.
func (s *Session) SetState(next domain.SessionState) error {
	state, err := s.state.Transition(next)
	if err != nil {
		return err
	}
	s.state = state
	return nil
}

// NowPlaying returns the entry currently handed to the node, or nil.
func (s *Session) NowPlaying() *domain.QueueEntry {
	return s.nowPlaying
}

// SetNowPlaying records the entry handed to the node. nil clears it.
func (s *Session) SetNowPlaying(entry *domain.QueueEntry) {
	s.nowPlaying = entry
}

// MarkDegraded flags the session after a node failure.
func (s *Session) MarkDegraded(reason string) {
	s.degraded = true
	s.degradedReason = reason
}

// Degraded reports whether the node failed while this session was active.
func (s *Session) Degraded() (bool, string) {
	return s.degraded, s.degradedReason
}
