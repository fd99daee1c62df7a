package session

import (
	"fmt"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/musicbot/internal/modules/music_player/application/ports"
)

// Registry maps guilds to their live sessions. There is at most one session per guild.
type Registry struct {
	mu       sync.RWMutex
	sessions map[snowflake.ID]*Session
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[snowflake.ID]*Session),
	}
}

// Get returns the guild's session, or nil if none exists.
func (r *Registry) Get(guildID snowflake.ID) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sessions[guildID]
}

// GetOrCreate returns the guild's session, creating a node-side player for it if absent.
// An existing session is returned unchanged, keeping its original channel binding.
// The boolean is true if the session was created by this call.
func (r *Registry) GetOrCreate(
	guildID, voiceChannelID, textChannelID snowflake.ID,
	node ports.NodeClient,
) (*Session, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[guildID]; ok {
		return s, false, nil
	}

	player, err := node.CreatePlayer(guildID, voiceChannelID, textChannelID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create player: %w", err)
	}

	s := New(guildID, voiceChannelID, textChannelID, player)
	r.sessions[guildID] = s
	return s, true, nil
}

// Remove detaches the guild's session without destroying its player.
func (r *Registry) Remove(guildID snowflake.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, guildID)
}

// All returns a snapshot of every live session.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, s)
	}
	return result
}

// Count returns the number of live sessions (for testing/monitoring).
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}
