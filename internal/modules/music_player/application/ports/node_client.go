package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

// NodeClient is a connection to one remote playback node, shared by every guild.
type NodeClient interface {
	// Search resolves a query into playable tracks. No match is an empty slice, not an error.
	Search(ctx context.Context, query string, requester snowflake.ID) ([]domain.Track, error)

	// CreatePlayer creates the node-side player for a guild. It does not join voice yet.
	CreatePlayer(guildID, voiceChannelID, textChannelID snowflake.ID) (PlayerHandle, error)

	// Connected reports whether the node is currently usable.
	Connected() bool
}

// PlayerHandle controls one guild's node-side player and owns its playback queue.
type PlayerHandle interface {
	GuildID() snowflake.ID

	// Queue is the player's head-inclusive playback queue.
	Queue() *domain.Queue

	// Connect joins the bound voice channel. Calling it while connected is a no-op.
	Connect(ctx context.Context) error

	// Play hands the queue head to the node.
	Play(ctx context.Context) error

	// Pause pauses or resumes the current track.
	Pause(ctx context.Context, paused bool) error

	// Stop ends the current track. The node reports it as a stopped track end.
	Stop(ctx context.Context) error

	// Destroy tears down the node player and leaves voice.
	Destroy(ctx context.Context) error

	// Playing reports whether a track is currently handed to the node.
	Playing() bool

	// Paused reports whether the current track is paused.
	Paused() bool

	// Connected reports whether the player is joined to voice.
	Connected() bool
}
