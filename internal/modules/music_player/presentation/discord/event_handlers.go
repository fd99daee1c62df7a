package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

// VoiceDisconnectHandler is told when the bot leaves voice without a command.
type VoiceDisconnectHandler interface {
	VoiceDisconnected(guildID snowflake.ID)
}

// EventHandlers handles Discord gateway events for the music player.
type EventHandlers struct {
	botID      snowflake.ID
	disconnect VoiceDisconnectHandler
}

// NewEventHandlers creates a new EventHandlers.
func NewEventHandlers(botID snowflake.ID, disconnect VoiceDisconnectHandler) *EventHandlers {
	return &EventHandlers{
		botID:      botID,
		disconnect: disconnect,
	}
}

// HandleVoiceStateUpdate closes the guild's session when the bot was disconnected.
func (h *EventHandlers) HandleVoiceStateUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	// Only handle updates for the bot itself
	if event.UserID != h.botID.String() || event.ChannelID != "" {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	h.disconnect.VoiceDisconnected(guildID)
}
