package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/musicbot/internal/modules/music_player/presentation"
)

// CommandName is the top-level slash command of the music module.
const CommandName = "music"

var minIndex = 1.0

// Commands returns all slash commands for the music player module.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandName,
			Description: "Play music in your voice channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        presentation.SubcommandPlay,
					Description: "Play a track from URL or search",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "query",
							Description: "URL or search term",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        presentation.SubcommandStop,
					Description: "Stop playback and clear the queue",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        presentation.SubcommandPause,
					Description: "Pause playback",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        presentation.SubcommandResume,
					Description: "Resume playback",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        presentation.SubcommandQueue,
					Description: "Show the queue",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "page",
							Description: "Page number",
							Required:    false,
							MinValue:    &minIndex,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        presentation.SubcommandSkip,
					Description: "Skip the current track",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        presentation.SubcommandRemove,
					Description: "Remove a track from the queue",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionInteger,
							Name:         "index",
							Description:  "Position in the queue (1 is the current track)",
							Required:     true,
							MinValue:     &minIndex,
							Autocomplete: true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        presentation.SubcommandClear,
					Description: "Remove every upcoming track",
				},
			},
		},
	}
}
