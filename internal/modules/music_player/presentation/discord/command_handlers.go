package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/musicbot/internal/bot"
	"github.com/sglre6355/musicbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/musicbot/internal/modules/music_player/presentation"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
)

// CommandHandlers turns /music interactions into router commands.
type CommandHandlers struct {
	router     *presentation.Router
	voiceState ports.VoiceStateProvider
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(
	router *presentation.Router,
	voiceState ports.VoiceStateProvider,
) *CommandHandlers {
	return &CommandHandlers{
		router:     router,
		voiceState: voiceState,
	}
}

// HandleMusic handles the /music command.
// play acknowledges first and edits the reply once the search is done.
func (h *CommandHandlers) HandleMusic(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	cmd, msg := h.parse(i)
	if msg != "" {
		return respondError(r, msg)
	}

	if cmd.Subcommand != presentation.SubcommandPlay {
		return respond(r, h.router.Execute(context.Background(), cmd))
	}

	if err := r.Defer(); err != nil {
		return err
	}
	reply := h.router.Execute(context.Background(), cmd)
	return r.Edit(&discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed(reply)},
	})
}

// parse builds a router command. A non-empty string is a user-facing parse error.
func (h *CommandHandlers) parse(i *discordgo.InteractionCreate) (presentation.Command, string) {
	var cmd presentation.Command

	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return cmd, "This command can only be used in a server."
	}

	var err error
	if cmd.GuildID, err = snowflake.Parse(i.GuildID); err != nil {
		return cmd, "Invalid guild"
	}
	if cmd.UserID, err = snowflake.Parse(i.Member.User.ID); err != nil {
		return cmd, "Invalid user"
	}
	if cmd.TextChannelID, err = snowflake.Parse(i.ChannelID); err != nil {
		return cmd, "Invalid channel"
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return cmd, "Missing subcommand"
	}
	sub := options[0]
	cmd.Subcommand = sub.Name

	for _, opt := range sub.Options {
		switch opt.Name {
		case "query":
			cmd.Query = opt.StringValue()
		case "index":
			cmd.Index = int(opt.IntValue())
		case "page":
			cmd.Page = int(opt.IntValue())
		}
	}

	// Not being in voice is reported by the session manager for the commands that need it.
	voiceChannelID, err := h.voiceState.GetUserVoiceChannel(cmd.GuildID, cmd.UserID)
	if err != nil {
		slog.Debug("failed to look up voice state",
			"guild", cmd.GuildID,
			"user", cmd.UserID,
			"error", err,
		)
	}
	cmd.VoiceChannelID = voiceChannelID

	return cmd, ""
}

// Response helpers.

func embed(reply presentation.Reply) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       reply.Title,
		Description: reply.Text,
		Color:       colorSuccess,
	}
	if reply.IsError {
		e.Color = colorError
	}
	if reply.Footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: reply.Footer}
	}
	return e
}

func respond(r bot.Responder, reply presentation.Reply) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed(reply)},
		},
	})
}

func respondError(r bot.Responder, message string) error {
	return respond(r, presentation.Reply{Title: "Error", Text: message, IsError: true})
}
