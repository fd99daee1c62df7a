package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/musicbot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/musicbot/internal/modules/music_player/presentation"
)

// Discord accepts at most 25 autocomplete choices.
const maxChoices = 25

// QueueLister lists a guild's queue.
type QueueLister interface {
	List(ctx context.Context, input usecases.ListInput) (*usecases.ListOutput, error)
}

// AutocompleteHandler handles autocomplete requests.
type AutocompleteHandler struct {
	queue QueueLister
}

// NewAutocompleteHandler creates a new AutocompleteHandler.
func NewAutocompleteHandler(queue QueueLister) *AutocompleteHandler {
	return &AutocompleteHandler{queue: queue}
}

// HandleInteraction answers autocomplete for /music remove with queue positions.
func (h *AutocompleteHandler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommandAutocomplete {
		return
	}

	data := i.ApplicationCommandData()
	if data.Name != CommandName || len(data.Options) == 0 ||
		data.Options[0].Name != presentation.SubcommandRemove {
		return
	}

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		slog.Warn("failed to parse guild ID in autocomplete", "error", err, "guildID", i.GuildID)
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: h.positionChoices(context.Background(), guildID),
		},
	})
	if err != nil {
		slog.Debug("failed to answer autocomplete", "guild", guildID, "error", err)
	}
}

// positionChoices returns one choice per queue entry, valued by its 1-based position.
func (h *AutocompleteHandler) positionChoices(
	ctx context.Context,
	guildID snowflake.ID,
) []*discordgo.ApplicationCommandOptionChoice {
	output, err := h.queue.List(ctx, usecases.ListInput{
		GuildID:  guildID,
		Page:     1,
		PageSize: maxChoices,
	})
	if err != nil {
		return []*discordgo.ApplicationCommandOptionChoice{}
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(output.Entries))
	for idx, entry := range output.Entries {
		// Use 1-indexed positions to match queue list display
		pos := output.PageStart + idx + 1
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("%d. %s", pos, truncate(entry.Track.Title, 90)),
			Value: pos,
		})
	}
	return choices
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
