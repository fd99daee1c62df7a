package presentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/musicbot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

// Subcommand names of /music.
const (
	SubcommandPlay   = "play"
	SubcommandStop   = "stop"
	SubcommandPause  = "pause"
	SubcommandResume = "resume"
	SubcommandQueue  = "queue"
	SubcommandSkip   = "skip"
	SubcommandRemove = "remove"
	SubcommandClear  = "clear"
)

// MusicService is the session manager as seen by the command surface.
type MusicService interface {
	Play(ctx context.Context, input usecases.PlayInput) (*usecases.PlayOutput, error)
	Stop(ctx context.Context, input usecases.StopInput) error
	Pause(ctx context.Context, input usecases.PauseInput) error
	Resume(ctx context.Context, input usecases.ResumeInput) error
	Skip(ctx context.Context, input usecases.SkipInput) (*usecases.SkipOutput, error)
	List(ctx context.Context, input usecases.ListInput) (*usecases.ListOutput, error)
	Remove(ctx context.Context, input usecases.RemoveInput) (*usecases.RemoveOutput, error)
	Clear(ctx context.Context, input usecases.ClearInput) (*usecases.ClearOutput, error)
}

// Command is a parsed /music invocation.
type Command struct {
	Subcommand     string
	GuildID        snowflake.ID
	UserID         snowflake.ID
	VoiceChannelID snowflake.ID // 0 if the user is not in voice
	TextChannelID  snowflake.ID
	Query          string
	Index          int
	Page           int
}

// Reply is the user-facing result of a command.
type Reply struct {
	Title   string
	Text    string
	Footer  string
	IsError bool
}

// Router runs commands against the music service and renders replies.
// It never returns an error: every failure becomes an error reply.
type Router struct {
	music MusicService
}

// NewRouter creates a new Router.
func NewRouter(music MusicService) *Router {
	return &Router{music: music}
}

// Execute runs cmd and returns the reply to show the user.
func (r *Router) Execute(ctx context.Context, cmd Command) Reply {
	reply, err := r.execute(ctx, cmd)
	if err != nil {
		return errorReply(cmd, err)
	}
	return reply
}

func (r *Router) execute(ctx context.Context, cmd Command) (Reply, error) {
	switch cmd.Subcommand {
	case SubcommandPlay:
		out, err := r.music.Play(ctx, usecases.PlayInput{
			GuildID:        cmd.GuildID,
			UserID:         cmd.UserID,
			VoiceChannelID: cmd.VoiceChannelID,
			TextChannelID:  cmd.TextChannelID,
			Query:          cmd.Query,
		})
		if err != nil {
			return Reply{}, err
		}
		return playReply(out), nil

	case SubcommandStop:
		err := r.music.Stop(ctx, usecases.StopInput{
			GuildID:        cmd.GuildID,
			VoiceChannelID: cmd.VoiceChannelID,
		})
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: "Stopped playback and cleared the queue."}, nil

	case SubcommandPause:
		err := r.music.Pause(ctx, usecases.PauseInput{
			GuildID:        cmd.GuildID,
			VoiceChannelID: cmd.VoiceChannelID,
		})
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: "Paused playback."}, nil

	case SubcommandResume:
		err := r.music.Resume(ctx, usecases.ResumeInput{
			GuildID:        cmd.GuildID,
			VoiceChannelID: cmd.VoiceChannelID,
		})
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: "Resumed playback."}, nil

	case SubcommandSkip:
		out, err := r.music.Skip(ctx, usecases.SkipInput{
			GuildID:        cmd.GuildID,
			VoiceChannelID: cmd.VoiceChannelID,
		})
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: "Skipped " + trackLink(out.Skipped.Track) + "."}, nil

	case SubcommandQueue:
		out, err := r.music.List(ctx, usecases.ListInput{
			GuildID: cmd.GuildID,
			Page:    cmd.Page,
		})
		if err != nil {
			return Reply{}, err
		}
		return queueReply(out), nil

	case SubcommandRemove:
		out, err := r.music.Remove(ctx, usecases.RemoveInput{
			GuildID: cmd.GuildID,
			Index:   cmd.Index,
		})
		if err != nil {
			return Reply{}, err
		}
		text := "Removed " + trackLink(out.Removed.Track) + "."
		if out.WasCurrent {
			text += " Moving on to the next track."
		}
		return Reply{Text: text}, nil

	case SubcommandClear:
		out, err := r.music.Clear(ctx, usecases.ClearInput{GuildID: cmd.GuildID})
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: fmt.Sprintf("Cleared %s from the queue.", plural(out.Cleared, "track"))}, nil

	default:
		return Reply{}, fmt.Errorf("unknown subcommand %q", cmd.Subcommand)
	}
}

func playReply(out *usecases.PlayOutput) Reply {
	var sb strings.Builder
	if out.Recreated {
		sb.WriteString("The previous session was interrupted by a node failure, so it was restarted.\n")
	}
	if out.Restored > 0 {
		fmt.Fprintf(&sb, "Restored %s from the saved queue.\n", plural(out.Restored, "track"))
	}

	track := out.Entry.Track
	if out.Started {
		fmt.Fprintf(&sb, "Now playing %s", trackLink(track))
	} else {
		fmt.Fprintf(&sb, "Added %s to the queue", trackLink(track))
	}
	if track.Author != "" {
		fmt.Fprintf(&sb, " by %s", track.Author)
	}
	fmt.Fprintf(&sb, " (%s).\nQueue size: %d", track.FormattedDuration(), out.QueueSize)

	return Reply{Text: sb.String()}
}

func queueReply(out *usecases.ListOutput) Reply {
	reply := Reply{
		Title:  "Queue",
		Footer: fmt.Sprintf("Page %d/%d · %s", out.Page, out.TotalPages, plural(out.Total, "track")),
	}
	if out.Saved {
		reply.Title = "Saved queue"
	}

	if out.Total == 0 {
		reply.Text = "The queue is empty."
		return reply
	}

	var sb strings.Builder
	if out.Saved {
		sb.WriteString("Nothing is playing. These tracks will be restored by the next play.\n")
	}
	if out.Degraded {
		sb.WriteString("Playback was interrupted by a node failure. Use `/music stop` or `/music play`.\n")
	}
	for i, entry := range out.Entries {
		position := out.PageStart + i + 1
		// Escape the period so Discord does not render a markdown list.
		fmt.Fprintf(&sb, "%d\\. %s - %s (%s)",
			position,
			trackLink(entry.Track),
			entry.Track.Author,
			entry.Track.FormattedDuration(),
		)
		if position == 1 && out.Playing {
			if out.State == domain.StatePaused {
				sb.WriteString(" · paused")
			} else {
				sb.WriteString(" · now playing")
			}
		}
		sb.WriteString("\n")
	}
	reply.Text = strings.TrimSuffix(sb.String(), "\n")

	return reply
}

func errorReply(cmd Command, err error) Reply {
	reply := Reply{Title: "Error", IsError: true}

	var mismatch *usecases.VoiceChannelMismatchError
	switch {
	case errors.As(err, &mismatch):
		reply.Text = fmt.Sprintf("I'm already playing in <#%d>. Join that channel or stop playback first.",
			mismatch.BoundChannelID)
	case errors.Is(err, usecases.ErrSessionDegraded):
		reply.Text = "Playback was interrupted by a node failure. Use `/music stop` or `/music play` to start over."
	case errors.Is(err, usecases.ErrQueueNotSaved):
		reply.Text = "The queue could not be saved. Please try again."
	case errors.Is(err, usecases.ErrDispatcherClosed):
		reply.Text = "The bot is shutting down."
	case errors.Is(err, usecases.ErrNotInitialized):
		reply.Text = "Music playback is not ready yet. Please try again shortly."
	case errors.Is(err, usecases.ErrNoVoiceChannel):
		reply.Text = "You must be in a voice channel to use this command."
	case errors.Is(err, usecases.ErrNoTrackFound):
		reply.Text = "No matching track found."
	case errors.Is(err, usecases.ErrEmptyQueue):
		reply.Text = "The queue is empty."
	case errors.Is(err, usecases.ErrInvalidIndex):
		reply.Text = "There is no track at that position. Check `/music queue`."
	case errors.Is(err, usecases.ErrInvalidState):
		reply.Text = invalidStateText(cmd.Subcommand)
	case errors.Is(err, usecases.ErrNodeTimeout):
		reply.Text = "The music node did not respond in time. Please try again."
	case errors.Is(err, usecases.ErrNodeError):
		reply.Text = "The music node reported an error. Please try again."
	case errors.Is(err, usecases.ErrNothingPlaying):
		reply.Text = "Nothing is playing."
	default:
		slog.Error("failed to handle music command",
			"subcommand", cmd.Subcommand,
			"guild", cmd.GuildID,
			"error", err,
		)
		reply.Text = "An error occurred while processing your command."
	}

	return reply
}

func invalidStateText(subcommand string) string {
	switch subcommand {
	case SubcommandPause:
		return "Nothing is playing right now."
	case SubcommandResume:
		return "Playback is not paused."
	default:
		return "That can't be done right now."
	}
}

func trackLink(track domain.Track) string {
	if track.URI != "" {
		return fmt.Sprintf("[%s](%s)", track.Title, track.URI)
	}
	return "**" + track.Title + "**"
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
