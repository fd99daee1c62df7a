package discord

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sglre6355/musicbot/internal/bot"
	"github.com/sglre6355/musicbot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
	"github.com/sglre6355/musicbot/internal/modules/music_player/presentation"
)

type fakeVoiceState struct {
	channel snowflake.ID
	err     error
}

func (f *fakeVoiceState) GetUserVoiceChannel(_, _ snowflake.ID) (snowflake.ID, error) {
	return f.channel, f.err
}

// recordingMusic records the inputs it receives and rejects calls without a voice channel.
type recordingMusic struct {
	play   usecases.PlayInput
	remove usecases.RemoveInput
	list   usecases.ListInput
	called string
}

func (m *recordingMusic) Play(_ context.Context, in usecases.PlayInput) (*usecases.PlayOutput, error) {
	m.called, m.play = "play", in
	if in.VoiceChannelID == 0 {
		return nil, usecases.ErrNoVoiceChannel
	}
	track := domain.Track{Encoded: "e", Title: in.Query, Duration: time.Minute}
	return &usecases.PlayOutput{
		Entry:     domain.NewQueueEntry(track, in.UserID, time.Now()),
		QueueSize: 1,
		Started:   true,
	}, nil
}

func (m *recordingMusic) Stop(context.Context, usecases.StopInput) error {
	m.called = "stop"
	return nil
}

func (m *recordingMusic) Pause(_ context.Context, in usecases.PauseInput) error {
	m.called = "pause"
	if in.VoiceChannelID == 0 {
		return usecases.ErrNoVoiceChannel
	}
	return nil
}

func (m *recordingMusic) Resume(context.Context, usecases.ResumeInput) error {
	m.called = "resume"
	return nil
}

func (m *recordingMusic) Skip(context.Context, usecases.SkipInput) (*usecases.SkipOutput, error) {
	m.called = "skip"
	return nil, usecases.ErrEmptyQueue
}

func (m *recordingMusic) List(_ context.Context, in usecases.ListInput) (*usecases.ListOutput, error) {
	m.called, m.list = "list", in
	return &usecases.ListOutput{Page: 1, TotalPages: 1}, nil
}

func (m *recordingMusic) Remove(_ context.Context, in usecases.RemoveInput) (*usecases.RemoveOutput, error) {
	m.called, m.remove = "remove", in
	return nil, usecases.ErrInvalidIndex
}

func (m *recordingMusic) Clear(context.Context, usecases.ClearInput) (*usecases.ClearOutput, error) {
	m.called = "clear"
	return &usecases.ClearOutput{}, nil
}

func interaction(sub string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   "100",
			ChannelID: "300",
			Member:    &discordgo.Member{User: &discordgo.User{ID: "200"}},
			Data: discordgo.ApplicationCommandInteractionData{
				Name: CommandName,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{
						Name:    sub,
						Type:    discordgo.ApplicationCommandOptionSubCommand,
						Options: opts,
					},
				},
			},
		},
	}
}

func intOption(name string, v int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionInteger,
		Value: float64(v),
	}
}

func newHandlers(music *recordingMusic, voice *fakeVoiceState) *CommandHandlers {
	return NewCommandHandlers(presentation.NewRouter(music), voice)
}

func TestHandleMusic_PlayUsesDeferredReply(t *testing.T) {
	music := &recordingMusic{}
	h := newHandlers(music, &fakeVoiceState{channel: 400})
	r := &bot.MockResponder{}

	err := h.HandleMusic(nil, interaction(presentation.SubcommandPlay,
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  "query",
			Type:  discordgo.ApplicationCommandOptionString,
			Value: "lofi beats",
		},
	), r)
	require.NoError(t, err)

	assert.True(t, r.Deferred)
	assert.Nil(t, r.LastResponse)
	require.NotNil(t, r.LastEdit)
	require.NotNil(t, r.LastEdit.Embeds)
	embeds := *r.LastEdit.Embeds
	require.Len(t, embeds, 1)
	assert.Equal(t, colorSuccess, embeds[0].Color)
	assert.Contains(t, embeds[0].Description, "lofi beats")
	assert.Contains(t, embeds[0].Description, "Queue size: 1")

	assert.Equal(t, usecases.PlayInput{
		GuildID:        100,
		UserID:         200,
		VoiceChannelID: 400,
		TextChannelID:  300,
		Query:          "lofi beats",
	}, music.play)
}

func TestHandleMusic_PlayWithoutVoiceEditsError(t *testing.T) {
	h := newHandlers(&recordingMusic{}, &fakeVoiceState{err: errors.New("state cache miss")})
	r := &bot.MockResponder{}

	err := h.HandleMusic(nil, interaction(presentation.SubcommandPlay,
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  "query",
			Type:  discordgo.ApplicationCommandOptionString,
			Value: "x",
		},
	), r)
	require.NoError(t, err)

	require.NotNil(t, r.LastEdit)
	embeds := *r.LastEdit.Embeds
	assert.Equal(t, colorError, embeds[0].Color)
	assert.Contains(t, embeds[0].Description, "voice channel")
}

func TestHandleMusic_DirectReplies(t *testing.T) {
	tests := []struct {
		name       string
		i          *discordgo.InteractionCreate
		wantCalled string
		wantColor  int
		check      func(t *testing.T, m *recordingMusic)
	}{
		{
			name:       "stop",
			i:          interaction(presentation.SubcommandStop),
			wantCalled: "stop",
			wantColor:  colorSuccess,
		},
		{
			name:       "queue with page",
			i:          interaction(presentation.SubcommandQueue, intOption("page", 2)),
			wantCalled: "list",
			wantColor:  colorSuccess,
			check: func(t *testing.T, m *recordingMusic) {
				assert.Equal(t, 2, m.list.Page)
			},
		},
		{
			name:       "remove passes 1-based index",
			i:          interaction(presentation.SubcommandRemove, intOption("index", 3)),
			wantCalled: "remove",
			wantColor:  colorError,
			check: func(t *testing.T, m *recordingMusic) {
				assert.Equal(t, 3, m.remove.Index)
			},
		},
		{
			name:       "skip on empty queue",
			i:          interaction(presentation.SubcommandSkip),
			wantCalled: "skip",
			wantColor:  colorError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			music := &recordingMusic{}
			h := newHandlers(music, &fakeVoiceState{channel: 400})
			r := &bot.MockResponder{}

			require.NoError(t, h.HandleMusic(nil, tt.i, r))

			assert.False(t, r.Deferred)
			require.NotNil(t, r.LastResponse)
			assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, r.LastResponse.Type)
			assert.Equal(t, tt.wantColor, r.LastResponse.Data.Embeds[0].Color)
			assert.Equal(t, tt.wantCalled, music.called)
			if tt.check != nil {
				tt.check(t, music)
			}
		})
	}
}

func TestHandleMusic_OutsideGuild(t *testing.T) {
	music := &recordingMusic{}
	h := newHandlers(music, &fakeVoiceState{})
	r := &bot.MockResponder{}

	i := interaction(presentation.SubcommandStop)
	i.GuildID = ""
	i.Member = nil
	i.User = &discordgo.User{ID: "200"}

	require.NoError(t, h.HandleMusic(nil, i, r))

	require.NotNil(t, r.LastResponse)
	assert.Equal(t, colorError, r.LastResponse.Data.Embeds[0].Color)
	assert.Empty(t, music.called)
}

func TestHandleMusic_ResponderError(t *testing.T) {
	h := newHandlers(&recordingMusic{}, &fakeVoiceState{channel: 400})
	r := &bot.MockResponder{Err: errors.New("interaction expired")}

	err := h.HandleMusic(nil, interaction(presentation.SubcommandPause), r)

	assert.ErrorIs(t, err, r.Err)
}

type recordingDisconnect struct {
	guilds []snowflake.ID
}

func (r *recordingDisconnect) VoiceDisconnected(guildID snowflake.ID) {
	r.guilds = append(r.guilds, guildID)
}

func TestEventHandlers_HandleVoiceStateUpdate(t *testing.T) {
	const botID = snowflake.ID(999)

	tests := []struct {
		name   string
		update *discordgo.VoiceState
		want   []snowflake.ID
	}{
		{
			name:   "bot disconnected",
			update: &discordgo.VoiceState{GuildID: "100", UserID: "999"},
			want:   []snowflake.ID{100},
		},
		{
			name:   "bot moved",
			update: &discordgo.VoiceState{GuildID: "100", UserID: "999", ChannelID: "400"},
		},
		{
			name:   "other user left",
			update: &discordgo.VoiceState{GuildID: "100", UserID: "200"},
		},
		{
			name:   "bad guild id",
			update: &discordgo.VoiceState{GuildID: "nope", UserID: "999"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingDisconnect{}
			h := NewEventHandlers(botID, rec)

			h.HandleVoiceStateUpdate(nil, &discordgo.VoiceStateUpdate{VoiceState: tt.update})

			assert.Equal(t, tt.want, rec.guilds)
		})
	}
}

func TestCommands(t *testing.T) {
	cmds := Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, CommandName, cmds[0].Name)

	var names []string
	for _, opt := range cmds[0].Options {
		assert.Equal(t, discordgo.ApplicationCommandOptionSubCommand, opt.Type)
		names = append(names, opt.Name)
	}
	assert.ElementsMatch(t, []string{
		"play", "stop", "pause", "resume", "queue", "skip", "remove", "clear",
	}, names)
}
