package discord

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sglre6355/musicbot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

type fakeLister struct {
	out  *usecases.ListOutput
	err  error
	last usecases.ListInput
}

func (f *fakeLister) List(_ context.Context, in usecases.ListInput) (*usecases.ListOutput, error) {
	f.last = in
	return f.out, f.err
}

func queued(title string) domain.QueueEntry {
	return domain.NewQueueEntry(domain.Track{Encoded: "e-" + title, Title: title}, 1, time.Now())
}

func TestAutocomplete_PositionChoices(t *testing.T) {
	lister := &fakeLister{out: &usecases.ListOutput{
		Entries: []domain.QueueEntry{queued("first"), queued(strings.Repeat("x", 120))},
		Total:   2,
	}}
	h := NewAutocompleteHandler(lister)

	choices := h.positionChoices(context.Background(), 100)

	assert.Equal(t, maxChoices, lister.last.PageSize)
	assert.Equal(t, 1, lister.last.Page)
	require.Len(t, choices, 2)
	assert.Equal(t, "1. first", choices[0].Name)
	assert.Equal(t, 1, choices[0].Value)
	assert.Equal(t, 2, choices[1].Value)
	assert.True(t, strings.HasSuffix(choices[1].Name, "..."))
	assert.LessOrEqual(t, len([]rune(choices[1].Name)), 100)
}

func TestAutocomplete_ListErrorGivesNoChoices(t *testing.T) {
	h := NewAutocompleteHandler(&fakeLister{err: errors.New("shutting down")})

	choices := h.positionChoices(context.Background(), 100)

	assert.NotNil(t, choices)
	assert.Empty(t, choices)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{in: "short", max: 10, want: "short"},
		{in: "exactly10!", max: 10, want: "exactly10!"},
		{in: "much too long", max: 8, want: "much ..."},
		{in: "日本語のタイトル", max: 5, want: "日本..."},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.in, tt.max))
	}
}
