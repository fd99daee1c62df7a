package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

// List returns a page of the guild's queue. With no live session it lists
// whatever the durable store still holds for the guild.
func (m *SessionManager) List(ctx context.Context, input ListInput) (_ *ListOutput, err error) {
	defer m.observe("queue", &err)

	var output *ListOutput
	err = m.dispatcher.Run(ctx, input.GuildID, func(ctx context.Context) error {
		output = &ListOutput{State: domain.StateIdle}

		var entries []domain.QueueEntry
		if s := m.registry.Get(input.GuildID); s != nil {
			entries = s.Queue().List()
			output.State = s.State()
			output.Playing = s.NowPlaying() != nil
			output.Degraded, _ = s.Degraded()
		} else {
			entries = m.store.Get(ctx, input.GuildID)
			output.Saved = len(entries) > 0
		}

		paginate(output, entries, input.Page, input.PageSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}

func paginate(output *ListOutput, entries []domain.QueueEntry, page, pageSize int) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total := len(entries)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, total)

	output.Entries = entries[start:end]
	output.PageStart = start
	output.Total = total
	output.Page = page
	output.TotalPages = totalPages
}

// Remove deletes the entry at a 1-based position. Removing the current track stops it
// and the queue advances on the resulting track end.
func (m *SessionManager) Remove(ctx context.Context, input RemoveInput) (_ *RemoveOutput, err error) {
	defer m.observe("remove", &err)

	var output *RemoveOutput
	err = m.dispatcher.Run(ctx, input.GuildID, func(ctx context.Context) error {
		var removeErr error
		output, removeErr = m.remove(ctx, input)
		return removeErr
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}

func (m *SessionManager) remove(ctx context.Context, input RemoveInput) (*RemoveOutput, error) {
	s := m.registry.Get(input.GuildID)
	if s == nil {
		return m.removeSaved(ctx, input)
	}
	if err := degradedError(s); err != nil {
		return nil, err
	}

	queue := s.Queue()
	if input.Index < 1 || input.Index > queue.Len() {
		return nil, ErrInvalidIndex
	}
	entry, _ := queue.GetAt(input.Index - 1)

	ok, err := m.store.RemoveAt(ctx, input.GuildID, input.Index)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueueNotSaved, err)
	}
	if !ok {
		slog.Warn("saved queue shorter than playback queue",
			"guild", input.GuildID,
			"index", input.Index,
		)
	}
	queue.RemoveAt(input.Index - 1)

	output := &RemoveOutput{Removed: entry}

	current := s.NowPlaying()
	player := s.Player()
	if input.Index == 1 && current != nil && current.SameAs(entry) &&
		(player.Playing() || player.Paused()) {
		if err := m.nodeCall(ctx, "stop", player.Stop); err != nil {
			return nil, err
		}
		output.WasCurrent = true
	}

	return output, nil
}

func (m *SessionManager) removeSaved(ctx context.Context, input RemoveInput) (*RemoveOutput, error) {
	entries := m.store.Get(ctx, input.GuildID)
	if input.Index < 1 || input.Index > len(entries) {
		return nil, ErrInvalidIndex
	}

	ok, err := m.store.RemoveAt(ctx, input.GuildID, input.Index)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueueNotSaved, err)
	}
	if !ok {
		return nil, ErrInvalidIndex
	}
	return &RemoveOutput{Removed: entries[input.Index-1]}, nil
}

// Clear drops every queued entry. The current track keeps playing.
func (m *SessionManager) Clear(ctx context.Context, input ClearInput) (_ *ClearOutput, err error) {
	defer m.observe("clear", &err)

	var output *ClearOutput
	err = m.dispatcher.Run(ctx, input.GuildID, func(ctx context.Context) error {
		s := m.registry.Get(input.GuildID)
		if s == nil {
			cleared := m.store.Len(ctx, input.GuildID)
			if err := m.store.Clear(ctx, input.GuildID); err != nil {
				return fmt.Errorf("%w: %w", ErrQueueNotSaved, err)
			}
			output = &ClearOutput{Cleared: cleared}
			return nil
		}
		if err := degradedError(s); err != nil {
			return err
		}

		keep := 0
		if s.NowPlaying() != nil {
			keep = 1
		}
		if err := m.store.Truncate(ctx, input.GuildID, keep); err != nil {
			return fmt.Errorf("%w: %w", ErrQueueNotSaved, err)
		}
		output = &ClearOutput{Cleared: s.Queue().Truncate(keep)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}
