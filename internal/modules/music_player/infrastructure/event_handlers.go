package infrastructure

import (
	"context"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/musicbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

// nowPlayingMessage identifies a posted "Now Playing" message.
type nowPlayingMessage struct {
	channelID snowflake.ID
	messageID snowflake.ID
}

// NotificationEventHandler posts a "Now Playing" message whenever a track starts and
// deletes it once the next track starts or the session closes.
type NotificationEventHandler struct {
	notifier     ports.NotificationSender
	subscriber   ports.EventSubscriber
	userInfoProv ports.UserInfoProvider

	mu       sync.Mutex
	messages map[snowflake.ID]nowPlayingMessage
}

// NewNotificationEventHandler creates a new NotificationEventHandler.
// userInfoProv may be nil, in which case requesters are shown as mentions.
func NewNotificationEventHandler(
	notifier ports.NotificationSender,
	subscriber ports.EventSubscriber,
	userInfoProv ports.UserInfoProvider,
) *NotificationEventHandler {
	return &NotificationEventHandler{
		notifier:     notifier,
		subscriber:   subscriber,
		userInfoProv: userInfoProv,
		messages:     make(map[snowflake.ID]nowPlayingMessage),
	}
}

// Start registers event handlers with the subscriber.
func (h *NotificationEventHandler) Start() {
	h.subscriber.OnTrackStarted(h.handleTrackStarted)
	h.subscriber.OnSessionClosed(h.handleSessionClosed)

	slog.Debug("notification event handler started")
}

func (h *NotificationEventHandler) handleTrackStarted(
	_ context.Context,
	event domain.TrackStartedEvent,
) {
	h.deleteLast(event.GuildID)

	if event.TextChannelID == 0 {
		return
	}

	slog.Debug("sending now playing notification",
		"guild", event.GuildID,
		"track", event.Entry.Track.Title,
	)

	var requester ports.UserInfo
	if h.userInfoProv != nil {
		info, err := h.userInfoProv.GetUserInfo(event.GuildID, event.Entry.RequestedBy)
		if err != nil {
			slog.Warn("failed to fetch requester info for now playing",
				"guild", event.GuildID,
				"requester", event.Entry.RequestedBy,
				"error", err,
			)
		} else {
			requester = *info
		}
	}

	messageID, err := h.notifier.SendNowPlaying(event.TextChannelID, event.Entry, requester)
	if err != nil {
		slog.Error("failed to send now playing notification",
			"guild", event.GuildID,
			"error", err,
		)
		return
	}

	h.mu.Lock()
	h.messages[event.GuildID] = nowPlayingMessage{
		channelID: event.TextChannelID,
		messageID: messageID,
	}
	h.mu.Unlock()
}

func (h *NotificationEventHandler) handleSessionClosed(
	_ context.Context,
	event domain.SessionClosedEvent,
) {
	h.deleteLast(event.GuildID)
}

// deleteLast removes the guild's current "Now Playing" message, if any.
func (h *NotificationEventHandler) deleteLast(guildID snowflake.ID) {
	h.mu.Lock()
	msg, ok := h.messages[guildID]
	delete(h.messages, guildID)
	h.mu.Unlock()

	if !ok {
		return
	}

	slog.Debug("deleting now playing message",
		"guild", guildID,
		"message_id", msg.messageID,
	)

	if err := h.notifier.DeleteMessage(msg.channelID, msg.messageID); err != nil {
		slog.Warn("failed to delete now playing message",
			"guild", guildID,
			"error", err,
		)
	}
}
