package ports

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

// UserInfo contains display information about a Discord user.
type UserInfo struct {
	DisplayName string
	AvatarURL   string
}

// UserInfoProvider resolves how a guild member should be shown.
type UserInfoProvider interface {
	GetUserInfo(guildID, userID snowflake.ID) (*UserInfo, error)
}

// NotificationSender defines the interface for posting playback announcements to text channels.
type NotificationSender interface {
	// SendNowPlaying sends a "Now Playing" embed to the channel and returns the message ID.
	SendNowPlaying(
		channelID snowflake.ID,
		entry domain.QueueEntry,
		requester UserInfo,
	) (messageID snowflake.ID, err error)

	// DeleteMessage deletes a message from the channel.
	DeleteMessage(channelID snowflake.ID, messageID snowflake.ID) error
}
