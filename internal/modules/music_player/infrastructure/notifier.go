package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/musicbot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

// Embed colors per track source.
const (
	colorYouTube    = 0xFF0000
	colorSoundCloud = 0xFF5500
	colorDefault    = 0x08C404
)

// Notifier sends playback announcements to Discord channels.
type Notifier struct {
	session    *discordgo.Session
	httpClient *http.Client
}

// NewNotifier creates a new Notifier.
func NewNotifier(session *discordgo.Session) *Notifier {
	return &Notifier{
		session: session,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// SendNowPlaying sends a "Now Playing" embed to the channel and returns the message ID.
func (n *Notifier) SendNowPlaying(
	channelID snowflake.ID,
	entry domain.QueueEntry,
	requester ports.UserInfo,
) (snowflake.ID, error) {
	embed := nowPlayingEmbed(entry, requester)

	if entry.Track.SourceName == "youtube" && entry.Track.Identifier != "" {
		if thumbnail := n.youTubeThumbnail(entry.Track.Identifier); thumbnail != "" {
			embed.Image = &discordgo.MessageEmbedImage{URL: thumbnail}
		}
	}

	msg, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	if err != nil {
		return 0, err
	}
	messageID, err := snowflake.Parse(msg.ID)
	if err != nil {
		return 0, err
	}
	return messageID, nil
}

// DeleteMessage deletes a message from the channel.
func (n *Notifier) DeleteMessage(channelID snowflake.ID, messageID snowflake.ID) error {
	return n.session.ChannelMessageDelete(channelID.String(), messageID.String())
}

func nowPlayingEmbed(entry domain.QueueEntry, requester ports.UserInfo) *discordgo.MessageEmbed {
	track := entry.Track

	name := requester.DisplayName
	if name == "" {
		name = fmt.Sprintf("<@%s>", entry.RequestedBy)
	}

	embed := &discordgo.MessageEmbed{
		Author:    &discordgo.MessageEmbedAuthor{Name: "Now Playing"},
		Title:     track.Title,
		URL:       track.URI,
		Color:     sourceColor(track.SourceName),
		Timestamp: entry.EnqueuedAt.UTC().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Artist",
				Value:  track.Author,
				Inline: true,
			},
			{
				Name:   "Duration",
				Value:  track.FormattedDuration(),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text:    "Requested by " + name,
			IconURL: requester.AvatarURL,
		},
	}
	return embed
}

func sourceColor(source string) int {
	switch source {
	case "youtube":
		return colorYouTube
	case "soundcloud":
		return colorSoundCloud
	default:
		return colorDefault
	}
}

// youTubeThumbnail returns the highest quality thumbnail that exists for the video, or "".
func (n *Notifier) youTubeThumbnail(videoID string) string {
	qualities := []string{"maxresdefault", "sddefault", "hqdefault"}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, quality := range qualities {
		url := fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", videoID, quality)
		if n.urlExists(ctx, url) {
			return url
		}
	}
	return ""
}

// urlExists checks if a URL returns a successful response using a HEAD request.
func (n *Notifier) urlExists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// Ensure Notifier implements ports.NotificationSender.
var _ ports.NotificationSender = (*Notifier)(nil)
