package music_player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/disgoorg/snowflake/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sglre6355/musicbot/internal/bot"
	"github.com/sglre6355/musicbot/internal/modules/music_player/application/session"
	"github.com/sglre6355/musicbot/internal/modules/music_player/application/usecases"
	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
	"github.com/sglre6355/musicbot/internal/modules/music_player/infrastructure"
	"github.com/sglre6355/musicbot/internal/modules/music_player/presentation"
	"github.com/sglre6355/musicbot/internal/modules/music_player/presentation/discord"
)

const shutdownTimeout = 15 * time.Second

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var (
	_ bot.ConfigurableModule = (*MusicPlayerModule)(nil)
	_ bot.HealthChecker      = (*MusicPlayerModule)(nil)
)

// MusicPlayerModule provides the /music command.
type MusicPlayerModule struct {
	config          *Config
	commandHandlers *discord.CommandHandlers
	autocomplete    *discord.AutocompleteHandler
	eventHandlers   *discord.EventHandlers
	lavalinkClient  *infrastructure.LavalinkClient
	redisClient     *redis.Client

	// Event-driven components
	eventBus            *infrastructure.ChannelEventBus
	manager             *usecases.SessionManager
	notificationHandler *infrastructure.NotificationEventHandler
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		discord.CommandName: m.commandHandlers.HandleMusic,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			m.handleVoiceServerUpdate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			m.handleVoiceStateUpdate(s, event)
		},
		func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			if m.autocomplete != nil {
				m.autocomplete.HandleInteraction(s, i)
			}
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil || deps.Session.State == nil || deps.Session.State.User == nil {
		return errors.New("music_player requires an open Discord session")
	}
	if m.config == nil {
		if err := m.LoadConfig(); err != nil {
			return err
		}
	}

	store, err := m.openQueueStore()
	if err != nil {
		return err
	}

	// Create event bus (needed by the Lavalink client for publishing events)
	m.eventBus = infrastructure.NewChannelEventBus(infrastructure.DefaultEventBufferSize)

	lavalinkClient, err := infrastructure.NewLavalinkClient(
		deps.Session,
		m.eventBus,
		infrastructure.LavalinkConfig{
			Address:        m.config.LavalinkAddress(),
			Password:       m.config.LavalinkPassword,
			Secure:         m.config.LavalinkSecure,
			SearchRate:     m.config.SearchRate,
			SearchBurst:    m.config.SearchBurst,
			HealthInterval: m.config.NodeHealthInterval,
		},
	)
	if err != nil {
		m.eventBus.Close()
		return err
	}
	m.lavalinkClient = lavalinkClient

	var metrics usecases.Metrics = usecases.NoopMetrics{}
	if deps.Metrics != nil {
		metrics = infrastructure.NewPrometheusMetrics(deps.Metrics)
	}

	m.manager = usecases.NewSessionManager(
		session.NewRegistry(),
		store,
		lavalinkClient,
		usecases.NewDispatcher(m.config.GuildIdleTimeout),
		m.eventBus,
		m.eventBus,
		metrics,
		m.config.NodeTimeout,
	)
	m.manager.Start()

	m.notificationHandler = infrastructure.NewNotificationEventHandler(
		infrastructure.NewNotifier(deps.Session),
		m.eventBus,
		infrastructure.NewDiscordUserInfoProvider(deps.Session),
	)
	m.notificationHandler.Start()

	// Create presentation handlers
	botID, err := snowflake.Parse(deps.Session.State.User.ID)
	if err != nil {
		return err
	}
	m.commandHandlers = discord.NewCommandHandlers(
		presentation.NewRouter(m.manager),
		infrastructure.NewVoiceStateProvider(deps.Session),
	)
	m.autocomplete = discord.NewAutocompleteHandler(m.manager)
	m.eventHandlers = discord.NewEventHandlers(botID, m.manager)

	slog.Info("music_player module initialized",
		"lavalink", m.config.LavalinkAddress(),
		"queue_backend", m.config.QueueBackend,
	)

	return nil
}

// openQueueStore builds the durable queue store for the configured backend.
func (m *MusicPlayerModule) openQueueStore() (domain.QueueRepository, error) {
	switch m.config.QueueBackend {
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     m.config.RedisAddr,
			Password: m.config.RedisPassword,
			DB:       m.config.RedisDB,
		})
		store := infrastructure.NewRedisQueueStore(client, m.config.RedisPrefix)

		ctx, cancel := context.WithTimeout(context.Background(), m.config.NodeTimeout)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			// Reads degrade to empty and writes fail per command until Redis is back.
			slog.Warn("redis queue store unavailable", "addr", m.config.RedisAddr, "error", err)
		}
		m.redisClient = client
		return store, nil

	case BackendMemory:
		slog.Warn("using in-memory queue store, queues will not survive a restart")
		return infrastructure.NewMemoryQueueStore(), nil

	case BackendFile:
		return infrastructure.NewJSONQueueStore(m.config.QueueFile), nil

	default:
		return nil, fmt.Errorf("invalid queue backend %q", m.config.QueueBackend)
	}
}

// Health reports an error while the Lavalink node is unreachable.
func (m *MusicPlayerModule) Health() error {
	if m.lavalinkClient == nil {
		return errors.New("not initialized")
	}
	if !m.lavalinkClient.Connected() {
		return errors.New("lavalink node not connected")
	}
	return nil
}

// Shutdown cleans up module resources.
func (m *MusicPlayerModule) Shutdown() error {
	var errs []error

	// Drain guild work and leave voice before the node goes away
	if m.manager != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := m.manager.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to destroy sessions: %w", err))
		}
		cancel()
	}

	// Close event bus
	if m.eventBus != nil {
		m.eventBus.Close()
	}

	// Close Lavalink connection
	if m.lavalinkClient != nil {
		m.lavalinkClient.Close()
	}

	if m.redisClient != nil {
		if err := m.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Event handlers.

func (m *MusicPlayerModule) handleVoiceServerUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceServerUpdate,
) {
	if m.lavalinkClient != nil {
		m.lavalinkClient.OnVoiceServerUpdate(event)
	}
}

func (m *MusicPlayerModule) handleVoiceStateUpdate(
	s *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	if m.lavalinkClient != nil {
		m.lavalinkClient.OnVoiceStateUpdate(event)
	}
	if m.eventHandlers != nil {
		m.eventHandlers.HandleVoiceStateUpdate(s, event)
	}
}
