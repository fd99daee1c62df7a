package music_player

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Queue store backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds the music player module configuration.
type Config struct {
	LavalinkHost     string `env:"LAVALINK_HOST"     envDefault:"localhost"`
	LavalinkPort     int    `env:"LAVALINK_PORT"     envDefault:"2333"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD" envDefault:"youshallnotpass"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE"   envDefault:"false"`

	QueueBackend string `env:"MUSIC_QUEUE_BACKEND" envDefault:"file"`
	QueueFile    string `env:"MUSIC_QUEUE_FILE"    envDefault:"music-data/queue.json"`

	RedisAddr     string `env:"MUSIC_REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"MUSIC_REDIS_PASSWORD"`
	RedisDB       int    `env:"MUSIC_REDIS_DB"       envDefault:"0"`
	RedisPrefix   string `env:"MUSIC_REDIS_PREFIX"   envDefault:"musicbot"`

	NodeTimeout        time.Duration `env:"MUSIC_NODE_TIMEOUT"         envDefault:"10s"`
	SearchRate         float64       `env:"MUSIC_SEARCH_RATE"          envDefault:"5"`
	SearchBurst        int           `env:"MUSIC_SEARCH_BURST"         envDefault:"5"`
	NodeHealthInterval time.Duration `env:"MUSIC_NODE_HEALTH_INTERVAL" envDefault:"5s"`
	GuildIdleTimeout   time.Duration `env:"MUSIC_GUILD_IDLE_TIMEOUT"   envDefault:"1m"`
}

// LavalinkAddress returns host:port of the Lavalink node.
func (c *Config) LavalinkAddress() string {
	return net.JoinHostPort(c.LavalinkHost, strconv.Itoa(c.LavalinkPort))
}

// Validate rejects values env parsing alone cannot catch.
func (c *Config) Validate() error {
	switch c.QueueBackend {
	case BackendFile:
		if c.QueueFile == "" {
			return fmt.Errorf("MUSIC_QUEUE_FILE must be set for the %s backend", BackendFile)
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("MUSIC_REDIS_ADDR must be set for the %s backend", BackendRedis)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid MUSIC_QUEUE_BACKEND %q", c.QueueBackend)
	}

	if c.LavalinkHost == "" {
		return fmt.Errorf("LAVALINK_HOST must not be empty")
	}
	if c.LavalinkPort <= 0 || c.LavalinkPort > 65535 {
		return fmt.Errorf("invalid LAVALINK_PORT %d", c.LavalinkPort)
	}
	if c.NodeTimeout <= 0 {
		return fmt.Errorf("MUSIC_NODE_TIMEOUT must be positive")
	}
	if c.SearchRate < 0 || c.SearchBurst < 0 {
		return fmt.Errorf("MUSIC_SEARCH_RATE and MUSIC_SEARCH_BURST must not be negative")
	}
	if c.GuildIdleTimeout <= 0 {
		return fmt.Errorf("MUSIC_GUILD_IDLE_TIMEOUT must be positive")
	}

	return nil
}
