package config

import (
	"time"

	"github.com/diegoclair/flashevent-bot/internal/domain"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	SlackBotToken      string `envconfig:"SLACK_BOT_TOKEN"`
	SlackSigningSecret string `envconfig:"SLACK_SIGNING_SECRET"`
	BotUserID          string `envconfig:"BOT_USER_ID"`
	Port               string `envconfig:"PORT" default:"3000"`

	StoreBackend   string `envconfig:"STORE_BACKEND" default:"sqlite"` // sqlite|redis
	DatabasePath   string `envconfig:"DATABASE_PATH" default:"./flashevent.db"`
	RedisAddr      string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD"`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`
	RedisKeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"flashevent-bot:"`

	ChimeChannelID  string        `envconfig:"CHIME_CHANNEL_ID"`
	ChimeKeyword    string        `envconfig:"CHIME_KEYWORD" default:"chime"`
	ChimeSchedule   string        `envconfig:"CHIME_SCHEDULE"` // empty: ticks come from the chime channel only
	ChimeTimeout    time.Duration `envconfig:"CHIME_TIMEOUT" default:"2m"`
	DebugChannelID  string        `envconfig:"DEBUG_CHANNEL_ID"`
	TriggerHours    []int         `envconfig:"TRIGGER_HOURS" default:"11,15,19,20,22"`
	RosterSeedPath  string        `envconfig:"ROSTER_SEED_PATH"`
	ConversationTTL time.Duration `envconfig:"CONVERSATION_TTL" default:"5m"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
}

// Load reads environment variables into Config and validates them.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, domain.NewConfigurationError("failed to read environment: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.SlackBotToken == "" {
		return domain.NewConfigurationError("SLACK_BOT_TOKEN is required")
	}
	if c.SlackSigningSecret == "" {
		return domain.NewConfigurationError("SLACK_SIGNING_SECRET is required")
	}

	switch c.StoreBackend {
	case BackendSQLite:
		if c.DatabasePath == "" {
			return domain.NewConfigurationError("DATABASE_PATH is required for the sqlite backend")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return domain.NewConfigurationError("REDIS_ADDR is required for the redis backend")
		}
	default:
		return domain.NewConfigurationError("unknown STORE_BACKEND %q, use sqlite or redis", c.StoreBackend)
	}

	if len(c.TriggerHours) == 0 {
		return domain.NewConfigurationError("TRIGGER_HOURS must list at least one hour")
	}
	for _, h := range c.TriggerHours {
		if h < 0 || h > 23 {
			return domain.NewConfigurationError("TRIGGER_HOURS contains %d, hours must be 0-23", h)
		}
	}

	if c.ConversationTTL <= 0 {
		return domain.NewConfigurationError("CONVERSATION_TTL must be positive")
	}

	return nil
}
