package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config is read from the environment, after loading .env when present.
type Config struct {
	DiscordToken   string        `env:"DISCORD_TOKEN"`
	StoragePath    string        `env:"STORAGE_PATH" envDefault:"datastore.json"`
	CommandPrefix  string        `env:"COMMAND_PREFIX" envDefault:"!"`
	DeveloperID    string        `env:"DEVELOPER_ID"`
	GuildBlacklist []string      `env:"GUILD_BLACKLIST" envSeparator:","`
	SyncCommands   bool          `env:"SYNC_COMMANDS" envDefault:"true"`
	SyncDelay      time.Duration `env:"SYNC_DELAY" envDefault:"2s"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile        string        `env:"LOG_FILE"`
}

// ErrNoToken is returned by Validate when DISCORD_TOKEN is empty.
var ErrNoToken = errors.New("DISCORD_TOKEN is not set")

// Load reads .env, if any, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, falling back to system environment variables")
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

// New loads the config for the bot and exits when it is unusable.
func New() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	return cfg
}

// Validate checks what the bot needs to connect.
func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return ErrNoToken
	}
	if c.CommandPrefix == "" {
		return errors.New("COMMAND_PREFIX must not be empty")
	}
	return nil
}

func (c *Config) IsGuildBlacklisted(guildID string) bool {
	return slices.Contains(c.GuildBlacklist, guildID)
}
