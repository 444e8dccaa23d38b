package kinobot

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/kinobot/kinobot/config"
	"github.com/ellavondegurechaff/kinobot/kinobot/database"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	TransportDiscord  = "discord"
	TransportTelegram = "telegram"

	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// LoadConfig reads the TOML file at path, then applies overrides from the
// environment and an optional .env file next to the working directory.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", slog.String("type", "sys"), slog.Any("error", err))
	}
	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log          LogConfig          `toml:"log"`
	Bot          BotConfig          `toml:"bot"`
	DB           database.DBConfig  `toml:"db"`
	Subscription SubscriptionConfig `toml:"subscription"`
	Spaces       SpacesConfig       `toml:"spaces"`
	Telegram     TelegramConfig     `toml:"telegram"`
}

type BotConfig struct {
	Transport string         `toml:"transport"`
	Storage   string         `toml:"storage"`
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Token     string         `toml:"token"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type SubscriptionConfig struct {
	GrantDays        int      `toml:"grant_days"`
	Reviewers        []string `toml:"reviewers"`
	SweepSchedule    string   `toml:"sweep_schedule"`
	CatalogCacheSize int      `toml:"catalog_cache_size"`
}

func (c SubscriptionConfig) Grant() time.Duration {
	return time.Duration(c.GrantDays) * 24 * time.Hour
}

type SpacesConfig struct {
	Key         string `toml:"key"`
	Secret      string `toml:"secret"`
	Region      string `toml:"region"`
	Bucket      string `toml:"bucket"`
	Endpoint    string `toml:"endpoint"`
	ReceiptRoot string `toml:"receipt_root"`
}

// Enabled reports whether receipts should be archived to object storage.
func (c SpacesConfig) Enabled() bool {
	return c.Key != "" && c.Secret != "" && c.Bucket != ""
}

type TelegramConfig struct {
	Token       string `toml:"token"`
	PollTimeout int    `toml:"poll_timeout"`
	Debug       bool   `toml:"debug"`
}

func (cfg *Config) applyEnv(lookup func(string) (string, bool)) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"KINOBOT_BOT_TOKEN", &cfg.Bot.Token},
		{"KINOBOT_TRANSPORT", &cfg.Bot.Transport},
		{"KINOBOT_DB_HOST", &cfg.DB.Host},
		{"KINOBOT_DB_USER", &cfg.DB.User},
		{"KINOBOT_DB_PASSWORD", &cfg.DB.Password},
		{"KINOBOT_DB_NAME", &cfg.DB.Database},
		{"KINOBOT_TELEGRAM_TOKEN", &cfg.Telegram.Token},
		{"SPACES_KEY", &cfg.Spaces.Key},
		{"SPACES_SECRET", &cfg.Spaces.Secret},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.key); ok && v != "" {
			*o.target = v
		}
	}

	if v, ok := lookup("KINOBOT_REVIEWERS"); ok && v != "" {
		cfg.Subscription.Reviewers = strings.Split(v, ",")
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.Bot.Transport == "" {
		cfg.Bot.Transport = TransportDiscord
	}
	if cfg.Bot.Storage == "" {
		cfg.Bot.Storage = StoragePostgres
	}
	if cfg.Subscription.GrantDays == 0 {
		cfg.Subscription.GrantDays = config.DefaultGrantDays
	}
	if cfg.Subscription.SweepSchedule == "" {
		cfg.Subscription.SweepSchedule = config.DefaultSweepSchedule
	}
	if cfg.Subscription.CatalogCacheSize == 0 {
		cfg.Subscription.CatalogCacheSize = config.CatalogCacheSize
	}
	if cfg.Spaces.ReceiptRoot == "" {
		cfg.Spaces.ReceiptRoot = "receipts"
	}
	if cfg.Telegram.PollTimeout == 0 {
		cfg.Telegram.PollTimeout = 60
	}
	for i, id := range cfg.Subscription.Reviewers {
		cfg.Subscription.Reviewers[i] = strings.TrimSpace(id)
	}
}

func (cfg *Config) Validate() error {
	var errs []error

	switch cfg.Bot.Transport {
	case TransportDiscord:
		if cfg.Bot.Token == "" {
			errs = append(errs, errors.New("bot.token is required for the discord transport"))
		}
	case TransportTelegram:
		if cfg.Telegram.Token == "" {
			errs = append(errs, errors.New("telegram.token is required for the telegram transport"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown bot.transport %q", cfg.Bot.Transport))
	}

	switch cfg.Bot.Storage {
	case StoragePostgres, StorageMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown bot.storage %q", cfg.Bot.Storage))
	}

	if cfg.Subscription.GrantDays < 0 {
		errs = append(errs, errors.New("subscription.grant_days must be positive"))
	}
	if len(cfg.Subscription.Reviewers) == 0 {
		errs = append(errs, errors.New("subscription.reviewers must list at least one reviewer id"))
	}

	return errors.Join(errs...)
}
