package kinobot

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "debug"
format = "json"

[bot]
token = "file-token"

[db]
host = "localhost"
port = 5432
database = "kinobot"

[subscription]
reviewers = ["111", " 222 "]
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Log.Level != slog.LevelDebug {
		t.Errorf("log level = %v, want debug", cfg.Log.Level)
	}
	if cfg.Bot.Transport != TransportDiscord || cfg.Bot.Storage != StoragePostgres {
		t.Errorf("defaults = %s/%s, want discord/postgres", cfg.Bot.Transport, cfg.Bot.Storage)
	}
	if got := cfg.Subscription.Grant(); got != 30*24*time.Hour {
		t.Errorf("grant = %v, want 720h", got)
	}
	if cfg.Subscription.SweepSchedule != "@daily" {
		t.Errorf("sweep schedule = %q, want @daily", cfg.Subscription.SweepSchedule)
	}
	if strings.Join(cfg.Subscription.Reviewers, ",") != "111,222" {
		t.Errorf("reviewers = %v, want [111 222]", cfg.Subscription.Reviewers)
	}
	if cfg.Spaces.Enabled() {
		t.Errorf("spaces enabled without credentials")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("KINOBOT_BOT_TOKEN", "env-token")
	t.Setenv("KINOBOT_DB_PASSWORD", "secret")
	t.Setenv("KINOBOT_REVIEWERS", "7,8")

	path := writeConfig(t, `
[bot]
token = "file-token"

[subscription]
reviewers = ["1"]
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Bot.Token != "env-token" {
		t.Errorf("token = %q, want env-token", cfg.Bot.Token)
	}
	if cfg.DB.Password != "secret" {
		t.Errorf("db password = %q, want secret", cfg.DB.Password)
	}
	if strings.Join(cfg.Subscription.Reviewers, ",") != "7,8" {
		t.Errorf("reviewers = %v, want [7 8]", cfg.Subscription.Reviewers)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "Valid discord",
			cfg: Config{
				Bot:          BotConfig{Transport: TransportDiscord, Storage: StorageMemory, Token: "t"},
				Subscription: SubscriptionConfig{GrantDays: 30, Reviewers: []string{"1"}},
			},
		},
		{
			name: "Telegram without token",
			cfg: Config{
				Bot:          BotConfig{Transport: TransportTelegram, Storage: StoragePostgres},
				Subscription: SubscriptionConfig{GrantDays: 30, Reviewers: []string{"1"}},
			},
			wantErr: "telegram.token",
		},
		{
			name: "No reviewers",
			cfg: Config{
				Bot:          BotConfig{Transport: TransportDiscord, Storage: StoragePostgres, Token: "t"},
				Subscription: SubscriptionConfig{GrantDays: 30},
			},
			wantErr: "reviewers",
		},
		{
			name: "Unknown storage",
			cfg: Config{
				Bot:          BotConfig{Transport: TransportDiscord, Storage: "sqlite", Token: "t"},
				Subscription: SubscriptionConfig{GrantDays: 30, Reviewers: []string{"1"}},
			},
			wantErr: "bot.storage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
