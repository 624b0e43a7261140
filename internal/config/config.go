package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for MedCare.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Reminders RemindersConfig `mapstructure:"reminders"`
	Channels  ChannelsConfig  `mapstructure:"channels"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address      string   `mapstructure:"address"`
	Port         int      `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout"`
	WriteTimeout int      `mapstructure:"write_timeout"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
	BadgerPath string `mapstructure:"badger_path"`
}

// RemindersConfig holds reminder scheduler settings.
type RemindersConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	TickSeconds      int    `mapstructure:"tick_seconds"`
	GraceMinutes     int    `mapstructure:"grace_minutes"`
	DailySummary     bool   `mapstructure:"daily_summary"`
	DailySummaryTime string `mapstructure:"daily_summary_time"` // HH:MM
}

// ChannelsConfig holds caregiver notification channel settings.
type ChannelsConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Discord  DiscordConfig  `mapstructure:"discord"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// DiscordConfig holds Discord bot settings.
type DiscordConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Token     string `mapstructure:"token"`
	ChannelID string `mapstructure:"channel_id"`
}

// NotifyConfig bounds outbound notification delivery.
type NotifyConfig struct {
	RatePerMinute int `mapstructure:"rate_per_minute"`
	Burst         int `mapstructure:"burst"`
}

// TickInterval returns the scheduler tick period.
func (c *RemindersConfig) TickInterval() time.Duration {
	return time.Duration(c.TickSeconds) * time.Second
}

// GracePeriod returns the escalation delay after an unacknowledged reminder.
func (c *RemindersConfig) GracePeriod() time.Duration {
	return time.Duration(c.GraceMinutes) * time.Minute
}

// Load loads configuration from file, env, and defaults.
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.Set("storage.sqlite_path", filepath.Join(dataDir, "medcare.db"))
	v.Set("storage.badger_path", filepath.Join(dataDir, "badger"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "medcare.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (MEDCARE_SERVER_PORT, MEDCARE_CHANNELS_TELEGRAM_BOT_TOKEN, etc.)
	v.SetEnvPrefix("MEDCARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("reminders.enabled", true)
	v.SetDefault("reminders.tick_seconds", 60)
	v.SetDefault("reminders.grace_minutes", 30)
	v.SetDefault("reminders.daily_summary", false)
	v.SetDefault("reminders.daily_summary_time", "20:00")

	v.SetDefault("notify.rate_per_minute", 30)
	v.SetDefault("notify.burst", 10)
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "medcare")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "medcare")
}

// loadEnvOverrides loads secrets that Viper's AutomaticEnv misses for nested
// structs that were never set in a file.
func loadEnvOverrides(cfg *Config) {
	getEnv := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	if token := ResolveEnvWithAliases("MEDCARE_CHANNELS_TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Channels.Telegram.BotToken = token
	}
	if chatID := os.Getenv("MEDCARE_CHANNELS_TELEGRAM_CHAT_ID"); chatID != "" {
		if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
			cfg.Channels.Telegram.ChatID = id
		}
	}
	if token := ResolveEnvWithAliases("MEDCARE_CHANNELS_DISCORD_TOKEN"); token != "" {
		cfg.Channels.Discord.Token = token
	}
	cfg.Channels.Discord.ChannelID = getEnv("MEDCARE_CHANNELS_DISCORD_CHANNEL_ID", cfg.Channels.Discord.ChannelID)

	cfg.Server.Address = getEnv("MEDCARE_SERVER_ADDRESS", cfg.Server.Address)
	if port := os.Getenv("MEDCARE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	cfg.Storage.DataDir = getEnv("MEDCARE_STORAGE_DATA_DIR", cfg.Storage.DataDir)
}

func validate(cfg *Config) error {
	if cfg.Reminders.TickSeconds <= 0 {
		return fmt.Errorf("reminders.tick_seconds must be positive")
	}
	if cfg.Reminders.GraceMinutes <= 0 {
		return fmt.Errorf("reminders.grace_minutes must be positive")
	}
	if cfg.Reminders.DailySummary {
		if _, err := time.Parse("15:04", cfg.Reminders.DailySummaryTime); err != nil {
			return fmt.Errorf("reminders.daily_summary_time must be HH:MM: %w", err)
		}
	}
	if cfg.Notify.RatePerMinute <= 0 {
		return fmt.Errorf("notify.rate_per_minute must be positive")
	}
	if cfg.Notify.Burst <= 0 {
		return fmt.Errorf("notify.burst must be positive")
	}
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.BotToken == "" {
		return fmt.Errorf("channels.telegram.bot_token is required when telegram is enabled")
	}
	if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token == "" {
		return fmt.Errorf("channels.discord.token is required when discord is enabled")
	}
	return nil
}
