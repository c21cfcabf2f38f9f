package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines bot configuration.
type Config struct {
	Telegram    TelegramConfig    `yaml:"telegram"`
	DB          DBConfig          `yaml:"db"`
	Server      ServerConfig      `yaml:"server"`
	Geocode     GeocodeConfig     `yaml:"geocode"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Recap       RecapConfig       `yaml:"recap"`
	Session     SessionConfig     `yaml:"session"`
	Log         LogConfig         `yaml:"log"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`
	// ChannelID is the public channel that receives announcements.
	ChannelID int64 `yaml:"channel_id"`
	// AdminChatID receives recap drafts for approval.
	AdminChatID int64 `yaml:"admin_chat_id"`
	// AllowedUserIDs is the write allow-list; empty means open to all.
	AllowedUserIDs []int64 `yaml:"allowed_user_ids"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type GeocodeConfig struct {
	BaseURL   string   `yaml:"base_url"`
	UserAgent string   `yaml:"user_agent"`
	Timeout   Duration `yaml:"timeout"`
}

type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	// PublicBaseURL is prepended to object keys to form public links.
	PublicBaseURL string `yaml:"public_base_url"`
}

// Enabled reports whether the optional object store is configured.
func (c ObjectStoreConfig) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

type RecapConfig struct {
	// Schedule is a cron expression; empty disables recaps.
	Schedule string `yaml:"schedule"`
}

type SessionConfig struct {
	// IdleTimeout auto-cancels stalled dialogues; zero disables the sweep.
	IdleTimeout Duration `yaml:"idle_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional .env file, an optional YAML
// file and environment variables, in that order of increasing priority.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DB: DBConfig{
			Path: "aidlog.db",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Geocode: GeocodeConfig{
			BaseURL:   "https://nominatim.openstreetmap.org",
			UserAgent: "aidlog/1.0",
			Timeout:   Duration(5 * time.Second),
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path := os.Getenv("AIDLOG_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if token := os.Getenv("AIDLOG_BOT_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if err := overrideInt64(&cfg.Telegram.ChannelID, "AIDLOG_CHANNEL_ID"); err != nil {
		return Config{}, err
	}
	if err := overrideInt64(&cfg.Telegram.AdminChatID, "AIDLOG_ADMIN_CHAT_ID"); err != nil {
		return Config{}, err
	}
	if raw := os.Getenv("AIDLOG_ALLOWED_USER_IDS"); raw != "" {
		ids, err := parseIDList(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AIDLOG_ALLOWED_USER_IDS: %w", err)
		}
		cfg.Telegram.AllowedUserIDs = ids
	}
	if dbPath := os.Getenv("AIDLOG_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if host := os.Getenv("AIDLOG_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("AIDLOG_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AIDLOG_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if baseURL := os.Getenv("AIDLOG_GEOCODE_URL"); baseURL != "" {
		cfg.Geocode.BaseURL = baseURL
	}
	if endpoint := os.Getenv("AIDLOG_S3_ENDPOINT"); endpoint != "" {
		cfg.ObjectStore.Endpoint = endpoint
	}
	if key := os.Getenv("AIDLOG_S3_ACCESS_KEY"); key != "" {
		cfg.ObjectStore.AccessKey = key
	}
	if key := os.Getenv("AIDLOG_S3_SECRET_KEY"); key != "" {
		cfg.ObjectStore.SecretKey = key
	}
	if bucket := os.Getenv("AIDLOG_S3_BUCKET"); bucket != "" {
		cfg.ObjectStore.Bucket = bucket
	}
	if base := os.Getenv("AIDLOG_S3_PUBLIC_URL"); base != "" {
		cfg.ObjectStore.PublicBaseURL = base
	}
	if schedule := os.Getenv("AIDLOG_RECAP_SCHEDULE"); schedule != "" {
		cfg.Recap.Schedule = schedule
	}
	if timeoutStr := os.Getenv("AIDLOG_SESSION_IDLE_TIMEOUT"); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AIDLOG_SESSION_IDLE_TIMEOUT: %w", err)
		}
		cfg.Session.IdleTimeout = Duration(timeout)
	}
	if level := os.Getenv("AIDLOG_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	return cfg, nil
}

// Validate checks required credentials.
func (c Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram bot token is required (AIDLOG_BOT_TOKEN)")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func overrideInt64(dst *int64, key string) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = v
	return nil
}

func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
