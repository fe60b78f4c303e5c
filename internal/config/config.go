package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"streakly/internal/crypto"
	"streakly/internal/history"
)

type Config struct {
	Port          string
	DatabaseURL   string
	JWTSecret     []byte
	EncryptionKey []byte
	BlindIndexKey []byte
	HistoryTTL    time.Duration
	SessionIdle   time.Duration
	Location      *time.Location
	RedisURL      string
	Env           string
	LogLevel      string
	LogFile       string
}

func (c Config) Development() bool { return c.Env == "development" }

// Load reads the configuration from the environment, after loading a .env
// file when one is present.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from lookup, reporting the first invalid variable.
func FromEnv(lookup func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := lookup(key); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Port:        get("PORT", "8080"),
		DatabaseURL: get("DATABASE_URL", "sqlite:streakly.db"),
		RedisURL:    lookup("REDIS_URL"),
		Env:         get("APP_ENV", "production"),
		LogLevel:    get("LOG_LEVEL", "info"),
		LogFile:     lookup("LOG_FILE"),
	}

	secret := lookup("JWT_SECRET")
	if secret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	cfg.JWTSecret = []byte(secret)

	var err error
	if cfg.EncryptionKey, err = crypto.DecodeKey(lookup("ENCRYPTION_KEY")); err != nil {
		return Config{}, fmt.Errorf("ENCRYPTION_KEY: %w", err)
	}
	if cfg.BlindIndexKey, err = crypto.DecodeKey(lookup("BLIND_INDEX_KEY")); err != nil {
		return Config{}, fmt.Errorf("BLIND_INDEX_KEY: %w", err)
	}

	if cfg.HistoryTTL, err = time.ParseDuration(get("HISTORY_TTL", history.DefaultTTL.String())); err != nil || cfg.HistoryTTL <= 0 {
		return Config{}, fmt.Errorf("HISTORY_TTL: expected a positive duration such as 5m")
	}
	if cfg.SessionIdle, err = time.ParseDuration(get("SESSION_IDLE", history.DefaultIdle.String())); err != nil || cfg.SessionIdle <= 0 {
		return Config{}, fmt.Errorf("SESSION_IDLE: expected a positive duration such as 12h")
	}
	if cfg.Location, err = time.LoadLocation(get("TIMEZONE", "UTC")); err != nil {
		return Config{}, fmt.Errorf("TIMEZONE: %w", err)
	}
	return cfg, nil
}
