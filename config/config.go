package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Realtime RealtimeConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	ShutdownTimeout    int
	CORSAllowedOrigins string   // comma-separated, or "*" for all
	WSAllowedOrigins   []string // empty = accept any origin
}

// RealtimeConfig holds the live-session hub settings.
type RealtimeConfig struct {
	AnnounceInterval time.Duration
	SweepInterval    time.Duration
	IdleTimeout      time.Duration
	ChatLogCapacity  int
	ReplyMinDelay    time.Duration
	ReplyMaxDelay    time.Duration
	MaxMessageBytes  int64
}

// LogConfig selects the zap level.
type LogConfig struct {
	Level string
}

// Addr returns the host:port the HTTP server binds to.
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env

	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("HOST", "localhost"),
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 15),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 15),
			ShutdownTimeout:    getEnvInt("SHUTDOWN_TIMEOUT_SEC", 10),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			WSAllowedOrigins:   splitTrim(getEnv("WS_ALLOWED_ORIGINS", ""), ","),
		},
		Realtime: RealtimeConfig{
			AnnounceInterval: time.Duration(getEnvInt("ANNOUNCE_INTERVAL_SEC", 60)) * time.Second,
			SweepInterval:    time.Duration(getEnvInt("SWEEP_INTERVAL_SEC", 60)) * time.Second,
			IdleTimeout:      time.Duration(getEnvInt("IDLE_TIMEOUT_SEC", 300)) * time.Second,
			ChatLogCapacity:  getEnvInt("CHAT_LOG_CAPACITY", 100),
			ReplyMinDelay:    time.Duration(getEnvInt("REPLY_MIN_DELAY_MS", 2000)) * time.Millisecond,
			ReplyMaxDelay:    time.Duration(getEnvInt("REPLY_MAX_DELAY_MS", 5000)) * time.Millisecond,
			MaxMessageBytes:  int64(getEnvInt("MAX_MESSAGE_BYTES", 65536)),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the hub cannot run with.
func (c *Config) Validate() error {
	r := c.Realtime
	switch {
	case r.AnnounceInterval <= 0:
		return fmt.Errorf("config: ANNOUNCE_INTERVAL_SEC must be positive")
	case r.SweepInterval <= 0:
		return fmt.Errorf("config: SWEEP_INTERVAL_SEC must be positive")
	case r.IdleTimeout <= 0:
		return fmt.Errorf("config: IDLE_TIMEOUT_SEC must be positive")
	case r.ChatLogCapacity <= 0:
		return fmt.Errorf("config: CHAT_LOG_CAPACITY must be positive")
	case r.ReplyMinDelay < 0 || r.ReplyMaxDelay < r.ReplyMinDelay:
		return fmt.Errorf("config: reply delay window %s..%s is invalid", r.ReplyMinDelay, r.ReplyMaxDelay)
	case r.MaxMessageBytes <= 0:
		return fmt.Errorf("config: MAX_MESSAGE_BYTES must be positive")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("config: invalid PORT %q: %w", c.Server.Port, err)
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
