// Package config loads bot configuration from environment variables.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Version is set at build time via -ldflags.
var Version = "dev"

type Config struct {
	// Telegram
	BotToken  string
	ChannelID int64
	AdminID   int64

	// Store backend: "firebase" or "mongo"
	StoreBackend string
	// Firebase Realtime Database base URL, e.g. https://x.firebaseio.com
	FirebaseDBURL string
	// Optional auth token appended to Firebase REST calls
	FirebaseAuth string
	MongoURI     string

	// TMDB; empty disables the metadata/suggestion source
	TMDBAPIKey string

	// Web server
	Port             int
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	ShutdownTimeout  time.Duration

	// Search / delivery behavior
	ResultsPerPage int
	DeleteDelay    time.Duration
	SweepInterval  time.Duration
	SessionTTL     time.Duration
	SessionMax     int

	// Logging
	LogLevel  slog.Level
	LogFormat string
}

// Load reads the configuration from the environment. It returns an error
// when a required variable is missing or a value does not parse.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.BotToken = strings.TrimSpace(os.Getenv("BOT_TOKEN"))
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN: required environment variable is not set")
	}

	cfg.ChannelID, err = getEnvInt64("CHANNEL_ID", 0)
	if err != nil {
		return nil, fmt.Errorf("CHANNEL_ID: %w", err)
	}
	cfg.AdminID, err = getEnvInt64("ADMIN_ID", 0)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_ID: %w", err)
	}

	cfg.StoreBackend = strings.ToLower(getEnvDefault("STORE_BACKEND", "firebase"))
	switch cfg.StoreBackend {
	case "firebase":
		cfg.FirebaseDBURL = strings.TrimRight(strings.TrimSpace(os.Getenv("DB_URL")), "/")
		if cfg.FirebaseDBURL == "" {
			return nil, fmt.Errorf("DB_URL: required when STORE_BACKEND=firebase")
		}
		cfg.FirebaseAuth = strings.TrimSpace(os.Getenv("FIREBASE_AUTH"))
	case "mongo":
		cfg.MongoURI = strings.TrimSpace(os.Getenv("MONGODB_URI"))
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGODB_URI: required when STORE_BACKEND=mongo")
		}
	default:
		return nil, fmt.Errorf("STORE_BACKEND: unknown backend %q, expected firebase or mongo", cfg.StoreBackend)
	}

	cfg.TMDBAPIKey = strings.TrimSpace(os.Getenv("TMDB_API_KEY"))

	cfg.Port, err = getEnvInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("PORT: %w", err)
	}
	cfg.HTTPReadTimeout, err = getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("HTTP_IDLE_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
	}

	cfg.ResultsPerPage, err = getEnvInt("RESULTS_PER_PAGE", 10)
	if err != nil {
		return nil, fmt.Errorf("RESULTS_PER_PAGE: %w", err)
	}
	if cfg.ResultsPerPage < 1 {
		return nil, fmt.Errorf("RESULTS_PER_PAGE: must be >= 1")
	}
	cfg.DeleteDelay, err = getEnvDuration("DELETE_DELAY", 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DELETE_DELAY: %w", err)
	}
	cfg.SweepInterval, err = getEnvDuration("SWEEP_INTERVAL", 20*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SWEEP_INTERVAL: %w", err)
	}
	cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}
	cfg.SessionMax, err = getEnvInt("SESSION_MAX", 1000)
	if err != nil {
		return nil, fmt.Errorf("SESSION_MAX: %w", err)
	}

	level := getEnvDefault("LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(level)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.LogFormat = getEnvDefault("LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("LOG_FORMAT: unknown format %q, expected json or text", cfg.LogFormat)
	}

	return cfg, nil
}

// SetupLogger builds the process-wide slog logger from the configuration.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// LoadDotEnv reads KEY=VALUE pairs from path into the environment for local
// runs. Variables already set in the environment win.
func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if strings.HasPrefix(k, "export ") {
			k = strings.TrimSpace(strings.TrimPrefix(k, "export "))
		}
		v = strings.Trim(strings.TrimSpace(v), "\"'")
		if k == "" || os.Getenv(k) != "" {
			continue
		}
		_ = os.Setenv(k, v)
	}
	return scanner.Err()
}

func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %q", val)
	}
	return n, nil
}

func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %q", val)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q (use Go format: 30s, 15m, 1h)", val)
	}
	return d, nil
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown level %q, expected debug, info, warn or error", level)
	}
}
