package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config contains all runtime settings for the voice relay service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	LogLevel string
	LogFile  string

	// Upstream Gemini Live connection.
	GeminiAPIKey   string
	LiveWSBaseURL  string
	LiveModel      string
	RecommendModel string

	// Grace period before a DEGRADED session force-closes when the
	// upstream shutdown warning carries no explicit time budget.
	DegradedGrace time.Duration

	// Upper bound on a single tool handler; the session receive loop is
	// paused while a call batch is handled.
	ToolTimeout time.Duration

	// Optional persona catalog override (YAML).
	PersonaFile string

	// App-generation backend; empty disables the studio tools gracefully.
	StudioBaseURL string

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "voxrelay"),
		AllowAnyOrigin:   false,
		LogLevel:         envOrDefault("APP_LOG_LEVEL", "info"),
		LogFile:          strings.TrimSpace(os.Getenv("APP_LOG_FILE")),
		GeminiAPIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		LiveWSBaseURL:    envOrDefault("GEMINI_LIVE_WS_BASE_URL", "wss://generativelanguage.googleapis.com"),
		LiveModel:        envOrDefault("GEMINI_LIVE_MODEL", "gemini-2.5-flash-native-audio-preview-12-2025"),
		RecommendModel:   envOrDefault("GEMINI_RECOMMEND_MODEL", "gemini-2.0-flash"),
		PersonaFile:      strings.TrimSpace(os.Getenv("APP_PERSONA_FILE")),
		StudioBaseURL:    strings.TrimSpace(os.Getenv("APP_STUDIO_BASE_URL")),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		ShutdownTimeout:  15 * time.Second,
		DegradedGrace:    10 * time.Second,
		ToolTimeout:      5 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.DegradedGrace, err = durationFromEnv("APP_DEGRADED_GRACE", cfg.DegradedGrace)
	if err != nil {
		return Config{}, err
	}
	cfg.ToolTimeout, err = durationFromEnv("APP_TOOL_TIMEOUT", cfg.ToolTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.DegradedGrace <= 0 {
		return Config{}, fmt.Errorf("APP_DEGRADED_GRACE must be positive")
	}
	if cfg.ToolTimeout <= 0 {
		return Config{}, fmt.Errorf("APP_TOOL_TIMEOUT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
