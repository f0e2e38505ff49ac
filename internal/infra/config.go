package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	RenderBaseURL    string
	RenderAPIToken   string
	PromptMaxChars   int
	PromptStyle      string
	PollInterval     time.Duration
	ProgressTick     time.Duration
	MaxWait          time.Duration
	StoragePath      string
	GeoIPDBPath      string
	AllowedOrigins   []string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// defaultPromptStyle is appended to every submitted prompt so the gallery
// keeps a consistent look across generations.
const defaultPromptStyle = "digital illustration, vivid colors, high detail"

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RenderBaseURL:    os.Getenv("RENDER_BASE_URL"),
		RenderAPIToken:   os.Getenv("RENDER_API_TOKEN"),
		PromptMaxChars:   getEnvInt("PROMPT_MAX_CHARS", 2000),
		PromptStyle:      getEnv("PROMPT_STYLE", defaultPromptStyle),
		PollInterval:     getEnvDuration("GENERATE_POLL_INTERVAL", 2*time.Second),
		ProgressTick:     getEnvDuration("GENERATE_PROGRESS_TICK", 750*time.Millisecond),
		MaxWait:          getEnvDuration("GENERATE_MAX_WAIT", 10*time.Minute),
		StoragePath:      getEnv("STORAGE_PATH", "./storage"),
		GeoIPDBPath:      os.Getenv("GEOIP_DB_PATH"),
		AllowedOrigins:   getEnvList("CORS_ALLOWED_ORIGINS", nil),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.RenderBaseURL == "" {
		return nil, fmt.Errorf("RENDER_BASE_URL is required")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("GENERATE_POLL_INTERVAL must be positive")
	}
	if cfg.ProgressTick <= 0 {
		return nil, fmt.Errorf("GENERATE_PROGRESS_TICK must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
