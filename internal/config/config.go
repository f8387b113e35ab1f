package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env                 string
	HTTPAddr            string
	OrderAPIBaseURL     string
	OrderAPITimeout     time.Duration
	PendingPageSize     int
	BridgePollInterval  time.Duration
	SwipeMinThreshold   float64
	SwipeWidthRatio     float64
	RabbitMQURL         string
	CorsAllowedOrigins  []string
	WSHeartbeatInterval time.Duration
	SessionTTL          time.Duration
}

func Load() Config {
	cfg := Config{
		Env:                 getEnv("APP_ENV", "development"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8087"),
		OrderAPIBaseURL:     getEnv("ORDER_API_BASE_URL", "http://localhost:8086/api"),
		OrderAPITimeout:     getEnvDuration("ORDER_API_TIMEOUT", 8*time.Second),
		PendingPageSize:     getEnvInt("PENDING_PAGE_SIZE", 20),
		BridgePollInterval:  getEnvDuration("BRIDGE_POLL_INTERVAL", 2*time.Second),
		SwipeMinThreshold:   getEnvFloat("SWIPE_MIN_THRESHOLD_PX", 120),
		SwipeWidthRatio:     getEnvFloat("SWIPE_WIDTH_RATIO", 0.35),
		RabbitMQURL:         getEnv("RABBITMQ_URL", ""),
		CorsAllowedOrigins:  splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "")),
		WSHeartbeatInterval: getEnvDuration("WS_HEARTBEAT_INTERVAL", 30*time.Second),
		SessionTTL:          getEnvDuration("SESSION_TTL", 30*time.Minute),
	}

	if cfg.PendingPageSize <= 0 {
		cfg.PendingPageSize = 20
	}
	if cfg.SwipeMinThreshold <= 0 {
		cfg.SwipeMinThreshold = 120
	}
	if cfg.SwipeWidthRatio <= 0 || cfg.SwipeWidthRatio >= 1 {
		cfg.SwipeWidthRatio = 0.35
	}

	return cfg
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
