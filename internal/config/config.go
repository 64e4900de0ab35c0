package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	DatabaseURL string
	RedisURL    string

	// CORSOrigins lists browser origins allowed to call the API; "*" allows any
	CORSOrigins []string

	Casdoor CasdoorConfig
	Groq    GroqConfig
	Events  EventsConfig
}

type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

// GroqConfig configures the OpenAI compatible completion endpoint used for AI quizzes.
type GroqConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	Timeout        time.Duration
	Temperature    float64
	MaxTokens      int
	CacheTTL       time.Duration
	StatusSchedule string
}

func (g GroqConfig) Configured() bool {
	return strings.TrimSpace(g.APIKey) != ""
}

type EventsConfig struct {
	KafkaBrokers []string
	TopicPrefix  string
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		CORSOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		Casdoor: CasdoorConfig{
			Endpoint:     getEnv("CASDOOR_ENDPOINT", ""),
			ClientID:     getEnv("CASDOOR_CLIENT_ID", ""),
			ClientSecret: getEnv("CASDOOR_CLIENT_SECRET", ""),
			Cert:         getEnv("CASDOOR_CERT", ""),
			Organization: getEnv("CASDOOR_ORGANIZATION", ""),
			Application:  getEnv("CASDOOR_APPLICATION", ""),
		},
		Groq: GroqConfig{
			APIKey:         getEnv("GROQ_API_KEY", ""),
			Model:          getEnv("GROQ_MODEL", "llama3-70b-8192"),
			BaseURL:        getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			Timeout:        getEnvDuration("GROQ_TIMEOUT", 30*time.Second),
			Temperature:    getEnvFloat("GROQ_TEMPERATURE", 0.7),
			MaxTokens:      getEnvInt("GROQ_MAX_TOKENS", 4000),
			CacheTTL:       getEnvDuration("AI_QUIZ_CACHE_TTL", time.Hour),
			StatusSchedule: getEnv("AI_STATUS_PROBE_SCHEDULE", "@every 15m"),
		},
		Events: EventsConfig{
			KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
			TopicPrefix:  getEnv("EVENTS_TOPIC_PREFIX", "quiz"),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
