// Package config provides configuration for the chat gateway.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the gateway configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Provider selection
	Provider string // ollama, openai, openrouter, groq
	Model    string // optional model override

	// Provider credentials / endpoints
	OpenAIAPIKey     string
	OpenRouterAPIKey string
	GroqAPIKey       string
	OllamaBaseURL    string

	// Timeouts
	LocalTimeout  time.Duration // local inference is slow
	HostedTimeout time.Duration

	// Session lifecycle
	SessionMaxAge time.Duration
	ReapInterval  time.Duration

	// Escalation
	EscalationDB string

	// Pricing
	PricingFile string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
// A .env file in the working directory is applied first if present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:         getEnvInt("HTTP_PORT", 8000),
		Provider:         getEnv("AI_PROVIDER", "ollama"),
		Model:            getEnv("AI_MODEL", ""),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		GroqAPIKey:       getEnv("GROQ_API_KEY", ""),
		OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		LocalTimeout:     time.Duration(getEnvInt("LOCAL_TIMEOUT_MS", 120000)) * time.Millisecond,
		HostedTimeout:    time.Duration(getEnvInt("HOSTED_TIMEOUT_MS", 60000)) * time.Millisecond,
		SessionMaxAge:    time.Duration(getEnvInt("SESSION_MAX_AGE_HOURS", 24)) * time.Hour,
		ReapInterval:     time.Duration(getEnvInt("REAP_INTERVAL_MS", 3600000)) * time.Millisecond,
		EscalationDB:     getEnv("ESCALATION_DB", "file:escalations.db?cache=shared&mode=rwc"),
		PricingFile:      getEnv("PRICING_FILE", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
