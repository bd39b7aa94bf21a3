package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the env-derived application configuration. Secrets that vary
// per user (provider API keys) are not here; they live encrypted on the
// user record.
type Config struct {
	Addr      string
	DBPath    string
	JWTSecret string

	LLMProvider string // "gemini" or "openai"
	LLMBaseURL  string
	LLMModel    string

	OrchestratorBatchSize int
	RetryDelay            time.Duration
	MaxRetryPasses        int

	CORSOrigins []string
}

// Load reads configuration from the environment, applying defaults for
// everything except the JWT secret.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:                  getenv("LABFORGE_ADDR", ":8080"),
		DBPath:                getenv("LABFORGE_DB_PATH", "labforge.db"),
		JWTSecret:             os.Getenv("LABFORGE_JWT_SECRET"),
		LLMProvider:           getenv("LABFORGE_LLM_PROVIDER", "gemini"),
		LLMBaseURL:            os.Getenv("LABFORGE_LLM_BASE_URL"),
		LLMModel:              os.Getenv("LABFORGE_LLM_MODEL"),
		OrchestratorBatchSize: getenvInt("LABFORGE_BATCH_SIZE", 3),
		RetryDelay:            getenvDuration("LABFORGE_RETRY_DELAY", 5*time.Second),
		MaxRetryPasses:        getenvInt("LABFORGE_MAX_RETRY_PASSES", 5),
		CORSOrigins: []string{
			getenv("LABFORGE_WEB_ORIGIN", "http://localhost:5173"),
		},
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("LABFORGE_JWT_SECRET is required")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
