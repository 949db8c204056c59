package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OllamaURL     string
	OllamaAPI     string
	OllamaTimeout time.Duration
	DefaultModel  string
	DefaultPrompt string

	PollInterval time.Duration
	DedupeTTL    time.Duration

	RunPodGetJobURL     string
	RunPodPostOutputURL string
	RunPodAPIKey        string
	RunPodPodID         string

	LogLevel  string
	LogFormat string
}

// LoadConfig reads envFile (if it exists) into the process environment and
// builds the config from it. A missing env file is not an error.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		OllamaURL:           getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaAPI:           getEnv("OLLAMA_API", "generate"),
		DefaultModel:        getEnv("DEFAULT_MODEL", "hf.co/unsloth/QwQ-32B-GGUF:Q4_K_M"),
		DefaultPrompt:       getEnv("DEFAULT_PROMPT", "Hello, how are you?"),
		RunPodGetJobURL:     getEnv("RUNPOD_WEBHOOK_GET_JOB", ""),
		RunPodPostOutputURL: getEnv("RUNPOD_WEBHOOK_POST_OUTPUT", ""),
		RunPodAPIKey:        getEnv("RUNPOD_AI_API_KEY", ""),
		RunPodPodID:         getEnv("RUNPOD_POD_ID", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.OllamaTimeout, err = getDuration("OLLAMA_TIMEOUT", "0"); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = getDuration("POLL_INTERVAL", "1s"); err != nil {
		return nil, err
	}
	if cfg.DedupeTTL, err = getDuration("DEDUPE_TTL", "10m"); err != nil {
		return nil, err
	}

	if cfg.PollInterval == 0 {
		return nil, fmt.Errorf("invalid POLL_INTERVAL: must be positive")
	}

	switch cfg.OllamaAPI {
	case "generate", "openai":
	default:
		return nil, fmt.Errorf("invalid OLLAMA_API %q: must be generate or openai", cfg.OllamaAPI)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, raw)
	}
	return d, nil
}
