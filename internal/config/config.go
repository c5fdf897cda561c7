package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the mindtrack service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	TokenInactivityTTL time.Duration
	AllowGuests        bool

	TurnTimeout       time.Duration
	MemoryTokenBudget int

	AssistantMode      string
	AnthropicAPIKey    string
	AssistantModel     string
	AssistantMaxTokens int

	KnowledgeCorpusPath string

	DatabaseURL      string
	ScoresPath       string
	ConversationPath string
	UsersPath        string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:            envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:    envOrDefault("APP_METRICS_NAMESPACE", "mindtrack"),
		AllowAnyOrigin:      false,
		AllowGuests:         true,
		AssistantMode:       envOrDefault("ASSISTANT_MODE", "auto"),
		AnthropicAPIKey:     stringsTrimSpace("ANTHROPIC_API_KEY"),
		AssistantModel:      stringsTrimSpace("ASSISTANT_MODEL"),
		AssistantMaxTokens:  2048,
		KnowledgeCorpusPath: envOrDefault("KNOWLEDGE_CORPUS_PATH", "data/knowledge.json"),
		DatabaseURL:         stringsTrimSpace("DATABASE_URL"),
		ScoresPath:          envOrDefault("SCORES_PATH", "data/scores.json"),
		ConversationPath:    envOrDefault("CONVERSATION_PATH", "data/conversations.json"),
		UsersPath:           envOrDefault("USERS_PATH", "data/users.yaml"),
		ShutdownTimeout:     15 * time.Second,
		TokenInactivityTTL:  30 * time.Minute,
		TurnTimeout:         60 * time.Second,
		MemoryTokenBudget:   3000,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TokenInactivityTTL, err = durationFromEnv("APP_TOKEN_INACTIVITY_TTL", cfg.TokenInactivityTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.TurnTimeout, err = durationFromEnv("APP_TURN_TIMEOUT", cfg.TurnTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryTokenBudget, err = intFromEnv("MEMORY_TOKEN_BUDGET", cfg.MemoryTokenBudget)
	if err != nil {
		return Config{}, err
	}
	cfg.AssistantMaxTokens, err = intFromEnv("ASSISTANT_MAX_TOKENS", cfg.AssistantMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowGuests, err = boolFromEnv("APP_ALLOW_GUESTS", cfg.AllowGuests)
	if err != nil {
		return Config{}, err
	}

	if cfg.TokenInactivityTTL < 5*time.Second {
		return Config{}, fmt.Errorf("APP_TOKEN_INACTIVITY_TTL must be at least 5s")
	}
	if cfg.TurnTimeout < time.Second {
		return Config{}, fmt.Errorf("APP_TURN_TIMEOUT must be at least 1s")
	}
	if cfg.MemoryTokenBudget < 0 {
		return Config{}, fmt.Errorf("MEMORY_TOKEN_BUDGET must be >= 0")
	}
	if cfg.AssistantMaxTokens <= 0 {
		return Config{}, fmt.Errorf("ASSISTANT_MAX_TOKENS must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return trimSpace(os.Getenv(key))
}

func trimSpace(v string) string {
	for len(v) > 0 && (v[0] == ' ' || v[0] == '\n' || v[0] == '\t' || v[0] == '\r') {
		v = v[1:]
	}
	for len(v) > 0 {
		c := v[len(v)-1]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			v = v[:len(v)-1]
			continue
		}
		break
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
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
