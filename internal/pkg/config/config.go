package config

import (
	"fmt"
	"os"
	"strconv"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
}

// LLMConfig drives the optional Gemini tier of the NLU router and the
// reply stylizer. ExpertMode gates the LLM fallback entirely.
type LLMConfig struct {
	GeminiAPIKey string
	Model        string
	ExpertMode   bool
}

// DialogConfig holds boot defaults for the runtime admin switches plus
// the TTS provider endpoint. An empty TTSServiceURL means text-only
// responses.
type DialogConfig struct {
	TTSEnabled        bool
	NavigationEnabled bool
	FallbackMode      string
	TTSServiceURL     string
	TTSVoice          string
}

type Config struct {
	Repositories RepositoriesConfig
	ServerPort   string
	MetricsAddr  string
	LLM          LLMConfig
	Dialog       DialogConfig
}

func Load() (*Config, error) {
	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     getEnvOrDefault("POSTGRES_PORT", "5454"),
				DB:       getEnvOrDefault("POSTGRES_DB", "voice_orders"),
				Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
				Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
				SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
				MaxConns: 30,
				MinConns: 5,
			},
		},
		ServerPort:  getEnvOrDefault("SERVER_PORT", "8091"),
		MetricsAddr: getEnvOrDefault("METRICS_ADDR", ":9092"),
		LLM: LLMConfig{
			GeminiAPIKey: getEnvOrDefault("GEMINI_API_KEY", ""),
			Model:        getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
			ExpertMode:   getEnvBool("EXPERT_MODE", false),
		},
		Dialog: DialogConfig{
			TTSEnabled:        getEnvBool("TTS_ENABLED", true),
			NavigationEnabled: getEnvBool("DIALOG_NAVIGATION_ENABLED", true),
			FallbackMode:      getEnvOrDefault("FALLBACK_MODE", "SMART"),
			TTSServiceURL:     getEnvOrDefault("TTS_SERVICE_URL", ""),
			TTSVoice:          getEnvOrDefault("TTS_VOICE", "pl-PL-Standard-A"),
		},
	}

	if cfg.Repositories.Postgres.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD environment variable is required")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
