package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"chat-llm/internal/llm"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort             string   `env:"HTTP_PORT" envDefault:"8080"`
	LLMAPIKey            string   `env:"LLM_API_KEY"`
	LLMBaseURL           string   `env:"LLM_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	LLMModel             string   `env:"LLM_MODEL" envDefault:"llama-3.2-90b-text-preview"`
	LLMTemperature       float64  `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	LLMMaxTokens         int      `env:"LLM_MAX_TOKENS" envDefault:"4096"`
	GoogleClientID       string   `env:"GOOGLE_CLIENT_ID"`
	GoogleUserInfoURL    string   `env:"GOOGLE_USERINFO_URL" envDefault:"https://www.googleapis.com/oauth2/v3/userinfo"`
	GoogleTokenInfoURL   string   `env:"GOOGLE_TOKENINFO_URL" envDefault:"https://oauth2.googleapis.com/tokeninfo"`
	JWTSecret            string   `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int      `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int      `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`
	RedisAddr            string   `env:"REDIS_ADDR"`
	RedisPassword        string   `env:"REDIS_PASSWORD"`
	RedisDB              int      `env:"REDIS_DB" envDefault:"0"`
	CORSOrigins          []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	DefaultSessionTitle  string   `env:"DEFAULT_SESSION_TITLE" envDefault:"New chat"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reporta las credenciales faltantes como *llm.ConfigurationError.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLMAPIKey) == "" {
		return &llm.ConfigurationError{Message: "API key is not configured. Please add LLM_API_KEY to your environment variables."}
	}
	if strings.TrimSpace(c.GoogleClientID) == "" {
		return &llm.ConfigurationError{Message: "Google client ID is not configured. Please add GOOGLE_CLIENT_ID to your environment variables."}
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return &llm.ConfigurationError{Message: "JWT secret is not configured. Please add JWT_SECRET to your environment variables."}
	}
	return nil
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLMinutes) * time.Minute
}
