// Package config loads and validates the chatgraphd runtime configuration
// from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider kinds supported by chatgraphd.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
)

// Session store backends supported by chatgraphd.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
)

// LLMConfig selects the chat model backing the agents.
type LLMConfig struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// RedisConfig holds Redis session store settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// MongoConfig holds MongoDB session store settings.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// SessionConfig selects and configures the session store backend.
type SessionConfig struct {
	Backend string
	Redis   RedisConfig
	Mongo   MongoConfig
}

// MCPConfig points at an optional MCP tool server. Endpoint takes
// precedence over Command when both are set.
type MCPConfig struct {
	Endpoint string
	Command  string
	Args     []string
}

// Config is the full chatgraphd configuration.
type Config struct {
	Addr           string
	LLM            LLMConfig
	Session        SessionConfig
	PostgresDSN    string
	MCP            MCPConfig
	RunTimeout     time.Duration
	TelemetryOff   bool
	ServiceVersion string
	Environment    string
}

// Load reads the configuration from environment variables, applying
// defaults for everything except the provider API key.
func Load() *Config {
	cfg := &Config{
		Addr: getEnv("CHATGRAPH_ADDR", ":8000"),
		LLM: LLMConfig{
			Provider:    strings.ToLower(getEnv("CHATGRAPH_PROVIDER", ProviderGemini)),
			Model:       os.Getenv("CHATGRAPH_MODEL"),
			Temperature: getEnvFloat("CHATGRAPH_TEMPERATURE", 0.7),
			MaxTokens:   getEnvInt("CHATGRAPH_MAX_TOKENS", 2048),
		},
		Session: SessionConfig{
			Backend: strings.ToLower(getEnv("CHATGRAPH_SESSION_STORE", StoreMemory)),
			Redis: RedisConfig{
				Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
				Password: os.Getenv("REDIS_PASSWORD"),
				DB:       getEnvInt("REDIS_DB", 0),
				Prefix:   getEnv("REDIS_PREFIX", "chatgraph:session:"),
				TTL:      getEnvDuration("REDIS_TTL", 24*time.Hour),
			},
			Mongo: MongoConfig{
				URI:        getEnv("MONGODB_URI", "mongodb://localhost:27017"),
				Database:   getEnv("MONGODB_DB", "chatgraph"),
				Collection: getEnv("MONGODB_COLLECTION", "sessions"),
			},
		},
		PostgresDSN: os.Getenv("DATABASE_URL"),
		MCP: MCPConfig{
			Endpoint: os.Getenv("MCP_ENDPOINT"),
			Command:  os.Getenv("MCP_COMMAND"),
			Args:     splitArgs(os.Getenv("MCP_ARGS")),
		},
		RunTimeout:     getEnvDuration("CHATGRAPH_RUN_TIMEOUT", 2*time.Minute),
		TelemetryOff:   getEnvBool("CHATGRAPH_TELEMETRY_DISABLED", false),
		ServiceVersion: os.Getenv("CHATGRAPH_VERSION"),
		Environment:    getEnv("CHATGRAPH_ENV", "development"),
	}

	cfg.LLM.APIKey = apiKeyFor(cfg.LLM.Provider)
	return cfg
}

// Validate checks that the loaded configuration is usable.
func (c *Config) Validate() error {
	v := NewValidator()
	v.RequireNonEmpty("addr", c.Addr).
		ValidateOneOf("provider", c.LLM.Provider, ProviderGemini, ProviderOpenAI, ProviderClaude).
		ValidateOneOf("session_store", c.Session.Backend, StoreMemory, StoreRedis, StoreMongo)
	if err := v.Error(); err != nil {
		return err
	}

	model := c.LLM.Model
	if model == "" {
		// Providers pick their own default model.
		model = "default"
	}
	if err := ValidateLLMConfig(c.LLM.APIKey, model, c.LLM.Temperature, c.LLM.MaxTokens); err != nil {
		return err
	}

	switch c.Session.Backend {
	case StoreRedis:
		return ValidateRedisConfig(c.Session.Redis.Addr, c.Session.Redis.DB, c.Session.Redis.Prefix)
	case StoreMongo:
		return ValidateMongoConfig(c.Session.Mongo.URI, c.Session.Mongo.Database, c.Session.Mongo.Collection)
	}
	return nil
}

func apiKeyFor(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderClaude:
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return os.Getenv("GOOGLE_API_KEY")
	}
}

func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Fields(s)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
