package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"factoryops.app/assistant/core/db"
)

type Config struct {
	OTel    OTelConfig
	Factory FactoryConfig
	Chat    ChatConfig
	LLM     LLMConfig
	Memory  MemoryConfig
	Redis   RedisConfig
	Env     string
	Port    string
	DB      db.Config
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
	Environment    string
	SampleRatio    float64
}

type FactoryConfig struct {
	Name          string
	InventoryFile string // Optional YAML override of machines/shifts
	DataFile      string
	WatchData     bool
}

type ChatConfig struct {
	PerformanceFactor float64 // Constant OEE performance component
	MaxIterations     int
	SanitizerMode     string // "log" or "block"
}

type LLMConfig struct {
	Provider  string // "openai" or "anthropic"
	APIKey    string
	BaseURL   string // Optional: Azure OpenAI / proxies
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type MemoryBackend string

const (
	MemoryBackendInMemory MemoryBackend = "memory"
	MemoryBackendSQLite   MemoryBackend = "sqlite"
	MemoryBackendPostgres MemoryBackend = "postgres"
	MemoryBackendRedis    MemoryBackend = "redis"
)

type MemoryConfig struct {
	Backend    MemoryBackend
	SQLitePath string
}

type RedisConfig struct {
	URL               string
	KeyPrefix         string
	EventStreamPrefix string
	EventStreamMaxLen int64
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeCLI    ServiceType = "cli"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the API server
//   - .env.cli for factoryctl
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("FACTORYOPS_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	env := getEnv("FACTORYOPS_ENV", "development")
	cfg := Config{
		Env:  env,
		Port: getEnv("PORT", "8080"),
		DB: db.Config{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 10),
			MinConns: getEnvInt32("DB_MIN_CONNS", 2),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "factoryops-assistant"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			Environment:    env,
			SampleRatio:    getEnvFloat("OTEL_TRACES_SAMPLE_RATIO", 1.0),
		},
		Factory: FactoryConfig{
			Name:          getEnv("FACTORY_NAME", "Demo Factory"),
			InventoryFile: getEnv("FACTORY_INVENTORY_FILE", ""),
			DataFile:      getEnv("DATA_FILE", "./data/production.json"),
			WatchData:     getEnvBool("DATA_WATCH", true),
		},
		Chat: ChatConfig{
			PerformanceFactor: getEnvFloat("OEE_PERFORMANCE_FACTOR", 0.95),
			MaxIterations:     getEnvInt("CHAT_MAX_ITERATIONS", 6),
			SanitizerMode:     getEnv("CHAT_SANITIZER_MODE", "log"),
		},
		LLM: LLMConfig{
			Provider:  getEnv("CHAT_LLM_PROVIDER", "openai"),
			APIKey:    getEnv("CHAT_LLM_API_KEY", ""),
			BaseURL:   getEnv("CHAT_LLM_BASE_URL", ""),
			Model:     getEnv("CHAT_LLM_MODEL", "gpt-4o"),
			MaxTokens: getEnvInt("CHAT_LLM_MAX_TOKENS", 4096),
			Timeout:   time.Duration(getEnvInt("CHAT_LLM_TIMEOUT_SECONDS", 60)) * time.Second,
		},
		Memory: MemoryConfig{
			Backend:    MemoryBackend(getEnv("MEMORY_BACKEND", string(MemoryBackendInMemory))),
			SQLitePath: getEnv("MEMORY_SQLITE_PATH", "./data/memory.db"),
		},
		Redis: RedisConfig{
			URL:               getEnv("REDIS_URL", ""),
			KeyPrefix:         getEnv("REDIS_KEY_PREFIX", "factoryops:"),
			EventStreamPrefix: getEnv("TURN_EVENT_STREAM_PREFIX", "factoryops:turn:"),
			EventStreamMaxLen: int64(getEnvInt("TURN_EVENT_STREAM_MAXLEN", 500)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that env parsing cannot.
func (c Config) Validate() error {
	if c.Chat.PerformanceFactor <= 0 || c.Chat.PerformanceFactor > 1 {
		return fmt.Errorf("OEE_PERFORMANCE_FACTOR must be in (0, 1], got %v", c.Chat.PerformanceFactor)
	}
	if c.Chat.MaxIterations < 1 {
		return fmt.Errorf("CHAT_MAX_ITERATIONS must be >= 1, got %d", c.Chat.MaxIterations)
	}
	if c.Chat.SanitizerMode != "log" && c.Chat.SanitizerMode != "block" {
		return fmt.Errorf("CHAT_SANITIZER_MODE must be log or block, got %q", c.Chat.SanitizerMode)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("CHAT_LLM_TIMEOUT_SECONDS must be positive")
	}

	switch c.Memory.Backend {
	case MemoryBackendInMemory, MemoryBackendSQLite:
	case MemoryBackendPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required for MEMORY_BACKEND=postgres")
		}
	case MemoryBackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required for MEMORY_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unsupported MEMORY_BACKEND: %s", c.Memory.Backend)
	}

	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && (c.Provider == "openai" || c.Provider == "anthropic")
}

func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
