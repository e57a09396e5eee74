package core

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/datasage-ai/membank-go/pkg/embedder"
	mockEmbedder "github.com/datasage-ai/membank-go/pkg/embedder/mock"
	openaiEmbedder "github.com/datasage-ai/membank-go/pkg/embedder/openai"
	"github.com/datasage-ai/membank-go/pkg/metastore"
	memoryStore "github.com/datasage-ai/membank-go/pkg/metastore/memory"
	mysqlStore "github.com/datasage-ai/membank-go/pkg/metastore/mysql"
	postgresStore "github.com/datasage-ai/membank-go/pkg/metastore/postgres"
	sqliteStore "github.com/datasage-ai/membank-go/pkg/metastore/sqlite"
)

// Config contains the complete configuration for a memory manager.
//
// Example:
//
//	config := &core.Config{
//	    Embedder: core.EmbedderConfig{
//	        Provider:   "openai",
//	        APIKey:     "sk-...",
//	        Dimensions: 1536,
//	    },
//	    Store: core.StoreConfig{
//	        Provider: "sqlite",
//	        Config:   map[string]interface{}{"db_path": "./membank.db"},
//	    },
//	}
type Config struct {
	// Embedder contains embedding provider configuration.
	Embedder EmbedderConfig `json:"embedder"`

	// Store contains metadata store configuration.
	Store StoreConfig `json:"store"`

	// Memory contains scoring and reinforcement defaults (optional).
	Memory *MemoryConfig `json:"memory,omitempty"`
}

// EmbedderConfig contains configuration for the embedding provider.
//
// Supported providers: openai, mock.
type EmbedderConfig struct {
	// Provider is the embedding provider name (openai, mock).
	Provider string `json:"provider"`

	// APIKey is the API key for hosted providers.
	APIKey string `json:"api_key,omitempty"`

	// Model is the embedding model name (optional, provider default if empty).
	Model string `json:"model,omitempty"`

	// BaseURL is the base URL for the API (optional, provider default if empty).
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the dimension of the embedding vectors.
	Dimensions int `json:"dimensions,omitempty"`
}

// StoreConfig contains configuration for the metadata store.
//
// Supported providers: memory, sqlite, postgres, mysql.
type StoreConfig struct {
	// Provider is the store provider name (memory, sqlite, postgres, mysql).
	Provider string `json:"provider"`

	// Config contains provider-specific configuration.
	// For SQLite: db_path, table_name
	// For PostgreSQL: host, port, user, password, db_name, table_name, ssl_mode
	// For MySQL: host, port, user, password, db_name, table_name
	Config map[string]interface{} `json:"config,omitempty"`
}

// MemoryConfig contains scoring and reinforcement defaults.
type MemoryConfig struct {
	// DecayRate is the default per-day relevance decay. Default: 0.01.
	DecayRate float64 `json:"decay_rate,omitempty"`

	// Threshold is the default minimum blended score. Default: 0.5.
	Threshold float64 `json:"threshold,omitempty"`

	// Limit is the default maximum result count. Default: 5.
	Limit int `json:"limit,omitempty"`

	// ReinforceAmount is the default relevance increase on access.
	// Default: 0.1.
	ReinforceAmount float64 `json:"reinforce_amount,omitempty"`

	// EmbedTimeoutSeconds bounds each embedding call. Default: 10.
	EmbedTimeoutSeconds int `json:"embed_timeout_seconds,omitempty"`
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	switch c.Embedder.Provider {
	case "openai":
		if c.Embedder.APIKey == "" {
			return fmt.Errorf("%w: openai embedder requires an api key", ErrInvalidConfig)
		}
	case "mock", "":
	default:
		return fmt.Errorf("%w: unknown embedder provider %q", ErrInvalidConfig, c.Embedder.Provider)
	}

	switch c.Store.Provider {
	case "memory", "":
	case "sqlite":
		if stringValue(c.Store.Config, "db_path") == "" {
			return fmt.Errorf("%w: sqlite store requires db_path", ErrInvalidConfig)
		}
	case "postgres", "mysql":
		for _, key := range []string{"host", "user", "db_name"} {
			if stringValue(c.Store.Config, key) == "" {
				return fmt.Errorf("%w: %s store requires %s", ErrInvalidConfig, c.Store.Provider, key)
			}
		}
	default:
		return fmt.Errorf("%w: unknown store provider %q", ErrInvalidConfig, c.Store.Provider)
	}

	return nil
}

// DefaultConfig returns a configuration that works offline: the mock
// embedder over the in-memory store.
func DefaultConfig() *Config {
	return &Config{
		Embedder: EmbedderConfig{Provider: "mock"},
		Store:    StoreConfig{Provider: "memory"},
	}
}

// LoadConfigFromEnv loads configuration from environment variables,
// reading a .env file first if one is present.
//
// Recognized variables:
//
//	MEMBANK_EMBEDDER_PROVIDER, MEMBANK_EMBEDDER_API_KEY,
//	MEMBANK_EMBEDDER_MODEL, MEMBANK_EMBEDDER_BASE_URL,
//	MEMBANK_EMBEDDER_DIMENSIONS,
//	MEMBANK_STORE_PROVIDER, MEMBANK_STORE_DB_PATH,
//	MEMBANK_STORE_HOST, MEMBANK_STORE_PORT, MEMBANK_STORE_USER,
//	MEMBANK_STORE_PASSWORD, MEMBANK_STORE_DB_NAME,
//	MEMBANK_STORE_TABLE_NAME, MEMBANK_STORE_SSL_MODE
func LoadConfigFromEnv() (*Config, error) {
	// A missing .env file is fine; real environment variables still apply.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if v := os.Getenv("MEMBANK_EMBEDDER_PROVIDER"); v != "" {
		cfg.Embedder.Provider = v
	}
	cfg.Embedder.APIKey = os.Getenv("MEMBANK_EMBEDDER_API_KEY")
	cfg.Embedder.Model = os.Getenv("MEMBANK_EMBEDDER_MODEL")
	cfg.Embedder.BaseURL = os.Getenv("MEMBANK_EMBEDDER_BASE_URL")
	if v := os.Getenv("MEMBANK_EMBEDDER_DIMENSIONS"); v != "" {
		dims, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: MEMBANK_EMBEDDER_DIMENSIONS: %v", ErrInvalidConfig, err)
		}
		cfg.Embedder.Dimensions = dims
	}

	if v := os.Getenv("MEMBANK_STORE_PROVIDER"); v != "" {
		cfg.Store.Provider = v
	}
	storeCfg := map[string]interface{}{}
	for env, key := range map[string]string{
		"MEMBANK_STORE_DB_PATH":    "db_path",
		"MEMBANK_STORE_HOST":       "host",
		"MEMBANK_STORE_USER":       "user",
		"MEMBANK_STORE_PASSWORD":   "password",
		"MEMBANK_STORE_DB_NAME":    "db_name",
		"MEMBANK_STORE_TABLE_NAME": "table_name",
		"MEMBANK_STORE_SSL_MODE":   "ssl_mode",
	} {
		if v := os.Getenv(env); v != "" {
			storeCfg[key] = v
		}
	}
	if v := os.Getenv("MEMBANK_STORE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: MEMBANK_STORE_PORT: %v", ErrInvalidConfig, err)
		}
		storeCfg["port"] = port
	}
	if len(storeCfg) > 0 {
		cfg.Store.Config = storeCfg
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFromFile loads configuration from a JSON file.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewManagerFromConfig builds a Manager with the configured embedding
// provider and metadata store, and rebuilds the vector index from any
// persisted records so SQL-backed deployments resume where they left off.
func NewManagerFromConfig(cfg *Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, err := initEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}

	store, err := initStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	var opts []ManagerOption
	if mc := cfg.Memory; mc != nil {
		defaults := DefaultMemoryDefaults()
		if mc.DecayRate > 0 {
			defaults.DecayRate = mc.DecayRate
		}
		if mc.Threshold > 0 {
			defaults.Threshold = mc.Threshold
		}
		if mc.Limit > 0 {
			defaults.Limit = mc.Limit
		}
		if mc.ReinforceAmount > 0 {
			defaults.ReinforceAmount = mc.ReinforceAmount
		}
		opts = append(opts, WithDefaults(defaults))
		if mc.EmbedTimeoutSeconds > 0 {
			opts = append(opts, WithEmbedTimeout(time.Duration(mc.EmbedTimeoutSeconds)*time.Second))
		}
	}

	manager, err := NewManager(provider, store, opts...)
	if err != nil {
		return nil, err
	}

	if _, err := manager.LoadIndex(context.Background()); err != nil {
		return nil, err
	}
	return manager, nil
}

// initEmbedder initializes the embedding provider.
func initEmbedder(cfg EmbedderConfig) (embedder.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openaiEmbedder.NewClient(&openaiEmbedder.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	case "mock", "":
		return mockEmbedder.NewWithDimensions(cfg.Dimensions), nil
	default:
		return nil, NewMemoryError("initEmbedder", ErrInvalidConfig)
	}
}

// initStore initializes the metadata store backend.
func initStore(cfg StoreConfig) (metastore.Store, error) {
	switch cfg.Provider {
	case "memory", "":
		return memoryStore.New(), nil
	case "sqlite":
		return sqliteStore.NewStore(&sqliteStore.Config{
			DBPath:    stringValue(cfg.Config, "db_path"),
			TableName: stringValue(cfg.Config, "table_name"),
		})
	case "postgres":
		return postgresStore.NewStore(&postgresStore.Config{
			Host:      stringValue(cfg.Config, "host"),
			Port:      intValue(cfg.Config, "port", 5432),
			User:      stringValue(cfg.Config, "user"),
			Password:  stringValue(cfg.Config, "password"),
			DBName:    stringValue(cfg.Config, "db_name"),
			TableName: stringValue(cfg.Config, "table_name"),
			SSLMode:   stringValue(cfg.Config, "ssl_mode"),
		})
	case "mysql":
		return mysqlStore.NewStore(&mysqlStore.Config{
			Host:      stringValue(cfg.Config, "host"),
			Port:      intValue(cfg.Config, "port", 3306),
			User:      stringValue(cfg.Config, "user"),
			Password:  stringValue(cfg.Config, "password"),
			DBName:    stringValue(cfg.Config, "db_name"),
			TableName: stringValue(cfg.Config, "table_name"),
		})
	default:
		return nil, NewMemoryError("initStore", ErrInvalidConfig)
	}
}

func stringValue(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func intValue(m map[string]interface{}, key string, fallback int) int {
	if m == nil {
		return fallback
	}
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
