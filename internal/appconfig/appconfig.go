// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. WIKIQA_TOP_K.
	EnvPrefix = "WIKIQA"

	BackendFlat      = "flat"
	BackendSQLiteVec = "sqlite-vec"

	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// Config represents the fully merged application configuration.
type Config struct {
	Corpus          string     `mapstructure:"corpus"`
	CheckpointDir   string     `mapstructure:"checkpoint_dir"`
	DB              string     `mapstructure:"db"`
	Backend         string     `mapstructure:"backend"`
	BatchSize       int        `mapstructure:"batch_size"`
	CheckpointEvery int        `mapstructure:"checkpoint_every"`
	TopK            int        `mapstructure:"top_k"`
	ChunkWords      int        `mapstructure:"chunk_words"`
	Embedding       Embedding  `mapstructure:"embedding"`
	Generation      Generation `mapstructure:"generation"`
	LogFile         string     `mapstructure:"log_file"`
	Debug           bool       `mapstructure:"debug"`
}

// Embedding selects the embedding backend.
type Embedding struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	URL      string `mapstructure:"url"`
	APIKey   string `mapstructure:"api_key"`
	// Dimension fixes the vector length; 0 probes the model.
	Dimension int `mapstructure:"dimension"`
}

// Generation selects the answer-generation backend.
type Generation struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	URL       string `mapstructure:"url"`
	APIKey    string `mapstructure:"api_key"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("corpus", "wiki_chunks.csv")
	v.SetDefault("checkpoint_dir", "checkpoints")
	v.SetDefault("db", "wikiqa.db")
	v.SetDefault("backend", BackendFlat)
	v.SetDefault("batch_size", 32)
	v.SetDefault("checkpoint_every", 10000)
	v.SetDefault("top_k", 10)
	v.SetDefault("chunk_words", 250)
	v.SetDefault("embedding.provider", ProviderOllama)
	v.SetDefault("embedding.model", "nomic-embed-text")
	v.SetDefault("embedding.url", "http://localhost:11434")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.dimension", 0)
	v.SetDefault("generation.provider", ProviderOllama)
	v.SetDefault("generation.model", "qwen3:8b")
	v.SetDefault("generation.url", "http://localhost:11434")
	v.SetDefault("generation.api_key", "")
	v.SetDefault("generation.max_tokens", 128)
	v.SetDefault("log_file", "")
	v.SetDefault("debug", false)
}

// BindEnv makes WIKIQA_* variables override config file values. Nested keys
// use underscores: WIKIQA_EMBEDDING_MODEL.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ReadFile reads the config file set on v, if any. A missing file is fine
// when the path was not given explicitly.
func ReadFile(v *viper.Viper, explicit bool) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// Load materializes v into a Config and validates it. API keys fall back to
// OPENAI_API_KEY.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no command can run with.
func (c Config) Validate() error {
	var errs []error
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch_size must be positive, got %d", c.BatchSize))
	}
	if c.CheckpointEvery <= 0 {
		errs = append(errs, fmt.Errorf("checkpoint_every must be positive, got %d", c.CheckpointEvery))
	}
	if c.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top_k must be positive, got %d", c.TopK))
	}
	if c.ChunkWords <= 0 {
		errs = append(errs, fmt.Errorf("chunk_words must be positive, got %d", c.ChunkWords))
	}
	if c.Embedding.Dimension < 0 {
		errs = append(errs, fmt.Errorf("embedding.dimension must not be negative, got %d", c.Embedding.Dimension))
	}
	switch c.Backend {
	case BackendFlat, BackendSQLiteVec:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendFlat, BackendSQLiteVec))
	}
	switch c.Embedding.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderHash:
	default:
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider))
	}
	switch c.Generation.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown generation provider %q", c.Generation.Provider))
	}
	return errors.Join(errs...)
}
