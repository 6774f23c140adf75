// Package config loads the process configuration once from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/WessleyAI/tourvec/pkg/embedding"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreQdrant   = "qdrant"
	StorePGVector = "pgvector"
	StoreMemory   = "memory"
)

// Config holds all environment-based configuration. It is built once by Load
// and never mutated afterwards.
type Config struct {
	Store       string
	QdrantURL   string
	PostgresURL string
	Collection  string

	Embedding embedding.Config
	EmbedDims int
	EmbedRPS  float64

	DatasetPath string
	Location    *time.Location

	Port       string
	CORSOrigin string
	NATSURL    string

	LogLevel  slog.Level
	LogFormat string
}

// Load reads the environment. Variables already set win over the .env file
// at envFile; a missing envFile is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read %s: %w", envFile, err)
		}
	}

	provider := envOr("EMBED_PROVIDER", embedding.ProviderAzure)
	cfg := Config{
		Store:       envOr("TOURVEC_STORE", StoreQdrant),
		QdrantURL:   envOr("QDRANT_URL", "localhost:6334"),
		PostgresURL: os.Getenv("POSTGRES_URL"),
		Collection:  envOr("COLLECTION", "TRAVEL"),
		Embedding: embedding.Config{
			Provider:   provider,
			Model:      envOr("EMBED_MODEL", defaultModel(provider)),
			APIKey:     apiKey(provider),
			Endpoint:   os.Getenv("AZURE_OPENAI_ENDPOINT"),
			APIVersion: envOr("AZURE_OPENAI_API_VERSION", "2023-05-15"),
			Deployment: os.Getenv("AZURE_OPENAI_DEPLOYMENT"),
			BaseURL:    envOr("OLLAMA_URL", "http://localhost:11434"),
		},
		DatasetPath: envOr("DATASET_PATH", "COA_OpenData.csv"),
		Port:        envOr("PORT", "8080"),
		CORSOrigin:  envOr("CORS_ORIGIN", "*"),
		NATSURL:     os.Getenv("NATS_URL"),
		LogFormat:   envOr("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.EmbedDims, err = intOr("EMBED_DIMS", defaultDims(provider)); err != nil {
		return Config{}, err
	}
	if cfg.EmbedRPS, err = floatOr("EMBED_RPS", 0); err != nil {
		return Config{}, err
	}
	if cfg.Location, err = location(os.Getenv("TIMEZONE")); err != nil {
		return Config{}, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(envOr("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports configuration that cannot work.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreQdrant, StoreMemory:
	case StorePGVector:
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("POSTGRES_URL is required for the pgvector store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TOURVEC_STORE %q", c.Store))
	}
	switch c.Embedding.Provider {
	case embedding.ProviderAzure:
		if c.Embedding.Endpoint == "" {
			errs = append(errs, errors.New("AZURE_OPENAI_ENDPOINT is required for the azure provider"))
		}
		if c.Embedding.APIKey == "" {
			errs = append(errs, errors.New("AZURE_OPENAI_API_KEY is required for the azure provider"))
		}
	case embedding.ProviderOpenAI, embedding.ProviderGemini:
		if c.Embedding.APIKey == "" {
			errs = append(errs, fmt.Errorf("an API key is required for the %s provider", c.Embedding.Provider))
		}
	case embedding.ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("unknown EMBED_PROVIDER %q", c.Embedding.Provider))
	}
	if c.EmbedDims <= 0 {
		errs = append(errs, errors.New("EMBED_DIMS must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// BackendAddr is the address handed to the configured store: the
// PostgreSQL DSN for pgvector, the Qdrant gRPC address otherwise.
func (c Config) BackendAddr() string {
	if c.Store == StorePGVector {
		return c.PostgresURL
	}
	return c.QdrantURL
}

// Logger builds the process logger: JSON for servers, text for terminals.
func (c Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func floatOr(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

// location resolves TIMEZONE; empty or "Local" means the host zone.
func location(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("config: TIMEZONE: %w", err)
	}
	return loc, nil
}

func apiKey(provider string) string {
	switch provider {
	case embedding.ProviderAzure:
		return os.Getenv("AZURE_OPENAI_API_KEY")
	case embedding.ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case embedding.ProviderGemini:
		return os.Getenv("GEMINI_API_KEY")
	}
	return ""
}

func defaultModel(provider string) string {
	switch provider {
	case embedding.ProviderOllama:
		return "nomic-embed-text"
	case embedding.ProviderGemini:
		return "text-embedding-004"
	}
	return "text-embedding-ada-002"
}

func defaultDims(provider string) int {
	switch provider {
	case embedding.ProviderOllama, embedding.ProviderGemini:
		return 768
	}
	return 1536
}
