package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"kbchat/internal/textseg"
	"kbchat/internal/vecmath"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel  slog.Level
	LogFormat string

	LLMBaseURL         string
	LLMModelName       string
	LLMAPIKey          string
	EmbeddingBaseURL   string
	EmbeddingModelName string

	DBPath           string
	QdrantURL        string
	QdrantCollection string
	QdrantVectorSize int
	APIPort          string

	// Chunking.
	PoolingStrategy  vecmath.PoolingStrategy
	MaxSegmentTokens int
	EmbedBatchSize   int
	MinQualityScore  int

	// Retrieval and routing.
	RetrieveLimit       int
	RerankTopK          int
	ChitchatThreshold   float32
	OutOfScopeThreshold float32
	ReverifyThreshold   float32
	DeclineThreshold    float32
}

// Load reads configuration from environment variables and returns a Config
// struct. It applies defaults for optional fields and validates required
// fields. If a .env file exists in the current directory or project root,
// it will be loaded automatically. Environment variables already set take
// precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up to find a .env at the project root.
	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "Llama-3.1-8B-Instruct"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		DBPath:             getEnv("DB_PATH", "./data/kbchat.db"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "chunks"),
		APIPort:            getEnv("API_PORT", "9000"),
	}

	if err := cfg.parseLogLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be \"text\" or \"json\", got %q", cfg.LogFormat)
	}

	// QDRANT_VECTOR_SIZE must match the embedding model's output size.
	// If it changes, the Qdrant collection must be recreated.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}
	cfg.QdrantVectorSize = vectorSize

	pooling := vecmath.PoolingStrategy(getEnv("POOLING_STRATEGY", "weighted"))
	switch pooling {
	case vecmath.PoolingMean, vecmath.PoolingMax, vecmath.PoolingWeighted:
		cfg.PoolingStrategy = pooling
	default:
		return nil, fmt.Errorf("POOLING_STRATEGY must be one of mean, max, weighted; got %q", pooling)
	}

	ints := []struct {
		key string
		dst *int
		def int
	}{
		{"MAX_SEGMENT_TOKENS", &cfg.MaxSegmentTokens, textseg.DefaultTokenLimit},
		{"EMBED_BATCH_SIZE", &cfg.EmbedBatchSize, 16},
		{"MIN_QUALITY_SCORE", &cfg.MinQualityScore, 85},
		{"RETRIEVE_LIMIT", &cfg.RetrieveLimit, 20},
		{"RERANK_TOP_K", &cfg.RerankTopK, 5},
	}
	for _, v := range ints {
		n, err := getEnvInt(v.key, v.def)
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, fmt.Errorf("%s must be greater than 0", v.key)
		}
		*v.dst = n
	}

	thresholds := []struct {
		key string
		dst *float32
		def float32
	}{
		{"CHITCHAT_THRESHOLD", &cfg.ChitchatThreshold, 0.85},
		{"OUT_OF_SCOPE_THRESHOLD", &cfg.OutOfScopeThreshold, 0.85},
		{"REVERIFY_THRESHOLD", &cfg.ReverifyThreshold, 0.5},
		{"DECLINE_THRESHOLD", &cfg.DeclineThreshold, 0.3},
	}
	for _, v := range thresholds {
		f, err := getEnvFloat(v.key, v.def)
		if err != nil {
			return nil, err
		}
		*v.dst = f
	}

	// Create the data directory if it doesn't exist (for the DB file).
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

func (c *Config) parseLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug":
		c.LogLevel = slog.LevelDebug
	case "info":
		c.LogLevel = slog.LevelInfo
	case "warn":
		c.LogLevel = slog.LevelWarn
	case "error":
		c.LogLevel = slog.LevelError
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", level)
	}
	return nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float32) (float32, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return float32(f), nil
}
