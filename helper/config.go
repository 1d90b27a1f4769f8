package helper

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultEmbeddingsPath = "./embeddings.db"
	DefaultModelName      = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultBatchSize      = 32
	DefaultLLMModel       = "claude-sonnet-4-5-20250929"

	VectorBackendBolt     = "bolt"
	VectorBackendPostgres = "postgres"
)

// Configuration holds the non database settings of a codegraph instance.
type Configuration struct {
	EmbeddingsPath   string
	ModelName        string
	BatchSize        int
	VectorBackend    string
	DeterministicIDs bool
	AnthropicAPIKey  string
	LLMModel         string
}

// DefaultConfiguration returns the configuration used when nothing is set.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		EmbeddingsPath: DefaultEmbeddingsPath,
		ModelName:      DefaultModelName,
		BatchSize:      DefaultBatchSize,
		VectorBackend:  VectorBackendBolt,
		LLMModel:       DefaultLLMModel,
	}
}

// NewConfiguration reads the configuration from the environment, using defaults for unset values.
func NewConfiguration() (*Configuration, error) {
	_ = godotenv.Load()

	config := &Configuration{
		EmbeddingsPath:  getEnv("CODEGRAPH_EMBEDDINGS_PATH", DefaultEmbeddingsPath),
		ModelName:       getEnv("CODEGRAPH_MODEL", DefaultModelName),
		BatchSize:       DefaultBatchSize,
		VectorBackend:   getEnv("CODEGRAPH_VECTOR_BACKEND", VectorBackendBolt),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		LLMModel:        getEnv("CODEGRAPH_LLM_MODEL", DefaultLLMModel),
	}

	if v := os.Getenv("CODEGRAPH_BATCH_SIZE"); v != "" {
		batchSize, err := strconv.Atoi(v)
		if err != nil || batchSize < 1 {
			return nil, NewError("configuration", fmt.Errorf("invalid CODEGRAPH_BATCH_SIZE %q", v))
		}
		config.BatchSize = batchSize
	}

	if v := os.Getenv("CODEGRAPH_DETERMINISTIC_IDS"); v != "" {
		deterministic, err := strconv.ParseBool(v)
		if err != nil {
			return nil, NewError("configuration", fmt.Errorf("invalid CODEGRAPH_DETERMINISTIC_IDS %q", v))
		}
		config.DeterministicIDs = deterministic
	}

	switch config.VectorBackend {
	case VectorBackendBolt, VectorBackendPostgres:
	default:
		return nil, NewError("configuration", fmt.Errorf("unknown vector backend %q", config.VectorBackend))
	}

	return config, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
