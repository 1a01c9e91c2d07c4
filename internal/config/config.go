package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Optional S3-compatible archive for raw extracted document text
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"finsight-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// Chunking (sizes in tokens)
	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200"`

	// Embeddings
	EmbeddingModel     string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimension int    `envconfig:"EMBEDDING_DIMENSION" default:"1536"`

	// Language models
	PrimaryLLM     string        `envconfig:"PRIMARY_LLM" default:"gpt-4-turbo-preview"`
	FallbackLLM    string        `envconfig:"FALLBACK_LLM" default:"gpt-3.5-turbo"`
	LLMTemperature float32       `envconfig:"LLM_TEMPERATURE" default:"0.0"`
	LLMMaxTokens   int           `envconfig:"LLM_MAX_TOKENS" default:"2000"`
	LLMTimeout     time.Duration `envconfig:"LLM_TIMEOUT" default:"30s"`

	// Retrieval
	TopKChunks        int     `envconfig:"TOP_K_CHUNKS" default:"5"`
	MinRelevanceScore float32 `envconfig:"MIN_RELEVANCE_SCORE" default:"0.5"`

	// Multi-agent query workflow
	UseAgents             bool   `envconfig:"USE_AGENTS" default:"false"`
	AgentRouterModel      string `envconfig:"AGENT_ROUTER_MODEL" default:"gpt-3.5-turbo"`
	AgentDecomposerModel  string `envconfig:"AGENT_DECOMPOSER_MODEL" default:"gpt-4-turbo-preview"`
	AgentSynthesizerModel string `envconfig:"AGENT_SYNTHESIZER_MODEL" default:"gpt-4-turbo-preview"`
	MaxSubQueries         int    `envconfig:"MAX_SUB_QUERIES" default:"5"`
	ExecutorConcurrency   int    `envconfig:"EXECUTOR_CONCURRENCY" default:"3"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("FINSIGHT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk overlap must be in [0, chunk size), got %d", c.ChunkOverlap)
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 1 {
		return fmt.Errorf("temperature must be between 0.0 and 1.0, got %g", c.LLMTemperature)
	}
	if c.MinRelevanceScore < 0 || c.MinRelevanceScore > 1 {
		return fmt.Errorf("min relevance score must be between 0.0 and 1.0, got %g", c.MinRelevanceScore)
	}
	if c.TopKChunks <= 0 {
		return fmt.Errorf("top-k must be positive, got %d", c.TopKChunks)
	}
	if c.MaxSubQueries < 2 {
		return fmt.Errorf("max sub-queries must be at least 2, got %d", c.MaxSubQueries)
	}
	if c.ExecutorConcurrency <= 0 {
		return fmt.Errorf("executor concurrency must be positive, got %d", c.ExecutorConcurrency)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
