package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"kbingest-sources"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Master key for bot credential ciphertexts, base64-encoded 32 bytes
	CredentialMasterKey string `envconfig:"CREDENTIAL_MASTER_KEY"`

	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	EmbeddingBatchSize  int    `envconfig:"EMBEDDING_BATCH_SIZE" default:"20"`

	ChunkTargetTokens  int `envconfig:"CHUNK_TARGET_TOKENS" default:"800"`
	ChunkMaxTokens     int `envconfig:"CHUNK_MAX_TOKENS" default:"1000"`
	ChunkMinTokens     int `envconfig:"CHUNK_MIN_TOKENS" default:"30"`
	ChunkOverlapTokens int `envconfig:"CHUNK_OVERLAP_TOKENS" default:"100"`

	// Poll interval for the pending-source worker, in seconds
	WorkerPollSeconds int `envconfig:"WORKER_POLL_SECONDS" default:"10"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("KBINGEST", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
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

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasCredentialKey() bool {
	return c.CredentialMasterKey != ""
}
