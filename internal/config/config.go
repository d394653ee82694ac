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

	// Raw source content archive. Optional: when unset, ingested content is
	// only kept as chunk embeddings.
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"lumen-sources"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	ChatModel      string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	// Upper bound on a single embedding or completion call
	OpenAITimeout int `envconfig:"OPENAI_TIMEOUT_SECONDS" default:"30"`

	// Gap classifier selection: "keyword" or "llm". The LLM classifier falls
	// back to keyword scoring when OpenAI is not configured.
	GapClassifier string `envconfig:"GAP_CLASSIFIER" default:"keyword"`

	SearchThreshold float64 `envconfig:"SEARCH_THRESHOLD" default:"0.4"`
	SearchLimit     int     `envconfig:"SEARCH_LIMIT" default:"5"`
	MaxChunkWords   int     `envconfig:"MAX_CHUNK_WORDS" default:"75"`

	ReembedWorkers      int `envconfig:"REEMBED_WORKERS" default:"2"`
	ReembedPollInterval int `envconfig:"REEMBED_POLL_INTERVAL_SECONDS" default:"5"`

	SentryDSN string `envconfig:"SENTRY_DSN"`

	// Bootstrap: create an initial user and API key on startup
	InitUserName string `envconfig:"INIT_USER_NAME"`
	InitAPIKey   string `envconfig:"INIT_API_KEY"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("LUMEN", &cfg); err != nil {
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

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}
