package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	OpenAI   OpenAIConfig
	Storage  StorageConfig
	Ingest   IngestConfig
	Search   SearchConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	RateLimitRPM int // per-client HTTP request budget per minute
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret          string
	TokenExpiryMinutes int
}

type OpenAIConfig struct {
	APIKey       string
	ChatModel    string
	EmbedModel   string
	AnthropicKey string // optional fallback provider
	RateLimitRPM int
	MaxRetries   int
}

type StorageConfig struct {
	SupabaseURL    string
	SupabaseKey    string
	DocumentBucket string
	TemplateBucket string
}

type IngestConfig struct {
	MaxFileSizeBytes int64
	ChunkSize        int
	ChunkOverlap     int
}

type SearchConfig struct {
	EmbeddingDim        int
	SimilarityThreshold float64
	MaxResults          int
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	rateLimitRPM, err := getEnvInt("RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	tokenExpiry, err := getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)
	if err != nil {
		return nil, fmt.Errorf("invalid ACCESS_TOKEN_EXPIRE_MINUTES: %w", err)
	}

	rpm, err := getEnvInt("OPENAI_RATE_LIMIT_RPM", 60)
	if err != nil {
		return nil, fmt.Errorf("invalid OPENAI_RATE_LIMIT_RPM: %w", err)
	}

	retries, err := getEnvInt("OPENAI_RETRY_ATTEMPTS", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid OPENAI_RETRY_ATTEMPTS: %w", err)
	}

	maxFileSize, err := getEnvInt("MAX_FILE_SIZE", 10*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_FILE_SIZE: %w", err)
	}

	chunkSize, err := getEnvInt("CHUNK_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_SIZE: %w", err)
	}

	chunkOverlap, err := getEnvInt("CHUNK_OVERLAP", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_OVERLAP: %w", err)
	}

	embedDim, err := getEnvInt("EMBEDDING_DIMENSION", 1536)
	if err != nil {
		return nil, fmt.Errorf("invalid EMBEDDING_DIMENSION: %w", err)
	}

	threshold, err := getEnvFloat("SIMILARITY_THRESHOLD", 0.75)
	if err != nil {
		return nil, fmt.Errorf("invalid SIMILARITY_THRESHOLD: %w", err)
	}

	maxResults, err := getEnvInt("MAX_RESULTS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_RESULTS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         port,
			RateLimitRPM: rateLimitRPM,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret:          getEnv("JWT_SECRET_KEY", ""),
			TokenExpiryMinutes: tokenExpiry,
		},
		OpenAI: OpenAIConfig{
			APIKey:       getEnv("OPENAI_API_KEY", ""),
			ChatModel:    getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			EmbedModel:   getEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
			AnthropicKey: getEnv("ANTHROPIC_API_KEY", ""),
			RateLimitRPM: rpm,
			MaxRetries:   retries,
		},
		Storage: StorageConfig{
			SupabaseURL:    getEnv("SUPABASE_URL", ""),
			SupabaseKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
			DocumentBucket: getEnv("DOCUMENT_BUCKET", "documents"),
			TemplateBucket: getEnv("TEMPLATE_BUCKET", "templates"),
		},
		Ingest: IngestConfig{
			MaxFileSizeBytes: int64(maxFileSize),
			ChunkSize:        chunkSize,
			ChunkOverlap:     chunkOverlap,
		},
		Search: SearchConfig{
			EmbeddingDim:        embedDim,
			SimilarityThreshold: threshold,
			MaxResults:          maxResults,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET_KEY")
	}
	if c.OpenAI.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}
