package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Queue    QueueConfig
	Ai       AIConfig
	Ingest   IngestConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	AuditLogFilePath   string
	CorsAllowedOrigins string
	JwtSecret          string
	OtlpEndpoint       string
}

type DatabaseConfig struct {
	Connection string
}

type StorageConfig struct {
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	RawBucket      string
}

type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
	MaxRetries    int
}

type AIConfig struct {
	EmbeddingProvider string // "openai" or "ollama"
	EmbeddingModel    string
	EmbeddingDim      int
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OllamaBaseURL     string
	OcrEndpoint       string
	QueryCacheTTL     time.Duration
}

type IngestConfig struct {
	ChunkTargetTokens   int
	ChunkOverlapTokens  int
	RunesPerToken       int
	EmbedBatchSize      int
	ExtractTimeout      time.Duration
	EmbedTimeout        time.Duration
	IndexWriteTimeout   time.Duration
	HybridVectorWeight  float64
	HybridKeywordWeight float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			AuditLogFilePath:   getEnv("AUDIT_LOG_FILE_PATH", "logs/audit.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			OtlpEndpoint:       getEnv("OTLP_ENDPOINT", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Storage: StorageConfig{
			MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
			MinioUseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
			RawBucket:      getEnv("MINIO_RAW_BUCKET", "kb-raw"),
		},
		Queue: QueueConfig{
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			Concurrency:   getEnvAsInt("INGEST_CONCURRENCY", 4),
			MaxRetries:    getEnvAsInt("INGEST_MAX_RETRIES", 3),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingDim:      getEnvAsInt("EMBEDDING_DIM", 768),
			OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OcrEndpoint:       getEnv("OCR_ENDPOINT", ""),
			QueryCacheTTL:     getEnvAsDuration("QUERY_EMBED_CACHE_TTL", 5*time.Minute),
		},
		Ingest: IngestConfig{
			ChunkTargetTokens:   getEnvAsInt("CHUNK_TARGET_TOKENS", 512),
			ChunkOverlapTokens:  getEnvAsInt("CHUNK_OVERLAP_TOKENS", 100),
			RunesPerToken:       getEnvAsInt("RUNES_PER_TOKEN", 4),
			EmbedBatchSize:      getEnvAsInt("EMBED_BATCH_SIZE", 32),
			ExtractTimeout:      getEnvAsDuration("EXTRACT_TIMEOUT", 2*time.Minute),
			EmbedTimeout:        getEnvAsDuration("EMBED_TIMEOUT", 1*time.Minute),
			IndexWriteTimeout:   getEnvAsDuration("INDEX_WRITE_TIMEOUT", 30*time.Second),
			HybridVectorWeight:  getEnvAsFloat("HYBRID_VECTOR_WEIGHT", 1.0),
			HybridKeywordWeight: getEnvAsFloat("HYBRID_KEYWORD_WEIGHT", 1.0),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := strings.ToLower(getEnv(key, ""))
	if strValue == "true" || strValue == "1" {
		return true
	}
	if strValue == "false" || strValue == "0" {
		return false
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
