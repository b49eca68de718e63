package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string // overrides the environment default when set

	// Storage backend: "dynamodb", "mongo" or "memory"
	DBType string

	// MongoDB settings (when DBType = "mongo")
	MongoURI string
	MongoDB  string

	// DynamoDB settings (when DBType = "dynamodb")
	AWSRegion          string
	DynamoDBEndpoint   string // Optional: for local development
	DynamoTablePrefix  string
	AWSAccessKeyID     string // Optional: for local development
	AWSSecretAccessKey string // Optional: for local development

	// Document content (S3). Empty bucket keeps documents in memory.
	S3Bucket   string
	S3Endpoint string

	// Claims read model. Empty disables claim lookups.
	PostgresURL string

	// Redis backs aggregate locks and cache invalidation. Empty falls back to
	// in-process locks.
	RedisURL      string
	LockTTLMs     int
	LockWaitMs    int
	LockRetryMs   int
	CacheChannel  string
	AsynqRedisURL string

	// Domain event publishing. Empty brokers log events instead.
	KafkaBrokers []string
	KafkaTopic   string

	// Timeouts
	HTTPReadTimeoutSec     int
	HTTPWriteTimeoutSec    int
	HTTPIdleTimeoutSec     int
	HTTPRequestTimeoutSec  int
	MongoConnectTimeoutSec int
	MongoOpTimeoutMs       int

	// Worker settings
	WorkerIntervalSec int
	WorkerConcurrency int

	// Tenant whose alerts apply when a tenant has none of its own
	MasterTenantID string

	// Per-product workflow definitions laid out as
	// <tenant>/<product>.json or <tenant>/<product>/<release>.json.
	// Empty serves the default workflow everywhere.
	WorkflowDir string

	// Security settings
	JWTSecret      string
	JWTIssuer      string
	AllowedOrigins []string // CORS allowed origins
	RateLimitRPM   int      // Rate limit requests per minute
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	cfg := &Config{}

	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "dev")
	cfg.LogLevel = getEnv("LOG_LEVEL", "")
	cfg.DBType = getEnv("DB_TYPE", "dynamodb") // Default to DynamoDB

	// MongoDB settings (check both MONGODB_URI and MONGO_URI for compatibility)
	cfg.MongoURI = getEnv("MONGODB_URI", getEnv("MONGO_URI", ""))
	cfg.MongoDB = getEnv("MONGO_DB", "policy_admin")

	// DynamoDB settings
	cfg.AWSRegion = getEnv("AWS_REGION", "us-east-1")
	cfg.DynamoDBEndpoint = getEnv("DYNAMODB_ENDPOINT", "") // Empty means use AWS
	cfg.DynamoTablePrefix = getEnv("DYNAMODB_TABLE_PREFIX", "policy_admin_")
	cfg.AWSAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AWSSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")

	cfg.S3Bucket = getEnv("S3_BUCKET", "")
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", "")

	cfg.PostgresURL = getEnv("POSTGRES_URL", "")

	cfg.RedisURL = getEnv("REDIS_URL", "")
	cfg.LockTTLMs = getEnvAsInt("LOCK_TTL_MS", 10000)
	cfg.LockWaitMs = getEnvAsInt("LOCK_WAIT_MS", 5000)
	cfg.LockRetryMs = getEnvAsInt("LOCK_RETRY_MS", 50)
	cfg.CacheChannel = getEnv("CACHE_INVALIDATION_CHANNEL", "policy-admin:cache-invalidation")
	cfg.AsynqRedisURL = getEnv("ASYNQ_REDIS_URL", cfg.RedisURL)

	cfg.KafkaBrokers = getEnvAsSlice("KAFKA_BROKERS", nil)
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "policy-admin.quote-events")

	cfg.HTTPReadTimeoutSec = getEnvAsInt("HTTP_READ_TIMEOUT_SEC", 10)
	cfg.HTTPWriteTimeoutSec = getEnvAsInt("HTTP_WRITE_TIMEOUT_SEC", 10)
	cfg.HTTPIdleTimeoutSec = getEnvAsInt("HTTP_IDLE_TIMEOUT_SEC", 120)
	cfg.HTTPRequestTimeoutSec = getEnvAsInt("HTTP_REQUEST_TIMEOUT_SEC", 30)
	cfg.MongoConnectTimeoutSec = getEnvAsInt("MONGO_CONNECT_TIMEOUT_SEC", 5)
	cfg.MongoOpTimeoutMs = getEnvAsInt("MONGO_OP_TIMEOUT_MS", 500)
	cfg.WorkerIntervalSec = getEnvAsInt("WORKER_INTERVAL_SEC", 60)
	cfg.WorkerConcurrency = getEnvAsInt("WORKER_CONCURRENCY", 5)

	cfg.MasterTenantID = getEnv("MASTER_TENANT_ID", "master")
	cfg.WorkflowDir = getEnv("WORKFLOW_DIR", "")

	// Security settings
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.JWTIssuer = getEnv("JWT_ISSUER", "policy-admin")
	cfg.AllowedOrigins = getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:8080"})
	cfg.RateLimitRPM = getEnvAsInt("RATE_LIMIT_RPM", 100) // 100 requests per minute

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Default signing secret for development only
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-jwt-secret-change-me"
	}

	return cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.DBType {
	case "mongo":
		if cfg.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when DB_TYPE=mongo")
		}
	case "dynamodb", "memory":
	default:
		return fmt.Errorf("unknown DB_TYPE %q", cfg.DBType)
	}

	// In production, the JWT secret must be explicitly set
	if cfg.IsProd() && cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production environment")
	}
	if cfg.IsProd() && cfg.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required in production environment")
	}
	if cfg.LockWaitMs <= 0 || cfg.LockTTLMs <= 0 {
		return fmt.Errorf("LOCK_TTL_MS and LOCK_WAIT_MS must be > 0")
	}
	return nil
}

func (cfg *Config) IsProd() bool {
	return cfg.Env == "prod" || cfg.Env == "production"
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if val, err := strconv.Atoi(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string) []string {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	// Split by comma and trim whitespace
	var result []string
	for _, s := range strings.Split(valStr, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	if len(result) == 0 {
		return defaultVal
	}
	return result
}
