package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Auth
	AccessSecret   string
	AccessTokenTTL time.Duration

	// Redis / broker
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Storage
	StorageDriver  string // "local" or "minio"
	FileStorageDir string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Upload limits
	MaxFileSize  int64
	AllowedTypes []string

	// HTTP rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Originality check pipeline
	CheckQueue          string
	CheckMaxRetry       int
	CheckRetryBaseDelay time.Duration
	CheckTimeout        time.Duration
	WorkerConcurrency   int
	WorkerRatePerMinute int
	CorpusLimit         int
	ShingleSize         int
	MatchNoiseFloor     int
	MaxMatchedSources   int
	ShortTextThreshold  int
	RetainCompletedJobs int
	RetainFailedJobs    int
	MaintenanceInterval time.Duration
	StaleProcessingAge  time.Duration

	// SMTP (optional; in-app notifications always work without it)
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/capstone"),
		DBName:      getEnv("DB_NAME", "capstone"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		AccessSecret:   getEnv("ACCESS_SECRET", ""),
		AccessTokenTTL: getEnvDuration("ACCESS_TOKEN_TTL", 24*time.Hour),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		StorageDriver:  getEnv("STORAGE_DRIVER", "local"),
		FileStorageDir: getEnv("FILE_STORAGE_DIR", "./storage"),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "submissions"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		MaxFileSize:  getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB
		AllowedTypes: strings.Split(getEnv("ALLOWED_FILE_TYPES", "application/pdf,text/plain,text/markdown"), ","),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		CheckQueue:          getEnv("CHECK_QUEUE", "checks"),
		CheckMaxRetry:       getEnvInt("CHECK_MAX_RETRY", 3),
		CheckRetryBaseDelay: getEnvDuration("CHECK_RETRY_BASE_DELAY", 5*time.Second),
		CheckTimeout:        getEnvDuration("CHECK_TIMEOUT", 5*time.Minute),
		WorkerConcurrency:   getEnvInt("WORKER_CONCURRENCY", 2),
		WorkerRatePerMinute: getEnvInt("WORKER_RATE_PER_MINUTE", 10),
		CorpusLimit:         getEnvInt("CORPUS_LIMIT", 100),
		ShingleSize:         getEnvInt("SHINGLE_SIZE", 3),
		MatchNoiseFloor:     getEnvInt("MATCH_NOISE_FLOOR", 5),
		MaxMatchedSources:   getEnvInt("MAX_MATCHED_SOURCES", 10),
		ShortTextThreshold:  getEnvInt("SHORT_TEXT_THRESHOLD", 50),
		RetainCompletedJobs: getEnvInt("RETAIN_COMPLETED_JOBS", 200),
		RetainFailedJobs:    getEnvInt("RETAIN_FAILED_JOBS", 500),
		MaintenanceInterval: getEnvDuration("MAINTENANCE_INTERVAL", 15*time.Minute),
		StaleProcessingAge:  getEnvDuration("STALE_PROCESSING_AGE", 1*time.Hour),

		SMTPHost: getEnv("SMTP_HOST", ""),
		SMTPPort: getEnv("SMTP_PORT", "587"),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),
		SMTPFrom: getEnv("SMTP_FROM", ""),
	}

	// Validate required fields
	if cfg.AccessSecret == "" {
		return nil, fmt.Errorf("ACCESS_SECRET is required - set it in .env file")
	}

	if cfg.StorageDriver == "minio" && cfg.MinioAccessKey == "" {
		return nil, fmt.Errorf("MINIO_ACCESS_KEY is required when STORAGE_DRIVER=minio")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
