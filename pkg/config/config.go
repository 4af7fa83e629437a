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
	Server     ServerConfig
	Photos     PhotosConfig
	S3         S3Config
	Security   SecurityConfig
	Log        LogConfig
	Metrics    MetricsConfig
	CloudWatch CloudWatchConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// PhotosConfig описывает параметры выдачи списка фотографий.
type PhotosConfig struct {
	Bucket          string
	KeyPrefix       string
	URLExpiry       time.Duration
	SignConcurrency int
	MaxObjects      int
	PageSize        int
}

type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	MaxAttempts     int
}

type SecurityConfig struct {
	AllowedOrigins []string
	AuthEnabled    bool
	AuthToken      string
	RateLimitRPS   float64
	RateLimitBurst int
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	PrometheusEnabled bool
}

type CloudWatchConfig struct {
	Region               string
	Endpoint             string
	AccessKeyID          string
	SecretAccessKey      string
	MetricsEnabled       bool
	MetricsNamespace     string
	MetricsDimensions    map[string]string
	MetricsBufferSize    int
	MetricsFlushInterval time.Duration
	// MetricsStorageResolution: 1 (high-resolution) или 60 секунд.
	MetricsStorageResolution int32
	LogsEnabled              bool
	LogGroupName             string
	LogStreamName            string
	LogsBufferSize           int
	LogsFlushInterval        time.Duration
	LogsAutoCreate           bool
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	urlExpiry, err := parseDuration(getEnv("PHOTO_URL_EXPIRY", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid PHOTO_URL_EXPIRY: %w", err)
	}

	signConcurrency, err := strconv.Atoi(getEnv("PHOTOS_SIGN_CONCURRENCY", "16"))
	if err != nil {
		return nil, fmt.Errorf("invalid PHOTOS_SIGN_CONCURRENCY: %w", err)
	}

	maxObjects, err := strconv.Atoi(getEnv("PHOTOS_MAX_OBJECTS", "10000"))
	if err != nil {
		return nil, fmt.Errorf("invalid PHOTOS_MAX_OBJECTS: %w", err)
	}

	pageSize, err := strconv.Atoi(getEnv("PHOTOS_PAGE_SIZE", "1000"))
	if err != nil {
		return nil, fmt.Errorf("invalid PHOTOS_PAGE_SIZE: %w", err)
	}

	maxAttempts, err := strconv.Atoi(getEnv("S3_MAX_ATTEMPTS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid S3_MAX_ATTEMPTS: %w", err)
	}

	rateLimitRPS, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	rateLimitBurst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	metricsBufferSize, err := strconv.Atoi(getEnv("CLOUDWATCH_METRICS_BUFFER_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_METRICS_BUFFER_SIZE: %w", err)
	}

	metricsFlushInterval, err := parseDuration(getEnv("CLOUDWATCH_METRICS_FLUSH_INTERVAL", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_METRICS_FLUSH_INTERVAL: %w", err)
	}

	logsBufferSize, err := strconv.Atoi(getEnv("CLOUDWATCH_LOGS_BUFFER_SIZE", "50"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_LOGS_BUFFER_SIZE: %w", err)
	}

	logsFlushInterval, err := parseDuration(getEnv("CLOUDWATCH_LOGS_FLUSH_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_LOGS_FLUSH_INTERVAL: %w", err)
	}

	storageResolution, err := strconv.Atoi(getEnv("CLOUDWATCH_METRICS_STORAGE_RESOLUTION", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_METRICS_STORAGE_RESOLUTION: %w", err)
	}

	region := getEnv("S3_REGION", getEnv("AWS_REGION", "us-east-1"))

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Photos: PhotosConfig{
			Bucket:          strings.TrimSpace(getEnv("PHOTO_BUCKET_NAME", "")),
			KeyPrefix:       getEnv("PHOTOS_KEY_PREFIX", ""),
			URLExpiry:       urlExpiry,
			SignConcurrency: signConcurrency,
			MaxObjects:      maxObjects,
			PageSize:        pageSize,
		},
		S3: S3Config{
			Region:          region,
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", false),
			MaxAttempts:     maxAttempts,
		},
		Security: SecurityConfig{
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "*")),
			AuthEnabled:    getEnvBool("AUTH_ENABLED", false),
			AuthToken:      getEnv("AUTH_BEARER_TOKEN", ""),
			RateLimitRPS:   rateLimitRPS,
			RateLimitBurst: rateLimitBurst,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			PrometheusEnabled: getEnvBool("PROMETHEUS_ENABLED", true),
		},
		CloudWatch: CloudWatchConfig{
			Region:                   getEnv("CLOUDWATCH_REGION", region),
			Endpoint:                 getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:              getEnv("CLOUDWATCH_ACCESS_KEY_ID", ""),
			SecretAccessKey:          getEnv("CLOUDWATCH_SECRET_ACCESS_KEY", ""),
			MetricsEnabled:           getEnvBool("CLOUDWATCH_METRICS_ENABLED", false),
			MetricsNamespace:         getEnv("CLOUDWATCH_METRICS_NAMESPACE", "PhotoGallery/API"),
			MetricsDimensions:        parseDimensions(getEnv("CLOUDWATCH_METRICS_DIMENSIONS", "")),
			MetricsBufferSize:        metricsBufferSize,
			MetricsFlushInterval:     metricsFlushInterval,
			MetricsStorageResolution: int32(storageResolution),
			LogsEnabled:              getEnvBool("CLOUDWATCH_LOGS_ENABLED", false),
			LogGroupName:             getEnv("CLOUDWATCH_LOG_GROUP", "/photo-gallery/api"),
			LogStreamName:            getEnv("CLOUDWATCH_LOG_STREAM", "server"),
			LogsBufferSize:           logsBufferSize,
			LogsFlushInterval:        logsFlushInterval,
			LogsAutoCreate:           getEnvBool("CLOUDWATCH_LOGS_AUTO_CREATE", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность загруженной конфигурации.
func (c *Config) Validate() error {
	if c.Photos.Bucket == "" {
		return fmt.Errorf("PHOTO_BUCKET_NAME is required")
	}
	if c.Photos.URLExpiry <= 0 {
		return fmt.Errorf("PHOTO_URL_EXPIRY must be positive")
	}
	if c.Photos.SignConcurrency < 0 {
		return fmt.Errorf("PHOTOS_SIGN_CONCURRENCY must be >= 0")
	}
	if c.Photos.MaxObjects < 0 {
		return fmt.Errorf("PHOTOS_MAX_OBJECTS must be >= 0")
	}
	if c.Photos.PageSize <= 0 || c.Photos.PageSize > 1000 {
		return fmt.Errorf("PHOTOS_PAGE_SIZE must be between 1 and 1000")
	}
	if r := c.CloudWatch.MetricsStorageResolution; r != 1 && r != 60 {
		return fmt.Errorf("CLOUDWATCH_METRICS_STORAGE_RESOLUTION must be 1 or 60")
	}
	if c.Security.AuthEnabled && c.Security.AuthToken == "" {
		return fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if value := strings.TrimSpace(part); value != "" {
			items = append(items, value)
		}
	}
	return items
}

// parseDimensions разбирает строку вида "Env=prod,Service=photos".
func parseDimensions(raw string) map[string]string {
	dimensions := make(map[string]string)
	for _, pair := range splitCSV(raw) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		dimensions[key] = value
	}
	return dimensions
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
