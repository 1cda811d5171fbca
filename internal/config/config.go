package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config 服务全部配置
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Kafka     KafkaConfig
	Outbox    OutboxConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServiceConfig struct {
	Name        string
	Port        string
	GinMode     string
	MaxUploadMB int64
}

// DatabaseConfig Driver 取值 mysql / postgres / sqlite
type DatabaseConfig struct {
	Driver       string
	DSN          string
	ReplicaDSNs  []string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RotateRefresh bool
}

// StorageConfig MinIO / S3 兼容对象存储
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// KafkaConfig Brokers 为空时 outbox 事件只写日志
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type OutboxConfig struct {
	Interval  time.Duration
	BatchSize int
	MaxRetry  int
}

// RateLimitConfig token 接口按客户端 IP 限流
type RateLimitConfig struct {
	TokenPerSecond float64
	TokenBurst     int
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Result 以 fx.Out 形式向容器提供各子配置
type Result struct {
	fx.Out

	Config          *Config
	ServiceConfig   *ServiceConfig
	DatabaseConfig  *DatabaseConfig
	RedisConfig     *RedisConfig
	JWTConfig       *JWTConfig
	StorageConfig   *StorageConfig
	KafkaConfig     *KafkaConfig
	OutboxConfig    *OutboxConfig
	RateLimitConfig *RateLimitConfig
	LoggingConfig   *LoggingConfig
}

func Out() (Result, error) {
	cfg, err := Load()
	if err != nil {
		return Result{}, err
	}
	return Result{
		Config:          cfg,
		ServiceConfig:   &cfg.Service,
		DatabaseConfig:  &cfg.Database,
		RedisConfig:     &cfg.Redis,
		JWTConfig:       &cfg.JWT,
		StorageConfig:   &cfg.Storage,
		KafkaConfig:     &cfg.Kafka,
		OutboxConfig:    &cfg.Outbox,
		RateLimitConfig: &cfg.RateLimit,
		LoggingConfig:   &cfg.Logging,
	}, nil
}

// Load 从环境变量加载配置（存在 .env 时先加载）
func Load() (*Config, error) {
	_ = godotenv.Load()

	maxUpload, err := strconv.ParseInt(getEnv("MAX_UPLOAD_MB", "100"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %w", err)
	}
	maxOpen, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	accessTTL, err := time.ParseDuration(getEnv("JWT_ACCESS_TTL", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_TTL: %w", err)
	}
	refreshTTL, err := time.ParseDuration(getEnv("JWT_REFRESH_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_TTL: %w", err)
	}
	rotate, err := strconv.ParseBool(getEnv("JWT_ROTATE_REFRESH", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ROTATE_REFRESH: %w", err)
	}
	useSSL, err := strconv.ParseBool(getEnv("STORAGE_USE_SSL", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid STORAGE_USE_SSL: %w", err)
	}
	interval, err := time.ParseDuration(getEnv("OUTBOX_INTERVAL", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_INTERVAL: %w", err)
	}
	batch, err := strconv.Atoi(getEnv("OUTBOX_BATCH_SIZE", "200"))
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_BATCH_SIZE: %w", err)
	}
	maxRetry, err := strconv.Atoi(getEnv("OUTBOX_MAX_RETRY", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid OUTBOX_MAX_RETRY: %w", err)
	}
	rps, err := strconv.ParseFloat(getEnv("TOKEN_RATE_PER_SEC", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_RATE_PER_SEC: %w", err)
	}
	burst, err := strconv.Atoi(getEnv("TOKEN_RATE_BURST", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_RATE_BURST: %w", err)
	}

	endpoint := getEnv("STORAGE_ENDPOINT", "127.0.0.1:9000")
	scheme := "http"
	if useSSL {
		scheme = "https"
	}

	cfg := &Config{
		Service: ServiceConfig{
			Name:        getEnv("SERVICE_NAME", "vid-community"),
			Port:        getEnv("HTTP_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "release"),
			MaxUploadMB: maxUpload,
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(getEnv("DB_DRIVER", "mysql")),
			DSN:          getEnv("DB_DSN", "user:password@tcp(127.0.0.1:3306)/community?charset=utf8mb4&parseTime=True"),
			ReplicaDSNs:  splitList(getEnv("DB_REPLICA_DSNS", "")),
			MaxOpenConns: maxOpen,
			MaxIdleConns: maxIdle,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			AccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
			RefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
			AccessTTL:     accessTTL,
			RefreshTTL:    refreshTTL,
			RotateRefresh: rotate,
		},
		Storage: StorageConfig{
			Endpoint:  endpoint,
			AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
			Bucket:    getEnv("STORAGE_BUCKET", "media"),
			UseSSL:    useSSL,
			PublicURL: strings.TrimRight(getEnv("STORAGE_PUBLIC_URL", scheme+"://"+endpoint), "/"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "vid-community.events"),
		},
		Outbox: OutboxConfig{
			Interval:  interval,
			BatchSize: batch,
			MaxRetry:  maxRetry,
		},
		RateLimit: RateLimitConfig{
			TokenPerSecond: rps,
			TokenBurst:     burst,
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate 校验必填项
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if c.JWT.AccessSecret == "" || c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required")
	}
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		return fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("JWT TTLs must be positive")
	}
	if c.Storage.Endpoint == "" || c.Storage.Bucket == "" {
		return fmt.Errorf("STORAGE_ENDPOINT and STORAGE_BUCKET are required")
	}
	if c.Outbox.Interval <= 0 || c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("OUTBOX_INTERVAL and OUTBOX_BATCH_SIZE must be positive")
	}
	if c.Service.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
