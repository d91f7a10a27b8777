package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Gateways          GatewaysConfig
	Processing        ProcessingConfig
	Redis             RedisConfig
	Kafka             KafkaConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type GatewaysConfig struct {
	Stripe                 StripeConfig
	BogusEnabled           bool
	BogusProfilesSupported bool
}

type StripeConfig struct {
	SecretKey   string
	BaseURL     string
	HTTPTimeout time.Duration
}

type ProcessingConfig struct {
	GatewayCallTimeout   time.Duration
	BreakerMaxFailures   uint32
	BreakerOpenTimeout   time.Duration
	ReversalRetries      uint64
	RetryInitialInterval time.Duration
	LockTTL              time.Duration
	StaleProcessingAfter time.Duration
	JobBatchSize         int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

type JobsConfig struct {
	RecoverProcessingInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "payment-processing-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Gateways: GatewaysConfig{
			Stripe: StripeConfig{
				SecretKey:   getEnv("STRIPE_SECRET_KEY", ""),
				BaseURL:     getEnv("STRIPE_BASE_URL", ""),
				HTTPTimeout: getSecondsEnv("STRIPE_HTTP_TIMEOUT_SECONDS", 10*time.Second),
			},
			BogusEnabled:           getBoolEnv("BOGUS_GATEWAY_ENABLED", false),
			BogusProfilesSupported: getBoolEnv("BOGUS_GATEWAY_PROFILES_SUPPORTED", false),
		},
		Processing: ProcessingConfig{
			GatewayCallTimeout:   getSecondsEnv("PROCESSING_GATEWAY_CALL_TIMEOUT_SECONDS", 30*time.Second),
			BreakerMaxFailures:   uint32(getIntEnv("PROCESSING_BREAKER_MAX_FAILURES", 5)),
			BreakerOpenTimeout:   getSecondsEnv("PROCESSING_BREAKER_OPEN_TIMEOUT_SECONDS", 30*time.Second),
			ReversalRetries:      uint64(getIntEnv("PROCESSING_REVERSAL_RETRIES", 3)),
			RetryInitialInterval: getMillisecondsEnv("PROCESSING_RETRY_INITIAL_INTERVAL_MS", 200*time.Millisecond),
			LockTTL:              getSecondsEnv("PROCESSING_LOCK_TTL_SECONDS", 2*time.Minute),
			StaleProcessingAfter: getMinutesEnv("PROCESSING_STALE_AFTER_MINUTES", 15*time.Minute),
			JobBatchSize:         int32(getIntEnv("PROCESSING_JOB_BATCH_SIZE", 100)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:  getListEnv("KAFKA_BROKERS"),
			Topic:    getEnv("KAFKA_TOPIC", "payments.state-transitions"),
			ClientID: getEnv("KAFKA_CLIENT_ID", "payment-processing-service"),
		},
		Jobs: JobsConfig{
			RecoverProcessingInterval: getMinutesEnv("JOBS_RECOVER_PROCESSING_INTERVAL_MINUTES", 5*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getMillisecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if millis, err := strconv.Atoi(value); err == nil {
			return time.Duration(millis) * time.Millisecond
		}
	}
	return defaultValue
}
