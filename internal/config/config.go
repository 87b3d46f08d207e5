// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	JWT      JWTConfig
	Bank     BankConfig
	Webhook  WebhookConfig
	RateLimit RateLimitConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Port string
	Host string
}

type PostgresConfig struct {
	Host              string
	Port              string
	User              string
	Password          string
	Database           string
	SSLMode           string
	MaxOpenConns      int
	MaxIdleConns      int
	ConnMaxLifetime   time.Duration
	ConnMaxIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

func (p PostgresConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers  []string
	ClientID string
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// BankConfig holds connection details for the external bank collaborator.
type BankConfig struct {
	BaseURL string
	Timeout time.Duration

	CircuitFailureThreshold int
	CircuitTimeout          time.Duration
	CircuitSuccessThreshold int
}

type WebhookConfig struct {
	Timeout    time.Duration
	MaxAttempts int
	Secret     string // shared secret used to verify inbound bank callbacks
}

type RateLimitConfig struct {
	BalanceRequestsPerMinute     int
	TransactionsRequestsPerMinute int
	Window                       time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment, applying defaults that
// make the service runnable out of the box in local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Postgres: PostgresConfig{
			Host:              getEnv("POSTGRES_HOST", "localhost"),
			Port:              getEnv("POSTGRES_PORT", "5432"),
			User:              getEnv("POSTGRES_USER", "paymentgw"),
			Password:          getEnv("POSTGRES_PASSWORD", "paymentgw"),
			Database:          getEnv("POSTGRES_DB", "paymentgw"),
			SSLMode:           getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:      getEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 20),
			MaxIdleConns:      getEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:   getEnvAsDuration("POSTGRES_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime:   getEnvAsDuration("POSTGRES_CONN_MAX_IDLE_TIME", 15*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("POSTGRES_HEALTH_CHECK_PERIOD", time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:  strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			ClientID: getEnv("KAFKA_CLIENT_ID", "payment-gateway"),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", "dev-secret-change-me"),
			Issuer:   getEnv("JWT_ISSUER", "payment-gateway"),
			TokenTTL: getEnvAsDuration("JWT_TOKEN_TTL", 24*time.Hour),
		},
		Bank: BankConfig{
			BaseURL:                 getEnv("BANK_BASE_URL", "http://localhost:9090"),
			Timeout:                 getEnvAsDuration("BANK_TIMEOUT", 10*time.Second),
			CircuitFailureThreshold: getEnvAsInt("BANK_CIRCUIT_FAILURE_THRESHOLD", 5),
			CircuitTimeout:          getEnvAsDuration("BANK_CIRCUIT_TIMEOUT", 30*time.Second),
			CircuitSuccessThreshold: getEnvAsInt("BANK_CIRCUIT_SUCCESS_THRESHOLD", 2),
		},
		Webhook: WebhookConfig{
			Timeout:     getEnvAsDuration("WEBHOOK_TIMEOUT", 30*time.Second),
			MaxAttempts: getEnvAsInt("WEBHOOK_MAX_ATTEMPTS", 5),
			Secret:      getEnv("BANK_WEBHOOK_SECRET", "dev-webhook-secret"),
		},
		RateLimit: RateLimitConfig{
			BalanceRequestsPerMinute:      getEnvAsInt("RATE_LIMIT_BALANCE_RPM", 10),
			TransactionsRequestsPerMinute: getEnvAsInt("RATE_LIMIT_TRANSACTIONS_RPM", 20),
			Window:                        time.Minute,
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
