package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/jmaisinchop/app-renattos/pkg/money"
)

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	// URL overrides the individual fields when set.
	URL string
}

type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	TLS           bool
	SASLMechanism string
	SASLUsername  string
	SASLPassword  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	RateTTL  time.Duration
}

type JWTConfig struct {
	Secret        string
	PublicKeyFile string
	Issuer        string
}

type LogConfig struct {
	Level     string
	Format    string
	AddSource bool
}

type TLSConfig struct {
	CertFile     string
	KeyFile      string
	ClientCAFile string
	Reflection   bool
}

// PaymentConfig carries the collection rules applied when posting payments.
type PaymentConfig struct {
	DefaultPenalty      decimal.Decimal
	PromotionFlagSource string
	OperationTimeout    time.Duration
	MaxRetries          int
}

type Config struct {
	GRPCPort     int
	HTTPPort     int
	Storage      string
	DB           DatabaseConfig
	Kafka        KafkaConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Log          LogConfig
	TLS          TLSConfig
	Payment      PaymentConfig
	OTLPEndpoint string
	OutboxPoll   time.Duration
	ServiceName  string
}

// Validate reports configuration that would keep the service from starting.
func (c Config) Validate() error {
	if c.Storage != "postgres" && c.Storage != "memory" {
		return fmt.Errorf("STORAGE must be postgres or memory, got %q", c.Storage)
	}
	if c.Storage == "postgres" && c.DB.URL == "" && c.DB.Password == "" {
		return fmt.Errorf("DB_PASSWORD or DATABASE_URL environment variable is required")
	}
	if c.Payment.DefaultPenalty.IsNegative() {
		return fmt.Errorf("DEFAULT_PENALTY_AMOUNT must not be negative")
	}
	switch c.Payment.PromotionFlagSource {
	case "live", "snapshot":
	default:
		return fmt.Errorf("PROMOTION_FLAG_SOURCE must be live or snapshot, got %q", c.Payment.PromotionFlagSource)
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if c.TLS.ClientCAFile != "" && c.TLS.CertFile == "" {
		return fmt.Errorf("TLS_CLIENT_CA_FILE requires TLS_CERT_FILE and TLS_KEY_FILE")
	}
	if c.JWT.Secret == "" && c.JWT.PublicKeyFile == "" {
		return fmt.Errorf("JWT_SECRET or JWT_PUBLIC_KEY_FILE environment variable is required")
	}
	return nil
}

// Load reads configuration from the environment. A .env file in the working
// directory, when present, fills in variables not already set.
func Load() Config {
	_ = godotenv.Load() //nolint:errcheck // the file is optional

	return Config{
		GRPCPort: getEnvInt("GRPC_PORT", 9090),
		HTTPPort: getEnvInt("HTTP_PORT", 8080),
		Storage:  strings.ToLower(getEnv("STORAGE", "postgres")),
		DB: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "credit"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "credit"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			URL:      getEnv("DATABASE_URL", ""),
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", nil),
			Topic:         getEnv("KAFKA_TOPIC", "credit-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "credit-service"),
			TLS:           getEnvBool("KAFKA_TLS", false),
			SASLMechanism: getEnv("KAFKA_SASL_MECHANISM", ""),
			SASLUsername:  getEnv("KAFKA_SASL_USERNAME", ""),
			SASLPassword:  getEnv("KAFKA_SASL_PASSWORD", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			RateTTL:  getEnvDuration("RATE_CACHE_TTL", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", ""),
			PublicKeyFile: getEnv("JWT_PUBLIC_KEY_FILE", ""),
			Issuer:        getEnv("JWT_ISSUER", "renattos-pos"),
		},
		Log: LogConfig{
			Level:     getEnv("LOG_LEVEL", "info"),
			Format:    getEnv("LOG_FORMAT", "json"),
			AddSource: getEnvBool("LOG_SOURCE", false),
		},
		TLS: TLSConfig{
			CertFile:     getEnv("TLS_CERT_FILE", ""),
			KeyFile:      getEnv("TLS_KEY_FILE", ""),
			ClientCAFile: getEnv("TLS_CLIENT_CA_FILE", ""),
			Reflection:   getEnvBool("GRPC_REFLECTION", false),
		},
		Payment: PaymentConfig{
			DefaultPenalty:      getEnvDecimal("DEFAULT_PENALTY_AMOUNT", decimal.NewFromInt(10)),
			PromotionFlagSource: strings.ToLower(getEnv("PROMOTION_FLAG_SOURCE", "live")),
			OperationTimeout:    getEnvDuration("OPERATION_TIMEOUT", 10*time.Second),
			MaxRetries:          getEnvInt("POST_PAYMENT_MAX_RETRIES", 5),
		},
		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
		OutboxPoll:   getEnvDuration("OUTBOX_POLL_INTERVAL", time.Second),
		ServiceName:  "credit-service",
	}
}

func (c Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if m, err := money.NewFromString(v, money.USD.Code()); err == nil {
			return m.Amount()
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
