package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("DEFAULT_PENALTY_AMOUNT", "")
	t.Setenv("LOG_SOURCE", "")

	cfg := Load()

	assert.Equal(t, 9090, cfg.GRPCPort)
	assert.Equal(t, ":8080", cfg.HTTPAddr())
	assert.Equal(t, "postgres", cfg.Storage)
	assert.True(t, cfg.Payment.DefaultPenalty.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "live", cfg.Payment.PromotionFlagSource)
	assert.Equal(t, 5, cfg.Payment.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Payment.OperationTimeout)
	assert.Equal(t, "credit-events", cfg.Kafka.Topic)
	assert.False(t, cfg.Log.AddSource)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE", "MEMORY")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("DEFAULT_PENALTY_AMOUNT", "12.50")
	t.Setenv("PROMOTION_FLAG_SOURCE", "snapshot")
	t.Setenv("OPERATION_TIMEOUT", "3s")
	t.Setenv("RATE_CACHE_TTL", "not-a-duration")
	t.Setenv("POST_PAYMENT_MAX_RETRIES", "x")
	t.Setenv("KAFKA_TLS", "true")
	t.Setenv("KAFKA_SASL_MECHANISM", "SCRAM-SHA-512")
	t.Setenv("GRPC_REFLECTION", "maybe")
	t.Setenv("LOG_SOURCE", "true")

	cfg := Load()

	assert.Equal(t, "memory", cfg.Storage)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Payment.DefaultPenalty.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "snapshot", cfg.Payment.PromotionFlagSource)
	assert.Equal(t, 3*time.Second, cfg.Payment.OperationTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Redis.RateTTL, "unparsable values fall back")
	assert.Equal(t, 5, cfg.Payment.MaxRetries)
	assert.True(t, cfg.Kafka.TLS)
	assert.Equal(t, "SCRAM-SHA-512", cfg.Kafka.SASLMechanism)
	assert.False(t, cfg.TLS.Reflection)
	assert.True(t, cfg.Log.AddSource)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Load()
		cfg.Storage = "memory"
		cfg.JWT.Secret = "s3cret"
		cfg.Payment.PromotionFlagSource = "live"
		cfg.Payment.DefaultPenalty = decimal.NewFromInt(10)
		return cfg
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown storage", func(c *Config) { c.Storage = "sqlite" }},
		{"postgres without credentials", func(c *Config) { c.Storage = "postgres"; c.DB.Password = ""; c.DB.URL = "" }},
		{"negative penalty", func(c *Config) { c.Payment.DefaultPenalty = decimal.NewFromInt(-1) }},
		{"unknown promotion source", func(c *Config) { c.Payment.PromotionFlagSource = "cache" }},
		{"no jwt key", func(c *Config) { c.JWT.Secret = ""; c.JWT.PublicKeyFile = "" }},
		{"tls cert without key", func(c *Config) { c.TLS.CertFile = "server.pem"; c.TLS.KeyFile = "" }},
		{"client CA without server pair", func(c *Config) { c.TLS.ClientCAFile = "ca.pem"; c.TLS.CertFile = ""; c.TLS.KeyFile = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
