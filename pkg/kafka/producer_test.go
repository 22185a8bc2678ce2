package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/cenkalti/backoff/v4"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092", "localhost:9093"}, ClientID: "credit-service"})
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:9092", "localhost:9093"}, p.brokers)
	assert.Empty(t, p.writers)
	assert.Equal(t, "credit-service", p.transport.ClientID)
	assert.Nil(t, p.transport.SASL)
}

func TestNewProducer_UnsupportedSASL(t *testing.T) {
	_, err := NewProducer(Config{Brokers: []string{"kafka:9092"}, SASLEnabled: true, SASLMechanism: "GSSAPI"})
	assert.Error(t, err)
}

func TestSASLMechanism(t *testing.T) {
	tests := []struct {
		name      string
		mechanism string
		want      string
	}{
		{"defaults to plain", "", "PLAIN"},
		{"plain", "PLAIN", "PLAIN"},
		{"scram 256", "SCRAM-SHA-256", "SCRAM-SHA-256"},
		{"scram 512", "SCRAM-SHA-512", "SCRAM-SHA-512"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{SASLEnabled: true, SASLMechanism: tt.mechanism, SASLUsername: "svc", SASLPassword: "pw"}
			m, err := cfg.saslMechanism()
			require.NoError(t, err)
			require.NotNil(t, m)
			assert.Equal(t, tt.want, m.Name())
		})
	}

	t.Run("disabled yields no mechanism", func(t *testing.T) {
		m, err := Config{SASLMechanism: "PLAIN"}.saslMechanism()
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("plain carries credentials", func(t *testing.T) {
		m, err := Config{SASLEnabled: true, SASLUsername: "svc", SASLPassword: "pw"}.saslMechanism()
		require.NoError(t, err)
		assert.Equal(t, plain.Mechanism{Username: "svc", Password: "pw"}, m)
	})
}

func TestTLSConfig(t *testing.T) {
	assert.Nil(t, Config{}.tlsConfig())
	assert.NotNil(t, Config{TLS: true}.tlsConfig())
}

func TestMessageConversion(t *testing.T) {
	in := []Message{{
		Key:     []byte("sale-1"),
		Value:   []byte(`{"installment_number":1}`),
		Headers: map[string]string{"event_type": "credit.installment.payment_posted"},
	}}

	km := toKafkaMessages(in)
	require.Len(t, km, 1)
	assert.Equal(t, []byte("sale-1"), km[0].Key)
	require.Len(t, km[0].Headers, 1)
	assert.Equal(t, "event_type", km[0].Headers[0].Key)

	back := fromKafkaMessage(km[0])
	assert.Equal(t, in[0], back)
}

func TestGetOrCreateWriter(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)

	w1 := p.getOrCreateWriter("credit-events")
	w2 := p.getOrCreateWriter("credit-events")
	w3 := p.getOrCreateWriter("credit-audit")

	assert.Same(t, w1, w2)
	assert.NotSame(t, w1, w3)
	assert.IsType(t, &kafkago.Hash{}, w1.Balancer)
	assert.Len(t, p.writers, 2)

	require.NoError(t, p.Close())
	assert.Empty(t, p.writers)
}

func TestPublish_NoMessages(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), "credit-events"))
	assert.Empty(t, p.writers)
}

func TestConsumerHandle_RetriesThenGivesUp(t *testing.T) {
	calls := 0
	c := &Consumer{
		handler: func(context.Context, Message) error {
			calls++
			return errors.New("cache unavailable")
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		retry: func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, HandlerRetries)
		},
	}

	err := c.handle(context.Background(), Message{})
	assert.Error(t, err)
	assert.Equal(t, HandlerRetries+1, calls)
}

func TestConsumerHandle_SucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	c := &Consumer{
		handler: func(context.Context, Message) error {
			calls++
			if calls == 1 {
				return errors.New("transient")
			}
			return nil
		},
		retry: func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, HandlerRetries)
		},
	}

	require.NoError(t, c.handle(context.Background(), Message{}))
	assert.Equal(t, 2, calls)
}
