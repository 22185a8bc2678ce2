package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmaisinchop/app-renattos/internal/infrastructure/cache"
	"github.com/jmaisinchop/app-renattos/internal/infrastructure/config"
	"github.com/jmaisinchop/app-renattos/internal/infrastructure/messaging"
	"github.com/jmaisinchop/app-renattos/pkg/auth"
	"github.com/jmaisinchop/app-renattos/pkg/events"
	pkgkafka "github.com/jmaisinchop/app-renattos/pkg/kafka"
)

const outboxBatchSize = 100

// startMessaging runs the outbox relay and, when the rate table is cached,
// the consumer that evicts entries changed by other instances. The returned
// stop function cancels both and waits for them to exit.
func startMessaging(ctx context.Context, cfg config.Config, outbox events.OutboxReader, rateCache *cache.RateFactorRepository, logger *slog.Logger) (func(), error) {
	kcfg := pkgkafka.Config{
		Brokers:       cfg.Kafka.Brokers,
		ClientID:      cfg.ServiceName,
		ConsumerGroup: cfg.Kafka.ConsumerGroup,
		TLS:           cfg.Kafka.TLS,
		SASLEnabled:   cfg.Kafka.SASLMechanism != "",
		SASLMechanism: cfg.Kafka.SASLMechanism,
		SASLUsername:  cfg.Kafka.SASLUsername,
		SASLPassword:  cfg.Kafka.SASLPassword,
	}

	producer, err := pkgkafka.NewProducer(kcfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	var consumer *pkgkafka.Consumer
	if rateCache != nil {
		listener := messaging.NewRateFactorListener(rateCache, logger)
		consumer, err = pkgkafka.NewConsumer(kcfg, cfg.Kafka.Topic, listener.Handle, logger)
		if err != nil {
			_ = producer.Close()
			return nil, fmt.Errorf("create kafka consumer: %w", err)
		}
	}

	workerCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	relay := messaging.NewOutboxRelay(outbox, producer, cfg.Kafka.Topic, outboxBatchSize, cfg.OutboxPoll, logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := relay.Run(workerCtx); err != nil {
			logger.Error("outbox relay stopped", "error", err)
		}
	}()

	if consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Start(workerCtx); err != nil {
				logger.Error("rate factor consumer stopped", "error", err)
			}
		}()
	}

	return func() {
		cancel()
		wg.Wait()
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				logger.Warn("kafka consumer close", "error", err)
			}
		}
		if err := producer.Close(); err != nil {
			logger.Warn("kafka producer close", "error", err)
		}
	}, nil
}

// newJWTService builds a validation-only service: a public key when one is
// configured, the shared HMAC secret otherwise.
func newJWTService(cfg config.JWTConfig) (*auth.JWTService, error) {
	jwtCfg := auth.JWTConfig{Issuer: cfg.Issuer, Expiration: time.Hour}
	if cfg.PublicKeyFile != "" {
		keyData, err := auth.LoadKeyFromFile(cfg.PublicKeyFile)
		if err != nil {
			return nil, err
		}
		jwtCfg.PublicKeyPEM = string(keyData)
	} else {
		jwtCfg.Secret = cfg.Secret
	}
	return auth.NewJWTService(jwtCfg)
}
