// Package messaging moves domain events between the outbox table and Kafka.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jmaisinchop/app-renattos/pkg/events"
	"github.com/jmaisinchop/app-renattos/pkg/kafka"
)

// Publisher is the slice of the Kafka producer the relay needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, messages ...kafka.Message) error
}

// Message headers set on every relayed event.
const (
	HeaderEventID       = "event_id"
	HeaderEventType     = "event_type"
	HeaderAggregateType = "aggregate_type"
)

// OutboxRelay polls the outbox and publishes unpublished entries, oldest
// first, keyed by aggregate id. Entries are marked published only after the
// broker acknowledged them, so delivery is at least once.
type OutboxRelay struct {
	outbox    events.OutboxReader
	publisher Publisher
	topic     string
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
	retry     func() backoff.BackOff
}

// NewOutboxRelay creates a relay that drains up to batchSize entries every interval.
func NewOutboxRelay(outbox events.OutboxReader, publisher Publisher, topic string, batchSize int, interval time.Duration, logger *slog.Logger) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &OutboxRelay{
		outbox:    outbox,
		publisher: publisher,
		topic:     topic,
		batchSize: batchSize,
		interval:  interval,
		logger:    logger,
		retry: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return backoff.WithMaxRetries(b, 5)
		},
	}
}

// Run drains the outbox until ctx is canceled.
func (r *OutboxRelay) Run(ctx context.Context) error {
	r.logger.Info("outbox relay starting", "topic", r.topic, "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		for {
			n, err := r.RelayOnce(ctx)
			if err != nil {
				r.logger.Error("outbox relay failed", "error", err)
				break
			}
			if n < r.batchSize {
				break
			}
		}

		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// RelayOnce publishes one batch and returns how many entries it published.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	entries, err := r.outbox.FetchUnpublished(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	messages := make([]kafka.Message, len(entries))
	ids := make([]string, len(entries))
	for i, e := range entries {
		messages[i] = toMessage(e)
		ids[i] = e.ID
	}

	publish := func() error { return r.publisher.Publish(ctx, r.topic, messages...) }
	if err := backoff.Retry(publish, backoff.WithContext(r.retry(), ctx)); err != nil {
		return 0, fmt.Errorf("publish %d outbox entries: %w", len(entries), err)
	}

	if err := r.outbox.MarkPublished(ctx, ids); err != nil {
		return 0, fmt.Errorf("mark outbox published: %w", err)
	}
	r.logger.Debug("outbox batch relayed", "count", len(entries))
	return len(entries), nil
}

func toMessage(e events.OutboxEntry) kafka.Message {
	return kafka.Message{
		Key:   []byte(e.AggregateID),
		Value: e.Payload,
		Headers: map[string]string{
			HeaderEventID:       e.ID,
			HeaderEventType:     e.EventType,
			HeaderAggregateType: e.AggregateType,
		},
	}
}
