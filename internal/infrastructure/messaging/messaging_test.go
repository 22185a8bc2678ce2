package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmaisinchop/app-renattos/internal/domain/event"
	"github.com/jmaisinchop/app-renattos/pkg/events"
	"github.com/jmaisinchop/app-renattos/pkg/kafka"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockOutbox struct {
	fetchFunc func(ctx context.Context, batchSize int) ([]events.OutboxEntry, error)
	marked    [][]string
}

func (m *mockOutbox) FetchUnpublished(ctx context.Context, batchSize int) ([]events.OutboxEntry, error) {
	return m.fetchFunc(ctx, batchSize)
}

func (m *mockOutbox) MarkPublished(_ context.Context, ids []string) error {
	m.marked = append(m.marked, ids)
	return nil
}

type mockPublisher struct {
	publishFunc func(ctx context.Context, topic string, messages ...kafka.Message) error
}

func (m *mockPublisher) Publish(ctx context.Context, topic string, messages ...kafka.Message) error {
	return m.publishFunc(ctx, topic, messages...)
}

func outboxEntries(t *testing.T) []events.OutboxEntry {
	t.Helper()
	entries, err := events.NewOutboxEntries([]events.DomainEvent{
		event.NewRateFactorChanged("rf-6", 6, 2, event.RateFactorSaved),
		event.NewRateFactorChanged("rf-12", 12, 4, event.RateFactorDeleted),
	})
	require.NoError(t, err)
	return entries
}

func noRetry() backoff.BackOff {
	return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
}

func TestOutboxRelay_RelayOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes keyed messages then marks them", func(t *testing.T) {
		entries := outboxEntries(t)
		outbox := &mockOutbox{fetchFunc: func(_ context.Context, batch int) ([]events.OutboxEntry, error) {
			assert.Equal(t, 50, batch)
			return entries, nil
		}}
		var published []kafka.Message
		pub := &mockPublisher{publishFunc: func(_ context.Context, topic string, msgs ...kafka.Message) error {
			assert.Equal(t, "credit-events", topic)
			published = msgs
			return nil
		}}
		relay := NewOutboxRelay(outbox, pub, "credit-events", 50, time.Second, discardLogger())

		n, err := relay.RelayOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		require.Len(t, published, 2)
		assert.Equal(t, []byte("rf-6"), published[0].Key)
		assert.Equal(t, event.TypeRateFactorChanged, published[0].Headers[HeaderEventType])
		assert.Equal(t, entries[0].ID, published[0].Headers[HeaderEventID])
		assert.Equal(t, "RateFactor", published[0].Headers[HeaderAggregateType])
		assert.Equal(t, [][]string{{entries[0].ID, entries[1].ID}}, outbox.marked)
	})

	t.Run("retries transient broker failures", func(t *testing.T) {
		outbox := &mockOutbox{fetchFunc: func(context.Context, int) ([]events.OutboxEntry, error) {
			return outboxEntries(t), nil
		}}
		attempts := 0
		pub := &mockPublisher{publishFunc: func(context.Context, string, ...kafka.Message) error {
			attempts++
			if attempts < 2 {
				return errors.New("leader not available")
			}
			return nil
		}}
		relay := NewOutboxRelay(outbox, pub, "credit-events", 10, time.Second, discardLogger())
		relay.retry = noRetry

		n, err := relay.RelayOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, 2, attempts)
	})

	t.Run("unpublished entries stay unmarked", func(t *testing.T) {
		outbox := &mockOutbox{fetchFunc: func(context.Context, int) ([]events.OutboxEntry, error) {
			return outboxEntries(t), nil
		}}
		pub := &mockPublisher{publishFunc: func(context.Context, string, ...kafka.Message) error {
			return errors.New("broker down")
		}}
		relay := NewOutboxRelay(outbox, pub, "credit-events", 10, time.Second, discardLogger())
		relay.retry = noRetry

		_, err := relay.RelayOnce(ctx)
		assert.Error(t, err)
		assert.Empty(t, outbox.marked)
	})

	t.Run("empty outbox publishes nothing", func(t *testing.T) {
		outbox := &mockOutbox{fetchFunc: func(context.Context, int) ([]events.OutboxEntry, error) { return nil, nil }}
		pub := &mockPublisher{publishFunc: func(context.Context, string, ...kafka.Message) error {
			t.Fatal("publish should not be called")
			return nil
		}}
		relay := NewOutboxRelay(outbox, pub, "credit-events", 10, time.Second, discardLogger())

		n, err := relay.RelayOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestOutboxRelay_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	outbox := &mockOutbox{fetchFunc: func(context.Context, int) ([]events.OutboxEntry, error) {
		once.Do(cancel)
		return nil, nil
	}}
	relay := NewOutboxRelay(outbox, &mockPublisher{}, "credit-events", 10, 10*time.Millisecond, discardLogger())

	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}

type recordingInvalidator struct {
	ids      []string
	tenors   []int
	versions []int
}

func (r *recordingInvalidator) Invalidate(_ context.Context, id string, tenor, minVersion int) {
	r.ids = append(r.ids, id)
	r.tenors = append(r.tenors, tenor)
	r.versions = append(r.versions, minVersion)
}

func TestRateFactorListener_Handle(t *testing.T) {
	ctx := context.Background()
	changed := event.NewRateFactorChanged("rf-6", 6, 3, event.RateFactorSaved)
	payload, err := json.Marshal(changed)
	require.NoError(t, err)

	t.Run("invalidates on rate factor change", func(t *testing.T) {
		inv := &recordingInvalidator{}
		l := NewRateFactorListener(inv, discardLogger())

		err := l.Handle(ctx, kafka.Message{
			Value:   payload,
			Headers: map[string]string{HeaderEventType: event.TypeRateFactorChanged},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"rf-6"}, inv.ids)
		assert.Equal(t, []int{6}, inv.tenors)
		assert.Equal(t, []int{3}, inv.versions)
	})

	t.Run("ignores other event types", func(t *testing.T) {
		inv := &recordingInvalidator{}
		l := NewRateFactorListener(inv, discardLogger())

		err := l.Handle(ctx, kafka.Message{
			Value:   payload,
			Headers: map[string]string{HeaderEventType: event.TypeSaleRegistered},
		})
		require.NoError(t, err)
		assert.Empty(t, inv.ids)
	})

	t.Run("skips undecodable payloads", func(t *testing.T) {
		inv := &recordingInvalidator{}
		l := NewRateFactorListener(inv, discardLogger())

		err := l.Handle(ctx, kafka.Message{
			Value:   []byte("{"),
			Headers: map[string]string{HeaderEventType: event.TypeRateFactorChanged},
		})
		require.NoError(t, err)
		assert.Empty(t, inv.ids)
	})
}
