package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jmaisinchop/app-renattos/internal/domain/event"
	"github.com/jmaisinchop/app-renattos/pkg/kafka"
)

// RateFactorInvalidator drops cached copies of a rate table entry.
type RateFactorInvalidator interface {
	Invalidate(ctx context.Context, rateFactorID string, tenorMonths, minVersion int)
}

// RateFactorListener evicts cached rate table entries when any instance
// announces a change, so every instance reads the live promotion flag.
type RateFactorListener struct {
	cache  RateFactorInvalidator
	logger *slog.Logger
}

func NewRateFactorListener(cache RateFactorInvalidator, logger *slog.Logger) *RateFactorListener {
	return &RateFactorListener{cache: cache, logger: logger}
}

// Handle is a kafka.Handler. Messages of other event types are ignored.
func (l *RateFactorListener) Handle(ctx context.Context, msg kafka.Message) error {
	if msg.Headers[HeaderEventType] != event.TypeRateFactorChanged {
		return nil
	}

	var changed event.RateFactorChanged
	if err := json.Unmarshal(msg.Value, &changed); err != nil {
		l.logger.WarnContext(ctx, "dropping undecodable rate factor event", "error", err)
		return nil
	}
	if changed.AggregateID() == "" {
		l.logger.WarnContext(ctx, "dropping rate factor event without aggregate id", "event_id", changed.EventID())
		return nil
	}

	l.cache.Invalidate(ctx, changed.AggregateID(), changed.TenorMonths, changed.Version)
	l.logger.DebugContext(ctx, "rate factor cache invalidated",
		"rate_factor_id", changed.AggregateID(),
		"tenor_months", changed.TenorMonths,
		"version", changed.Version,
		"action", changed.Action,
	)
	return nil
}
