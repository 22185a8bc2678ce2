package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	"github.com/jmaisinchop/app-renattos/internal/domain/event"
	"github.com/jmaisinchop/app-renattos/pkg/events"
)

// ---------------------------------------------------------------------------
// RateFactor entity (rate table row)
// ---------------------------------------------------------------------------

// RateFactor maps a tenor to the multipliers used to price its installments.
// It is immutable; mutations return a new copy.
type RateFactor struct {
	id                  string
	tenorMonths         int
	termFactor          decimal.Decimal
	rateFactor          decimal.Decimal
	lastInstallmentFree bool
	version             int
	createdAt           time.Time
	updatedAt           time.Time
	events              events.EventCollector
}

// NewRateFactor validates and creates a rate table entry.
func NewRateFactor(tenorMonths int, termFactor, rateFactor decimal.Decimal, lastInstallmentFree bool, now time.Time) (RateFactor, error) {
	if err := validateRateFactor(tenorMonths, termFactor, rateFactor); err != nil {
		return RateFactor{}, err
	}
	r := RateFactor{
		id:                  uuid.New().String(),
		tenorMonths:         tenorMonths,
		termFactor:          termFactor,
		rateFactor:          rateFactor,
		lastInstallmentFree: lastInstallmentFree,
		version:             1,
		createdAt:           now,
		updatedAt:           now,
	}
	r.events.Record(event.NewRateFactorChanged(r.id, tenorMonths, r.version, event.RateFactorSaved))
	return r, nil
}

// ReconstructRateFactor rebuilds a RateFactor from persistence.
func ReconstructRateFactor(
	id string,
	tenorMonths int,
	termFactor, rateFactor decimal.Decimal,
	lastInstallmentFree bool,
	version int,
	createdAt, updatedAt time.Time,
) RateFactor {
	return RateFactor{
		id:                  id,
		tenorMonths:         tenorMonths,
		termFactor:          termFactor,
		rateFactor:          rateFactor,
		lastInstallmentFree: lastInstallmentFree,
		version:             version,
		createdAt:           createdAt,
		updatedAt:           updatedAt,
	}
}

// Update returns a copy carrying the new values.
func (r RateFactor) Update(tenorMonths int, termFactor, rateFactor decimal.Decimal, lastInstallmentFree bool, now time.Time) (RateFactor, error) {
	if err := validateRateFactor(tenorMonths, termFactor, rateFactor); err != nil {
		return r, err
	}
	next := r
	next.tenorMonths = tenorMonths
	next.termFactor = termFactor
	next.rateFactor = rateFactor
	next.lastInstallmentFree = lastInstallmentFree
	next.updatedAt = now
	next.events.Record(event.NewRateFactorChanged(r.id, tenorMonths, r.version+1, event.RateFactorSaved))
	return next, nil
}

// Deleted returns a copy that records the removal event.
func (r RateFactor) Deleted() RateFactor {
	next := r
	next.events.Record(event.NewRateFactorChanged(r.id, r.tenorMonths, r.version+1, event.RateFactorDeleted))
	return next
}

func validateRateFactor(tenorMonths int, termFactor, rateFactor decimal.Decimal) error {
	if tenorMonths <= 0 {
		return apperror.ErrValidation.Withf("tenor months must be positive, got %d", tenorMonths)
	}
	if termFactor.IsNegative() {
		return apperror.ErrValidation.Withf("term factor must not be negative")
	}
	if rateFactor.IsNegative() {
		return apperror.ErrValidation.Withf("rate factor must not be negative")
	}
	return nil
}

// Snapshot captures the values a sale keeps for the lifetime of its schedule.
func (r RateFactor) Snapshot() RateSnapshot {
	return RateSnapshot{
		RateFactorID:        r.id,
		TenorMonths:         r.tenorMonths,
		TermFactor:          r.termFactor,
		RateFactor:          r.rateFactor,
		LastInstallmentFree: r.lastInstallmentFree,
	}
}

func (r RateFactor) ID() string { return r.id }
func (r RateFactor) TenorMonths() int { return r.tenorMonths }
func (r RateFactor) TermFactor() decimal.Decimal { return r.termFactor }
func (r RateFactor) RateFactor() decimal.Decimal { return r.rateFactor }
func (r RateFactor) LastInstallmentFree() bool { return r.lastInstallmentFree }
func (r RateFactor) Version() int { return r.version }
func (r RateFactor) CreatedAt() time.Time { return r.createdAt }
func (r RateFactor) UpdatedAt() time.Time { return r.updatedAt }
func (r RateFactor) DomainEvents() []event.DomainEvent { return r.events.Events() }

// RateSnapshot is the copy of a rate table entry frozen into a sale.
type RateSnapshot struct {
	RateFactorID        string
	TenorMonths         int
	TermFactor          decimal.Decimal
	RateFactor          decimal.Decimal
	LastInstallmentFree bool
}

func (s RateSnapshot) IsZero() bool { return s.RateFactorID == "" && s.TenorMonths == 0 }
