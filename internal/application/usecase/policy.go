package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	"github.com/jmaisinchop/app-renattos/internal/domain/model"
	"github.com/jmaisinchop/app-renattos/internal/domain/port"
	"github.com/jmaisinchop/app-renattos/pkg/money"
)

// PromotionFlagSource selects where the last-installment-free flag is read
// from when a payment is evaluated.
type PromotionFlagSource string

const (
	// PromotionFlagLive re-reads the rate table entry the sale was priced with.
	PromotionFlagLive PromotionFlagSource = "live"
	// PromotionFlagSnapshot uses the flag frozen into the sale at creation.
	PromotionFlagSnapshot PromotionFlagSource = "snapshot"
)

// Policy holds the collection rules and operational limits shared by the
// payment use cases.
type Policy struct {
	Terms            model.PaymentTerms
	PromotionSource  PromotionFlagSource
	Currency         money.Currency
	OperationTimeout time.Duration
	MaxRetries       uint64
}

// DefaultPolicy returns the store's standard rules.
func DefaultPolicy() Policy {
	return Policy{
		Terms:            model.DefaultPaymentTerms(),
		PromotionSource:  PromotionFlagLive,
		Currency:         money.USD,
		OperationTimeout: 10 * time.Second,
		MaxRetries:       5,
	}
}

func (p Policy) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.OperationTimeout)
}

// promotionOffered resolves the current value of the last-installment-free
// flag for sale. A rate table entry deleted since the sale was made no longer
// offers the promotion.
func promotionOffered(ctx context.Context, rates port.RateFactorRepository, source PromotionFlagSource, sale model.Sale) (bool, error) {
	snapshot := sale.Rate()
	if source == PromotionFlagSnapshot || snapshot.RateFactorID == "" {
		return snapshot.LastInstallmentFree, nil
	}
	rf, err := rates.FindByID(ctx, snapshot.RateFactorID)
	if errors.Is(err, apperror.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find rate factor: %w", err)
	}
	return rf.LastInstallmentFree(), nil
}
