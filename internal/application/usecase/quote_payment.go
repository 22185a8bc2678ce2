package usecase

import (
	"context"
	"fmt"

	"github.com/jmaisinchop/app-renattos/internal/application/dto"
	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	"github.com/jmaisinchop/app-renattos/internal/domain/port"
	"github.com/jmaisinchop/app-renattos/internal/domain/valueobject"
)

// QuotePaymentUseCase shows the operator what an installment owes on a given
// date without posting anything.
type QuotePaymentUseCase struct {
	sales  port.SaleRepository
	rates  port.RateFactorRepository
	policy Policy
}

// NewQuotePaymentUseCase wires dependencies.
func NewQuotePaymentUseCase(sales port.SaleRepository, rates port.RateFactorRepository, policy Policy) *QuotePaymentUseCase {
	return &QuotePaymentUseCase{sales: sales, rates: rates, policy: policy}
}

// Execute evaluates penalty and promotion for the requested installment.
func (uc *QuotePaymentUseCase) Execute(ctx context.Context, req dto.QuotePaymentRequest) (dto.PaymentQuoteResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.PaymentQuoteResponse{}, err
	}
	paymentDate, err := valueobject.ParseDate(req.PaymentDate)
	if err != nil {
		return dto.PaymentQuoteResponse{}, apperror.ErrValidation.WithError(err)
	}

	ctx, cancel := uc.policy.withTimeout(ctx)
	defer cancel()

	sale, err := uc.sales.FindByID(ctx, req.SaleID)
	if err != nil {
		return dto.PaymentQuoteResponse{}, fmt.Errorf("find sale: %w", err)
	}
	offered, err := promotionOffered(ctx, uc.rates, uc.policy.PromotionSource, sale)
	if err != nil {
		return dto.PaymentQuoteResponse{}, err
	}
	q, err := sale.QuotePayment(req.InstallmentNumber, paymentDate, offered, uc.policy.Terms)
	if err != nil {
		return dto.PaymentQuoteResponse{}, fmt.Errorf("quote payment: %w", err)
	}
	inst, _ := sale.Installment(req.InstallmentNumber)

	return dto.PaymentQuoteResponse{
		SaleID:                sale.ID(),
		InstallmentNumber:     q.InstallmentNumber,
		IsLastInstallment:     q.IsLastInstallment,
		DueDate:               q.DueDate.String(),
		DaysLate:              q.DaysLate,
		CapitalOutstanding:    q.CapitalOutstanding,
		PenaltyApplicable:     q.PenaltyApplicable,
		Penalty:               q.Penalty,
		DefaultPenalty:        uc.policy.Terms.DefaultPenalty,
		FreePromotionEligible: q.FreePromotionEligible,
		SuggestedTotal:        q.SuggestedTotal,
		Status:                inst.Status.String(),
	}, nil
}
