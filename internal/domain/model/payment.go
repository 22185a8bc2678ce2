package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	"github.com/jmaisinchop/app-renattos/internal/domain/event"
	"github.com/jmaisinchop/app-renattos/internal/domain/valueobject"
	"github.com/jmaisinchop/app-renattos/pkg/money"
)

const (
	// GracePeriodDays is how many days after the due date a payment still
	// counts as on time, for both the late penalty and the free promotion.
	GracePeriodDays = 5
)

// DefaultPenaltyAmount is the late fee suggested to the operator.
var DefaultPenaltyAmount = decimal.NewFromInt(10)

// PaymentTerms are the collection policy knobs applied when posting.
type PaymentTerms struct {
	GracePeriodDays int
	DefaultPenalty  decimal.Decimal
}

// DefaultPaymentTerms returns the store's standard policy.
func DefaultPaymentTerms() PaymentTerms {
	return PaymentTerms{GracePeriodDays: GracePeriodDays, DefaultPenalty: DefaultPenaltyAmount}
}

// PaymentQuote is what an operator is shown before confirming a payment.
type PaymentQuote struct {
	InstallmentNumber     int
	IsLastInstallment     bool
	DueDate               valueobject.Date
	DaysLate              int
	CapitalOutstanding    decimal.Decimal
	PenaltyApplicable     bool
	Penalty               decimal.Decimal
	FreePromotionEligible bool
	SuggestedTotal        decimal.Decimal
}

// PaymentCommand is a tender against one installment.
type PaymentCommand struct {
	TransactionID     string
	InstallmentNumber int
	Amount            decimal.Decimal
	PaymentDate       valueobject.Date
	// PenaltyOverride replaces the default late fee when one applies. It is
	// ignored for on-time payments.
	PenaltyOverride *decimal.Decimal
	Reference       string
	OperatorID      string
}

// PostingResult describes what a single posting did to its installment.
type PostingResult struct {
	Quote                PaymentQuote
	Transaction          PaymentTransaction
	InstallmentBefore    Installment
	InstallmentAfter     Installment
	FreePromotionGranted bool
}

// QuotePayment evaluates penalty and promotion for a payment on the given
// date without changing the sale. promotionOffered is the current value of
// the rate table's last-installment-free flag.
func (s Sale) QuotePayment(number int, paymentDate valueobject.Date, promotionOffered bool, terms PaymentTerms) (PaymentQuote, error) {
	if !s.paymentType.IsFinanced() {
		return PaymentQuote{}, apperror.ErrValidation.Withf("sale %s is not financed", s.id)
	}
	idx, ok := s.indexOf(number)
	if !ok {
		return PaymentQuote{}, apperror.ErrNotFound.Withf("installment %d not found in sale %s", number, s.id)
	}
	if paymentDate.IsZero() {
		return PaymentQuote{}, apperror.ErrValidation.Withf("payment date is required")
	}
	return s.quote(idx, paymentDate, promotionOffered, terms), nil
}

func (s Sale) quote(idx int, paymentDate valueobject.Date, promotionOffered bool, terms PaymentTerms) PaymentQuote {
	inst := s.installments[idx]
	q := PaymentQuote{
		InstallmentNumber:  inst.Number,
		IsLastInstallment:  inst.Number == len(s.installments),
		DueDate:            inst.DueDate,
		DaysLate:           max(0, paymentDate.DaysSince(inst.DueDate)),
		CapitalOutstanding: decimal.Zero,
		Penalty:            decimal.Zero,
		SuggestedTotal:     decimal.Zero,
	}
	if inst.Status.IsPaid() {
		return q
	}

	q.FreePromotionEligible = q.IsLastInstallment &&
		promotionOffered &&
		!inst.FreePromotionApplied &&
		inst.CapitalOutstanding().IsPositive() &&
		s.priorInstallmentsPunctual(idx, terms.GracePeriodDays)

	effectiveDue := inst.EffectiveCapitalDue()
	if q.FreePromotionEligible {
		effectiveDue = decimal.Zero
	} else {
		q.CapitalOutstanding = inst.CapitalOutstanding()
	}

	if effectiveDue.IsPositive() && q.DaysLate > terms.GracePeriodDays {
		q.PenaltyApplicable = true
		q.Penalty = terms.DefaultPenalty
	}

	q.SuggestedTotal = q.CapitalOutstanding.Add(q.Penalty)
	return q
}

// priorInstallmentsPunctual reports whether every installment before idx is
// paid and was last paid within the grace period.
func (s Sale) priorInstallmentsPunctual(idx, graceDays int) bool {
	for _, prior := range s.installments[:idx] {
		if !prior.PaidWithinGrace(graceDays) {
			return false
		}
	}
	return true
}

// PostPayment applies a tender to one installment and returns the updated
// sale. The penalty is settled before capital. The free promotion, once
// granted, is permanent. Cumulative paid capital never decreases and a paid
// installment accepts no further postings.
func (s Sale) PostPayment(cmd PaymentCommand, promotionOffered bool, terms PaymentTerms, now time.Time) (Sale, PostingResult, error) {
	if cmd.TransactionID == "" {
		return s, PostingResult{}, apperror.ErrValidation.Withf("transaction id is required")
	}
	if cmd.OperatorID == "" {
		return s, PostingResult{}, apperror.ErrValidation.Withf("operator is required")
	}
	q, err := s.QuotePayment(cmd.InstallmentNumber, cmd.PaymentDate, promotionOffered, terms)
	if err != nil {
		return s, PostingResult{}, err
	}
	idx, _ := s.indexOf(cmd.InstallmentNumber)
	before := s.installments[idx]
	if before.Status.IsPaid() {
		return s, PostingResult{}, apperror.ErrInvalidAmount.Withf("installment %d is already paid", cmd.InstallmentNumber)
	}

	penalty := q.Penalty
	if q.PenaltyApplicable && cmd.PenaltyOverride != nil {
		if cmd.PenaltyOverride.IsNegative() {
			return s, PostingResult{}, apperror.ErrInvalidAmount.Withf("penalty must not be negative")
		}
		penalty = money.RoundCents(*cmd.PenaltyOverride)
	}
	balance := q.CapitalOutstanding.Add(penalty)

	amount := cmd.Amount
	switch {
	case amount.IsNegative():
		return s, PostingResult{}, apperror.ErrInvalidAmount.Withf("amount must not be negative")
	case money.Exceeds(amount, balance):
		return s, PostingResult{}, apperror.ErrInvalidAmount.Withf("amount %s exceeds balance due %s",
			amount.StringFixed(2), balance.StringFixed(2))
	case !balance.IsPositive() && amount.IsPositive():
		return s, PostingResult{}, apperror.ErrInvalidAmount.Withf("nothing is due on installment %d, only a zero amount can be recorded",
			cmd.InstallmentNumber)
	case balance.IsPositive() && !amount.IsPositive():
		return s, PostingResult{}, apperror.ErrInvalidAmount.Withf("amount must be greater than zero while %s is due",
			balance.StringFixed(2))
	}
	if amount.GreaterThan(balance) {
		amount = balance
	}

	penaltyPortion := decimal.Min(amount, penalty)
	capitalPortion := amount.Sub(penaltyPortion)

	next := s.clone()
	inst := next.installments[idx]
	if q.FreePromotionEligible {
		inst.FreePromotionApplied = true
	}
	inst.CumulativePaidCapital = inst.CumulativePaidCapital.Add(capitalPortion)
	status := inst.statusFor()
	if status.IsPaid() && !inst.FreePromotionApplied && inst.CumulativePaidCapital.GreaterThan(inst.DueAmount) {
		// Absorb a sub-tolerance overshoot so the installment reads exactly settled.
		inst.CumulativePaidCapital = inst.DueAmount
	}
	if !before.Status.CanTransitionTo(status) {
		return s, PostingResult{}, valueobject.ErrStatusRegression
	}
	inst.Status = status

	tx := PaymentTransaction{
		TransactionID:        cmd.TransactionID,
		PaymentDate:          cmd.PaymentDate,
		TotalAmount:          amount,
		PenaltyPortion:       penaltyPortion,
		CapitalPortion:       capitalPortion,
		FreePromotionApplied: q.FreePromotionEligible,
		PenaltyCharged:       penalty,
		BalanceBefore:        balance,
		Reference:            cmd.Reference,
		OperatorID:           cmd.OperatorID,
		RecordedAt:           now,
	}
	inst.Transactions = append(inst.Transactions, tx)
	next.installments[idx] = inst
	next.updatedAt = now
	next.pendingLedger = append(next.pendingLedger, LedgerEntry{
		SaleID:            s.id,
		InstallmentNumber: inst.Number,
		Transaction:       tx,
	})

	next.events.Record(event.NewInstallmentPaymentPosted(
		s.id, inst.Number, tx.TransactionID, tx.PaymentDate.String(),
		tx.TotalAmount, tx.PenaltyPortion, tx.CapitalPortion, tx.FreePromotionApplied,
		inst.Status.String(), tx.OperatorID,
	))
	if q.FreePromotionEligible {
		next.events.Record(event.NewFreeInstallmentGranted(s.id, inst.Number, before.CapitalOutstanding()))
	}
	if inst.Status.IsPaid() {
		next.events.Record(event.NewInstallmentSettled(s.id, inst.Number))
		if !next.HasOpenInstallments() {
			next.events.Record(event.NewSaleFullyPaid(s.id, s.client.ID))
		}
	}

	return next, PostingResult{
		Quote:                q,
		Transaction:          tx,
		InstallmentBefore:    before.clone(),
		InstallmentAfter:     inst.clone(),
		FreePromotionGranted: q.FreePromotionEligible,
	}, nil
}

// BalanceBefore is the total that was due on the installment when the payment was taken.
func (r PostingResult) BalanceBefore() decimal.Decimal { return r.Transaction.BalanceBefore }

// BalanceAfter is what remains due on the installment after the payment.
func (r PostingResult) BalanceAfter() decimal.Decimal { return r.Transaction.BalanceAfter() }
