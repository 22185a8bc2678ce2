package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	"github.com/jmaisinchop/app-renattos/internal/domain/event"
	"github.com/jmaisinchop/app-renattos/internal/domain/valueobject"
)

var txSeq int

func pay(number int, amount string, date valueobject.Date) PaymentCommand {
	txSeq++
	return PaymentCommand{
		TransactionID:     fmt.Sprintf("TXN-%04d", txSeq),
		InstallmentNumber: number,
		Amount:            decimal.RequireFromString(amount),
		PaymentDate:       date,
		OperatorID:        "cashier-1",
	}
}

func mustPost(t *testing.T, sale Sale, cmd PaymentCommand, promotionOffered bool) (Sale, PostingResult) {
	t.Helper()
	next, res, err := sale.PostPayment(cmd, promotionOffered, DefaultPaymentTerms(), testNow)
	require.NoError(t, err)
	return next, res
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var start = valueobject.NewDate(2025, time.January, 15)

func TestPostPayment_OnTimeNoPenalty(t *testing.T) {
	sale := newFinancedSale(t, 1000, testRate(12, "1.1", "0.09", false), start)
	require.True(t, sale.InstallmentAmount().Equal(dec("99")))

	next, res := mustPost(t, sale, pay(1, "99", start), false)

	assert.True(t, res.Transaction.CapitalPortion.Equal(dec("99")))
	assert.True(t, res.Transaction.PenaltyPortion.IsZero())
	assert.True(t, res.InstallmentAfter.Status.Equal(valueobject.InstallmentStatusPaid))
	assert.True(t, res.BalanceBefore().Equal(dec("99")))
	assert.True(t, res.BalanceAfter().IsZero())

	inst, _ := next.Installment(1)
	assert.True(t, inst.Status.IsPaid())
	assert.Len(t, inst.Transactions, 1)

	// The original value is untouched.
	orig, _ := sale.Installment(1)
	assert.True(t, orig.Status.Equal(valueobject.InstallmentStatusPending))
	assert.Empty(t, orig.Transactions)
}

func TestPostPayment_LateBeyondGrace(t *testing.T) {
	sale := newFinancedSale(t, 1000, testRate(12, "1.1", "0.09", false), start)
	due2 := start.AddMonthsClamped(1)
	late := due2.AddDays(6)

	q, err := sale.QuotePayment(2, late, false, DefaultPaymentTerms())
	require.NoError(t, err)
	assert.True(t, q.PenaltyApplicable)
	assert.Equal(t, 6, q.DaysLate)
	assert.True(t, q.Penalty.Equal(dec("10")))
	assert.True(t, q.SuggestedTotal.Equal(dec("109")))

	next, res := mustPost(t, sale, pay(2, "109", late), false)

	assert.True(t, res.Transaction.PenaltyPortion.Equal(dec("10")))
	assert.True(t, res.Transaction.CapitalPortion.Equal(dec("99")))
	inst, _ := next.Installment(2)
	assert.True(t, inst.Status.IsPaid())
	assert.True(t, inst.CumulativePaidCapital.Equal(dec("99")))
}

func TestQuotePayment_GraceBoundary(t *testing.T) {
	sale := newFinancedSale(t, 1000, testRate(12, "1.1", "0.09", false), start)
	due := start

	onTime, err := sale.QuotePayment(1, due.AddDays(5), false, DefaultPaymentTerms())
	require.NoError(t, err)
	assert.False(t, onTime.PenaltyApplicable, "exactly five days late is still within grace")
	assert.True(t, onTime.SuggestedTotal.Equal(dec("99")))

	early, err := sale.QuotePayment(1, due.AddDays(-10), false, DefaultPaymentTerms())
	require.NoError(t, err)
	assert.Equal(t, 0, early.DaysLate)
	assert.False(t, early.PenaltyApplicable)
}

func TestPostPayment_PenaltyPaidBeforeCapital(t *testing.T) {
	sale := newFinancedSale(t, 1000, testRate(12, "1.1", "0.09", false), start)
	late := start.AddDays(20)

	next, res := mustPost(t, sale, pay(1, "7", late), false)
	assert.True(t, res.Transaction.PenaltyPortion.Equal(dec("7")))
	assert.True(t, res.Transaction.CapitalPortion.IsZero())
	inst, _ := next.Installment(1)
	assert.True(t, inst.Status.Equal(valueobject.InstallmentStatusPending))

	next, res = mustPost(t, next, pay(1, "50", late), false)
	// The late fee is evaluated again on each posting.
	assert.True(t, res.Transaction.PenaltyPortion.Equal(dec("10")))
	assert.True(t, res.Transaction.CapitalPortion.Equal(dec("40")))
	inst, _ = next.Installment(1)
	assert.True(t, inst.Status.Equal(valueobject.InstallmentStatusPartiallyPaid))
	assert.True(t, inst.CumulativePaidCapital.Equal(dec("40")))
}

func TestPostPayment_PenaltyOverride(t *testing.T) {
	sale := newFinancedSale(t, 1000, testRate(12, "1.1", "0.09", false), start)
	late := start.AddDays(30)

	t.Run("waived", func(t *testing.T) {
		cmd := pay(1, "99", late)
		zero := decimal.Zero
		cmd.PenaltyOverride = &zero

		_, res := mustPost(t, sale, cmd, false)
		assert.True(t, res.Transaction.PenaltyPortion.IsZero())
		assert.True(t, res.Transaction.PenaltyCharged.IsZero())
		assert.True(t, res.InstallmentAfter.Status.IsPaid())
	})

	t.Run("raised", func(t *testing.T) {
		cmd := pay(1, "124", late)
		raised := dec("25")
		cmd.PenaltyOverride = &raised

		_, res := mustPost(t, sale, cmd, false)
		assert.True(t, res.Transaction.PenaltyPortion.Equal(dec("25")))
		assert.True(t, res.Transaction.CapitalPortion.Equal(dec("99")))
	})

	t.Run("negative rejected", func(t *testing.T) {
		cmd := pay(1, "99", late)
		neg := dec("-1")
		cmd.PenaltyOverride = &neg

		_, _, err := sale.PostPayment(cmd, false, DefaultPaymentTerms(), testNow)
		assert.True(t, errors.Is(err, apperror.ErrInvalidAmount))
	})

	t.Run("ignored when on time", func(t *testing.T) {
		cmd := pay(1, "99", start)
		raised := dec("25")
		cmd.PenaltyOverride = &raised

		_, res := mustPost(t, sale, cmd, false)
		assert.True(t, res.Transaction.PenaltyPortion.IsZero())
	})
}

func TestPostPayment_EarnedFreeLastInstallment(t *testing.T) {
	// ceil(300 * 1 * 0.34) = 102
	sale := newFinancedSale(t, 300, testRate(3, "1", "0.34", true), start)
	sale, _ = mustPost(t, sale, pay(1, "102", start), true)
	sale, _ = mustPost(t, sale, pay(2, "102", start.AddMonthsClamped(1).AddDays(5)), true)

	q, err := sale.QuotePayment(3, start.AddMonthsClamped(2), true, DefaultPaymentTerms())
	require.NoError(t, err)
	assert.True(t, q.FreePromotionEligible)
	assert.True(t, q.CapitalOutstanding.IsZero())
	assert.True(t, q.SuggestedTotal.IsZero())

	// Even a late visit does not attract a penalty once the capital is waived.
	next, res := mustPost(t, sale, pay(3, "0", start.AddMonthsClamped(2).AddDays(40)), true)

	assert.True(t, res.FreePromotionGranted)
	assert.True(t, res.Transaction.FreePromotionApplied)
	assert.True(t, res.Transaction.TotalAmount.IsZero())
	inst, _ := next.Installment(3)
	assert.True(t, inst.Status.IsPaid())
	assert.True(t, inst.FreePromotionApplied)
	assert.True(t, inst.EffectiveCapitalDue().IsZero())
	assert.False(t, next.HasOpenInstallments())

	types := map[string]bool{}
	for _, e := range next.DomainEvents() {
		types[e.EventType()] = true
	}
	assert.True(t, types[event.TypeFreeInstallmentGranted])
	assert.True(t, types[event.TypeSaleFullyPaid])
}

func TestPostPayment_FreePromotionNotEarned(t *testing.T) {
	rate := testRate(3, "1", "0.34", true)

	t.Run("prior installment paid late", func(t *testing.T) {
		sale := newFinancedSale(t, 300, rate, start)
		sale, _ = mustPost(t, sale, pay(1, "112", start.AddDays(6)), true)
		sale, _ = mustPost(t, sale, pay(2, "102", start.AddMonthsClamped(1)), true)

		q, err := sale.QuotePayment(3, start.AddMonthsClamped(2), true, DefaultPaymentTerms())
		require.NoError(t, err)
		assert.False(t, q.FreePromotionEligible)
		assert.True(t, q.SuggestedTotal.Equal(dec("102")))
	})

	t.Run("prior installment open", func(t *testing.T) {
		sale := newFinancedSale(t, 300, rate, start)
		sale, _ = mustPost(t, sale, pay(1, "102", start), true)
		sale, _ = mustPost(t, sale, pay(2, "50", start.AddMonthsClamped(1)), true)

		q, err := sale.QuotePayment(3, start.AddMonthsClamped(2), true, DefaultPaymentTerms())
		require.NoError(t, err)
		assert.False(t, q.FreePromotionEligible)
	})

	t.Run("promotion withdrawn from rate table", func(t *testing.T) {
		sale := newFinancedSale(t, 300, rate, start)
		sale, _ = mustPost(t, sale, pay(1, "102", start), false)
		sale, _ = mustPost(t, sale, pay(2, "102", start.AddMonthsClamped(1)), false)

		q, err := sale.QuotePayment(3, start.AddMonthsClamped(2), false, DefaultPaymentTerms())
		require.NoError(t, err)
		assert.False(t, q.FreePromotionEligible)
	})

	t.Run("not the last installment", func(t *testing.T) {
		sale := newFinancedSale(t, 300, rate, start)
		sale, _ = mustPost(t, sale, pay(1, "102", start), true)

		q, err := sale.QuotePayment(2, start.AddMonthsClamped(1), true, DefaultPaymentTerms())
		require.NoError(t, err)
		assert.False(t, q.IsLastInstallment)
		assert.False(t, q.FreePromotionEligible)
	})
}

func TestPostPayment_FreePromotionIsNeverReapplied(t *testing.T) {
	sale := newFinancedSale(t, 300, testRate(3, "1", "0.34", true), start)
	sale, _ = mustPost(t, sale, pay(1, "102", start), true)
	sale, _ = mustPost(t, sale, pay(2, "102", start.AddMonthsClamped(1)), true)
	sale, _ = mustPost(t, sale, pay(3, "0", start.AddMonthsClamped(2)), true)

	_, _, err := sale.PostPayment(pay(3, "0", start.AddMonthsClamped(2)), true, DefaultPaymentTerms(), testNow)
	assert.True(t, errors.Is(err, apperror.ErrInvalidAmount))

	q, err := sale.QuotePayment(3, start.AddMonthsClamped(2), true, DefaultPaymentTerms())
	require.NoError(t, err)
	assert.False(t, q.FreePromotionEligible)
	assert.True(t, q.SuggestedTotal.IsZero())

	inst, _ := sale.Installment(3)
	assert.True(t, inst.EffectiveCapitalDue().IsZero())
	granted := 0
	for _, tx := range inst.Transactions {
		if tx.FreePromotionApplied {
			granted++
		}
	}
	assert.Equal(t, 1, granted)
}

func TestPostPayment_FreeInstallmentAcceptsOnlyZero(t *testing.T) {
	sale := newFinancedSale(t, 300, testRate(3, "1", "0.34", true), start)
	sale, _ = mustPost(t, sale, pay(1, "102", start), true)
	sale, _ = mustPost(t, sale, pay(2, "102", start.AddMonthsClamped(1)), true)

	for _, amount := range []string{"0.0009", "0.01", "102"} {
		t.Run(amount, func(t *testing.T) {
			next, _, err := sale.PostPayment(pay(3, amount, start.AddMonthsClamped(2)), true, DefaultPaymentTerms(), testNow)

			assert.True(t, errors.Is(err, apperror.ErrInvalidAmount), "got %v", err)
			inst, _ := next.Installment(3)
			assert.True(t, inst.CumulativePaidCapital.IsZero())
			assert.False(t, inst.FreePromotionApplied)
			assert.Empty(t, next.PendingLedgerEntries())
		})
	}

	next, _ := mustPost(t, sale, pay(3, "0", start.AddMonthsClamped(2)), true)
	inst, _ := next.Installment(3)
	assert.True(t, inst.CumulativePaidCapital.LessThanOrEqual(inst.EffectiveCapitalDue()))
}

func TestPostPayment_OverTenderRejected(t *testing.T) {
	// ceil(1000 * 1 * 0.05) = 50
	sale := newFinancedSale(t, 1000, testRate(6, "1", "0.05", false), start)

	next, _, err := sale.PostPayment(pay(1, "60", start), false, DefaultPaymentTerms(), testNow)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrInvalidAmount))
	assert.Equal(t, sale.Installments(), next.Installments(), "no state may change on rejection")
	assert.Empty(t, next.PendingLedgerEntries())
}

func TestPostPayment_AmountValidation(t *testing.T) {
	sale := newFinancedSale(t, 1000, testRate(6, "1", "0.05", false), start)

	tests := []struct {
		name    string
		cmd     PaymentCommand
		wantErr *apperror.AppError
	}{
		{"negative", pay(1, "-1", start), apperror.ErrInvalidAmount},
		{"zero while balance due", pay(1, "0", start), apperror.ErrInvalidAmount},
		{"within tolerance above balance", pay(1, "50.0005", start), nil},
		{"missing installment", pay(7, "10", start), apperror.ErrNotFound},
		{"missing payment date", pay(1, "10", valueobject.Date{}), apperror.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := sale.PostPayment(tt.cmd, false, DefaultPaymentTerms(), testNow)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestPostPayment_ToleranceOvershootIsAbsorbed(t *testing.T) {
	sale := newFinancedSale(t, 1000, testRate(6, "1", "0.05", false), start)

	next, res := mustPost(t, sale, pay(1, "50.0005", start), false)

	inst, _ := next.Installment(1)
	assert.True(t, inst.Status.IsPaid())
	assert.True(t, inst.CumulativePaidCapital.Equal(dec("50")))
	assert.True(t, res.Transaction.TotalAmount.Equal(dec("50")))
	assert.True(t, res.Transaction.TotalAmount.Equal(res.Transaction.PenaltyPortion.Add(res.Transaction.CapitalPortion)))
}

func TestPostPayment_CashSaleRejected(t *testing.T) {
	sale, err := NewSale(NewSaleParams{
		Client:      testClient(),
		Items:       []LineItem{{ProductID: "p-1", Quantity: 1, UnitPrice: decimal.NewFromInt(20)}},
		PaymentType: valueobject.PaymentTypeCash,
		OperatorID:  "cashier-1",
		Now:         testNow,
	})
	require.NoError(t, err)

	_, _, err = sale.PostPayment(pay(1, "20", start), false, DefaultPaymentTerms(), testNow)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

// TestPostPayment_MonotonicAndConserving drives a long mixed sequence of
// partial, late, and full payments and checks after every step that paid
// capital never decreases, status never regresses, and every transaction
// splits exactly into penalty and capital.
func TestPostPayment_MonotonicAndConserving(t *testing.T) {
	sale := newFinancedSale(t, 1000, testRate(4, "1.1", "0.26", true), start)

	type step struct {
		number int
		amount string
		days   int
	}
	steps := []step{
		{1, "30", 0}, {1, "40", 2}, {1, "1", 3},
		{2, "15", 9}, {2, "10", 12},
		{3, "20", 1}, {3, "0.5", 1},
		{4, "10", 0},
	}

	for _, st := range steps {
		inst, _ := sale.Installment(st.number)
		due := inst.DueDate.AddDays(st.days)

		next, res, err := sale.PostPayment(pay(st.number, st.amount, due), true, DefaultPaymentTerms(), testNow)
		require.NoError(t, err, "step %+v", st)

		tx := res.Transaction
		assert.False(t, tx.PenaltyPortion.IsNegative())
		assert.False(t, tx.CapitalPortion.IsNegative())
		assert.True(t, tx.TotalAmount.Equal(tx.PenaltyPortion.Add(tx.CapitalPortion)))

		for i, before := range sale.Installments() {
			after := next.Installments()[i]
			assert.True(t, after.CumulativePaidCapital.GreaterThanOrEqual(before.CumulativePaidCapital))
			assert.True(t, before.Status.CanTransitionTo(after.Status))
			if before.FreePromotionApplied {
				assert.True(t, after.FreePromotionApplied)
			}
		}
		sale = next
	}

	// Settle every installment on its due date. The last one is waived by
	// then because the sweep leaves all prior installments paid on time.
	for _, inst := range sale.Installments() {
		require.False(t, inst.Status.IsPaid())
		q, err := sale.QuotePayment(inst.Number, inst.DueDate, true, DefaultPaymentTerms())
		require.NoError(t, err)
		sale, _ = mustPost(t, sale, pay(inst.Number, q.SuggestedTotal.String(), inst.DueDate), true)
	}
	assert.False(t, sale.HasOpenInstallments())
	assert.True(t, sale.OutstandingCapital().IsZero())
	last, _ := sale.Installment(4)
	assert.True(t, last.FreePromotionApplied)
	assert.Len(t, sale.PendingLedgerEntries(), len(steps)+4)
}
