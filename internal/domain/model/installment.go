package model

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmaisinchop/app-renattos/internal/domain/valueobject"
	"github.com/jmaisinchop/app-renattos/pkg/money"
)

// Installment is one scheduled payment of a financed sale. It is only ever
// changed through Sale.PostPayment.
type Installment struct {
	Number                int
	DueDate               valueobject.Date
	DueAmount             decimal.Decimal
	CumulativePaidCapital decimal.Decimal
	Status                valueobject.InstallmentStatus
	FreePromotionApplied  bool
	Transactions          []PaymentTransaction
}

// EffectiveCapitalDue is the capital owed on the installment, zero once the
// free promotion has been granted.
func (i Installment) EffectiveCapitalDue() decimal.Decimal {
	if i.FreePromotionApplied {
		return decimal.Zero
	}
	return i.DueAmount
}

// CapitalOutstanding is max(0, effective due − cumulative paid capital).
func (i Installment) CapitalOutstanding() decimal.Decimal {
	return money.NonNegative(i.EffectiveCapitalDue().Sub(i.CumulativePaidCapital))
}

// LastTransaction returns the most recently appended payment transaction.
func (i Installment) LastTransaction() (PaymentTransaction, bool) {
	if len(i.Transactions) == 0 {
		return PaymentTransaction{}, false
	}
	return i.Transactions[len(i.Transactions)-1], true
}

// PaidWithinGrace reports whether the installment is settled and its last
// payment landed no later than graceDays after the due date.
func (i Installment) PaidWithinGrace(graceDays int) bool {
	if !i.Status.IsPaid() {
		return false
	}
	last, ok := i.LastTransaction()
	if !ok {
		return false
	}
	return !last.PaymentDate.After(i.DueDate.AddDays(graceDays))
}

func (i Installment) clone() Installment {
	c := i
	c.Transactions = slices.Clone(i.Transactions)
	return c
}

// statusFor derives the status implied by the paid capital.
func (i Installment) statusFor() valueobject.InstallmentStatus {
	switch {
	case money.Covers(i.CumulativePaidCapital, i.EffectiveCapitalDue()):
		return valueobject.InstallmentStatusPaid
	case i.CumulativePaidCapital.IsPositive():
		return valueobject.InstallmentStatusPartiallyPaid
	default:
		return valueobject.InstallmentStatusPending
	}
}

// PaymentTransaction is an immutable record of one tender against an installment.
type PaymentTransaction struct {
	TransactionID        string
	PaymentDate          valueobject.Date
	TotalAmount          decimal.Decimal
	PenaltyPortion       decimal.Decimal
	CapitalPortion       decimal.Decimal
	FreePromotionApplied bool
	// PenaltyCharged and BalanceBefore keep what the operator was shown so
	// the receipt can be rebuilt later.
	PenaltyCharged decimal.Decimal
	BalanceBefore  decimal.Decimal
	Reference      string
	OperatorID     string
	RecordedAt     time.Time
}

// BalanceAfter is what remained owed on the installment after this transaction.
func (t PaymentTransaction) BalanceAfter() decimal.Decimal {
	return money.NonNegative(t.BalanceBefore.Sub(t.TotalAmount))
}

// LedgerEntry is a payment transaction addressed to its sale and installment,
// as appended to the payment ledger.
type LedgerEntry struct {
	SaleID            string
	InstallmentNumber int
	Transaction       PaymentTransaction
}
