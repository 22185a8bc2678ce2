package valueobject

import (
	"errors"
	"fmt"
)

// ErrStatusRegression is returned when a transition would move an
// installment back to an earlier payment state.
var ErrStatusRegression = errors.New("installment status cannot regress")

// ---------------------------------------------------------------------------
// InstallmentStatus – immutable value object
// ---------------------------------------------------------------------------

// InstallmentStatus is the payment state of a single installment. The states
// are ordered: pending < partially_paid < paid, and paid is terminal.
type InstallmentStatus struct {
	value string
}

const (
	installmentStatusPending       = "pending"
	installmentStatusPartiallyPaid = "partially_paid"
	installmentStatusPaid          = "paid"
)

var (
	InstallmentStatusPending       = InstallmentStatus{value: installmentStatusPending}
	InstallmentStatusPartiallyPaid = InstallmentStatus{value: installmentStatusPartiallyPaid}
	InstallmentStatusPaid          = InstallmentStatus{value: installmentStatusPaid}
)

var validInstallmentStatuses = map[string]InstallmentStatus{
	installmentStatusPending:       InstallmentStatusPending,
	installmentStatusPartiallyPaid: InstallmentStatusPartiallyPaid,
	installmentStatusPaid:          InstallmentStatusPaid,
}

var installmentStatusRank = map[string]int{
	installmentStatusPending:       0,
	installmentStatusPartiallyPaid: 1,
	installmentStatusPaid:          2,
}

// NewInstallmentStatus creates an InstallmentStatus from a raw string.
func NewInstallmentStatus(s string) (InstallmentStatus, error) {
	v, ok := validInstallmentStatuses[s]
	if !ok {
		return InstallmentStatus{}, fmt.Errorf("invalid installment status: %q", s)
	}
	return v, nil
}

func (s InstallmentStatus) String() string { return s.value }

func (s InstallmentStatus) IsZero() bool { return s.value == "" }

func (s InstallmentStatus) Equal(other InstallmentStatus) bool {
	return s.value == other.value
}

// IsPaid reports whether the installment is settled.
func (s InstallmentStatus) IsPaid() bool { return s.value == installmentStatusPaid }

// CanTransitionTo reports whether moving from s to next keeps the status monotonic.
func (s InstallmentStatus) CanTransitionTo(next InstallmentStatus) bool {
	if s.IsPaid() {
		return next.IsPaid()
	}
	return installmentStatusRank[next.value] >= installmentStatusRank[s.value]
}
