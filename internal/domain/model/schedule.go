package model

import (
	"github.com/shopspring/decimal"

	"github.com/jmaisinchop/app-renattos/internal/domain/valueobject"
	"github.com/jmaisinchop/app-renattos/pkg/money"
)

// ComputeInstallmentAmount prices one installment as
// ceil(principal × termFactor × rateFactor) in whole currency units.
func ComputeInstallmentAmount(principal, termFactor, rateFactor decimal.Decimal) decimal.Decimal {
	if !principal.IsPositive() {
		return decimal.Zero
	}
	return money.CeilUnit(principal.Mul(termFactor).Mul(rateFactor))
}

// GenerateInstallmentSchedule builds rate.TenorMonths equal installments, the
// first due on startDate and each following one a calendar month later.
// Every due date is derived from startDate itself so a clamped month-end
// never drifts the rest of the schedule. A non-positive principal yields no
// installments.
func GenerateInstallmentSchedule(principal decimal.Decimal, rate RateSnapshot, startDate valueobject.Date) []Installment {
	if !principal.IsPositive() || rate.TenorMonths <= 0 {
		return nil
	}

	amount := ComputeInstallmentAmount(principal, rate.TermFactor, rate.RateFactor)
	schedule := make([]Installment, 0, rate.TenorMonths)
	for i := range rate.TenorMonths {
		schedule = append(schedule, Installment{
			Number:                i + 1,
			DueDate:               startDate.AddMonthsClamped(i),
			DueAmount:             amount,
			CumulativePaidCapital: decimal.Zero,
			Status:                valueobject.InstallmentStatusPending,
		})
	}
	return schedule
}
