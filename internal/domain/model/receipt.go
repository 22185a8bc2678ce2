package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmaisinchop/app-renattos/internal/domain/valueobject"
)

// SaleSummary is the slice of a sale a payment receipt prints.
type SaleSummary struct {
	SaleID            string
	PaymentType       string
	Subtotal          decimal.Decimal
	DownPayment       decimal.Decimal
	FinancedPrincipal decimal.Decimal
	InstallmentAmount decimal.Decimal
	TotalFinanced     decimal.Decimal
	InstallmentCount  int
	PaidCount         int
	CreatedAt         time.Time
}

// Receipt is the data handed to the receipt renderer for one payment transaction.
type Receipt struct {
	ReceiptNumber        string
	Currency             string
	IssuedAt             time.Time
	Sale                 SaleSummary
	Installment          Installment
	Client               ClientSnapshot
	OperatorID           string
	TransactionID        string
	PaymentDate          valueobject.Date
	Reference            string
	AmountPaid           decimal.Decimal
	PenaltyPaid          decimal.Decimal
	CapitalPaid          decimal.Decimal
	FreePromotionGranted bool
	BalanceBefore        decimal.Decimal
	BalanceAfter         decimal.Decimal
	SaleOutstanding      decimal.Decimal
	Reprint              bool
}
