package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// SaleItemRequest is one product line of a sale registration.
type SaleItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

// RegisterSaleRequest carries the data needed to register a cash or financed sale.
type RegisterSaleRequest struct {
	ClientID     string            `json:"client_id" validate:"required"`
	Items        []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentType  string            `json:"payment_type" validate:"required,oneof=cash financed"`
	DownPayment  decimal.Decimal   `json:"down_payment" validate:"gte=0"`
	RateFactorID string            `json:"rate_factor_id" validate:"required_if=PaymentType financed"`
	// FirstDueDate is YYYY-MM-DD. Defaults to one month after the sale date.
	FirstDueDate string `json:"first_due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	OperatorID   string `json:"operator_id" validate:"required"`
}

// QuotePaymentRequest asks what a payment on the given date would owe.
type QuotePaymentRequest struct {
	SaleID            string `json:"sale_id" validate:"required"`
	InstallmentNumber int    `json:"installment_number" validate:"gte=1"`
	PaymentDate       string `json:"payment_date" validate:"required,datetime=2006-01-02"`
}

// PostPaymentRequest carries one tender against one installment.
type PostPaymentRequest struct {
	SaleID            string          `json:"sale_id" validate:"required"`
	InstallmentNumber int             `json:"installment_number" validate:"gte=1"`
	Amount            decimal.Decimal `json:"amount"`
	PaymentDate       string          `json:"payment_date" validate:"required,datetime=2006-01-02"`
	// Penalty overrides the default late fee. Ignored when the payment is on time.
	Penalty    *decimal.Decimal `json:"penalty,omitempty"`
	Reference  string           `json:"reference,omitempty" validate:"max=120"`
	OperatorID string           `json:"operator_id" validate:"required"`
}

// SaleRequest identifies a sale.
type SaleRequest struct {
	SaleID string `json:"sale_id" validate:"required"`
}

// ListActiveCreditsRequest identifies the client whose open credits are listed.
type ListActiveCreditsRequest struct {
	ClientID string `json:"client_id" validate:"required"`
}

// ReprintReceiptRequest identifies the installment whose last receipt is rebuilt.
type ReprintReceiptRequest struct {
	SaleID            string `json:"sale_id" validate:"required"`
	InstallmentNumber int    `json:"installment_number" validate:"gte=1"`
}

// SaveRateFactorRequest creates a rate table entry, or updates it when ID is set.
type SaveRateFactorRequest struct {
	ID                  string          `json:"id,omitempty"`
	TenorMonths         int             `json:"tenor_months" validate:"gte=1"`
	TermFactor          decimal.Decimal `json:"term_factor" validate:"gte=0"`
	RateFactor          decimal.Decimal `json:"rate_factor" validate:"gte=0"`
	LastInstallmentFree bool            `json:"last_installment_free"`
}

// DeleteRateFactorRequest identifies the rate table entry to remove.
type DeleteRateFactorRequest struct {
	ID string `json:"id" validate:"required"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// TransactionResponse is one payment transaction against an installment.
type TransactionResponse struct {
	TransactionID        string          `json:"transaction_id"`
	PaymentDate          string          `json:"payment_date"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	PenaltyPortion       decimal.Decimal `json:"penalty_portion"`
	CapitalPortion       decimal.Decimal `json:"capital_portion"`
	FreePromotionApplied bool            `json:"free_promotion_applied"`
	Reference            string          `json:"reference,omitempty"`
	OperatorID           string          `json:"operator_id"`
	RecordedAt           time.Time       `json:"recorded_at"`
}

// InstallmentResponse is the external representation of an installment.
type InstallmentResponse struct {
	Number                int                   `json:"number"`
	DueDate               string                `json:"due_date"`
	DueAmount             decimal.Decimal       `json:"due_amount"`
	CumulativePaidCapital decimal.Decimal       `json:"cumulative_paid_capital"`
	CapitalOutstanding    decimal.Decimal       `json:"capital_outstanding"`
	Status                string                `json:"status"`
	FreePromotionApplied  bool                  `json:"free_promotion_applied"`
	Transactions          []TransactionResponse `json:"transactions,omitempty"`
}

// LineItemResponse is one priced line of a sale.
type LineItemResponse struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineSubtotal decimal.Decimal `json:"line_subtotal"`
}

// ClientResponse is the client identity printed on sales and receipts.
type ClientResponse struct {
	ID                   string `json:"id"`
	FullName             string `json:"full_name"`
	IdentificationNumber string `json:"identification_number,omitempty"`
	Address              string `json:"address,omitempty"`
	Phone                string `json:"phone,omitempty"`
}

// RateSnapshotResponse is the rate table entry as it was when the sale was made.
type RateSnapshotResponse struct {
	RateFactorID        string          `json:"rate_factor_id"`
	TenorMonths         int             `json:"tenor_months"`
	TermFactor          decimal.Decimal `json:"term_factor"`
	RateFactor          decimal.Decimal `json:"rate_factor"`
	LastInstallmentFree bool            `json:"last_installment_free"`
}

// SaleResponse is the external representation of a sale.
type SaleResponse struct {
	ID                 string                `json:"id"`
	Client             ClientResponse        `json:"client"`
	Items              []LineItemResponse    `json:"items"`
	Subtotal           decimal.Decimal       `json:"subtotal"`
	PaymentType        string                `json:"payment_type"`
	DownPayment        decimal.Decimal       `json:"down_payment"`
	FinancedPrincipal  decimal.Decimal       `json:"financed_principal"`
	Rate               *RateSnapshotResponse `json:"rate,omitempty"`
	InstallmentAmount  decimal.Decimal       `json:"installment_amount"`
	TotalFinanced      decimal.Decimal       `json:"total_financed"`
	OutstandingCapital decimal.Decimal       `json:"outstanding_capital"`
	Installments       []InstallmentResponse `json:"installments,omitempty"`
	OperatorID         string                `json:"operator_id"`
	Version            int                   `json:"version"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// ActiveCreditResponse summarises a financed sale that still has open installments.
type ActiveCreditResponse struct {
	SaleID             string          `json:"sale_id"`
	CreatedAt          time.Time       `json:"created_at"`
	TotalFinanced      decimal.Decimal `json:"total_financed"`
	InstallmentCount   int             `json:"installment_count"`
	PaidCount          int             `json:"paid_count"`
	OutstandingCapital decimal.Decimal `json:"outstanding_capital"`
}

// ListActiveCreditsResponse lists a client's open financed sales.
type ListActiveCreditsResponse struct {
	ClientID string                 `json:"client_id"`
	Credits  []ActiveCreditResponse `json:"credits"`
}

// SaleBalanceResponse summarises what remains owed on a sale.
type SaleBalanceResponse struct {
	SaleID             string               `json:"sale_id"`
	OutstandingCapital decimal.Decimal      `json:"outstanding_capital"`
	InstallmentCount   int                  `json:"installment_count"`
	PaidCount          int                  `json:"paid_count"`
	FullyPaid          bool                 `json:"fully_paid"`
	NextInstallment    *InstallmentResponse `json:"next_installment,omitempty"`
}

// PaymentQuoteResponse is what an operator reviews before confirming a payment.
type PaymentQuoteResponse struct {
	SaleID                string          `json:"sale_id"`
	InstallmentNumber     int             `json:"installment_number"`
	IsLastInstallment     bool            `json:"is_last_installment"`
	DueDate               string          `json:"due_date"`
	DaysLate              int             `json:"days_late"`
	CapitalOutstanding    decimal.Decimal `json:"capital_outstanding"`
	PenaltyApplicable     bool            `json:"penalty_applicable"`
	Penalty               decimal.Decimal `json:"penalty"`
	DefaultPenalty        decimal.Decimal `json:"default_penalty"`
	FreePromotionEligible bool            `json:"free_promotion_eligible"`
	SuggestedTotal        decimal.Decimal `json:"suggested_total"`
	Status                string          `json:"status"`
}

// SaleSummaryResponse is the slice of a sale printed on a receipt.
type SaleSummaryResponse struct {
	SaleID            string          `json:"sale_id"`
	PaymentType       string          `json:"payment_type"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	DownPayment       decimal.Decimal `json:"down_payment"`
	FinancedPrincipal decimal.Decimal `json:"financed_principal"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	TotalFinanced     decimal.Decimal `json:"total_financed"`
	InstallmentCount  int             `json:"installment_count"`
	PaidCount         int             `json:"paid_count"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ReceiptResponse is the data a receipt renderer prints for one transaction.
type ReceiptResponse struct {
	ReceiptNumber        string              `json:"receipt_number"`
	Currency             string              `json:"currency"`
	IssuedAt             time.Time           `json:"issued_at"`
	Sale                 SaleSummaryResponse `json:"sale"`
	Installment          InstallmentResponse `json:"installment"`
	Client               ClientResponse      `json:"client"`
	OperatorID           string              `json:"operator_id"`
	TransactionID        string              `json:"transaction_id"`
	PaymentDate          string              `json:"payment_date"`
	Reference            string              `json:"reference,omitempty"`
	AmountPaid           decimal.Decimal     `json:"amount_paid"`
	PenaltyPaid          decimal.Decimal     `json:"penalty_paid"`
	CapitalPaid          decimal.Decimal     `json:"capital_paid"`
	FreePromotionGranted bool                `json:"free_promotion_granted"`
	BalanceBefore        decimal.Decimal     `json:"balance_before"`
	BalanceAfter         decimal.Decimal     `json:"balance_after"`
	SaleOutstanding      decimal.Decimal     `json:"sale_outstanding"`
	Reprint              bool                `json:"reprint"`
}

// PostPaymentResponse reports a posted payment and its receipt.
type PostPaymentResponse struct {
	SaleID            string          `json:"sale_id"`
	InstallmentNumber int             `json:"installment_number"`
	TransactionID     string          `json:"transaction_id"`
	InstallmentStatus string          `json:"installment_status"`
	PaidCapital       decimal.Decimal `json:"paid_capital"`
	Receipt           ReceiptResponse `json:"receipt"`
}

// LedgerEntryResponse is one row of a sale's payment history.
type LedgerEntryResponse struct {
	InstallmentNumber int                 `json:"installment_number"`
	Transaction       TransactionResponse `json:"transaction"`
}

// PaymentHistoryResponse lists a sale's payment transactions in posting order.
type PaymentHistoryResponse struct {
	SaleID  string                `json:"sale_id"`
	Entries []LedgerEntryResponse `json:"entries"`
}

// RateFactorResponse is the external representation of a rate table entry.
type RateFactorResponse struct {
	ID                  string          `json:"id"`
	TenorMonths         int             `json:"tenor_months"`
	TermFactor          decimal.Decimal `json:"term_factor"`
	RateFactor          decimal.Decimal `json:"rate_factor"`
	LastInstallmentFree bool            `json:"last_installment_free"`
	Version             int             `json:"version"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// ListRateFactorsResponse lists the rate table ordered by tenor.
type ListRateFactorsResponse struct {
	RateFactors []RateFactorResponse `json:"rate_factors"`
}

// DeleteRateFactorResponse confirms a rate table entry was removed.
type DeleteRateFactorResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
