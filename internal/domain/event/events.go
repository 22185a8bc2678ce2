package event

import (
	"github.com/shopspring/decimal"

	"github.com/jmaisinchop/app-renattos/pkg/events"
)

// DomainEvent is an alias for the shared pkg/events.DomainEvent interface.
type DomainEvent = events.DomainEvent

const (
	TypeSaleRegistered           = "credit.sale.registered"
	TypeInstallmentPaymentPosted = "credit.installment.payment_posted"
	TypeInstallmentSettled       = "credit.installment.settled"
	TypeFreeInstallmentGranted   = "credit.installment.free_granted"
	TypeSaleFullyPaid            = "credit.sale.fully_paid"
	TypeRateFactorChanged        = "credit.rate_factor.changed"
)

const (
	aggregateSale       = "Sale"
	aggregateRateFactor = "RateFactor"
)

// ---------------------------------------------------------------------------
// Sale events
// ---------------------------------------------------------------------------

type SaleRegistered struct {
	events.BaseEvent
	ClientID          string          `json:"client_id"`
	PaymentType       string          `json:"payment_type"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	DownPayment       decimal.Decimal `json:"down_payment"`
	FinancedPrincipal decimal.Decimal `json:"financed_principal"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	TenorMonths       int             `json:"tenor_months"`
	OperatorID        string          `json:"operator_id"`
}

func NewSaleRegistered(
	saleID, clientID, paymentType string,
	subtotal, downPayment, principal, installmentAmount decimal.Decimal,
	tenorMonths int, operatorID string,
) SaleRegistered {
	return SaleRegistered{
		BaseEvent:         events.NewBaseEvent(TypeSaleRegistered, saleID, aggregateSale),
		ClientID:          clientID,
		PaymentType:       paymentType,
		Subtotal:          subtotal,
		DownPayment:       downPayment,
		FinancedPrincipal: principal,
		InstallmentAmount: installmentAmount,
		TenorMonths:       tenorMonths,
		OperatorID:        operatorID,
	}
}

// InstallmentPaymentPosted is raised for every accepted payment transaction.
type InstallmentPaymentPosted struct {
	events.BaseEvent
	InstallmentNumber    int             `json:"installment_number"`
	TransactionID        string          `json:"transaction_id"`
	PaymentDate          string          `json:"payment_date"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	PenaltyPortion       decimal.Decimal `json:"penalty_portion"`
	CapitalPortion       decimal.Decimal `json:"capital_portion"`
	FreePromotionApplied bool            `json:"free_promotion_applied"`
	StatusAfter          string          `json:"status_after"`
	OperatorID           string          `json:"operator_id"`
}

func NewInstallmentPaymentPosted(
	saleID string, installmentNumber int, transactionID, paymentDate string,
	total, penalty, capital decimal.Decimal, freePromotion bool,
	statusAfter, operatorID string,
) InstallmentPaymentPosted {
	return InstallmentPaymentPosted{
		BaseEvent:            events.NewBaseEvent(TypeInstallmentPaymentPosted, saleID, aggregateSale),
		InstallmentNumber:    installmentNumber,
		TransactionID:        transactionID,
		PaymentDate:          paymentDate,
		TotalAmount:          total,
		PenaltyPortion:       penalty,
		CapitalPortion:       capital,
		FreePromotionApplied: freePromotion,
		StatusAfter:          statusAfter,
		OperatorID:           operatorID,
	}
}

type InstallmentSettled struct {
	events.BaseEvent
	InstallmentNumber int `json:"installment_number"`
}

func NewInstallmentSettled(saleID string, installmentNumber int) InstallmentSettled {
	return InstallmentSettled{
		BaseEvent:         events.NewBaseEvent(TypeInstallmentSettled, saleID, aggregateSale),
		InstallmentNumber: installmentNumber,
	}
}

// FreeInstallmentGranted is raised once, when the last installment's capital is waived.
type FreeInstallmentGranted struct {
	events.BaseEvent
	InstallmentNumber int             `json:"installment_number"`
	WaivedCapital     decimal.Decimal `json:"waived_capital"`
}

func NewFreeInstallmentGranted(saleID string, installmentNumber int, waived decimal.Decimal) FreeInstallmentGranted {
	return FreeInstallmentGranted{
		BaseEvent:         events.NewBaseEvent(TypeFreeInstallmentGranted, saleID, aggregateSale),
		InstallmentNumber: installmentNumber,
		WaivedCapital:     waived,
	}
}

type SaleFullyPaid struct {
	events.BaseEvent
	ClientID string `json:"client_id"`
}

func NewSaleFullyPaid(saleID, clientID string) SaleFullyPaid {
	return SaleFullyPaid{
		BaseEvent: events.NewBaseEvent(TypeSaleFullyPaid, saleID, aggregateSale),
		ClientID:  clientID,
	}
}

// ---------------------------------------------------------------------------
// Rate table events
// ---------------------------------------------------------------------------

const (
	RateFactorSaved   = "saved"
	RateFactorDeleted = "deleted"
)

// RateFactorChanged tells cache holders to drop their copy of the entry.
// Version is the lowest version a cache may hold after the change; a
// deletion carries one past the last stored version.
type RateFactorChanged struct {
	events.BaseEvent
	TenorMonths int    `json:"tenor_months"`
	Version     int    `json:"version"`
	Action      string `json:"action"`
}

func NewRateFactorChanged(rateFactorID string, tenorMonths, version int, action string) RateFactorChanged {
	return RateFactorChanged{
		BaseEvent:   events.NewBaseEvent(TypeRateFactorChanged, rateFactorID, aggregateRateFactor),
		TenorMonths: tenorMonths,
		Version:     version,
		Action:      action,
	}
}
