package service

import (
	"fmt"
	"time"

	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	"github.com/jmaisinchop/app-renattos/internal/domain/model"
	"github.com/jmaisinchop/app-renattos/pkg/money"
)

// ReceiptBuilder assembles receipt data from a posted payment.
type ReceiptBuilder struct {
	currency money.Currency
	now      func() time.Time
}

// NewReceiptBuilder creates a builder that stamps receipts in the given currency.
func NewReceiptBuilder(currency money.Currency) *ReceiptBuilder {
	return &ReceiptBuilder{currency: currency, now: time.Now}
}

// Build returns the receipt for a posting that produced sale.
func (b *ReceiptBuilder) Build(sale model.Sale, client model.ClientSnapshot, result model.PostingResult) model.Receipt {
	return b.receipt(sale, client, result.InstallmentAfter, result.Transaction, false)
}

// Reprint rebuilds the receipt of the most recent transaction posted to an installment.
func (b *ReceiptBuilder) Reprint(sale model.Sale, client model.ClientSnapshot, installmentNumber int) (model.Receipt, error) {
	inst, ok := sale.Installment(installmentNumber)
	if !ok {
		return model.Receipt{}, apperror.ErrNotFound.Withf("installment %d not found in sale %s", installmentNumber, sale.ID())
	}
	tx, ok := inst.LastTransaction()
	if !ok {
		return model.Receipt{}, apperror.ErrNotFound.Withf("installment %d has no payments to reprint", installmentNumber)
	}
	return b.receipt(sale, client, inst, tx, true), nil
}

func (b *ReceiptBuilder) receipt(sale model.Sale, client model.ClientSnapshot, inst model.Installment, tx model.PaymentTransaction, reprint bool) model.Receipt {
	if client.ID == "" {
		client = sale.Client()
	}
	return model.Receipt{
		ReceiptNumber: receiptNumber(sale.ID(), inst.Number, tx.TransactionID),
		Currency:      b.currency.Code(),
		IssuedAt:      b.now().UTC(),
		Sale: model.SaleSummary{
			SaleID:            sale.ID(),
			PaymentType:       sale.PaymentType().String(),
			Subtotal:          sale.Subtotal(),
			DownPayment:       sale.DownPayment(),
			FinancedPrincipal: sale.FinancedPrincipal(),
			InstallmentAmount: sale.InstallmentAmount(),
			TotalFinanced:     sale.TotalFinanced(),
			InstallmentCount:  len(sale.Installments()),
			PaidCount:         sale.PaidCount(),
			CreatedAt:         sale.CreatedAt(),
		},
		Installment:          inst,
		Client:               client,
		OperatorID:           tx.OperatorID,
		TransactionID:        tx.TransactionID,
		PaymentDate:          tx.PaymentDate,
		Reference:            tx.Reference,
		AmountPaid:           tx.TotalAmount,
		PenaltyPaid:          tx.PenaltyPortion,
		CapitalPaid:          tx.CapitalPortion,
		FreePromotionGranted: tx.FreePromotionApplied,
		BalanceBefore:        tx.BalanceBefore,
		BalanceAfter:         tx.BalanceAfter(),
		SaleOutstanding:      sale.OutstandingCapital(),
		Reprint:              reprint,
	}
}

// receiptNumber is CP-<sale tail>-<installment>-<transaction tail>.
func receiptNumber(saleID string, installment int, txID string) string {
	return fmt.Sprintf("CP-%s-%02d-%s", tail(saleID, 6), installment, tail(txID, 6))
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
