package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	"github.com/jmaisinchop/app-renattos/internal/domain/event"
	"github.com/jmaisinchop/app-renattos/internal/domain/valueobject"
)

var testNow = time.Date(2025, time.January, 10, 15, 0, 0, 0, time.UTC)

func testClient() ClientSnapshot {
	return ClientSnapshot{
		ID:                   "client-1",
		FullName:             "Maria Quispe",
		IdentificationNumber: "0102030405",
		Address:              "Av. Loja 123",
		Phone:                "0999999999",
	}
}

func testRate(tenor int, term, rate string, free bool) RateSnapshot {
	return RateSnapshot{
		RateFactorID:        "rf-" + term + "-" + rate,
		TenorMonths:         tenor,
		TermFactor:          decimal.RequireFromString(term),
		RateFactor:          decimal.RequireFromString(rate),
		LastInstallmentFree: free,
	}
}

// newFinancedSale registers a single-line financed sale whose principal is
// exactly price (no down payment).
func newFinancedSale(t *testing.T, price int64, rate RateSnapshot, firstDue valueobject.Date) Sale {
	t.Helper()
	sale, err := NewSale(NewSaleParams{
		Client: testClient(),
		Items: []LineItem{
			{ProductID: "p-1", ProductName: "Refrigerator", Quantity: 1, UnitPrice: decimal.NewFromInt(price)},
		},
		PaymentType:  valueobject.PaymentTypeFinanced,
		DownPayment:  decimal.Zero,
		Rate:         rate,
		FirstDueDate: firstDue,
		OperatorID:   "cashier-1",
		Now:          testNow,
	})
	require.NoError(t, err)
	return sale
}

func TestNewSale_Financed(t *testing.T) {
	sale, err := NewSale(NewSaleParams{
		Client: testClient(),
		Items: []LineItem{
			{ProductID: "p-1", ProductName: "Washer", Quantity: 2, UnitPrice: decimal.RequireFromString("450.25")},
			{ProductID: "p-2", ProductName: "Blender", Quantity: 1, UnitPrice: decimal.RequireFromString("99.50")},
		},
		PaymentType:  valueobject.PaymentTypeFinanced,
		DownPayment:  decimal.NewFromInt(200),
		Rate:         testRate(12, "1.1", "0.09", false),
		FirstDueDate: valueobject.NewDate(2025, time.February, 10),
		OperatorID:   "cashier-1",
		Now:          testNow,
	})
	require.NoError(t, err)

	assert.True(t, sale.Subtotal().Equal(decimal.RequireFromString("1000")), "subtotal %s", sale.Subtotal())
	assert.True(t, sale.FinancedPrincipal().Equal(decimal.NewFromInt(800)))
	// ceil(800 * 1.1 * 0.09) = ceil(79.2) = 80
	assert.True(t, sale.InstallmentAmount().Equal(decimal.NewFromInt(80)))
	assert.True(t, sale.TotalFinanced().Equal(decimal.NewFromInt(200+80*12)))
	assert.Len(t, sale.Installments(), 12)
	assert.Equal(t, 1, sale.Version())
	assert.True(t, sale.HasOpenInstallments())

	items := sale.Items()
	require.Len(t, items, 2)
	assert.True(t, items[0].LineSubtotal.Equal(decimal.RequireFromString("900.50")))

	evts := sale.DomainEvents()
	require.Len(t, evts, 1)
	assert.Equal(t, event.TypeSaleRegistered, evts[0].EventType())
}

func TestNewSale_Cash(t *testing.T) {
	sale, err := NewSale(NewSaleParams{
		Client:      testClient(),
		Items:       []LineItem{{ProductID: "p-1", ProductName: "Iron", Quantity: 3, UnitPrice: decimal.NewFromInt(20)}},
		PaymentType: valueobject.PaymentTypeCash,
		DownPayment: decimal.NewFromInt(15),
		OperatorID:  "cashier-1",
		Now:         testNow,
	})
	require.NoError(t, err)

	assert.True(t, sale.Subtotal().Equal(decimal.NewFromInt(60)))
	assert.True(t, sale.DownPayment().IsZero())
	assert.True(t, sale.TotalFinanced().Equal(decimal.NewFromInt(60)))
	assert.Empty(t, sale.Installments())
	assert.False(t, sale.HasOpenInstallments())
}

func TestNewSale_FullDownPaymentProducesNoInstallments(t *testing.T) {
	sale, err := NewSale(NewSaleParams{
		Client:       testClient(),
		Items:        []LineItem{{ProductID: "p-1", Quantity: 1, UnitPrice: decimal.NewFromInt(500)}},
		PaymentType:  valueobject.PaymentTypeFinanced,
		DownPayment:  decimal.NewFromInt(500),
		Rate:         testRate(6, "1", "0.2", false),
		FirstDueDate: valueobject.NewDate(2025, time.February, 10),
		OperatorID:   "cashier-1",
		Now:          testNow,
	})
	require.NoError(t, err)

	assert.True(t, sale.FinancedPrincipal().IsZero())
	assert.True(t, sale.InstallmentAmount().IsZero())
	assert.Empty(t, sale.Installments())
	assert.True(t, sale.TotalFinanced().Equal(decimal.NewFromInt(500)))
}

func TestNewSale_Validation(t *testing.T) {
	valid := func() NewSaleParams {
		return NewSaleParams{
			Client:       testClient(),
			Items:        []LineItem{{ProductID: "p-1", Quantity: 1, UnitPrice: decimal.NewFromInt(100)}},
			PaymentType:  valueobject.PaymentTypeFinanced,
			DownPayment:  decimal.Zero,
			Rate:         testRate(3, "1", "0.34", false),
			FirstDueDate: valueobject.NewDate(2025, time.February, 10),
			OperatorID:   "cashier-1",
			Now:          testNow,
		}
	}

	tests := []struct {
		name   string
		mutate func(p *NewSaleParams)
	}{
		{"missing client", func(p *NewSaleParams) { p.Client = ClientSnapshot{} }},
		{"no items", func(p *NewSaleParams) { p.Items = nil }},
		{"zero quantity", func(p *NewSaleParams) { p.Items[0].Quantity = 0 }},
		{"negative price", func(p *NewSaleParams) { p.Items[0].UnitPrice = decimal.NewFromInt(-1) }},
		{"missing operator", func(p *NewSaleParams) { p.OperatorID = "" }},
		{"negative down payment", func(p *NewSaleParams) { p.DownPayment = decimal.NewFromInt(-5) }},
		{"down payment above subtotal", func(p *NewSaleParams) { p.DownPayment = decimal.NewFromInt(101) }},
		{"financed without rate", func(p *NewSaleParams) { p.Rate = RateSnapshot{} }},
		{"financed without first due date", func(p *NewSaleParams) { p.FirstDueDate = valueobject.Date{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(&p)
			_, err := NewSale(p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
		})
	}
}

func TestReconstructSale_RoundTripsState(t *testing.T) {
	sale := newFinancedSale(t, 1000, testRate(12, "1.1", "0.09", false), valueobject.NewDate(2025, time.February, 10))

	rebuilt := ReconstructSale(sale.State())

	assert.Equal(t, sale.ID(), rebuilt.ID())
	assert.Equal(t, sale.Installments(), rebuilt.Installments())
	assert.Empty(t, rebuilt.DomainEvents(), "rebuilt aggregates carry no pending events")
	assert.Empty(t, rebuilt.PendingLedgerEntries())
}

func TestSale_InstallmentsAreCopies(t *testing.T) {
	sale := newFinancedSale(t, 1000, testRate(12, "1.1", "0.09", false), valueobject.NewDate(2025, time.February, 10))

	insts := sale.Installments()
	insts[0].Status = valueobject.InstallmentStatusPaid

	first, ok := sale.Installment(1)
	require.True(t, ok)
	assert.True(t, first.Status.Equal(valueobject.InstallmentStatusPending))

	_, ok = sale.Installment(13)
	assert.False(t, ok)
	_, ok = sale.Installment(0)
	assert.False(t, ok)
}
