package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	"github.com/jmaisinchop/app-renattos/internal/domain/event"
	"github.com/jmaisinchop/app-renattos/internal/domain/valueobject"
	"github.com/jmaisinchop/app-renattos/pkg/events"
	"github.com/jmaisinchop/app-renattos/pkg/money"
)

// LineItem is one product line of a sale.
type LineItem struct {
	ProductID    string
	ProductName  string
	Quantity     int
	UnitPrice    decimal.Decimal
	LineSubtotal decimal.Decimal
}

// ---------------------------------------------------------------------------
// Sale aggregate root
// ---------------------------------------------------------------------------

// Sale is an immutable aggregate. Mutations return a new copy. Once
// registered, only its installments change, and only through PostPayment.
type Sale struct {
	id                string
	client            ClientSnapshot
	items             []LineItem
	subtotal          decimal.Decimal
	paymentType       valueobject.PaymentType
	downPayment       decimal.Decimal
	financedPrincipal decimal.Decimal
	rate              RateSnapshot
	installmentAmount decimal.Decimal
	totalFinanced     decimal.Decimal
	installments      []Installment
	operatorID        string
	version           int
	createdAt         time.Time
	updatedAt         time.Time
	events            events.EventCollector
	pendingLedger     []LedgerEntry
}

// NewSaleParams carries the resolved inputs of a sale registration.
type NewSaleParams struct {
	Client       ClientSnapshot
	Items        []LineItem
	PaymentType  valueobject.PaymentType
	DownPayment  decimal.Decimal
	Rate         RateSnapshot
	FirstDueDate valueobject.Date
	OperatorID   string
	Now          time.Time
}

// NewSale validates the inputs, prices every line, and for financed sales
// generates the installment schedule from FirstDueDate.
func NewSale(p NewSaleParams) (Sale, error) {
	if p.Client.ID == "" {
		return Sale{}, apperror.ErrValidation.Withf("client is required")
	}
	if len(p.Items) == 0 {
		return Sale{}, apperror.ErrValidation.Withf("at least one line item is required")
	}
	if p.PaymentType.String() == "" {
		return Sale{}, apperror.ErrValidation.Withf("payment type is required")
	}
	if p.OperatorID == "" {
		return Sale{}, apperror.ErrValidation.Withf("operator is required")
	}

	items := make([]LineItem, 0, len(p.Items))
	subtotal := decimal.Zero
	for _, it := range p.Items {
		if it.ProductID == "" {
			return Sale{}, apperror.ErrValidation.Withf("line item product is required")
		}
		if it.Quantity <= 0 {
			return Sale{}, apperror.ErrValidation.Withf("quantity for product %s must be positive", it.ProductID)
		}
		if it.UnitPrice.IsNegative() {
			return Sale{}, apperror.ErrValidation.Withf("unit price for product %s must not be negative", it.ProductID)
		}
		it.LineSubtotal = money.RoundCents(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		subtotal = subtotal.Add(it.LineSubtotal)
		items = append(items, it)
	}

	s := Sale{
		id:          uuid.New().String(),
		client:      p.Client,
		items:       items,
		subtotal:    subtotal,
		paymentType: p.PaymentType,
		downPayment: decimal.Zero,
		operatorID:  p.OperatorID,
		version:     1,
		createdAt:   p.Now,
		updatedAt:   p.Now,
	}

	if p.PaymentType.IsFinanced() {
		if p.DownPayment.IsNegative() {
			return Sale{}, apperror.ErrValidation.Withf("down payment must not be negative")
		}
		if p.DownPayment.GreaterThan(subtotal) {
			return Sale{}, apperror.ErrValidation.Withf("down payment %s exceeds subtotal %s",
				p.DownPayment.StringFixed(2), subtotal.StringFixed(2))
		}
		if p.Rate.TenorMonths <= 0 {
			return Sale{}, apperror.ErrValidation.Withf("a rate factor is required for financed sales")
		}
		if p.FirstDueDate.IsZero() {
			return Sale{}, apperror.ErrValidation.Withf("first due date is required for financed sales")
		}

		s.downPayment = p.DownPayment
		s.financedPrincipal = money.NonNegative(subtotal.Sub(p.DownPayment))
		s.rate = p.Rate
		s.installments = GenerateInstallmentSchedule(s.financedPrincipal, p.Rate, p.FirstDueDate)
		if len(s.installments) > 0 {
			s.installmentAmount = s.installments[0].DueAmount
		}
		s.totalFinanced = s.downPayment.Add(s.installmentAmount.Mul(decimal.NewFromInt(int64(len(s.installments)))))
	} else {
		s.totalFinanced = subtotal
	}

	s.events.Record(event.NewSaleRegistered(
		s.id, s.client.ID, s.paymentType.String(),
		s.subtotal, s.downPayment, s.financedPrincipal, s.installmentAmount,
		len(s.installments), s.operatorID,
	))
	return s, nil
}

// SaleState is the persisted form of a Sale, used to rebuild the aggregate.
type SaleState struct {
	ID                string
	Client            ClientSnapshot
	Items             []LineItem
	Subtotal          decimal.Decimal
	PaymentType       valueobject.PaymentType
	DownPayment       decimal.Decimal
	FinancedPrincipal decimal.Decimal
	Rate              RateSnapshot
	InstallmentAmount decimal.Decimal
	TotalFinanced     decimal.Decimal
	Installments      []Installment
	OperatorID        string
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ReconstructSale rebuilds a Sale aggregate from persistence.
func ReconstructSale(st SaleState) Sale {
	installments := make([]Installment, len(st.Installments))
	for i, inst := range st.Installments {
		installments[i] = inst.clone()
	}
	return Sale{
		id:                st.ID,
		client:            st.Client,
		items:             slices.Clone(st.Items),
		subtotal:          st.Subtotal,
		paymentType:       st.PaymentType,
		downPayment:       st.DownPayment,
		financedPrincipal: st.FinancedPrincipal,
		rate:              st.Rate,
		installmentAmount: st.InstallmentAmount,
		totalFinanced:     st.TotalFinanced,
		installments:      installments,
		operatorID:        st.OperatorID,
		version:           st.Version,
		createdAt:         st.CreatedAt,
		updatedAt:         st.UpdatedAt,
	}
}

// State exports the aggregate for persistence.
func (s Sale) State() SaleState {
	return SaleState{
		ID:                s.id,
		Client:            s.client,
		Items:             s.Items(),
		Subtotal:          s.subtotal,
		PaymentType:       s.paymentType,
		DownPayment:       s.downPayment,
		FinancedPrincipal: s.financedPrincipal,
		Rate:              s.rate,
		InstallmentAmount: s.installmentAmount,
		TotalFinanced:     s.totalFinanced,
		Installments:      s.Installments(),
		OperatorID:        s.operatorID,
		Version:           s.version,
		CreatedAt:         s.createdAt,
		UpdatedAt:         s.updatedAt,
	}
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Installment returns a copy of the installment with the given number.
func (s Sale) Installment(number int) (Installment, bool) {
	idx, ok := s.indexOf(number)
	if !ok {
		return Installment{}, false
	}
	return s.installments[idx].clone(), true
}

// OutstandingCapital sums the capital still owed across all installments.
func (s Sale) OutstandingCapital() decimal.Decimal {
	total := decimal.Zero
	for _, inst := range s.installments {
		total = total.Add(inst.CapitalOutstanding())
	}
	return total
}

// PaidCount returns how many installments are settled.
func (s Sale) PaidCount() int {
	n := 0
	for _, inst := range s.installments {
		if inst.Status.IsPaid() {
			n++
		}
	}
	return n
}

// HasOpenInstallments reports whether any installment is not yet paid.
func (s Sale) HasOpenInstallments() bool {
	return s.PaidCount() < len(s.installments)
}

// NextOpenInstallment returns the lowest-numbered installment not yet paid.
func (s Sale) NextOpenInstallment() (Installment, bool) {
	for _, inst := range s.installments {
		if !inst.Status.IsPaid() {
			return inst.clone(), true
		}
	}
	return Installment{}, false
}

// Reservations returns the stock a sale consumes, one entry per product.
func (s Sale) Reservations() []StockReservation {
	totals := make(map[string]int, len(s.items))
	order := make([]string, 0, len(s.items))
	for _, it := range s.items {
		if _, seen := totals[it.ProductID]; !seen {
			order = append(order, it.ProductID)
		}
		totals[it.ProductID] += it.Quantity
	}
	out := make([]StockReservation, 0, len(order))
	for _, id := range order {
		out = append(out, StockReservation{ProductID: id, Quantity: totals[id]})
	}
	return out
}

func (s Sale) indexOf(number int) (int, bool) {
	idx := number - 1
	if idx < 0 || idx >= len(s.installments) || s.installments[idx].Number != number {
		return 0, false
	}
	return idx, true
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (s Sale) ID() string { return s.id }
func (s Sale) Client() ClientSnapshot { return s.client }
func (s Sale) Subtotal() decimal.Decimal { return s.subtotal }
func (s Sale) PaymentType() valueobject.PaymentType { return s.paymentType }
func (s Sale) DownPayment() decimal.Decimal { return s.downPayment }
func (s Sale) FinancedPrincipal() decimal.Decimal { return s.financedPrincipal }
func (s Sale) Rate() RateSnapshot { return s.rate }
func (s Sale) InstallmentAmount() decimal.Decimal { return s.installmentAmount }
func (s Sale) TotalFinanced() decimal.Decimal { return s.totalFinanced }
func (s Sale) OperatorID() string { return s.operatorID }
func (s Sale) Version() int { return s.version }
func (s Sale) CreatedAt() time.Time { return s.createdAt }
func (s Sale) UpdatedAt() time.Time { return s.updatedAt }

// Items returns a copy of the line items.
func (s Sale) Items() []LineItem { return slices.Clone(s.items) }

// Installments returns a deep copy of the schedule.
func (s Sale) Installments() []Installment {
	out := make([]Installment, len(s.installments))
	for i, inst := range s.installments {
		out[i] = inst.clone()
	}
	return out
}

// DomainEvents returns the events recorded since the aggregate was loaded.
func (s Sale) DomainEvents() []event.DomainEvent { return s.events.Events() }

// PendingLedgerEntries returns the payment transactions recorded since the
// aggregate was loaded, in posting order.
func (s Sale) PendingLedgerEntries() []LedgerEntry { return slices.Clone(s.pendingLedger) }

func (s Sale) clone() Sale {
	next := s
	next.installments = s.Installments()
	next.pendingLedger = slices.Clip(s.pendingLedger)
	return next
}
