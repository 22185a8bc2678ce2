package memory

import (
	"context"
	"slices"

	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	"github.com/jmaisinchop/app-renattos/internal/domain/model"
)

// SaleRepository stores sales in a Store.
type SaleRepository struct{ store *Store }

func NewSaleRepository(store *Store) *SaleRepository { return &SaleRepository{store: store} }

func (r *SaleRepository) Create(_ context.Context, sale model.Sale, reservations []model.StockReservation) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sales[sale.ID()]; exists {
		return apperror.ErrValidation.Withf("sale %s already exists", sale.ID())
	}
	for _, res := range reservations {
		p, ok := s.products[res.ProductID]
		if !ok {
			return apperror.ErrNotFound.Withf("product %s not found", res.ProductID)
		}
		if p.Stock < res.Quantity {
			return apperror.ErrStockInsufficient.
				Withf("insufficient stock for %s: requested %d, available %d", p.Name, res.Quantity, p.Stock).
				WithDetails(map[string]any{"product_id": p.ID, "requested": res.Quantity, "available": p.Stock})
		}
	}
	if err := s.appendOutbox(sale.DomainEvents()); err != nil {
		return err
	}
	for _, res := range reservations {
		p := s.products[res.ProductID]
		p.Stock -= res.Quantity
		s.products[res.ProductID] = p
	}
	s.sales[sale.ID()] = sale.State()
	return nil
}

func (r *SaleRepository) Update(_ context.Context, sale model.Sale) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sales[sale.ID()]
	if !ok {
		return apperror.ErrNotFound.Withf("sale %s not found", sale.ID())
	}
	if current.Version != sale.Version() {
		return apperror.ErrConcurrencyConflict.Withf("sale %s was modified concurrently (expected version %d, found %d)",
			sale.ID(), sale.Version(), current.Version)
	}

	pending := sale.PendingLedgerEntries()
	for _, e := range pending {
		if _, dup := s.txIDs[e.Transaction.TransactionID]; dup {
			return apperror.ErrPersistence.Withf("transaction %s already recorded", e.Transaction.TransactionID)
		}
	}
	if err := s.appendOutbox(sale.DomainEvents()); err != nil {
		return err
	}
	for _, e := range pending {
		s.txIDs[e.Transaction.TransactionID] = struct{}{}
		s.ledger[sale.ID()] = append(s.ledger[sale.ID()], e)
	}

	st := sale.State()
	st.Version = current.Version + 1
	s.sales[sale.ID()] = st
	return nil
}

func (r *SaleRepository) FindByID(_ context.Context, id string) (model.Sale, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	st, ok := r.store.sales[id]
	if !ok {
		return model.Sale{}, apperror.ErrNotFound.Withf("sale %s not found", id)
	}
	return model.ReconstructSale(st), nil
}

// FindFinancedByClient returns the client's financed sales, oldest first.
func (r *SaleRepository) FindFinancedByClient(_ context.Context, clientID string) ([]model.Sale, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []model.Sale
	for _, st := range r.store.sales {
		if st.Client.ID == clientID && st.PaymentType.IsFinanced() {
			out = append(out, model.ReconstructSale(st))
		}
	}
	slices.SortFunc(out, func(a, b model.Sale) int { return a.CreatedAt().Compare(b.CreatedAt()) })
	return out, nil
}

// PaymentLedger reads ledger rows from a Store.
type PaymentLedger struct{ store *Store }

func NewPaymentLedger(store *Store) *PaymentLedger { return &PaymentLedger{store: store} }

// ListBySale returns the sale's ledger rows in the order they were appended.
func (l *PaymentLedger) ListBySale(_ context.Context, saleID string) ([]model.LedgerEntry, error) {
	l.store.mu.RLock()
	defer l.store.mu.RUnlock()
	return slices.Clone(l.store.ledger[saleID]), nil
}
