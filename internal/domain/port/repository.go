package port

import (
	"context"

	"github.com/jmaisinchop/app-renattos/internal/domain/model"
)

// ---------------------------------------------------------------------------
// Repository ports (driven/secondary adapters)
// ---------------------------------------------------------------------------

// SaleRepository persists sales. Implementations write the aggregate, its
// pending ledger entries, and its domain events atomically.
type SaleRepository interface {
	// Create stores a new sale and takes its reservations out of stock in
	// the same transaction, failing with apperror.ErrStockInsufficient when
	// any product no longer has enough units.
	Create(ctx context.Context, sale model.Sale, reservations []model.StockReservation) error
	// Update stores sale only if the persisted version still equals
	// sale.Version(), failing with apperror.ErrConcurrencyConflict otherwise.
	Update(ctx context.Context, sale model.Sale) error
	FindByID(ctx context.Context, id string) (model.Sale, error)
	FindFinancedByClient(ctx context.Context, clientID string) ([]model.Sale, error)
}

// PaymentLedger reads the append-only record of payment transactions.
type PaymentLedger interface {
	ListBySale(ctx context.Context, saleID string) ([]model.LedgerEntry, error)
}

// RateFactorRepository persists the rate table. Save rejects a tenor that
// another entry already uses with apperror.ErrValidation.
type RateFactorRepository interface {
	Save(ctx context.Context, rf model.RateFactor) error
	Delete(ctx context.Context, rf model.RateFactor) error
	FindByID(ctx context.Context, id string) (model.RateFactor, error)
	FindByTenor(ctx context.Context, tenorMonths int) (model.RateFactor, error)
	List(ctx context.Context) ([]model.RateFactor, error)
}

// ---------------------------------------------------------------------------
// Collaborator ports (read-only)
// ---------------------------------------------------------------------------

// ClientDirectory resolves client identity records.
type ClientDirectory interface {
	FindByID(ctx context.Context, id string) (model.ClientSnapshot, error)
}

// ProductCatalog resolves prices and stock levels at sale time.
type ProductCatalog interface {
	FindByIDs(ctx context.Context, ids []string) ([]model.Product, error)
}

// ---------------------------------------------------------------------------
// Identity
// ---------------------------------------------------------------------------

// TransactionIDGenerator issues unique, monotonically increasing payment
// transaction identifiers.
type TransactionIDGenerator interface {
	NewTransactionID() string
}
