package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	"github.com/jmaisinchop/app-renattos/internal/domain/model"
	"github.com/jmaisinchop/app-renattos/pkg/events"
	pgutil "github.com/jmaisinchop/app-renattos/pkg/postgres"
)

const saleColumns = `
	id, client_id, client, items, subtotal, payment_type, down_payment,
	financed_principal, rate, installment_amount, total_financed,
	installments, operator_id, version, created_at, updated_at`

// SaleRepository implements port.SaleRepository using PostgreSQL.
type SaleRepository struct {
	pool *pgxpool.Pool
}

// NewSaleRepository creates a new PostgreSQL-backed SaleRepository.
func NewSaleRepository(pool *pgxpool.Pool) *SaleRepository {
	return &SaleRepository{pool: pool}
}

// Create inserts a new sale, decrements stock for every reservation, and
// writes the sale's events to the outbox, all in one transaction.
func (r *SaleRepository) Create(ctx context.Context, sale model.Sale, reservations []model.StockReservation) error {
	row, err := encodeSale(sale.State())
	if err != nil {
		return apperror.ErrPersistence.WithError(err)
	}

	err = pgutil.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		for _, res := range reservations {
			if err := reserveStock(ctx, tx, res); err != nil {
				return err
			}
		}

		const insertSaleSQL = `
			INSERT INTO sales (` + saleColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`
		_, err := tx.Exec(ctx, insertSaleSQL,
			row.ID, row.ClientID, row.Client, row.Items, row.Subtotal, row.PaymentType,
			row.DownPayment, row.FinancedPrincipal, row.Rate, row.InstallmentAmount,
			row.TotalFinanced, row.Installments, row.OperatorID, row.Version,
			row.CreatedAt, row.UpdatedAt,
		)
		if err != nil {
			if pgutil.IsUniqueViolation(err, "sales_pkey") {
				return apperror.ErrValidation.Withf("sale %s already exists", row.ID)
			}
			return fmt.Errorf("insert sale: %w", err)
		}

		return insertOutbox(ctx, tx, sale.DomainEvents())
	})
	return translate(err, "create sale")
}

// reserveStock takes res.Quantity units out of stock only when that many
// remain, so two sales racing for the last unit cannot both succeed.
func reserveStock(ctx context.Context, tx pgx.Tx, res model.StockReservation) error {
	const reserveSQL = `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
	`
	tag, err := tx.Exec(ctx, reserveSQL, res.ProductID, res.Quantity)
	if err != nil {
		return fmt.Errorf("reserve stock for %s: %w", res.ProductID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var name string
	var available int
	err = tx.QueryRow(ctx, `SELECT name, stock FROM products WHERE id = $1`, res.ProductID).Scan(&name, &available)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.ErrNotFound.Withf("product %s not found", res.ProductID)
	}
	if err != nil {
		return fmt.Errorf("read stock for %s: %w", res.ProductID, err)
	}
	return apperror.ErrStockInsufficient.
		Withf("insufficient stock for %s: requested %d, available %d", name, res.Quantity, available).
		WithDetails(map[string]any{"product_id": res.ProductID, "requested": res.Quantity, "available": available})
}

// Update stores the sale only if its row still carries sale.Version(),
// bumping the stored version by one. Pending ledger entries and domain
// events are appended in the same transaction.
func (r *SaleRepository) Update(ctx context.Context, sale model.Sale) error {
	row, err := encodeSale(sale.State())
	if err != nil {
		return apperror.ErrPersistence.WithError(err)
	}

	err = pgutil.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		const updateSaleSQL = `
			UPDATE sales SET
				installments = $3,
				version = version + 1,
				updated_at = $4
			WHERE id = $1 AND version = $2
		`
		tag, err := tx.Exec(ctx, updateSaleSQL, row.ID, row.Version, row.Installments, row.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update sale: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return r.missingOrStale(ctx, tx, row.ID, row.Version)
		}

		for _, entry := range sale.PendingLedgerEntries() {
			if err := insertLedgerEntry(ctx, tx, entry); err != nil {
				return err
			}
		}
		return insertOutbox(ctx, tx, sale.DomainEvents())
	})
	return translate(err, "update sale")
}

// missingOrStale explains why a version-checked update touched no row.
func (r *SaleRepository) missingOrStale(ctx context.Context, tx pgx.Tx, id string, expected int) error {
	var current int
	err := tx.QueryRow(ctx, `SELECT version FROM sales WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.ErrNotFound.Withf("sale %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("read sale version: %w", err)
	}
	return apperror.ErrConcurrencyConflict.Withf("sale %s was modified concurrently (expected version %d, found %d)",
		id, expected, current)
}

func insertLedgerEntry(ctx context.Context, tx pgx.Tx, entry model.LedgerEntry) error {
	const insertLedgerSQL = `
		INSERT INTO payment_ledger (
			transaction_id, sale_id, installment_number, payment_date,
			total_amount, penalty_portion, capital_portion, free_promotion_applied,
			penalty_charged, balance_before, reference, operator_id, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	t := entry.Transaction
	_, err := tx.Exec(ctx, insertLedgerSQL,
		t.TransactionID, entry.SaleID, entry.InstallmentNumber, t.PaymentDate.Time(),
		t.TotalAmount, t.PenaltyPortion, t.CapitalPortion, t.FreePromotionApplied,
		t.PenaltyCharged, t.BalanceBefore, t.Reference, t.OperatorID, t.RecordedAt,
	)
	if err != nil {
		if pgutil.IsUniqueViolation(err, "payment_ledger_pkey") {
			return apperror.ErrPersistence.Withf("transaction %s already recorded", t.TransactionID)
		}
		return fmt.Errorf("insert ledger entry %s: %w", t.TransactionID, err)
	}
	return nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, evts []events.DomainEvent) error {
	entries, err := events.NewOutboxEntries(evts)
	if err != nil {
		return apperror.ErrPersistence.WithError(err)
	}

	const insertOutboxSQL = `
		INSERT INTO outbox (id, aggregate_id, aggregate_type, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, e := range entries {
		if _, err := tx.Exec(ctx, insertOutboxSQL,
			e.ID, e.AggregateID, e.AggregateType, e.EventType, e.Payload, e.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert outbox event %s: %w", e.EventType, err)
		}
	}
	return nil
}

// FindByID retrieves a sale by its identifier.
func (r *SaleRepository) FindByID(ctx context.Context, id string) (model.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`

	row, err := scanSaleRow(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Sale{}, apperror.ErrNotFound.Withf("sale %s not found", id)
	}
	if err != nil {
		return model.Sale{}, translate(err, "find sale")
	}

	sale, err := reconstructSale(row)
	if err != nil {
		return model.Sale{}, apperror.ErrPersistence.WithError(err)
	}
	return sale, nil
}

// FindFinancedByClient returns the client's financed sales, oldest first.
func (r *SaleRepository) FindFinancedByClient(ctx context.Context, clientID string) ([]model.Sale, error) {
	query := `SELECT ` + saleColumns + `
		FROM sales
		WHERE client_id = $1 AND payment_type = 'financed'
		ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, translate(err, "list sales")
	}
	defer rows.Close()

	var sales []model.Sale
	for rows.Next() {
		row, err := scanSaleRow(rows)
		if err != nil {
			return nil, translate(err, "scan sale")
		}
		sale, err := reconstructSale(row)
		if err != nil {
			return nil, apperror.ErrPersistence.WithError(err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "iterate sales")
	}
	return sales, nil
}

func scanSaleRow(row pgx.Row) (saleRow, error) {
	var s saleRow
	err := row.Scan(
		&s.ID, &s.ClientID, &s.Client, &s.Items, &s.Subtotal, &s.PaymentType,
		&s.DownPayment, &s.FinancedPrincipal, &s.Rate, &s.InstallmentAmount,
		&s.TotalFinanced, &s.Installments, &s.OperatorID, &s.Version,
		&s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}
