package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	"github.com/jmaisinchop/app-renattos/internal/domain/model"
	"github.com/jmaisinchop/app-renattos/internal/domain/valueobject"
	"github.com/jmaisinchop/app-renattos/pkg/events"
)

// PaymentLedger reads the payment_ledger table.
type PaymentLedger struct {
	pool *pgxpool.Pool
}

func NewPaymentLedger(pool *pgxpool.Pool) *PaymentLedger {
	return &PaymentLedger{pool: pool}
}

// ListBySale returns the sale's ledger rows in the order they were appended.
func (l *PaymentLedger) ListBySale(ctx context.Context, saleID string) ([]model.LedgerEntry, error) {
	const query = `
		SELECT transaction_id, sale_id, installment_number, payment_date,
			total_amount, penalty_portion, capital_portion, free_promotion_applied,
			penalty_charged, balance_before, reference, operator_id, recorded_at
		FROM payment_ledger
		WHERE sale_id = $1
		ORDER BY seq
	`
	rows, err := l.pool.Query(ctx, query, saleID)
	if err != nil {
		return nil, translate(err, "list ledger")
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var (
			e           model.LedgerEntry
			paymentDate time.Time
		)
		t := &e.Transaction
		if err := rows.Scan(
			&t.TransactionID, &e.SaleID, &e.InstallmentNumber, &paymentDate,
			&t.TotalAmount, &t.PenaltyPortion, &t.CapitalPortion, &t.FreePromotionApplied,
			&t.PenaltyCharged, &t.BalanceBefore, &t.Reference, &t.OperatorID, &t.RecordedAt,
		); err != nil {
			return nil, translate(err, "scan ledger entry")
		}
		t.PaymentDate = valueobject.DateOf(paymentDate)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "iterate ledger")
	}
	return entries, nil
}

// ---------------------------------------------------------------------------
// Client directory and product catalog
// ---------------------------------------------------------------------------

// ClientDirectory reads the clients table.
type ClientDirectory struct {
	pool *pgxpool.Pool
}

func NewClientDirectory(pool *pgxpool.Pool) *ClientDirectory {
	return &ClientDirectory{pool: pool}
}

func (d *ClientDirectory) FindByID(ctx context.Context, id string) (model.ClientSnapshot, error) {
	const query = `
		SELECT id, full_name, identification_number, address, phone
		FROM clients WHERE id = $1
	`
	var c model.ClientSnapshot
	err := d.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.FullName, &c.IdentificationNumber, &c.Address, &c.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ClientSnapshot{}, apperror.ErrNotFound.Withf("client %s not found", id)
	}
	if err != nil {
		return model.ClientSnapshot{}, translate(err, "find client")
	}
	return c, nil
}

// ProductCatalog reads the products table.
type ProductCatalog struct {
	pool *pgxpool.Pool
}

func NewProductCatalog(pool *pgxpool.Pool) *ProductCatalog {
	return &ProductCatalog{pool: pool}
}

// FindByIDs returns the products that exist among ids; missing ids are
// simply absent from the result.
func (c *ProductCatalog) FindByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	const query = `
		SELECT id, name, cash_price, financed_price, stock
		FROM products WHERE id = ANY($1)
		ORDER BY id
	`
	rows, err := c.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, translate(err, "find products")
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Product, error) {
		var p model.Product
		err := row.Scan(&p.ID, &p.Name, &p.CashPrice, &p.FinancedPrice, &p.Stock)
		return p, err
	})
	if err != nil {
		return nil, translate(err, "scan products")
	}
	return products, nil
}

// ---------------------------------------------------------------------------
// Outbox
// ---------------------------------------------------------------------------

// OutboxStore implements events.OutboxReader on the outbox table.
type OutboxStore struct {
	pool *pgxpool.Pool
}

var _ events.OutboxReader = (*OutboxStore)(nil)

func NewOutboxStore(pool *pgxpool.Pool) *OutboxStore {
	return &OutboxStore{pool: pool}
}

func (o *OutboxStore) FetchUnpublished(ctx context.Context, batchSize int) ([]events.OutboxEntry, error) {
	const query = `
		SELECT id, aggregate_id, aggregate_type, event_type, payload, created_at, published_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
	`
	rows, err := o.pool.Query(ctx, query, batchSize)
	if err != nil {
		return nil, translate(err, "fetch outbox")
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (events.OutboxEntry, error) {
		var e events.OutboxEntry
		err := row.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.Payload, &e.CreatedAt, &e.PublishedAt)
		return e, err
	})
	if err != nil {
		return nil, translate(err, "scan outbox")
	}
	return entries, nil
}

func (o *OutboxStore) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := o.pool.Exec(ctx, `UPDATE outbox SET published_at = now() WHERE id = ANY($1)`, ids)
	return translate(err, "mark outbox published")
}
