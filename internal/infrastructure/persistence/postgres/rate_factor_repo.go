package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	"github.com/jmaisinchop/app-renattos/internal/domain/model"
	pgutil "github.com/jmaisinchop/app-renattos/pkg/postgres"
)

const (
	rateFactorColumns = `id, tenor_months, term_factor, rate_factor, last_installment_free, version, created_at, updated_at`
	tenorConstraint   = "rate_factors_tenor_key"
)

// RateFactorRepository implements port.RateFactorRepository using PostgreSQL.
type RateFactorRepository struct {
	pool *pgxpool.Pool
}

// NewRateFactorRepository creates a new PostgreSQL-backed RateFactorRepository.
func NewRateFactorRepository(pool *pgxpool.Pool) *RateFactorRepository {
	return &RateFactorRepository{pool: pool}
}

// Save upserts the entry, bumping its stored version on update, and writes
// its change events to the outbox in the same transaction. A tenor already
// used by another entry is rejected by the unique constraint.
func (r *RateFactorRepository) Save(ctx context.Context, rf model.RateFactor) error {
	err := pgutil.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		const upsertSQL = `
			INSERT INTO rate_factors (` + rateFactorColumns + `)
			VALUES ($1, $2, $3, $4, $5, 1, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				tenor_months = EXCLUDED.tenor_months,
				term_factor = EXCLUDED.term_factor,
				rate_factor = EXCLUDED.rate_factor,
				last_installment_free = EXCLUDED.last_installment_free,
				version = rate_factors.version + 1,
				updated_at = EXCLUDED.updated_at
		`
		_, err := tx.Exec(ctx, upsertSQL,
			rf.ID(), rf.TenorMonths(), rf.TermFactor(), rf.RateFactor(),
			rf.LastInstallmentFree(), rf.CreatedAt(), rf.UpdatedAt(),
		)
		if err != nil {
			if pgutil.IsUniqueViolation(err, tenorConstraint) {
				return apperror.ErrValidation.Withf("a rate factor for %d months already exists", rf.TenorMonths())
			}
			return fmt.Errorf("upsert rate factor: %w", err)
		}
		return insertOutbox(ctx, tx, rf.DomainEvents())
	})
	return translate(err, "save rate factor")
}

// Delete removes the entry and records its removal event.
func (r *RateFactorRepository) Delete(ctx context.Context, rf model.RateFactor) error {
	err := pgutil.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM rate_factors WHERE id = $1`, rf.ID())
		if err != nil {
			return fmt.Errorf("delete rate factor: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperror.ErrNotFound.Withf("rate factor %s not found", rf.ID())
		}
		return insertOutbox(ctx, tx, rf.DomainEvents())
	})
	return translate(err, "delete rate factor")
}

func (r *RateFactorRepository) FindByID(ctx context.Context, id string) (model.RateFactor, error) {
	query := `SELECT ` + rateFactorColumns + ` FROM rate_factors WHERE id = $1`
	rf, err := scanRateFactor(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RateFactor{}, apperror.ErrNotFound.Withf("rate factor %s not found", id)
	}
	if err != nil {
		return model.RateFactor{}, translate(err, "find rate factor")
	}
	return rf, nil
}

func (r *RateFactorRepository) FindByTenor(ctx context.Context, tenorMonths int) (model.RateFactor, error) {
	query := `SELECT ` + rateFactorColumns + ` FROM rate_factors WHERE tenor_months = $1`
	rf, err := scanRateFactor(r.pool.QueryRow(ctx, query, tenorMonths))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RateFactor{}, apperror.ErrNotFound.Withf("no rate factor for %d months", tenorMonths)
	}
	if err != nil {
		return model.RateFactor{}, translate(err, "find rate factor by tenor")
	}
	return rf, nil
}

// List returns every entry ordered by tenor.
func (r *RateFactorRepository) List(ctx context.Context) ([]model.RateFactor, error) {
	query := `SELECT ` + rateFactorColumns + ` FROM rate_factors ORDER BY tenor_months`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, translate(err, "list rate factors")
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.RateFactor, error) {
		return scanRateFactor(row)
	})
	if err != nil {
		return nil, translate(err, "scan rate factors")
	}
	return out, nil
}

func scanRateFactor(row pgx.Row) (model.RateFactor, error) {
	var (
		id                   string
		tenor, version       int
		termFactor, rateFact decimal.Decimal
		lastFree             bool
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &tenor, &termFactor, &rateFact, &lastFree, &version, &createdAt, &updatedAt); err != nil {
		return model.RateFactor{}, err
	}
	return model.ReconstructRateFactor(id, tenor, termFactor, rateFact, lastFree, version, createdAt, updatedAt), nil
}
