// Package postgres implements the repository ports on PostgreSQL through
// pgx. Sales carry their schedule as JSONB; every write also appends the
// payment ledger and the outbox inside the same transaction.
package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	pgutil "github.com/jmaisinchop/app-renattos/pkg/postgres"
)

// translate maps a driver error onto the domain taxonomy. AppErrors pass
// through untouched so that conflicts raised inside a transaction keep
// their code.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.ErrNotFound.Withf("%s: no rows", op)
	}
	if pgutil.IsSerializationFailure(err) {
		return apperror.ErrConcurrencyConflict.WithError(fmt.Errorf("%s: %w", op, err))
	}
	return apperror.ErrPersistence.WithError(fmt.Errorf("%s: %w", op, err))
}
