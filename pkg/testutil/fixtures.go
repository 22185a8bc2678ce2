package testutil

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Identifiers shared by fixtures across packages.
const (
	TestClientID   = "client-0001"
	TestOperatorID = "cashier-01"
	TestFridgeID   = "prod-fridge"
)

// ProductFixture is a catalog row inserted by SeedProduct.
type ProductFixture struct {
	ID            string
	Name          string
	CashPrice     decimal.Decimal
	FinancedPrice decimal.Decimal
	Stock         int
}

// SeedClient inserts a client registry row.
func SeedClient(ctx context.Context, t *testing.T, pool *pgxpool.Pool, id, fullName, identification string) {
	t.Helper()

	const q = `
		INSERT INTO clients (id, full_name, identification_number, address, phone)
		VALUES ($1, $2, $3, 'Av. 9 de Octubre 100', '0991234567')
	`
	if _, err := pool.Exec(ctx, q, id, fullName, identification); err != nil {
		t.Fatalf("failed to seed client %s: %v", id, err)
	}
}

// SeedProduct inserts a catalog row.
func SeedProduct(ctx context.Context, t *testing.T, pool *pgxpool.Pool, p ProductFixture) {
	t.Helper()

	const q = `
		INSERT INTO products (id, name, cash_price, financed_price, stock)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := pool.Exec(ctx, q, p.ID, p.Name, p.CashPrice, p.FinancedPrice, p.Stock); err != nil {
		t.Fatalf("failed to seed product %s: %v", p.ID, err)
	}
}
