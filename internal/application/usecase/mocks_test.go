package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jmaisinchop/app-renattos/internal/domain/model"
	"github.com/jmaisinchop/app-renattos/internal/domain/port"
	"github.com/jmaisinchop/app-renattos/internal/domain/valueobject"
	"github.com/jmaisinchop/app-renattos/internal/infrastructure/persistence/memory"
)

// --- Mocks ---

// mockSaleRepository delegates to next unless a func field overrides the call.
type mockSaleRepository struct {
	next         port.SaleRepository
	findByIDFunc func(ctx context.Context, id string) (model.Sale, error)
	updateFunc   func(ctx context.Context, sale model.Sale) error
	finds        atomic.Int32
	updates      atomic.Int32
}

func (m *mockSaleRepository) Create(ctx context.Context, sale model.Sale, res []model.StockReservation) error {
	return m.next.Create(ctx, sale, res)
}

func (m *mockSaleRepository) Update(ctx context.Context, sale model.Sale) error {
	m.updates.Add(1)
	if m.updateFunc != nil {
		return m.updateFunc(ctx, sale)
	}
	return m.next.Update(ctx, sale)
}

func (m *mockSaleRepository) FindByID(ctx context.Context, id string) (model.Sale, error) {
	m.finds.Add(1)
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return m.next.FindByID(ctx, id)
}

func (m *mockSaleRepository) FindFinancedByClient(ctx context.Context, clientID string) ([]model.Sale, error) {
	return m.next.FindFinancedByClient(ctx, clientID)
}

type mockClientDirectory struct {
	findByIDFunc func(ctx context.Context, id string) (model.ClientSnapshot, error)
}

func (m *mockClientDirectory) FindByID(ctx context.Context, id string) (model.ClientSnapshot, error) {
	return m.findByIDFunc(ctx, id)
}

type fixedIDs struct{ n atomic.Int64 }

func (f *fixedIDs) NewTransactionID() string {
	return "TXN-TEST" + strconv.FormatInt(f.n.Add(1), 10)
}

// --- Fixtures ---

var firstDue = valueobject.NewDate(2025, time.January, 15)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store    *memory.Store
	sales    *memory.SaleRepository
	rates    *memory.RateFactorRepository
	clients  *memory.ClientDirectory
	products *memory.ProductCatalog
	ledger   *memory.PaymentLedger
	rate     model.RateFactor
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.NewStore()
	store.PutClient(model.ClientSnapshot{
		ID: "client-1", FullName: "Lucia Mendoza", IdentificationNumber: "0912345678",
		Address: "Av. Quito 123", Phone: "0987654321",
	})
	store.PutProduct(model.Product{
		ID: "fridge", Name: "Refrigerator",
		CashPrice: decimal.NewFromInt(900), FinancedPrice: decimal.NewFromInt(1000), Stock: 5,
	})
	store.PutProduct(model.Product{
		ID: "blender", Name: "Blender",
		CashPrice: decimal.RequireFromString("45.50"), FinancedPrice: decimal.NewFromInt(50), Stock: 1,
	})

	f := fixture{
		store:    store,
		sales:    memory.NewSaleRepository(store),
		rates:    memory.NewRateFactorRepository(store),
		clients:  memory.NewClientDirectory(store),
		products: memory.NewProductCatalog(store),
		ledger:   memory.NewPaymentLedger(store),
	}
	f.rate = f.addRate(t, 12, "1.1", "0.09", false)
	return f
}

func (f fixture) addRate(t *testing.T, tenor int, tf, rf string, free bool) model.RateFactor {
	t.Helper()
	rate, err := model.NewRateFactor(tenor, decimal.RequireFromString(tf), decimal.RequireFromString(rf), free, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.rates.Save(context.Background(), rate))
	return rate
}

// financedSale stores a sale of one refrigerator (principal 1000) priced with rate.
func (f fixture) financedSale(t *testing.T, rate model.RateFactor) model.Sale {
	t.Helper()
	client, err := f.clients.FindByID(context.Background(), "client-1")
	require.NoError(t, err)
	sale, err := model.NewSale(model.NewSaleParams{
		Client: client,
		Items: []model.LineItem{
			{ProductID: "fridge", ProductName: "Refrigerator", Quantity: 1, UnitPrice: decimal.NewFromInt(1000)},
		},
		PaymentType:  valueobject.PaymentTypeFinanced,
		Rate:         rate.Snapshot(),
		FirstDueDate: firstDue,
		OperatorID:   "cashier-1",
		Now:          time.Date(2024, time.December, 15, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, f.sales.Create(context.Background(), sale, sale.Reservations()))
	return sale
}
