package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmaisinchop/app-renattos/internal/application/dto"
	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	"github.com/jmaisinchop/app-renattos/internal/domain/model"
	"github.com/jmaisinchop/app-renattos/internal/domain/port"
	"github.com/jmaisinchop/app-renattos/internal/domain/valueobject"
)

// RegisterSaleUseCase prices a sale against the catalog, schedules its
// installments when financed, and stores it while taking its items out of stock.
type RegisterSaleUseCase struct {
	sales    port.SaleRepository
	clients  port.ClientDirectory
	products port.ProductCatalog
	rates    port.RateFactorRepository
	policy   Policy
	logger   *slog.Logger
	now      func() time.Time
}

// NewRegisterSaleUseCase wires dependencies.
func NewRegisterSaleUseCase(
	sales port.SaleRepository,
	clients port.ClientDirectory,
	products port.ProductCatalog,
	rates port.RateFactorRepository,
	policy Policy,
	logger *slog.Logger,
) *RegisterSaleUseCase {
	return &RegisterSaleUseCase{
		sales:    sales,
		clients:  clients,
		products: products,
		rates:    rates,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
}

// Execute registers a sale.
func (uc *RegisterSaleUseCase) Execute(ctx context.Context, req dto.RegisterSaleRequest) (dto.SaleResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.SaleResponse{}, err
	}
	paymentType, err := valueobject.NewPaymentType(req.PaymentType)
	if err != nil {
		return dto.SaleResponse{}, apperror.ErrValidation.WithError(err)
	}

	ctx, cancel := uc.policy.withTimeout(ctx)
	defer cancel()
	now := uc.now().UTC()

	// 1. Resolve the client.
	client, err := uc.clients.FindByID(ctx, req.ClientID)
	if err != nil {
		return dto.SaleResponse{}, fmt.Errorf("find client: %w", err)
	}

	// 2. Resolve products and check stock before pricing anything.
	requested := make(map[string]int, len(req.Items))
	ids := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		if _, seen := requested[it.ProductID]; !seen {
			ids = append(ids, it.ProductID)
		}
		requested[it.ProductID] += it.Quantity
	}
	found, err := uc.products.FindByIDs(ctx, ids)
	if err != nil {
		return dto.SaleResponse{}, fmt.Errorf("find products: %w", err)
	}
	catalog := make(map[string]model.Product, len(found))
	for _, p := range found {
		catalog[p.ID] = p
	}
	for _, id := range ids {
		p, ok := catalog[id]
		if !ok {
			return dto.SaleResponse{}, apperror.ErrNotFound.Withf("product %s not found", id)
		}
		if p.Stock < requested[id] {
			return dto.SaleResponse{}, apperror.ErrStockInsufficient.
				Withf("insufficient stock for %s: requested %d, available %d", p.Name, requested[id], p.Stock).
				WithDetails(map[string]any{"product_id": id, "requested": requested[id], "available": p.Stock})
		}
	}

	// 3. Price the lines.
	items := make([]model.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		p := catalog[it.ProductID]
		items = append(items, model.LineItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   p.PriceFor(paymentType.IsFinanced()),
		})
	}

	params := model.NewSaleParams{
		Client:      client,
		Items:       items,
		PaymentType: paymentType,
		DownPayment: req.DownPayment,
		OperatorID:  req.OperatorID,
		Now:         now,
	}

	// 4. Financing terms.
	if paymentType.IsFinanced() {
		rf, err := uc.rates.FindByID(ctx, req.RateFactorID)
		if err != nil {
			return dto.SaleResponse{}, fmt.Errorf("find rate factor: %w", err)
		}
		params.Rate = rf.Snapshot()
		params.FirstDueDate = valueobject.DateOf(now).AddMonthsClamped(1)
		if req.FirstDueDate != "" {
			params.FirstDueDate, err = valueobject.ParseDate(req.FirstDueDate)
			if err != nil {
				return dto.SaleResponse{}, apperror.ErrValidation.WithError(err)
			}
		}
	}

	sale, err := model.NewSale(params)
	if err != nil {
		return dto.SaleResponse{}, fmt.Errorf("create sale: %w", err)
	}

	// 5. Persist together with the stock decrement.
	if err := uc.sales.Create(ctx, sale, sale.Reservations()); err != nil {
		return dto.SaleResponse{}, fmt.Errorf("save sale: %w", err)
	}

	uc.logger.InfoContext(ctx, "sale registered",
		"sale_id", sale.ID(),
		"client_id", client.ID,
		"payment_type", paymentType.String(),
		"subtotal", sale.Subtotal().StringFixed(2),
		"installments", len(sale.Installments()),
	)
	return toSaleResponse(sale), nil
}
