package usecase

import (
	"context"
	"fmt"

	"github.com/jmaisinchop/app-renattos/internal/application/dto"
	"github.com/jmaisinchop/app-renattos/internal/domain/port"
)

// GetSaleUseCase retrieves a sale by ID.
type GetSaleUseCase struct {
	sales port.SaleRepository
}

// NewGetSaleUseCase wires dependencies.
func NewGetSaleUseCase(sales port.SaleRepository) *GetSaleUseCase {
	return &GetSaleUseCase{sales: sales}
}

// Execute returns the sale with its full installment schedule.
func (uc *GetSaleUseCase) Execute(ctx context.Context, req dto.SaleRequest) (dto.SaleResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.SaleResponse{}, err
	}
	sale, err := uc.sales.FindByID(ctx, req.SaleID)
	if err != nil {
		return dto.SaleResponse{}, fmt.Errorf("find sale: %w", err)
	}
	return toSaleResponse(sale), nil
}

// GetSaleBalanceUseCase summarises what remains owed on a sale.
type GetSaleBalanceUseCase struct {
	sales port.SaleRepository
}

// NewGetSaleBalanceUseCase wires dependencies.
func NewGetSaleBalanceUseCase(sales port.SaleRepository) *GetSaleBalanceUseCase {
	return &GetSaleBalanceUseCase{sales: sales}
}

func (uc *GetSaleBalanceUseCase) Execute(ctx context.Context, req dto.SaleRequest) (dto.SaleBalanceResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.SaleBalanceResponse{}, err
	}
	sale, err := uc.sales.FindByID(ctx, req.SaleID)
	if err != nil {
		return dto.SaleBalanceResponse{}, fmt.Errorf("find sale: %w", err)
	}

	resp := dto.SaleBalanceResponse{
		SaleID:             sale.ID(),
		OutstandingCapital: sale.OutstandingCapital(),
		InstallmentCount:   len(sale.Installments()),
		PaidCount:          sale.PaidCount(),
		FullyPaid:          !sale.HasOpenInstallments(),
	}
	if next, ok := sale.NextOpenInstallment(); ok {
		inst := toInstallmentResponse(next)
		resp.NextInstallment = &inst
	}
	return resp, nil
}

// ListActiveCreditsUseCase lists a client's financed sales that still have
// installments to collect.
type ListActiveCreditsUseCase struct {
	sales port.SaleRepository
}

// NewListActiveCreditsUseCase wires dependencies.
func NewListActiveCreditsUseCase(sales port.SaleRepository) *ListActiveCreditsUseCase {
	return &ListActiveCreditsUseCase{sales: sales}
}

func (uc *ListActiveCreditsUseCase) Execute(ctx context.Context, req dto.ListActiveCreditsRequest) (dto.ListActiveCreditsResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.ListActiveCreditsResponse{}, err
	}
	sales, err := uc.sales.FindFinancedByClient(ctx, req.ClientID)
	if err != nil {
		return dto.ListActiveCreditsResponse{}, fmt.Errorf("find sales: %w", err)
	}

	credits := make([]dto.ActiveCreditResponse, 0, len(sales))
	for _, s := range sales {
		if !s.HasOpenInstallments() {
			continue
		}
		credits = append(credits, dto.ActiveCreditResponse{
			SaleID:             s.ID(),
			CreatedAt:          s.CreatedAt(),
			TotalFinanced:      s.TotalFinanced(),
			InstallmentCount:   len(s.Installments()),
			PaidCount:          s.PaidCount(),
			OutstandingCapital: s.OutstandingCapital(),
		})
	}
	return dto.ListActiveCreditsResponse{ClientID: req.ClientID, Credits: credits}, nil
}

// ListPaymentHistoryUseCase returns the ledger rows of a sale in posting order.
type ListPaymentHistoryUseCase struct {
	sales  port.SaleRepository
	ledger port.PaymentLedger
}

// NewListPaymentHistoryUseCase wires dependencies.
func NewListPaymentHistoryUseCase(sales port.SaleRepository, ledger port.PaymentLedger) *ListPaymentHistoryUseCase {
	return &ListPaymentHistoryUseCase{sales: sales, ledger: ledger}
}

func (uc *ListPaymentHistoryUseCase) Execute(ctx context.Context, req dto.SaleRequest) (dto.PaymentHistoryResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.PaymentHistoryResponse{}, err
	}
	if _, err := uc.sales.FindByID(ctx, req.SaleID); err != nil {
		return dto.PaymentHistoryResponse{}, fmt.Errorf("find sale: %w", err)
	}
	entries, err := uc.ledger.ListBySale(ctx, req.SaleID)
	if err != nil {
		return dto.PaymentHistoryResponse{}, fmt.Errorf("list ledger: %w", err)
	}

	out := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.LedgerEntryResponse{
			InstallmentNumber: e.InstallmentNumber,
			Transaction:       toTransactionResponse(e.Transaction),
		})
	}
	return dto.PaymentHistoryResponse{SaleID: req.SaleID, Entries: out}, nil
}
