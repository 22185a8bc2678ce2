package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmaisinchop/app-renattos/internal/application/dto"
	"github.com/jmaisinchop/app-renattos/internal/domain/model"
	"github.com/jmaisinchop/app-renattos/internal/domain/port"
	"github.com/jmaisinchop/app-renattos/internal/domain/service"
)

// ReprintReceiptUseCase rebuilds the receipt of an installment's most recent payment.
type ReprintReceiptUseCase struct {
	sales    port.SaleRepository
	clients  port.ClientDirectory
	receipts *service.ReceiptBuilder
	logger   *slog.Logger
}

// NewReprintReceiptUseCase wires dependencies.
func NewReprintReceiptUseCase(
	sales port.SaleRepository,
	clients port.ClientDirectory,
	receipts *service.ReceiptBuilder,
	logger *slog.Logger,
) *ReprintReceiptUseCase {
	return &ReprintReceiptUseCase{sales: sales, clients: clients, receipts: receipts, logger: logger}
}

func (uc *ReprintReceiptUseCase) Execute(ctx context.Context, req dto.ReprintReceiptRequest) (dto.ReceiptResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.ReceiptResponse{}, err
	}
	sale, err := uc.sales.FindByID(ctx, req.SaleID)
	if err != nil {
		return dto.ReceiptResponse{}, fmt.Errorf("find sale: %w", err)
	}

	client, err := uc.clients.FindByID(ctx, sale.Client().ID)
	if err != nil {
		uc.logger.WarnContext(ctx, "client lookup failed, using sale snapshot for receipt",
			"sale_id", sale.ID(), "error", err)
		client = model.ClientSnapshot{}
	}

	receipt, err := uc.receipts.Reprint(sale, client, req.InstallmentNumber)
	if err != nil {
		return dto.ReceiptResponse{}, fmt.Errorf("reprint receipt: %w", err)
	}
	return toReceiptResponse(receipt), nil
}
