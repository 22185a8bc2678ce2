package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jmaisinchop/app-renattos/internal/application/dto"
	"github.com/jmaisinchop/app-renattos/internal/application/usecase"
	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	"github.com/jmaisinchop/app-renattos/pkg/auth"
)

// UseCases groups the application operations the handler exposes.
type UseCases struct {
	RegisterSale       *usecase.RegisterSaleUseCase
	GetSale            *usecase.GetSaleUseCase
	GetSaleBalance     *usecase.GetSaleBalanceUseCase
	ListActiveCredits  *usecase.ListActiveCreditsUseCase
	ListPaymentHistory *usecase.ListPaymentHistoryUseCase
	QuotePayment       *usecase.QuotePaymentUseCase
	PostPayment        *usecase.PostPaymentUseCase
	ReprintReceipt     *usecase.ReprintReceiptUseCase
	SaveRateFactor     *usecase.SaveRateFactorUseCase
	DeleteRateFactor   *usecase.DeleteRateFactorUseCase
	ListRateFactors    *usecase.ListRateFactorsUseCase
}

// CreditHandler implements CreditServiceServer on top of the use cases.
type CreditHandler struct {
	UnimplementedCreditServiceServer
	uc     UseCases
	logger *slog.Logger
}

// NewCreditHandler creates a new gRPC credit handler.
func NewCreditHandler(uc UseCases, logger *slog.Logger) *CreditHandler {
	return &CreditHandler{uc: uc, logger: logger}
}

// RegisterSale handles the gRPC RegisterSale request.
func (h *CreditHandler) RegisterSale(ctx context.Context, req *dto.RegisterSaleRequest) (*dto.SaleResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	in := *req
	in.OperatorID = operatorFor(ctx, req.OperatorID)

	resp, err := h.uc.RegisterSale.Execute(ctx, in)
	if err != nil {
		return nil, h.toStatus(ctx, "RegisterSale", err)
	}
	return &resp, nil
}

// GetSale handles the gRPC GetSale request.
func (h *CreditHandler) GetSale(ctx context.Context, req *dto.SaleRequest) (*dto.SaleResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	resp, err := h.uc.GetSale.Execute(ctx, *req)
	if err != nil {
		return nil, h.toStatus(ctx, "GetSale", err)
	}
	return &resp, nil
}

// ListActiveCredits handles the gRPC ListActiveCredits request.
func (h *CreditHandler) ListActiveCredits(ctx context.Context, req *dto.ListActiveCreditsRequest) (*dto.ListActiveCreditsResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	resp, err := h.uc.ListActiveCredits.Execute(ctx, *req)
	if err != nil {
		return nil, h.toStatus(ctx, "ListActiveCredits", err)
	}
	return &resp, nil
}

// GetSaleBalance handles the gRPC GetSaleBalance request.
func (h *CreditHandler) GetSaleBalance(ctx context.Context, req *dto.SaleRequest) (*dto.SaleBalanceResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	resp, err := h.uc.GetSaleBalance.Execute(ctx, *req)
	if err != nil {
		return nil, h.toStatus(ctx, "GetSaleBalance", err)
	}
	return &resp, nil
}

// QuotePayment handles the gRPC QuotePayment request.
func (h *CreditHandler) QuotePayment(ctx context.Context, req *dto.QuotePaymentRequest) (*dto.PaymentQuoteResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	resp, err := h.uc.QuotePayment.Execute(ctx, *req)
	if err != nil {
		return nil, h.toStatus(ctx, "QuotePayment", err)
	}
	return &resp, nil
}

// PostPayment handles the gRPC PostPayment request. The operator recorded on
// the transaction is the authenticated caller, not the one in the payload.
func (h *CreditHandler) PostPayment(ctx context.Context, req *dto.PostPaymentRequest) (*dto.PostPaymentResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	in := *req
	in.OperatorID = operatorFor(ctx, req.OperatorID)

	resp, err := h.uc.PostPayment.Execute(ctx, in)
	if err != nil {
		return nil, h.toStatus(ctx, "PostPayment", err)
	}
	return &resp, nil
}

// ReprintReceipt handles the gRPC ReprintReceipt request.
func (h *CreditHandler) ReprintReceipt(ctx context.Context, req *dto.ReprintReceiptRequest) (*dto.ReceiptResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	resp, err := h.uc.ReprintReceipt.Execute(ctx, *req)
	if err != nil {
		return nil, h.toStatus(ctx, "ReprintReceipt", err)
	}
	return &resp, nil
}

// ListPaymentHistory handles the gRPC ListPaymentHistory request.
func (h *CreditHandler) ListPaymentHistory(ctx context.Context, req *dto.SaleRequest) (*dto.PaymentHistoryResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	resp, err := h.uc.ListPaymentHistory.Execute(ctx, *req)
	if err != nil {
		return nil, h.toStatus(ctx, "ListPaymentHistory", err)
	}
	return &resp, nil
}

// ListRateFactors handles the gRPC ListRateFactors request.
func (h *CreditHandler) ListRateFactors(ctx context.Context, _ *ListRateFactorsRequest) (*dto.ListRateFactorsResponse, error) {
	resp, err := h.uc.ListRateFactors.Execute(ctx)
	if err != nil {
		return nil, h.toStatus(ctx, "ListRateFactors", err)
	}
	return &resp, nil
}

// SaveRateFactor handles the gRPC SaveRateFactor request.
func (h *CreditHandler) SaveRateFactor(ctx context.Context, req *dto.SaveRateFactorRequest) (*dto.RateFactorResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	resp, err := h.uc.SaveRateFactor.Execute(ctx, *req)
	if err != nil {
		return nil, h.toStatus(ctx, "SaveRateFactor", err)
	}
	return &resp, nil
}

// DeleteRateFactor handles the gRPC DeleteRateFactor request.
func (h *CreditHandler) DeleteRateFactor(ctx context.Context, req *dto.DeleteRateFactorRequest) (*dto.DeleteRateFactorResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	resp, err := h.uc.DeleteRateFactor.Execute(ctx, *req)
	if err != nil {
		return nil, h.toStatus(ctx, "DeleteRateFactor", err)
	}
	return &resp, nil
}

func operatorFor(ctx context.Context, fallback string) string {
	if id := auth.OperatorID(ctx); id != "" {
		return id
	}
	return fallback
}

// toStatus maps an application error onto a gRPC status. Only unexpected
// failures are logged; domain rejections are the caller's to report.
func (h *CreditHandler) toStatus(ctx context.Context, method string, err error) error {
	code := codeFor(err)
	if code == codes.Internal || code == codes.Unavailable {
		h.logger.ErrorContext(ctx, "credit operation failed", "method", method, "error", err)
	}

	msg := err.Error()
	if appErr, ok := apperror.AsAppError(err); ok {
		msg = appErr.Message
	}
	return status.Error(code, msg)
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrInvalidAmount):
		return codes.InvalidArgument
	case errors.Is(err, apperror.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, apperror.ErrConcurrencyConflict):
		return codes.Aborted
	case errors.Is(err, apperror.ErrStockInsufficient):
		return codes.FailedPrecondition
	case errors.Is(err, apperror.ErrPersistence):
		return codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}
