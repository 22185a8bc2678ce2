package grpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/jmaisinchop/app-renattos/internal/application/dto"
	"github.com/jmaisinchop/app-renattos/internal/application/usecase"
	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	"github.com/jmaisinchop/app-renattos/internal/domain/model"
	"github.com/jmaisinchop/app-renattos/internal/domain/service"
	"github.com/jmaisinchop/app-renattos/internal/infrastructure/idgen"
	"github.com/jmaisinchop/app-renattos/internal/infrastructure/persistence/memory"
	"github.com/jmaisinchop/app-renattos/pkg/auth"
	"github.com/jmaisinchop/app-renattos/pkg/money"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	conn   *grpclib.ClientConn
	jwt    *auth.JWTService
	rateID string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	logger := discardLogger()

	store := memory.NewStore()
	store.PutClient(model.ClientSnapshot{ID: "client-1", FullName: "Lucia Mendoza"})
	store.PutProduct(model.Product{
		ID: "fridge", Name: "Refrigerator",
		CashPrice: decimal.NewFromInt(900), FinancedPrice: decimal.NewFromInt(1000), Stock: 2,
	})
	sales := memory.NewSaleRepository(store)
	rates := memory.NewRateFactorRepository(store)
	clients := memory.NewClientDirectory(store)
	rate, err := model.NewRateFactor(12, decimal.RequireFromString("1.1"), decimal.RequireFromString("0.09"), false, time.Now())
	require.NoError(t, err)
	require.NoError(t, rates.Save(context.Background(), rate))

	policy := usecase.DefaultPolicy()
	receipts := service.NewReceiptBuilder(money.USD)
	handler := NewCreditHandler(UseCases{
		RegisterSale:       usecase.NewRegisterSaleUseCase(sales, clients, memory.NewProductCatalog(store), rates, policy, logger),
		GetSale:            usecase.NewGetSaleUseCase(sales),
		GetSaleBalance:     usecase.NewGetSaleBalanceUseCase(sales),
		ListActiveCredits:  usecase.NewListActiveCreditsUseCase(sales),
		ListPaymentHistory: usecase.NewListPaymentHistoryUseCase(sales, memory.NewPaymentLedger(store)),
		QuotePayment:       usecase.NewQuotePaymentUseCase(sales, rates, policy),
		PostPayment:        usecase.NewPostPaymentUseCase(sales, rates, clients, idgen.NewULIDGenerator(), receipts, policy, logger),
		ReprintReceipt:     usecase.NewReprintReceiptUseCase(sales, clients, receipts, logger),
		SaveRateFactor:     usecase.NewSaveRateFactorUseCase(rates, logger),
		DeleteRateFactor:   usecase.NewDeleteRateFactorUseCase(rates, logger),
		ListRateFactors:    usecase.NewListRateFactorsUseCase(rates),
	}, logger)

	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{Secret: "handler-test-secret", Issuer: "renattos-pos", Expiration: time.Minute})
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(handler, jwtSvc, logger, ServerOptions{})
	go func() { _ = srv.ServeListener(lis) }()
	t.Cleanup(srv.GracefulStop)

	conn, err := grpclib.NewClient("passthrough:///bufnet",
		grpclib.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpclib.WithTransportCredentials(insecure.NewCredentials()),
		grpclib.WithDefaultCallOptions(grpclib.CallContentSubtype(CodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return testEnv{conn: conn, jwt: jwtSvc, rateID: rate.ID()}
}

func (e testEnv) as(t *testing.T, operatorID string, roles ...string) context.Context {
	t.Helper()
	token, err := e.jwt.GenerateToken(operatorID, "store-1", roles)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func (e testEnv) call(ctx context.Context, method string, req, resp any) error {
	return e.conn.Invoke(ctx, FullMethod(method), req, resp)
}

func TestCreditService_SaleAndPaymentFlow(t *testing.T) {
	env := newTestEnv(t)
	cashier := env.as(t, "cashier-01", auth.RoleCashier)

	var sale dto.SaleResponse
	require.NoError(t, env.call(cashier, "RegisterSale", &dto.RegisterSaleRequest{
		ClientID:     "client-1",
		Items:        []dto.SaleItemRequest{{ProductID: "fridge", Quantity: 1}},
		PaymentType:  "financed",
		RateFactorID: env.rateID,
		FirstDueDate: "2025-01-31",
		OperatorID:   "spoofed",
	}, &sale))
	assert.Equal(t, "cashier-01", sale.OperatorID)
	require.Len(t, sale.Installments, 12)
	assert.True(t, sale.InstallmentAmount.Equal(decimal.NewFromInt(99)))

	var quote dto.PaymentQuoteResponse
	require.NoError(t, env.call(cashier, "QuotePayment", &dto.QuotePaymentRequest{
		SaleID: sale.ID, InstallmentNumber: 1, PaymentDate: "2025-02-10",
	}, &quote))
	assert.True(t, quote.PenaltyApplicable)
	assert.True(t, quote.SuggestedTotal.Equal(decimal.NewFromInt(109)))

	var posted dto.PostPaymentResponse
	require.NoError(t, env.call(cashier, "PostPayment", &dto.PostPaymentRequest{
		SaleID: sale.ID, InstallmentNumber: 1, Amount: decimal.NewFromInt(109), PaymentDate: "2025-02-10",
	}, &posted))
	assert.Equal(t, "paid", posted.InstallmentStatus)
	assert.Equal(t, "cashier-01", posted.Receipt.OperatorID)
	assert.True(t, posted.Receipt.PenaltyPaid.Equal(decimal.NewFromInt(10)))

	var reprint dto.ReceiptResponse
	require.NoError(t, env.call(cashier, "ReprintReceipt", &dto.ReprintReceiptRequest{SaleID: sale.ID, InstallmentNumber: 1}, &reprint))
	assert.True(t, reprint.Reprint)
	assert.Equal(t, posted.TransactionID, reprint.TransactionID)

	var history dto.PaymentHistoryResponse
	require.NoError(t, env.call(cashier, "ListPaymentHistory", &dto.SaleRequest{SaleID: sale.ID}, &history))
	require.Len(t, history.Entries, 1)

	var balance dto.SaleBalanceResponse
	require.NoError(t, env.call(cashier, "GetSaleBalance", &dto.SaleRequest{SaleID: sale.ID}, &balance))
	assert.Equal(t, 1, balance.PaidCount)
	assert.False(t, balance.FullyPaid)

	var credits dto.ListActiveCreditsResponse
	require.NoError(t, env.call(cashier, "ListActiveCredits", &dto.ListActiveCreditsRequest{ClientID: "client-1"}, &credits))
	require.Len(t, credits.Credits, 1)
	assert.Equal(t, sale.ID, credits.Credits[0].SaleID)
}

func TestCreditService_ErrorCodes(t *testing.T) {
	env := newTestEnv(t)
	cashier := env.as(t, "cashier-01", auth.RoleCashier)

	t.Run("unknown sale is not found", func(t *testing.T) {
		err := env.call(cashier, "GetSale", &dto.SaleRequest{SaleID: "missing"}, &dto.SaleResponse{})
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("invalid request is invalid argument", func(t *testing.T) {
		err := env.call(cashier, "QuotePayment", &dto.QuotePaymentRequest{SaleID: "s", InstallmentNumber: 1, PaymentDate: "05/02/2025"}, &dto.PaymentQuoteResponse{})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("insufficient stock is failed precondition", func(t *testing.T) {
		err := env.call(cashier, "RegisterSale", &dto.RegisterSaleRequest{
			ClientID: "client-1", PaymentType: "cash",
			Items: []dto.SaleItemRequest{{ProductID: "fridge", Quantity: 5}},
		}, &dto.SaleResponse{})
		assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	})

	t.Run("missing token is unauthenticated", func(t *testing.T) {
		err := env.call(context.Background(), "ListRateFactors", &ListRateFactorsRequest{}, &dto.ListRateFactorsResponse{})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})
}

func TestCreditService_RateFactorAdministration(t *testing.T) {
	env := newTestEnv(t)
	admin := env.as(t, "admin-01", auth.RoleAdmin)
	cashier := env.as(t, "cashier-01", auth.RoleCashier)

	req := &dto.SaveRateFactorRequest{TenorMonths: 6, TermFactor: decimal.RequireFromString("1.05"), RateFactor: decimal.RequireFromString("0.18")}

	err := env.call(cashier, "SaveRateFactor", req, &dto.RateFactorResponse{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	var saved dto.RateFactorResponse
	require.NoError(t, env.call(admin, "SaveRateFactor", req, &saved))
	assert.Equal(t, 6, saved.TenorMonths)

	var list dto.ListRateFactorsResponse
	require.NoError(t, env.call(cashier, "ListRateFactors", &ListRateFactorsRequest{}, &list))
	require.Len(t, list.RateFactors, 2)
	assert.Equal(t, 6, list.RateFactors[0].TenorMonths)

	var deleted dto.DeleteRateFactorResponse
	require.NoError(t, env.call(admin, "DeleteRateFactor", &dto.DeleteRateFactorRequest{ID: saved.ID}, &deleted))
	assert.True(t, deleted.Deleted)
}

func TestCodeFor(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{apperror.ErrValidation, codes.InvalidArgument},
		{apperror.ErrInvalidAmount.Withf("amount exceeds balance"), codes.InvalidArgument},
		{apperror.ErrNotFound, codes.NotFound},
		{apperror.ErrConcurrencyConflict, codes.Aborted},
		{apperror.ErrStockInsufficient, codes.FailedPrecondition},
		{apperror.ErrPersistence.WithError(errors.New("dial tcp")), codes.Unavailable},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, codeFor(tc.err), tc.err.Error())
	}
}
