package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/jmaisinchop/app-renattos/internal/application/dto"
	"github.com/jmaisinchop/app-renattos/internal/domain/apperror"
	"github.com/jmaisinchop/app-renattos/internal/domain/model"
	"github.com/jmaisinchop/app-renattos/internal/domain/port"
	"github.com/jmaisinchop/app-renattos/internal/domain/service"
	"github.com/jmaisinchop/app-renattos/internal/domain/valueobject"
)

const instrumentationName = "github.com/jmaisinchop/app-renattos/internal/application/usecase"

type postingMetrics struct {
	posted    metric.Int64Counter
	conflicts metric.Int64Counter
	penalty   metric.Float64Counter
}

func newPostingMetrics(meter metric.Meter) postingMetrics {
	m := postingMetrics{
		posted:    noop.Int64Counter{},
		conflicts: noop.Int64Counter{},
		penalty:   noop.Float64Counter{},
	}
	if c, err := meter.Int64Counter("credit_payments_posted",
		metric.WithDescription("Payment transactions persisted.")); err == nil {
		m.posted = c
	}
	if c, err := meter.Int64Counter("credit_payment_conflicts",
		metric.WithDescription("Payment postings that lost an optimistic concurrency race.")); err == nil {
		m.conflicts = c
	}
	if c, err := meter.Float64Counter("credit_penalty_collected",
		metric.WithDescription("Late penalty amounts collected."),
		metric.WithUnit("{USD}")); err == nil {
		m.penalty = c
	}
	return m
}

// PostPaymentUseCase applies a tender to one installment of a financed sale
// and returns the receipt data for it.
type PostPaymentUseCase struct {
	sales    port.SaleRepository
	rates    port.RateFactorRepository
	clients  port.ClientDirectory
	ids      port.TransactionIDGenerator
	receipts *service.ReceiptBuilder
	policy   Policy
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  postingMetrics
	retry    func() backoff.BackOff
	now      func() time.Time
}

// NewPostPaymentUseCase wires dependencies.
func NewPostPaymentUseCase(
	sales port.SaleRepository,
	rates port.RateFactorRepository,
	clients port.ClientDirectory,
	ids port.TransactionIDGenerator,
	receipts *service.ReceiptBuilder,
	policy Policy,
	logger *slog.Logger,
) *PostPaymentUseCase {
	return &PostPaymentUseCase{
		sales:    sales,
		rates:    rates,
		clients:  clients,
		ids:      ids,
		receipts: receipts,
		policy:   policy,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		metrics:  newPostingMetrics(otel.Meter(instrumentationName)),
		retry: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 20 * time.Millisecond
			b.MaxInterval = 500 * time.Millisecond
			return b
		},
		now: time.Now,
	}
}

// Execute posts the payment. A lost concurrency race re-reads the sale and
// re-evaluates the payment from scratch, up to Policy.MaxRetries times.
func (uc *PostPaymentUseCase) Execute(ctx context.Context, req dto.PostPaymentRequest) (dto.PostPaymentResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.PostPaymentResponse{}, err
	}
	paymentDate, err := valueobject.ParseDate(req.PaymentDate)
	if err != nil {
		return dto.PostPaymentResponse{}, apperror.ErrValidation.WithError(err)
	}

	ctx, cancel := uc.policy.withTimeout(ctx)
	defer cancel()

	ctx, span := uc.tracer.Start(ctx, "PostPayment", trace.WithAttributes(
		attribute.String("sale.id", req.SaleID),
		attribute.Int("installment.number", req.InstallmentNumber),
	))
	defer span.End()

	cmd := model.PaymentCommand{
		TransactionID:     uc.ids.NewTransactionID(),
		InstallmentNumber: req.InstallmentNumber,
		Amount:            req.Amount,
		PaymentDate:       paymentDate,
		PenaltyOverride:   req.Penalty,
		Reference:         req.Reference,
		OperatorID:        req.OperatorID,
	}

	attempts := 0
	post := func() (postedSale, error) {
		attempts++
		out, err := uc.attempt(ctx, req.SaleID, cmd)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, apperror.ErrConcurrencyConflict) {
			uc.metrics.conflicts.Add(ctx, 1)
			uc.logger.WarnContext(ctx, "payment posting lost a concurrent update, retrying",
				"sale_id", req.SaleID,
				"installment", req.InstallmentNumber,
				"attempt", attempts,
			)
			return postedSale{}, err
		}
		return postedSale{}, backoff.Permanent(err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(uc.retry(), uc.policy.MaxRetries), ctx)
	out, err := backoff.RetryWithData(post, policy)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		uc.logger.ErrorContext(ctx, "payment posting failed",
			"sale_id", req.SaleID,
			"installment", req.InstallmentNumber,
			"attempts", attempts,
			"error", err,
		)
		return dto.PostPaymentResponse{}, err
	}

	res := out.result
	uc.metrics.posted.Add(ctx, 1)
	if res.Transaction.PenaltyPortion.IsPositive() {
		uc.metrics.penalty.Add(ctx, res.Transaction.PenaltyPortion.InexactFloat64())
	}
	span.SetAttributes(
		attribute.String("transaction.id", res.Transaction.TransactionID),
		attribute.String("installment.status", res.InstallmentAfter.Status.String()),
		attribute.Bool("promotion.granted", res.FreePromotionGranted),
	)

	client, err := uc.clients.FindByID(ctx, out.sale.Client().ID)
	if err != nil {
		// The payment is durable; print the client as recorded on the sale.
		uc.logger.WarnContext(ctx, "client lookup failed, using sale snapshot for receipt",
			"sale_id", out.sale.ID(), "error", err)
		client = model.ClientSnapshot{}
	}
	receipt := uc.receipts.Build(out.sale, client, res)

	uc.logger.InfoContext(ctx, "payment posted",
		"sale_id", out.sale.ID(),
		"installment", res.InstallmentAfter.Number,
		"transaction_id", res.Transaction.TransactionID,
		"amount", res.Transaction.TotalAmount.StringFixed(2),
		"penalty", res.Transaction.PenaltyPortion.StringFixed(2),
		"free_promotion", res.FreePromotionGranted,
		"status", res.InstallmentAfter.Status.String(),
		"operator_id", res.Transaction.OperatorID,
	)

	return dto.PostPaymentResponse{
		SaleID:            out.sale.ID(),
		InstallmentNumber: res.InstallmentAfter.Number,
		TransactionID:     res.Transaction.TransactionID,
		InstallmentStatus: res.InstallmentAfter.Status.String(),
		PaidCapital:       res.InstallmentAfter.CumulativePaidCapital,
		Receipt:           toReceiptResponse(receipt),
	}, nil
}

type postedSale struct {
	sale   model.Sale
	result model.PostingResult
}

// attempt runs one optimistic read-modify-write cycle.
func (uc *PostPaymentUseCase) attempt(ctx context.Context, saleID string, cmd model.PaymentCommand) (postedSale, error) {
	sale, err := uc.sales.FindByID(ctx, saleID)
	if err != nil {
		return postedSale{}, fmt.Errorf("find sale: %w", err)
	}
	offered, err := promotionOffered(ctx, uc.rates, uc.policy.PromotionSource, sale)
	if err != nil {
		return postedSale{}, err
	}
	next, res, err := sale.PostPayment(cmd, offered, uc.policy.Terms, uc.now().UTC())
	if err != nil {
		return postedSale{}, fmt.Errorf("post payment: %w", err)
	}

	// Once the write starts the caller gets a definite answer, even if it
	// stops waiting.
	writeCtx, cancel := uc.policy.withTimeout(context.WithoutCancel(ctx))
	defer cancel()
	if err := uc.sales.Update(writeCtx, next); err != nil {
		return postedSale{}, fmt.Errorf("save sale: %w", err)
	}
	return postedSale{sale: next, result: res}, nil
}
