package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jmaisinchop/app-renattos/internal/application/usecase"
	"github.com/jmaisinchop/app-renattos/internal/domain/port"
	"github.com/jmaisinchop/app-renattos/internal/domain/service"
	"github.com/jmaisinchop/app-renattos/internal/infrastructure/cache"
	"github.com/jmaisinchop/app-renattos/internal/infrastructure/config"
	"github.com/jmaisinchop/app-renattos/internal/infrastructure/idgen"
	"github.com/jmaisinchop/app-renattos/internal/infrastructure/persistence/memory"
	pgRepo "github.com/jmaisinchop/app-renattos/internal/infrastructure/persistence/postgres"
	grpcPresentation "github.com/jmaisinchop/app-renattos/internal/presentation/grpc"
	"github.com/jmaisinchop/app-renattos/internal/presentation/rest"
	"github.com/jmaisinchop/app-renattos/migrations"
	"github.com/jmaisinchop/app-renattos/pkg/events"
	"github.com/jmaisinchop/app-renattos/pkg/money"
	"github.com/jmaisinchop/app-renattos/pkg/observability"
	pkgpostgres "github.com/jmaisinchop/app-renattos/pkg/postgres"
	"github.com/jmaisinchop/app-renattos/pkg/tlsutil"
)

// repositories is the storage backend selected by STORAGE.
type repositories struct {
	sales    port.SaleRepository
	rates    port.RateFactorRepository
	clients  port.ClientDirectory
	products port.ProductCatalog
	ledger   port.PaymentLedger
	outbox   events.OutboxReader
	checks   map[string]rest.Checker
	close    func()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()

	logger := observability.InitLogger(observability.LogConfig{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Service:   cfg.ServiceName,
		AddSource: cfg.Log.AddSource,
	})

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("credit-service stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("credit-service stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("starting credit-service",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"storage", cfg.Storage,
	)

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    true,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() { _ = shutdownTracer(context.Background()) }() //nolint:errcheck // best-effort flush
	}

	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: cfg.ServiceName})
	if err != nil {
		logger.Warn("failed to initialize metrics, continuing without /metrics", "error", err)
	} else {
		defer func() { _ = meterProvider.Shutdown(context.Background()) }() //nolint:errcheck // best-effort flush
	}

	repos, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repos.close()

	var rates port.RateFactorRepository = repos.rates
	var rateCache *cache.RateFactorRepository
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		rateCache = cache.NewRateFactorRepository(repos.rates, client, cfg.Redis.RateTTL, logger)
		rates = rateCache
		repos.checks["redis"] = rest.CheckerFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
		logger.Info("rate table cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.RateTTL)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		stop, err := startMessaging(ctx, cfg, repos.outbox, rateCache, logger)
		if err != nil {
			return err
		}
		defer stop()
	} else {
		logger.Info("KAFKA_BROKERS not set, outbox events stay unpublished")
	}

	policy := usecase.Policy{
		Terms:            usecase.DefaultPolicy().Terms,
		PromotionSource:  usecase.PromotionFlagSource(cfg.Payment.PromotionFlagSource),
		Currency:         money.USD,
		OperationTimeout: cfg.Payment.OperationTimeout,
		MaxRetries:       uint64(max(cfg.Payment.MaxRetries, 0)),
	}
	policy.Terms.DefaultPenalty = cfg.Payment.DefaultPenalty
	receipts := service.NewReceiptBuilder(policy.Currency)

	handler := grpcPresentation.NewCreditHandler(grpcPresentation.UseCases{
		RegisterSale:       usecase.NewRegisterSaleUseCase(repos.sales, repos.clients, repos.products, rates, policy, logger),
		GetSale:            usecase.NewGetSaleUseCase(repos.sales),
		GetSaleBalance:     usecase.NewGetSaleBalanceUseCase(repos.sales),
		ListActiveCredits:  usecase.NewListActiveCreditsUseCase(repos.sales),
		ListPaymentHistory: usecase.NewListPaymentHistoryUseCase(repos.sales, repos.ledger),
		QuotePayment:       usecase.NewQuotePaymentUseCase(repos.sales, rates, policy),
		PostPayment:        usecase.NewPostPaymentUseCase(repos.sales, rates, repos.clients, idgen.NewULIDGenerator(), receipts, policy, logger),
		ReprintReceipt:     usecase.NewReprintReceiptUseCase(repos.sales, repos.clients, receipts, logger),
		SaveRateFactor:     usecase.NewSaveRateFactorUseCase(rates, logger),
		DeleteRateFactor:   usecase.NewDeleteRateFactorUseCase(rates, logger),
		ListRateFactors:    usecase.NewListRateFactorsUseCase(rates),
	}, logger)

	jwtSvc, err := newJWTService(cfg.JWT)
	if err != nil {
		return fmt.Errorf("initialize JWT service: %w", err)
	}

	serverOpts := grpcPresentation.ServerOptions{Reflection: cfg.TLS.Reflection}
	if cfg.TLS.CertFile != "" {
		creds, err := tlsutil.ServerCredentials(tlsutil.Config{
			CertFile:     cfg.TLS.CertFile,
			KeyFile:      cfg.TLS.KeyFile,
			ClientCAFile: cfg.TLS.ClientCAFile,
		})
		if err != nil {
			return err
		}
		serverOpts.Creds = creds
	}
	grpcServer := grpcPresentation.NewServer(handler, jwtSvc, logger, serverOpts)

	mux := http.NewServeMux()
	rest.NewHealthHandler(cfg.ServiceName, repos.checks, logger).RegisterRoutes(mux, metricsHandler)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()
	go func() {
		logger.Info("HTTP server starting", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr = <-errCh:
	}

	grpcServer.GracefulStop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	return serveErr
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (repositories, error) {
	if cfg.Storage == "memory" {
		logger.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return repositories{
			sales:    memory.NewSaleRepository(store),
			rates:    memory.NewRateFactorRepository(store),
			clients:  memory.NewClientDirectory(store),
			products: memory.NewProductCatalog(store),
			ledger:   memory.NewPaymentLedger(store),
			outbox:   store,
			checks:   map[string]rest.Checker{},
			close:    func() {},
		}, nil
	}

	pgCfg := pkgpostgres.Config{
		URL:      cfg.DB.URL,
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Name,
		SSLMode:  cfg.DB.SSLMode,
	}

	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dbCancel()
	pool, err := pkgpostgres.NewPool(dbCtx, pgCfg)
	if err != nil {
		return repositories{}, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("connected to database")

	if err := pkgpostgres.RunMigrations(pgCfg.DSN(), migrations.FS, "."); err != nil {
		pool.Close()
		return repositories{}, fmt.Errorf("run migrations: %w", err)
	}

	return repositories{
		sales:    pgRepo.NewSaleRepository(pool),
		rates:    pgRepo.NewRateFactorRepository(pool),
		clients:  pgRepo.NewClientDirectory(pool),
		products: pgRepo.NewProductCatalog(pool),
		ledger:   pgRepo.NewPaymentLedger(pool),
		outbox:   pgRepo.NewOutboxStore(pool),
		checks:   map[string]rest.Checker{"postgres": pkgpostgres.Checker{Pool: pool}},
		close:    pool.Close,
	}, nil
}
