package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.temporal.io/sdk/client"

	marketserver "github.com/MathekoTauu/micro-ecommerce-hub/go"

	catalogfile "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/catalog/adapters/file"
	payobs "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/adapters/observability"
	payworkflows "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/adapters/workflows"
	paymentsapp "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/application"
	paymentsports "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
	platformobservability "github.com/MathekoTauu/micro-ecommerce-hub/internal/platform/observability"
)

const (
	serviceName     = "market-api"
	shutdownTimeout = 10 * time.Second
)

// Run boots the marketplace HTTP API with the settlement watcher running
// alongside it, and blocks until ctx is cancelled or the server fails.
func Run(ctx context.Context) error {
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ledger, err := BuildLedger(cfg, logger)
	if err != nil {
		return err
	}
	orders, durable, cleanupOrders := BuildOrderStore(ctx, cfg, logger)
	defer cleanupOrders()
	catalog := catalogfile.NewCatalog(cfg.ProductsFile)

	listener, stopListener := buildSettlementListener(cfg, instruments, orders, durable, func() (client.Client, error) {
		return ConnectTemporalClient(cfg, instruments, "temporal-client")
	})
	defer stopListener()

	coreService := paymentsapp.NewService(catalog, ledger, orders,
		paymentsapp.WithSettlementListener(listener),
		paymentsapp.WithLogger(logger),
		paymentsapp.WithPaymentTimeout(cfg.PaymentTimeout),
	)
	service := payobs.New(
		coreService,
		payobs.WithLogger(logger),
		payobs.WithTracer(instruments.Tracer("internal.payments.application")),
		payobs.WithMeter(instruments.Meter("internal.payments.application")),
	)

	watcher := paymentsapp.NewSettlementWatcher(ledger, orders,
		paymentsapp.WithWatcherListener(listener),
		paymentsapp.WithWatcherLogger(logger),
		paymentsapp.WithWatcherTracer(instruments.Tracer("internal.payments.watcher")),
		paymentsapp.WithWatcherMeter(instruments.Meter("internal.payments.watcher")),
		paymentsapp.WithBackoff(cfg.WatcherBackoff),
		paymentsapp.WithStateObserver(func(state paymentsapp.WatcherState) {
			logger.Debug("settlement watcher state changed", slog.String("state", state.String()))
		}),
	)
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("start settlement watcher: %w", err)
	}
	defer func() {
		watcher.Stop()
		select {
		case <-watcher.Done():
		case <-time.After(shutdownTimeout):
			logger.Warn("settlement watcher did not stop in time")
		}
	}()

	handlers := marketserver.ApiHandleFunctions{
		PaymentsAPI: marketserver.NewPaymentsAPI(service, logger),
		HealthAPI:   marketserver.NewHealthAPI(watcher),
	}
	engine := gin.New()
	engine.Use(otelgin.Middleware(serviceName), gin.Recovery(), marketserver.RequestID())
	router := marketserver.NewRouterWithGinEngine(engine, handlers)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("market API listening", slog.String("addr", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("market API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down market API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("market API shutdown failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// buildSettlementListener prefers the durable Temporal follow-up and falls back
// to in-process escrow release timers. The worker can only release orders it can
// read, so an in-memory order store always gets the inline listener.
func buildSettlementListener(
	cfg Config,
	instruments *platformobservability.Instruments,
	orders paymentsports.OrderStore,
	durable bool,
	dial func() (client.Client, error),
) (paymentsports.SettlementListener, func()) {
	logger := instruments.Logger
	inline := func() (paymentsports.SettlementListener, func()) {
		escrow := paymentsapp.NewEscrowService(orders, logger)
		listener := payworkflows.NewInlineSettlementListener(escrow, cfg.EscrowDelay, logger)
		return listener, listener.Stop
	}
	if !durable {
		logger.Warn("order store is in memory, releasing escrow inline instead of via Temporal")
		return inline()
	}
	temporalClient, err := dial()
	if err != nil {
		logger.Warn("Temporal workflows unavailable, releasing escrow inline", slog.String("error", err.Error()))
		return inline()
	}
	logger.Info("Temporal settlement follow-up enabled", slog.String("namespace", cfg.TemporalNamespace))
	return payworkflows.NewTemporalSettlementListener(temporalClient, cfg.EscrowDelay), temporalClient.Close
}
