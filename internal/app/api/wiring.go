package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/clients/http/lnd"
	paymemory "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/adapters/memory"
	paypostgres "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/adapters/persistence/postgres"
	paymentsports "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/platform/migrations"
	platformobservability "github.com/MathekoTauu/micro-ecommerce-hub/internal/platform/observability"
	platformpostgres "github.com/MathekoTauu/micro-ecommerce-hub/internal/platform/postgres"
)

// BuildOrderStore returns the Postgres order store, or the in-memory one when
// POSTGRES_DSN is unset or unreachable.
func BuildOrderStore(ctx context.Context, cfg Config, logger *slog.Logger) (paymentsports.OrderStore, bool, func()) {
	db, cleanup := platformpostgres.ConnectOrFallback(ctx, cfg.PostgresDSN, logger)
	if db == nil {
		return paymemory.NewOrderStore(), false, cleanup
	}
	if err := migrations.Run(db); err != nil {
		logger.Warn("failed to migrate payment schema, falling back to in-memory order store", slog.String("error", err.Error()))
		cleanup()
		return paymemory.NewOrderStore(), false, func() {}
	}
	logger.Info("order store configured with postgres")
	return paypostgres.NewOrderStore(db), true, cleanup
}

// BuildLedger returns the LND REST client, or the in-process fake in memory mode.
func BuildLedger(cfg Config, logger *slog.Logger) (paymentsports.LedgerClient, error) {
	switch cfg.LedgerMode {
	case LedgerModeMemory:
		logger.Warn("LEDGER_MODE=memory, invoices are simulated and never paid")
		return paymemory.NewLedger(), nil
	case LedgerModeLND:
		ledger, err := lnd.New(cfg.LNDConfig(), lnd.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("configure lnd client: %w", err)
		}
		logger.Info("ledger configured with lnd", slog.String("host", cfg.LNDHost), slog.Int("restPort", cfg.LNDRESTPort))
		return ledger, nil
	default:
		return nil, fmt.Errorf("unsupported ledger mode %q", cfg.LedgerMode)
	}
}

// ConnectTemporalClient dials Temporal with tracing and structured logging.
func ConnectTemporalClient(cfg Config, instruments *platformobservability.Instruments, component string) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer(component)
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
