package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/app/api"
	paymentsapp "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/application"
	settlementworkflows "github.com/MathekoTauu/micro-ecommerce-hub/internal/durable/temporal/workflows/payments"
	platformobservability "github.com/MathekoTauu/micro-ecommerce-hub/internal/platform/observability"
	paymentactivities "github.com/MathekoTauu/micro-ecommerce-hub/internal/platform/temporal/activities/payments"
)

func main() {
	if err := api.LoadDotEnv(); err != nil {
		log.Printf("ignoring unreadable .env: %v", err)
	}
	ctx := context.Background()
	const serviceName = "market-worker"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	cfg, err := api.LoadConfig()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	orders, durable, cleanupOrders := api.BuildOrderStore(ctx, cfg, logger)
	defer cleanupOrders()
	if !durable {
		logger.Warn("worker is using an in-memory order store; escrow releases will not reach the API's orders")
	}
	escrowActivities := paymentactivities.NewActivities(paymentsapp.NewEscrowService(orders, logger))

	temporalClient, err := api.ConnectTemporalClient(cfg, instruments, "temporal-worker")
	if err != nil {
		logger.Error("failed to create Temporal client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer temporalClient.Close()

	w := worker.New(temporalClient, settlementworkflows.SettlementTaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(settlementworkflows.SettlementFollowUp, workflow.RegisterOptions{Name: settlementworkflows.SettlementFollowUpWorkflowName})
	w.RegisterActivityWithOptions(escrowActivities.ReleaseEscrow, activity.RegisterOptions{Name: paymentactivities.ReleaseEscrowActivityName})

	logger.Info("worker listening", slog.String("taskQueue", settlementworkflows.SettlementTaskQueue), slog.String("namespace", cfg.TemporalNamespace))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Temporal worker exited with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("Temporal worker stopped")
}
