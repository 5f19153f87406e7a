package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/app/api"
	paymentsapp "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/application"
	paypostgres "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/adapters/persistence/postgres"
	platformobservability "github.com/MathekoTauu/micro-ecommerce-hub/internal/platform/observability"
	platformpostgres "github.com/MathekoTauu/micro-ecommerce-hub/internal/platform/postgres"
)

func main() {
	if err := api.LoadDotEnv(); err != nil {
		log.Printf("ignoring unreadable .env: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: platformobservability.ParseLevel(os.Getenv("LOG_LEVEL"))}))
	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	db, cleanup := platformpostgres.ConnectOrFallback(ctx, cfg.PostgresDSN, logger)
	defer cleanup()
	if db == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; cannot expire orders")
	}

	sweeper := paymentsapp.NewExpiryService(paypostgres.NewOrderStore(db), logger, cfg.ExpirySweepLimit)
	expired, err := sweeper.ExpireStale(ctx, time.Now().UTC())
	if err != nil {
		log.Fatalf("failed to expire orders: %v", err)
	}
	log.Printf("order expiry completed: %d orders expired", expired)
}
