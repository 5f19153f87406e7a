package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/app/api"
)

func main() {
	if err := api.LoadDotEnv(); err != nil {
		log.Printf("ignoring unreadable .env: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := api.Run(ctx); err != nil {
		log.Fatalf("market API failed: %v", err)
	}
}
