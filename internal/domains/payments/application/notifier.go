package application

import (
	"context"
	"io"
	"log/slog"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

// settlementNotifier fires the completion listener for an order this process
// just moved to settled. Listener failures are logged: the settlement itself
// is already durable and must not be rolled back.
type settlementNotifier struct {
	listener ports.SettlementListener
	logger   *slog.Logger
}

func (n settlementNotifier) notify(ctx context.Context, order *domain.Order) {
	if n.listener == nil || order == nil {
		return
	}
	if err := n.listener.OnSettled(ctx, order.Settlement()); err != nil {
		n.logger.LogAttrs(ctx, slog.LevelError, "settlement listener failed",
			slog.String("payment_hash", order.PaymentHash),
			slog.String("error", err.Error()),
		)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
