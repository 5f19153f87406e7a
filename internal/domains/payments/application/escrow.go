package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

// EscrowService releases vendor funds held after settlement.
type EscrowService struct {
	orders ports.OrderStore
	logger *slog.Logger
	now    func() time.Time
}

// NewEscrowService wires the escrow use case.
func NewEscrowService(orders ports.OrderStore, logger *slog.Logger) *EscrowService {
	if logger == nil {
		logger = discardLogger()
	}
	return &EscrowService{orders: orders, logger: logger, now: time.Now}
}

// Release stamps the escrow release on a settled order. Releasing twice is a
// no-op; releasing an order that never settled fails with domain.ErrInvalidTransition.
func (s *EscrowService) Release(ctx context.Context, paymentHash string) (*domain.EscrowReleased, error) {
	hash, err := domain.NormalizePaymentHash(paymentHash)
	if err != nil {
		return nil, mapError(err)
	}
	order, changed, err := s.orders.MarkEscrowReleased(ctx, hash, s.now())
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "escrow released",
			slog.String("payment_hash", hash),
			slog.Int64("amount_sats", order.AmountSats))
	}
	return &domain.EscrowReleased{PaymentHash: hash, ReleasedAt: *order.EscrowReleasedAt}, nil
}
