package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

// DefaultExpirySweepLimit bounds how many orders one sweep touches.
const DefaultExpirySweepLimit = 500

// ExpiryService moves pending orders past their invoice expiry to expired.
type ExpiryService struct {
	orders ports.OrderStore
	logger *slog.Logger
	limit  int
}

// NewExpiryService wires the sweep; limit <= 0 selects DefaultExpirySweepLimit.
func NewExpiryService(orders ports.OrderStore, logger *slog.Logger, limit int) *ExpiryService {
	if logger == nil {
		logger = discardLogger()
	}
	if limit <= 0 {
		limit = DefaultExpirySweepLimit
	}
	return &ExpiryService{orders: orders, logger: logger, limit: limit}
}

// ExpireStale expires every pending order whose expiry is before now and
// returns how many it moved. Orders settled concurrently are skipped.
func (s *ExpiryService) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.orders.ListExpiredPending(ctx, now, s.limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, order := range stale {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		_, changed, err := s.orders.MarkExpired(ctx, order.PaymentHash)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, ports.ErrOrderNotFound) {
				continue
			}
			return expired, err
		}
		if changed {
			expired++
		}
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "expiry sweep finished",
		slog.Int("candidates", len(stale)),
		slog.Int("expired", expired))
	return expired, nil
}
