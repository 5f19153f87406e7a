package ports

import (
	"context"
	"errors"
	"time"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
)

var (
	// ErrOrderNotFound is returned when no order exists for a payment hash.
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicateIdentifier is returned when an order already exists for a payment hash.
	ErrDuplicateIdentifier = errors.New("order already exists for payment hash")
)

// OrderStore persists orders keyed by payment hash. Creation is append-only and
// status changes are compare-and-set: the returned bool reports whether the call
// itself performed the transition.
type OrderStore interface {
	CreatePending(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, paymentHash string) (*domain.Order, error)
	// MarkSettled is idempotent: settling a settled order returns it unchanged.
	// Settling an expired order fails with domain.ErrInvalidTransition.
	MarkSettled(ctx context.Context, paymentHash string, settledAt time.Time) (*domain.Order, bool, error)
	MarkExpired(ctx context.Context, paymentHash string) (*domain.Order, bool, error)
	MarkEscrowReleased(ctx context.Context, paymentHash string, releasedAt time.Time) (*domain.Order, bool, error)
	// ListExpiredPending returns pending orders whose expiry is before now, oldest first.
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error)
}
