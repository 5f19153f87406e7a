package ports

import (
	"context"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
)

// SettlementListener is the completion callback fired once per settled order.
type SettlementListener interface {
	OnSettled(ctx context.Context, settlement domain.Settlement) error
}

// SettlementListenerFunc adapts a function to SettlementListener.
type SettlementListenerFunc func(ctx context.Context, settlement domain.Settlement) error

func (f SettlementListenerFunc) OnSettled(ctx context.Context, settlement domain.Settlement) error {
	return f(ctx, settlement)
}

// NoopSettlementListener is a safe default when nothing follows settlement.
var NoopSettlementListener SettlementListener = SettlementListenerFunc(func(context.Context, domain.Settlement) error { return nil })

// EscrowReleaser marks the vendor funds of a settled order as released.
type EscrowReleaser interface {
	Release(ctx context.Context, paymentHash string) (*domain.EscrowReleased, error)
}
