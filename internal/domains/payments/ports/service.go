package ports

import (
	"context"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
)

// CreateCheckoutInput is the buyer's checkout request.
type CreateCheckoutInput struct {
	ProductID string
	Quantity  int64
}

// Service exposes the checkout and payment-status use cases to adapters.
type Service interface {
	CreateCheckout(ctx context.Context, input CreateCheckoutInput) (*domain.PaymentRequest, error)
	CheckStatus(ctx context.Context, paymentHash string) (domain.PaymentState, error)
	GetOrder(ctx context.Context, paymentHash string) (*domain.Order, error)
	NodeInfo(ctx context.Context) (*NodeInfo, error)
}
