package payments

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	paymentsports "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

const (
	// ReleaseEscrowActivityName marks a settled order's escrow as released.
	ReleaseEscrowActivityName = "payments.activities.ReleaseEscrow"

	errTypeNotReleasable = "EscrowNotReleasable"
)

// ReleaseEscrowInput identifies the order whose funds are released.
type ReleaseEscrowInput struct {
	PaymentHash string
}

// Activities groups activities that operate on the payments bounded context.
type Activities struct {
	escrow paymentsports.EscrowReleaser
}

// NewActivities wires the escrow use case into the Temporal activities bundle.
func NewActivities(escrow paymentsports.EscrowReleaser) *Activities {
	return &Activities{escrow: escrow}
}

// ReleaseEscrow is idempotent, so Temporal retries are safe. An order that is
// unknown or never settled cannot become releasable and is not retried.
func (a *Activities) ReleaseEscrow(ctx context.Context, input ReleaseEscrowInput) (*domain.EscrowReleased, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.escrow == nil {
		logger.Error("escrow activity not initialized", "paymentHash", input.PaymentHash)
		return nil, errors.New("escrow activity not initialized")
	}
	logger.Info("ReleaseEscrow activity started", "paymentHash", input.PaymentHash)
	released, err := a.escrow.Release(ctx, input.PaymentHash)
	if err != nil {
		logger.Error("ReleaseEscrow activity failed", "paymentHash", input.PaymentHash, "error", err)
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, paymentsports.ErrOrderNotFound) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), errTypeNotReleasable, err)
		}
		return nil, err
	}
	logger.Info("ReleaseEscrow activity completed", "paymentHash", released.PaymentHash, "releasedAt", released.ReleasedAt)
	return released, nil
}
