package sequences

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	paymentactivities "github.com/MathekoTauu/micro-ecommerce-hub/internal/platform/temporal/activities/payments"
)

// RunEscrowReleaseSequence executes the activities that hand a settled order's funds to the vendor.
func RunEscrowReleaseSequence(ctx workflow.Context, paymentHash string) (*domain.EscrowReleased, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("escrow release sequence started", "paymentHash", paymentHash)
	options := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    10,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	var released domain.EscrowReleased
	err := workflow.ExecuteActivity(ctx, paymentactivities.ReleaseEscrowActivityName,
		paymentactivities.ReleaseEscrowInput{PaymentHash: paymentHash}).Get(ctx, &released)
	if err != nil {
		logger.Error("escrow release sequence failed", "paymentHash", paymentHash, "error", err)
		return nil, err
	}
	logger.Info("escrow release sequence completed", "paymentHash", paymentHash)
	return &released, nil
}
