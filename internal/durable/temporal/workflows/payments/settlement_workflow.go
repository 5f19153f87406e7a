package payments

import (
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/durable/temporal/sequences"
)

const (
	// SettlementFollowUpWorkflowName is the public identifier for registering the workflow.
	SettlementFollowUpWorkflowName = "payments.workflows.SettlementFollowUp"
	// SettlementTaskQueue is the queue consumed by the worker processing settlement follow-ups.
	SettlementTaskQueue = "PAYMENT_SETTLEMENT"
)

// SettlementFollowUpInput is the payload handed over when an order settles.
type SettlementFollowUpInput struct {
	Settlement  domain.Settlement
	EscrowDelay time.Duration
	TraceID     string
}

// WorkflowID is deterministic per payment hash so a settlement starts at most one follow-up.
func WorkflowID(paymentHash string) string {
	return "settlement-" + paymentHash
}

// SettlementFollowUp holds funds in escrow for the configured delay, then releases them.
func SettlementFollowUp(ctx workflow.Context, input SettlementFollowUpInput) (*domain.EscrowReleased, error) {
	logger := workflow.GetLogger(ctx)
	hash := input.Settlement.PaymentHash
	logger.Info("SettlementFollowUp started", withTraceID(input.TraceID, "paymentHash", hash, "amountSats", input.Settlement.AmountSats)...)
	if input.EscrowDelay > 0 {
		if err := workflow.Sleep(ctx, input.EscrowDelay); err != nil {
			logger.Warn("SettlementFollowUp interrupted during escrow hold", withTraceID(input.TraceID, "paymentHash", hash, "error", err)...)
			return nil, err
		}
	}
	released, err := sequences.RunEscrowReleaseSequence(ctx, hash)
	if err != nil {
		logger.Error("SettlementFollowUp failed", withTraceID(input.TraceID, "paymentHash", hash, "error", err)...)
		return nil, err
	}
	logger.Info("SettlementFollowUp completed", withTraceID(input.TraceID, "paymentHash", hash)...)
	return released, nil
}

func withTraceID(traceID string, keyvals ...interface{}) []interface{} {
	if traceID == "" {
		return keyvals
	}
	return append(keyvals, "traceId", traceID)
}
