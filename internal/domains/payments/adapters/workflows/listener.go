package workflows

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
	settlementworkflows "github.com/MathekoTauu/micro-ecommerce-hub/internal/durable/temporal/workflows/payments"
)

// DefaultEscrowDelay is how long funds stay held after settlement.
const DefaultEscrowDelay = 24 * time.Hour

var (
	_ ports.SettlementListener = (*TemporalSettlementListener)(nil)
	_ ports.SettlementListener = (*InlineSettlementListener)(nil)
)

// WorkflowStarter is the slice of client.Client the listener needs.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// TemporalSettlementListener starts the durable follow-up workflow for each settlement.
type TemporalSettlementListener struct {
	client    WorkflowStarter
	taskQueue string
	delay     time.Duration
}

// NewTemporalSettlementListener wires a Temporal client into the listener.
func NewTemporalSettlementListener(c WorkflowStarter, escrowDelay time.Duration) *TemporalSettlementListener {
	if escrowDelay < 0 {
		escrowDelay = 0
	}
	return &TemporalSettlementListener{client: c, taskQueue: settlementworkflows.SettlementTaskQueue, delay: escrowDelay}
}

// OnSettled returns once the workflow is accepted; it does not wait for the release.
// A follow-up already running for the same payment hash counts as success.
func (l *TemporalSettlementListener) OnSettled(ctx context.Context, settlement domain.Settlement) error {
	if l == nil || l.client == nil {
		return errors.New("temporal settlement listener not configured")
	}
	options := client.StartWorkflowOptions{
		ID:                                       settlementworkflows.WorkflowID(settlement.PaymentHash),
		TaskQueue:                                l.taskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}
	_, err := l.client.ExecuteWorkflow(ctx, options, settlementworkflows.SettlementFollowUpWorkflowName,
		settlementworkflows.SettlementFollowUpInput{
			Settlement:  settlement,
			EscrowDelay: l.delay,
			TraceID:     workflowTraceID(ctx),
		})
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			return nil
		}
		return err
	}
	return nil
}

// InlineSettlementListener releases escrow in-process after the delay. Pending
// releases are lost if the process exits; Temporal is the durable path.
type InlineSettlementListener struct {
	escrow ports.EscrowReleaser
	delay  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// NewInlineSettlementListener schedules releases on local timers.
func NewInlineSettlementListener(escrow ports.EscrowReleaser, escrowDelay time.Duration, logger *slog.Logger) *InlineSettlementListener {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if escrowDelay < 0 {
		escrowDelay = 0
	}
	return &InlineSettlementListener{
		escrow: escrow,
		delay:  escrowDelay,
		logger: logger,
		timers: map[string]*time.Timer{},
	}
}

// OnSettled schedules one release per payment hash.
func (l *InlineSettlementListener) OnSettled(_ context.Context, settlement domain.Settlement) error {
	if l == nil || l.escrow == nil {
		return errors.New("inline settlement listener not configured")
	}
	hash := settlement.PaymentHash
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return errors.New("inline settlement listener stopped")
	}
	if _, scheduled := l.timers[hash]; scheduled {
		return nil
	}
	l.timers[hash] = time.AfterFunc(l.delay, func() { l.release(hash) })
	return nil
}

// Pending reports how many releases are still scheduled.
func (l *InlineSettlementListener) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

// Stop cancels every scheduled release.
func (l *InlineSettlementListener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = true
	for hash, timer := range l.timers {
		timer.Stop()
		delete(l.timers, hash)
	}
}

func (l *InlineSettlementListener) release(hash string) {
	ctx := context.Background()
	released, err := l.escrow.Release(ctx, hash)
	l.mu.Lock()
	delete(l.timers, hash)
	l.mu.Unlock()
	if err != nil {
		l.logger.LogAttrs(ctx, slog.LevelError, "inline escrow release failed",
			slog.String("payment_hash", hash),
			slog.String("error", err.Error()))
		return
	}
	l.logger.LogAttrs(ctx, slog.LevelInfo, "inline escrow release completed",
		slog.String("payment_hash", hash),
		slog.Time("released_at", released.ReleasedAt))
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
