package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	paymemory "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/adapters/memory"
	paymentsapp "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/application"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	paymentactivities "github.com/MathekoTauu/micro-ecommerce-hub/internal/platform/temporal/activities/payments"
)

func newEnv(t *testing.T, store *paymemory.OrderStore) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := paymentactivities.NewActivities(paymentsapp.NewEscrowService(store, nil))
	env.RegisterWorkflowWithOptions(SettlementFollowUp, workflow.RegisterOptions{Name: SettlementFollowUpWorkflowName})
	env.RegisterActivityWithOptions(acts.ReleaseEscrow, activity.RegisterOptions{Name: paymentactivities.ReleaseEscrowActivityName})
	return env
}

func seedOrder(t *testing.T, store *paymemory.OrderStore, hash string, settle bool) {
	t.Helper()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	order, err := domain.NewPendingOrder("prod_001", 1, domain.PaymentRequest{
		PaymentRequest: "lnbcrt1000n1p" + hash,
		PaymentHash:    hash,
		AmountSats:     1000,
		ExpiresAt:      now.Add(time.Hour),
	}, "Sticker Pack x1", now)
	require.NoError(t, err)
	require.NoError(t, store.CreatePending(context.Background(), order))
	if settle {
		_, _, err = store.MarkSettled(context.Background(), hash, now)
		require.NoError(t, err)
	}
}

func TestSettlementFollowUp_ReleasesEscrowAfterDelay(t *testing.T) {
	store := paymemory.NewOrderStore()
	seedOrder(t, store, "abc123", true)
	env := newEnv(t, store)

	env.ExecuteWorkflow(SettlementFollowUpWorkflowName, SettlementFollowUpInput{
		Settlement:  domain.Settlement{PaymentHash: "abc123", AmountSats: 1000},
		EscrowDelay: 24 * time.Hour,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var released domain.EscrowReleased
	require.NoError(t, env.GetWorkflowResult(&released))
	require.Equal(t, "abc123", released.PaymentHash)

	order, err := store.Get(context.Background(), "abc123")
	require.NoError(t, err)
	require.NotNil(t, order.EscrowReleasedAt)
}

func TestSettlementFollowUp_UnsettledOrderFailsWithoutRetry(t *testing.T) {
	store := paymemory.NewOrderStore()
	seedOrder(t, store, "def456", false)
	env := newEnv(t, store)

	attempts := 0
	env.SetOnActivityStartedListener(func(*activity.Info, context.Context, converter.EncodedValues) {
		attempts++
	})
	env.ExecuteWorkflow(SettlementFollowUpWorkflowName, SettlementFollowUpInput{
		Settlement: domain.Settlement{PaymentHash: "def456", AmountSats: 1000},
	})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	require.Equal(t, 1, attempts)
}

func TestWorkflowID(t *testing.T) {
	require.Equal(t, "settlement-abc123", WorkflowID("abc123"))
}
