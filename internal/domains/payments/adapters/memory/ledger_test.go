package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

func TestLedger_CreateInvoiceUsesScriptedHash(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewLedger(WithHashes("ABC123"), WithLedgerClock(func() time.Time { return fixed }))

	req, err := ledger.CreateInvoice(context.Background(), ports.InvoiceRequest{AmountSats: 3000, Memo: "Sticker x3", Expiry: time.Hour})
	require.NoError(t, err)
	require.Equal(t, "abc123", req.PaymentHash)
	require.Equal(t, int64(3000), req.AmountSats)
	require.Equal(t, fixed.Add(time.Hour), req.ExpiresAt)
	require.NotEmpty(t, req.PaymentRequest)

	second, err := ledger.CreateInvoice(context.Background(), ports.InvoiceRequest{AmountSats: 10})
	require.NoError(t, err)
	require.Len(t, second.PaymentHash, 64)
}

func TestLedger_CreateInvoiceFailure(t *testing.T) {
	ledger := NewLedger()
	ledger.FailCreate(ports.ErrUpstreamUnavailable)

	_, err := ledger.CreateInvoice(context.Background(), ports.InvoiceRequest{AmountSats: 10})
	require.ErrorIs(t, err, ports.ErrUpstreamUnavailable)

	ledger.FailCreate(nil)
	_, err = ledger.CreateInvoice(context.Background(), ports.InvoiceRequest{AmountSats: 0})
	require.ErrorIs(t, err, ports.ErrUpstreamRejected)
}

func TestLedger_CheckSettlement(t *testing.T) {
	ledger := NewLedger(WithHashes("abc123"))
	ctx := context.Background()
	_, err := ledger.CreateInvoice(ctx, ports.InvoiceRequest{AmountSats: 10})
	require.NoError(t, err)

	paid, err := ledger.CheckSettlement(ctx, "abc123")
	require.NoError(t, err)
	require.False(t, paid)

	ledger.MarkPaid("abc123")
	paid, err = ledger.CheckSettlement(ctx, "ABC123")
	require.NoError(t, err)
	require.True(t, paid)

	ledger.FailCheck(errors.New("connection refused"))
	paid, err = ledger.CheckSettlement(ctx, "abc123")
	require.NoError(t, err)
	require.False(t, paid)

	_, err = ledger.CheckSettlement(ctx, "zz-not-hex")
	require.ErrorIs(t, err, ports.ErrInvalidIdentifier)
}

func TestLedger_StreamDeliversInOrderThenBreaks(t *testing.T) {
	ledger := NewLedger(WithHashes("aa", "bb"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for i := 0; i < 2; i++ {
		_, err := ledger.CreateInvoice(ctx, ports.InvoiceRequest{AmountSats: 10})
		require.NoError(t, err)
	}

	events, errs, err := ledger.SubscribeSettlements(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, ledger.Subscribers())

	require.NoError(t, ledger.Settle("aa"))
	require.NoError(t, ledger.Settle("bb"))
	ledger.BreakStreams(nil)

	var got []domain.SettlementEvent
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 2)
	require.Equal(t, "aa", got[0].PaymentHash)
	require.Equal(t, "bb", got[1].PaymentHash)

	streamErr := <-errs
	require.ErrorIs(t, streamErr, ports.ErrUpstreamUnavailable)
	require.Eventually(t, func() bool { return ledger.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestLedger_StreamClosesOnCancel(t *testing.T) {
	ledger := NewLedger()
	ctx, cancel := context.WithCancel(context.Background())

	events, _, err := ledger.SubscribeSettlements(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-events:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("stream was not closed after cancel")
	}
	require.Eventually(t, func() bool { return ledger.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, ledger.SubscriptionsOpened())
}

func TestLedger_SubscribeFailure(t *testing.T) {
	ledger := NewLedger()
	ledger.FailSubscribe(ports.ErrUpstreamUnavailable)
	_, _, err := ledger.SubscribeSettlements(context.Background())
	require.ErrorIs(t, err, ports.ErrUpstreamUnavailable)
	require.Zero(t, ledger.Subscribers())
}

func TestLedger_GetInfo(t *testing.T) {
	ledger := NewLedger(WithNodeInfo(ports.NodeInfo{Pubkey: "03abc", Alias: "alice", ActiveChannels: 2}))

	info, err := ledger.GetInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "alice", info.Alias)
	require.Equal(t, int64(2), info.ActiveChannels)
	require.False(t, info.SyncedToChain)
}
