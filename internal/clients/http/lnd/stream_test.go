package lnd

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

func streamHandler(t *testing.T, lines []string, hold <-chan struct{}) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/invoices/subscribe", r.URL.Path)
		flusher, ok := w.(http.Flusher)
		if !assert.True(t, ok) {
			return
		}
		w.WriteHeader(http.StatusOK)
		flusher.Flush()
		for _, line := range lines {
			_, _ = fmt.Fprintln(w, line)
			flusher.Flush()
		}
		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
			}
		}
	})
}

func TestSubscribeSettlements_ForwardsSettledInvoices(t *testing.T) {
	other := strings.Repeat("cd", 32)
	lines := []string{
		fmt.Sprintf(`{"result":{"r_hash":%q,"state":"OPEN","value":"3000","memo":"Sticker Pack x3"}}`, rHashBase64(t, testHash)),
		fmt.Sprintf(`{"result":{"r_hash":%q,"state":"SETTLED","value":"3000","amt_paid_sat":"3000","memo":"Sticker Pack x3","settle_date":"1717243200"}}`, rHashBase64(t, testHash)),
		fmt.Sprintf(`{"result":{"r_hash":%q,"settled":true,"value":"10"}}`, rHashBase64(t, other)),
	}
	hold := make(chan struct{})
	defer close(hold)
	client, _, _ := newTestClient(t, streamHandler(t, lines, hold))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, errs, err := client.SubscribeSettlements(ctx)
	require.NoError(t, err)

	first := receive(t, events)
	require.Equal(t, domain.SettlementEvent{
		PaymentHash: testHash,
		AmountSats:  3000,
		Memo:        "Sticker Pack x3",
		SettledAt:   time.Unix(1717243200, 0).UTC(),
	}, first)

	second := receive(t, events)
	require.Equal(t, other, second.PaymentHash)
	require.Equal(t, int64(10), second.AmountSats)
	require.True(t, second.SettledAt.IsZero())

	cancel()
	drainClosed(t, events)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestSubscribeSettlements_StreamEndIsUnavailable(t *testing.T) {
	lines := []string{
		fmt.Sprintf(`{"result":{"r_hash":%q,"state":"SETTLED","value":"1"}}`, rHashBase64(t, testHash)),
	}
	client, _, _ := newTestClient(t, streamHandler(t, lines, nil))

	events, errs, err := client.SubscribeSettlements(context.Background())
	require.NoError(t, err)
	require.Equal(t, testHash, receive(t, events).PaymentHash)

	select {
	case streamErr := <-errs:
		require.ErrorIs(t, streamErr, ports.ErrUpstreamUnavailable)
	case <-time.After(2 * time.Second):
		t.Fatal("stream error not reported")
	}
	drainClosed(t, events)
}

func TestSubscribeSettlements_GatewayErrorMessage(t *testing.T) {
	lines := []string{`{"error":{"code":14,"message":"transport is closing"}}`}
	client, _, _ := newTestClient(t, streamHandler(t, lines, nil))

	_, errs, err := client.SubscribeSettlements(context.Background())
	require.NoError(t, err)
	streamErr := <-errs
	require.ErrorIs(t, streamErr, ports.ErrUpstreamUnavailable)
	require.Contains(t, streamErr.Error(), "transport is closing")
}

func TestSubscribeSettlements_OpenFailure(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":2,"message":"verification failed: signature mismatch"}`))
	})
	client, _, _ := newTestClient(t, handler)

	_, _, err := client.SubscribeSettlements(context.Background())
	require.ErrorIs(t, err, ports.ErrUpstreamUnavailable)
	require.Contains(t, err.Error(), "signature mismatch")

	client, srv, _ := newTestClient(t, http.NotFoundHandler())
	srv.Close()
	_, _, err = client.SubscribeSettlements(context.Background())
	require.ErrorIs(t, err, ports.ErrUpstreamUnavailable)
}

func receive(t *testing.T, events <-chan domain.SettlementEvent) domain.SettlementEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "stream closed early")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no settlement event received")
		return domain.SettlementEvent{}
	}
}

func drainClosed(t *testing.T, events <-chan domain.SettlementEvent) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream not closed")
		}
	}
}
