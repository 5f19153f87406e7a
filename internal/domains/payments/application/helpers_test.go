package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	catalogdomain "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/catalog/domain"
	catalogmemory "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/catalog/adapters/memory"
	paymemory "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/adapters/memory"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type recordingListener struct {
	mu    sync.Mutex
	calls []domain.Settlement
}

func (l *recordingListener) OnSettled(_ context.Context, s domain.Settlement) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
	return nil
}

func (l *recordingListener) Calls() []domain.Settlement {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Settlement(nil), l.calls...)
}

type fixture struct {
	catalog  *catalogmemory.Catalog
	ledger   *paymemory.Ledger
	orders   *paymemory.OrderStore
	listener *recordingListener
	svc      *Service
}

func newFixture(t *testing.T, hashes ...string) *fixture {
	t.Helper()
	f := &fixture{
		catalog: catalogmemory.NewCatalog(
			catalogdomain.Product{ID: "prod_001", Name: "Sticker Pack", PriceSats: 1000},
			catalogdomain.Product{ID: "prod_free", Name: "Freebie", PriceSats: 0},
		),
		ledger:   paymemory.NewLedger(paymemory.WithHashes(hashes...), paymemory.WithLedgerClock(func() time.Time { return fixedNow })),
		orders:   paymemory.NewOrderStore(),
		listener: &recordingListener{},
	}
	f.svc = NewService(f.catalog, f.ledger, f.orders,
		WithSettlementListener(f.listener),
		WithClock(func() time.Time { return fixedNow }),
	)
	return f
}

func (f *fixture) checkout(t *testing.T, quantity int64) *domain.PaymentRequest {
	t.Helper()
	req, err := f.svc.CreateCheckout(context.Background(), ports.CreateCheckoutInput{ProductID: "prod_001", Quantity: quantity})
	require.NoError(t, err)
	return req
}
