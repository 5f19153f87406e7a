//go:build pact
// +build pact

package provider_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	pacttest "github.com/MathekoTauu/micro-ecommerce-hub/test/pact"

	marketserver "github.com/MathekoTauu/micro-ecommerce-hub/go"
	catalogmemory "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/catalog/adapters/memory"
	catalogdomain "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/catalog/domain"
	paymemory "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/adapters/memory"
	payobs "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/adapters/observability"
	paymentsapp "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/application"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"

	"github.com/gin-gonic/gin"
	"github.com/pact-foundation/pact-go/v2/models"
	pactprovider "github.com/pact-foundation/pact-go/v2/provider"
	"github.com/stretchr/testify/require"
)

func TestMarketProviderPact(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := newContractProviderApp(t)
	pactFile := filepath.ToSlash(pacttest.PactFile(t))
	if _, err := os.Stat(pactFile); errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pact file not found at %s - run the pact consumer tests first", pactFile)
	} else {
		require.NoError(t, err)
	}

	verifier := pactprovider.NewVerifier()
	stateHandlers := models.StateHandlers{
		pacttest.StateCatalogBaseline: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset(t)
			return nil, nil
		},
		pacttest.StatePendingOrder: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset(t)
			if setup {
				app.seedOrder(t)
			}
			return nil, nil
		},
		pacttest.StateSettledOrder: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset(t)
			if setup {
				app.seedOrder(t)
				app.ledgerFor().MarkPaid(pacttest.KnownPaymentHash)
			}
			return nil, nil
		},
		pacttest.StateNoOrder: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset(t)
			return nil, nil
		},
	}

	err := verifier.VerifyProvider(t, pactprovider.VerifyRequest{
		ProviderBaseURL: app.server.URL,
		Provider:        pacttest.ProviderName,
		PactFiles:       []string{pactFile},
		StateHandlers:   stateHandlers,
		BeforeEach: func() error {
			app.reset(t)
			return nil
		},
	})
	require.NoError(t, err)
}

// contractProviderApp rebuilds the in-memory stack on every reset so provider
// states never leak into each other.
type contractProviderApp struct {
	server *httptest.Server

	mu      sync.RWMutex
	ledger  *paymemory.Ledger
	service ports.Service
	router  http.Handler
}

func newContractProviderApp(t testing.TB) *contractProviderApp {
	t.Helper()
	app := &contractProviderApp{}
	app.reset(t)
	app.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.mu.RLock()
		router := app.router
		app.mu.RUnlock()
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(app.server.Close)
	return app
}

func (a *contractProviderApp) reset(t testing.TB) {
	t.Helper()
	catalog := catalogmemory.NewCatalog(catalogdomain.Product{
		ID:        pacttest.ProductID,
		Name:      pacttest.ProductName,
		PriceSats: pacttest.ProductPriceSats,
	})
	ledger := paymemory.NewLedger(paymemory.WithHashes(pacttest.KnownPaymentHash))
	service := payobs.New(paymentsapp.NewService(catalog, ledger, paymemory.NewOrderStore()))

	router := gin.New()
	router.Use(gin.Recovery())
	router = marketserver.NewRouterWithGinEngine(router, marketserver.ApiHandleFunctions{
		PaymentsAPI: marketserver.NewPaymentsAPI(service, nil),
	})

	a.mu.Lock()
	defer a.mu.Unlock()
	a.ledger = ledger
	a.service = service
	a.router = router
}

func (a *contractProviderApp) ledgerFor() *paymemory.Ledger {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ledger
}

func (a *contractProviderApp) seedOrder(t testing.TB) {
	t.Helper()
	a.mu.RLock()
	service := a.service
	a.mu.RUnlock()
	_, err := service.CreateCheckout(context.Background(), ports.CreateCheckoutInput{ProductID: pacttest.ProductID, Quantity: 2})
	require.NoError(t, err)
}
