//go:build pact
// +build pact

package consumer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	pacttest "github.com/MathekoTauu/micro-ecommerce-hub/test/pact"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"
)

type invoicePayload struct {
	PaymentRequest string `json:"payment_request"`
	PaymentHash    string `json:"payment_hash"`
	AmountSats     int64  `json:"amount_sats"`
	ExpiresAt      string `json:"expires_at"`
}

type paymentStatus struct {
	Paid   bool   `json:"paid"`
	Status string `json:"status"`
}

type problemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

type apiError struct {
	status int
	title  string
	detail string
}

func (e apiError) Error() string {
	msg := e.title
	if msg == "" {
		msg = "api error"
	}
	if e.detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.detail)
	}
	return fmt.Sprintf("%s (status %d)", msg, e.status)
}

var jsonContentType = matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")

func newPact(t *testing.T) *pactconsumer.V2HTTPMockProvider {
	t.Helper()
	pactlog.SetLogLevel("INFO")
	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ConsumerName,
		Provider: pacttest.ProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)
	return pact
}

func withClient(fn func(ctx context.Context, client *storefrontClient) error) func(pactconsumer.MockServerConfig) error {
	return func(config pactconsumer.MockServerConfig) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return fn(ctx, newStorefrontClient(config))
	}
}

func TestStorefrontContract_CreateInvoice(t *testing.T) {
	pact := newPact(t)
	example := pacttest.ExampleInvoicePayload()

	pact.AddInteraction().
		Given(pacttest.StateCatalogBaseline).
		UponReceiving("a request to create an invoice").
		WithRequest("POST", "/api/create-invoice", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(matchers.Map{
				"product_id": matchers.S(pacttest.ProductID),
				"quantity":   matchers.Like(2),
			})
		}).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"payment_request": matchers.Like(example["payment_request"]),
				"payment_hash":    matchers.Term(pacttest.KnownPaymentHash, "^[0-9a-f]{64}$"),
				"amount_sats":     matchers.Like(example["amount_sats"]),
				"expires_at":      matchers.Like(example["expires_at"]),
			})
		})

	err := pact.ExecuteTest(t, withClient(func(ctx context.Context, client *storefrontClient) error {
		invoice, err := client.CreateInvoice(ctx, pacttest.ProductID, 2)
		if err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		if invoice.PaymentHash == "" || invoice.PaymentRequest == "" {
			return fmt.Errorf("expected invoice fields to be set, got %+v", invoice)
		}
		return nil
	}))
	require.NoError(t, err)
}

func TestStorefrontContract_CreateInvoiceUnknownProduct(t *testing.T) {
	pact := newPact(t)
	pact.AddInteraction().
		Given(pacttest.StateCatalogBaseline).
		UponReceiving("a request to create an invoice for an unlisted product").
		WithRequest("POST", "/api/create-invoice", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(matchers.Map{"product_id": matchers.S("prod_missing")})
		}).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", matchers.S("application/problem+json"))
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/not-found"),
				"title":  matchers.S("Resource Not Found"),
				"status": matchers.Like(http.StatusNotFound),
			})
		})

	err := pact.ExecuteTest(t, withClient(func(ctx context.Context, client *storefrontClient) error {
		_, err := client.CreateInvoice(ctx, "prod_missing", 0)
		var apiErr apiError
		if !errors.As(err, &apiErr) || apiErr.status != http.StatusNotFound {
			return fmt.Errorf("expected 404 for an unlisted product, got %v", err)
		}
		return nil
	}))
	require.NoError(t, err)
}

func TestStorefrontContract_CheckPayment(t *testing.T) {
	cases := []struct {
		state string
		desc  string
		paid  bool
		want  string
	}{
		{pacttest.StatePendingOrder, "a status check for a pending order", false, "pending"},
		{pacttest.StateSettledOrder, "a status check for a settled order", true, "settled"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			pact := newPact(t)
			pact.AddInteraction().
				Given(tc.state).
				UponReceiving(tc.desc).
				WithRequest("GET", "/api/check-payment/"+pacttest.KnownPaymentHash).
				WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
					b.Header("Content-Type", jsonContentType)
					b.JSONBody(matchers.Map{
						"paid":   matchers.Like(tc.paid),
						"status": matchers.S(tc.want),
					})
				})

			err := pact.ExecuteTest(t, withClient(func(ctx context.Context, client *storefrontClient) error {
				status, err := client.CheckPayment(ctx, pacttest.KnownPaymentHash)
				if err != nil {
					return err
				}
				if status.Status != tc.want || status.Paid != tc.paid {
					return fmt.Errorf("expected %s, got %+v", tc.want, status)
				}
				return nil
			}))
			require.NoError(t, err)
		})
	}
}

func TestStorefrontContract_CheckPaymentUnknownOrder(t *testing.T) {
	pact := newPact(t)
	pact.AddInteraction().
		Given(pacttest.StateNoOrder).
		UponReceiving("a status check for an unknown payment hash").
		WithRequest("GET", "/api/check-payment/"+pacttest.UnknownPaymentHash).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", matchers.S("application/problem+json"))
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/not-found"),
				"status": matchers.Like(http.StatusNotFound),
			})
		})

	err := pact.ExecuteTest(t, withClient(func(ctx context.Context, client *storefrontClient) error {
		_, err := client.CheckPayment(ctx, pacttest.UnknownPaymentHash)
		var apiErr apiError
		if !errors.As(err, &apiErr) || apiErr.status != http.StatusNotFound {
			return fmt.Errorf("expected 404 for an unknown payment hash, got %v", err)
		}
		return nil
	}))
	require.NoError(t, err)
}

type storefrontClient struct {
	baseURL    string
	httpClient *http.Client
}

func newStorefrontClient(config pactconsumer.MockServerConfig) *storefrontClient {
	host := config.Host
	if host == "" {
		host = "localhost"
	}
	transport := &http.Transport{TLSClientConfig: config.TLSConfig}
	return &storefrontClient{
		baseURL:    fmt.Sprintf("http://%s:%d", host, config.Port),
		httpClient: &http.Client{Transport: transport, Timeout: 10 * time.Second},
	}
}

func (c *storefrontClient) CreateInvoice(ctx context.Context, productID string, quantity int64) (*invoicePayload, error) {
	payload := map[string]any{"product_id": productID}
	if quantity > 0 {
		payload["quantity"] = quantity
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/create-invoice", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var out invoicePayload
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *storefrontClient) CheckPayment(ctx context.Context, paymentHash string) (*paymentStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/check-payment/"+paymentHash, nil)
	if err != nil {
		return nil, err
	}
	var out paymentStatus
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *storefrontClient) do(req *http.Request, out any) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(res)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func decodeAPIError(res *http.Response) error {
	var problem problemDetail
	_ = json.NewDecoder(res.Body).Decode(&problem)
	status := problem.Status
	if status == 0 {
		status = res.StatusCode
	}
	return apiError{status: status, title: problem.Title, detail: problem.Detail}
}
