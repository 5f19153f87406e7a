package mapper

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	catalogports "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/catalog/ports"
	paymentsapp "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/application"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

func decodeRequest(t *testing.T, body string) CreateInvoiceRequest {
	t.Helper()
	var req CreateInvoiceRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return req
}

func TestToCheckoutInput(t *testing.T) {
	input, err := ToCheckoutInput(decodeRequest(t, `{"product_id":" prod_001 "}`))
	require.NoError(t, err)
	require.Equal(t, "prod_001", input.ProductID)
	require.Equal(t, int64(1), input.Quantity)

	input, err = ToCheckoutInput(decodeRequest(t, `{"product_id":"prod_001","quantity":3}`))
	require.NoError(t, err)
	require.Equal(t, int64(3), input.Quantity)

	input, err = ToCheckoutInput(decodeRequest(t, `{"product_id":"prod_001","quantity":"2"}`))
	require.NoError(t, err)
	require.Equal(t, int64(2), input.Quantity)

	input, err = ToCheckoutInput(decodeRequest(t, `{"product_id":"prod_001","quantity":0}`))
	require.NoError(t, err)
	require.Zero(t, input.Quantity)

	_, err = ToCheckoutInput(decodeRequest(t, `{"product_id":"prod_001","quantity":1.5}`))
	require.Error(t, err)
	problem, ok := ProblemFor(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, problem.Status)
}

func TestFromDomainOrder(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	created := time.Date(2024, 6, 1, 14, 0, 0, 0, loc)
	order, err := domain.NewPendingOrder("prod_001", 3, domain.PaymentRequest{
		PaymentRequest: "lnbcrt3000n1pabc123",
		PaymentHash:    "abc123",
		AmountSats:     3000,
		ExpiresAt:      created.Add(time.Hour),
	}, "Sticker Pack x3", created)
	require.NoError(t, err)

	out := FromDomainOrder(order)
	require.Equal(t, "abc123", out.PaymentHash)
	require.Equal(t, "pending", out.Status)
	require.Equal(t, time.UTC, out.CreatedAt.Location())
	require.Nil(t, out.SettledAt)

	_, err = order.Settle(created.Add(time.Minute))
	require.NoError(t, err)
	out = FromDomainOrder(order)
	require.NotNil(t, out.SettledAt)
	require.Equal(t, "settled", out.Status)
}

func TestFromPaymentState(t *testing.T) {
	require.Equal(t, CheckPaymentResponse{Paid: true, Status: "settled"}, FromPaymentState(domain.PaymentSettled))
	require.Equal(t, CheckPaymentResponse{Paid: false, Status: "pending"}, FromPaymentState(domain.PaymentPending))
}

func TestProblemFor(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid input", fmt.Errorf("%w: %w", paymentsapp.ErrInvalidInput, domain.ErrInvalidQuantity), http.StatusBadRequest},
		{"product missing", catalogports.ErrProductNotFound, http.StatusNotFound},
		{"order missing", ports.ErrOrderNotFound, http.StatusNotFound},
		{"duplicate", ports.ErrDuplicateIdentifier, http.StatusConflict},
		{"unavailable", fmt.Errorf("%w: dial tcp: refused", ports.ErrUpstreamUnavailable), http.StatusServiceUnavailable},
		{"rejected", &ports.UpstreamRejectedError{StatusCode: 400, Message: "amount must be positive"}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			problem, ok := ProblemFor(tc.err)
			require.True(t, ok)
			require.Equal(t, tc.status, problem.Status)
		})
	}

	problem, ok := ProblemFor(&ports.UpstreamRejectedError{StatusCode: 400, Message: "amount must be positive"})
	require.True(t, ok)
	require.Equal(t, "amount must be positive", problem.Detail)

	problem, ok = ProblemFor(catalogports.ErrProductNotFound)
	require.True(t, ok)
	require.Equal(t, "product", problem.Extensions["resourceType"])

	_, ok = ProblemFor(errors.New("boom"))
	require.False(t, ok)
}
