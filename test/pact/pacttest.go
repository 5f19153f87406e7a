//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "market-api"
	ConsumerName = "storefront"

	StateCatalogBaseline = "product prod_001 is listed"
	StatePendingOrder    = "a pending order exists for the known payment hash"
	StateSettledOrder    = "a settled order exists for the known payment hash"
	StateNoOrder         = "no order exists for the unknown payment hash"
)

const (
	ProductID        = "prod_001"
	ProductName      = "Sticker Pack"
	ProductPriceSats = 1000

	KnownPaymentHash   = "5c3a0e2f7d4b9a8c1e6f3b2d0a9c8e7f6b5a4d3c2e1f0a9b8c7d6e5f4a3b2c1d"
	UnknownPaymentHash = "0000000000000000000000000000000000000000000000000000000000000000"
)

// ExampleInvoicePayload provides stable test data for the create-invoice interaction.
func ExampleInvoicePayload() map[string]any {
	return map[string]any{
		"payment_request": "lnbcrt2000n1p" + KnownPaymentHash,
		"payment_hash":    KnownPaymentHash,
		"amount_sats":     2 * ProductPriceSats,
		"expires_at":      "2024-06-01T13:00:00Z",
	}
}

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the storefront consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
