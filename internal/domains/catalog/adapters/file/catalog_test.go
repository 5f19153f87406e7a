package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/catalog/ports"
)

const productsJSON = `[
  {"id": "prod_001", "name": "Sticker Pack", "price_sats": 1000, "vendor_id": "vendor_0001", "stock": 12},
  {"id": "prod_002", "name": "Hoodie", "price_sats": "25000", "vendor_id": "vendor_0002"},
  {"id": "prod_003", "name": "Broken", "price_sats": null},
  {"id": "", "name": "No ID", "price_sats": 5}
]`

func writeProducts(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestCatalog_GetProduct(t *testing.T) {
	catalog := NewCatalog(writeProducts(t, productsJSON))

	product, err := catalog.GetProduct(context.Background(), "prod_001")
	require.NoError(t, err)
	require.Equal(t, "Sticker Pack", product.Name)
	require.Equal(t, int64(1000), product.PriceSats)
	require.Equal(t, int64(12), product.Stock)

	product, err = catalog.GetProduct(context.Background(), "prod_002")
	require.NoError(t, err)
	require.Equal(t, int64(25000), product.PriceSats)

	product, err = catalog.GetProduct(context.Background(), "prod_003")
	require.NoError(t, err)
	require.Zero(t, product.PriceSats)
}

func TestCatalog_MissingProduct(t *testing.T) {
	catalog := NewCatalog(writeProducts(t, productsJSON))
	_, err := catalog.GetProduct(context.Background(), "prod_404")
	require.ErrorIs(t, err, ports.ErrProductNotFound)
}

func TestCatalog_MissingFileBehavesAsEmpty(t *testing.T) {
	catalog := NewCatalog(filepath.Join(t.TempDir(), "absent.json"))
	_, err := catalog.GetProduct(context.Background(), "prod_001")
	require.ErrorIs(t, err, ports.ErrProductNotFound)
}

func TestCatalog_MalformedFile(t *testing.T) {
	catalog := NewCatalog(writeProducts(t, "{not json"))
	_, err := catalog.GetProduct(context.Background(), "prod_001")
	require.Error(t, err)
	require.NotErrorIs(t, err, ports.ErrProductNotFound)
}

func TestCatalog_NonIntegralPriceReadsAsZero(t *testing.T) {
	catalog := NewCatalog(writeProducts(t, `[
  {"id": "frac", "name": "Fraction", "price_sats": 1000.9},
  {"id": "frac_str", "name": "Fraction String", "price_sats": "1000.5"},
  {"id": "whole", "name": "Whole Float", "price_sats": 1000.0},
  {"id": "huge", "name": "Huge", "price_sats": 1e30}
]`))

	for id, want := range map[string]int64{"frac": 0, "frac_str": 0, "whole": 1000, "huge": 0} {
		product, err := catalog.GetProduct(context.Background(), id)
		require.NoError(t, err, id)
		require.Equal(t, want, product.PriceSats, id)
	}
}
