package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/catalog/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/catalog/ports"
)

var _ ports.Catalog = (*Catalog)(nil)

// Catalog reads listings from the flat products.json collection shared with the
// storefront. The file is re-read whenever its modification time changes.
type Catalog struct {
	path string

	mu       sync.Mutex
	modTime  time.Time
	products map[string]*domain.Product
}

// NewCatalog wires a catalog backed by the JSON file at path.
func NewCatalog(path string) *Catalog {
	return &Catalog{path: path}
}

// productRecord mirrors the on-disk listing. price_sats has been written both as
// a number and as a numeric string by the storefront, so both are accepted.
type productRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PriceSats flexInt64 `json:"price_sats"`
	VendorID  string    `json:"vendor_id"`
	Stock     flexInt64 `json:"stock"`
}

// GetProduct returns the listing with the given id.
func (c *Catalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	products, err := c.load()
	if err != nil {
		return nil, err
	}
	product, ok := products[strings.TrimSpace(id)]
	if !ok {
		return nil, ports.ErrProductNotFound
	}
	clone := *product
	return &clone, nil
}

func (c *Catalog) load() (map[string]*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := os.Stat(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.products = map[string]*domain.Product{}
			c.modTime = time.Time{}
			return c.products, nil
		}
		return nil, fmt.Errorf("stat products file: %w", err)
	}
	if c.products != nil && info.ModTime().Equal(c.modTime) {
		return c.products, nil
	}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read products file: %w", err)
	}
	var records []productRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode products file: %w", err)
	}
	products := make(map[string]*domain.Product, len(records))
	for _, rec := range records {
		product := &domain.Product{
			ID:        strings.TrimSpace(rec.ID),
			Name:      rec.Name,
			PriceSats: int64(rec.PriceSats),
			VendorID:  rec.VendorID,
			Stock:     int64(rec.Stock),
		}
		if product.Validate() != nil {
			continue
		}
		products[product.ID] = product
	}
	c.products = products
	c.modTime = info.ModTime()
	return products, nil
}

type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		data = []byte(s)
	}
	if v, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*f = flexInt64(v)
		return nil
	}
	// Unparseable, fractional or out-of-range values read as 0, which checkout
	// rejects as an invalid price.
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil || v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
		*f = 0
		return nil
	}
	*f = flexInt64(v)
	return nil
}
