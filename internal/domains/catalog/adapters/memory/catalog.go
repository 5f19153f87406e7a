package memory

import (
	"context"
	"sync"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/catalog/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/catalog/ports"
)

var _ ports.Catalog = (*Catalog)(nil)

// Catalog is an in-memory catalog for development and tests.
type Catalog struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewCatalog(products ...domain.Product) *Catalog {
	c := &Catalog{products: map[string]*domain.Product{}}
	for _, p := range products {
		c.Put(p)
	}
	return c
}

// Put inserts or replaces a listing.
func (c *Catalog) Put(product domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	clone := product
	c.products[product.ID] = &clone
}

// Remove deletes a listing if present.
func (c *Catalog) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, id)
}

func (c *Catalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	product, ok := c.products[id]
	if !ok {
		return nil, ports.ErrProductNotFound
	}
	clone := *product
	return &clone, nil
}
