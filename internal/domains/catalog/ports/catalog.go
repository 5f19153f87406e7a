package ports

import (
	"context"
	"errors"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/catalog/domain"
)

var ErrProductNotFound = errors.New("product not found")

// Catalog is the read-only view of listings consumed by checkout.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}
