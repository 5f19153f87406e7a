package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyID   = errors.New("product id is required")
	ErrEmptyName = errors.New("product name is required")
)

// Product is the slice of a catalog listing the payments core reads.
type Product struct {
	ID        string
	Name      string
	PriceSats int64
	VendorID  string
	Stock     int64
}

// Validate checks the fields every listing must carry. Price is checked by the
// checkout flow so that a mispriced listing surfaces as an invalid price.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// CheckoutMemo is the invoice description shown in the buyer's wallet.
func (p *Product) CheckoutMemo(quantity int64) string {
	return fmt.Sprintf("%s x%d", p.Name, quantity)
}
