package application

import (
	"errors"
	"fmt"

	catalogdomain "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/catalog/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

// ErrInvalidInput signals the request violated a checkout or identifier invariant.
var ErrInvalidInput = errors.New("invalid payment input")

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInvalidInput) {
		return err
	}
	if errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrInvalidPrice) ||
		errors.Is(err, domain.ErrInvalidProductID) ||
		errors.Is(err, domain.ErrInvalidPaymentHash) ||
		errors.Is(err, catalogdomain.ErrEmptyID) ||
		errors.Is(err, ports.ErrInvalidIdentifier) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
