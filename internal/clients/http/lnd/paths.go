package lnd

import (
	"fmt"

	"github.com/oapi-codegen/runtime"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

const paymentHashHexLen = 64

// validateHash accepts only 32-byte hex hashes, the only form lnd can look up.
func validateHash(paymentHash string) (string, error) {
	hash, err := domain.NormalizePaymentHash(paymentHash)
	if err != nil || len(hash) != paymentHashHexLen {
		return "", fmt.Errorf("%w: %q", ports.ErrInvalidIdentifier, paymentHash)
	}
	return hash, nil
}

func invoicePath(hash string) (string, error) {
	param, err := runtime.StyleParamWithLocation("simple", false, "r_hash_str", runtime.ParamLocationPath, hash)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ports.ErrInvalidIdentifier, err)
	}
	return "/v1/invoice/" + param, nil
}
