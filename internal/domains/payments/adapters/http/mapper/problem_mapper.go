package mapper

import (
	"errors"

	catalogports "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/catalog/ports"
	paymentsapp "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/application"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
	apierrors "github.com/MathekoTauu/micro-ecommerce-hub/internal/shared/errors"
)

// ProblemFor translates payment errors into problem details. It is meant to be
// registered on an apierrors.Responder.
func ProblemFor(err error) (apierrors.ProblemDetail, bool) {
	if err == nil {
		return apierrors.ProblemDetail{}, false
	}
	var rejected *ports.UpstreamRejectedError
	switch {
	case errors.Is(err, paymentsapp.ErrInvalidInput), errors.Is(err, errQuantityNotInteger):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, catalogports.ErrProductNotFound):
		return apierrors.NewNotFoundProblem("product", err.Error()), true
	case errors.Is(err, ports.ErrOrderNotFound):
		return apierrors.NewNotFoundProblem("order", err.Error()), true
	case errors.Is(err, ports.ErrDuplicateIdentifier):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, domain.ErrInvalidTransition):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, ports.ErrUpstreamUnavailable):
		return apierrors.ErrServiceUnavailable.WithDetail(err.Error()), true
	case errors.As(err, &rejected):
		problem := apierrors.ErrUpstreamRejected.WithDetail(rejected.Message)
		if rejected.StatusCode != 0 {
			problem = problem.WithExtension("upstreamStatus", rejected.StatusCode)
		}
		return problem, true
	case errors.Is(err, ports.ErrUpstreamRejected):
		return apierrors.ErrUpstreamRejected.WithDetail(err.Error()), true
	default:
		return apierrors.ProblemDetail{}, false
	}
}
