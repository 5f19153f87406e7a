package marketserver

import (
	"github.com/gin-gonic/gin"

	paymentmapper "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/adapters/http/mapper"
	apierrors "github.com/MathekoTauu/micro-ecommerce-hub/internal/shared/errors"
)

// problems renders payment errors as RFC 7807 responses.
var problems = apierrors.NewResponder("", paymentmapper.ProblemFor)

// respondDomainError lets the payment mapper pick the status, defaulting to 500.
func respondDomainError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	problems.RespondError(c, err)
}

// respondBadRequest rejects input that never reached the service.
func respondBadRequest(c *gin.Context, err error) {
	problems.BadRequest(c, err.Error())
}
