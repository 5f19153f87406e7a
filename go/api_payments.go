package marketserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	paymentmapper "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/adapters/http/mapper"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	paymentsports "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

var errMissingPaymentHash = errors.New("payment hash is required")

// PaymentsAPI serves checkout and payment-status endpoints.
type PaymentsAPI struct {
	service paymentsports.Service
	logger  *slog.Logger
}

// NewPaymentsAPI wires the handlers to the payments service.
func NewPaymentsAPI(service paymentsports.Service, logger *slog.Logger) PaymentsAPI {
	return PaymentsAPI{service: service, logger: logger}
}

// Post /api/create-invoice
// Issue an invoice for a product and record the pending order.
func (api *PaymentsAPI) CreateInvoice(c *gin.Context) {
	var body paymentmapper.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, err)
		return
	}
	input, err := paymentmapper.ToCheckoutInput(body)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	request, err := api.service.CreateCheckout(c.Request.Context(), input)
	if err != nil {
		api.logFailure(c, "checkout failed", err)
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentmapper.FromPaymentRequest(request))
}

// Get /api/check-payment/:payment_hash
// Report whether an order has been paid.
func (api *PaymentsAPI) CheckPayment(c *gin.Context) {
	hash := c.Param("payment_hash")
	if hash == "" {
		respondBadRequest(c, errMissingPaymentHash)
		return
	}
	state, err := api.service.CheckStatus(c.Request.Context(), hash)
	if err != nil {
		api.logFailure(c, "payment status check failed", err)
		respondDomainError(c, err)
		return
	}
	if state == domain.PaymentNotFound {
		respondDomainError(c, paymentsports.ErrOrderNotFound)
		return
	}
	c.JSON(http.StatusOK, paymentmapper.FromPaymentState(state))
}

// Get /api/orders/:payment_hash
// Return the stored order for a payment hash.
func (api *PaymentsAPI) GetOrder(c *gin.Context) {
	order, err := api.service.GetOrder(c.Request.Context(), c.Param("payment_hash"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentmapper.FromDomainOrder(order))
}

// Get /api/node-info
func (api *PaymentsAPI) GetNodeInfo(c *gin.Context) {
	info, err := api.service.NodeInfo(c.Request.Context())
	if err != nil {
		api.logFailure(c, "node info unavailable", err)
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentmapper.FromNodeInfo(info))
}

func (api *PaymentsAPI) logFailure(c *gin.Context, msg string, err error) {
	if api.logger == nil {
		return
	}
	api.logger.LogAttrs(c.Request.Context(), slog.LevelWarn, msg,
		slog.String("request_id", RequestIDFrom(c)),
		slog.String("path", c.FullPath()),
		slog.String("error", err.Error()))
}
