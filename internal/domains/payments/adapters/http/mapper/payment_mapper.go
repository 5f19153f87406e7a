package mapper

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

// DefaultQuantity applies when a checkout omits the quantity.
const DefaultQuantity int64 = 1

var errQuantityNotInteger = errors.New("quantity must be an integer")

// CreateInvoiceRequest is the checkout payload. Quantity accepts a JSON number
// or a numeric string.
type CreateInvoiceRequest struct {
	ProductID string      `json:"product_id"`
	Quantity  json.Number `json:"quantity,omitempty"`
}

// CreateInvoiceResponse is what a wallet needs to pay.
type CreateInvoiceResponse struct {
	PaymentRequest string    `json:"payment_request"`
	PaymentHash    string    `json:"payment_hash"`
	AmountSats     int64     `json:"amount_sats"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// CheckPaymentResponse answers a status poll.
type CheckPaymentResponse struct {
	Paid   bool   `json:"paid"`
	Status string `json:"status"`
}

// Order is the HTTP view of a stored order.
type Order struct {
	PaymentHash      string     `json:"payment_hash"`
	PaymentRequest   string     `json:"payment_request,omitempty"`
	ProductID        string     `json:"product_id"`
	Quantity         int64      `json:"quantity"`
	AmountSats       int64      `json:"amount_sats"`
	Memo             string     `json:"memo,omitempty"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        time.Time  `json:"expires_at"`
	SettledAt        *time.Time `json:"settled_at,omitempty"`
	EscrowReleasedAt *time.Time `json:"escrow_released_at,omitempty"`
}

// NodeInfo is the HTTP view of the ledger node summary.
type NodeInfo struct {
	Pubkey         string `json:"pubkey"`
	Alias          string `json:"alias"`
	ActiveChannels int64  `json:"active_channels"`
	SyncedToChain  bool   `json:"synced_to_chain"`
}

// ToCheckoutInput converts the payload, defaulting a missing quantity to one.
// Range checks are left to the application layer.
func ToCheckoutInput(req CreateInvoiceRequest) (ports.CreateCheckoutInput, error) {
	input := ports.CreateCheckoutInput{
		ProductID: strings.TrimSpace(req.ProductID),
		Quantity:  DefaultQuantity,
	}
	raw := strings.TrimSpace(req.Quantity.String())
	if raw == "" {
		return input, nil
	}
	qty, err := json.Number(raw).Int64()
	if err != nil {
		return ports.CreateCheckoutInput{}, fmt.Errorf("%w: %q", errQuantityNotInteger, raw)
	}
	input.Quantity = qty
	return input, nil
}

// FromPaymentRequest renders an issued invoice.
func FromPaymentRequest(req *domain.PaymentRequest) CreateInvoiceResponse {
	if req == nil {
		return CreateInvoiceResponse{}
	}
	return CreateInvoiceResponse{
		PaymentRequest: req.PaymentRequest,
		PaymentHash:    req.PaymentHash,
		AmountSats:     req.AmountSats,
		ExpiresAt:      req.ExpiresAt.UTC(),
	}
}

// FromPaymentState renders a status check.
func FromPaymentState(state domain.PaymentState) CheckPaymentResponse {
	return CheckPaymentResponse{Paid: state.Paid(), Status: string(state)}
}

// FromDomainOrder renders a stored order.
func FromDomainOrder(order *domain.Order) Order {
	if order == nil {
		return Order{}
	}
	return Order{
		PaymentHash:      order.PaymentHash,
		PaymentRequest:   order.PaymentRequest,
		ProductID:        order.ProductID,
		Quantity:         order.Quantity,
		AmountSats:       order.AmountSats,
		Memo:             order.Memo,
		Status:           string(order.Status),
		CreatedAt:        order.CreatedAt.UTC(),
		ExpiresAt:        order.ExpiresAt.UTC(),
		SettledAt:        utcPtr(order.SettledAt),
		EscrowReleasedAt: utcPtr(order.EscrowReleasedAt),
	}
}

// FromNodeInfo renders the node summary.
func FromNodeInfo(info *ports.NodeInfo) NodeInfo {
	if info == nil {
		return NodeInfo{}
	}
	return NodeInfo{
		Pubkey:         info.Pubkey,
		Alias:          info.Alias,
		ActiveChannels: info.ActiveChannels,
		SyncedToChain:  info.SyncedToChain,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
