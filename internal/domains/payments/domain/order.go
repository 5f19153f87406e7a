package domain

import (
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// Status enumerates order progression. Pending is the only non-terminal state.
type Status string

const (
	StatusPending Status = "pending"
	StatusSettled Status = "settled"
	StatusExpired Status = "expired"
)

var (
	ErrInvalidPaymentHash = errors.New("payment hash must be a non-empty hex string")
	ErrInvalidProductID   = errors.New("product id is required")
	ErrInvalidQuantity    = errors.New("quantity must be greater than zero")
	ErrInvalidPrice       = errors.New("price must be greater than zero")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInvalidStatus      = errors.New("order status is invalid")
	ErrInvalidTransition  = errors.New("order status transition is not allowed")
)

// Order models one checkout attempt, keyed by the ledger's payment hash.
type Order struct {
	PaymentHash      string
	ProductID        string
	Quantity         int64
	AmountSats       int64
	Memo             string
	PaymentRequest   string
	Status           Status
	CreatedAt        time.Time
	ExpiresAt        time.Time
	SettledAt        *time.Time
	EscrowReleasedAt *time.Time
}

// NewPendingOrder builds the order recorded once the ledger has issued an invoice.
func NewPendingOrder(productID string, quantity int64, request PaymentRequest, memo string, createdAt time.Time) (*Order, error) {
	hash, err := NormalizePaymentHash(request.PaymentHash)
	if err != nil {
		return nil, err
	}
	order := &Order{
		PaymentHash:    hash,
		ProductID:      strings.TrimSpace(productID),
		Quantity:       quantity,
		AmountSats:     request.AmountSats,
		Memo:           memo,
		PaymentRequest: request.PaymentRequest,
		Status:         StatusPending,
		CreatedAt:      createdAt.UTC(),
		ExpiresAt:      request.ExpiresAt.UTC(),
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

// Validate enforces invariants on the aggregate.
func (o *Order) Validate() error {
	if _, err := NormalizePaymentHash(o.PaymentHash); err != nil {
		return err
	}
	if o.ProductID == "" {
		return ErrInvalidProductID
	}
	if o.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if o.AmountSats <= 0 {
		return ErrInvalidAmount
	}
	if !isValidStatus(o.Status) {
		return ErrInvalidStatus
	}
	if o.Status == StatusSettled && o.SettledAt == nil {
		return ErrInvalidStatus
	}
	return nil
}

// Settle moves a pending order to settled. It reports whether the state changed;
// settling an already settled order is a no-op, settling an expired one is refused.
func (o *Order) Settle(at time.Time) (bool, error) {
	switch o.Status {
	case StatusSettled:
		return false, nil
	case StatusExpired:
		return false, ErrInvalidTransition
	case StatusPending:
		settledAt := at.UTC()
		o.Status = StatusSettled
		o.SettledAt = &settledAt
		return true, nil
	default:
		return false, ErrInvalidStatus
	}
}

// Expire moves a pending order to expired.
func (o *Order) Expire() (bool, error) {
	switch o.Status {
	case StatusExpired:
		return false, nil
	case StatusSettled:
		return false, ErrInvalidTransition
	case StatusPending:
		o.Status = StatusExpired
		return true, nil
	default:
		return false, ErrInvalidStatus
	}
}

// ReleaseEscrow stamps the escrow release on a settled order, once.
func (o *Order) ReleaseEscrow(at time.Time) (bool, error) {
	if o.Status != StatusSettled {
		return false, ErrInvalidTransition
	}
	if o.EscrowReleasedAt != nil {
		return false, nil
	}
	releasedAt := at.UTC()
	o.EscrowReleasedAt = &releasedAt
	return true, nil
}

// PastExpiry reports whether a pending order outlived its advisory expiry.
func (o *Order) PastExpiry(now time.Time) bool {
	return o.Status == StatusPending && !o.ExpiresAt.IsZero() && now.After(o.ExpiresAt)
}

// Settlement builds the completion payload for a settled order.
func (o *Order) Settlement() Settlement {
	s := Settlement{
		PaymentHash: o.PaymentHash,
		AmountSats:  o.AmountSats,
		Memo:        o.Memo,
		ProductID:   o.ProductID,
		Quantity:    o.Quantity,
	}
	if o.SettledAt != nil {
		s.SettledAt = *o.SettledAt
	}
	return s
}

// Clone returns a deep copy so adapters never share pointers with callers.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	if o.SettledAt != nil {
		at := *o.SettledAt
		clone.SettledAt = &at
	}
	if o.EscrowReleasedAt != nil {
		at := *o.EscrowReleasedAt
		clone.EscrowReleasedAt = &at
	}
	return &clone
}

// NormalizePaymentHash lowercases and validates a hex payment identifier.
func NormalizePaymentHash(hash string) (string, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if hash == "" {
		return "", ErrInvalidPaymentHash
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return "", ErrInvalidPaymentHash
	}
	return hash, nil
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusPending, StatusSettled, StatusExpired:
		return true
	default:
		return false
	}
}
