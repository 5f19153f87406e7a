package ports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
)

var (
	// ErrUpstreamUnavailable signals the ledger node could not be reached in time.
	ErrUpstreamUnavailable = errors.New("ledger node unavailable")
	// ErrUpstreamRejected signals the ledger node answered with a business error.
	ErrUpstreamRejected = errors.New("ledger node rejected the request")
	// ErrInvalidIdentifier signals a payment hash that cannot be sent to the node.
	ErrInvalidIdentifier = errors.New("invalid payment identifier")
)

// UpstreamRejectedError carries the node's own message so it can be surfaced verbatim.
type UpstreamRejectedError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamRejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status %d)", ErrUpstreamRejected.Error(), e.StatusCode)
	}
	return e.Message
}

// Is lets errors.Is match the sentinel.
func (e *UpstreamRejectedError) Is(target error) bool {
	return target == ErrUpstreamRejected
}

// InvoiceRequest asks the node for a payable invoice.
type InvoiceRequest struct {
	AmountSats int64
	Memo       string
	Expiry     time.Duration
}

// NodeInfo summarises the connected node.
type NodeInfo struct {
	Pubkey         string
	Alias          string
	ActiveChannels int64
	SyncedToChain  bool
}

// LedgerClient talks to the external Lightning node. It holds no state of its own.
type LedgerClient interface {
	CreateInvoice(ctx context.Context, req InvoiceRequest) (*domain.PaymentRequest, error)
	// CheckSettlement is a best-effort poll: communication failures report false.
	// Only a malformed identifier yields an error (ErrInvalidIdentifier).
	CheckSettlement(ctx context.Context, paymentHash string) (bool, error)
	// SubscribeSettlements opens a fresh settlement stream positioned at "now".
	// The error channel receives at most one value when the stream breaks; both
	// channels are closed afterwards.
	SubscribeSettlements(ctx context.Context) (<-chan domain.SettlementEvent, <-chan error, error)
	GetInfo(ctx context.Context) (*NodeInfo, error)
}
