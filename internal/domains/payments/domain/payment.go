package domain

import "time"

// PaymentRequest is the wallet-presentable instruction returned by the ledger.
// It is never persisted as such; the order keeps the fields it needs.
type PaymentRequest struct {
	PaymentRequest string
	PaymentHash    string
	AmountSats     int64
	ExpiresAt      time.Time
}

// SettlementEvent is one item of the ledger's settlement stream.
// Delivery is at-least-once, so consumers must tolerate duplicates.
type SettlementEvent struct {
	PaymentHash string
	AmountSats  int64
	Memo        string
	SettledAt   time.Time
}

// PaymentState is the caller-facing answer of a status check.
type PaymentState string

const (
	PaymentPending  PaymentState = "pending"
	PaymentSettled  PaymentState = "settled"
	PaymentExpired  PaymentState = "expired"
	PaymentNotFound PaymentState = "not_found"
)

// Paid reports whether the state means funds were received.
func (s PaymentState) Paid() bool {
	return s == PaymentSettled
}

// StateOf maps an order status onto the status-check vocabulary.
func StateOf(status Status) PaymentState {
	switch status {
	case StatusSettled:
		return PaymentSettled
	case StatusExpired:
		return PaymentExpired
	default:
		return PaymentPending
	}
}
