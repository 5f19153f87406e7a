package domain

import "time"

// Event is the base interface for payment domain events.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// Settlement is raised once per order when it transitions to settled.
// It is the payload handed to completion listeners.
type Settlement struct {
	PaymentHash string
	AmountSats  int64
	Memo        string
	SettledAt   time.Time
	ProductID   string
	Quantity    int64
}

// EventName returns the event type identifier.
func (s Settlement) EventName() string {
	return "payments.order.settled"
}

// OccurredAt returns when the ledger settled the invoice.
func (s Settlement) OccurredAt() time.Time {
	return s.SettledAt
}

// EscrowReleased is raised when the follow-up for a settlement completes.
type EscrowReleased struct {
	PaymentHash string
	ReleasedAt  time.Time
}

// EventName returns the event type identifier.
func (e EscrowReleased) EventName() string {
	return "payments.escrow.released"
}

// OccurredAt returns when escrow was released.
func (e EscrowReleased) OccurredAt() time.Time {
	return e.ReleasedAt
}
