package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

var _ ports.LedgerClient = (*Ledger)(nil)

const defaultInvoiceExpiry = time.Hour

type invoice struct {
	request domain.PaymentRequest
	memo    string
	settled bool
}

// streamItem keeps events and stream breaks in emission order.
type streamItem struct {
	event domain.SettlementEvent
	err   error
}

type subscription struct {
	id   int
	in   chan streamItem
	done chan struct{}
}

// Ledger is an in-process stand-in for a Lightning node. It issues invoices,
// answers settlement polls and fans settlement events out to every open
// subscription. Tests drive it through Settle, Emit and BreakStreams.
type Ledger struct {
	mu           sync.Mutex
	now          func() time.Time
	hashes       []string
	invoices     map[string]*invoice
	subs         map[int]*subscription
	nextSub      int
	opened       int
	createErr    error
	subscribeErr error
	checkErr     error
	info         ports.NodeInfo
}

// LedgerOption customises the fake ledger.
type LedgerOption func(*Ledger)

// WithHashes scripts the payment hashes handed out by CreateInvoice, in order.
func WithHashes(hashes ...string) LedgerOption {
	return func(l *Ledger) {
		l.hashes = append(l.hashes, hashes...)
	}
}

// WithLedgerClock overrides the time source used for expiries and settlements.
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithNodeInfo sets the answer of GetInfo.
func WithNodeInfo(info ports.NodeInfo) LedgerOption {
	return func(l *Ledger) {
		l.info = info
	}
}

func NewLedger(opts ...LedgerOption) *Ledger {
	l := &Ledger{
		now:      time.Now,
		invoices: map[string]*invoice{},
		subs:     map[int]*subscription{},
		info: ports.NodeInfo{
			Pubkey:        "02memoryledger",
			Alias:         "memory",
			SyncedToChain: true,
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FailCreate makes subsequent CreateInvoice calls return err; nil restores success.
func (l *Ledger) FailCreate(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.createErr = err
}

// FailSubscribe makes subsequent SubscribeSettlements calls return err.
func (l *Ledger) FailSubscribe(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribeErr = err
}

// FailCheck simulates a node that cannot be polled.
func (l *Ledger) FailCheck(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checkErr = err
}

func (l *Ledger) CreateInvoice(_ context.Context, req ports.InvoiceRequest) (*domain.PaymentRequest, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createErr != nil {
		return nil, l.createErr
	}
	if req.AmountSats <= 0 {
		return nil, &ports.UpstreamRejectedError{StatusCode: 400, Message: "amount must be positive"}
	}
	hash, err := l.nextHash()
	if err != nil {
		return nil, err
	}
	if _, exists := l.invoices[hash]; exists {
		return nil, &ports.UpstreamRejectedError{StatusCode: 409, Message: "invoice with payment hash already exists"}
	}
	expiry := req.Expiry
	if expiry <= 0 {
		expiry = defaultInvoiceExpiry
	}
	request := domain.PaymentRequest{
		PaymentRequest: fmt.Sprintf("lnbcrt%dn1p%s", req.AmountSats, hash),
		PaymentHash:    hash,
		AmountSats:     req.AmountSats,
		ExpiresAt:      l.now().Add(expiry).UTC(),
	}
	l.invoices[hash] = &invoice{request: request, memo: req.Memo}
	return &request, nil
}

func (l *Ledger) CheckSettlement(_ context.Context, paymentHash string) (bool, error) {
	hash, err := domain.NormalizePaymentHash(paymentHash)
	if err != nil {
		return false, fmt.Errorf("%w: %q", ports.ErrInvalidIdentifier, paymentHash)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.checkErr != nil {
		return false, nil
	}
	inv, ok := l.invoices[hash]
	return ok && inv.settled, nil
}

func (l *Ledger) SubscribeSettlements(ctx context.Context) (<-chan domain.SettlementEvent, <-chan error, error) {
	l.mu.Lock()
	if l.subscribeErr != nil {
		err := l.subscribeErr
		l.mu.Unlock()
		return nil, nil, err
	}
	l.nextSub++
	l.opened++
	sub := &subscription{
		id:   l.nextSub,
		in:   make(chan streamItem, 64),
		done: make(chan struct{}),
	}
	l.subs[sub.id] = sub
	l.mu.Unlock()

	events := make(chan domain.SettlementEvent)
	errs := make(chan error, 1)
	go func() {
		defer func() {
			l.mu.Lock()
			delete(l.subs, sub.id)
			l.mu.Unlock()
			close(sub.done)
			close(events)
			close(errs)
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case item := <-sub.in:
				if item.err != nil {
					errs <- item.err
					return
				}
				select {
				case events <- item.event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, errs, nil
}

func (l *Ledger) GetInfo(context.Context) (*ports.NodeInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	info := l.info
	return &info, nil
}

// Settle marks an issued invoice paid and emits its settlement to open streams.
func (l *Ledger) Settle(paymentHash string) error {
	hash, err := domain.NormalizePaymentHash(paymentHash)
	if err != nil {
		return err
	}
	l.mu.Lock()
	inv, ok := l.invoices[hash]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("no invoice for %s", hash)
	}
	inv.settled = true
	event := domain.SettlementEvent{
		PaymentHash: hash,
		AmountSats:  inv.request.AmountSats,
		Memo:        inv.memo,
		SettledAt:   l.now().UTC(),
	}
	l.mu.Unlock()
	l.Emit(event)
	return nil
}

// MarkPaid flips an invoice to settled without notifying any stream, as when
// the watcher was disconnected at the moment of payment.
func (l *Ledger) MarkPaid(paymentHash string) {
	hash, err := domain.NormalizePaymentHash(paymentHash)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if inv, ok := l.invoices[hash]; ok {
		inv.settled = true
	}
}

// Emit delivers a raw event to every open stream.
func (l *Ledger) Emit(event domain.SettlementEvent) {
	l.broadcast(streamItem{event: event})
}

// BreakStreams terminates every open stream with err.
func (l *Ledger) BreakStreams(err error) {
	if err == nil {
		err = fmt.Errorf("%w: stream closed", ports.ErrUpstreamUnavailable)
	}
	l.broadcast(streamItem{err: err})
}

// Subscribers reports how many streams are currently open.
func (l *Ledger) Subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

// SubscriptionsOpened reports how many streams were ever opened.
func (l *Ledger) SubscriptionsOpened() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opened
}

func (l *Ledger) broadcast(item streamItem) {
	l.mu.Lock()
	subs := make([]*subscription, 0, len(l.subs))
	for _, sub := range l.subs {
		subs = append(subs, sub)
	}
	l.mu.Unlock()
	for _, sub := range subs {
		select {
		case sub.in <- item:
		case <-sub.done:
		}
	}
}

// nextHash must be called with l.mu held.
func (l *Ledger) nextHash() (string, error) {
	if len(l.hashes) > 0 {
		hash, err := domain.NormalizePaymentHash(l.hashes[0])
		l.hashes = l.hashes[1:]
		return hash, err
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
