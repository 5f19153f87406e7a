package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

const watcherTracerName = "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/application/watcher"

// DefaultWatcherBackoff is the fixed delay between reconnect attempts.
const DefaultWatcherBackoff = 5 * time.Second

var (
	// ErrWatcherRunning is returned by Start on a watcher that is already running.
	ErrWatcherRunning = errors.New("settlement watcher already running")
	// ErrWatcherStopped is returned by Start after Stop.
	ErrWatcherStopped = errors.New("settlement watcher stopped")

	errStreamClosed = errors.New("settlement stream closed")
)

// WatcherState is the lifecycle state of a SettlementWatcher.
type WatcherState int

const (
	WatcherDisconnected WatcherState = iota
	WatcherSubscribing
	WatcherListening
	WatcherStopped
)

func (s WatcherState) String() string {
	switch s {
	case WatcherDisconnected:
		return "disconnected"
	case WatcherSubscribing:
		return "subscribing"
	case WatcherListening:
		return "listening"
	case WatcherStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SettlementWatcher holds the ledger's settlement stream open and settles the
// matching pending orders. Stream failures are retried forever with a fixed
// backoff until Stop is called.
type SettlementWatcher struct {
	ledger   ports.LedgerClient
	orders   ports.OrderStore
	notifier settlementNotifier
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  watcherMetrics
	backoff  time.Duration
	now      func() time.Time
	observe  func(WatcherState)

	stateMu sync.Mutex
	state   WatcherState

	lifeMu   sync.Mutex
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once
}

// WatcherOption configures a SettlementWatcher.
type WatcherOption func(*SettlementWatcher)

// WithWatcherListener sets the completion callback.
func WithWatcherListener(listener ports.SettlementListener) WatcherOption {
	return func(w *SettlementWatcher) {
		if listener != nil {
			w.notifier.listener = listener
		}
	}
}

// WithWatcherLogger injects a slog logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *SettlementWatcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithWatcherTracer injects a tracer used for per-event spans.
func WithWatcherTracer(tr trace.Tracer) WatcherOption {
	return func(w *SettlementWatcher) {
		if tr != nil {
			w.tracer = tr
		}
	}
}

// WithWatcherMeter injects the meter used for event and reconnect counters.
func WithWatcherMeter(m metric.Meter) WatcherOption {
	return func(w *SettlementWatcher) {
		w.metrics = newWatcherMetrics(m)
	}
}

// WithBackoff sets the delay between reconnect attempts.
func WithBackoff(d time.Duration) WatcherOption {
	return func(w *SettlementWatcher) {
		if d > 0 {
			w.backoff = d
		}
	}
}

// WithWatcherClock overrides the time source used when an event has no timestamp.
func WithWatcherClock(now func() time.Time) WatcherOption {
	return func(w *SettlementWatcher) {
		if now != nil {
			w.now = now
		}
	}
}

// WithStateObserver registers a function called on every state change. It runs
// while the state lock is held and must not call back into the watcher.
func WithStateObserver(fn func(WatcherState)) WatcherOption {
	return func(w *SettlementWatcher) {
		w.observe = fn
	}
}

// NewSettlementWatcher builds a watcher in the Disconnected state.
func NewSettlementWatcher(ledger ports.LedgerClient, orders ports.OrderStore, opts ...WatcherOption) *SettlementWatcher {
	w := &SettlementWatcher{
		ledger:   ledger,
		orders:   orders,
		notifier: settlementNotifier{listener: ports.NoopSettlementListener},
		logger:   discardLogger(),
		tracer:   nooptrace.NewTracerProvider().Tracer(watcherTracerName),
		metrics:  newWatcherMetrics(nil),
		backoff:  DefaultWatcherBackoff,
		now:      time.Now,
		state:    WatcherDisconnected,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	w.notifier.logger = w.logger
	return w
}

// Start launches the background loop. The loop ends when Stop is called or ctx
// is cancelled; either way State then reports WatcherStopped.
func (w *SettlementWatcher) Start(ctx context.Context) error {
	w.lifeMu.Lock()
	defer w.lifeMu.Unlock()
	if w.stopped {
		return ErrWatcherStopped
	}
	if w.started {
		return ErrWatcherRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	w.started = true
	w.cancel = cancel
	go w.run(loopCtx)
	return nil
}

// Stop moves the watcher to Stopped. No callbacks fire and no reconnect is
// attempted afterwards; an event already being handled runs to completion.
func (w *SettlementWatcher) Stop() {
	w.lifeMu.Lock()
	if w.stopped {
		w.lifeMu.Unlock()
		return
	}
	w.stopped = true
	cancel := w.cancel
	started := w.started
	w.lifeMu.Unlock()

	w.setState(WatcherStopped)
	if cancel != nil {
		cancel()
	}
	if !started {
		w.closeDone()
	}
}

// Done is closed once the background loop has exited.
func (w *SettlementWatcher) Done() <-chan struct{} {
	return w.done
}

// State reports the current lifecycle state.
func (w *SettlementWatcher) State() WatcherState {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.state
}

func (w *SettlementWatcher) run(ctx context.Context) {
	defer func() {
		w.setState(WatcherStopped)
		w.closeDone()
	}()
	for {
		if w.isStopped() || ctx.Err() != nil {
			return
		}
		w.setState(WatcherSubscribing)
		events, errs, err := w.ledger.SubscribeSettlements(ctx)
		if err == nil {
			w.setState(WatcherListening)
			w.logger.LogAttrs(ctx, slog.LevelInfo, "settlement stream open")
			err = w.consume(ctx, events, errs)
		}
		if w.isStopped() || ctx.Err() != nil {
			return
		}
		w.setState(WatcherDisconnected)
		w.metrics.recordReconnect(ctx)
		w.logger.LogAttrs(ctx, slog.LevelWarn, "settlement stream lost, reconnecting",
			slog.String("error", errString(err)),
			slog.Duration("backoff", w.backoff),
		)
		timer := time.NewTimer(w.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (w *SettlementWatcher) consume(ctx context.Context, events <-chan domain.SettlementEvent, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				select {
				case err, ok := <-errs:
					if ok && err != nil {
						return err
					}
				default:
				}
				return errStreamClosed
			}
			if w.isStopped() {
				return nil
			}
			w.handle(context.WithoutCancel(ctx), event)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return err
			}
		}
	}
}

func (w *SettlementWatcher) handle(ctx context.Context, event domain.SettlementEvent) {
	ctx, span := w.tracer.Start(ctx, "SettlementWatcher.handle",
		trace.WithAttributes(attribute.String("payment.hash", event.PaymentHash)))
	defer span.End()

	hash, err := domain.NormalizePaymentHash(event.PaymentHash)
	if err != nil {
		w.metrics.recordEvent(ctx, "invalid")
		w.logger.LogAttrs(ctx, slog.LevelWarn, "settlement event with invalid payment hash dropped",
			slog.String("payment_hash", event.PaymentHash))
		return
	}
	order, err := w.orders.Get(ctx, hash)
	if err != nil {
		if errors.Is(err, ports.ErrOrderNotFound) {
			w.metrics.recordEvent(ctx, "unknown")
			w.logger.LogAttrs(ctx, slog.LevelInfo, "settlement for unknown order ignored",
				slog.String("payment_hash", hash))
			return
		}
		w.fail(ctx, span, "load order for settlement", hash, err)
		return
	}
	if order.Status != domain.StatusPending {
		w.metrics.recordEvent(ctx, "duplicate")
		level := slog.LevelDebug
		if order.Status == domain.StatusExpired {
			level = slog.LevelWarn
		}
		w.logger.LogAttrs(ctx, level, "settlement for non-pending order ignored",
			slog.String("payment_hash", hash),
			slog.String("status", string(order.Status)))
		return
	}
	if event.AmountSats > 0 && event.AmountSats != order.AmountSats {
		w.logger.LogAttrs(ctx, slog.LevelWarn, "settled amount differs from order amount",
			slog.String("payment_hash", hash),
			slog.Int64("order_amount_sats", order.AmountSats),
			slog.Int64("settled_amount_sats", event.AmountSats))
	}

	settledAt := event.SettledAt
	if settledAt.IsZero() {
		settledAt = w.now()
	}
	updated, changed, err := w.orders.MarkSettled(ctx, hash, settledAt)
	if err != nil {
		w.fail(ctx, span, "mark order settled", hash, err)
		return
	}
	if !changed {
		w.metrics.recordEvent(ctx, "duplicate")
		return
	}
	w.metrics.recordEvent(ctx, "settled")
	w.logger.LogAttrs(ctx, slog.LevelInfo, "order settled",
		slog.String("payment_hash", hash),
		slog.Int64("amount_sats", updated.AmountSats))
	w.notifier.notify(ctx, updated)
}

func (w *SettlementWatcher) fail(ctx context.Context, span trace.Span, msg, hash string, err error) {
	w.metrics.recordEvent(ctx, "error")
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	w.logger.LogAttrs(ctx, slog.LevelError, msg,
		slog.String("payment_hash", hash),
		slog.String("error", err.Error()))
}

func (w *SettlementWatcher) setState(next WatcherState) {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	if w.state == WatcherStopped || w.state == next {
		return
	}
	w.state = next
	if w.observe != nil {
		w.observe(next)
	}
}

func (w *SettlementWatcher) isStopped() bool {
	w.lifeMu.Lock()
	defer w.lifeMu.Unlock()
	return w.stopped
}

func (w *SettlementWatcher) closeDone() {
	w.doneOnce.Do(func() { close(w.done) })
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

type watcherMetrics struct {
	events     metric.Int64Counter
	reconnects metric.Int64Counter
}

func newWatcherMetrics(m metric.Meter) watcherMetrics {
	if m == nil {
		return watcherMetrics{}
	}
	events, _ := m.Int64Counter("payments.watcher.events", metric.WithDescription("Settlement events handled, by outcome"))
	reconnects, _ := m.Int64Counter("payments.watcher.reconnects", metric.WithDescription("Settlement stream reconnect attempts"))
	return watcherMetrics{events: events, reconnects: reconnects}
}

func (m watcherMetrics) recordEvent(ctx context.Context, outcome string) {
	if m.events == nil {
		return
	}
	m.events.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m watcherMetrics) recordReconnect(ctx context.Context) {
	if m.reconnects == nil {
		return
	}
	m.reconnects.Add(ctx, 1)
}
