package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	catalogports "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/catalog/ports"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

const tracerName = "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/adapters/observability/service"

// Service decorates a payments service with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTracer injects a tracer implementation.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

// WithMeter injects the meter used to create service metrics instruments.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wires a decorator around the core service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if s.logger == nil {
		s.logger = defaultLogger()
	}
	return s
}

// CreateCheckout requests an invoice and records the pending order.
func (s *Service) CreateCheckout(ctx context.Context, input ports.CreateCheckoutInput) (*domain.PaymentRequest, error) {
	ctx, span := s.startSpan(ctx, "Service.CreateCheckout",
		attribute.String("product.id", input.ProductID),
		attribute.Int64("checkout.quantity", input.Quantity))
	defer span.End()

	s.logInfo(ctx, "creating checkout", slog.String("product_id", input.ProductID), slog.Int64("quantity", input.Quantity))
	result, err := s.inner.CreateCheckout(ctx, input)
	if err != nil {
		s.metrics.recordCheckoutFailed(ctx, failureReason(err))
		return nil, s.handleError(ctx, span, err, "failed to create checkout", slog.String("product_id", input.ProductID))
	}
	span.SetAttributes(
		attribute.String("payment.hash", result.PaymentHash),
		attribute.Int64("payment.amount_sats", result.AmountSats))
	s.metrics.recordCheckoutCreated(ctx, result.AmountSats)
	s.logInfo(ctx, "checkout created",
		slog.String("payment_hash", result.PaymentHash),
		slog.Int64("amount_sats", result.AmountSats))
	return result, nil
}

// CheckStatus reports and reconciles the payment state of an order.
func (s *Service) CheckStatus(ctx context.Context, paymentHash string) (domain.PaymentState, error) {
	ctx, span := s.startSpan(ctx, "Service.CheckStatus", attribute.String("payment.hash", paymentHash))
	defer span.End()

	state, err := s.inner.CheckStatus(ctx, paymentHash)
	if err != nil {
		return "", s.handleError(ctx, span, err, "failed to check payment status", slog.String("payment_hash", paymentHash))
	}
	span.SetAttributes(attribute.String("payment.state", string(state)))
	s.metrics.recordStatusCheck(ctx, state)
	return state, nil
}

// GetOrder loads an order by payment hash.
func (s *Service) GetOrder(ctx context.Context, paymentHash string) (*domain.Order, error) {
	ctx, span := s.startSpan(ctx, "Service.GetOrder", attribute.String("payment.hash", paymentHash))
	defer span.End()

	order, err := s.inner.GetOrder(ctx, paymentHash)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load order", slog.String("payment_hash", paymentHash))
	}
	span.SetAttributes(attribute.String("order.status", string(order.Status)))
	return order, nil
}

// NodeInfo describes the connected ledger node.
func (s *Service) NodeInfo(ctx context.Context) (*ports.NodeInfo, error) {
	ctx, span := s.startSpan(ctx, "Service.NodeInfo")
	defer span.End()

	info, err := s.inner.NodeInfo(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load node info")
	}
	span.SetAttributes(attribute.Bool("node.synced_to_chain", info.SyncedToChain))
	return info, nil
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, catalogports.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrInvalidPrice), errors.Is(err, domain.ErrInvalidProductID):
		return "invalid_input"
	case errors.Is(err, ports.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ports.ErrUpstreamRejected):
		return "upstream_rejected"
	case errors.Is(err, ports.ErrDuplicateIdentifier):
		return "duplicate_identifier"
	default:
		return "internal"
	}
}

type serviceMetrics struct {
	checkoutsCreated metric.Int64Counter
	checkoutsFailed  metric.Int64Counter
	invoicedSats     metric.Int64Counter
	statusChecks     metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	checkoutsCreated, _ := m.Int64Counter("payments.service.checkouts_created", metric.WithDescription("Number of checkouts with an issued invoice"))
	checkoutsFailed, _ := m.Int64Counter("payments.service.checkouts_failed", metric.WithDescription("Number of failed checkouts by reason"))
	invoicedSats, _ := m.Int64Counter("payments.service.invoiced_sats", metric.WithDescription("Satoshis requested through invoices"), metric.WithUnit("sat"))
	statusChecks, _ := m.Int64Counter("payments.service.status_checks", metric.WithDescription("Payment status checks by resulting state"))
	return serviceMetrics{
		checkoutsCreated: checkoutsCreated,
		checkoutsFailed:  checkoutsFailed,
		invoicedSats:     invoicedSats,
		statusChecks:     statusChecks,
	}
}

func (m serviceMetrics) recordCheckoutCreated(ctx context.Context, amountSats int64) {
	addCounter(ctx, m.checkoutsCreated, 1)
	addCounter(ctx, m.invoicedSats, amountSats)
}

func (m serviceMetrics) recordCheckoutFailed(ctx context.Context, reason string) {
	addCounter(ctx, m.checkoutsFailed, 1, attribute.String("reason", reason))
}

func (m serviceMetrics) recordStatusCheck(ctx context.Context, state domain.PaymentState) {
	addCounter(ctx, m.statusChecks, 1, attribute.String("payment.state", string(state)))
}

func addCounter(ctx context.Context, counter metric.Int64Counter, value int64, attrs ...attribute.KeyValue) {
	if counter == nil {
		return
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

var _ ports.Service = (*Service)(nil)
