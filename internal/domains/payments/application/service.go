package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	catalogports "github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/catalog/ports"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

// DefaultPaymentTimeout is the invoice expiry requested from the node.
const DefaultPaymentTimeout = time.Hour

var _ ports.Service = (*Service)(nil)

// Service orchestrates checkout and payment-status use cases.
type Service struct {
	catalog        catalogports.Catalog
	ledger         ports.LedgerClient
	orders         ports.OrderStore
	notifier       settlementNotifier
	logger         *slog.Logger
	now            func() time.Time
	paymentTimeout time.Duration
	polls          singleflight.Group
}

// Option configures the Service.
type Option func(*Service)

// WithSettlementListener sets the callback fired when a status poll settles an order.
func WithSettlementListener(listener ports.SettlementListener) Option {
	return func(s *Service) {
		if listener != nil {
			s.notifier.listener = listener
		}
	}
}

// WithLogger injects a slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPaymentTimeout sets the invoice expiry requested from the node.
func WithPaymentTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.paymentTimeout = timeout
		}
	}
}

// NewService wires the payments service with its collaborators.
func NewService(catalog catalogports.Catalog, ledger ports.LedgerClient, orders ports.OrderStore, opts ...Option) *Service {
	s := &Service{
		catalog:        catalog,
		ledger:         ledger,
		orders:         orders,
		notifier:       settlementNotifier{listener: ports.NoopSettlementListener},
		logger:         discardLogger(),
		now:            time.Now,
		paymentTimeout: DefaultPaymentTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.notifier.logger = s.logger
	return s
}

// CreateCheckout prices the product, asks the ledger for an invoice and records
// a pending order for it. Nothing is persisted unless the invoice exists.
func (s *Service) CreateCheckout(ctx context.Context, input ports.CreateCheckoutInput) (*domain.PaymentRequest, error) {
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" {
		return nil, mapError(domain.ErrInvalidProductID)
	}
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, mapError(err)
	}
	if input.Quantity <= 0 {
		return nil, mapError(domain.ErrInvalidQuantity)
	}
	if product.PriceSats <= 0 {
		return nil, mapError(domain.ErrInvalidPrice)
	}
	if product.PriceSats > math.MaxInt64/input.Quantity {
		return nil, mapError(fmt.Errorf("%w: amount overflows", domain.ErrInvalidQuantity))
	}
	amount := product.PriceSats * input.Quantity
	memo := product.CheckoutMemo(input.Quantity)

	request, err := s.ledger.CreateInvoice(ctx, ports.InvoiceRequest{
		AmountSats: amount,
		Memo:       memo,
		Expiry:     s.paymentTimeout,
	})
	if err != nil {
		return nil, err
	}

	order, err := domain.NewPendingOrder(product.ID, input.Quantity, *request, memo, s.now())
	if err != nil {
		return nil, fmt.Errorf("ledger returned an unusable invoice: %w", err)
	}
	if err := s.orders.CreatePending(ctx, order); err != nil {
		return nil, err
	}
	return request, nil
}

// CheckStatus reports the payment state of an order. Pending orders are
// reconciled against the ledger so a missed stream event still settles them.
func (s *Service) CheckStatus(ctx context.Context, paymentHash string) (domain.PaymentState, error) {
	hash, err := domain.NormalizePaymentHash(paymentHash)
	if err != nil {
		return "", mapError(err)
	}
	order, err := s.orders.Get(ctx, hash)
	if err != nil {
		if errors.Is(err, ports.ErrOrderNotFound) {
			return domain.PaymentNotFound, nil
		}
		return "", err
	}
	if order.Status != domain.StatusPending {
		return domain.StateOf(order.Status), nil
	}

	paid, err := s.pollSettlement(ctx, hash)
	if err != nil {
		return "", mapError(err)
	}
	if !paid {
		return domain.PaymentPending, nil
	}

	updated, changed, err := s.orders.MarkSettled(ctx, hash, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) && updated != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "ledger reports payment for a closed order",
				slog.String("payment_hash", hash),
				slog.String("status", string(updated.Status)),
			)
			return domain.StateOf(updated.Status), nil
		}
		return "", err
	}
	if changed {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "order settled by status poll", slog.String("payment_hash", hash))
		s.notifier.notify(ctx, updated)
	}
	return domain.StateOf(updated.Status), nil
}

// GetOrder loads an order by payment hash.
func (s *Service) GetOrder(ctx context.Context, paymentHash string) (*domain.Order, error) {
	hash, err := domain.NormalizePaymentHash(paymentHash)
	if err != nil {
		return nil, mapError(err)
	}
	return s.orders.Get(ctx, hash)
}

// NodeInfo describes the connected ledger node.
func (s *Service) NodeInfo(ctx context.Context) (*ports.NodeInfo, error) {
	return s.ledger.GetInfo(ctx)
}

// pollSettlement collapses concurrent polls for the same hash into one ledger call.
func (s *Service) pollSettlement(ctx context.Context, hash string) (bool, error) {
	v, err, _ := s.polls.Do(hash, func() (any, error) {
		return s.ledger.CheckSettlement(ctx, hash)
	})
	if err != nil {
		return false, err
	}
	paid, _ := v.(bool)
	return paid, nil
}
