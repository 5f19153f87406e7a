package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

var _ ports.OrderStore = (*OrderStore)(nil)

// OrderStore is an in-memory order persistence adapter. Every operation holds
// the lock only for map access, so no key ever waits on I/O for another.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: map[string]*domain.Order{}}
}

func (s *OrderStore) CreatePending(_ context.Context, order *domain.Order) error {
	if order == nil {
		return errors.New("order is nil")
	}
	clone := order.Clone()
	hash, err := domain.NormalizePaymentHash(clone.PaymentHash)
	if err != nil {
		return err
	}
	clone.PaymentHash = hash
	if err := clone.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[hash]; exists {
		return ports.ErrDuplicateIdentifier
	}
	s.orders[hash] = clone
	return nil
}

func (s *OrderStore) Get(_ context.Context, paymentHash string) (*domain.Order, error) {
	hash, err := domain.NormalizePaymentHash(paymentHash)
	if err != nil {
		return nil, ports.ErrOrderNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[hash]
	if !ok {
		return nil, ports.ErrOrderNotFound
	}
	return order.Clone(), nil
}

func (s *OrderStore) MarkSettled(_ context.Context, paymentHash string, settledAt time.Time) (*domain.Order, bool, error) {
	return s.transition(paymentHash, func(o *domain.Order) (bool, error) {
		return o.Settle(settledAt)
	})
}

func (s *OrderStore) MarkExpired(_ context.Context, paymentHash string) (*domain.Order, bool, error) {
	return s.transition(paymentHash, func(o *domain.Order) (bool, error) {
		return o.Expire()
	})
}

func (s *OrderStore) MarkEscrowReleased(_ context.Context, paymentHash string, releasedAt time.Time) (*domain.Order, bool, error) {
	return s.transition(paymentHash, func(o *domain.Order) (bool, error) {
		return o.ReleaseEscrow(releasedAt)
	})
}

func (s *OrderStore) ListExpiredPending(_ context.Context, now time.Time, limit int) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*domain.Order, 0)
	for _, order := range s.orders {
		if order.PastExpiry(now) {
			list = append(list, order.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ExpiresAt.Before(list[j].ExpiresAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// List returns every stored order; used by tests and diagnostics.
func (s *OrderStore) List(_ context.Context) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		list = append(list, order.Clone())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (s *OrderStore) transition(paymentHash string, apply func(*domain.Order) (bool, error)) (*domain.Order, bool, error) {
	hash, err := domain.NormalizePaymentHash(paymentHash)
	if err != nil {
		return nil, false, ports.ErrOrderNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.orders[hash]
	if !ok {
		return nil, false, ports.ErrOrderNotFound
	}
	next := stored.Clone()
	changed, err := apply(next)
	if err != nil {
		return stored.Clone(), false, err
	}
	if changed {
		s.orders[hash] = next
	}
	return next.Clone(), changed, nil
}
