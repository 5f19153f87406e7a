package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

var _ ports.OrderStore = (*OrderStore)(nil)

// OrderStore persists orders in PostgreSQL. Status changes are conditional
// updates on the current status, so concurrent writers converge without
// holding row locks across calls.
type OrderStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewOrderStore wires a PostgreSQL-backed order store.
func NewOrderStore(db *gorm.DB) *OrderStore {
	return &OrderStore{db: db, now: time.Now}
}

func (s *OrderStore) CreatePending(ctx context.Context, order *domain.Order) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	order, err := normalized(order)
	if err != nil {
		return err
	}
	record := toRecord(order)
	record.UpdatedAt = s.now().UTC()
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ports.ErrDuplicateIdentifier
		}
		return err
	}
	return nil
}

func (s *OrderStore) Get(ctx context.Context, paymentHash string) (*domain.Order, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	hash, err := domain.NormalizePaymentHash(paymentHash)
	if err != nil {
		return nil, ports.ErrOrderNotFound
	}
	return s.load(ctx, hash)
}

func (s *OrderStore) MarkSettled(ctx context.Context, paymentHash string, settledAt time.Time) (*domain.Order, bool, error) {
	return s.transition(ctx, paymentHash,
		func(q *gorm.DB) *gorm.DB {
			return q.Where("status = ?", string(domain.StatusPending))
		},
		map[string]any{"status": string(domain.StatusSettled), "settled_at": settledAt.UTC()},
		func(o *domain.Order) (bool, error) { return o.Settle(settledAt) },
	)
}

func (s *OrderStore) MarkExpired(ctx context.Context, paymentHash string) (*domain.Order, bool, error) {
	return s.transition(ctx, paymentHash,
		func(q *gorm.DB) *gorm.DB {
			return q.Where("status = ?", string(domain.StatusPending))
		},
		map[string]any{"status": string(domain.StatusExpired)},
		func(o *domain.Order) (bool, error) { return o.Expire() },
	)
}

func (s *OrderStore) MarkEscrowReleased(ctx context.Context, paymentHash string, releasedAt time.Time) (*domain.Order, bool, error) {
	return s.transition(ctx, paymentHash,
		func(q *gorm.DB) *gorm.DB {
			return q.Where("status = ? AND escrow_released_at IS NULL", string(domain.StatusSettled))
		},
		map[string]any{"escrow_released_at": releasedAt.UTC()},
		func(o *domain.Order) (bool, error) { return o.ReleaseEscrow(releasedAt) },
	)
}

func (s *OrderStore) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	query := s.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", string(domain.StatusPending), now.UTC()).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []orderRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(records))
	for i := range records {
		orders = append(orders, toDomain(&records[i]))
	}
	return orders, nil
}

// transition applies a conditional update. When no row matched, the stored
// order is replayed through the domain transition to report the right outcome:
// an idempotent no-op or domain.ErrInvalidTransition.
func (s *OrderStore) transition(
	ctx context.Context,
	paymentHash string,
	guard func(*gorm.DB) *gorm.DB,
	updates map[string]any,
	replay func(*domain.Order) (bool, error),
) (*domain.Order, bool, error) {
	if err := s.ensureDB(); err != nil {
		return nil, false, err
	}
	hash, err := domain.NormalizePaymentHash(paymentHash)
	if err != nil {
		return nil, false, ports.ErrOrderNotFound
	}
	updates["updated_at"] = s.now().UTC()
	res := guard(s.db.WithContext(ctx).Model(&orderRecord{}).Where("payment_hash = ?", hash)).Updates(updates)
	if res.Error != nil {
		return nil, false, res.Error
	}
	order, err := s.load(ctx, hash)
	if err != nil {
		return nil, false, err
	}
	if res.RowsAffected > 0 {
		return order, true, nil
	}
	if _, err := replay(order.Clone()); err != nil {
		return order, false, err
	}
	return order, false, nil
}

func (s *OrderStore) load(ctx context.Context, hash string) (*domain.Order, error) {
	var record orderRecord
	if err := s.db.WithContext(ctx).First(&record, "payment_hash = ?", hash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrOrderNotFound
		}
		return nil, err
	}
	return toDomain(&record), nil
}

func (s *OrderStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres order store not configured")
	}
	return nil
}

type orderRecord struct {
	PaymentHash      string     `gorm:"primaryKey;column:payment_hash;size:128"`
	ProductID        string     `gorm:"column:product_id;size:255;index"`
	Quantity         int64      `gorm:"column:quantity"`
	AmountSats       int64      `gorm:"column:amount_sats"`
	Memo             string     `gorm:"column:memo"`
	PaymentRequest   string     `gorm:"column:payment_request;type:text"`
	Status           string     `gorm:"column:status;type:varchar(16);index:idx_payment_orders_status_expires"`
	CreatedAt        time.Time  `gorm:"column:created_at;index"`
	ExpiresAt        *time.Time `gorm:"column:expires_at;index:idx_payment_orders_status_expires"`
	SettledAt        *time.Time `gorm:"column:settled_at"`
	EscrowReleasedAt *time.Time `gorm:"column:escrow_released_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "payment_orders" }

// normalized returns a validated copy of order keyed by the lowercase hash that
// Get and the transitions query by.
func normalized(order *domain.Order) (*domain.Order, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	clone := order.Clone()
	hash, err := domain.NormalizePaymentHash(clone.PaymentHash)
	if err != nil {
		return nil, err
	}
	clone.PaymentHash = hash
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	return clone, nil
}

func toRecord(order *domain.Order) orderRecord {
	record := orderRecord{
		PaymentHash:      order.PaymentHash,
		ProductID:        order.ProductID,
		Quantity:         order.Quantity,
		AmountSats:       order.AmountSats,
		Memo:             order.Memo,
		PaymentRequest:   order.PaymentRequest,
		Status:           string(order.Status),
		CreatedAt:        order.CreatedAt.UTC(),
		SettledAt:        utcPtr(order.SettledAt),
		EscrowReleasedAt: utcPtr(order.EscrowReleasedAt),
	}
	if !order.ExpiresAt.IsZero() {
		expires := order.ExpiresAt.UTC()
		record.ExpiresAt = &expires
	}
	return record
}

func toDomain(record *orderRecord) *domain.Order {
	order := &domain.Order{
		PaymentHash:      record.PaymentHash,
		ProductID:        record.ProductID,
		Quantity:         record.Quantity,
		AmountSats:       record.AmountSats,
		Memo:             record.Memo,
		PaymentRequest:   record.PaymentRequest,
		Status:           domain.Status(record.Status),
		CreatedAt:        record.CreatedAt.UTC(),
		SettledAt:        utcPtr(record.SettledAt),
		EscrowReleasedAt: utcPtr(record.EscrowReleasedAt),
	}
	if record.ExpiresAt != nil {
		order.ExpiresAt = record.ExpiresAt.UTC()
	}
	return order
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
