package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/domain"
	"github.com/MathekoTauu/micro-ecommerce-hub/internal/domains/payments/ports"
)

func TestEscrowRelease(t *testing.T) {
	f := newFixture(t, "abc123")
	f.checkout(t, 1)
	escrow := NewEscrowService(f.orders, nil)
	ctx := context.Background()

	_, err := escrow.Release(ctx, "abc123")
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, _, err = f.orders.MarkSettled(ctx, "abc123", fixedNow)
	require.NoError(t, err)

	first, err := escrow.Release(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, "abc123", first.PaymentHash)

	second, err := escrow.Release(ctx, "ABC123")
	require.NoError(t, err)
	require.Equal(t, first.ReleasedAt, second.ReleasedAt)

	_, err = escrow.Release(ctx, "ffff")
	require.ErrorIs(t, err, ports.ErrOrderNotFound)
	_, err = escrow.Release(ctx, "xyz")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestExpireStale(t *testing.T) {
	f := newFixture(t, "aa", "bb", "cc")
	for i := 0; i < 3; i++ {
		f.checkout(t, 1)
	}
	ctx := context.Background()
	_, _, err := f.orders.MarkSettled(ctx, "bb", fixedNow)
	require.NoError(t, err)

	sweep := NewExpiryService(f.orders, nil, 0)

	expired, err := sweep.ExpireStale(ctx, fixedNow.Add(30*time.Minute))
	require.NoError(t, err)
	require.Zero(t, expired)

	expired, err = sweep.ExpireStale(ctx, fixedNow.Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 2, expired)

	require.Equal(t, domain.StatusExpired, orderStatus(t, f, "aa"))
	require.Equal(t, domain.StatusSettled, orderStatus(t, f, "bb"))
	require.Equal(t, domain.StatusExpired, orderStatus(t, f, "cc"))

	expired, err = sweep.ExpireStale(ctx, fixedNow.Add(3*time.Hour))
	require.NoError(t, err)
	require.Zero(t, expired)
}
