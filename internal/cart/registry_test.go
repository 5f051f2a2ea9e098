package cart_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pizza/internal/cart"
)

func TestRegistryReusesStorePerSession(t *testing.T) {
	ctx := context.Background()
	reg := cart.NewRegistry(cart.RegistryConfig{Storage: cart.NewMemoryStorage(), Logger: zerolog.Nop()})

	var first, second *cart.Store
	require.NoError(t, reg.With(ctx, "s1", func(s *cart.Store) error { first = s; return nil }))
	require.NoError(t, reg.With(ctx, "s1", func(s *cart.Store) error { second = s; return nil }))
	require.Same(t, first, second)

	require.ErrorIs(t, reg.With(ctx, " ", func(*cart.Store) error { return nil }), cart.ErrInvalidSession)
}

func TestRegistryEvictRestoresFromStorage(t *testing.T) {
	ctx := context.Background()
	storage := cart.NewMemoryStorage()
	reg := cart.NewRegistry(cart.RegistryConfig{Storage: storage, Logger: zerolog.Nop()})

	require.NoError(t, reg.With(ctx, "s1", func(s *cart.Store) error { return s.Add(ctx, drinkLine(t, 2)) }))
	reg.Evict("s1")
	require.Equal(t, 0, reg.Len())

	require.NoError(t, reg.With(ctx, "s1", func(s *cart.Store) error {
		require.Equal(t, 2, s.TotalItemCount())
		return nil
	}))

	blob, err := storage.Load(ctx, "shopping-cart:s1")
	require.NoError(t, err)
	require.Contains(t, string(blob), `"type":"drink"`)
}

func TestRegistrySweepEvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	reg := cart.NewRegistry(cart.RegistryConfig{Logger: zerolog.Nop(), Now: func() time.Time { return now }})

	require.NoError(t, reg.With(ctx, "old", func(*cart.Store) error { return nil }))
	now = now.Add(time.Hour)
	require.NoError(t, reg.With(ctx, "fresh", func(*cart.Store) error { return nil }))

	require.Equal(t, 1, reg.Sweep(30*time.Minute))
	require.Equal(t, 1, reg.Len())
}

func TestRedisStorage(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	storage := cart.NewRedisStorage(client, time.Hour)

	_, err := storage.Load(ctx, "shopping-cart:s1")
	require.ErrorIs(t, err, cart.ErrNoState)

	reg := cart.NewRegistry(cart.RegistryConfig{Storage: storage, Logger: zerolog.Nop()})
	require.NoError(t, reg.With(ctx, "s1", func(s *cart.Store) error { return s.Add(ctx, customLine(t, 1)) }))

	require.True(t, mr.Exists("shopping-cart:s1"))
	require.Equal(t, time.Hour, mr.TTL("shopping-cart:s1"))

	restored := cart.Open(ctx, cart.Config{Storage: storage, Key: "shopping-cart:s1", Logger: zerolog.Nop()})
	defer restored.Close()
	require.Equal(t, 1, restored.ItemCountByKind(cart.KindCustomPizza))
}
