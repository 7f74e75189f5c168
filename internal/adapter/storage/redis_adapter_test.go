package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/zoo-retail/internal/core/domain"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisAdapter) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisAdapter(client, time.Hour, 30*time.Second)
}

func TestSetIdempotency_FirstWins(t *testing.T) {
	mr, adapter := newTestRedis(t)
	ctx := context.Background()

	ok, err := adapter.SetIdempotency(ctx, "checkout:cart-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = adapter.SetIdempotency(ctx, "checkout:cart-1")
	require.NoError(t, err)
	assert.False(t, ok, "second set must be rejected")

	assert.True(t, mr.Exists("idempotency:checkout:cart-1"))
	assert.Equal(t, time.Hour, mr.TTL("idempotency:checkout:cart-1"))
}

func TestSetIdempotency_ExpiresAfterTTL(t *testing.T) {
	mr, adapter := newTestRedis(t)
	ctx := context.Background()

	ok, err := adapter.SetIdempotency(ctx, "checkout:cart-2")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Hour)

	ok, err = adapter.SetIdempotency(ctx, "checkout:cart-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClearIdempotency(t *testing.T) {
	_, adapter := newTestRedis(t)
	ctx := context.Background()

	_, err := adapter.SetIdempotency(ctx, "checkout:cart-3")
	require.NoError(t, err)
	require.NoError(t, adapter.ClearIdempotency(ctx, "checkout:cart-3"))

	ok, err := adapter.SetIdempotency(ctx, "checkout:cart-3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetIdempotency_Concurrent(t *testing.T) {
	_, adapter := newTestRedis(t)
	ctx := context.Background()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := adapter.SetIdempotency(ctx, "checkout:race")
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	mr, adapter := newTestRedis(t)
	ctx := context.Background()

	_, ok, err := adapter.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	outlets := []domain.Outlet{{
		ID:       "gift-shop",
		Name:     "Gift Shop",
		Category: domain.OutletCategoryRetail,
		Items: []domain.Item{
			{ID: "plush-lion", OutletID: "gift-shop", Name: "Plush Lion", Price: 1500, StockCount: 10, RestockThreshold: 2},
		},
	}}
	require.NoError(t, adapter.SetSnapshot(ctx, outlets))
	assert.Equal(t, 30*time.Second, mr.TTL("catalog:snapshot"))

	got, ok, err := adapter.GetSnapshot(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "gift-shop", got[0].ID)
	require.Len(t, got[0].Items, 1)
	assert.Equal(t, int64(1500), got[0].Items[0].Price)
	assert.Equal(t, 10, got[0].Items[0].StockCount)

	require.NoError(t, adapter.InvalidateSnapshot(ctx))
	_, ok, err = adapter.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshot_Corrupt(t *testing.T) {
	mr, adapter := newTestRedis(t)
	require.NoError(t, mr.Set("catalog:snapshot", "{not json"))

	_, _, err := adapter.GetSnapshot(context.Background())
	assert.Error(t, err)
}

func TestRedisAdapter_ServerDown(t *testing.T) {
	mr, adapter := newTestRedis(t)
	mr.Close()

	_, err := adapter.SetIdempotency(context.Background(), "checkout:down")
	assert.Error(t, err)
}
