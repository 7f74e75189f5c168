package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/zoo-retail/internal/core/domain"
)

const (
	idempotencyKeyPrefix = "idempotency:"
	snapshotKey          = "catalog:snapshot"

	defaultIdempotencyTTL = 24 * time.Hour
	defaultSnapshotTTL    = 30 * time.Second
)

// RedisAdapter holds the checkout guard keys and the cached catalog snapshot.
type RedisAdapter struct {
	client         *redis.Client
	idempotencyTTL time.Duration
	snapshotTTL    time.Duration
}

func NewRedisAdapter(client *redis.Client, idempotencyTTL, snapshotTTL time.Duration) *RedisAdapter {
	if idempotencyTTL <= 0 {
		idempotencyTTL = defaultIdempotencyTTL
	}
	if snapshotTTL <= 0 {
		snapshotTTL = defaultSnapshotTTL
	}
	return &RedisAdapter{
		client:         client,
		idempotencyTTL: idempotencyTTL,
		snapshotTTL:    snapshotTTL,
	}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, r.idempotencyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ClearIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
}

func (r *RedisAdapter) GetSnapshot(ctx context.Context) ([]domain.Outlet, bool, error) {
	data, err := r.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var outlets []domain.Outlet
	if err := json.Unmarshal(data, &outlets); err != nil {
		return nil, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return outlets, true, nil
}

func (r *RedisAdapter) SetSnapshot(ctx context.Context, outlets []domain.Outlet) error {
	data, err := json.Marshal(outlets)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return r.client.Set(ctx, snapshotKey, data, r.snapshotTTL).Err()
}

func (r *RedisAdapter) InvalidateSnapshot(ctx context.Context) error {
	return r.client.Del(ctx, snapshotKey).Err()
}
