package port

import (
	"context"

	"github.com/rl1809/zoo-retail/internal/core/domain"
)

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ClearIdempotency releases a key so the guarded operation may run again
	ClearIdempotency(ctx context.Context, key string) error

	// GetSnapshot returns the cached catalog snapshot, false on miss
	GetSnapshot(ctx context.Context) ([]domain.Outlet, bool, error)

	// SetSnapshot caches the catalog snapshot
	SetSnapshot(ctx context.Context, outlets []domain.Outlet) error

	// InvalidateSnapshot drops the cached snapshot so the next read hits the store
	InvalidateSnapshot(ctx context.Context) error
}
