package port

import (
	"context"

	"github.com/rl1809/zoo-retail/internal/core/domain"
)

type CatalogRepository interface {
	// ListOutlets returns every outlet with its items nested
	ListOutlets(ctx context.Context) ([]domain.Outlet, error)

	// GetItem retrieves an item by ID, nil if it does not exist
	GetItem(ctx context.Context, itemID string) (*domain.Item, error)

	// ListLowStock returns items at or below their restock threshold
	ListLowStock(ctx context.Context) ([]domain.Item, error)

	// DecrementStock atomically subtracts quantity on the store side, never below zero.
	// Returns the new count, or a *domain.StockShortage when stock is insufficient.
	DecrementStock(ctx context.Context, itemID string, quantity int) (int, error)

	// Restock adds quantity to the item's stock and returns the new count
	Restock(ctx context.Context, itemID string, quantity int) (int, error)
}
