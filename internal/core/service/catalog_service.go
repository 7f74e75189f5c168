package service

import (
	"context"
	"fmt"
	"log"

	"github.com/rl1809/zoo-retail/internal/core/domain"
	"github.com/rl1809/zoo-retail/internal/port"
)

// CatalogService serves the price and stock snapshot carts are built from.
// The cache is optional; the catalog store stays authoritative.
type CatalogService struct {
	catalog port.CatalogRepository
	cache   port.CacheRepository
}

func NewCatalogService(catalog port.CatalogRepository, cache port.CacheRepository) *CatalogService {
	return &CatalogService{catalog: catalog, cache: cache}
}

func (s *CatalogService) Snapshot(ctx context.Context) ([]domain.Outlet, error) {
	if s.cache != nil {
		outlets, ok, err := s.cache.GetSnapshot(ctx)
		if err != nil {
			log.Printf("catalog: snapshot cache read failed: %v", err)
		} else if ok {
			return outlets, nil
		}
	}
	return s.load(ctx)
}

// Refresh drops the cached snapshot and re-reads the store.
func (s *CatalogService) Refresh(ctx context.Context) ([]domain.Outlet, error) {
	s.invalidate(ctx)
	return s.load(ctx)
}

func (s *CatalogService) load(ctx context.Context) ([]domain.Outlet, error) {
	outlets, err := s.catalog.ListOutlets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list outlets: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetSnapshot(ctx, outlets); err != nil {
			log.Printf("catalog: snapshot cache write failed: %v", err)
		}
	}
	return outlets, nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSnapshot(ctx); err != nil {
		log.Printf("catalog: snapshot invalidation failed: %v", err)
	}
}

// Item resolves an item from the snapshot, falling back to the store for
// items created after the snapshot was taken.
func (s *CatalogService) Item(ctx context.Context, itemID string) (domain.Item, error) {
	outlets, err := s.Snapshot(ctx)
	if err != nil {
		return domain.Item{}, err
	}
	if it, ok := domain.FindItem(outlets, itemID); ok {
		return it, nil
	}

	it, err := s.catalog.GetItem(ctx, itemID)
	if err != nil {
		return domain.Item{}, fmt.Errorf("get item: %w", err)
	}
	if it == nil {
		return domain.Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return *it, nil
}

// Restock adds stock to an item. Managers and admins only.
func (s *CatalogService) Restock(ctx context.Context, who domain.Identity, itemID string, quantity int) (int, error) {
	if !who.Role.CanManageStock() {
		return 0, ErrForbidden
	}
	if quantity <= 0 {
		return 0, fmt.Errorf("%w: restock quantity must be positive", ErrValidation)
	}

	count, err := s.catalog.Restock(ctx, itemID, quantity)
	if err != nil {
		return 0, fmt.Errorf("restock %s: %w", itemID, err)
	}
	s.invalidate(ctx)
	log.Printf("catalog: %s restocked %s by %d, now %d", who.UserID, itemID, quantity, count)
	return count, nil
}

func (s *CatalogService) LowStock(ctx context.Context) ([]domain.Item, error) {
	items, err := s.catalog.ListLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	return items, nil
}
