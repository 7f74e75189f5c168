package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rl1809/zoo-retail/internal/core/domain"
)

// Mock CatalogRepository
type mockCatalog struct {
	mu        sync.Mutex
	items     map[string]domain.Item
	failOn    map[string]error
	calls     []string
	listCalls int
}

func newMockCatalog(items ...domain.Item) *mockCatalog {
	m := &mockCatalog{items: make(map[string]domain.Item), failOn: make(map[string]error)}
	for _, it := range items {
		if it.OutletID == "" {
			it.OutletID = "gift-shop"
		}
		m.items[it.ID] = it
	}
	return m
}

func (m *mockCatalog) stock(itemID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[itemID].StockCount
}

func (m *mockCatalog) setPrice(itemID string, price int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := m.items[itemID]
	it.Price = price
	m.items[itemID] = it
}

func (m *mockCatalog) ListOutlets(ctx context.Context) ([]domain.Outlet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++

	byOutlet := map[string]*domain.Outlet{}
	var order []string
	for _, it := range m.items {
		o, ok := byOutlet[it.OutletID]
		if !ok {
			o = &domain.Outlet{ID: it.OutletID, Name: it.OutletID, Category: domain.OutletCategoryRetail}
			byOutlet[it.OutletID] = o
			order = append(order, it.OutletID)
		}
		o.Items = append(o.Items, it)
	}
	out := make([]domain.Outlet, 0, len(order))
	for _, id := range order {
		out = append(out, *byOutlet[id])
	}
	return out, nil
}

func (m *mockCatalog) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (m *mockCatalog) ListLowStock(ctx context.Context) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Item
	for _, it := range m.items {
		if it.LowStock() {
			out = append(out, it)
		}
	}
	return out, nil
}

// DecrementStock mirrors the store-side conditional update.
func (m *mockCatalog) DecrementStock(ctx context.Context, itemID string, quantity int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, itemID)

	if err, ok := m.failOn[itemID]; ok {
		return 0, err
	}
	it, ok := m.items[itemID]
	if !ok {
		return 0, domain.ErrItemNotFound
	}
	if it.StockCount < quantity {
		return 0, &domain.StockShortage{ItemID: itemID, Requested: quantity, Available: it.StockCount}
	}
	it.StockCount -= quantity
	m.items[itemID] = it
	return it.StockCount, nil
}

func (m *mockCatalog) Restock(ctx context.Context, itemID string, quantity int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok {
		return 0, domain.ErrItemNotFound
	}
	it.StockCount += quantity
	m.items[itemID] = it
	return it.StockCount, nil
}

// Mock LedgerRepository
type mockLedger struct {
	mu              sync.Mutex
	transactions    []domain.Transaction
	lines           []domain.SaleLine
	failTransaction bool
	failLines       bool
	nextID          int
}

func (m *mockLedger) CreateTransaction(ctx context.Context, checkoutID string, total int64) (domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTransaction {
		return domain.Transaction{}, errors.New("connection refused")
	}
	m.nextID++
	tx := domain.Transaction{
		ID:          fmt.Sprintf("tx-%d", m.nextID),
		CheckoutID:  checkoutID,
		TotalAmount: total,
		CreatedAt:   time.Now().UTC(),
	}
	m.transactions = append(m.transactions, tx)
	return tx, nil
}

func (m *mockLedger) CreateSaleLines(ctx context.Context, lines []domain.SaleLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLines {
		return errors.New("write timeout")
	}
	m.lines = append(m.lines, lines...)
	return nil
}

func (m *mockLedger) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.transactions {
		if tx.ID == transactionID {
			return &tx, nil
		}
	}
	return nil, nil
}

func (m *mockLedger) ListSaleLines(ctx context.Context, transactionID string) ([]domain.SaleLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SaleLine
	for _, l := range m.lines {
		if l.TransactionID == transactionID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockLedger) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transactions), len(m.lines)
}

// mockAtomicLedger writes the transaction and its lines together.
type mockAtomicLedger struct {
	*mockLedger
	recordCalls int
}

func (m *mockAtomicLedger) RecordSale(ctx context.Context, checkoutID string, total int64, lines []domain.SaleLine) (domain.Transaction, error) {
	m.recordCalls++
	if m.failLines {
		return domain.Transaction{}, errors.New("deadlock detected")
	}
	tx, err := m.CreateTransaction(ctx, checkoutID, total)
	if err != nil {
		return domain.Transaction{}, err
	}
	for i := range lines {
		lines[i].TransactionID = tx.ID
	}
	return tx, m.CreateSaleLines(ctx, lines)
}

// Mock CacheRepository
type mockCache struct {
	mu             sync.Mutex
	idempotencySet map[string]bool
	snapshot       []domain.Outlet
	hasSnapshot    bool
	failSet        bool
	invalidations  int
}

func newMockCache() *mockCache {
	return &mockCache{idempotencySet: make(map[string]bool)}
}

func (m *mockCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return false, errors.New("redis: connection pool timeout")
	}
	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func (m *mockCache) ClearIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idempotencySet, key)
	return nil
}

func (m *mockCache) GetSnapshot(ctx context.Context) ([]domain.Outlet, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot, m.hasSnapshot, nil
}

func (m *mockCache) SetSnapshot(ctx context.Context, outlets []domain.Outlet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = outlets
	m.hasSnapshot = true
	return nil
}

func (m *mockCache) InvalidateSnapshot(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = nil
	m.hasSnapshot = false
	m.invalidations++
	return nil
}

func (m *mockCache) held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idempotencySet[key]
}

// Mock EventPublisher
type mockPublisher struct {
	mu     sync.Mutex
	events []domain.SaleEvent
}

func (m *mockPublisher) Publish(ctx context.Context, event domain.SaleEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) types() []domain.SaleEventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SaleEventType
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}
