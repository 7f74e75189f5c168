package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/zoo-retail/internal/core/domain"
)

const itemColumns = `item_id, outlet_id, item_name, price_cents, stock_count, restock_threshold, updated_at`

func (a *SQLAdapter) ListOutlets(ctx context.Context) ([]domain.Outlet, error) {
	var outlets []domain.Outlet
	if err := a.db.SelectContext(ctx, &outlets, `
		SELECT outlet_id, name, category FROM retail_outlets ORDER BY outlet_id`); err != nil {
		return nil, fmt.Errorf("query outlets: %w", err)
	}

	var items []domain.Item
	if err := a.db.SelectContext(ctx, &items, `
		SELECT `+itemColumns+` FROM inventory_items ORDER BY outlet_id, item_id`); err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}

	index := make(map[string]int, len(outlets))
	for i := range outlets {
		outlets[i].Items = []domain.Item{}
		index[outlets[i].ID] = i
	}
	for _, it := range items {
		if i, ok := index[it.OutletID]; ok {
			outlets[i].Items = append(outlets[i].Items, it)
		}
	}
	return outlets, nil
}

func (a *SQLAdapter) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	var it domain.Item
	err := a.db.GetContext(ctx, &it, a.db.Rebind(`
		SELECT `+itemColumns+` FROM inventory_items WHERE item_id = ?`), itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &it, nil
}

func (a *SQLAdapter) ListLowStock(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	if err := a.db.SelectContext(ctx, &items, `
		SELECT `+itemColumns+` FROM inventory_items
		WHERE stock_count <= restock_threshold ORDER BY item_id`); err != nil {
		return nil, fmt.Errorf("query low stock: %w", err)
	}
	return items, nil
}

// DecrementStock is a single conditional UPDATE; the store decides whether
// enough stock exists. The follow-up read only reports the outcome.
func (a *SQLAdapter) DecrementStock(ctx context.Context, itemID string, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("decrement %s: %w", itemID, domain.ErrInvalidQuantity)
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE inventory_items
		SET stock_count = stock_count - ?, updated_at = ?
		WHERE item_id = ? AND stock_count >= ?`),
		quantity, a.now(), itemID, quantity,
	)
	if err != nil {
		return 0, fmt.Errorf("update inventory: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	var count int
	err = tx.GetContext(ctx, &count, tx.Rebind(`SELECT stock_count FROM inventory_items WHERE item_id = ?`), itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}
	if err != nil {
		return 0, fmt.Errorf("query stock: %w", err)
	}

	if rows == 0 {
		return 0, &domain.StockShortage{ItemID: itemID, Requested: quantity, Available: count}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return count, nil
}

func (a *SQLAdapter) Restock(ctx context.Context, itemID string, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("restock %s: %w", itemID, domain.ErrInvalidQuantity)
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE inventory_items
		SET stock_count = stock_count + ?, updated_at = ?
		WHERE item_id = ?`),
		quantity, a.now(), itemID,
	)
	if err != nil {
		return 0, fmt.Errorf("update inventory: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return 0, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}

	var count int
	if err := tx.GetContext(ctx, &count, tx.Rebind(`SELECT stock_count FROM inventory_items WHERE item_id = ?`), itemID); err != nil {
		return 0, fmt.Errorf("query stock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return count, nil
}
