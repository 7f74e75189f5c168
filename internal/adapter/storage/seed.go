package storage

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rl1809/zoo-retail/internal/core/domain"
)

type seedFile struct {
	Outlets []domain.Outlet `yaml:"outlets"`
}

// LoadSeedFile reads the outlet and item catalog from a YAML file.
func LoadSeedFile(path string) ([]domain.Outlet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	for i := range seed.Outlets {
		o := &seed.Outlets[i]
		if o.ID == "" {
			return nil, fmt.Errorf("seed file: outlet %d has no id", i)
		}
		for j := range o.Items {
			it := &o.Items[j]
			if it.ID == "" {
				return nil, fmt.Errorf("seed file: outlet %s item %d has no id", o.ID, j)
			}
			if it.StockCount < 0 || it.Price < 0 {
				return nil, fmt.Errorf("seed file: item %s has negative stock or price", it.ID)
			}
			it.OutletID = o.ID
		}
	}
	return seed.Outlets, nil
}

// Seed inserts outlets and items that are not in the store yet. Existing rows
// are left alone so a restart never resets live stock counts.
func (a *SQLAdapter) Seed(ctx context.Context, outlets []domain.Outlet) (int, error) {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	now := a.now()
	for _, o := range outlets {
		var exists int
		if err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM retail_outlets WHERE outlet_id = ?`), o.ID); err != nil {
			return 0, fmt.Errorf("query outlet %s: %w", o.ID, err)
		}
		if exists == 0 {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`
				INSERT INTO retail_outlets (outlet_id, name, category) VALUES (?, ?, ?)`),
				o.ID, o.Name, o.Category,
			); err != nil {
				return 0, fmt.Errorf("insert outlet %s: %w", o.ID, err)
			}
		}

		for _, it := range o.Items {
			if err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM inventory_items WHERE item_id = ?`), it.ID); err != nil {
				return 0, fmt.Errorf("query item %s: %w", it.ID, err)
			}
			if exists > 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(`
				INSERT INTO inventory_items (item_id, outlet_id, item_name, price_cents, stock_count, restock_threshold, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`),
				it.ID, o.ID, it.Name, it.Price, it.StockCount, it.RestockThreshold, now,
			); err != nil {
				return 0, fmt.Errorf("insert item %s: %w", it.ID, err)
			}
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}
