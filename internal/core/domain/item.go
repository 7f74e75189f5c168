package domain

import "time"

type OutletCategory string

const (
	OutletCategoryFood   OutletCategory = "food"
	OutletCategoryRetail OutletCategory = "retail"
)

// Outlet is a retail point (gift shop, food kiosk) and the lifetime owner of its items.
type Outlet struct {
	ID       string         `db:"outlet_id" json:"outlet_id" yaml:"id"`
	Name     string         `db:"name" json:"name" yaml:"name"`
	Category OutletCategory `db:"category" json:"category" yaml:"category"`
	Items    []Item         `db:"-" json:"items" yaml:"items"`
}

type Item struct {
	ID               string    `db:"item_id" json:"item_id" yaml:"id"`
	OutletID         string    `db:"outlet_id" json:"outlet_id" yaml:"-"`
	Name             string    `db:"item_name" json:"name" yaml:"name"`
	Price            int64     `db:"price_cents" json:"price_cents" yaml:"price_cents"`
	StockCount       int       `db:"stock_count" json:"stock_count" yaml:"stock_count"`
	RestockThreshold int       `db:"restock_threshold" json:"restock_threshold" yaml:"restock_threshold"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at" yaml:"-"`
}

// LowStock reports whether the item sits at or below its restock threshold.
func (i Item) LowStock() bool {
	return i.StockCount <= i.RestockThreshold
}

// FindItem looks an item up across outlets.
func FindItem(outlets []Outlet, itemID string) (Item, bool) {
	for _, o := range outlets {
		for _, it := range o.Items {
			if it.ID == itemID {
				return it, true
			}
		}
	}
	return Item{}, false
}
