package domain

import "time"

// Transaction is the financial record of one checkout. Immutable once created.
type Transaction struct {
	ID          string    `db:"transaction_id" json:"transaction_id"`
	CheckoutID  string    `db:"checkout_id" json:"checkout_id"`
	TotalAmount int64     `db:"total_amount_cents" json:"total_amount_cents"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// SaleLine records an item sold in a transaction. PriceAtSale comes from the
// cart line snapshot, never from the live item price.
type SaleLine struct {
	TransactionID string `db:"transaction_id" json:"transaction_id"`
	ItemID        string `db:"item_id" json:"item_id"`
	Quantity      int    `db:"quantity" json:"quantity"`
	PriceAtSale   int64  `db:"price_at_sale_cents" json:"price_at_sale_cents"`
}

func (l SaleLine) Amount() int64 {
	return int64(l.Quantity) * l.PriceAtSale
}

// SaleLinesFromCart builds the ledger lines of a cart for the given transaction.
func SaleLinesFromCart(transactionID string, lines []CartLine) []SaleLine {
	out := make([]SaleLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, SaleLine{
			TransactionID: transactionID,
			ItemID:        l.ItemID,
			Quantity:      l.Quantity,
			PriceAtSale:   l.UnitPrice,
		})
	}
	return out
}

type SaleEventType string

const (
	EventSaleRecorded      SaleEventType = "sale.recorded"
	EventSalePartialCommit SaleEventType = "sale.partial_commit"
	EventInventoryLowStock SaleEventType = "inventory.low_stock"
)

// SaleEvent is published for reconciliation and stock alerting.
type SaleEvent struct {
	Type          SaleEventType `json:"type"`
	TransactionID string        `json:"transaction_id,omitempty"`
	CheckoutID    string        `json:"checkout_id,omitempty"`
	Total         int64         `json:"total_cents,omitempty"`
	FailedItems   []string      `json:"failed_items,omitempty"`
	Items         []Item        `json:"items,omitempty"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

// Key is the partition key used when the event is published.
func (e SaleEvent) Key() string {
	if e.TransactionID != "" {
		return e.TransactionID
	}
	return string(e.Type)
}
