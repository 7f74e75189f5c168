package domain

import "time"

// CartLine is one item in a cart. UnitPrice is frozen when the item is first added.
type CartLine struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price_cents"`
	Quantity  int    `json:"quantity"`
}

func (l CartLine) Subtotal() int64 {
	return int64(l.Quantity) * l.UnitPrice
}

// Cart is owned by a single checkout session and is not safe for concurrent use.
// Lines keep insertion order and are unique per item id.
type Cart struct {
	ID        string
	CreatedAt time.Time

	order []string
	lines map[string]*CartLine
}

func NewCart(id string, now time.Time) *Cart {
	return &Cart{
		ID:        id,
		CreatedAt: now,
		lines:     make(map[string]*CartLine),
	}
}

// AddItem adds qty units of item. A zero-stock item or a non-positive qty is
// rejected and leaves the cart unchanged.
func (c *Cart) AddItem(item Item, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if item.StockCount == 0 {
		return ErrOutOfStock
	}

	if line, ok := c.lines[item.ID]; ok {
		line.Quantity += qty
		return nil
	}

	c.lines[item.ID] = &CartLine{
		ItemID:    item.ID,
		Name:      item.Name,
		UnitPrice: item.Price,
		Quantity:  qty,
	}
	c.order = append(c.order, item.ID)
	return nil
}

func (c *Cart) RemoveItem(itemID string) bool {
	if _, ok := c.lines[itemID]; !ok {
		return false
	}
	delete(c.lines, itemID)
	for i, id := range c.order {
		if id == itemID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// AdjustQuantity changes a line by delta. Results <= 0 remove the line.
func (c *Cart) AdjustQuantity(itemID string, delta int) error {
	line, ok := c.lines[itemID]
	if !ok {
		return ErrLineNotFound
	}
	if line.Quantity+delta <= 0 {
		c.RemoveItem(itemID)
		return nil
	}
	line.Quantity += delta
	return nil
}

func (c *Cart) Total() int64 {
	var total int64
	for _, line := range c.lines {
		total += line.Subtotal()
	}
	return total
}

func (c *Cart) Clear() {
	c.order = nil
	c.lines = make(map[string]*CartLine)
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.lines[id])
	}
	return out
}

func (c *Cart) Line(itemID string) (CartLine, bool) {
	line, ok := c.lines[itemID]
	if !ok {
		return CartLine{}, false
	}
	return *line, true
}

func (c *Cart) Len() int {
	return len(c.order)
}

func (c *Cart) IsEmpty() bool {
	return len(c.order) == 0
}
