package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID     string          `json:"_id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Images []string        `json:"images,omitempty"`
}

// CartItem is one line of the remote cart. UnitPrice is the price captured
// when the item was added; the live product price does not move the line total.
type CartItem struct {
	ID        string          `json:"_id"`
	Product   Product         `json:"product"`
	Quantity  uint            `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	Image     string          `json:"image,omitempty"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the local cache of the server-side cart. Loaded distinguishes an
// empty cart from one that has never been fetched.
type Cart struct {
	Items  []CartItem `json:"items"`
	Loaded bool       `json:"-"`
}

func (c Cart) Empty() bool {
	return len(c.Items) == 0
}

// Count is the total number of units across all lines.
func (c Cart) Count() uint {
	var n uint
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

func (c Cart) Total(shippingFee decimal.Decimal) decimal.Decimal {
	return c.Subtotal().Add(shippingFee)
}

// Clone returns a value copy safe to hand to other components.
func (c Cart) Clone() Cart {
	out := c
	out.Items = make([]CartItem, len(c.Items))
	copy(out.Items, c.Items)
	return out
}
