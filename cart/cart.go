// Package cart implements the shopping cart and wishlist as immutable values.
// Every operation returns a new value and leaves its input untouched, so a
// caller can swap the result into shared state in one assignment.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/gemfashion/storefront/catalog"
)

// Item is a product with a quantity of at least 1
type Item struct {
	catalog.Product
	Quantity int `json:"quantity"`
}

// Subtotal is price times quantity
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart holds at most one item per product id, in insertion order
type Cart []Item

// Add increments the quantity of product by qty, appending it when absent.
// qty below 1 counts as 1.
func Add(c Cart, product catalog.Product, qty int) Cart {
	if qty < 1 {
		qty = 1
	}

	out := make(Cart, len(c), len(c)+1)
	copy(out, c)
	for i := range out {
		if out[i].ID == product.ID {
			out[i].Quantity += qty
			return out
		}
	}
	return append(out, Item{Product: product, Quantity: qty})
}

// UpdateQuantity sets the quantity of id. qty <= 0 removes the item.
// Unknown ids leave the cart unchanged.
func UpdateQuantity(c Cart, id, qty int) Cart {
	if qty <= 0 {
		return Remove(c, id)
	}

	out := make(Cart, len(c))
	copy(out, c)
	for i := range out {
		if out[i].ID == id {
			out[i].Quantity = qty
			break
		}
	}
	return out
}

// Remove drops id from the cart
func Remove(c Cart, id int) Cart {
	out := make(Cart, 0, len(c))
	for _, it := range c {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

// Clear returns an empty cart
func Clear() Cart {
	return Cart{}
}

// Total is the sum of price times quantity
func Total(c Cart) decimal.Decimal {
	total := decimal.Zero
	for _, it := range c {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Count is the sum of quantities
func Count(c Cart) int {
	n := 0
	for _, it := range c {
		n += it.Quantity
	}
	return n
}

// Find returns the item for id
func Find(c Cart, id int) (Item, bool) {
	for _, it := range c {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
