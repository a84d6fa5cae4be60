package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemfashion/storefront/catalog"
)

func product(t *testing.T, id int) catalog.Product {
	t.Helper()
	p, ok := catalog.Lookup(id)
	require.True(t, ok)
	return p
}

func TestAdd(t *testing.T) {
	watch := product(t, 1)
	bag := product(t, 2)

	c := Add(Cart{}, watch, 2)
	c = Add(c, bag, 1)
	before := append(Cart(nil), c...)

	after := Add(c, watch, 3)

	require.Len(t, after, 2)
	assert.Equal(t, 5, after[0].Quantity, "existing entry grows by exactly qty")
	assert.Equal(t, 1, after[1].Quantity, "other entries unchanged")
	assert.Equal(t, before, c, "input is not mutated")
}

func TestAdd_DefaultsQuantity(t *testing.T) {
	for _, qty := range []int{0, -4} {
		c := Add(nil, product(t, 3), qty)
		require.Len(t, c, 1)
		assert.Equal(t, 1, c[0].Quantity)
	}
}

func TestUpdateQuantity(t *testing.T) {
	c := Add(Add(Cart{}, product(t, 1), 2), product(t, 4), 3)

	tests := []struct {
		name      string
		id, qty   int
		wantLen   int
		wantCount int
	}{
		{"set", 1, 7, 2, 10},
		{"zero removes", 1, 0, 1, 3},
		{"negative removes", 4, -1, 1, 2},
		{"unknown id is a no-op", 99, 5, 2, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UpdateQuantity(c, tt.id, tt.qty)
			assert.Len(t, got, tt.wantLen)
			assert.Equal(t, tt.wantCount, Count(got))
			assert.Equal(t, 5, Count(c), "input is not mutated")
		})
	}
}

func TestRemoveAndClear(t *testing.T) {
	c := Add(Add(Cart{}, product(t, 5), 1), product(t, 6), 1)

	c = Remove(c, 5)
	require.Len(t, c, 1)
	assert.Equal(t, 6, c[0].ID)

	assert.Len(t, Remove(c, 42), 1)
	assert.Empty(t, Clear())
}

func TestTotalAndCount(t *testing.T) {
	// 2 x 199.99 + 3 x 24.99
	c := Add(Cart{}, product(t, 1), 2)
	c = Add(c, product(t, 4), 3)

	assert.True(t, Total(c).Equal(decimal.RequireFromString("474.95")), Total(c).String())
	assert.Equal(t, 5, Count(c))
	assert.True(t, Total(nil).IsZero())
	assert.Equal(t, 0, Count(nil))

	it, ok := Find(c, 4)
	require.True(t, ok)
	assert.True(t, it.Subtotal().Equal(decimal.RequireFromString("74.97")))
}

func TestWishlistToggle(t *testing.T) {
	w := Wishlist{3, 1}

	added, ok := Toggle(w, 5)
	assert.True(t, ok)
	assert.Equal(t, Wishlist{3, 1, 5}, added)
	assert.True(t, Contains(added, 5))

	removed, ok := Toggle(added, 5)
	assert.False(t, ok)
	assert.Equal(t, w, removed, "toggle is an involution")

	removed, ok = Toggle(w, 3)
	assert.False(t, ok)
	assert.Equal(t, Wishlist{1}, removed)
	assert.Equal(t, Wishlist{3, 1}, w, "input is not mutated")
}
