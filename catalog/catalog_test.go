package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestShippedCatalog(t *testing.T) {
	ps := Products()
	require.Len(t, ps, 6)
	assert.Len(t, Categories(), 6)
	assert.Len(t, Offers(), 3)
	assert.Len(t, Slides(), 3)

	assert.Equal(t, AllCategories, Categories()[0].ID)
	for _, p := range ps {
		assert.NoError(t, p.Validate(), p.Name)
		for _, c := range p.Categories {
			assert.True(t, HasCategory(c), "%s tagged with unknown category %s", p.Name, c)
		}
	}

	assert.Equal(t, "Luxury Watch", ps[0].Name)
	assert.True(t, ps[0].Price.Equal(dec("199.99")))
	assert.Equal(t, "Flash Sale - 50% Off", Slides()[1].Title)
	assert.Equal(t, "On orders over $100", Offers()[1].Description)
}

func TestProductsReturnsCopies(t *testing.T) {
	ps := Products()
	ps[0].Name = "changed"
	ps[0].Categories[0] = "changed"
	*ps[0].OriginalPrice = dec("1")

	fresh := Products()
	assert.Equal(t, "Luxury Watch", fresh[0].Name)
	assert.Equal(t, "women", fresh[0].Categories[0])
	assert.True(t, fresh[0].OriginalPrice.Equal(dec("249.99")))
}

func TestLookup(t *testing.T) {
	p, ok := Lookup(3)
	require.True(t, ok)
	assert.Equal(t, "Running Shoes", p.Name)

	_, ok = Lookup(99)
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	op := dec("10")
	tests := []struct {
		name    string
		p       Product
		wantErr bool
	}{
		{"ok", Product{Price: dec("5"), OriginalPrice: &op, Rating: 3}, false},
		{"negative price", Product{Price: dec("-1")}, true},
		{"original below price", Product{Price: dec("20"), OriginalPrice: &op}, true},
		{"rating too high", Product{Price: dec("1"), Rating: 5.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStars(t *testing.T) {
	tests := []struct {
		rating float64
		want   StarBreakdown
	}{
		{5.0, StarBreakdown{5, 0, 0}},
		{4.5, StarBreakdown{4, 1, 0}},
		{4.0, StarBreakdown{4, 0, 1}},
		{3.2, StarBreakdown{3, 1, 1}},
		{0, StarBreakdown{0, 0, 5}},
	}
	for _, tt := range tests {
		got := Stars(tt.rating)
		if got != tt.want {
			t.Errorf("Stars(%v) = %+v, want %+v", tt.rating, got, tt.want)
		}
		if got.Full+got.Half+got.Empty != 5 {
			t.Errorf("Stars(%v) does not total 5", tt.rating)
		}
	}
}

func TestSlideNavigation(t *testing.T) {
	n := len(Slides())
	assert.Equal(t, 1, NextSlide(0, n))
	assert.Equal(t, 0, NextSlide(n-1, n))
	assert.Equal(t, n-1, PrevSlide(0, n))
	assert.Equal(t, 0, PrevSlide(1, n))
	assert.Equal(t, 0, NextSlide(3, 0))
}
