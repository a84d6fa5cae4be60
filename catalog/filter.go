package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PriceRange is an inclusive price window with Min <= Max
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// NewPriceRange builds a range, swapping the ends if given in the wrong order
func NewPriceRange(min, max decimal.Decimal) PriceRange {
	if min.GreaterThan(max) {
		min, max = max, min
	}
	return PriceRange{Min: min, Max: max}
}

// Contains reports whether price lies within the range, both ends inclusive
func (r PriceRange) Contains(price decimal.Decimal) bool {
	return !price.LessThan(r.Min) && !price.GreaterThan(r.Max)
}

// WithMin moves the lower end, never past the upper end
func (r PriceRange) WithMin(v decimal.Decimal) PriceRange {
	r.Min = decimal.Min(v, r.Max)
	return r
}

// WithMax moves the upper end, never below the lower end
func (r PriceRange) WithMax(v decimal.Decimal) PriceRange {
	r.Max = decimal.Max(v, r.Min)
	return r
}

// Clamp pulls both ends inside bounds
func (r PriceRange) Clamp(bounds PriceRange) PriceRange {
	clamp := func(v decimal.Decimal) decimal.Decimal {
		return decimal.Max(bounds.Min, decimal.Min(v, bounds.Max))
	}
	return NewPriceRange(clamp(r.Min), clamp(r.Max))
}

// PriceBounds returns the whole-unit price window spanning every product in
// category: floor of the cheapest to ceiling of the most expensive.
// An empty subset yields 0..0.
func PriceBounds(products []Product, category string) PriceRange {
	var (
		lo, hi decimal.Decimal
		found  bool
	)
	for _, p := range products {
		if !p.InCategory(category) {
			continue
		}
		if !found {
			lo, hi, found = p.Price, p.Price, true
			continue
		}
		lo = decimal.Min(lo, p.Price)
		hi = decimal.Max(hi, p.Price)
	}
	if !found {
		return PriceRange{Min: decimal.Zero, Max: decimal.Zero}
	}
	return PriceRange{Min: lo.Floor(), Max: hi.Ceil()}
}

// MatchesSearch reports whether text is a case-insensitive substring of the
// product name or description. Empty text matches everything.
func (p Product) MatchesSearch(text string) bool {
	if text == "" {
		return true
	}
	needle := strings.ToLower(text)
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle)
}

// VisibleProducts returns, in catalog order, the products in category that
// match searchText and whose price lies within priceRange.
func VisibleProducts(products []Product, category, searchText string, priceRange PriceRange) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.InCategory(category) && p.MatchesSearch(searchText) && priceRange.Contains(p.Price) {
			out = append(out, p)
		}
	}
	return out
}

// FilterState is the shopper's current category, search text and price window
type FilterState struct {
	Category   string     `json:"category"`
	SearchText string     `json:"search_text"`
	PriceRange PriceRange `json:"price_range"`
}

// NewFilterState starts on the wildcard category with the full price range
func NewFilterState(products []Product) FilterState {
	return FilterState{
		Category:   AllCategories,
		PriceRange: PriceBounds(products, AllCategories),
	}
}

// WithCategory switches category and resets the price range to its bounds
func (f FilterState) WithCategory(products []Product, category string) FilterState {
	f.Category = category
	f.PriceRange = PriceBounds(products, category)
	return f
}

// ResetPrice restores the price range to the current category's bounds
func (f FilterState) ResetPrice(products []Product) FilterState {
	f.PriceRange = PriceBounds(products, f.Category)
	return f
}

// Apply returns the products visible under this filter state
func (f FilterState) Apply(products []Product) []Product {
	return VisibleProducts(products, f.Category, f.SearchText, f.PriceRange)
}
