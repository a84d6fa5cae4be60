// Package catalog holds the static storefront catalog and the pure functions
// that derive views from it: filtering, price bounds, rating stars and
// carousel navigation.
package catalog

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// AllCategories is the wildcard category id that matches every product
const AllCategories = "all"

// Product is a catalog entry
type Product struct {
	ID            int              `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	Rating        float64          `json:"rating"`
	ImageURL      string           `json:"image_url"`
	Categories    []string         `json:"categories"`
}

// InCategory reports whether the product is tagged with category or category is the wildcard
func (p Product) InCategory(category string) bool {
	if category == AllCategories {
		return true
	}
	for _, c := range p.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Validate checks the price and rating invariants
func (p Product) Validate() error {
	if p.Price.IsNegative() {
		return fmt.Errorf("product %d: negative price %s", p.ID, p.Price)
	}
	if p.OriginalPrice != nil && p.OriginalPrice.LessThan(p.Price) {
		return fmt.Errorf("product %d: original price %s below price %s", p.ID, p.OriginalPrice, p.Price)
	}
	if p.Rating < 0 || p.Rating > 5 {
		return fmt.Errorf("product %d: rating %.1f outside [0,5]", p.ID, p.Rating)
	}
	return nil
}

// Category is a sidebar filter entry. Icon names a client-side icon.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Offer is a promotional banner
type Offer struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ButtonText  string `json:"button_text"`
	Color       string `json:"color"`
}

// CarouselSlide is one hero carousel slide
type CarouselSlide struct {
	ImageURL    string `json:"image_url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ButtonText  string `json:"button_text"`
	ButtonColor string `json:"button_color"`
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pricePtr(s string) *decimal.Decimal {
	d := price(s)
	return &d
}

var categories = []Category{
	{ID: AllCategories, Name: "All Categories", Icon: "all-categories"},
	{ID: "women", Name: "Women", Icon: "women"},
	{ID: "men", Name: "Men", Icon: "men"},
	{ID: "shoes", Name: "Shoes", Icon: "shoes"},
	{ID: "t-shirts", Name: "T-shirts", Icon: "t-shirt"},
	{ID: "jewelry", Name: "Jewelry", Icon: "jewelry"},
}

var products = []Product{
	{
		ID:            1,
		Name:          "Luxury Watch",
		Description:   "Timeless elegance meets modern design. Perfect for any occasion.",
		Price:         price("199.99"),
		OriginalPrice: pricePtr("249.99"),
		Rating:        4.5,
		ImageURL:      "https://picsum.photos/seed/watch/800/800",
		Categories:    []string{"women", "jewelry"},
	},
	{
		ID:            2,
		Name:          "Designer Bag",
		Description:   "Premium leather craftsmanship with spacious compartments.",
		Price:         price("349.99"),
		OriginalPrice: pricePtr("399.99"),
		Rating:        5.0,
		ImageURL:      "https://picsum.photos/seed/bag/800/800",
		Categories:    []string{"women"},
	},
	{
		ID:            3,
		Name:          "Running Shoes",
		Description:   "Advanced cushioning technology for ultimate comfort and performance.",
		Price:         price("129.99"),
		OriginalPrice: pricePtr("159.99"),
		Rating:        4.0,
		ImageURL:      "https://picsum.photos/seed/shoes/800/800",
		Categories:    []string{"men", "shoes"},
	},
	{
		ID:            4,
		Name:          "Cotton T-Shirt",
		Description:   "Soft, breathable fabric perfect for everyday wear.",
		Price:         price("24.99"),
		OriginalPrice: pricePtr("29.99"),
		Rating:        4.5,
		ImageURL:      "https://picsum.photos/seed/tshirt/800/800",
		Categories:    []string{"men", "t-shirts"},
	},
	{
		ID:            5,
		Name:          "Gold Necklace",
		Description:   "Elegant 18k gold pendant necklace with delicate chain.",
		Price:         price("299.99"),
		OriginalPrice: pricePtr("349.99"),
		Rating:        5.0,
		ImageURL:      "https://picsum.photos/seed/necklace/800/800",
		Categories:    []string{"women", "jewelry"},
	},
	{
		ID:            6,
		Name:          "Winter Coat",
		Description:   "Warm and stylish wool blend coat for cold weather.",
		Price:         price("189.99"),
		OriginalPrice: pricePtr("229.99"),
		Rating:        4.5,
		ImageURL:      "https://picsum.photos/seed/coat/800/800",
		Categories:    []string{"women"},
	},
}

var offers = []Offer{
	{Icon: "percent", Title: "Up to 50% Off", Description: "On all winter clothing items", ButtonText: "Shop Winter Sale", Color: "green"},
	{Icon: "shipping", Title: "Free Shipping", Description: "On orders over $100", ButtonText: "Start Shopping", Color: "blue"},
	{Icon: "gift", Title: "Buy 2 Get 1 Free", Description: "On selected jewelry items", ButtonText: "View Offers", Color: "yellow"},
}

var slides = []CarouselSlide{
	{
		ImageURL:    "https://picsum.photos/seed/winter/1200/500",
		Title:       "New Winter Collection",
		Description: "Discover our latest winter fashion trends",
		ButtonText:  "Shop Now",
		ButtonColor: "blue",
	},
	{
		ImageURL:    "https://picsum.photos/seed/sale/1200/500",
		Title:       "Flash Sale - 50% Off",
		Description: "Limited time offer on selected items",
		ButtonText:  "Grab Deal",
		ButtonColor: "red",
	},
	{
		ImageURL:    "https://picsum.photos/seed/jewelry/1200/500",
		Title:       "Exclusive Jewelry Collection",
		Description: "Shine with our premium gold and silver pieces",
		ButtonText:  "Explore",
		ButtonColor: "yellow",
	},
}

// Products returns a copy of the catalog in display order
func Products() []Product {
	out := make([]Product, len(products))
	for i, p := range products {
		out[i] = p.clone()
	}
	return out
}

func (p Product) clone() Product {
	c := p
	c.Categories = append([]string(nil), p.Categories...)
	if p.OriginalPrice != nil {
		op := *p.OriginalPrice
		c.OriginalPrice = &op
	}
	return c
}

// Categories returns the sidebar categories, wildcard first
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// Offers returns the promotional banners
func Offers() []Offer {
	return append([]Offer(nil), offers...)
}

// Slides returns the carousel slides
func Slides() []CarouselSlide {
	return append([]CarouselSlide(nil), slides...)
}

// Lookup finds a product by id
func Lookup(id int) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p.clone(), true
		}
	}
	return Product{}, false
}

// HasCategory reports whether id names a known category
func HasCategory(id string) bool {
	for _, c := range categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// StarBreakdown is how a rating renders as five stars
type StarBreakdown struct {
	Full  int `json:"full"`
	Half  int `json:"half"`
	Empty int `json:"empty"`
}

// Stars splits a rating in [0,5] into full, half and empty stars.
// Any fractional part yields exactly one half star.
func Stars(rating float64) StarBreakdown {
	rating = math.Max(0, math.Min(5, rating))
	full := int(math.Floor(rating))
	half := 0
	if rating-float64(full) > 0 {
		half = 1
	}
	return StarBreakdown{Full: full, Half: half, Empty: 5 - full - half}
}

// NextSlide returns the index after i, wrapping to 0
func NextSlide(i, n int) int {
	if n <= 0 {
		return 0
	}
	return (i + 1) % n
}

// PrevSlide returns the index before i, wrapping to n-1
func PrevSlide(i, n int) int {
	if n <= 0 {
		return 0
	}
	return (i - 1 + n) % n
}
