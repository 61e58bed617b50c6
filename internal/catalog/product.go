// Package catalog defines the products offered by the storefront.
package catalog

import "strconv"

// Product is a catalog entry. Products are immutable once loaded; a catalog
// refresh replaces them wholesale.
type Product struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Category    string `json:"category"`

	// Price is nil for priceless products, which cannot be bought.
	Price *int64 `json:"price"`
}

// IsPriceless returns true if the product has no price.
func (p Product) IsPriceless() bool {
	return p.Price == nil
}

// PriceValue returns the price, or 0 for a priceless product.
func (p Product) PriceValue() int64 {
	if p.Price == nil {
		return 0
	}
	return *p.Price
}

// FormatPrice renders the price for display.
func (p Product) FormatPrice() string {
	if p.Price == nil {
		return "priceless"
	}
	return FormatUnits(*p.Price)
}

// FormatUnits renders an amount of currency units.
func FormatUnits(n int64) string {
	return strconv.FormatInt(n, 10) + " units"
}

// Price returns a pointer to n, for building products in code.
func Price(n int64) *int64 {
	return &n
}

// Find returns the product with the given id.
func Find(products []Product, id string) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
