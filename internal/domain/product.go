package domain

import (
	"math"
	"time"
)

// Product is a catalog product after boundary normalization.
// The three category keys (name, slug, numeric id) may independently be
// present and are treated as equivalent for matching. Price bounds are
// NaN when the source carried no resolvable price data; every consumer
// of price must treat NaN as "unknown", never as zero.
type Product struct {
	ID            string
	Name          string
	Brand         string
	Category      string
	CategorySlug  string
	CategoryID    string
	PriceMin      float64
	PriceMax      float64
	AverageRating float64
	ReviewCount   int
	Description   string
	ImageURL      string
	CreatedAt     time.Time
}

// HasPrice reports whether the product carries resolvable price data.
func (p *Product) HasPrice() bool {
	return !math.IsNaN(p.PriceMin) && !math.IsNaN(p.PriceMax)
}

// Review is a catalog review after boundary normalization.
// ProductID is a loose reference; ProductName/ProductBrand are the
// denormalized fallback used when the reference does not resolve
// against the current product collection.
type Review struct {
	ID           string
	Rating       int
	Title        string
	Body         string
	CreatedAt    time.Time
	ProductID    string
	ProductName  string
	ProductBrand string
	Verified     bool
	HasImages    bool
}

// Category is one catalog category.
type Category struct {
	ID   string
	Name string
	Slug string
}

// Catalog is one fetched superset of both collections. A new fetch
// replaces the whole value; entities are never patched in place.
type Catalog struct {
	Products      []Product
	Reviews       []Review
	ProductsTotal int
	ReviewsTotal  int
}

// ResolveProduct resolves a review's product reference against the
// current product collection. Falls back to the review's denormalized
// fields when unresolved.
func (c *Catalog) ResolveProduct(r *Review) (name, brand string) {
	if r.ProductID != "" {
		for i := range c.Products {
			if c.Products[i].ID == r.ProductID {
				return c.Products[i].Name, c.Products[i].Brand
			}
		}
	}
	return r.ProductName, r.ProductBrand
}
