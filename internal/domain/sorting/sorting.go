// Package sorting orders result slices by the active sort key. All sorts
// are stable so that equal elements keep their fetch order, which is also
// what the relevance key relies on: relevance applies no reordering at all.
package sorting

import (
	"sort"
	"time"

	"github.com/shopscope/shopscope/internal/domain"
	"github.com/shopscope/shopscope/internal/domain/filterstate"
)

// Products sorts the slice in place according to key.
func Products(products []domain.Product, key filterstate.Sort) {
	switch key {
	case filterstate.SortRating:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].AverageRating > products[j].AverageRating
		})
	case filterstate.SortReviews:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].ReviewCount > products[j].ReviewCount
		})
	case filterstate.SortPriceLow:
		sort.SliceStable(products, func(i, j int) bool {
			return priceLess(&products[i], &products[j], true)
		})
	case filterstate.SortPriceHigh:
		sort.SliceStable(products, func(i, j int) bool {
			return priceLess(&products[i], &products[j], false)
		})
	case filterstate.SortNewest:
		sort.SliceStable(products, func(i, j int) bool {
			return newestLess(products[i].CreatedAt, products[j].CreatedAt)
		})
	default:
		// Relevance keeps the fetch order.
	}
}

// Reviews sorts the slice in place. Price keys have no meaning for
// reviews and leave the fetch order untouched.
func Reviews(reviews []domain.Review, key filterstate.Sort) {
	switch key {
	case filterstate.SortRating:
		sort.SliceStable(reviews, func(i, j int) bool {
			return reviews[i].Rating > reviews[j].Rating
		})
	case filterstate.SortNewest:
		sort.SliceStable(reviews, func(i, j int) bool {
			return newestLess(reviews[i].CreatedAt, reviews[j].CreatedAt)
		})
	}
}

// priceLess compares by the effective price. Products without price data
// always sort last, regardless of direction.
func priceLess(a, b *domain.Product, ascending bool) bool {
	switch {
	case !a.HasPrice():
		return false
	case !b.HasPrice():
		return true
	}
	if ascending {
		return a.PriceMin < b.PriceMin
	}
	return a.PriceMax > b.PriceMax
}

// newestLess sorts most recent first, entries without a timestamp last.
func newestLess(a, b time.Time) bool {
	switch {
	case a.IsZero():
		return false
	case b.IsZero():
		return true
	}
	return a.After(b)
}
