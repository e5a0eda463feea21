package sorting

import (
	"math"
	"testing"
	"time"

	"github.com/shopscope/shopscope/internal/domain"
	"github.com/shopscope/shopscope/internal/domain/filterstate"
)

func ids(products []domain.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestProducts_RelevanceKeepsFetchOrder(t *testing.T) {
	products := []domain.Product{
		{ID: "a", AverageRating: 1},
		{ID: "b", AverageRating: 5},
		{ID: "c", AverageRating: 3},
	}
	Products(products, filterstate.SortRelevance)
	if !equal(ids(products), []string{"a", "b", "c"}) {
		t.Errorf("relevance must not reorder, got %v", ids(products))
	}
}

func TestProducts_RatingDescending(t *testing.T) {
	products := []domain.Product{
		{ID: "a", AverageRating: 3.2},
		{ID: "b", AverageRating: 4.9},
		{ID: "c", AverageRating: 4.0},
	}
	Products(products, filterstate.SortRating)
	if !equal(ids(products), []string{"b", "c", "a"}) {
		t.Errorf("got %v", ids(products))
	}
}

func TestProducts_RatingTiesKeepFetchOrder(t *testing.T) {
	products := []domain.Product{
		{ID: "a", AverageRating: 4.0},
		{ID: "b", AverageRating: 4.0},
		{ID: "c", AverageRating: 4.0},
	}
	Products(products, filterstate.SortRating)
	if !equal(ids(products), []string{"a", "b", "c"}) {
		t.Errorf("stable sort must keep fetch order for ties, got %v", ids(products))
	}
}

func TestProducts_PriceLowMissingLast(t *testing.T) {
	nan := math.NaN()
	products := []domain.Product{
		{ID: "a", PriceMin: 300, PriceMax: 300},
		{ID: "b", PriceMin: nan, PriceMax: nan},
		{ID: "c", PriceMin: 20, PriceMax: 25},
	}
	Products(products, filterstate.SortPriceLow)
	if !equal(ids(products), []string{"c", "a", "b"}) {
		t.Errorf("got %v", ids(products))
	}

	Products(products, filterstate.SortPriceHigh)
	if !equal(ids(products), []string{"a", "c", "b"}) {
		t.Errorf("missing price must sort last either direction, got %v", ids(products))
	}
}

func TestProducts_NewestMissingTimestampLast(t *testing.T) {
	now := time.Now()
	products := []domain.Product{
		{ID: "a", CreatedAt: now.Add(-time.Hour)},
		{ID: "b"},
		{ID: "c", CreatedAt: now},
	}
	Products(products, filterstate.SortNewest)
	if !equal(ids(products), []string{"c", "a", "b"}) {
		t.Errorf("got %v", ids(products))
	}
}

func TestReviews_RatingAndNewest(t *testing.T) {
	now := time.Now()
	reviews := []domain.Review{
		{ID: "a", Rating: 3, CreatedAt: now.Add(-time.Hour)},
		{ID: "b", Rating: 5, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "c", Rating: 4, CreatedAt: now},
	}

	Reviews(reviews, filterstate.SortRating)
	got := []string{reviews[0].ID, reviews[1].ID, reviews[2].ID}
	if !equal(got, []string{"b", "c", "a"}) {
		t.Errorf("rating: got %v", got)
	}

	Reviews(reviews, filterstate.SortNewest)
	got = []string{reviews[0].ID, reviews[1].ID, reviews[2].ID}
	if !equal(got, []string{"c", "a", "b"}) {
		t.Errorf("newest: got %v", got)
	}
}

func TestReviews_PriceKeyIsNoOp(t *testing.T) {
	reviews := []domain.Review{{ID: "a", Rating: 1}, {ID: "b", Rating: 5}}
	Reviews(reviews, filterstate.SortPriceLow)
	if reviews[0].ID != "a" || reviews[1].ID != "b" {
		t.Error("price keys must leave review order untouched")
	}
}
