package match

import (
	"math"
	"testing"
	"time"

	"github.com/shopscope/shopscope/internal/domain"
	"github.com/shopscope/shopscope/internal/domain/filterstate"
)

func product() domain.Product {
	return domain.Product{
		ID:            "p1",
		Name:          "Wireless Headphones",
		Brand:         "Sony",
		Category:      "Electronics",
		CategorySlug:  "electronics",
		CategoryID:    "12",
		PriceMin:      50,
		PriceMax:      50,
		AverageRating: 4.5,
		ReviewCount:   10,
		Description:   "Noise cancelling over-ear headphones",
		ImageURL:      "https://img.example.com/p1.jpg",
	}
}

func TestProduct_NoFacets(t *testing.T) {
	p := product()
	s := filterstate.Default()
	if !Product(&p, &s) {
		t.Error("product must pass with no active facets")
	}
}

// --- Price overlap ---

func TestProductPrice_OverlapInvariant(t *testing.T) {
	cases := []struct {
		name               string
		pMin, pMax         float64
		fMin, fMax         float64
		want               bool
	}{
		{"point price inside wide range", 50, 50, 0, 2000, true},
		{"point price below lower bound", 50, 50, 100, 2000, false},
		{"straddles lower bound", 80, 150, 100, 2000, true},
		{"straddles upper bound", 1900, 2100, 100, 2000, true},
		{"entirely above", 3000, 4000, 100, 2000, false},
		{"entirely below", 10, 20, 100, 2000, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := product()
			p.PriceMin, p.PriceMax = tc.pMin, tc.pMax
			s := filterstate.Default()
			s.MinPrice, s.MaxPrice = tc.fMin, tc.fMax

			got := Product(&p, &s)
			want := tc.pMax >= tc.fMin && tc.pMin <= tc.fMax
			if want != tc.want {
				t.Fatalf("test table inconsistent with invariant")
			}
			if got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestProductPrice_MissingDataFailsOpen(t *testing.T) {
	p := product()
	p.PriceMin, p.PriceMax = math.NaN(), math.NaN()
	s := filterstate.Default()
	s.MinPrice, s.MaxPrice = 100, 200

	if !Product(&p, &s) {
		t.Error("product without price data must pass the price filter")
	}
}

// --- Rating threshold ---

func TestProductRating_FiveStarEdge(t *testing.T) {
	s := filterstate.Default()
	s.SelectedRatings = filterstate.NewRatingSet(5)

	p := product()
	p.AverageRating = 4.8
	if !Product(&p, &s) {
		t.Error("4.8 must match the 5-star facet (threshold 4.75)")
	}

	p.AverageRating = 4.6
	if Product(&p, &s) {
		t.Error("4.6 must not match the 5-star facet")
	}
}

func TestProductRating_MultiSelectCollapse(t *testing.T) {
	multi := filterstate.Default()
	multi.SelectedRatings = filterstate.NewRatingSet(3, 5)
	single := filterstate.Default()
	single.SelectedRatings = filterstate.NewRatingSet(3)

	for _, rating := range []float64{2.9, 3.0, 3.5, 4.6, 5.0} {
		p := product()
		p.AverageRating = rating
		if Product(&p, &multi) != Product(&p, &single) {
			t.Errorf("rating %v: {3,5} and {3} disagree", rating)
		}
	}
}

func TestProductRating_MissingRatingExcluded(t *testing.T) {
	p := product()
	p.AverageRating = 0
	s := filterstate.Default()
	s.MinRating = 4

	if Product(&p, &s) {
		t.Error("missing rating defaults to 0 and must fail a threshold")
	}
}

// --- Category ---

func TestProductCategory_AnyKeyMatches(t *testing.T) {
	s := filterstate.Default()
	s.Category = "electronics"

	byName := product()
	byName.CategorySlug, byName.CategoryID = "", ""
	if !Product(&byName, &s) {
		t.Error("category name must match case-insensitively")
	}

	bySlug := product()
	bySlug.Category, bySlug.CategoryID = "", ""
	if !Product(&bySlug, &s) {
		t.Error("category slug must match")
	}

	other := product()
	other.Category, other.CategorySlug, other.CategoryID = "Books", "books", "3"
	if Product(&other, &s) {
		t.Error("mismatched category must fail")
	}
}

func TestProductCategory_ByID(t *testing.T) {
	s := filterstate.Default()
	s.CategoryID = "12"

	p := product()
	if !Product(&p, &s) {
		t.Error("matching category id must pass")
	}

	p.CategoryID = "13"
	p.Category, p.CategorySlug = "", ""
	if Product(&p, &s) {
		t.Error("mismatched category id must fail")
	}
}

func TestProductCategory_Containment(t *testing.T) {
	s := filterstate.Default()
	s.Category = "home"

	p := product()
	p.Category, p.CategorySlug, p.CategoryID = "Home & Garden", "home-garden", ""
	if !Product(&p, &s) {
		t.Error("containment must suffice for a category match")
	}
}

// --- Free text ---

func TestProductText_SubstringComposite(t *testing.T) {
	p := product()
	s := filterstate.Default()

	s.QueryText = "HEADphones"
	if !Product(&p, &s) {
		t.Error("substring match must be case-insensitive")
	}

	s.QueryText = "noise cancelling"
	if !Product(&p, &s) {
		t.Error("description must be part of the composite")
	}

	s.QueryText = "sony"
	if !Product(&p, &s) {
		t.Error("brand must be part of the composite")
	}

	s.QueryText = "turntable"
	if Product(&p, &s) {
		t.Error("non-substring must fail")
	}
}

// --- Brand, flags ---

func TestProduct_BrandAndFlags(t *testing.T) {
	p := product()
	s := filterstate.Default()

	s.Brand = "sony"
	if !Product(&p, &s) {
		t.Error("brand match is case-insensitive")
	}
	s.Brand = "bose"
	if Product(&p, &s) {
		t.Error("brand mismatch must fail")
	}
	s.Brand = ""

	s.HasReviews = true
	p.ReviewCount = 0
	if Product(&p, &s) {
		t.Error("has_reviews must exclude zero-review products")
	}

	p.ReviewCount = 5
	s.HasImages = true
	p.ImageURL = ""
	if Product(&p, &s) {
		t.Error("has_images must exclude products without an image")
	}
}

// --- Reviews ---

func review() domain.Review {
	return domain.Review{
		ID:        "r1",
		Rating:    4,
		Title:     "Great sound",
		Body:      "Battery could be better",
		CreatedAt: time.Now().Add(-48 * time.Hour),
		ProductID: "p1",
		Verified:  true,
		HasImages: true,
	}
}

func TestReview_TextMatchesResolvedProduct(t *testing.T) {
	r := review()
	s := filterstate.Default()
	s.QueryText = "headphones"

	if Review(&r, &s, "", "") {
		t.Error("query must fail when the resolved product does not carry it")
	}
	if !Review(&r, &s, "Wireless Headphones", "Sony") {
		t.Error("resolved product name must be part of the review composite")
	}
}

func TestReview_RatingVerifiedImages(t *testing.T) {
	r := review()
	s := filterstate.Default()

	s.MinRating = 5
	if Review(&r, &s, "", "") {
		t.Error("rating 4 must fail threshold 5")
	}
	s.MinRating = 0

	s.VerifiedOnly = true
	r.Verified = false
	if Review(&r, &s, "", "") {
		t.Error("verified_only must exclude unverified reviews")
	}
	r.Verified = true

	s.HasImages = true
	r.HasImages = false
	if Review(&r, &s, "", "") {
		t.Error("has_images must exclude reviews without images")
	}
}

func TestReview_DateRange(t *testing.T) {
	r := review()
	s := filterstate.Default()
	s.DateRange = filterstate.DateDay

	if Review(&r, &s, "", "") {
		t.Error("48h-old review must fail the day range")
	}

	s.DateRange = filterstate.DateWeek
	if !Review(&r, &s, "", "") {
		t.Error("48h-old review must pass the week range")
	}

	r.CreatedAt = time.Time{}
	s.DateRange = filterstate.DateDay
	if !Review(&r, &s, "", "") {
		t.Error("review without timestamp fails open on date range")
	}
}
