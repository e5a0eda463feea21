// Package match holds the pure predicates deciding whether an entity
// satisfies the active filter state. All facet predicates are conjoined;
// evaluation short-circuits on first failure but correctness does not
// depend on order.
package match

import (
	"strings"
	"time"

	"github.com/shopscope/shopscope/internal/domain"
	"github.com/shopscope/shopscope/internal/domain/filterstate"
)

// Product reports whether the product satisfies every active facet.
func Product(p *domain.Product, s *filterstate.State) bool {
	if !productCategory(p, s) {
		return false
	}
	if !productPrice(p, s) {
		return false
	}
	if !productRating(p, s) {
		return false
	}
	if s.Brand != "" && !strings.EqualFold(p.Brand, s.Brand) {
		return false
	}
	if s.HasReviews && p.ReviewCount == 0 {
		return false
	}
	if s.HasImages && p.ImageURL == "" {
		return false
	}
	if !productText(p, s) {
		return false
	}
	return true
}

// Review reports whether the review satisfies every active facet.
// resolvedName/resolvedBrand come from resolving the review's product
// reference against the current collection (with denormalized fallback).
func Review(r *domain.Review, s *filterstate.State, resolvedName, resolvedBrand string) bool {
	if threshold := s.EffectiveRatingThreshold(); threshold > 0 && float64(r.Rating) < threshold {
		return false
	}
	if s.VerifiedOnly && !r.Verified {
		return false
	}
	if s.HasImages && !r.HasImages {
		return false
	}
	if !reviewDate(r, s) {
		return false
	}
	if !reviewText(r, s, resolvedName, resolvedBrand) {
		return false
	}
	return true
}

// productCategory passes when the filter's category value matches the
// entity's name, slug or id — checked independently, any match
// suffices, case-insensitively, equality or containment.
func productCategory(p *domain.Product, s *filterstate.State) bool {
	if s.Category == "" && s.CategoryID == "" {
		return true
	}
	if s.CategoryID != "" && p.CategoryID != "" && strings.EqualFold(p.CategoryID, s.CategoryID) {
		return true
	}
	if s.Category != "" {
		want := strings.ToLower(s.Category)
		for _, key := range []string{p.Category, p.CategorySlug, p.CategoryID} {
			if key == "" {
				continue
			}
			have := strings.ToLower(key)
			if have == want || strings.Contains(have, want) || strings.Contains(want, have) {
				return true
			}
		}
	}
	return false
}

// productPrice is interval overlap, not containment: an entity
// straddling the filter bounds counts as a match. Entities with no
// resolvable price always pass (fail-open) so incomplete data does not
// hide inventory.
func productPrice(p *domain.Product, s *filterstate.State) bool {
	if !p.HasPrice() {
		return true
	}
	return p.PriceMax >= s.MinPrice && p.PriceMin <= s.MaxPrice
}

func productRating(p *domain.Product, s *filterstate.State) bool {
	threshold := s.EffectiveRatingThreshold()
	if threshold == 0 {
		return true
	}
	// missing rating counts as 0, not as unknown
	return p.AverageRating >= threshold
}

// productText is a case-insensitive substring test over a composite of
// name, brand and description. No tokenization, stemming or ranking.
func productText(p *domain.Product, s *filterstate.State) bool {
	if s.QueryText == "" {
		return true
	}
	composite := strings.ToLower(p.Name + " " + p.Brand + " " + p.Description)
	return strings.Contains(composite, strings.ToLower(s.QueryText))
}

func reviewText(r *domain.Review, s *filterstate.State, resolvedName, resolvedBrand string) bool {
	if s.QueryText == "" {
		return true
	}
	composite := strings.ToLower(r.Title + " " + r.Body + " " + resolvedName + " " + resolvedBrand)
	return strings.Contains(composite, strings.ToLower(s.QueryText))
}

func reviewDate(r *domain.Review, s *filterstate.State) bool {
	if s.DateRange == filterstate.DateAny {
		return true
	}
	if r.CreatedAt.IsZero() {
		// fail-open for reviews with no timestamp
		return true
	}
	var window time.Duration
	switch s.DateRange {
	case filterstate.DateDay:
		window = 24 * time.Hour
	case filterstate.DateWeek:
		window = 7 * 24 * time.Hour
	case filterstate.DateMonth:
		window = 30 * 24 * time.Hour
	case filterstate.DateYear:
		window = 365 * 24 * time.Hour
	default:
		return true
	}
	return time.Since(r.CreatedAt) <= window
}
