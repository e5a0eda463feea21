package catalog

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopscope/shopscope/internal/domain"
)

func normalizeProduct(dto productDTO) domain.Product {
	p := domain.Product{
		ID:          dto.ID.String(),
		Name:        dto.Name,
		Brand:       dto.Brand,
		ReviewCount: dto.ReviewCount,
		Description: dto.Description,
		ImageURL:    dto.ImageURL,
		CreatedAt:   parseTime(dto.CreatedAt),
	}

	p.Category, p.CategorySlug, p.CategoryID = normalizeCategory(dto)

	p.AverageRating = dto.AverageRating
	if p.AverageRating == 0 {
		p.AverageRating = dto.Rating
	}

	p.PriceMin, p.PriceMax = normalizePrice(dto)
	return p
}

func normalizeReview(dto reviewDTO) domain.Review {
	body := dto.Body
	if body == "" {
		body = dto.Comment
	}
	return domain.Review{
		ID:           dto.ID.String(),
		Rating:       clampRating(dto.Rating),
		Title:        dto.Title,
		Body:         body,
		CreatedAt:    parseTime(dto.CreatedAt),
		ProductID:    dto.ProductID.String(),
		ProductName:  dto.ProductName,
		ProductBrand: dto.ProductBrand,
		Verified:     dto.Verified,
		HasImages:    dto.HasImages || len(dto.Images) > 0,
	}
}

// normalizeCategory resolves the three equivalent category keys from
// whichever shape the upstream sent: an embedded object, a plain string,
// or the flat category_id/category_slug fields.
func normalizeCategory(dto productDTO) (name, slug, id string) {
	slug = dto.CategorySlug
	id = dto.CategoryID.String()

	if len(dto.Category) > 0 {
		switch dto.Category[0] {
		case '{':
			var obj categoryObject
			if err := json.Unmarshal(dto.Category, &obj); err == nil {
				name = obj.Name
				if slug == "" {
					slug = obj.Slug
				}
				if id == "" {
					id = obj.ID.String()
				}
			}
		case '"':
			_ = json.Unmarshal(dto.Category, &name)
		}
	}
	return name, slug, id
}

// normalizePrice resolves the price variants the upstream emits:
// explicit price_min/price_max, a bare number, or a display string such
// as "$10 - $20". Unresolvable prices come back as NaN, which downstream
// filters treat as unknown.
func normalizePrice(dto productDTO) (min, max float64) {
	if dto.PriceMin != nil || dto.PriceMax != nil {
		min, max = math.NaN(), math.NaN()
		if dto.PriceMin != nil {
			min = *dto.PriceMin
		}
		if dto.PriceMax != nil {
			max = *dto.PriceMax
		}
		if math.IsNaN(min) {
			min = max
		}
		if math.IsNaN(max) {
			max = min
		}
		return min, max
	}

	if len(dto.Price) > 0 {
		if dto.Price[0] == '"' {
			var s string
			if err := json.Unmarshal(dto.Price, &s); err == nil {
				return parsePriceString(s)
			}
		} else {
			var n float64
			if err := json.Unmarshal(dto.Price, &n); err == nil {
				return n, n
			}
		}
	}
	return math.NaN(), math.NaN()
}

// parsePriceString handles "$15.99" and "$10 - $20" display strings.
func parsePriceString(s string) (min, max float64) {
	parts := strings.SplitN(s, "-", 2)
	lo, okLo := parsePriceToken(parts[0])
	if !okLo {
		return math.NaN(), math.NaN()
	}
	if len(parts) == 1 {
		return lo, lo
	}
	hi, okHi := parsePriceToken(parts[1])
	if !okHi {
		return lo, lo
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo, hi
}

func parsePriceToken(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func clampRating(v float64) int {
	n := int(math.Round(v))
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return n
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
