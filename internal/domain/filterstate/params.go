package filterstate

import (
	"net/url"
	"strconv"
	"strings"
)

// Navigation parameter keys. category, category_id and category_name
// are accepted as synonyms on read; category/category_id are the
// canonical keys written back.
const (
	ParamQuery        = "q"
	ParamCategory     = "category"
	ParamCategoryID   = "category_id"
	ParamCategoryName = "category_name"
	ParamBrand        = "brand"
	ParamMinPrice     = "minPrice"
	ParamMaxPrice     = "maxPrice"
	ParamMinRating    = "minRating"
	ParamRatings      = "ratings"
	ParamSort         = "sort"
	ParamTab          = "tab"
	ParamPage         = "page"
	ParamVerified     = "verified"
	ParamHasImages    = "has_images"
	ParamHasReviews   = "has_reviews"
	ParamDateRange    = "date_range"
)

// NavigationParams serializes the state into shareable navigation
// parameters. A default value is never written; absence on read implies
// default, so NavigationParams and FromNavigationParams are inverse up
// to default omission.
func (s *State) NavigationParams() url.Values {
	v := url.Values{}
	if s.QueryText != "" {
		v.Set(ParamQuery, s.QueryText)
	}
	if s.Category != "" {
		v.Set(ParamCategory, s.Category)
	}
	if s.CategoryID != "" {
		v.Set(ParamCategoryID, s.CategoryID)
	}
	if s.Brand != "" {
		v.Set(ParamBrand, s.Brand)
	}
	if s.MinPrice != DefaultMinPrice {
		v.Set(ParamMinPrice, formatPrice(s.MinPrice))
	}
	if s.MaxPrice != DomainMaxPrice {
		v.Set(ParamMaxPrice, formatPrice(s.MaxPrice))
	}
	if s.MinRating != 0 {
		v.Set(ParamMinRating, strconv.Itoa(s.MinRating))
	}
	if !s.SelectedRatings.IsEmpty() {
		v.Set(ParamRatings, joinInts(s.SelectedRatings.Values()))
	}
	if s.SortBy != SortRelevance {
		v.Set(ParamSort, string(s.SortBy))
	}
	if s.Tab == TabReviews {
		v.Set(ParamTab, string(s.Tab))
	}
	if s.Page > 1 {
		v.Set(ParamPage, strconv.Itoa(s.Page))
	}
	if s.VerifiedOnly {
		v.Set(ParamVerified, "true")
	}
	if s.HasImages {
		v.Set(ParamHasImages, "true")
	}
	if s.HasReviews {
		v.Set(ParamHasReviews, "true")
	}
	if s.DateRange != DateAny {
		v.Set(ParamDateRange, string(s.DateRange))
	}
	return v
}

// FromNavigationParams rebuilds a state from navigation parameters.
// Unknown keys are ignored; malformed values fall back to defaults.
// The result is clamped, never rejected.
func FromNavigationParams(v url.Values) State {
	s := Default()
	if q := v.Get(ParamQuery); q != "" {
		s.QueryText = q
	}
	// name/slug synonyms for category
	if c := v.Get(ParamCategory); c != "" {
		s.Category = c
	} else if c := v.Get(ParamCategoryName); c != "" {
		s.Category = c
	}
	if id := v.Get(ParamCategoryID); id != "" {
		s.CategoryID = id
	}
	if b := v.Get(ParamBrand); b != "" {
		s.Brand = b
	}
	if p, ok := parsePrice(v.Get(ParamMinPrice)); ok {
		s.MinPrice = p
	}
	if p, ok := parsePrice(v.Get(ParamMaxPrice)); ok {
		s.MaxPrice = p
	}
	if r, err := strconv.Atoi(v.Get(ParamMinRating)); err == nil {
		s.MinRating = r
	}
	if raw := v.Get(ParamRatings); raw != "" {
		s.SelectedRatings = parseRatings(raw)
	}
	if sort := Sort(v.Get(ParamSort)); sort.IsValid() {
		s.SortBy = sort
	}
	if v.Get(ParamTab) == string(TabReviews) {
		s.Tab = TabReviews
	}
	if p, err := strconv.Atoi(v.Get(ParamPage)); err == nil {
		s.Page = p
	}
	s.VerifiedOnly = parseBool(v.Get(ParamVerified))
	s.HasImages = parseBool(v.Get(ParamHasImages))
	s.HasReviews = parseBool(v.Get(ParamHasReviews))
	switch DateRange(v.Get(ParamDateRange)) {
	case DateDay, DateWeek, DateMonth, DateYear:
		s.DateRange = DateRange(v.Get(ParamDateRange))
	}
	s.Clamp()
	return s
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func parsePrice(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return p, true
}

func parseBool(raw string) bool {
	return strings.EqualFold(raw, "true") || raw == "1"
}

func parseRatings(raw string) RatingSet {
	var set RatingSet
	for _, part := range strings.Split(raw, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			set = set.Add(n)
		}
	}
	return set
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
