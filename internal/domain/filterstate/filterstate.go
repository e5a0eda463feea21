// Package filterstate holds the canonical record of all active search
// facets and its mapping to shareable navigation parameters.
package filterstate

// Price domain bounds. The engine clamps direct edits into this range
// instead of rejecting them.
const (
	DefaultMinPrice = 0.0
	DomainMaxPrice  = 10000.0
)

// FiveStarThreshold is the effective threshold used when the maximum
// rating facet is selected. Requiring an exact 5.0 would empty the
// result set for near-perfect ratings.
const FiveStarThreshold = 4.75

// Sort is a result ordering key.
type Sort string

// Supported sort orders. Relevance means "order as fetched".
const (
	SortRelevance Sort = "relevance"
	SortRating    Sort = "rating"
	SortReviews   Sort = "reviews"
	SortPriceLow  Sort = "price_low"
	SortPriceHigh Sort = "price_high"
	SortNewest    Sort = "newest"
)

// IsValid checks if the sort key is one of the supported values.
func (s Sort) IsValid() bool {
	switch s {
	case SortRelevance, SortRating, SortReviews, SortPriceLow, SortPriceHigh, SortNewest:
		return true
	}
	return false
}

// Tab selects which collection the result view presents.
type Tab string

// Result tabs.
const (
	TabProducts Tab = "products"
	TabReviews  Tab = "reviews"
)

// DateRange restricts reviews by creation time.
type DateRange string

// Supported date ranges; empty means no restriction.
const (
	DateAny  DateRange = ""
	DateDay  DateRange = "day"
	DateWeek DateRange = "week"
	DateMonth DateRange = "month"
	DateYear  DateRange = "year"
)

// RatingSet is a set of selected rating facets (1..5), packed in a bitmask.
type RatingSet uint8

// NewRatingSet builds a set from the given values; out-of-range values
// are ignored.
func NewRatingSet(values ...int) RatingSet {
	var s RatingSet
	for _, v := range values {
		s = s.Add(v)
	}
	return s
}

// Add returns the set with value included. No-op outside 1..5.
func (s RatingSet) Add(v int) RatingSet {
	if v < 1 || v > 5 {
		return s
	}
	return s | 1<<uint(v-1)
}

// Has reports whether value is selected.
func (s RatingSet) Has(v int) bool {
	if v < 1 || v > 5 {
		return false
	}
	return s&(1<<uint(v-1)) != 0
}

// IsEmpty reports whether no rating facet is selected.
func (s RatingSet) IsEmpty() bool { return s == 0 }

// Min returns the lowest selected value, or 0 when empty. Multi-select
// collapses to its lowest bound: selecting {3,5} behaves as {3}.
func (s RatingSet) Min() int {
	for v := 1; v <= 5; v++ {
		if s.Has(v) {
			return v
		}
	}
	return 0
}

// Values returns the selected values in ascending order.
func (s RatingSet) Values() []int {
	var out []int
	for v := 1; v <= 5; v++ {
		if s.Has(v) {
			out = append(out, v)
		}
	}
	return out
}

// State is the canonical, serializable record of all active facets.
// It is owned by the orchestration core; presentation reads snapshots
// and mutates only through intents.
type State struct {
	QueryText       string
	Category        string
	CategoryID      string
	Brand           string
	MinPrice        float64
	MaxPrice        float64
	MinRating       int // 0 = unset
	SelectedRatings RatingSet
	SortBy          Sort
	HasImages       bool
	HasReviews      bool
	VerifiedOnly    bool
	DateRange       DateRange
	Page            int
	Tab             Tab
}

// Default returns the state with every facet at its default value.
func Default() State {
	return State{
		MinPrice: DefaultMinPrice,
		MaxPrice: DomainMaxPrice,
		SortBy:   SortRelevance,
		Page:     1,
		Tab:      TabProducts,
	}
}

// Reset restores every facet to its default. Applying it twice yields
// the same state as once.
func (s *State) Reset() {
	*s = Default()
}

// Clamp enforces the state invariants in place: price bounds stay
// inside the domain and MinPrice <= MaxPrice (the violating lower bound
// is pulled down to the upper), page >= 1, rating within 0..5.
func (s *State) Clamp() {
	if s.MinPrice < DefaultMinPrice {
		s.MinPrice = DefaultMinPrice
	}
	if s.MaxPrice > DomainMaxPrice {
		s.MaxPrice = DomainMaxPrice
	}
	if s.MaxPrice < DefaultMinPrice {
		s.MaxPrice = DefaultMinPrice
	}
	if s.MinPrice > s.MaxPrice {
		s.MinPrice = s.MaxPrice
	}
	if s.Page < 1 {
		s.Page = 1
	}
	if s.MinRating < 0 {
		s.MinRating = 0
	}
	if s.MinRating > 5 {
		s.MinRating = 5
	}
	if !s.SortBy.IsValid() {
		s.SortBy = SortRelevance
	}
	if s.Tab != TabReviews {
		s.Tab = TabProducts
	}
}

// EffectiveRatingThreshold resolves the rating facets into one lower
// bound. Selected checkboxes collapse to their minimum; the 5-star
// facet lowers to FiveStarThreshold. Returns 0 when no rating facet is
// active.
func (s *State) EffectiveRatingThreshold() float64 {
	min := s.MinRating
	if !s.SelectedRatings.IsEmpty() {
		min = s.SelectedRatings.Min()
	}
	if min == 0 {
		return 0
	}
	if min == 5 {
		return FiveStarThreshold
	}
	return float64(min)
}

// HasActiveFacets reports whether any facet differs from its default.
func (s *State) HasActiveFacets() bool {
	d := Default()
	d.Page = s.Page
	d.Tab = s.Tab
	cmp := *s
	cmp.Page = d.Page
	cmp.Tab = d.Tab
	return cmp != d
}
