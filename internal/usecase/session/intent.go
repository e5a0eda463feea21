package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopscope/shopscope/internal/domain"
	"github.com/shopscope/shopscope/internal/domain/filterstate"
)

// Op names a session intent.
type Op string

const (
	OpSetQuery    Op = "set_query"
	OpSetFilter   Op = "set_filter"
	OpReset       Op = "reset"
	OpApply       Op = "apply"
	OpRequestPage Op = "request_page"
	OpSetModality Op = "set_modality"
)

// Intent is one user action against a session's filter state.
type Intent struct {
	Op       Op     `json:"op"`
	Field    string `json:"field,omitempty"`
	Value    string `json:"value,omitempty"`
	Page     int    `json:"page,omitempty"`
	Modality string `json:"modality,omitempty"`
	Text     string `json:"text,omitempty"`      // voice utterance
	SearchID string `json:"search_id,omitempty"` // visual upload id
}

// applyField mutates one facet. Fields share names with navigation
// params so intents, shared URLs and voice-derived params all travel
// the same path. Malformed values fall back to the facet default; only
// an unknown field is an error. The second return reports whether the
// mutation should be debounced (price bounds only).
func applyField(s *filterstate.State, field, value string) (bool, error) {
	switch field {
	case filterstate.ParamQuery:
		s.QueryText = value
	case filterstate.ParamCategory, filterstate.ParamCategoryName:
		s.Category = value
	case filterstate.ParamCategoryID:
		s.CategoryID = value
	case filterstate.ParamBrand:
		s.Brand = value
	case filterstate.ParamMinPrice:
		s.MinPrice = parsePriceOr(value, filterstate.DefaultMinPrice)
		return true, nil
	case filterstate.ParamMaxPrice:
		s.MaxPrice = parsePriceOr(value, filterstate.DomainMaxPrice)
		return true, nil
	case filterstate.ParamMinRating:
		n, err := strconv.Atoi(value)
		if err != nil {
			n = 0
		}
		s.MinRating = n
	case filterstate.ParamRatings:
		var set filterstate.RatingSet
		for _, part := range strings.Split(value, ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
				set = set.Add(n)
			}
		}
		s.SelectedRatings = set
	case filterstate.ParamSort:
		if sort := filterstate.Sort(value); sort.IsValid() {
			s.SortBy = sort
		} else {
			s.SortBy = filterstate.SortRelevance
		}
	case filterstate.ParamTab:
		if value == string(filterstate.TabReviews) {
			s.Tab = filterstate.TabReviews
		} else {
			s.Tab = filterstate.TabProducts
		}
	case filterstate.ParamVerified:
		s.VerifiedOnly = parseBool(value)
	case filterstate.ParamHasImages:
		s.HasImages = parseBool(value)
	case filterstate.ParamHasReviews:
		s.HasReviews = parseBool(value)
	case filterstate.ParamDateRange:
		switch filterstate.DateRange(value) {
		case filterstate.DateDay, filterstate.DateWeek, filterstate.DateMonth, filterstate.DateYear:
			s.DateRange = filterstate.DateRange(value)
		default:
			s.DateRange = filterstate.DateAny
		}
	default:
		return false, fmt.Errorf("%w: unknown filter field %q", domain.ErrInvalidInput, field)
	}
	return false, nil
}

func parsePriceOr(value string, fallback float64) float64 {
	p, err := strconv.ParseFloat(value, 64)
	if err != nil || p < 0 {
		return fallback
	}
	return p
}

func parseBool(value string) bool {
	return strings.EqualFold(value, "true") || value == "1"
}
