// Package view holds the immutable result snapshot handed out after a
// search pass. Callers receive copies, never the orchestrator's slices.
package view

import (
	"github.com/shopscope/shopscope/internal/domain"
	"github.com/shopscope/shopscope/internal/domain/filterstate"
	"github.com/shopscope/shopscope/internal/domain/modality"
)

// SearchResult is one settled search outcome. A zero value means no
// search has completed yet.
type SearchResult struct {
	Products    []domain.Product
	Reviews     []domain.Review
	Modality    modality.Modality
	Tab         filterstate.Tab
	TotalCount  int
	Page        int
	HasNext     bool
	HasPrevious bool
	Err         error
}

// Clone returns a deep-enough copy: slices are duplicated so mutations
// on one snapshot never leak into another.
func (v SearchResult) Clone() SearchResult {
	out := v
	if v.Products != nil {
		out.Products = make([]domain.Product, len(v.Products))
		copy(out.Products, v.Products)
	}
	if v.Reviews != nil {
		out.Reviews = make([]domain.Review, len(v.Reviews))
		copy(out.Reviews, v.Reviews)
	}
	return out
}
