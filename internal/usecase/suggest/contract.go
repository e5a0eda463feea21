package suggest

import (
	"context"

	"github.com/shopscope/shopscope/internal/repository/history"
)

// Remote asks the upstream catalog for query completions.
type Remote interface {
	Suggestions(ctx context.Context, prefix string, limit int) ([]string, error)
}

// HistoryReader reads the recent-search log.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}
