package session

import (
	"context"
	"net/url"

	"github.com/shopscope/shopscope/internal/catalog"
	"github.com/shopscope/shopscope/internal/domain"
	"github.com/shopscope/shopscope/internal/repository/history"
)

// CatalogFetcher retrieves the bounded result superset from the
// upstream catalog.
type CatalogFetcher interface {
	Fetch(ctx context.Context, q catalog.FetchQuery) (domain.Catalog, error)
}

// VisualSearcher resolves a prior image upload into similar products.
type VisualSearcher interface {
	Search(ctx context.Context, searchID string) ([]domain.Product, error)
}

// VoiceParser turns a spoken utterance into navigation params.
type VoiceParser interface {
	Derive(ctx context.Context, text string) (url.Values, error)
}

// History records completed searches. Implementations must tolerate
// storage failure silently.
type History interface {
	Record(ctx context.Context, e history.Entry)
}
