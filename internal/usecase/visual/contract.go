package visual

import (
	"context"

	"github.com/shopscope/shopscope/internal/domain"
)

// SimilarityProvider finds products visually similar to an image. The
// provider is remote and opaque; this service only validates and
// registers uploads.
type SimilarityProvider interface {
	Similar(ctx context.Context, image []byte, limit int) ([]domain.Product, error)
}
