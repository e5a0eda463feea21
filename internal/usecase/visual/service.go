// Package visual handles search-by-image uploads. An upload is
// validated, registered under a short-lived search id, and later
// resolved against a remote similarity provider.
package visual

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shopscope/shopscope/internal/db"
	"github.com/shopscope/shopscope/internal/domain"
)

// Upload constraints.
const (
	MaxUploadBytes = 10 << 20
	DefaultTTL     = 7 * 24 * time.Hour
	defaultLimit   = 50
)

var acceptedFormats = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// Config tunes the visual search service.
type Config struct {
	MaxBytes int64
	TTL      time.Duration
	Limit    int
}

// Service registers uploads and resolves similarity searches.
type Service struct {
	kv       db.KVStore
	provider SimilarityProvider
	cfg      Config
}

// New creates the visual search service.
func New(kv db.KVStore, provider SimilarityProvider, cfg Config) *Service {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = MaxUploadBytes
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultLimit
	}
	return &Service{kv: kv, provider: provider, cfg: cfg}
}

func uploadKey(id string) string { return "visual:upload:" + id }

// Upload validates the image and registers it under a fresh search id.
// The declared content type is ignored; the bytes are sniffed.
func (s *Service) Upload(ctx context.Context, data []byte) (string, error) {
	if int64(len(data)) > s.cfg.MaxBytes {
		return "", fmt.Errorf("%w: %d bytes (limit %d)", domain.ErrImageTooLarge, len(data), s.cfg.MaxBytes)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty body", domain.ErrInvalidInput)
	}

	sniffed := http.DetectContentType(data)
	if _, ok := acceptedFormats[sniffed]; !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedImage, sniffed)
	}

	id := uuid.NewString()
	if err := s.kv.SetWithTTL(ctx, uploadKey(id), data, s.cfg.TTL); err != nil {
		return "", fmt.Errorf("register upload: %w", err)
	}
	return id, nil
}

// Search resolves a search id into similar products. Unknown or expired
// ids surface as domain.ErrNotFound.
func (s *Service) Search(ctx context.Context, searchID string) ([]domain.Product, error) {
	data, err := s.kv.Get(ctx, uploadKey(searchID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: search %s", domain.ErrNotFound, searchID)
		}
		return nil, fmt.Errorf("load upload: %w", err)
	}

	if s.provider == nil {
		return nil, domain.NewFetchError("similarity", errors.New("no provider configured"))
	}

	hits, err := s.provider.Similar(ctx, data, s.cfg.Limit)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return hits, nil
}
