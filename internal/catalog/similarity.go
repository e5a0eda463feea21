package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/shopscope/shopscope/internal/domain"
	"github.com/shopscope/shopscope/internal/logger"
)

// SimilarityClient queries a remote image-similarity service. The
// service ranks catalog products against an uploaded image; hits come
// back pre-ordered by similarity and pass through the same
// normalization as regular catalog responses.
type SimilarityClient struct {
	http    *http.Client
	baseURL string
}

// NewSimilarityClient creates a similarity provider client.
func NewSimilarityClient(baseURL string, timeoutSec int) (*SimilarityClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("provider base url is required")
	}
	timeout := time.Duration(timeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SimilarityClient{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}, nil
}

// Similar posts the image and returns the ranked product hits.
func (c *SimilarityClient) Similar(ctx context.Context, image []byte, limit int) ([]domain.Product, error) {
	u := c.baseURL + "/api/visual-search/similar"
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.NewFetchError("similarity", fmt.Errorf("do request: %w", err))
	}
	defer resp.Body.Close()

	logger.FromContext(ctx).Debug("similarity request",
		zap.Int("status", resp.StatusCode),
		zap.Int("image_bytes", len(image)),
		zap.Duration("took", time.Since(started)),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewFetchError("similarity", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, domain.NewFetchError("similarity", fmt.Errorf("read body: %w", err))
	}

	var list productListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, domain.NewFetchError("similarity", fmt.Errorf("decode body: %w", err))
	}

	products := make([]domain.Product, 0, len(list.Products))
	for _, dto := range list.Products {
		products = append(products, normalizeProduct(dto))
	}
	return products, nil
}
