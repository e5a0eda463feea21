// Package catalog fetches products, reviews, categories and suggestions
// from the upstream catalog HTTP API. The client asks for a bounded
// superset of results; filtering and ordering happen locally.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shopscope/shopscope/internal/domain"
	"github.com/shopscope/shopscope/internal/logger"
	"github.com/shopscope/shopscope/internal/metrics"
)

const (
	collectionProducts = "products"
	collectionReviews  = "reviews"

	maxResponseBytes = 8 << 20
)

// Config holds client parameters for the catalog API.
type Config struct {
	BaseURL       string
	TimeoutSec    int
	FetchPageSize int
}

// Client is an HTTP client for the catalog API.
type Client struct {
	http     *http.Client
	baseURL  string
	pageSize int
}

// NewClient creates a catalog client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pageSize := cfg.FetchPageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		baseURL:  cfg.BaseURL,
		pageSize: pageSize,
	}, nil
}

// FetchQuery narrows the superset the upstream returns. Query is a
// server-side hint only; local matching remains authoritative.
type FetchQuery struct {
	Query          string
	IncludeReviews bool
}

// Fetch retrieves products and, when asked, reviews concurrently. The
// two collections fail independently: a partial catalog is returned
// together with the error of whichever collection failed.
func (c *Client) Fetch(ctx context.Context, q FetchQuery) (domain.Catalog, error) {
	var (
		catalog     domain.Catalog
		productsErr error
		reviewsErr  error
		wg          sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		catalog.Products, catalog.ProductsTotal, productsErr = c.Products(ctx, q.Query)
	}()

	if q.IncludeReviews {
		wg.Add(1)
		go func() {
			defer wg.Done()
			catalog.Reviews, catalog.ReviewsTotal, reviewsErr = c.Reviews(ctx, q.Query)
		}()
	}
	wg.Wait()

	if productsErr != nil && reviewsErr != nil {
		return catalog, fmt.Errorf("%w; %w", productsErr, reviewsErr)
	}
	if productsErr != nil {
		return catalog, productsErr
	}
	return catalog, reviewsErr
}

// Products fetches one superset page of products.
func (c *Client) Products(ctx context.Context, query string) ([]domain.Product, int, error) {
	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	params.Set("limit", strconv.Itoa(c.pageSize))

	var resp productListResponse
	if err := c.getJSON(ctx, "/api/products", params, &resp); err != nil {
		metrics.CatalogFetchesTotal.WithLabelValues(collectionProducts, "error").Inc()
		return nil, 0, domain.NewFetchError(collectionProducts, err)
	}
	metrics.CatalogFetchesTotal.WithLabelValues(collectionProducts, "ok").Inc()

	products := make([]domain.Product, 0, len(resp.Products))
	for _, dto := range resp.Products {
		products = append(products, normalizeProduct(dto))
	}
	total := resp.Total
	if total < len(products) {
		total = len(products)
	}
	return products, total, nil
}

// Reviews fetches one superset page of reviews.
func (c *Client) Reviews(ctx context.Context, query string) ([]domain.Review, int, error) {
	params := url.Values{}
	if query != "" {
		params.Set("q", query)
	}
	params.Set("limit", strconv.Itoa(c.pageSize))

	var resp reviewListResponse
	if err := c.getJSON(ctx, "/api/reviews", params, &resp); err != nil {
		metrics.CatalogFetchesTotal.WithLabelValues(collectionReviews, "error").Inc()
		return nil, 0, domain.NewFetchError(collectionReviews, err)
	}
	metrics.CatalogFetchesTotal.WithLabelValues(collectionReviews, "ok").Inc()

	reviews := make([]domain.Review, 0, len(resp.Reviews))
	for _, dto := range resp.Reviews {
		reviews = append(reviews, normalizeReview(dto))
	}
	total := resp.Total
	if total < len(reviews) {
		total = len(reviews)
	}
	return reviews, total, nil
}

// Categories fetches the category list.
func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var resp categoryListResponse
	if err := c.getJSON(ctx, "/api/categories", nil, &resp); err != nil {
		return nil, domain.NewFetchError("categories", err)
	}
	out := make([]domain.Category, 0, len(resp.Categories))
	for _, dto := range resp.Categories {
		out = append(out, domain.Category{ID: dto.ID.String(), Name: dto.Name, Slug: dto.Slug})
	}
	return out, nil
}

// Suggestions asks the upstream for query completions.
func (c *Client) Suggestions(ctx context.Context, prefix string, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("q", prefix)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var resp suggestionListResponse
	if err := c.getJSON(ctx, "/api/search/suggestions", params, &resp); err != nil {
		return nil, domain.NewFetchError("suggestions", err)
	}
	return resp.Suggestions, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	logger.FromContext(ctx).Debug("catalog request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(started)),
	)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
