package chi

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shopscope/shopscope/internal/catalog"
	"github.com/shopscope/shopscope/internal/db"
	"github.com/shopscope/shopscope/internal/domain"
	"github.com/shopscope/shopscope/internal/repository/history"
	sessionuc "github.com/shopscope/shopscope/internal/usecase/session"
	suggestuc "github.com/shopscope/shopscope/internal/usecase/suggest"
	visualuc "github.com/shopscope/shopscope/internal/usecase/visual"
	voiceuc "github.com/shopscope/shopscope/internal/usecase/voice"
)

type fakeFetcher struct {
	catalog domain.Catalog
	err     error
}

func (f *fakeFetcher) Fetch(context.Context, catalog.FetchQuery) (domain.Catalog, error) {
	return f.catalog, f.err
}

type fakeCatalog struct {
	categories []domain.Category
	err        error
}

func (f *fakeCatalog) Categories(context.Context) ([]domain.Category, error) {
	return f.categories, f.err
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

// memStore backs the history and visual stores in tests.
type memStore struct {
	hashes map[string]map[string]string
	lists  map[string][]string
	kv     map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{
		hashes: make(map[string]map[string]string),
		lists:  make(map[string][]string),
		kv:     make(map[string][]byte),
	}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.kv[key] = value
	return nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.kv[key] = value
	return nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	delete(m.kv, key)
	delete(m.hashes, key)
	delete(m.lists, key)
	return nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.kv[key]
	return ok, nil
}

func (m *memStore) HSet(_ context.Context, key string, fields map[string]string) error {
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *memStore) HGet(_ context.Context, key, field string) (string, error) {
	v, ok := m.hashes[key][field]
	if !ok {
		return "", db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) HDel(_ context.Context, key string, fields ...string) error {
	for _, f := range fields {
		delete(m.hashes[key], f)
	}
	return nil
}

func (m *memStore) LPush(_ context.Context, key string, values ...string) error {
	m.lists[key] = append(values, m.lists[key]...)
	return nil
}

func (m *memStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	list := m.lists[key]
	if start >= int64(len(list)) {
		return nil, nil
	}
	if stop < 0 || stop >= int64(len(list)) {
		stop = int64(len(list)) - 1
	}
	return append([]string(nil), list[start:stop+1]...), nil
}

func (m *memStore) LTrim(_ context.Context, key string, start, stop int64) error {
	list := m.lists[key]
	if start >= int64(len(list)) {
		m.lists[key] = nil
		return nil
	}
	if stop < 0 || stop >= int64(len(list)) {
		stop = int64(len(list)) - 1
	}
	m.lists[key] = list[start : stop+1]
	return nil
}

func (m *memStore) LRem(_ context.Context, key string, _ int64, value string) error {
	var out []string
	for _, v := range m.lists[key] {
		if v != value {
			out = append(out, v)
		}
	}
	m.lists[key] = out
	return nil
}

func testCatalog() domain.Catalog {
	return domain.Catalog{
		Products: []domain.Product{
			{ID: "p1", Name: "Wireless Headphones", Brand: "Soundly", Category: "Electronics",
				CategorySlug: "electronics", PriceMin: 79, PriceMax: 79, AverageRating: 4.6},
			{ID: "p2", Name: "Desk Lamp", Brand: "Lumo", Category: "Home & Garden",
				CategorySlug: "home-garden", PriceMin: 25, PriceMax: 25, AverageRating: 3.9},
			{ID: "p3", Name: "Bluetooth Speaker", Brand: "Soundly", Category: "Electronics",
				CategorySlug: "electronics", PriceMin: math.NaN(), PriceMax: math.NaN(), AverageRating: 4.9},
		},
		ProductsTotal: 3,
	}
}

func newTestServer(t *testing.T, fetcher sessionuc.CatalogFetcher, cat Catalog) (*Server, chi.Router) {
	t.Helper()

	mem := newMemStore()
	hist := history.NewStore(mem, mem, "test:", 50)
	visual := visualuc.New(mem, nil, visualuc.Config{})
	sessions := sessionuc.New(fetcher, visual, voiceuc.New(nil), hist, sessionuc.Config{PageSize: 20})
	suggest := suggestuc.New(nil, hist, nil, 10)

	srv := NewServer(sessions, suggest, voiceuc.New(nil), visual, hist, cat, &fakePinger{}, zap.NewNop())
	router := chi.NewRouter()
	srv.Register(router)
	return srv, router
}

func TestSearchProducts_FiltersApplied(t *testing.T) {
	_, router := newTestServer(t, &fakeFetcher{catalog: testCatalog()}, &fakeCatalog{})

	req := httptest.NewRequest("GET", "/api/v1/search/products?category=electronics&minRating=4", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (%s)", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Products) != 2 {
		t.Fatalf("products: got %d, want 2", len(resp.Products))
	}
	if resp.Products[0].ID != "p1" || resp.Products[1].ID != "p3" {
		t.Errorf("product order: got %s, %s, want p1, p3", resp.Products[0].ID, resp.Products[1].ID)
	}
	if resp.Products[1].PriceMin != nil {
		t.Errorf("unpriced product must omit price_min, got %v", *resp.Products[1].PriceMin)
	}
	if resp.TotalCount != 2 {
		t.Errorf("total_count: got %d, want 2", resp.TotalCount)
	}
}

func TestSearchProducts_FetchFailure_502(t *testing.T) {
	fetcher := &fakeFetcher{err: domain.NewFetchError("products", context.DeadlineExceeded)}
	_, router := newTestServer(t, fetcher, &fakeCatalog{})

	req := httptest.NewRequest("GET", "/api/v1/search/products?q=lamp", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadGateway)
	}

	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != codeUpstreamFailed {
		t.Errorf("error code: got %s, want %s", errResp.Code, codeUpstreamFailed)
	}
}

func TestSessionFlow_CreateApplyViewParams(t *testing.T) {
	_, router := newTestServer(t, &fakeFetcher{catalog: testCatalog()}, &fakeCatalog{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/sessions", http.NoBody))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status: got %d, want %d", rr.Code, http.StatusCreated)
	}
	var created struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.SessionID == "" {
		t.Fatal("empty session id")
	}

	body := `{"intents":[{"op":"set_query","field":"q","value":"speaker"},{"op":"set_filter","field":"category","value":"electronics"}]}`
	req := httptest.NewRequest("POST", "/api/v1/sessions/"+created.SessionID+"/intents", strings.NewReader(body))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("intents status: got %d, want %d (%s)", rr.Code, http.StatusOK, rr.Body.String())
	}
	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode intents response: %v", err)
	}
	if len(resp.Products) != 1 || resp.Products[0].ID != "p3" {
		t.Fatalf("intents products: got %+v, want only p3", resp.Products)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/sessions/"+created.SessionID+"/params", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("params status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var params struct {
		Params string `json:"params"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&params); err != nil {
		t.Fatalf("decode params response: %v", err)
	}
	if !strings.Contains(params.Params, "q=speaker") || !strings.Contains(params.Params, "category=electronics") {
		t.Errorf("params missing facets: %q", params.Params)
	}
}

func TestApplyIntents_UnknownSession_404(t *testing.T) {
	_, router := newTestServer(t, &fakeFetcher{catalog: testCatalog()}, &fakeCatalog{})

	body := `{"intents":[{"op":"apply"}]}`
	req := httptest.NewRequest("POST", "/api/v1/sessions/nope/intents", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != codeSessionNotFound {
		t.Errorf("error code: got %s, want %s", errResp.Code, codeSessionNotFound)
	}
}

func TestApplyIntents_EmptyBody_400(t *testing.T) {
	_, router := newTestServer(t, &fakeFetcher{catalog: testCatalog()}, &fakeCatalog{})

	req := httptest.NewRequest("POST", "/api/v1/sessions/any/intents", strings.NewReader(`{"intents":[]}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestVisualUpload_UnsupportedFormat_415(t *testing.T) {
	_, router := newTestServer(t, &fakeFetcher{catalog: testCatalog()}, &fakeCatalog{})

	req := httptest.NewRequest("POST", "/api/v1/visual-search/uploads", strings.NewReader("plainly not an image"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusUnsupportedMediaType)
	}
}

func TestVisualSearch_UnknownID_404(t *testing.T) {
	_, router := newTestServer(t, &fakeFetcher{catalog: testCatalog()}, &fakeCatalog{})

	req := httptest.NewRequest("POST", "/api/v1/visual-search/missing-id", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestVoiceSearch_DerivedFilters(t *testing.T) {
	_, router := newTestServer(t, &fakeFetcher{catalog: testCatalog()}, &fakeCatalog{})

	body := `{"text":"show me electronics under 100 dollars"}`
	req := httptest.NewRequest("POST", "/api/v1/voice-search", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (%s)", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp struct {
		Intent     string         `json:"intent"`
		Params     string         `json:"params"`
		Confidence float64        `json:"confidence"`
		Results    searchResponse `json:"results"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(resp.Params, "category=electronics") {
		t.Errorf("derived params missing category: %q", resp.Params)
	}
	if !strings.Contains(resp.Params, "maxPrice=100") {
		t.Errorf("derived params missing price cap: %q", resp.Params)
	}
	if resp.Results.Modality != "voice" {
		t.Errorf("results modality: got %q, want voice", resp.Results.Modality)
	}
}

func TestVoiceSearch_EmptyText_400(t *testing.T) {
	_, router := newTestServer(t, &fakeFetcher{catalog: testCatalog()}, &fakeCatalog{})

	req := httptest.NewRequest("POST", "/api/v1/voice-search", strings.NewReader(`{"text":""}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSavedFilters_RoundTrip(t *testing.T) {
	_, router := newTestServer(t, &fakeFetcher{catalog: testCatalog()}, &fakeCatalog{})

	put := httptest.NewRequest("PUT", "/api/v1/saved-filters/deals", strings.NewReader(`{"params":"category=electronics&maxPrice=50"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, put)
	if rr.Code != http.StatusOK {
		t.Fatalf("put status: got %d, want %d (%s)", rr.Code, http.StatusOK, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/saved-filters/deals", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("get status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var set history.SavedFilterSet
	if err := json.NewDecoder(rr.Body).Decode(&set); err != nil {
		t.Fatalf("decode saved filter set: %v", err)
	}
	if set.Name != "deals" || set.Params != "category=electronics&maxPrice=50" {
		t.Errorf("round trip mismatch: %+v", set)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("DELETE", "/api/v1/saved-filters/deals", http.NoBody))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status: got %d, want %d", rr.Code, http.StatusNoContent)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/saved-filters/deals", http.NoBody))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHistory_RecordedByStatelessSearch(t *testing.T) {
	_, router := newTestServer(t, &fakeFetcher{catalog: testCatalog()}, &fakeCatalog{})

	req := httptest.NewRequest("GET", "/api/v1/search/products?q=headphones", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("search status: got %d, want %d", rr.Code, http.StatusOK)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/history", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("history status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp struct {
		Entries []history.Entry `json:"entries"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].Query != "headphones" {
		t.Fatalf("history entries: got %+v, want one entry for headphones", resp.Entries)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("DELETE", "/api/v1/history", http.NoBody))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("clear status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestCategories(t *testing.T) {
	cat := &fakeCatalog{categories: []domain.Category{
		{ID: "1", Name: "Electronics", Slug: "electronics"},
	}}
	_, router := newTestServer(t, &fakeFetcher{catalog: testCatalog()}, cat)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/categories", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	var resp struct {
		Categories []categoryResponse `json:"categories"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Categories) != 1 || resp.Categories[0].Slug != "electronics" {
		t.Errorf("categories: got %+v", resp.Categories)
	}
}

func TestHealth_Unreachable_503(t *testing.T) {
	mem := newMemStore()
	hist := history.NewStore(mem, mem, "test:", 50)
	sessions := sessionuc.New(&fakeFetcher{}, nil, nil, hist, sessionuc.Config{})
	visual := visualuc.New(mem, nil, visualuc.Config{})
	suggest := suggestuc.New(nil, hist, nil, 10)

	srv := NewServer(sessions, suggest, voiceuc.New(nil), visual, hist, &fakeCatalog{},
		&fakePinger{err: context.DeadlineExceeded}, zap.NewNop())
	router := chi.NewRouter()
	srv.Register(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/health", http.NoBody))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}
