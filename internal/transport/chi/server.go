// Package chi exposes the search orchestrator over HTTP. Routes are
// registered on a chi router; domain sentinels map to statuses through
// an ordered handler chain.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shopscope/shopscope/internal/db"
	"github.com/shopscope/shopscope/internal/domain"
	"github.com/shopscope/shopscope/internal/domain/filterstate"
	"github.com/shopscope/shopscope/internal/domain/modality"
	"github.com/shopscope/shopscope/internal/domain/view"
	"github.com/shopscope/shopscope/internal/repository/history"
	sessionuc "github.com/shopscope/shopscope/internal/usecase/session"
	suggestuc "github.com/shopscope/shopscope/internal/usecase/suggest"
	visualuc "github.com/shopscope/shopscope/internal/usecase/visual"
	voiceuc "github.com/shopscope/shopscope/internal/usecase/voice"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// errorCode labels an error response for clients.
type errorCode string

const (
	codeBadRequest       errorCode = "bad_request"
	codeValidationFailed errorCode = "validation_failed"
	codeNotFound         errorCode = "not_found"
	codeSessionNotFound  errorCode = "session_not_found"
	codePayloadTooLarge  errorCode = "payload_too_large"
	codeUnsupportedMedia errorCode = "unsupported_media_type"
	codeUpstreamFailed   errorCode = "catalog_unavailable"
	codeUnauthorized     errorCode = "unauthorized"
	codeInternalError    errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// Catalog is the slice of the catalog client the transport needs.
type Catalog interface {
	Categories(ctx context.Context) ([]domain.Category, error)
}

// Server wires the usecases to HTTP handlers.
type Server struct {
	sessions      *sessionuc.Service
	suggest       *suggestuc.Service
	voice         *voiceuc.Service
	visual        *visualuc.Service
	history       *history.Store
	catalog       Catalog
	store         db.Pinger
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	sessions *sessionuc.Service,
	suggest *suggestuc.Service,
	voice *voiceuc.Service,
	visual *visualuc.Service,
	hist *history.Store,
	cat Catalog,
	store db.Pinger,
	logger *zap.Logger,
) *Server {
	s := &Server{
		sessions: sessions,
		suggest:  suggest,
		voice:    voice,
		visual:   visual,
		history:  hist,
		catalog:  cat,
		store:    store,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, codeSessionNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrImageTooLarge, http.StatusRequestEntityTooLarge, codePayloadTooLarge),
		sentinelHandler(domain.ErrUnsupportedImage, http.StatusUnsupportedMediaType, codeUnsupportedMedia),
		sentinelHandler(domain.ErrFetchFailed, http.StatusBadGateway, codeUpstreamFailed),
	}
	return s
}

// Register mounts all API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search/products", s.SearchProducts)
		r.Get("/search/reviews", s.SearchReviews)
		r.Get("/search/suggestions", s.Suggestions)
		r.Get("/categories", s.Categories)

		r.Post("/visual-search/uploads", s.VisualUpload)
		r.Post("/visual-search/{searchID}", s.VisualSearch)

		r.Post("/voice-search", s.VoiceSearch)

		r.Post("/sessions", s.CreateSession)
		r.Post("/sessions/{id}/intents", s.ApplyIntents)
		r.Get("/sessions/{id}/view", s.SessionView)
		r.Get("/sessions/{id}/params", s.SessionParams)
		r.Put("/sessions/{id}/params", s.RestoreSession)

		r.Get("/history", s.History)
		r.Delete("/history", s.ClearHistory)

		r.Get("/saved-filters", s.SavedFilterSets)
		r.Get("/saved-filters/{name}", s.SavedFilterSet)
		r.Put("/saved-filters/{name}", s.SaveFilterSet)
		r.Delete("/saved-filters/{name}", s.DeleteFilterSet)

		r.Get("/saved-results", s.SavedResults)
		r.Put("/saved-results/{id}", s.SaveResult)
		r.Delete("/saved-results/{id}", s.RemoveResult)
	})
}

// SearchProducts handles GET /api/v1/search/products.
func (s *Server) SearchProducts(w http.ResponseWriter, r *http.Request) {
	state := filterstate.FromNavigationParams(r.URL.Query())
	state.Tab = filterstate.TabProducts
	s.respondSearch(w, s.sessions.Search(r.Context(), state, modality.Text))
}

// SearchReviews handles GET /api/v1/search/reviews.
func (s *Server) SearchReviews(w http.ResponseWriter, r *http.Request) {
	state := filterstate.FromNavigationParams(r.URL.Query())
	state.Tab = filterstate.TabReviews
	s.respondSearch(w, s.sessions.Search(r.Context(), state, modality.Text))
}

// Suggestions handles GET /api/v1/search/suggestions.
func (s *Server) Suggestions(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("q")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	items, err := s.suggest.Suggest(r.Context(), prefix, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":       prefix,
		"suggestions": items,
	})
}

// Categories handles GET /api/v1/categories.
func (s *Server) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.catalog.Categories(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	items := make([]categoryResponse, len(cats))
	for i, c := range cats {
		items[i] = categoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": items})
}

// VisualUpload handles POST /api/v1/visual-search/uploads.
func (s *Server) VisualUpload(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, visualuc.MaxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "failed to read image body")
		return
	}

	id, err := s.visual.Upload(r.Context(), data)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"search_id": id})
}

// VisualSearch handles POST /api/v1/visual-search/{searchID}. Filters
// arrive as navigation params on the query string and are applied
// locally to the provider's ranked hits.
func (s *Server) VisualSearch(w http.ResponseWriter, r *http.Request) {
	searchID := chi.URLParam(r, "searchID")
	state := filterstate.FromNavigationParams(r.URL.Query())

	result := s.sessions.SearchVisual(r.Context(), state, searchID)
	if result.Err != nil {
		s.handleDomainError(w, result.Err)
		return
	}
	writeJSON(w, http.StatusOK, viewToAPI(result))
}

// VoiceSearch handles POST /api/v1/voice-search. The utterance is
// classified, entities become navigation params and the derived state
// is searched immediately.
func (s *Server) VoiceSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "text is required")
		return
	}

	result, err := s.voice.Process(r.Context(), req.Text)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	params := result.SearchParams()
	state := filterstate.FromNavigationParams(params)
	res := s.sessions.Search(r.Context(), state, modality.Voice)

	writeJSON(w, http.StatusOK, map[string]any{
		"original_text":  result.OriginalText,
		"processed_text": result.ProcessedText,
		"intent":         result.Intent,
		"entities":       result.Entities,
		"confidence":     result.Confidence,
		"params":         params.Encode(),
		"results":        viewToAPI(res),
	})
}

// CreateSession handles POST /api/v1/sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	id := s.sessions.Create(r.Context())
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

// ApplyIntents handles POST /api/v1/sessions/{id}/intents. The
// returned view reflects immediate intents; debounced price mutations
// settle asynchronously and show up on the next view read.
func (s *Server) ApplyIntents(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Intents []sessionuc.Intent `json:"intents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Intents) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "at least one intent is required")
		return
	}

	res, err := s.sessions.Apply(r.Context(), chi.URLParam(r, "id"), req.Intents)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewToAPI(res))
}

// SessionView handles GET /api/v1/sessions/{id}/view.
func (s *Server) SessionView(w http.ResponseWriter, r *http.Request) {
	res, err := s.sessions.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewToAPI(res))
}

// SessionParams handles GET /api/v1/sessions/{id}/params.
func (s *Server) SessionParams(w http.ResponseWriter, r *http.Request) {
	values, err := s.sessions.Params(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"params": values.Encode(),
		"values": values,
	})
}

// RestoreSession handles PUT /api/v1/sessions/{id}/params. The session
// state is rebuilt from the shared navigation params and searched.
func (s *Server) RestoreSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Params string `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	values, err := url.ParseQuery(req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "params must be a url-encoded query string")
		return
	}

	res, err := s.sessions.Restore(r.Context(), chi.URLParam(r, "id"), values)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewToAPI(res))
}

// History handles GET /api/v1/history.
func (s *Server) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// ClearHistory handles DELETE /api/v1/history.
func (s *Server) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Clear(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SavedFilterSets handles GET /api/v1/saved-filters.
func (s *Server) SavedFilterSets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.history.FilterSets(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if sets == nil {
		sets = []history.SavedFilterSet{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"filter_sets": sets})
}

// SavedFilterSet handles GET /api/v1/saved-filters/{name}.
func (s *Server) SavedFilterSet(w http.ResponseWriter, r *http.Request) {
	set, err := s.history.FilterSet(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, "filter set not found")
			return
		}
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// SaveFilterSet handles PUT /api/v1/saved-filters/{name}.
func (s *Server) SaveFilterSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Params string `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if _, err := url.ParseQuery(req.Params); err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "params must be a url-encoded query string")
		return
	}

	set := history.SavedFilterSet{Name: chi.URLParam(r, "name"), Params: req.Params}
	if set.Name == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "filter set name is required")
		return
	}
	if err := s.history.SaveFilterSet(r.Context(), set); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

// DeleteFilterSet handles DELETE /api/v1/saved-filters/{name}.
func (s *Server) DeleteFilterSet(w http.ResponseWriter, r *http.Request) {
	if err := s.history.DeleteFilterSet(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SavedResults handles GET /api/v1/saved-results.
func (s *Server) SavedResults(w http.ResponseWriter, r *http.Request) {
	ids, err := s.history.SavedResults(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ids": ids})
}

// SaveResult handles PUT /api/v1/saved-results/{id}.
func (s *Server) SaveResult(w http.ResponseWriter, r *http.Request) {
	if err := s.history.SaveResult(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveResult handles DELETE /api/v1/saved-results/{id}.
func (s *Server) RemoveResult(w http.ResponseWriter, r *http.Request) {
	if err := s.history.RemoveResult(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"storage": "ok"}
	status := "ok"
	httpStatus := http.StatusOK

	if err := s.store.Ping(r.Context()); err != nil {
		checks["storage"] = "unreachable"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// respondSearch writes a settled stateless search. A fetch failure with
// nothing to show maps to a status; partial results ride along with the
// error string.
func (s *Server) respondSearch(w http.ResponseWriter, res view.SearchResult) {
	if res.Err != nil && res.TotalCount == 0 {
		s.handleDomainError(w, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, viewToAPI(res))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	var fe *domain.FetchError
	if errors.As(err, &fe) {
		return domain.ErrFetchFailed.Error() + ": " + fe.Collection
	}
	sentinels := []error{
		domain.ErrSessionNotFound,
		domain.ErrNotFound,
		domain.ErrInvalidInput,
		domain.ErrImageTooLarge,
		domain.ErrUnsupportedImage,
		domain.ErrFetchFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

type productResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Brand         string     `json:"brand,omitempty"`
	Category      string     `json:"category,omitempty"`
	CategorySlug  string     `json:"category_slug,omitempty"`
	CategoryID    string     `json:"category_id,omitempty"`
	PriceMin      *float64   `json:"price_min,omitempty"`
	PriceMax      *float64   `json:"price_max,omitempty"`
	AverageRating float64    `json:"average_rating"`
	ReviewCount   int        `json:"review_count"`
	Description   string     `json:"description,omitempty"`
	ImageURL      string     `json:"image_url,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

type reviewResponse struct {
	ID           string     `json:"id"`
	Rating       int        `json:"rating"`
	Title        string     `json:"title,omitempty"`
	Body         string     `json:"body,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	ProductID    string     `json:"product_id,omitempty"`
	ProductName  string     `json:"product_name,omitempty"`
	ProductBrand string     `json:"product_brand,omitempty"`
	Verified     bool       `json:"verified"`
	HasImages    bool       `json:"has_images"`
}

type categoryResponse struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type searchResponse struct {
	Modality    string            `json:"modality"`
	Tab         string            `json:"tab"`
	Products    []productResponse `json:"products,omitempty"`
	Reviews     []reviewResponse  `json:"reviews,omitempty"`
	TotalCount  int               `json:"total_count"`
	Page        int               `json:"page"`
	HasNext     bool              `json:"has_next"`
	HasPrevious bool              `json:"has_previous"`
	Error       string            `json:"error,omitempty"`
}

func productToAPI(p domain.Product) productResponse {
	out := productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Brand:         p.Brand,
		Category:      p.Category,
		CategorySlug:  p.CategorySlug,
		CategoryID:    p.CategoryID,
		AverageRating: p.AverageRating,
		ReviewCount:   p.ReviewCount,
		Description:   p.Description,
		ImageURL:      p.ImageURL,
	}
	if p.HasPrice() {
		pmin, pmax := p.PriceMin, p.PriceMax
		out.PriceMin = &pmin
		out.PriceMax = &pmax
	}
	if !p.CreatedAt.IsZero() {
		t := p.CreatedAt
		out.CreatedAt = &t
	}
	return out
}

func reviewToAPI(r domain.Review) reviewResponse {
	out := reviewResponse{
		ID:           r.ID,
		Rating:       r.Rating,
		Title:        r.Title,
		Body:         r.Body,
		ProductID:    r.ProductID,
		ProductName:  r.ProductName,
		ProductBrand: r.ProductBrand,
		Verified:     r.Verified,
		HasImages:    r.HasImages,
	}
	if !r.CreatedAt.IsZero() {
		t := r.CreatedAt
		out.CreatedAt = &t
	}
	return out
}

func viewToAPI(v view.SearchResult) searchResponse {
	resp := searchResponse{
		Modality:    string(v.Modality),
		Tab:         string(v.Tab),
		TotalCount:  v.TotalCount,
		Page:        v.Page,
		HasNext:     v.HasNext,
		HasPrevious: v.HasPrevious,
	}
	if len(v.Products) > 0 {
		resp.Products = make([]productResponse, len(v.Products))
		for i, p := range v.Products {
			resp.Products[i] = productToAPI(p)
		}
	}
	if len(v.Reviews) > 0 {
		resp.Reviews = make([]reviewResponse, len(v.Reviews))
		for i, r := range v.Reviews {
			resp.Reviews[i] = reviewToAPI(r)
		}
	}
	if v.Err != nil {
		resp.Error = safeDomainMessage(v.Err)
	}
	return resp
}
