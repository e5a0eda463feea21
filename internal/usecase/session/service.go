// Package session owns the canonical filter state and orchestrates the
// fetch, match, sort and paginate pipeline behind it. Each session holds
// one filter state, one modality and the latest settled result view.
package session

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopscope/shopscope/internal/catalog"
	"github.com/shopscope/shopscope/internal/domain"
	"github.com/shopscope/shopscope/internal/domain/filterstate"
	"github.com/shopscope/shopscope/internal/domain/match"
	"github.com/shopscope/shopscope/internal/domain/modality"
	"github.com/shopscope/shopscope/internal/domain/page"
	"github.com/shopscope/shopscope/internal/domain/sorting"
	"github.com/shopscope/shopscope/internal/domain/view"
	"github.com/shopscope/shopscope/internal/logger"
	"github.com/shopscope/shopscope/internal/metrics"
	"github.com/shopscope/shopscope/internal/repository/history"
)

// Config tunes the orchestrator.
type Config struct {
	DebounceInterval time.Duration
	IdleTimeout      time.Duration
	PageSize         int
}

// Service manages search sessions.
type Service struct {
	fetcher CatalogFetcher
	visual  VisualSearcher
	voice   VoiceParser
	history History
	cfg     Config

	// schedule is swapped in tests to fire debounced work by hand.
	schedule scheduleFunc

	mu       sync.Mutex
	sessions map[string]*state
}

// state is one live session. Its mutex guards everything below it; the
// token implements "last request wins": every search pass takes a fresh
// token and only the pass still holding the latest one may install its
// result.
type state struct {
	mu       sync.Mutex
	filters  filterstate.State
	mod      modality.Modality
	visualID string
	current  view.SearchResult
	token    uint64
	deb      *debouncer
	lastSeen time.Time
}

// New creates the session service. visual, voice and hist may be nil
// when the corresponding modality is not deployed.
func New(fetcher CatalogFetcher, visual VisualSearcher, voice VoiceParser, hist History, cfg Config) *Service {
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = 500 * time.Millisecond
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = page.DefaultSize
	}
	return &Service{
		fetcher:  fetcher,
		visual:   visual,
		voice:    voice,
		history:  hist,
		cfg:      cfg,
		sessions: make(map[string]*state),
	}
}

// Create opens a new session with default filters and returns its id.
func (s *Service) Create(context.Context) string {
	id := uuid.NewString()
	sess := &state{
		filters:  filterstate.Default(),
		mod:      modality.Text,
		lastSeen: time.Now(),
	}
	sess.deb = newDebouncer(s.cfg.DebounceInterval, s.schedule)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	return id
}

func (s *Service) get(id string) (*state, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if time.Since(sess.lastSeen) > s.cfg.IdleTimeout {
		delete(s.sessions, id)
		return nil, domain.ErrSessionNotFound
	}
	sess.lastSeen = time.Now()
	return sess, nil
}

// PruneIdle drops sessions idle past the timeout. Meant to run on a
// ticker from the composition root.
func (s *Service) PruneIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pruned int
	for id, sess := range s.sessions {
		if time.Since(sess.lastSeen) > s.cfg.IdleTimeout {
			delete(s.sessions, id)
			pruned++
		}
	}
	return pruned
}

// View returns the latest settled result snapshot.
func (s *Service) View(_ context.Context, id string) (view.SearchResult, error) {
	sess, err := s.get(id)
	if err != nil {
		return view.SearchResult{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.current.Clone(), nil
}

// Params returns the session's shareable navigation parameters.
func (s *Service) Params(_ context.Context, id string) (url.Values, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.filters.NavigationParams(), nil
}

// Restore replaces the session's filters from navigation parameters,
// as when a shared URL is opened, and runs a search pass.
func (s *Service) Restore(ctx context.Context, id string, params url.Values) (view.SearchResult, error) {
	sess, err := s.get(id)
	if err != nil {
		return view.SearchResult{}, err
	}
	sess.mu.Lock()
	sess.filters = filterstate.FromNavigationParams(params)
	sess.mu.Unlock()

	s.runSearch(ctx, sess)
	return s.View(ctx, id)
}

// Apply executes intents in order and returns the resulting view. Price
// bound mutations are committed immediately but their search pass waits
// for the debounce window; the returned view then still reflects the
// previous settled pass.
func (s *Service) Apply(ctx context.Context, id string, intents []Intent) (view.SearchResult, error) {
	sess, err := s.get(id)
	if err != nil {
		return view.SearchResult{}, err
	}

	var needsSearch, debounced bool
	for _, intent := range intents {
		search, deb, err := s.applyIntent(ctx, sess, intent)
		if err != nil {
			return view.SearchResult{}, err
		}
		needsSearch = needsSearch || search
		debounced = debounced || deb
	}

	if needsSearch {
		s.runSearch(ctx, sess)
	} else if debounced {
		detached := context.WithoutCancel(ctx)
		sess.deb.Trigger(func() { s.runSearch(detached, sess) })
	}
	return s.View(ctx, id)
}

// applyIntent mutates session state for one intent. It reports whether
// an immediate search pass is needed and whether a debounced one is.
func (s *Service) applyIntent(ctx context.Context, sess *state, intent Intent) (search, debounced bool, err error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	switch intent.Op {
	case OpSetQuery:
		sess.filters.QueryText = intent.Value
		sess.filters.Page = 1
		return true, false, nil

	case OpSetFilter:
		deb, err := applyField(&sess.filters, intent.Field, intent.Value)
		if err != nil {
			return false, false, err
		}
		sess.filters.Page = 1
		sess.filters.Clamp()
		return !deb, deb, nil

	case OpReset:
		sess.filters.Reset()
		sess.deb.Cancel()
		return true, false, nil

	case OpApply:
		// Manual re-apply: flush any pending debounce and search now.
		sess.deb.Cancel()
		return true, false, nil

	case OpRequestPage:
		p := intent.Page
		if p < 1 {
			p = 1
		}
		sess.filters.Page = p
		return true, false, nil

	case OpSetModality:
		return s.applyModality(ctx, sess, intent)

	default:
		return false, false, fmt.Errorf("%w: unknown intent %q", domain.ErrInvalidInput, intent.Op)
	}
}

// applyModality switches the session's modality. The prior view is
// discarded wholesale; results from the old modality never bleed into
// the new one. Called with sess.mu held.
func (s *Service) applyModality(ctx context.Context, sess *state, intent Intent) (bool, bool, error) {
	mod := modality.Modality(intent.Modality)
	if !mod.IsValid() {
		return false, false, fmt.Errorf("%w: unknown modality %q", domain.ErrInvalidInput, intent.Modality)
	}

	sess.mod = mod
	sess.current = view.SearchResult{}
	sess.filters.Page = 1
	sess.deb.Cancel()

	switch mod {
	case modality.Visual:
		sess.filters.Tab = filterstate.TabProducts
		sess.visualID = intent.SearchID
		return intent.SearchID != "", false, nil

	case modality.Voice:
		if intent.Text == "" {
			return false, false, nil
		}
		if s.voice == nil {
			return false, false, fmt.Errorf("%w: voice search not configured", domain.ErrInvalidInput)
		}
		params, err := s.voice.Derive(ctx, intent.Text)
		if err != nil {
			return false, false, fmt.Errorf("derive voice params: %w", err)
		}
		// Derived facets travel the same mutation path as user edits.
		for key := range params {
			if _, aerr := applyField(&sess.filters, key, params.Get(key)); aerr != nil {
				logger.FromContext(ctx).Debug("voice param skipped", zap.String("key", key))
			}
		}
		sess.filters.Page = 1
		sess.filters.Clamp()
		return true, false, nil
	}
	return true, false, nil
}

// runSearch executes one search pass under the race guard. The fetch is
// never aborted once started; if a newer pass was issued meanwhile, the
// finished result is dropped silently.
func (s *Service) runSearch(ctx context.Context, sess *state) {
	sess.mu.Lock()
	sess.token++
	token := sess.token
	filters := sess.filters
	mod := sess.mod
	visualID := sess.visualID
	sess.mu.Unlock()

	var result view.SearchResult
	if mod == modality.Visual {
		result = s.SearchVisual(ctx, filters, visualID)
	} else {
		result = s.Search(ctx, filters, mod)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if token != sess.token {
		metrics.StaleResponsesDropped.Inc()
		return
	}
	sess.current = result
}

// Search runs the stateless fetch, match, sort, paginate pipeline for
// the text and voice modalities. A fetch failure of one collection
// degrades the view; the error rides along in the result for the
// caller to surface.
func (s *Service) Search(ctx context.Context, filters filterstate.State, mod modality.Modality) view.SearchResult {
	filters.Clamp()

	cat, fetchErr := s.fetcher.Fetch(ctx, catalog.FetchQuery{
		Query:          filters.QueryText,
		IncludeReviews: mod.HasReviews(),
	})

	products := make([]domain.Product, 0, len(cat.Products))
	for i := range cat.Products {
		if match.Product(&cat.Products[i], &filters) {
			products = append(products, cat.Products[i])
		}
	}
	sorting.Products(products, filters.SortBy)

	var reviews []domain.Review
	if mod.HasReviews() {
		reviews = make([]domain.Review, 0, len(cat.Reviews))
		for i := range cat.Reviews {
			name, brand := cat.ResolveProduct(&cat.Reviews[i])
			if match.Review(&cat.Reviews[i], &filters, name, brand) {
				reviews = append(reviews, cat.Reviews[i])
			}
		}
		sorting.Reviews(reviews, filters.SortBy)
	}

	result := view.SearchResult{
		Modality: mod,
		Tab:      filters.Tab,
		Err:      fetchErr,
	}
	if filters.Tab == filterstate.TabReviews && mod.HasReviews() {
		pg := page.Paginate(reviews, filters.Page, s.cfg.PageSize)
		result.Reviews = pg.Items
		result.TotalCount = len(reviews)
		result.Page = pg.Number
		result.HasNext = pg.HasNext
		result.HasPrevious = pg.HasPrevious
	} else {
		pg := page.Paginate(products, filters.Page, s.cfg.PageSize)
		result.Products = pg.Items
		result.TotalCount = len(products)
		result.Page = pg.Number
		result.HasNext = pg.HasNext
		result.HasPrevious = pg.HasPrevious
	}

	metrics.SearchesTotal.WithLabelValues(string(mod)).Inc()
	s.record(ctx, filters, mod, result)
	return result
}

// SearchVisual resolves a registered upload into similar products and runs
// them through the same local filter pipeline. Hits arrive pre-ranked by
// similarity, so relevance order is the provider's order.
func (s *Service) SearchVisual(ctx context.Context, filters filterstate.State, searchID string) view.SearchResult {
	result := view.SearchResult{
		Modality: modality.Visual,
		Tab:      filterstate.TabProducts,
		Page:     1,
	}
	if s.visual == nil || searchID == "" {
		return result
	}

	hits, err := s.visual.Search(ctx, searchID)
	if err != nil {
		result.Err = err
		return result
	}

	filters.Clamp()
	products := make([]domain.Product, 0, len(hits))
	for i := range hits {
		if match.Product(&hits[i], &filters) {
			products = append(products, hits[i])
		}
	}
	sorting.Products(products, filters.SortBy)

	pg := page.Paginate(products, filters.Page, s.cfg.PageSize)
	result.Products = pg.Items
	result.TotalCount = len(products)
	result.Page = pg.Number
	result.HasNext = pg.HasNext
	result.HasPrevious = pg.HasPrevious

	metrics.SearchesTotal.WithLabelValues(string(modality.Visual)).Inc()
	return result
}

// record appends the search to history. Empty browses are not recorded.
func (s *Service) record(ctx context.Context, filters filterstate.State, mod modality.Modality, result view.SearchResult) {
	if s.history == nil || result.Err != nil {
		return
	}
	if filters.QueryText == "" && !filters.HasActiveFacets() {
		return
	}
	s.history.Record(ctx, history.Entry{
		Query:       filters.QueryText,
		Params:      filters.NavigationParams().Encode(),
		Modality:    string(mod),
		ResultCount: result.TotalCount,
	})
}
