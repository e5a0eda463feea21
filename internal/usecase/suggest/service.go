// Package suggest blends three completion sources into one ranked list:
// upstream suggestions first, then matches from the user's own recent
// searches, then static trending terms.
package suggest

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/shopscope/shopscope/internal/logger"
)

// DefaultLimit bounds a suggestion response.
const DefaultLimit = 10

// defaultTrending backs the list when no trending feed is configured.
var defaultTrending = []string{
	"wireless headphones",
	"running shoes",
	"coffee maker",
	"laptop stand",
	"water bottle",
	"mechanical keyboard",
	"yoga mat",
}

// Source tells where a suggestion came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceHistory  Source = "history"
	SourceTrending Source = "trending"
)

// Suggestion is one completion candidate.
type Suggestion struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
}

// Service blends suggestion sources.
type Service struct {
	remote   Remote
	history  HistoryReader
	trending []string
	limit    int
}

// New creates a suggestion service. remote and hist may be nil; an
// empty trending list falls back to the built-in terms.
func New(remote Remote, hist HistoryReader, trending []string, limit int) *Service {
	if len(trending) == 0 {
		trending = defaultTrending
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{remote: remote, history: hist, trending: trending, limit: limit}
}

// Suggest returns up to limit completions for the prefix. Source
// failures degrade silently: a dead upstream still leaves history and
// trending suggestions.
func (s *Service) Suggest(ctx context.Context, prefix string, limit int) ([]Suggestion, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, nil
	}
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}

	out := make([]Suggestion, 0, limit)
	seen := make(map[string]struct{})
	add := func(text string, src Source) {
		key := strings.ToLower(strings.TrimSpace(text))
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, Suggestion{Text: text, Source: src})
	}

	if s.remote != nil {
		remote, err := s.remote.Suggestions(ctx, prefix, limit)
		if err != nil {
			logger.FromContext(ctx).Warn("remote suggestions unavailable", zap.Error(err))
		}
		for _, text := range remote {
			add(text, SourceRemote)
		}
	}

	lowered := strings.ToLower(prefix)
	if s.history != nil && len(out) < limit {
		entries, err := s.history.Recent(ctx, 0)
		if err != nil {
			logger.FromContext(ctx).Warn("history suggestions unavailable", zap.Error(err))
		}
		// The log is most recent first, so the first hit per query text
		// is also the one to display.
		for _, e := range entries {
			if strings.Contains(strings.ToLower(e.Query), lowered) {
				add(e.Query, SourceHistory)
			}
		}
	}

	if len(out) < limit {
		for _, term := range s.trending {
			if strings.Contains(strings.ToLower(term), lowered) {
				add(term, SourceTrending)
			}
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
