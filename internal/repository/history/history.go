// Package history persists the recent-search log, named filter-set
// snapshots and bookmarked result ids. Storage failures on writes are
// tolerated: a broken history must never break search itself.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/shopscope/shopscope/internal/db"
	"github.com/shopscope/shopscope/internal/logger"
)

// DefaultCap bounds the recent-search log.
const DefaultCap = 100

const savedIDsCap = 200

// Entry is one recorded search, most recent first.
type Entry struct {
	Query       string    `json:"query"`
	Params      string    `json:"params"` // encoded navigation params
	Modality    string    `json:"modality"`
	ResultCount int       `json:"result_count"`
	At          time.Time `json:"at"`
}

// SavedFilterSet is a named filter snapshot.
type SavedFilterSet struct {
	Name   string `json:"name"`
	Params string `json:"params"`
}

// NavValues decodes the stored navigation params.
func (s SavedFilterSet) NavValues() url.Values {
	v, err := url.ParseQuery(s.Params)
	if err != nil {
		return url.Values{}
	}
	return v
}

// Store persists history in redis via the db facade.
type Store struct {
	hash   db.HashStore
	list   db.ListStore
	prefix string
	cap    int
}

// NewStore creates a history store. capacity <= 0 falls back to DefaultCap.
func NewStore(hash db.HashStore, list db.ListStore, keyPrefix string, capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Store{hash: hash, list: list, prefix: keyPrefix, cap: capacity}
}

func (s *Store) recentKey() string  { return s.prefix + "history:recent" }
func (s *Store) filtersKey() string { return s.prefix + "filters:saved" }
func (s *Store) savedKey() string   { return s.prefix + "results:saved" }

// Record appends a search to the log and trims it to capacity. Failures
// are logged and swallowed.
func (s *Store) Record(ctx context.Context, e Entry) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	log := logger.FromContext(ctx)
	if err := s.list.LPush(ctx, s.recentKey(), string(data)); err != nil {
		log.Warn("history append failed", zap.Error(err))
		return
	}
	if err := s.list.LTrim(ctx, s.recentKey(), 0, int64(s.cap-1)); err != nil {
		log.Warn("history trim failed", zap.Error(err))
	}
}

// Recent returns up to limit entries, most recent first. Corrupt records
// are skipped, not surfaced.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.cap {
		limit = s.cap
	}
	raw, err := s.list.LRange(ctx, s.recentKey(), 0, int64(limit-1))
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Clear drops the whole recent-search log.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.list.Del(ctx, s.recentKey()); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// SaveFilterSet stores a named snapshot, overwriting any previous one
// under the same name.
func (s *Store) SaveFilterSet(ctx context.Context, set SavedFilterSet) error {
	if set.Name == "" {
		return fmt.Errorf("filter set name is required")
	}
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode filter set: %w", err)
	}
	if err := s.hash.HSet(ctx, s.filtersKey(), map[string]string{set.Name: string(data)}); err != nil {
		return fmt.Errorf("save filter set: %w", err)
	}
	return nil
}

// FilterSet returns one named snapshot, db.ErrKeyNotFound if absent.
func (s *Store) FilterSet(ctx context.Context, name string) (SavedFilterSet, error) {
	raw, err := s.hash.HGet(ctx, s.filtersKey(), name)
	if err != nil {
		return SavedFilterSet{}, err
	}
	var set SavedFilterSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return SavedFilterSet{}, db.ErrKeyNotFound
	}
	return set, nil
}

// FilterSets lists all snapshots. Corrupt values are skipped.
func (s *Store) FilterSets(ctx context.Context) ([]SavedFilterSet, error) {
	m, err := s.hash.HGetAll(ctx, s.filtersKey())
	if err != nil {
		return nil, fmt.Errorf("list filter sets: %w", err)
	}
	sets := make([]SavedFilterSet, 0, len(m))
	for _, raw := range m {
		var set SavedFilterSet
		if err := json.Unmarshal([]byte(raw), &set); err != nil {
			continue
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// DeleteFilterSet removes one snapshot; deleting an absent name is a no-op.
func (s *Store) DeleteFilterSet(ctx context.Context, name string) error {
	if err := s.hash.HDel(ctx, s.filtersKey(), name); err != nil {
		return fmt.Errorf("delete filter set: %w", err)
	}
	return nil
}

// SaveResult bookmarks a result id at the head of the saved list.
func (s *Store) SaveResult(ctx context.Context, id string) error {
	if err := s.list.LRem(ctx, s.savedKey(), 0, id); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	if err := s.list.LPush(ctx, s.savedKey(), id); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	if err := s.list.LTrim(ctx, s.savedKey(), 0, savedIDsCap-1); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

// SavedResults lists bookmarked ids, most recent first.
func (s *Store) SavedResults(ctx context.Context) ([]string, error) {
	ids, err := s.list.LRange(ctx, s.savedKey(), 0, savedIDsCap-1)
	if err != nil {
		return nil, fmt.Errorf("list saved results: %w", err)
	}
	return ids, nil
}

// RemoveResult drops a bookmark.
func (s *Store) RemoveResult(ctx context.Context, id string) error {
	if err := s.list.LRem(ctx, s.savedKey(), 0, id); err != nil {
		return fmt.Errorf("remove result: %w", err)
	}
	return nil
}
