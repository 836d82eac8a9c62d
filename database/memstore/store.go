// Package memstore is an in-process implementation of the price bar and watchlist
// preference stores. It backs STORE_DRIVER=memory for local runs and end-to-end tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"trade-journal/database"
	models "trade-journal/database/models_pkg"
)

// Store keeps bars keyed on (symbol, date) and preferences keyed on (user, symbol)
type Store struct {
	mu    sync.RWMutex
	bars  map[string]models.PriceBar
	prefs map[string]map[string]bool // user -> symbol -> visible
	seq   int64
}

// New creates an empty Store
func New() *Store {
	return &Store{
		bars:  make(map[string]models.PriceBar),
		prefs: make(map[string]map[string]bool),
	}
}

// UpsertBars inserts new (symbol, date) rows and overwrites existing ones in place
func (s *Store) UpsertBars(_ context.Context, bars []models.PriceBar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, b := range bars {
		b.Date = truncateDay(b.Date)
		key := b.Key()
		if existing, ok := s.bars[key]; ok {
			b.ID = existing.ID
			b.CreatedAt = existing.CreatedAt
		} else {
			s.seq++
			b.ID = s.seq
			b.CreatedAt = now
		}
		b.UpdatedAt = now
		s.bars[key] = b
	}
	return nil
}

// PageBars returns rows with start <= date <= end ordered by (symbol, date), sliced by offset/limit
func (s *Store) PageBars(_ context.Context, start, end time.Time, limit, offset int) ([]models.PriceBar, error) {
	start, end = truncateDay(start), truncateDay(end)
	matching := s.sorted(func(b models.PriceBar) bool {
		return !b.Date.Before(start) && !b.Date.After(end)
	})

	if offset >= len(matching) {
		return []models.PriceBar{}, nil
	}
	stop := len(matching)
	if limit > 0 && offset+limit < stop {
		stop = offset + limit
	}
	page := make([]models.PriceBar, stop-offset)
	copy(page, matching[offset:stop])
	return page, nil
}

// LatestSnapshots returns the most recent bar per symbol, optionally restricted to symbols
func (s *Store) LatestSnapshots(_ context.Context, symbols []string) ([]models.LatestSnapshot, error) {
	var filter map[string]bool
	if len(symbols) > 0 {
		filter = make(map[string]bool, len(symbols))
		for _, sym := range symbols {
			filter[sym] = true
		}
	}

	all := s.sorted(func(b models.PriceBar) bool {
		return filter == nil || filter[b.Symbol]
	})

	var out []models.LatestSnapshot
	for i, b := range all {
		// rows are (symbol, date) ascending: the last row of each run is the latest
		if i+1 < len(all) && all[i+1].Symbol == b.Symbol {
			continue
		}
		out = append(out, models.LatestSnapshot{
			ID:            b.ID,
			Symbol:        b.Symbol,
			Date:          b.Date,
			Close:         b.Close,
			ChangePercent: b.ChangePercent,
		})
	}
	return out, nil
}

// VisibilityFor returns a copy of the user's symbol -> visible map
func (s *Store) VisibilityFor(_ context.Context, userID string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool, len(s.prefs[userID]))
	for sym, visible := range s.prefs[userID] {
		out[sym] = visible
	}
	return out, nil
}

// SetVisibility upserts preferences for the user
func (s *Store) SetVisibility(_ context.Context, userID string, prefs map[string]bool) error {
	if err := database.ValidatePreferences(userID, prefs); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.prefs[userID]
	if !ok {
		user = make(map[string]bool, len(prefs))
		s.prefs[userID] = user
	}
	for sym, visible := range prefs {
		user[sym] = visible
	}
	return nil
}

// Len returns the number of stored bars
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bars)
}

func (s *Store) sorted(keep func(models.PriceBar) bool) []models.PriceBar {
	s.mu.RLock()
	out := make([]models.PriceBar, 0, len(s.bars))
	for _, b := range s.bars {
		if keep(b) {
			out = append(out, b)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
