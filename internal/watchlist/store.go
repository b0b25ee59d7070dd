package watchlist

import (
	"time"

	"wyckoff_watcher/internal/models"
)

// Store is the in-memory watchlist for one run. It is loaded from the
// durable state at startup and written back by the runner exactly once,
// after all mutations. Set semantics, insertion order preserved.
type Store struct {
	entries []models.WatchEntry
	index   map[string]int
	dirty   bool
}

// NewStore wraps the entries loaded from the state file.
func NewStore(entries []models.WatchEntry) *Store {
	s := &Store{
		entries: make([]models.WatchEntry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if _, exists := s.index[e.Symbol]; exists {
			continue
		}
		s.index[e.Symbol] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return s
}

// Add watches a symbol. Adding an existing symbol is a no-op success;
// created reports whether a new entry was made.
func (s *Store) Add(symbol string, now time.Time) (created bool) {
	if _, exists := s.index[symbol]; exists {
		return false
	}
	s.index[symbol] = len(s.entries)
	s.entries = append(s.entries, models.WatchEntry{Symbol: symbol, AddedAt: now})
	s.dirty = true
	return true
}

// Remove stops watching a symbol. Removing an absent symbol is a no-op
// success; removed reports whether an entry existed.
func (s *Store) Remove(symbol string) (removed bool) {
	pos, exists := s.index[symbol]
	if !exists {
		return false
	}
	s.entries = append(s.entries[:pos], s.entries[pos+1:]...)
	delete(s.index, symbol)
	for i := pos; i < len(s.entries); i++ {
		s.index[s.entries[i].Symbol] = i
	}
	s.dirty = true
	return true
}

// List returns the entries in insertion order. The slice is a copy.
func (s *Store) List() []models.WatchEntry {
	out := make([]models.WatchEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Symbols returns just the symbols, in insertion order.
func (s *Store) Symbols() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Symbol
	}
	return out
}

// Len reports the number of watched symbols.
func (s *Store) Len() int {
	return len(s.entries)
}

// Dirty reports whether any mutating call changed the store this run.
func (s *Store) Dirty() bool {
	return s.dirty
}
