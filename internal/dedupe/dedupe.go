// Package dedupe collapses player records that share a derived id.
package dedupe

import (
	"iter"

	"github.com/albapepper/mercato-data/internal/market"
)

// Set holds exactly one record per id, iterated in order of first occurrence.
type Set struct {
	order []string
	byID  map[string]market.PlayerRecord
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{byID: make(map[string]market.PlayerRecord)}
}

// Add merges r into the set. A later record replaces the held one unless it
// has fewer populated optional fields; on equal completeness the later record
// wins.
func (s *Set) Add(r market.PlayerRecord) {
	cur, ok := s.byID[r.ID]
	if !ok {
		s.order = append(s.order, r.ID)
		s.byID[r.ID] = r
		return
	}
	if r.Completeness() >= cur.Completeness() {
		s.byID[r.ID] = r
	}
}

// Len returns the number of distinct ids.
func (s *Set) Len() int { return len(s.order) }

// Get returns the record held for id.
func (s *Set) Get(id string) (market.PlayerRecord, bool) {
	r, ok := s.byID[id]
	return r, ok
}

// IDs returns the ids in first-occurrence order.
func (s *Set) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Records returns the held records in first-occurrence order.
func (s *Set) Records() []market.PlayerRecord {
	out := make([]market.PlayerRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// All iterates id/record pairs in first-occurrence order.
func (s *Set) All() iter.Seq2[string, market.PlayerRecord] {
	return func(yield func(string, market.PlayerRecord) bool) {
		for _, id := range s.order {
			if !yield(id, s.byID[id]) {
				return
			}
		}
	}
}

// Values iterates the held records in first-occurrence order.
func (s *Set) Values() iter.Seq[market.PlayerRecord] {
	return func(yield func(market.PlayerRecord) bool) {
		for _, id := range s.order {
			if !yield(s.byID[id]) {
				return
			}
		}
	}
}

// Dedupe groups records by id.
func Dedupe(records iter.Seq[market.PlayerRecord]) *Set {
	s := NewSet()
	for r := range records {
		s.Add(r)
	}
	return s
}
