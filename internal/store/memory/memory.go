// Package memory is an in-process players collection used by dry runs and
// tests. It follows the same merge and ordering rules as the Postgres store.
package memory

import (
	"cmp"
	"context"
	"iter"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/albapepper/mercato-data/internal/market"
	"github.com/albapepper/mercato-data/internal/store"
)

// Store is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]map[string]any
	clock func() time.Time
}

// New returns an empty store stamping documents with time.Now.
func New() *Store {
	return &Store{docs: make(map[string]map[string]any), clock: time.Now}
}

// WithClock replaces the clock used for lastUpdated.
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

// Put stores doc under id as is, replacing any existing document.
func (s *Store) Put(id string, doc map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = maps.Clone(doc)
}

func (s *Store) UpsertBatch(ctx context.Context, records []market.PlayerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock().UTC().Format(time.RFC3339Nano)
	for _, r := range records {
		doc, ok := s.docs[r.ID]
		if !ok {
			doc = make(map[string]any)
			s.docs[r.ID] = doc
		}
		maps.Copy(doc, store.RecordFields(r))
		doc["lastUpdated"] = now
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return store.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	return store.FromMap(id, maps.Clone(doc)), nil
}

func (s *Store) List(ctx context.Context, f store.Filter) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Document
	for id, doc := range s.docs {
		d := store.FromMap(id, maps.Clone(doc))
		if f.Match(d) {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b store.Document) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) All(ctx context.Context) iter.Seq2[store.Document, error] {
	return func(yield func(store.Document, error) bool) {
		s.mu.RLock()
		ids := slices.Sorted(maps.Keys(s.docs))
		s.mu.RUnlock()

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				yield(store.Document{}, err)
				return
			}
			s.mu.RLock()
			doc, ok := s.docs[id]
			var d store.Document
			if ok {
				d = store.FromMap(id, maps.Clone(doc))
			}
			s.mu.RUnlock()
			if !ok {
				continue
			}
			if !yield(d, nil) {
				return
			}
		}
	}
}

func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func (s *Store) Delete(ctx context.Context, ids []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, id := range ids {
		if _, ok := s.docs[id]; ok {
			delete(s.docs, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) Clear(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.docs)
	clear(s.docs)
	return n, nil
}

var _ store.Collection = (*Store)(nil)
