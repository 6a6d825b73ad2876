// Package postgres stores the players collection as JSONB documents.
//
// Every query goes through a statement prepared by db.New, so the pool must
// come from there.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/mercato-data/internal/db"
	"github.com/albapepper/mercato-data/internal/market"
	"github.com/albapepper/mercato-data/internal/store"
)

// Store is the Postgres-backed players collection.
type Store struct {
	pool *db.Pool
}

// New wraps a pool created by db.New.
func New(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

// UpsertBatch merges all records in one transaction. Existing keys not
// written here survive the merge.
func (s *Store) UpsertBatch(ctx context.Context, records []market.PlayerRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		doc, err := store.EncodeRecord(r)
		if err != nil {
			return fmt.Errorf("encode %s: %w", r.ID, err)
		}
		batch.Queue("players_upsert", r.ID, string(doc))
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		br := tx.SendBatch(ctx, batch)
		for _, r := range records {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("upsert %s: %w", r.ID, err)
			}
		}
		return br.Close()
	})
}

func (s *Store) Get(ctx context.Context, id string) (store.Document, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, "players_get", id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Document{}, store.ErrNotFound
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("get player %s: %w", id, err)
	}
	return store.DecodeDocument(id, raw)
}

func (s *Store) List(ctx context.Context, f store.Filter) ([]store.Document, error) {
	var limit *int
	if f.Limit > 0 {
		limit = &f.Limit
	}
	rows, err := s.pool.Query(ctx, "players_list", f.Position, f.Search, limit)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var out []store.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) All(ctx context.Context) iter.Seq2[store.Document, error] {
	return func(yield func(store.Document, error) bool) {
		rows, err := s.pool.Query(ctx, "players_all")
		if err != nil {
			yield(store.Document{}, fmt.Errorf("scan players: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			d, err := scanDocument(rows)
			if err != nil {
				yield(store.Document{}, err)
				return
			}
			if !yield(d, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(store.Document{}, err)
		}
	}
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "players_count").Scan(&n); err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return n, nil
}

func (s *Store) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, "players_delete", ids)
	if err != nil {
		return 0, fmt.Errorf("delete players: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) Clear(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, "players_clear")
	if err != nil {
		return 0, fmt.Errorf("clear players: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanDocument(rows pgx.Rows) (store.Document, error) {
	var (
		id  string
		raw []byte
	)
	if err := rows.Scan(&id, &raw); err != nil {
		return store.Document{}, fmt.Errorf("scan player: %w", err)
	}
	return store.DecodeDocument(id, raw)
}

var _ store.Collection = (*Store)(nil)
