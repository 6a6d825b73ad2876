// Package runlog keeps a bounded log of scrape run outcomes.
package runlog

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/albapepper/mercato-data/internal/db"
)

// DefaultLimit is how many entries are kept.
const DefaultLimit = 50

// MaxSummary bounds the stored summary, in runes.
const MaxSummary = 1000

// Entry is one run outcome.
type Entry struct {
	ID         int64     `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Success    bool      `json:"success"`
	Summary    string    `json:"summary"`
}

// Log is an append-only window of the most recent entries.
type Log interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, n int) ([]Entry, error)
}

// Truncate cuts s to max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}

// ---------------------------------------------------------------------------
// Postgres
// ---------------------------------------------------------------------------

// Postgres persists entries in the scrape_runs table.
type Postgres struct {
	pool  *db.Pool
	limit int
}

// NewPostgres creates a log trimmed to limit entries.
func NewPostgres(pool *db.Pool, limit int) *Postgres {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Postgres{pool: pool, limit: limit}
}

// Append inserts e and trims older entries in the same transaction.
func (p *Postgres) Append(ctx context.Context, e Entry) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin run log tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	if err := tx.QueryRow(ctx, "runs_insert", e.StartedAt, e.FinishedAt, e.Success, Truncate(e.Summary, MaxSummary)).Scan(&id); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	if _, err := tx.Exec(ctx, "runs_trim", p.limit); err != nil {
		return fmt.Errorf("trim run log: %w", err)
	}
	return tx.Commit(ctx)
}

// Recent returns up to n entries, newest first.
func (p *Postgres) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 || n > p.limit {
		n = p.limit
	}
	rows, err := p.pool.Query(ctx, "runs_recent", n)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.StartedAt, &e.FinishedAt, &e.Success, &e.Summary); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Memory
// ---------------------------------------------------------------------------

// Memory keeps entries in process. Used by dry runs and tests.
type Memory struct {
	mu      sync.Mutex
	limit   int
	nextID  int64
	entries []Entry // oldest first
}

// NewMemory creates an in-process log trimmed to limit entries.
func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Memory{limit: limit}
}

func (m *Memory) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	e.ID = m.nextID
	e.Summary = Truncate(e.Summary, MaxSummary)
	m.entries = append(m.entries, e)
	if over := len(m.entries) - m.limit; over > 0 {
		m.entries = slices.Delete(m.entries, 0, over)
	}
	return nil
}

func (m *Memory) Recent(_ context.Context, n int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 || n > len(m.entries) {
		n = len(m.entries)
	}
	out := make([]Entry, 0, n)
	for i := len(m.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

var (
	_ Log = (*Postgres)(nil)
	_ Log = (*Memory)(nil)
)
