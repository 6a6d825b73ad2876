// Package store defines the players collection as seen by the pipeline, the
// API and the maintenance commands. Documents are schemaless JSON objects;
// the pipeline owns the canonical fields and merges them in, anything else
// written by other tools is preserved.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/albapepper/mercato-data/internal/market"
)

// ErrNotFound is returned by Get when no document has the id.
var ErrNotFound = errors.New("player not found")

// Document is one stored player. The typed fields are read from Raw, which
// holds every key of the stored document.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Team        string    `json:"team"`
	Position    string    `json:"position,omitempty"`
	Value       int64     `json:"value"`
	Source      string    `json:"source,omitempty"`
	Status      string    `json:"status,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`

	Raw map[string]any `json:"-"`
}

// FieldCount is the number of keys in the stored document.
func (d Document) FieldCount() int { return len(d.Raw) }

// Filter narrows List. Zero values match everything; Limit <= 0 is unbounded.
type Filter struct {
	Position string
	Search   string
	Limit    int
}

// Match reports whether d passes the position and search parts of f.
func (f Filter) Match(d Document) bool {
	if f.Position != "" && d.Position != f.Position {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(d.Name), q) && !strings.Contains(strings.ToLower(d.Team), q) {
			return false
		}
	}
	return true
}

// Collection is the players collection.
type Collection interface {
	// UpsertBatch merges records into their documents in one transaction and
	// stamps lastUpdated with the store's clock.
	UpsertBatch(ctx context.Context, records []market.PlayerRecord) error
	Get(ctx context.Context, id string) (Document, error)
	// List returns matching documents by value descending, then id.
	List(ctx context.Context, f Filter) ([]Document, error)
	// All iterates every document ordered by id. Iteration stops at the
	// first error, which is yielded with a zero Document.
	All(ctx context.Context) iter.Seq2[Document, error]
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, ids []string) (int, error)
	Clear(ctx context.Context) (int, error)
}

// RecordFields returns the document keys owned by the pipeline. lastUpdated
// is excluded; the store stamps it.
func RecordFields(r market.PlayerRecord) map[string]any {
	m := map[string]any{
		"id":     r.ID,
		"name":   r.Name,
		"team":   r.Team,
		"value":  r.Value,
		"source": r.Source,
		"status": string(r.Status),
	}
	if r.Position.Known() {
		m["position"] = string(r.Position)
	}
	return m
}

// EncodeRecord renders the pipeline-owned fields of r as a JSON object.
func EncodeRecord(r market.PlayerRecord) ([]byte, error) {
	return json.Marshal(RecordFields(r))
}

// DecodeDocument parses a stored JSON object.
func DecodeDocument(id string, raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return Document{}, fmt.Errorf("decode document %s: %w", id, err)
	}
	return FromMap(id, m), nil
}

// FromMap reads the typed fields of a document map. Missing or mistyped
// fields are left zero.
func FromMap(id string, m map[string]any) Document {
	d := Document{ID: id, Raw: m}
	d.Name, _ = m["name"].(string)
	d.Team, _ = m["team"].(string)
	d.Position, _ = m["position"].(string)
	d.Source, _ = m["source"].(string)
	d.Status, _ = m["status"].(string)
	if v, ok := IntValue(m["value"]); ok {
		d.Value = v
	}
	switch ts := m["lastUpdated"].(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			d.LastUpdated = t
		}
	case time.Time:
		d.LastUpdated = ts
	}
	return d
}

// IntValue normalizes a stored value from the formats older writers used:
// JSON numbers, Go integers, and digit strings.
//
// Returns ok=false if not extractable.
func IntValue(val any) (int64, bool) {
	if val == nil {
		return 0, false
	}

	switch v := val.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		if f, err := v.Float64(); err == nil {
			return int64(f), true
		}
		return 0, false
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n, true
		}
		return 0, false
	default:
		return 0, false
	}
}
