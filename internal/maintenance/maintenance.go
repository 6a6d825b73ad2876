// Package maintenance cleans the players collection: wholesale clear, purge
// of placeholder documents, and collapse of duplicates stored under
// different ids. These are the only operations allowed to delete documents.
//
// Start runs the purge and collapse tasks on tickers alongside the scrape
// scheduler when the schedule command opts in.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/albapepper/mercato-data/internal/store"
)

// DeleteChunk bounds the ids removed per delete call.
const DeleteChunk = 500

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	PurgeInterval    time.Duration // placeholder documents
	CollapseInterval time.Duration // duplicates by name and team

	// Exclusive, when set, runs each task under a lock shared with scrape
	// runs. A task that cannot take the lock is skipped until the next tick.
	Exclusive func(ctx context.Context, fn func(context.Context) error) error
	// OnDeleted is called after a task deletes at least one document.
	OnDeleted func(ctx context.Context, task string, rep Report)
}

// ErrSkipped is returned by an Exclusive guard that declines to run a task.
var ErrSkipped = errors.New("maintenance task skipped")

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		PurgeInterval:    6 * time.Hour,
		CollapseInterval: 24 * time.Hour,
	}
}

// Report counts the outcome of one task.
type Report struct {
	Scanned int
	Deleted int
	IDs     []string // deleted ids, in scan order
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled and any in-flight task has returned. Intended to be called with
// `go`.
func Start(ctx context.Context, coll store.Collection, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"purge", cfg.PurgeInterval,
		"collapse", cfg.CollapseInterval)

	var wg sync.WaitGroup
	launch := func(interval time.Duration, name string, task taskFunc) {
		if interval <= 0 {
			return
		}
		t := time.NewTicker(interval)
		wg.Go(func() {
			defer t.Stop()
			runLoop(ctx, t.C, func() { runTask(ctx, coll, cfg, logger, name, task) })
		})
	}
	launch(cfg.PurgeInterval, "purge", PurgeInvalid)
	launch(cfg.CollapseInterval, "collapse", CollapseDuplicates)

	<-ctx.Done()
	wg.Wait()
	logger.Info("Maintenance tickers stopped")
}

type taskFunc func(context.Context, store.Collection) (Report, error)

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

func runTask(ctx context.Context, coll store.Collection, cfg Config, logger *slog.Logger, name string, task taskFunc) {
	start := time.Now()
	var rep Report
	body := func(ctx context.Context) error {
		var err error
		rep, err = task(ctx, coll)
		return err
	}

	var err error
	if cfg.Exclusive != nil {
		err = cfg.Exclusive(ctx, body)
	} else {
		err = body(ctx)
	}
	dur := time.Since(start).Round(time.Millisecond)

	switch {
	case errors.Is(err, ErrSkipped):
		logger.Info("Maintenance task skipped, scrape in progress", "task", name)
		return
	case err != nil:
		logger.Warn("Maintenance task failed", "task", name, "deleted", rep.Deleted, "duration", dur, "error", err)
	case rep.Deleted > 0:
		logger.Info("Maintenance task deleted documents", "task", name, "scanned", rep.Scanned, "deleted", rep.Deleted, "duration", dur)
	}
	if rep.Deleted > 0 && cfg.OnDeleted != nil {
		cfg.OnDeleted(ctx, name, rep)
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// Clear deletes every document.
func Clear(ctx context.Context, coll store.Collection) (Report, error) {
	n, err := coll.Clear(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("clear players: %w", err)
	}
	return Report{Scanned: n, Deleted: n}, nil
}

// Invalid reports whether d is a placeholder left by older importers: a
// missing or N/A name or team, or no source.
func Invalid(d store.Document) bool {
	return placeholder(d.Name) || placeholder(d.Team) || strings.TrimSpace(d.Source) == "" ||
		strings.Contains(strings.ToUpper(d.Team), "N/A")
}

func placeholder(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "N/A")
}

// PurgeInvalid deletes every document for which Invalid holds.
func PurgeInvalid(ctx context.Context, coll store.Collection) (Report, error) {
	var rep Report
	var doomed []string
	for d, err := range coll.All(ctx) {
		if err != nil {
			return rep, err
		}
		rep.Scanned++
		if Invalid(d) {
			doomed = append(doomed, d.ID)
		}
	}
	return deleteChunked(ctx, coll, doomed, rep)
}

// CollapseDuplicates keeps one document per case-insensitive (name, team)
// pair, the one with the most fields, and deletes the rest. Ties go to the
// document whose id sorts first.
func CollapseDuplicates(ctx context.Context, coll store.Collection) (Report, error) {
	type keep struct {
		id     string
		fields int
	}
	var rep Report
	kept := make(map[string]keep)
	var doomed []string

	for d, err := range coll.All(ctx) {
		if err != nil {
			return rep, err
		}
		rep.Scanned++
		key := strings.ToLower(strings.TrimSpace(d.Name)) + "|" + strings.ToLower(strings.TrimSpace(d.Team))
		cur, ok := kept[key]
		switch {
		case !ok:
			kept[key] = keep{id: d.ID, fields: d.FieldCount()}
		case d.FieldCount() > cur.fields:
			doomed = append(doomed, cur.id)
			kept[key] = keep{id: d.ID, fields: d.FieldCount()}
		default:
			doomed = append(doomed, d.ID)
		}
	}
	return deleteChunked(ctx, coll, doomed, rep)
}

func deleteChunked(ctx context.Context, coll store.Collection, ids []string, rep Report) (Report, error) {
	for start := 0; start < len(ids); start += DeleteChunk {
		end := min(start+DeleteChunk, len(ids))
		n, err := coll.Delete(ctx, ids[start:end])
		rep.Deleted += n
		if err != nil {
			return rep, fmt.Errorf("delete chunk at %d: %w", start, err)
		}
		rep.IDs = append(rep.IDs, ids[start:end]...)
	}
	return rep, nil
}
