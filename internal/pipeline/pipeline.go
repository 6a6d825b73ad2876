// Package pipeline runs one scrape: fetch every page, extract candidates,
// normalize them, collapse duplicates and write the survivors to the store.
//
// A run is sequential and holds no lock of its own; callers must not run two
// pipelines against the same collection at once (the scheduler guarantees
// this).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/albapepper/mercato-data/internal/dedupe"
	"github.com/albapepper/mercato-data/internal/extract"
	"github.com/albapepper/mercato-data/internal/fetch"
	"github.com/albapepper/mercato-data/internal/market"
	"github.com/albapepper/mercato-data/internal/normalize"
	"github.com/albapepper/mercato-data/internal/sink"
)

// ErrNothingToWrite is returned when a run fetched pages but no candidate
// survived normalization. The store is left untouched.
var ErrNothingToWrite = errors.New("no usable records to write")

// Pipeline wires the stages together. Fetcher, Extractor and Writer are
// required.
type Pipeline struct {
	Fetcher   fetch.Fetcher
	Extractor *extract.Extractor
	Writer    *sink.Writer

	Source string
	Status market.Status
	Clock  func() time.Time

	// Clear, when set, empties the collection after extraction succeeded and
	// before the first chunk is written.
	Clear func(ctx context.Context) (int, error)

	Logger *slog.Logger
}

// Run scrapes url once. The returned Result is never nil and reflects how
// far the run got, including on error.
func (p *Pipeline) Run(ctx context.Context, url string) (*Result, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}
	logger = logger.With("url", url)

	start := clock()
	res := newResult(url)
	defer func() { res.Duration = clock().Sub(start) }()

	meta := normalize.Meta{Source: p.Source, Status: p.Status, Now: start.UTC()}
	set := dedupe.NewSet()

	err := p.Fetcher.Fetch(ctx, url, func(page fetch.RawPage) error {
		res.PagesFetched++
		p.consume(page, meta, set, res, logger)
		return ctx.Err()
	})
	if err != nil {
		res.AddErrorf("fetch: %v", err)
		return res, fmt.Errorf("fetch %s: %w", url, err)
	}

	res.Unique = set.Len()
	logger.Info("Extraction finished",
		"pages", res.PagesFetched,
		"candidates", res.Candidates,
		"accepted", res.Accepted,
		"rejected", res.RejectedTotal(),
		"unique", res.Unique,
	)
	if res.Unique == 0 {
		res.AddError(ErrNothingToWrite.Error())
		return res, ErrNothingToWrite
	}

	if p.Clear != nil {
		n, err := p.Clear(ctx)
		if err != nil {
			res.AddErrorf("clear: %v", err)
			return res, fmt.Errorf("clear collection: %w", err)
		}
		res.Cleared = n
		logger.Info("Cleared collection before write", "deleted", n)
	}

	wr, err := p.Writer.Write(ctx, set.Records())
	res.Chunks = wr.Chunks
	res.Written = wr.Written
	if err != nil {
		res.AddErrorf("write: %v", err)
		return res, fmt.Errorf("write players: %w", err)
	}
	return res, nil
}

// consume extracts and normalizes one page into set.
func (p *Pipeline) consume(page fetch.RawPage, meta normalize.Meta, set *dedupe.Set, res *Result, logger *slog.Logger) {
	ext, err := p.Extractor.Extract(page)
	if errors.Is(err, extract.ErrNoCandidatesFound) {
		res.EmptyPages++
		logger.Warn("No candidates on page", "page", page.Seq)
		return
	}
	res.Strategies[ext.Strategy]++

	accepted := 0
	for c := range ext.All() {
		res.Candidates++
		rec, err := normalize.Normalize(c, meta)
		if err != nil {
			var rej *normalize.Rejection
			if errors.As(err, &rej) {
				res.Rejected[rej.Reason]++
			} else {
				res.Rejected["other"]++
			}
			continue
		}
		accepted++
		set.Add(rec)
	}
	res.Accepted += accepted
	logger.Debug("Page extracted", "page", page.Seq, "strategy", ext.Strategy, "candidates", ext.Count(), "accepted", accepted)
}
