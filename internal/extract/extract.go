// Package extract finds candidate player entries in fetched pages.
//
// Extraction is a set of strategies tried in order. The first strategy whose
// yield reaches the confidence threshold wins; when none does, the one that
// found the most candidates is used. The structural strategy reads the
// source's markup directly, the pattern strategy is a heuristic over the
// flattened page text kept for when the markup drifts.
package extract

import (
	"errors"
	"iter"
	"slices"

	"github.com/albapepper/mercato-data/internal/fetch"
	"github.com/albapepper/mercato-data/internal/market"
)

// DefaultThreshold is the candidate count at which a strategy's result is
// trusted without trying the next one.
const DefaultThreshold = 10

// ErrNoCandidatesFound is returned when no strategy matched anything. It is
// informational; the page is simply empty for our purposes.
var ErrNoCandidatesFound = errors.New("no candidates found")

// Strategy extracts candidates from one page.
type Strategy interface {
	Name() string
	Extract(page fetch.RawPage) iter.Seq[market.CandidateRecord]
}

// Result is the outcome of extracting one page.
type Result struct {
	Strategy   string
	Candidates []market.CandidateRecord
}

// Count returns the number of candidates.
func (r Result) Count() int { return len(r.Candidates) }

// All iterates the candidates in page order.
func (r Result) All() iter.Seq[market.CandidateRecord] {
	return slices.Values(r.Candidates)
}

// Extractor selects among strategies by confidence.
type Extractor struct {
	Strategies []Strategy
	Threshold  int
}

// New returns an extractor using the structural strategy with the pattern
// strategy as fallback.
func New(threshold int) *Extractor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Extractor{
		Strategies: []Strategy{Structural{}, NewPattern()},
		Threshold:  threshold,
	}
}

// Extract runs the strategies in order against page.
func (e *Extractor) Extract(page fetch.RawPage) (Result, error) {
	threshold := e.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	var best Result
	for i, s := range e.Strategies {
		res := Result{Strategy: s.Name(), Candidates: slices.Collect(s.Extract(page))}
		if res.Count() >= threshold {
			return res, nil
		}
		if i == 0 || res.Count() > best.Count() {
			best = res
		}
	}
	if best.Count() == 0 {
		return best, ErrNoCandidatesFound
	}
	return best, nil
}
