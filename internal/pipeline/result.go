package pipeline

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Result tracks counts and errors from one run.
type Result struct {
	URL          string
	PagesFetched int
	EmptyPages   int
	Strategies   map[string]int // pages per winning strategy
	Candidates   int
	Accepted     int
	Rejected     map[string]int // per rejection reason
	Unique       int
	Cleared      int
	Chunks       int
	Written      int
	Errors       []string
	Duration     time.Duration
}

func newResult(url string) *Result {
	return &Result{URL: url, Strategies: map[string]int{}, Rejected: map[string]int{}}
}

// RejectedTotal sums rejections over all reasons.
func (r *Result) RejectedTotal() int {
	n := 0
	for _, c := range r.Rejected {
		n += c
	}
	return n
}

// AddError records an error message.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddErrorf records a formatted error message.
func (r *Result) AddErrorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the run.
func (r *Result) Summary() string {
	s := fmt.Sprintf(
		"pages=%d candidates=%d accepted=%d rejected=%d unique=%d written=%d chunks=%d errors=%d",
		r.PagesFetched, r.Candidates, r.Accepted, r.RejectedTotal(),
		r.Unique, r.Written, r.Chunks, len(r.Errors),
	)
	if len(r.Strategies) > 0 {
		s += " strategies=" + formatCounts(r.Strategies)
	}
	if len(r.Rejected) > 0 {
		s += " reasons=" + formatCounts(r.Rejected)
	}
	if len(r.Errors) > 0 {
		s += " last_error=" + r.Errors[len(r.Errors)-1]
	}
	return s
}

func formatCounts(m map[string]int) string {
	parts := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		parts = append(parts, fmt.Sprintf("%s:%d", k, m[k]))
	}
	return strings.Join(parts, ",")
}
