// Package fetch retrieves raw market pages from the data source.
//
// Two strategies exist: Static performs one HTTP GET and yields the
// server-rendered markup; Browser drives a headless Chrome session, waits for
// client-side rendering, dismisses the consent dialog and walks the "next"
// control, yielding one page per table page.
//
// Errors are terminal for the URL. Retrying is the scheduler's job.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/albapepper/mercato-data/internal/htmlutil"
)

// RawPage is one fetched page. It lives only until the extractor consumed it.
type RawPage struct {
	Seq  int // 1-based page number
	URL  string
	HTML string
	Text string
}

// NewRawPage builds a page from markup, flattening its text.
func NewRawPage(seq int, url, markup string) RawPage {
	return RawPage{Seq: seq, URL: url, HTML: markup, Text: htmlutil.FlattenText(markup)}
}

// Fetcher yields every page reachable from url. A non-nil error returned by
// yield stops the fetch and is returned unchanged.
type Fetcher interface {
	Fetch(ctx context.Context, url string, yield func(RawPage) error) error
}

// Mode selects a fetch strategy.
type Mode string

const (
	ModeStatic  Mode = "static"
	ModeBrowser Mode = "browser"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeStatic, ModeBrowser:
		return m, nil
	case "":
		return ModeStatic, nil
	default:
		return "", fmt.Errorf("unknown fetch mode %q (want static or browser)", s)
	}
}

// Kind classifies fetch failures.
type Kind string

const (
	KindNetwork         Kind = "network"
	KindTimeout         Kind = "timeout"
	KindElementNotFound Kind = "element_not_found"
)

// Sentinels matched by errors.Is against a *FetchError of the same kind.
var (
	ErrNetwork         = errors.New("network failure")
	ErrTimeout         = errors.New("timed out")
	ErrElementNotFound = errors.New("element not found")
)

// FetchError reports why a URL could not be fetched.
type FetchError struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrElementNotFound:
		return e.Kind == KindElementNotFound
	}
	return false
}

// classify wraps err as a FetchError, telling timeouts apart from other
// network failures.
func classify(url string, err error) error {
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	kind := KindNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &FetchError{Kind: kind, URL: url, Err: err}
}
