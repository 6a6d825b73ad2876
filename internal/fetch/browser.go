package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Defaults for the browser fetcher.
const (
	DefaultContentMarker = ".elemento_jugador"
	DefaultConsentLabel  = "ACEPTO"
	DefaultMaxPages      = 50

	navigateTimeout = 60 * time.Second
	markerTimeout   = 30 * time.Second
	consentTimeout  = 10 * time.Second
	reloadTimeout   = 15 * time.Second
	settleDelay     = 1500 * time.Millisecond
)

// NextSelectors are tried in order to find the pagination control.
var NextSelectors = []string{".next", "a.next", ".next-page", "[data-next]", ".page-next"}

// NextState describes the pagination control on the current page.
type NextState struct {
	Selector string
	Found    bool
	Disabled bool
}

// Session is one live browser tab. Implementations honour ctx deadlines on
// every call.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	// ClickButton clicks the first button whose text is label. It reports
	// false when no such button exists.
	ClickButton(ctx context.Context, label string) (bool, error)
	HTML(ctx context.Context) (string, error)
	NextControl(ctx context.Context, selectors []string) (NextState, error)
	Click(ctx context.Context, selector string) error
	Close() error
}

// SessionFactory opens a new Session.
type SessionFactory func(ctx context.Context) (Session, error)

// BrowserOptions configures NewBrowser. Zero values take defaults.
type BrowserOptions struct {
	ContentMarker string
	ConsentLabel  string
	MaxPages      int
	Settle        time.Duration
	Logger        *slog.Logger
}

// Browser fetches client-rendered pages and follows pagination.
type Browser struct {
	open SessionFactory
	opts BrowserOptions
}

// NewBrowser creates a browser fetcher backed by open.
func NewBrowser(open SessionFactory, opts BrowserOptions) *Browser {
	if opts.ContentMarker == "" {
		opts.ContentMarker = DefaultContentMarker
	}
	if opts.ConsentLabel == "" {
		opts.ConsentLabel = DefaultConsentLabel
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	} else if opts.Settle == 0 {
		opts.Settle = settleDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Browser{open: open, opts: opts}
}

// Fetch opens a session, loads url and yields each table page in order.
// The session is closed on every exit path.
func (b *Browser) Fetch(ctx context.Context, url string, yield func(RawPage) error) (err error) {
	logger := b.opts.Logger.With("url", url)

	session, err := b.open(ctx)
	if err != nil {
		return classify(url, fmt.Errorf("open browser: %w", err))
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("Closing browser session failed", "error", cerr)
		}
	}()

	if err := b.step(ctx, navigateTimeout, func(ctx context.Context) error {
		return session.Navigate(ctx, url)
	}); err != nil {
		return classify(url, fmt.Errorf("navigate: %w", err))
	}

	b.dismissConsent(ctx, session, logger)

	if err := b.waitMarker(ctx, session, url, markerTimeout); err != nil {
		return err
	}

	for seq := 1; ; seq++ {
		b.settle(ctx)

		var markup string
		if err := b.step(ctx, navigateTimeout, func(ctx context.Context) error {
			var herr error
			markup, herr = session.HTML(ctx)
			return herr
		}); err != nil {
			return classify(url, fmt.Errorf("read page %d: %w", seq, err))
		}

		if err := yield(NewRawPage(seq, url, markup)); err != nil {
			return err
		}

		if seq >= b.opts.MaxPages {
			logger.Info("Reached page limit", "pages", seq)
			return nil
		}

		var next NextState
		if err := b.step(ctx, consentTimeout, func(ctx context.Context) error {
			var nerr error
			next, nerr = session.NextControl(ctx, NextSelectors)
			return nerr
		}); err != nil {
			logger.Warn("Looking up next control failed", "page", seq, "error", err)
			return nil
		}
		if !next.Found || next.Disabled {
			logger.Debug("No further pages", "pages", seq, "found", next.Found, "disabled", next.Disabled)
			return nil
		}

		if err := b.step(ctx, consentTimeout, func(ctx context.Context) error {
			return session.Click(ctx, next.Selector)
		}); err != nil {
			logger.Warn("Clicking next control failed", "page", seq, "selector", next.Selector, "error", err)
			return nil
		}

		if err := b.waitMarker(ctx, session, url, reloadTimeout); err != nil {
			return err
		}
	}
}

// dismissConsent clicks the consent button when present. Absence is normal.
func (b *Browser) dismissConsent(ctx context.Context, session Session, logger *slog.Logger) {
	var clicked bool
	err := b.step(ctx, consentTimeout, func(ctx context.Context) error {
		var cerr error
		clicked, cerr = session.ClickButton(ctx, b.opts.ConsentLabel)
		return cerr
	})
	switch {
	case err != nil:
		logger.Debug("Consent dialog not handled", "error", err)
	case clicked:
		logger.Debug("Consent dialog dismissed")
	}
}

func (b *Browser) waitMarker(ctx context.Context, session Session, url string, timeout time.Duration) error {
	err := b.step(ctx, timeout, func(ctx context.Context) error {
		return session.WaitVisible(ctx, b.opts.ContentMarker)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, URL: url, Err: fmt.Errorf("waiting for %s: %w", b.opts.ContentMarker, err)}
	}
	return &FetchError{Kind: KindElementNotFound, URL: url, Err: fmt.Errorf("waiting for %s: %w", b.opts.ContentMarker, err)}
}

func (b *Browser) step(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

func (b *Browser) settle(ctx context.Context) {
	if b.opts.Settle == 0 {
		return
	}
	t := time.NewTimer(b.opts.Settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
