package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
)

// ChromeOptions configures the headless Chrome session.
type ChromeOptions struct {
	Headless  bool
	UserAgent string
	ExecPath  string
}

// ChromeSessions returns a SessionFactory launching a fresh Chrome per fetch.
func ChromeSessions(opts ChromeOptions) SessionFactory {
	return func(ctx context.Context) (Session, error) {
		return newChromeSession(ctx, opts)
	}
}

type chromeSession struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

func newChromeSession(ctx context.Context, opts ChromeOptions) (*chromeSession, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = UserAgent
	}
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(1366, 900),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// Start the browser on the long-lived context so per-step timeouts do
	// not tear it down.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return &chromeSession{ctx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc}, nil
}

// run executes actions on the tab, bounded by the caller's ctx.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	tab, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(tab, actions...)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return err
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromeSession) WaitVisible(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *chromeSession) ClickButton(ctx context.Context, label string) (bool, error) {
	var present bool
	probe := fmt.Sprintf(`Array.from(document.querySelectorAll('button')).some(b => b.innerText.trim() === %q)`, label)
	if err := s.run(ctx, chromedp.Evaluate(probe, &present)); err != nil {
		return false, err
	}
	if !present {
		return false, nil
	}
	xpath := fmt.Sprintf(`//button[normalize-space(.)=%q]`, label)
	if err := s.run(ctx, chromedp.Click(xpath, chromedp.BySearch, chromedp.NodeVisible)); err != nil {
		return false, err
	}
	return true, nil
}

func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	var markup string
	err := s.run(ctx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery))
	return markup, err
}

// nextControlJS inspects the candidate selectors in order and reports the
// first match with its disabled state.
const nextControlJS = `(function(selectors) {
  for (const sel of selectors) {
    const el = document.querySelector(sel);
    if (!el) continue;
    const parent = el.parentElement;
    const disabled = el.classList.contains('disabled') ||
      el.getAttribute('aria-disabled') === 'true' ||
      el.hasAttribute('disabled') ||
      (parent !== null && parent.classList.contains('disabled'));
    return {selector: sel, found: true, disabled: disabled};
  }
  return {selector: '', found: false, disabled: false};
})(%s)`

func (s *chromeSession) NextControl(ctx context.Context, selectors []string) (NextState, error) {
	quoted := make([]string, len(selectors))
	for i, sel := range selectors {
		quoted[i] = fmt.Sprintf("%q", sel)
	}
	script := fmt.Sprintf(nextControlJS, "["+strings.Join(quoted, ",")+"]")

	var out struct {
		Selector string `json:"selector"`
		Found    bool   `json:"found"`
		Disabled bool   `json:"disabled"`
	}
	if err := s.run(ctx, chromedp.Evaluate(script, &out)); err != nil {
		return NextState{}, err
	}
	return NextState{Selector: out.Selector, Found: out.Found, Disabled: out.Disabled}, nil
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (s *chromeSession) Close() error {
	s.cancelTab()
	s.cancelAlloc()
	return nil
}
