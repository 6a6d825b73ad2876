package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// UserAgent is sent by both fetchers. The source serves a reduced page to
// unknown agents.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// DefaultStaticTimeout bounds a single static request.
const DefaultStaticTimeout = 15 * time.Second

// Static fetches a single server-rendered page.
type Static struct {
	client  *resty.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// StaticOptions configures NewStatic. Zero values take defaults.
type StaticOptions struct {
	Timeout           time.Duration
	RequestsPerMinute int
	Logger            *slog.Logger
}

// NewStatic creates a static fetcher with its own HTTP client and token
// bucket.
func NewStatic(opts StaticOptions) *Static {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultStaticTimeout
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 30
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	client := resty.New()
	client.SetHeader("user-agent", UserAgent)
	client.SetHeader("accept-language", "es-ES,es;q=0.9")
	client.SetTimeout(opts.Timeout)

	rps := float64(opts.RequestsPerMinute) / 60.0
	return &Static{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  opts.Logger,
	}
}

// Fetch performs one GET and yields the response as page 1.
func (s *Static) Fetch(ctx context.Context, url string, yield func(RawPage) error) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return classify(url, fmt.Errorf("rate limit wait: %w", err))
	}

	start := time.Now()
	res, err := s.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return classify(url, err)
	}
	if res.IsError() {
		return &FetchError{Kind: KindNetwork, URL: url, Err: fmt.Errorf("unexpected status %d", res.StatusCode())}
	}

	s.logger.Debug("Fetched static page", "url", url, "bytes", len(res.Body()), "elapsed", time.Since(start))
	return yield(NewRawPage(1, url, string(res.Body())))
}
