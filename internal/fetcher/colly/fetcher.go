// Package collyfetcher implements the page fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/keywatch/internal/extract"
	"github.com/JakeFAU/keywatch/internal/metrics"
	"github.com/JakeFAU/keywatch/internal/watch"
)

// Config controls collector behavior. An empty UserAgent keeps colly's
// default. Headers are added to every request.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Headers   http.Header
}

// Renderer produces the DOM of a page after JavaScript ran.
type Renderer interface {
	Render(ctx context.Context, url string) ([]byte, error)
}

// Detector decides whether a statically fetched page needs rendering.
type Detector interface {
	ShouldPromote(statusCode int, body []byte) bool
}

// Page is the raw result of a GET.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Fetcher implements watch.PageFetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
	chain         extract.Chain
	renderer      Renderer
	detector      Detector
	logger        *zap.Logger
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithRenderer enables headless promotion for pages the detector flags.
func WithRenderer(renderer Renderer, detector Detector) Option {
	return func(f *Fetcher) {
		f.renderer = renderer
		f.detector = detector
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithTransport replaces the HTTP transport (tests, proxies).
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) {
		if rt != nil {
			f.transport = rt
		}
	}
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config, opts ...Option) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	f := &Fetcher{
		cfg:       cfg,
		transport: newHTTPTransport(),
		chain:     extract.DefaultChain(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(f.transport)
	f.baseCollector = c
	return f
}

// Fetch retrieves url and extracts candidates with the fetcher's chain.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]watch.Candidate, error) {
	page, err := f.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	body := f.maybeRender(ctx, page)

	res, err := f.chain.Parse(body)
	if err != nil {
		return nil, &watch.FetchError{URL: url, Err: err}
	}
	f.logger.Debug("candidates extracted",
		zap.String("url", url),
		zap.String("strategy", res.Strategy),
		zap.Int("matched", res.Matched),
		zap.Int("count", len(res.Candidates)),
	)
	return res.Candidates, nil
}

// Get executes a single HTTP GET. Transport failures and any status other than
// 200 are reported as *watch.FetchError.
func (f *Fetcher) Get(ctx context.Context, url string) (Page, error) {
	var (
		result   Page
		fetchErr error
	)
	start := time.Now()
	collector := f.buildCollector(start, &result, &fetchErr)

	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		metrics.ObserveFetch(url, "error", 0)
		return Page{}, &watch.FetchError{URL: url, Err: err}
	}
	metrics.ObserveFetch(url, strconv.Itoa(result.StatusCode), len(result.Body))
	if result.StatusCode != http.StatusOK {
		return Page{}, &watch.FetchError{URL: url, StatusCode: result.StatusCode}
	}
	return result, nil
}

func (f *Fetcher) maybeRender(ctx context.Context, page Page) []byte {
	if f.renderer == nil || f.detector == nil || !f.detector.ShouldPromote(page.StatusCode, page.Body) {
		return page.Body
	}
	rendered, err := f.renderer.Render(ctx, page.URL)
	if err != nil {
		f.logger.Warn("headless render failed, using static body", zap.String("url", page.URL), zap.Error(err))
		return page.Body
	}
	f.logger.Debug("headless render applied", zap.String("url", page.URL))
	return rendered
}

func (f *Fetcher) buildCollector(start time.Time, result *Page, fetchErr *error) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.AllowURLRevisit = true
	collector.ParseHTTPErrorResponse = true
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.WithTransport(f.transport)

	f.configureCollectorHooks(collector, start, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *Page,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		f.copyHeaders(r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		*result = Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func (f *Fetcher) copyHeaders(r *colly.Request) {
	for key, values := range f.cfg.Headers {
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
