package keywords

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	collyfetcher "github.com/JakeFAU/keywatch/internal/fetcher/colly"
	"github.com/JakeFAU/keywatch/internal/watch"
)

// DefaultFallback is used whenever a sourced mode yields nothing.
var DefaultFallback = []string{"특가", "할인", "대란", "품절", "이벤트"}

var errEmptySource = errors.New("source returned no keywords")

// Getter retrieves raw page bodies.
type Getter interface {
	Get(ctx context.Context, url string) (collyfetcher.Page, error)
}

// Config controls the ranking and trend sources.
type Config struct {
	RankingURL           string
	RankingClassFragment string
	RankingTokens        int
	TrendURL             string
	Max                  int
	Fallback             []string
}

func (c Config) withDefaults() Config {
	if c.RankingClassFragment == "" {
		c.RankingClassFragment = "title"
	}
	if c.RankingTokens <= 0 {
		c.RankingTokens = 2
	}
	if c.Max <= 0 {
		c.Max = 10
	}
	if len(watch.CleanKeywords(c.Fallback)) == 0 {
		c.Fallback = DefaultFallback
	}
	c.Fallback = watch.CleanKeywords(c.Fallback)
	return c
}

// Result is the outcome of one keyword resolution.
type Result struct {
	Mode     watch.Mode
	Keywords []string
	// Fallback is true when Keywords came from the fallback list.
	Fallback bool
	// Err holds the source failure that triggered the fallback.
	Err error
}

// Provider implements watch.KeywordProvider.
type Provider struct {
	cfg    Config
	getter Getter
	logger *zap.Logger
}

// NewProvider creates a Provider that reads remote sources through getter.
func NewProvider(cfg Config, getter Getter, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{cfg: cfg.withDefaults(), getter: getter, logger: logger}
}

// Keywords returns the keyword list for mode. It never fails.
func (p *Provider) Keywords(ctx context.Context, mode watch.Mode, manual []string) []string {
	return p.Resolve(ctx, mode, manual).Keywords
}

// Resolve returns the keyword list for mode along with how it was obtained.
func (p *Provider) Resolve(ctx context.Context, mode watch.Mode, manual []string) Result {
	var (
		list []string
		err  error
	)
	switch mode {
	case watch.ModeRanking:
		list, err = p.ranking(ctx)
	case watch.ModeTrend:
		list, err = p.trend(ctx)
	default:
		return Result{Mode: watch.ModeManual, Keywords: watch.CleanKeywords(manual)}
	}

	if err == nil && len(list) == 0 {
		err = errEmptySource
	}
	if err != nil {
		srcErr := &watch.KeywordSourceError{Mode: mode, Err: err}
		p.logger.Warn("keyword source failed, using fallback",
			zap.String("mode", string(mode)),
			zap.Error(srcErr),
		)
		return Result{
			Mode:     mode,
			Keywords: append([]string(nil), p.cfg.Fallback...),
			Fallback: true,
			Err:      srcErr,
		}
	}
	return Result{Mode: mode, Keywords: list}
}

func (p *Provider) fetch(ctx context.Context, url string) ([]byte, error) {
	if p.getter == nil {
		return nil, errors.New("no getter configured")
	}
	if url == "" {
		return nil, errors.New("source url is empty")
	}
	page, err := p.getter.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return page.Body, nil
}

func (p *Provider) ranking(ctx context.Context) ([]string, error) {
	body, err := p.fetch(ctx, p.cfg.RankingURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse ranking page: %w", err)
	}

	selector := fmt.Sprintf("[class*=%q]", p.cfg.RankingClassFragment)
	seen := make(map[string]struct{})
	var out []string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		kw := truncateTokens(strings.TrimSpace(s.Text()), p.cfg.RankingTokens)
		if kw == "" {
			return true
		}
		if _, dup := seen[kw]; dup {
			return true
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
		return len(out) < p.cfg.Max
	})
	return out, nil
}

func (p *Provider) trend(ctx context.Context) ([]string, error) {
	body, err := p.fetch(ctx, p.cfg.TrendURL)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse trend feed: %w", err)
	}

	out := make([]string, 0, p.cfg.Max)
	for _, item := range feed.Items {
		if len(out) == p.cfg.Max {
			break
		}
		if item == nil {
			continue
		}
		if title := strings.TrimSpace(item.Title); title != "" {
			out = append(out, title)
		}
	}
	return out, nil
}

// truncateTokens keeps the first n whitespace separated tokens of s.
func truncateTokens(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
