package keywords

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	collyfetcher "github.com/JakeFAU/keywatch/internal/fetcher/colly"
	"github.com/JakeFAU/keywatch/internal/watch"
)

type fakeGetter struct {
	pages map[string]string
	err   error
	calls int
}

func (f *fakeGetter) Get(_ context.Context, url string) (collyfetcher.Page, error) {
	f.calls++
	if f.err != nil {
		return collyfetcher.Page{}, f.err
	}
	body, ok := f.pages[url]
	if !ok {
		return collyfetcher.Page{}, &watch.FetchError{URL: url, StatusCode: http.StatusNotFound}
	}
	return collyfetcher.Page{URL: url, StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

const rankingHTML = `<html><body><ul>
<li><span class="product_title__x1">애플 아이폰 15 프로</span></li>
<li><span class="product_title__x1">  삼성 갤럭시   S24 울트라 </span></li>
<li><span class="product_title__x1">애플 아이폰 15 미니</span></li>
<li><span class="price">1000</span></li>
<li><span class="product_title__x1">   </span></li>
<li><div class="subtitle">다이슨 에어랩</div></li>
</ul></body></html>`

const trendRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Daily Search Trends</title>
<item><title> 날씨 </title></item>
<item><title></title></item>
<item><title>환율</title></item>
<item><title>주식</title></item>
</channel></rss>`

func newTestProvider(getter Getter) *Provider {
	return NewProvider(Config{
		RankingURL: "https://rank.example/best",
		TrendURL:   "https://trend.example/rss",
	}, getter, nil)
}

func TestProviderManualMode(t *testing.T) {
	t.Parallel()

	getter := &fakeGetter{}
	p := newTestProvider(getter)

	got := p.Keywords(context.Background(), watch.ModeManual, []string{" 대란 ", "", "품절"})
	require.Equal(t, []string{"대란", "품절"}, got)
	require.Zero(t, getter.calls)
}

func TestProviderManualEmptyStaysEmpty(t *testing.T) {
	t.Parallel()

	res := newTestProvider(&fakeGetter{}).Resolve(context.Background(), watch.ModeManual, nil)
	require.Empty(t, res.Keywords)
	require.False(t, res.Fallback)
	require.NoError(t, res.Err)
}

func TestProviderRankingMode(t *testing.T) {
	t.Parallel()

	getter := &fakeGetter{pages: map[string]string{"https://rank.example/best": rankingHTML}}
	res := newTestProvider(getter).Resolve(context.Background(), watch.ModeRanking, nil)

	require.NoError(t, res.Err)
	require.False(t, res.Fallback)
	require.Equal(t, watch.ModeRanking, res.Mode)
	require.Equal(t, []string{"애플 아이폰", "삼성 갤럭시", "다이슨 에어랩"}, res.Keywords)
}

func TestProviderRankingCapsAtMax(t *testing.T) {
	t.Parallel()

	html := "<html><body>"
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		html += `<p class="title">` + name + `</p>`
	}
	html += "</body></html>"

	getter := &fakeGetter{pages: map[string]string{"https://rank.example/best": html}}
	p := NewProvider(Config{RankingURL: "https://rank.example/best", Max: 3}, getter, nil)

	require.Equal(t, []string{"a", "b", "c"}, p.Keywords(context.Background(), watch.ModeRanking, nil))
}

func TestProviderTrendMode(t *testing.T) {
	t.Parallel()

	getter := &fakeGetter{pages: map[string]string{"https://trend.example/rss": trendRSS}}
	res := newTestProvider(getter).Resolve(context.Background(), watch.ModeTrend, nil)

	require.NoError(t, res.Err)
	require.Equal(t, []string{"날씨", "환율", "주식"}, res.Keywords)
}

func TestProviderFallsBackOnSourceFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	getter := &fakeGetter{err: boom}
	p := newTestProvider(getter)

	for _, mode := range []watch.Mode{watch.ModeRanking, watch.ModeTrend} {
		res := p.Resolve(context.Background(), mode, nil)
		require.True(t, res.Fallback)
		require.Equal(t, DefaultFallback, res.Keywords)

		var srcErr *watch.KeywordSourceError
		require.ErrorAs(t, res.Err, &srcErr)
		require.Equal(t, mode, srcErr.Mode)
		require.ErrorIs(t, res.Err, boom)
	}
}

func TestProviderFallsBackOnEmptyAndMalformedSources(t *testing.T) {
	t.Parallel()

	getter := &fakeGetter{pages: map[string]string{
		"https://rank.example/best": "<html><body><p>nothing here</p></body></html>",
		"https://trend.example/rss": "this is not a feed",
	}}
	p := NewProvider(Config{
		RankingURL: "https://rank.example/best",
		TrendURL:   "https://trend.example/rss",
		Fallback:   []string{" 세일 ", ""},
	}, getter, nil)

	ranking := p.Resolve(context.Background(), watch.ModeRanking, nil)
	require.True(t, ranking.Fallback)
	require.ErrorIs(t, ranking.Err, errEmptySource)
	require.Equal(t, []string{"세일"}, ranking.Keywords)

	trend := p.Resolve(context.Background(), watch.ModeTrend, nil)
	require.True(t, trend.Fallback)
	require.Error(t, trend.Err)
	require.Equal(t, []string{"세일"}, trend.Keywords)
}

func TestProviderFallbackIsNotShared(t *testing.T) {
	t.Parallel()

	p := newTestProvider(&fakeGetter{err: errors.New("down")})
	first := p.Keywords(context.Background(), watch.ModeTrend, nil)
	first[0] = "mutated"

	second := p.Keywords(context.Background(), watch.ModeTrend, nil)
	require.Equal(t, DefaultFallback[0], second[0])
}

func TestProviderWithCollyFetcher(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/best":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(rankingHTML))
		case "/rss":
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write([]byte(trendRSS))
		default:
			http.Error(w, "blocked", http.StatusForbidden)
		}
	}))
	t.Cleanup(srv.Close)

	fetcher := collyfetcher.New(collyfetcher.Config{Timeout: 5 * time.Second})
	p := NewProvider(Config{
		RankingURL: srv.URL + "/best",
		TrendURL:   srv.URL + "/rss",
	}, fetcher, nil)

	require.Equal(t, []string{"애플 아이폰", "삼성 갤럭시", "다이슨 에어랩"},
		p.Keywords(context.Background(), watch.ModeRanking, nil))
	require.Equal(t, []string{"날씨", "환율", "주식"},
		p.Keywords(context.Background(), watch.ModeTrend, nil))

	blocked := NewProvider(Config{RankingURL: srv.URL + "/blocked"}, fetcher, nil).
		Resolve(context.Background(), watch.ModeRanking, nil)
	require.True(t, blocked.Fallback)
	var fetchErr *watch.FetchError
	require.ErrorAs(t, blocked.Err, &fetchErr)
}

func TestTruncateTokens(t *testing.T) {
	t.Parallel()

	require.Equal(t, "a b", truncateTokens("a  b c", 2))
	require.Equal(t, "a", truncateTokens(" a ", 2))
	require.Empty(t, truncateTokens("   ", 2))
}
