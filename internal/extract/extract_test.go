package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/keywatch/internal/watch"
)

func TestChain_PrefersDefinitionTermAnchors(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body>
<nav><a href="/home">홈</a></nav>
<dl>
  <dt><a href="/a"> 대란 속보 </a></dt>
  <dd>summary</dd>
  <dt><a href="/b">특가 소식</a></dt>
</dl>
</body></html>`)

	res, err := DefaultChain().Parse(body)
	require.NoError(t, err)
	require.Equal(t, "definition-term anchors", res.Strategy)
	require.Equal(t, []watch.Candidate{
		{Title: "대란 속보", Link: "/a"},
		{Title: "특가 소식", Link: "/b"},
	}, res.Candidates)
}

func TestChain_FallsBackToEveryAnchor(t *testing.T) {
	t.Parallel()

	res, err := DefaultChain().Parse([]byte(`<html><body><p><a href="/x">Title</a></p></body></html>`))
	require.NoError(t, err)
	require.Equal(t, "all anchors", res.Strategy)
	require.Equal(t, []watch.Candidate{{Title: "Title", Link: "/x"}}, res.Candidates)
}

func TestChain_ImageOnlyDefinitionAnchorsSkipNavigation(t *testing.T) {
	t.Parallel()

	body := []byte(`<nav><a href="/menu">메뉴 대란</a></nav>
<dl><dt class="photo"><a href="/p"><img src="x.png"></a></dt></dl>`)
	res, err := DefaultChain().Parse(body)
	require.NoError(t, err)
	require.Equal(t, "definition-term anchors", res.Strategy)
	require.Equal(t, 1, res.Matched)
	require.Empty(t, res.Candidates)
}

func TestChain_MixedDefinitionAnchorsKeepTextOnes(t *testing.T) {
	t.Parallel()

	body := []byte(`<a href="/home">홈</a><dl>
<dt class="photo"><a href="/p"><img src="x.png"></a></dt>
<dt><a href="/p">품절 임박 세일</a></dt>
</dl>`)
	res, err := DefaultChain().Parse(body)
	require.NoError(t, err)
	require.Equal(t, 2, res.Matched)
	require.Equal(t, []watch.Candidate{{Title: "품절 임박 세일", Link: "/p"}}, res.Candidates)
}

func TestChain_NoAnchors(t *testing.T) {
	t.Parallel()

	res, err := DefaultChain().Parse([]byte(`<html><body><p>nothing here</p></body></html>`))
	require.NoError(t, err)
	require.Empty(t, res.Candidates)
	require.Empty(t, res.Strategy)
}

func TestAnchorSelector_NameDefaultsToSelector(t *testing.T) {
	t.Parallel()

	require.Equal(t, "li > a", AnchorSelector{Selector: "li > a"}.Name())
	require.Equal(t, "items", AnchorSelector{Label: "items", Selector: "li > a"}.Name())
}
