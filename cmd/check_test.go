package cmd

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

const listingHTML = `<html><body><dl>
<dt><a href="/a/1">Alpha phone launches today</a></dt>
<dt><a href="/a/2">Weather is mild</a></dt>
<dt><a href="/a/3">alpha sale ends</a></dt>
</dl></body></html>`

func TestCheckCommandPrintsHits(t *testing.T) {
	var lang atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang.Store(r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(listingHTML))
	}))
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := fmt.Sprintf("target:\n  url: %q\nlogging:\n  development: false\n  level: error\n", srv.URL+"/list")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"check", "--config", path, "--mode", "manual", "--keywords", "Alpha"})
	require.NoError(t, root.Execute())

	got := out.String()
	require.Contains(t, got, "keywords (manual): [Alpha]")
	require.Contains(t, got, "3 titles, 1 hits")
	require.Contains(t, got, "🚨 [Alpha] 포착!")
	require.Contains(t, got, "Alpha phone launches today")
	require.NotContains(t, got, "alpha sale ends")
	require.Equal(t, "ko-KR,ko;q=0.9,en;q=0.8", lang.Load())
}

func TestCheckCommandRejectsUnknownMode(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"check", "--mode", "weekly"})
	err := root.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown keyword mode")
}
