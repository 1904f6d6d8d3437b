package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/keywatch/internal/store"
)

type fakeHitReader struct {
	hits       []store.HitRecord
	err        error
	lastRunID  string
	lastLimit  int
	lastOffset int
}

func (f *fakeHitReader) ListHits(_ context.Context, runID string, limit, offset int) ([]store.HitRecord, error) {
	f.lastRunID, f.lastLimit, f.lastOffset = runID, limit, offset
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func TestServer_ListHits(t *testing.T) {
	t.Parallel()

	found := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	sent := found.Add(1500 * time.Millisecond)
	reader := &fakeHitReader{hits: []store.HitRecord{
		{RunID: "run-1", Keyword: "alpha", Title: "alpha deal", Link: "/a/1", FoundAt: found, NotifiedAt: &sent},
		{RunID: "run-1", Keyword: "beta", Title: "beta news", FoundAt: found},
	}}
	server := NewServer(&fakeMonitor{}, nil, defaultTarget, zap.NewNop(), WithHitReader(reader))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/hits?run_id=run-1&limit=5&offset=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "run-1", reader.lastRunID)
	require.Equal(t, 5, reader.lastLimit)
	require.Equal(t, 2, reader.lastOffset)

	var payload struct {
		Items []hitResponse `json:"items"`
		Limit int           `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Items, 2)
	require.Equal(t, "2024-05-01T09:00:00.000Z", payload.Items[0].FoundAt)
	require.NotNil(t, payload.Items[0].NotifiedAt)
	require.Equal(t, "2024-05-01T09:00:01.500Z", *payload.Items[0].NotifiedAt)
	require.Nil(t, payload.Items[1].NotifiedAt)
	require.Equal(t, 5, payload.Limit)
}

func TestServer_ListHitsErrors(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestServer().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/hits", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	server := NewServer(&fakeMonitor{}, nil, defaultTarget, zap.NewNop(),
		WithHitReader(&fakeHitReader{err: errors.New("db down")}))

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/hits?offset=-1", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/hits", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
