package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/keywatch/internal/store"
)

func newMockStore(t *testing.T) (*HitStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewHitStoreWithPool(mock), mock
}

func TestRecordRunStartInsertsRow(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectExec("INSERT INTO keywatch_runs").
		WithArgs("run-1", "trend", "https://example.com/list", now, store.RunRunning).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.RecordRunStart(context.Background(), store.Run{
		ID:        "run-1",
		Mode:      "trend",
		TargetURL: "https://example.com/list",
		StartedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRunStopUpdatesRow(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	now := time.Unix(1700000100, 0).UTC()

	mock.ExpectExec("UPDATE keywatch_runs").
		WithArgs(now, store.RunStopped, "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.RecordRunStop(context.Background(), "run-1", now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordHitAndMarkNotified(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	found := time.Unix(1700000000, 0).UTC()
	sent := found.Add(2 * time.Second)

	mock.ExpectExec("INSERT INTO keywatch_hits").
		WithArgs("run-1", "alpha", "alpha deal", "/a/1", found).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE keywatch_hits").
		WithArgs(sent, "run-1", "alpha deal").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ctx := context.Background()
	require.NoError(t, s.RecordHit(ctx, store.HitRecord{
		RunID:   "run-1",
		Keyword: "alpha",
		Title:   "alpha deal",
		Link:    "/a/1",
		FoundAt: found,
	}))
	require.NoError(t, s.MarkNotified(ctx, "run-1", "alpha deal", sent))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordHitWrapsError(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO keywatch_hits").
		WillReturnError(errors.New("connection reset"))

	err := s.RecordHit(context.Background(), store.HitRecord{RunID: "run-1", Title: "t"})
	require.ErrorContains(t, err, "failed to record hit")
	require.ErrorContains(t, err, "connection reset")
}

func TestListHitsScansRows(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	found := time.Unix(1700000000, 0).UTC()
	sent := found.Add(time.Second)

	rows := pgxmock.NewRows([]string{"run_id", "keyword", "title", "link", "found_at", "notified_at"}).
		AddRow("run-1", "beta", "beta news", "", found.Add(time.Minute), (*time.Time)(nil)).
		AddRow("run-1", "alpha", "alpha deal", "/a/1", found, &sent)
	mock.ExpectQuery("SELECT run_id, keyword, title, link, found_at, notified_at").
		WithArgs("run-1", 10, 0).
		WillReturnRows(rows)

	hits, err := s.ListHits(context.Background(), "run-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "beta news", hits[0].Title)
	require.Nil(t, hits[0].NotifiedAt)
	require.Equal(t, "/a/1", hits[1].Link)
	require.NotNil(t, hits[1].NotifiedAt)
	require.True(t, sent.Equal(*hits[1].NotifiedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS keywatch_runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewHitStoreRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewHitStore(context.Background(), HitStoreConfig{})
	require.ErrorContains(t, err, "database.dsn is required")
}
