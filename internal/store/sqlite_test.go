package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	st, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	run := sampleRun("AAPL", baseTime)
	require.NoError(t, st.SaveRun(ctx, run))
	require.NoError(t, st.Close())

	st, err = NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Outcome.Result.CompletenessScore, got.Outcome.Result.CompletenessScore)
}

func TestSQLite_DuplicateID(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run := sampleRun("AAPL", baseTime)
	require.NoError(t, st.SaveRun(ctx, run))

	dup := sampleRun("AAPL", baseTime)
	dup.ID = run.ID
	err := st.SaveRun(ctx, dup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite: insert run")
}

func TestSQLite_CorruptOutcome(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.db.ExecContext(ctx,
		`INSERT INTO runs (id, ticker, completeness_score, confidence, conflicts, route, outcome, created_at)
		 VALUES ('bad', 'AAPL', 0, 'Low', 0, 'analysis', 'not json', '2026-03-02T14:30:00.000000Z')`)
	require.NoError(t, err)

	_, err = st.GetRun(ctx, "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal outcome")
}

func TestSQLite_SummaryColumns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run := sampleRun("AAPL", baseTime)
	require.NoError(t, st.SaveRun(ctx, run))

	var score, conflicts int
	var confidence, route string
	err := st.db.QueryRowContext(ctx,
		`SELECT completeness_score, confidence, conflicts, route FROM runs WHERE id = ?`, run.ID,
	).Scan(&score, &confidence, &conflicts, &route)
	require.NoError(t, err)
	assert.Equal(t, run.Outcome.Result.CompletenessScore, score)
	assert.Equal(t, string(run.Outcome.Result.Confidence), confidence)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, "human_review", route)
}
