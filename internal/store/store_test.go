package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/equity-cli/internal/model"
	"github.com/sells-group/equity-cli/internal/validation"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

var baseTime = time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

func sampleOutcome(ticker string) model.Outcome {
	primary := model.NewRecord(map[string]model.Value{
		model.KeyCurrentPrice:  model.Number(150),
		model.KeyTrailingPE:    model.Number(20),
		model.KeyDebtToEquity:  model.Number(50),
		model.KeyProfitMargins: model.Number(0.25),
	})
	secondary := model.NewSource("Alpha Vantage", model.NewRecord(map[string]model.Value{
		model.KeyMarketCap:    model.Number(2.5e12),
		model.KeyDebtToEquity: model.Number(90),
	}))
	return validation.Validate(ticker, primary, secondary)
}

func sampleRun(ticker string, at time.Time) *model.Run {
	return &model.Run{Ticker: ticker, Outcome: sampleOutcome(ticker), CreatedAt: at}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("SaveAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run := sampleRun(" aapl ", baseTime)
		require.NoError(t, s.SaveRun(ctx, run))
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, "AAPL", run.Ticker)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, "AAPL", got.Ticker)
		assert.True(t, baseTime.Equal(got.CreatedAt))
		assert.Equal(t, run.Outcome.Report, got.Outcome.Report)
		assert.Equal(t, run.Outcome.Result, got.Outcome.Result)
		assert.Equal(t, model.RouteHumanReview, got.Outcome.Route)
		assert.Equal(t, []string{model.KeyMarketCap}, got.Outcome.Enrichment.FilledKeys())
		assert.True(t, got.Outcome.Enrichment.Record.Equal(run.Outcome.Enrichment.Record))
	})

	t.Run("GetRunNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetRun(context.Background(), "missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SaveRunAssignsCreatedAt", func(t *testing.T) {
		s := newStore(t)
		run := sampleRun("MSFT", time.Time{})
		require.NoError(t, s.SaveRun(context.Background(), run))
		assert.False(t, run.CreatedAt.IsZero())
		assert.Equal(t, time.UTC, run.CreatedAt.Location())
	})

	t.Run("SaveRunRejectsEmptyTicker", func(t *testing.T) {
		s := newStore(t)
		err := s.SaveRun(context.Background(), sampleRun("  ", baseTime))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no ticker")
	})

	t.Run("ListRunsFilters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			require.NoError(t, s.SaveRun(ctx, sampleRun("AAPL", baseTime.Add(time.Duration(i)*time.Hour))))
		}
		require.NoError(t, s.SaveRun(ctx, sampleRun("MSFT", baseTime.Add(30*time.Minute))))

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		for i := 1; i < len(all); i++ {
			assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt), "newest first")
		}

		aapl, err := s.ListRuns(ctx, RunFilter{Ticker: "aapl"})
		require.NoError(t, err)
		assert.Len(t, aapl, 3)

		recent, err := s.ListRuns(ctx, RunFilter{CreatedAfter: baseTime.Add(45 * time.Minute)})
		require.NoError(t, err)
		assert.Len(t, recent, 2)

		limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.True(t, baseTime.Add(2*time.Hour).Equal(limited[0].CreatedAt))
	})

	t.Run("CountByTicker", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.SaveRun(ctx, sampleRun("AAPL", baseTime)))
		require.NoError(t, s.SaveRun(ctx, sampleRun("AAPL", baseTime.Add(time.Minute))))
		require.NoError(t, s.SaveRun(ctx, sampleRun("NVDA", baseTime)))

		counts, err := s.CountByTicker(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"AAPL": 2, "NVDA": 1}, counts)
	})

	t.Run("PruneTickerKeepsLatest", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			require.NoError(t, s.SaveRun(ctx, sampleRun("AAPL", baseTime.Add(time.Duration(i)*time.Minute))))
		}
		require.NoError(t, s.SaveRun(ctx, sampleRun("MSFT", baseTime)))

		n, err := s.PruneTicker(ctx, "AAPL", 2)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		left, err := s.ListRuns(ctx, RunFilter{Ticker: "AAPL"})
		require.NoError(t, err)
		require.Len(t, left, 2)
		assert.True(t, baseTime.Add(4*time.Minute).Equal(left[0].CreatedAt))
		assert.True(t, baseTime.Add(3*time.Minute).Equal(left[1].CreatedAt))

		counts, err := s.CountByTicker(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, counts["MSFT"], "other tickers untouched")

		_, err = s.PruneTicker(ctx, "AAPL", 0)
		assert.Error(t, err)
	})

	t.Run("DeleteTicker", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.SaveRun(ctx, sampleRun("AAPL", baseTime)))
		require.NoError(t, s.SaveRun(ctx, sampleRun("AAPL", baseTime.Add(time.Second))))
		require.NoError(t, s.SaveRun(ctx, sampleRun("MSFT", baseTime)))

		n, err := s.DeleteTicker(ctx, "aapl")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = s.DeleteTicker(ctx, "AAPL")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("DeleteBefore", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.SaveRun(ctx, sampleRun("AAPL", baseTime.Add(-48*time.Hour))))
		require.NoError(t, s.SaveRun(ctx, sampleRun("AAPL", baseTime)))

		n, err := s.DeleteBefore(ctx, baseTime.Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		left, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		assert.Len(t, left, 1)
	})

	t.Run("SaveWithRetention", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for i := 0; i < 4; i++ {
			require.NoError(t, SaveWithRetention(ctx, s, sampleRun("AAPL", baseTime.Add(time.Duration(i)*time.Minute)), 3))
		}
		counts, err := s.CountByTicker(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, counts["AAPL"])

		require.NoError(t, SaveWithRetention(ctx, s, sampleRun("AAPL", baseTime.Add(time.Hour)), 0))
		counts, err = s.CountByTicker(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, counts["AAPL"], "zero keeps everything")
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestNormalizeTicker(t *testing.T) {
	assert.Equal(t, "BRK.B", NormalizeTicker(" brk.b\n"))
}
