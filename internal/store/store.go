// Package store persists validation outcomes so report history can be
// listed, inspected and pruned.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/equity-cli/internal/model"
)

// ErrNotFound is returned by GetRun for an unknown ID.
var ErrNotFound = eris.New("store: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Ticker       string    `json:"ticker,omitempty"`
	CreatedAfter time.Time `json:"created_after,omitempty"`
	Limit        int       `json:"limit,omitempty"`
}

// defaultListLimit applies when RunFilter.Limit is unset.
const defaultListLimit = 100

// Store defines the persistence interface for validation runs.
type Store interface {
	// SaveRun inserts run, assigning an ID and CreatedAt when unset.
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	// ListRuns returns matching runs, newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Retention
	CountByTicker(ctx context.Context) (map[string]int, error)
	PruneTicker(ctx context.Context, ticker string, keepLatest int) (int, error)
	DeleteTicker(ctx context.Context, ticker string) (int, error)
	DeleteBefore(ctx context.Context, before time.Time) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// SaveWithRetention saves run and then trims the ticker's history to
// keepLatest runs. keepLatest <= 0 keeps everything. A failed prune is
// logged and does not fail the save.
func SaveWithRetention(ctx context.Context, st Store, run *model.Run, keepLatest int) error {
	if err := st.SaveRun(ctx, run); err != nil {
		return err
	}
	if keepLatest <= 0 {
		return nil
	}
	n, err := st.PruneTicker(ctx, run.Ticker, keepLatest)
	if err != nil {
		zap.L().Warn("store: prune after save failed", zap.String("ticker", run.Ticker), zap.Error(err))
		return nil
	}
	if n > 0 {
		zap.L().Debug("store: pruned old runs", zap.String("ticker", run.Ticker), zap.Int("deleted", n))
	}
	return nil
}

// NormalizeTicker upper-cases and trims a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// prepareRun fills in defaults and encodes the outcome.
func prepareRun(run *model.Run) ([]byte, error) {
	if run == nil {
		return nil, eris.New("store: nil run")
	}
	run.Ticker = NormalizeTicker(run.Ticker)
	if run.Ticker == "" {
		return nil, eris.New("store: run has no ticker")
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	// Both backends hold microseconds.
	run.CreatedAt = run.CreatedAt.UTC().Truncate(time.Microsecond)

	outcome, err := json.Marshal(run.Outcome)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal outcome")
	}
	return outcome, nil
}

func validateKeep(keepLatest int) error {
	if keepLatest <= 0 {
		return eris.Errorf("store: keep_latest must be > 0, got %d", keepLatest)
	}
	return nil
}

func listLimit(filter RunFilter) int {
	if filter.Limit <= 0 {
		return defaultListLimit
	}
	return filter.Limit
}
