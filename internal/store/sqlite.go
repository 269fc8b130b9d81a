package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/equity-cli/internal/model"
)

// sqliteTime is fixed width so lexical order matches time order.
const sqliteTime = "2006-01-02T15:04:05.000000Z"

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id                 TEXT PRIMARY KEY,
	ticker             TEXT NOT NULL,
	completeness_score INTEGER NOT NULL,
	confidence         TEXT NOT NULL,
	conflicts          INTEGER NOT NULL DEFAULT 0,
	route              TEXT NOT NULL,
	outcome            TEXT NOT NULL,
	created_at         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_ticker_created ON runs(ticker, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run) error {
	outcome, err := prepareRun(run)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, ticker, completeness_score, confidence, conflicts, route, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Ticker, run.Outcome.Result.CompletenessScore, string(run.Outcome.Result.Confidence),
		len(run.Outcome.Verification.Conflicts), string(run.Outcome.Route), string(outcome),
		run.CreatedAt.Format(sqliteTime),
	)
	return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, ticker, outcome, created_at FROM runs WHERE id = ?`, id)
	r, err := scanSQLiteRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", id)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, ticker, outcome, created_at FROM runs WHERE 1=1`
	var args []any
	if filter.Ticker != "" {
		query += ` AND ticker = ?`
		args = append(args, NormalizeTicker(filter.Ticker))
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at > ?`
		args = append(args, filter.CreatedAfter.UTC().Format(sqliteTime))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: list runs")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) CountByTicker(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ticker, COUNT(*) FROM runs GROUP BY ticker`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count by ticker")
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[string]int)
	for rows.Next() {
		var ticker string
		var n int
		if err := rows.Scan(&ticker, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan count")
		}
		counts[ticker] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count by ticker iterate")
}

func (s *SQLiteStore) PruneTicker(ctx context.Context, ticker string, keepLatest int) (int, error) {
	if err := validateKeep(keepLatest); err != nil {
		return 0, err
	}
	ticker = NormalizeTicker(ticker)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE ticker = ? AND id NOT IN (
			SELECT id FROM runs WHERE ticker = ? ORDER BY created_at DESC, id DESC LIMIT ?
		)`,
		ticker, ticker, keepLatest,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: prune %s", ticker)
	}
	return rowsAffected(res)
}

func (s *SQLiteStore) DeleteTicker(ctx context.Context, ticker string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE ticker = ?`, NormalizeTicker(ticker))
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete ticker %s", ticker)
	}
	return rowsAffected(res)
}

func (s *SQLiteStore) DeleteBefore(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, before.UTC().Format(sqliteTime))
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete before")
	}
	return rowsAffected(res)
}

// helpers

func rowsAffected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteRun(row scannable) (*model.Run, error) {
	var r model.Run
	var outcome, created string
	if err := row.Scan(&r.ID, &r.Ticker, &outcome, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(sqliteTime, created)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: parse created_at %q", created)
	}
	r.CreatedAt = t
	if err := json.Unmarshal([]byte(outcome), &r.Outcome); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal outcome")
	}
	return &r, nil
}
