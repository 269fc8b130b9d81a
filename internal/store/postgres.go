package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/equity-cli/internal/db"
	"github.com/sells-group/equity-cli/internal/model"
)

// PostgresStore implements Store on a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"insert_run": `INSERT INTO runs (id, ticker, completeness_score, confidence, conflicts, route, outcome, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"get_run":    `SELECT id, ticker, outcome, created_at FROM runs WHERE id = $1`,
	"prune_run":  `DELETE FROM runs WHERE ticker = $1 AND id NOT IN (SELECT id FROM runs WHERE ticker = $1 ORDER BY created_at DESC, id DESC LIMIT $2)`,
}

// NewPostgres connects to Postgres and returns a store.
func NewPostgres(ctx context.Context, connString string, poolCfg db.PoolConfig) (*PostgresStore, error) {
	poolCfg.Prepared = preparedStatements
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id                 TEXT PRIMARY KEY,
	ticker             TEXT NOT NULL,
	completeness_score INTEGER NOT NULL,
	confidence         TEXT NOT NULL,
	conflicts          INTEGER NOT NULL DEFAULT 0,
	route              TEXT NOT NULL,
	outcome            JSONB NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_ticker_created ON runs(ticker, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *model.Run) error {
	outcome, err := prepareRun(run)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, preparedStatements["insert_run"],
		run.ID, run.Ticker, run.Outcome.Result.CompletenessScore, string(run.Outcome.Result.Confidence),
		len(run.Outcome.Verification.Conflicts), string(run.Outcome.Route), outcome, run.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert run %s", run.ID)
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	r, err := scanPostgresRun(s.pool.QueryRow(ctx, preparedStatements["get_run"], id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, ticker, outcome, created_at FROM runs WHERE true`
	var args []any
	argIdx := 1

	if filter.Ticker != "" {
		query += fmt.Sprintf(` AND ticker = $%d`, argIdx)
		args = append(args, NormalizeTicker(filter.Ticker))
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at > $%d`, argIdx)
		args = append(args, filter.CreatedAfter.UTC())
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) CountByTicker(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT ticker, COUNT(*) FROM runs GROUP BY ticker`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count by ticker")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var ticker string
		var n int64
		if err := rows.Scan(&ticker, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan count")
		}
		counts[ticker] = int(n)
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count by ticker iterate")
}

func (s *PostgresStore) PruneTicker(ctx context.Context, ticker string, keepLatest int) (int, error) {
	if err := validateKeep(keepLatest); err != nil {
		return 0, err
	}
	ticker = NormalizeTicker(ticker)
	tag, err := s.pool.Exec(ctx, preparedStatements["prune_run"], ticker, keepLatest)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: prune %s", ticker)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) DeleteTicker(ctx context.Context, ticker string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM runs WHERE ticker = $1`, NormalizeTicker(ticker))
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: delete ticker %s", ticker)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) DeleteBefore(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM runs WHERE created_at < $1`, before.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete before")
	}
	return int(tag.RowsAffected()), nil
}

func scanPostgresRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var outcome []byte
	if err := row.Scan(&r.ID, &r.Ticker, &outcome, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(outcome, &r.Outcome); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal outcome")
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}
