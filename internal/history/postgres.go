package history

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/analysis-core/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool      Pool
	retention Retention
	appends   atomic.Int64
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analysis_history (
	id             TEXT PRIMARY KEY,
	question_text  TEXT NOT NULL,
	classification JSONB NOT NULL,
	outcome_status TEXT NOT NULL,
	error_category TEXT NOT NULL DEFAULT '',
	recorded_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_history_recorded_at ON analysis_history(recorded_at);
CREATE INDEX IF NOT EXISTS idx_history_outcome ON analysis_history(outcome_status);
`

// NewPostgres creates a PostgresStore with a connection pool and applies
// the schema.
func NewPostgres(ctx context.Context, connString string, retention Retention) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "history: parse postgres config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "history: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "history: ping")
	}

	s := &PostgresStore{pool: pool, retention: retention}
	if _, err := pool.Exec(ctx, postgresMigration); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "history: migrate postgres")
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Append inserts a record. Conflicting ids are ignored, which makes the
// operation idempotent per record id.
func (s *PostgresStore) Append(ctx context.Context, record model.HistoryRecord) error {
	clsJSON, err := json.Marshal(record.Classification)
	if err != nil {
		return eris.Wrap(err, "history: marshal classification")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analysis_history
		 (id, question_text, classification, outcome_status, error_category, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		record.ID, record.QuestionText, clsJSON,
		string(record.OutcomeStatus), string(record.ErrorCategory),
		record.Timestamp.UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "history: insert record")
	}

	if s.appends.Add(1)%appendTrimInterval == 0 {
		if n, err := s.Prune(ctx); err != nil {
			zap.L().Warn("history: opportunistic prune failed", zap.Error(err))
		} else if n > 0 {
			zap.L().Debug("history: pruned records", zap.Int("evicted", n))
		}
	}
	return nil
}

func (s *PostgresStore) FindSimilar(ctx context.Context, questionText string, limit int) ([]model.HistoryRecord, error) {
	records, err := s.scan(ctx,
		`SELECT id, question_text, classification, outcome_status, error_category, recorded_at
		 FROM analysis_history ORDER BY recorded_at DESC`)
	if err != nil {
		return nil, err
	}
	return rankBySimilarity(records, questionText, limit), nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]model.HistoryRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.scan(ctx,
		`SELECT id, question_text, classification, outcome_status, error_category, recorded_at
		 FROM analysis_history ORDER BY recorded_at DESC LIMIT $1`, limit)
}

func (s *PostgresStore) Counts(ctx context.Context) (map[model.OutcomeStatus]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT outcome_status, COUNT(*) FROM analysis_history GROUP BY outcome_status`)
	if err != nil {
		return nil, eris.Wrap(err, "history: count by outcome")
	}
	defer rows.Close()

	counts := make(map[model.OutcomeStatus]int)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "history: scan count row")
		}
		counts[model.OutcomeStatus(status)] = int(n)
	}
	return counts, eris.Wrap(rows.Err(), "history: iterate counts")
}

func (s *PostgresStore) ErrorPatterns(ctx context.Context) (map[model.ErrorCategory]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT error_category, COUNT(*) FROM analysis_history
		 WHERE error_category != '' GROUP BY error_category`)
	if err != nil {
		return nil, eris.Wrap(err, "history: count error patterns")
	}
	defer rows.Close()

	patterns := make(map[model.ErrorCategory]int)
	for rows.Next() {
		var category string
		var n int64
		if err := rows.Scan(&category, &n); err != nil {
			return nil, eris.Wrap(err, "history: scan pattern row")
		}
		patterns[model.ErrorCategory(category)] = int(n)
	}
	return patterns, eris.Wrap(rows.Err(), "history: iterate patterns")
}

func (s *PostgresStore) Prune(ctx context.Context) (int, error) {
	evicted := 0

	if s.retention.MaxAge > 0 {
		cutoff := time.Now().UTC().Add(-s.retention.MaxAge)
		tag, err := s.pool.Exec(ctx,
			`DELETE FROM analysis_history WHERE recorded_at < $1`, cutoff)
		if err != nil {
			return evicted, eris.Wrap(err, "history: prune by age")
		}
		evicted += int(tag.RowsAffected())
	}

	if s.retention.MaxRecords > 0 {
		tag, err := s.pool.Exec(ctx,
			`DELETE FROM analysis_history WHERE id NOT IN (
				SELECT id FROM analysis_history ORDER BY recorded_at DESC LIMIT $1
			)`, s.retention.MaxRecords)
		if err != nil {
			return evicted, eris.Wrap(err, "history: prune by count")
		}
		evicted += int(tag.RowsAffected())
	}

	return evicted, nil
}

func (s *PostgresStore) scan(ctx context.Context, query string, args ...any) ([]model.HistoryRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "history: query records")
	}
	defer rows.Close()

	var records []model.HistoryRecord
	for rows.Next() {
		var r model.HistoryRecord
		var clsJSON []byte
		var status, category string
		if err := rows.Scan(&r.ID, &r.QuestionText, &clsJSON, &status, &category, &r.Timestamp); err != nil {
			return nil, eris.Wrap(err, "history: scan record")
		}
		if err := json.Unmarshal(clsJSON, &r.Classification); err != nil {
			return nil, eris.Wrapf(err, "history: unmarshal classification %s", r.ID)
		}
		r.OutcomeStatus = model.OutcomeStatus(status)
		r.ErrorCategory = model.ErrorCategory(category)
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "history: iterate records")
}
