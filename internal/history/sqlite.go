package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/analysis-core/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db        *sql.DB
	retention Retention
	appends   atomic.Int64
}

// NewSQLite opens a SQLite database at the given path, configures WAL mode,
// and applies the schema.
func NewSQLite(dsn string, retention Retention) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "history: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "history: exec %s", pragma)
		}
	}

	s := &SQLiteStore{db: db, retention: retention}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analysis_history (
	id             TEXT PRIMARY KEY,
	question_text  TEXT NOT NULL,
	classification TEXT NOT NULL,
	outcome_status TEXT NOT NULL,
	error_category TEXT,
	recorded_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_recorded_at ON analysis_history(recorded_at);
CREATE INDEX IF NOT EXISTS idx_history_outcome ON analysis_history(outcome_status);
`

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "history: migrate sqlite")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append inserts a record. Re-appending the same record id is a no-op.
func (s *SQLiteStore) Append(ctx context.Context, record model.HistoryRecord) error {
	clsJSON, err := json.Marshal(record.Classification)
	if err != nil {
		return eris.Wrap(err, "history: marshal classification")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO analysis_history
		 (id, question_text, classification, outcome_status, error_category, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID, record.QuestionText, string(clsJSON),
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

// FindSimilar ranks stored questions by Jaccard similarity to questionText.
// The single SELECT gives a stable snapshot; ranking happens in memory.
func (s *SQLiteStore) FindSimilar(ctx context.Context, questionText string, limit int) ([]model.HistoryRecord, error) {
	records, err := s.scan(ctx,
		`SELECT id, question_text, classification, outcome_status, error_category, recorded_at
		 FROM analysis_history ORDER BY recorded_at DESC`)
	if err != nil {
		return nil, err
	}
	return rankBySimilarity(records, questionText, limit), nil
}

// Recent returns the newest records, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]model.HistoryRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.scan(ctx,
		`SELECT id, question_text, classification, outcome_status, error_category, recorded_at
		 FROM analysis_history ORDER BY recorded_at DESC LIMIT ?`, limit)
}

// Counts tallies stored records by outcome status.
func (s *SQLiteStore) Counts(ctx context.Context) (map[model.OutcomeStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome_status, COUNT(*) FROM analysis_history GROUP BY outcome_status`)
	if err != nil {
		return nil, eris.Wrap(err, "history: count by outcome")
	}
	defer rows.Close()

	counts := make(map[model.OutcomeStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "history: scan count row")
		}
		counts[model.OutcomeStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "history: iterate counts")
}

// ErrorPatterns tallies non-succeeded records by error category.
func (s *SQLiteStore) ErrorPatterns(ctx context.Context) (map[model.ErrorCategory]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT error_category, COUNT(*) FROM analysis_history
		 WHERE error_category != '' GROUP BY error_category`)
	if err != nil {
		return nil, eris.Wrap(err, "history: count error patterns")
	}
	defer rows.Close()

	patterns := make(map[model.ErrorCategory]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, eris.Wrap(err, "history: scan pattern row")
		}
		patterns[model.ErrorCategory(category)] = n
	}
	return patterns, eris.Wrap(rows.Err(), "history: iterate patterns")
}

// Prune evicts the oldest records past the retention bounds and returns how
// many were removed.
func (s *SQLiteStore) Prune(ctx context.Context) (int, error) {
	evicted := 0

	if s.retention.MaxAge > 0 {
		cutoff := time.Now().UTC().Add(-s.retention.MaxAge)
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM analysis_history WHERE recorded_at < ?`, cutoff)
		if err != nil {
			return evicted, eris.Wrap(err, "history: prune by age")
		}
		n, _ := res.RowsAffected()
		evicted += int(n)
	}

	if s.retention.MaxRecords > 0 {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM analysis_history WHERE id NOT IN (
				SELECT id FROM analysis_history ORDER BY recorded_at DESC LIMIT ?
			)`, s.retention.MaxRecords)
		if err != nil {
			return evicted, eris.Wrap(err, "history: prune by count")
		}
		n, _ := res.RowsAffected()
		evicted += int(n)
	}

	return evicted, nil
}

func (s *SQLiteStore) scan(ctx context.Context, query string, args ...any) ([]model.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "history: query records")
	}
	defer rows.Close()

	var records []model.HistoryRecord
	for rows.Next() {
		var r model.HistoryRecord
		var clsJSON, status, category string
		if err := rows.Scan(&r.ID, &r.QuestionText, &clsJSON, &status, &category, &r.Timestamp); err != nil {
			return nil, eris.Wrap(err, "history: scan record")
		}
		if err := json.Unmarshal([]byte(clsJSON), &r.Classification); err != nil {
			return nil, eris.Wrapf(err, "history: unmarshal classification %s", r.ID)
		}
		r.OutcomeStatus = model.OutcomeStatus(status)
		r.ErrorCategory = model.ErrorCategory(category)
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "history: iterate records")
}
