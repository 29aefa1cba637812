package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/corpuslab/quantang-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	start_volume INTEGER NOT NULL,
	end_volume   INTEGER NOT NULL,
	stats        TEXT,
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at  DATETIME
);

CREATE TABLE IF NOT EXISTS target_outcomes (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	volume       INTEGER NOT NULL,
	status       TEXT NOT NULL,
	retries      INTEGER NOT NULL DEFAULT 0,
	last_outcome TEXT,
	records      INTEGER NOT NULL DEFAULT 0,
	recorded_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (run_id, volume)
);

CREATE INDEX IF NOT EXISTS idx_target_outcomes_status
	ON target_outcomes(status);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new run row.
func (s *SQLiteStore) CreateRun(ctx context.Context, kind string, startVolume, endVolume int) (*Run, error) {
	run := &Run{
		ID:          uuid.NewString(),
		Kind:        kind,
		StartVolume: startVolume,
		EndVolume:   endVolume,
		StartedAt:   time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, start_volume, end_volume, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.StartVolume, run.EndVolume, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create run")
	}
	return run, nil
}

// FinishRun records the final statistics and completion time.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, stats *model.Stats) error {
	blob, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal stats")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET stats = ?, finished_at = datetime('now') WHERE id = ?`,
		string(blob), runID,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: finish run")
	}
	return checkRowsAffected(res, "run", runID)
}

// RecordTarget upserts the terminal state of one target within a run.
func (s *SQLiteStore) RecordTarget(ctx context.Context, runID string, state model.TargetState) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO target_outcomes (run_id, volume, status, retries, last_outcome, records)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, volume) DO UPDATE SET
		   status = excluded.status,
		   retries = excluded.retries,
		   last_outcome = excluded.last_outcome,
		   records = excluded.records,
		   recorded_at = datetime('now')`,
		runID, state.Volume, string(state.Status), state.Retries, state.LastOutcome, state.Records,
	)
	return eris.Wrap(err, "sqlite: record target")
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, start_volume, end_volume, stats, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			stats    sql.NullString
			finished sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.Kind, &run.StartVolume, &run.EndVolume, &stats, &run.StartedAt, &finished); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if stats.Valid && stats.String != "" {
			var st model.Stats
			if err := json.Unmarshal([]byte(stats.String), &st); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal stats")
			}
			run.Stats = &st
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: %s not found: %s", entity, id)
	}
	return nil
}
