// Package store persists the accumulated degree-day series in SQLite. The
// (model, run_id, date) triple is the primary key, so replaying a batch is a
// no-op: inserts collapse exact duplicates instead of inflating day counts
// and distorting averages downstream.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/weatherdesk/degreeday/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS degree_day_records (
	model              TEXT NOT NULL,
	run_id             TEXT NOT NULL,
	date               TEXT NOT NULL,
	mean_temp          REAL NOT NULL,
	hdd                REAL NOT NULL,
	cdd                REAL NOT NULL,
	mean_temp_weighted REAL,
	hdd_weighted       REAL,
	computed_at        TEXT NOT NULL,
	PRIMARY KEY (model, run_id, date)
);
CREATE INDEX IF NOT EXISTS idx_records_model_run ON degree_day_records (model, run_id);
`

// Store is the durable record store. Batch inserts run in a single
// transaction, so they serialize naturally against concurrently completing
// runs; reads see a consistent snapshot.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the SQLite database at path and applies
// the schema. WAL mode keeps concurrent readers off the writer's lock.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("record store %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate record store: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// InsertBatch appends a batch of records atomically, collapsing exact
// (model, run_id, date) duplicates. Returns how many rows were actually
// inserted; the difference from len(records) is the number of duplicates
// dropped. Arrival order never changes the surviving content.
func (s *Store) InsertBatch(ctx context.Context, records []domain.DegreeDayRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO degree_day_records
			(model, run_id, date, mean_temp, hdd, cdd, mean_temp_weighted, hdd_weighted, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (model, run_id, date) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		res, err := stmt.ExecContext(ctx,
			rec.Model, rec.RunID, rec.Date.String(),
			rec.MeanTemp, rec.HDD, rec.CDD,
			nullable(rec.WeightedMeanTemp), nullable(rec.WeightedHDD),
			rec.ComputedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return 0, fmt.Errorf("insert %s %s %s: %w", rec.Model, rec.RunID, rec.Date, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("insert %s %s %s: %w", rec.Model, rec.RunID, rec.Date, err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert batch: %w", err)
	}
	if dropped := len(records) - inserted; dropped > 0 {
		s.logger.Info("dropped duplicate records during merge", "count", dropped)
	}
	return inserted, nil
}

// Models lists all models present, alphabetically.
func (s *Store) Models(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT model FROM degree_day_records ORDER BY model`)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var models []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// Snapshot returns every record for a model ordered by run then date. The
// result is an immutable value snapshot; run-delta and season queries are
// pure functions over it.
func (s *Store) Snapshot(ctx context.Context, model string) ([]domain.DegreeDayRecord, error) {
	return s.queryRecords(ctx, `
		SELECT model, run_id, date, mean_temp, hdd, cdd, mean_temp_weighted, hdd_weighted, computed_at
		FROM degree_day_records WHERE model = ? ORDER BY run_id, date`, model)
}

// LatestRun returns the most recent run's records for a model, ordered by
// date. Run recency is the lexicographic order of run identifiers. Returns
// ErrInsufficientHistory when the model has no records at all.
func (s *Store) LatestRun(ctx context.Context, model string) (string, []domain.DegreeDayRecord, error) {
	var runID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(run_id) FROM degree_day_records WHERE model = ?`, model).Scan(&runID)
	if err != nil {
		return "", nil, fmt.Errorf("latest run %s: %w", model, err)
	}
	if !runID.Valid {
		return "", nil, fmt.Errorf("latest run %s: %w", model, domain.ErrInsufficientHistory)
	}

	records, err := s.queryRecords(ctx, `
		SELECT model, run_id, date, mean_temp, hdd, cdd, mean_temp_weighted, hdd_weighted, computed_at
		FROM degree_day_records WHERE model = ? AND run_id = ? ORDER BY date`, model, runID.String)
	if err != nil {
		return "", nil, err
	}
	return runID.String, records, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]domain.DegreeDayRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []domain.DegreeDayRecord
	for rows.Next() {
		var (
			rec         domain.DegreeDayRecord
			date        string
			computedAt  string
			wMean, wHDD sql.NullFloat64
		)
		if err := rows.Scan(&rec.Model, &rec.RunID, &date, &rec.MeanTemp, &rec.HDD, &rec.CDD,
			&wMean, &wHDD, &computedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if rec.Date, err = domain.ParseDate(date); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if rec.ComputedAt, err = time.Parse(time.RFC3339Nano, computedAt); err != nil {
			return nil, fmt.Errorf("scan record computed_at: %w", err)
		}
		if wMean.Valid {
			v := wMean.Float64
			rec.WeightedMeanTemp = &v
		}
		if wHDD.Valid {
			v := wHDD.Float64
			rec.WeightedHDD = &v
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
