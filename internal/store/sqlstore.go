package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and applies the schema.
// Creates the parent directory (e.g. .autorxte) if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count); err != nil {
		return fmt.Errorf("check schema version: %w", err)
	}
	if count == 0 {
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	}
	return nil
}

func (s *SqlStore) Close() error { return s.db.Close() }

func (s *SqlStore) RecordBatch(b *Batch) (int64, error) {
	started := b.StartedAt
	if started == "" {
		started = nowUTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO batches (uuid, source, region, items, completed, failed, bytes, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UUID, b.Source, b.Region, b.Items, b.Completed, b.Failed, b.Bytes, started, b.FinishedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert batch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("batch id: %w", err)
	}
	b.ID = id
	return id, nil
}

func (s *SqlStore) FinishBatch(id int64, completed, failed int, bytes int64) error {
	_, err := s.db.Exec(
		`UPDATE batches SET completed = ?, failed = ?, bytes = ?, finished_at = ? WHERE id = ?`,
		completed, failed, bytes, nowUTC(), id,
	)
	if err != nil {
		return fmt.Errorf("finish batch: %w", err)
	}
	return nil
}

func (s *SqlStore) ListBatches(limit int) ([]*Batch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, uuid, source, region, items, completed, failed, bytes, started_at, finished_at
		 FROM batches ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()
	var out []*Batch
	for rows.Next() {
		b := &Batch{}
		if err := rows.Scan(&b.ID, &b.UUID, &b.Source, &b.Region, &b.Items,
			&b.Completed, &b.Failed, &b.Bytes, &b.StartedAt, &b.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SqlStore) RecordStageRun(r *StageRun) (int64, error) {
	created := r.CreatedAt
	if created == "" {
		created = nowUTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO stage_runs (run_uuid, stage, dir, outcome, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunUUID, r.Stage, r.Dir, r.Outcome, r.Reason, created,
	)
	if err != nil {
		return 0, fmt.Errorf("insert stage run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("stage run id: %w", err)
	}
	r.ID = id
	return id, nil
}

func (s *SqlStore) ListStageRuns(limit int) ([]*StageRun, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.Query(
		`SELECT id, run_uuid, stage, dir, outcome, reason, created_at
		 FROM stage_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list stage runs: %w", err)
	}
	defer rows.Close()
	var out []*StageRun
	for rows.Next() {
		r := &StageRun{}
		if err := rows.Scan(&r.ID, &r.RunUUID, &r.Stage, &r.Dir, &r.Outcome, &r.Reason, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stage run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
