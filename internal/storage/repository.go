package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/SHUNKURANARI/excel/internal/core"
	"github.com/SHUNKURANARI/excel/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository mirrors work records locally and keeps the report job
// queue.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// pragmas below are per connection
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) timestamp() string {
	return r.now().UTC().Format(time.RFC3339)
}

// UpsertRecords stores raw records keyed by app and record number. Records
// without a number are skipped.
func (r *SQLiteRepository) UpsertRecords(ctx context.Context, app int, records []core.RawRecord) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO work_records (app, record_number, payload, synced_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(app, record_number) DO UPDATE SET payload = excluded.payload, synced_at = excluded.synced_at`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := r.timestamp()
	n := 0
	for _, rec := range records {
		number := rec.Value(RecordNumberField)
		if number == "" {
			continue
		}
		payload, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("encode record %s: %w", number, err)
		}
		if _, err := stmt.ExecContext(ctx, app, number, string(payload), now); err != nil {
			return 0, fmt.Errorf("upsert record %s: %w", number, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit records: %w", err)
	}

	slog.InfoContext(ctx, "Records mirrored",
		log.FieldComponent, log.ComponentStorage,
		log.FieldApp, app,
		log.FieldRecordCount, n)
	return n, nil
}

// RecordNumberField is the field code records are keyed by.
const RecordNumberField = "レコード番号"

// FetchAll returns the mirrored records of q.App that match q, ordered by
// record number.
func (r *SQLiteRepository) FetchAll(ctx context.Context, q core.Query) ([]core.RawRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT record_number, payload FROM work_records
		WHERE app = ?
		ORDER BY CAST(record_number AS INTEGER), record_number`, q.App)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []core.RawRecord
	for rows.Next() {
		var number, payload string
		if err := rows.Scan(&number, &payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec core.RawRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", number, err)
		}
		if q.Matches(rec) {
			out = append(out, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// CountRecords returns how many records of app are mirrored.
func (r *SQLiteRepository) CountRecords(ctx context.Context, app int) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM work_records WHERE app = ?`, app).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// JobStatus is the lifecycle state of a report job.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job is a queued report generation.
type Job struct {
	ID         string      `json:"id"`
	Kind       string      `json:"kind"`
	Header     core.Header `json:"header"`
	Status     JobStatus   `json:"status"`
	Attempts   int         `json:"attempts"`
	Error      string      `json:"error,omitempty"`
	Filename   string      `json:"filename,omitempty"`
	OutputPath string      `json:"-"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// CreateJob inserts a pending job.
func (r *SQLiteRepository) CreateJob(ctx context.Context, id, kind string, h core.Header) (Job, error) {
	header, err := json.Marshal(h)
	if err != nil {
		return Job{}, fmt.Errorf("encode header: %w", err)
	}
	now := r.timestamp()
	if _, err := r.db.ExecContext(ctx, `INSERT INTO report_jobs (id, kind, header, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`, id, kind, string(header), JobPending, now, now); err != nil {
		return Job{}, fmt.Errorf("insert job: %w", err)
	}
	return r.GetJob(ctx, id)
}

const jobColumns = `id, kind, header, status, attempts, error, filename, output_path, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var (
		j                    Job
		header, status       string
		createdAt, updatedAt string
	)
	if err := row.Scan(&j.ID, &j.Kind, &header, &status, &j.Attempts, &j.Error, &j.Filename, &j.OutputPath, &createdAt, &updatedAt); err != nil {
		return Job{}, err
	}
	if err := json.Unmarshal([]byte(header), &j.Header); err != nil {
		return Job{}, fmt.Errorf("decode job header: %w", err)
	}
	j.Status = JobStatus(status)
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return j, nil
}

// GetJob loads a job by ID.
func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM report_jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, &core.MissingResourceError{Resource: "report job", ID: id}
	}
	if err != nil {
		return Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return j, nil
}

// PendingJobs returns the oldest pending jobs with fewer than maxAttempts
// attempts.
func (r *SQLiteRepository) PendingJobs(ctx context.Context, limit, maxAttempts int) ([]Job, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM report_jobs
		WHERE status = ? AND attempts < ?
		ORDER BY created_at, id
		LIMIT ?`, JobPending, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// ClaimJob moves a pending job to running and counts the attempt. It
// reports false when another worker claimed it first.
func (r *SQLiteRepository) ClaimJob(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE report_jobs
		SET status = ?, attempts = attempts + 1, updated_at = ?
		WHERE id = ? AND status = ?`, JobRunning, r.timestamp(), id, JobPending)
	if err != nil {
		return false, fmt.Errorf("claim job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim job %s: %w", id, err)
	}
	return n == 1, nil
}

// CompleteJob records the generated file.
func (r *SQLiteRepository) CompleteJob(ctx context.Context, id, filename, outputPath string) error {
	return r.updateJob(ctx, id, `UPDATE report_jobs
		SET status = ?, error = '', filename = ?, output_path = ?, updated_at = ?
		WHERE id = ?`, JobDone, filename, outputPath, r.timestamp(), id)
}

// FailJob records a failure. Retryable failures go back to pending.
func (r *SQLiteRepository) FailJob(ctx context.Context, id, message string, retryable bool) error {
	status := JobFailed
	if retryable {
		status = JobPending
	}
	return r.updateJob(ctx, id, `UPDATE report_jobs
		SET status = ?, error = ?, updated_at = ?
		WHERE id = ?`, status, message, r.timestamp(), id)
}

func (r *SQLiteRepository) updateJob(ctx context.Context, id, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &core.MissingResourceError{Resource: "report job", ID: id}
	}
	return nil
}

// ResetStaleJobs returns jobs left running by a crashed worker to pending.
func (r *SQLiteRepository) ResetStaleJobs(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE report_jobs SET status = ?, updated_at = ? WHERE status = ?`,
		JobPending, r.timestamp(), JobRunning)
	if err != nil {
		return 0, fmt.Errorf("reset stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// DeleteFinishedJobs removes done and failed jobs last updated before
// cutoff and returns the output paths they referenced.
func (r *SQLiteRepository) DeleteFinishedJobs(ctx context.Context, cutoff time.Time) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	ts := cutoff.UTC().Format(time.RFC3339)
	rows, err := tx.QueryContext(ctx, `SELECT output_path FROM report_jobs
		WHERE status IN (?, ?) AND updated_at < ? AND output_path != ''`, JobDone, JobFailed, ts)
	if err != nil {
		return nil, fmt.Errorf("query finished jobs: %w", err)
	}
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan output path: %w", err)
		}
		paths = append(paths, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate finished jobs: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM report_jobs WHERE status IN (?, ?) AND updated_at < ?`,
		JobDone, JobFailed, ts); err != nil {
		return nil, fmt.Errorf("delete finished jobs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cleanup: %w", err)
	}
	return paths, nil
}
