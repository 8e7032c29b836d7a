/*
Copyright The Database Backup Orchestrator Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS backup_jobs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	db_type TEXT NOT NULL,
	backup_type TEXT NOT NULL,
	connection_params TEXT NOT NULL DEFAULT '{}',
	storage_type TEXT NOT NULL DEFAULT 'local',
	destination TEXT NOT NULL DEFAULT '',
	is_compressed INTEGER NOT NULL DEFAULT 0,
	is_encrypted INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'pending',
	started_at TEXT,
	finished_at TEXT,
	duration_seconds REAL,
	last_error TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS backup_artifacts (
	id TEXT PRIMARY KEY,
	backup_job_id TEXT NOT NULL REFERENCES backup_jobs(id) ON DELETE CASCADE,
	file_name TEXT NOT NULL,
	file_path TEXT NOT NULL,
	storage_type TEXT NOT NULL,
	size_bytes INTEGER NOT NULL DEFAULT 0,
	checksum_sha256 TEXT NOT NULL DEFAULT '',
	is_compressed INTEGER NOT NULL DEFAULT 0,
	is_encrypted INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS restore_jobs (
	id TEXT PRIMARY KEY,
	backup_job_id TEXT REFERENCES backup_jobs(id) ON DELETE SET NULL,
	backup_artifact_id TEXT REFERENCES backup_artifacts(id) ON DELETE SET NULL,
	target_params TEXT NOT NULL DEFAULT '{}',
	selected_tables TEXT NOT NULL DEFAULT '[]',
	status TEXT NOT NULL DEFAULT 'pending',
	started_at TEXT,
	finished_at TEXT,
	duration_seconds REAL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schedules (
	id TEXT PRIMARY KEY,
	backup_job_id TEXT NOT NULL REFERENCES backup_jobs(id) ON DELETE CASCADE,
	cron_expression TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	max_retries INTEGER NOT NULL DEFAULT 3,
	retry_backoff_seconds INTEGER NOT NULL DEFAULT 60,
	retry_count INTEGER NOT NULL DEFAULT 0,
	last_run_at TEXT,
	next_run_at TEXT,
	lease_expires_at TEXT,
	last_error TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_schedules_next_run_at ON schedules(next_run_at);
CREATE INDEX IF NOT EXISTS idx_backup_artifacts_job ON backup_artifacts(backup_job_id);
`

// SQLiteStore is the Store implementation backing the metadata DB.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite metadata database at path and
// applies the schema.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL", path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // SQLite: serialize writers, avoid SQLITE_BUSY under concurrent schedule claims
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying metadata schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func newID() string { return uuid.New().String() }

func timePtrToStr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func strToTimePtr(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func marshalMap(m map[string]any) (string, error) {
	if m == nil {
		m = map[string]any{}
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func unmarshalMap(s string) (map[string]any, error) {
	out := map[string]any{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBackupJob inserts job, assigning an ID and timestamps if unset.
func (s *SQLiteStore) CreateBackupJob(ctx context.Context, job *BackupJob) error {
	if job.ID == "" {
		job.ID = newID()
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	params, err := marshalMap(job.ConnectionParams)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO backup_jobs (id, name, db_type, backup_type, connection_params, storage_type,
			destination, is_compressed, is_encrypted, status, started_at, finished_at,
			duration_seconds, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Name, job.DBType, job.BackupType, params, job.StorageType,
		job.Destination, boolToInt(job.IsCompressed), boolToInt(job.IsEncrypted), job.Status,
		timePtrToStr(job.StartedAt), timePtrToStr(job.FinishedAt), job.DurationSeconds, job.LastError,
		job.CreatedAt.Format(time.RFC3339Nano), job.UpdatedAt.Format(time.RFC3339Nano))
	return err
}

// UpdateBackupJob persists the pipeline-mutable fields of job.
func (s *SQLiteStore) UpdateBackupJob(ctx context.Context, job *BackupJob) error {
	job.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE backup_jobs SET status=?, started_at=?, finished_at=?, duration_seconds=?,
			last_error=?, updated_at=? WHERE id=?`,
		job.Status, timePtrToStr(job.StartedAt), timePtrToStr(job.FinishedAt), job.DurationSeconds,
		job.LastError, job.UpdatedAt.Format(time.RFC3339Nano), job.ID)
	return err
}

func (s *SQLiteStore) GetBackupJob(ctx context.Context, id string) (*BackupJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, db_type, backup_type, connection_params, storage_type,
		destination, is_compressed, is_encrypted, status, started_at, finished_at, duration_seconds,
		last_error, created_at, updated_at FROM backup_jobs WHERE id=?`, id)
	return scanBackupJob(row)
}

func scanBackupJob(row *sql.Row) (*BackupJob, error) {
	var job BackupJob
	var params string
	var isCompressed, isEncrypted int
	var startedAt, finishedAt sql.NullString
	var duration sql.NullFloat64
	var createdAt, updatedAt string

	err := row.Scan(&job.ID, &job.Name, &job.DBType, &job.BackupType, &params, &job.StorageType,
		&job.Destination, &isCompressed, &isEncrypted, &job.Status, &startedAt, &finishedAt, &duration,
		&job.LastError, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	job.IsCompressed = isCompressed != 0
	job.IsEncrypted = isEncrypted != 0
	if job.ConnectionParams, err = unmarshalMap(params); err != nil {
		return nil, err
	}
	if job.StartedAt, err = strToTimePtr(startedAt); err != nil {
		return nil, err
	}
	if job.FinishedAt, err = strToTimePtr(finishedAt); err != nil {
		return nil, err
	}
	if duration.Valid {
		d := duration.Float64
		job.DurationSeconds = &d
	}
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *SQLiteStore) CreateBackupArtifact(ctx context.Context, artifact *BackupArtifact) error {
	if artifact.ID == "" {
		artifact.ID = newID()
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backup_artifacts (id, backup_job_id, file_name, file_path, storage_type,
			size_bytes, checksum_sha256, is_compressed, is_encrypted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		artifact.ID, artifact.BackupJobID, artifact.FileName, artifact.FilePath, artifact.StorageType,
		artifact.SizeBytes, artifact.ChecksumSHA256, boolToInt(artifact.IsCompressed),
		boolToInt(artifact.IsEncrypted), artifact.CreatedAt.Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) GetBackupArtifact(ctx context.Context, id string) (*BackupArtifact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, backup_job_id, file_name, file_path, storage_type,
		size_bytes, checksum_sha256, is_compressed, is_encrypted, created_at
		FROM backup_artifacts WHERE id=?`, id)
	var a BackupArtifact
	var isCompressed, isEncrypted int
	var createdAt string
	err := row.Scan(&a.ID, &a.BackupJobID, &a.FileName, &a.FilePath, &a.StorageType, &a.SizeBytes,
		&a.ChecksumSHA256, &isCompressed, &isEncrypted, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.IsCompressed = isCompressed != 0
	a.IsEncrypted = isEncrypted != 0
	if a.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *SQLiteStore) ListBackupArtifacts(ctx context.Context, limit int) ([]BackupArtifact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, backup_job_id, file_name, file_path, storage_type,
		size_bytes, checksum_sha256, is_compressed, is_encrypted, created_at
		FROM backup_artifacts ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BackupArtifact
	for rows.Next() {
		var a BackupArtifact
		var isCompressed, isEncrypted int
		var createdAt string
		if err := rows.Scan(&a.ID, &a.BackupJobID, &a.FileName, &a.FilePath, &a.StorageType, &a.SizeBytes,
			&a.ChecksumSHA256, &isCompressed, &isEncrypted, &createdAt); err != nil {
			return nil, err
		}
		a.IsCompressed = isCompressed != 0
		a.IsEncrypted = isEncrypted != 0
		if a.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateRestoreJob(ctx context.Context, job *RestoreJob) error {
	if job.ID == "" {
		job.ID = newID()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	params, err := marshalMap(job.TargetParams)
	if err != nil {
		return err
	}
	tables, err := json.Marshal(job.SelectedTables)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO restore_jobs (id, backup_job_id, backup_artifact_id, target_params, selected_tables,
			status, started_at, finished_at, duration_seconds, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, nilIfEmpty(job.BackupJobID), nilIfEmpty(job.BackupArtifactID), params, string(tables),
		job.Status, timePtrToStr(job.StartedAt), timePtrToStr(job.FinishedAt), job.DurationSeconds,
		job.ErrorMessage, job.CreatedAt.Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) UpdateRestoreJob(ctx context.Context, job *RestoreJob) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE restore_jobs SET status=?, finished_at=?, duration_seconds=?, error_message=?
		WHERE id=?`,
		job.Status, timePtrToStr(job.FinishedAt), job.DurationSeconds, job.ErrorMessage, job.ID)
	return err
}

func (s *SQLiteStore) CreateSchedule(ctx context.Context, schedule *Schedule) error {
	if schedule.ID == "" {
		schedule.ID = newID()
	}
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedules (id, backup_job_id, cron_expression, is_active, max_retries,
			retry_backoff_seconds, retry_count, last_run_at, next_run_at, lease_expires_at,
			last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		schedule.ID, schedule.BackupJobID, schedule.CronExpression, boolToInt(schedule.IsActive),
		schedule.MaxRetries, schedule.RetryBackoffSeconds, schedule.RetryCount,
		timePtrToStr(schedule.LastRunAt), timePtrToStr(schedule.NextRunAt), timePtrToStr(schedule.LeaseExpiresAt),
		schedule.LastError, schedule.CreatedAt.Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) GetSchedule(ctx context.Context, id string) (*Schedule, error) {
	row := s.db.QueryRowContext(ctx, scheduleSelect+" WHERE id=?", id)
	return scanSchedule(row)
}

const scheduleSelect = `SELECT id, backup_job_id, cron_expression, is_active, max_retries,
	retry_backoff_seconds, retry_count, last_run_at, next_run_at, lease_expires_at, last_error, created_at
	FROM schedules`

func scanSchedule(row *sql.Row) (*Schedule, error) {
	var sch Schedule
	var isActive int
	var lastRunAt, nextRunAt, leaseExpiresAt sql.NullString
	var createdAt string
	err := row.Scan(&sch.ID, &sch.BackupJobID, &sch.CronExpression, &isActive, &sch.MaxRetries,
		&sch.RetryBackoffSeconds, &sch.RetryCount, &lastRunAt, &nextRunAt, &leaseExpiresAt,
		&sch.LastError, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sch.IsActive = isActive != 0
	if sch.LastRunAt, err = strToTimePtr(lastRunAt); err != nil {
		return nil, err
	}
	if sch.NextRunAt, err = strToTimePtr(nextRunAt); err != nil {
		return nil, err
	}
	if sch.LeaseExpiresAt, err = strToTimePtr(leaseExpiresAt); err != nil {
		return nil, err
	}
	if sch.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	return &sch, nil
}

func (s *SQLiteStore) ListSchedules(ctx context.Context, activeOnly bool, limit int) ([]Schedule, error) {
	query := scheduleSelect
	args := []any{}
	if activeOnly {
		query += " WHERE is_active=1"
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Schedule
	for rows.Next() {
		var sch Schedule
		var isActive int
		var lastRunAt, nextRunAt, leaseExpiresAt sql.NullString
		var createdAt string
		if err := rows.Scan(&sch.ID, &sch.BackupJobID, &sch.CronExpression, &isActive, &sch.MaxRetries,
			&sch.RetryBackoffSeconds, &sch.RetryCount, &lastRunAt, &nextRunAt, &leaseExpiresAt,
			&sch.LastError, &createdAt); err != nil {
			return nil, err
		}
		sch.IsActive = isActive != 0
		if sch.LastRunAt, err = strToTimePtr(lastRunAt); err != nil {
			return nil, err
		}
		if sch.NextRunAt, err = strToTimePtr(nextRunAt); err != nil {
			return nil, err
		}
		if sch.LeaseExpiresAt, err = strToTimePtr(leaseExpiresAt); err != nil {
			return nil, err
		}
		if sch.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, err
		}
		out = append(out, sch)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DueSchedules(ctx context.Context, now time.Time, onlyID string, limit int) ([]Schedule, error) {
	query := scheduleSelect + ` WHERE is_active=1
		AND (next_run_at IS NULL OR next_run_at <= ?)
		AND (lease_expires_at IS NULL OR lease_expires_at <= ?)`
	nowStr := now.UTC().Format(time.RFC3339Nano)
	args := []any{nowStr, nowStr}

	if onlyID != "" {
		query += " AND id=?"
		args = append(args, onlyID)
	}
	query += " ORDER BY (next_run_at IS NOT NULL), next_run_at ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Schedule
	for rows.Next() {
		var sch Schedule
		var isActive int
		var lastRunAt, nextRunAt, leaseExpiresAt sql.NullString
		var createdAt string
		if err := rows.Scan(&sch.ID, &sch.BackupJobID, &sch.CronExpression, &isActive, &sch.MaxRetries,
			&sch.RetryBackoffSeconds, &sch.RetryCount, &lastRunAt, &nextRunAt, &leaseExpiresAt,
			&sch.LastError, &createdAt); err != nil {
			return nil, err
		}
		sch.IsActive = isActive != 0
		if sch.LastRunAt, err = strToTimePtr(lastRunAt); err != nil {
			return nil, err
		}
		if sch.NextRunAt, err = strToTimePtr(nextRunAt); err != nil {
			return nil, err
		}
		if sch.LeaseExpiresAt, err = strToTimePtr(leaseExpiresAt); err != nil {
			return nil, err
		}
		if sch.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, err
		}
		out = append(out, sch)
	}
	return out, rows.Err()
}

// Claim is the single coordination point of the whole scheduler: one
// guarded UPDATE filtered by id, is_active and an unexpired-or-null lease.
// The first writer's statement affects one row; every later writer's
// identical statement affects zero, because by the time it runs the
// lease column it filtered on has already moved into the future.
func (s *SQLiteStore) Claim(ctx context.Context, id string, leaseSeconds int, now time.Time) (*Schedule, error) {
	newLease := now.Add(time.Duration(leaseSeconds) * time.Second).UTC().Format(time.RFC3339Nano)
	nowStr := now.UTC().Format(time.RFC3339Nano)

	result, err := s.db.ExecContext(ctx, `
		UPDATE schedules SET lease_expires_at=?
		WHERE id=? AND is_active=1 AND (lease_expires_at IS NULL OR lease_expires_at <= ?)`,
		newLease, id, nowStr)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetSchedule(ctx, id)
}

func (s *SQLiteStore) MarkRan(ctx context.Context, id string, now, nextRunAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE schedules SET last_run_at=?, next_run_at=?, retry_count=0, last_error='', lease_expires_at=NULL
		WHERE id=?`,
		now.UTC().Format(time.RFC3339Nano), nextRunAt.UTC().Format(time.RFC3339Nano), id)
	return err
}

const maxLastErrorLen = 4000
const maxBackoffSeconds = 3600

func (s *SQLiteStore) MarkFailed(ctx context.Context, id string, failErr error, nextCronRunAt, now time.Time) (FailureOutcome, error) {
	schedule, err := s.GetSchedule(ctx, id)
	if err != nil {
		return FailureOutcome{}, err
	}
	if schedule == nil {
		return FailureOutcome{}, fmt.Errorf("schedule %s not found", id)
	}

	message := failErr.Error()
	if len(message) > maxLastErrorLen {
		message = message[:maxLastErrorLen]
	}

	attempt := schedule.RetryCount + 1
	outcome := FailureOutcome{Attempt: attempt, MaxRetries: schedule.MaxRetries}

	if attempt <= schedule.MaxRetries {
		delay := backoffDelay(schedule.RetryBackoffSeconds, attempt)
		outcome.State = "retrying"
		outcome.DelaySeconds = delay
		outcome.NextRunAt = now.Add(time.Duration(delay) * time.Second)

		_, err = s.db.ExecContext(ctx, `
			UPDATE schedules SET retry_count=?, next_run_at=?, last_error=?, lease_expires_at=NULL WHERE id=?`,
			attempt, outcome.NextRunAt.UTC().Format(time.RFC3339Nano), message, id)
	} else {
		outcome.State = "next_cron"
		outcome.NextRunAt = nextCronRunAt

		_, err = s.db.ExecContext(ctx, `
			UPDATE schedules SET retry_count=0, next_run_at=?, last_error=?, lease_expires_at=NULL WHERE id=?`,
			outcome.NextRunAt.UTC().Format(time.RFC3339Nano), message, id)
	}
	if err != nil {
		return FailureOutcome{}, err
	}
	return outcome, nil
}

// backoffDelay computes min(base * 2^(attempt-1), 3600) seconds.
func backoffDelay(base, attempt int) int {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoffSeconds {
			return maxBackoffSeconds
		}
	}
	if delay > maxBackoffSeconds {
		return maxBackoffSeconds
	}
	return delay
}

func (s *SQLiteStore) Deactivate(ctx context.Context, id string, lastError string) error {
	if len(lastError) > maxLastErrorLen {
		lastError = lastError[:maxLastErrorLen]
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE schedules SET is_active=0, last_error=?, lease_expires_at=NULL WHERE id=?`, lastError, id)
	return err
}

func (s *SQLiteStore) ReleaseLease(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE schedules SET lease_expires_at=NULL WHERE id=?`, id)
	return err
}

func (s *SQLiteStore) Counts(ctx context.Context, now time.Time) (StatusCounts, error) {
	var c StatusCounts
	nowStr := now.UTC().Format(time.RFC3339Nano)

	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM backup_jobs`)
	if err := row.Scan(&c.TotalJobs); err != nil {
		return c, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM backup_jobs WHERE status=?`, StatusSuccess).Scan(&c.SuccessJobs); err != nil {
		return c, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM backup_jobs WHERE status=?`, StatusFailed).Scan(&c.FailedJobs); err != nil {
		return c, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM backup_artifacts`).Scan(&c.TotalArtifacts); err != nil {
		return c, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM restore_jobs`).Scan(&c.TotalRestores); err != nil {
		return c, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM restore_jobs WHERE status=?`, StatusFailed).Scan(&c.FailedRestores); err != nil {
		return c, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schedules WHERE is_active=1`).Scan(&c.ActiveSchedules); err != nil {
		return c, err
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM schedules WHERE is_active=1
			AND (next_run_at IS NULL OR next_run_at <= ?)
			AND (lease_expires_at IS NULL OR lease_expires_at <= ?)`, nowStr, nowStr).Scan(&c.DueSchedules); err != nil {
		return c, err
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM schedules WHERE is_active=1 AND lease_expires_at > ?`, nowStr).Scan(&c.LeasedSchedules); err != nil {
		return c, err
	}
	return c, nil
}

func (s *SQLiteStore) LatestArtifact(ctx context.Context) (*BackupArtifact, error) {
	rows, err := s.ListBackupArtifacts(ctx, 1)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (s *SQLiteStore) LatestRestore(ctx context.Context) (*RestoreJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, backup_job_id, backup_artifact_id, target_params,
		selected_tables, status, started_at, finished_at, duration_seconds, error_message, created_at
		FROM restore_jobs ORDER BY created_at DESC LIMIT 1`)

	var j RestoreJob
	var backupJobID, backupArtifactID sql.NullString
	var params, tables string
	var startedAt, finishedAt sql.NullString
	var duration sql.NullFloat64
	var createdAt string

	err := row.Scan(&j.ID, &backupJobID, &backupArtifactID, &params, &tables, &j.Status, &startedAt,
		&finishedAt, &duration, &j.ErrorMessage, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if backupJobID.Valid {
		j.BackupJobID = &backupJobID.String
	}
	if backupArtifactID.Valid {
		j.BackupArtifactID = &backupArtifactID.String
	}
	if j.TargetParams, err = unmarshalMap(params); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tables), &j.SelectedTables); err != nil {
		return nil, err
	}
	if j.StartedAt, err = strToTimePtr(startedAt); err != nil {
		return nil, err
	}
	if j.FinishedAt, err = strToTimePtr(finishedAt); err != nil {
		return nil, err
	}
	if duration.Valid {
		d := duration.Float64
		j.DurationSeconds = &d
	}
	if j.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *SQLiteStore) NextSchedule(ctx context.Context) (*Schedule, error) {
	row := s.db.QueryRowContext(ctx, scheduleSelect+` WHERE is_active=1 AND next_run_at IS NOT NULL
		ORDER BY next_run_at ASC LIMIT 1`)
	return scanSchedule(row)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nilIfEmpty(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
