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
	"time"
)

// Store is the narrow repository contract the scheduler, pipeline and CLI
// are written against. It is satisfied by *SQLiteStore.
type Store interface {
	CreateBackupJob(ctx context.Context, job *BackupJob) error
	UpdateBackupJob(ctx context.Context, job *BackupJob) error
	GetBackupJob(ctx context.Context, id string) (*BackupJob, error)
	ListBackupArtifacts(ctx context.Context, limit int) ([]BackupArtifact, error)
	CreateBackupArtifact(ctx context.Context, artifact *BackupArtifact) error
	GetBackupArtifact(ctx context.Context, id string) (*BackupArtifact, error)

	CreateRestoreJob(ctx context.Context, job *RestoreJob) error
	UpdateRestoreJob(ctx context.Context, job *RestoreJob) error

	CreateSchedule(ctx context.Context, schedule *Schedule) error
	GetSchedule(ctx context.Context, id string) (*Schedule, error)
	ListSchedules(ctx context.Context, activeOnly bool, limit int) ([]Schedule, error)
	// DueSchedules returns schedules satisfying the due predicate, ordered
	// by ascending next_run_at with nulls first, filtered to id when
	// onlyID is non-empty.
	DueSchedules(ctx context.Context, now time.Time, onlyID string, limit int) ([]Schedule, error)
	// Claim atomically acquires schedule id for leaseSeconds via a single
	// guarded conditional update. Returns nil, nil when another worker
	// already holds (or just took) the lease.
	Claim(ctx context.Context, id string, leaseSeconds int, now time.Time) (*Schedule, error)
	// MarkRan records a successful run and releases the lease.
	MarkRan(ctx context.Context, id string, now, nextRunAt time.Time) error
	// MarkFailed applies the retry/backoff state machine and releases the
	// lease, returning the resulting transition.
	MarkFailed(ctx context.Context, id string, failErr error, nextCronRunAt, now time.Time) (FailureOutcome, error)
	// Deactivate marks a schedule inactive (invalid cron case) and
	// releases the lease.
	Deactivate(ctx context.Context, id string, lastError string) error
	// ReleaseLease releases the lease without any other state change
	// (dry-run path).
	ReleaseLease(ctx context.Context, id string) error

	Counts(ctx context.Context, now time.Time) (StatusCounts, error)
	LatestArtifact(ctx context.Context) (*BackupArtifact, error)
	LatestRestore(ctx context.Context) (*RestoreJob, error)
	NextSchedule(ctx context.Context) (*Schedule, error)

	Close() error
}

// FailureOutcome is the result of MarkFailed, mirroring spec §4.5.
type FailureOutcome struct {
	State       string // "retrying" or "next_cron"
	Attempt     int
	MaxRetries  int
	DelaySeconds int
	NextRunAt   time.Time
}

// StatusCounts backs the system-status command.
type StatusCounts struct {
	TotalJobs      int
	SuccessJobs    int
	FailedJobs     int
	TotalArtifacts int
	TotalRestores  int
	FailedRestores int
	ActiveSchedules int
	DueSchedules    int
	LeasedSchedules int
}
