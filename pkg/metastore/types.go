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

// Package metastore persists the auditable BackupJob/BackupArtifact/
// RestoreJob/Schedule records behind a narrow repository contract. The
// scheduler, pipeline and CLI never touch SQL directly; they call Store.
package metastore

import "time"

// Job status values.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Supported database engines.
const (
	DBTypeSQLite   = "sqlite"
	DBTypePostgres = "postgres"
	DBTypeMySQL    = "mysql"
	DBTypeMongo    = "mongo"
)

// Supported backup types.
const (
	BackupTypeFull         = "full"
	BackupTypeIncremental  = "incremental"
	BackupTypeDifferential = "differential"
)

// Supported storage backends.
const (
	StorageTypeLocal = "local"
	StorageTypeS3    = "s3"
	StorageTypeGCS   = "gcs"
	StorageTypeAzure = "azure"
)

// BackupJob is a backup template/history record: created on every CLI
// invocation or scheduled run, mutated only by the pipeline, never deleted
// by the core.
type BackupJob struct {
	ID               string
	Name             string
	DBType           string
	BackupType       string
	ConnectionParams map[string]any
	StorageType      string
	Destination      string
	IsCompressed     bool
	IsEncrypted      bool
	Status           string
	StartedAt        *time.Time
	FinishedAt       *time.Time
	DurationSeconds  *float64
	LastError        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BackupArtifact is the immutable record of a successfully produced and
// uploaded backup file.
type BackupArtifact struct {
	ID             string
	BackupJobID    string
	FileName       string
	FilePath       string
	StorageType    string
	SizeBytes      int64
	ChecksumSHA256 string
	IsCompressed   bool
	IsEncrypted    bool
	CreatedAt      time.Time
}

// RestoreJob optionally references the BackupJob/BackupArtifact it
// restored from. Never created when the restore target is the metadata
// store itself.
type RestoreJob struct {
	ID              string
	BackupJobID     *string
	BackupArtifactID *string
	TargetParams    map[string]any
	SelectedTables  []string
	Status          string
	StartedAt       *time.Time
	FinishedAt      *time.Time
	DurationSeconds *float64
	ErrorMessage    string
	CreatedAt       time.Time
}

// Schedule is a persisted recurring plan pairing a cron expression with a
// BackupJob template.
type Schedule struct {
	ID                  string
	BackupJobID         string
	CronExpression      string
	IsActive            bool
	MaxRetries          int
	RetryBackoffSeconds int
	RetryCount          int
	LastRunAt           *time.Time
	NextRunAt           *time.Time
	LeaseExpiresAt      *time.Time
	LastError           string
	CreatedAt           time.Time
}

// IsDue reports whether the schedule satisfies the due predicate of the
// data model: active, next_run_at is null or not in the future, and not
// currently leased.
func (s Schedule) IsDue(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	if s.NextRunAt != nil && s.NextRunAt.After(now) {
		return false
	}
	if s.LeaseExpiresAt != nil && s.LeaseExpiresAt.After(now) {
		return false
	}
	return true
}

// IsLeased reports whether the schedule is currently held by a worker.
func (s Schedule) IsLeased(now time.Time) bool {
	return s.LeaseExpiresAt != nil && s.LeaseExpiresAt.After(now)
}
