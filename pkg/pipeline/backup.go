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

// Package pipeline runs the adapter -> compress -> encrypt -> checksum ->
// upload sequence that turns a BackupJob into a BackupArtifact, and the
// inverse sequence for restores.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sethvargo/go-password/password"
	"go.uber.org/zap"

	"github.com/dbbackup/orchestrator/pkg/dbadapter"
	"github.com/dbbackup/orchestrator/pkg/metastore"
	"github.com/dbbackup/orchestrator/pkg/secretredact"
	"github.com/dbbackup/orchestrator/pkg/storage"
)

var defaultFileSuffix = map[string]string{
	dbadapter.SQLite:   ".sqlite3",
	dbadapter.Postgres: ".dump",
	dbadapter.MySQL:    ".sql",
	dbadapter.Mongo:    ".archive",
}

// BackupOptions configures a single backup run.
type BackupOptions struct {
	Name             string
	DBType           string
	BackupType       string
	ConnectionParams map[string]any
	Tables           []string

	OutputDir string
	Filename  string
	Compress  bool
	EncryptKey string

	Storage storage.Config

	DefaultSQLitePath string
}

// BackupResult is what a successful run hands back to the caller (the CLI
// command or the scheduler) to log and persist.
type BackupResult struct {
	Job      *metastore.BackupJob
	Artifact *metastore.BackupArtifact
}

// RunBackup executes one backup end to end, persisting BackupJob/
// BackupArtifact rows in store as it goes so a crash mid-pipeline still
// leaves an auditable failed job behind.
func RunBackup(ctx context.Context, store metastore.Store, logger *zap.SugaredLogger, opts BackupOptions) (*BackupResult, error) {
	startedAt := time.Now().UTC()

	job := &metastore.BackupJob{
		Name:             opts.Name,
		DBType:           opts.DBType,
		BackupType:       opts.BackupType,
		ConnectionParams: secretredact.Redact(opts.ConnectionParams),
		StorageType:      opts.Storage.Type,
		Destination:      opts.OutputDir,
		IsCompressed:     opts.Compress,
		IsEncrypted:      opts.EncryptKey != "",
		Status:           metastore.StatusRunning,
		StartedAt:        &startedAt,
	}
	if job.StorageType == "" {
		job.StorageType = metastore.StorageTypeLocal
	}
	if err := store.CreateBackupJob(ctx, job); err != nil {
		return nil, fmt.Errorf("persisting backup job: %w", err)
	}

	artifact, err := runBackupPipeline(ctx, store, logger, opts, job)
	finishedAt := time.Now().UTC()
	duration := finishedAt.Sub(startedAt).Seconds()
	job.FinishedAt = &finishedAt
	job.DurationSeconds = &duration

	if err != nil {
		job.Status = metastore.StatusFailed
		job.LastError = err.Error()
		if updateErr := store.UpdateBackupJob(ctx, job); updateErr != nil {
			logger.Errorw("failed to persist failed backup job", "job_id", job.ID, "error", updateErr)
		}
		return nil, err
	}

	job.Status = metastore.StatusSuccess
	job.LastError = ""
	if err := store.UpdateBackupJob(ctx, job); err != nil {
		return nil, fmt.Errorf("persisting successful backup job: %w", err)
	}
	return &BackupResult{Job: job, Artifact: artifact}, nil
}

func runBackupPipeline(ctx context.Context, store metastore.Store, logger *zap.SugaredLogger, opts BackupOptions, job *metastore.BackupJob) (*metastore.BackupArtifact, error) {
	adapter, err := dbadapter.New(opts.DBType, opts.ConnectionParams, opts.DefaultSQLitePath, logger)
	if err != nil {
		return nil, err
	}
	if err := adapter.TestConnection(ctx); err != nil {
		return nil, err
	}

	stagingDir := filepath.Join(opts.OutputDir, ".staging-"+stagingSuffix())
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, err
	}
	defer os.RemoveAll(stagingDir)

	filename := opts.Filename
	if filename == "" {
		filename = defaultFilename(opts.Name, opts.DBType)
	}
	outputPath := filepath.Join(stagingDir, filename)

	effectiveType, err := adapter.Backup(ctx, outputPath, opts.BackupType, opts.Tables)
	if err != nil {
		return nil, err
	}
	if effectiveType != opts.BackupType {
		logger.Infow("backup type downgraded by adapter fallback", "requested", opts.BackupType, "effective", effectiveType, "db_type", opts.DBType)
	}
	producedPath := outputPath

	if opts.Compress {
		producedPath, err = compressFile(producedPath, true)
		if err != nil {
			return nil, err
		}
	}
	if opts.EncryptKey != "" {
		producedPath, err = encryptFile(producedPath, opts.EncryptKey, true)
		if err != nil {
			return nil, err
		}
	}

	checksum, err := sha256Checksum(producedPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(producedPath)
	if err != nil {
		return nil, err
	}

	finalURI, err := uploadWithRetry(ctx, opts.Storage, producedPath, filepath.Base(producedPath))
	if err != nil {
		return nil, err
	}

	artifact := &metastore.BackupArtifact{
		BackupJobID:    job.ID,
		FileName:       filepath.Base(producedPath),
		FilePath:       finalURI,
		StorageType:    job.StorageType,
		SizeBytes:      info.Size(),
		ChecksumSHA256: checksum,
		IsCompressed:   opts.Compress,
		IsEncrypted:    opts.EncryptKey != "",
	}
	if err := store.CreateBackupArtifact(ctx, artifact); err != nil {
		return nil, fmt.Errorf("persisting backup artifact: %w", err)
	}
	return artifact, nil
}

// uploadWithRetry wraps the storage upload in a small bounded retry,
// distinct from the scheduler's cross-run cron backoff: transient network
// errors within a single pipeline run are worth retrying immediately
// rather than waiting for the next scheduled attempt.
func uploadWithRetry(ctx context.Context, cfg storage.Config, localPath, filename string) (string, error) {
	var uri string
	err := retry.Do(
		func() error {
			backend, err := storage.New(ctx, cfg)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			uri, err = backend.StoreFile(ctx, localPath, filename)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
	)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return uri, nil
}

func defaultFilename(name, dbType string) string {
	suffix, ok := defaultFileSuffix[dbType]
	if !ok {
		suffix = ".bak"
	}
	safeName := strings.ToLower(strings.ReplaceAll(name, " ", "_"))
	timestamp := time.Now().UTC().Format("20060102T150405Z")
	return fmt.Sprintf("%s-%s-%s%s", safeName, dbType, timestamp, suffix)
}

// stagingSuffix returns a short random suffix for a staging directory name,
// keeping concurrent runs of the same schedule from colliding.
func stagingSuffix() string {
	suffix, err := password.Generate(8, 4, 0, true, true)
	if err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return suffix
}
