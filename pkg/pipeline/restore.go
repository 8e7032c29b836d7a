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

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dbbackup/orchestrator/pkg/dbadapter"
	"github.com/dbbackup/orchestrator/pkg/metastore"
	"github.com/dbbackup/orchestrator/pkg/secretredact"
)

// RestoreOptions configures a single restore run.
type RestoreOptions struct {
	ArtifactID string
	BackupFile string

	DBType           string
	ConnectionParams map[string]any
	Tables           []string
	DecryptKey       string

	DefaultSQLitePath string
	// IsMetadataStoreTarget is precomputed by the caller by comparing the
	// resolved target path against the metadata store's own path, since
	// that comparison depends on config the pipeline package does not own.
	IsMetadataStoreTarget bool
	// CloseMetadataStore is invoked immediately before the adapter.Restore
	// call when IsMetadataStoreTarget is set, so the restore is not
	// competing with an open connection to the file it is overwriting.
	CloseMetadataStore func() error
}

// RunRestore executes one restore end to end. When restoring the metadata
// store's own database file, the RestoreJob audit record is deliberately
// not persisted, since the store being written to is the very thing being
// replaced.
func RunRestore(ctx context.Context, store metastore.Store, logger *zap.SugaredLogger, opts RestoreOptions) error {
	if opts.DBType == dbadapter.SQLite {
		if opts.ConnectionParams == nil {
			opts.ConnectionParams = map[string]any{}
		}
		opts.ConnectionParams["allow_create"] = true
	}

	backupFile, backupJobID, backupArtifactID, err := resolveBackupSource(ctx, store, opts)
	if err != nil {
		return err
	}
	if _, err := os.Stat(backupFile); err != nil {
		return fmt.Errorf("backup file does not exist: %s", backupFile)
	}

	startedAt := time.Now().UTC()
	var restoreJob *metastore.RestoreJob
	if !opts.IsMetadataStoreTarget {
		restoreJob = &metastore.RestoreJob{
			BackupJobID:      backupJobID,
			BackupArtifactID: backupArtifactID,
			TargetParams:     secretredact.Redact(opts.ConnectionParams),
			SelectedTables:   opts.Tables,
			Status:           metastore.StatusRunning,
			StartedAt:        &startedAt,
		}
		if err := store.CreateRestoreJob(ctx, restoreJob); err != nil {
			return fmt.Errorf("persisting restore job: %w", err)
		}
	} else {
		logger.Warnw("restoring over the metadata store's own database; RestoreJob persistence is skipped for this run")
	}

	runErr := runRestorePipeline(ctx, logger, opts, backupFile)
	finishedAt := time.Now().UTC()
	duration := finishedAt.Sub(startedAt).Seconds()

	if restoreJob != nil {
		restoreJob.FinishedAt = &finishedAt
		restoreJob.DurationSeconds = &duration
		if runErr != nil {
			restoreJob.Status = metastore.StatusFailed
			restoreJob.ErrorMessage = runErr.Error()
		} else {
			restoreJob.Status = metastore.StatusSuccess
			restoreJob.ErrorMessage = ""
		}
		if updateErr := store.UpdateRestoreJob(ctx, restoreJob); updateErr != nil {
			logger.Errorw("failed to persist restore job outcome", "restore_job_id", restoreJob.ID, "error", updateErr)
		}
	}
	return runErr
}

func resolveBackupSource(ctx context.Context, store metastore.Store, opts RestoreOptions) (backupFile string, backupJobID, backupArtifactID *string, err error) {
	backupFile = opts.BackupFile

	if opts.ArtifactID != "" {
		artifact, err := store.GetBackupArtifact(ctx, opts.ArtifactID)
		if err != nil {
			return "", nil, nil, err
		}
		if artifact == nil {
			return "", nil, nil, fmt.Errorf("backup artifact with id=%s not found", opts.ArtifactID)
		}
		backupArtifactID = &artifact.ID
		backupJobID = &artifact.BackupJobID

		if backupFile == "" {
			if artifact.StorageType != metastore.StorageTypeLocal {
				return "", nil, nil, fmt.Errorf("artifact is not local; download it first and pass an explicit backup file")
			}
			backupFile = artifact.FilePath
		}
	}

	if backupFile == "" {
		return "", nil, nil, fmt.Errorf("provide a backup file path or an artifact id")
	}
	return backupFile, backupJobID, backupArtifactID, nil
}

func runRestorePipeline(ctx context.Context, logger *zap.SugaredLogger, opts RestoreOptions, backupFile string) error {
	workDir, err := os.MkdirTemp("", "restore_work_*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	workingPath := backupFile

	if strings.EqualFold(filepath.Ext(workingPath), ".enc") {
		if opts.DecryptKey == "" {
			return fmt.Errorf("backup file is encrypted; provide a decrypt key")
		}
		target := filepath.Join(workDir, strings.TrimSuffix(filepath.Base(workingPath), filepath.Ext(workingPath)))
		workingPath, err = decryptFile(workingPath, opts.DecryptKey, target, false)
		if err != nil {
			return err
		}
	}

	if strings.EqualFold(filepath.Ext(workingPath), ".gz") {
		target := filepath.Join(workDir, strings.TrimSuffix(filepath.Base(workingPath), filepath.Ext(workingPath)))
		workingPath, err = decompressFile(workingPath, target, false)
		if err != nil {
			return err
		}
	}

	adapter, err := dbadapter.New(opts.DBType, opts.ConnectionParams, opts.DefaultSQLitePath, logger)
	if err != nil {
		return err
	}
	if err := adapter.TestConnection(ctx); err != nil {
		return err
	}

	if opts.IsMetadataStoreTarget && opts.CloseMetadataStore != nil {
		if err := opts.CloseMetadataStore(); err != nil {
			return fmt.Errorf("closing metadata store before self-restore: %w", err)
		}
	}

	return adapter.Restore(ctx, workingPath, opts.Tables)
}
