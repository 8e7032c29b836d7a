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

// Package scheduler turns due Schedule records into pipeline runs: claim,
// dispatch, record outcome, all through the narrow metastore.Store
// contract so a single pass never touches SQL directly.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dbbackup/orchestrator/pkg/cronexpr"
	"github.com/dbbackup/orchestrator/pkg/metastore"
	"github.com/dbbackup/orchestrator/pkg/metrics"
	"github.com/dbbackup/orchestrator/pkg/notify"
	"github.com/dbbackup/orchestrator/pkg/pipeline"
	"github.com/dbbackup/orchestrator/pkg/secretredact"
	"github.com/dbbackup/orchestrator/pkg/storage"
)

// PassOptions configures one scheduler pass.
type PassOptions struct {
	DryRun            bool
	MaxJobs           int
	ScheduleID        string
	LeaseSeconds      int
	DefaultSQLitePath string
	BackupRoot        string
	SlackWebhookURL   string
}

// Runner executes scheduler passes against a Store.
type Runner struct {
	Store   metastore.Store
	Logger  *zap.SugaredLogger
	Metrics *metrics.Registry

	// PipelineLogger, when set, is passed to pipeline.RunBackup instead of
	// Logger. This lets "--quiet" silence the per-schedule backup pipeline's
	// own log lines while the scheduler's own pass-level logging (claims,
	// retries, failures) keeps emitting through Logger. Falls back to Logger
	// when nil.
	PipelineLogger *zap.SugaredLogger
}

func (r *Runner) pipelineLogger() *zap.SugaredLogger {
	if r.PipelineLogger != nil {
		return r.PipelineLogger
	}
	return r.Logger
}

// RunPass claims and executes every currently due schedule (bounded by
// opts.MaxJobs), returning how many it actually processed.
func (r *Runner) RunPass(ctx context.Context, opts PassOptions) (int, error) {
	now := time.Now().UTC()
	due, err := r.Store.DueSchedules(ctx, now, opts.ScheduleID, opts.MaxJobs)
	if err != nil {
		return 0, fmt.Errorf("listing due schedules: %w", err)
	}
	if r.Metrics != nil {
		r.Metrics.DueGauge.Set(float64(len(due)))
	}
	if len(due) == 0 {
		r.Logger.Infow("no due schedules", "at", now)
		return 0, nil
	}

	processed := 0
	for _, sch := range due {
		claimed, err := r.Store.Claim(ctx, sch.ID, opts.LeaseSeconds, now)
		if err != nil {
			return processed, fmt.Errorf("claiming schedule %s: %w", sch.ID, err)
		}
		if claimed == nil {
			if r.Metrics != nil {
				r.Metrics.ClaimMisses.Inc()
			}
			continue
		}

		processed++
		r.runOne(ctx, *claimed, now, opts)
	}
	return processed, nil
}

func (r *Runner) runOne(ctx context.Context, sch metastore.Schedule, now time.Time, opts PassOptions) {
	nextRun, cronErr := cronexpr.NextRun(sch.CronExpression, now)
	if cronErr != nil {
		r.disableInvalidSchedule(ctx, sch, cronErr)
		return
	}

	if opts.DryRun {
		r.Logger.Infow("dry run: would execute schedule", "schedule_id", sch.ID, "backup_job_id", sch.BackupJobID, "cron", sch.CronExpression, "next_run_at", nextRun)
		if err := r.Store.ReleaseLease(ctx, sch.ID); err != nil {
			r.Logger.Errorw("failed to release lease after dry run", "schedule_id", sch.ID, "error", err)
		}
		return
	}

	err := r.executeSchedule(ctx, sch, opts)
	if err == nil {
		if err := r.Store.MarkRan(ctx, sch.ID, now, nextRun); err != nil {
			r.Logger.Errorw("failed to persist successful run", "schedule_id", sch.ID, "error", err)
		}
		if r.Metrics != nil {
			r.Metrics.JobsRun.WithLabelValues("success").Inc()
		}
		notify.SendSlack(ctx, r.Logger, opts.SlackWebhookURL, fmt.Sprintf("Scheduled backup succeeded for schedule %s", sch.ID))
		return
	}

	outcome, markErr := r.Store.MarkFailed(ctx, sch.ID, err, nextRun, now)
	if markErr != nil {
		r.Logger.Errorw("failed to persist failed run", "schedule_id", sch.ID, "error", markErr)
		return
	}
	if r.Metrics != nil {
		r.Metrics.JobsRun.WithLabelValues("failed").Inc()
		if outcome.State == "retrying" {
			r.Metrics.RetriesTotal.WithLabelValues(sch.ID).Inc()
		}
	}

	if outcome.State == "retrying" {
		r.Logger.Errorw("schedule failed, will retry", "schedule_id", sch.ID, "attempt", outcome.Attempt,
			"max_retries", outcome.MaxRetries, "delay_seconds", outcome.DelaySeconds, "next_run_at", outcome.NextRunAt, "error", err)
	} else {
		r.Logger.Errorw("schedule failed after max retries", "schedule_id", sch.ID, "next_run_at", outcome.NextRunAt, "error", err)
	}
	notify.SendSlack(ctx, r.Logger, opts.SlackWebhookURL, fmt.Sprintf("Scheduled backup failed for schedule %s: %s", sch.ID, err))
}

func (r *Runner) disableInvalidSchedule(ctx context.Context, sch metastore.Schedule, cronErr error) {
	message := cronErr.Error()
	if err := r.Store.Deactivate(ctx, sch.ID, message); err != nil {
		r.Logger.Errorw("failed to deactivate schedule with invalid cron", "schedule_id", sch.ID, "error", err)
		return
	}
	r.Logger.Errorw("schedule disabled: cron is invalid and next run cannot be computed", "schedule_id", sch.ID, "cron", sch.CronExpression, "error", cronErr)
}

func (r *Runner) executeSchedule(ctx context.Context, sch metastore.Schedule, opts PassOptions) error {
	job, err := r.Store.GetBackupJob(ctx, sch.BackupJobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("backup job %s referenced by schedule %s not found", sch.BackupJobID, sch.ID)
	}

	if err := secretredact.RejectRedacted(job.ConnectionParams); err != nil {
		return err
	}

	name := job.Name
	if !strings.HasSuffix(name, "-scheduled") {
		name += "-scheduled"
	}

	outputDir := job.Destination
	if outputDir == "" {
		outputDir = opts.BackupRoot
	}

	encryptKey := ""
	if job.IsEncrypted {
		encryptKey = os.Getenv("BACKUP_ENCRYPT_KEY")
		if encryptKey == "" {
			return fmt.Errorf("template requires encryption but BACKUP_ENCRYPT_KEY env var is not set")
		}
	}

	backupOpts := pipeline.BackupOptions{
		Name:              name,
		DBType:            job.DBType,
		BackupType:        job.BackupType,
		ConnectionParams:  job.ConnectionParams,
		OutputDir:         outputDir,
		Compress:          job.IsCompressed,
		EncryptKey:        encryptKey,
		DefaultSQLitePath: opts.DefaultSQLitePath,
		Storage: storage.Config{
			Type:        job.StorageType,
			Destination: outputDir,
			Bucket:      stringParam(job.ConnectionParams, "bucket"),
			Container:   stringParam(job.ConnectionParams, "container"),
			Prefix:      stringParam(job.ConnectionParams, "prefix"),
			Region:      stringParam(job.ConnectionParams, "region"),
			AzureConnectionString: stringParam(job.ConnectionParams, "azure_connection_string"),
		},
	}

	r.Logger.Infow("running schedule", "schedule_id", sch.ID, "backup_job_id", job.ID, "db_type", job.DBType, "storage", job.StorageType)
	_, err = pipeline.RunBackup(ctx, r.Store, r.pipelineLogger(), backupOpts)
	return err
}

func stringParam(params map[string]any, key string) string {
	v, ok := params[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
