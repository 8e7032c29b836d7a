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

// Package createschedule implements the "dbbackup create-schedule" command.
package createschedule

import (
	"context"
	"fmt"
	"time"

	"github.com/logrusorgru/aurora/v3"
	"github.com/spf13/cobra"

	icmd "github.com/dbbackup/orchestrator/internal/cmd"
	"github.com/dbbackup/orchestrator/pkg/cronexpr"
	"github.com/dbbackup/orchestrator/pkg/metastore"
)

type flags struct {
	global icmd.GlobalFlags

	backupJobID         string
	cron                string
	inactive            bool
	maxRetries          int
	retryBackoffSeconds int
	dueNow              bool
}

// NewCmd builds the "create-schedule" subcommand.
func NewCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "create-schedule",
		Short: "Create a recurring schedule pairing a cron expression with a backup job template",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}

	icmd.AddGlobalFlags(cmd.Flags(), &f.global)

	flags := cmd.Flags()
	flags.StringVar(&f.backupJobID, "backup-job-id", "", "BackupJob id to use as the schedule's template (required)")
	flags.StringVar(&f.cron, "cron", "", "5-field cron expression (required)")
	flags.BoolVar(&f.inactive, "inactive", false, "Create the schedule disabled")
	flags.IntVar(&f.maxRetries, "max-retries", 3, "Maximum consecutive retry attempts before falling back to the next cron firing")
	flags.IntVar(&f.retryBackoffSeconds, "retry-backoff-seconds", 60, "Base backoff in seconds for the retry/backoff state machine")
	flags.BoolVar(&f.dueNow, "due-now", false, "Leave next_run_at unset so the schedule is immediately due")
	cmd.MarkFlagRequired("backup-job-id") //nolint:errcheck
	cmd.MarkFlagRequired("cron")          //nolint:errcheck

	return cmd
}

func run(f *flags) error {
	settings, err := icmd.LoadSettings(&f.global)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	store, err := icmd.OpenStore(settings)
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	if err := cronexpr.Validate(f.cron); err != nil {
		fmt.Println(aurora.Red(fmt.Sprintf("invalid cron expression: %s", err)))
		return err
	}

	job, err := store.GetBackupJob(ctx, f.backupJobID)
	if err != nil {
		return fmt.Errorf("looking up backup job: %w", err)
	}
	if job == nil {
		err := fmt.Errorf("backup job %s not found", f.backupJobID)
		fmt.Println(aurora.Red(err.Error()))
		return err
	}

	schedule := &metastore.Schedule{
		BackupJobID:         f.backupJobID,
		CronExpression:      f.cron,
		IsActive:            !f.inactive,
		MaxRetries:          f.maxRetries,
		RetryBackoffSeconds: f.retryBackoffSeconds,
	}

	if !f.dueNow {
		nextRun, err := cronexpr.NextRun(f.cron, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("computing first run: %w", err)
		}
		schedule.NextRunAt = &nextRun
	}

	if err := store.CreateSchedule(ctx, schedule); err != nil {
		return fmt.Errorf("persisting schedule: %w", err)
	}

	fmt.Println(aurora.Green(fmt.Sprintf("schedule created: id=%s cron=%q active=%v", schedule.ID, schedule.CronExpression, schedule.IsActive)))
	return nil
}
