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

// Package runscheduler implements the "dbbackup run-scheduler" command: the
// continuous (or one-shot) loop that turns due schedules into pipeline runs.
package runscheduler

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	icmd "github.com/dbbackup/orchestrator/internal/cmd"
	"github.com/dbbackup/orchestrator/pkg/dblog"
	"github.com/dbbackup/orchestrator/pkg/metrics"
	"github.com/dbbackup/orchestrator/pkg/orchestrator"
	"github.com/dbbackup/orchestrator/pkg/scheduler"
)

type flags struct {
	global icmd.GlobalFlags

	once            bool
	intervalSeconds int
	maxJobs         int
	scheduleID      string
	dryRun          bool
	quiet           bool
	leaseSeconds    int
	slackWebhookURL string
}

// NewCmd builds the "run-scheduler" subcommand.
func NewCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "run-scheduler",
		Short: "Run the schedule poller, once or continuously",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}

	icmd.AddGlobalFlags(cmd.Flags(), &f.global)

	flags := cmd.Flags()
	flags.BoolVar(&f.once, "once", false, "Run a single pass and exit instead of looping")
	flags.IntVar(&f.intervalSeconds, "interval-seconds", orchestrator.DefaultIntervalSeconds, "Seconds to sleep between passes")
	flags.IntVar(&f.maxJobs, "max-jobs", orchestrator.DefaultMaxJobs, "Maximum number of schedules to process in a single pass")
	flags.StringVar(&f.scheduleID, "schedule-id", "", "Restrict the pass to a single schedule id")
	flags.BoolVar(&f.dryRun, "dry-run", false, "Claim and log due schedules without running their pipelines")
	flags.BoolVar(&f.quiet, "quiet", false, "Discard the backup pipeline's own log output; the scheduler's pass-level log lines still emit")
	flags.IntVar(&f.leaseSeconds, "lease-seconds", orchestrator.DefaultLeaseSeconds, "Lease duration in seconds for a claimed schedule")
	flags.StringVar(&f.slackWebhookURL, "slack-webhook-url", "", "Slack incoming webhook URL for per-schedule notifications")

	return cmd
}

func run(f *flags) error {
	settings, err := icmd.LoadSettings(&f.global)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	logger := icmd.NewLogger(settings)
	defer logger.Sync() //nolint:errcheck

	pipelineLogger := logger
	if f.quiet {
		pipelineLogger = dblog.Noop()
	}

	store, err := icmd.OpenStore(settings)
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	defer store.Close()

	runner := &scheduler.Runner{
		Store:          store,
		Logger:         logger,
		PipelineLogger: pipelineLogger,
		Metrics:        metrics.NewRegistry(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received, finishing current pass")
		cancel()
	}()

	opts := orchestrator.RunOptions{
		Once:            f.once,
		IntervalSeconds: f.intervalSeconds,
		Pass: scheduler.PassOptions{
			DryRun:            f.dryRun,
			MaxJobs:           f.maxJobs,
			ScheduleID:        f.scheduleID,
			LeaseSeconds:      f.leaseSeconds,
			DefaultSQLitePath: settings.TargetSQLiteDBPath,
			BackupRoot:        settings.BackupRoot,
			SlackWebhookURL:   f.slackWebhookURL,
		},
	}

	return orchestrator.Run(ctx, runner, logger, opts)
}
