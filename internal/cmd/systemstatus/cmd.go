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

// Package systemstatus implements the "dbbackup system-status" command: a
// quick at-a-glance summary of the metadata store's counts.
package systemstatus

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/cheynewallace/tabby"
	"github.com/spf13/cobra"

	icmd "github.com/dbbackup/orchestrator/internal/cmd"
)

const (
	defaultBrokerURL = "redis://localhost:6379/0"
	defaultResultURL = "redis://localhost:6379/1"
)

type flags struct {
	global icmd.GlobalFlags
}

// NewCmd builds the "system-status" subcommand.
func NewCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "system-status",
		Short: "Summarize backup/restore/schedule counts from the metadata store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}

	icmd.AddGlobalFlags(cmd.Flags(), &f.global)
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
	now := time.Now().UTC()

	counts, err := store.Counts(ctx, now)
	if err != nil {
		return fmt.Errorf("counting records: %w", err)
	}

	fmt.Printf("Metadata DB path:   %s (%s)\n", settings.MetadataDBPath, existsLabel(settings.MetadataDBPath))
	fmt.Printf("Target SQLite path: %s (%s)\n", orDash(settings.TargetSQLiteDBPath), existsLabel(settings.TargetSQLiteDBPath))
	fmt.Printf("Backup root:        %s (%s)\n", settings.BackupRoot, existsLabel(settings.BackupRoot))
	fmt.Printf("Log file:           %s (%s)\n", orDash(settings.LogFile), existsLabel(settings.LogFile))
	fmt.Printf("Broker URL:         %s\n", safeBrokerURL(envOrDefault("CELERY_BROKER_URL", defaultBrokerURL)))
	fmt.Printf("Result backend:     %s\n\n", safeBrokerURL(envOrDefault("CELERY_RESULT_BACKEND", defaultResultURL)))

	table := tabby.New()
	table.AddHeader("Metric", "Value")
	table.AddLine("Total backup jobs", counts.TotalJobs)
	table.AddLine("Successful backup jobs", counts.SuccessJobs)
	table.AddLine("Failed backup jobs", counts.FailedJobs)
	table.AddLine("Total backup artifacts", counts.TotalArtifacts)
	table.AddLine("Total restore jobs", counts.TotalRestores)
	table.AddLine("Failed restore jobs", counts.FailedRestores)
	table.AddLine("Active schedules", counts.ActiveSchedules)
	table.AddLine("Due schedules", counts.DueSchedules)
	table.AddLine("Leased schedules", counts.LeasedSchedules)
	table.Print()

	if artifact, err := store.LatestArtifact(ctx); err == nil && artifact != nil {
		fmt.Printf("\nMost recent artifact: %s (%s, created %s)\n", artifact.ID, artifact.FileName, artifact.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	if restoreJob, err := store.LatestRestore(ctx); err == nil && restoreJob != nil {
		fmt.Printf("Most recent restore: %s (%s)\n", restoreJob.ID, restoreJob.Status)
	}
	if sch, err := store.NextSchedule(ctx); err == nil && sch != nil && sch.NextRunAt != nil {
		fmt.Printf("Next schedule due: %s at %s\n", sch.ID, sch.NextRunAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}

func existsLabel(path string) string {
	if path == "" {
		return "not configured"
	}
	if _, err := os.Stat(path); err != nil {
		return "missing"
	}
	return "present"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// safeBrokerURL strips userinfo (credentials) from a broker/result-backend
// URL before it is ever printed, keeping scheme, host, port and path.
func safeBrokerURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "(invalid URL)"
	}
	u.User = nil
	return u.String()
}
