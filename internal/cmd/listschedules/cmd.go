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

// Package listschedules implements the "dbbackup list-schedules" command.
package listschedules

import (
	"context"
	"fmt"
	"time"

	"github.com/cheynewallace/tabby"
	"github.com/spf13/cobra"

	icmd "github.com/dbbackup/orchestrator/internal/cmd"
)

type flags struct {
	global     icmd.GlobalFlags
	limit      int
	activeOnly bool
}

// NewCmd builds the "list-schedules" subcommand.
func NewCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "list-schedules",
		Short: "List recurring backup schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}

	icmd.AddGlobalFlags(cmd.Flags(), &f.global)
	flags := cmd.Flags()
	flags.IntVar(&f.limit, "limit", 50, "Maximum number of schedules to list")
	flags.BoolVar(&f.activeOnly, "active-only", false, "Only list active schedules")

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

	schedules, err := store.ListSchedules(context.Background(), f.activeOnly, f.limit)
	if err != nil {
		return fmt.Errorf("listing schedules: %w", err)
	}

	if len(schedules) == 0 {
		fmt.Println("no schedules found")
		return nil
	}

	table := tabby.New()
	table.AddHeader("ID", "Backup Job", "Cron", "Active", "Retry Count", "Next Run", "Leased")
	now := time.Now().UTC()
	for _, sch := range schedules {
		table.AddLine(
			sch.ID,
			sch.BackupJobID,
			sch.CronExpression,
			sch.IsActive,
			fmt.Sprintf("%d/%d", sch.RetryCount, sch.MaxRetries),
			formatTime(sch.NextRunAt),
			sch.IsLeased(now),
		)
	}
	table.Print()
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}
