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

/*
The dbbackup command is the entrypoint of the database backup and restore
orchestrator: a schedule-driven core that claims due schedules, runs the
adapter -> compress -> encrypt -> upload pipeline, and records every
attempt as an auditable row in its own metadata store.
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbbackup/orchestrator/internal/cmd/backup"
	"github.com/dbbackup/orchestrator/internal/cmd/createschedule"
	"github.com/dbbackup/orchestrator/internal/cmd/listbackups"
	"github.com/dbbackup/orchestrator/internal/cmd/listschedules"
	"github.com/dbbackup/orchestrator/internal/cmd/restore"
	"github.com/dbbackup/orchestrator/internal/cmd/runscheduler"
	"github.com/dbbackup/orchestrator/internal/cmd/systemstatus"
	"github.com/dbbackup/orchestrator/internal/cmd/testdbconnection"
)

func main() {
	cmd := &cobra.Command{
		Use:          "dbbackup [command]",
		Short:        "Database backup and restore orchestrator",
		SilenceUsage: true,
	}

	cmd.AddCommand(backup.NewCmd())
	cmd.AddCommand(restore.NewCmd())
	cmd.AddCommand(createschedule.NewCmd())
	cmd.AddCommand(listbackups.NewCmd())
	cmd.AddCommand(listschedules.NewCmd())
	cmd.AddCommand(runscheduler.NewCmd())
	cmd.AddCommand(systemstatus.NewCmd())
	cmd.AddCommand(testdbconnection.NewCmd())

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
