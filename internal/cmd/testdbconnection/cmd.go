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

// Package testdbconnection implements the "dbbackup test-db-connection"
// command: a quick adapter.TestConnection check with no backup job or
// metadata store involved.
package testdbconnection

import (
	"context"
	"fmt"

	"github.com/logrusorgru/aurora/v3"
	"github.com/spf13/cobra"

	icmd "github.com/dbbackup/orchestrator/internal/cmd"
	"github.com/dbbackup/orchestrator/pkg/dbadapter"
	"github.com/dbbackup/orchestrator/pkg/dblog"
)

type flags struct {
	global     icmd.GlobalFlags
	connection icmd.ConnectionFlags
}

// NewCmd builds the "test-db-connection" subcommand.
func NewCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "test-db-connection",
		Short: "Verify connectivity to a database without running a backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}

	icmd.AddGlobalFlags(cmd.Flags(), &f.global)
	icmd.AddConnectionFlags(cmd.Flags(), &f.connection)

	return cmd
}

func run(f *flags) error {
	settings, err := icmd.LoadSettings(&f.global)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	logger := dblog.Noop()
	if f.global.LogLevel != "" || f.global.LogFile != "" {
		logger = icmd.NewLogger(settings)
		defer logger.Sync() //nolint:errcheck
	}

	adapter, err := dbadapter.New(f.connection.DBType, f.connection.ConnectionParams(), settings.TargetSQLiteDBPath, logger)
	if err != nil {
		fmt.Println(aurora.Red(fmt.Sprintf("connection test failed: %s", err)))
		return err
	}

	if err := adapter.TestConnection(context.Background()); err != nil {
		fmt.Println(aurora.Red(fmt.Sprintf("connection test failed: %s", err)))
		return err
	}

	fmt.Println(aurora.Green(fmt.Sprintf("connection to %s database succeeded", f.connection.DBType)))
	return nil
}
