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

// Package restore implements the "dbbackup restore" command.
package restore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/logrusorgru/aurora/v3"
	"github.com/spf13/cobra"

	icmd "github.com/dbbackup/orchestrator/internal/cmd"
	"github.com/dbbackup/orchestrator/pkg/notify"
	"github.com/dbbackup/orchestrator/pkg/pipeline"
)

type flags struct {
	global     icmd.GlobalFlags
	connection icmd.ConnectionFlags

	artifactID      string
	backupFile      string
	tables          string
	decryptKey      string
	slackWebhookURL string
}

// NewCmd builds the "restore" subcommand.
func NewCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore a database from a backup artifact or file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}

	icmd.AddGlobalFlags(cmd.Flags(), &f.global)
	icmd.AddConnectionFlags(cmd.Flags(), &f.connection)

	flags := cmd.Flags()
	flags.StringVar(&f.artifactID, "artifact-id", "", "BackupArtifact id to restore from")
	flags.StringVar(&f.backupFile, "backup-file", "", "Local backup file to restore from (overrides the artifact's recorded path)")
	flags.StringVar(&f.tables, "tables", "", "Comma-separated list of tables to restrict the restore to")
	flags.StringVar(&f.decryptKey, "decrypt-key", "", "Fernet-compatible secret used to decrypt an encrypted backup file")
	flags.StringVar(&f.slackWebhookURL, "slack-webhook-url", "", "Slack incoming webhook URL for the completion notification")

	return cmd
}

func run(f *flags) error {
	settings, err := icmd.LoadSettings(&f.global)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	logger := icmd.NewLogger(settings)
	defer logger.Sync() //nolint:errcheck

	store, err := icmd.OpenStore(settings)
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}

	ctx := context.Background()
	connectionParams := f.connection.ConnectionParams()

	isMetadataTarget := isMetadataStoreTarget(f.connection.DBType, connectionParams, settings.TargetSQLiteDBPath, settings.MetadataDBPath)

	opts := pipeline.RestoreOptions{
		ArtifactID:            f.artifactID,
		BackupFile:            f.backupFile,
		DBType:                f.connection.DBType,
		ConnectionParams:      connectionParams,
		Tables:                icmd.ParseTableList(f.tables),
		DecryptKey:            f.decryptKey,
		DefaultSQLitePath:     settings.TargetSQLiteDBPath,
		IsMetadataStoreTarget: isMetadataTarget,
		CloseMetadataStore:    store.Close,
	}

	runErr := pipeline.RunRestore(ctx, store, logger, opts)

	if !isMetadataTarget {
		defer store.Close()
	}

	if runErr != nil {
		fmt.Println(aurora.Red(fmt.Sprintf("restore failed: %s", runErr)))
		notify.SendSlack(ctx, logger, f.slackWebhookURL, fmt.Sprintf("Restore failed: %s", runErr))
		return runErr
	}

	fmt.Println(aurora.Green("restore succeeded"))
	notify.SendSlack(ctx, logger, f.slackWebhookURL, "Restore succeeded")
	return nil
}

// isMetadataStoreTarget reports whether a sqlite restore's resolved target
// path is the metadata store's own database file, in which case the store
// must be closed before the restore overwrites it. The target resolves the
// same way the SQLite adapter does: the "path" param, else defaultSQLitePath.
func isMetadataStoreTarget(dbType string, connectionParams map[string]any, defaultSQLitePath, metadataDBPath string) bool {
	if dbType != "sqlite" {
		return false
	}
	path, _ := connectionParams["path"].(string)
	if path == "" {
		path = defaultSQLitePath
	}
	if path == "" || metadataDBPath == "" {
		return false
	}
	targetAbs, err1 := filepath.Abs(path)
	metaAbs, err2 := filepath.Abs(metadataDBPath)
	if err1 != nil || err2 != nil {
		return false
	}
	return targetAbs == metaAbs
}
