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

// Package backup implements the "dbbackup backup" command: one adapter ->
// compress -> encrypt -> upload run, outside of any schedule.
package backup

import (
	"context"
	"fmt"

	"github.com/logrusorgru/aurora/v3"
	"github.com/spf13/cobra"

	icmd "github.com/dbbackup/orchestrator/internal/cmd"
	"github.com/dbbackup/orchestrator/pkg/notify"
	"github.com/dbbackup/orchestrator/pkg/pipeline"
	"github.com/dbbackup/orchestrator/pkg/storage"
)

type flags struct {
	global     icmd.GlobalFlags
	connection icmd.ConnectionFlags

	name                  string
	backupType            string
	tables                string
	outputDir             string
	filename              string
	compress              bool
	encryptKey            string
	storageType           string
	bucket                string
	container             string
	prefix                string
	region                string
	azureConnectionString string
	slackWebhookURL       string
}

// NewCmd builds the "backup" subcommand.
func NewCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Run a one-off database backup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}

	icmd.AddGlobalFlags(cmd.Flags(), &f.global)
	icmd.AddConnectionFlags(cmd.Flags(), &f.connection)

	flags := cmd.Flags()
	flags.StringVar(&f.name, "name", "manual-backup", "Name recorded on the BackupJob")
	flags.StringVar(&f.backupType, "backup-type", "full", "Backup type: full, incremental, differential")
	flags.StringVar(&f.tables, "tables", "", "Comma-separated list of tables to restrict the backup to")
	flags.StringVar(&f.outputDir, "output-dir", "", "Local staging/output directory (defaults to the configured backup root)")
	flags.StringVar(&f.filename, "filename", "", "Override the generated output filename")
	flags.BoolVar(&f.compress, "compress", false, "Gzip-compress the produced backup file")
	flags.StringVar(&f.encryptKey, "encrypt-key", "", "Fernet-compatible secret used to encrypt the produced backup file")
	flags.StringVar(&f.storageType, "storage", "local", "Storage backend: local, s3, gcs, azure")
	flags.StringVar(&f.bucket, "bucket", "", "S3/GCS bucket name")
	flags.StringVar(&f.container, "container", "", "Azure container name")
	flags.StringVar(&f.prefix, "prefix", "", "Key/blob prefix within the bucket or container")
	flags.StringVar(&f.region, "region", "", "S3 region")
	flags.StringVar(&f.azureConnectionString, "azure-connection-string", "", "Azure Storage connection string")
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
	defer store.Close()

	outputDir := f.outputDir
	if outputDir == "" {
		outputDir = settings.BackupRoot
	}

	ctx := context.Background()

	opts := pipeline.BackupOptions{
		Name:             f.name,
		DBType:           f.connection.DBType,
		BackupType:       f.backupType,
		ConnectionParams: f.connection.ConnectionParams(),
		Tables:           icmd.ParseTableList(f.tables),
		OutputDir:        outputDir,
		Filename:         f.filename,
		Compress:         f.compress,
		EncryptKey:       f.encryptKey,
		DefaultSQLitePath: settings.TargetSQLiteDBPath,
		Storage: storage.Config{
			Type:                   f.storageType,
			Destination:            outputDir,
			Bucket:                 f.bucket,
			Container:              f.container,
			Prefix:                 f.prefix,
			Region:                 f.region,
			AzureConnectionString:  f.azureConnectionString,
		},
	}

	result, err := pipeline.RunBackup(ctx, store, logger, opts)
	if err != nil {
		fmt.Println(aurora.Red(fmt.Sprintf("backup failed: %s", err)))
		notify.SendSlack(ctx, logger, f.slackWebhookURL, fmt.Sprintf("Backup %q failed: %s", f.name, err))
		return err
	}

	fmt.Println(aurora.Green(fmt.Sprintf("backup succeeded: job=%s artifact=%s (%s, %d bytes)",
		result.Job.ID, result.Artifact.ID, result.Artifact.FilePath, result.Artifact.SizeBytes)))
	notify.SendSlack(ctx, logger, f.slackWebhookURL, fmt.Sprintf("Backup %q succeeded: %s", f.name, result.Artifact.FilePath))
	return nil
}
