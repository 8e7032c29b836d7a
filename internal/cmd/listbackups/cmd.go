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

// Package listbackups implements the "dbbackup list-backups" command.
package listbackups

import (
	"context"
	"fmt"

	"github.com/cheynewallace/tabby"
	"github.com/spf13/cobra"

	icmd "github.com/dbbackup/orchestrator/internal/cmd"
)

type flags struct {
	global icmd.GlobalFlags
	limit  int
}

// NewCmd builds the "list-backups" subcommand.
func NewCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "list-backups",
		Short: "List the most recent backup artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}

	icmd.AddGlobalFlags(cmd.Flags(), &f.global)
	cmd.Flags().IntVar(&f.limit, "limit", 20, "Maximum number of artifacts to list")

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

	artifacts, err := store.ListBackupArtifacts(context.Background(), f.limit)
	if err != nil {
		return fmt.Errorf("listing backup artifacts: %w", err)
	}

	if len(artifacts) == 0 {
		fmt.Println("no backup artifacts found")
		return nil
	}

	table := tabby.New()
	table.AddHeader("ID", "Backup Job", "File", "Storage", "Size", "Checksum", "Created At")
	for _, artifact := range artifacts {
		table.AddLine(
			artifact.ID,
			artifact.BackupJobID,
			artifact.FileName,
			artifact.StorageType,
			humanSize(artifact.SizeBytes),
			shortChecksum(artifact.ChecksumSHA256),
			artifact.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	table.Print()
	return nil
}

func humanSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%dB", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

func shortChecksum(checksum string) string {
	if len(checksum) <= 12 {
		return checksum
	}
	return checksum[:12]
}
