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

package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/dbbackup/orchestrator/pkg/storage/azure"
	"github.com/dbbackup/orchestrator/pkg/storage/gcs"
	"github.com/dbbackup/orchestrator/pkg/storage/local"
	"github.com/dbbackup/orchestrator/pkg/storage/s3"
)

// New dispatches to the backend for cfg.Type.
func New(ctx context.Context, cfg Config) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", "local":
		return local.New(cfg.Destination), nil
	case "s3":
		return s3.New(ctx, cfg.Bucket, cfg.Prefix, cfg.Region)
	case "gcs":
		return gcs.New(ctx, cfg.Bucket, cfg.Prefix)
	case "azure":
		return azure.New(cfg.Container, cfg.Prefix, cfg.AzureConnectionString)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}
