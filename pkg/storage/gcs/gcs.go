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

// Package gcs uploads via cloud.google.com/go/storage, the Go counterpart
// of the original core's lazily imported google-cloud-storage client.
package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
)

// Backend uploads backup files to a GCS bucket/prefix.
type Backend struct {
	Bucket string
	Prefix string

	client *storage.Client
}

func New(ctx context.Context, bucket, prefix string) (*Backend, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}
	return &Backend{Bucket: bucket, Prefix: strings.Trim(prefix, "/"), client: client}, nil
}

func (b *Backend) Type() string { return "gcs" }

func (b *Backend) StoreFile(ctx context.Context, sourcePath, filename string) (string, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("backup file does not exist: %s", sourcePath)
	}
	defer f.Close()

	objectName := filename
	if objectName == "" {
		objectName = filepath.Base(sourcePath)
	}
	blobName := objectName
	if b.Prefix != "" {
		blobName = b.Prefix + "/" + objectName
	}

	writer := b.client.Bucket(b.Bucket).Object(blobName).NewWriter(ctx)
	if _, err := io.Copy(writer, f); err != nil {
		writer.Close()
		return "", fmt.Errorf("GCS upload failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("GCS upload failed: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", b.Bucket, blobName), nil
}
