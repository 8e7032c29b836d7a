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

// Package azure uploads via the azblob SDK, the Go counterpart of the
// original core's lazily imported azure-storage-blob client.
package azure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// Backend uploads backup files to an Azure Blob container/prefix.
type Backend struct {
	Container string
	Prefix    string

	client *azblob.Client
}

func New(container, prefix, connectionString string) (*Backend, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("Azure connection string is required for Azure blob uploads.")
	}
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("creating Azure blob client: %w", err)
	}
	return &Backend{Container: container, Prefix: strings.Trim(prefix, "/"), client: client}, nil
}

func (b *Backend) Type() string { return "azure" }

func (b *Backend) StoreFile(ctx context.Context, sourcePath, filename string) (string, error) {
	f, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("backup file does not exist: %s", sourcePath)
	}
	defer f.Close()

	blobName := filename
	if blobName == "" {
		blobName = filepath.Base(sourcePath)
	}
	if b.Prefix != "" {
		blobName = b.Prefix + "/" + blobName
	}

	if _, err := b.client.UploadFile(ctx, b.Container, blobName, f, nil); err != nil {
		return "", fmt.Errorf("Azure upload failed: %w", err)
	}
	return fmt.Sprintf("azure://%s/%s", b.Container, blobName), nil
}
