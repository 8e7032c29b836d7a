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

// Package storage uploads a finished backup artifact to one of the
// supported storage backends, each returning where the stored object now
// lives: an s3://, gs:// or azure:// URI, or, for the local backend, the
// path of the copied file.
package storage

import "context"

// Backend stores a local file and returns the URI it is now reachable at.
type Backend interface {
	// StoreFile uploads the file at sourcePath, naming the remote object
	// filename (falling back to the source's base name when empty), and
	// returns the destination URI.
	StoreFile(ctx context.Context, sourcePath, filename string) (string, error)
	// Type returns the storage backend name ("local", "s3", "gcs", "azure").
	Type() string
}

// Config names which backend to build and its parameters. Only the fields
// relevant to Type need be set.
type Config struct {
	Type                   string
	Destination            string // local: destination directory
	Bucket                 string // s3/gcs
	Container              string // azure
	Prefix                 string // s3/gcs/azure
	Region                 string // s3
	AzureConnectionString  string // azure
}
