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

// Package local copies the staged backup file into a destination directory
// on the same filesystem the orchestrator runs on.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Backend copies files into DestinationDir.
type Backend struct {
	DestinationDir string
}

func New(destinationDir string) *Backend { return &Backend{DestinationDir: destinationDir} }

func (b *Backend) Type() string { return "local" }

func (b *Backend) StoreFile(ctx context.Context, sourcePath, filename string) (string, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return "", fmt.Errorf("backup file does not exist: %s", sourcePath)
	}

	if err := os.MkdirAll(b.DestinationDir, 0o755); err != nil {
		return "", err
	}

	finalName := filename
	if finalName == "" {
		finalName = filepath.Base(sourcePath)
	}
	target := filepath.Join(b.DestinationDir, finalName)

	sourceAbs, _ := filepath.Abs(sourcePath)
	targetAbs, _ := filepath.Abs(target)
	if sourceAbs == targetAbs {
		return target, nil
	}

	if err := copyFile(sourcePath, target); err != nil {
		return "", err
	}
	return target, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	srcInfo, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	return os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
}
