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

package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// compressFile gzips inputPath to inputPath+".gz", optionally removing the
// original once the copy has landed.
func compressFile(inputPath string, removeOriginal bool) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("input file not found for compression: %s", inputPath)
	}
	target := inputPath + ".gz"

	if err := copyThroughGzip(inputPath, target, true); err != nil {
		return "", err
	}
	if removeOriginal {
		os.Remove(inputPath)
	}
	return target, nil
}

// decompressFile gunzips inputPath to outputPath (or, if empty, inputPath
// with its ".gz" suffix stripped).
func decompressFile(inputPath, outputPath string, removeOriginal bool) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("input file not found for decompression: %s", inputPath)
	}
	if outputPath == "" {
		if filepath.Ext(inputPath) != ".gz" {
			return "", fmt.Errorf("auto output path for decompression requires a .gz file")
		}
		outputPath = inputPath[:len(inputPath)-len(".gz")]
	}

	if err := copyThroughGzip(inputPath, outputPath, false); err != nil {
		return "", err
	}
	if removeOriginal {
		os.Remove(inputPath)
	}
	return outputPath, nil
}

func copyThroughGzip(inputPath, outputPath string, compress bool) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(outputPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if compress {
		gz := gzip.NewWriter(out)
		if _, err := io.Copy(gz, in); err != nil {
			gz.Close()
			return err
		}
		return gz.Close()
	}

	gz, err := gzip.NewReader(in)
	if err != nil {
		return err
	}
	defer gz.Close()

	if _, err := io.Copy(out, gz); err != nil {
		return err
	}
	return out.Sync()
}
