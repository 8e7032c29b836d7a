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
	"os"
	"path/filepath"

	"github.com/dbbackup/orchestrator/pkg/pipeline/fernet"
)

func encryptFile(inputPath, secret string, removeOriginal bool) (string, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("input file not found for encryption: %s", inputPath)
	}
	target := inputPath + ".enc"

	token, err := fernet.Encrypt(secret, data)
	if err != nil {
		return "", fmt.Errorf("encryption failed: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(target, token, 0o644); err != nil {
		return "", err
	}
	if removeOriginal {
		os.Remove(inputPath)
	}
	return target, nil
}

func decryptFile(inputPath, secret, outputPath string, removeOriginal bool) (string, error) {
	token, err := os.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("input file not found for decryption: %s", inputPath)
	}
	if outputPath == "" {
		if filepath.Ext(inputPath) != ".enc" {
			return "", fmt.Errorf("auto output path for decryption requires a .enc file")
		}
		outputPath = inputPath[:len(inputPath)-len(".enc")]
	}

	plaintext, err := fernet.Decrypt(secret, token)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(outputPath, plaintext, 0o644); err != nil {
		return "", err
	}
	if removeOriginal {
		os.Remove(inputPath)
	}
	return outputPath, nil
}
