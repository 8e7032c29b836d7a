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

package execlog_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dbbackup/orchestrator/pkg/execlog"
)

func TestRunSuccess(t *testing.T) {
	result, err := execlog.Run(context.Background(), nil, "echo test", "echo", []string{"hello"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "hello" {
		t.Fatalf("unexpected stdout: %q", result.Stdout)
	}
}

func TestRunNonZeroExitCarriesStderr(t *testing.T) {
	_, err := execlog.Run(context.Background(), nil, "fail test", "sh", []string{"-c", "echo boom 1>&2; exit 3"}, nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var execErr *execlog.Error
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *execlog.Error, got %T", err)
	}
	if !strings.Contains(execErr.Details, "boom") {
		t.Fatalf("expected details to contain stderr, got %q", execErr.Details)
	}
	if !strings.HasPrefix(execErr.Error(), "fail test failed:") {
		t.Fatalf("unexpected error message: %s", execErr.Error())
	}
}

func TestRequireBinaryMissing(t *testing.T) {
	if err := execlog.RequireBinary("definitely-not-a-real-binary-xyz"); err == nil {
		t.Fatal("expected error for missing binary")
	}
}
