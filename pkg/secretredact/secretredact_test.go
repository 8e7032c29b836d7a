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

package secretredact_test

import (
	"testing"

	"github.com/dbbackup/orchestrator/pkg/secretredact"
)

func TestRedactOnlySecretKeys(t *testing.T) {
	in := map[string]any{
		"password": "hunter2",
		"host":     "db.internal",
		"uri":      "postgres://u:p@h/d",
		"database": "app",
	}
	out := secretredact.Redact(in)

	if out["password"] != secretredact.Placeholder {
		t.Fatalf("expected password redacted, got %v", out["password"])
	}
	if out["uri"] != secretredact.Placeholder {
		t.Fatalf("expected uri redacted, got %v", out["uri"])
	}
	if out["host"] != "db.internal" {
		t.Fatalf("host must not be redacted, got %v", out["host"])
	}
	if out["database"] != "app" {
		t.Fatalf("database must not be redacted, got %v", out["database"])
	}
}

func TestRejectRedactedDetectsPlaceholder(t *testing.T) {
	params := map[string]any{"password": "***", "host": "db"}
	if err := secretredact.RejectRedacted(params); err == nil {
		t.Fatal("expected error for redacted password field")
	}

	clean := map[string]any{"password": "realsecret", "host": "db"}
	if err := secretredact.RejectRedacted(clean); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
