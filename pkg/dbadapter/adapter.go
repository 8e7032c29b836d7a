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

// Package dbadapter dispatches backup/restore/test-connection operations to
// a polymorphic per-engine implementation via the Adapter interface, rather
// than a type switch scattered through callers.
package dbadapter

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Error wraps an adapter-level failure, mirroring the Python core's
// AdapterError: every backup/restore/test_connection failure surfaces as
// this type so callers can treat it uniformly.
type Error struct {
	Action  string
	Message string
}

func (e *Error) Error() string {
	if e.Action == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Action, e.Message)
}

func newErrorf(action, format string, args ...any) *Error {
	return &Error{Action: action, Message: fmt.Sprintf(format, args...)}
}

// Supported database engine names.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Mongo    = "mongo"
)

// Supported backup type names.
const (
	Full         = "full"
	Incremental  = "incremental"
	Differential = "differential"
)

// Adapter is implemented once per supported database engine.
type Adapter interface {
	// DBType returns the engine name this adapter was built for.
	DBType() string
	// TestConnection validates connectivity, returning *Error on failure.
	TestConnection(ctx context.Context) error
	// Backup produces a backup file at outputPath (engine-specific suffix
	// already applied by the caller) and returns the effective backup type
	// actually performed (fallback may downgrade incremental/differential
	// to full).
	Backup(ctx context.Context, outputPath, backupType string, tables []string) (effectiveType string, err error)
	// Restore loads backupFile into the target database.
	Restore(ctx context.Context, backupFile string, tables []string) error
}

// Capabilities describes what an engine supports, backing the shared
// ValidateBackupType/EffectiveBackupType fallback logic every adapter uses.
type Capabilities struct {
	SupportsIncremental          bool
	SupportsDifferential         bool
	FallbackIncrementalToFull    bool
	FallbackDifferentialToFull   bool
	SupportsSelectiveRestore     bool
}

// ValidateBackupType rejects unknown backup types, and rejects
// incremental/differential when the engine neither supports it nor falls
// back to full.
func ValidateBackupType(caps Capabilities, backupType string) error {
	switch backupType {
	case Full, Incremental, Differential:
	default:
		return newErrorf("", "Unsupported backup type '%s'.", backupType)
	}

	if backupType == Incremental && !caps.SupportsIncremental && !caps.FallbackIncrementalToFull {
		return newErrorf("", "incremental backup is not supported yet.")
	}
	if backupType == Differential && !caps.SupportsDifferential && !caps.FallbackDifferentialToFull {
		return newErrorf("", "differential backup is not supported yet.")
	}
	return nil
}

// EffectiveBackupType resolves the backup type actually performed,
// downgrading to full when the engine does not support the requested type
// but does fall back. Logs the downgrade at warn level when logger is
// non-nil, since the caller ends up with a different artifact than asked
// for.
func EffectiveBackupType(caps Capabilities, dbType, backupType string, logger *zap.SugaredLogger) (string, error) {
	if err := ValidateBackupType(caps, backupType); err != nil {
		return "", err
	}
	if backupType == Incremental && !caps.SupportsIncremental {
		if logger != nil {
			logger.Warnw("incremental backup not supported, falling back to full", "db_type", dbType)
		}
		return Full, nil
	}
	if backupType == Differential && !caps.SupportsDifferential {
		if logger != nil {
			logger.Warnw("differential backup not supported, falling back to full", "db_type", dbType)
		}
		return Full, nil
	}
	return backupType, nil
}

// CleanTables trims and drops empty entries, mirroring the Python adapters'
// table-list normalization.
func CleanTables(tables []string) []string {
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
