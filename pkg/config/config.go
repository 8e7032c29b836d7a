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

// Package config holds the small set of process-wide settings (paths,
// defaults) threaded explicitly through the application as a context
// value, rather than read from package-level globals.
package config

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings is the process-wide configuration. Zero value is usable: every
// field has a sane default applied by Load/Default.
type Settings struct {
	// MetadataDBPath is where the scheduling/audit metadata store lives.
	MetadataDBPath string `yaml:"metadata_db_path"`
	// TargetSQLiteDBPath, when set, is the SQLite database backed up or
	// restored when the connection params carry no explicit "path".
	TargetSQLiteDBPath string `yaml:"target_sqlite_db_path"`
	// BackupRoot is the default local staging/output directory.
	BackupRoot string `yaml:"backup_root"`
	// LogFile is the default log file path (in addition to stderr).
	LogFile string `yaml:"log_file"`
	// LogLevel is one of error/warn/info/debug.
	LogLevel string `yaml:"log_level"`
}

// Default returns Settings with conventional defaults rooted at baseDir.
func Default(baseDir string) Settings {
	return Settings{
		MetadataDBPath: filepath.Join(baseDir, "dbbackup.sqlite3"),
		BackupRoot:     filepath.Join(baseDir, "backups"),
		LogFile:        filepath.Join(baseDir, "logs", "backup.log"),
		LogLevel:       "info",
	}
}

// Load reads YAML settings from path, overlaying them onto Default(baseDir).
// A missing file is not an error; it yields the defaults, with the
// environment overrides of applyEnvOverrides still applied.
func Load(path, baseDir string) (Settings, error) {
	settings := Default(baseDir)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		applyEnvOverrides(&settings)
		return settings, nil
	}
	if err != nil {
		return settings, err
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, err
	}
	applyEnvOverrides(&settings)
	return settings, nil
}

// applyEnvOverrides mirrors settings.py's os.environ.get(...) lookups:
// DJANGO_SQLITE_PATH and TARGET_SQLITE_DB_PATH, when set, always win over
// whatever the YAML file or defaults supplied.
func applyEnvOverrides(settings *Settings) {
	if v := os.Getenv("DJANGO_SQLITE_PATH"); v != "" {
		settings.MetadataDBPath = v
	}
	if v := os.Getenv("TARGET_SQLITE_DB_PATH"); v != "" {
		settings.TargetSQLiteDBPath = v
	}
}

type contextKey struct{}

// WithSettings returns a context carrying settings, retrievable with
// FromContext.
func WithSettings(ctx context.Context, settings Settings) context.Context {
	return context.WithValue(ctx, contextKey{}, settings)
}

// FromContext retrieves the Settings stored by WithSettings, or baseDir
// defaults ("." ) if none were stored.
func FromContext(ctx context.Context) Settings {
	if settings, ok := ctx.Value(contextKey{}).(Settings); ok {
		return settings
	}
	return Default(".")
}
