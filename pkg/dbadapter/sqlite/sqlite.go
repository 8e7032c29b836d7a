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

// Package sqlite drives the SQLite online backup API directly through
// mattn/go-sqlite3's driver connection, the Go equivalent of the original
// core's sqlite3.Connection.backup() call, rather than shelling out.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"

	"github.com/dbbackup/orchestrator/pkg/dbadapter"
)

var capabilities = dbadapter.Capabilities{
	FallbackIncrementalToFull:  true,
	FallbackDifferentialToFull: true,
}

// Adapter backs up and restores a SQLite file via the online backup API.
type Adapter struct {
	path       string
	allowCreate bool
}

// New builds a SQLite adapter. path is the connection_params "path" entry,
// falling back to defaultPath (the configured TargetSQLiteDBPath) when
// unset, mirroring _database_path() in the original core.
func New(params map[string]any, defaultPath string) *Adapter {
	path := defaultPath
	if v, ok := params["path"]; ok && v != nil {
		if s := fmt.Sprintf("%v", v); s != "" {
			path = s
		}
	}
	allowCreate, _ := params["allow_create"].(bool)
	return &Adapter{path: path, allowCreate: allowCreate}
}

func (a *Adapter) DBType() string { return dbadapter.SQLite }

func (a *Adapter) TestConnection(ctx context.Context) error {
	if a.path != ":memory:" {
		if _, err := os.Stat(a.path); err != nil {
			if !a.allowCreate {
				return &dbadapter.Error{Message: fmt.Sprintf("SQLite database file does not exist: %s", a.path)}
			}
			if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
				return &dbadapter.Error{Message: err.Error()}
			}
		}
	}

	db, err := sql.Open("sqlite3", a.path)
	if err != nil {
		return &dbadapter.Error{Message: fmt.Sprintf("Failed to connect to SQLite database: %s", err)}
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "SELECT 1;"); err != nil {
		return &dbadapter.Error{Message: fmt.Sprintf("Failed to connect to SQLite database: %s", err)}
	}
	return nil
}

func (a *Adapter) Backup(ctx context.Context, outputPath, backupType string, tables []string) (string, error) {
	effective, err := dbadapter.EffectiveBackupType(capabilities, a.DBType(), backupType, nil)
	if err != nil {
		return "", err
	}
	if len(dbadapter.CleanTables(tables)) > 0 {
		return "", &dbadapter.Error{Message: "selective backup is not implemented for SQLite yet."}
	}
	if _, err := os.Stat(a.path); err != nil {
		return "", &dbadapter.Error{Message: fmt.Sprintf("Cannot backup. Source database not found: %s", a.path)}
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", &dbadapter.Error{Message: err.Error()}
	}

	if err := onlineBackup(ctx, a.path, outputPath); err != nil {
		return "", &dbadapter.Error{Message: fmt.Sprintf("SQLite backup failed: %s", err)}
	}
	return effective, nil
}

func (a *Adapter) Restore(ctx context.Context, backupFile string, tables []string) error {
	if len(dbadapter.CleanTables(tables)) > 0 {
		return &dbadapter.Error{Message: "selective restore is not implemented for SQLite yet."}
	}
	if _, err := os.Stat(backupFile); err != nil {
		return &dbadapter.Error{Message: fmt.Sprintf("Backup file not found: %s", backupFile)}
	}
	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return &dbadapter.Error{Message: err.Error()}
	}

	sourceAbs, err1 := filepath.Abs(backupFile)
	targetAbs, err2 := filepath.Abs(a.path)
	if err1 == nil && err2 == nil && sourceAbs == targetAbs {
		return nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(a.path), "sqlite_restore_*.db")
	if err != nil {
		return &dbadapter.Error{Message: fmt.Sprintf("SQLite restore failed: %s", err)}
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := onlineBackup(ctx, backupFile, tmpPath); err != nil {
		os.Remove(tmpPath)
		return &dbadapter.Error{Message: fmt.Sprintf("SQLite restore failed: %s", err)}
	}
	if err := os.Rename(tmpPath, a.path); err != nil {
		os.Remove(tmpPath)
		return &dbadapter.Error{Message: fmt.Sprintf("SQLite restore failed: %s", err)}
	}
	return nil
}

// onlineBackup copies srcPath into dstPath page-by-page using SQLite's
// online backup API, consistent under concurrent writers to srcPath.
func onlineBackup(ctx context.Context, srcPath, dstPath string) error {
	srcDB, err := sql.Open("sqlite3", srcPath)
	if err != nil {
		return err
	}
	defer srcDB.Close()

	dstDB, err := sql.Open("sqlite3", dstPath)
	if err != nil {
		return err
	}
	defer dstDB.Close()

	srcConn, err := srcDB.Conn(ctx)
	if err != nil {
		return err
	}
	defer srcConn.Close()

	dstConn, err := dstDB.Conn(ctx)
	if err != nil {
		return err
	}
	defer dstConn.Close()

	return dstConn.Raw(func(dstDriver any) error {
		return srcConn.Raw(func(srcDriver any) error {
			dstSQLite := dstDriver.(*sqlite3.SQLiteConn)
			srcSQLite := srcDriver.(*sqlite3.SQLiteConn)

			backup, err := dstSQLite.Backup("main", srcSQLite, "main")
			if err != nil {
				return err
			}
			defer backup.Close()

			for {
				done, err := backup.Step(-1)
				if err != nil {
					return err
				}
				if done {
					return nil
				}
			}
		})
	})
}
