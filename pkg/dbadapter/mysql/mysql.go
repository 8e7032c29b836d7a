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

// Package mysql shells out to the mysql/mysqldump client tools. Only full
// backups are supported, matching the original core.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/dbbackup/orchestrator/pkg/dbadapter"
	"github.com/dbbackup/orchestrator/pkg/execlog"
)

var capabilities = dbadapter.Capabilities{}

// Adapter backs up and restores MySQL/MariaDB via the client tools.
type Adapter struct {
	params map[string]any
	logger *zap.SugaredLogger
}

// New builds a MySQL adapter, normalizing a mysql:// or mariadb:// uri into
// the individual connection params whenever those are not already set.
func New(params map[string]any, logger *zap.SugaredLogger) (*Adapter, error) {
	normalized, err := normalize(params)
	if err != nil {
		return nil, err
	}
	return &Adapter{params: normalized, logger: logger}, nil
}

func normalize(params map[string]any) (map[string]any, error) {
	out := map[string]any{}
	for k, v := range params {
		out[k] = v
	}

	uri, _ := out["uri"].(string)
	if uri == "" {
		return out, nil
	}

	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, &dbadapter.Error{Message: "invalid MySQL uri: " + err.Error()}
	}
	if parsed.Scheme != "mysql" && parsed.Scheme != "mariadb" {
		return nil, &dbadapter.Error{Message: "MySQL URI must start with mysql:// or mariadb://"}
	}

	if _, ok := out["username"]; !ok {
		if u := parsed.User.Username(); u != "" {
			out["username"] = u
		}
	}
	if _, ok := out["password"]; !ok {
		if p, ok := parsed.User.Password(); ok {
			out["password"] = p
		}
	}
	if _, ok := out["host"]; !ok && parsed.Hostname() != "" {
		out["host"] = parsed.Hostname()
	}
	if _, ok := out["port"]; !ok && parsed.Port() != "" {
		out["port"] = parsed.Port()
	}
	if _, ok := out["database"]; !ok {
		if db := strings.TrimPrefix(parsed.Path, "/"); db != "" {
			out["database"] = db
		}
	}
	return out, nil
}

func (a *Adapter) DBType() string { return dbadapter.MySQL }

func (a *Adapter) str(key string) string {
	v, ok := a.params[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	dsn, err := a.dsn()
	if err != nil {
		return err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return &dbadapter.Error{Action: "MySQL connection test", Message: err.Error()}
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return &dbadapter.Error{Action: "MySQL connection test", Message: err.Error()}
	}
	return nil
}

func (a *Adapter) dsn() (string, error) {
	database, err := a.requiredDatabase()
	if err != nil {
		return "", err
	}

	var user string
	if username := a.str("username"); username != "" {
		user = username
		if password := a.str("password"); password != "" {
			user += ":" + password
		}
		user += "@"
	}

	host := a.str("host")
	if host == "" {
		host = "127.0.0.1"
	}
	port := a.str("port")
	if port == "" {
		port = "3306"
	}
	return fmt.Sprintf("%stcp(%s:%s)/%s", user, host, port, database), nil
}

func (a *Adapter) Backup(ctx context.Context, outputPath, backupType string, tables []string) (string, error) {
	effective, err := dbadapter.EffectiveBackupType(capabilities, a.DBType(), backupType, a.logger)
	if err != nil {
		return "", err
	}
	if effective != dbadapter.Full {
		return "", &dbadapter.Error{Message: "MySQL adapter currently supports only full backup."}
	}

	if err := execlog.RequireBinary("mysqldump"); err != nil {
		return "", &dbadapter.Error{Action: "MySQL backup", Message: err.Error()}
	}
	database, err := a.requiredDatabase()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", &dbadapter.Error{Action: "MySQL backup", Message: err.Error()}
	}

	command := []string{"--single-transaction", "--quick", "--routines", "--events", "--triggers",
		"--no-tablespaces", "--result-file", outputPath}
	command = append(command, a.connectionArgs(false)...)
	command = append(command, database)
	command = append(command, dbadapter.CleanTables(tables)...)

	if _, err := execlog.Run(ctx, a.logger, "MySQL backup", "mysqldump", command, a.env(), nil); err != nil {
		return "", asAdapterError(err)
	}
	return effective, nil
}

func (a *Adapter) Restore(ctx context.Context, backupFile string, tables []string) error {
	if len(dbadapter.CleanTables(tables)) > 0 {
		return &dbadapter.Error{Message: "selective restore is not implemented for MySQL yet."}
	}

	f, err := os.Open(backupFile)
	if err != nil {
		return &dbadapter.Error{Action: "MySQL restore", Message: fmt.Sprintf("backup file not found: %s", backupFile)}
	}
	defer f.Close()

	if err := execlog.RequireBinary("mysql"); err != nil {
		return &dbadapter.Error{Action: "MySQL restore", Message: err.Error()}
	}
	if _, err := a.requiredDatabase(); err != nil {
		return err
	}

	command := a.connectionArgs(true)
	if _, err := execlog.Run(ctx, a.logger, "MySQL restore", "mysql", command, a.env(), f); err != nil {
		return asAdapterError(err)
	}
	return nil
}

func (a *Adapter) env() map[string]string {
	if password := a.str("password"); password != "" {
		return map[string]string{"MYSQL_PWD": password}
	}
	return nil
}

func (a *Adapter) connectionArgs(includeDatabase bool) []string {
	var args []string
	if host := a.str("host"); host != "" {
		args = append(args, "--host", host)
	}
	if port := a.str("port"); port != "" {
		args = append(args, "--port", port)
	}
	if username := a.str("username"); username != "" {
		args = append(args, "--user", username)
	}
	if includeDatabase {
		if database := a.str("database"); database != "" {
			args = append(args, "--database", database)
		}
	}
	return args
}

func (a *Adapter) requiredDatabase() (string, error) {
	database := a.str("database")
	if database == "" {
		return "", &dbadapter.Error{Message: "MySQL requires --database or --uri with database name."}
	}
	return database, nil
}

func asAdapterError(err error) error {
	if err == nil {
		return nil
	}
	return &dbadapter.Error{Action: "MySQL command", Message: err.Error()}
}
