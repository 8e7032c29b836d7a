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

// Package mongo shells out to mongosh/mongodump/mongorestore. There is no
// pack dependency offering a maintained pure-Go MongoDB wire driver, so
// test_connection falls back to mongodump the same way the original core
// does when mongosh is absent.
package mongo

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/dbbackup/orchestrator/pkg/dbadapter"
	"github.com/dbbackup/orchestrator/pkg/execlog"
)

var capabilities = dbadapter.Capabilities{SupportsSelectiveRestore: true}

// Adapter backs up and restores MongoDB via the database tools.
type Adapter struct {
	params map[string]any
	logger *zap.SugaredLogger
}

// New builds a Mongo adapter, normalizing a mongodb:// or mongodb+srv://
// uri into individual params whenever those are not already set.
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
		return nil, &dbadapter.Error{Message: "invalid MongoDB uri: " + err.Error()}
	}
	if parsed.Scheme != "mongodb" && parsed.Scheme != "mongodb+srv" {
		return nil, &dbadapter.Error{Message: "MongoDB URI must start with mongodb:// or mongodb+srv://"}
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

func (a *Adapter) DBType() string { return dbadapter.Mongo }

func (a *Adapter) str(key string) string {
	v, ok := a.params[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	if execlog.RequireBinary("mongosh") == nil {
		command := []string{"--quiet", "--eval", "db.runCommand({ ping: 1 })"}
		command = append(command, a.connectionTargetArgs()...)
		if _, err := execlog.Run(ctx, a.logger, "MongoDB connection test", "mongosh", command, nil, nil); err != nil {
			return asAdapterError(err)
		}
		return nil
	}

	if err := execlog.RequireBinary("mongodump"); err != nil {
		return &dbadapter.Error{Action: "MongoDB connection test", Message: err.Error()}
	}
	archive, err := os.CreateTemp("", "mongo_connect_*.archive")
	if err != nil {
		return &dbadapter.Error{Action: "MongoDB connection test", Message: err.Error()}
	}
	archivePath := archive.Name()
	archive.Close()
	defer os.Remove(archivePath)

	command := []string{fmt.Sprintf("--archive=%s", archivePath), "--quiet"}
	command = append(command, a.connectionArgs()...)
	if database := a.str("database"); database != "" {
		command = append(command, "--db", database)
	}
	if _, err := execlog.Run(ctx, a.logger, "MongoDB connection test", "mongodump", command, nil, nil); err != nil {
		return asAdapterError(err)
	}
	return nil
}

func (a *Adapter) Backup(ctx context.Context, outputPath, backupType string, tables []string) (string, error) {
	effective, err := dbadapter.EffectiveBackupType(capabilities, a.DBType(), backupType, a.logger)
	if err != nil {
		return "", err
	}
	if effective != dbadapter.Full {
		return "", &dbadapter.Error{Message: "MongoDB adapter currently supports only full backup."}
	}

	if err := execlog.RequireBinary("mongodump"); err != nil {
		return "", &dbadapter.Error{Action: "MongoDB backup", Message: err.Error()}
	}
	database, err := a.requiredDatabase()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", &dbadapter.Error{Message: err.Error()}
	}

	command := []string{fmt.Sprintf("--archive=%s", outputPath), "--quiet"}
	command = append(command, a.connectionArgs()...)
	command = append(command, "--db", database)
	command = append(command, a.namespaceFilters(database, tables)...)

	if _, err := execlog.Run(ctx, a.logger, "MongoDB backup", "mongodump", command, nil, nil); err != nil {
		return "", asAdapterError(err)
	}
	return effective, nil
}

func (a *Adapter) Restore(ctx context.Context, backupFile string, tables []string) error {
	if _, err := os.Stat(backupFile); err != nil {
		return &dbadapter.Error{Message: fmt.Sprintf("Backup file not found: %s", backupFile)}
	}
	if err := execlog.RequireBinary("mongorestore"); err != nil {
		return &dbadapter.Error{Action: "MongoDB restore", Message: err.Error()}
	}

	command := []string{fmt.Sprintf("--archive=%s", backupFile), "--drop", "--quiet"}
	command = append(command, a.connectionArgs()...)

	if cleaned := dbadapter.CleanTables(tables); len(cleaned) > 0 {
		database, err := a.requiredDatabase()
		if err != nil {
			return err
		}
		command = append(command, a.namespaceFilters(database, cleaned)...)
	}

	if _, err := execlog.Run(ctx, a.logger, "MongoDB restore", "mongorestore", command, nil, nil); err != nil {
		return asAdapterError(err)
	}
	return nil
}

func (a *Adapter) connectionTargetArgs() []string {
	if uri := a.str("uri"); uri != "" {
		return []string{uri}
	}

	host := a.str("host")
	if host == "" {
		host = "localhost"
	}
	target := host
	if port := a.str("port"); port != "" {
		target = fmt.Sprintf("%s:%s", target, port)
	}
	if database := a.str("database"); database != "" {
		target = fmt.Sprintf("%s/%s", target, database)
	}

	args := []string{target}
	if username := a.str("username"); username != "" {
		args = append(args, "--username", username)
	}
	if password := a.str("password"); password != "" {
		args = append(args, "--password", password)
	}
	return args
}

func (a *Adapter) connectionArgs() []string {
	if uri := a.str("uri"); uri != "" {
		return []string{fmt.Sprintf("--uri=%s", uri)}
	}

	var args []string
	if host := a.str("host"); host != "" {
		args = append(args, "--host", host)
	}
	if port := a.str("port"); port != "" {
		args = append(args, "--port", port)
	}
	if username := a.str("username"); username != "" {
		args = append(args, "--username", username)
	}
	if password := a.str("password"); password != "" {
		args = append(args, "--password", password)
	}
	return args
}

func (a *Adapter) requiredDatabase() (string, error) {
	database := a.str("database")
	if database == "" {
		return "", &dbadapter.Error{Message: "MongoDB requires --database or --uri with database name."}
	}
	return database, nil
}

func (a *Adapter) namespaceFilters(database string, collections []string) []string {
	var args []string
	for _, c := range dbadapter.CleanTables(collections) {
		args = append(args, fmt.Sprintf("--nsInclude=%s.%s", database, c))
	}
	return args
}

func asAdapterError(err error) error {
	if err == nil {
		return nil
	}
	return &dbadapter.Error{Action: "MongoDB command", Message: err.Error()}
}
