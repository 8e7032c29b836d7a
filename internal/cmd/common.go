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

// Package cmd holds the flags and helpers shared by every dbbackup
// subcommand: opening the metadata store, building the logger, and
// collecting the common connection-parameter flag set.
package cmd

import (
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/dbbackup/orchestrator/pkg/config"
	"github.com/dbbackup/orchestrator/pkg/dblog"
	"github.com/dbbackup/orchestrator/pkg/metastore"
)

// GlobalFlags are registered on each subcommand's own flag set.
type GlobalFlags struct {
	ConfigFile string
	LogLevel   string
	LogFile    string
}

// AddGlobalFlags registers the flags every subcommand carries.
func AddGlobalFlags(flags *pflag.FlagSet, g *GlobalFlags) {
	flags.StringVar(&g.ConfigFile, "config", "", "Path to a YAML config file")
	flags.StringVar(&g.LogLevel, "log-level", "info", "Log level: error, warn, info, debug")
	flags.StringVar(&g.LogFile, "log-file", "", "Additional log file destination")
}

// LoadSettings resolves config.Settings from the global flags.
func LoadSettings(g *GlobalFlags) (config.Settings, error) {
	settings, err := config.Load(g.ConfigFile, ".")
	if err != nil {
		return settings, err
	}
	if g.LogLevel != "" {
		settings.LogLevel = g.LogLevel
	}
	if g.LogFile != "" {
		settings.LogFile = g.LogFile
	}
	return settings, nil
}

// NewLogger builds the process logger from settings.
func NewLogger(settings config.Settings) *zap.SugaredLogger {
	return dblog.New(dblog.Options{Level: settings.LogLevel, Destination: settings.LogFile})
}

// OpenStore opens the metadata store at settings.MetadataDBPath.
func OpenStore(settings config.Settings) (*metastore.SQLiteStore, error) {
	return metastore.Open(settings.MetadataDBPath)
}

// ConnectionFlags is the host/port/username/password/database/uri/db-path
// flag set shared by backup, restore and test-db-connection.
type ConnectionFlags struct {
	DBType   string
	DBPath   string
	Host     string
	Port     int
	Username string
	Password string
	Database string
	URI      string
}

// AddConnectionFlags registers the shared connection flag set.
func AddConnectionFlags(flags *pflag.FlagSet, c *ConnectionFlags) {
	flags.StringVar(&c.DBType, "db-type", "sqlite", "Database type: sqlite, postgres, mysql, mongo")
	flags.StringVar(&c.DBPath, "db-path", "", "SQLite database file path")
	flags.StringVar(&c.Host, "host", "", "Database host")
	flags.IntVar(&c.Port, "port", 0, "Database port")
	flags.StringVar(&c.Username, "username", "", "Database username")
	flags.StringVar(&c.Password, "password", "", "Database password")
	flags.StringVar(&c.Database, "database", "", "Database name")
	flags.StringVar(&c.URI, "uri", "", "Full connection URI")
}

// ConnectionParams builds the connection_params map the adapters consume.
func (c ConnectionFlags) ConnectionParams() map[string]any {
	params := map[string]any{}
	if c.DBPath != "" {
		params["path"] = c.DBPath
	}
	if c.Host != "" {
		params["host"] = c.Host
	}
	if c.Port != 0 {
		params["port"] = c.Port
	}
	if c.Username != "" {
		params["username"] = c.Username
	}
	if c.Password != "" {
		params["password"] = c.Password
	}
	if c.Database != "" {
		params["database"] = c.Database
	}
	if c.URI != "" {
		params["uri"] = c.URI
	}
	return params
}

// ParseTableList splits a comma-separated --tables flag value.
func ParseTableList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
