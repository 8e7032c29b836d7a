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

package dbadapter

import (
	"strings"

	"go.uber.org/zap"

	"github.com/dbbackup/orchestrator/pkg/dbadapter/mongo"
	"github.com/dbbackup/orchestrator/pkg/dbadapter/mysql"
	"github.com/dbbackup/orchestrator/pkg/dbadapter/postgres"
	"github.com/dbbackup/orchestrator/pkg/dbadapter/sqlite"
)

// New dispatches to the adapter for dbType, the Go equivalent of the
// original core's get_adapter(). defaultSQLitePath is used by the SQLite
// adapter when connection_params carries no explicit "path".
func New(dbType string, connectionParams map[string]any, defaultSQLitePath string, logger *zap.SugaredLogger) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case SQLite:
		return sqlite.New(connectionParams, defaultSQLitePath), nil
	case Postgres:
		return postgres.New(connectionParams, logger), nil
	case MySQL:
		return mysql.New(connectionParams, logger)
	case Mongo:
		return mongo.New(connectionParams, logger)
	default:
		return nil, newErrorf("", "Unsupported db type '%s'.", dbType)
	}
}
