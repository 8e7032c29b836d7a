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

// Package secretredact replaces connection-parameter secret fields with a
// placeholder before persistence or logging, and detects that placeholder
// before a scheduled run is allowed to proceed.
package secretredact

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thoas/go-funk"
)

// Placeholder is the literal value secret fields are replaced with.
const Placeholder = "***"

// secretKeys lists the connection-param keys treated as secrets. Matching is
// case-insensitive against the key name.
var secretKeys = []string{"password", "uri", "token", "secret", "azure_connection_string"}

func isSecretKey(key string) bool {
	lower := strings.ToLower(key)
	return funk.ContainsString(secretKeys, lower)
}

// Redact returns a shallow copy of params with every secret-shaped key's
// non-empty value replaced by Placeholder. Non-secret keys pass through
// untouched.
func Redact(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if isSecretKey(k) {
			if s, ok := v.(string); ok && s != "" {
				out[k] = Placeholder
				continue
			}
		}
		out[k] = v
	}
	return out
}

// RejectRedacted returns an error naming every secret-shaped key whose value
// is literally the redaction placeholder. The scheduler calls this before
// dispatching a run synthesized from a persisted (and therefore redacted)
// template, so an operator must restore real values first.
func RejectRedacted(params map[string]any) error {
	var offending []string
	for key, v := range params {
		if !isSecretKey(key) {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == Placeholder {
			offending = append(offending, key)
		}
	}
	sort.Strings(offending)
	if len(offending) > 0 {
		return fmt.Errorf("connection params have redacted values for: %s; store real values before running scheduler", strings.Join(offending, ", "))
	}
	return nil
}
