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

// Package execlog wraps external command invocation for the database
// adapters: it captures both standard streams, merges engine-specific
// secret environment variables into a copy of the process environment
// (never mutating the parent's), and turns a non-zero exit into an error
// carrying the trimmed stderr (or stdout when stderr is empty).
package execlog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"
)

// Result captures the outcome of a Run invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Error is returned when an invoked command exits non-zero. Details holds
// the trimmed stderr, or stdout when stderr was empty.
type Error struct {
	Action  string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s", e.Action, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Action, e.Details)
}

func (e *Error) Unwrap() error { return e.Err }

// Run executes name with args, inheriting the process environment plus
// extraEnv (extraEnv wins on conflicting keys), capturing stdout/stderr. On
// a non-zero exit it returns *Error; action prefixes its message. stdin, if
// non-nil, is piped to the child's standard input.
func Run(ctx context.Context, logger *zap.SugaredLogger, action, name string, args []string, extraEnv map[string]string, stdin io.Reader) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = mergeEnv(os.Environ(), extraEnv)
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if logger != nil {
		logger.Debugw("executing external command", "action", action, "command", shellquote.Join(append([]string{name}, args...)...))
	}

	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err == nil {
		result.ExitCode = 0
		return result, nil
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		details := strings.TrimSpace(result.Stderr)
		if details == "" {
			details = strings.TrimSpace(result.Stdout)
		}
		if details == "" {
			details = "unknown command failure"
		}
		return result, &Error{Action: action, Details: details}
	}

	return result, &Error{Action: action, Err: err}
}

// RequireBinary returns an error naming binaryName if it cannot be found on
// PATH.
func RequireBinary(binaryName string) error {
	if _, err := exec.LookPath(binaryName); err != nil {
		return fmt.Errorf("'%s' is required but not found in PATH", binaryName)
	}
	return nil
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	merged := make([]string, 0, len(base)+len(extra))
	merged = append(merged, base...)
	for k, v := range extra {
		merged = append(merged, fmt.Sprintf("%s=%s", k, v))
	}
	return merged
}
