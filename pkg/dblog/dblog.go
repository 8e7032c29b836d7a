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

// Package dblog configures the zap logger shared by the CLI, the pipeline
// and the scheduler core. Unlike the teacher's manager logging, which
// layers go-logr and controller-runtime on top of zap to satisfy the
// Kubernetes controller-runtime logging interface, this is a plain
// *zap.SugaredLogger: there is no controller-runtime reconciler here to
// satisfy, only a CLI and a scheduler loop.
package dblog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Level is one of "error", "warn", "info", "debug".
	Level string
	// Destination is a file path to also write logs to, in addition to
	// stderr. Empty disables the file sink.
	Destination string
}

// New builds a process-wide sugared logger honoring Options. It never
// panics; an invalid level falls back to info and an unwritable
// destination falls back to stderr-only, both logged as warnings on the
// returned logger.
func New(opts Options) *zap.SugaredLogger {
	level := parseLevel(opts.Level)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(os.Stderr), level)
	cores := []zapcore.Core{consoleCore}

	var fileWarn string
	if opts.Destination != "" {
		f, err := os.OpenFile(opts.Destination, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fileWarn = err.Error()
		} else {
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(f), level))
		}
	}

	logger := zap.New(zapcore.NewTee(cores...)).Sugar()
	if opts.Level != "" && !isKnownLevel(opts.Level) {
		logger.Warnw("invalid log level, defaulting to info", "requested", opts.Level)
	}
	if fileWarn != "" {
		logger.Warnw("could not open log destination, logging to stderr only", "destination", opts.Destination, "error", fileWarn)
	}
	return logger
}

func isKnownLevel(level string) bool {
	switch level {
	case "error", "warn", "info", "debug":
		return true
	default:
		return false
	}
}

func parseLevel(level string) zapcore.Level {
	if !isKnownLevel(level) {
		level = "info"
	}
	switch level {
	case "error":
		return zapcore.ErrorLevel
	case "warn":
		return zapcore.WarnLevel
	case "debug":
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// Noop returns a logger that discards everything, for tests.
func Noop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
