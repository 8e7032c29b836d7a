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

// Package orchestrator drives the scheduler loop: a single pass in one-shot
// mode, or a poll-and-sleep loop in continuous mode.
package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dbbackup/orchestrator/pkg/scheduler"
)

const (
	DefaultMaxJobs      = 20
	DefaultLeaseSeconds = 300
	DefaultIntervalSeconds = 60
)

// RunOptions configures a full orchestrator invocation (one-shot or
// continuous).
type RunOptions struct {
	Once            bool
	IntervalSeconds int
	Pass            scheduler.PassOptions
}

// Run drives the runner through one pass (Once) or a poll loop until ctx is
// canceled.
func Run(ctx context.Context, runner *scheduler.Runner, logger *zap.SugaredLogger, opts RunOptions) error {
	interval := opts.IntervalSeconds
	if interval <= 0 {
		interval = DefaultIntervalSeconds
	}

	for {
		processed, err := runner.RunPass(ctx, opts.Pass)
		if err != nil {
			return err
		}
		logger.Infow("scheduler pass finished", "processed", processed)

		if opts.Once {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(interval) * time.Second):
		}
	}
}
