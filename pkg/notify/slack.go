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

// Package notify sends best-effort Slack notifications for backup/restore
// outcomes. A missing webhook URL or a delivery failure is never fatal to
// the caller: notification is a side channel, not part of the pipeline's
// contract.
package notify

import (
	"context"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// SendSlack posts message to webhookURL. Returns false (without error) when
// webhookURL is empty; logs and returns false on delivery failure.
func SendSlack(ctx context.Context, logger *zap.SugaredLogger, webhookURL, message string) bool {
	if webhookURL == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := slack.PostWebhookContext(ctx, webhookURL, &slack.WebhookMessage{Text: message})
	if err != nil {
		if logger != nil {
			logger.Warnw("slack notification delivery failed", "error", err)
		}
		return false
	}
	return true
}
