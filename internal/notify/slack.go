package notify

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"scribe/internal/domain"
)

// Notifier posts job outcomes to a Slack incoming webhook. An empty webhook
// URL disables notifications; delivery failures are logged, never fatal.
type Notifier struct {
	webhookURL func() string
	post       func(ctx context.Context, url string, msg *slack.WebhookMessage) error
	log        *logrus.Logger
}

// NewNotifier constructs a webhook notifier. The URL is resolved per call so
// settings changes take effect immediately.
func NewNotifier(webhookURL func() string, log *logrus.Logger) *Notifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Notifier{
		webhookURL: webhookURL,
		post:       slack.PostWebhookContext,
		log:        log,
	}
}

// NewNotifierForTests constructs a notifier with the webhook transport
// replaced.
func NewNotifierForTests(webhookURL func() string, post func(ctx context.Context, url string, msg *slack.WebhookMessage) error) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		post:       post,
		log:        logrus.StandardLogger(),
	}
}

// JobCompleted announces a finished transcription.
func (n *Notifier) JobCompleted(ctx context.Context, job domain.Job) {
	n.send(ctx, slack.Attachment{
		Color:    "good",
		Title:    "Transcription complete",
		Fallback: "Transcription complete: " + job.Filename,
		Fields: []slack.AttachmentField{
			{Title: "File", Value: job.Filename, Short: true},
			{Title: "Document", Value: job.OutputPath, Short: true},
		},
	})
}

// JobFailed announces a failed transcription with its error.
func (n *Notifier) JobFailed(ctx context.Context, job domain.Job) {
	n.send(ctx, slack.Attachment{
		Color:    "danger",
		Title:    "Transcription failed",
		Fallback: "Transcription failed: " + job.Filename,
		Fields: []slack.AttachmentField{
			{Title: "File", Value: job.Filename, Short: true},
			{Title: "Error", Value: job.Error, Short: false},
		},
	})
}

// send posts one attachment to the configured webhook, if any.
func (n *Notifier) send(ctx context.Context, attachment slack.Attachment) {
	url := strings.TrimSpace(n.webhookURL())
	if url == "" {
		return
	}
	msg := &slack.WebhookMessage{Attachments: []slack.Attachment{attachment}}
	if err := n.post(ctx, url, msg); err != nil {
		n.log.WithError(err).Warn("slack notification failed")
	}
}
