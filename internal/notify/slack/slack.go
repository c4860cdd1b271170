// Package slack posts assignment events to a Slack incoming webhook.
package slack

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/zulandar/assignyard/internal/notify"
)

// maxRetries is the max number of retries for rate-limited webhook calls.
const maxRetries = 3

// postFunc matches slackapi.PostWebhookContext, enabling test mocks.
type postFunc func(ctx context.Context, url string, msg *slackapi.WebhookMessage) error

// Notifier implements notify.Notifier for a Slack webhook.
type Notifier struct {
	url  string
	post postFunc
}

// New returns a notifier posting to webhookURL.
func New(webhookURL string) (*Notifier, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack: webhook URL is required")
	}
	return &Notifier{url: webhookURL, post: slackapi.PostWebhookContext}, nil
}

// Notify posts e as a single attachment.
func (n *Notifier) Notify(ctx context.Context, e notify.Event) error {
	msg := buildMessage(notify.Format(e))
	if err := retryOnRateLimit(ctx, func() error { return n.post(ctx, n.url, msg) }); err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	return nil
}

func buildMessage(f notify.FormattedEvent) *slackapi.WebhookMessage {
	att := slackapi.Attachment{
		Color: f.Color,
		Title: f.Title,
		Text:  f.Body,
	}
	for _, fl := range f.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: fl.Name,
			Value: fl.Value,
			Short: fl.Short,
		})
	}
	return &slackapi.WebhookMessage{
		Text:        f.Title,
		Attachments: []slackapi.Attachment{att},
	}
}

// retryOnRateLimit calls fn and retries with backoff on Slack rate limit errors.
// It respects context cancellation and the RetryAfter duration from Slack.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) {
			return err
		}

		if attempt == maxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Millisecond * 500
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}
