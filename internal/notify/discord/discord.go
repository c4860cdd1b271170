// Package discord posts assignment events to a Discord channel through the
// bot REST API.
package discord

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/assignyard/internal/notify"
)

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// baseBackoff is the initial backoff duration between retries.
	baseBackoff = 500 * time.Millisecond
	// maxBackoff caps the exponential backoff.
	maxBackoff = 10 * time.Second
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier implements notify.Notifier for one Discord channel.
type Notifier struct {
	session     session
	channelID   string
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// New returns a notifier posting to channelID with a bot token.
func New(botToken, channelID string) (*Notifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if channelID == "" {
		return nil, fmt.Errorf("discord: channel ID is required")
	}
	s, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	return newWithSession(s, channelID), nil
}

func newWithSession(s session, channelID string) *Notifier {
	return &Notifier{
		session:     s,
		channelID:   channelID,
		baseBackoff: baseBackoff,
		maxBackoff:  maxBackoff,
	}
}

// Notify posts e as an embed.
func (n *Notifier) Notify(ctx context.Context, e notify.Event) error {
	embed := eventToEmbed(notify.Format(e))
	err := n.retryOnRateLimit(ctx, func() error {
		_, err := n.session.ChannelMessageSendEmbed(n.channelID, embed, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return fmt.Errorf("discord: send to %s: %w", n.channelID, err)
	}
	return nil
}

// eventToEmbed converts a FormattedEvent to a Discord Embed.
func eventToEmbed(evt notify.FormattedEvent) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       evt.Title,
		Description: evt.Body,
	}

	if evt.Color != "" {
		embed.Color = parseHexColor(evt.Color)
	}

	for _, f := range evt.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Short,
		})
	}

	return embed
}

// parseHexColor converts a hex color string (e.g. "#36a64f") to an int.
func parseHexColor(hex string) int {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	var color int
	for _, c := range hex {
		color <<= 4
		switch {
		case c >= '0' && c <= '9':
			color |= int(c - '0')
		case c >= 'a' && c <= 'f':
			color |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			color |= int(c-'A') + 10
		}
	}
	return color
}

// retryOnRateLimit calls fn and retries with exponential backoff on Discord
// rate limit errors. It respects context cancellation.
func (n *Notifier) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		restErr, ok := err.(*discordgo.RESTError)
		if !ok || restErr.Response == nil || restErr.Response.StatusCode != 429 {
			return err
		}

		if attempt == maxRetries {
			return err
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * n.baseBackoff
		if wait > n.maxBackoff {
			wait = n.maxBackoff
		}

		log.Printf("discord: rate limited (attempt %d/%d), retrying in %v",
			attempt+1, maxRetries, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil // unreachable
}
