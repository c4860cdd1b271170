package main

import (
	"github.com/zulandar/assignyard/internal/config"
	"github.com/zulandar/assignyard/internal/notify"
	"github.com/zulandar/assignyard/internal/notify/discord"
	"github.com/zulandar/assignyard/internal/notify/slack"
)

// buildNotifier wires every configured chat target. With none configured
// events are dropped.
func buildNotifier(cfg config.NotifyConfig) (notify.Notifier, error) {
	var m notify.Multi
	if cfg.SlackWebhookURL != "" {
		n, err := slack.New(cfg.SlackWebhookURL)
		if err != nil {
			return nil, err
		}
		m = append(m, n)
	}
	if cfg.DiscordBotToken != "" {
		n, err := discord.New(cfg.DiscordBotToken, cfg.DiscordChannelID)
		if err != nil {
			return nil, err
		}
		m = append(m, n)
	}
	if len(m) == 0 {
		return notify.Nop{}, nil
	}
	return m, nil
}
