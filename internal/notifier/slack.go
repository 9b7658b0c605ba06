package notifier

import (
	"context"
	"fmt"

	"github.com/diegoclair/flashevent-bot/internal/domain/contract"
	"github.com/diegoclair/flashevent-bot/internal/domain/entity"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// SlackSender delivers notifications through chat.postMessage
type SlackSender struct {
	client contract.SlackClient
	log    *zap.Logger
}

func NewSlackSender(client contract.SlackClient, log *zap.Logger) *SlackSender {
	return &SlackSender{client: client, log: log}
}

func (s *SlackSender) Send(ctx context.Context, n entity.Notification) error {
	if n.Target == "" {
		return fmt.Errorf("notification has no target")
	}

	channel, ts, err := s.client.PostMessageContext(ctx, n.Target, MessageOptions(n)...)
	if err != nil {
		return fmt.Errorf("failed to post message to %s: %w", n.Target, err)
	}

	s.log.Debug("message posted", zap.String("channel", channel), zap.String("ts", ts))
	return nil
}

// MessageOptions maps a notification onto slack message options
func MessageOptions(n entity.Notification) []slack.MsgOption {
	opts := []slack.MsgOption{slack.MsgOptionText(n.Text, false)}
	if n.LinkNames {
		opts = append(opts, slack.MsgOptionLinkNames(true))
	}
	if n.AsUser {
		opts = append(opts, slack.MsgOptionAsUser(true))
	}
	return opts
}
