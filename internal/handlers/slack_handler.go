package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/diegoclair/flashevent-bot/internal/domain"
	"github.com/diegoclair/flashevent-bot/internal/domain/contract"
	"github.com/diegoclair/flashevent-bot/internal/domain/entity"
	slackcmd "github.com/diegoclair/flashevent-bot/internal/domain/slack"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"
)

const (
	genericFailure = "Something went wrong on my side, please try again in a moment."
	channelTypeIM  = "im"
	retryHeader    = "X-Slack-Retry-Num"
)

type Options struct {
	BotUserID      string
	ChimeChannelID string
	ChimeKeyword   string
	ChimeTimeout   time.Duration
}

type SlackHandler struct {
	slackClient   contract.SlackClient
	dispatcher    contract.Dispatcher
	signingSecret string
	opts          Options
	keyword       []string
	log           *zap.Logger

	ticks sync.WaitGroup
}

func New(slackClient contract.SlackClient, dispatcher contract.Dispatcher, signingSecret string, opts Options, log *zap.Logger) *SlackHandler {
	if opts.ChimeKeyword == "" {
		opts.ChimeKeyword = domain.DefaultChimeKeyword
	}

	return &SlackHandler{
		slackClient:   slackClient,
		dispatcher:    dispatcher,
		signingSecret: signingSecret,
		opts:          opts,
		keyword:       words(opts.ChimeKeyword),
		log:           log,
	}
}

// Wait blocks until every chime started from the chime channel has finished
func (h *SlackHandler) Wait() {
	h.ticks.Wait()
}

func (h *SlackHandler) HandleSlashCommand(w http.ResponseWriter, r *http.Request) {
	body, err := h.readVerified(r)
	if err != nil {
		h.log.Warn("rejected slash command", zap.Error(err))
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	s, err := slack.SlashCommandParse(r)
	if err != nil {
		h.log.Error("failed to parse slash command", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	reply := h.dispatch(r.Context(), entity.Inbound{
		SenderID:  s.UserID,
		ChannelID: s.ChannelID,
		Text:      s.Text,
	})

	responseType := slack.ResponseTypeEphemeral
	if reply.InChannel {
		responseType = slack.ResponseTypeInChannel
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(&slack.Msg{ResponseType: responseType, Text: reply.Text}); err != nil {
		h.log.Error("failed to write slash command response", zap.Error(err))
	}
}

func (h *SlackHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := h.readVerified(r)
	if err != nil {
		h.log.Warn("rejected event", zap.Error(err))
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		h.log.Error("failed to parse event", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			h.log.Error("failed to unmarshal challenge", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(challenge.Challenge))
		return
	case slackevents.CallbackEvent:
		// the first delivery is still being handled or was already handled
		if retry := r.Header.Get(retryHeader); retry != "" {
			h.log.Info("dropping slack retry", zap.String("retry_num", retry), zap.String("reason", r.Header.Get("X-Slack-Retry-Reason")))
			w.WriteHeader(http.StatusOK)
			return
		}

		switch e := event.InnerEvent.Data.(type) {
		case *slackevents.AppMentionEvent:
			h.handleMention(ctx, e)
		case *slackevents.MessageEvent:
			h.handleMessage(ctx, e)
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (h *SlackHandler) handleMention(ctx context.Context, e *slackevents.AppMentionEvent) {
	if h.fromBot(e.User, e.BotID) {
		return
	}

	reply := h.dispatch(ctx, entity.Inbound{
		SenderID:  e.User,
		ChannelID: e.Channel,
		Text:      slackcmd.StripBotMention(e.Text, h.opts.BotUserID),
	})
	h.post(ctx, e.Channel, reply.Text)
}

// handleMessage covers direct messages and the chime keyword in the chime
// channel. Channel messages that mention the bot arrive as app_mention too.
func (h *SlackHandler) handleMessage(ctx context.Context, e *slackevents.MessageEvent) {
	if h.opts.BotUserID != "" && e.User == h.opts.BotUserID {
		return
	}

	// integrations and reminders may post the keyword, so bot ids are allowed here
	if h.isChimeTrigger(e) {
		h.startChime(ctx)
		return
	}

	if h.fromBot(e.User, e.BotID) || e.SubType != "" || e.ChannelType != channelTypeIM {
		return
	}

	reply := h.dispatch(ctx, entity.Inbound{
		SenderID:  e.User,
		ChannelID: e.Channel,
		Text:      slackcmd.StripBotMention(e.Text, h.opts.BotUserID),
	})
	h.post(ctx, e.Channel, reply.Text)
}

// startChime runs the tick after the event is acknowledged; Slack redelivers
// events that take longer than a few seconds to answer.
func (h *SlackHandler) startChime(ctx context.Context) {
	tickCtx := context.WithoutCancel(ctx)
	cancel := context.CancelFunc(func() {})
	if h.opts.ChimeTimeout > 0 {
		tickCtx, cancel = context.WithTimeout(tickCtx, h.opts.ChimeTimeout)
	}

	h.ticks.Add(1)
	go func() {
		defer h.ticks.Done()
		defer cancel()

		report, err := h.dispatcher.Chime(tickCtx)
		if err != nil {
			h.log.Error("chime from channel failed", zap.Error(err))
			return
		}
		h.log.Info("chime from channel", zap.Int("evaluated", report.Evaluated), zap.Int("notified", report.Notified))
	}()
}

// isChimeTrigger matches the keyword as a whole word anywhere in the text, so
// a reminder such as "Reminder: chime." starts a tick. Edits and deletions do
// not, and neither do mentions of the bot, which arrive as app_mention too.
func (h *SlackHandler) isChimeTrigger(e *slackevents.MessageEvent) bool {
	if h.opts.ChimeChannelID == "" || e.Channel != h.opts.ChimeChannelID {
		return false
	}
	if e.SubType != "" && e.SubType != slack.MsgSubTypeBotMessage {
		return false
	}
	if h.opts.BotUserID != "" && strings.Contains(e.Text, "<@"+h.opts.BotUserID) {
		return false
	}
	return containsWords(words(e.Text), h.keyword)
}

func words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// containsWords reports whether needle appears as a contiguous run in haystack, ignoring case
func containsWords(haystack, needle []string) bool {
	if len(needle) == 0 {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, w := range needle {
			if !strings.EqualFold(haystack[i+j], w) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (h *SlackHandler) fromBot(userID, botID string) bool {
	return botID != "" || (h.opts.BotUserID != "" && userID == h.opts.BotUserID)
}

// dispatch always produces a reply; errors are rendered for the user
func (h *SlackHandler) dispatch(ctx context.Context, in entity.Inbound) *entity.Reply {
	reply, err := h.dispatcher.Dispatch(ctx, in)
	if err != nil {
		return h.errorReply(err, in)
	}
	if reply == nil {
		return &entity.Reply{}
	}
	return reply
}

func (h *SlackHandler) errorReply(err error, in entity.Inbound) *entity.Reply {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindNotFound:
		h.log.Debug("command rejected", zap.String("sender", in.SenderID), zap.Error(err))
		return &entity.Reply{Text: fmt.Sprintf("❌ %s", err.Error())}
	default:
		h.log.Error("command failed",
			zap.String("sender", in.SenderID),
			zap.String("channel", in.ChannelID),
			zap.String("kind", string(domain.KindOf(err))),
			zap.Error(err),
		)
		return &entity.Reply{Text: fmt.Sprintf("❌ %s", genericFailure)}
	}
}

func (h *SlackHandler) post(ctx context.Context, channel, text string) {
	if text == "" {
		return
	}
	if _, _, err := h.slackClient.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false)); err != nil {
		h.log.Error("failed to post reply", zap.String("channel", channel), zap.Error(err))
	}
}

func (h *SlackHandler) readVerified(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	verifier, err := slack.NewSecretsVerifier(r.Header, h.signingSecret)
	if err != nil {
		return nil, fmt.Errorf("new secret verifier: %w", err)
	}
	if _, err := verifier.Write(body); err != nil {
		return nil, fmt.Errorf("write body: %w", err)
	}
	if err := verifier.Ensure(); err != nil {
		return nil, fmt.Errorf("ensure secret: %w", err)
	}

	return body, nil
}
