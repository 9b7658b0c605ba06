package test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/diegoclair/flashevent-bot/internal/handlers"
	"github.com/diegoclair/flashevent-bot/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

const (
	SigningSecret  = "test-signing-secret"
	BotUserID      = "UBOT"
	ChimeChannelID = "CCHIME"
)

type ServiceMocks struct {
	DispatcherMock  *mocks.MockDispatcher
	SlackClientMock *mocks.MockSlackClient
}

func GetHandlerTest(t *testing.T) (m ServiceMocks, handler *handlers.SlackHandler, ctrl *gomock.Controller) {
	t.Helper()

	ctrl = gomock.NewController(t)
	m = ServiceMocks{
		DispatcherMock:  mocks.NewMockDispatcher(ctrl),
		SlackClientMock: mocks.NewMockSlackClient(ctrl),
	}

	handler = handlers.New(m.SlackClientMock, m.DispatcherMock, SigningSecret, handlers.Options{
		BotUserID:      BotUserID,
		ChimeChannelID: ChimeChannelID,
		ChimeTimeout:   time.Minute,
	}, zap.NewNop())

	return
}

// CreateSlackRequest creates a properly signed Slack slash command request
func CreateSlackRequest(t *testing.T, command, text, channelID, userID, signingSecret string) *http.Request {
	t.Helper()

	form := url.Values{
		"token":        {"test-token"},
		"team_id":      {"T123456789"},
		"team_domain":  {"test-team"},
		"channel_id":   {channelID},
		"channel_name": {"test-channel"},
		"user_id":      {userID},
		"user_name":    {"test-user"},
		"command":      {command},
		"text":         {text},
		"response_url": {"https://hooks.slack.com/commands/test"},
		"trigger_id":   {"test-trigger-id"},
	}

	req := newSignedRequest(t, "/slack/commands", form.Encode(), signingSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// CreateEventRequest creates a properly signed Events API request carrying body
func CreateEventRequest(t *testing.T, body, signingSecret string) *http.Request {
	t.Helper()

	req := newSignedRequest(t, "/slack/events", body, signingSecret)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// EventCallback wraps an inner event the way Slack delivers it
func EventCallback(inner string) string {
	return `{"token":"test-token","team_id":"T123456789","api_app_id":"A1","type":"event_callback","event_id":"Ev1","event_time":1700000000,"event":` + inner + `}`
}

func newSignedRequest(t *testing.T, path, body, signingSecret string) *http.Request {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
	require.NoError(t, err)

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("X-Slack-Request-Timestamp", timestamp)
	req.Header.Set("X-Slack-Signature", generateSlackSignature(signingSecret, timestamp, body))

	return req
}

func generateSlackSignature(signingSecret, timestamp, body string) string {
	baseString := fmt.Sprintf("v0:%s:%s", timestamp, body)
	h := hmac.New(sha256.New, []byte(signingSecret))
	h.Write([]byte(baseString))
	signature := hex.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("v0=%s", signature)
}

func CreateTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}
