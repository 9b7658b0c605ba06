package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diegoclair/flashevent-bot/internal/domain"
	"github.com/diegoclair/flashevent-bot/internal/domain/entity"
	"github.com/diegoclair/flashevent-bot/internal/handlers"
	"github.com/diegoclair/flashevent-bot/internal/handlers/test"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func decodeMsg(t *testing.T, resp *httptest.ResponseRecorder) slack.Msg {
	t.Helper()

	var msg slack.Msg
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &msg))
	return msg
}

func TestSlackHandler_HandleSlashCommand(t *testing.T) {
	type args struct {
		text      string
		channelID string
		userID    string
	}

	tests := []struct {
		name          string
		args          args
		buildMocks    func(m test.ServiceMocks, args args)
		checkResponse func(t *testing.T, resp *httptest.ResponseRecorder)
	}{
		{
			name: "Should dispatch enroll and reply in channel",
			args: args{text: "enroll <@U123|whopper> whopper +5", channelID: "C1", userID: "U9"},
			buildMocks: func(m test.ServiceMocks, args args) {
				m.DispatcherMock.EXPECT().
					Dispatch(gomock.Any(), entity.Inbound{SenderID: args.userID, ChannelID: args.channelID, Text: args.text}).
					Return(&entity.Reply{Text: "Enrolling user @whopper (U123) at timezone UTC +5.", InChannel: true}, nil).Times(1)
			},
			checkResponse: func(t *testing.T, resp *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, resp.Code)
				msg := decodeMsg(t, resp)
				assert.Equal(t, slack.ResponseTypeInChannel, msg.ResponseType)
				assert.Contains(t, msg.Text, "Enrolling user @whopper (U123)")
			},
		},
		{
			name: "Should reply ephemerally when the reply is private",
			args: args{text: "list", channelID: "C1", userID: "U9"},
			buildMocks: func(m test.ServiceMocks, args args) {
				m.DispatcherMock.EXPECT().Dispatch(gomock.Any(), gomock.Any()).
					Return(&entity.Reply{Text: "*Weekly flash events:*"}, nil).Times(1)
			},
			checkResponse: func(t *testing.T, resp *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, resp.Code)
				msg := decodeMsg(t, resp)
				assert.Equal(t, slack.ResponseTypeEphemeral, msg.ResponseType)
				assert.Equal(t, "*Weekly flash events:*", msg.Text)
			},
		},
		{
			name: "Should render validation errors to the user",
			args: args{text: "forceflashevent 7", channelID: "C1", userID: "U9"},
			buildMocks: func(m test.ServiceMocks, args args) {
				m.DispatcherMock.EXPECT().Dispatch(gomock.Any(), gomock.Any()).
					Return(nil, domain.NewValidationError("invalid weekday \"7\", use 0-6 (Sunday is 0)")).Times(1)
			},
			checkResponse: func(t *testing.T, resp *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, resp.Code)
				msg := decodeMsg(t, resp)
				assert.Equal(t, slack.ResponseTypeEphemeral, msg.ResponseType)
				assert.Equal(t, "❌ invalid weekday \"7\", use 0-6 (Sunday is 0)", msg.Text)
			},
		},
		{
			name: "Should hide persistence error details",
			args: args{text: "list", channelID: "C1", userID: "U9"},
			buildMocks: func(m test.ServiceMocks, args args) {
				m.DispatcherMock.EXPECT().Dispatch(gomock.Any(), gomock.Any()).
					Return(nil, domain.NewPersistenceError("failed to list officers", errors.New("database is locked"))).Times(1)
			},
			checkResponse: func(t *testing.T, resp *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, resp.Code)
				msg := decodeMsg(t, resp)
				assert.NotContains(t, msg.Text, "database is locked")
				assert.Contains(t, msg.Text, "❌")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, handler, ctrl := test.GetHandlerTest(t)
			defer ctrl.Finish()

			tt.buildMocks(m, tt.args)

			req := test.CreateSlackRequest(t, "/flash", tt.args.text, tt.args.channelID, tt.args.userID, test.SigningSecret)
			resp := test.CreateTestRecorder()

			handler.HandleSlashCommand(resp, req)
			tt.checkResponse(t, resp)
		})
	}
}

func TestSlackHandler_HandleSlashCommand_BadSignature(t *testing.T) {
	_, handler, ctrl := test.GetHandlerTest(t)
	defer ctrl.Finish()

	req := test.CreateSlackRequest(t, "/flash", "list", "C1", "U9", "wrong-secret")
	resp := test.CreateTestRecorder()

	handler.HandleSlashCommand(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSlackHandler_HandleEvents_URLVerification(t *testing.T) {
	_, handler, ctrl := test.GetHandlerTest(t)
	defer ctrl.Finish()

	body := `{"token":"test-token","challenge":"3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P","type":"url_verification"}`
	resp := test.CreateTestRecorder()

	handler.HandleEvents(resp, test.CreateEventRequest(t, body, test.SigningSecret))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P", resp.Body.String())
}

func TestSlackHandler_HandleEvents_BadSignature(t *testing.T) {
	_, handler, ctrl := test.GetHandlerTest(t)
	defer ctrl.Finish()

	body := test.EventCallback(`{"type":"app_mention","user":"U1","text":"<@UBOT> list","channel":"C1"}`)
	resp := test.CreateTestRecorder()

	handler.HandleEvents(resp, test.CreateEventRequest(t, body, "wrong-secret"))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSlackHandler_HandleEvents(t *testing.T) {
	tests := []struct {
		name       string
		inner      string
		buildMocks func(m test.ServiceMocks)
	}{
		{
			name:  "Should strip the bot mention and reply in the channel",
			inner: `{"type":"app_mention","user":"U1","text":"<@UBOT> forceflashevent 3","channel":"C1","ts":"1.0"}`,
			buildMocks: func(m test.ServiceMocks) {
				m.DispatcherMock.EXPECT().
					Dispatch(gomock.Any(), entity.Inbound{SenderID: "U1", ChannelID: "C1", Text: "forceflashevent 3"}).
					Return(&entity.Reply{Text: "Forced Flash Event on for day 3 (Wednesday) of week.", InChannel: true}, nil).Times(1)
				m.SlackClientMock.EXPECT().PostMessageContext(gomock.Any(), "C1", gomock.Any()).
					DoAndReturn(func(_ context.Context, channel string, opts ...slack.MsgOption) (string, string, error) {
						_, values, err := slack.UnsafeApplyMsgOptions("token", channel, "https://slack.test/api/", opts...)
						require.NoError(t, err)
						assert.Equal(t, "Forced Flash Event on for day 3 (Wednesday) of week.", values.Get("text"))
						return channel, "1.1", nil
					}).Times(1)
			},
		},
		{
			name:  "Should reply with the rendered error on a mention",
			inner: `{"type":"app_mention","user":"U1","text":"<@UBOT> flashevent on","channel":"C1","ts":"1.0"}`,
			buildMocks: func(m test.ServiceMocks) {
				m.DispatcherMock.EXPECT().Dispatch(gomock.Any(), gomock.Any()).
					Return(nil, domain.NewValidationError("You are not enrolled")).Times(1)
				m.SlackClientMock.EXPECT().PostMessageContext(gomock.Any(), "C1", gomock.Any()).
					DoAndReturn(func(_ context.Context, channel string, opts ...slack.MsgOption) (string, string, error) {
						_, values, err := slack.UnsafeApplyMsgOptions("token", channel, "https://slack.test/api/", opts...)
						require.NoError(t, err)
						assert.Equal(t, "❌ You are not enrolled", values.Get("text"))
						return channel, "1.1", nil
					}).Times(1)
			},
		},
		{
			name:       "Should ignore mentions from bots",
			inner:      `{"type":"app_mention","user":"U2","bot_id":"B1","text":"<@UBOT> list","channel":"C1","ts":"1.0"}`,
			buildMocks: func(m test.ServiceMocks) {},
		},
		{
			name:  "Should answer direct messages",
			inner: `{"type":"message","user":"U1","text":"checkin","channel":"D1","channel_type":"im","ts":"1.0"}`,
			buildMocks: func(m test.ServiceMocks) {
				m.DispatcherMock.EXPECT().
					Dispatch(gomock.Any(), entity.Inbound{SenderID: "U1", ChannelID: "D1", Text: "checkin"}).
					Return(&entity.Reply{Text: "How are you doing today?"}, nil).Times(1)
				m.SlackClientMock.EXPECT().PostMessageContext(gomock.Any(), "D1", gomock.Any()).
					Return("D1", "1.1", nil).Times(1)
			},
		},
		{
			name:       "Should ignore its own direct messages",
			inner:      `{"type":"message","user":"UBOT","text":"How are you doing today?","channel":"D1","channel_type":"im","ts":"1.0"}`,
			buildMocks: func(m test.ServiceMocks) {},
		},
		{
			name:       "Should ignore ambient channel chatter",
			inner:      `{"type":"message","user":"U1","text":"lunch?","channel":"C1","channel_type":"channel","ts":"1.0"}`,
			buildMocks: func(m test.ServiceMocks) {},
		},
		{
			name:       "Should ignore the chime keyword outside the chime channel",
			inner:      `{"type":"message","user":"U1","text":"chime","channel":"C1","channel_type":"channel","ts":"1.0"}`,
			buildMocks: func(m test.ServiceMocks) {},
		},
		{
			name:  "Should run a tick on the chime keyword in the chime channel",
			inner: `{"type":"message","user":"USLACKBOT","text":" Chime ","channel":"CCHIME","channel_type":"channel","ts":"1.0"}`,
			buildMocks: func(m test.ServiceMocks) {
				m.DispatcherMock.EXPECT().Chime(gomock.Any()).
					Return(&entity.ChimeReport{Evaluated: 3, Notified: 1}, nil).Times(1)
			},
		},
		{
			name:  "Should run a tick on a reminder that contains the chime keyword",
			inner: `{"type":"message","user":"USLACKBOT","text":"Reminder: chime.","channel":"CCHIME","channel_type":"channel","ts":"1.0"}`,
			buildMocks: func(m test.ServiceMocks) {
				m.DispatcherMock.EXPECT().Chime(gomock.Any()).
					Return(&entity.ChimeReport{Evaluated: 2, Notified: 2}, nil).Times(1)
			},
		},
		{
			name:       "Should not match the keyword inside a longer word",
			inner:      `{"type":"message","user":"U1","text":"the chimes were loud","channel":"CCHIME","channel_type":"channel","ts":"1.0"}`,
			buildMocks: func(m test.ServiceMocks) {},
		},
		{
			name:       "Should leave a mention of the bot to the app_mention event",
			inner:      `{"type":"message","user":"U1","text":"<@UBOT> chime","channel":"CCHIME","channel_type":"channel","ts":"1.0"}`,
			buildMocks: func(m test.ServiceMocks) {},
		},
		{
			name:       "Should ignore an edited message in the chime channel",
			inner:      `{"type":"message","subtype":"message_changed","channel":"CCHIME","channel_type":"channel","ts":"1.0","message":{"type":"message","user":"U1","text":"chime","ts":"0.9"}}`,
			buildMocks: func(m test.ServiceMocks) {},
		},
		{
			name:  "Should accept the chime keyword from an integration",
			inner: `{"type":"message","subtype":"bot_message","bot_id":"B7","text":"chime","channel":"CCHIME","channel_type":"channel","ts":"1.0"}`,
			buildMocks: func(m test.ServiceMocks) {
				m.DispatcherMock.EXPECT().Chime(gomock.Any()).
					Return(&entity.ChimeReport{}, nil).Times(1)
			},
		},
		{
			name:  "Should survive a failed tick",
			inner: `{"type":"message","user":"U1","text":"chime","channel":"CCHIME","channel_type":"channel","ts":"1.0"}`,
			buildMocks: func(m test.ServiceMocks) {
				m.DispatcherMock.EXPECT().Chime(gomock.Any()).
					Return(&entity.ChimeReport{Evaluated: 1}, domain.NewPersistenceError("failed to get flash event flag", errors.New("down"))).Times(1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, handler, ctrl := test.GetHandlerTest(t)
			defer ctrl.Finish()

			tt.buildMocks(m)

			resp := test.CreateTestRecorder()
			handler.HandleEvents(resp, test.CreateEventRequest(t, test.EventCallback(tt.inner), test.SigningSecret))
			handler.Wait()

			assert.Equal(t, http.StatusOK, resp.Code)
		})
	}
}

func TestSlackHandler_HandleEvents_DropsRetries(t *testing.T) {
	_, handler, ctrl := test.GetHandlerTest(t)
	defer ctrl.Finish()

	body := test.EventCallback(`{"type":"message","user":"USLACKBOT","text":"Reminder: chime.","channel":"CCHIME","channel_type":"channel","ts":"1.0"}`)
	req := test.CreateEventRequest(t, body, test.SigningSecret)
	req.Header.Set("X-Slack-Retry-Num", "1")
	req.Header.Set("X-Slack-Retry-Reason", "http_timeout")

	resp := test.CreateTestRecorder()
	handler.HandleEvents(resp, req)
	handler.Wait()

	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestSlackHandler_HandleEvents_ChimeOutlivesRequest(t *testing.T) {
	m, handler, ctrl := test.GetHandlerTest(t)
	defer ctrl.Finish()

	release := make(chan struct{})
	m.DispatcherMock.EXPECT().Chime(gomock.Any()).DoAndReturn(func(ctx context.Context) (*entity.ChimeReport, error) {
		<-release
		assert.NoError(t, ctx.Err(), "tick must not be canceled with the request")
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return &entity.ChimeReport{}, nil
	}).Times(1)

	body := test.EventCallback(`{"type":"message","user":"USLACKBOT","text":"Reminder: chime.","channel":"CCHIME","channel_type":"channel","ts":"1.0"}`)
	reqCtx, cancel := context.WithCancel(context.Background())
	req := test.CreateEventRequest(t, body, test.SigningSecret).WithContext(reqCtx)

	resp := test.CreateTestRecorder()
	handler.HandleEvents(resp, req)

	// acknowledged while the tick is still running
	assert.Equal(t, http.StatusOK, resp.Code)
	cancel()
	close(release)
	handler.Wait()
}

func TestNewRouter(t *testing.T) {
	_, handler, ctrl := test.GetHandlerTest(t)
	defer ctrl.Finish()

	t.Run("Should report healthy", func(t *testing.T) {
		router := handlers.NewRouter(handler, func(context.Context) error { return nil })

		resp := test.CreateTestRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "OK", resp.Body.String())
	})

	t.Run("Should report an unreachable store", func(t *testing.T) {
		router := handlers.NewRouter(handler, func(context.Context) error { return errors.New("down") })

		resp := test.CreateTestRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	})

	t.Run("Should route signed events", func(t *testing.T) {
		router := handlers.NewRouter(handler, nil)

		body := `{"token":"test-token","challenge":"abc","type":"url_verification"}`
		resp := test.CreateTestRecorder()
		router.ServeHTTP(resp, test.CreateEventRequest(t, body, test.SigningSecret))

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "abc", resp.Body.String())
	})

	t.Run("Should reject GET on the events endpoint", func(t *testing.T) {
		router := handlers.NewRouter(handler, nil)

		resp := test.CreateTestRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/slack/events", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
	})
}
