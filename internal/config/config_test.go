package config

import (
	"testing"
	"time"

	"github.com/diegoclair/flashevent-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_SIGNING_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "chime", cfg.ChimeKeyword)
	assert.Equal(t, domain.DefaultTriggerHours, cfg.TriggerHours)
	assert.Equal(t, 5*time.Minute, cfg.ConversationTTL)
	assert.Equal(t, 2*time.Minute, cfg.ChimeTimeout)
	assert.Empty(t, cfg.ChimeSchedule)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("TRIGGER_HOURS", "9,21")
	t.Setenv("CONVERSATION_TTL", "90s")
	t.Setenv("CHIME_SCHEDULE", "0 * * * *")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.StoreBackend)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, []int{9, 21}, cfg.TriggerHours)
	assert.Equal(t, 90*time.Second, cfg.ConversationTTL)
	assert.Equal(t, "0 * * * *", cfg.ChimeSchedule)
}

func TestLoad_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "Should require the bot token", env: map[string]string{"SLACK_BOT_TOKEN": ""}},
		{name: "Should require the signing secret", env: map[string]string{"SLACK_SIGNING_SECRET": ""}},
		{name: "Should reject an unknown backend", env: map[string]string{"STORE_BACKEND": "etcd"}},
		{name: "Should reject trigger hour 24", env: map[string]string{"TRIGGER_HOURS": "11,24"}},
		{name: "Should reject a negative trigger hour", env: map[string]string{"TRIGGER_HOURS": "-1"}},
		{name: "Should reject a non-numeric trigger hour", env: map[string]string{"TRIGGER_HOURS": "noon"}},
		{name: "Should reject a bad ttl", env: map[string]string{"CONVERSATION_TTL": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.True(t, domain.IsKind(err, domain.KindConfiguration), "got %v", err)
		})
	}
}
