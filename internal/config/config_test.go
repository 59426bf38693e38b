package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "ADMIN_ID", "CHECK_INTERVAL",
		"ALERT_THRESHOLD", "STATE_FILE", "SQLITE_PATH", "HTTPS_PROXY",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "099190", cfg.Stock.Code)
	assert.Equal(t, 60*time.Second, cfg.CheckInterval.Std())
	assert.Equal(t, 2.0, cfg.Alert.Threshold)
	assert.Equal(t, TimeOfDay{Hour: 9, Minute: 5}, cfg.Alert.OpenFrom)
	assert.Equal(t, TimeOfDay{Hour: 15, Minute: 30}, cfg.Alert.CloseAt)
	assert.Equal(t, "json", cfg.State.Backend)

	// no token
	assert.Error(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
telegram:
  bot_token: file-token
  chat_id: "100, 200"
  admin_id: 7
check_interval: 1m30s
alert:
  threshold: 3
  open_from: "09:10"
market:
  fallback_delay: 30
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	ids, err := cfg.ChatIDs()
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200}, ids)
	assert.Equal(t, int64(7), cfg.Telegram.AdminID)
	assert.Equal(t, 90*time.Second, cfg.CheckInterval.Std())
	assert.Equal(t, 30*time.Second, cfg.Market.FallbackDelay.Std())
	assert.EqualValues(t, 3, cfg.Threshold())
	assert.Equal(t, TimeOfDay{Hour: 9, Minute: 10}, cfg.Alert.OpenFrom)
}

func TestValidate_Errors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		body string
	}{
		{"bad chat id", "telegram: {bot_token: x, chat_id: abc}"},
		{"threshold not selectable", "telegram: {bot_token: x}\nalert: {threshold: 4}"},
		{"open window inverted", "telegram: {bot_token: x}\nalert: {open_from: \"10:00\", open_until: \"09:30\"}"},
		{"unknown backend", "telegram: {bot_token: x}\nstate: {backend: redis}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.body))
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"ALERT_THRESHOLD", "two", "ALERT_THRESHOLD"},
		{"ADMIN_ID", "admin", "ADMIN_ID"},
		{"CHECK_INTERVAL", "soon", "CHECK_INTERVAL"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load(writeConfig(t, "telegram: {bot_token: x}"))
			assert.ErrorContains(t, err, tt.want)
		})
	}

	clearEnv(t)
	t.Setenv("ALERT_THRESHOLD", " 5 ")
	cfg, err := Load(writeConfig(t, "telegram: {bot_token: x}"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, cfg.Threshold())
}

func TestLoad_InvalidTimeOfDay(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "alert: {close_at: \"25:99\"}"))
	assert.Error(t, err)
}

func TestWatcher_Reload(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "telegram: {bot_token: x}\ncheck_interval: 60\n")
	w, err := NewWatcher(path)
	require.NoError(t, err)

	cfg, changed, err := w.Reload()
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 60*time.Second, cfg.CheckInterval.Std())

	require.NoError(t, os.WriteFile(path, []byte("telegram: {bot_token: x}\ncheck_interval: 30\n"), 0644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	cfg, changed, err = w.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 30*time.Second, cfg.CheckInterval.Std())

	// a broken file keeps the last good config
	require.NoError(t, os.WriteFile(path, []byte("alert: {threshold: 7}\ntelegram: {bot_token: x}\n"), 0644))
	later := future.Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	cfg, changed, err = w.Reload()
	assert.Error(t, err)
	assert.False(t, changed)
	assert.Equal(t, 30*time.Second, cfg.CheckInterval.Std())
	assert.Same(t, cfg, w.Current())
}
