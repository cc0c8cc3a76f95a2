package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/ai-diary/backend/internal/service/illustrator"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("DIARY_LOCAL_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ProviderArk, cfg.AI.Provider)
	assert.Equal(t, 5, cfg.Diary.MinUserTurns)
	assert.Equal(t, 3, cfg.Diary.MinTurns)
	assert.Equal(t, 500, cfg.Diary.MaxTurnLength)
	assert.Equal(t, 10, cfg.Diary.ChatWindow)
	assert.True(t, cfg.Diary.ResetAfterFinalize)
	assert.Equal(t, "1024x1024", cfg.Image.Size)
	assert.Equal(t, "standard", cfg.Image.Quality)
	assert.Equal(t, illustrator.DefaultPlaceholder, cfg.Image.PlaceholderURL)
	assert.Equal(t, 30*time.Second, cfg.Store.ReconnectInterval)
	assert.False(t, cfg.Store.PrimaryEnabled())
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
}

func TestLoadOpenAIProviderFromKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("IMAGE_API_KEY", "")
	t.Setenv("DIARY_LOCAL_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.AI.Provider)
	assert.True(t, cfg.AI.Enabled())
	assert.Equal(t, "sk-test", cfg.Image.APIKey, "image key falls back to the OpenAI key")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                         "80 80",
		"LLM_PROVIDER":                 "gemini",
		"DIARY_MIN_USER_TURNS":         "0",
		"DIARY_CHAT_WINDOW":            "ten",
		"DIARY_TIMEZONE":               "Mars/Olympus",
		"LOG_LEVEL":                    "loud",
		"SURREALDB_AUTH_LEVEL":         "namespace",
		"SURREALDB_RECONNECT_INTERVAL": "soon",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("DIARY_LOCAL_DIR", t.TempDir())
			t.Setenv(key, value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestSetupLoggerWithWritersFansOut(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("entry saved", "id", "abc")
	logger.Debug("hidden")

	assert.Contains(t, stderr.String(), "entry saved")
	assert.NotContains(t, stderr.String(), "hidden")

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(file.Bytes()), &record))
	assert.Equal(t, "entry saved", record["msg"])
	assert.Equal(t, "abc", record["id"])
}
