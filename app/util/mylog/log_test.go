package mylog

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"govassist/app/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandlerJSONLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	handler, err := NewHandler(cfg, &buf)
	require.NoError(t, err)

	logger := slog.New(handler)
	logger.Info("dropped")
	logger.Warn("kept", "session", "abc")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"kept"`)
	assert.Contains(t, out, `"session":"abc"`)
}

func TestNewHandlerBadLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"

	_, err := NewHandler(cfg, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestHasTelegramAttr(t *testing.T) {
	record := func(attrs ...any) slog.Record {
		r := slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0)
		r.Add(attrs...)
		return r
	}

	assert.True(t, hasTelegramAttr(record(TelegramKey, true)))
	assert.False(t, hasTelegramAttr(record(TelegramKey, false)))
	assert.False(t, hasTelegramAttr(record("other", 1)))
}
