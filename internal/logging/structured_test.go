package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	Enable(true)
	t.Cleanup(func() {
		Enable(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestLoggerEmitsJSON(t *testing.T) {
	buf := capture(t)

	New("api").WithUser("drjones").Error("send_failed", map[string]any{"path": "/chat/"}, errors.New("boom"))

	var e Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &e))
	assert.Equal(t, LevelError, e.Level)
	assert.Equal(t, "api", e.Component)
	assert.Equal(t, "send_failed", e.Event)
	assert.Equal(t, "drjones", e.User)
	assert.Equal(t, "boom", e.Error)
	assert.Equal(t, "/chat/", e.Extra["path"])
}

func TestLoggerDisabledByDefault(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	Enable(false)

	New("api").Info("noop", nil)

	assert.Zero(t, buf.Len())
}

func TestRequestIncludesDuration(t *testing.T) {
	buf := capture(t)

	New("api").Request("chat_send", "req-123", time.Now().Add(-50*time.Millisecond), nil)

	var e Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &e))
	assert.Equal(t, "req-123", e.RequestID)
	assert.GreaterOrEqual(t, e.Duration, int64(50))
	assert.Equal(t, LevelInfo, e.Level)
}
