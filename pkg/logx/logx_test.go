package logx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerCapturesEntriesInBuffer(t *testing.T) {
	logger := NewLogger("test-agent")
	logger.Info("hello %s", "world")

	entries := GetRecentLogEntries("test-agent", time.Time{})
	require.NotEmpty(t, entries)

	last := entries[len(entries)-1]
	assert.Equal(t, "test-agent", last.Name)
	assert.Equal(t, "INFO", last.Level)
	assert.Equal(t, "hello world", last.Message)
}

func TestDebugSuppressedWhenDisabled(t *testing.T) {
	SetDebug(false)
	defer SetDebug(false)

	logger := NewLogger("debug-check")
	logger.Debug("should not appear")
	assert.Empty(t, GetRecentLogEntries("debug-check", time.Time{}))

	SetDebug(true)
	logger.Debug("should appear")
	entries := GetRecentLogEntries("debug-check", time.Time{})
	require.Len(t, entries, 1)
	assert.Equal(t, "DEBUG", entries[0].Level)
}

func TestBufferFilterByName(t *testing.T) {
	NewLogger("alpha").Info("one")
	NewLogger("beta").Info("two")

	entries := GetRecentLogEntries("alpha", time.Time{})
	for _, e := range entries {
		assert.Equal(t, "alpha", e.Name)
	}
}

func TestBufferEviction(t *testing.T) {
	buf := &InMemoryLogBuffer{maxSize: 3}
	for i := 0; i < 5; i++ {
		buf.AddLogEntry(&LogEntry{Name: "evict", Message: string(rune('a' + i))})
	}

	entries := buf.GetLogEntries("evict", time.Time{})
	require.Len(t, entries, 3)
	assert.Equal(t, "c", entries[0].Message)
	assert.Equal(t, "e", entries[2].Message)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "context"))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := Errorf("base failure")
	wrapped := Wrap(cause, "loading config")
	require.Error(t, wrapped)
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "loading config")
}
