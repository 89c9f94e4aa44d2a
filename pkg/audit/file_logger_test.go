package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLogger_WritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLogger(FileLoggerConfig{BasePath: dir})
	require.NoError(t, err)
	defer logger.Close()

	logger.Log(NewEvent(EventTypeUserAdded, StatusSuccess).
		WithActor("29:abc", "Root Admin").
		WithTarget("29:u1").
		WithDetail("role", "user"))
	logger.Log(NewEvent(EventTypeAuthDenied, StatusDenied).
		WithActor("29:intruder", "Mallory").
		WithDetail("reason", "unauthorized"))
	require.NoError(t, logger.Close())

	f, err := os.Open(filepath.Join(dir, "audit.log"))
	require.NoError(t, err)
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, events, 2)
	assert.Equal(t, EventTypeUserAdded, events[0].Type)
	assert.Equal(t, "29:abc", events[0].ActorID)
	assert.Equal(t, "29:u1", events[0].TargetID)
	assert.Equal(t, "user", events[0].Details["role"])
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())

	assert.Equal(t, EventTypeAuthDenied, events[1].Type)
	assert.Equal(t, StatusDenied, events[1].Status)
}

func TestFileLogger_RotatesBySize(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLogger(FileLoggerConfig{BasePath: dir, MaxSize: 256, MaxFiles: 2})
	require.NoError(t, err)
	defer logger.Close()

	for i := 0; i < 20; i++ {
		logger.Log(NewEvent(EventTypeAuthGranted, StatusSuccess).
			WithActor("29:u1", "Alice with a fairly long display name").
			WithDetail("padding", "some detail text to push the file over the rotation threshold"))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	rotated := 0
	current := false
	for _, e := range entries {
		if e.Name() == "audit.log" {
			current = true
		} else {
			rotated++
		}
	}
	assert.True(t, current, "active audit.log must exist after rotation")
	assert.GreaterOrEqual(t, rotated, 1, "expected at least one rotated file")
}

func TestFileLogger_CloseIsIdempotent(t *testing.T) {
	logger, err := NewFileLogger(FileLoggerConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.Log(NewEvent(EventTypeUserAdded, StatusSuccess))
	assert.NoError(t, l.Close())
}

func TestEventBuilders(t *testing.T) {
	e := NewEvent(EventTypeUserRoleChanged, StatusSuccess).
		WithActor("29:abc", "Root Admin").
		WithTarget("29:u1").
		WithDetail("old_role", "guest").
		WithDetail("new_role", "user")

	assert.Equal(t, EventTypeUserRoleChanged, e.Type)
	assert.Equal(t, StatusSuccess, e.Status)
	assert.Equal(t, "29:abc", e.ActorID)
	assert.Equal(t, "Root Admin", e.ActorName)
	assert.Equal(t, "29:u1", e.TargetID)
	assert.Equal(t, "guest", e.Details["old_role"])
	assert.Equal(t, "user", e.Details["new_role"])
	assert.NotEmpty(t, e.ID)
}
