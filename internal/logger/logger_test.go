package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymize(t *testing.T) {
	in := "mail john.doe@example.com token eyJhbGciOi.payload user_id=42"
	out := Anonymize(in)

	assert.NotContains(t, out, "john.doe@example.com")
	assert.NotContains(t, out, "eyJhbGciOi")
	assert.Contains(t, out, "[REDACTED_EMAIL]")
	assert.Contains(t, out, "[REDACTED_TOKEN]")
	assert.Contains(t, out, "user_id=[USER_ID]")

	out = Anonymize("Tweet created by user_id=0f8fad5b-d9cb-469f-a165-70867728950e")
	assert.Equal(t, "Tweet created by user_id=[USER_ID]", out)
}

func TestLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Configure("debug", &buf)
	t.Cleanup(func() { Configure("info", os.Stdout) })

	l := New()
	l.Error("store", "query failed for bob@example.com", errors.New("timeout"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "store", entry["module"])
	assert.Equal(t, "timeout", entry["error"])
	assert.Equal(t, "query failed for [REDACTED_EMAIL]", entry["message"])
	assert.NotEmpty(t, entry["time"])
}

func TestConfigure_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure("warn", &buf)
	t.Cleanup(func() { Configure("info", os.Stdout) })

	l := New()
	l.Info("server", "hidden")
	l.Debug("server", "hidden")
	l.Warn("server", "shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "shown")
}
