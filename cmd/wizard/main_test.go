package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runScript(t *testing.T, cli CLI, script ...string) string {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(script, "\n") + "\n")
	require.NoError(t, run(context.Background(), cli, in, &out, io.Discard))
	return out.String()
}

func TestOfflinePutaway(t *testing.T) {
	out := runScript(t, CLI{Offline: true, Task: "t-1", Action: "a-1"},
		"4600000000011",
		"qty 4",
		"DMG",
		"PAL-003",
		"PAL-001",
		"submit",
	)

	assert.Contains(t, out, "[1/4] Scan item>")
	assert.Contains(t, out, "container PAL-003 is not in zone A")
	assert.Contains(t, out, "all steps done")
	assert.Contains(t, out, "action a-1 done")
	assert.Contains(t, out, "submitted")
}

func TestOfflineBackAndCancel(t *testing.T) {
	out := runScript(t, CLI{Offline: true, Task: "t-1", Action: "a-1"},
		"4600000000011",
		"back",
		"back",
		"cancel",
	)
	assert.Contains(t, out, "already at the first step")
	assert.Contains(t, out, "cancelled")
	assert.NotContains(t, out, "submitted")
}

func TestOfflineSearchAndPick(t *testing.T) {
	out := runScript(t, CLI{Offline: true, Task: "t-1", Action: "a-1"},
		"search milk",
		"pick 1",
		"state",
	)
	assert.Contains(t, out, "1) 4600000000028 Milk 1L")
	assert.Contains(t, out, "[2/4] Quantity>")
}

func TestUnknownActionFails(t *testing.T) {
	err := run(context.Background(), CLI{Offline: true, Task: "t-1", Action: "nope"},
		strings.NewReader(""), io.Discard, io.Discard)
	require.Error(t, err)
	assert.True(t, wizard.IsNotFound(err))
}

func TestRequiresServerOrOffline(t *testing.T) {
	err := run(context.Background(), CLI{Task: "t-1", Action: "a-1"},
		strings.NewReader(""), io.Discard, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--offline")
}

func TestSettingsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wizard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  base_url: http://a.test\nlog:\n  level: warn\n"), 0o600))

	cfg, err := CLI{Config: path, Server: "http://b.test", LogLevel: "debug", Metrics: true}.settings()
	require.NoError(t, err)
	assert.Equal(t, "http://b.test", cfg.Server.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)

	_, err = CLI{LogLevel: "shout"}.settings()
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "PAL-001 zone A", describe(wizard.Container{Code: "PAL-001", Zone: "zone A"}))
	assert.Equal(t, "42", describe(42))
}

func TestLoggerFormatsMessages(t *testing.T) {
	for _, f := range []string{"json", "console"} {
		var buf bytes.Buffer
		logger := newLogger(&buf, "debug", f)
		logger.Info("wizard started with %d steps", 3)
		logger.Warn("plain message")

		out := buf.String()
		assert.Contains(t, out, "wizard started with 3 steps", f)
		assert.Contains(t, out, "plain message", f)
		assert.NotContains(t, out, "%d", f)
		assert.NotContains(t, out, "BADKEY", f)
	}
}
