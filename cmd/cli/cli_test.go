package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kompakt-dev/kompakt/internal/core"
	"github.com/kompakt-dev/kompakt/internal/oplog"
	"github.com/kompakt-dev/kompakt/internal/session"
)

// writeTestConfig drops a minimal config pointing data_dir at a temp
// directory, so commands never touch the real home directory.
func writeTestConfig(t *testing.T, dataDir string) string {
	t.Helper()

	path := filepath.Join(dataDir, "config.toml")
	content := fmt.Sprintf("data_dir = '%s'\n", dataDir)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func runCommand(t *testing.T, args ...string) error {
	t.Helper()

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	return cmd.Execute()
}

func TestCLI_NewCreatesSession(t *testing.T) {
	dataDir := t.TempDir()
	cfgPath := writeTestConfig(t, dataDir)

	require.NoError(t, runCommand(t, "new", "--config", cfgPath))

	entries, err := os.ReadDir(filepath.Join(dataDir, "sessions"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".jsonl"))
}

func TestCLI_OptimizeAppendsLogRecord(t *testing.T) {
	dataDir := t.TempDir()
	cfgPath := writeTestConfig(t, dataDir)

	service := &session.Service{BaseDir: dataDir}
	sessionID, file, err := service.Create()
	require.NoError(t, err)

	for i := 0; i < 24; i++ {
		role := core.RoleUser
		if i%2 == 1 {
			role = core.RoleAssistant
		}
		msg := core.Message{
			Role: role,
			Text: fmt.Sprintf("message %d %s", i, strings.Repeat("pad ", 30)),
		}
		require.NoError(t, file.Append(msg))
	}

	require.NoError(t, runCommand(t,
		"optimize", string(sessionID), "--config", cfgPath, "--estimate", "--budget", "600"))

	reader := oplog.NewWriter(dataDir)
	records, err := reader.Read(sessionID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, sessionID, records[0].SessionID)
	assert.Equal(t, 1, records[0].Turn)
	assert.NotEmpty(t, records[0].Report.RunID)
	assert.Equal(t, 24, records[0].Report.OriginalMessages)

	// A second pass appends rather than overwrites.
	require.NoError(t, runCommand(t,
		"optimize", string(sessionID), "--config", cfgPath, "--estimate", "--budget", "600"))

	records, err = reader.Read(sessionID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, records[1].Turn)
}

func TestCLI_OptimizeTailBudgetLoadsRecentMessagesOnly(t *testing.T) {
	dataDir := t.TempDir()
	cfgPath := writeTestConfig(t, dataDir)

	service := &session.Service{BaseDir: dataDir}
	sessionID, file, err := service.Create()
	require.NoError(t, err)

	for i := 0; i < 24; i++ {
		msg := core.Message{
			Role: core.RoleUser,
			Text: fmt.Sprintf("message %d %s", i, strings.Repeat("pad ", 30)),
		}
		require.NoError(t, file.Append(msg))
	}

	require.NoError(t, runCommand(t,
		"optimize", string(sessionID), "--config", cfgPath, "--estimate", "--tail-budget", "100"))

	records, err := oplog.NewWriter(dataDir).Read(sessionID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Less(t, records[0].Report.OriginalMessages, 24,
		"the tail budget must cut the pre-load before the optimizer runs")
	assert.Positive(t, records[0].Report.OriginalMessages)
}
