package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoEmbedded(t *testing.T) {
	out, err := executeCommand(t, "demo")
	require.NoError(t, err)

	assert.Contains(t, out, "[demo-actor] create engagement: ok")
	assert.Contains(t, out, "[demo-owner] approve engagement: ok")
	assert.Contains(t, out, "[demo-owner] complete engagement: ok")
	assert.Contains(t, out, "create on closed subject: CONFLICT")
	assert.Contains(t, out, "read feed: ok")
}

func TestDemoJSON(t *testing.T) {
	out, err := executeCommand(t, "--format", "json", "demo")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "demo-swap", data["subject"])

	steps, ok := data["steps"].([]any)
	require.True(t, ok)
	require.Len(t, steps, 5)

	first, ok := steps[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "create engagement", first["step"])
	assert.Equal(t, "ok", first["outcome"])
}

func TestDemoUnreachableRemote(t *testing.T) {
	_, err := executeCommand(t, "demo", "--url", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
