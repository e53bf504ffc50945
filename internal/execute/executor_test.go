package execute

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigpipe/gigpipe/internal/catalog"
	"github.com/gigpipe/gigpipe/internal/config"
	"github.com/gigpipe/gigpipe/internal/llm"
	"github.com/gigpipe/gigpipe/internal/posting"
)

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
}

type scriptedClient struct {
	content string
	err     error
}

func (s *scriptedClient) Chat(context.Context, llm.ChatRequest) (llm.ChatResponse, error) {
	if s.err != nil {
		return llm.ChatResponse{}, s.err
	}
	return llm.ChatResponse{Content: s.content, Usage: llm.Usage{PromptTokens: 500, CompletionTokens: 900}}, nil
}

func executorStage() config.StageConfig {
	return config.StageConfig{Tier: "medium", MaxTokens: 4000, Temperature: 0.3}
}

func TestRunnerCapturesOutputAndExitCode(t *testing.T) {
	t.Parallel()
	requirePython(t)

	dir := t.TempDir()
	script := filepath.Join(dir, "execute.py")
	require.NoError(t, os.WriteFile(script, []byte("import sys\nprint('hello')\nsys.stderr.write('warn\\n')\nsys.exit(3)\n"), 0o755))

	res, err := (&Runner{}).Run(context.Background(), script, dir)
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Stdout, "hello")
	assert.Contains(t, res.Stderr, "warn")
	assert.False(t, res.TimedOut)
}

func TestRunnerTimeoutKillsScript(t *testing.T) {
	t.Parallel()
	requirePython(t)

	dir := t.TempDir()
	script := filepath.Join(dir, "execute.py")
	require.NoError(t, os.WriteFile(script, []byte("import time\ntime.sleep(30)\n"), 0o755))

	start := time.Now()
	res, err := (&Runner{Timeout: 500 * time.Millisecond}).Run(context.Background(), script, dir)
	require.Error(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, timeoutError, err.Error())
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestExecuteRepairsNameErrorAndRetries(t *testing.T) {
	t.Parallel()
	requirePython(t)

	response := "```python\nimport os\nprint(normalize_date('01/02/2024'))\n```"
	e := New(&scriptedClient{content: response}, catalog.New(t.TempDir()), executorStage(), nil)
	jobDir := filepath.Join(t.TempDir(), "execution_date_fix")

	res, usage := e.Execute(context.Background(), posting.JobRecord{Title: "Normalize dates"}, jobDir)

	assert.True(t, res.Success)
	assert.Equal(t, "completed", res.Status)
	assert.Contains(t, res.ExecuteScript, "def normalize_date")
	assert.Equal(t, 900, usage.CompletionTokens)
	assert.Equal(t, 500, res.Telemetry.Tokens.Input)
	assert.Equal(t, 900, res.Telemetry.Tokens.Output)
	assert.Equal(t, 1400, res.Telemetry.Tokens.Total)

	// The repaired script is what landed on disk.
	data, err := os.ReadFile(filepath.Join(jobDir, "execute.py"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "def normalize_date")
}

func TestExecuteUnrepairableFailureReportsStderrTail(t *testing.T) {
	t.Parallel()
	requirePython(t)

	response := "```python\nraise ValueError('input file is empty')\n```"
	e := New(&scriptedClient{content: response}, catalog.New(t.TempDir()), executorStage(), nil)
	jobDir := filepath.Join(t.TempDir(), "execution_bad")

	res, _ := e.Execute(context.Background(), posting.JobRecord{Title: "Broken job"}, jobDir)

	assert.False(t, res.Success)
	assert.Equal(t, "failed", res.Status)
	assert.Contains(t, res.Error, "ValueError: input file is empty")
}

func TestExecuteModelErrorFailsWithoutScript(t *testing.T) {
	t.Parallel()

	e := New(&scriptedClient{err: errors.New("endpoint down")}, catalog.New(t.TempDir()), executorStage(), nil)
	res, usage := e.Execute(context.Background(), posting.JobRecord{Title: "x"}, filepath.Join(t.TempDir(), "j"))

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "endpoint down")
	assert.Empty(t, res.ExecuteScript)
	assert.Zero(t, usage.PromptTokens)
	assert.Zero(t, res.Telemetry.Tokens.Total)
}

func TestExecutePlaceholderScriptStillRuns(t *testing.T) {
	t.Parallel()
	requirePython(t)

	e := New(&scriptedClient{content: "I cannot write code for this."}, catalog.New(t.TempDir()), executorStage(), nil)
	jobDir := filepath.Join(t.TempDir(), "execution_placeholder")

	res, _ := e.Execute(context.Background(), posting.JobRecord{Title: "Odd request", Description: "do something"}, jobDir)

	assert.True(t, res.Success)
	out, err := os.ReadFile(filepath.Join(jobDir, "output", "output.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "Odd request")
}
