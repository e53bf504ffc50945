package execute

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// timeoutError is the message recorded when a script exceeds the wall
// clock limit.
const timeoutError = "Script execution timed out after 5 minutes"

const defaultScriptTimeout = 5 * time.Minute

// RunResult captures one script invocation.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Runner executes generated Python scripts in a fresh subprocess with the
// job output directory as working directory. Scripts may spawn children,
// so on timeout the whole process group is killed, not just the direct
// child.
type Runner struct {
	Python  string
	Timeout time.Duration
}

func (r *Runner) Run(ctx context.Context, scriptPath, workDir string) (RunResult, error) {
	timeout := r.Timeout
	if timeout == 0 {
		timeout = defaultScriptTimeout
	}
	python := r.Python
	if python == "" {
		python = "python3"
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, python, scriptPath)
	cmd.Dir = workDir
	configureScriptProcess(cmd)
	cmd.Cancel = func() error {
		terminateScriptProcess(cmd)
		return nil
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := RunResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		return result, fmt.Errorf("%s", timeoutError)
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, fmt.Errorf("exit code %d", result.ExitCode)
		}
		result.ExitCode = -1
		return result, fmt.Errorf("run script: %w", err)
	}
	return result, nil
}

// ErrorSummary condenses stderr to its last three lines for reporting.
func ErrorSummary(stderr string) string {
	trimmed := strings.TrimSpace(stderr)
	if trimmed == "" {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return strings.Join(lines, "\n")
}
