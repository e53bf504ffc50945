// Package execute turns an accepted job into a runnable Python script and
// runs it. The model call synthesizes the script; deterministic repair
// passes (paths, imports) make it executable; a single repair-and-retry
// round handles undefined-name failures at run time.
package execute

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gigpipe/gigpipe/internal/catalog"
	"github.com/gigpipe/gigpipe/internal/config"
	"github.com/gigpipe/gigpipe/internal/llm"
	"github.com/gigpipe/gigpipe/internal/posting"
	"github.com/gigpipe/gigpipe/internal/retry"
)

// Telemetry is the per-execution token ledger embedded in the result
// record. Costs are priced at run level by tier, so only counts live here.
type Telemetry struct {
	Tokens TokenCounts `json:"tokens"`
}

type TokenCounts struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// Result records one execution attempt end to end.
type Result struct {
	StartedAt       time.Time     `json:"started_at"`
	CompletedAt     time.Time     `json:"completed_at"`
	WallTimeSeconds float64       `json:"wall_time_seconds"`
	Success         bool          `json:"success"`
	Error           string        `json:"error,omitempty"`
	Status          string        `json:"status"`
	ExecuteScript   string        `json:"execute_script"`
	Approach        string        `json:"approach"`
	Deliverables    []Deliverable `json:"deliverables"`
	SuccessCriteria []Criterion   `json:"success_criteria"`
	Notes           string        `json:"notes"`
	Telemetry       Telemetry     `json:"telemetry"`

	Prompt   string `json:"-"`
	Response string `json:"-"`
}

type Executor struct {
	client    llm.Client
	catalog   *catalog.Catalog
	stage     config.StageConfig
	installer *Installer
	runner    *Runner
	logger    *log.Logger
}

func New(client llm.Client, cat *catalog.Catalog, stage config.StageConfig, logger *log.Logger) *Executor {
	return &Executor{
		client:    client,
		catalog:   cat,
		stage:     stage,
		installer: NewInstaller("", logger),
		runner:    &Runner{},
		logger:    logger,
	}
}

// Execute synthesizes, prepares, and runs the script for one job inside
// jobDir. It never returns an error: failures are recorded in the Result
// so one broken job cannot abort a batch.
func (e *Executor) Execute(ctx context.Context, job posting.JobRecord, jobDir string) (Result, llm.Usage) {
	started := time.Now()

	folder, hasInputs := e.catalog.FindInputFolder(job)
	var files map[string]string
	var spec catalog.TaskSpec
	if hasInputs {
		files, spec = e.catalog.LoadFiles(folder)
	}

	prompt := BuildPrompt(job, files, spec)
	req := llm.Prompt("", prompt, e.stage.MaxTokens, e.stage.Temperature)
	req.Model = e.stage.Model
	resp, err := e.client.Chat(ctx, req)
	if err != nil {
		return failedResult(started, prompt, fmt.Sprintf("script synthesis failed: %v", err)), llm.Usage{}
	}

	syn := ParseSynthesis(resp.Content, job.Title, job.Description)

	script := syn.Script
	if hasInputs {
		script = FixPaths(script, e.catalog.RelativeTo(folder, jobDir))
	}
	script = RepairImports(script)

	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		res := failedResult(started, prompt, fmt.Sprintf("create job dir: %v", err))
		res.Response = resp.Content
		res.Telemetry = usageTelemetry(resp.Usage)
		return res, resp.Usage
	}
	scriptPath := filepath.Join(jobDir, "execute.py")
	if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
		res := failedResult(started, prompt, fmt.Sprintf("write script: %v", err))
		res.Response = resp.Content
		res.Telemetry = usageTelemetry(resp.Usage)
		return res, resp.Usage
	}

	e.installer.Install(ctx, script)

	var last RunResult
	runOnce := func(ctx context.Context) (RunResult, error) {
		res, err := e.runner.Run(ctx, scriptPath, jobDir)
		last = res
		return res, err
	}
	repairOnce := func(ctx context.Context, cause error) error {
		if last.TimedOut || !Repairable(last.Stderr) {
			return fmt.Errorf("failure not repairable: %w", cause)
		}
		repaired := RepairNameError(script, last.Stderr)
		repaired = RepairRegexError(repaired, last.Stderr)
		repaired = RepairImports(repaired)
		if repaired == script {
			return fmt.Errorf("no repair applicable: %w", cause)
		}
		if e.logger != nil {
			e.logger.Printf("repairing script and retrying: %s", job.Title)
		}
		script = repaired
		if err := os.WriteFile(scriptPath, []byte(script), 0o755); err != nil {
			return fmt.Errorf("write repaired script: %w", err)
		}
		e.installer.Install(ctx, script)
		return nil
	}

	_, _, runErr := retry.WithOneRepair(ctx, runOnce, repairOnce)

	completed := time.Now()
	result := Result{
		StartedAt:       started,
		CompletedAt:     completed,
		WallTimeSeconds: completed.Sub(started).Seconds(),
		Success:         runErr == nil,
		Status:          "completed",
		ExecuteScript:   script,
		Approach:        syn.Approach,
		Deliverables:    syn.Deliverables,
		SuccessCriteria: syn.SuccessCriteria,
		Notes:           syn.Notes,
		Telemetry:       usageTelemetry(resp.Usage),
		Prompt:          prompt,
		Response:        resp.Content,
	}
	if runErr != nil {
		result.Status = "failed"
		result.Error = runFailure(last, runErr)
	}
	return result, resp.Usage
}

func usageTelemetry(u llm.Usage) Telemetry {
	var t Telemetry
	t.Tokens.Input = u.PromptTokens
	t.Tokens.Output = u.CompletionTokens
	t.Tokens.Total = u.PromptTokens + u.CompletionTokens
	return t
}

// runFailure picks the most useful error text: the timeout message, the
// stderr tail, or the bare exit error.
func runFailure(last RunResult, runErr error) string {
	if last.TimedOut {
		return timeoutError
	}
	if summary := ErrorSummary(last.Stderr); summary != "" {
		return summary
	}
	return runErr.Error()
}

func failedResult(started time.Time, prompt, errMsg string) Result {
	completed := time.Now()
	return Result{
		StartedAt:       started,
		CompletedAt:     completed,
		WallTimeSeconds: completed.Sub(started).Seconds(),
		Success:         false,
		Error:           errMsg,
		Status:          "failed",
		Deliverables:    []Deliverable{},
		SuccessCriteria: []Criterion{},
		Prompt:          prompt,
	}
}
