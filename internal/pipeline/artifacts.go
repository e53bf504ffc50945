package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gigpipe/gigpipe/internal/execute"
	"github.com/gigpipe/gigpipe/internal/posting"
)

// saveJobArtifacts writes the per-job files beside the execute.py the
// executor already produced: approach.md, notes.md, and metadata.json.
func saveJobArtifacts(jobDir string, job posting.JobRecord, res execute.Result) error {
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return fmt.Errorf("create job dir: %w", err)
	}

	if res.Approach != "" {
		content := fmt.Sprintf("# Approach\n\n%s\n", res.Approach)
		if err := os.WriteFile(filepath.Join(jobDir, "approach.md"), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write approach.md: %w", err)
		}
	}
	if res.Notes != "" {
		content := fmt.Sprintf("# Notes\n\n%s\n", res.Notes)
		if err := os.WriteFile(filepath.Join(jobDir, "notes.md"), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write notes.md: %w", err)
		}
	}

	deliverables := res.Deliverables
	if deliverables == nil {
		deliverables = []execute.Deliverable{}
	}
	criteria := res.SuccessCriteria
	if criteria == nil {
		criteria = []execute.Criterion{}
	}
	metadata := struct {
		JobTitle        string                `json:"job_title"`
		Status          string                `json:"status"`
		Success         bool                  `json:"success"`
		Deliverables    []execute.Deliverable `json:"deliverables"`
		SuccessCriteria []execute.Criterion   `json:"success_criteria"`
	}{
		JobTitle:        job.Title,
		Status:          res.Status,
		Success:         res.Success,
		Deliverables:    deliverables,
		SuccessCriteria: criteria,
	}
	return writeJSON(filepath.Join(jobDir, "metadata.json"), metadata)
}

// stageEntry is one job's record in a batch artifact file, including the
// raw prompt and response for auditability.
type stageEntry struct {
	JobTitle string `json:"job_title"`
	JobID    int    `json:"job_id"`
	Prompt   string `json:"prompt,omitempty"`
	Response string `json:"response,omitempty"`
	Parsed   any    `json:"parsed_result"`
}

// saveBatchArtifacts writes the run-level timestamped files:
// assessments_<ts>.json, proposals_<ts>.json, executions_<ts>.json, and
// run_summary_<ts>.json with telemetry.
func saveBatchArtifacts(baseDir, stamp string, result RunResult) error {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var assessments, proposals, executions []stageEntry
	for i, outcome := range result.Outcomes {
		id := i + 1
		if a := outcome.Assessment; a != nil {
			assessments = append(assessments, stageEntry{
				JobTitle: outcome.Job.Title, JobID: id,
				Prompt: a.Prompt, Response: a.Response, Parsed: a,
			})
		}
		if pr := outcome.Proposal; pr != nil {
			proposals = append(proposals, stageEntry{
				JobTitle: outcome.Job.Title, JobID: id,
				Prompt: pr.Prompt, Response: pr.Response, Parsed: pr,
			})
		}
		if ex := outcome.Execution; ex != nil {
			executions = append(executions, stageEntry{
				JobTitle: outcome.Job.Title, JobID: id,
				Prompt: ex.Prompt, Response: ex.Response, Parsed: ex,
			})
		}
	}

	files := []struct {
		name     string
		countKey string
		key      string
		entries  []stageEntry
	}{
		{fmt.Sprintf("assessments_%s.json", stamp), "total_jobs", "assessments", assessments},
		{fmt.Sprintf("proposals_%s.json", stamp), "total_proposals", "proposals", proposals},
		{fmt.Sprintf("executions_%s.json", stamp), "total_executions", "executions", executions},
	}
	for _, f := range files {
		if len(f.entries) == 0 {
			continue
		}
		payload := map[string]any{
			"timestamp": time.Now().Format(time.RFC3339),
			f.countKey:  len(f.entries),
			f.key:       f.entries,
		}
		if err := writeJSON(filepath.Join(baseDir, f.name), payload); err != nil {
			return err
		}
	}

	return writeJSON(filepath.Join(baseDir, fmt.Sprintf("run_summary_%s.json", stamp)), result)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
