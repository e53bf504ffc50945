// Package pipeline wires the stages together: parse postings, assess
// feasibility, generate proposals for accepted jobs, and execute the
// highest-confidence ones. Stages run sequentially over the whole batch;
// a failure on one job is recorded on that job and the batch continues.
package pipeline

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/gigpipe/gigpipe/internal/assess"
	"github.com/gigpipe/gigpipe/internal/catalog"
	"github.com/gigpipe/gigpipe/internal/config"
	"github.com/gigpipe/gigpipe/internal/execute"
	"github.com/gigpipe/gigpipe/internal/llm"
	"github.com/gigpipe/gigpipe/internal/posting"
	"github.com/gigpipe/gigpipe/internal/proposal"
	"github.com/gigpipe/gigpipe/internal/session"
	"github.com/gigpipe/gigpipe/internal/telemetry"
)

const (
	stageAssessor = "assessor"
	stageProposer = "proposer"
	stageExecutor = "executor"
)

// proposalMaxTokens caps proposal generation; proposals are short
// client-facing text and share the assessor's model settings otherwise.
const proposalMaxTokens = 500

// JobOutcome is one job carried through the pipeline with whatever
// enrichments its journey produced. Each stage attaches its output at
// most once.
type JobOutcome struct {
	Job        posting.JobRecord  `json:"job"`
	Assessment *assess.Assessment `json:"feasibility,omitempty"`
	Proposal   *proposal.Proposal `json:"proposal,omitempty"`
	Execution  *execute.Result    `json:"execution,omitempty"`
}

// RunResult summarizes one pipeline run over a document.
type RunResult struct {
	RunID           string           `json:"run_id"`
	StartedAt       time.Time        `json:"started_at"`
	CompletedAt     time.Time        `json:"completed_at"`
	WallTimeSeconds float64          `json:"wall_time_seconds"`
	TotalJobs       int              `json:"total_jobs"`
	FeasibleJobs    int              `json:"feasible_jobs"`
	ExecutedJobs    int              `json:"executed_jobs"`
	Outcomes        []JobOutcome     `json:"outcomes"`
	Telemetry       telemetry.Report `json:"telemetry"`
}

type Pipeline struct {
	cfg       config.Config
	client    llm.Client
	tracker   *telemetry.Tracker
	assessor  *assess.Assessor
	proposals *proposal.Generator
	executor  *execute.Executor
	logger    *log.Logger
	runID     string
	now       func() time.Time
}

// New builds a fully wired pipeline. inputDir is the catalog base holding
// per-job input folders; it may be empty when no inputs are provided.
func New(cfg config.Config, client llm.Client, inputDir string, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	tracker := telemetry.NewTracker()
	cat := catalog.New(inputDir)

	assessRepair := &jsonRepairer{client: client, stage: cfg.Stages.Assessor, tracker: tracker, bill: stageAssessor}

	proposalStage := cfg.Stages.Assessor
	proposalStage.MaxTokens = proposalMaxTokens
	proposalRepair := &jsonRepairer{client: client, stage: proposalStage, tracker: tracker, bill: stageProposer}

	return &Pipeline{
		cfg:       cfg,
		client:    client,
		tracker:   tracker,
		assessor:  assess.New(client, assessRepair, cfg.Stages.Assessor),
		proposals: proposal.New(client, proposalRepair, proposalStage),
		executor:  execute.New(client, cat, cfg.Stages.Executor, logger),
		logger:    logger,
		runID:     session.NewID(),
		now:       time.Now,
	}
}

// RunID identifies this pipeline instance's artifacts.
func (p *Pipeline) RunID() string { return p.runID }

// Run drives a parsed document through all stages and writes artifacts
// under the configured output directory.
func (p *Pipeline) Run(ctx context.Context, doc posting.Document) (RunResult, error) {
	started := p.now()
	p.logger.Printf("run %s: %d job(s) parsed from %s", p.runID, len(doc.Jobs), doc.Metadata.SourceFile)

	outcomes := make([]JobOutcome, len(doc.Jobs))
	for i, job := range doc.Jobs {
		outcomes[i] = JobOutcome{Job: job}
	}

	// Stage: assess every job.
	for i := range outcomes {
		job := outcomes[i].Job
		p.logger.Printf("assessing %d/%d: %s", i+1, len(outcomes), truncate(job.Title, 50))
		a, usage := p.assessor.Assess(ctx, job)
		p.tracker.Record(stageAssessor, usage.PromptTokens, usage.CompletionTokens)
		outcomes[i].Assessment = &a
		p.logger.Printf("  feasible=%t confidence=%.2f (%s)", a.IsFeasible, a.Confidence, a.ParseMode)
	}

	// Stage: proposals for accepted jobs. The confidence boundary is
	// inclusive: a job exactly at the threshold proceeds.
	feasible := 0
	for i := range outcomes {
		a := outcomes[i].Assessment
		if !a.IsFeasible || a.Confidence < p.cfg.Thresholds.MinConfidence {
			continue
		}
		feasible++
		p.logger.Printf("generating proposal: %s", truncate(outcomes[i].Job.Title, 50))
		prop, usage := p.proposals.Generate(ctx, outcomes[i].Job)
		p.tracker.Record(stageProposer, usage.PromptTokens, usage.CompletionTokens)
		outcomes[i].Proposal = &prop
	}

	// Stage: execute jobs that cleared the higher execution bar.
	executed := 0
	for i := range outcomes {
		a := outcomes[i].Assessment
		if outcomes[i].Proposal == nil || !a.IsFeasible || a.Confidence < p.cfg.Thresholds.ExecConfidence {
			continue
		}
		executed++
		job := outcomes[i].Job
		p.logger.Printf("executing: %s", truncate(job.Title, 50))
		jobDir := filepath.Join(p.cfg.Output.BaseDir, "execution_"+session.SanitizeTitle(job.Title))
		res, usage := p.executor.Execute(ctx, job, jobDir)
		p.tracker.Record(stageExecutor, usage.PromptTokens, usage.CompletionTokens)
		outcomes[i].Execution = &res
		if saveErr := saveJobArtifacts(jobDir, job, res); saveErr != nil {
			p.logger.Printf("  saving artifacts failed: %v", saveErr)
		}
		p.logger.Printf("  execution %s", res.Status)
	}

	completed := p.now()
	result := RunResult{
		RunID:           p.runID,
		StartedAt:       started,
		CompletedAt:     completed,
		WallTimeSeconds: completed.Sub(started).Seconds(),
		TotalJobs:       len(outcomes),
		FeasibleJobs:    feasible,
		ExecutedJobs:    executed,
		Outcomes:        outcomes,
		Telemetry:       p.tracker.Summarize(p.cfg.CostTiers, p.stageTiers()),
	}

	if p.cfg.Output.SaveIntermediate {
		if err := saveBatchArtifacts(p.cfg.Output.BaseDir, session.Stamp(completed), result); err != nil {
			return result, err
		}
	}

	p.logger.Printf("run %s complete: %d assessed, %d feasible, %d executed, %d tokens ($%.4f)",
		p.runID, result.TotalJobs, result.FeasibleJobs, result.ExecutedJobs,
		result.Telemetry.Total.Total, result.Telemetry.Total.CostUSD)
	return result, nil
}

func (p *Pipeline) stageTiers() map[string]string {
	return map[string]string{
		stageAssessor: p.cfg.Stages.Assessor.Tier,
		stageProposer: p.cfg.Stages.Assessor.Tier,
		stageExecutor: p.cfg.Stages.Executor.Tier,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
