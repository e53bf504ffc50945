// Package assess decides whether a parsed job posting can realistically be
// completed by an automated pipeline. One model call per job; every failure
// path degrades to a conservative not-feasible assessment rather than an
// error, so a bad response never drops a job from the batch record.
package assess

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/gigpipe/gigpipe/internal/config"
	"github.com/gigpipe/gigpipe/internal/extract"
	"github.com/gigpipe/gigpipe/internal/llm"
	"github.com/gigpipe/gigpipe/internal/posting"
)

// maxRisks bounds how many model-reported risks are kept per assessment.
const maxRisks = 3

// Assessment is the normalized verdict for one job. Confidence is always
// within [0, 1]; ParseMode records which extraction strategy produced the
// underlying object so readers can judge how much to trust the numbers.
type Assessment struct {
	IsFeasible     bool     `json:"is_feasible"`
	Confidence     float64  `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
	EstimatedHours *int     `json:"estimated_hours"`
	Risks          []string `json:"risks"`
	ParseMode      string   `json:"parse_mode"`

	Prompt   string `json:"-"`
	Response string `json:"-"`
}

type Assessor struct {
	client llm.Client
	ex     *extract.Extractor
	stage  config.StageConfig
}

func New(client llm.Client, repairer extract.Repairer, stage config.StageConfig) *Assessor {
	return &Assessor{
		client: client,
		ex:     &extract.Extractor{Repairer: repairer},
		stage:  stage,
	}
}

// Schema is the shape the assessor expects back from the model. Confidence
// has no default on purpose: absence is meaningful and normalization fills
// it in depending on how the object was recovered.
func Schema() extract.Schema {
	return extract.Schema{Fields: []extract.Field{
		{Name: "is_feasible", Kind: extract.KindBool, Default: false},
		{Name: "confidence", Kind: extract.KindNumber, Default: nil},
		{Name: "reasoning", Kind: extract.KindString, Default: nil},
		{Name: "estimated_hours", Kind: extract.KindNumber, Default: nil},
		{Name: "risks", Kind: extract.KindStringList, Default: []string{}},
	}}
}

// Assess runs one feasibility check. It never returns an error: a failed
// model call yields the conservative default assessment with the cause in
// the reasoning field.
func (a *Assessor) Assess(ctx context.Context, job posting.JobRecord) (Assessment, llm.Usage) {
	prompt := BuildPrompt(job)

	req := llm.Prompt("", prompt, a.stage.MaxTokens, a.stage.Temperature)
	req.Model = a.stage.Model
	resp, err := a.client.Chat(ctx, req)
	if err != nil {
		return errorAssessment(prompt, err), llm.Usage{}
	}

	res := a.ex.Extract(ctx, resp.Content, Schema())
	out := normalize(res, resp.Content)
	out.Prompt = prompt
	out.Response = resp.Content
	return out, resp.Usage
}

// BuildPrompt renders the assessment request. Missing job fields become
// "N/A" so the prompt shape is stable across jobs.
func BuildPrompt(job posting.JobRecord) string {
	details := fmt.Sprintf(`Title: %s
Status: %s
Budget: %s
Description: %s
Requirements: %s
Deliverables: %s`,
		orNA(job.Title),
		orNA(string(job.Status)),
		orNA(job.Budget),
		orNA(job.Description),
		orNA(strings.Join(job.Requirements, ", ")),
		orNA(strings.Join(job.Deliverables, ", ")))

	return fmt.Sprintf(`Look at this job posting and critically assess whether it's feasible to complete using AI. Be realistic and conservative - many jobs require human judgment, creativity, or physical presence that AI cannot provide.

%s

Think carefully about:
- What specific tasks need to be done?
- Can AI actually perform these tasks autonomously?
- Are there human elements required (judgment, creativity, communication, physical presence)?
- What are the real limitations and barriers?
- Would this require human oversight or intervention?

Be critical: if the job requires human judgment, creativity, communication skills, physical presence, or domain expertise that AI lacks, mark it as NOT feasible.

Provide your assessment as JSON:
%s

IMPORTANT: Your response must be valid JSON only. Rules:
- All string values must be in double quotes
- No newlines or control characters inside string values (use \n for newlines)
- No markdown code blocks
- No text before or after the JSON

Respond with ONLY the JSON object, nothing else.`, details, Schema().Describe())
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

var newlineRun = regexp.MustCompile(`\s*\n\s*`)

// normalize converts the extracted object into a complete Assessment,
// filling gaps conservatively. Confidence defaults depend on provenance:
// a parsed object that simply omitted it gets 0.5, a scraped one gets 0.3
// when feasible and 0.2 when not.
func normalize(res extract.Result, response string) Assessment {
	out := Assessment{ParseMode: string(res.Mode)}

	out.IsFeasible, _ = extract.AsBool(res.Object["is_feasible"])

	if conf, ok := extract.AsNumber(res.Object["confidence"]); ok {
		out.Confidence = clamp01(conf)
	} else if res.Mode == extract.ModeScraped {
		if out.IsFeasible {
			out.Confidence = 0.3
		} else {
			out.Confidence = 0.2
		}
	} else {
		out.Confidence = 0.5
	}

	if reasoning, ok := extract.AsString(res.Object["reasoning"]); ok {
		out.Reasoning = newlineRun.ReplaceAllString(reasoning, " ")
	} else {
		out.Reasoning = "Could not extract reasoning. Response preview: " + preview(response, 500)
	}

	if hours, ok := extract.AsNumber(res.Object["estimated_hours"]); ok && hours > 0 {
		h := int(math.Round(hours))
		out.EstimatedHours = &h
	}

	risks, _ := extract.AsStringList(res.Object["risks"])
	if len(risks) > maxRisks {
		risks = risks[:maxRisks]
	}
	if risks == nil {
		risks = []string{}
	}
	out.Risks = risks

	return out
}

func errorAssessment(prompt string, err error) Assessment {
	return Assessment{
		IsFeasible: false,
		Confidence: 0.2,
		Reasoning:  fmt.Sprintf("Error during assessment: %v", err),
		Risks:      []string{"Assessment error occurred"},
		ParseMode:  "error",
		Prompt:     prompt,
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
