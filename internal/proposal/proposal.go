// Package proposal turns a feasible job posting into a client-facing
// proposal. Every field has a job-derived default, so a garbled or failed
// model call still produces something sendable instead of an error.
package proposal

import (
	"context"
	"fmt"
	"strings"

	"github.com/gigpipe/gigpipe/internal/config"
	"github.com/gigpipe/gigpipe/internal/extract"
	"github.com/gigpipe/gigpipe/internal/llm"
	"github.com/gigpipe/gigpipe/internal/posting"
)

type Proposal struct {
	Greeting      string   `json:"greeting"`
	Understanding string   `json:"understanding"`
	Approach      string   `json:"approach"`
	Deliverables  []string `json:"deliverables"`
	Timeline      string   `json:"timeline"`
	Pricing       string   `json:"pricing"`
	NextSteps     string   `json:"next_steps"`
	Error         string   `json:"error,omitempty"`

	Prompt   string `json:"-"`
	Response string `json:"-"`
}

type Generator struct {
	client llm.Client
	ex     *extract.Extractor
	stage  config.StageConfig
}

func New(client llm.Client, repairer extract.Repairer, stage config.StageConfig) *Generator {
	return &Generator{
		client: client,
		ex:     &extract.Extractor{Repairer: repairer},
		stage:  stage,
	}
}

func Schema() extract.Schema {
	return extract.Schema{Fields: []extract.Field{
		{Name: "greeting", Kind: extract.KindString, Default: nil},
		{Name: "understanding", Kind: extract.KindString, Default: nil},
		{Name: "approach", Kind: extract.KindString, Default: nil},
		{Name: "deliverables", Kind: extract.KindStringList, Default: nil},
		{Name: "timeline", Kind: extract.KindString, Default: nil},
		{Name: "pricing", Kind: extract.KindString, Default: nil},
		{Name: "next_steps", Kind: extract.KindString, Default: nil},
	}}
}

// Generate produces one proposal. A failed model call returns the
// all-defaults proposal with the cause in the Error field.
func (g *Generator) Generate(ctx context.Context, job posting.JobRecord) (Proposal, llm.Usage) {
	prompt := BuildPrompt(job)

	req := llm.Prompt("", prompt, g.stage.MaxTokens, g.stage.Temperature)
	req.Model = g.stage.Model
	resp, err := g.client.Chat(ctx, req)
	if err != nil {
		out := Defaults(job)
		out.Error = err.Error()
		out.Prompt = prompt
		return out, llm.Usage{}
	}

	res := g.ex.Extract(ctx, resp.Content, Schema())
	out := merge(Defaults(job), res.Object)
	out.Prompt = prompt
	out.Response = resp.Content
	return out, resp.Usage
}

// BuildPrompt renders the proposal request with "N/A" placeholders for
// missing job fields.
func BuildPrompt(job posting.JobRecord) string {
	summary := fmt.Sprintf(`Job Title: %s
Description: %s
Requirements: %s
Deliverables: %s
Budget: %s
Payment Terms: %s`,
		orNA(job.Title),
		orNA(job.Description),
		orNA(strings.Join(job.Requirements, ", ")),
		orNA(strings.Join(job.Deliverables, ", ")),
		orNA(job.Budget),
		orNA(job.PaymentTerms))

	return fmt.Sprintf(`You are generating a professional client-facing proposal for a freelancing job.

%s

Generate a proposal that:
- Shows understanding of the requirements
- Outlines your approach
- Lists deliverables clearly
- Addresses timeline if mentioned
- Matches pricing to client's budget/payment terms
- Is professional and concise

Return ONLY valid JSON (no markdown, no code fences, no extra text):
{
  "greeting": "Professional greeting addressing the client",
  "understanding": "Brief statement showing you understand the project",
  "approach": "1-2 sentences describing your approach",
  "deliverables": ["list", "of", "specific", "deliverables"],
  "timeline": "Estimated completion time or 'To be discussed'",
  "pricing": "Pricing proposal based on budget/payment terms",
  "next_steps": "What happens next (e.g., 'Ready to start immediately')"
}

CRITICAL: Output ONLY the JSON object. No markdown fences. No newlines inside string values.`, summary)
}

// Defaults is the proposal sent when the model contributes nothing usable.
func Defaults(job posting.JobRecord) Proposal {
	title := job.Title
	if strings.TrimSpace(title) == "" {
		title = "project"
	}
	pricing := job.PaymentTerms
	if strings.TrimSpace(pricing) == "" {
		pricing = job.Budget
	}
	if strings.TrimSpace(pricing) == "" {
		pricing = "To be discussed"
	}
	deliverables := job.Deliverables
	if deliverables == nil {
		deliverables = []string{}
	}
	return Proposal{
		Greeting:      fmt.Sprintf("Hello, I'm interested in your %s.", title),
		Understanding: fmt.Sprintf("I understand you need: %s", orNA(job.Description)),
		Approach:      "I will complete this task using automated tools and deliver high-quality results.",
		Deliverables:  deliverables,
		Timeline:      "To be discussed",
		Pricing:       pricing,
		NextSteps:     "Ready to start immediately",
	}
}

func merge(base Proposal, obj map[string]any) Proposal {
	if v, ok := extract.AsString(obj["greeting"]); ok {
		base.Greeting = v
	}
	if v, ok := extract.AsString(obj["understanding"]); ok {
		base.Understanding = v
	}
	if v, ok := extract.AsString(obj["approach"]); ok {
		base.Approach = v
	}
	if v, ok := extract.AsStringList(obj["deliverables"]); ok && len(v) > 0 {
		base.Deliverables = v
	}
	if v, ok := extract.AsString(obj["timeline"]); ok {
		base.Timeline = v
	}
	if v, ok := extract.AsString(obj["pricing"]); ok {
		base.Pricing = v
	}
	if v, ok := extract.AsString(obj["next_steps"]); ok {
		base.NextSteps = v
	}
	return base
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
