// Package telemetry accumulates token usage per pipeline stage and prices it
// against the configured cost tiers.
package telemetry

import (
	"math"

	"github.com/gigpipe/gigpipe/internal/config"
)

type TokenUsage struct {
	InputTokens  int `json:"input"`
	OutputTokens int `json:"output"`
}

func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

func (u *TokenUsage) Add(input, output int) {
	u.InputTokens += input
	u.OutputTokens += output
}

// Cost prices the usage for one tier. Unknown tiers fall back to "medium".
func (u TokenUsage) Cost(tier string, tiers map[string]config.TierRates) float64 {
	rates, ok := tiers[tier]
	if !ok {
		rates = tiers["medium"]
	}
	input := float64(u.InputTokens) / 1_000_000 * rates.InputPer1M
	output := float64(u.OutputTokens) / 1_000_000 * rates.OutputPer1M
	return round6(input + output)
}

// Tracker records usage by stage name plus a running total.
type Tracker struct {
	Stages map[string]*TokenUsage
	Total  TokenUsage
}

func NewTracker() *Tracker {
	return &Tracker{Stages: map[string]*TokenUsage{}}
}

func (t *Tracker) Record(stage string, input, output int) {
	if t == nil {
		return
	}
	usage, ok := t.Stages[stage]
	if !ok {
		usage = &TokenUsage{}
		t.Stages[stage] = usage
	}
	usage.Add(input, output)
	t.Total.Add(input, output)
}

// StageReport is the serializable per-stage summary.
type StageReport struct {
	Input   int     `json:"input"`
	Output  int     `json:"output"`
	Total   int     `json:"total"`
	Tier    string  `json:"tier"`
	CostUSD float64 `json:"cost_usd"`
}

type Report struct {
	ByStage map[string]StageReport `json:"by_stage"`
	Total   struct {
		Input   int     `json:"input"`
		Output  int     `json:"output"`
		Total   int     `json:"total"`
		CostUSD float64 `json:"cost_usd"`
	} `json:"total"`
}

// Summarize prices every stage with its configured tier. stageTiers maps
// stage name to tier; stages missing from the map price as "medium".
func (t *Tracker) Summarize(tiers map[string]config.TierRates, stageTiers map[string]string) Report {
	report := Report{ByStage: map[string]StageReport{}}
	var totalCost float64
	for stage, usage := range t.Stages {
		tier, ok := stageTiers[stage]
		if !ok {
			tier = "medium"
		}
		cost := usage.Cost(tier, tiers)
		totalCost += cost
		report.ByStage[stage] = StageReport{
			Input:   usage.InputTokens,
			Output:  usage.OutputTokens,
			Total:   usage.Total(),
			Tier:    tier,
			CostUSD: cost,
		}
	}
	report.Total.Input = t.Total.InputTokens
	report.Total.Output = t.Total.OutputTokens
	report.Total.Total = t.Total.Total()
	report.Total.CostUSD = round6(totalCost)
	return report
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
