package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gigpipe/gigpipe/internal/config"
)

func testTiers() map[string]config.TierRates {
	return map[string]config.TierRates{
		"cheap":     {InputPer1M: 0.10, OutputPer1M: 0.10},
		"medium":    {InputPer1M: 0.50, OutputPer1M: 0.50},
		"expensive": {InputPer1M: 3.00, OutputPer1M: 15.00},
	}
}

func TestTrackerAccumulatesByStageAndTotal(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	tracker.Record("assessor", 1000, 500)
	tracker.Record("assessor", 200, 100)
	tracker.Record("executor", 4000, 2000)

	assert.Equal(t, 1200, tracker.Stages["assessor"].InputTokens)
	assert.Equal(t, 600, tracker.Stages["assessor"].OutputTokens)
	assert.Equal(t, 7800, tracker.Total.Total())
}

func TestCostUsesTierRatesAndFallsBackToMedium(t *testing.T) {
	t.Parallel()

	usage := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 18.0, usage.Cost("expensive", testTiers()), 1e-9)
	assert.InDelta(t, 1.0, usage.Cost("no-such-tier", testTiers()), 1e-9)
}

func TestSummarizePricesEachStageWithItsTier(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	tracker.Record("parser", 1_000_000, 0)
	tracker.Record("executor", 1_000_000, 0)

	report := tracker.Summarize(testTiers(), map[string]string{
		"parser":   "cheap",
		"executor": "expensive",
	})

	assert.InDelta(t, 0.1, report.ByStage["parser"].CostUSD, 1e-9)
	assert.InDelta(t, 3.0, report.ByStage["executor"].CostUSD, 1e-9)
	assert.InDelta(t, 3.1, report.Total.CostUSD, 1e-9)
	assert.Equal(t, 2_000_000, report.Total.Total)
}
