package proposal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gigpipe/gigpipe/internal/config"
	"github.com/gigpipe/gigpipe/internal/llm"
	"github.com/gigpipe/gigpipe/internal/posting"
)

type scriptedClient struct {
	content string
	err     error
}

func (s *scriptedClient) Chat(context.Context, llm.ChatRequest) (llm.ChatResponse, error) {
	if s.err != nil {
		return llm.ChatResponse{}, s.err
	}
	return llm.ChatResponse{Content: s.content, Usage: llm.Usage{PromptTokens: 80, CompletionTokens: 40}}, nil
}

func sampleJob() posting.JobRecord {
	return posting.JobRecord{
		Title:        "Clean vendor spreadsheet",
		Status:       posting.StatusOpen,
		Budget:       "$30 USD",
		PaymentTerms: "Paid on delivery",
		Description:  "Deduplicate and normalize a vendor contact list.",
		Deliverables: []string{"Cleaned spreadsheet"},
	}
}

func stage() config.StageConfig {
	return config.StageConfig{Tier: "medium", MaxTokens: 500, Temperature: 0.7}
}

func TestGenerateMergesModelFieldsOverDefaults(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{content: `{
		"greeting": "Dear client,",
		"approach": "I will script the cleanup with pandas.",
		"deliverables": ["deduplicated CSV", "summary report"],
		"timeline": "2 days"
	}`}
	g := New(client, nil, stage())

	got, usage := g.Generate(context.Background(), sampleJob())

	assert.Equal(t, "Dear client,", got.Greeting)
	assert.Equal(t, "I will script the cleanup with pandas.", got.Approach)
	assert.Equal(t, []string{"deduplicated CSV", "summary report"}, got.Deliverables)
	assert.Equal(t, "2 days", got.Timeline)
	// Omitted fields keep their job-derived defaults.
	assert.Contains(t, got.Understanding, "Deduplicate and normalize")
	assert.Equal(t, "Paid on delivery", got.Pricing)
	assert.Equal(t, "Ready to start immediately", got.NextSteps)
	assert.Empty(t, got.Error)
	assert.Equal(t, 80, usage.PromptTokens)
}

func TestGenerateClientErrorReturnsDefaultsWithError(t *testing.T) {
	t.Parallel()

	g := New(&scriptedClient{err: errors.New("timeout")}, nil, stage())
	got, usage := g.Generate(context.Background(), sampleJob())

	assert.Equal(t, "Hello, I'm interested in your Clean vendor spreadsheet.", got.Greeting)
	assert.Equal(t, []string{"Cleaned spreadsheet"}, got.Deliverables)
	assert.Equal(t, "timeout", got.Error)
	assert.Zero(t, usage.CompletionTokens)
}

func TestGenerateGarbledResponseKeepsDefaults(t *testing.T) {
	t.Parallel()

	g := New(&scriptedClient{content: "I would be happy to help with this project!"}, nil, stage())
	got, _ := g.Generate(context.Background(), sampleJob())

	assert.Equal(t, "Hello, I'm interested in your Clean vendor spreadsheet.", got.Greeting)
	assert.Equal(t, "To be discussed", got.Timeline)
	assert.Empty(t, got.Error)
}

func TestDefaultsFallbackChain(t *testing.T) {
	t.Parallel()

	t.Run("budget backfills missing payment terms", func(t *testing.T) {
		t.Parallel()
		p := Defaults(posting.JobRecord{Title: "x", Budget: "$10"})
		assert.Equal(t, "$10", p.Pricing)
	})

	t.Run("empty job", func(t *testing.T) {
		t.Parallel()
		p := Defaults(posting.JobRecord{})
		assert.Equal(t, "Hello, I'm interested in your project.", p.Greeting)
		assert.Equal(t, "I understand you need: N/A", p.Understanding)
		assert.Equal(t, "To be discussed", p.Pricing)
		assert.NotNil(t, p.Deliverables)
	})
}

func TestBuildPromptIncludesJobSummary(t *testing.T) {
	t.Parallel()

	p := BuildPrompt(sampleJob())
	assert.Contains(t, p, "Job Title: Clean vendor spreadsheet")
	assert.Contains(t, p, "Budget: $30 USD")
	assert.Contains(t, p, "Payment Terms: Paid on delivery")
	assert.Contains(t, p, `"next_steps"`)
}
