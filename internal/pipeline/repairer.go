package pipeline

import (
	"context"
	"fmt"

	"github.com/gigpipe/gigpipe/internal/config"
	"github.com/gigpipe/gigpipe/internal/extract"
	"github.com/gigpipe/gigpipe/internal/llm"
	"github.com/gigpipe/gigpipe/internal/telemetry"
)

// jsonRepairer asks the model to reshape malformed JSON into the target
// schema. It backs the single model-assisted round of the extraction
// cascade; its token usage is billed to the stage that triggered it.
type jsonRepairer struct {
	client  llm.Client
	stage   config.StageConfig
	tracker *telemetry.Tracker
	bill    string
}

func (r *jsonRepairer) RepairJSON(ctx context.Context, malformed string, schema extract.Schema) (string, error) {
	prompt := fmt.Sprintf(`The following text was supposed to be a JSON object with this shape:
%s

It is malformed:
---
%s
---

Return ONLY the corrected JSON object, nothing else.`, schema.Describe(), malformed)

	req := llm.Prompt("", prompt, r.stage.MaxTokens, 0)
	req.Model = r.stage.Model
	resp, err := r.client.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("json repair call: %w", err)
	}
	r.tracker.Record(r.bill, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp.Content, nil
}
