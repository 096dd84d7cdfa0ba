package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
	statex "github.com/Dispatch-AI-com/AI/agent/state"
)

type classifierImpl struct {
	runner compose.Runnable[map[string]any, classifierLLMOutput]
}

type classifierLLMOutput struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

func newClassifier(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*classifierImpl, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: classifier prompt", contractx.ErrPromptMissing)
	}
	runner, err := compileClassifierGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	return &classifierImpl{runner: runner}, nil
}

// Classify returns the intent verdict for the current turn. Errors are
// returned as-is; the orchestrator fails open to IntentOther.
func (c *classifierImpl) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.IntentResult, error) {
	if strings.TrimSpace(req.Utterance) == "" {
		return contractx.IntentResult{}, fmt.Errorf("%w: utterance is required", contractx.ErrValidation)
	}

	payload := map[string]any{
		"current_message": req.Utterance,
		"history":         summarizeHistory(req.History),
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.IntentResult{}, fmt.Errorf("%w: marshal classifier payload: %v", contractx.ErrValidation, err)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return contractx.IntentResult{}, fmt.Errorf("%w: classifier invoke: %v", contractx.ErrModelInvoke, err)
	}

	return contractx.IntentResult{
		Intent:     statex.ParseIntentType(out.Intent),
		Confidence: clampConfidence(out.Confidence),
		Reasoning:  strings.TrimSpace(out.Reasoning),
	}, nil
}

func clampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
