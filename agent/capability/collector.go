package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
	statex "github.com/Dispatch-AI-com/AI/agent/state"
)

type collectorImpl struct {
	step     statex.Step
	runner   compose.Runnable[map[string]any, collectorLLMOutput]
	fallback string
}

type collectorLLMOutput struct {
	Value     *string `json:"value"`
	Extracted bool    `json:"extracted"`
	Response  string  `json:"response"`
}

func newCollector(
	ctx context.Context,
	step statex.Step,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (*collectorImpl, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: collector prompt step=%s", contractx.ErrPromptMissing, step)
	}

	runner, err := compileCollectorGraph(ctx, step, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}

	return &collectorImpl{
		step:     step,
		runner:   runner,
		fallback: FallbackQuestion(step),
	}, nil
}

// Collect runs one extraction attempt for the collector's step. Capability
// failure degrades to the step's fixed fallback question rather than an
// error; the turn must stay alive.
func (c *collectorImpl) Collect(ctx context.Context, req contractx.CollectRequest) (contractx.CollectResult, error) {
	payload := map[string]any{
		"current_message": req.Utterance,
		"history":         summarizeHistory(req.History),
		"intent":          string(req.Intent),
		"company_name":    req.CompanyName,
		"retry_count":     req.RetryCount,
	}
	if req.CallerName != "" {
		payload["caller_name"] = req.CallerName
	}
	if req.Background != "" {
		payload["background"] = req.Background
	}

	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.CollectResult{}, fmt.Errorf("%w: marshal collector payload: %v", contractx.ErrValidation, err)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("step", string(c.step)).
			Msg("collector extraction failed, using fallback question")
		return contractx.CollectResult{
			Response:  c.fallback,
			Extracted: false,
		}, nil
	}

	value := ""
	if out.Value != nil {
		value = strings.TrimSpace(*out.Value)
	}
	extracted := out.Extracted && value != ""

	response := strings.TrimSpace(out.Response)
	if response == "" {
		response = c.fallback
	}

	result := contractx.CollectResult{
		Response:  response,
		Extracted: extracted,
	}
	if extracted {
		result.Value = value
	}
	return result, nil
}

// FallbackQuestion is the safe fixed question spoken when extraction cannot
// be performed for a step.
func FallbackQuestion(step statex.Step) string {
	switch step {
	case statex.StepName:
		return "May I have your name, please?"
	case statex.StepBackground:
		return "Thank you. What brings you to call us today?"
	case statex.StepAdditionalInfo:
		return "Is there anything else you'd like to share? What's the best way to contact you?"
	default:
		return "Could you tell me a bit more?"
	}
}
