package turnnode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	capabilityx "github.com/Dispatch-AI-com/AI/agent/capability"
	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
	statex "github.com/Dispatch-AI-com/AI/agent/state"
)

// CollectStep advances the fixed collection dialogue by at most one
// extraction attempt. Steps already past the retry ceiling are filled with
// the NotProvided sentinel so the dialogue can never stall on one step.
func CollectStep(
	ctx context.Context,
	in *GraphState,
	models contractx.Registry,
	store statex.Store,
	maxRetries int,
) (*GraphState, error) {
	if in == nil || in.Record == nil {
		return nil, fmt.Errorf("%w: graph state is missing the call record", contractx.ErrValidation)
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}

	// One pass per step plus the completed check; the loop only repeats
	// when a ceiling-hit step is sentinel-filled.
	for range 4 {
		step := in.Collection.CurrentStep

		if step == statex.StepCompleted {
			in.ReplyText = capabilityx.ClosingMessage(in.Collection.Fields.Name, effectiveIntent(in.Record, in.Intent.Intent))
			in.ShouldHangup = true
			return in, nil
		}

		if in.Collection.RetryCount >= maxRetries {
			if err := writeField(ctx, in, store, step.Field(), statex.NotProvided); err != nil {
				return nil, err
			}
			continue
		}

		collector := collectorFor(models, step)
		if collector == nil {
			return nil, fmt.Errorf("%w: no collector for step %s", contractx.ErrValidation, step)
		}

		res, err := collector.Collect(ctx, contractx.CollectRequest{
			Utterance:   in.Utterance,
			History:     in.History,
			Intent:      in.Intent.Intent,
			CompanyName: in.Record.Company.Name,
			CallerName:  in.Collection.Fields.Name,
			Background:  in.Collection.Fields.Background,
			RetryCount:  in.Collection.RetryCount,
		})
		if err != nil {
			log.Warn().
				Err(err).
				Str("call_id", in.CallID).
				Str("step", string(step)).
				Msg("collector failed, falling back to fixed question")
			res = contractx.CollectResult{Response: capabilityx.FallbackQuestion(step)}
		}

		if res.Extracted && strings.TrimSpace(res.Value) != "" {
			if err := writeField(ctx, in, store, step.Field(), res.Value); err != nil {
				return nil, err
			}
			if in.Collection.CurrentStep == statex.StepCompleted {
				in.ReplyText = capabilityx.ClosingMessage(in.Collection.Fields.Name, effectiveIntent(in.Record, in.Intent.Intent))
				in.ShouldHangup = true
				return in, nil
			}
			in.ReplyText = res.Response
			return in, nil
		}

		if err := store.IncrementRetry(ctx, in.CallID, step, in.Now); err != nil {
			return nil, fmt.Errorf("increment retry step=%s: %w", step, err)
		}
		in.ReplyText = res.Response
		if strings.TrimSpace(in.ReplyText) == "" {
			in.ReplyText = capabilityx.FallbackQuestion(step)
		}
		return in, nil
	}

	return nil, fmt.Errorf("%w: collection did not settle", contractx.ErrValidation)
}

// writeField persists a collected value and refreshes the derived view.
func writeField(ctx context.Context, in *GraphState, store statex.Store, field statex.FieldName, value string) error {
	if err := store.SetField(ctx, in.CallID, field, value, in.Now); err != nil {
		return fmt.Errorf("set field %s: %w", field, err)
	}
	if _, err := in.Record.SetFieldValue(field, value); err != nil {
		return err
	}
	in.Collection = statex.DeriveState(in.Record)
	return nil
}

func collectorFor(models contractx.Registry, step statex.Step) contractx.Collector {
	switch step {
	case statex.StepName:
		return models.Name()
	case statex.StepBackground:
		return models.Background()
	case statex.StepAdditionalInfo:
		return models.AdditionalInfo()
	default:
		return nil
	}
}
