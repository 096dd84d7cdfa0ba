package turnnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
	statex "github.com/Dispatch-AI-com/AI/agent/state"
)

// ClassifyIntent runs the classifier for the current turn. A persisted scam
// verdict is terminal and short-circuits the model call; a classifier failure
// degrades to IntentOther so the turn can proceed.
func ClassifyIntent(ctx context.Context, in *GraphState, classifier contractx.Classifier) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if in.Record != nil && in.Record.Intent != nil && in.Record.Intent.Type == statex.IntentScam {
		in.Intent = contractx.IntentResult{
			Intent:     statex.IntentScam,
			Confidence: in.Record.Intent.Confidence,
			Reasoning:  in.Record.Intent.Reasoning,
		}
		return in, nil
	}

	result, err := classifier.Classify(ctx, contractx.ClassifyRequest{
		Utterance: in.Utterance,
		History:   in.History,
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("call_id", in.CallID).
			Msg("intent classification failed, defaulting to other")
		in.Intent = contractx.IntentResult{
			Intent:    statex.IntentOther,
			Reasoning: fmt.Sprintf("classification failed: %v", err),
		}
		return in, nil
	}

	in.Intent = result
	return in, nil
}
