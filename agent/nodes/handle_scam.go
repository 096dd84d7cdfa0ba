package turnnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
	statex "github.com/Dispatch-AI-com/AI/agent/state"
)

// ScamGoodbye is spoken verbatim whenever a turn is classified as a scam.
// No collected data leaves the record and the call ends immediately.
const ScamGoodbye = "Thank you for calling. I'm sorry, but I'm unable to assist with this matter. " +
	"If you have a legitimate inquiry, please contact us through our official channels. " +
	"Have a good day. Goodbye."

// HandleScam persists the scam verdict and terminates the call with the
// fixed goodbye. Persistence failure is logged but never blocks the hangup.
func HandleScam(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	intent := statex.Intent{
		Type:         statex.IntentScam,
		Confidence:   in.Intent.Confidence,
		Reasoning:    in.Intent.Reasoning,
		ClassifiedAt: in.Now,
	}
	if err := store.SetIntent(ctx, in.CallID, intent); err != nil {
		log.Error().
			Err(err).
			Str("call_id", in.CallID).
			Msg("failed to persist scam intent")
	}

	in.ReplyText = ScamGoodbye
	in.ShouldHangup = true
	return in, nil
}
