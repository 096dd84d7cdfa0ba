package turnnode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
	statex "github.com/Dispatch-AI-com/AI/agent/state"
)

// FinalizeReply records the agent's reply in the call history and produces
// the graph output. An empty reply is a bug upstream, never spoken.
func FinalizeReply(ctx context.Context, in *GraphState, store statex.Store) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.ReplyText)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: turn produced an empty reply", contractx.ErrValidation)
	}

	turn := statex.Turn{
		Speaker:   statex.SpeakerAgent,
		Text:      reply,
		StartedAt: in.Now,
	}
	if err := store.AppendTurn(ctx, in.CallID, turn); err != nil {
		log.Error().
			Err(err).
			Str("call_id", in.CallID).
			Msg("failed to record agent turn")
	}

	return GraphOutput{
		ReplyText:    reply,
		ShouldHangup: in.ShouldHangup,
	}, nil
}
