package turnnode

import (
	"context"
	"fmt"

	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
	statex "github.com/Dispatch-AI-com/AI/agent/state"
)

// LoadRecord fetches the call record, persists the caller's utterance as a
// history turn, and derives the collection state. The record must already
// exist; record creation belongs to the telephony layer.
func LoadRecord(ctx context.Context, in *GraphState, store statex.Store, historyWindow int) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	rec, err := store.Load(ctx, in.CallID)
	if err != nil {
		return nil, err
	}

	turn := statex.Turn{
		Speaker:   statex.SpeakerCustomer,
		Text:      in.Utterance,
		StartedAt: in.Now,
	}
	if err := store.AppendTurn(ctx, in.CallID, turn); err != nil {
		return nil, fmt.Errorf("append customer turn: %w", err)
	}
	rec.History = append(rec.History, turn)

	in.Record = rec
	in.History = trimHistory(rec.History, historyWindow)
	in.Collection = statex.DeriveState(rec)
	return in, nil
}

// trimHistory keeps the most recent turns inside the prompt window.
func trimHistory(turns []statex.Turn, window int) []statex.Turn {
	if window <= 0 || len(turns) <= window {
		return turns
	}
	return turns[len(turns)-window:]
}
