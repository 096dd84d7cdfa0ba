package turnnode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
	statex "github.com/Dispatch-AI-com/AI/agent/state"
)

var (
	ErrInvalidCall      = errors.New("call id is empty")
	ErrInvalidUtterance = errors.New("utterance is empty")
)

type GraphInput struct {
	CallID    string
	Utterance string
}

type GraphOutput struct {
	ReplyText    string
	ShouldHangup bool
}

// GraphState is the mutable per-turn context threaded through the
// orchestrator graph nodes.
type GraphState struct {
	CallID    string
	Utterance string
	Now       time.Time

	Record     *statex.CallRecord
	History    []statex.Turn
	Collection statex.CollectionState
	Intent     contractx.IntentResult

	ReplyText    string
	ShouldHangup bool
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	callID := strings.TrimSpace(in.CallID)
	if callID == "" {
		return nil, ErrInvalidCall
	}

	utterance := strings.TrimSpace(in.Utterance)
	if utterance == "" {
		return nil, ErrInvalidUtterance
	}

	return &GraphState{
		CallID:    callID,
		Utterance: utterance,
		Now:       nowFn().UTC(),
	}, nil
}
