package turnnode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
	statex "github.com/Dispatch-AI-com/AI/agent/state"
)

const (
	unknownCallerName   = "Unknown Caller"
	unknownCallerNumber = "Unknown"
)

// EnsureCallLog persists the turn's intent (first verdict wins) and creates
// the permanent call-log entry exactly once per call. Backend failure is
// non-fatal; the record flag stays false and creation is retried next turn.
func EnsureCallLog(ctx context.Context, in *GraphState, store statex.Store, backend contractx.CallLogBackend) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	intent := statex.Intent{
		Type:         in.Intent.Intent,
		Confidence:   in.Intent.Confidence,
		Reasoning:    in.Intent.Reasoning,
		ClassifiedAt: in.Now,
	}
	if err := store.SetIntent(ctx, in.CallID, intent); err != nil {
		log.Error().
			Err(err).
			Str("call_id", in.CallID).
			Msg("failed to persist intent")
	}

	if in.Record == nil || in.Record.RecordCreated {
		return in, nil
	}

	entry := contractx.CallLogEntry{
		CallID:       in.CallID,
		OwnerID:      in.Record.Company.OwnerID,
		CallerNumber: in.Record.CallerNumber,
		CallerName:   in.Collection.Fields.Name,
		StartedAt:    in.Record.StartedAt,
		Intent:       effectiveIntent(in.Record, in.Intent.Intent),
	}
	if strings.TrimSpace(entry.CallerName) == "" || entry.CallerName == statex.NotProvided {
		entry.CallerName = unknownCallerName
	}
	if strings.TrimSpace(entry.CallerNumber) == "" {
		entry.CallerNumber = unknownCallerNumber
	}

	if err := backend.CreateCallLog(ctx, entry); err != nil {
		log.Warn().
			Err(err).
			Str("call_id", in.CallID).
			Msg("call log creation failed, will retry next turn")
		return in, nil
	}

	if err := store.MarkRecordCreated(ctx, in.CallID, in.Now); err != nil {
		return nil, fmt.Errorf("mark record created: %w", err)
	}
	in.Record.RecordCreated = true
	in.Collection.RecordCreated = true
	return in, nil
}

// effectiveIntent prefers the intent already persisted on the record so the
// log entry matches what SetIntent kept.
func effectiveIntent(rec *statex.CallRecord, fallback statex.IntentType) statex.IntentType {
	if rec != nil && rec.Intent != nil {
		return rec.Intent.Type
	}
	return fallback
}
