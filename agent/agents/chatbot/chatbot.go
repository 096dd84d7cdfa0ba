package chatbot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
	turnnode "github.com/Dispatch-AI-com/AI/agent/nodes"
	statex "github.com/Dispatch-AI-com/AI/agent/state"
)

const (
	defaultHistoryWindow = 8

	// classifyAfterTurns delays classification until the caller has said
	// enough to judge; the lazy counterpart of the orchestrator's
	// classify-every-turn.
	classifyAfterTurns = 2

	fallbackReply = "I appreciate you reaching out. How can I assist you today?"
)

type Config struct {
	HistoryWindow int
}

// Chatbot is the free-form turn strategy: no fixed collection steps, one
// conversational reply per turn. It still screens for scams, lazily, and
// hangs up only on a scam verdict.
type Chatbot struct {
	store      statex.Store
	classifier contractx.Classifier
	chatter    contractx.Chatter

	historyWindow int
	now           func() time.Time
}

var _ contractx.Strategy = (*Chatbot)(nil)

func New(store statex.Store, classifier contractx.Classifier, chatter contractx.Chatter, cfg Config) (*Chatbot, error) {
	if store == nil {
		return nil, errors.New("record store is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if chatter == nil {
		return nil, errors.New("chatter is required")
	}

	historyWindow := cfg.HistoryWindow
	if historyWindow <= 0 {
		historyWindow = defaultHistoryWindow
	}

	return &Chatbot{
		store:         store,
		classifier:    classifier,
		chatter:       chatter,
		historyWindow: historyWindow,
		now:           time.Now,
	}, nil
}

func (c *Chatbot) ProcessTurn(ctx context.Context, callID string, utterance string) (contractx.TurnResult, error) {
	callID = strings.TrimSpace(callID)
	if callID == "" {
		return contractx.TurnResult{}, turnnode.ErrInvalidCall
	}
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return contractx.TurnResult{}, turnnode.ErrInvalidUtterance
	}
	now := c.now().UTC()

	rec, err := c.store.Load(ctx, callID)
	if err != nil {
		return contractx.TurnResult{}, err
	}

	turn := statex.Turn{Speaker: statex.SpeakerCustomer, Text: utterance, StartedAt: now}
	if err := c.store.AppendTurn(ctx, callID, turn); err != nil {
		return contractx.TurnResult{}, err
	}
	rec.History = append(rec.History, turn)

	history := rec.History
	if len(history) > c.historyWindow {
		history = history[len(history)-c.historyWindow:]
	}

	intent := c.resolveIntent(ctx, callID, rec, utterance, history, now)

	if intent == statex.IntentScam {
		result := contractx.TurnResult{ReplyText: turnnode.ScamGoodbye, ShouldHangup: true}
		c.appendAgentTurn(ctx, callID, result.ReplyText, now)
		return result, nil
	}

	reply, err := c.chatter.Reply(ctx, contractx.ChatRequest{
		Utterance:   utterance,
		History:     history[:len(history)-1],
		Intent:      intent,
		CompanyName: rec.Company.Name,
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("call_id", callID).
			Msg("chat reply failed, using fallback")
		reply = fallbackReply
	}

	c.appendAgentTurn(ctx, callID, reply, now)
	return contractx.TurnResult{ReplyText: reply}, nil
}

// resolveIntent returns the persisted intent when present, classifies once
// enough of the conversation has accumulated, and fails open to IntentOther.
func (c *Chatbot) resolveIntent(
	ctx context.Context,
	callID string,
	rec *statex.CallRecord,
	utterance string,
	history []statex.Turn,
	now time.Time,
) statex.IntentType {
	if rec.Intent != nil {
		return rec.Intent.Type
	}
	if customerTurns(rec.History) < classifyAfterTurns {
		return statex.IntentOther
	}

	result, err := c.classifier.Classify(ctx, contractx.ClassifyRequest{
		Utterance: utterance,
		History:   history,
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("call_id", callID).
			Msg("lazy classification failed, defaulting to other")
		return statex.IntentOther
	}

	if err := c.store.SetIntent(ctx, callID, statex.Intent{
		Type:         result.Intent,
		Confidence:   result.Confidence,
		Reasoning:    result.Reasoning,
		ClassifiedAt: now,
	}); err != nil {
		log.Error().
			Err(err).
			Str("call_id", callID).
			Msg("failed to persist intent")
	}
	return result.Intent
}

func (c *Chatbot) appendAgentTurn(ctx context.Context, callID string, text string, now time.Time) {
	err := c.store.AppendTurn(ctx, callID, statex.Turn{
		Speaker:   statex.SpeakerAgent,
		Text:      text,
		StartedAt: now,
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("call_id", callID).
			Msg("failed to record agent turn")
	}
}

func customerTurns(history []statex.Turn) int {
	n := 0
	for _, t := range history {
		if t.Speaker == statex.SpeakerCustomer {
			n++
		}
	}
	return n
}
