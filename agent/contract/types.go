package contract

import (
	"time"

	statex "github.com/Dispatch-AI-com/AI/agent/state"
)

type CapabilityType string

const (
	CapabilityClassifier CapabilityType = "classifier"
	CapabilityCollector  CapabilityType = "collector"
	CapabilityChat       CapabilityType = "chat"
)

// TurnResult is what a strategy hands back to the telephony layer for one
// turn: the text to speak and whether to end the call afterwards.
type TurnResult struct {
	ReplyText    string `json:"replyText"`
	ShouldHangup bool   `json:"shouldHangup"`
}

type ClassifyRequest struct {
	Utterance string        `json:"utterance"`
	History   []statex.Turn `json:"history,omitempty"`
}

// IntentResult is the classifier verdict for a single turn. Confidence is
// clamped to [0,1]; a failed classification surfaces as IntentOther with
// confidence 0.
type IntentResult struct {
	Intent     statex.IntentType `json:"intent"`
	Confidence float64           `json:"confidence"`
	Reasoning  string            `json:"reasoning,omitempty"`
}

type CollectRequest struct {
	Utterance   string            `json:"utterance"`
	History     []statex.Turn     `json:"history,omitempty"`
	Intent      statex.IntentType `json:"intent"`
	CompanyName string            `json:"company_name,omitempty"`

	// Previously collected fields, passed forward to keep the dialogue
	// coherent. CallerName is set for the background and additional-info
	// steps; Background only for the additional-info step.
	CallerName string `json:"caller_name,omitempty"`
	Background string `json:"background,omitempty"`

	RetryCount int `json:"retry_count"`
}

// CollectResult reports one extraction attempt. Value is meaningful only
// when Extracted is true; Response is always safe to speak.
type CollectResult struct {
	Response  string `json:"response"`
	Value     string `json:"value,omitempty"`
	Extracted bool   `json:"extracted"`
}

type ChatRequest struct {
	Utterance   string            `json:"utterance"`
	History     []statex.Turn     `json:"history,omitempty"`
	Intent      statex.IntentType `json:"intent,omitempty"`
	CompanyName string            `json:"company_name,omitempty"`
}

// CallLogEntry is the payload for the permanent call-log backend, created
// at most once per non-scam call.
type CallLogEntry struct {
	CallID       string            `json:"callSid"`
	OwnerID      string            `json:"userId"`
	CallerNumber string            `json:"callerNumber"`
	CallerName   string            `json:"callerName"`
	StartedAt    time.Time         `json:"startAt"`
	Intent       statex.IntentType `json:"intent"`
}
