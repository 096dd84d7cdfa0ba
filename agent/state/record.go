package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Speaker string

const (
	SpeakerAgent    Speaker = "agent"
	SpeakerCustomer Speaker = "customer"
)

// Turn is one utterance in the call history. History is append-only and
// chronological; the telephony layer owns the writes.
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	StartedAt time.Time `json:"startedAt"`
}

type IntentType string

const (
	IntentScam        IntentType = "scam"
	IntentOpportunity IntentType = "opportunity"
	IntentOther       IntentType = "other"
)

// ParseIntentType normalises a model-produced intent label. Anything
// unrecognised falls back to IntentOther, the least disruptive intent.
func ParseIntentType(v string) IntentType {
	switch IntentType(strings.ToLower(strings.TrimSpace(v))) {
	case IntentScam:
		return IntentScam
	case IntentOpportunity:
		return IntentOpportunity
	default:
		return IntentOther
	}
}

// Intent is the persisted classification result. Set at most once per call;
// a scam result is terminal and always wins.
type Intent struct {
	Type         IntentType `json:"type"`
	Confidence   float64    `json:"confidence"`
	Reasoning    string     `json:"reasoning,omitempty"`
	ClassifiedAt time.Time  `json:"classifiedAt"`
}

type FieldName string

const (
	FieldCallerName     FieldName = "name"
	FieldBackground     FieldName = "background"
	FieldAdditionalInfo FieldName = "additionalInfo"
)

// Fields holds the values collected by the three-step dialogue. Each field
// is written at most once and never overwritten once non-empty.
type Fields struct {
	Name           string `json:"name,omitempty"`
	Background     string `json:"background,omitempty"`
	AdditionalInfo string `json:"additionalInfo,omitempty"`
}

// NotProvided marks a step the caller declined to answer past the retry
// ceiling. It satisfies the append-only invariant while letting the
// collection advance.
const NotProvided = "(not provided)"

// Company identifies the account that owns the inbound number. Read-only
// from the agent's perspective.
type Company struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	OwnerID string `json:"userId"`
}

// CallRecord is the call skeleton persisted in the record store, one per
// CallSid. The store serialises read-modify-write per call id; turns within
// a call are strictly sequential.
type CallRecord struct {
	CallID       string    `json:"callSid"`
	Company      Company   `json:"company"`
	CallerNumber string    `json:"callerNumber,omitempty"`
	StartedAt    time.Time `json:"callStartAt"`

	History []Turn  `json:"history,omitempty"`
	Fields  Fields  `json:"fields"`
	Intent  *Intent `json:"intent,omitempty"`

	// RecordCreated flips once the permanent call-log entry has been
	// written; creation is retried on later turns while it is false.
	RecordCreated bool `json:"recordCreated"`

	// RetryCounts tracks consecutive failed extraction attempts per step,
	// cleared when the step's field is populated.
	RetryCounts map[Step]int `json:"retryCounts,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

var (
	ErrNilRecord     = errors.New("call record is nil")
	ErrInvalidCallID = errors.New("call id is empty")
)

func NewCallRecord(callID string, company Company, callerNumber string, now time.Time) *CallRecord {
	return &CallRecord{
		CallID:       callID,
		Company:      company,
		CallerNumber: callerNumber,
		StartedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}
}

func (r *CallRecord) Touch(now time.Time) {
	r.UpdatedAt = now.UTC()
}

// FieldValue returns the stored value for a collected field.
func (r *CallRecord) FieldValue(field FieldName) string {
	if r == nil {
		return ""
	}
	switch field {
	case FieldCallerName:
		return r.Fields.Name
	case FieldBackground:
		return r.Fields.Background
	case FieldAdditionalInfo:
		return r.Fields.AdditionalInfo
	default:
		return ""
	}
}

// SetFieldValue writes a collected field if it is still empty. Returns false
// when the field was already populated (append-only semantics).
func (r *CallRecord) SetFieldValue(field FieldName, value string) (bool, error) {
	if r == nil {
		return false, ErrNilRecord
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return false, fmt.Errorf("field %s: value is empty", field)
	}
	if r.FieldValue(field) != "" {
		return false, nil
	}
	switch field {
	case FieldCallerName:
		r.Fields.Name = value
	case FieldBackground:
		r.Fields.Background = value
	case FieldAdditionalInfo:
		r.Fields.AdditionalInfo = value
	default:
		return false, fmt.Errorf("unknown field %q", field)
	}
	return true, nil
}

func (r *CallRecord) RetryCount(step Step) int {
	if r == nil || r.RetryCounts == nil {
		return 0
	}
	return r.RetryCounts[step]
}

func (r *CallRecord) Validate() error {
	if r == nil {
		return ErrNilRecord
	}
	if strings.TrimSpace(r.CallID) == "" {
		return ErrInvalidCallID
	}
	for i, turn := range r.History {
		switch turn.Speaker {
		case SpeakerAgent, SpeakerCustomer:
		default:
			return fmt.Errorf("history[%d]: unknown speaker %q", i, turn.Speaker)
		}
	}
	if r.Intent != nil {
		switch r.Intent.Type {
		case IntentScam, IntentOpportunity, IntentOther:
		default:
			return fmt.Errorf("intent: unknown type %q", r.Intent.Type)
		}
	}
	return nil
}
