package state

// Step is one phase of the fixed collection dialogue, evaluated in order
// name -> background -> additional_info -> completed.
type Step string

const (
	StepName           Step = "name"
	StepBackground     Step = "background"
	StepAdditionalInfo Step = "additional_info"
	StepCompleted      Step = "completed"
)

// Field returns the record field the step collects into.
func (s Step) Field() FieldName {
	switch s {
	case StepName:
		return FieldCallerName
	case StepBackground:
		return FieldBackground
	case StepAdditionalInfo:
		return FieldAdditionalInfo
	default:
		return ""
	}
}

// StepForField is the inverse of Step.Field.
func StepForField(field FieldName) Step {
	switch field {
	case FieldCallerName:
		return StepName
	case FieldBackground:
		return StepBackground
	case FieldAdditionalInfo:
		return StepAdditionalInfo
	default:
		return StepCompleted
	}
}

// CollectionState is the per-turn view of collection progress. It is derived,
// never persisted; the record is the single source of truth.
type CollectionState struct {
	CurrentStep   Step
	Fields        Fields
	RetryCount    int
	RecordCreated bool
}

// DeriveState computes the collection state from the persisted record.
// Pure and idempotent; CurrentStep is monotonic because fields are
// append-only.
func DeriveState(rec *CallRecord) CollectionState {
	st := CollectionState{CurrentStep: StepName}
	if rec == nil {
		return st
	}

	st.Fields = rec.Fields
	st.RecordCreated = rec.RecordCreated

	switch {
	case rec.Fields.Name != "" && rec.Fields.Background != "" && rec.Fields.AdditionalInfo != "":
		st.CurrentStep = StepCompleted
	case rec.Fields.Name != "" && rec.Fields.Background != "":
		st.CurrentStep = StepAdditionalInfo
	case rec.Fields.Name != "":
		st.CurrentStep = StepBackground
	default:
		st.CurrentStep = StepName
	}

	st.RetryCount = rec.RetryCount(st.CurrentStep)
	return st
}
