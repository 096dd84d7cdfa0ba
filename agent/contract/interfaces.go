package contract

import "context"

// Strategy processes one conversational turn. The eager three-step
// orchestrator and the free-form chatbot both implement it.
type Strategy interface {
	ProcessTurn(ctx context.Context, callID string, utterance string) (TurnResult, error)
}

type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (IntentResult, error)
}

type Collector interface {
	Collect(ctx context.Context, req CollectRequest) (CollectResult, error)
}

// Registry exposes the LLM-backed capabilities to the orchestrator.
type Registry interface {
	Classifier() Classifier
	Name() Collector
	Background() Collector
	AdditionalInfo() Collector
}

type Chatter interface {
	Reply(ctx context.Context, req ChatRequest) (string, error)
}

// CallLogBackend creates the permanent call-log entry. Failure is non-fatal;
// the orchestrator retries on the next turn via the record flag.
type CallLogBackend interface {
	CreateCallLog(ctx context.Context, entry CallLogEntry) error
}
