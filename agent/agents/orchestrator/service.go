package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
	turnnode "github.com/Dispatch-AI-com/AI/agent/nodes"
	statex "github.com/Dispatch-AI-com/AI/agent/state"
)

var (
	ErrInvalidCall      = turnnode.ErrInvalidCall
	ErrInvalidUtterance = turnnode.ErrInvalidUtterance
)

const (
	defaultHistoryWindow     = 8
	defaultMaxRetriesPerStep = 3
)

type Config struct {
	// HistoryWindow caps the turns passed to the capabilities; the record
	// itself keeps the full history.
	HistoryWindow int

	// MaxRetriesPerStep is the extraction-failure ceiling before a step is
	// sentinel-filled and the dialogue advances.
	MaxRetriesPerStep int
}

// Orchestrator is the eager turn strategy: classify every turn, branch on
// scam, then drive the fixed three-step collection to the closing message.
type Orchestrator struct {
	store   statex.Store
	models  contractx.Registry
	backend contractx.CallLogBackend

	graphRunner compose.Runnable[turnnode.GraphInput, turnnode.GraphOutput]

	historyWindow int
	maxRetries    int

	now func() time.Time
}

var _ contractx.Strategy = (*Orchestrator)(nil)

func New(
	store statex.Store,
	models contractx.Registry,
	backend contractx.CallLogBackend,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("record store is required")
	}
	if models == nil {
		return nil, errors.New("capability registry is required")
	}
	if backend == nil {
		backend = noopCallLogBackend{}
	}

	historyWindow := cfg.HistoryWindow
	if historyWindow <= 0 {
		historyWindow = defaultHistoryWindow
	}
	maxRetries := cfg.MaxRetriesPerStep
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetriesPerStep
	}

	o := &Orchestrator{
		store:         store,
		models:        models,
		backend:       backend,
		historyWindow: historyWindow,
		maxRetries:    maxRetries,
		now:           time.Now,
	}

	graphRunner, err := o.compileProcessTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

func (o *Orchestrator) ProcessTurn(ctx context.Context, callID string, utterance string) (contractx.TurnResult, error) {
	out, err := o.graphRunner.Invoke(ctx, turnnode.GraphInput{
		CallID:    callID,
		Utterance: utterance,
	})
	if err != nil {
		return contractx.TurnResult{}, err
	}
	return contractx.TurnResult{
		ReplyText:    out.ReplyText,
		ShouldHangup: out.ShouldHangup,
	}, nil
}

type noopCallLogBackend struct{}

func (noopCallLogBackend) CreateCallLog(context.Context, contractx.CallLogEntry) error {
	return nil
}
