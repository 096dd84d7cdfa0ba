package chatbot

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
	turnnode "github.com/Dispatch-AI-com/AI/agent/nodes"
	statex "github.com/Dispatch-AI-com/AI/agent/state"
)

type fakeStore struct {
	rec     *statex.CallRecord
	intents []statex.Intent
}

func (f *fakeStore) Load(ctx context.Context, callID string) (*statex.CallRecord, error) {
	if f.rec == nil || f.rec.CallID != callID {
		return nil, statex.ErrRecordNotFound
	}
	cp := *f.rec
	cp.History = append([]statex.Turn(nil), f.rec.History...)
	return &cp, nil
}

func (f *fakeStore) Save(ctx context.Context, rec *statex.CallRecord) error {
	f.rec = rec
	return nil
}

func (f *fakeStore) AppendTurn(ctx context.Context, callID string, turn statex.Turn) error {
	if f.rec == nil {
		return statex.ErrRecordNotFound
	}
	f.rec.History = append(f.rec.History, turn)
	return nil
}

func (f *fakeStore) SetField(ctx context.Context, callID string, field statex.FieldName, value string, now time.Time) error {
	return nil
}

func (f *fakeStore) SetIntent(ctx context.Context, callID string, intent statex.Intent) error {
	if f.rec == nil {
		return statex.ErrRecordNotFound
	}
	f.intents = append(f.intents, intent)
	if f.rec.Intent == nil || (intent.Type == statex.IntentScam && f.rec.Intent.Type != statex.IntentScam) {
		cp := intent
		f.rec.Intent = &cp
	}
	return nil
}

func (f *fakeStore) MarkRecordCreated(ctx context.Context, callID string, now time.Time) error {
	return nil
}

func (f *fakeStore) IncrementRetry(ctx context.Context, callID string, step statex.Step, now time.Time) error {
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, callID string) error {
	f.rec = nil
	return nil
}

type fakeClassifier struct {
	result contractx.IntentResult
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.IntentResult, error) {
	f.calls++
	if f.err != nil {
		return contractx.IntentResult{}, f.err
	}
	return f.result, nil
}

type fakeChatter struct {
	reply    string
	err      error
	calls    int
	lastReqs []contractx.ChatRequest
}

func (f *fakeChatter) Reply(ctx context.Context, req contractx.ChatRequest) (string, error) {
	f.calls++
	f.lastReqs = append(f.lastReqs, req)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newSeededStore(callID string) *fakeStore {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &fakeStore{
		rec: statex.NewCallRecord(callID, statex.Company{Name: "Acme Plumbing"}, "+15550100", now),
	}
}

func newTestChatbot(t *testing.T, store statex.Store, classifier contractx.Classifier, chatter contractx.Chatter) *Chatbot {
	t.Helper()
	c, err := New(store, classifier, chatter, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestChatbotInvalidInput(t *testing.T) {
	t.Parallel()

	c := newTestChatbot(t, newSeededStore("CA1"), &fakeClassifier{}, &fakeChatter{reply: "hi"})

	if _, err := c.ProcessTurn(context.Background(), "  ", "hello"); !errors.Is(err, turnnode.ErrInvalidCall) {
		t.Fatalf("expected ErrInvalidCall, got %v", err)
	}
	if _, err := c.ProcessTurn(context.Background(), "CA1", "  "); !errors.Is(err, turnnode.ErrInvalidUtterance) {
		t.Fatalf("expected ErrInvalidUtterance, got %v", err)
	}
}

func TestChatbotRecordNotFound(t *testing.T) {
	t.Parallel()

	c := newTestChatbot(t, &fakeStore{}, &fakeClassifier{}, &fakeChatter{reply: "hi"})

	if _, err := c.ProcessTurn(context.Background(), "CA-unknown", "hello"); !errors.Is(err, statex.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestChatbotRepliesWithoutEagerClassification(t *testing.T) {
	t.Parallel()

	store := newSeededStore("CA2")
	classifier := &fakeClassifier{}
	chatter := &fakeChatter{reply: "Hello! How can I help you today?"}

	c := newTestChatbot(t, store, classifier, chatter)

	result, err := c.ProcessTurn(context.Background(), "CA2", "Hi there")
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if result.ShouldHangup {
		t.Fatal("chatbot must not hang up on a normal turn")
	}
	if result.ReplyText != "Hello! How can I help you today?" {
		t.Fatalf("unexpected reply: %q", result.ReplyText)
	}
	if classifier.calls != 0 {
		t.Fatalf("first turn must not be classified yet, got %d calls", classifier.calls)
	}
	if len(store.rec.History) != 2 {
		t.Fatalf("expected both turns in history, got %d", len(store.rec.History))
	}
}

func TestChatbotClassifiesLazilyAndPersists(t *testing.T) {
	t.Parallel()

	store := newSeededStore("CA3")
	now := store.rec.StartedAt
	store.rec.History = []statex.Turn{
		{Speaker: statex.SpeakerCustomer, Text: "Hi", StartedAt: now},
		{Speaker: statex.SpeakerAgent, Text: "Hello!", StartedAt: now},
	}
	classifier := &fakeClassifier{
		result: contractx.IntentResult{Intent: statex.IntentOpportunity, Confidence: 0.85},
	}
	chatter := &fakeChatter{reply: "That sounds interesting, tell me more."}

	c := newTestChatbot(t, store, classifier, chatter)

	if _, err := c.ProcessTurn(context.Background(), "CA3", "I have a business proposal for you"); err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if classifier.calls != 1 {
		t.Fatalf("expected one classification, got %d", classifier.calls)
	}
	if len(store.intents) != 1 || store.intents[0].Type != statex.IntentOpportunity {
		t.Fatalf("intent not persisted: %+v", store.intents)
	}
	if chatter.lastReqs[0].Intent != statex.IntentOpportunity {
		t.Fatalf("chatter must see the classified intent, got %s", chatter.lastReqs[0].Intent)
	}

	// Next turn reuses the persisted intent.
	if _, err := c.ProcessTurn(context.Background(), "CA3", "Great, when can we talk?"); err != nil {
		t.Fatalf("ProcessTurn() second error = %v", err)
	}
	if classifier.calls != 1 {
		t.Fatalf("persisted intent must not be re-classified, got %d calls", classifier.calls)
	}
}

func TestChatbotScamHangsUp(t *testing.T) {
	t.Parallel()

	store := newSeededStore("CA4")
	now := store.rec.StartedAt
	store.rec.History = []statex.Turn{
		{Speaker: statex.SpeakerCustomer, Text: "Hi", StartedAt: now},
	}
	classifier := &fakeClassifier{
		result: contractx.IntentResult{Intent: statex.IntentScam, Confidence: 0.95},
	}
	chatter := &fakeChatter{reply: "should never be used"}

	c := newTestChatbot(t, store, classifier, chatter)

	result, err := c.ProcessTurn(context.Background(), "CA4", "Wire the money to this account now")
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if !result.ShouldHangup {
		t.Fatal("scam verdict must hang up")
	}
	if result.ReplyText != turnnode.ScamGoodbye {
		t.Fatalf("unexpected scam reply: %q", result.ReplyText)
	}
	if chatter.calls != 0 {
		t.Fatalf("chatter must not run on the scam branch, got %d calls", chatter.calls)
	}
}

func TestChatbotClassifierFailureFailsOpen(t *testing.T) {
	t.Parallel()

	store := newSeededStore("CA5")
	now := store.rec.StartedAt
	store.rec.History = []statex.Turn{
		{Speaker: statex.SpeakerCustomer, Text: "Hi", StartedAt: now},
	}
	chatter := &fakeChatter{reply: "How can I help?"}

	c := newTestChatbot(t, store, &fakeClassifier{err: errors.New("model down")}, chatter)

	result, err := c.ProcessTurn(context.Background(), "CA5", "I need some help with my order")
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if result.ShouldHangup {
		t.Fatal("classification failure must not end the call")
	}
	if chatter.lastReqs[0].Intent != statex.IntentOther {
		t.Fatalf("expected fail-open intent, got %s", chatter.lastReqs[0].Intent)
	}
	if len(store.intents) != 0 {
		t.Fatalf("failed classification must not be persisted, got %+v", store.intents)
	}
}

func TestChatbotChatterFailureUsesFallback(t *testing.T) {
	t.Parallel()

	store := newSeededStore("CA6")
	chatter := &fakeChatter{err: errors.New("completion failed")}

	c := newTestChatbot(t, store, &fakeClassifier{}, chatter)

	result, err := c.ProcessTurn(context.Background(), "CA6", "Hello?")
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if result.ReplyText != fallbackReply {
		t.Fatalf("expected fallback reply, got %q", result.ReplyText)
	}
	if result.ShouldHangup {
		t.Fatal("fallback must keep the call alive")
	}
}
