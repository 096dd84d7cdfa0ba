package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewRedisStore(client)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	return store
}

func seedRecord(t *testing.T, store *RedisStore, callID string) *CallRecord {
	t.Helper()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := NewCallRecord(callID, Company{ID: "c1", Name: "Acme Plumbing", OwnerID: "u1"}, "+15550100", now)
	if err := store.Save(context.Background(), rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return rec
}

func TestStoreLoadNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, err := store.Load(context.Background(), "CA-missing")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestStoreLoadMalformed(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewRedisStore(client)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}

	if err := mr.Set("call:skeleton:CA1", "{not json"); err != nil {
		t.Fatalf("seed malformed value: %v", err)
	}
	if _, err := store.Load(context.Background(), "CA1"); !errors.Is(err, ErrRecordMalformed) {
		t.Fatalf("expected ErrRecordMalformed for bad JSON, got %v", err)
	}

	// Valid JSON that fails record validation is malformed too.
	if err := mr.Set("call:skeleton:CA2", `{"callSid":""}`); err != nil {
		t.Fatalf("seed invalid record: %v", err)
	}
	if _, err := store.Load(context.Background(), "CA2"); !errors.Is(err, ErrRecordMalformed) {
		t.Fatalf("expected ErrRecordMalformed for invalid record, got %v", err)
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	rec := seedRecord(t, store, "CA100")

	loaded, err := store.Load(context.Background(), rec.CallID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Company.Name != "Acme Plumbing" {
		t.Fatalf("unexpected company name: %q", loaded.Company.Name)
	}
	if loaded.CallerNumber != "+15550100" {
		t.Fatalf("unexpected caller number: %q", loaded.CallerNumber)
	}
}

func TestStoreAppendTurn(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	rec := seedRecord(t, store, "CA101")
	ctx := context.Background()
	now := rec.StartedAt.Add(10 * time.Second)

	turns := []Turn{
		{Speaker: SpeakerCustomer, Text: "Hi there", StartedAt: now},
		{Speaker: SpeakerAgent, Text: "Hello, may I have your name?", StartedAt: now.Add(2 * time.Second)},
	}
	for _, turn := range turns {
		if err := store.AppendTurn(ctx, rec.CallID, turn); err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
	}

	loaded, err := store.Load(ctx, rec.CallID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.History) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(loaded.History))
	}
	if loaded.History[0].Speaker != SpeakerCustomer || loaded.History[1].Speaker != SpeakerAgent {
		t.Fatalf("unexpected turn order: %+v", loaded.History)
	}
}

func TestStoreSetFieldAppendOnly(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	rec := seedRecord(t, store, "CA102")
	ctx := context.Background()
	now := rec.StartedAt.Add(time.Minute)

	if err := store.SetField(ctx, rec.CallID, FieldCallerName, "Jane", now); err != nil {
		t.Fatalf("SetField() error = %v", err)
	}
	// Second write to the same field is ignored, never overwritten.
	if err := store.SetField(ctx, rec.CallID, FieldCallerName, "Robert", now); err != nil {
		t.Fatalf("SetField() second write error = %v", err)
	}

	loaded, err := store.Load(ctx, rec.CallID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Fields.Name != "Jane" {
		t.Fatalf("expected name to stay %q, got %q", "Jane", loaded.Fields.Name)
	}
}

func TestStoreSetFieldClearsRetryCount(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	rec := seedRecord(t, store, "CA103")
	ctx := context.Background()
	now := rec.StartedAt.Add(time.Minute)

	for range 2 {
		if err := store.IncrementRetry(ctx, rec.CallID, StepName, now); err != nil {
			t.Fatalf("IncrementRetry() error = %v", err)
		}
	}
	if err := store.SetField(ctx, rec.CallID, FieldCallerName, "Jane", now); err != nil {
		t.Fatalf("SetField() error = %v", err)
	}

	loaded, err := store.Load(ctx, rec.CallID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := loaded.RetryCount(StepName); got != 0 {
		t.Fatalf("expected retry count cleared, got %d", got)
	}
}

func TestStoreSetIntentOncePerCall(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	rec := seedRecord(t, store, "CA104")
	ctx := context.Background()
	now := rec.StartedAt.Add(time.Minute)

	first := Intent{Type: IntentOpportunity, Confidence: 0.9, ClassifiedAt: now}
	if err := store.SetIntent(ctx, rec.CallID, first); err != nil {
		t.Fatalf("SetIntent() error = %v", err)
	}
	// A later non-scam verdict must not replace the persisted one.
	second := Intent{Type: IntentOther, Confidence: 0.8, ClassifiedAt: now.Add(time.Minute)}
	if err := store.SetIntent(ctx, rec.CallID, second); err != nil {
		t.Fatalf("SetIntent() second error = %v", err)
	}

	loaded, err := store.Load(ctx, rec.CallID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Intent == nil || loaded.Intent.Type != IntentOpportunity {
		t.Fatalf("expected persisted opportunity intent, got %+v", loaded.Intent)
	}

	// Scam always wins.
	scam := Intent{Type: IntentScam, Confidence: 0.95, ClassifiedAt: now.Add(2 * time.Minute)}
	if err := store.SetIntent(ctx, rec.CallID, scam); err != nil {
		t.Fatalf("SetIntent() scam error = %v", err)
	}
	loaded, err = store.Load(ctx, rec.CallID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Intent.Type != IntentScam {
		t.Fatalf("expected scam to replace the intent, got %s", loaded.Intent.Type)
	}

	// Nothing replaces scam.
	if err := store.SetIntent(ctx, rec.CallID, first); err != nil {
		t.Fatalf("SetIntent() after scam error = %v", err)
	}
	loaded, err = store.Load(ctx, rec.CallID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Intent.Type != IntentScam {
		t.Fatalf("scam verdict must be terminal, got %s", loaded.Intent.Type)
	}
}

func TestStoreMarkRecordCreatedIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	rec := seedRecord(t, store, "CA105")
	ctx := context.Background()
	now := rec.StartedAt.Add(time.Minute)

	for range 2 {
		if err := store.MarkRecordCreated(ctx, rec.CallID, now); err != nil {
			t.Fatalf("MarkRecordCreated() error = %v", err)
		}
	}

	loaded, err := store.Load(ctx, rec.CallID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !loaded.RecordCreated {
		t.Fatal("expected record-created flag set")
	}
}

func TestStoreIncrementRetry(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	rec := seedRecord(t, store, "CA106")
	ctx := context.Background()
	now := rec.StartedAt.Add(time.Minute)

	for i := 1; i <= 3; i++ {
		if err := store.IncrementRetry(ctx, rec.CallID, StepBackground, now); err != nil {
			t.Fatalf("IncrementRetry() error = %v", err)
		}
		loaded, err := store.Load(ctx, rec.CallID)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got := loaded.RetryCount(StepBackground); got != i {
			t.Fatalf("retry count = %d, want %d", got, i)
		}
	}
}

func TestStoreUpdateOnMissingRecord(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.SetField(ctx, "CA-missing", FieldCallerName, "Jane", now); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("SetField on missing record: expected ErrRecordNotFound, got %v", err)
	}
	if err := store.IncrementRetry(ctx, "CA-missing", StepName, now); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("IncrementRetry on missing record: expected ErrRecordNotFound, got %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	rec := seedRecord(t, store, "CA107")
	ctx := context.Background()

	if err := store.Delete(ctx, rec.CallID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, rec.CallID); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound after delete, got %v", err)
	}
}

func TestStoreKeyPrefixOption(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewRedisStore(client, WithKeyPrefix("custom:"), WithTTL(time.Hour))
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}

	rec := seedRecord(t, store, "CA108")
	if !mr.Exists("custom:" + rec.CallID) {
		t.Fatal("expected record under the custom key prefix")
	}
}
