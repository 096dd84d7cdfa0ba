package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var (
	ErrRecordNotFound  = errors.New("call record not found")
	ErrRecordMalformed = errors.New("call record is malformed")
)

const (
	defaultStoreKeyPrefix = "call:skeleton:"
	defaultStoreTTL       = 24 * time.Hour
)

// Store is the record-store contract consumed by the turn strategies.
// Implementations serialise read-modify-write per call id; concurrent turns
// for the same call are a caller error, not a protected race.
type Store interface {
	Load(ctx context.Context, callID string) (*CallRecord, error)
	Save(ctx context.Context, rec *CallRecord) error
	AppendTurn(ctx context.Context, callID string, turn Turn) error
	SetField(ctx context.Context, callID string, field FieldName, value string, now time.Time) error
	SetIntent(ctx context.Context, callID string, intent Intent) error
	MarkRecordCreated(ctx context.Context, callID string, now time.Time) error
	IncrementRetry(ctx context.Context, callID string, step Step, now time.Time) error
	Delete(ctx context.Context, callID string) error
}

// StoreOption customizes RedisStore.
type StoreOption func(*RedisStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *RedisStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// RedisStore persists CallRecord documents as JSON values keyed by call id.
type RedisStore struct {
	client    goredis.Cmdable
	keyPrefix string
	ttl       time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client goredis.Cmdable, opts ...StoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}

	store := &RedisStore{
		client:    client,
		keyPrefix: defaultStoreKeyPrefix,
		ttl:       defaultStoreTTL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return store, nil
}

func (s *RedisStore) Load(ctx context.Context, callID string) (*CallRecord, error) {
	key, err := s.redisKey(callID)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("load call record: %w", err)
	}

	var rec CallRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordMalformed, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordMalformed, err)
	}

	return &rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec *CallRecord) error {
	if rec == nil {
		return ErrNilRecord
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrRecordMalformed, err)
	}

	key, err := s.redisKey(rec.CallID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal call record: %w", err)
	}

	if err := s.client.Set(ctx, key, string(payload), s.ttl).Err(); err != nil {
		return fmt.Errorf("save call record: %w", err)
	}
	return nil
}

// AppendTurn records one utterance at the end of the call history.
func (s *RedisStore) AppendTurn(ctx context.Context, callID string, turn Turn) error {
	return s.update(ctx, callID, func(rec *CallRecord) (bool, error) {
		if strings.TrimSpace(turn.Text) == "" {
			return false, nil
		}
		rec.History = append(rec.History, turn)
		rec.Touch(turn.StartedAt)
		return true, nil
	})
}

// SetField writes a collected field. A field that is already populated is
// left untouched: collection steps never re-collect.
func (s *RedisStore) SetField(ctx context.Context, callID string, field FieldName, value string, now time.Time) error {
	return s.update(ctx, callID, func(rec *CallRecord) (bool, error) {
		set, err := rec.SetFieldValue(field, value)
		if err != nil {
			return false, err
		}
		if !set {
			return false, nil
		}
		if rec.RetryCounts != nil {
			delete(rec.RetryCounts, StepForField(field))
		}
		rec.Touch(now)
		return true, nil
	})
}

// SetIntent persists the classification once per call. A scam verdict
// replaces an earlier non-scam one; nothing replaces scam.
func (s *RedisStore) SetIntent(ctx context.Context, callID string, intent Intent) error {
	return s.update(ctx, callID, func(rec *CallRecord) (bool, error) {
		if rec.Intent != nil {
			if rec.Intent.Type == IntentScam || intent.Type != IntentScam {
				return false, nil
			}
		}
		cp := intent
		cp.ClassifiedAt = intent.ClassifiedAt.UTC()
		rec.Intent = &cp
		rec.Touch(intent.ClassifiedAt)
		return true, nil
	})
}

func (s *RedisStore) MarkRecordCreated(ctx context.Context, callID string, now time.Time) error {
	return s.update(ctx, callID, func(rec *CallRecord) (bool, error) {
		if rec.RecordCreated {
			return false, nil
		}
		rec.RecordCreated = true
		rec.Touch(now)
		return true, nil
	})
}

func (s *RedisStore) IncrementRetry(ctx context.Context, callID string, step Step, now time.Time) error {
	return s.update(ctx, callID, func(rec *CallRecord) (bool, error) {
		if rec.RetryCounts == nil {
			rec.RetryCounts = make(map[Step]int, 3)
		}
		rec.RetryCounts[step]++
		rec.Touch(now)
		return true, nil
	})
}

func (s *RedisStore) Delete(ctx context.Context, callID string) error {
	key, err := s.redisKey(callID)
	if err != nil {
		return err
	}
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) update(ctx context.Context, callID string, apply func(*CallRecord) (bool, error)) error {
	rec, err := s.Load(ctx, callID)
	if err != nil {
		return err
	}

	changed, err := apply(rec)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	return s.Save(ctx, rec)
}

func (s *RedisStore) redisKey(callID string) (string, error) {
	if strings.TrimSpace(callID) == "" {
		return "", ErrInvalidCallID
	}
	return s.keyPrefix + callID, nil
}
