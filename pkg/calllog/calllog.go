// Package calllog provides a Postgres-backed call-log sink for deployments
// that run without the dispatch backend service.
package calllog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
)

type Config struct {
	DSN string `split_words:"true" required:"true"`
}

type callLogRow struct {
	bun.BaseModel `bun:"table:call_logs"`

	ID           int64     `bun:"id,pk,autoincrement"`
	CallID       string    `bun:"call_sid,notnull,unique"`
	OwnerID      string    `bun:"user_id,notnull"`
	CallerNumber string    `bun:"caller_number"`
	CallerName   string    `bun:"caller_name"`
	StartedAt    time.Time `bun:"start_at,notnull"`
	Intent       string    `bun:"intent,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Repository stores call-log entries in Postgres via bun.
type Repository struct {
	db *bun.DB
}

var _ contractx.CallLogBackend = (*Repository)(nil)

func NewRepository(cfg Config) (*Repository, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	return &Repository{db: db}, nil
}

// EnsureSchema creates the call_logs table if it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*callLogRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create call_logs table: %w", err)
	}
	return nil
}

// CreateCallLog inserts the entry, ignoring duplicates for the same call so
// a retried creation stays idempotent.
func (r *Repository) CreateCallLog(ctx context.Context, entry contractx.CallLogEntry) error {
	if strings.TrimSpace(entry.CallID) == "" {
		return errors.New("call id is required")
	}

	row := &callLogRow{
		CallID:       entry.CallID,
		OwnerID:      entry.OwnerID,
		CallerNumber: entry.CallerNumber,
		CallerName:   entry.CallerName,
		StartedAt:    entry.StartedAt.UTC(),
		Intent:       string(entry.Intent),
		CreatedAt:    time.Now().UTC(),
	}

	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (call_sid) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert call log: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
