package dictionary

import (
	"context"
	"encoding/json"
	"time"

	"refbook/internal/infrastructure/cache"
)

// Upstream is the backend API surface the service dispatches to while
// online.
type Upstream interface {
	List(ctx context.Context, t Type) ([]Item, error)
	Get(ctx context.Context, t Type, id string) (Item, error)
	Create(ctx context.Context, t Type, item Item) (Item, error)
	Update(ctx context.Context, t Type, id string, item Item) (Item, error)
	Delete(ctx context.Context, t Type, id string) error
	Search(ctx context.Context, t Type, query string) ([]Item, error)
	Statistics(ctx context.Context, t Type) (Statistics, error)
	Export(ctx context.Context, t Type, opts ExportOptions) (*ExportResult, error)
	Template(ctx context.Context, t Type, format ExportFormat) (*ExportResult, error)
	Import(ctx context.Context, t Type, filename string, content []byte) (ImportResult, error)
}

// Cache is the read cache. Implemented by cache.TTLCache.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration, tags ...string)
	Invalidate(key string)
	InvalidatePattern(pattern string) (int, error)
	InvalidateByTags(tags ...string) int
	Clear()
	GetStats() cache.Stats
}

// PendingOpKind is a journaled offline write.
type PendingOpKind string

const (
	OpCreate PendingOpKind = "create"
	OpUpdate PendingOpKind = "update"
	OpDelete PendingOpKind = "delete"
)

// PendingOp is one offline write awaiting replay against the backend.
// Payload is the full item for creates and updates, empty for deletes.
type PendingOp struct {
	ID        int64
	CreatedAt time.Time
	Op        PendingOpKind
	Type      Type
	ItemID    string
	Payload   json.RawMessage
}

// Store is the local fallback storage: last known snapshot per dictionary
// plus the offline write journal.
type Store interface {
	ListItems(ctx context.Context, t Type) ([]Item, error)
	GetItem(ctx context.Context, t Type, id string) (Item, error)
	PutItem(ctx context.Context, item Item) error
	DeleteItem(ctx context.Context, t Type, id string) error
	ReplaceAll(ctx context.Context, t Type, items []Item) error

	Enqueue(ctx context.Context, op PendingOpKind, t Type, itemID string, item Item) error
	PendingOps(ctx context.Context) ([]PendingOp, error)
	RemovePendingOp(ctx context.Context, id int64) error
	PendingCount(ctx context.Context) (int, error)
}

// AuditAction is the kind of mutation recorded in the audit log.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionImport AuditAction = "import"
)

// Auditor records dictionary mutations. Audit failures are logged and
// swallowed: an audit hiccup must never fail the write itself.
type Auditor interface {
	LogItem(ctx context.Context, action AuditAction, item Item) error
	LogDeletion(ctx context.Context, t Type, id string) error
}
