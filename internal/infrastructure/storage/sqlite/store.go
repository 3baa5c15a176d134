// Package sqlite is the local fallback store. When the backend is
// unreachable the service keeps serving reads from the last snapshot here
// and journals writes for replay once connectivity returns.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	_ "modernc.org/sqlite"

	"refbook/internal/core/apperror"
	"refbook/internal/domain/dictionary"
	"refbook/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS dictionary_items (
    type       TEXT NOT NULL,
    id         TEXT NOT NULL,
    data       TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (type, id)
);

CREATE TABLE IF NOT EXISTS audit_log (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    occurred_at TIMESTAMP NOT NULL,
    user_id    TEXT NOT NULL DEFAULT '',
    action     TEXT NOT NULL,
    type       TEXT NOT NULL,
    item_id    TEXT NOT NULL,
    payload    BLOB,
    compressed INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_audit_type ON audit_log(type, occurred_at);

CREATE TABLE IF NOT EXISTS pending_operations (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP NOT NULL,
    op         TEXT NOT NULL,
    type       TEXT NOT NULL,
    item_id    TEXT NOT NULL,
    payload    TEXT
);
`

// Store is the sqlite-backed fallback storage. A single connection pool is
// shared by the snapshot, audit and journal tables.
type Store struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	log *logger.Logger
	now func() time.Time
}

// Open opens (or creates) the database file and applies the schema.
// Pass ":memory:" for an ephemeral store in tests.
func Open(path string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc.org/sqlite serializes writes itself; a single connection
	// avoids SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		log: log.WithComponent("sqlite"),
		now: time.Now,
	}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database is reachable. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// ListItems returns the stored snapshot of one dictionary.
func (s *Store) ListItems(ctx context.Context, t dictionary.Type) ([]dictionary.Item, error) {
	query, args, err := s.sb.
		Select("data").
		From("dictionary_items").
		Where(sq.Eq{"type": string(t)}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, apperror.NewStorage(err)
	}
	var rows []string
	if err := sqlscan.Select(ctx, s.db, &rows, query, args...); err != nil {
		return nil, apperror.NewStorage(err)
	}
	items := make([]dictionary.Item, 0, len(rows))
	for _, data := range rows {
		item, err := dictionary.DecodeItem(t, []byte(data))
		if err != nil {
			return nil, apperror.NewStorage(err)
		}
		items = append(items, item)
	}
	return items, nil
}

// GetItem returns one stored item.
func (s *Store) GetItem(ctx context.Context, t dictionary.Type, id string) (dictionary.Item, error) {
	query, args, err := s.sb.
		Select("data").
		From("dictionary_items").
		Where(sq.Eq{"type": string(t), "id": id}).
		ToSql()
	if err != nil {
		return nil, apperror.NewStorage(err)
	}
	var data string
	if err := sqlscan.Get(ctx, s.db, &data, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NewNotFound(string(t), id)
		}
		return nil, apperror.NewStorage(err)
	}
	return dictionary.DecodeItem(t, []byte(data))
}

// PutItem upserts one item into the snapshot.
func (s *Store) PutItem(ctx context.Context, item dictionary.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return apperror.NewStorage(err)
	}
	meta := item.Meta()
	query, args, err := s.sb.
		Insert("dictionary_items").
		Columns("type", "id", "data", "updated_at").
		Values(string(item.Kind()), meta.ID, string(data), s.now().UTC()).
		Suffix("ON CONFLICT(type, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return apperror.NewStorage(err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return apperror.NewStorage(err)
	}
	return nil
}

// DeleteItem removes one item from the snapshot.
func (s *Store) DeleteItem(ctx context.Context, t dictionary.Type, id string) error {
	query, args, err := s.sb.
		Delete("dictionary_items").
		Where(sq.Eq{"type": string(t), "id": id}).
		ToSql()
	if err != nil {
		return apperror.NewStorage(err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return apperror.NewStorage(err)
	}
	return nil
}

// ReplaceAll swaps the whole snapshot of one dictionary in a transaction.
// Called after every successful online list to keep the fallback fresh.
func (s *Store) ReplaceAll(ctx context.Context, t dictionary.Type, items []dictionary.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperror.NewStorage(err)
	}
	defer tx.Rollback()

	delQuery, delArgs, err := s.sb.
		Delete("dictionary_items").
		Where(sq.Eq{"type": string(t)}).
		ToSql()
	if err != nil {
		return apperror.NewStorage(err)
	}
	if _, err := tx.ExecContext(ctx, delQuery, delArgs...); err != nil {
		return apperror.NewStorage(err)
	}

	now := s.now().UTC()
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return apperror.NewStorage(err)
		}
		insQuery, insArgs, err := s.sb.
			Insert("dictionary_items").
			Columns("type", "id", "data", "updated_at").
			Values(string(t), item.Meta().ID, string(data), now).
			ToSql()
		if err != nil {
			return apperror.NewStorage(err)
		}
		if _, err := tx.ExecContext(ctx, insQuery, insArgs...); err != nil {
			return apperror.NewStorage(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperror.NewStorage(err)
	}
	return nil
}
