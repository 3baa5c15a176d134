package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/klauspost/compress/zstd"

	"refbook/internal/core/apperror"
	appctx "refbook/internal/core/context"
	"refbook/internal/domain/dictionary"
)

// AuditEntry is one recorded dictionary mutation. Payload holds the item
// as it was written; large payloads are stored zstd-compressed.
type AuditEntry struct {
	ID         int64                  `db:"id"`
	OccurredAt time.Time              `db:"occurred_at"`
	UserID     string                 `db:"user_id"`
	Action     dictionary.AuditAction `db:"action"`
	Type       dictionary.Type        `db:"type"`
	ItemID     string                 `db:"item_id"`
	Payload    json.RawMessage        `db:"payload"`
}

type auditRow struct {
	ID         int64     `db:"id"`
	OccurredAt time.Time `db:"occurred_at"`
	UserID     string    `db:"user_id"`
	Action     string    `db:"action"`
	Type       string    `db:"type"`
	ItemID     string    `db:"item_id"`
	Payload    []byte    `db:"payload"`
	Compressed bool      `db:"compressed"`
}

// Auditor writes and reads the dictionary audit log.
type Auditor struct {
	store             *Store
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditor builds an auditor over an open store. Payloads above 10KB are
// compressed before insert.
func NewAuditor(store *Store) (*Auditor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Auditor{
		store:             store,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Log records a mutation. The acting user is taken from the context when
// the entry does not name one.
func (a *Auditor) Log(ctx context.Context, entry AuditEntry) error {
	if entry.UserID == "" {
		entry.UserID = appctx.GetUserID(ctx)
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = a.store.now().UTC()
	}

	payload := []byte(entry.Payload)
	compressed := false
	if len(payload) > a.compressThreshold {
		payload = a.encoder.EncodeAll(payload, nil)
		compressed = true
	}

	query, args, err := a.store.sb.
		Insert("audit_log").
		Columns("occurred_at", "user_id", "action", "type", "item_id", "payload", "compressed").
		Values(entry.OccurredAt, entry.UserID, string(entry.Action), string(entry.Type), entry.ItemID, payload, compressed).
		ToSql()
	if err != nil {
		return apperror.NewStorage(err)
	}
	if _, err := a.store.db.ExecContext(ctx, query, args...); err != nil {
		return apperror.NewStorage(err)
	}
	return nil
}

// LogItem records a mutation with the item itself as payload.
func (a *Auditor) LogItem(ctx context.Context, action dictionary.AuditAction, item dictionary.Item) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return apperror.NewStorage(err)
	}
	return a.Log(ctx, AuditEntry{
		Action:  action,
		Type:    item.Kind(),
		ItemID:  item.Meta().ID,
		Payload: payload,
	})
}

// LogDeletion records a removal. No payload: the record is already gone.
func (a *Auditor) LogDeletion(ctx context.Context, t dictionary.Type, id string) error {
	return a.Log(ctx, AuditEntry{
		Action: dictionary.AuditActionDelete,
		Type:   t,
		ItemID: id,
	})
}

// History returns the most recent entries for one record, newest first.
func (a *Auditor) History(ctx context.Context, t dictionary.Type, itemID string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query, args, err := a.store.sb.
		Select("id", "occurred_at", "user_id", "action", "type", "item_id", "payload", "compressed").
		From("audit_log").
		Where(sq.Eq{"type": string(t), "item_id": itemID}).
		OrderBy("occurred_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, apperror.NewStorage(err)
	}

	rows, err := a.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperror.NewStorage(err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var r auditRow
		if err := rows.Scan(&r.ID, &r.OccurredAt, &r.UserID, &r.Action, &r.Type, &r.ItemID, &r.Payload, &r.Compressed); err != nil {
			return nil, apperror.NewStorage(err)
		}
		payload := r.Payload
		if r.Compressed && len(payload) > 0 {
			payload, err = a.decoder.DecodeAll(payload, nil)
			if err != nil {
				return nil, apperror.NewStorage(fmt.Errorf("decompress audit payload: %w", err))
			}
		}
		entries = append(entries, AuditEntry{
			ID:         r.ID,
			OccurredAt: r.OccurredAt,
			UserID:     r.UserID,
			Action:     dictionary.AuditAction(r.Action),
			Type:       dictionary.Type(r.Type),
			ItemID:     r.ItemID,
			Payload:    payload,
		})
	}
	return entries, rows.Err()
}
