package sqlite

import (
	"context"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"

	"refbook/internal/core/apperror"
	"refbook/internal/domain/dictionary"
)

// Enqueue appends an offline write to the journal.
func (s *Store) Enqueue(ctx context.Context, op dictionary.PendingOpKind, t dictionary.Type, itemID string, item dictionary.Item) error {
	var payload []byte
	if item != nil {
		var err error
		payload, err = json.Marshal(item)
		if err != nil {
			return apperror.NewStorage(err)
		}
	}
	query, args, err := s.sb.
		Insert("pending_operations").
		Columns("created_at", "op", "type", "item_id", "payload").
		Values(s.now().UTC(), string(op), string(t), itemID, string(payload)).
		ToSql()
	if err != nil {
		return apperror.NewStorage(err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return apperror.NewStorage(err)
	}
	return nil
}

// PendingOps returns the journal in insertion order.
func (s *Store) PendingOps(ctx context.Context) ([]dictionary.PendingOp, error) {
	query, args, err := s.sb.
		Select("id", "created_at", "op", "type", "item_id", "payload").
		From("pending_operations").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, apperror.NewStorage(err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperror.NewStorage(err)
	}
	defer rows.Close()

	var ops []dictionary.PendingOp
	for rows.Next() {
		var (
			op      dictionary.PendingOp
			kind    string
			typ     string
			payload string
		)
		if err := rows.Scan(&op.ID, &op.CreatedAt, &kind, &typ, &op.ItemID, &payload); err != nil {
			return nil, apperror.NewStorage(err)
		}
		op.Op = dictionary.PendingOpKind(kind)
		op.Type = dictionary.Type(typ)
		if payload != "" {
			op.Payload = json.RawMessage(payload)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// RemovePendingOp deletes a replayed journal entry.
func (s *Store) RemovePendingOp(ctx context.Context, id int64) error {
	query, args, err := s.sb.
		Delete("pending_operations").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return apperror.NewStorage(err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return apperror.NewStorage(err)
	}
	return nil
}

// PendingCount reports the journal depth. Shown on the admin mode endpoint.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	query, args, err := s.sb.
		Select("COUNT(*)").
		From("pending_operations").
		ToSql()
	if err != nil {
		return 0, apperror.NewStorage(err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, apperror.NewStorage(err)
	}
	return n, nil
}
