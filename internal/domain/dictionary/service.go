package dictionary

import (
	"context"
	"fmt"
	"sync"
	"time"

	"refbook/internal/core/apperror"
	appctx "refbook/internal/core/context"
	"refbook/internal/core/id"
	"refbook/internal/infrastructure/cache"
	"refbook/pkg/logger"
)

// Mode tells the service where reads and writes go.
type Mode string

const (
	// ModeOnline dispatches to the backend and refreshes the fallback
	// snapshot on every successful read.
	ModeOnline Mode = "online"
	// ModeOffline serves reads from the local snapshot and journals
	// writes for later replay.
	ModeOffline Mode = "offline"
)

const (
	searchTTL = 60 * time.Second
	statsTTL  = 5 * time.Minute
)

// SyncResult reports one journal replay.
type SyncResult struct {
	Replayed int `json:"replayed"`
	Failed   int `json:"failed"`
}

// ServiceConfig wires the service dependencies. Upstream, Cache, Store and
// Validators are required; Auditor may be nil to disable the audit log.
type ServiceConfig struct {
	Upstream   Upstream
	Cache      Cache
	Store      Store
	Validators ValidatorRegistry
	Auditor    Auditor
	Logger     *logger.Logger
	Clock      func() time.Time
}

// Service orchestrates dictionary access: validation before writes, cache
// in front of reads, the backend while online and the local snapshot plus
// write journal while offline.
type Service struct {
	upstream   Upstream
	cache      Cache
	store      Store
	validators ValidatorRegistry
	auditor    Auditor
	log        *logger.Logger
	now        func() time.Time

	modeMu sync.RWMutex
	mode   Mode
}

// NewService builds a service starting in online mode.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Upstream == nil || cfg.Cache == nil || cfg.Store == nil || cfg.Validators == nil {
		return nil, fmt.Errorf("dictionary service: upstream, cache, store and validators are required")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Service{
		upstream:   cfg.Upstream,
		cache:      cfg.Cache,
		store:      cfg.Store,
		validators: cfg.Validators,
		auditor:    cfg.Auditor,
		log:        log.WithComponent("dictionary"),
		now:        now,
		mode:       ModeOnline,
	}, nil
}

// Mode returns the current mode.
func (s *Service) Mode() Mode {
	s.modeMu.RLock()
	defer s.modeMu.RUnlock()
	return s.mode
}

func (s *Service) online() bool { return s.Mode() == ModeOnline }

// SetMode switches the service mode. Coming back online replays the
// offline write journal in insertion order: replayed entries are removed,
// failed ones stay queued for the next attempt.
func (s *Service) SetMode(ctx context.Context, mode Mode) (SyncResult, error) {
	if mode != ModeOnline && mode != ModeOffline {
		return SyncResult{}, apperror.NewValidation(fmt.Sprintf("unknown mode: %q", mode))
	}
	s.modeMu.Lock()
	prev := s.mode
	s.mode = mode
	s.modeMu.Unlock()

	if prev == mode {
		return SyncResult{}, nil
	}
	s.log.WithContext(ctx).Infow("mode changed", "from", prev, "to", mode)
	s.cache.Clear()
	if mode == ModeOnline {
		return s.replayJournal(ctx), nil
	}
	return SyncResult{}, nil
}

// --- Reads ---

// GetItems lists a dictionary. Reads degrade rather than fail: when the
// backend is unreachable the last local snapshot is served, and when that
// is unreadable too the result is empty.
func (s *Service) GetItems(ctx context.Context, t Type) []Item {
	key := keyItems(t)
	if v, ok := s.cache.Get(key); ok {
		if items, ok := v.([]Item); ok {
			return items
		}
	}

	items := s.loadItems(ctx, t)
	s.cache.Set(key, items, 0, t.Tag())
	return items
}

func (s *Service) loadItems(ctx context.Context, t Type) []Item {
	if s.online() {
		items, err := s.upstream.List(ctx, t)
		if err == nil {
			if t.HasEndpoint() {
				if serr := s.store.ReplaceAll(ctx, t, items); serr != nil {
					s.log.WithContext(ctx).Warnw("snapshot refresh failed", "type", t, "error", serr)
				}
			}
			return items
		}
		s.log.WithContext(ctx).Warnw("upstream list failed, falling back to snapshot", "type", t, "error", err)
	}
	items, err := s.store.ListItems(ctx, t)
	if err != nil {
		s.log.WithContext(ctx).Errorw("snapshot read failed", "type", t, "error", err)
		return []Item{}
	}
	return items
}

// GetItem returns one record. A missing id is a not-found error; transport
// failures fall back to the local snapshot first.
func (s *Service) GetItem(ctx context.Context, t Type, itemID string) (Item, error) {
	key := keyItem(t, itemID)
	if v, ok := s.cache.Get(key); ok {
		if item, ok := v.(Item); ok {
			return item, nil
		}
	}

	if s.online() {
		item, err := s.upstream.Get(ctx, t, itemID)
		if err == nil {
			if perr := s.store.PutItem(ctx, item); perr != nil {
				s.log.WithContext(ctx).Warnw("snapshot put failed", "type", t, "id", itemID, "error", perr)
			}
			s.cache.Set(key, item, 0, t.Tag())
			return item, nil
		}
		if apperror.IsNotFound(err) {
			return nil, err
		}
		s.log.WithContext(ctx).Warnw("upstream get failed, falling back to snapshot", "type", t, "id", itemID, "error", err)
	}

	item, err := s.store.GetItem(ctx, t, itemID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, item, 0, t.Tag())
	return item, nil
}

// SearchItems matches name and code, case-insensitive. An empty query
// lists everything. Results are cached briefly: search churns too much for
// the default TTL.
func (s *Service) SearchItems(ctx context.Context, t Type, query string) []Item {
	if query == "" {
		return s.GetItems(ctx, t)
	}
	key := keySearch(t, query)
	if v, ok := s.cache.Get(key); ok {
		if items, ok := v.([]Item); ok {
			return items
		}
	}

	var items []Item
	if s.online() {
		found, err := s.upstream.Search(ctx, t, query)
		if err == nil {
			items = found
		} else {
			s.log.WithContext(ctx).Warnw("upstream search failed, searching snapshot", "type", t, "error", err)
		}
	}
	if items == nil {
		items = Search(s.loadItemsLocal(ctx, t), query)
	}
	s.cache.Set(key, items, searchTTL, t.Tag())
	return items
}

func (s *Service) loadItemsLocal(ctx context.Context, t Type) []Item {
	items, err := s.store.ListItems(ctx, t)
	if err != nil {
		s.log.WithContext(ctx).Errorw("snapshot read failed", "type", t, "error", err)
		return []Item{}
	}
	return items
}

// FilterItems applies conjunctive filters over the full list.
func (s *Service) FilterItems(ctx context.Context, t Type, filters Filters) []Item {
	if len(filters) == 0 {
		return s.GetItems(ctx, t)
	}
	key := keyFilter(t, filters)
	if v, ok := s.cache.Get(key); ok {
		if items, ok := v.([]Item); ok {
			return items
		}
	}
	items := filters.Apply(s.GetItems(ctx, t))
	s.cache.Set(key, items, searchTTL, t.Tag())
	return items
}

// GetStatistics summarizes one dictionary. While online the backend is
// asked first; otherwise counts are derived from the local snapshot.
func (s *Service) GetStatistics(ctx context.Context, t Type) Statistics {
	key := keyStatistics(t)
	if v, ok := s.cache.Get(key); ok {
		if stats, ok := v.(Statistics); ok {
			return stats
		}
	}

	var (
		stats Statistics
		got   bool
	)
	if s.online() {
		fetched, err := s.upstream.Statistics(ctx, t)
		if err == nil {
			stats, got = fetched, true
		} else {
			s.log.WithContext(ctx).Warnw("upstream statistics failed, deriving locally", "type", t, "error", err)
		}
	}
	if !got {
		stats = CalculateStatistics(s.loadItemsLocal(ctx, t), s.now())
	}
	s.cache.Set(key, stats, statsTTL, t.Tag(), tagStatistics)
	return stats
}

// --- Writes ---

func (s *Service) checkWritable(t Type, op string) error {
	if t.ReadOnly() {
		return apperror.NewReadOnly(string(t))
	}
	if !t.HasEndpoint() {
		return apperror.NewNotSupported(string(t), op)
	}
	return nil
}

func (s *Service) validate(t Type, item Item) error {
	res := s.validators.Validate(t, item)
	if res.Valid {
		return nil
	}
	return apperror.NewValidation("validation failed").WithDetail("errors", res.Errors)
}

// ValidateItem runs the type's validator without persisting anything, so
// clients can check a form before submitting it.
func (s *Service) ValidateItem(t Type, item Item) ValidationResult {
	return s.validators.Validate(t, item)
}

// CreateItem validates and persists a new record. Offline creates get a
// temporary offline id and version 1, and are journaled for replay.
func (s *Service) CreateItem(ctx context.Context, t Type, item Item) (Item, error) {
	if err := s.checkWritable(t, "create"); err != nil {
		return nil, err
	}
	if err := s.validate(t, item); err != nil {
		return nil, err
	}

	if s.online() {
		created, err := s.upstream.Create(ctx, t, item)
		if err != nil {
			return nil, err
		}
		if perr := s.store.PutItem(ctx, created); perr != nil {
			s.log.WithContext(ctx).Warnw("snapshot put failed", "type", t, "error", perr)
		}
		s.audit(ctx, AuditActionCreate, created)
		s.invalidateType(t)
		return created, nil
	}

	now := s.now().UTC()
	meta := item.Meta()
	meta.ID = id.NewOffline(now)
	meta.Version = 1
	meta.CreatedAt = now
	meta.UpdatedAt = now
	meta.CreatedBy = appctx.GetUserID(ctx)
	meta.UpdatedBy = meta.CreatedBy

	if err := s.store.PutItem(ctx, item); err != nil {
		return nil, err
	}
	if err := s.store.Enqueue(ctx, OpCreate, t, meta.ID, item); err != nil {
		return nil, err
	}
	s.audit(ctx, AuditActionCreate, item)
	s.invalidateType(t)
	return item, nil
}

// UpdateItem validates and replaces a record. Offline updates keep the
// original creation metadata and bump the version.
func (s *Service) UpdateItem(ctx context.Context, t Type, itemID string, item Item) (Item, error) {
	if err := s.checkWritable(t, "update"); err != nil {
		return nil, err
	}
	if err := s.validate(t, item); err != nil {
		return nil, err
	}
	item.Meta().ID = itemID

	if s.online() {
		updated, err := s.upstream.Update(ctx, t, itemID, item)
		if err != nil {
			return nil, err
		}
		if perr := s.store.PutItem(ctx, updated); perr != nil {
			s.log.WithContext(ctx).Warnw("snapshot put failed", "type", t, "id", itemID, "error", perr)
		}
		s.audit(ctx, AuditActionUpdate, updated)
		s.invalidateType(t)
		return updated, nil
	}

	now := s.now().UTC()
	meta := item.Meta()
	if existing, err := s.store.GetItem(ctx, t, itemID); err == nil {
		prev := existing.Meta()
		meta.CreatedAt = prev.CreatedAt
		meta.CreatedBy = prev.CreatedBy
		meta.Version = prev.Version + 1
	} else if !apperror.IsNotFound(err) {
		return nil, err
	} else {
		meta.Version = 1
		meta.CreatedAt = now
	}
	meta.UpdatedAt = now
	meta.UpdatedBy = appctx.GetUserID(ctx)

	if err := s.store.PutItem(ctx, item); err != nil {
		return nil, err
	}
	if err := s.store.Enqueue(ctx, OpUpdate, t, itemID, item); err != nil {
		return nil, err
	}
	s.audit(ctx, AuditActionUpdate, item)
	s.invalidateType(t)
	return item, nil
}

// DeleteItem removes a record.
func (s *Service) DeleteItem(ctx context.Context, t Type, itemID string) error {
	if err := s.checkWritable(t, "delete"); err != nil {
		return err
	}

	if s.online() {
		if err := s.upstream.Delete(ctx, t, itemID); err != nil {
			return err
		}
		if derr := s.store.DeleteItem(ctx, t, itemID); derr != nil {
			s.log.WithContext(ctx).Warnw("snapshot delete failed", "type", t, "id", itemID, "error", derr)
		}
	} else {
		if err := s.store.DeleteItem(ctx, t, itemID); err != nil {
			return err
		}
		if err := s.store.Enqueue(ctx, OpDelete, t, itemID, nil); err != nil {
			return err
		}
	}
	if s.auditor != nil {
		if err := s.auditor.LogDeletion(ctx, t, itemID); err != nil {
			s.log.WithContext(ctx).Warnw("audit write failed", "type", t, "id", itemID, "error", err)
		}
	}
	s.invalidateType(t)
	return nil
}

// --- Bulk ---

// BulkCreate creates items one by one, collecting per-item failures
// instead of aborting.
func (s *Service) BulkCreate(ctx context.Context, t Type, items []Item) BulkResult {
	// Validation is all-or-nothing: a single invalid item stops the whole
	// batch before any I/O happens.
	var res BulkResult
	for i, item := range items {
		if err := s.validate(t, item); err != nil {
			res.Errors = append(res.Errors, BulkError{Index: i, Error: err.Error()})
		}
	}
	if len(res.Errors) > 0 {
		res.ErrorCount = len(res.Errors)
		return res
	}

	for i, item := range items {
		created, err := s.CreateItem(ctx, t, item)
		if err != nil {
			res.ErrorCount++
			res.Errors = append(res.Errors, BulkError{Index: i, Error: err.Error()})
			continue
		}
		res.SuccessCount++
		res.Items = append(res.Items, created)
	}
	return res
}

// BulkUpdate applies updates one by one.
func (s *Service) BulkUpdate(ctx context.Context, t Type, entries []BulkUpdateEntry) BulkResult {
	var res BulkResult
	for i, entry := range entries {
		updated, err := s.UpdateItem(ctx, t, entry.ID, entry.Item)
		if err != nil {
			res.ErrorCount++
			res.Errors = append(res.Errors, BulkError{ID: entry.ID, Index: i, Error: err.Error()})
			continue
		}
		res.SuccessCount++
		res.Items = append(res.Items, updated)
	}
	return res
}

// BulkDelete removes ids one by one.
func (s *Service) BulkDelete(ctx context.Context, t Type, ids []string) BulkResult {
	var res BulkResult
	for i, itemID := range ids {
		if err := s.DeleteItem(ctx, t, itemID); err != nil {
			res.ErrorCount++
			res.Errors = append(res.Errors, BulkError{ID: itemID, Index: i, Error: err.Error()})
			continue
		}
		res.SuccessCount++
	}
	return res
}

// --- Cache admin ---

// CacheStats exposes the cache snapshot for the admin endpoint.
func (s *Service) CacheStats() cache.Stats { return s.cache.GetStats() }

// ClearCache drops every cached entry.
func (s *Service) ClearCache() { s.cache.Clear() }

// PendingCount reports how many offline writes await replay.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.store.PendingCount(ctx)
}

// --- Internals ---

func (s *Service) audit(ctx context.Context, action AuditAction, item Item) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.LogItem(ctx, action, item); err != nil {
		s.log.WithContext(ctx).Warnw("audit write failed", "type", item.Kind(), "id", item.Meta().ID, "error", err)
	}
}

func (s *Service) invalidateType(t Type) {
	s.cache.InvalidateByTags(t.Tag())
	if _, err := s.cache.InvalidatePattern(keyPrefixPattern(t)); err != nil {
		s.log.Warnw("cache pattern invalidation failed", "type", t, "error", err)
	}
	s.cache.InvalidateByTags(tagStatistics)
}

// replayJournal pushes queued offline writes to the backend in order.
// Failures stay queued; a later SetMode(online) retries them.
func (s *Service) replayJournal(ctx context.Context) SyncResult {
	ops, err := s.store.PendingOps(ctx)
	if err != nil {
		s.log.WithContext(ctx).Errorw("journal read failed", "error", err)
		return SyncResult{}
	}
	var res SyncResult
	touched := map[Type]struct{}{}
	// Offline creates get real ids during replay; later journal entries
	// that still name the offline id are remapped through this table.
	idMap := map[string]string{}
	for _, op := range ops {
		if err := s.replayOp(ctx, op, idMap); err != nil {
			res.Failed++
			s.log.WithContext(ctx).Warnw("journal replay failed",
				"op", op.Op, "type", op.Type, "id", op.ItemID, "error", err)
			continue
		}
		if err := s.store.RemovePendingOp(ctx, op.ID); err != nil {
			s.log.WithContext(ctx).Errorw("journal entry removal failed", "id", op.ID, "error", err)
		}
		res.Replayed++
		touched[op.Type] = struct{}{}
	}
	for t := range touched {
		s.invalidateType(t)
	}
	if res.Replayed > 0 || res.Failed > 0 {
		s.log.WithContext(ctx).Infow("journal replay finished", "replayed", res.Replayed, "failed", res.Failed)
	}
	return res
}

func (s *Service) replayOp(ctx context.Context, op PendingOp, idMap map[string]string) error {
	targetID := op.ItemID
	if real, ok := idMap[targetID]; ok {
		targetID = real
	}
	switch op.Op {
	case OpCreate:
		item, err := s.decodePayload(op)
		if err != nil {
			return err
		}
		// The backend assigns the real id; drop the offline one.
		item.Meta().ID = ""
		created, err := s.upstream.Create(ctx, op.Type, item)
		if err != nil {
			return err
		}
		idMap[op.ItemID] = created.Meta().ID
		if derr := s.store.DeleteItem(ctx, op.Type, op.ItemID); derr != nil {
			s.log.WithContext(ctx).Warnw("offline record cleanup failed", "id", op.ItemID, "error", derr)
		}
		return s.store.PutItem(ctx, created)
	case OpUpdate:
		item, err := s.decodePayload(op)
		if err != nil {
			return err
		}
		if id.IsOffline(targetID) {
			// The create that would have produced a real id failed or is
			// still queued; retry this update next replay.
			return fmt.Errorf("record %s has no backend id yet", op.ItemID)
		}
		item.Meta().ID = targetID
		updated, err := s.upstream.Update(ctx, op.Type, targetID, item)
		if err != nil {
			return err
		}
		return s.store.PutItem(ctx, updated)
	case OpDelete:
		if id.IsOffline(targetID) {
			return fmt.Errorf("record %s has no backend id yet", op.ItemID)
		}
		if err := s.upstream.Delete(ctx, op.Type, targetID); err != nil {
			return err
		}
		if derr := s.store.DeleteItem(ctx, op.Type, targetID); derr != nil {
			s.log.WithContext(ctx).Warnw("snapshot delete failed", "id", targetID, "error", derr)
		}
		return nil
	}
	return fmt.Errorf("unknown journal op: %q", op.Op)
}

func (s *Service) decodePayload(op PendingOp) (Item, error) {
	if len(op.Payload) == 0 {
		return nil, fmt.Errorf("journal entry %d has no payload", op.ID)
	}
	item, err := DecodeItem(op.Type, op.Payload)
	if err != nil {
		return nil, err
	}
	return item, nil
}
