package dictionary_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refbook/internal/core/apperror"
	appctx "refbook/internal/core/context"
	"refbook/internal/core/id"
	"refbook/internal/domain/dictionary"
	"refbook/internal/domain/dictionary/validation"
	"refbook/internal/infrastructure/cache"
	"refbook/internal/infrastructure/storage/sqlite"
	"refbook/pkg/logger"
)

// fakeUpstream is an in-memory backend double. Setting failWith makes every
// call return that error, mimicking an unreachable backend.
type fakeUpstream struct {
	mu       sync.Mutex
	items    map[dictionary.Type]map[string]dictionary.Item
	failWith error
	nextID   int
	calls    []string
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{items: map[dictionary.Type]map[string]dictionary.Item{}}
}

func (f *fakeUpstream) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeUpstream) bucket(t dictionary.Type) map[string]dictionary.Item {
	if f.items[t] == nil {
		f.items[t] = map[string]dictionary.Item{}
	}
	return f.items[t]
}

func (f *fakeUpstream) List(ctx context.Context, t dictionary.Type) ([]dictionary.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list:" + string(t))
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []dictionary.Item
	for _, item := range f.bucket(t) {
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeUpstream) Get(ctx context.Context, t dictionary.Type, itemID string) (dictionary.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("get:" + itemID)
	if f.failWith != nil {
		return nil, f.failWith
	}
	item, ok := f.bucket(t)[itemID]
	if !ok {
		return nil, apperror.NewNotFound(string(t), itemID)
	}
	return item, nil
}

func (f *fakeUpstream) Create(ctx context.Context, t dictionary.Type, item dictionary.Item) (dictionary.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create:" + string(t))
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.nextID++
	meta := item.Meta()
	meta.ID = fmt.Sprintf("srv-%d", f.nextID)
	meta.Version = 1
	meta.CreatedAt = time.Now().UTC()
	meta.UpdatedAt = meta.CreatedAt
	f.bucket(t)[meta.ID] = item
	return item, nil
}

func (f *fakeUpstream) Update(ctx context.Context, t dictionary.Type, itemID string, item dictionary.Item) (dictionary.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("update:" + itemID)
	if f.failWith != nil {
		return nil, f.failWith
	}
	prev, ok := f.bucket(t)[itemID]
	if !ok {
		return nil, apperror.NewNotFound(string(t), itemID)
	}
	meta := item.Meta()
	meta.ID = itemID
	meta.Version = prev.Meta().Version + 1
	meta.UpdatedAt = time.Now().UTC()
	f.bucket(t)[itemID] = item
	return item, nil
}

func (f *fakeUpstream) Delete(ctx context.Context, t dictionary.Type, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete:" + itemID)
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.bucket(t)[itemID]; !ok {
		return apperror.NewUpstream(404, "Not Found", nil)
	}
	delete(f.bucket(t), itemID)
	return nil
}

func (f *fakeUpstream) Search(ctx context.Context, t dictionary.Type, query string) ([]dictionary.Item, error) {
	items, err := f.List(ctx, t)
	if err != nil {
		return nil, err
	}
	return dictionary.Search(items, query), nil
}

func (f *fakeUpstream) Statistics(ctx context.Context, t dictionary.Type) (dictionary.Statistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("statistics:" + string(t))
	if f.failWith != nil {
		return dictionary.Statistics{}, f.failWith
	}
	stats := dictionary.Statistics{RecentlyUpdated: 99}
	for _, item := range f.bucket(t) {
		stats.TotalItems++
		if item.Meta().IsActive {
			stats.ActiveItems++
		} else {
			stats.InactiveItems++
		}
	}
	return stats, nil
}

// The fake backend mirrors the deployed one: no export, template or import
// routes, so those calls answer as a missing route would.
func (f *fakeUpstream) Export(ctx context.Context, t dictionary.Type, opts dictionary.ExportOptions) (*dictionary.ExportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("export:" + string(t))
	return nil, apperror.NewUpstream(404, "Not Found", nil)
}

func (f *fakeUpstream) Template(ctx context.Context, t dictionary.Type, format dictionary.ExportFormat) (*dictionary.ExportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("template:" + string(t))
	return nil, apperror.NewUpstream(404, "Not Found", nil)
}

func (f *fakeUpstream) Import(ctx context.Context, t dictionary.Type, filename string, content []byte) (dictionary.ImportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("import:" + string(t))
	return dictionary.ImportResult{}, apperror.NewUpstream(404, "Not Found", nil)
}

func (f *fakeUpstream) setFailure(err error) {
	f.mu.Lock()
	f.failWith = err
	f.mu.Unlock()
}

type fixture struct {
	svc      *dictionary.Service
	upstream *fakeUpstream
	store    *sqlite.Store
	cache    *cache.TTLCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.Open(":memory:", logger.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	auditor, err := sqlite.NewAuditor(store)
	require.NoError(t, err)

	up := newFakeUpstream()
	c := cache.New()
	svc, err := dictionary.NewService(dictionary.ServiceConfig{
		Upstream:   up,
		Cache:      c,
		Store:      store,
		Validators: validation.NewManager(),
		Auditor:    auditor,
		Logger:     logger.Default(),
	})
	require.NoError(t, err)
	return &fixture{svc: svc, upstream: up, store: store, cache: c}
}

func validArticle(name, code string) *dictionary.ExpenseArticle {
	return &dictionary.ExpenseArticle{
		Base:      dictionary.Base{Name: name, Code: code, IsActive: true},
		OwnerRole: dictionary.RoleExecutor,
	}
}

func TestGetItemsCachesAndRefreshesSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateItem(ctx, dictionary.TypeExpenseArticles, validArticle("Семена", "110"))
	require.NoError(t, err)

	items := f.svc.GetItems(ctx, dictionary.TypeExpenseArticles)
	require.Len(t, items, 1)

	// Second read must come from cache, not the backend.
	before := len(f.upstream.calls)
	_ = f.svc.GetItems(ctx, dictionary.TypeExpenseArticles)
	assert.Equal(t, before, len(f.upstream.calls))

	// The successful list refreshed the snapshot: offline reads see it.
	_, err = f.svc.SetMode(ctx, dictionary.ModeOffline)
	require.NoError(t, err)
	items = f.svc.GetItems(ctx, dictionary.TypeExpenseArticles)
	require.Len(t, items, 1)
	assert.Equal(t, "Семена", items[0].Meta().Name)
}

func TestReadsDegradeOnUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateItem(ctx, dictionary.TypeExpenseArticles, validArticle("Семена", "110"))
	require.NoError(t, err)
	_ = f.svc.GetItems(ctx, dictionary.TypeExpenseArticles)

	f.upstream.setFailure(apperror.NewNetwork("/expense-articles", fmt.Errorf("refused")))
	f.cache.Clear()

	items := f.svc.GetItems(ctx, dictionary.TypeExpenseArticles)
	require.Len(t, items, 1, "failed list must fall back to the snapshot")

	got, err := f.svc.GetItem(ctx, dictionary.TypeExpenseArticles, created.Meta().ID)
	require.NoError(t, err)
	assert.Equal(t, "Семена", got.Meta().Name)
}

func TestGetItemNotFoundPropagates(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetItem(context.Background(), dictionary.TypeExpenseArticles, "missing")
	assert.True(t, apperror.IsNotFound(err))
}

func TestCreateRejectsInvalidWithoutUpstreamCall(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateItem(context.Background(), dictionary.TypeExpenseArticles, &dictionary.ExpenseArticle{})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.NotNil(t, appErr.Details["errors"])
	assert.Empty(t, f.upstream.calls, "invalid item must not reach the backend")
}

func TestWriteCapabilityChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateItem(ctx, dictionary.TypeCurrencies, &dictionary.Currency{Base: dictionary.Base{Name: "KZT"}})
	assert.True(t, apperror.IsReadOnly(err))

	_, err = f.svc.UpdateItem(ctx, dictionary.TypePriorities, "p-1", &dictionary.Priority{Base: dictionary.Base{Name: "Срочный"}, Level: 1})
	assert.True(t, apperror.IsNotSupported(err))

	err = f.svc.DeleteItem(ctx, dictionary.TypeUsers, "u-1")
	assert.True(t, apperror.IsNotSupported(err))
}

func TestWriteInvalidatesListCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateItem(ctx, dictionary.TypeExpenseArticles, validArticle("Семена", "110"))
	require.NoError(t, err)
	require.Len(t, f.svc.GetItems(ctx, dictionary.TypeExpenseArticles), 1)

	_, err = f.svc.CreateItem(ctx, dictionary.TypeExpenseArticles, validArticle("ГСМ", "140"))
	require.NoError(t, err)
	assert.Len(t, f.svc.GetItems(ctx, dictionary.TypeExpenseArticles), 2, "create must drop the cached list")
}

func TestOfflineCreateAndReplay(t *testing.T) {
	f := newFixture(t)
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u-42"})

	_, err := f.svc.SetMode(ctx, dictionary.ModeOffline)
	require.NoError(t, err)

	created, err := f.svc.CreateItem(ctx, dictionary.TypeExpenseArticles, validArticle("Семена", "110"))
	require.NoError(t, err)
	assert.True(t, id.IsOffline(created.Meta().ID))
	assert.Equal(t, 1, created.Meta().Version)
	assert.Equal(t, "u-42", created.Meta().CreatedBy)

	// Update while still offline bumps the version in place.
	updated, err := f.svc.UpdateItem(ctx, dictionary.TypeExpenseArticles, created.Meta().ID, validArticle("Семена и саженцы", "110"))
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Meta().Version)

	pending, err := f.svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)

	res, err := f.svc.SetMode(ctx, dictionary.ModeOnline)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Replayed)
	assert.Zero(t, res.Failed)

	pending, err = f.svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	// The backend now owns the record under a real id.
	items, err := f.upstream.List(ctx, dictionary.TypeExpenseArticles)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, id.IsOffline(items[0].Meta().ID))
	assert.Equal(t, "Семена и саженцы", items[0].Meta().Name)
}

func TestReplayKeepsFailedOps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetMode(ctx, dictionary.ModeOffline)
	require.NoError(t, err)
	_, err = f.svc.CreateItem(ctx, dictionary.TypeExpenseArticles, validArticle("Семена", "110"))
	require.NoError(t, err)

	f.upstream.setFailure(apperror.NewNetwork("/expense-articles", fmt.Errorf("still down")))
	res, err := f.svc.SetMode(ctx, dictionary.ModeOnline)
	require.NoError(t, err)
	assert.Zero(t, res.Replayed)
	assert.Equal(t, 1, res.Failed)

	pending, err := f.svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending, "failed replay must stay queued")

	// Next reconnect with a healthy backend drains the journal.
	f.upstream.setFailure(nil)
	_, err = f.svc.SetMode(ctx, dictionary.ModeOffline)
	require.NoError(t, err)
	res, err = f.svc.SetMode(ctx, dictionary.ModeOnline)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Replayed)
}

func TestOfflineDeleteOfOfflineRecordReplays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetMode(ctx, dictionary.ModeOffline)
	require.NoError(t, err)
	created, err := f.svc.CreateItem(ctx, dictionary.TypeExpenseArticles, validArticle("Семена", "110"))
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteItem(ctx, dictionary.TypeExpenseArticles, created.Meta().ID))

	res, err := f.svc.SetMode(ctx, dictionary.ModeOnline)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Replayed)

	items, err := f.upstream.List(ctx, dictionary.TypeExpenseArticles)
	require.NoError(t, err)
	assert.Empty(t, items, "create then delete must leave nothing behind")
}

func TestBulkOperationsCollectErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// One invalid item rejects the whole batch before anything is created.
	res := f.svc.BulkCreate(ctx, dictionary.TypeExpenseArticles, []dictionary.Item{
		validArticle("Семена", "110"),
		&dictionary.ExpenseArticle{},
		validArticle("ГСМ", "140"),
	})
	assert.Zero(t, res.SuccessCount)
	assert.Equal(t, 1, res.ErrorCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Index)
	assert.Empty(t, f.svc.GetItems(ctx, dictionary.TypeExpenseArticles))

	res = f.svc.BulkCreate(ctx, dictionary.TypeExpenseArticles, []dictionary.Item{
		validArticle("Семена", "110"),
		validArticle("ГСМ", "140"),
	})
	assert.Equal(t, 2, res.SuccessCount)
	assert.Zero(t, res.ErrorCount)
	require.Len(t, res.Items, 2)

	del := f.svc.BulkDelete(ctx, dictionary.TypeExpenseArticles, []string{
		res.Items[0].Meta().ID,
		res.Items[1].Meta().ID,
		"missing-id",
	})
	assert.Equal(t, 2, del.SuccessCount)
	assert.Equal(t, 1, del.ErrorCount)
	require.Len(t, del.Errors, 1)
	assert.Equal(t, "missing-id", del.Errors[0].ID)
}

func TestSearchAndFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateItem(ctx, dictionary.TypeExpenseArticles, validArticle("Семена озимые", "111"))
	require.NoError(t, err)
	_, err = f.svc.CreateItem(ctx, dictionary.TypeExpenseArticles, validArticle("ГСМ", "140"))
	require.NoError(t, err)

	found := f.svc.SearchItems(ctx, dictionary.TypeExpenseArticles, "семена")
	require.Len(t, found, 1)
	assert.Equal(t, "111", found[0].Meta().Code)

	all := f.svc.SearchItems(ctx, dictionary.TypeExpenseArticles, "")
	assert.Len(t, all, 2)

	active := f.svc.FilterItems(ctx, dictionary.TypeExpenseArticles, dictionary.Filters{"isActive": true})
	assert.Len(t, active, 2)
	none := f.svc.FilterItems(ctx, dictionary.TypeExpenseArticles, dictionary.Filters{"isActive": false})
	assert.Empty(t, none)
}

func TestStatisticsFallsBackToSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateItem(ctx, dictionary.TypeExpenseArticles, validArticle("Семена", "110"))
	require.NoError(t, err)

	stats := f.svc.GetStatistics(ctx, dictionary.TypeExpenseArticles)
	assert.Equal(t, 99, stats.RecentlyUpdated, "online statistics come from the backend")

	f.upstream.setFailure(apperror.NewNetwork("/expense-articles", fmt.Errorf("down")))
	f.cache.Clear()
	stats = f.svc.GetStatistics(ctx, dictionary.TypeExpenseArticles)
	assert.Equal(t, 1, stats.TotalItems)
	assert.Equal(t, 1, stats.ActiveItems)
	assert.Equal(t, 1, stats.RecentlyUpdated, "snapshot knows the recent update")
}

func TestExportImportRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateItem(ctx, dictionary.TypeExpenseArticles, validArticle("Семена", "110"))
	require.NoError(t, err)

	out, err := f.svc.Export(ctx, dictionary.TypeExpenseArticles, dictionary.ExportOptions{Format: dictionary.FormatCSV})
	require.NoError(t, err)
	assert.Contains(t, out.Filename, "expense-articles-")
	assert.True(t, strings.HasPrefix(string(out.Content), "id,name,code"))
	assert.Contains(t, string(out.Content), "110")

	_, err = f.svc.Export(ctx, dictionary.TypeExpenseArticles, dictionary.ExportOptions{Format: dictionary.FormatXLSX})
	assert.True(t, apperror.IsNotSupported(err))

	// A single bad row rejects the whole file before anything is created.
	imported, err := f.svc.Import(ctx, dictionary.TypeExpenseArticles, "articles.csv",
		[]byte("name,code,ownerRole,isActive\nУдобрения,120,executor,true\n,130,executor,true\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, imported.SuccessCount)
	assert.Equal(t, 1, imported.ErrorCount)

	imported, err = f.svc.Import(ctx, dictionary.TypeExpenseArticles, "articles.csv",
		[]byte("name,code,ownerRole,isActive\nУдобрения,120,executor,true\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, imported.SuccessCount)
	assert.Equal(t, 0, imported.ErrorCount)

	items := f.svc.GetItems(ctx, dictionary.TypeExpenseArticles)
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Meta().Name)
	}
	assert.Contains(t, names, "Удобрения")
}

func TestSetModeValidatesInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SetMode(context.Background(), dictionary.Mode("turbo"))
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}
