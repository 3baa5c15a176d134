package upstream

import (
	"context"
	"net/url"
	"strconv"

	"refbook/internal/core/apperror"
	"refbook/internal/domain/dictionary"
)

// Resource paths on the backend. Contracts, normatives, priorities and
// users have no endpoints yet: reads of those types resolve to empty
// results and writes are rejected as not supported.
const (
	pathExpenseArticles = "/dictionaries/expense-articles"
	pathCounterparties  = "/dictionaries/counterparties"
	pathCurrencies      = "/dictionaries/currencies"
	pathVatRates        = "/dictionaries/vat-rates"
)

func resourcePath(t dictionary.Type) (string, bool) {
	switch t {
	case dictionary.TypeExpenseArticles:
		return pathExpenseArticles, true
	case dictionary.TypeCounterparties:
		return pathCounterparties, true
	case dictionary.TypeCurrencies:
		return pathCurrencies, true
	case dictionary.TypeVatRates:
		return pathVatRates, true
	}
	return "", false
}

// Endpoints dispatches dictionary operations to the backend per type.
type Endpoints struct {
	client *Client
}

// NewEndpoints wraps a client with the per-type routing table.
func NewEndpoints(client *Client) *Endpoints {
	return &Endpoints{client: client}
}

// List fetches every item of the type. Types without an endpoint yield an
// empty slice, never an error.
func (e *Endpoints) List(ctx context.Context, t dictionary.Type) ([]dictionary.Item, error) {
	path, ok := resourcePath(t)
	if !ok {
		return []dictionary.Item{}, nil
	}
	data, err := e.client.Get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	return decodeItems(t, data)
}

// Get fetches one item by id. Types without an endpoint report not found.
func (e *Endpoints) Get(ctx context.Context, t dictionary.Type, id string) (dictionary.Item, error) {
	path, ok := resourcePath(t)
	if !ok {
		return nil, apperror.NewNotFound(string(t), id)
	}
	data, err := e.client.Get(ctx, path+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return decodeItem(t, data)
}

// Create posts a new item. Read-only and endpoint-less types are rejected.
func (e *Endpoints) Create(ctx context.Context, t dictionary.Type, item dictionary.Item) (dictionary.Item, error) {
	path, err := writablePath(t, "create")
	if err != nil {
		return nil, err
	}
	data, err := e.client.Post(ctx, path, encodeItem(item))
	if err != nil {
		return nil, err
	}
	return decodeItem(t, data)
}

// Update replaces an item by id.
func (e *Endpoints) Update(ctx context.Context, t dictionary.Type, id string, item dictionary.Item) (dictionary.Item, error) {
	path, err := writablePath(t, "update")
	if err != nil {
		return nil, err
	}
	data, err := e.client.Put(ctx, path+"/"+url.PathEscape(id), encodeItem(item))
	if err != nil {
		return nil, err
	}
	return decodeItem(t, data)
}

// Delete removes an item by id.
func (e *Endpoints) Delete(ctx context.Context, t dictionary.Type, id string) error {
	path, err := writablePath(t, "delete")
	if err != nil {
		return err
	}
	return e.client.Delete(ctx, path+"/"+url.PathEscape(id))
}

// Search asks the backend for items matching the query. Types without an
// endpoint yield an empty slice.
func (e *Endpoints) Search(ctx context.Context, t dictionary.Type, query string) ([]dictionary.Item, error) {
	path, ok := resourcePath(t)
	if !ok {
		return []dictionary.Item{}, nil
	}
	q := url.Values{}
	q.Set("q", query)
	data, err := e.client.Get(ctx, path+"/search", q)
	if err != nil {
		return nil, err
	}
	return decodeItems(t, data)
}

// Statistics fetches the backend statistics endpoint. When the backend does
// not serve one for the type, statistics are derived from the item list;
// the derived form cannot know recency, so RecentlyUpdated stays zero.
func (e *Endpoints) Statistics(ctx context.Context, t dictionary.Type) (dictionary.Statistics, error) {
	path, ok := resourcePath(t)
	if ok {
		data, err := e.client.Get(ctx, path+"/statistics", nil)
		if err == nil {
			return decodeStatistics(data)
		}
		if !recoverableStatsErr(err) {
			return dictionary.Statistics{}, err
		}
	}
	items, err := e.List(ctx, t)
	if err != nil {
		return dictionary.Statistics{}, err
	}
	stats := dictionary.Statistics{TotalItems: len(items)}
	for _, item := range items {
		if item.Meta().IsActive {
			stats.ActiveItems++
		} else {
			stats.InactiveItems++
		}
	}
	return stats, nil
}

// Export downloads the backend export blob for the type.
func (e *Endpoints) Export(ctx context.Context, t dictionary.Type, opts dictionary.ExportOptions) (*dictionary.ExportResult, error) {
	q := url.Values{}
	q.Set("format", string(opts.Format))
	q.Set("active_only", strconv.FormatBool(opts.ActiveOnly))
	data, contentType, err := e.client.Download(ctx, "/dictionaries/export/"+url.PathEscape(string(t)), q)
	if err != nil {
		return nil, err
	}
	return &dictionary.ExportResult{
		Content:     data,
		ContentType: contentType,
		Filename:    dictionary.ExportFilename(t, opts.Format),
	}, nil
}

// Template downloads the backend import template for the type.
func (e *Endpoints) Template(ctx context.Context, t dictionary.Type, format dictionary.ExportFormat) (*dictionary.ExportResult, error) {
	q := url.Values{}
	q.Set("format", string(format))
	data, contentType, err := e.client.Download(ctx, "/dictionaries/template/"+url.PathEscape(string(t)), q)
	if err != nil {
		return nil, err
	}
	return &dictionary.ExportResult{
		Content:     data,
		ContentType: contentType,
		Filename:    dictionary.TemplateFilename(t, format),
	}, nil
}

// Import uploads a file to the backend importer. Read-only and
// endpoint-less types are rejected before any upload.
func (e *Endpoints) Import(ctx context.Context, t dictionary.Type, filename string, content []byte) (dictionary.ImportResult, error) {
	if _, err := writablePath(t, "import"); err != nil {
		return dictionary.ImportResult{}, err
	}
	q := url.Values{}
	q.Set("dictionary_type", string(t))
	data, err := e.client.Upload(ctx, "/dictionaries/import", q, "file", filename, content)
	if err != nil {
		return dictionary.ImportResult{}, err
	}
	return decodeImportResult(data)
}

func recoverableStatsErr(err error) bool {
	appErr, ok := apperror.AsAppError(err)
	if !ok {
		return false
	}
	// 404/405 mean the backend has no statistics route for the type, which
	// the list-derived fallback covers. Anything else is a real failure.
	return appErr.HTTPStatus == 502 && hasStatusDetail(appErr, 404, 405)
}

func hasStatusDetail(appErr *apperror.AppError, statuses ...int) bool {
	raw, ok := appErr.Details["status"]
	if !ok {
		return false
	}
	status, ok := raw.(int)
	if !ok {
		return false
	}
	for _, s := range statuses {
		if status == s {
			return true
		}
	}
	return false
}

func writablePath(t dictionary.Type, op string) (string, error) {
	if t.ReadOnly() {
		return "", apperror.NewReadOnly(string(t))
	}
	path, ok := resourcePath(t)
	if !ok {
		return "", apperror.NewNotSupported(string(t), op)
	}
	return path, nil
}
