package v1_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"refbook/internal/domain/auth"
	"refbook/internal/domain/dictionary"
	"refbook/internal/domain/dictionary/validation"
	"refbook/internal/infrastructure/cache"
	v1 "refbook/internal/infrastructure/http/v1"
	"refbook/internal/infrastructure/storage/sqlite"
	"refbook/internal/infrastructure/upstream"
	"refbook/pkg/logger"
)

// fakeBackend emulates the spends API with an in-memory expense article set.
type fakeBackend struct {
	mu    sync.Mutex
	items []map[string]any
	seq   int
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/dictionaries/expense-articles", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, b.items)
		case http.MethodPost:
			var item map[string]any
			_ = json.NewDecoder(r.Body).Decode(&item)
			b.seq++
			item["id"] = fmt.Sprintf("srv-%d", b.seq)
			item["version"] = float64(1)
			b.items = append(b.items, item)
			writeJSON(w, http.StatusCreated, item)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/dictionaries/expense-articles/search", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		q := strings.ToLower(r.URL.Query().Get("q"))
		matched := []map[string]any{}
		for _, item := range b.items {
			name, _ := item["name"].(string)
			code, _ := item["code"].(string)
			if q == "" || strings.Contains(strings.ToLower(name), q) || strings.Contains(strings.ToLower(code), q) {
				matched = append(matched, item)
			}
		}
		writeJSON(w, http.StatusOK, matched)
	})
	mux.HandleFunc("/dictionaries/expense-articles/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		id := strings.TrimPrefix(r.URL.Path, "/dictionaries/expense-articles/")
		for i, item := range b.items {
			if item["id"] == id {
				switch r.Method {
				case http.MethodGet:
					writeJSON(w, http.StatusOK, item)
				case http.MethodPut:
					var next map[string]any
					_ = json.NewDecoder(r.Body).Decode(&next)
					next["id"] = id
					b.items[i] = next
					writeJSON(w, http.StatusOK, next)
				case http.MethodDelete:
					b.items = append(b.items[:i], b.items[i+1:]...)
					w.WriteHeader(http.StatusNoContent)
				}
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "not found"})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiFixture struct {
	router     http.Handler
	backend    *fakeBackend
	adminToken string
	userToken  string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	backend := &fakeBackend{}
	backendSrv := httptest.NewServer(backend.handler())
	t.Cleanup(backendSrv.Close)

	log := logger.Default()

	store, err := sqlite.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	auditor, err := sqlite.NewAuditor(store)
	require.NoError(t, err)

	client := upstream.NewClient(upstream.Config{BaseURL: backendSrv.URL, Token: "backend-token"}, log)
	svc, err := dictionary.NewService(dictionary.ServiceConfig{
		Upstream:   upstream.NewEndpoints(client),
		Cache:      cache.New(),
		Store:      store,
		Validators: validation.NewManager(),
		Auditor:    auditor,
		Logger:     log,
	})
	require.NoError(t, err)

	jwtSvc := auth.NewJWTService(auth.JWTConfig{Secret: "test-secret", Issuer: "gc-spends"})
	adminToken, err := jwtSvc.GenerateToken("u-admin", "admin@example.com", []string{"admin"}, time.Hour)
	require.NoError(t, err)
	userToken, err := jwtSvc.GenerateToken("u-exec", "exec@example.com", []string{"executor"}, time.Hour)
	require.NoError(t, err)

	router := v1.NewRouter(v1.RouterConfig{
		Service:      svc,
		Store:        store,
		Auditor:      auditor,
		Logger:       log,
		JWTValidator: jwtSvc,
	})

	return &apiFixture{
		router:     router,
		backend:    backend,
		adminToken: adminToken,
		userToken:  userToken,
	}
}

func (f *apiFixture) request(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.request(http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestTraceHeadersPropagated(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, "trace-123", rec.Header().Get("X-Trace-ID"), "caller-supplied trace id must be echoed")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"), "request id must be generated when absent")
}

func TestAuthRequired(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(http.MethodGet, "/api/v1/dictionaries/expense-articles", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeBody(t, rec)["code"])

	rec = f.request(http.MethodGet, "/api/v1/dictionaries/expense-articles", "garbage.token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListTypes(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(http.MethodGet, "/api/v1/dictionaries", f.userToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var infos []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	assert.Len(t, infos, 8)
}

func TestUnknownDictionaryType(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(http.MethodGet, "/api/v1/dictionaries/unicorns", f.userToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeBody(t, rec)["code"])
}

func TestCreateAndList(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(http.MethodPost, "/api/v1/dictionaries/expense-articles", f.userToken,
		`{"name":"Семена","code":"110","ownerRole":"executor","isActive":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)
	assert.NotEmpty(t, created["id"])
	assert.Equal(t, "Семена", created["name"])

	rec = f.request(http.MethodGet, "/api/v1/dictionaries/expense-articles", f.userToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["total"])
}

func TestCreateValidationFailure(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(http.MethodPost, "/api/v1/dictionaries/expense-articles", f.userToken,
		`{"name":"X","code":"12"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	details, ok := body["details"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, details["errors"])

	// Nothing reached the backend.
	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	assert.Empty(t, f.backend.items)
}

func TestValidateEndpointIsDryRun(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(http.MethodPost, "/api/v1/dictionaries/expense-articles/validate", f.userToken,
		`{"name":"Семена","code":"12"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["valid"])
	assert.NotEmpty(t, body["errors"])

	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	assert.Empty(t, f.backend.items)
}

func TestGetNotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(http.MethodGet, "/api/v1/dictionaries/expense-articles/nope", f.userToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeBody(t, rec)["code"])
}

func TestWriteCapabilityRejections(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(http.MethodPost, "/api/v1/dictionaries/currencies", f.userToken,
		`{"name":"Тенге","code":"KZT"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "READ_ONLY", decodeBody(t, rec)["code"])

	rec = f.request(http.MethodPost, "/api/v1/dictionaries/contracts", f.userToken,
		`{"name":"Договор 1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "NOT_SUPPORTED", decodeBody(t, rec)["code"])
}

func TestSearchAndStatistics(t *testing.T) {
	f := newAPIFixture(t)

	for _, body := range []string{
		`{"name":"Семена пшеницы","code":"110","ownerRole":"executor"}`,
		`{"name":"Удобрения","code":"120","ownerRole":"executor"}`,
	} {
		rec := f.request(http.MethodPost, "/api/v1/dictionaries/expense-articles", f.userToken, body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.request(http.MethodGet, "/api/v1/dictionaries/expense-articles/search?q=семена", f.userToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["total"])

	rec = f.request(http.MethodGet, "/api/v1/dictionaries/expense-articles/statistics", f.userToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody(t, rec)
	assert.Equal(t, float64(2), stats["totalItems"])
}

func TestFilterEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	for _, body := range []string{
		`{"name":"Семена","code":"110","ownerRole":"executor","isActive":true}`,
		`{"name":"Комиссия","code":"150","ownerRole":"treasurer","isActive":false}`,
	} {
		rec := f.request(http.MethodPost, "/api/v1/dictionaries/expense-articles", f.userToken, body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.request(http.MethodPost, "/api/v1/dictionaries/expense-articles/filter", f.userToken,
		`{"isActive":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["total"])
}

func TestExportEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(http.MethodPost, "/api/v1/dictionaries/expense-articles", f.userToken,
		`{"name":"Семена","code":"110","ownerRole":"executor"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.request(http.MethodGet, "/api/v1/dictionaries/expense-articles/export?format=csv", f.userToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "expense-articles-")
	assert.Contains(t, rec.Body.String(), "Семена")

	rec = f.request(http.MethodGet, "/api/v1/dictionaries/expense-articles/template", f.userToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ownerRole")
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(http.MethodGet, "/api/v1/admin/cache/stats", f.userToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeBody(t, rec)["code"])

	rec = f.request(http.MethodGet, "/api/v1/admin/cache/stats", f.adminToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestModeRoundTrip(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(http.MethodGet, "/api/v1/admin/mode", f.adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "online", decodeBody(t, rec)["mode"])

	rec = f.request(http.MethodPut, "/api/v1/admin/mode", f.adminToken, `{"mode":"offline"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "offline", decodeBody(t, rec)["mode"])

	// Offline create is journaled locally.
	rec = f.request(http.MethodPost, "/api/v1/dictionaries/expense-articles", f.userToken,
		`{"name":"Запчасти","code":"160","ownerRole":"executor"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)
	assert.True(t, strings.HasPrefix(created["id"].(string), "offline-"))

	rec = f.request(http.MethodPut, "/api/v1/admin/mode", f.adminToken, `{"mode":"online"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "online", body["mode"])
	assert.Equal(t, float64(1), body["replayed"])
	assert.Equal(t, float64(0), body["pendingCount"])

	rec = f.request(http.MethodPut, "/api/v1/admin/mode", f.adminToken, `{"mode":"turbo"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModeSwitchForbiddenForNonAdmin(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(http.MethodPut, "/api/v1/admin/mode", f.userToken, `{"mode":"offline"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.request(http.MethodPost, "/api/v1/dictionaries/expense-articles", f.adminToken,
		`{"name":"Семена","code":"110","ownerRole":"executor"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody(t, rec)["id"].(string)

	rec = f.request(http.MethodGet, "/api/v1/admin/history/expense-articles/"+id, f.adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "create", entries[0]["action"])
	assert.Equal(t, "u-admin", entries[0]["userId"])
}

func TestBulkDeleteEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	var ids []string
	for _, body := range []string{
		`{"name":"Семена","code":"110","ownerRole":"executor"}`,
		`{"name":"Топливо","code":"140","ownerRole":"executor"}`,
	} {
		rec := f.request(http.MethodPost, "/api/v1/dictionaries/expense-articles", f.userToken, body)
		require.Equal(t, http.StatusCreated, rec.Code)
		ids = append(ids, decodeBody(t, rec)["id"].(string))
	}

	payload, err := json.Marshal(map[string]any{"ids": append(ids, "missing-id")})
	require.NoError(t, err)

	rec := f.request(http.MethodPost, "/api/v1/dictionaries/expense-articles/bulk-delete", f.userToken, string(payload))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["success_count"])
	assert.Equal(t, float64(1), body["error_count"])
}
