package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/crudlab/itemstore/internal/database"
	"github.com/crudlab/itemstore/internal/domain"
	"github.com/crudlab/itemstore/internal/repository"
	"github.com/crudlab/itemstore/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// responseEnvelope mirrors the wire envelope for decoding in tests.
type responseEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Count   *int            `json:"count"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type itemPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"createdAt"`
}

func setupTestHandlerWithDB(t *testing.T) (http.Handler, *sql.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&domain.Item{}))

	repo := repository.NewGormItemRepository(db)
	svc := service.NewItemService(repo, zerolog.Nop())
	s := &Server{
		itemService: svc,
		db:          database.NewWithDB(db),
		log:         zerolog.Nop(),
	}
	return s.RegisterRoutes(), sqlDB
}

func setupTestHandler(t *testing.T) http.Handler {
	t.Helper()
	handler, _ := setupTestHandlerWithDB(t)
	return handler
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func decodeItem(t *testing.T, env responseEnvelope) itemPayload {
	t.Helper()
	var item itemPayload
	require.NoError(t, json.Unmarshal(env.Data, &item))
	return item
}

func TestWelcomeRoute(t *testing.T) {
	handler := setupTestHandler(t)

	rec := doRequest(t, handler, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Message   string            `json:"message"`
		Endpoints map[string]string `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Message)
	assert.Contains(t, body.Endpoints, "GET /api/items")
	assert.Contains(t, body.Endpoints, "POST /api/items")
	assert.Contains(t, body.Endpoints, "DELETE /api/items/{id}")
}

func TestHealthRoute(t *testing.T) {
	handler := setupTestHandler(t)

	rec := doRequest(t, handler, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"up"`)
}

func TestMetricsRoute(t *testing.T) {
	handler := setupTestHandler(t)

	// Generate at least one observed request before scraping.
	doRequest(t, handler, http.MethodGet, "/api/items", "")

	rec := doRequest(t, handler, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "itemstore_http_requests_total")
}

func TestCreateItemRoute(t *testing.T) {
	handler := setupTestHandler(t)

	rec := doRequest(t, handler, http.MethodPost, "/api/items",
		`{"name":"Milk","description":"Buy milk"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "Item created successfully", env.Message)

	item := decodeItem(t, env)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "Milk", item.Name)
	assert.Equal(t, "Buy milk", item.Description)
	assert.False(t, item.Completed)
	assert.NotEmpty(t, item.CreatedAt)
}

func TestCreateItemRouteBadRequests(t *testing.T) {
	handler := setupTestHandler(t)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"missing fields", `{"name":"","description":""}`, "Name and description are required"},
		{"missing description", `{"name":"Milk"}`, "Name and description are required"},
		{"empty body", ``, "Request body must not be empty"},
		{"malformed json", `{"name":`, "Request body contains badly-formed JSON"},
		{"unknown field", `{"name":"a","description":"b","bogus":true}`, `Request body contains unknown field "bogus"`},
		{"wrong type", `{"name":1,"description":"b"}`, `Request body contains an invalid value for the "name" field`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, handler, http.MethodPost, "/api/items", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			assert.True(t, strings.HasPrefix(env.Message, tc.message),
				"message %q does not start with %q", env.Message, tc.message)
		})
	}

	// None of the rejected requests may have persisted anything.
	rec := doRequest(t, handler, http.MethodGet, "/api/items", "")
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Count)
	assert.Equal(t, 0, *env.Count)
}

func TestGetAllItemsRoute(t *testing.T) {
	handler := setupTestHandler(t)

	for _, name := range []string{"one", "two", "three"} {
		rec := doRequest(t, handler, http.MethodPost, "/api/items",
			`{"name":"`+name+`","description":"d"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		time.Sleep(2 * time.Millisecond)
	}

	rec := doRequest(t, handler, http.MethodGet, "/api/items", "")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	require.NotNil(t, env.Count)
	assert.Equal(t, 3, *env.Count)

	var items []itemPayload
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 3)
	assert.Equal(t, "three", items[0].Name, "newest first")
	assert.Equal(t, "two", items[1].Name)
	assert.Equal(t, "one", items[2].Name)
}

func TestGetItemByIDRouteNotFound(t *testing.T) {
	handler := setupTestHandler(t)

	for _, id := range []string{"b4a7e4d2-0000-0000-0000-000000000000", "not-a-uuid"} {
		rec := doRequest(t, handler, http.MethodGet, "/api/items/"+id, "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.False(t, env.Success)
		assert.Equal(t, "Item not found", env.Message)
	}
}

func TestUpdateItemRouteErrors(t *testing.T) {
	handler := setupTestHandler(t)

	rec := doRequest(t, handler, http.MethodPut, "/api/items/missing", `{"completed":true}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	created := decodeItem(t, decodeEnvelope(t,
		doRequest(t, handler, http.MethodPost, "/api/items", `{"name":"a","description":"b"}`)))

	rec = doRequest(t, handler, http.MethodPut, "/api/items/"+created.ID, `{"name":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Name must not be empty", decodeEnvelope(t, rec).Message)

	rec = doRequest(t, handler, http.MethodPut, "/api/items/"+created.ID, `{"description":"   "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Description must not be empty", decodeEnvelope(t, rec).Message)

	rec = doRequest(t, handler, http.MethodPut, "/api/items/"+created.ID, `{"name"`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decodeEnvelope(t, rec).Message)
}

// TestStorageFailureEnvelope drives every route against a dead store and
// checks the generic server-error envelope: a failure is surfaced
// immediately, with no internal details beyond the short error string.
func TestStorageFailureEnvelope(t *testing.T) {
	handler, sqlDB := setupTestHandlerWithDB(t)

	created := decodeItem(t, decodeEnvelope(t,
		doRequest(t, handler, http.MethodPost, "/api/items", `{"name":"a","description":"b"}`)))

	require.NoError(t, sqlDB.Close())

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		short  string
	}{
		{"list", http.MethodGet, "/api/items", "", "Failed to retrieve items"},
		{"create", http.MethodPost, "/api/items", `{"name":"a","description":"b"}`, "Failed to create item"},
		{"get", http.MethodGet, "/api/items/" + created.ID, "", "Failed to retrieve item"},
		{"update", http.MethodPut, "/api/items/" + created.ID, `{"completed":true}`, "Failed to update item"},
		{"delete", http.MethodDelete, "/api/items/" + created.ID, "", "Failed to delete item"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, handler, tc.method, tc.path, tc.body)
			require.Equal(t, http.StatusInternalServerError, rec.Code)

			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, "Server error", env.Message)
			assert.Equal(t, tc.short, env.Error)
			assert.NotContains(t, env.Error, "sql", "no storage internals leak to the caller")
		})
	}
}

// TestItemLifecycle walks the full create, complete, delete, miss sequence
// over the HTTP surface.
func TestItemLifecycle(t *testing.T) {
	handler := setupTestHandler(t)

	rec := doRequest(t, handler, http.MethodPost, "/api/items",
		`{"name":"Milk","description":"Buy milk"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeItem(t, decodeEnvelope(t, rec))
	assert.False(t, created.Completed)

	rec = doRequest(t, handler, http.MethodPut, "/api/items/"+created.ID, `{"completed":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Item updated successfully", env.Message)
	updated := decodeItem(t, env)
	assert.True(t, updated.Completed)
	assert.Equal(t, "Milk", updated.Name)
	assert.Equal(t, "Buy milk", updated.Description)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	rec = doRequest(t, handler, http.MethodDelete, "/api/items/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	assert.Equal(t, "Item deleted successfully", env.Message)
	deleted := decodeItem(t, env)
	assert.Equal(t, created.ID, deleted.ID)
	assert.True(t, deleted.Completed)

	rec = doRequest(t, handler, http.MethodGet, "/api/items/"+created.ID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
