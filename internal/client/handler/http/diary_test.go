package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	handler "github.com/atinyakov/FoodDiary/internal/client/handler/http"
	"github.com/atinyakov/FoodDiary/internal/client/remote"
	"github.com/atinyakov/FoodDiary/internal/diary"
	"github.com/atinyakov/FoodDiary/internal/export"
	"github.com/atinyakov/FoodDiary/internal/models"
	"github.com/atinyakov/FoodDiary/internal/stats"
)

// fakeDiary records calls and returns preconfigured results.
type fakeDiary struct {
	entries []models.Entry
	filter  models.AllergyFilter
	addErr  error
	added   []string
	edit    *models.EditingEntry
	deleted string
	cfg     *models.ConnConfig
	setErr  error
	testErr error
	mirror  error
}

func (f *fakeDiary) AddEntry(_ context.Context, products []string, hasAllergy bool) (models.Entry, error) {
	if f.addErr != nil {
		return models.Entry{}, f.addErr
	}
	f.added = products
	return models.Entry{ID: "new", Products: products, Date: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), HasAllergy: hasAllergy}, nil
}

func (f *fakeDiary) UpdateEntry(_ context.Context, edit models.EditingEntry) error {
	if len(edit.Products) == 0 {
		return diary.ErrNoProducts
	}
	f.edit = &edit
	return nil
}

func (f *fakeDiary) DeleteEntry(_ context.Context, id string) { f.deleted = id }

func (f *fakeDiary) Entries(filter models.AllergyFilter) []models.Entry {
	f.filter = filter
	return f.entries
}

func (f *fakeDiary) Suggestions(q string) []string {
	if q == "" {
		return nil
	}
	return []string{"milk"}
}

func (f *fakeDiary) Stats() stats.Summary { return stats.Summarize(f.entries) }

func (f *fakeDiary) Export(w io.Writer) error {
	return export.Write(w, f.entries, time.UTC)
}

func (f *fakeDiary) ExportFileName() string { return "дневник_питания_02-01-2024.csv" }

func (f *fakeDiary) LoadFromCloud(context.Context) bool { return true }

func (f *fakeDiary) DownloadFromMirror(context.Context) error { return f.mirror }

func (f *fakeDiary) UploadToMirror(context.Context) error { return f.mirror }

func (f *fakeDiary) Config() *models.ConnConfig { return f.cfg }

func (f *fakeDiary) SetConfig(_ context.Context, cfg models.ConnConfig) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.cfg = &cfg
	return nil
}

func (f *fakeDiary) Disconnect(context.Context) error {
	f.cfg = nil
	return nil
}

func (f *fakeDiary) TestConnection(context.Context, models.ConnConfig) error { return f.testErr }

func (f *fakeDiary) Online() bool  { return false }
func (f *fakeDiary) Syncing() bool { return true }

func (f *fakeDiary) Notifications() []models.Notification {
	return []models.Notification{{Level: models.LevelSuccess, Message: "Запись добавлена!"}}
}

func serve(t *testing.T, svc handler.DiaryService, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := handler.NewRouter(&handler.DiaryHandler{Service: svc}, zap.NewNop())

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListEntries(t *testing.T) {
	fake := &fakeDiary{entries: []models.Entry{
		{ID: "1", Products: []string{"milk"}, Date: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), HasAllergy: true},
	}}

	w := serve(t, fake, http.MethodGet, "/api/entries?filter=allergy", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.FilterAllergy, fake.filter)
	assert.JSONEq(t, `[{"id":"1","products":["milk"],"date":"2024-01-02T10:00:00.000Z","hasAllergy":true}]`, w.Body.String())
}

func TestCreateEntry(t *testing.T) {
	fake := &fakeDiary{}

	w := serve(t, fake, http.MethodPost, "/api/entries", `{"products":["milk","nuts"],"hasAllergy":true}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"milk", "nuts"}, fake.added)

	var got models.EntryJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "new", got.ID)
	assert.True(t, got.HasAllergy)
}

func TestCreateEntry_Errors(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeDiary
		body string
		want int
	}{
		{"bad json", &fakeDiary{}, `not-json`, http.StatusBadRequest},
		{"no products", &fakeDiary{addErr: diary.ErrNoProducts}, `{"products":[]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, tt.fake, http.MethodPost, "/api/entries", tt.body)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestUpdateAndDeleteEntry(t *testing.T) {
	fake := &fakeDiary{}

	w := serve(t, fake, http.MethodPut, "/api/entries/abc", `{"products":["eggs"],"hasAllergy":false}`)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, fake.edit)
	assert.Equal(t, "abc", fake.edit.ID)
	assert.Equal(t, []string{"eggs"}, fake.edit.Products)

	w = serve(t, fake, http.MethodPut, "/api/entries/abc", `{"products":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, fake, http.MethodDelete, "/api/entries/abc", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "abc", fake.deleted)
}

func TestProductsAndStats(t *testing.T) {
	fake := &fakeDiary{entries: []models.Entry{{ID: "1", Products: []string{"milk"}, HasAllergy: true}}}

	w := serve(t, fake, http.MethodGet, "/api/products", "")
	assert.JSONEq(t, `[]`, w.Body.String())

	w = serve(t, fake, http.MethodGet, "/api/products?q=mi", "")
	assert.JSONEq(t, `["milk"]`, w.Body.String())

	w = serve(t, fake, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"entries":1,"allergies":1,"products":[{"product":"milk","frequency":1,"percentage":100}]}`, w.Body.String())
}

func TestExport(t *testing.T) {
	w := serve(t, &fakeDiary{}, http.MethodGet, "/api/export", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	fake := &fakeDiary{entries: []models.Entry{
		{ID: "1", Products: []string{"milk"}, Date: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)},
	}}
	w = serve(t, fake, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\ufeff")))
	assert.Contains(t, w.Body.String(), "02.01.2024 10:00;milk;Нет")
}

func TestStatusAndNotifications(t *testing.T) {
	fake := &fakeDiary{cfg: &models.ConnConfig{Host: "db"}}

	w := serve(t, fake, http.MethodGet, "/api/status", "")
	assert.JSONEq(t, `{"online":false,"syncing":true,"mirror":true}`, w.Body.String())

	w = serve(t, fake, http.MethodGet, "/api/notifications", "")
	assert.JSONEq(t, `[{"level":"success","message":"Запись добавлена!"}]`, w.Body.String())
}

func TestSyncEndpoints(t *testing.T) {
	w := serve(t, &fakeDiary{}, http.MethodPost, "/api/sync/cloud", "")
	assert.JSONEq(t, `{"loaded":true}`, w.Body.String())

	w = serve(t, &fakeDiary{}, http.MethodPost, "/api/sync/mirror/download", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(t, &fakeDiary{mirror: remote.ErrNotConfigured}, http.MethodPost, "/api/sync/mirror/upload", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = serve(t, &fakeDiary{mirror: errors.New("unreachable")}, http.MethodPost, "/api/sync/mirror/download", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestSettings(t *testing.T) {
	fake := &fakeDiary{}

	w := serve(t, fake, http.MethodGet, "/api/settings/mirror", "")
	assert.JSONEq(t, `null`, w.Body.String())

	w = serve(t, fake, http.MethodPut, "/api/settings/mirror", `{"host":"db","user":"root","database":"d"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, fake.cfg)
	assert.Equal(t, "db", fake.cfg.Host)

	w = serve(t, &fakeDiary{setErr: models.ErrInvalidConfig}, http.MethodPut, "/api/settings/mirror", `{"host":"db"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, fake, http.MethodDelete, "/api/settings/mirror", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Nil(t, fake.cfg)
}

func TestTestSettings(t *testing.T) {
	w := serve(t, &fakeDiary{}, http.MethodPost, "/api/settings/mirror/test", `{"host":"db","user":"root","database":"d"}`)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	fake := &fakeDiary{testErr: &remote.StatusError{StatusCode: http.StatusInternalServerError, Message: "Database error: denied"}}
	w = serve(t, fake, http.MethodPost, "/api/settings/mirror/test", `{"host":"db","user":"root","database":"d"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Database error: denied")
}

func TestContentTypeEnforced(t *testing.T) {
	router := handler.NewRouter(&handler.DiaryHandler{Service: &fakeDiary{}}, zap.NewNop())
	req := httptest.NewRequest(http.MethodPost, "/api/entries", strings.NewReader(`{"products":["a"]}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}
