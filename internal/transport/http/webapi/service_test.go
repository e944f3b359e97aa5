package webapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"alttext-server-go/internal/domain/auth"
	"alttext-server-go/internal/platform/storage"
)

type fixture struct {
	engine   *gin.Engine
	captions *storage.CaptionRepository
	events   *storage.EventRepository
	tokens   *auth.Tokens
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := storage.Open("file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close(db) })
	return db
}

func newFixture(t *testing.T, withAuth bool, probes map[string]Probe) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := openDB(t)

	f := &fixture{
		captions: storage.NewCaptionRepository(db),
		events:   storage.NewEventRepository(db),
	}
	if withAuth {
		tokens, err := auth.NewTokens("s3cret", "admin-token", time.Hour)
		require.NoError(t, err)
		f.tokens = tokens
	}

	svc, err := NewService(Options{History: f.captions, Events: f.events, Tokens: f.tokens, Probes: probes})
	require.NoError(t, err)

	engine := gin.New()
	api := engine.Group("/api")
	secured := api.Group("")
	secured.Use(svc.AuthMiddleware())
	svc.Register(&engine.RouterGroup, api, secured)
	f.engine = engine
	return f
}

func (f *fixture) do(t *testing.T, method, path, body, bearer string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func TestNewService_Validates(t *testing.T) {
	_, err := NewService(Options{})
	assert.Error(t, err)
}

func TestHistory_OpenWhenAuthDisabled(t *testing.T) {
	f := newFixture(t, false, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, f.captions.Save(ctx, &storage.CaptionRecord{
			Filename: fmt.Sprintf("img-%d.png", i),
			Caption:  "a cat",
		}))
	}

	code, body := f.do(t, http.MethodGet, "/api/history?limit=2", "", "")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Len(t, data["items"], 2)
	assert.Equal(t, float64(3), data["total"])

	code, body = f.do(t, http.MethodGet, "/api/history/img-1.png", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "img-1.png", body["data"].(map[string]any)["filename"])
	assert.Equal(t, "general", body["data"].(map[string]any)["image_type"])

	code, _ = f.do(t, http.MethodGet, "/api/history/missing.png", "", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.do(t, http.MethodPost, "/api/auth/token", `{"token":"x"}`, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHistory_RequiresBearerWhenAuthEnabled(t *testing.T) {
	f := newFixture(t, true, nil)

	code, body := f.do(t, http.MethodGet, "/api/history", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "missing bearer token", body["message"])

	code, _ = f.do(t, http.MethodGet, "/api/history", "", "garbage")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = f.do(t, http.MethodPost, "/api/auth/token", `{"token":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = f.do(t, http.MethodPost, "/api/auth/token", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = f.do(t, http.MethodPost, "/api/auth/token", `{"token":"admin-token"}`, "")
	require.Equal(t, http.StatusOK, code)
	token := body["data"].(map[string]any)["token"].(string)
	assert.Equal(t, "Bearer", body["data"].(map[string]any)["token_type"])

	code, body = f.do(t, http.MethodGet, "/api/history", "", token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{}, body["data"].(map[string]any)["items"])
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	f := newFixture(t, true, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed authorization header")
}

func TestEvents(t *testing.T) {
	f := newFixture(t, false, nil)
	ctx := context.Background()
	require.NoError(t, f.events.Record(ctx, &storage.AnalysisEvent{Kind: "seo", Success: true}))
	require.NoError(t, f.events.Record(ctx, &storage.AnalysisEvent{Kind: "seo", Success: false, Error: "boom"}))
	require.NoError(t, f.events.Record(ctx, &storage.AnalysisEvent{Kind: "caption", Success: true}))

	code, body := f.do(t, http.MethodGet, "/api/events?kind=seo", "", "")
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Len(t, data["events"], 2)
	assert.Len(t, data["stats"], 2)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, false, map[string]Probe{
		"storage": func(context.Context) (any, error) { return nil, nil },
		"vector":  func(context.Context) (any, error) { return map[string]any{"total": 3}, nil },
	})
	code, body := f.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "ok", deps["vector"].(map[string]any)["status"])
	assert.Contains(t, body, "system")

	f = newFixture(t, false, map[string]Probe{
		"storage": func(context.Context) (any, error) { return nil, fmt.Errorf("database is locked") },
	})
	code, body = f.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body["status"])
}

func TestOpenAPIAndDocs(t *testing.T) {
	f := newFixture(t, false, nil)

	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "2.0", doc["swagger"])
	paths := doc["paths"].(map[string]any)
	assert.Contains(t, paths, "/generate-caption")
	assert.Contains(t, paths, "/text-to-speech")

	rec = httptest.NewRecorder()
	f.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-url="/openapi.json"`)
}
