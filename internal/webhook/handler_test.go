package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apphttp "lead_pipeline_backend/internal/http"
	"lead_pipeline_backend/internal/leads/service"
	"lead_pipeline_backend/platform/apperr"
	"lead_pipeline_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type webhookConfig struct{}

func (webhookConfig) GetAPIKey() string           { return "api-secret" }
func (webhookConfig) GetGoogleWebhookKey() string { return "google-secret" }
func (webhookConfig) GetMetaVerifyToken() string  { return "verify-me" }

type fakeIngester struct {
	sources []string
	err     error
	id      uuid.UUID
}

func (f *fakeIngester) Ingest(_ context.Context, source string, _ []byte) (service.IntakeResult, error) {
	f.sources = append(f.sources, source)
	if f.err != nil {
		return service.IntakeResult{}, f.err
	}
	return service.IntakeResult{LeadID: f.id}, nil
}

func newEngine(ing *fakeIngester) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/api")
	NewModule(ing, webhookConfig{}, logger.Discard()).RegisterRoutes(&apphttp.RouterContext{
		Engine:   engine,
		API:      api,
		Webhooks: api.Group("/webhooks"),
	})
	return engine
}

func do(engine *gin.Engine, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestMetaVerify(t *testing.T) {
	engine := newEngine(&fakeIngester{})

	cases := []struct {
		name   string
		query  string
		status int
		body   string
	}{
		{"valid token", "hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=abc123", http.StatusOK, "abc123"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=abc123", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=verify-me&hub.challenge=abc123", http.StatusForbidden, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(engine, http.MethodGet, "/api/webhooks/meta?"+tc.query, "", nil)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if tc.body != "" && rec.Body.String() != tc.body {
				t.Fatalf("expected challenge echo, got %q", rec.Body.String())
			}
		})
	}
}

func TestMetaPostAlwaysSucceeds(t *testing.T) {
	ing := &fakeIngester{err: apperr.Validation("Valid phone number is required")}
	engine := newEngine(ing)

	for _, body := range []string{`{"entry":[]}`, `not json`} {
		rec := do(engine, http.MethodPost, "/api/webhooks/meta", body, nil)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"success":true`) {
			t.Fatalf("expected 200 success for %q, got %d %s", body, rec.Code, rec.Body.String())
		}
	}
	if len(ing.sources) != 2 || ing.sources[0] != "META" {
		t.Fatalf("expected both payloads handed to intake, got %v", ing.sources)
	}
}

func TestTikTok(t *testing.T) {
	ing := &fakeIngester{id: uuid.New()}
	engine := newEngine(ing)

	if rec := do(engine, http.MethodGet, "/api/webhooks/tiktok?challenge=xyz", "", nil); rec.Code != http.StatusOK || rec.Body.String() != "xyz" {
		t.Fatalf("expected challenge echo, got %d %q", rec.Code, rec.Body.String())
	}
	if rec := do(engine, http.MethodGet, "/api/webhooks/tiktok", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without challenge, got %d", rec.Code)
	}

	rec := do(engine, http.MethodPost, "/api/webhooks/tiktok", `{"user_info":{}}`, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), ing.id.String()) {
		t.Fatalf("expected 200 with lead id, got %d %s", rec.Code, rec.Body.String())
	}

	ing.err = apperr.Validation("Valid phone number is required")
	if rec := do(engine, http.MethodPost, "/api/webhooks/tiktok", `{"user_info":{}}`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for rejected lead, got %d", rec.Code)
	}
	if rec := do(engine, http.MethodPost, "/api/webhooks/tiktok", `{broken`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %d", rec.Code)
	}
}

func TestGoogleAuth(t *testing.T) {
	cases := []struct {
		name   string
		target string
		body   string
		header map[string]string
		status int
	}{
		{"google key", "/api/webhooks/google", `{"google_key":"google-secret"}`, nil, http.StatusOK},
		{"api key header", "/api/webhooks/google", `{}`, map[string]string{"X-API-Key": "api-secret"}, http.StatusOK},
		{"api key query", "/api/webhooks/google?api_key=api-secret", `{}`, nil, http.StatusOK},
		{"wrong google key", "/api/webhooks/google", `{"google_key":"guess"}`, nil, http.StatusUnauthorized},
		{"no credentials", "/api/webhooks/google", `{}`, nil, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ing := &fakeIngester{id: uuid.New()}
			rec := do(newEngine(ing), http.MethodPost, tc.target, tc.body, tc.header)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d %s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.status == http.StatusOK && (len(ing.sources) != 1 || ing.sources[0] != "GOOGLE") {
				t.Fatalf("expected GOOGLE intake, got %v", ing.sources)
			}
		})
	}
}

func TestLeadIntakeSource(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		header string
		want   string
	}{
		{"header wins", `{"source":"TIKTOK"}`, "GOOGLE", "GOOGLE"},
		{"body source", `{"source":"landing"}`, "", "landing"},
		{"default direct", `{"name":"A"}`, "", "DIRECT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ing := &fakeIngester{id: uuid.New()}
			header := map[string]string{"X-API-Key": "api-secret"}
			if tc.header != "" {
				header[HeaderLeadSource] = tc.header
			}
			rec := do(newEngine(ing), http.MethodPost, "/api/webhooks/lead-intake", tc.body, header)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if len(ing.sources) != 1 || ing.sources[0] != tc.want {
				t.Fatalf("expected source %q, got %v", tc.want, ing.sources)
			}
		})
	}

	if rec := do(newEngine(&fakeIngester{}), http.MethodPost, "/api/webhooks/lead-intake", `{}`, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}
}

func TestIntakeErrorsHideInternals(t *testing.T) {
	ing := &fakeIngester{err: errors.New("pool exhausted")}
	rec := do(newEngine(ing), http.MethodPost, "/api/webhooks/tiktok", `{}`, nil)
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "pool exhausted") {
		t.Fatalf("expected opaque 500, got %d %s", rec.Code, rec.Body.String())
	}
}
