package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lead_pipeline_backend/internal/crm"
	"lead_pipeline_backend/internal/events"
	"lead_pipeline_backend/internal/leads/normalizer"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/leads/scoring"
	"lead_pipeline_backend/internal/leads/service"
	"lead_pipeline_backend/internal/leads/transport"
	"lead_pipeline_backend/internal/scheduler"
	"lead_pipeline_backend/platform/httpkit"
	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const testAPIKey = "test-key"

type apiKey struct{}

func (apiKey) GetAPIKey() string { return testAPIKey }

type nopScheduler struct{}

func (nopScheduler) EnqueueSMS(context.Context, scheduler.SMSPayload, time.Duration) error {
	return nil
}
func (nopScheduler) EnqueueEmail(context.Context, scheduler.EmailPayload, time.Duration) error {
	return nil
}
func (nopScheduler) EnqueueCRMSync(context.Context, scheduler.CRMSyncPayload, time.Duration) error {
	return nil
}
func (nopScheduler) EnqueueEngagementCheck(context.Context, scheduler.EngagementPayload, time.Duration) error {
	return nil
}

func newTestEngine(t *testing.T) (*gin.Engine, *repository.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	svc := service.New(service.Deps{
		Store:      store,
		Normalizer: normalizer.New(nil),
		Engine:     scoring.NewEngine(scoring.DefaultRules(), scoring.Thresholds{Hot: 50, Warm: 30, BudgetMinimum: 5000}),
		Scheduler:  nopScheduler{},
		Syncer:     crm.NewSyncer(store, crm.NewMock(), crm.Pipeline{}, logger.Discard()),
		Bus:        events.NewInMemoryBus(logger.Discard()),
		Settings:   service.Settings{LinkBaseURL: "https://example.com/q", DedupWindow: 24 * time.Hour},
		Log:        logger.Discard(),
	})
	val := validator.New()

	engine := gin.New()
	api := engine.Group("/api")
	New(svc, val).RegisterRoutes(api.Group("/v1/leads", httpkit.APIKeyRequired(apiKey{})))
	public := NewPublicHandler(svc, val)
	public.RegisterCallbacks(api.Group("/webhooks"))
	api.POST("/lead-capture", public.Capture)
	return engine, store
}

func request(engine *gin.Engine, method, target, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set(httpkit.HeaderAPIKey, testAPIKey)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func capture(t *testing.T, engine *gin.Engine) uuid.UUID {
	t.Helper()
	rec := request(engine, http.MethodPost, "/api/lead-capture", `{"name":"Jane Doe","phone":"(555) 123-4567","email":"jane@example.com"}`, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var resp transport.IntakeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.LeadID == uuid.Nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	return resp.LeadID
}

func TestCaptureValidation(t *testing.T) {
	engine, _ := newTestEngine(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing phone", `{"name":"Jane"}`},
		{"bad email", `{"name":"Jane","phone":"5551234567","email":"nope"}`},
		{"malformed", `{"name":`},
		{"unparseable phone", `{"name":"Jane","phone":"abcdefgh"}`},
		{"unknown source", `{"name":"Jane","phone":"5551234567","source":"FAX"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := request(engine, http.MethodPost, "/api/lead-capture", tc.body, false)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestQualificationFlow(t *testing.T) {
	engine, store := newTestEngine(t)
	id := capture(t, engine)
	ref := `{"lead_id":"` + id.String() + `"}`

	for _, path := range []string{"/api/webhooks/link-opened", "/api/webhooks/qualification-started"} {
		if rec := request(engine, http.MethodPost, path, ref, false); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}

	body := `{"lead_id":"` + id.String() + `","rental_type":"Day Charter","timeline":"next week","budget":"$50,000"}`
	rec := request(engine, http.MethodPost, "/api/webhooks/qualification-complete", body, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var resp transport.QualificationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Score != 50 || resp.Status != "HOT" {
		t.Fatalf("expected 50 HOT, got %+v", resp)
	}

	lead, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !lead.IsCompleted() || lead.LinkOpenedAt == nil {
		t.Fatalf("funnel not recorded: %+v", lead.Funnel)
	}
}

func TestQualificationCompleteAcceptsFormGuestCounts(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  string
	}{
		{"not chosen", `""`, ""},
		{"range", `"1-4"`, "1-4"},
		{"open range", `"20+"`, "20+"},
		{"api number", `6`, "6"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, store := newTestEngine(t)
			id := capture(t, engine)

			body := `{"lead_id":"` + id.String() + `","rental_type":"yacht","timeline":"this_month","budget":"25k-50k",` +
				`"location":"","guest_count":` + tc.value + `,"special_requests":""}`
			rec := request(engine, http.MethodPost, "/api/webhooks/qualification-complete", body, false)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
			}

			lead, err := store.GetByID(context.Background(), id)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if !lead.IsCompleted() {
				t.Fatal("expected qualification to be recorded")
			}
			got := ""
			if lead.GuestCount != nil {
				got = *lead.GuestCount
			}
			if got != tc.want {
				t.Fatalf("expected guest count %q, got %q", tc.want, got)
			}
		})
	}
}

func TestQualificationCallbackErrors(t *testing.T) {
	engine, _ := newTestEngine(t)

	cases := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"missing id", "/api/webhooks/link-opened", `{}`, http.StatusBadRequest},
		{"not a uuid", "/api/webhooks/link-opened", `{"lead_id":"42"}`, http.StatusBadRequest},
		{"unknown lead", "/api/webhooks/qualification-started", `{"lead_id":"` + uuid.NewString() + `"}`, http.StatusNotFound},
		{"missing fields", "/api/webhooks/qualification-complete", `{"lead_id":"` + uuid.NewString() + `","budget":"10k"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := request(engine, http.MethodPost, tc.path, tc.body, false); rec.Code != tc.status {
				t.Fatalf("expected %d, got %d %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestManagementRequiresAPIKey(t *testing.T) {
	engine, _ := newTestEngine(t)
	rec := request(engine, http.MethodGet, "/api/v1/leads", "", false)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "Unauthorized") {
		t.Fatalf("expected 401, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := request(engine, http.MethodGet, "/api/v1/leads?api_key="+testAPIKey, "", false); rec.Code != http.StatusOK {
		t.Fatalf("expected query key accepted, got %d", rec.Code)
	}
}

func TestManagementEndpoints(t *testing.T) {
	engine, _ := newTestEngine(t)
	id := capture(t, engine)
	base := "/api/v1/leads/" + id.String()

	rec := request(engine, http.MethodGet, base, "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	var detail transport.LeadDetailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.Phone != "+15551234567" || len(detail.Activities) == 0 {
		t.Fatalf("unexpected detail %+v", detail)
	}

	if rec := request(engine, http.MethodPatch, base, `{"status":"WHATEVER"}`, true); rec.Code != http.StatusBadRequest {
		t.Fatalf("patch invalid status: expected 400, got %d", rec.Code)
	}
	if rec := request(engine, http.MethodPatch, base, `{"budget":"$20,000"}`, true); rec.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d", rec.Code)
	}
	if rec := request(engine, http.MethodPost, base+"/notes", `{"note":"called back"}`, true); rec.Code != http.StatusCreated {
		t.Fatalf("note: expected 201, got %d", rec.Code)
	}
	if rec := request(engine, http.MethodPost, base+"/notes", `{"note":""}`, true); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty note: expected 400, got %d", rec.Code)
	}

	rec = request(engine, http.MethodPost, base+"/rescore", "", true)
	var rescore transport.RescoreResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &rescore); err != nil {
		t.Fatalf("decode rescore: %v", err)
	}
	if rescore.PreviousScore != 10 || rescore.NewScore != 30 || rescore.Status != "WARM" {
		t.Fatalf("unexpected rescore %+v", rescore)
	}

	if rec := request(engine, http.MethodPost, base+"/sync-crm", "", true); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("sync: unexpected %d %s", rec.Code, rec.Body.String())
	}
	if rec := request(engine, http.MethodPost, base+"/transfer", "", true); rec.Code != http.StatusOK {
		t.Fatalf("transfer: expected 200, got %d", rec.Code)
	}

	rec = request(engine, http.MethodGet, "/api/v1/leads/stats", "", true)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Fatalf("stats: unexpected %d %s", rec.Code, rec.Body.String())
	}

	rec = request(engine, http.MethodGet, "/api/v1/leads?status=HOT&pageSize=5", "", true)
	var list transport.LeadListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Pagination.Total != 1 || list.Pagination.PageSize != 5 {
		t.Fatalf("unexpected list %+v", list.Pagination)
	}
}

func TestManagementNotFound(t *testing.T) {
	engine, _ := newTestEngine(t)
	if rec := request(engine, http.MethodGet, "/api/v1/leads/not-a-uuid", "", true); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
	if rec := request(engine, http.MethodGet, "/api/v1/leads/"+uuid.NewString(), "", true); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
