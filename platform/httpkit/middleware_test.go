package httpkit

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"lead_pipeline_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

type staticKey string

func (k staticKey) GetAPIKey() string { return string(k) }

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/protected", APIKeyRequired(staticKey("secret")), func(c *gin.Context) {
		OK(c, gin.H{"success": true})
	})
	return engine
}

func TestAPIKeyRequired(t *testing.T) {
	engine := newTestEngine()

	cases := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"missing key", "/protected", "", http.StatusUnauthorized},
		{"wrong header", "/protected", "nope", http.StatusUnauthorized},
		{"header", "/protected", "secret", http.StatusOK},
		{"query", "/protected?api_key=secret", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set(HeaderAPIKey, tc.header)
			}
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestHandleErrorHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err      error
		wantCode int
		wantBody string
	}{
		{apperr.NotFound("Lead not found"), http.StatusNotFound, `{"success":false,"error":"Lead not found"}`},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, `{"success":false,"error":"Internal server error"}`},
		{apperr.Wrap(apperr.KindInternal, "insert lead", errors.New("boom")), http.StatusInternalServerError, `{"success":false,"error":"Internal server error"}`},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		if !HandleError(c, tc.err) {
			t.Fatal("expected error to be handled")
		}
		if rec.Code != tc.wantCode {
			t.Fatalf("expected %d, got %d", tc.wantCode, rec.Code)
		}
		if rec.Body.String() != tc.wantBody {
			t.Fatalf("unexpected body %s", rec.Body.String())
		}
	}
}
