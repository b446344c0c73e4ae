package normalizer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"lead_pipeline_backend/internal/leads/domain"
)

type stubFetcher struct {
	lead  GraphLead
	err   error
	calls []string
}

func (s *stubFetcher) FetchLead(_ context.Context, leadgenID string) (GraphLead, error) {
	s.calls = append(s.calls, leadgenID)
	return s.lead, s.err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func TestNormalizeChannels(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		body       string
		wantName   string
		wantPhone  string
		wantEmail  string
		wantSource domain.Source
		wantAdID   string
		wantCamp   string
	}{
		{
			name:   "meta field data",
			source: "meta",
			body: `{"entry":[{"changes":[{"value":{"form_id":"F1","page_id":"P1","field_data":[
				{"name":"full_name","values":["Jane Doe"]},
				{"name":"phone_number","values":["(555) 123-4567"]},
				{"name":"email","values":[" Jane@Example.COM "]}]}}]}]}`,
			wantName:   "Jane Doe",
			wantPhone:  "+15551234567",
			wantEmail:  "jane@example.com",
			wantSource: domain.SourceMeta,
			wantAdID:   "F1",
			wantCamp:   "P1",
		},
		{
			name:       "meta top-level test data",
			source:     "META",
			body:       `{"field_data":[{"name":"first_name","values":["Sam"]},{"name":"phone","values":["+44 20 7946 0958"]}]}`,
			wantName:   "Sam",
			wantPhone:  "+442079460958",
			wantSource: domain.SourceMeta,
		},
		{
			name:   "google columns",
			source: "GOOGLE",
			body: `{"lead_id":"g1","campaign_id":12345,"ad_group_id":"AG9","user_column_data":[
				{"column_id":"FULL_NAME","string_value":"Ana Ruiz"},
				{"column_id":"PHONE_NUMBER","string_value":"555.987.6543"},
				{"column_id":"EMAIL","string_value":"ana@example.com"}]}`,
			wantName:   "Ana Ruiz",
			wantPhone:  "+15559876543",
			wantEmail:  "ana@example.com",
			wantSource: domain.SourceGoogle,
			wantAdID:   "AG9",
			wantCamp:   "12345",
		},
		{
			name:       "tiktok user info",
			source:     "tiktok",
			body:       `{"event":"lead","user_info":{"phone_number":"15551230000"},"ad_id":"T1","campaign_id":"C1"}`,
			wantName:   "Unknown",
			wantPhone:  "+15551230000",
			wantSource: domain.SourceTikTok,
			wantAdID:   "T1",
			wantCamp:   "C1",
		},
		{
			name:       "landing flat form",
			source:     "LANDING",
			body:       `{"name":"<b>Lee</b> Park","phone":"555 000 1111","rentalType":"yacht","utmSource":"ig"}`,
			wantName:   "Lee Park",
			wantPhone:  "+15550001111",
			wantSource: domain.SourceLanding,
		},
	}

	n := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lead, err := n.Normalize(context.Background(), tt.source, []byte(tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if lead.Name != tt.wantName {
				t.Errorf("name = %q, want %q", lead.Name, tt.wantName)
			}
			if lead.Phone != tt.wantPhone {
				t.Errorf("phone = %q, want %q", lead.Phone, tt.wantPhone)
			}
			if deref(lead.Email) != tt.wantEmail {
				t.Errorf("email = %q, want %q", deref(lead.Email), tt.wantEmail)
			}
			if lead.Source != tt.wantSource {
				t.Errorf("source = %q, want %q", lead.Source, tt.wantSource)
			}
			if deref(lead.AdID) != tt.wantAdID {
				t.Errorf("adId = %q, want %q", deref(lead.AdID), tt.wantAdID)
			}
			if deref(lead.CampaignID) != tt.wantCamp {
				t.Errorf("campaignId = %q, want %q", deref(lead.CampaignID), tt.wantCamp)
			}
		})
	}
}

func TestNormalizeLandingKeepsAttribution(t *testing.T) {
	lead, err := New(nil).Normalize(context.Background(), "DIRECT",
		[]byte(`{"name":"Kim","phone":"5551112222","rentalType":"villa","utmSource":"google","utmMedium":"cpc","utmCampaign":"spring"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deref(lead.RentalType) != "villa" || deref(lead.UTMSource) != "google" ||
		deref(lead.UTMMedium) != "cpc" || deref(lead.UTMCampaign) != "spring" {
		t.Fatalf("attribution fields not preserved: %+v", lead)
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		body   string
		want   error
	}{
		{"unknown source", "LINKEDIN", `{}`, ErrUnknownSource},
		{"malformed json", "DIRECT", `{"name":`, ErrInvalidPayload},
		{"empty body", "DIRECT", ``, ErrInvalidPayload},
		{"meta without fields", "META", `{"entry":[]}`, ErrInvalidPayload},
		{"google without columns", "GOOGLE", `{"lead_id":"x"}`, ErrInvalidPayload},
		{"tiktok without user info", "TIKTOK", `{"ad_id":"x"}`, ErrInvalidPayload},
		{"short phone", "DIRECT", `{"name":"A","phone":"12345"}`, ErrInvalidPhone},
		{"meta reference without fetcher", "META", `{"entry":[{"changes":[{"value":{"leadgen_id":"L1"}}]}]}`, ErrGraphUnavailable},
	}

	n := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(context.Background(), tt.source, []byte(tt.body))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNormalizeMetaReferenceUsesFetcher(t *testing.T) {
	fetcher := &stubFetcher{lead: GraphLead{
		ID: "L1",
		FieldData: []metaField{
			{Name: "full_name", Values: []string{"Graph Person"}},
			{Name: "phone_number", Values: []string{"5554443333"}},
		},
	}}

	lead, err := New(fetcher).Normalize(context.Background(), "META",
		[]byte(`{"entry":[{"changes":[{"value":{"leadgen_id":"L1","page_id":"P1"}}]}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fetcher.calls) != 1 || fetcher.calls[0] != "L1" {
		t.Fatalf("expected one fetch for L1, got %v", fetcher.calls)
	}
	if lead.Name != "Graph Person" || lead.Phone != "+15554443333" || deref(lead.AdID) != "L1" {
		t.Fatalf("unexpected lead %+v", lead)
	}
}

func TestGraphFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v19.0/L42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("access_token") != "tok" {
			t.Errorf("missing access token")
		}
		_, _ = w.Write([]byte(`{"id":"L42","field_data":[{"name":"email","values":["a@b.c"]}]}`))
	}))
	defer srv.Close()

	lead, err := NewGraphFetcher(srv.URL+"/", "tok").FetchLead(context.Background(), "L42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lead.ID != "L42" || metaFieldValue(lead.FieldData, "EMAIL") != "a@b.c" {
		t.Fatalf("unexpected graph lead %+v", lead)
	}
}

func TestGraphFetcherFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	if _, err := NewGraphFetcher(srv.URL, "tok").FetchLead(context.Background(), "L1"); !errors.Is(err, ErrGraphUnavailable) {
		t.Fatalf("expected ErrGraphUnavailable for non-200, got %v", err)
	}
	if _, err := NewGraphFetcher(srv.URL, "").FetchLead(context.Background(), "L1"); !errors.Is(err, ErrGraphUnavailable) {
		t.Fatalf("expected ErrGraphUnavailable without token, got %v", err)
	}
}
