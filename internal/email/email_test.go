package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lead_pipeline_backend/platform/logger"
)

func TestLeadEmailTemplates(t *testing.T) {
	link := "https://example.com/qualify?lid=abc"
	tests := []struct {
		tmpl        Template
		wantSubject string
		wantBody    string
	}{
		{TemplateQualificationLink, subjectQualification, "Thank You, Jane"},
		{TemplateFollowup, subjectFollowup, "Your Charter Awaits, Jane"},
	}
	for _, tt := range tests {
		msg, err := LeadEmail(tt.tmpl, "jane@example.com", "Jane", link)
		if err != nil {
			t.Fatalf("render %s: %v", tt.tmpl, err)
		}
		if msg.Subject != tt.wantSubject || msg.To != "jane@example.com" {
			t.Errorf("unexpected envelope %+v", msg)
		}
		if !strings.Contains(msg.HTML, tt.wantBody) || !strings.Contains(msg.HTML, link) {
			t.Errorf("%s body missing heading or link", tt.tmpl)
		}
	}

	if _, err := LeadEmail("promo", "a@b.c", "A", link); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestLeadEmailEscapesName(t *testing.T) {
	msg, err := LeadEmail(TemplateFollowup, "a@b.c", "<script>", "https://x")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(msg.HTML, "<script>") {
		t.Fatalf("name was not escaped")
	}
}

func TestSalesAlertEmail(t *testing.T) {
	msg, err := SalesAlertEmail("sales@example.com", SalesAlert{
		LeadID: "L1", LeadName: "Jane Doe", Phone: "+15551234567", Score: 70, Source: "META", Budget: "$50k",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if msg.Subject != "HOT lead: Jane Doe (score 70)" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "$50k") || !strings.Contains(msg.HTML, "N/A") {
		t.Fatalf("alert body missing fields")
	}
}

func TestBrevoSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "key" {
			t.Errorf("missing api key header")
		}
		var body brevoEmailRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.To[0].Email != "jane@example.com" || body.Sender.Email != "from@example.com" {
			t.Errorf("unexpected body %+v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<m1@brevo>"}`))
	}))
	defer srv.Close()

	id, err := NewBrevoSender(srv.URL, "key", "YGI", "from@example.com").
		Send(context.Background(), Message{To: "jane@example.com", Subject: "s", HTML: "<p>x</p>"})
	if err != nil || id != "<m1@brevo>" {
		t.Fatalf("unexpected result %q %v", id, err)
	}
}

func TestBrevoSendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	if _, err := NewBrevoSender(srv.URL, "bad", "n", "f@e.c").Send(context.Background(), Message{To: "a@b.c"}); err == nil {
		t.Fatalf("expected error for 401")
	}
}

func TestSMTPBuildMessage(t *testing.T) {
	s := NewSMTPSender("localhost", 25, "", "", "from@example.com", "YGI")
	m, err := s.buildMessage(Message{To: "jane@example.com", Subject: "Hello", HTML: "<p>hi</p>"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if m.GetMessageID() == "" {
		t.Fatalf("expected a message id")
	}
	if _, err := s.buildMessage(Message{To: "not an address"}); err == nil {
		t.Fatalf("expected invalid recipient error")
	}
}

func TestSimulatedSender(t *testing.T) {
	s := NewSimulated(logger.Discard())
	id, err := s.Send(context.Background(), Message{To: "a@b.c", Subject: "x"})
	if err != nil || id != "sim_email_1" || len(s.Sent()) != 1 {
		t.Fatalf("unexpected simulated result %q %v", id, err)
	}
}
