package followup

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"lead_pipeline_backend/internal/crm"
	"lead_pipeline_backend/internal/email"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/scheduler"
	"lead_pipeline_backend/internal/sms"
	"lead_pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

type failingSMS struct{ calls int }

func (f *failingSMS) Name() string { return "failing" }
func (f *failingSMS) Send(context.Context, string, string) (string, error) {
	f.calls++
	return "", errors.New("carrier unavailable")
}

type failingEmail struct{}

func (failingEmail) Name() string { return "failing" }
func (failingEmail) Send(context.Context, email.Message) (string, error) {
	return "", errors.New("smtp timeout")
}

type stubSyncer struct {
	result crm.SyncResult
	err    error
	calls  []crm.Action
}

func (s *stubSyncer) Sync(_ context.Context, _ uuid.UUID, action crm.Action) (crm.SyncResult, error) {
	s.calls = append(s.calls, action)
	return s.result, s.err
}

type fixture struct {
	store  *repository.MemoryStore
	sms    *sms.Simulated
	email  *email.Simulated
	syncer *stubSyncer
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  repository.NewMemoryStore(),
		sms:    sms.NewSimulated(logger.Discard()),
		email:  email.NewSimulated(logger.Discard()),
		syncer: &stubSyncer{result: crm.SyncResult{Success: true, CRMID: "c1"}},
	}
	f.svc = New(f.store, f.sms, f.email, f.syncer, Limits{MaxSMS: 1, MaxEmail: 2}, logger.Discard())
	return f
}

// seed creates a lead with a qualification link and applies mutate.
func (f *fixture) seed(t *testing.T, mutate func(l *repository.Lead)) repository.Lead {
	t.Helper()
	ctx := context.Background()
	addr := "jane@example.com"
	lead, err := f.store.Create(ctx, repository.CreateLeadParams{
		Name:   "Jane Doe",
		Phone:  "+15551234567",
		Email:  &addr,
		Source: domain.SourceLanding,
		Score:  10,
		Status: domain.StatusCold,
	}, repository.NewActivity{Type: domain.ActivityLeadCreated})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	lead, err = f.store.Mutate(ctx, lead.ID, func(m *repository.Mutation) error {
		link := "https://example.com/qualify?lid=" + m.Lead.ID.String()
		m.Lead.QualificationLink = &link
		if mutate != nil {
			mutate(&m.Lead)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return lead
}

func (f *fixture) activities(t *testing.T, id uuid.UUID, kind domain.ActivityType) []repository.Activity {
	t.Helper()
	all, err := f.store.ListActivities(context.Background(), id, 100)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	var out []repository.Activity
	for _, a := range all {
		if a.Type == kind {
			out = append(out, a)
		}
	}
	return out
}

func (f *fixture) lead(t *testing.T, id uuid.UUID) repository.Lead {
	t.Helper()
	lead, err := f.store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get lead: %v", err)
	}
	return lead
}

func TestQualificationLinkSMSMarksDelivery(t *testing.T) {
	f := newFixture(t)
	lead := f.seed(t, nil)

	err := f.svc.HandleSMS(context.Background(), scheduler.SMSPayload{LeadID: lead.ID.String(), Type: "qualification_link"})
	if err != nil {
		t.Fatalf("handle sms: %v", err)
	}

	sent := f.sms.Sent()
	if len(sent) != 1 || !strings.Contains(sent[0].Body, *lead.QualificationLink) || !strings.HasPrefix(sent[0].Body, "Hi Jane!") {
		t.Fatalf("unexpected messages %+v", sent)
	}
	got := f.lead(t, lead.ID)
	if got.SMSCount != 1 || got.LinkDeliveredAt == nil || got.LastContactedAt == nil {
		t.Fatalf("expected delivery bookkeeping, got count=%d delivered=%v contacted=%v", got.SMSCount, got.LinkDeliveredAt, got.LastContactedAt)
	}
	acts := f.activities(t, lead.ID, domain.ActivitySMSSent)
	if len(acts) != 1 || acts[0].Data["messageId"] != sent[0].ID || acts[0].Channel != domain.ChannelSMS {
		t.Fatalf("unexpected SMS_SENT activities %+v", acts)
	}
}

func TestQualificationLinkSMSIsNotCappedButSentOnce(t *testing.T) {
	f := newFixture(t)
	lead := f.seed(t, func(l *repository.Lead) { l.SMSCount = 5 })
	payload := scheduler.SMSPayload{LeadID: lead.ID.String(), Type: "qualification_link"}

	for i := 0; i < 2; i++ {
		if err := f.svc.HandleSMS(context.Background(), payload); err != nil {
			t.Fatalf("handle sms: %v", err)
		}
	}

	if n := len(f.sms.Sent()); n != 1 {
		t.Fatalf("expected exactly one delivery, got %d", n)
	}
	if got := f.lead(t, lead.ID).SMSCount; got != 6 {
		t.Fatalf("expected counter 6, got %d", got)
	}
}

func TestFollowupSMSRespectsCap(t *testing.T) {
	f := newFixture(t)
	lead := f.seed(t, nil)
	payload := scheduler.SMSPayload{LeadID: lead.ID.String(), Type: "followup"}

	for i := 0; i < 3; i++ {
		if err := f.svc.HandleSMS(context.Background(), payload); err != nil {
			t.Fatalf("handle sms: %v", err)
		}
	}

	if n := len(f.sms.Sent()); n != 1 {
		t.Fatalf("expected cap of one follow-up, got %d", n)
	}
	if got := f.lead(t, lead.ID).SMSCount; got != 1 {
		t.Fatalf("expected counter 1, got %d", got)
	}
}

func TestFollowupSMSConcurrentDeliveryStaysCapped(t *testing.T) {
	f := newFixture(t)
	lead := f.seed(t, nil)
	payload := scheduler.SMSPayload{LeadID: lead.ID.String(), Type: "followup"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.svc.HandleSMS(context.Background(), payload)
		}()
	}
	wg.Wait()

	if n := len(f.sms.Sent()); n != 1 {
		t.Fatalf("expected exactly one follow-up under concurrency, got %d", n)
	}
	if got := f.lead(t, lead.ID).SMSCount; got != 1 {
		t.Fatalf("expected counter 1, got %d", got)
	}
}

func TestSMSSkipsIneligibleLeads(t *testing.T) {
	completedAt := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		mutate func(l *repository.Lead)
	}{
		{"do not contact", func(l *repository.Lead) { l.Status = domain.StatusDoNotContact }},
		{"completed", func(l *repository.Lead) { l.QualificationCompletedAt = &completedAt }},
		{"no link", func(l *repository.Lead) { l.QualificationLink = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			lead := f.seed(t, tt.mutate)
			err := f.svc.HandleSMS(context.Background(), scheduler.SMSPayload{LeadID: lead.ID.String(), Type: "reminder"})
			if err != nil {
				t.Fatalf("expected skip without error, got %v", err)
			}
			if n := len(f.sms.Sent()); n != 0 {
				t.Fatalf("expected no messages, got %d", n)
			}
		})
	}
}

func TestSMSMissingLeadIsSkipped(t *testing.T) {
	f := newFixture(t)
	err := f.svc.HandleSMS(context.Background(), scheduler.SMSPayload{LeadID: uuid.NewString(), Type: "followup"})
	if err != nil {
		t.Fatalf("expected skip, got %v", err)
	}
}

func TestSMSFailureReleasesSlotAndLogs(t *testing.T) {
	f := newFixture(t)
	sender := &failingSMS{}
	f.svc = New(f.store, sender, f.email, f.syncer, Limits{MaxSMS: 1, MaxEmail: 2}, logger.Discard())
	lead := f.seed(t, nil)

	err := f.svc.HandleSMS(context.Background(), scheduler.SMSPayload{LeadID: lead.ID.String(), Type: "reminder"})
	if err == nil {
		t.Fatal("expected provider error so the task is retried")
	}
	if got := f.lead(t, lead.ID).SMSCount; got != 0 {
		t.Fatalf("expected slot released, counter %d", got)
	}
	acts := f.activities(t, lead.ID, domain.ActivitySMSFailed)
	if len(acts) != 1 || acts[0].Data["type"] != "reminder" || acts[0].Data["error"] != "carrier unavailable" {
		t.Fatalf("unexpected SMS_FAILED activities %+v", acts)
	}
}

func TestSMSRejectsMalformedPayload(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.HandleSMS(context.Background(), scheduler.SMSPayload{LeadID: "nope", Type: "followup"}); !errors.Is(err, scheduler.ErrPermanent) {
		t.Fatalf("expected permanent error for bad id, got %v", err)
	}
	if err := f.svc.HandleSMS(context.Background(), scheduler.SMSPayload{LeadID: uuid.NewString(), Type: "poke"}); !errors.Is(err, scheduler.ErrPermanent) {
		t.Fatalf("expected permanent error for bad type, got %v", err)
	}
}

func TestEmailSendsAndCounts(t *testing.T) {
	f := newFixture(t)
	lead := f.seed(t, nil)
	payload := scheduler.EmailPayload{LeadID: lead.ID.String(), Email: "jane@example.com", Template: "qualification_link"}

	for i := 0; i < 3; i++ {
		if err := f.svc.HandleEmail(context.Background(), payload); err != nil {
			t.Fatalf("handle email: %v", err)
		}
	}

	sent := f.email.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected cap of two emails, got %d", len(sent))
	}
	if sent[0].To != "jane@example.com" || !strings.Contains(sent[0].HTML, *lead.QualificationLink) {
		t.Fatalf("unexpected email %+v", sent[0])
	}
	if got := f.lead(t, lead.ID); got.EmailCount != 2 || got.LastContactedAt == nil {
		t.Fatalf("unexpected bookkeeping count=%d contacted=%v", got.EmailCount, got.LastContactedAt)
	}
	if n := len(f.activities(t, lead.ID, domain.ActivityEmailSent)); n != 2 {
		t.Fatalf("expected two EMAIL_SENT activities, got %d", n)
	}
}

func TestEmailMissingLeadIsRetried(t *testing.T) {
	f := newFixture(t)
	err := f.svc.HandleEmail(context.Background(), scheduler.EmailPayload{LeadID: uuid.NewString(), Template: "followup"})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if errors.Is(err, scheduler.ErrPermanent) {
		t.Fatal("missing lead must stay retryable")
	}
}

func TestEmailFailureReleasesSlot(t *testing.T) {
	f := newFixture(t)
	f.svc = New(f.store, f.sms, failingEmail{}, f.syncer, Limits{MaxSMS: 1, MaxEmail: 2}, logger.Discard())
	lead := f.seed(t, nil)

	err := f.svc.HandleEmail(context.Background(), scheduler.EmailPayload{LeadID: lead.ID.String(), Template: "followup"})
	if err == nil {
		t.Fatal("expected send error")
	}
	if got := f.lead(t, lead.ID).EmailCount; got != 0 {
		t.Fatalf("expected slot released, counter %d", got)
	}
	if n := len(f.activities(t, lead.ID, domain.ActivityEmailFailed)); n != 1 {
		t.Fatalf("expected one EMAIL_FAILED activity, got %d", n)
	}
}

func TestEmailSkipsLeadWithoutAddress(t *testing.T) {
	f := newFixture(t)
	lead := f.seed(t, func(l *repository.Lead) { l.Email = nil })

	err := f.svc.HandleEmail(context.Background(), scheduler.EmailPayload{LeadID: lead.ID.String(), Template: "followup"})
	if err != nil {
		t.Fatalf("expected skip, got %v", err)
	}
	if n := len(f.email.Sent()); n != 0 {
		t.Fatalf("expected no emails, got %d", n)
	}
}

func TestEngagementCheck(t *testing.T) {
	at := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		mutate     func(l *repository.Lead)
		wantBody   string
		wantStatus domain.Status
	}{
		{
			name:       "never opened gets followup and nurture",
			wantBody:   "just following up",
			wantStatus: domain.StatusNurture,
		},
		{
			name:       "opened gets reminder",
			mutate:     func(l *repository.Lead) { l.LinkOpenedAt = &at },
			wantBody:   "still waiting",
			wantStatus: domain.StatusCold,
		},
		{
			name: "started gets reminder",
			mutate: func(l *repository.Lead) {
				l.LinkOpenedAt = &at
				l.QualificationStartedAt = &at
			},
			wantBody:   "still waiting",
			wantStatus: domain.StatusCold,
		},
		{
			name:       "completed gets nothing",
			mutate:     func(l *repository.Lead) { l.MarkCompleted(at) },
			wantStatus: domain.StatusCold,
		},
		{
			name:       "converted left alone",
			mutate:     func(l *repository.Lead) { l.Status = domain.StatusConverted },
			wantStatus: domain.StatusConverted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			lead := f.seed(t, tt.mutate)

			err := f.svc.HandleEngagementCheck(context.Background(), scheduler.EngagementPayload{LeadID: lead.ID.String(), CheckType: "link_engagement"})
			if err != nil {
				t.Fatalf("engagement check: %v", err)
			}

			sent := f.sms.Sent()
			switch {
			case tt.wantBody == "" && len(sent) != 0:
				t.Fatalf("expected no sms, got %+v", sent)
			case tt.wantBody != "" && (len(sent) != 1 || !strings.Contains(sent[0].Body, tt.wantBody)):
				t.Fatalf("expected sms containing %q, got %+v", tt.wantBody, sent)
			}
			if got := f.lead(t, lead.ID).Status; got != tt.wantStatus {
				t.Fatalf("expected status %s, got %s", tt.wantStatus, got)
			}
		})
	}
}

func TestEngagementSkipsDoNotContact(t *testing.T) {
	f := newFixture(t)
	lead := f.seed(t, func(l *repository.Lead) { l.Status = domain.StatusDoNotContact })

	if err := f.svc.HandleEngagementCheck(context.Background(), scheduler.EngagementPayload{LeadID: lead.ID.String()}); err != nil {
		t.Fatalf("engagement check: %v", err)
	}
	if n := len(f.sms.Sent()); n != 0 {
		t.Fatalf("expected no sms, got %d", n)
	}
	if got := f.lead(t, lead.ID).Status; got != domain.StatusDoNotContact {
		t.Fatalf("expected status untouched, got %s", got)
	}
}

// completingStore lands a qualification submission just before the first
// locked write, the way the qualification webhook races the scheduler.
type completingStore struct {
	*repository.MemoryStore
	once sync.Once
}

func (s *completingStore) Mutate(ctx context.Context, id uuid.UUID, fn func(m *repository.Mutation) error) (repository.Lead, error) {
	s.once.Do(func() {
		_, _ = s.MemoryStore.Mutate(ctx, id, func(m *repository.Mutation) error {
			m.Lead.MarkCompleted(time.Now())
			m.Lead.Status = domain.StatusHot
			return nil
		})
	})
	return s.MemoryStore.Mutate(ctx, id, fn)
}

func TestEngagementCheckYieldsToConcurrentQualification(t *testing.T) {
	f := newFixture(t)
	lead := f.seed(t, nil)
	racing := &completingStore{MemoryStore: f.store}
	svc := New(racing, f.sms, f.email, f.syncer, Limits{MaxSMS: 1, MaxEmail: 2}, logger.Discard())

	if err := svc.HandleEngagementCheck(context.Background(), scheduler.EngagementPayload{LeadID: lead.ID.String()}); err != nil {
		t.Fatalf("engagement check: %v", err)
	}

	got := f.lead(t, lead.ID)
	if got.Status != domain.StatusHot {
		t.Fatalf("expected qualified lead to stay HOT, got %s", got.Status)
	}
	if !got.IsCompleted() {
		t.Fatal("expected completion to be kept")
	}
	if n := len(f.sms.Sent()); n != 0 {
		t.Fatalf("expected no sms after qualification, got %d", n)
	}
	if n := len(f.activities(t, lead.ID, domain.ActivityStatusChanged)); n != 0 {
		t.Fatalf("expected no status change, got %d", n)
	}
}

func TestCRMSyncHandler(t *testing.T) {
	f := newFixture(t)
	lead := f.seed(t, nil)
	payload := scheduler.CRMSyncPayload{LeadID: lead.ID.String(), Action: "create"}

	if err := f.svc.HandleCRMSync(context.Background(), payload); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(f.syncer.calls) != 1 || f.syncer.calls[0] != crm.ActionCreate {
		t.Fatalf("unexpected syncer calls %+v", f.syncer.calls)
	}

	f.syncer.result = crm.SyncResult{Error: "duplicate contact"}
	if err := f.svc.HandleCRMSync(context.Background(), payload); err == nil || errors.Is(err, scheduler.ErrPermanent) {
		t.Fatalf("expected retryable rejection, got %v", err)
	}

	f.syncer.err = repository.ErrNotFound
	if err := f.svc.HandleCRMSync(context.Background(), payload); !errors.Is(err, scheduler.ErrPermanent) {
		t.Fatalf("expected permanent error for missing lead, got %v", err)
	}
}
