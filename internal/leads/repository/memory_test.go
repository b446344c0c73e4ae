package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lead_pipeline_backend/internal/leads/domain"

	"github.com/google/uuid"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.SetClock(clock.Now)
	return store, clock
}

func createLead(t *testing.T, store *MemoryStore, name, phone string, source domain.Source) Lead {
	t.Helper()
	lead, err := store.Create(context.Background(), CreateLeadParams{
		Name:   name,
		Phone:  phone,
		Source: source,
		Score:  5,
		Status: domain.StatusCold,
	}, NewActivity{Type: domain.ActivityLeadCreated, Data: map[string]any{"source": string(source)}})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	return lead
}

func TestMemoryStoreCreateLogsCreationActivity(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	lead := createLead(t, store, "Jane Doe", "+15551234567", domain.SourceMeta)

	activities, err := store.ListActivities(ctx, lead.ID, 50)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	if len(activities) != 1 || activities[0].Type != domain.ActivityLeadCreated {
		t.Fatalf("expected one LEAD_CREATED activity, got %+v", activities)
	}
	if activities[0].LeadID != lead.ID {
		t.Fatalf("activity lead id mismatch")
	}
}

func TestMemoryStoreFindRecentByPhoneRespectsWindow(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	old := createLead(t, store, "Old", "+15551234567", domain.SourceMeta)
	clock.Advance(time.Hour)
	recent := createLead(t, store, "Recent", "+15551234567", domain.SourceGoogle)

	found, err := store.FindRecentByPhone(ctx, "+15551234567", clock.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != recent.ID {
		t.Fatalf("expected newest lead %s, got %s (old %s)", recent.ID, found.ID, old.ID)
	}

	clock.Advance(48 * time.Hour)
	if _, err := store.FindRecentByPhone(ctx, "+15551234567", clock.Now().Add(-24*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound outside window, got %v", err)
	}
}

func TestMemoryStoreMutatePersistsLogs(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	lead := createLead(t, store, "Jane Doe", "+15551234567", domain.SourceMeta)

	updated, err := store.Mutate(ctx, lead.ID, func(m *Mutation) error {
		m.LogScore(m.Lead.Score, 50, "budget qualified", "budget_qualified")
		m.Lead.Score = 50
		m.Lead.Status = domain.StatusHot
		m.Log(domain.ActivityScoreUpdated, "", map[string]any{"newScore": 50})
		return nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if updated.Score != 50 || updated.Status != domain.StatusHot {
		t.Fatalf("unexpected lead after mutate: %+v", updated)
	}

	logs, _ := store.ListScoreLogs(ctx, lead.ID, 20)
	if len(logs) != 1 || logs[0].PreviousScore != 5 || logs[0].NewScore != 50 {
		t.Fatalf("unexpected score logs: %+v", logs)
	}
	activities, _ := store.ListActivities(ctx, lead.ID, 50)
	if len(activities) != 2 || activities[0].Type != domain.ActivityScoreUpdated {
		t.Fatalf("expected newest-first activities, got %+v", activities)
	}
}

func TestMemoryStoreMutateErrorLeavesLeadUntouched(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	lead := createLead(t, store, "Jane Doe", "+15551234567", domain.SourceMeta)

	boom := errors.New("boom")
	_, err := store.Mutate(ctx, lead.ID, func(m *Mutation) error {
		m.Lead.Score = 99
		m.Log(domain.ActivityNote, "", nil)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := store.GetByID(ctx, lead.ID)
	if got.Score != 5 {
		t.Fatalf("expected score unchanged, got %d", got.Score)
	}
	activities, _ := store.ListActivities(ctx, lead.ID, 50)
	if len(activities) != 1 {
		t.Fatalf("expected no extra activity, got %d", len(activities))
	}
}

func TestMemoryStoreMutateUnknownLead(t *testing.T) {
	store, _ := newTestStore()
	_, err := store.Mutate(context.Background(), uuid.New(), func(*Mutation) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreReserveSMSIsCapped(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	lead := createLead(t, store, "Jane Doe", "+15551234567", domain.SourceMeta)

	const workers = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.ReserveSMS(ctx, lead.ID, 1)
			if err != nil {
				t.Errorf("reserve: %v", err)
				return
			}
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 1 {
		t.Fatalf("expected exactly one reservation, got %d", granted)
	}

	if err := store.ReleaseSMS(ctx, lead.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	got, _ := store.GetByID(ctx, lead.ID)
	if got.SMSCount != 0 {
		t.Fatalf("expected sms count 0 after release, got %d", got.SMSCount)
	}
}

func TestMemoryStoreListFiltersAndPaginates(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	for i, name := range []string{"Alice Smith", "Bob Jones", "Carol Smith"} {
		createLead(t, store, name, "+1555000000"+string(rune('1'+i)), domain.SourceMeta)
		clock.Advance(time.Minute)
	}
	createLead(t, store, "Dan Smith", "+15550000009", domain.SourceGoogle)

	source := domain.SourceMeta
	leads, total, err := store.List(ctx, ListParams{Source: &source, Search: "smith", Page: 1, PageSize: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected total 2, got %d", total)
	}
	if len(leads) != 1 || leads[0].Name != "Carol Smith" {
		t.Fatalf("expected newest match first, got %+v", leads)
	}

	leads, _, _ = store.List(ctx, ListParams{Source: &source, Search: "smith", Page: 2, PageSize: 1})
	if len(leads) != 1 || leads[0].Name != "Alice Smith" {
		t.Fatalf("expected Alice on page 2, got %+v", leads)
	}

	leads, _, _ = store.List(ctx, ListParams{Page: 5, PageSize: 10})
	if len(leads) != 0 {
		t.Fatalf("expected empty page, got %d", len(leads))
	}
}

func TestMemoryStoreSummary(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	first := createLead(t, store, "A", "+15550000001", domain.SourceMeta)
	clock.Advance(48 * time.Hour)
	createLead(t, store, "B", "+15550000002", domain.SourceGoogle)

	if _, err := store.Mutate(ctx, first.ID, func(m *Mutation) error {
		m.Lead.Score = 45
		m.Lead.MarkCompleted(clock.Now())
		return nil
	}); err != nil {
		t.Fatalf("mutate: %v", err)
	}

	today := clock.Now().Truncate(24 * time.Hour)
	sum, err := store.Summary(ctx, today, today.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Total != 2 || sum.Today != 1 || sum.ThisWeek != 2 || sum.Qualified != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.AverageScore != 25 {
		t.Fatalf("expected average 25, got %v", sum.AverageScore)
	}

	bySource, _ := store.CountBySource(ctx)
	if bySource["META"] != 1 || bySource["GOOGLE"] != 1 {
		t.Fatalf("unexpected source counts %v", bySource)
	}
}

func TestMemoryStoreCreateUnlessRecent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	params := CreateLeadParams{Name: "Jane", Phone: "+15551234567", Source: domain.SourceLanding, Status: domain.StatusNew}
	since := time.Now().Add(-time.Hour)

	first, existing, err := store.CreateUnlessRecent(ctx, params, NewActivity{Type: domain.ActivityLeadCreated}, since)
	if err != nil || existing {
		t.Fatalf("expected a new lead, got existing=%v err=%v", existing, err)
	}
	second, existing, err := store.CreateUnlessRecent(ctx, params, NewActivity{Type: domain.ActivityLeadCreated}, since)
	if err != nil || !existing || second.ID != first.ID {
		t.Fatalf("expected the first lead back, got %s existing=%v err=%v", second.ID, existing, err)
	}
	if _, existing, _ := store.CreateUnlessRecent(ctx, params, NewActivity{Type: domain.ActivityLeadCreated}, time.Now().Add(time.Hour)); existing {
		t.Fatal("expected a lead outside the window to be ignored")
	}
}
