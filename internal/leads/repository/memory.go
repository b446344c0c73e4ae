package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests and local development.
// A single mutex serializes every operation.
type MemoryStore struct {
	mu         sync.Mutex
	leads      map[uuid.UUID]Lead
	seq        map[uuid.UUID]int
	activities map[uuid.UUID][]Activity
	scoreLogs  map[uuid.UUID][]ScoreLog
	next       int
	now        func() time.Time
}

// NewMemoryStore returns an empty store using the wall clock.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leads:      make(map[uuid.UUID]Lead),
		seq:        make(map[uuid.UUID]int),
		activities: make(map[uuid.UUID][]Activity),
		scoreLogs:  make(map[uuid.UUID][]ScoreLog),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the store's time source.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Create(_ context.Context, params CreateLeadParams, created NewActivity) (Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(params, created), nil
}

func (s *MemoryStore) CreateUnlessRecent(_ context.Context, params CreateLeadParams, created NewActivity, since time.Time) (Lead, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.findRecent(params.Phone, since); ok {
		return existing, true, nil
	}
	return s.create(params, created), false, nil
}

func (s *MemoryStore) create(params CreateLeadParams, created NewActivity) Lead {
	now := s.now()
	lead := Lead{
		ID:          uuid.New(),
		Name:        params.Name,
		Phone:       params.Phone,
		Email:       params.Email,
		Source:      params.Source,
		RentalType:  params.RentalType,
		AdID:        params.AdID,
		CampaignID:  params.CampaignID,
		UTMSource:   params.UTMSource,
		UTMMedium:   params.UTMMedium,
		UTMCampaign: params.UTMCampaign,
		Score:       params.Score,
		Status:      params.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.leads[lead.ID] = lead
	s.next++
	s.seq[lead.ID] = s.next

	created.LeadID = lead.ID
	s.appendActivity(created)
	return lead
}

func (s *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return lead, nil
}

func (s *MemoryStore) FindRecentByPhone(_ context.Context, phone string, since time.Time) (Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.findRecent(phone, since)
	if !ok {
		return Lead{}, ErrNotFound
	}
	return lead, nil
}

func (s *MemoryStore) findRecent(phone string, since time.Time) (Lead, bool) {
	var (
		best  Lead
		found bool
	)
	for _, lead := range s.leads {
		if lead.Phone != phone || lead.CreatedAt.Before(since) {
			continue
		}
		if !found || s.newer(lead, best) {
			best, found = lead, true
		}
	}
	return best, found
}

func (s *MemoryStore) newer(a, b Lead) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return s.seq[a.ID] > s.seq[b.ID]
}

func (s *MemoryStore) Mutate(_ context.Context, id uuid.UUID, fn func(m *Mutation) error) (Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}

	m := &Mutation{Lead: current}
	if err := fn(m); err != nil {
		return Lead{}, err
	}

	updated := m.Lead
	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt
	updated.Source = current.Source
	updated.UpdatedAt = s.now()
	s.leads[id] = updated

	for _, entry := range m.scoreLogs {
		entry.ID = uuid.New()
		entry.LeadID = id
		entry.CreatedAt = updated.UpdatedAt
		s.scoreLogs[id] = append(s.scoreLogs[id], entry)
	}
	for _, activity := range m.activities {
		activity.LeadID = id
		s.appendActivity(activity)
	}
	return updated, nil
}

func (s *MemoryStore) appendActivity(activity NewActivity) {
	s.activities[activity.LeadID] = append(s.activities[activity.LeadID], Activity{
		ID:        uuid.New(),
		LeadID:    activity.LeadID,
		Type:      activity.Type,
		Channel:   activity.Channel,
		Data:      activity.Data,
		CreatedAt: s.now(),
	})
}

func (s *MemoryStore) AddActivity(_ context.Context, activity NewActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leads[activity.LeadID]; !ok {
		return ErrNotFound
	}
	s.appendActivity(activity)
	return nil
}

func (s *MemoryStore) ListActivities(_ context.Context, leadID uuid.UUID, limit int) ([]Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newestFirst(s.activities[leadID], limit), nil
}

func (s *MemoryStore) ListScoreLogs(_ context.Context, leadID uuid.UUID, limit int) ([]ScoreLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newestFirst(s.scoreLogs[leadID], limit), nil
}

func newestFirst[T any](items []T, limit int) []T {
	out := make([]T, 0, len(items))
	for i := len(items) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, items[i])
	}
	return out
}

func (s *MemoryStore) ReserveSMS(_ context.Context, id uuid.UUID, max int) (bool, error) {
	return s.reserve(id, max, func(l *Lead) *int { return &l.SMSCount })
}

func (s *MemoryStore) ReleaseSMS(_ context.Context, id uuid.UUID) error {
	return s.release(id, func(l *Lead) *int { return &l.SMSCount })
}

func (s *MemoryStore) ReserveEmail(_ context.Context, id uuid.UUID, max int) (bool, error) {
	return s.reserve(id, max, func(l *Lead) *int { return &l.EmailCount })
}

func (s *MemoryStore) ReleaseEmail(_ context.Context, id uuid.UUID) error {
	return s.release(id, func(l *Lead) *int { return &l.EmailCount })
}

func (s *MemoryStore) reserve(id uuid.UUID, max int, counter func(*Lead) *int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return false, ErrNotFound
	}
	c := counter(&lead)
	if *c >= max {
		return false, nil
	}
	*c++
	s.leads[id] = lead
	return true, nil
}

func (s *MemoryStore) release(id uuid.UUID, counter func(*Lead) *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return ErrNotFound
	}
	if c := counter(&lead); *c > 0 {
		*c--
	}
	s.leads[id] = lead
	return nil
}

func (s *MemoryStore) List(_ context.Context, params ListParams) ([]Lead, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]Lead, 0)
	for _, lead := range s.leads {
		if matchesList(lead, params) {
			matched = append(matched, lead)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return s.newer(matched[i], matched[j]) })

	total := len(matched)
	start := params.Offset()
	if start > total {
		start = total
	}
	end := total
	if params.PageSize > 0 && start+params.PageSize < end {
		end = start + params.PageSize
	}
	return matched[start:end], total, nil
}

func matchesList(lead Lead, p ListParams) bool {
	switch {
	case p.Status != nil && lead.Status != *p.Status:
		return false
	case p.Source != nil && lead.Source != *p.Source:
		return false
	case p.MinScore != nil && lead.Score < *p.MinScore:
		return false
	case p.MaxScore != nil && lead.Score > *p.MaxScore:
		return false
	case p.StartDate != nil && lead.CreatedAt.Before(*p.StartDate):
		return false
	case p.EndDate != nil && lead.CreatedAt.After(*p.EndDate):
		return false
	}

	search := strings.TrimSpace(p.Search)
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(lead.Name), needle) || strings.Contains(lead.Phone, search) {
		return true
	}
	return lead.Email != nil && strings.Contains(strings.ToLower(*lead.Email), needle)
}

func (s *MemoryStore) Summary(_ context.Context, todayStart, weekStart time.Time) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		sum      Summary
		scoreSum int
	)
	for _, lead := range s.leads {
		sum.Total++
		scoreSum += lead.Score
		if !lead.CreatedAt.Before(todayStart) {
			sum.Today++
		}
		if !lead.CreatedAt.Before(weekStart) {
			sum.ThisWeek++
		}
		if lead.IsCompleted() {
			sum.Qualified++
		}
	}
	if sum.Total > 0 {
		sum.AverageScore = float64(scoreSum) / float64(sum.Total)
	}
	return sum, nil
}

func (s *MemoryStore) CountByStatus(_ context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for _, lead := range s.leads {
		counts[string(lead.Status)]++
	}
	return counts, nil
}

func (s *MemoryStore) CountBySource(_ context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for _, lead := range s.leads {
		counts[string(lead.Source)]++
	}
	return counts, nil
}
