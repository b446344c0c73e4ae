package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"lead_pipeline_backend/internal/crm"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/leads/transport"
	"lead_pipeline_backend/platform/apperr"
	"lead_pipeline_backend/platform/phone"
	"lead_pipeline_backend/platform/sanitize"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	detailActivityLimit = 50
	detailScoreLogLimit = 20
)

// List returns a filtered page of leads, newest first.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	params, err := listParams(req)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	leads, total, err := s.store.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, len(leads))
	for i, l := range leads {
		items[i] = toLeadResponse(l)
	}
	return transport.LeadListResponse{
		Leads: items,
		Pagination: transport.Pagination{
			Page:       params.Page,
			PageSize:   params.PageSize,
			Total:      total,
			TotalPages: (total + params.PageSize - 1) / params.PageSize,
		},
	}, nil
}

func listParams(req transport.ListLeadsRequest) (repository.ListParams, error) {
	p := repository.ListParams{
		MinScore: req.MinScore,
		MaxScore: req.MaxScore,
		Search:   strings.TrimSpace(req.Search),
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}

	if req.Status != "" {
		st, ok := domain.ParseStatus(req.Status)
		if !ok {
			return p, apperr.BadRequest("invalid status filter")
		}
		p.Status = &st
	}
	if req.Source != "" {
		src, ok := domain.ParseSource(req.Source)
		if !ok {
			return p, apperr.BadRequest("invalid source filter")
		}
		p.Source = &src
	}

	var err error
	if p.StartDate, err = parseDate(req.StartDate, false); err != nil {
		return p, apperr.BadRequest("invalid startDate")
	}
	if p.EndDate, err = parseDate(req.EndDate, true); err != nil {
		return p, apperr.BadRequest("invalid endDate")
	}
	return p, nil
}

// parseDate accepts RFC 3339 or a bare date. A bare end date covers the
// whole day.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// Get returns a lead with its recent activities and score changes.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.LeadDetailResponse, error) {
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		return transport.LeadDetailResponse{}, notFound(err)
	}

	var (
		activities []repository.Activity
		scoreLogs  []repository.ScoreLog
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		activities, err = s.store.ListActivities(gctx, id, detailActivityLimit)
		return err
	})
	g.Go(func() error {
		var err error
		scoreLogs, err = s.store.ListScoreLogs(gctx, id, detailScoreLogLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return transport.LeadDetailResponse{}, err
	}

	return transport.LeadDetailResponse{
		LeadResponse: toLeadResponse(lead),
		Activities:   toActivityResponses(activities),
		ScoreLog:     toScoreLogResponses(scoreLogs),
	}, nil
}

// Update applies an operator edit. The phone is re-canonicalized and a
// status change is logged.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	var canonicalPhone string
	if req.Phone != nil {
		p, err := phone.Canonicalize(*req.Phone)
		if err != nil {
			return transport.LeadResponse{}, apperr.Validation("Valid phone number is required")
		}
		canonicalPhone = p
	}
	var status domain.Status
	if req.Status != nil {
		st, ok := domain.ParseStatus(*req.Status)
		if !ok {
			return transport.LeadResponse{}, apperr.Validation("invalid status")
		}
		status = st
	}

	var statusFrom domain.Status
	lead, err := s.store.Mutate(logLead(ctx, id), id, func(m *repository.Mutation) error {
		l := &m.Lead
		if req.Name != nil {
			l.Name = strings.TrimSpace(*req.Name)
		}
		if req.Phone != nil {
			l.Phone = canonicalPhone
		}
		if req.Email != nil {
			e := strings.ToLower(strings.TrimSpace(*req.Email))
			l.Email = &e
			if e == "" {
				l.Email = nil
			}
		}
		assign(&l.RentalType, req.RentalType)
		assign(&l.Timeline, req.Timeline)
		assign(&l.Budget, req.Budget)
		assign(&l.Location, req.Location)
		assign(&l.PreferredDate, req.PreferredDate)
		assign(&l.SpecialRequests, req.SpecialRequests)
		assign(&l.GuestCount, req.GuestCount.Ptr())
		if req.Status != nil {
			statusFrom = l.Status
			if !setStatus(m, status, "manual_update") {
				statusFrom = ""
			}
		}
		return nil
	})
	if err != nil {
		return transport.LeadResponse{}, notFound(err)
	}

	if statusFrom != "" {
		s.publishStatusChange(ctx, lead.ID, statusFrom, lead.Status)
	}
	return toLeadResponse(lead), nil
}

func assign(dst **string, src *string) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

// AddNote appends an operator note to the lead's activity log.
func (s *Service) AddNote(ctx context.Context, id uuid.UUID, note string) (transport.ActivityResponse, error) {
	note = sanitize.Text(note)
	if note == "" {
		return transport.ActivityResponse{}, apperr.Validation("Note text is required")
	}
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return transport.ActivityResponse{}, notFound(err)
	}

	activity := repository.NewActivity{
		LeadID:  id,
		Type:    domain.ActivityNote,
		Channel: domain.ChannelWeb,
		Data:    map[string]any{"note": note},
	}
	if err := s.store.AddActivity(ctx, activity); err != nil {
		return transport.ActivityResponse{}, err
	}

	recent, err := s.store.ListActivities(ctx, id, 1)
	if err != nil || len(recent) == 0 {
		return transport.ActivityResponse{LeadID: id, Type: string(domain.ActivityNote), Data: activity.Data, CreatedAt: s.now()}, err
	}
	return toActivityResponses(recent)[0], nil
}

// Rescore re-runs the scoring rules against the lead's current data.
func (s *Service) Rescore(ctx context.Context, id uuid.UUID) (transport.RescoreResponse, error) {
	var outcome scoreOutcome
	lead, err := s.store.Mutate(logLead(ctx, id), id, func(m *repository.Mutation) error {
		outcome = s.applyScore(m, "manual_rescore")
		return nil
	})
	if err != nil {
		return transport.RescoreResponse{}, notFound(err)
	}
	if outcome.statusChanged() {
		s.publishStatusChange(ctx, lead.ID, outcome.PreviousStatus, lead.Status)
	}

	return transport.RescoreResponse{
		PreviousScore: outcome.PreviousScore,
		NewScore:      lead.Score,
		Status:        string(lead.Status),
		Breakdown:     toBreakdown(outcome.Result.Breakdown),
	}, nil
}

// SyncCRM pushes the lead to the CRM immediately.
func (s *Service) SyncCRM(ctx context.Context, id uuid.UUID) (transport.SyncCRMResponse, error) {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return transport.SyncCRMResponse{}, notFound(err)
	}
	result, err := s.syncer.Sync(logLead(ctx, id), id, crm.ActionCreate)
	if err != nil {
		return transport.SyncCRMResponse{}, apperr.Unavailable("CRM sync failed", err)
	}
	return transport.SyncCRMResponse{Success: result.Success, CRMID: result.CRMID, Error: result.Error}, nil
}

// Transfer hands the lead to sales: status HOT, a transfer activity and a
// CRM push. Do-not-contact leads cannot be transferred.
func (s *Service) Transfer(ctx context.Context, id uuid.UUID) error {
	ctx = logLead(ctx, id)
	var previous domain.Status
	lead, err := s.store.Mutate(ctx, id, func(m *repository.Mutation) error {
		previous = m.Lead.Status
		if previous == domain.StatusDoNotContact {
			return apperr.Conflict("Lead is marked do-not-contact")
		}
		setStatus(m, domain.StatusHot, "manual_transfer")
		m.Log(domain.ActivityTransferredToSales, "", transferData(m.Lead, true))
		return nil
	})
	if err != nil {
		return notFound(err)
	}

	if previous != lead.Status {
		s.publishStatusChange(ctx, lead.ID, previous, lead.Status)
	}
	s.routeToSales(ctx, lead, true)
	return nil
}

// Stats returns the headline counts. The week starts on Sunday, UTC.
func (s *Service) Stats(ctx context.Context) (transport.StatsResponse, error) {
	now := s.now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := todayStart.AddDate(0, 0, -int(todayStart.Weekday()))

	var (
		summary  repository.Summary
		byStatus map[string]int
		bySource map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = s.store.Summary(gctx, todayStart, weekStart)
		return err
	})
	g.Go(func() error {
		var err error
		byStatus, err = s.store.CountByStatus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		bySource, err = s.store.CountBySource(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return transport.StatsResponse{}, err
	}

	rate := 0.0
	if summary.Total > 0 {
		rate = float64(summary.Qualified) / float64(summary.Total) * 100
	}
	return transport.StatsResponse{
		Total:          summary.Total,
		Today:          summary.Today,
		ThisWeek:       summary.ThisWeek,
		ByStatus:       byStatus,
		BySource:       bySource,
		AverageScore:   int(math.Round(summary.AverageScore)),
		Qualified:      summary.Qualified,
		ConversionRate: fmt.Sprintf("%.1f%%", rate),
	}, nil
}
