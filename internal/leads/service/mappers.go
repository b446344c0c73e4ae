package service

import (
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/leads/scoring"
	"lead_pipeline_backend/internal/leads/transport"
	"lead_pipeline_backend/platform/phone"
)

func toLeadResponse(l repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                       l.ID,
		Name:                     l.Name,
		Phone:                    l.Phone,
		PhoneDisplay:             phone.Display(l.Phone),
		Email:                    l.Email,
		Source:                   string(l.Source),
		RentalType:               l.RentalType,
		AdID:                     l.AdID,
		CampaignID:               l.CampaignID,
		UTMSource:                l.UTMSource,
		UTMMedium:                l.UTMMedium,
		UTMCampaign:              l.UTMCampaign,
		Score:                    l.Score,
		Status:                   string(l.Status),
		Stage:                    l.Stage().String(),
		Timeline:                 l.Timeline,
		Budget:                   l.Budget,
		Location:                 l.Location,
		GuestCount:               l.GuestCount,
		PreferredDate:            l.PreferredDate,
		SpecialRequests:          l.SpecialRequests,
		QualificationLink:        l.QualificationLink,
		LinkDeliveredAt:          l.LinkDeliveredAt,
		LinkOpenedAt:             l.LinkOpenedAt,
		QualificationStartedAt:   l.QualificationStartedAt,
		QualificationCompletedAt: l.QualificationCompletedAt,
		LastContactedAt:          l.LastContactedAt,
		CRMID:                    l.CRMID,
		CRMSyncedAt:              l.CRMSyncedAt,
		CRMStatus:                l.CRMStatus,
		SMSCount:                 l.SMSCount,
		EmailCount:               l.EmailCount,
		CreatedAt:                l.CreatedAt,
		UpdatedAt:                l.UpdatedAt,
	}
}

func toActivityResponses(items []repository.Activity) []transport.ActivityResponse {
	out := make([]transport.ActivityResponse, len(items))
	for i, a := range items {
		var channel *string
		if a.Channel != "" {
			c := string(a.Channel)
			channel = &c
		}
		out[i] = transport.ActivityResponse{
			ID:        a.ID,
			LeadID:    a.LeadID,
			Type:      string(a.Type),
			Channel:   channel,
			Data:      a.Data,
			CreatedAt: a.CreatedAt,
		}
	}
	return out
}

func toScoreLogResponses(items []repository.ScoreLog) []transport.ScoreLogResponse {
	out := make([]transport.ScoreLogResponse, len(items))
	for i, e := range items {
		out[i] = transport.ScoreLogResponse{
			ID:            e.ID,
			PreviousScore: e.PreviousScore,
			NewScore:      e.NewScore,
			Reason:        e.Reason,
			RulesApplied:  e.RulesApplied,
			CreatedAt:     e.CreatedAt,
		}
	}
	return out
}

func toBreakdown(items []scoring.BreakdownItem) []transport.BreakdownItem {
	out := make([]transport.BreakdownItem, len(items))
	for i, item := range items {
		out[i] = transport.BreakdownItem{Rule: item.Rule, Points: item.Points, Reason: item.Reason}
	}
	return out
}
