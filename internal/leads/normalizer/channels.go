package normalizer

import (
	"context"
	"fmt"

	"lead_pipeline_backend/internal/leads/domain"
)

type googleColumn struct {
	ColumnID    string `json:"column_id"`
	StringValue string `json:"string_value"`
	ColumnName  string `json:"column_name"`
}

type googlePayload struct {
	LeadID         string         `json:"lead_id"`
	GoogleKey      string         `json:"google_key"`
	CampaignID     flexID         `json:"campaign_id"`
	AdGroupID      flexID         `json:"ad_group_id"`
	AdGroupIDAlt   flexID         `json:"adgroup_id"`
	UserColumnData []googleColumn `json:"user_column_data"`
	IsTest         bool           `json:"is_test"`
}

func (p googlePayload) column(ids ...string) string {
	for _, id := range ids {
		for _, col := range p.UserColumnData {
			if col.ColumnID == id && col.StringValue != "" {
				return col.StringValue
			}
		}
	}
	return ""
}

func parseGoogle(_ context.Context, raw []byte) (NormalizedLead, error) {
	var payload googlePayload
	if err := decode(raw, &payload); err != nil {
		return NormalizedLead{}, err
	}
	if payload.UserColumnData == nil {
		return NormalizedLead{}, fmt.Errorf("%w: google payload has no user_column_data", ErrInvalidPayload)
	}

	lead, err := build(domain.SourceGoogle,
		payload.column("FULL_NAME", "FIRST_NAME"),
		payload.column("PHONE_NUMBER"),
		payload.column("EMAIL"),
	)
	if err != nil {
		return NormalizedLead{}, err
	}
	lead.CampaignID = optional(string(payload.CampaignID))
	lead.AdID = optional(firstNonEmpty(string(payload.AdGroupID), string(payload.AdGroupIDAlt)))
	return lead, nil
}

type tiktokPayload struct {
	Event    string `json:"event"`
	UserInfo *struct {
		FullName    string `json:"full_name"`
		PhoneNumber string `json:"phone_number"`
		Email       string `json:"email"`
	} `json:"user_info"`
	AdID       flexID `json:"ad_id"`
	CampaignID flexID `json:"campaign_id"`
}

func parseTikTok(_ context.Context, raw []byte) (NormalizedLead, error) {
	var payload tiktokPayload
	if err := decode(raw, &payload); err != nil {
		return NormalizedLead{}, err
	}
	if payload.UserInfo == nil {
		return NormalizedLead{}, fmt.Errorf("%w: tiktok payload has no user_info", ErrInvalidPayload)
	}

	info := payload.UserInfo
	lead, err := build(domain.SourceTikTok, info.FullName, info.PhoneNumber, info.Email)
	if err != nil {
		return NormalizedLead{}, err
	}
	lead.AdID = optional(string(payload.AdID))
	lead.CampaignID = optional(string(payload.CampaignID))
	return lead, nil
}

// DirectPayload is the flat shape posted by the landing form and partner
// integrations.
type DirectPayload struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	RentalType  string `json:"rentalType"`
	Source      string `json:"source"`
	UTMSource   string `json:"utmSource"`
	UTMMedium   string `json:"utmMedium"`
	UTMCampaign string `json:"utmCampaign"`
}

func directParser(source domain.Source) channelParser {
	return func(_ context.Context, raw []byte) (NormalizedLead, error) {
		var payload DirectPayload
		if err := decode(raw, &payload); err != nil {
			return NormalizedLead{}, err
		}
		return FromDirect(source, payload)
	}
}

// FromDirect normalizes an already-decoded flat payload.
func FromDirect(source domain.Source, payload DirectPayload) (NormalizedLead, error) {
	lead, err := build(source, payload.Name, payload.Phone, payload.Email)
	if err != nil {
		return NormalizedLead{}, err
	}
	lead.RentalType = optional(payload.RentalType)
	lead.UTMSource = optional(payload.UTMSource)
	lead.UTMMedium = optional(payload.UTMMedium)
	lead.UTMCampaign = optional(payload.UTMCampaign)
	return lead, nil
}
