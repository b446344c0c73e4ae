package crm

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const HubSpotBaseURL = "https://api.hubapi.com"

// association type ids defined by HubSpot
const (
	hubSpotNoteToContact = 202
	hubSpotDealToContact = 3
)

// HubSpot talks to the CRM v3 objects API.
type HubSpot struct {
	api *apiClient
}

func NewHubSpot(baseURL, apiKey string) *HubSpot {
	return &HubSpot{api: newAPIClient(baseURL, map[string]string{
		"Authorization": "Bearer " + apiKey,
	})}
}

func (h *HubSpot) Name() string { return "hubspot" }

type hubSpotObject struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

type hubSpotAssociation struct {
	To    map[string]string `json:"to"`
	Types []map[string]any  `json:"types"`
}

func associateWith(contactID string, typeID int) []hubSpotAssociation {
	return []hubSpotAssociation{{
		To:    map[string]string{"id": contactID},
		Types: []map[string]any{{"associationCategory": "HUBSPOT_DEFINED", "associationTypeId": typeID}},
	}}
}

func hubSpotProperties(c Contact) map[string]string {
	first, last := c.SplitName()
	props := map[string]string{
		"firstname":       first,
		"lastname":        last,
		"phone":           c.Phone,
		"lead_score_ygi":  itoa(c.Score),
		"lead_status_ygi": c.Status,
		"lead_source_ygi": c.Source,
	}
	optional := map[string]string{
		"email":               c.Email,
		"charter_type":        c.RentalType,
		"charter_timeline":    c.Timeline,
		"charter_budget":      c.Budget,
		"charter_destination": c.Location,
		"charter_guest_count": c.GuestCount,
	}
	for k, v := range optional {
		if v != "" {
			props[k] = v
		}
	}
	return props
}

func (h *HubSpot) CreateContact(ctx context.Context, contact Contact) (Result, error) {
	resp, err := h.api.do(ctx, http.MethodPost, "/crm/v3/objects/contacts", map[string]any{
		"properties": hubSpotProperties(contact),
	})
	if err != nil {
		return Result{}, err
	}
	if !resp.ok() {
		return failed("HubSpot error: %d %s", resp.status, resp.text()), nil
	}

	var out hubSpotObject
	if err := resp.decode(&out); err != nil {
		return Result{}, err
	}
	return ok(out.ID), nil
}

func (h *HubSpot) UpdateContact(ctx context.Context, contactID string, contact Contact) (Result, error) {
	resp, err := h.api.do(ctx, http.MethodPatch, "/crm/v3/objects/contacts/"+url.PathEscape(contactID), map[string]any{
		"properties": hubSpotProperties(contact),
	})
	if err != nil {
		return Result{}, err
	}
	if !resp.ok() {
		return failed("HubSpot update error: %d %s", resp.status, resp.text()), nil
	}
	return ok(contactID), nil
}

func (h *HubSpot) GetContact(ctx context.Context, contactID string) (*Contact, error) {
	path := "/crm/v3/objects/contacts/" + url.PathEscape(contactID) + "?properties=firstname,lastname,phone,email"
	resp, err := h.api.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, nil
	}

	var out hubSpotObject
	if err := resp.decode(&out); err != nil {
		return nil, err
	}
	p := out.Properties
	return &Contact{
		ID:    out.ID,
		Name:  strings.TrimSpace(p["firstname"] + " " + p["lastname"]),
		Phone: p["phone"],
		Email: p["email"],
	}, nil
}

func (h *HubSpot) FindContactByPhone(ctx context.Context, phone string) (*Contact, error) {
	resp, err := h.api.do(ctx, http.MethodPost, "/crm/v3/objects/contacts/search", map[string]any{
		"filterGroups": []map[string]any{{
			"filters": []map[string]string{{"propertyName": "phone", "operator": "EQ", "value": phone}},
		}},
	})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, nil
	}

	var out struct {
		Results []hubSpotObject `json:"results"`
	}
	if err := resp.decode(&out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, nil
	}
	return h.GetContact(ctx, out.Results[0].ID)
}

func (h *HubSpot) AddNote(ctx context.Context, contactID, note string) (Result, error) {
	resp, err := h.api.do(ctx, http.MethodPost, "/crm/v3/objects/notes", map[string]any{
		"properties": map[string]string{
			"hs_note_body": note,
			"hs_timestamp": time.Now().UTC().Format(time.RFC3339),
		},
		"associations": associateWith(contactID, hubSpotNoteToContact),
	})
	if err != nil {
		return Result{}, err
	}
	if !resp.ok() {
		return failed("HubSpot add note error: %d", resp.status), nil
	}
	return ok(contactID), nil
}

// AddTags stores tags in a semicolon separated contact property.
func (h *HubSpot) AddTags(ctx context.Context, contactID string, tags []string) (Result, error) {
	resp, err := h.api.do(ctx, http.MethodPatch, "/crm/v3/objects/contacts/"+url.PathEscape(contactID), map[string]any{
		"properties": map[string]string{"ygi_tags": strings.Join(tags, ";")},
	})
	if err != nil {
		return Result{}, err
	}
	if !resp.ok() {
		return failed("HubSpot add tags error: %d", resp.status), nil
	}
	return ok(contactID), nil
}

func (h *HubSpot) MoveToPipeline(ctx context.Context, contactID, pipelineID, stageID string) (Result, error) {
	resp, err := h.api.do(ctx, http.MethodPost, "/crm/v3/objects/deals", map[string]any{
		"properties": map[string]string{
			"dealname":  "Yacht Charter Lead - " + contactID,
			"pipeline":  pipelineID,
			"dealstage": stageID,
		},
		"associations": associateWith(contactID, hubSpotDealToContact),
	})
	if err != nil {
		return Result{}, err
	}
	if !resp.ok() {
		return failed("HubSpot pipeline error: %d", resp.status), nil
	}
	return ok(contactID), nil
}

func itoa(n int) string { return strconv.Itoa(n) }
