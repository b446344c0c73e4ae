package crm

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const (
	GoHighLevelBaseURL    = "https://services.leadconnectorhq.com"
	goHighLevelAPIVersion = "2021-07-28"
)

// GoHighLevel talks to the LeadConnector v2 API.
type GoHighLevel struct {
	api        *apiClient
	locationID string
}

func NewGoHighLevel(baseURL, apiKey, locationID string) *GoHighLevel {
	return &GoHighLevel{
		api: newAPIClient(baseURL, map[string]string{
			"Authorization": "Bearer " + apiKey,
			"Version":       goHighLevelAPIVersion,
		}),
		locationID: locationID,
	}
}

func (g *GoHighLevel) Name() string { return "gohighlevel" }

type ghlCustomField struct {
	Key        string `json:"key"`
	FieldValue string `json:"field_value"`
}

type ghlContactRequest struct {
	LocationID   string           `json:"locationId,omitempty"`
	FirstName    string           `json:"firstName,omitempty"`
	LastName     string           `json:"lastName"`
	Phone        string           `json:"phone,omitempty"`
	Email        string           `json:"email,omitempty"`
	Tags         []string         `json:"tags,omitempty"`
	CustomFields []ghlCustomField `json:"customFields,omitempty"`
}

type ghlContact struct {
	ID        string   `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Phone     string   `json:"phone"`
	Email     string   `json:"email"`
	Tags      []string `json:"tags"`
}

func ghlCustomFields(c Contact) []ghlCustomField {
	fields := []ghlCustomField{
		{Key: "lead_score", FieldValue: itoa(c.Score)},
		{Key: "lead_status", FieldValue: c.Status},
		{Key: "lead_source", FieldValue: c.Source},
	}
	optional := []struct{ key, value string }{
		{"charter_type", c.RentalType},
		{"timeline", c.Timeline},
		{"budget", c.Budget},
		{"destination", c.Location},
		{"guest_count", c.GuestCount},
	}
	for _, f := range optional {
		if f.value != "" {
			fields = append(fields, ghlCustomField{Key: f.key, FieldValue: f.value})
		}
	}
	for key, value := range c.CustomFields {
		fields = append(fields, ghlCustomField{Key: key, FieldValue: value})
	}
	return fields
}

func (g *GoHighLevel) CreateContact(ctx context.Context, contact Contact) (Result, error) {
	first, last := contact.SplitName()
	resp, err := g.api.do(ctx, http.MethodPost, "/contacts/", ghlContactRequest{
		LocationID:   g.locationID,
		FirstName:    first,
		LastName:     last,
		Phone:        contact.Phone,
		Email:        contact.Email,
		Tags:         contact.Tags,
		CustomFields: ghlCustomFields(contact),
	})
	if err != nil {
		return Result{}, err
	}
	if !resp.ok() {
		return failed("GHL API error: %d %s", resp.status, resp.text()), nil
	}

	var out struct {
		Contact ghlContact `json:"contact"`
	}
	if err := resp.decode(&out); err != nil {
		return Result{}, err
	}
	if out.Contact.ID == "" {
		return failed("GHL API returned no contact id"), nil
	}
	return ok(out.Contact.ID), nil
}

func (g *GoHighLevel) UpdateContact(ctx context.Context, contactID string, contact Contact) (Result, error) {
	first, last := contact.SplitName()
	resp, err := g.api.do(ctx, http.MethodPut, "/contacts/"+url.PathEscape(contactID), ghlContactRequest{
		FirstName:    first,
		LastName:     last,
		Phone:        contact.Phone,
		Email:        contact.Email,
		Tags:         contact.Tags,
		CustomFields: ghlCustomFields(contact),
	})
	if err != nil {
		return Result{}, err
	}
	if !resp.ok() {
		return failed("GHL update error: %d %s", resp.status, resp.text()), nil
	}
	return ok(contactID), nil
}

func (g *GoHighLevel) GetContact(ctx context.Context, contactID string) (*Contact, error) {
	resp, err := g.api.do(ctx, http.MethodGet, "/contacts/"+url.PathEscape(contactID), nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, nil
	}

	var out struct {
		Contact ghlContact `json:"contact"`
	}
	if err := resp.decode(&out); err != nil {
		return nil, err
	}
	c := out.Contact
	return &Contact{
		ID:    c.ID,
		Name:  strings.TrimSpace(c.FirstName + " " + c.LastName),
		Phone: c.Phone,
		Email: c.Email,
		Tags:  c.Tags,
	}, nil
}

func (g *GoHighLevel) FindContactByPhone(ctx context.Context, phone string) (*Contact, error) {
	query := url.Values{"locationId": {g.locationID}, "phone": {phone}}
	resp, err := g.api.do(ctx, http.MethodGet, "/contacts/search/duplicate?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, nil
	}

	var out struct {
		Contact *ghlContact `json:"contact"`
	}
	if err := resp.decode(&out); err != nil {
		return nil, err
	}
	if out.Contact == nil || out.Contact.ID == "" {
		return nil, nil
	}
	return g.GetContact(ctx, out.Contact.ID)
}

func (g *GoHighLevel) AddNote(ctx context.Context, contactID, note string) (Result, error) {
	resp, err := g.api.do(ctx, http.MethodPost, "/contacts/"+url.PathEscape(contactID)+"/notes", map[string]string{"body": note})
	if err != nil {
		return Result{}, err
	}
	if !resp.ok() {
		return failed("GHL add note error: %d", resp.status), nil
	}
	return ok(contactID), nil
}

func (g *GoHighLevel) AddTags(ctx context.Context, contactID string, tags []string) (Result, error) {
	resp, err := g.api.do(ctx, http.MethodPost, "/contacts/"+url.PathEscape(contactID)+"/tags", map[string][]string{"tags": tags})
	if err != nil {
		return Result{}, err
	}
	if !resp.ok() {
		return failed("GHL add tags error: %d", resp.status), nil
	}
	return ok(contactID), nil
}

func (g *GoHighLevel) MoveToPipeline(ctx context.Context, contactID, pipelineID, stageID string) (Result, error) {
	resp, err := g.api.do(ctx, http.MethodPost, "/opportunities/", map[string]string{
		"locationId":      g.locationID,
		"pipelineId":      pipelineID,
		"pipelineStageId": stageID,
		"contactId":       contactID,
		"name":            "Yacht Charter Lead - " + contactID,
		"status":          "open",
	})
	if err != nil {
		return Result{}, err
	}
	if !resp.ok() {
		return failed("GHL pipeline error: %d", resp.status), nil
	}
	return ok(contactID), nil
}
