package normalizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lead_pipeline_backend/internal/leads/domain"
)

const (
	graphAPIVersion = "v19.0"
	graphTimeout    = 10 * time.Second
)

// ErrGraphUnavailable is returned when a Meta lead reference cannot be resolved.
var ErrGraphUnavailable = errors.New("meta graph lookup failed")

type metaField struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type metaPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				LeadgenID string      `json:"leadgen_id"`
				PageID    flexID      `json:"page_id"`
				FormID    flexID      `json:"form_id"`
				FieldData []metaField `json:"field_data"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
	FieldData []metaField `json:"field_data"`
}

// GraphLead is the lead record returned by the Graph API.
type GraphLead struct {
	ID        string      `json:"id"`
	FieldData []metaField `json:"field_data"`
}

// LeadFetcher resolves a Meta leadgen reference into its form fields.
type LeadFetcher interface {
	FetchLead(ctx context.Context, leadgenID string) (GraphLead, error)
}

func metaFieldValue(fields []metaField, names ...string) string {
	for _, name := range names {
		for _, f := range fields {
			if strings.EqualFold(f.Name, name) && len(f.Values) > 0 {
				return f.Values[0]
			}
		}
	}
	return ""
}

func metaParser(fetcher LeadFetcher) channelParser {
	return func(ctx context.Context, raw []byte) (NormalizedLead, error) {
		var payload metaPayload
		if err := decode(raw, &payload); err != nil {
			return NormalizedLead{}, err
		}

		var (
			fields     []metaField
			leadgenID  string
			formID     string
			pageID     string
			hasChanges = len(payload.Entry) > 0 && len(payload.Entry[0].Changes) > 0
		)
		if hasChanges {
			value := payload.Entry[0].Changes[0].Value
			fields, leadgenID = value.FieldData, value.LeadgenID
			formID, pageID = string(value.FormID), string(value.PageID)
		}

		if leadgenID != "" && fields == nil {
			if fetcher == nil {
				return NormalizedLead{}, fmt.Errorf("%w: no fetcher configured", ErrGraphUnavailable)
			}
			graphLead, err := fetcher.FetchLead(ctx, leadgenID)
			if err != nil {
				return NormalizedLead{}, err
			}
			lead, err := metaLead(graphLead.FieldData)
			if err != nil {
				return NormalizedLead{}, err
			}
			lead.AdID = optional(leadgenID)
			return lead, nil
		}

		if fields == nil {
			fields = payload.FieldData
		}
		if fields == nil {
			return NormalizedLead{}, fmt.Errorf("%w: meta payload has no field_data", ErrInvalidPayload)
		}

		lead, err := metaLead(fields)
		if err != nil {
			return NormalizedLead{}, err
		}
		lead.AdID = optional(formID)
		lead.CampaignID = optional(pageID)
		return lead, nil
	}
}

func metaLead(fields []metaField) (NormalizedLead, error) {
	return build(domain.SourceMeta,
		metaFieldValue(fields, "full_name", "first_name"),
		metaFieldValue(fields, "phone_number", "phone"),
		metaFieldValue(fields, "email"),
	)
}

// GraphFetcher reads lead records from the Meta Graph API.
type GraphFetcher struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

// NewGraphFetcher returns a fetcher with its own request timeout.
func NewGraphFetcher(baseURL, accessToken string) *GraphFetcher {
	return &GraphFetcher{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		client:      &http.Client{Timeout: graphTimeout},
	}
}

func (g *GraphFetcher) FetchLead(ctx context.Context, leadgenID string) (GraphLead, error) {
	if g.accessToken == "" {
		return GraphLead{}, fmt.Errorf("%w: no access token configured", ErrGraphUnavailable)
	}

	endpoint := fmt.Sprintf("%s/%s/%s?access_token=%s",
		g.baseURL, graphAPIVersion, url.PathEscape(leadgenID), url.QueryEscape(g.accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return GraphLead{}, fmt.Errorf("%w: %v", ErrGraphUnavailable, err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return GraphLead{}, fmt.Errorf("%w: %v", ErrGraphUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GraphLead{}, fmt.Errorf("%w: status %d", ErrGraphUnavailable, resp.StatusCode)
	}

	var lead GraphLead
	if err := json.NewDecoder(resp.Body).Decode(&lead); err != nil {
		return GraphLead{}, fmt.Errorf("%w: decode: %v", ErrGraphUnavailable, err)
	}
	return lead, nil
}
