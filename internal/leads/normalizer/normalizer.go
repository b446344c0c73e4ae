// Package normalizer turns channel-specific webhook payloads into a single
// canonical lead record.
package normalizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/platform/phone"
	"lead_pipeline_backend/platform/sanitize"
)

const defaultName = "Unknown"

var (
	ErrUnknownSource  = errors.New("unknown lead source")
	ErrInvalidPayload = errors.New("invalid lead payload")
	ErrInvalidPhone   = errors.New("missing or invalid phone number")
)

// NormalizedLead is the canonical intake record shared by every channel.
type NormalizedLead struct {
	Name        string
	Phone       string
	Email       *string
	Source      domain.Source
	RentalType  *string
	AdID        *string
	CampaignID  *string
	UTMSource   *string
	UTMMedium   *string
	UTMCampaign *string
}

// channelParser decodes one channel's payload shape.
type channelParser func(ctx context.Context, raw []byte) (NormalizedLead, error)

// Normalizer dispatches raw payloads to the parser registered for their source.
type Normalizer struct {
	parsers map[domain.Source]channelParser
}

// New builds a Normalizer. fetcher resolves Meta lead references and may be
// nil, in which case reference-only Meta payloads fail.
func New(fetcher LeadFetcher) *Normalizer {
	n := &Normalizer{}
	n.parsers = map[domain.Source]channelParser{
		domain.SourceMeta:    metaParser(fetcher),
		domain.SourceGoogle:  parseGoogle,
		domain.SourceTikTok:  parseTikTok,
		domain.SourceDirect:  directParser(domain.SourceDirect),
		domain.SourceLanding: directParser(domain.SourceLanding),
	}
	return n
}

// Normalize parses raw for the named source.
func (n *Normalizer) Normalize(ctx context.Context, source string, raw []byte) (NormalizedLead, error) {
	src, ok := domain.ParseSource(source)
	if !ok {
		return NormalizedLead{}, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	parse, ok := n.parsers[src]
	if !ok {
		return NormalizedLead{}, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return NormalizedLead{}, fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}
	return parse(ctx, raw)
}

func decode(raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// build applies the shared defaults: canonical phone, fallback name,
// lower-cased email and sanitized free text.
func build(source domain.Source, name, rawPhone, email string) (NormalizedLead, error) {
	canonical, err := phone.Canonicalize(rawPhone)
	if err != nil {
		return NormalizedLead{}, fmt.Errorf("%w: %q", ErrInvalidPhone, rawPhone)
	}

	name = sanitize.Text(name)
	if name == "" {
		name = defaultName
	}

	return NormalizedLead{
		Name:   name,
		Phone:  canonical,
		Email:  normalizeEmail(email),
		Source: source,
	}, nil
}

func normalizeEmail(email string) *string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	return &email
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// flexID accepts identifiers that vendors send either as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}
