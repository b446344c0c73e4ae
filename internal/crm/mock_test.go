package crm

import (
	"context"
	"strings"
	"testing"
)

func TestMockContactLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMock()

	res, err := m.CreateContact(ctx, Contact{Name: "Jane Doe", Phone: "+15551234567", Tags: []string{"yacht-lead"}})
	if err != nil || !res.Success {
		t.Fatalf("create failed: %+v %v", res, err)
	}
	if !strings.HasPrefix(res.ContactID, "mock_") {
		t.Fatalf("unexpected id format %q", res.ContactID)
	}

	found, _ := m.FindContactByPhone(ctx, "+15551234567")
	if found == nil || found.ID != res.ContactID {
		t.Fatalf("expected to find contact by phone, got %+v", found)
	}

	if res, _ := m.AddTags(ctx, found.ID, []string{"yacht-lead", "hot-lead"}); !res.Success {
		t.Fatalf("add tags failed: %+v", res)
	}
	got, _ := m.GetContact(ctx, found.ID)
	if len(got.Tags) != 2 {
		t.Fatalf("expected deduplicated tags, got %v", got.Tags)
	}

	if res, _ := m.UpdateContact(ctx, found.ID, Contact{Name: "Jane Smith", Phone: "+15551234567"}); !res.Success {
		t.Fatalf("update failed: %+v", res)
	}
	got, _ = m.GetContact(ctx, found.ID)
	if got.Name != "Jane Smith" || len(got.Tags) != 2 {
		t.Fatalf("update should replace fields and keep tags, got %+v", got)
	}
}

func TestMockUnknownContact(t *testing.T) {
	ctx := context.Background()
	m := NewMock()

	if res, err := m.UpdateContact(ctx, "missing", Contact{}); err != nil || res.Success || res.Error != "Contact not found" {
		t.Fatalf("expected not-found result, got %+v %v", res, err)
	}
	if c, err := m.GetContact(ctx, "missing"); c != nil || err != nil {
		t.Fatalf("expected nil contact, got %+v %v", c, err)
	}
}

func TestMockInstancesAreIsolated(t *testing.T) {
	ctx := context.Background()
	a, b := NewMock(), NewMock()
	_, _ = a.CreateContact(ctx, Contact{Name: "A", Phone: "+1"})

	if b.Len() != 0 {
		t.Fatalf("expected second instance to be empty, got %d", b.Len())
	}
}

func TestContactSplitName(t *testing.T) {
	tests := []struct {
		name, first, last string
	}{
		{"Jane", "Jane", ""},
		{"Jane Doe", "Jane", "Doe"},
		{" Mary Ann  Lee ", "Mary", "Ann  Lee"},
	}
	for _, tt := range tests {
		first, last := Contact{Name: tt.name}.SplitName()
		if first != tt.first || last != tt.last {
			t.Errorf("SplitName(%q) = %q, %q; want %q, %q", tt.name, first, last, tt.first, tt.last)
		}
	}
}

type crmConfig struct {
	crmType, ghlKey, ghlLocation, hubspotKey string
}

func (c crmConfig) GetCRMType() string       { return c.crmType }
func (c crmConfig) GetGHLAPIKey() string     { return c.ghlKey }
func (c crmConfig) GetGHLLocationID() string { return c.ghlLocation }
func (c crmConfig) GetGHLPipelineID() string { return "" }
func (c crmConfig) GetGHLStageID() string    { return "" }
func (c crmConfig) GetHubSpotAPIKey() string { return c.hubspotKey }

func TestNewSelectsAdapter(t *testing.T) {
	tests := []struct {
		cfg     crmConfig
		want    string
		wantErr bool
	}{
		{crmConfig{crmType: "mock"}, "mock", false},
		{crmConfig{crmType: "GoHighLevel", ghlKey: "k", ghlLocation: "loc"}, "gohighlevel", false},
		{crmConfig{crmType: "gohighlevel"}, "", true},
		{crmConfig{crmType: "hubspot", hubspotKey: "k"}, "hubspot", false},
		{crmConfig{crmType: "salesforce"}, "", true},
	}
	for _, tt := range tests {
		adapter, err := New(tt.cfg)
		if tt.wantErr {
			if err == nil {
				t.Errorf("New(%q) expected error", tt.cfg.crmType)
			}
			continue
		}
		if err != nil || adapter.Name() != tt.want {
			t.Errorf("New(%q) = %v, %v; want %s", tt.cfg.crmType, adapter, err, tt.want)
		}
	}
}
