package crm

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type mockContact struct {
	Contact
	notes     []string
	pipelines []string
}

// Mock is an in-memory CRM. Each instance owns its own contact book.
type Mock struct {
	mu       sync.Mutex
	contacts map[string]*mockContact
}

func NewMock() *Mock {
	return &Mock{contacts: make(map[string]*mockContact)}
}

func (m *Mock) Name() string { return "mock" }

func newMockID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("mock_%d_%s", time.Now().UnixMilli(), suffix)
}

func (m *Mock) CreateContact(_ context.Context, contact Contact) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	contact.ID = newMockID()
	contact.Tags = slices.Clone(contact.Tags)
	m.contacts[contact.ID] = &mockContact{Contact: contact}
	return ok(contact.ID), nil
}

func (m *Mock) UpdateContact(_ context.Context, contactID string, contact Contact) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, found := m.contacts[contactID]
	if !found {
		return failed("Contact not found"), nil
	}
	tags := existing.Tags
	existing.Contact = contact
	existing.ID = contactID
	existing.Tags = tags
	return ok(contactID), nil
}

func (m *Mock) GetContact(_ context.Context, contactID string) (*Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, found := m.contacts[contactID]
	if !found {
		return nil, nil
	}
	c := existing.Contact
	c.Tags = slices.Clone(existing.Tags)
	return &c, nil
}

func (m *Mock) FindContactByPhone(_ context.Context, phone string) (*Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.contacts {
		if existing.Phone == phone {
			c := existing.Contact
			c.Tags = slices.Clone(existing.Tags)
			return &c, nil
		}
	}
	return nil, nil
}

func (m *Mock) AddNote(_ context.Context, contactID, note string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, found := m.contacts[contactID]
	if !found {
		return failed("Contact not found"), nil
	}
	existing.notes = append(existing.notes, note)
	return ok(contactID), nil
}

func (m *Mock) AddTags(_ context.Context, contactID string, tags []string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, found := m.contacts[contactID]
	if !found {
		return failed("Contact not found"), nil
	}
	for _, tag := range tags {
		if !slices.Contains(existing.Tags, tag) {
			existing.Tags = append(existing.Tags, tag)
		}
	}
	return ok(contactID), nil
}

func (m *Mock) MoveToPipeline(_ context.Context, contactID, pipelineID, stageID string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, found := m.contacts[contactID]; found {
		existing.pipelines = append(existing.pipelines, pipelineID+"/"+stageID)
	}
	return ok(contactID), nil
}

// Notes returns the notes recorded against a contact.
func (m *Mock) Notes(contactID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, found := m.contacts[contactID]; found {
		return slices.Clone(existing.notes)
	}
	return nil
}

// Len returns the number of stored contacts.
func (m *Mock) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.contacts)
}
