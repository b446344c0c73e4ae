package sms

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"lead_pipeline_backend/platform/logger"
)

// SentMessage is a message captured by the simulated sender.
type SentMessage struct {
	ID   string
	To   string
	Body string
}

// Simulated logs messages instead of delivering them and returns sim_<n> ids.
type Simulated struct {
	log  *logger.Logger
	seq  atomic.Int64
	mu   sync.Mutex
	sent []SentMessage
}

func NewSimulated(log *logger.Logger) *Simulated {
	return &Simulated{log: log}
}

func (s *Simulated) Name() string { return "simulated" }

func (s *Simulated) Send(ctx context.Context, to, body string) (string, error) {
	id := fmt.Sprintf("sim_%d", s.seq.Add(1))
	s.mu.Lock()
	s.sent = append(s.sent, SentMessage{ID: id, To: to, Body: body})
	s.mu.Unlock()

	s.log.WithContext(ctx).Info("sms simulated", "to", to, "message_id", id, "body", body)
	return id, nil
}

// Sent returns a copy of every captured message.
func (s *Simulated) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentMessage(nil), s.sent...)
}
