package email

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"lead_pipeline_backend/platform/logger"
)

// Simulated logs emails instead of delivering them and keeps a copy of each.
type Simulated struct {
	log  *logger.Logger
	seq  atomic.Int64
	mu   sync.Mutex
	sent []Message
}

func NewSimulated(log *logger.Logger) *Simulated {
	return &Simulated{log: log}
}

func (s *Simulated) Name() string { return "simulated" }

func (s *Simulated) Send(ctx context.Context, msg Message) (string, error) {
	id := fmt.Sprintf("sim_email_%d", s.seq.Add(1))
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()

	s.log.WithContext(ctx).Info("email simulated", "to", msg.To, "subject", msg.Subject, "message_id", id)
	return id, nil
}

// Sent returns a copy of every captured message.
func (s *Simulated) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
