package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskSendSMS         = "leads.sms.send"
	TaskSendEmail       = "leads.email.send"
	TaskCRMSync         = "leads.crm.sync"
	TaskEngagementCheck = "leads.engagement.check"
)

const (
	QueueSMS        = "sms"
	QueueEmail      = "email"
	QueueCRM        = "crm"
	QueueEngagement = "engagement"
)

// QueuePriorities weights the worker's queues; higher is polled more often.
var QueuePriorities = map[string]int{
	QueueCRM:        4,
	QueueSMS:        3,
	QueueEmail:      2,
	QueueEngagement: 1,
}

// Policy is the delivery policy of one task type.
type Policy struct {
	Queue       string
	MaxAttempts int
	BaseDelay   time.Duration
}

// MaxRetry converts attempts into asynq's retry count.
func (p Policy) MaxRetry() int {
	if p.MaxAttempts < 1 {
		return 0
	}
	return p.MaxAttempts - 1
}

// Backoff returns the delay before the retry following the given number of
// prior retries: base, 2*base, 4*base...
func (p Policy) Backoff(retried int) time.Duration {
	if retried < 0 {
		retried = 0
	}
	return p.BaseDelay << uint(retried)
}

var policies = map[string]Policy{
	TaskSendSMS:         {Queue: QueueSMS, MaxAttempts: 3, BaseDelay: 5 * time.Second},
	TaskSendEmail:       {Queue: QueueEmail, MaxAttempts: 3, BaseDelay: 5 * time.Second},
	TaskCRMSync:         {Queue: QueueCRM, MaxAttempts: 3, BaseDelay: 10 * time.Second},
	TaskEngagementCheck: {Queue: QueueEngagement, MaxAttempts: 2, BaseDelay: 30 * time.Second},
}

// PolicyFor returns the policy registered for a task type.
func PolicyFor(taskType string) (Policy, bool) {
	p, ok := policies[taskType]
	return p, ok
}

// SMSPayload asks the worker to send one templated text message.
type SMSPayload struct {
	LeadID string `json:"leadId"`
	Type   string `json:"type"`
}

// EmailPayload asks the worker to send one templated email.
type EmailPayload struct {
	LeadID   string `json:"leadId"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Template string `json:"template"`
}

// CRMSyncPayload asks the worker to push a lead to the CRM.
type CRMSyncPayload struct {
	LeadID string `json:"leadId"`
	Action string `json:"action"`
}

// EngagementPayload asks the worker to check whether a lead used its link.
type EngagementPayload struct {
	LeadID    string `json:"leadId"`
	CheckType string `json:"checkType"`
}

func newTask(taskType string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", taskType, err)
	}
	return asynq.NewTask(taskType, data), nil
}

func parsePayload[T any](task *asynq.Task) (T, error) {
	var payload T
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %w", task.Type(), err)
	}
	return payload, nil
}
