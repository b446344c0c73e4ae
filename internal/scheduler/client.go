package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lead_pipeline_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues delayed pipeline tasks.
type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := RedisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}
	return &Client{client: asynq.NewClient(opt)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueSMS schedules a text message. The qualification link is keyed by
// lead so repeated intake cannot queue it twice.
func (c *Client) EnqueueSMS(ctx context.Context, payload SMSPayload, delay time.Duration) error {
	taskID := ""
	if payload.Type == "qualification_link" {
		taskID = fmt.Sprintf("sms:%s:%s", payload.LeadID, payload.Type)
	}
	return c.enqueue(ctx, TaskSendSMS, payload, delay, taskID)
}

func (c *Client) EnqueueEmail(ctx context.Context, payload EmailPayload, delay time.Duration) error {
	taskID := ""
	if payload.Template == "qualification_link" {
		taskID = fmt.Sprintf("email:%s:%s", payload.LeadID, payload.Template)
	}
	return c.enqueue(ctx, TaskSendEmail, payload, delay, taskID)
}

func (c *Client) EnqueueCRMSync(ctx context.Context, payload CRMSyncPayload, delay time.Duration) error {
	return c.enqueue(ctx, TaskCRMSync, payload, delay, "")
}

func (c *Client) EnqueueEngagementCheck(ctx context.Context, payload EngagementPayload, delay time.Duration) error {
	taskID := fmt.Sprintf("engagement:%s:%s", payload.LeadID, payload.CheckType)
	return c.enqueue(ctx, TaskEngagementCheck, payload, delay, taskID)
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload any, delay time.Duration, taskID string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := newTask(taskType, payload)
	if err != nil {
		return err
	}

	policy, _ := PolicyFor(taskType)
	opts := []asynq.Option{
		asynq.Queue(policy.Queue),
		asynq.MaxRetry(policy.MaxRetry()),
	}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}
	if taskID != "" {
		opts = append(opts, asynq.TaskID(taskID))
	}

	_, err = c.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}

// RedisClientOpt converts a redis:// or rediss:// URL into asynq options.
func RedisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	if redisURL == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

// NewRedisClient opens a go-redis client on the same URL the queues use.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}
