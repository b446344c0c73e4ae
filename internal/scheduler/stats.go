package scheduler

import (
	"errors"

	"lead_pipeline_backend/platform/config"

	"github.com/hibiken/asynq"
)

// QueueStats is the per-queue snapshot reported by the health endpoint.
type QueueStats struct {
	Pending   int `json:"pending"`
	Active    int `json:"active"`
	Scheduled int `json:"scheduled"`
	Retry     int `json:"retry"`
	Archived  int `json:"archived"`
	Completed int `json:"completed"`
}

// Inspector reads queue state from Redis.
type Inspector struct {
	inspector *asynq.Inspector
}

func NewInspector(cfg config.SchedulerConfig) (*Inspector, error) {
	opt, err := RedisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}
	return &Inspector{inspector: asynq.NewInspector(opt)}, nil
}

// Stats returns a snapshot of every pipeline queue. Queues that have never
// received a task report zeros.
func (i *Inspector) Stats() (map[string]QueueStats, error) {
	out := make(map[string]QueueStats, len(QueuePriorities))
	for queue := range QueuePriorities {
		info, err := i.inspector.GetQueueInfo(queue)
		if errors.Is(err, asynq.ErrQueueNotFound) {
			out[queue] = QueueStats{}
			continue
		}
		if err != nil {
			return nil, err
		}
		out[queue] = QueueStats{
			Pending:   info.Pending,
			Active:    info.Active,
			Scheduled: info.Scheduled,
			Retry:     info.Retry,
			Archived:  info.Archived,
			Completed: info.Completed,
		}
	}
	return out, nil
}

func (i *Inspector) Close() error {
	return i.inspector.Close()
}
