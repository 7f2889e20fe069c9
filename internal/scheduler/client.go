package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"garage_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues background tasks on the asynq queue.
type Client struct {
	client        *asynq.Client
	queue         string
	followUpDelay time.Duration
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	delay := cfg.GetWorkOrderFollowUpDelay()
	if delay <= 0 {
		delay = 48 * time.Hour
	}

	return &Client{
		client:        asynq.NewClient(opt),
		queue:         queue,
		followUpDelay: delay,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleFollowUp enqueues a delayed check on an assigned work order so the
// shop is alerted when nobody picks it up.
func (c *Client) ScheduleFollowUp(ctx context.Context, orderID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewWorkOrderFollowUpTask(WorkOrderFollowUpPayload{OrderID: orderID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessIn(c.followUpDelay), asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
