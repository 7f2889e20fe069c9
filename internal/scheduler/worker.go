package scheduler

import (
	"context"
	"fmt"

	"garage_backend/internal/events"
	"garage_backend/internal/lifecycle"
	"garage_backend/internal/workorders/repository"
	"garage_backend/platform/apperr"
	"garage_backend/platform/config"
	"garage_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	orders repository.Repository
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		orders: repository.New(pool),
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskWorkOrderFollowUp, w.handleWorkOrderFollowUp)

	return w, nil
}

// handleWorkOrderFollowUp re-checks a work order after the follow-up window
// and raises a stalled event if it is still waiting on a technician.
func (w *Worker) handleWorkOrderFollowUp(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseWorkOrderFollowUpPayload(task)
	if err != nil {
		return err
	}

	orderID, err := uuid.Parse(payload.OrderID)
	if err != nil {
		return err
	}

	order, err := w.orders.GetByID(ctx, orderID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}

	if order.Status != lifecycle.StatusAssigned {
		return nil
	}

	w.log.Warn("work order stalled after follow-up window",
		"orderId", order.ID.String(),
		"vehicleId", order.VehicleID.String())

	if w.bus == nil {
		return nil
	}

	return w.bus.PublishSync(ctx, events.WorkOrderStalled{
		BaseEvent:   events.NewBaseEvent(),
		WorkOrderID: order.ID,
		VehicleID:   order.VehicleID,
		Status:      string(order.Status),
	})
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
