package workorders

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"garage_backend/internal/events"
	"garage_backend/internal/http"
	"garage_backend/internal/workorders/handler"
	"garage_backend/internal/workorders/repository"
	"garage_backend/internal/workorders/service"
	"garage_backend/platform/logger"
	"garage_backend/platform/validator"
)

// Module wires the work orders vertical.
type Module struct {
	handler *handler.Handler
	repo    repository.Repository
}

// NewModule constructs the work orders module. The scheduler may be nil when
// no redis is configured; follow-ups are then skipped.
func NewModule(pool *pgxpool.Pool, vehicles service.VehicleSyncer, bus events.Bus, scheduler service.FollowUpScheduler, log *logger.Logger, validate *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, vehicles, bus, scheduler, log)
	return &Module{
		handler: handler.New(svc, validate),
		repo:    repo,
	}
}

// Name returns the module name.
func (m *Module) Name() string { return "workorders" }

// Repository exposes the work orders repository for the scheduler worker.
func (m *Module) Repository() repository.Repository { return m.repo }

// RegisterRoutes mounts the work order routes.
func (m *Module) RegisterRoutes(rc *http.RouterContext) {
	orders := rc.Protected.Group("/work-orders")
	{
		orders.GET("", m.handler.List)
		orders.GET("/:id", m.handler.Get)
		orders.POST("", m.handler.Create)
		orders.PUT("/:id", m.handler.Update)
		orders.DELETE("/:id", m.handler.Delete)
	}
}
