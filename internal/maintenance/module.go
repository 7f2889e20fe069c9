package maintenance

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"garage_backend/internal/events"
	"garage_backend/internal/http"
	"garage_backend/internal/maintenance/handler"
	"garage_backend/internal/maintenance/repository"
	"garage_backend/internal/maintenance/service"
	"garage_backend/platform/logger"
	"garage_backend/platform/validator"
)

// Module wires the maintenance records vertical.
type Module struct {
	handler *handler.Handler
}

// NewModule constructs the maintenance module. The parts and vehicles stores
// come from their modules so the lifecycle writes share one transaction.
func NewModule(pool *pgxpool.Pool, parts service.PartStore, vehicles service.VehicleSyncer, bus events.Bus, log *logger.Logger, validate *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, parts, vehicles, bus, log)
	return &Module{handler: handler.New(svc, validate)}
}

// Name returns the module name.
func (m *Module) Name() string { return "maintenance" }

// RegisterRoutes mounts the maintenance routes.
func (m *Module) RegisterRoutes(rc *http.RouterContext) {
	maintenance := rc.Protected.Group("/maintenance")
	{
		maintenance.GET("", m.handler.List)
		maintenance.GET("/:id", m.handler.Get)
		maintenance.POST("", m.handler.Create)
		maintenance.PUT("/:id", m.handler.Update)
		maintenance.PATCH("/:id/status", m.handler.UpdateStatus)
		maintenance.DELETE("/:id", m.handler.Delete)
	}
}
