package vehicles

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"garage_backend/internal/http"
	"garage_backend/internal/vehicles/handler"
	"garage_backend/internal/vehicles/repository"
	"garage_backend/internal/vehicles/service"
	"garage_backend/platform/logger"
	"garage_backend/platform/validator"
)

// Module wires the vehicles vertical.
type Module struct {
	handler *handler.Handler
	repo    repository.Repository
}

// NewModule constructs the vehicles module.
func NewModule(pool *pgxpool.Pool, log *logger.Logger, validate *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	return &Module{
		handler: handler.New(svc, validate),
		repo:    repo,
	}
}

// Name returns the module name.
func (m *Module) Name() string { return "vehicles" }

// Repository exposes the vehicles repository for lifecycle state sync.
func (m *Module) Repository() repository.Repository { return m.repo }

// RegisterRoutes mounts the vehicles routes.
func (m *Module) RegisterRoutes(rc *http.RouterContext) {
	vehicles := rc.Protected.Group("/vehicles")
	{
		vehicles.GET("", m.handler.List)
		vehicles.GET("/:id", m.handler.Get)
		vehicles.POST("", m.handler.Create)
		vehicles.PUT("/:id", m.handler.Update)
		vehicles.DELETE("/:id", m.handler.Delete)
	}
}
