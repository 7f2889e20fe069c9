package parts

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"garage_backend/internal/http"
	"garage_backend/internal/parts/handler"
	"garage_backend/internal/parts/repository"
	"garage_backend/internal/parts/service"
	"garage_backend/platform/logger"
	"garage_backend/platform/validator"
)

// Module wires the parts inventory vertical.
type Module struct {
	handler *handler.Handler
	repo    repository.Repository
}

// NewModule constructs the parts module.
func NewModule(pool *pgxpool.Pool, log *logger.Logger, validate *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	return &Module{
		handler: handler.New(svc, validate),
		repo:    repo,
	}
}

// Name returns the module name.
func (m *Module) Name() string { return "parts" }

// Repository exposes the parts repository for cross-module stock reconciliation.
func (m *Module) Repository() repository.Repository { return m.repo }

// RegisterRoutes mounts the parts routes.
func (m *Module) RegisterRoutes(rc *http.RouterContext) {
	parts := rc.Protected.Group("/parts")
	{
		parts.GET("", m.handler.List)
		parts.GET("/:id", m.handler.Get)
	}

	admin := rc.Admin.Group("/parts")
	{
		admin.POST("", m.handler.Create)
		admin.PUT("/:id", m.handler.Update)
		admin.DELETE("/:id", m.handler.Delete)
		admin.POST("/:id/restock", m.handler.Restock)
	}
}
