package auth

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"garage_backend/internal/auth/handler"
	"garage_backend/internal/auth/repository"
	"garage_backend/internal/auth/service"
	"garage_backend/internal/http"
	"garage_backend/platform/config"
	"garage_backend/platform/logger"
	"garage_backend/platform/validator"
)

// Module wires the authentication vertical.
type Module struct {
	handler *handler.Handler
}

// NewModule constructs the auth module.
func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, log *logger.Logger, validate *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, log)
	return &Module{handler: handler.New(svc, validate)}
}

// Name returns the module name.
func (m *Module) Name() string { return "auth" }

// RegisterRoutes mounts the auth routes. Credential endpoints sit behind the
// stricter auth rate limiter.
func (m *Module) RegisterRoutes(rc *http.RouterContext) {
	authGroup := rc.V1.Group("/auth")
	authGroup.Use(rc.AuthRateLimiter.RateLimit())
	{
		authGroup.POST("/register", m.handler.Register)
		authGroup.POST("/login", m.handler.Login)
		authGroup.POST("/refresh", m.handler.Refresh)
		authGroup.POST("/logout", m.handler.Logout)
	}

	rc.Protected.GET("/auth/me", m.handler.Me)
}
