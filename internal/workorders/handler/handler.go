package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"garage_backend/internal/lifecycle"
	"garage_backend/internal/workorders/service"
	"garage_backend/internal/workorders/transport"
	"garage_backend/platform/apperr"
	"garage_backend/platform/httpkit"
	"garage_backend/platform/validator"
)

// Handler exposes HTTP endpoints for work orders.
type Handler struct {
	svc      *service.Service
	validate *validator.Validator
}

// New creates a new work orders handler.
func New(svc *service.Service, validate *validator.Validator) *Handler {
	return &Handler{svc: svc, validate: validate}
}

func actorFrom(c *gin.Context) service.Actor {
	identity := httpkit.MustGetIdentity(c)
	return service.Actor{
		UserID: identity.UserID(),
		Role:   lifecycle.RoleFromClaims(identity.Roles()),
	}
}

// List handles GET /work-orders.
func (h *Handler) List(c *gin.Context) {
	var req transport.ListWorkOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.HandleError(c, apperr.Validation("invalid query parameters"))
		return
	}

	resp, err := h.svc.List(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusOK, resp)
}

// Get handles GET /work-orders/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.Validation("invalid work order id"))
		return
	}

	resp, err := h.svc.GetByID(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusOK, resp)
}

// Create handles POST /work-orders.
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.Validation("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

// Update handles PUT /work-orders/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.Validation("invalid work order id"))
		return
	}

	var req transport.UpdateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.Validation("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	resp, err := h.svc.Update(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.JSON(c, http.StatusOK, resp)
}

// Delete handles DELETE /work-orders/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.Validation("invalid work order id"))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
