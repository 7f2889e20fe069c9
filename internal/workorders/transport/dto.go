package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateWorkOrderRequest is the payload for opening a work order. Orders
// always start pending; assignment is a guarded transition.
type CreateWorkOrderRequest struct {
	VehicleID   uuid.UUID  `json:"vehicle" validate:"required"`
	CustomerID  *uuid.UUID `json:"customer"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	Description string     `json:"description" validate:"required,max=2000"`
	Mileage     int64      `json:"mileage" validate:"min=0"`
}

// UpdateWorkOrderRequest is the payload for PUT /work-orders/:id. Status is
// optional; when present and different from the stored one it triggers the
// pure status-change path with ProgressNotes as the ledger note.
type UpdateWorkOrderRequest struct {
	TechnicianID  *uuid.UUID `json:"technician"`
	Priority      string     `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	Description   *string    `json:"description" validate:"omitempty,max=2000"`
	Mileage       *int64     `json:"mileage" validate:"omitempty,min=0"`
	CostCents     *int64     `json:"cost" validate:"omitempty,min=0"`
	Status        *string    `json:"status" validate:"omitempty,oneof=pending assigned in_progress pending_check completed cancelled"`
	ProgressNotes *string    `json:"progressNotes" validate:"omitempty,max=1000"`
}

// ListWorkOrdersRequest carries listing filters bound from the query string.
type ListWorkOrdersRequest struct {
	VehicleID string `form:"vehicle"`
	Status    string `form:"status"`
	Priority  string `form:"priority"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// HistoryEntryResponse is the API representation of one status change.
type HistoryEntryResponse struct {
	Seq       int       `json:"seq"`
	Status    string    `json:"status"`
	Note      *string   `json:"note,omitempty"`
	ActorID   uuid.UUID `json:"actorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// WorkOrderResponse is the API representation of a work order.
type WorkOrderResponse struct {
	ID           uuid.UUID              `json:"id"`
	VehicleID    uuid.UUID              `json:"vehicle"`
	CustomerID   uuid.UUID              `json:"customer"`
	TechnicianID *uuid.UUID             `json:"technician,omitempty"`
	Priority     string                 `json:"priority"`
	Description  string                 `json:"description"`
	Mileage      int64                  `json:"mileage"`
	CostCents    int64                  `json:"cost"`
	Status       string                 `json:"status"`
	History      []HistoryEntryResponse `json:"statusHistory"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// WorkOrderListResponse is a paginated list of work orders.
type WorkOrderListResponse struct {
	Items      []WorkOrderResponse `json:"items"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"pageSize"`
	TotalPages int                 `json:"totalPages"`
}
