package transport

import (
	"time"

	"github.com/google/uuid"
)

// LineItemRequest references a part by id; the server prices the line from
// the catalog.
type LineItemRequest struct {
	PartID   uuid.UUID `json:"partId" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,min=1"`
}

// CreateMaintenanceRequest is the payload for creating a maintenance record.
type CreateMaintenanceRequest struct {
	VehicleID    uuid.UUID         `json:"vehicle" validate:"required"`
	TechnicianID *uuid.UUID        `json:"technician"`
	Type         string            `json:"type" validate:"required,max=64"`
	Description  string            `json:"description" validate:"max=2000"`
	Mileage      int64             `json:"mileage" validate:"min=0"`
	CostCents    int64             `json:"cost" validate:"min=0"`
	StartDate    time.Time         `json:"startDate" validate:"required"`
	Status       string            `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	Parts        []LineItemRequest `json:"parts" validate:"dive"`
}

// UpdateMaintenanceRequest is the payload for updating a maintenance record.
// A status different from the stored one is a guarded transition.
type UpdateMaintenanceRequest struct {
	TechnicianID *uuid.UUID        `json:"technician"`
	Type         string            `json:"type" validate:"required,max=64"`
	Description  string            `json:"description" validate:"max=2000"`
	Mileage      int64             `json:"mileage" validate:"min=0"`
	CostCents    int64             `json:"cost" validate:"min=0"`
	StartDate    time.Time         `json:"startDate" validate:"required"`
	Status       string            `json:"status" validate:"required,oneof=pending in_progress completed cancelled"`
	Parts        []LineItemRequest `json:"parts" validate:"dive"`
}

// UpdateStatusRequest is the payload for a pure status transition.
type UpdateStatusRequest struct {
	Status string  `json:"status" validate:"required,oneof=pending in_progress completed cancelled"`
	Note   *string `json:"note" validate:"omitempty,max=1000"`
}

// ListMaintenanceRequest carries listing filters bound from the query string.
type ListMaintenanceRequest struct {
	VehicleID string `form:"vehicle"`
	Status    string `form:"status"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// LineItemResponse is the API representation of one part line.
type LineItemResponse struct {
	PartID          uuid.UUID `json:"partId"`
	Quantity        int       `json:"quantity"`
	UnitPriceCents  int64     `json:"unitPriceCents"`
	TotalPriceCents int64     `json:"totalPriceCents"`
}

// HistoryEntryResponse is the API representation of one status change.
type HistoryEntryResponse struct {
	Seq       int       `json:"seq"`
	Status    string    `json:"status"`
	Note      *string   `json:"note,omitempty"`
	ActorID   uuid.UUID `json:"actorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// MaintenanceResponse is the API representation of a maintenance record.
type MaintenanceResponse struct {
	ID             uuid.UUID              `json:"id"`
	VehicleID      uuid.UUID              `json:"vehicle"`
	TechnicianID   *uuid.UUID             `json:"technician,omitempty"`
	Type           string                 `json:"type"`
	Description    string                 `json:"description"`
	Mileage        int64                  `json:"mileage"`
	CostCents      int64                  `json:"cost"`
	PartsCostCents int64                  `json:"partsCost"`
	StartDate      time.Time              `json:"startDate"`
	Status         string                 `json:"status"`
	Parts          []LineItemResponse     `json:"parts"`
	History        []HistoryEntryResponse `json:"statusHistory"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// MaintenanceListResponse is a paginated list of maintenance records.
type MaintenanceListResponse struct {
	Items      []MaintenanceResponse `json:"items"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"pageSize"`
	TotalPages int                   `json:"totalPages"`
}
