package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"garage_backend/internal/lifecycle"
)

// Priority orders work orders for the shop floor.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a recognized priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// WorkOrder is a customer-requested unit of work with its status history.
type WorkOrder struct {
	ID           uuid.UUID
	VehicleID    uuid.UUID
	CustomerID   uuid.UUID
	TechnicianID *uuid.UUID
	Priority     Priority
	Description  string
	Mileage      int64
	CostCents    int64
	Status       lifecycle.Status
	History      []lifecycle.HistoryEntry
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Fields holds the mutable columns of a work order.
type Fields struct {
	VehicleID    uuid.UUID
	CustomerID   uuid.UUID
	TechnicianID *uuid.UUID
	Priority     Priority
	Description  string
	Mileage      int64
	CostCents    int64
	Status       lifecycle.Status
}

// ListParams filters and paginates work order listings.
type ListParams struct {
	VehicleID  *uuid.UUID
	CustomerID *uuid.UUID
	Status     *lifecycle.Status
	Priority   *Priority
	Limit      int
	Offset     int
}

// Repository defines persistence for work orders. The status write, history
// append, and vehicle sync run inside one transaction via InTx.
type Repository interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error

	GetByID(ctx context.Context, id uuid.UUID) (WorkOrder, error)
	List(ctx context.Context, params ListParams) ([]WorkOrder, int, error)

	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (WorkOrder, error)
	Insert(ctx context.Context, tx pgx.Tx, id uuid.UUID, fields Fields) error
	UpdateFields(ctx context.Context, tx pgx.Tx, id uuid.UUID, fields Fields) error
	AppendHistory(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status lifecycle.Status, note *string, actorID uuid.UUID) (lifecycle.HistoryEntry, error)
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}
