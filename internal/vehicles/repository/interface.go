package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"garage_backend/internal/lifecycle"
)

// Vehicle represents a customer vehicle in the shop.
type Vehicle struct {
	ID                  uuid.UUID
	OwnerID             uuid.UUID
	Plate               string
	Make                string
	Model               string
	Year                int
	Mileage             int64
	Status              lifecycle.VehicleStatus
	LastMaintenanceDate *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// CreateParams holds the fields for creating a vehicle.
type CreateParams struct {
	OwnerID uuid.UUID
	Plate   string
	Make    string
	Model   string
	Year    int
	Mileage int64
}

// UpdateParams holds the fields for updating a vehicle.
type UpdateParams struct {
	ID      uuid.UUID
	Plate   string
	Make    string
	Model   string
	Year    int
	Mileage int64
	Status  lifecycle.VehicleStatus
}

// ListParams filters and paginates vehicle listings.
type ListParams struct {
	OwnerID *uuid.UUID
	Status  *lifecycle.VehicleStatus
	Search  string
	Limit   int
	Offset  int
}

// Repository defines persistence operations for vehicles.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Vehicle, error)
	List(ctx context.Context, params ListParams) ([]Vehicle, int, error)
	Create(ctx context.Context, params CreateParams) (Vehicle, error)
	Update(ctx context.Context, params UpdateParams) (Vehicle, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// SyncLifecycleState applies derived lifecycle state to a vehicle within
	// the caller's transaction. Mileage never decreases.
	SyncLifecycleState(ctx context.Context, tx pgx.Tx, vehicleID uuid.UUID, sync lifecycle.VehicleSync) error
}
