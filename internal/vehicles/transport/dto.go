package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateVehicleRequest is the payload for registering a vehicle.
type CreateVehicleRequest struct {
	OwnerID uuid.UUID `json:"ownerId" validate:"required"`
	Plate   string    `json:"plate" validate:"required,max=16"`
	Make    string    `json:"make" validate:"required,max=64"`
	Model   string    `json:"model" validate:"required,max=64"`
	Year    int       `json:"year" validate:"required,min=1950,max=2100"`
	Mileage int64     `json:"mileage" validate:"min=0"`
}

// UpdateVehicleRequest is the payload for updating a vehicle.
type UpdateVehicleRequest struct {
	Plate   string `json:"plate" validate:"required,max=16"`
	Make    string `json:"make" validate:"required,max=64"`
	Model   string `json:"model" validate:"required,max=64"`
	Year    int    `json:"year" validate:"required,min=1950,max=2100"`
	Mileage int64  `json:"mileage" validate:"min=0"`
	Status  string `json:"status" validate:"required,oneof=active maintenance inactive"`
}

// ListVehiclesRequest carries listing filters bound from the query string.
type ListVehiclesRequest struct {
	Status   string `form:"status"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// VehicleResponse is the API representation of a vehicle.
type VehicleResponse struct {
	ID                  uuid.UUID  `json:"id"`
	OwnerID             uuid.UUID  `json:"ownerId"`
	Plate               string     `json:"plate"`
	Make                string     `json:"make"`
	Model               string     `json:"model"`
	Year                int        `json:"year"`
	Mileage             int64      `json:"mileage"`
	Status              string     `json:"status"`
	LastMaintenanceDate *time.Time `json:"lastMaintenanceDate,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// VehicleListResponse is a paginated list of vehicles.
type VehicleListResponse struct {
	Items      []VehicleResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}
