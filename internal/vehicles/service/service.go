package service

import (
	"context"

	"github.com/google/uuid"

	"garage_backend/internal/lifecycle"
	"garage_backend/internal/vehicles/repository"
	"garage_backend/internal/vehicles/transport"
	"garage_backend/platform/apperr"
	"garage_backend/platform/logger"
)

// Service provides business logic for vehicles.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new vehicles service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Actor identifies the caller for ownership checks.
type Actor struct {
	UserID uuid.UUID
	Role   lifecycle.Role
}

// CustomerOnly reports whether the actor may only touch their own vehicles.
func (a Actor) CustomerOnly() bool {
	return a.Role == lifecycle.RoleCustomer
}

// GetByID retrieves a vehicle. Customers can only read their own vehicles.
func (s *Service) GetByID(ctx context.Context, actor Actor, id uuid.UUID) (transport.VehicleResponse, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.VehicleResponse{}, err
	}
	if actor.CustomerOnly() && v.OwnerID != actor.UserID {
		return transport.VehicleResponse{}, apperr.Forbidden("vehicle belongs to another customer")
	}
	return toResponse(v), nil
}

// List retrieves vehicles with filters. Customers see only their own.
func (s *Service) List(ctx context.Context, actor Actor, req transport.ListVehiclesRequest) (transport.VehicleListResponse, error) {
	page := req.Page
	pageSize := req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	params := repository.ListParams{
		Search: req.Search,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	if req.Status != "" {
		status := lifecycle.VehicleStatus(req.Status)
		if !status.Valid() {
			return transport.VehicleListResponse{}, apperr.Validation("invalid vehicle status filter")
		}
		params.Status = &status
	}
	if actor.CustomerOnly() {
		owner := actor.UserID
		params.OwnerID = &owner
	}

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.VehicleListResponse{}, err
	}
	return toListResponse(items, total, page, pageSize), nil
}

// Create registers a new vehicle. Customers register vehicles for themselves.
func (s *Service) Create(ctx context.Context, actor Actor, req transport.CreateVehicleRequest) (transport.VehicleResponse, error) {
	if actor.CustomerOnly() && req.OwnerID != actor.UserID {
		return transport.VehicleResponse{}, apperr.Forbidden("cannot register a vehicle for another customer")
	}

	v, err := s.repo.Create(ctx, repository.CreateParams{
		OwnerID: req.OwnerID,
		Plate:   req.Plate,
		Make:    req.Make,
		Model:   req.Model,
		Year:    req.Year,
		Mileage: req.Mileage,
	})
	if err != nil {
		return transport.VehicleResponse{}, err
	}

	s.log.Info("vehicle created", "id", v.ID, "plate", v.Plate, "owner_id", v.OwnerID)
	return toResponse(v), nil
}

// Update modifies a vehicle. Status changes and mileage are clamped at the
// repository for lifecycle writes; direct updates here are staff operations.
func (s *Service) Update(ctx context.Context, actor Actor, id uuid.UUID, req transport.UpdateVehicleRequest) (transport.VehicleResponse, error) {
	if actor.CustomerOnly() {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return transport.VehicleResponse{}, err
		}
		if existing.OwnerID != actor.UserID {
			return transport.VehicleResponse{}, apperr.Forbidden("vehicle belongs to another customer")
		}
	}

	v, err := s.repo.Update(ctx, repository.UpdateParams{
		ID:      id,
		Plate:   req.Plate,
		Make:    req.Make,
		Model:   req.Model,
		Year:    req.Year,
		Mileage: req.Mileage,
		Status:  lifecycle.VehicleStatus(req.Status),
	})
	if err != nil {
		return transport.VehicleResponse{}, err
	}

	s.log.Info("vehicle updated", "id", v.ID, "plate", v.Plate)
	return toResponse(v), nil
}

// Delete removes a vehicle.
func (s *Service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if actor.CustomerOnly() {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing.OwnerID != actor.UserID {
			return apperr.Forbidden("vehicle belongs to another customer")
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("vehicle deleted", "id", id)
	return nil
}

func toResponse(v repository.Vehicle) transport.VehicleResponse {
	return transport.VehicleResponse{
		ID:                  v.ID,
		OwnerID:             v.OwnerID,
		Plate:               v.Plate,
		Make:                v.Make,
		Model:               v.Model,
		Year:                v.Year,
		Mileage:             v.Mileage,
		Status:              string(v.Status),
		LastMaintenanceDate: v.LastMaintenanceDate,
		CreatedAt:           v.CreatedAt,
		UpdatedAt:           v.UpdatedAt,
	}
}

func toListResponse(items []repository.Vehicle, total, page, pageSize int) transport.VehicleListResponse {
	responses := make([]transport.VehicleResponse, len(items))
	for i, item := range items {
		responses[i] = toResponse(item)
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return transport.VehicleListResponse{
		Items:      responses,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
