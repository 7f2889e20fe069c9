package service

import (
	"context"

	"github.com/google/uuid"

	"garage_backend/internal/parts/repository"
	"garage_backend/internal/parts/transport"
	"garage_backend/platform/logger"
)

// Service provides business logic for the parts inventory.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new parts service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// GetByID retrieves a part by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.PartResponse, error) {
	part, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.PartResponse{}, err
	}
	return toResponse(part), nil
}

// List retrieves parts with filters and pagination.
func (s *Service) List(ctx context.Context, req transport.ListPartsRequest) (transport.PartListResponse, error) {
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

	items, total, err := s.repo.List(ctx, repository.ListParams{
		Search:       req.Search,
		LowStockOnly: req.LowStock,
		Limit:        pageSize,
		Offset:       (page - 1) * pageSize,
	})
	if err != nil {
		return transport.PartListResponse{}, err
	}

	return toListResponse(items, total, page, pageSize), nil
}

// Create creates a new part.
func (s *Service) Create(ctx context.Context, req transport.CreatePartRequest) (transport.PartResponse, error) {
	part, err := s.repo.Create(ctx, repository.CreateParams{
		Name:           req.Name,
		SKU:            req.SKU,
		Stock:          req.Stock,
		MinStock:       req.MinStock,
		UnitPriceCents: req.UnitPriceCents,
	})
	if err != nil {
		return transport.PartResponse{}, err
	}

	s.log.Info("part created", "id", part.ID, "name", part.Name, "sku", part.SKU)
	return toResponse(part), nil
}

// Update updates a part's catalog fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdatePartRequest) (transport.PartResponse, error) {
	part, err := s.repo.Update(ctx, repository.UpdateParams{
		ID:             id,
		Name:           req.Name,
		SKU:            req.SKU,
		MinStock:       req.MinStock,
		UnitPriceCents: req.UnitPriceCents,
	})
	if err != nil {
		return transport.PartResponse{}, err
	}

	s.log.Info("part updated", "id", part.ID, "name", part.Name)
	return toResponse(part), nil
}

// Delete removes a part from the catalog.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("part deleted", "id", id)
	return nil
}

// Restock adds received goods to a part's stock.
func (s *Service) Restock(ctx context.Context, id uuid.UUID, req transport.RestockRequest) (transport.PartResponse, error) {
	part, err := s.repo.Restock(ctx, id, req.Quantity)
	if err != nil {
		return transport.PartResponse{}, err
	}

	s.log.StockAdjustment(part.ID.String(), req.Quantity, part.Stock)
	return toResponse(part), nil
}

func toResponse(p repository.Part) transport.PartResponse {
	return transport.PartResponse{
		ID:             p.ID,
		Name:           p.Name,
		SKU:            p.SKU,
		Stock:          p.Stock,
		MinStock:       p.MinStock,
		LowStock:       p.LowStock(),
		UnitPriceCents: p.UnitPriceCents,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func toListResponse(items []repository.Part, total, page, pageSize int) transport.PartListResponse {
	responses := make([]transport.PartResponse, len(items))
	for i, item := range items {
		responses[i] = toResponse(item)
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return transport.PartListResponse{
		Items:      responses,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
