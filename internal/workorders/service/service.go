package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"garage_backend/internal/events"
	"garage_backend/internal/lifecycle"
	"garage_backend/internal/workorders/repository"
	"garage_backend/internal/workorders/transport"
	"garage_backend/platform/apperr"
	"garage_backend/platform/logger"
)

// VehicleSyncer writes derived lifecycle state onto a vehicle inside the
// orchestrator's transaction.
type VehicleSyncer interface {
	SyncLifecycleState(ctx context.Context, tx pgx.Tx, vehicleID uuid.UUID, sync lifecycle.VehicleSync) error
}

// FollowUpScheduler enqueues a delayed follow-up check for an assigned order.
// A nil scheduler disables follow-ups.
type FollowUpScheduler interface {
	ScheduleFollowUp(ctx context.Context, orderID uuid.UUID) error
}

// Actor identifies the caller for guard and ownership checks.
type Actor struct {
	UserID uuid.UUID
	Role   lifecycle.Role
}

// Service orchestrates the work order lifecycle. Status changes follow the
// pure status-change path: guard, status write, history append, vehicle sync,
// all in one transaction.
type Service struct {
	repo      repository.Repository
	vehicles  VehicleSyncer
	bus       events.Bus
	scheduler FollowUpScheduler
	log       *logger.Logger
	now       func() time.Time
}

// New creates a new work orders service.
func New(repo repository.Repository, vehicles VehicleSyncer, bus events.Bus, scheduler FollowUpScheduler, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		vehicles:  vehicles,
		bus:       bus,
		scheduler: scheduler,
		log:       log,
		now:       time.Now,
	}
}

// GetByID retrieves a work order. Customers only see their own.
func (s *Service) GetByID(ctx context.Context, actor Actor, id uuid.UUID) (transport.WorkOrderResponse, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}
	if actor.Role == lifecycle.RoleCustomer && order.CustomerID != actor.UserID {
		return transport.WorkOrderResponse{}, apperr.Forbidden("work order belongs to another customer")
	}
	return toResponse(order), nil
}

// List retrieves work orders. Customers see only their own.
func (s *Service) List(ctx context.Context, actor Actor, req transport.ListWorkOrdersRequest) (transport.WorkOrderListResponse, error) {
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
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	if req.VehicleID != "" {
		vehicleID, err := uuid.Parse(req.VehicleID)
		if err != nil {
			return transport.WorkOrderListResponse{}, apperr.Validation("invalid vehicle filter")
		}
		params.VehicleID = &vehicleID
	}
	if req.Status != "" {
		status := lifecycle.Status(req.Status)
		if !status.ValidFor(lifecycle.KindWorkOrder) {
			return transport.WorkOrderListResponse{}, apperr.Validation("invalid status filter")
		}
		params.Status = &status
	}
	if req.Priority != "" {
		priority := repository.Priority(req.Priority)
		if !priority.Valid() {
			return transport.WorkOrderListResponse{}, apperr.Validation("invalid priority filter")
		}
		params.Priority = &priority
	}
	if actor.Role == lifecycle.RoleCustomer {
		customer := actor.UserID
		params.CustomerID = &customer
	}

	orders, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.WorkOrderListResponse{}, err
	}

	items := make([]transport.WorkOrderResponse, len(orders))
	for i, order := range orders {
		items[i] = toResponse(order)
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return transport.WorkOrderListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Create opens a new work order in pending with its first ledger entry.
// Customers open orders for themselves; staff may name the customer.
func (s *Service) Create(ctx context.Context, actor Actor, req transport.CreateWorkOrderRequest) (transport.WorkOrderResponse, error) {
	customerID := actor.UserID
	if req.CustomerID != nil {
		if actor.Role == lifecycle.RoleCustomer && *req.CustomerID != actor.UserID {
			return transport.WorkOrderResponse{}, apperr.Forbidden("cannot open a work order for another customer")
		}
		customerID = *req.CustomerID
	}

	priority := repository.PriorityNormal
	if req.Priority != "" {
		priority = repository.Priority(req.Priority)
		if !priority.Valid() {
			return transport.WorkOrderResponse{}, apperr.Validation("invalid priority")
		}
	}

	orderID := uuid.New()
	err := s.repo.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		fields := repository.Fields{
			VehicleID:   req.VehicleID,
			CustomerID:  customerID,
			Priority:    priority,
			Description: req.Description,
			Mileage:     req.Mileage,
			Status:      lifecycle.StatusPending,
		}
		if err := s.repo.Insert(ctx, tx, orderID, fields); err != nil {
			return err
		}
		_, err := s.repo.AppendHistory(ctx, tx, orderID, lifecycle.StatusPending, nil, actor.UserID)
		return err
	})
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}

	s.log.StatusTransition(string(lifecycle.KindWorkOrder), orderID.String(), "", string(lifecycle.StatusPending), actor.UserID.String())
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}
	return toResponse(order), nil
}

// Update handles PUT /work-orders/:id. Field edits apply to non-terminal
// orders; a submitted status that differs from the stored one runs the
// guarded status-change path with ProgressNotes as the ledger note.
func (s *Service) Update(ctx context.Context, actor Actor, id uuid.UUID, req transport.UpdateWorkOrderRequest) (transport.WorkOrderResponse, error) {
	var (
		oldStatus lifecycle.Status
		newStatus lifecycle.Status
		vehicleID uuid.UUID
		changed   bool
	)

	err := s.repo.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		existing, err := s.repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if actor.Role == lifecycle.RoleCustomer && existing.CustomerID != actor.UserID {
			return apperr.Forbidden("work order belongs to another customer")
		}
		oldStatus = existing.Status
		newStatus = existing.Status
		vehicleID = existing.VehicleID

		if req.Status != nil {
			newStatus = lifecycle.Status(*req.Status)
			changed = newStatus != existing.Status
		}

		if changed {
			if err := lifecycle.GuardTransition(lifecycle.KindWorkOrder, existing.Status, newStatus, actor.Role); err != nil {
				return err
			}
		} else if existing.Status.Terminal() {
			return apperr.Conflict("work order is in a terminal status")
		}

		fields := repository.Fields{
			VehicleID:    existing.VehicleID,
			CustomerID:   existing.CustomerID,
			TechnicianID: existing.TechnicianID,
			Priority:     existing.Priority,
			Description:  existing.Description,
			Mileage:      existing.Mileage,
			CostCents:    existing.CostCents,
			Status:       newStatus,
		}
		if req.TechnicianID != nil {
			fields.TechnicianID = req.TechnicianID
		}
		if req.Priority != "" {
			priority := repository.Priority(req.Priority)
			if !priority.Valid() {
				return apperr.Validation("invalid priority")
			}
			fields.Priority = priority
		}
		if req.Description != nil {
			fields.Description = *req.Description
		}
		if req.Mileage != nil {
			fields.Mileage = *req.Mileage
		}
		if req.CostCents != nil {
			fields.CostCents = *req.CostCents
		}
		if err := s.repo.UpdateFields(ctx, tx, id, fields); err != nil {
			return err
		}

		if changed {
			if _, err := s.repo.AppendHistory(ctx, tx, id, newStatus, req.ProgressNotes, actor.UserID); err != nil {
				return err
			}
			sync := lifecycle.DeriveVehicleSync(lifecycle.KindWorkOrder, newStatus, &fields.Mileage, s.now())
			if !sync.Empty() {
				if err := s.vehicles.SyncLifecycleState(ctx, tx, existing.VehicleID, sync); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}

	if changed {
		s.log.StatusTransition(string(lifecycle.KindWorkOrder), id.String(), string(oldStatus), string(newStatus), actor.UserID.String())
		s.bus.Publish(ctx, events.WorkOrderStatusChanged{
			BaseEvent:   events.NewBaseEvent(),
			WorkOrderID: id,
			VehicleID:   vehicleID,
			OldStatus:   string(oldStatus),
			NewStatus:   string(newStatus),
			ActorID:     actor.UserID,
		})
		if newStatus == lifecycle.StatusAssigned && s.scheduler != nil {
			if err := s.scheduler.ScheduleFollowUp(ctx, id); err != nil {
				s.log.Error("failed to schedule work order follow-up", "order_id", id, "error", err)
			}
		}
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.WorkOrderResponse{}, err
	}
	return toResponse(order), nil
}

// Delete removes a work order under the role rules: admin any, technician
// and staff anything not completed, customers only their own pending or
// cancelled orders.
func (s *Service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	err := s.repo.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		existing, err := s.repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := deleteAllowed(actor, existing); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return err
		}

		if !existing.Status.Terminal() {
			active := lifecycle.VehicleActive
			sync := lifecycle.VehicleSync{Status: &active}
			if err := s.vehicles.SyncLifecycleState(ctx, tx, existing.VehicleID, sync); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("work order deleted", "id", id, "actor_id", actor.UserID)
	return nil
}

func deleteAllowed(actor Actor, order repository.WorkOrder) error {
	switch actor.Role {
	case lifecycle.RoleAdmin:
		return nil
	case lifecycle.RoleTechnician, lifecycle.RoleStaff:
		if order.Status == lifecycle.StatusCompleted {
			return apperr.Forbidden("completed work orders cannot be deleted")
		}
		return nil
	case lifecycle.RoleCustomer:
		if order.CustomerID != actor.UserID {
			return apperr.Forbidden("work order belongs to another customer")
		}
		if order.Status != lifecycle.StatusPending && order.Status != lifecycle.StatusCancelled {
			return apperr.Forbidden("customers may only delete pending or cancelled work orders")
		}
		return nil
	default:
		return apperr.Forbidden("role may not delete work orders")
	}
}

func toResponse(order repository.WorkOrder) transport.WorkOrderResponse {
	history := make([]transport.HistoryEntryResponse, len(order.History))
	for i, entry := range order.History {
		history[i] = transport.HistoryEntryResponse{
			Seq:       entry.Seq,
			Status:    string(entry.Status),
			Note:      entry.Note,
			ActorID:   entry.ActorID,
			CreatedAt: entry.CreatedAt,
		}
	}
	return transport.WorkOrderResponse{
		ID:           order.ID,
		VehicleID:    order.VehicleID,
		CustomerID:   order.CustomerID,
		TechnicianID: order.TechnicianID,
		Priority:     string(order.Priority),
		Description:  order.Description,
		Mileage:      order.Mileage,
		CostCents:    order.CostCents,
		Status:       string(order.Status),
		History:      history,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
}
