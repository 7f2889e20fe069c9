package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"garage_backend/internal/events"
	"garage_backend/internal/lifecycle"
	"garage_backend/internal/maintenance/repository"
	"garage_backend/internal/maintenance/transport"
	partsrepo "garage_backend/internal/parts/repository"
	"garage_backend/platform/apperr"
	"garage_backend/platform/logger"
)

// PartStore is the slice of the parts repository the orchestrator needs:
// catalog lookups for pricing and transactional stock deltas.
type PartStore interface {
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]partsrepo.Part, error)
	ApplyDeltas(ctx context.Context, tx pgx.Tx, deltas []lifecycle.PartDelta) ([]partsrepo.AppliedDelta, error)
}

// VehicleSyncer writes derived lifecycle state onto a vehicle inside the
// orchestrator's transaction.
type VehicleSyncer interface {
	SyncLifecycleState(ctx context.Context, tx pgx.Tx, vehicleID uuid.UUID, sync lifecycle.VehicleSync) error
}

// Actor identifies the caller for guard checks.
type Actor struct {
	UserID uuid.UUID
	Role   lifecycle.Role
}

// staffRole reports whether the role may write maintenance records. Unknown
// roles are denied, not just customers.
func staffRole(role lifecycle.Role) bool {
	switch role {
	case lifecycle.RoleAdmin, lifecycle.RoleTechnician, lifecycle.RoleStaff:
		return true
	}
	return false
}

// Service orchestrates the maintenance record lifecycle: transition guard,
// parts reconciliation, status history, and vehicle state sync all commit in
// one transaction or not at all.
type Service struct {
	repo     repository.Repository
	parts    PartStore
	vehicles VehicleSyncer
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// New creates a new maintenance service.
func New(repo repository.Repository, parts PartStore, vehicles VehicleSyncer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		parts:    parts,
		vehicles: vehicles,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// GetByID retrieves a record with its parts and status history.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.MaintenanceResponse, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.MaintenanceResponse{}, err
	}
	return toResponse(rec), nil
}

// List retrieves records filtered by vehicle and status.
func (s *Service) List(ctx context.Context, req transport.ListMaintenanceRequest) (transport.MaintenanceListResponse, error) {
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
			return transport.MaintenanceListResponse{}, apperr.Validation("invalid vehicle filter")
		}
		params.VehicleID = &vehicleID
	}
	if req.Status != "" {
		status := lifecycle.Status(req.Status)
		if !status.ValidFor(lifecycle.KindMaintenance) {
			return transport.MaintenanceListResponse{}, apperr.Validation("invalid status filter")
		}
		params.Status = &status
	}

	records, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.MaintenanceListResponse{}, err
	}

	items := make([]transport.MaintenanceResponse, len(records))
	for i, rec := range records {
		items[i] = toResponse(rec)
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return transport.MaintenanceListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Create runs the create path of the orchestrator: the record insert, the
// initial stock consumption (reconciled against an empty previous list), the
// first history entry, and the vehicle sync commit atomically.
func (s *Service) Create(ctx context.Context, actor Actor, req transport.CreateMaintenanceRequest) (transport.MaintenanceResponse, error) {
	if !staffRole(actor.Role) {
		return transport.MaintenanceResponse{}, apperr.Forbidden("only workshop staff may create maintenance records")
	}

	status := lifecycle.StatusPending
	if req.Status != "" {
		status = lifecycle.Status(req.Status)
		if !status.ValidFor(lifecycle.KindMaintenance) {
			return transport.MaintenanceResponse{}, apperr.Validation("invalid maintenance status")
		}
	}

	items, err := s.priceLineItems(ctx, req.Parts)
	if err != nil {
		return transport.MaintenanceResponse{}, err
	}

	recordID := uuid.New()
	var applied []partsrepo.AppliedDelta

	err = s.repo.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		fields := repository.Fields{
			VehicleID:    req.VehicleID,
			TechnicianID: req.TechnicianID,
			Type:         req.Type,
			Description:  req.Description,
			Mileage:      req.Mileage,
			CostCents:    req.CostCents,
			StartDate:    req.StartDate,
			Status:       status,
		}
		if err := s.repo.Insert(ctx, tx, recordID, fields); err != nil {
			return err
		}

		deltas := lifecycle.ComputeDeltas(nil, items)
		applied, err = s.parts.ApplyDeltas(ctx, tx, deltas)
		if err != nil {
			return err
		}
		if err := s.repo.ReplaceParts(ctx, tx, recordID, items); err != nil {
			return err
		}
		if _, err := s.repo.AppendHistory(ctx, tx, recordID, status, nil, actor.UserID); err != nil {
			return err
		}

		sync := lifecycle.DeriveVehicleSync(lifecycle.KindMaintenance, status, &req.Mileage, s.now())
		if !sync.Empty() {
			if err := s.vehicles.SyncLifecycleState(ctx, tx, req.VehicleID, sync); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return transport.MaintenanceResponse{}, err
	}

	s.log.StatusTransition(string(lifecycle.KindMaintenance), recordID.String(), "", string(status), actor.UserID.String())
	s.publishStockEvents(ctx, applied, recordID, req.VehicleID)
	s.bus.Publish(ctx, events.MaintenanceStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		RecordID:  recordID,
		VehicleID: req.VehicleID,
		OldStatus: "",
		NewStatus: string(status),
		ActorID:   actor.UserID,
	})

	return s.GetByID(ctx, recordID)
}

// Update runs the full update path: field changes, parts reconciliation
// against the stored line items, and a guarded transition when the submitted
// status differs from the stored one.
func (s *Service) Update(ctx context.Context, actor Actor, id uuid.UUID, req transport.UpdateMaintenanceRequest) (transport.MaintenanceResponse, error) {
	if !staffRole(actor.Role) {
		return transport.MaintenanceResponse{}, apperr.Forbidden("only workshop staff may edit maintenance records")
	}

	newStatus := lifecycle.Status(req.Status)
	if !newStatus.ValidFor(lifecycle.KindMaintenance) {
		return transport.MaintenanceResponse{}, apperr.Validation("invalid maintenance status")
	}

	items, err := s.priceLineItems(ctx, req.Parts)
	if err != nil {
		return transport.MaintenanceResponse{}, err
	}

	var (
		applied   []partsrepo.AppliedDelta
		oldStatus lifecycle.Status
		vehicleID uuid.UUID
	)

	err = s.repo.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		existing, err := s.repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		oldStatus = existing.Status
		vehicleID = existing.VehicleID

		if existing.Status.Terminal() {
			return lifecycle.ErrInvalidTransition(lifecycle.KindMaintenance, existing.Status, newStatus)
		}
		changed := newStatus != existing.Status
		if changed {
			if err := lifecycle.GuardTransition(lifecycle.KindMaintenance, existing.Status, newStatus, actor.Role); err != nil {
				return err
			}
		}

		deltas := lifecycle.ComputeDeltas(existing.Parts, items)
		applied, err = s.parts.ApplyDeltas(ctx, tx, deltas)
		if err != nil {
			return err
		}

		fields := repository.Fields{
			VehicleID:    existing.VehicleID,
			TechnicianID: req.TechnicianID,
			Type:         req.Type,
			Description:  req.Description,
			Mileage:      req.Mileage,
			CostCents:    req.CostCents,
			StartDate:    req.StartDate,
			Status:       newStatus,
		}
		if err := s.repo.UpdateFields(ctx, tx, id, fields); err != nil {
			return err
		}
		if err := s.repo.ReplaceParts(ctx, tx, id, items); err != nil {
			return err
		}

		if changed {
			if _, err := s.repo.AppendHistory(ctx, tx, id, newStatus, nil, actor.UserID); err != nil {
				return err
			}
			sync := lifecycle.DeriveVehicleSync(lifecycle.KindMaintenance, newStatus, &req.Mileage, s.now())
			if !sync.Empty() {
				if err := s.vehicles.SyncLifecycleState(ctx, tx, existing.VehicleID, sync); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return transport.MaintenanceResponse{}, err
	}

	s.publishStockEvents(ctx, applied, id, vehicleID)
	if oldStatus != newStatus {
		s.log.StatusTransition(string(lifecycle.KindMaintenance), id.String(), string(oldStatus), string(newStatus), actor.UserID.String())
		s.bus.Publish(ctx, events.MaintenanceStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			RecordID:  id,
			VehicleID: vehicleID,
			OldStatus: string(oldStatus),
			NewStatus: string(newStatus),
			ActorID:   actor.UserID,
		})
	}

	return s.GetByID(ctx, id)
}

// UpdateStatus runs the pure status-change path: guard, status write, history
// append, and vehicle sync, with no parts reconciliation.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req transport.UpdateStatusRequest) (transport.MaintenanceResponse, error) {
	newStatus := lifecycle.Status(req.Status)
	if !newStatus.ValidFor(lifecycle.KindMaintenance) {
		return transport.MaintenanceResponse{}, apperr.Validation("invalid maintenance status")
	}

	var (
		oldStatus lifecycle.Status
		vehicleID uuid.UUID
	)

	err := s.repo.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		existing, err := s.repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		oldStatus = existing.Status
		vehicleID = existing.VehicleID

		if err := lifecycle.GuardTransition(lifecycle.KindMaintenance, existing.Status, newStatus, actor.Role); err != nil {
			return err
		}

		if err := s.repo.UpdateStatus(ctx, tx, id, newStatus); err != nil {
			return err
		}
		if _, err := s.repo.AppendHistory(ctx, tx, id, newStatus, req.Note, actor.UserID); err != nil {
			return err
		}

		sync := lifecycle.DeriveVehicleSync(lifecycle.KindMaintenance, newStatus, &existing.Mileage, s.now())
		if !sync.Empty() {
			if err := s.vehicles.SyncLifecycleState(ctx, tx, existing.VehicleID, sync); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return transport.MaintenanceResponse{}, err
	}

	s.log.StatusTransition(string(lifecycle.KindMaintenance), id.String(), string(oldStatus), string(newStatus), actor.UserID.String())
	s.bus.Publish(ctx, events.MaintenanceStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		RecordID:  id,
		VehicleID: vehicleID,
		OldStatus: string(oldStatus),
		NewStatus: string(newStatus),
		ActorID:   actor.UserID,
	})

	return s.GetByID(ctx, id)
}

// Delete removes a record and returns its consumed parts to stock in the same
// transaction. A non-terminal record releases the vehicle back to active.
func (s *Service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !staffRole(actor.Role) {
		return apperr.Forbidden("only workshop staff may delete maintenance records")
	}

	var (
		applied   []partsrepo.AppliedDelta
		vehicleID uuid.UUID
	)

	err := s.repo.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		existing, err := s.repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		vehicleID = existing.VehicleID

		deltas := lifecycle.ComputeDeltas(existing.Parts, nil)
		applied, err = s.parts.ApplyDeltas(ctx, tx, deltas)
		if err != nil {
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

	s.publishStockEvents(ctx, applied, id, vehicleID)
	s.log.Info("maintenance record deleted", "id", id, "actor_id", actor.UserID)
	return nil
}

// priceLineItems resolves each requested part against the catalog and prices
// the line at the part's current unit price.
func (s *Service) priceLineItems(ctx context.Context, reqs []transport.LineItemRequest) ([]lifecycle.LineItem, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(reqs))
	for i, req := range reqs {
		ids[i] = req.PartID
	}
	catalog, err := s.parts.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]lifecycle.LineItem, len(reqs))
	for i, req := range reqs {
		part, ok := catalog[req.PartID]
		if !ok {
			return nil, apperr.NotFound("part not found: " + req.PartID.String())
		}
		items[i] = lifecycle.LineItem{
			PartID:         req.PartID,
			Quantity:       req.Quantity,
			UnitPriceCents: part.UnitPriceCents,
		}
	}
	return lifecycle.NormalizeLineItems(items)
}

func (s *Service) publishStockEvents(ctx context.Context, applied []partsrepo.AppliedDelta, recordID, vehicleID uuid.UUID) {
	for _, a := range applied {
		s.log.StockAdjustment(a.PartID.String(), a.Delta, a.NewStock)
		s.bus.Publish(ctx, events.PartStockAdjusted{
			BaseEvent: events.NewBaseEvent(),
			PartID:    a.PartID,
			Delta:     a.Delta,
			NewStock:  a.NewStock,
			RecordID:  recordID,
			VehicleID: vehicleID,
		})
	}
}

func toResponse(rec repository.Record) transport.MaintenanceResponse {
	parts := make([]transport.LineItemResponse, len(rec.Parts))
	for i, item := range rec.Parts {
		parts[i] = transport.LineItemResponse{
			PartID:          item.PartID,
			Quantity:        item.Quantity,
			UnitPriceCents:  item.UnitPriceCents,
			TotalPriceCents: item.TotalPriceCents,
		}
	}
	history := make([]transport.HistoryEntryResponse, len(rec.History))
	for i, entry := range rec.History {
		history[i] = transport.HistoryEntryResponse{
			Seq:       entry.Seq,
			Status:    string(entry.Status),
			Note:      entry.Note,
			ActorID:   entry.ActorID,
			CreatedAt: entry.CreatedAt,
		}
	}
	return transport.MaintenanceResponse{
		ID:             rec.ID,
		VehicleID:      rec.VehicleID,
		TechnicianID:   rec.TechnicianID,
		Type:           rec.Type,
		Description:    rec.Description,
		Mileage:        rec.Mileage,
		CostCents:      rec.CostCents,
		PartsCostCents: lifecycle.SumTotalCents(rec.Parts),
		StartDate:      rec.StartDate,
		Status:         string(rec.Status),
		Parts:          parts,
		History:        history,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}
