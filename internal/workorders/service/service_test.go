package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"garage_backend/internal/lifecycle"
	"garage_backend/internal/workorders/repository"
	"garage_backend/internal/workorders/transport"
	"garage_backend/platform/apperr"
	"garage_backend/platform/events"
	"garage_backend/platform/logger"
)

type memStore struct {
	orders   map[uuid.UUID]repository.WorkOrder
	vehicles map[uuid.UUID]lifecycle.VehicleStatus
	mileage  map[uuid.UUID]int64
}

func newMemStore() *memStore {
	return &memStore{
		orders:   map[uuid.UUID]repository.WorkOrder{},
		vehicles: map[uuid.UUID]lifecycle.VehicleStatus{},
		mileage:  map[uuid.UUID]int64{},
	}
}

func cloneOrder(order repository.WorkOrder) repository.WorkOrder {
	order.History = append([]lifecycle.HistoryEntry(nil), order.History...)
	return order
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	saved := map[uuid.UUID]repository.WorkOrder{}
	for id, order := range m.orders {
		saved[id] = cloneOrder(order)
	}
	savedVehicles := map[uuid.UUID]lifecycle.VehicleStatus{}
	for id, st := range m.vehicles {
		savedVehicles[id] = st
	}
	if err := fn(ctx, nil); err != nil {
		m.orders = saved
		m.vehicles = savedVehicles
		return err
	}
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (repository.WorkOrder, error) {
	order, ok := m.orders[id]
	if !ok {
		return repository.WorkOrder{}, apperr.NotFound("work order not found")
	}
	return cloneOrder(order), nil
}

func (m *memStore) List(ctx context.Context, params repository.ListParams) ([]repository.WorkOrder, int, error) {
	out := []repository.WorkOrder{}
	for _, order := range m.orders {
		if params.CustomerID != nil && order.CustomerID != *params.CustomerID {
			continue
		}
		if params.Status != nil && order.Status != *params.Status {
			continue
		}
		out = append(out, cloneOrder(order))
	}
	return out, len(out), nil
}

func (m *memStore) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (repository.WorkOrder, error) {
	return m.GetByID(ctx, id)
}

func (m *memStore) Insert(ctx context.Context, tx pgx.Tx, id uuid.UUID, fields repository.Fields) error {
	m.orders[id] = repository.WorkOrder{
		ID:           id,
		VehicleID:    fields.VehicleID,
		CustomerID:   fields.CustomerID,
		TechnicianID: fields.TechnicianID,
		Priority:     fields.Priority,
		Description:  fields.Description,
		Mileage:      fields.Mileage,
		CostCents:    fields.CostCents,
		Status:       fields.Status,
	}
	return nil
}

func (m *memStore) UpdateFields(ctx context.Context, tx pgx.Tx, id uuid.UUID, fields repository.Fields) error {
	order, ok := m.orders[id]
	if !ok {
		return apperr.NotFound("work order not found")
	}
	order.TechnicianID = fields.TechnicianID
	order.Priority = fields.Priority
	order.Description = fields.Description
	order.Mileage = fields.Mileage
	order.CostCents = fields.CostCents
	order.Status = fields.Status
	m.orders[id] = order
	return nil
}

func (m *memStore) AppendHistory(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status lifecycle.Status, note *string, actorID uuid.UUID) (lifecycle.HistoryEntry, error) {
	order, ok := m.orders[orderID]
	if !ok {
		return lifecycle.HistoryEntry{}, apperr.NotFound("work order not found")
	}
	entry := lifecycle.NextEntry(order.History, status, actorID, note, time.Now())
	order.History = append(order.History, entry)
	m.orders[orderID] = order
	return entry, nil
}

func (m *memStore) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	if _, ok := m.orders[id]; !ok {
		return apperr.NotFound("work order not found")
	}
	delete(m.orders, id)
	return nil
}

func (m *memStore) SyncLifecycleState(ctx context.Context, tx pgx.Tx, vehicleID uuid.UUID, sync lifecycle.VehicleSync) error {
	if _, ok := m.vehicles[vehicleID]; !ok {
		return apperr.NotFound("vehicle not found")
	}
	if sync.Status != nil {
		m.vehicles[vehicleID] = *sync.Status
	}
	if sync.MinMileage != nil && *sync.MinMileage > m.mileage[vehicleID] {
		m.mileage[vehicleID] = *sync.MinMileage
	}
	return nil
}

type recordingScheduler struct {
	scheduled []uuid.UUID
}

func (r *recordingScheduler) ScheduleFollowUp(ctx context.Context, orderID uuid.UUID) error {
	r.scheduled = append(r.scheduled, orderID)
	return nil
}

func newTestService(store *memStore, scheduler FollowUpScheduler) *Service {
	return New(store, store, events.NewInMemoryBus(logger.New("test")), scheduler, logger.New("test"))
}

func statusPtr(s string) *string { return &s }

func createOrder(t *testing.T, svc *Service, store *memStore, actor Actor) transport.WorkOrderResponse {
	t.Helper()
	vehicleID := uuid.New()
	store.vehicles[vehicleID] = lifecycle.VehicleActive

	resp, err := svc.Create(context.Background(), actor, transport.CreateWorkOrderRequest{
		VehicleID:   vehicleID,
		Description: "brake noise",
		Mileage:     60000,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return resp
}

func TestCreateStartsPendingWithLedgerEntry(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	customer := Actor{UserID: uuid.New(), Role: lifecycle.RoleCustomer}

	resp := createOrder(t, svc, store, customer)

	if resp.Status != "pending" {
		t.Errorf("status = %s, want pending", resp.Status)
	}
	if resp.CustomerID != customer.UserID {
		t.Errorf("customer = %s, want the creating actor", resp.CustomerID)
	}
	if resp.Priority != "normal" {
		t.Errorf("priority = %s, want normal default", resp.Priority)
	}
	if len(resp.History) != 1 || resp.History[0].Seq != 1 {
		t.Errorf("history = %+v, want one entry with seq 1", resp.History)
	}
}

func TestHappyPathProducesFourLedgerEntriesAndReleasesVehicle(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	tech := Actor{UserID: uuid.New(), Role: lifecycle.RoleTechnician}

	created := createOrder(t, svc, store, tech)

	for _, status := range []string{"assigned", "in_progress", "pending_check", "completed"} {
		if _, err := svc.Update(context.Background(), tech, created.ID,
			transport.UpdateWorkOrderRequest{Status: statusPtr(status)}); err != nil {
			t.Fatalf("Update(%s): %v", status, err)
		}
	}

	order := store.orders[created.ID]
	if len(order.History) != 5 {
		t.Fatalf("history length = %d, want 5 entries pending through completed", len(order.History))
	}
	if !lifecycle.HistoryOrdered(order.History) {
		t.Errorf("history out of order: %+v", order.History)
	}
	if store.vehicles[created.VehicleID] != lifecycle.VehicleActive {
		t.Errorf("vehicle = %s, want active after completion", store.vehicles[created.VehicleID])
	}
	if store.mileage[created.VehicleID] != 60000 {
		t.Errorf("vehicle mileage = %d, want 60000", store.mileage[created.VehicleID])
	}
}

func TestInProgressFlagsVehicleMaintenance(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	tech := Actor{UserID: uuid.New(), Role: lifecycle.RoleTechnician}

	created := createOrder(t, svc, store, tech)

	if _, err := svc.Update(context.Background(), tech, created.ID,
		transport.UpdateWorkOrderRequest{Status: statusPtr("assigned")}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	// Assignment alone leaves the vehicle untouched.
	if store.vehicles[created.VehicleID] != lifecycle.VehicleActive {
		t.Errorf("vehicle changed on assignment: %s", store.vehicles[created.VehicleID])
	}

	if _, err := svc.Update(context.Background(), tech, created.ID,
		transport.UpdateWorkOrderRequest{Status: statusPtr("in_progress")}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if store.vehicles[created.VehicleID] != lifecycle.VehicleMaintenance {
		t.Errorf("vehicle = %s, want maintenance while in progress", store.vehicles[created.VehicleID])
	}
}

func TestProgressNotesLandInLedger(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	tech := Actor{UserID: uuid.New(), Role: lifecycle.RoleTechnician}

	created := createOrder(t, svc, store, tech)

	note := "waiting on brake pads"
	if _, err := svc.Update(context.Background(), tech, created.ID, transport.UpdateWorkOrderRequest{
		Status:        statusPtr("assigned"),
		ProgressNotes: &note,
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	order := store.orders[created.ID]
	last := order.History[len(order.History)-1]
	if last.Note == nil || *last.Note != note {
		t.Errorf("ledger note = %v, want %q", last.Note, note)
	}
}

func TestCustomerCancelAndCompleteRules(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	customer := Actor{UserID: uuid.New(), Role: lifecycle.RoleCustomer}

	created := createOrder(t, svc, store, customer)

	// Customers may not push their own order forward.
	_, err := svc.Update(context.Background(), customer, created.ID,
		transport.UpdateWorkOrderRequest{Status: statusPtr("assigned")})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("customer assign: err = %v, want forbidden", err)
	}

	// But they may cancel a pending order.
	resp, err := svc.Update(context.Background(), customer, created.ID,
		transport.UpdateWorkOrderRequest{Status: statusPtr("cancelled")})
	if err != nil {
		t.Fatalf("customer cancel: %v", err)
	}
	if resp.Status != "cancelled" {
		t.Errorf("status = %s, want cancelled", resp.Status)
	}
	if store.vehicles[created.VehicleID] != lifecycle.VehicleActive {
		t.Errorf("vehicle not released on cancellation")
	}
}

func TestCustomerCannotTouchForeignOrders(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	owner := Actor{UserID: uuid.New(), Role: lifecycle.RoleCustomer}
	other := Actor{UserID: uuid.New(), Role: lifecycle.RoleCustomer}

	created := createOrder(t, svc, store, owner)

	if _, err := svc.GetByID(context.Background(), other, created.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("foreign get: err = %v, want forbidden", err)
	}
	if _, err := svc.Update(context.Background(), other, created.ID,
		transport.UpdateWorkOrderRequest{Status: statusPtr("cancelled")}); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("foreign cancel: err = %v, want forbidden", err)
	}
	if err := svc.Delete(context.Background(), other, created.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("foreign delete: err = %v, want forbidden", err)
	}
}

func TestDeleteRules(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	customer := Actor{UserID: uuid.New(), Role: lifecycle.RoleCustomer}
	staff := Actor{UserID: uuid.New(), Role: lifecycle.RoleStaff}
	admin := Actor{UserID: uuid.New(), Role: lifecycle.RoleAdmin}

	// Customer may delete their own pending order.
	pending := createOrder(t, svc, store, customer)
	if err := svc.Delete(context.Background(), customer, pending.ID); err != nil {
		t.Errorf("customer delete pending: %v", err)
	}

	// Customer may not delete once work has started.
	started := createOrder(t, svc, store, customer)
	for _, status := range []string{"assigned", "in_progress"} {
		if _, err := svc.Update(context.Background(), staff, started.ID,
			transport.UpdateWorkOrderRequest{Status: statusPtr(status)}); err != nil {
			t.Fatalf("Update(%s): %v", status, err)
		}
	}
	if err := svc.Delete(context.Background(), customer, started.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("customer delete in_progress: err = %v, want forbidden", err)
	}

	// Staff may not delete completed orders; admin may.
	if _, err := svc.Update(context.Background(), staff, started.ID,
		transport.UpdateWorkOrderRequest{Status: statusPtr("pending_check")}); err != nil {
		t.Fatalf("pending_check: %v", err)
	}
	if _, err := svc.Update(context.Background(), staff, started.ID,
		transport.UpdateWorkOrderRequest{Status: statusPtr("completed")}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := svc.Delete(context.Background(), staff, started.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("staff delete completed: err = %v, want forbidden", err)
	}
	if err := svc.Delete(context.Background(), admin, started.ID); err != nil {
		t.Errorf("admin delete completed: %v", err)
	}
}

func TestAssignmentSchedulesFollowUp(t *testing.T) {
	store := newMemStore()
	scheduler := &recordingScheduler{}
	svc := newTestService(store, scheduler)
	staff := Actor{UserID: uuid.New(), Role: lifecycle.RoleStaff}

	created := createOrder(t, svc, store, staff)
	if _, err := svc.Update(context.Background(), staff, created.ID,
		transport.UpdateWorkOrderRequest{Status: statusPtr("assigned")}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	if len(scheduler.scheduled) != 1 || scheduler.scheduled[0] != created.ID {
		t.Errorf("scheduled = %v, want exactly the assigned order", scheduler.scheduled)
	}
}

func TestSkipEdgeIsConflict(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	admin := Actor{UserID: uuid.New(), Role: lifecycle.RoleAdmin}

	created := createOrder(t, svc, store, admin)

	_, err := svc.Update(context.Background(), admin, created.ID,
		transport.UpdateWorkOrderRequest{Status: statusPtr("completed")})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("pending -> completed: err = %v, want conflict", err)
	}

	order := store.orders[created.ID]
	if order.Status != lifecycle.StatusPending || len(order.History) != 1 {
		t.Errorf("failed transition mutated the order: %+v", order)
	}
}
