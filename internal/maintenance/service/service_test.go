package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"garage_backend/internal/lifecycle"
	"garage_backend/internal/maintenance/repository"
	"garage_backend/internal/maintenance/transport"
	partsrepo "garage_backend/internal/parts/repository"
	"garage_backend/platform/apperr"
	"garage_backend/platform/events"
	"garage_backend/platform/logger"
)

// memStore backs the orchestrator with maps and emulates transactional
// rollback by snapshotting all state before the closure runs.
type memStore struct {
	records  map[uuid.UUID]repository.Record
	parts    map[uuid.UUID]partsrepo.Part
	vehicles map[uuid.UUID]vehicleState
}

type vehicleState struct {
	status   lifecycle.VehicleStatus
	mileage  int64
	lastDate *time.Time
}

func newMemStore() *memStore {
	return &memStore{
		records:  map[uuid.UUID]repository.Record{},
		parts:    map[uuid.UUID]partsrepo.Part{},
		vehicles: map[uuid.UUID]vehicleState{},
	}
}

func (m *memStore) snapshot() *memStore {
	c := newMemStore()
	for id, rec := range m.records {
		c.records[id] = cloneRecord(rec)
	}
	for id, p := range m.parts {
		c.parts[id] = p
	}
	for id, v := range m.vehicles {
		c.vehicles[id] = v
	}
	return c
}

func cloneRecord(rec repository.Record) repository.Record {
	rec.Parts = append([]lifecycle.LineItem(nil), rec.Parts...)
	rec.History = append([]lifecycle.HistoryEntry(nil), rec.History...)
	return rec
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	saved := m.snapshot()
	if err := fn(ctx, nil); err != nil {
		m.records = saved.records
		m.parts = saved.parts
		m.vehicles = saved.vehicles
		return err
	}
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (repository.Record, error) {
	rec, ok := m.records[id]
	if !ok {
		return repository.Record{}, apperr.NotFound("maintenance record not found")
	}
	return cloneRecord(rec), nil
}

func (m *memStore) List(ctx context.Context, params repository.ListParams) ([]repository.Record, int, error) {
	out := []repository.Record{}
	for _, rec := range m.records {
		if params.VehicleID != nil && rec.VehicleID != *params.VehicleID {
			continue
		}
		if params.Status != nil && rec.Status != *params.Status {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	return out, len(out), nil
}

func (m *memStore) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (repository.Record, error) {
	return m.GetByID(ctx, id)
}

func (m *memStore) Insert(ctx context.Context, tx pgx.Tx, id uuid.UUID, fields repository.Fields) error {
	m.records[id] = repository.Record{
		ID:           id,
		VehicleID:    fields.VehicleID,
		TechnicianID: fields.TechnicianID,
		Type:         fields.Type,
		Description:  fields.Description,
		Mileage:      fields.Mileage,
		CostCents:    fields.CostCents,
		StartDate:    fields.StartDate,
		Status:       fields.Status,
	}
	return nil
}

func (m *memStore) UpdateFields(ctx context.Context, tx pgx.Tx, id uuid.UUID, fields repository.Fields) error {
	rec, ok := m.records[id]
	if !ok {
		return apperr.NotFound("maintenance record not found")
	}
	rec.VehicleID = fields.VehicleID
	rec.TechnicianID = fields.TechnicianID
	rec.Type = fields.Type
	rec.Description = fields.Description
	rec.Mileage = fields.Mileage
	rec.CostCents = fields.CostCents
	rec.StartDate = fields.StartDate
	rec.Status = fields.Status
	m.records[id] = rec
	return nil
}

func (m *memStore) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status lifecycle.Status) error {
	rec, ok := m.records[id]
	if !ok {
		return apperr.NotFound("maintenance record not found")
	}
	rec.Status = status
	m.records[id] = rec
	return nil
}

func (m *memStore) ReplaceParts(ctx context.Context, tx pgx.Tx, recordID uuid.UUID, items []lifecycle.LineItem) error {
	rec, ok := m.records[recordID]
	if !ok {
		return apperr.NotFound("maintenance record not found")
	}
	rec.Parts = append([]lifecycle.LineItem(nil), items...)
	m.records[recordID] = rec
	return nil
}

func (m *memStore) AppendHistory(ctx context.Context, tx pgx.Tx, recordID uuid.UUID, status lifecycle.Status, note *string, actorID uuid.UUID) (lifecycle.HistoryEntry, error) {
	rec, ok := m.records[recordID]
	if !ok {
		return lifecycle.HistoryEntry{}, apperr.NotFound("maintenance record not found")
	}
	entry := lifecycle.NextEntry(rec.History, status, actorID, note, time.Now())
	rec.History = append(rec.History, entry)
	m.records[recordID] = rec
	return entry, nil
}

func (m *memStore) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	if _, ok := m.records[id]; !ok {
		return apperr.NotFound("maintenance record not found")
	}
	delete(m.records, id)
	return nil
}

func (m *memStore) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]partsrepo.Part, error) {
	out := map[uuid.UUID]partsrepo.Part{}
	for _, id := range ids {
		if p, ok := m.parts[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memStore) ApplyDeltas(ctx context.Context, tx pgx.Tx, deltas []lifecycle.PartDelta) ([]partsrepo.AppliedDelta, error) {
	applied := []partsrepo.AppliedDelta{}
	for _, d := range deltas {
		p, ok := m.parts[d.PartID]
		if !ok {
			return nil, apperr.NotFound("part not found")
		}
		if d.Delta > 0 && p.Stock < d.Delta {
			return nil, lifecycle.ErrInsufficientStock(d.PartID.String(), d.Delta, p.Stock)
		}
		p.Stock -= d.Delta
		m.parts[d.PartID] = p
		applied = append(applied, partsrepo.AppliedDelta{PartID: d.PartID, Delta: d.Delta, NewStock: p.Stock})
	}
	return applied, nil
}

func (m *memStore) SyncLifecycleState(ctx context.Context, tx pgx.Tx, vehicleID uuid.UUID, sync lifecycle.VehicleSync) error {
	v, ok := m.vehicles[vehicleID]
	if !ok {
		return apperr.NotFound("vehicle not found")
	}
	if sync.Status != nil {
		v.status = *sync.Status
	}
	if sync.MinMileage != nil && *sync.MinMileage > v.mileage {
		v.mileage = *sync.MinMileage
	}
	if sync.LastMaintenanceDate != nil {
		v.lastDate = sync.LastMaintenanceDate
	}
	m.vehicles[vehicleID] = v
	return nil
}

func newTestService(store *memStore) *Service {
	return New(store, store, store, events.NewInMemoryBus(logger.New("test")), logger.New("test"))
}

func seedVehicle(store *memStore, mileage int64) uuid.UUID {
	id := uuid.New()
	store.vehicles[id] = vehicleState{status: lifecycle.VehicleActive, mileage: mileage}
	return id
}

func seedPart(store *memStore, stock int, priceCents int64) uuid.UUID {
	id := uuid.New()
	store.parts[id] = partsrepo.Part{ID: id, Name: "part", Stock: stock, UnitPriceCents: priceCents}
	return id
}

func staffActor() Actor {
	return Actor{UserID: uuid.New(), Role: lifecycle.RoleStaff}
}

func createRequest(vehicleID uuid.UUID, parts []transport.LineItemRequest) transport.CreateMaintenanceRequest {
	return transport.CreateMaintenanceRequest{
		VehicleID: vehicleID,
		Type:      "oil_change",
		Mileage:   50000,
		CostCents: 12000,
		StartDate: time.Now(),
		Parts:     parts,
	}
}

func TestCreateConsumesStockAndStartsHistory(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	vehicleID := seedVehicle(store, 40000)
	partID := seedPart(store, 10, 500)

	resp, err := svc.Create(context.Background(), staffActor(), createRequest(vehicleID,
		[]transport.LineItemRequest{{PartID: partID, Quantity: 3}}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got := store.parts[partID].Stock; got != 7 {
		t.Errorf("stock = %d, want 7", got)
	}
	if len(resp.History) != 1 || resp.History[0].Seq != 1 || resp.History[0].Status != "pending" {
		t.Errorf("history = %+v, want one pending entry with seq 1", resp.History)
	}
	if len(resp.Parts) != 1 || resp.Parts[0].TotalPriceCents != 1500 {
		t.Errorf("parts = %+v, want one line totaling 1500", resp.Parts)
	}
	if store.vehicles[vehicleID].status != lifecycle.VehicleMaintenance {
		t.Errorf("vehicle status = %s, want maintenance", store.vehicles[vehicleID].status)
	}
}

func TestCreateInsufficientStockRollsBackEverything(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	vehicleID := seedVehicle(store, 40000)
	okPart := seedPart(store, 100, 500)
	scarcePart := seedPart(store, 1, 900)

	_, err := svc.Create(context.Background(), staffActor(), createRequest(vehicleID,
		[]transport.LineItemRequest{
			{PartID: okPart, Quantity: 5},
			{PartID: scarcePart, Quantity: 2},
		}))
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}

	if got := store.parts[okPart].Stock; got != 100 {
		t.Errorf("ok part stock = %d, want 100 after rollback", got)
	}
	if len(store.records) != 0 {
		t.Errorf("records persisted despite rollback: %d", len(store.records))
	}
	if store.vehicles[vehicleID].status != lifecycle.VehicleActive {
		t.Errorf("vehicle status changed despite rollback")
	}
}

func TestCreateRejectsCustomer(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	vehicleID := seedVehicle(store, 0)

	_, err := svc.Create(context.Background(), Actor{UserID: uuid.New(), Role: lifecycle.RoleCustomer},
		createRequest(vehicleID, nil))
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestUpdateReconcilesPartsDiff(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	vehicleID := seedVehicle(store, 40000)
	partA := seedPart(store, 10, 500)
	partB := seedPart(store, 10, 700)
	actor := staffActor()

	created, err := svc.Create(context.Background(), actor, createRequest(vehicleID,
		[]transport.LineItemRequest{{PartID: partA, Quantity: 4}}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Shrink part A to 1 and add part B; expect 3 returned and 2 consumed.
	_, err = svc.Update(context.Background(), actor, created.ID, transport.UpdateMaintenanceRequest{
		Type:      "oil_change",
		Mileage:   50000,
		CostCents: 12000,
		StartDate: time.Now(),
		Status:    "pending",
		Parts: []transport.LineItemRequest{
			{PartID: partA, Quantity: 1},
			{PartID: partB, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if got := store.parts[partA].Stock; got != 9 {
		t.Errorf("part A stock = %d, want 9", got)
	}
	if got := store.parts[partB].Stock; got != 8 {
		t.Errorf("part B stock = %d, want 8", got)
	}
}

func TestUpdateInsufficientStockLeavesRecordUntouched(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	vehicleID := seedVehicle(store, 40000)
	partID := seedPart(store, 10, 500)
	actor := staffActor()

	created, err := svc.Create(context.Background(), actor, createRequest(vehicleID,
		[]transport.LineItemRequest{{PartID: partID, Quantity: 6}}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := store.parts[partID].Stock; got != 4 {
		t.Fatalf("stock after create = %d, want 4", got)
	}
	before := cloneRecord(store.records[created.ID])

	// Raising the quantity to 30 needs 24 more units; only 4 remain.
	_, err = svc.Update(context.Background(), actor, created.ID, transport.UpdateMaintenanceRequest{
		Type:      "oil_change",
		Mileage:   60000,
		CostCents: 99000,
		StartDate: time.Now(),
		Status:    "in_progress",
		Parts:     []transport.LineItemRequest{{PartID: partID, Quantity: 30}},
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}

	after := store.records[created.ID]
	if after.Status != before.Status {
		t.Errorf("status = %s, want unchanged %s", after.Status, before.Status)
	}
	if after.CostCents != before.CostCents {
		t.Errorf("cost = %d, want unchanged %d", after.CostCents, before.CostCents)
	}
	if len(after.Parts) != len(before.Parts) || after.Parts[0].Quantity != before.Parts[0].Quantity {
		t.Errorf("parts = %+v, want unchanged %+v", after.Parts, before.Parts)
	}
	if len(after.History) != len(before.History) {
		t.Errorf("history length = %d, want unchanged %d", len(after.History), len(before.History))
	}
	if got := store.parts[partID].Stock; got != 4 {
		t.Errorf("stock = %d, want still 4 after failed update", got)
	}
}

func TestScarceStockHasExactlyOneWinner(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	partID := seedPart(store, 10, 500)
	actor := staffActor()

	req := func() transport.CreateMaintenanceRequest {
		return createRequest(seedVehicle(store, 0),
			[]transport.LineItemRequest{{PartID: partID, Quantity: 6}})
	}

	_, firstErr := svc.Create(context.Background(), actor, req())
	_, secondErr := svc.Create(context.Background(), actor, req())

	if firstErr != nil {
		t.Fatalf("first claim: %v", firstErr)
	}
	if !apperr.Is(secondErr, apperr.KindConflict) {
		t.Fatalf("second claim: err = %v, want conflict", secondErr)
	}
	if got := store.parts[partID].Stock; got != 4 {
		t.Errorf("stock = %d, want 4 (one claim applied, never negative)", got)
	}
	if len(store.records) != 1 {
		t.Errorf("records = %d, want only the winning claim persisted", len(store.records))
	}
}

func TestUnknownRoleDenied(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	vehicleID := seedVehicle(store, 0)
	stranger := Actor{UserID: uuid.New(), Role: lifecycle.Role("superuser")}

	if _, err := svc.Create(context.Background(), stranger, createRequest(vehicleID, nil)); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("Create: err = %v, want forbidden", err)
	}

	created, err := svc.Create(context.Background(), staffActor(), createRequest(vehicleID, nil))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Update(context.Background(), stranger, created.ID, transport.UpdateMaintenanceRequest{
		Type:      "oil_change",
		Mileage:   100,
		StartDate: time.Now(),
		Status:    "pending",
	}); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("Update: err = %v, want forbidden", err)
	}

	if err := svc.Delete(context.Background(), stranger, created.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("Delete: err = %v, want forbidden", err)
	}
}

func TestUpdateStatusFullLifecycle(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	vehicleID := seedVehicle(store, 40000)
	actor := staffActor()

	created, err := svc.Create(context.Background(), actor, createRequest(vehicleID, nil))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, status := range []string{"in_progress", "completed"} {
		if _, err := svc.UpdateStatus(context.Background(), actor, created.ID,
			transport.UpdateStatusRequest{Status: status}); err != nil {
			t.Fatalf("UpdateStatus(%s): %v", status, err)
		}
	}

	rec := store.records[created.ID]
	if len(rec.History) != 3 {
		t.Fatalf("history length = %d, want 3", len(rec.History))
	}
	if !lifecycle.HistoryOrdered(rec.History) {
		t.Errorf("history out of order: %+v", rec.History)
	}

	v := store.vehicles[vehicleID]
	if v.status != lifecycle.VehicleActive {
		t.Errorf("vehicle status = %s, want active after completion", v.status)
	}
	if v.mileage != 50000 {
		t.Errorf("vehicle mileage = %d, want raised to 50000", v.mileage)
	}
	if v.lastDate == nil {
		t.Error("lastMaintenanceDate not set on completion")
	}
}

func TestUpdateStatusCompletionNeverLowersMileage(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	vehicleID := seedVehicle(store, 90000)
	actor := staffActor()

	created, err := svc.Create(context.Background(), actor, createRequest(vehicleID, nil))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), actor, created.ID,
		transport.UpdateStatusRequest{Status: "in_progress"}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), actor, created.ID,
		transport.UpdateStatusRequest{Status: "completed"}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	if got := store.vehicles[vehicleID].mileage; got != 90000 {
		t.Errorf("mileage = %d, want unchanged 90000", got)
	}
}

func TestUpdateStatusGuardErrors(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	vehicleID := seedVehicle(store, 0)
	admin := Actor{UserID: uuid.New(), Role: lifecycle.RoleAdmin}

	created, err := svc.Create(context.Background(), admin, createRequest(vehicleID, nil))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// pending -> completed skips in_progress: no such edge for any role.
	_, err = svc.UpdateStatus(context.Background(), admin, created.ID,
		transport.UpdateStatusRequest{Status: "completed"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("skip edge: err = %v, want conflict", err)
	}

	// pending -> cancelled exists but staff may not cancel.
	_, err = svc.UpdateStatus(context.Background(), staffActor(), created.ID,
		transport.UpdateStatusRequest{Status: "cancelled"})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("staff cancel: err = %v, want forbidden", err)
	}

	// Failed transitions leave no trace.
	rec := store.records[created.ID]
	if len(rec.History) != 1 || rec.Status != lifecycle.StatusPending {
		t.Errorf("failed transitions mutated the record: %+v", rec)
	}
}

func TestUpdateStatusTerminalLockout(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	vehicleID := seedVehicle(store, 0)
	admin := Actor{UserID: uuid.New(), Role: lifecycle.RoleAdmin}

	created, err := svc.Create(context.Background(), admin, createRequest(vehicleID, nil))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), admin, created.ID,
		transport.UpdateStatusRequest{Status: "cancelled"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	for _, status := range []string{"pending", "in_progress", "completed"} {
		_, err := svc.UpdateStatus(context.Background(), admin, created.ID,
			transport.UpdateStatusRequest{Status: status})
		if !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("cancelled -> %s: err = %v, want conflict", status, err)
		}
	}
}

func TestDeleteReturnsStockAndReleasesVehicle(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	vehicleID := seedVehicle(store, 0)
	partID := seedPart(store, 10, 500)
	actor := staffActor()

	created, err := svc.Create(context.Background(), actor, createRequest(vehicleID,
		[]transport.LineItemRequest{{PartID: partID, Quantity: 4}}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := store.parts[partID].Stock; got != 6 {
		t.Fatalf("stock after create = %d, want 6", got)
	}

	if err := svc.Delete(context.Background(), actor, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if got := store.parts[partID].Stock; got != 10 {
		t.Errorf("stock after delete = %d, want 10", got)
	}
	if _, ok := store.records[created.ID]; ok {
		t.Error("record still present after delete")
	}
	if store.vehicles[vehicleID].status != lifecycle.VehicleActive {
		t.Errorf("vehicle not released after delete")
	}
}

func TestStockConservationAcrossLifecycle(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	vehicleID := seedVehicle(store, 0)
	partID := seedPart(store, 50, 100)
	actor := staffActor()

	created, err := svc.Create(context.Background(), actor, createRequest(vehicleID,
		[]transport.LineItemRequest{{PartID: partID, Quantity: 7}}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Update(context.Background(), actor, created.ID, transport.UpdateMaintenanceRequest{
		Type:      "oil_change",
		Mileage:   100,
		StartDate: time.Now(),
		Status:    "pending",
		Parts:     []transport.LineItemRequest{{PartID: partID, Quantity: 2}},
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := svc.Delete(context.Background(), actor, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if got := store.parts[partID].Stock; got != 50 {
		t.Errorf("stock = %d, want the initial 50 after create+update+delete", got)
	}
}
