package lifecycle

import "time"

// VehicleStatus is the derived status written onto a vehicle by the
// synchronizer. Vehicles also have an "inactive" status, but only the
// vehicle CRUD flows set that; the lifecycle engine never does.
type VehicleStatus string

const (
	VehicleActive      VehicleStatus = "active"
	VehicleMaintenance VehicleStatus = "maintenance"
	VehicleInactive    VehicleStatus = "inactive"
)

// Valid reports whether s is a recognized vehicle status.
func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleActive, VehicleMaintenance, VehicleInactive:
		return true
	}
	return false
}

// VehicleSync describes the vehicle-side effect of a lifecycle transition.
// A nil Status means the transition does not touch the vehicle's status.
// MinMileage is a floor, not an assignment: the stored mileage only moves up.
type VehicleSync struct {
	Status              *VehicleStatus
	MinMileage          *int64
	LastMaintenanceDate *time.Time
}

// Empty reports whether the sync would write nothing.
func (s VehicleSync) Empty() bool {
	return s.Status == nil && s.MinMileage == nil && s.LastMaintenanceDate == nil
}

// VehicleStatusFor derives the vehicle status implied by an entity status,
// or nil when the transition leaves the vehicle's status alone. Work in
// progress flags the vehicle as under maintenance (for maintenance records,
// already from pending); a terminal status releases it to active. The engine
// does not check for other concurrently open records on the same vehicle.
func VehicleStatusFor(kind EntityKind, status Status) *VehicleStatus {
	if status.Terminal() {
		return vehicleStatusPtr(VehicleActive)
	}
	switch kind {
	case KindWorkOrder:
		if status == StatusInProgress {
			return vehicleStatusPtr(VehicleMaintenance)
		}
	case KindMaintenance:
		if status == StatusPending || status == StatusInProgress {
			return vehicleStatusPtr(VehicleMaintenance)
		}
	}
	return nil
}

// DeriveVehicleSync computes the full vehicle update for a transition.
// Mileage and the maintenance date are only touched on completion; applying
// the same completion twice yields the same vehicle state.
func DeriveVehicleSync(kind EntityKind, status Status, mileage *int64, now time.Time) VehicleSync {
	sync := VehicleSync{Status: VehicleStatusFor(kind, status)}
	if status == StatusCompleted {
		sync.MinMileage = mileage
		completionDate := now
		sync.LastMaintenanceDate = &completionDate
	}
	return sync
}

func vehicleStatusPtr(s VehicleStatus) *VehicleStatus {
	return &s
}
