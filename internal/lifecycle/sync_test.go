package lifecycle

import (
	"testing"
	"time"
)

func TestVehicleStatusFor(t *testing.T) {
	maintenance := VehicleMaintenance
	active := VehicleActive

	cases := []struct {
		kind   EntityKind
		status Status
		want   *VehicleStatus
	}{
		{KindWorkOrder, StatusPending, nil},
		{KindWorkOrder, StatusAssigned, nil},
		{KindWorkOrder, StatusInProgress, &maintenance},
		{KindWorkOrder, StatusPendingCheck, nil},
		{KindWorkOrder, StatusCompleted, &active},
		{KindWorkOrder, StatusCancelled, &active},
		{KindMaintenance, StatusPending, &maintenance},
		{KindMaintenance, StatusInProgress, &maintenance},
		{KindMaintenance, StatusCompleted, &active},
		{KindMaintenance, StatusCancelled, &active},
	}

	for _, tc := range cases {
		got := VehicleStatusFor(tc.kind, tc.status)
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("VehicleStatusFor(%s, %s) = %s, want no change", tc.kind, tc.status, *got)
		case tc.want != nil && got == nil:
			t.Errorf("VehicleStatusFor(%s, %s) = no change, want %s", tc.kind, tc.status, *tc.want)
		case tc.want != nil && got != nil && *got != *tc.want:
			t.Errorf("VehicleStatusFor(%s, %s) = %s, want %s", tc.kind, tc.status, *got, *tc.want)
		}
	}
}

func TestDeriveVehicleSyncCompletion(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	mileage := int64(84000)

	sync := DeriveVehicleSync(KindMaintenance, StatusCompleted, &mileage, now)
	if sync.Status == nil || *sync.Status != VehicleActive {
		t.Errorf("status = %v, want %s", sync.Status, VehicleActive)
	}
	if sync.MinMileage == nil || *sync.MinMileage != mileage {
		t.Errorf("min mileage = %v, want %d", sync.MinMileage, mileage)
	}
	if sync.LastMaintenanceDate == nil || !sync.LastMaintenanceDate.Equal(now) {
		t.Errorf("last maintenance date = %v, want %v", sync.LastMaintenanceDate, now)
	}
	if sync.Empty() {
		t.Error("completion sync reported empty")
	}
}

func TestDeriveVehicleSyncNonCompletion(t *testing.T) {
	mileage := int64(10)
	for _, status := range []Status{StatusPending, StatusAssigned, StatusInProgress, StatusPendingCheck, StatusCancelled} {
		sync := DeriveVehicleSync(KindWorkOrder, status, &mileage, time.Now())
		if sync.MinMileage != nil {
			t.Errorf("%s: mileage floor set on non-completion", status)
		}
		if sync.LastMaintenanceDate != nil {
			t.Errorf("%s: maintenance date set on non-completion", status)
		}
	}

	// Work order pending/assigned/pending_check leave the vehicle alone entirely.
	for _, status := range []Status{StatusPending, StatusAssigned, StatusPendingCheck} {
		if sync := DeriveVehicleSync(KindWorkOrder, status, nil, time.Now()); !sync.Empty() {
			t.Errorf("%s: expected empty sync for work order", status)
		}
	}
}

// TestDeriveVehicleSyncIdempotent verifies applying the same completion twice
// produces identical updates.
func TestDeriveVehicleSyncIdempotent(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	mileage := int64(50000)

	first := DeriveVehicleSync(KindWorkOrder, StatusCompleted, &mileage, now)
	second := DeriveVehicleSync(KindWorkOrder, StatusCompleted, &mileage, now)

	if *first.Status != *second.Status {
		t.Error("status differs across identical applications")
	}
	if *first.MinMileage != *second.MinMileage {
		t.Error("mileage floor differs across identical applications")
	}
	if !first.LastMaintenanceDate.Equal(*second.LastMaintenanceDate) {
		t.Error("maintenance date differs across identical applications")
	}
}
