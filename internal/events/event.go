// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"garage_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Work Order Domain Events
// =============================================================================

// WorkOrderStatusChanged is published after a work order transition commits.
type WorkOrderStatusChanged struct {
	BaseEvent
	WorkOrderID uuid.UUID `json:"workOrderId"`
	VehicleID   uuid.UUID `json:"vehicleId"`
	OldStatus   string    `json:"oldStatus"`
	NewStatus   string    `json:"newStatus"`
	ActorID     uuid.UUID `json:"actorId"`
}

func (e WorkOrderStatusChanged) EventName() string { return "workorders.status.changed" }

// WorkOrderStalled is published by the scheduler when an assigned work order
// has not been picked up within the follow-up window.
type WorkOrderStalled struct {
	BaseEvent
	WorkOrderID uuid.UUID `json:"workOrderId"`
	VehicleID   uuid.UUID `json:"vehicleId"`
	Status      string    `json:"status"`
}

func (e WorkOrderStalled) EventName() string { return "workorders.stalled" }

// =============================================================================
// Maintenance Domain Events
// =============================================================================

// MaintenanceStatusChanged is published after a maintenance record transition
// commits.
type MaintenanceStatusChanged struct {
	BaseEvent
	RecordID  uuid.UUID `json:"recordId"`
	VehicleID uuid.UUID `json:"vehicleId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	ActorID   uuid.UUID `json:"actorId"`
}

func (e MaintenanceStatusChanged) EventName() string { return "maintenance.status.changed" }

// =============================================================================
// Inventory Domain Events
// =============================================================================

// PartStockAdjusted is published after reconciliation deltas commit.
type PartStockAdjusted struct {
	BaseEvent
	PartID    uuid.UUID `json:"partId"`
	Delta     int       `json:"delta"`
	NewStock  int       `json:"newStock"`
	RecordID  uuid.UUID `json:"recordId"`
	VehicleID uuid.UUID `json:"vehicleId"`
}

func (e PartStockAdjusted) EventName() string { return "parts.stock.adjusted" }

// PartStockLow is published by the low-stock sweep for parts at or below
// their minimum stock threshold.
type PartStockLow struct {
	BaseEvent
	PartID   uuid.UUID `json:"partId"`
	Name     string    `json:"name"`
	Stock    int       `json:"stock"`
	MinStock int       `json:"minStock"`
}

func (e PartStockLow) EventName() string { return "parts.stock.low" }
