// Package lifecycle contains the pure core of the maintenance and work-order
// lifecycle engine: status and role enums, the transition guard, stock delta
// computation, audit history entries, and vehicle state derivation. Nothing in
// this package touches the database or the web framework.
package lifecycle

// EntityKind identifies which lifecycle graph governs an entity.
type EntityKind string

const (
	KindWorkOrder   EntityKind = "work_order"
	KindMaintenance EntityKind = "maintenance_record"
)

// Valid reports whether the kind is one of the known entity kinds.
func (k EntityKind) Valid() bool {
	return k == KindWorkOrder || k == KindMaintenance
}

// Status is a lifecycle status. Not every status is valid for every kind;
// use ValidFor to check membership in a kind's status set.
type Status string

const (
	StatusPending      Status = "pending"
	StatusAssigned     Status = "assigned"
	StatusInProgress   Status = "in_progress"
	StatusPendingCheck Status = "pending_check"
	StatusCompleted    Status = "completed"
	StatusCancelled    Status = "cancelled"
)

// statusSets holds the closed status set per entity kind.
var statusSets = map[EntityKind][]Status{
	KindWorkOrder: {
		StatusPending, StatusAssigned, StatusInProgress,
		StatusPendingCheck, StatusCompleted, StatusCancelled,
	},
	KindMaintenance: {
		StatusPending, StatusInProgress, StatusCompleted, StatusCancelled,
	},
}

// ValidFor reports whether the status is a member of the kind's status set.
func (s Status) ValidFor(kind EntityKind) bool {
	for _, candidate := range statusSets[kind] {
		if s == candidate {
			return true
		}
	}
	return false
}

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// StatusesFor returns the closed status set for a kind, in lifecycle order.
func StatusesFor(kind EntityKind) []Status {
	set := statusSets[kind]
	out := make([]Status, len(set))
	copy(out, set)
	return out
}

// Role is an actor role recognized by the transition guard.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTechnician Role = "technician"
	RoleStaff      Role = "staff"
	RoleCustomer   Role = "customer"
)

// Roles lists every recognized role.
var Roles = []Role{RoleAdmin, RoleTechnician, RoleStaff, RoleCustomer}

// Valid reports whether the role is recognized.
func (r Role) Valid() bool {
	for _, candidate := range Roles {
		if r == candidate {
			return true
		}
	}
	return false
}

// RoleFromClaims picks the strongest recognized role from a JWT roles claim.
// Unknown role strings are ignored; an empty result means the guard will deny.
func RoleFromClaims(claims []string) Role {
	// Order matters: admin wins over technician wins over staff wins over customer.
	for _, want := range Roles {
		for _, have := range claims {
			if Role(have) == want {
				return want
			}
		}
	}
	return ""
}
