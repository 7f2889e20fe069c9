package lifecycle

// edge is one allowed currentStatus -> targetStatus transition.
type edge struct {
	from Status
	to   Status
}

// kindGraphs is the full transition graph per entity kind, before any role
// filtering. Terminal statuses deliberately have no outgoing edges.
var kindGraphs = map[EntityKind][]edge{
	KindWorkOrder: {
		{StatusPending, StatusAssigned},
		{StatusAssigned, StatusInProgress},
		{StatusInProgress, StatusPendingCheck},
		{StatusPendingCheck, StatusCompleted},
		{StatusPending, StatusCancelled},
		{StatusAssigned, StatusCancelled},
		{StatusInProgress, StatusCancelled},
		{StatusPendingCheck, StatusCancelled},
	},
	KindMaintenance: {
		{StatusPending, StatusInProgress},
		{StatusInProgress, StatusCompleted},
		{StatusPending, StatusCancelled},
		{StatusInProgress, StatusCancelled},
	},
}

// customerCancelSources are the only statuses a customer may cancel from.
var customerCancelSources = map[Status]bool{
	StatusPending:    true,
	StatusAssigned:   true,
	StatusInProgress: true,
}

// roleAllows applies the role policy to a single graph edge:
//   - admin may perform every edge in the kind's graph;
//   - technician and staff may perform every edge except cancellations;
//   - customer may only cancel, and only from pending/assigned/in_progress.
//
// Tightening pending_check -> completed to admin-only would be a change here.
func roleAllows(role Role, e edge) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleTechnician, RoleStaff:
		return e.to != StatusCancelled
	case RoleCustomer:
		return e.to == StatusCancelled && customerCancelSources[e.from]
	default:
		return false
	}
}

// tableKey identifies one (kind, role) slot in the transition table.
type tableKey struct {
	kind EntityKind
	role Role
}

// transitionTable maps (kind, role) to the set of permitted edges. Built once
// from kindGraphs and the role policy so every entry point consults the same
// data instead of re-deriving permissions.
var transitionTable = buildTransitionTable()

func buildTransitionTable() map[tableKey]map[edge]bool {
	table := make(map[tableKey]map[edge]bool)
	for kind, graph := range kindGraphs {
		for _, role := range Roles {
			allowed := make(map[edge]bool)
			for _, e := range graph {
				if roleAllows(role, e) {
					allowed[e] = true
				}
			}
			table[tableKey{kind, role}] = allowed
		}
	}
	return table
}

// CanTransition reports whether the actor role may move an entity of the given
// kind from current to target. Unknown kinds, statuses, or roles are denied,
// never rejected with a panic; callers map denial to a typed error.
func CanTransition(kind EntityKind, current, target Status, role Role) bool {
	if !kind.Valid() || !role.Valid() {
		return false
	}
	if !current.ValidFor(kind) || !target.ValidFor(kind) {
		return false
	}
	if current.Terminal() {
		return false
	}
	return transitionTable[tableKey{kind, role}][edge{current, target}]
}

// GuardTransition validates one requested transition and returns nil when the
// role may perform it, a forbidden error when the edge exists but the role
// lacks it, and an invalid-transition error otherwise.
func GuardTransition(kind EntityKind, current, target Status, role Role) error {
	if CanTransition(kind, current, target, role) {
		return nil
	}
	if TransitionExists(kind, current, target) {
		return ErrForbiddenTransition(role, current, target)
	}
	return ErrInvalidTransition(kind, current, target)
}

// TransitionExists reports whether the edge exists in the kind's graph for any
// role. Used to distinguish InvalidTransition (no such edge) from Forbidden
// (edge exists, role lacks it).
func TransitionExists(kind EntityKind, current, target Status) bool {
	if !current.ValidFor(kind) || !target.ValidFor(kind) || current.Terminal() {
		return false
	}
	for _, e := range kindGraphs[kind] {
		if e.from == current && e.to == target {
			return true
		}
	}
	return false
}
