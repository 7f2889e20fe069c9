package lifecycle

import (
	"fmt"

	"garage_backend/platform/apperr"
)

// InsufficientStockDetails is attached to insufficient-stock errors so the
// API response names the part and the exact shortfall.
type InsufficientStockDetails struct {
	PartID    string `json:"partId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// ErrInvalidTransition reports a transition that no role could ever perform:
// terminal source, unknown status, or an edge absent from the kind's graph.
func ErrInvalidTransition(kind EntityKind, current, target Status) *apperr.Error {
	return apperr.Conflict(fmt.Sprintf("invalid %s transition from %s to %s", kind, current, target))
}

// ErrForbiddenTransition reports an edge that exists in the graph but is not
// granted to the actor's role.
func ErrForbiddenTransition(role Role, current, target Status) *apperr.Error {
	return apperr.Forbidden(fmt.Sprintf("role %s may not transition from %s to %s", role, current, target))
}

// ErrInsufficientStock reports that a part lacks the stock a reconciliation
// delta requires. No deltas are applied when this is returned.
func ErrInsufficientStock(partID string, requested, available int) *apperr.Error {
	return apperr.Conflict("insufficient stock").WithDetails(InsufficientStockDetails{
		PartID:    partID,
		Requested: requested,
		Available: available,
	})
}
