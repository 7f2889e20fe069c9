package lifecycle

import (
	"fmt"
	"sort"

	"garage_backend/platform/apperr"

	"github.com/google/uuid"
)

// LineItem is one part reference embedded in a maintenance record or work
// order. TotalPriceCents is always derived, never trusted from the client.
type LineItem struct {
	PartID          uuid.UUID `json:"partId"`
	Quantity        int       `json:"quantity"`
	UnitPriceCents  int64     `json:"unitPriceCents"`
	TotalPriceCents int64     `json:"totalPriceCents"`
}

// PartDelta is the stock adjustment implied for one part by a change in a
// record's line items. Positive delta consumes stock, negative returns it.
type PartDelta struct {
	PartID uuid.UUID
	Delta  int
}

// NormalizeLineItems validates quantities and prices and recomputes every
// total as quantity x unit price. Returns a validation error naming the first
// offending item.
func NormalizeLineItems(items []LineItem) ([]LineItem, error) {
	out := make([]LineItem, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for i, item := range items {
		if item.PartID == uuid.Nil {
			return nil, apperr.Validation(fmt.Sprintf("line item %d: part id is required", i))
		}
		if seen[item.PartID] {
			return nil, apperr.Validation(fmt.Sprintf("line item %d: part %s listed more than once", i, item.PartID))
		}
		seen[item.PartID] = true
		if item.Quantity < 1 {
			return nil, apperr.Validation(fmt.Sprintf("line item %d: quantity must be at least 1", i))
		}
		if item.UnitPriceCents < 0 {
			return nil, apperr.Validation(fmt.Sprintf("line item %d: unit price must not be negative", i))
		}
		item.TotalPriceCents = int64(item.Quantity) * item.UnitPriceCents
		out[i] = item
	}
	return out, nil
}

// ComputeDeltas computes per-part stock deltas between the stored line items
// and the submitted ones. A part absent from a side counts as quantity 0, so
// ComputeDeltas(existing, nil) returns every quantity to stock. Zero deltas
// are dropped; the result is sorted by part id for deterministic application
// order (which also keeps row lock order stable across concurrent writers).
func ComputeDeltas(old, new []LineItem) []PartDelta {
	quantities := make(map[uuid.UUID]int)
	for _, item := range old {
		quantities[item.PartID] -= item.Quantity
	}
	for _, item := range new {
		quantities[item.PartID] += item.Quantity
	}

	deltas := make([]PartDelta, 0, len(quantities))
	for partID, delta := range quantities {
		if delta != 0 {
			deltas = append(deltas, PartDelta{PartID: partID, Delta: delta})
		}
	}
	sort.Slice(deltas, func(i, j int) bool {
		return deltas[i].PartID.String() < deltas[j].PartID.String()
	})
	return deltas
}

// SumTotalCents sums the line item totals, the record's parts cost.
func SumTotalCents(items []LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.TotalPriceCents
	}
	return total
}
