package lifecycle

import (
	"testing"

	"garage_backend/platform/apperr"

	"github.com/google/uuid"
)

func item(partID uuid.UUID, qty int, unitCents int64) LineItem {
	return LineItem{PartID: partID, Quantity: qty, UnitPriceCents: unitCents}
}

func TestComputeDeltas(t *testing.T) {
	partA := uuid.New()
	partB := uuid.New()
	partC := uuid.New()

	cases := []struct {
		name string
		old  []LineItem
		new  []LineItem
		want map[uuid.UUID]int
	}{
		{
			name: "create from nothing",
			old:  nil,
			new:  []LineItem{item(partA, 3, 1000)},
			want: map[uuid.UUID]int{partA: 3},
		},
		{
			name: "quantity increase",
			old:  []LineItem{item(partA, 3, 1000)},
			new:  []LineItem{item(partA, 5, 1000)},
			want: map[uuid.UUID]int{partA: 2},
		},
		{
			name: "quantity decrease returns stock",
			old:  []LineItem{item(partA, 5, 1000)},
			new:  []LineItem{item(partA, 2, 1000)},
			want: map[uuid.UUID]int{partA: -3},
		},
		{
			name: "unchanged quantity drops out",
			old:  []LineItem{item(partA, 3, 1000), item(partB, 1, 500)},
			new:  []LineItem{item(partA, 3, 1200), item(partB, 4, 500)},
			want: map[uuid.UUID]int{partB: 3},
		},
		{
			name: "deletion returns everything",
			old:  []LineItem{item(partA, 3, 1000), item(partB, 2, 500)},
			new:  nil,
			want: map[uuid.UUID]int{partA: -3, partB: -2},
		},
		{
			name: "mixed add remove swap",
			old:  []LineItem{item(partA, 2, 1000), item(partB, 1, 500)},
			new:  []LineItem{item(partB, 1, 500), item(partC, 4, 250)},
			want: map[uuid.UUID]int{partA: -2, partC: 4},
		},
		{
			name: "both empty",
			old:  nil,
			new:  nil,
			want: map[uuid.UUID]int{},
		},
	}

	for _, tc := range cases {
		got := ComputeDeltas(tc.old, tc.new)
		if len(got) != len(tc.want) {
			t.Errorf("%s: got %d deltas, want %d", tc.name, len(got), len(tc.want))
			continue
		}
		for _, d := range got {
			if want, ok := tc.want[d.PartID]; !ok || want != d.Delta {
				t.Errorf("%s: part %s delta = %d, want %d", tc.name, d.PartID, d.Delta, want)
			}
		}
	}
}

func TestComputeDeltasDeterministicOrder(t *testing.T) {
	parts := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	var items []LineItem
	for _, p := range parts {
		items = append(items, item(p, 1, 100))
	}

	first := ComputeDeltas(nil, items)
	for i := 0; i < 10; i++ {
		again := ComputeDeltas(nil, items)
		for j := range first {
			if first[j].PartID != again[j].PartID {
				t.Fatalf("delta order not deterministic at index %d", j)
			}
		}
	}
	for i := 1; i < len(first); i++ {
		if first[i-1].PartID.String() >= first[i].PartID.String() {
			t.Fatalf("deltas not sorted by part id at index %d", i)
		}
	}
}

func TestNormalizeLineItems(t *testing.T) {
	partA := uuid.New()

	t.Run("recomputes totals", func(t *testing.T) {
		// Client-supplied total is wrong on purpose.
		items := []LineItem{{PartID: partA, Quantity: 3, UnitPriceCents: 1000, TotalPriceCents: 999}}
		out, err := NormalizeLineItems(items)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out[0].TotalPriceCents != 3000 {
			t.Errorf("total = %d, want 3000", out[0].TotalPriceCents)
		}
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		_, err := NormalizeLineItems([]LineItem{{PartID: partA, Quantity: 0, UnitPriceCents: 100}})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects negative unit price", func(t *testing.T) {
		_, err := NormalizeLineItems([]LineItem{{PartID: partA, Quantity: 1, UnitPriceCents: -1}})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects nil part id", func(t *testing.T) {
		_, err := NormalizeLineItems([]LineItem{{Quantity: 1, UnitPriceCents: 100}})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects duplicate part", func(t *testing.T) {
		_, err := NormalizeLineItems([]LineItem{
			{PartID: partA, Quantity: 1, UnitPriceCents: 100},
			{PartID: partA, Quantity: 2, UnitPriceCents: 100},
		})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("does not mutate input", func(t *testing.T) {
		items := []LineItem{{PartID: partA, Quantity: 2, UnitPriceCents: 500, TotalPriceCents: 1}}
		if _, err := NormalizeLineItems(items); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if items[0].TotalPriceCents != 1 {
			t.Error("input slice was mutated")
		}
	})
}

func TestSumTotalCents(t *testing.T) {
	items, err := NormalizeLineItems([]LineItem{
		item(uuid.New(), 3, 1000),
		item(uuid.New(), 2, 250),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := SumTotalCents(items); got != 3500 {
		t.Errorf("SumTotalCents = %d, want 3500", got)
	}
}

func TestErrInsufficientStockDetails(t *testing.T) {
	partID := uuid.New()
	err := ErrInsufficientStock(partID.String(), 6, 4)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict kind, got %v", apperr.GetKind(err))
	}
	details, ok := err.Details.(InsufficientStockDetails)
	if !ok {
		t.Fatalf("details type = %T", err.Details)
	}
	if details.Requested != 6 || details.Available != 4 || details.PartID != partID.String() {
		t.Errorf("unexpected details: %+v", details)
	}
}
