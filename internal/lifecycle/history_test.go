package lifecycle

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNextEntrySequencing(t *testing.T) {
	actor := uuid.New()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	var history []HistoryEntry
	statuses := []Status{StatusPending, StatusAssigned, StatusInProgress, StatusCompleted}
	for i, s := range statuses {
		entry := NextEntry(history, s, actor, nil, base.Add(time.Duration(i)*time.Minute))
		history = append(history, entry)
	}

	if len(history) != len(statuses) {
		t.Fatalf("history length = %d, want %d", len(history), len(statuses))
	}
	for i, entry := range history {
		if entry.Seq != i+1 {
			t.Errorf("entry %d seq = %d, want %d", i, entry.Seq, i+1)
		}
	}
	if !HistoryOrdered(history) {
		t.Error("history not ordered after sequential appends")
	}
}

// TestNextEntryClockRegression verifies insertion order survives a clock that
// steps backwards: the new entry's timestamp is clamped to the previous one
// and seq still increases.
func TestNextEntryClockRegression(t *testing.T) {
	actor := uuid.New()
	later := time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC)
	earlier := later.Add(-2 * time.Minute)

	first := NextEntry(nil, StatusPending, actor, nil, later)
	second := NextEntry([]HistoryEntry{first}, StatusInProgress, actor, nil, earlier)

	if second.Seq != 2 {
		t.Errorf("seq = %d, want 2", second.Seq)
	}
	if second.CreatedAt.Before(first.CreatedAt) {
		t.Errorf("timestamp regressed: %v < %v", second.CreatedAt, first.CreatedAt)
	}
	if !HistoryOrdered([]HistoryEntry{first, second}) {
		t.Error("history reported unordered")
	}
}

func TestNextEntryCarriesNote(t *testing.T) {
	note := "replaced brake pads"
	entry := NextEntry(nil, StatusCompleted, uuid.New(), &note, time.Now())
	if entry.Note == nil || *entry.Note != note {
		t.Errorf("note = %v, want %q", entry.Note, note)
	}
	if entry.ID == uuid.Nil {
		t.Error("entry id not assigned")
	}
}

func TestHistoryOrdered(t *testing.T) {
	now := time.Now()
	ordered := []HistoryEntry{
		{Seq: 1, CreatedAt: now},
		{Seq: 2, CreatedAt: now}, // equal timestamps are fine, seq breaks the tie
		{Seq: 3, CreatedAt: now.Add(time.Second)},
	}
	if !HistoryOrdered(ordered) {
		t.Error("ordered history reported unordered")
	}

	duplicateSeq := []HistoryEntry{{Seq: 1, CreatedAt: now}, {Seq: 1, CreatedAt: now}}
	if HistoryOrdered(duplicateSeq) {
		t.Error("duplicate seq reported ordered")
	}

	timeRegression := []HistoryEntry{
		{Seq: 1, CreatedAt: now},
		{Seq: 2, CreatedAt: now.Add(-time.Second)},
	}
	if HistoryOrdered(timeRegression) {
		t.Error("timestamp regression reported ordered")
	}
}
