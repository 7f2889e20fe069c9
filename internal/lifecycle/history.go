package lifecycle

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one immutable audit record of a status change. Entries are
// append-only and ordered by Seq; Seq also breaks ties when wall-clock
// timestamps collide or the clock steps backwards.
type HistoryEntry struct {
	ID        uuid.UUID `json:"id"`
	Seq       int       `json:"seq"`
	Status    Status    `json:"status"`
	Note      *string   `json:"note,omitempty"`
	ActorID   uuid.UUID `json:"actorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// NextEntry builds the entry that follows prev in a record's history. The
// timestamp never regresses relative to the last entry even if now does.
func NextEntry(prev []HistoryEntry, status Status, actorID uuid.UUID, note *string, now time.Time) HistoryEntry {
	seq := 1
	ts := now
	if n := len(prev); n > 0 {
		last := prev[n-1]
		seq = last.Seq + 1
		if ts.Before(last.CreatedAt) {
			ts = last.CreatedAt
		}
	}
	return HistoryEntry{
		ID:        uuid.New(),
		Seq:       seq,
		Status:    status,
		Note:      note,
		ActorID:   actorID,
		CreatedAt: ts,
	}
}

// HistoryOrdered reports whether entries are in append order: Seq strictly
// increasing and CreatedAt non-decreasing.
func HistoryOrdered(entries []HistoryEntry) bool {
	for i := 1; i < len(entries); i++ {
		if entries[i].Seq <= entries[i-1].Seq {
			return false
		}
		if entries[i].CreatedAt.Before(entries[i-1].CreatedAt) {
			return false
		}
	}
	return true
}
