package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"garage_backend/internal/lifecycle"
)

// Record is a maintenance record with its embedded parts list and status
// history. Parts and history have no identity outside the record.
type Record struct {
	ID           uuid.UUID
	VehicleID    uuid.UUID
	TechnicianID *uuid.UUID
	Type         string
	Description  string
	Mileage      int64
	CostCents    int64
	StartDate    time.Time
	Status       lifecycle.Status
	Parts        []lifecycle.LineItem
	History      []lifecycle.HistoryEntry
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Fields holds the mutable columns of a maintenance record.
type Fields struct {
	VehicleID    uuid.UUID
	TechnicianID *uuid.UUID
	Type         string
	Description  string
	Mileage      int64
	CostCents    int64
	StartDate    time.Time
	Status       lifecycle.Status
}

// ListParams filters and paginates record listings.
type ListParams struct {
	VehicleID *uuid.UUID
	Status    *lifecycle.Status
	Limit     int
	Offset    int
}

// Repository defines persistence for maintenance records. The lifecycle
// orchestrator drives the Tx-scoped methods so that the record write, the
// stock deltas, the history append, and the vehicle sync commit atomically.
type Repository interface {
	// InTx runs fn inside a transaction, committing on nil and rolling back
	// on error.
	InTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error

	GetByID(ctx context.Context, id uuid.UUID) (Record, error)
	List(ctx context.Context, params ListParams) ([]Record, int, error)

	// GetForUpdate loads a record with its parts and history, locking the
	// record row for the duration of the transaction.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (Record, error)
	Insert(ctx context.Context, tx pgx.Tx, id uuid.UUID, fields Fields) error
	UpdateFields(ctx context.Context, tx pgx.Tx, id uuid.UUID, fields Fields) error
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status lifecycle.Status) error
	ReplaceParts(ctx context.Context, tx pgx.Tx, recordID uuid.UUID, items []lifecycle.LineItem) error
	AppendHistory(ctx context.Context, tx pgx.Tx, recordID uuid.UUID, status lifecycle.Status, note *string, actorID uuid.UUID) (lifecycle.HistoryEntry, error)
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}
