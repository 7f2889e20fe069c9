package repository

import (
	"context"

	"garage_backend/internal/lifecycle"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Part represents an inventory item. Stock is only mutated through
// reconciliation deltas or an explicit admin restock, never overwritten
// directly by a maintenance write.
type Part struct {
	ID             uuid.UUID `db:"id"`
	Name           string    `db:"name"`
	SKU            string    `db:"sku"`
	Stock          int       `db:"stock"`
	MinStock       int       `db:"min_stock"`
	UnitPriceCents int64     `db:"unit_price_cents"`
	CreatedAt      string    `db:"created_at"`
	UpdatedAt      string    `db:"updated_at"`
}

// LowStock reports whether the part is at or below its reorder threshold.
func (p Part) LowStock() bool {
	return p.Stock <= p.MinStock
}

// CreateParams contains parameters for creating a part.
type CreateParams struct {
	Name           string
	SKU            string
	Stock          int
	MinStock       int
	UnitPriceCents int64
}

// UpdateParams contains parameters for updating a part's catalog fields.
// Stock is deliberately absent; use Restock or reconciliation deltas.
type UpdateParams struct {
	ID             uuid.UUID
	Name           *string
	SKU            *string
	MinStock       *int
	UnitPriceCents *int64
}

// ListParams contains filters for listing parts.
type ListParams struct {
	Search       string
	LowStockOnly bool
	Limit        int
	Offset       int
}

// AppliedDelta reports one stock adjustment that was applied.
type AppliedDelta struct {
	PartID   uuid.UUID
	Delta    int
	NewStock int
}

// PartReader provides read operations for parts.
type PartReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Part, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Part, error)
	List(ctx context.Context, params ListParams) ([]Part, int, error)
	ListBelowMinStock(ctx context.Context) ([]Part, error)
}

// PartWriter provides write operations for parts.
type PartWriter interface {
	Create(ctx context.Context, params CreateParams) (Part, error)
	Update(ctx context.Context, params UpdateParams) (Part, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Restock(ctx context.Context, id uuid.UUID, quantity int) (Part, error)
}

// StockApplier applies reconciliation deltas inside a caller-owned
// transaction. Positive deltas are conditional decrements that fail the
// whole transaction with InsufficientStock when stock would go negative.
type StockApplier interface {
	ApplyDeltas(ctx context.Context, tx pgx.Tx, deltas []lifecycle.PartDelta) ([]AppliedDelta, error)
}

// Repository combines all part repository operations.
type Repository interface {
	PartReader
	PartWriter
	StockApplier
}
