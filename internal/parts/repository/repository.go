package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"garage_backend/internal/lifecycle"
	"garage_backend/platform/apperr"
)

const partNotFoundMessage = "part not found"

// foreignKeyViolation is the PostgreSQL error code for FK constraint failures.
const foreignKeyViolation = "23503"

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new parts repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a part by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Part, error) {
	query := `
		SELECT id, name, sku, stock, min_stock, unit_price_cents, created_at, updated_at
		FROM parts
		WHERE id = $1`

	part, err := scanPart(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Part{}, apperr.NotFound(partNotFoundMessage)
		}
		return Part{}, fmt.Errorf("get part by id: %w", err)
	}
	return part, nil
}

// GetMany retrieves the parts with the given IDs, keyed by ID. Missing IDs
// are simply absent from the result; callers decide whether that is an error.
func (r *Repo) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Part, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]Part{}, nil
	}

	query := `
		SELECT id, name, sku, stock, min_stock, unit_price_cents, created_at, updated_at
		FROM parts
		WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get parts: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]Part, len(ids))
	for rows.Next() {
		part, err := scanPart(rows)
		if err != nil {
			return nil, fmt.Errorf("scan part: %w", err)
		}
		out[part.ID] = part
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parts: %w", err)
	}
	return out, nil
}

// List retrieves parts with search, low-stock filter, and pagination.
func (r *Repo) List(ctx context.Context, params ListParams) ([]Part, int, error) {
	var searchParam interface{}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}

	countQuery := `
		SELECT COUNT(*)
		FROM parts
		WHERE ($1::text IS NULL OR name ILIKE $1 OR sku ILIKE $1)
			AND (NOT $2::boolean OR stock <= min_stock)`

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, searchParam, params.LowStockOnly).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count parts: %w", err)
	}

	query := `
		SELECT id, name, sku, stock, min_stock, unit_price_cents, created_at, updated_at
		FROM parts
		WHERE ($1::text IS NULL OR name ILIKE $1 OR sku ILIKE $1)
			AND (NOT $2::boolean OR stock <= min_stock)
		ORDER BY name ASC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, searchParam, params.LowStockOnly, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list parts: %w", err)
	}
	defer rows.Close()

	parts, err := scanParts(rows)
	if err != nil {
		return nil, 0, err
	}
	return parts, total, nil
}

// ListBelowMinStock retrieves every part at or below its threshold, for the
// low-stock sweep.
func (r *Repo) ListBelowMinStock(ctx context.Context) ([]Part, error) {
	query := `
		SELECT id, name, sku, stock, min_stock, unit_price_cents, created_at, updated_at
		FROM parts
		WHERE stock <= min_stock
		ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list low stock parts: %w", err)
	}
	defer rows.Close()

	return scanParts(rows)
}

// Create creates a new part.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Part, error) {
	query := `
		INSERT INTO parts (name, sku, stock, min_stock, unit_price_cents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, sku, stock, min_stock, unit_price_cents, created_at, updated_at`

	part, err := scanPart(r.pool.QueryRow(ctx, query,
		params.Name, params.SKU, params.Stock, params.MinStock, params.UnitPriceCents))
	if err != nil {
		return Part{}, fmt.Errorf("create part: %w", err)
	}
	return part, nil
}

// Update updates a part's catalog fields. Stock is not touched here.
func (r *Repo) Update(ctx context.Context, params UpdateParams) (Part, error) {
	query := `
		UPDATE parts SET
			name = COALESCE($2, name),
			sku = COALESCE($3, sku),
			min_stock = COALESCE($4, min_stock),
			unit_price_cents = COALESCE($5, unit_price_cents),
			updated_at = now()
		WHERE id = $1
		RETURNING id, name, sku, stock, min_stock, unit_price_cents, created_at, updated_at`

	part, err := scanPart(r.pool.QueryRow(ctx, query,
		params.ID, params.Name, params.SKU, params.MinStock, params.UnitPriceCents))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Part{}, apperr.NotFound(partNotFoundMessage)
		}
		return Part{}, fmt.Errorf("update part: %w", err)
	}
	return part, nil
}

// Delete removes a part. Parts referenced by maintenance line items are
// protected by a foreign key and surface as a conflict.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM parts WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return apperr.Conflict("part is referenced by maintenance records")
		}
		return fmt.Errorf("delete part: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(partNotFoundMessage)
	}
	return nil
}

// Restock adds quantity to a part's stock (goods received).
func (r *Repo) Restock(ctx context.Context, id uuid.UUID, quantity int) (Part, error) {
	query := `
		UPDATE parts SET stock = stock + $2, updated_at = now()
		WHERE id = $1
		RETURNING id, name, sku, stock, min_stock, unit_price_cents, created_at, updated_at`

	part, err := scanPart(r.pool.QueryRow(ctx, query, id, quantity))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Part{}, apperr.NotFound(partNotFoundMessage)
		}
		return Part{}, fmt.Errorf("restock part: %w", err)
	}
	return part, nil
}

// ApplyDeltas applies reconciliation deltas inside the caller's transaction.
// Consumption (delta > 0) is a single conditional decrement: the row only
// updates when stock covers the delta, so concurrent writers cannot oversell.
// Any failure leaves the transaction to be rolled back by the caller, making
// the whole delta set all-or-nothing.
func (r *Repo) ApplyDeltas(ctx context.Context, tx pgx.Tx, deltas []lifecycle.PartDelta) ([]AppliedDelta, error) {
	applied := make([]AppliedDelta, 0, len(deltas))

	for _, d := range deltas {
		var newStock int
		var err error

		if d.Delta > 0 {
			err = tx.QueryRow(ctx, `
				UPDATE parts SET stock = stock - $2, updated_at = now()
				WHERE id = $1 AND stock >= $2
				RETURNING stock`, d.PartID, d.Delta).Scan(&newStock)
		} else {
			err = tx.QueryRow(ctx, `
				UPDATE parts SET stock = stock + $2, updated_at = now()
				WHERE id = $1
				RETURNING stock`, d.PartID, -d.Delta).Scan(&newStock)
		}

		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("apply stock delta: %w", err)
			}
			// Conditional update matched nothing: part missing or stock short.
			var available int
			lookupErr := tx.QueryRow(ctx, `SELECT stock FROM parts WHERE id = $1`, d.PartID).Scan(&available)
			if errors.Is(lookupErr, pgx.ErrNoRows) {
				return nil, apperr.NotFound(partNotFoundMessage)
			}
			if lookupErr != nil {
				return nil, fmt.Errorf("check part stock: %w", lookupErr)
			}
			return nil, lifecycle.ErrInsufficientStock(d.PartID.String(), d.Delta, available)
		}

		applied = append(applied, AppliedDelta{PartID: d.PartID, Delta: d.Delta, NewStock: newStock})
	}

	return applied, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPart(row rowScanner) (Part, error) {
	var p Part
	var createdAt, updatedAt time.Time

	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Stock, &p.MinStock, &p.UnitPriceCents, &createdAt, &updatedAt)
	if err != nil {
		return Part{}, err
	}

	p.CreatedAt = createdAt.Format(time.RFC3339)
	p.UpdatedAt = updatedAt.Format(time.RFC3339)
	return p, nil
}

func scanParts(rows pgx.Rows) ([]Part, error) {
	var results []Part
	for rows.Next() {
		part, err := scanPart(rows)
		if err != nil {
			return nil, fmt.Errorf("scan part: %w", err)
		}
		results = append(results, part)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate parts: %w", err)
	}
	return results, nil
}
