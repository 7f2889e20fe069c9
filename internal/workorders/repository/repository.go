package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"garage_backend/internal/lifecycle"
	"garage_backend/platform/apperr"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

// New creates a pgx-backed work orders repository.
func New(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to commit transaction", err)
	}
	return nil
}

const orderColumns = `id, vehicle_id, customer_id, technician_id, priority, description, mileage, cost_cents, status, created_at, updated_at`

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (WorkOrder, error) {
	const op = "workorders.repository.GetByID"

	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM work_orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WorkOrder{}, apperr.NotFound("work order not found")
		}
		return WorkOrder{}, apperr.Wrap(apperr.KindInternal, "failed to get work order", err).WithOp(op)
	}

	if err := r.loadHistory(ctx, r.pool, &order); err != nil {
		return WorkOrder{}, apperr.Wrap(apperr.KindInternal, "failed to load order history", err).WithOp(op)
	}
	return order, nil
}

func (r *postgresRepository) List(ctx context.Context, params ListParams) ([]WorkOrder, int, error) {
	const op = "workorders.repository.List"

	where := ` WHERE 1=1`
	args := []any{}
	idx := 1

	if params.VehicleID != nil {
		where += fmt.Sprintf(` AND vehicle_id = $%d`, idx)
		args = append(args, *params.VehicleID)
		idx++
	}
	if params.CustomerID != nil {
		where += fmt.Sprintf(` AND customer_id = $%d`, idx)
		args = append(args, *params.CustomerID)
		idx++
	}
	if params.Status != nil {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, string(*params.Status))
		idx++
	}
	if params.Priority != nil {
		where += fmt.Sprintf(` AND priority = $%d`, idx)
		args = append(args, string(*params.Priority))
		idx++
	}

	query := `SELECT ` + orderColumns + ` FROM work_orders` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	pageArgs := append(append([]any{}, args...), params.Limit, params.Offset)

	// The count and the page hit separate pool connections, so run them
	// concurrently.
	var total int
	orders := []WorkOrder{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := r.pool.QueryRow(gctx, `SELECT COUNT(*) FROM work_orders`+where, args...).Scan(&total); err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to count work orders", err).WithOp(op)
		}
		return nil
	})

	g.Go(func() error {
		rows, err := r.pool.Query(gctx, query, pageArgs...)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to list work orders", err).WithOp(op)
		}
		defer rows.Close()

		for rows.Next() {
			order, err := scanOrder(rows)
			if err != nil {
				return apperr.Wrap(apperr.KindInternal, "failed to scan work order", err).WithOp(op)
			}
			orders = append(orders, order)
		}
		if err := rows.Err(); err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to read work orders", err).WithOp(op)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	for i := range orders {
		if err := r.loadHistory(ctx, r.pool, &orders[i]); err != nil {
			return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to load order history", err).WithOp(op)
		}
	}
	return orders, total, nil
}

func (r *postgresRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (WorkOrder, error) {
	const op = "workorders.repository.GetForUpdate"

	row := tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM work_orders WHERE id = $1 FOR UPDATE`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WorkOrder{}, apperr.NotFound("work order not found")
		}
		return WorkOrder{}, apperr.Wrap(apperr.KindInternal, "failed to lock work order", err).WithOp(op)
	}

	if err := r.loadHistory(ctx, tx, &order); err != nil {
		return WorkOrder{}, apperr.Wrap(apperr.KindInternal, "failed to load order history", err).WithOp(op)
	}
	return order, nil
}

func (r *postgresRepository) Insert(ctx context.Context, tx pgx.Tx, id uuid.UUID, fields Fields) error {
	const op = "workorders.repository.Insert"

	_, err := tx.Exec(ctx,
		`INSERT INTO work_orders (id, vehicle_id, customer_id, technician_id, priority, description, mileage, cost_cents, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, fields.VehicleID, fields.CustomerID, fields.TechnicianID, string(fields.Priority),
		fields.Description, fields.Mileage, fields.CostCents, string(fields.Status))
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperr.NotFound("vehicle not found")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to insert work order", err).WithOp(op)
	}
	return nil
}

func (r *postgresRepository) UpdateFields(ctx context.Context, tx pgx.Tx, id uuid.UUID, fields Fields) error {
	const op = "workorders.repository.UpdateFields"

	tag, err := tx.Exec(ctx,
		`UPDATE work_orders
		 SET technician_id = $2, priority = $3, description = $4, mileage = $5,
		     cost_cents = $6, status = $7, updated_at = now()
		 WHERE id = $1`,
		id, fields.TechnicianID, string(fields.Priority), fields.Description,
		fields.Mileage, fields.CostCents, string(fields.Status))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update work order", err).WithOp(op)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("work order not found")
	}
	return nil
}

func (r *postgresRepository) AppendHistory(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, status lifecycle.Status, note *string, actorID uuid.UUID) (lifecycle.HistoryEntry, error) {
	const op = "workorders.repository.AppendHistory"

	entry := lifecycle.HistoryEntry{
		ID:      uuid.New(),
		Status:  status,
		Note:    note,
		ActorID: actorID,
	}

	// Seq and timestamp are assigned in SQL so concurrent appends within the
	// order lock stay strictly ordered and the timestamp never regresses.
	err := tx.QueryRow(ctx,
		`INSERT INTO work_order_status_history (id, order_id, seq, status, note, actor_id, created_at)
		 SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4, $5,
		        GREATEST(now(), COALESCE(MAX(created_at), now()))
		 FROM work_order_status_history WHERE order_id = $2
		 RETURNING seq, created_at`,
		entry.ID, orderID, string(status), note, actorID).
		Scan(&entry.Seq, &entry.CreatedAt)
	if err != nil {
		return lifecycle.HistoryEntry{}, apperr.Wrap(apperr.KindInternal, "failed to append status history", err).WithOp(op)
	}
	return entry, nil
}

func (r *postgresRepository) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	const op = "workorders.repository.Delete"

	tag, err := tx.Exec(ctx, `DELETE FROM work_orders WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete work order", err).WithOp(op)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("work order not found")
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *postgresRepository) loadHistory(ctx context.Context, q querier, order *WorkOrder) error {
	rows, err := q.Query(ctx,
		`SELECT id, seq, status, note, actor_id, created_at
		 FROM work_order_status_history WHERE order_id = $1 ORDER BY seq`, order.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	order.History = []lifecycle.HistoryEntry{}
	for rows.Next() {
		var entry lifecycle.HistoryEntry
		var status string
		if err := rows.Scan(&entry.ID, &entry.Seq, &status, &entry.Note, &entry.ActorID, &entry.CreatedAt); err != nil {
			return err
		}
		entry.Status = lifecycle.Status(status)
		order.History = append(order.History, entry)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (WorkOrder, error) {
	var order WorkOrder
	var priority, status string
	err := row.Scan(&order.ID, &order.VehicleID, &order.CustomerID, &order.TechnicianID,
		&priority, &order.Description, &order.Mileage, &order.CostCents, &status,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return WorkOrder{}, err
	}
	order.Priority = Priority(priority)
	order.Status = lifecycle.Status(status)
	return order, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
