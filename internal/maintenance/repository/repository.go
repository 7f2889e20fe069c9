package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"garage_backend/internal/lifecycle"
	"garage_backend/platform/apperr"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

// New creates a pgx-backed maintenance repository.
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

const recordColumns = `id, vehicle_id, technician_id, type, description, mileage, cost_cents, start_date, status, created_at, updated_at`

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (Record, error) {
	const op = "maintenance.repository.GetByID"

	row := r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM maintenance_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, apperr.NotFound("maintenance record not found")
		}
		return Record{}, apperr.Wrap(apperr.KindInternal, "failed to get maintenance record", err).WithOp(op)
	}

	if err := r.loadChildren(ctx, r.pool, &rec); err != nil {
		return Record{}, apperr.Wrap(apperr.KindInternal, "failed to load record details", err).WithOp(op)
	}
	return rec, nil
}

func (r *postgresRepository) List(ctx context.Context, params ListParams) ([]Record, int, error) {
	const op = "maintenance.repository.List"

	where := ` WHERE 1=1`
	args := []any{}
	idx := 1

	if params.VehicleID != nil {
		where += fmt.Sprintf(` AND vehicle_id = $%d`, idx)
		args = append(args, *params.VehicleID)
		idx++
	}
	if params.Status != nil {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, string(*params.Status))
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM maintenance_records`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to count maintenance records", err).WithOp(op)
	}

	query := `SELECT ` + recordColumns + ` FROM maintenance_records` + where +
		fmt.Sprintf(` ORDER BY start_date DESC, created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to list maintenance records", err).WithOp(op)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to scan maintenance record", err).WithOp(op)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to read maintenance records", err).WithOp(op)
	}

	for i := range records {
		if err := r.loadChildren(ctx, r.pool, &records[i]); err != nil {
			return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to load record details", err).WithOp(op)
		}
	}
	return records, total, nil
}

func (r *postgresRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (Record, error) {
	const op = "maintenance.repository.GetForUpdate"

	row := tx.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM maintenance_records WHERE id = $1 FOR UPDATE`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, apperr.NotFound("maintenance record not found")
		}
		return Record{}, apperr.Wrap(apperr.KindInternal, "failed to lock maintenance record", err).WithOp(op)
	}

	if err := r.loadChildren(ctx, tx, &rec); err != nil {
		return Record{}, apperr.Wrap(apperr.KindInternal, "failed to load record details", err).WithOp(op)
	}
	return rec, nil
}

func (r *postgresRepository) Insert(ctx context.Context, tx pgx.Tx, id uuid.UUID, fields Fields) error {
	const op = "maintenance.repository.Insert"

	_, err := tx.Exec(ctx,
		`INSERT INTO maintenance_records (id, vehicle_id, technician_id, type, description, mileage, cost_cents, start_date, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, fields.VehicleID, fields.TechnicianID, fields.Type, fields.Description,
		fields.Mileage, fields.CostCents, fields.StartDate, string(fields.Status))
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperr.NotFound("vehicle not found")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to insert maintenance record", err).WithOp(op)
	}
	return nil
}

func (r *postgresRepository) UpdateFields(ctx context.Context, tx pgx.Tx, id uuid.UUID, fields Fields) error {
	const op = "maintenance.repository.UpdateFields"

	tag, err := tx.Exec(ctx,
		`UPDATE maintenance_records
		 SET vehicle_id = $2, technician_id = $3, type = $4, description = $5,
		     mileage = $6, cost_cents = $7, start_date = $8, status = $9, updated_at = now()
		 WHERE id = $1`,
		id, fields.VehicleID, fields.TechnicianID, fields.Type, fields.Description,
		fields.Mileage, fields.CostCents, fields.StartDate, string(fields.Status))
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperr.NotFound("vehicle not found")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to update maintenance record", err).WithOp(op)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("maintenance record not found")
	}
	return nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status lifecycle.Status) error {
	const op = "maintenance.repository.UpdateStatus"

	tag, err := tx.Exec(ctx,
		`UPDATE maintenance_records SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update record status", err).WithOp(op)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("maintenance record not found")
	}
	return nil
}

func (r *postgresRepository) ReplaceParts(ctx context.Context, tx pgx.Tx, recordID uuid.UUID, items []lifecycle.LineItem) error {
	const op = "maintenance.repository.ReplaceParts"

	if _, err := tx.Exec(ctx, `DELETE FROM maintenance_parts WHERE record_id = $1`, recordID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to clear record parts", err).WithOp(op)
	}
	for i, item := range items {
		_, err := tx.Exec(ctx,
			`INSERT INTO maintenance_parts (record_id, position, part_id, quantity, unit_price_cents, total_price_cents)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			recordID, i, item.PartID, item.Quantity, item.UnitPriceCents, item.TotalPriceCents)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to insert record part", err).WithOp(op)
		}
	}
	return nil
}

func (r *postgresRepository) AppendHistory(ctx context.Context, tx pgx.Tx, recordID uuid.UUID, status lifecycle.Status, note *string, actorID uuid.UUID) (lifecycle.HistoryEntry, error) {
	const op = "maintenance.repository.AppendHistory"

	entry := lifecycle.HistoryEntry{
		ID:      uuid.New(),
		Status:  status,
		Note:    note,
		ActorID: actorID,
	}

	// Seq and timestamp are assigned in SQL so concurrent appends within the
	// record lock stay strictly ordered and the timestamp never regresses.
	err := tx.QueryRow(ctx,
		`INSERT INTO maintenance_status_history (id, record_id, seq, status, note, actor_id, created_at)
		 SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4, $5,
		        GREATEST(now(), COALESCE(MAX(created_at), now()))
		 FROM maintenance_status_history WHERE record_id = $2
		 RETURNING seq, created_at`,
		entry.ID, recordID, string(status), note, actorID).
		Scan(&entry.Seq, &entry.CreatedAt)
	if err != nil {
		return lifecycle.HistoryEntry{}, apperr.Wrap(apperr.KindInternal, "failed to append status history", err).WithOp(op)
	}
	return entry, nil
}

func (r *postgresRepository) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	const op = "maintenance.repository.Delete"

	tag, err := tx.Exec(ctx, `DELETE FROM maintenance_records WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete maintenance record", err).WithOp(op)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("maintenance record not found")
	}
	return nil
}

// querier is satisfied by both pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *postgresRepository) loadChildren(ctx context.Context, q querier, rec *Record) error {
	rows, err := q.Query(ctx,
		`SELECT part_id, quantity, unit_price_cents, total_price_cents
		 FROM maintenance_parts WHERE record_id = $1 ORDER BY position`, rec.ID)
	if err != nil {
		return err
	}
	rec.Parts = []lifecycle.LineItem{}
	for rows.Next() {
		var item lifecycle.LineItem
		if err := rows.Scan(&item.PartID, &item.Quantity, &item.UnitPriceCents, &item.TotalPriceCents); err != nil {
			rows.Close()
			return err
		}
		rec.Parts = append(rec.Parts, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.Query(ctx,
		`SELECT id, seq, status, note, actor_id, created_at
		 FROM maintenance_status_history WHERE record_id = $1 ORDER BY seq`, rec.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	rec.History = []lifecycle.HistoryEntry{}
	for rows.Next() {
		var entry lifecycle.HistoryEntry
		var status string
		if err := rows.Scan(&entry.ID, &entry.Seq, &status, &entry.Note, &entry.ActorID, &entry.CreatedAt); err != nil {
			return err
		}
		entry.Status = lifecycle.Status(status)
		rec.History = append(rec.History, entry)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var status string
	err := row.Scan(&rec.ID, &rec.VehicleID, &rec.TechnicianID, &rec.Type, &rec.Description,
		&rec.Mileage, &rec.CostCents, &rec.StartDate, &status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return Record{}, err
	}
	rec.Status = lifecycle.Status(status)
	return rec, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
