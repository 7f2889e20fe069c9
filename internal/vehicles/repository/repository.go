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

// New creates a pgx-backed vehicles repository.
func New(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const vehicleColumns = `id, owner_id, plate, make, model, year, mileage, status, last_maintenance_date, created_at, updated_at`

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (Vehicle, error) {
	const op = "vehicles.repository.GetByID"

	row := r.pool.QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id)

	v, err := scanVehicle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vehicle{}, apperr.NotFound("vehicle not found")
		}
		return Vehicle{}, apperr.Wrap(apperr.KindInternal, "failed to get vehicle", err).WithOp(op)
	}
	return v, nil
}

func (r *postgresRepository) List(ctx context.Context, params ListParams) ([]Vehicle, int, error) {
	const op = "vehicles.repository.List"

	where := ` WHERE 1=1`
	args := []any{}
	idx := 1

	if params.OwnerID != nil {
		where += fmt.Sprintf(` AND owner_id = $%d`, idx)
		args = append(args, *params.OwnerID)
		idx++
	}
	if params.Status != nil {
		where += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, string(*params.Status))
		idx++
	}
	if params.Search != "" {
		where += fmt.Sprintf(` AND (plate ILIKE $%d OR make ILIKE $%d OR model ILIKE $%d)`, idx, idx, idx)
		args = append(args, "%"+params.Search+"%")
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vehicles`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to count vehicles", err).WithOp(op)
	}

	query := `SELECT ` + vehicleColumns + ` FROM vehicles` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to list vehicles", err).WithOp(op)
	}
	defer rows.Close()

	vehicles, err := scanVehicles(rows)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to scan vehicles", err).WithOp(op)
	}
	return vehicles, total, nil
}

func (r *postgresRepository) Create(ctx context.Context, params CreateParams) (Vehicle, error) {
	const op = "vehicles.repository.Create"

	row := r.pool.QueryRow(ctx,
		`INSERT INTO vehicles (id, owner_id, plate, make, model, year, mileage, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+vehicleColumns,
		uuid.New(), params.OwnerID, params.Plate, params.Make, params.Model,
		params.Year, params.Mileage, string(lifecycle.VehicleActive))

	v, err := scanVehicle(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Vehicle{}, apperr.Conflict("vehicle with this plate already exists")
		}
		return Vehicle{}, apperr.Wrap(apperr.KindInternal, "failed to create vehicle", err).WithOp(op)
	}
	return v, nil
}

func (r *postgresRepository) Update(ctx context.Context, params UpdateParams) (Vehicle, error) {
	const op = "vehicles.repository.Update"

	row := r.pool.QueryRow(ctx,
		`UPDATE vehicles
		 SET plate = $2, make = $3, model = $4, year = $5, mileage = $6, status = $7, updated_at = now()
		 WHERE id = $1
		 RETURNING `+vehicleColumns,
		params.ID, params.Plate, params.Make, params.Model, params.Year,
		params.Mileage, string(params.Status))

	v, err := scanVehicle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Vehicle{}, apperr.NotFound("vehicle not found")
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Vehicle{}, apperr.Conflict("vehicle with this plate already exists")
		}
		return Vehicle{}, apperr.Wrap(apperr.KindInternal, "failed to update vehicle", err).WithOp(op)
	}
	return v, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "vehicles.repository.Delete"

	tag, err := r.pool.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.Conflict("vehicle is referenced by service records")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to delete vehicle", err).WithOp(op)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("vehicle not found")
	}
	return nil
}

func (r *postgresRepository) SyncLifecycleState(ctx context.Context, tx pgx.Tx, vehicleID uuid.UUID, sync lifecycle.VehicleSync) error {
	const op = "vehicles.repository.SyncLifecycleState"

	if sync.Empty() {
		return nil
	}

	var status *string
	if sync.Status != nil {
		s := string(*sync.Status)
		status = &s
	}

	tag, err := tx.Exec(ctx,
		`UPDATE vehicles
		 SET status = COALESCE($2, status),
		     mileage = GREATEST(mileage, COALESCE($3, mileage)),
		     last_maintenance_date = COALESCE($4, last_maintenance_date),
		     updated_at = now()
		 WHERE id = $1`,
		vehicleID, status, sync.MinMileage, sync.LastMaintenanceDate)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to sync vehicle state", err).WithOp(op)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("vehicle not found")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row rowScanner) (Vehicle, error) {
	var v Vehicle
	var status string
	err := row.Scan(&v.ID, &v.OwnerID, &v.Plate, &v.Make, &v.Model, &v.Year,
		&v.Mileage, &status, &v.LastMaintenanceDate, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return Vehicle{}, err
	}
	v.Status = lifecycle.VehicleStatus(status)
	return v, nil
}

func scanVehicles(rows pgx.Rows) ([]Vehicle, error) {
	vehicles := []Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}
