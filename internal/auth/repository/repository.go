package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"garage_backend/platform/apperr"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

// New creates a pgx-backed auth repository.
func New(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const userColumns = `id, email, password_hash, name, roles, created_at, updated_at`

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	const op = "auth.repository.GetByID"

	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, apperr.Wrap(apperr.KindInternal, "failed to get user", err).WithOp(op)
	}
	return user, nil
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	const op = "auth.repository.GetByEmail"

	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, apperr.Wrap(apperr.KindInternal, "failed to get user", err).WithOp(op)
	}
	return user, nil
}

func (r *postgresRepository) Create(ctx context.Context, params CreateParams) (User, error) {
	const op = "auth.repository.Create"

	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash, name, roles)
		 VALUES ($1, lower($2), $3, $4, $5)
		 RETURNING `+userColumns,
		uuid.New(), strings.TrimSpace(params.Email), params.PasswordHash, params.Name, params.Roles)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, apperr.Conflict("email already registered")
		}
		return User{}, apperr.Wrap(apperr.KindInternal, "failed to create user", err).WithOp(op)
	}
	return user, nil
}

func (r *postgresRepository) CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	const op = "auth.repository.CreateRefreshToken"

	_, err := r.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`,
		tokenHash, userID, expiresAt)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to store refresh token", err).WithOp(op)
	}
	return nil
}

func (r *postgresRepository) GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error) {
	const op = "auth.repository.GetRefreshToken"

	var userID uuid.UUID
	var expiresAt time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, expires_at FROM refresh_tokens WHERE token_hash = $1`, tokenHash).
		Scan(&userID, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, time.Time{}, apperr.NotFound("refresh token not found")
		}
		return uuid.Nil, time.Time{}, apperr.Wrap(apperr.KindInternal, "failed to get refresh token", err).WithOp(op)
	}
	return userID, expiresAt, nil
}

func (r *postgresRepository) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	const op = "auth.repository.RevokeRefreshToken"

	if _, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to revoke refresh token", err).WithOp(op)
	}
	return nil
}

func (r *postgresRepository) RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	const op = "auth.repository.RevokeAllRefreshTokens"

	if _, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to revoke refresh tokens", err).WithOp(op)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Roles, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return u, nil
}
