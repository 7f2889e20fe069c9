package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is an account that can authenticate against the API.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateParams holds the fields for creating a user.
type CreateParams struct {
	Email        string
	PasswordHash string
	Name         string
	Roles        []string
}

// Repository defines persistence for users and refresh tokens. Refresh
// tokens are stored hashed and are single-use.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, params CreateParams) (User, error)

	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error
}
