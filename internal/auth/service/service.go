package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"garage_backend/internal/auth/password"
	"garage_backend/internal/auth/repository"
	"garage_backend/internal/auth/token"
	"garage_backend/internal/auth/transport"
	"garage_backend/internal/lifecycle"
	"garage_backend/platform/apperr"
	"garage_backend/platform/config"
	"garage_backend/platform/logger"
)

const accessTokenType = "access"

// Service handles authentication: registration, login, and refresh token
// rotation. Access tokens are HS256 JWTs carrying the roles claim the
// transition guard reads; refresh tokens are opaque, hashed at rest, and
// single-use.
type Service struct {
	repo repository.Repository
	cfg  config.AuthServiceConfig
	log  *logger.Logger
}

// New creates a new auth service.
func New(repo repository.Repository, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, log: log}
}

// Register creates a customer account.
func (s *Service) Register(ctx context.Context, req transport.RegisterRequest) (transport.UserResponse, error) {
	hash, err := password.Hash(req.Password)
	if err != nil {
		return transport.UserResponse{}, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	user, err := s.repo.Create(ctx, repository.CreateParams{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Roles:        []string{string(lifecycle.RoleCustomer)},
	})
	if err != nil {
		return transport.UserResponse{}, err
	}

	s.log.AuthEvent("register", user.Email, true, "")
	return toUserResponse(user), nil
}

// Login checks credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, req transport.LoginRequest) (transport.TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		s.log.AuthEvent("login", req.Email, false, "unknown email")
		return transport.TokenResponse{}, apperr.Unauthorized("invalid credentials")
	}
	if err := password.Compare(user.PasswordHash, req.Password); err != nil {
		s.log.AuthEvent("login", req.Email, false, "wrong password")
		return transport.TokenResponse{}, apperr.Unauthorized("invalid credentials")
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return transport.TokenResponse{}, err
	}
	s.log.AuthEvent("login", user.Email, true, "")
	return pair, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued.
func (s *Service) Refresh(ctx context.Context, req transport.RefreshRequest) (transport.TokenResponse, error) {
	hash := token.HashSHA256(req.RefreshToken)
	userID, expiresAt, err := s.repo.GetRefreshToken(ctx, hash)
	if err != nil {
		return transport.TokenResponse{}, apperr.Unauthorized("invalid refresh token")
	}
	if time.Now().After(expiresAt) {
		_ = s.repo.RevokeRefreshToken(ctx, hash)
		return transport.TokenResponse{}, apperr.Unauthorized("refresh token expired")
	}
	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil {
		return transport.TokenResponse{}, err
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return transport.TokenResponse{}, apperr.Unauthorized("invalid refresh token")
	}
	return s.issueTokens(ctx, user)
}

// Logout revokes the presented refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.RevokeRefreshToken(ctx, token.HashSHA256(refreshToken))
}

// Me returns the authenticated user's account.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (transport.UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return transport.UserResponse{}, err
	}
	return toUserResponse(user), nil
}

func (s *Service) issueTokens(ctx context.Context, user repository.User) (transport.TokenResponse, error) {
	accessToken, err := s.signAccessToken(user)
	if err != nil {
		return transport.TokenResponse{}, apperr.Wrap(apperr.KindInternal, "failed to sign access token", err)
	}

	refreshToken, err := token.GenerateRandomToken(48)
	if err != nil {
		return transport.TokenResponse{}, apperr.Wrap(apperr.KindInternal, "failed to generate refresh token", err)
	}
	expiresAt := time.Now().Add(s.cfg.GetRefreshTokenTTL())
	if err := s.repo.CreateRefreshToken(ctx, user.ID, token.HashSHA256(refreshToken), expiresAt); err != nil {
		return transport.TokenResponse{}, err
	}

	return transport.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *Service) signAccessToken(user repository.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"type":  accessTokenType,
		"roles": user.Roles,
		"exp":   now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
		"iat":   now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}

func toUserResponse(user repository.User) transport.UserResponse {
	return transport.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Roles:     user.Roles,
		CreatedAt: user.CreatedAt,
	}
}
