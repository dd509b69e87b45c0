package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"zchat/internal/domain"
	"zchat/internal/security"
)

var ErrBadCredentials = errors.New("incorrect username or password")

// AuthService handles registration and login.
type AuthService struct {
	users  domain.UserRepository
	tokens *security.TokenService
	hash   *security.PasswordHasher
}

func NewAuthService(users domain.UserRepository, tokens *security.TokenService, hash *security.PasswordHasher) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		hash:   hash,
	}
}

type RegisterInput struct {
	Username string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type TokenResponse struct {
	AccessToken           string       `json:"access_token"`
	AccessTokenExpiredAt  time.Time    `json:"access_token_expired_at"`
	RefreshToken          string       `json:"refresh_token"`
	RefreshTokenExpiredAt time.Time    `json:"refresh_token_expired_at"`
	TokenType             string       `json:"token_type"`
	User                  *domain.User `json:"user"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}

	existing, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil && existing != nil:
		return nil, domain.ErrConflict
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("check username: %w", err)
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:       username,
		HashedPassword: hashed,
		IsActive:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(in.Username))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrBadCredentials
	}
	if err := s.hash.Verify(in.Password, user.HashedPassword); err != nil {
		return nil, ErrBadCredentials
	}

	return s.issue(user)
}

// Refresh exchanges a refresh token for a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	user, err := s.resolve(ctx, refreshToken, security.TypeRefresh)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Authenticate resolves a bearer access token to an active user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	return s.resolve(ctx, token, security.TypeAccess)
}

func (s *AuthService) issue(user *domain.User) (*TokenResponse, error) {
	pair, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}
	return &TokenResponse{
		AccessToken:           pair.AccessToken,
		AccessTokenExpiredAt:  pair.AccessExpiresAt,
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiredAt: pair.RefreshExpiresAt,
		TokenType:             "bearer",
		User:                  user,
	}, nil
}

func (s *AuthService) resolve(ctx context.Context, token, tokenType string) (*domain.User, error) {
	claims, err := s.tokens.Parse(token, tokenType)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive || user.Username != claims.Subject {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}
