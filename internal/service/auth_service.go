package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/adoption-service/internal/auth"
	"github.com/spec-kit/adoption-service/internal/config"
	"github.com/spec-kit/adoption-service/internal/domain"
	"github.com/spec-kit/adoption-service/internal/repository"
	apperrors "github.com/spec-kit/adoption-service/pkg/util/errorutil"
)

const (
	msgEmailRegistered    = "Email already registered"
	msgMissingCredentials = "Please provide email and password"
	msgInvalidCredentials = "Invalid email or password"
)

// RegisterInput describes a new account.
type RegisterInput struct {
	FullName string
	Email    string
	Phone    string
	Password string
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
	}
}

// Register creates a user account with the user role and signs a token for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, domain.IssuedToken, error) {
	user, err := s.createUser(ctx, in, domain.RoleUser)
	if err != nil {
		return nil, domain.IssuedToken{}, err
	}
	token, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, domain.IssuedToken{}, apperrors.NewInternalError(err)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return user, token, nil
}

// Login authenticates a user. Unknown emails and wrong passwords produce the
// same error and take comparable time.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, domain.IssuedToken, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.IssuedToken{}, apperrors.NewValidationError(msgMissingCredentials, nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		_ = auth.ComparePassword(s.timingHash(), password)
		s.logger.Warn("login failed: unknown email", zap.String("email", email))
		return nil, domain.IssuedToken{}, apperrors.NewUnauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return nil, domain.IssuedToken{}, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Warn("login failed: wrong password", zap.String("user_id", user.ID))
		return nil, domain.IssuedToken{}, apperrors.NewUnauthorized(msgInvalidCredentials)
	}

	token, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, domain.IssuedToken{}, apperrors.NewInternalError(err)
	}
	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return user, token, nil
}

// EnsureAdmin creates an admin account, or promotes the existing account with
// that email. The returned flag reports whether a new account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, in RegisterInput) (*domain.User, bool, error) {
	existing, err := s.users.GetByEmail(ctx, normalizeEmail(in.Email))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		user, err := s.createUser(ctx, in, domain.RoleAdmin)
		if err != nil {
			return nil, false, err
		}
		s.logger.Info("admin created", zap.String("user_id", user.ID))
		return user, true, nil
	case err != nil:
		return nil, false, apperrors.NewInternalError(err)
	}

	existing.Role = domain.RoleAdmin
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password, s.bcryptCost)
		if err != nil {
			return nil, false, apperrors.NewInternalError(err)
		}
		existing.PasswordHash = hash
	}
	if err := s.users.Update(ctx, existing); err != nil {
		return nil, false, apperrors.NewInternalError(err)
	}
	s.logger.Info("user promoted to admin", zap.String("user_id", existing.ID))
	return existing, false, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) createUser(ctx context.Context, in RegisterInput, role domain.Role) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		s.logger.Warn("registration rejected: email exists", zap.String("email", email))
		return nil, apperrors.NewConflict(msgEmailRegistered, nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		FullName:     strings.TrimSpace(in.FullName),
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict(msgEmailRegistered, nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

func (s *AuthService) timingHash() string {
	s.dummyOnce.Do(func() {
		hash, err := auth.HashPassword("timing-equaliser", s.bcryptCost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
