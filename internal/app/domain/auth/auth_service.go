package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/looquest/looquest/internal/app/models"
	"github.com/looquest/looquest/internal/pkg/config"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the authentication business logic contract.
type Service interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (accessToken string, refreshToken string, user *models.User, err error)
	RefreshSession(ctx context.Context, refreshToken string) (accessToken string, newRefreshToken string, err error)
	Logout(ctx context.Context, refreshToken string) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type ServiceImpl struct {
	logger *zap.Logger
	repo   Repository
	cfg    *config.Config
}

func NewService(repo Repository, cfg *config.Config, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo, cfg: cfg}
}

func (s *ServiceImpl) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	l := s.logger.With(zap.String("method", "Register"), zap.String("email", email))

	ctx, span := otel.Tracer("looquest/auth").Start(ctx, "AuthService.Register", trace.WithAttributes(
		attribute.String("username", username),
	))
	defer span.End()

	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters: %w", models.ErrInvalidArgument)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Password hashing failed")
		return nil, fmt.Errorf("could not process password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, username, email, string(hashed))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Repository registration failed")
		return nil, err
	}

	l.Info("Registration successful", zap.String("user_id", user.ID.String()))
	span.SetStatus(codes.Ok, "User registered")
	return user, nil
}

func (s *ServiceImpl) Login(ctx context.Context, email, password string) (string, string, *models.User, error) {
	l := s.logger.With(zap.String("method", "Login"))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		// Do not reveal whether the user exists or the password is wrong.
		return "", "", nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthenticated)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		l.Warn("Password comparison failed", zap.String("user_id", user.ID.String()))
		return "", "", nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthenticated)
	}

	accessToken, refreshToken, err := s.issueTokens(ctx, user)
	if err != nil {
		return "", "", nil, err
	}

	if err := s.repo.RecordLogin(ctx, user.ID); err != nil {
		l.Warn("Failed to record login time", zap.Error(err))
	}

	l.Info("Login successful", zap.String("user_id", user.ID.String()))
	return accessToken, refreshToken, user, nil
}

// RefreshSession validates a refresh token, rotates it and issues new tokens.
func (s *ServiceImpl) RefreshSession(ctx context.Context, refreshToken string) (string, string, error) {
	l := s.logger.With(zap.String("method", "RefreshSession"))

	oldHash := HashRefreshToken(refreshToken)
	userID, err := s.repo.ValidateRefreshToken(ctx, oldHash)
	if err != nil {
		l.Warn("Refresh token validation failed", zap.Error(err))
		return "", "", err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		// The token pointed at a missing or deactivated user. Kill it.
		_ = s.repo.InvalidateRefreshToken(ctx, oldHash)
		return "", "", fmt.Errorf("user unavailable during refresh: %w", models.ErrUnauthenticated)
	}

	accessToken, newRefreshToken, err := s.issueTokens(ctx, user)
	if err != nil {
		return "", "", err
	}

	if err := s.repo.InvalidateRefreshToken(ctx, oldHash); err != nil {
		// Fail closed: handing out new tokens while the old refresh token
		// stays usable would leave two live sessions from one grant.
		l.Error("Failed to invalidate old refresh token during rotation", zap.Error(err))
		return "", "", fmt.Errorf("could not revoke previous session: %w", models.ErrStoreUnavailable)
	}

	l.Info("Token refresh successful", zap.String("user_id", user.ID.String()))
	return accessToken, newRefreshToken, nil
}

func (s *ServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	if err := s.repo.InvalidateRefreshToken(ctx, HashRefreshToken(refreshToken)); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return nil
}

// UpdatePassword verifies the old password, stores the new hash and revokes
// every active session.
func (s *ServiceImpl) UpdatePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	l := s.logger.With(zap.String("method", "UpdatePassword"), zap.String("user_id", userID.String()))

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return fmt.Errorf("incorrect old password: %w", models.ErrUnauthenticated)
	}

	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters: %w", models.ErrInvalidArgument)
	}
	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("could not process new password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, userID, string(newHash)); err != nil {
		return err
	}

	if err := s.repo.InvalidateAllUserRefreshTokens(ctx, userID); err != nil {
		l.Warn("Failed to invalidate refresh tokens after password update", zap.Error(err))
	}

	l.Info("Password updated successfully")
	return nil
}

func (s *ServiceImpl) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

func (s *ServiceImpl) issueTokens(ctx context.Context, user *models.User) (string, string, error) {
	accessToken, err := GenerateAccessToken(s.cfg.JWT.Secret, s.cfg.JWT.AccessTokenTTL, user)
	if err != nil {
		return "", "", fmt.Errorf("app error generating tokens: %w", err)
	}

	refreshToken := uuid.NewString()
	expiresAt := time.Now().Add(s.cfg.JWT.RefreshTokenTTL)
	if err := s.repo.StoreRefreshToken(ctx, user.ID, HashRefreshToken(refreshToken), expiresAt); err != nil {
		return "", "", fmt.Errorf("app error storing session: %w", err)
	}
	return accessToken, refreshToken, nil
}
