package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/app/models"
	database "github.com/looquest/looquest/internal/db"
)

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	// CreateUser stores a new user with a hashed password.
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, newPasswordHash string) error
	RecordLogin(ctx context.Context, userID uuid.UUID) error

	StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	// ValidateRefreshToken checks a token hash and returns the owning user ID.
	ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error)
	InvalidateRefreshToken(ctx context.Context, tokenHash string) error
	InvalidateAllUserRefreshTokens(ctx context.Context, userID uuid.UUID) error
}

type RepositoryImpl struct {
	logger *zap.Logger
	pgpool database.PGX
}

func NewRepository(pgpool database.PGX, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

const userColumns = `id, username, email, password_hash, display_name, avatar_url, role,
		points, badges, is_active, created_at, updated_at, last_login_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName,
		&u.AvatarURL, &u.Role, &u.Points, &u.Badges, &u.IsActive,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *RepositoryImpl) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, username, email, passwordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("email or username already exists: %w", models.ErrConflict)
		}
		r.logger.Error("Error inserting user", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("database error registering user: %w", err)
	}
	return user, nil
}

func (r *RepositoryImpl) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND is_active = TRUE`
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user with email %s not found: %w", email, models.ErrNotFound)
		}
		r.logger.Error("Error fetching user by email", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}
	return user, nil
}

func (r *RepositoryImpl) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_active = TRUE`
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s not found: %w", userID, models.ErrNotFound)
		}
		r.logger.Error("Error fetching user by ID", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("database error fetching user by ID: %w", err)
	}
	return user, nil
}

func (r *RepositoryImpl) UpdatePassword(ctx context.Context, userID uuid.UUID, newPasswordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2 AND is_active = TRUE`
	tag, err := r.pgpool.Exec(ctx, query, newPasswordHash, userID)
	if err != nil {
		r.logger.Error("Error updating password hash", zap.Error(err), zap.String("user_id", userID.String()))
		return fmt.Errorf("database error updating password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %w", models.ErrNotFound)
	}
	return nil
}

func (r *RepositoryImpl) RecordLogin(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE users SET last_login_at = NOW() WHERE id = $1`
	if _, err := r.pgpool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("database error recording login: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	query := `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES ($1, $2, $3)`
	if _, err := r.pgpool.Exec(ctx, query, userID, tokenHash, expiresAt); err != nil {
		r.logger.Error("Error storing refresh token", zap.Error(err), zap.String("user_id", userID.String()))
		return fmt.Errorf("database error storing refresh token: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	var (
		userID    uuid.UUID
		expiresAt time.Time
		revokedAt *time.Time
	)
	query := `SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash = $1`
	err := r.pgpool.QueryRow(ctx, query, tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("refresh token not found: %w", models.ErrUnauthenticated)
		}
		r.logger.Error("Error querying refresh token", zap.Error(err))
		return uuid.Nil, fmt.Errorf("database error validating refresh token: %w", err)
	}

	if revokedAt != nil {
		return uuid.Nil, fmt.Errorf("refresh token has been revoked: %w", models.ErrUnauthenticated)
	}
	if time.Now().After(expiresAt) {
		return uuid.Nil, fmt.Errorf("refresh token has expired: %w", models.ErrUnauthenticated)
	}
	return userID, nil
}

func (r *RepositoryImpl) InvalidateRefreshToken(ctx context.Context, tokenHash string) error {
	query := `UPDATE refresh_tokens SET revoked_at = NOW() WHERE token_hash = $1 AND revoked_at IS NULL`
	if _, err := r.pgpool.Exec(ctx, query, tokenHash); err != nil {
		r.logger.Error("Error invalidating refresh token", zap.Error(err))
		return fmt.Errorf("database error invalidating token: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) InvalidateAllUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`
	if _, err := r.pgpool.Exec(ctx, query, userID); err != nil {
		r.logger.Error("Error invalidating refresh tokens", zap.Error(err), zap.String("user_id", userID.String()))
		return fmt.Errorf("database error invalidating tokens: %w", err)
	}
	return nil
}
