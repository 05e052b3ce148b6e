package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/app/models"
	database "github.com/looquest/looquest/internal/db"
)

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, p UpdateProfileParams) (*models.User, error)

	AddPoints(ctx context.Context, id uuid.UUID, points int) error
	// AddBadge appends a badge if the user does not already hold it.
	AddBadge(ctx context.Context, id uuid.UUID, badge string) error

	CountReviews(ctx context.Context, userID uuid.UUID) (int, error)
	CountRestrooms(ctx context.Context, userID uuid.UUID) (int, error)
	GetStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)

	// Anonymize blanks personal fields and deactivates the account while
	// keeping the row so reviews and restrooms stay attributable to an ID.
	Anonymize(ctx context.Context, id uuid.UUID) error
}

// UpdateProfileParams carries the profile fields a user may change.
// Nil means "leave as is".
type UpdateProfileParams struct {
	Username    *string
	DisplayName *string
	AvatarURL   *string
}

type RepositoryImpl struct {
	logger *zap.Logger
	pgpool database.PGX
}

func NewRepository(pgpool database.PGX, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

const userColumns = `id, username, email, password_hash, display_name, avatar_url,
	role, points, badges, is_active, created_at, updated_at, last_login_at`

func scanUser(row pgx.Row, u *models.User) error {
	return row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName,
		&u.AvatarURL, &u.Role, &u.Points, &u.Badges, &u.IsActive,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
}

func (r *RepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := scanUser(r.pgpool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id), &u)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s not found: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("database error fetching user: %w", models.ErrStoreUnavailable)
	}
	return &u, nil
}

func (r *RepositoryImpl) UpdateProfile(ctx context.Context, id uuid.UUID, p UpdateProfileParams) (*models.User, error) {
	query := `
		UPDATE users SET
			username = COALESCE($2, username),
			display_name = COALESCE($3, display_name),
			avatar_url = COALESCE($4, avatar_url),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	var u models.User
	err := scanUser(r.pgpool.QueryRow(ctx, query, id, p.Username, p.DisplayName, p.AvatarURL), &u)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s not found: %w", id, models.ErrNotFound)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("username already taken: %w", models.ErrConflict)
		}
		r.logger.Error("Error updating profile", zap.Error(err), zap.String("user_id", id.String()))
		return nil, fmt.Errorf("database error updating profile: %w", models.ErrStoreUnavailable)
	}
	return &u, nil
}

func (r *RepositoryImpl) AddPoints(ctx context.Context, id uuid.UUID, points int) error {
	tag, err := r.pgpool.Exec(ctx,
		`UPDATE users SET points = points + $2, updated_at = NOW() WHERE id = $1`, id, points)
	if err != nil {
		r.logger.Error("Error adding points", zap.Error(err), zap.String("user_id", id.String()))
		return fmt.Errorf("database error adding points: %w", models.ErrStoreUnavailable)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *RepositoryImpl) AddBadge(ctx context.Context, id uuid.UUID, badge string) error {
	_, err := r.pgpool.Exec(ctx,
		`UPDATE users SET badges = array_append(badges, $2), updated_at = NOW()
		 WHERE id = $1 AND NOT ($2 = ANY(badges))`, id, badge)
	if err != nil {
		r.logger.Error("Error adding badge", zap.Error(err), zap.String("badge", badge))
		return fmt.Errorf("database error adding badge: %w", models.ErrStoreUnavailable)
	}
	return nil
}

func (r *RepositoryImpl) CountReviews(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pgpool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reviews WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("database error counting reviews: %w", models.ErrStoreUnavailable)
	}
	return count, nil
}

func (r *RepositoryImpl) CountRestrooms(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pgpool.QueryRow(ctx,
		`SELECT COUNT(*) FROM restrooms WHERE created_by = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("database error counting restrooms: %w", models.ErrStoreUnavailable)
	}
	return count, nil
}

func (r *RepositoryImpl) GetStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	query := `
		SELECT u.id, u.points, u.badges,
			(SELECT COUNT(*) FROM reviews rv WHERE rv.user_id = u.id),
			(SELECT COUNT(*) FROM restrooms rm WHERE rm.created_by = u.id),
			(SELECT COUNT(*) FROM favorites f WHERE f.user_id = u.id),
			(SELECT COALESCE(SUM(rv.helpful_count), 0) FROM reviews rv WHERE rv.user_id = u.id)
		FROM users u WHERE u.id = $1`

	var st models.UserStats
	err := r.pgpool.QueryRow(ctx, query, userID).Scan(&st.UserID, &st.Points, &st.Badges,
		&st.ReviewCount, &st.RestroomCount, &st.FavoriteCount, &st.HelpfulReceived)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s not found: %w", userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("database error fetching stats: %w", models.ErrStoreUnavailable)
	}
	return &st, nil
}

func (r *RepositoryImpl) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	query := `
		SELECT u.id, u.username, u.display_name, u.points,
			(SELECT COUNT(*) FROM reviews rv WHERE rv.user_id = u.id) AS review_count,
			RANK() OVER (ORDER BY u.points DESC) AS rank
		FROM users u
		WHERE u.is_active
		ORDER BY u.points DESC, u.id ASC
		LIMIT $1`

	rows, err := r.pgpool.Query(ctx, query, limit)
	if err != nil {
		r.logger.Error("Error loading leaderboard", zap.Error(err))
		return nil, fmt.Errorf("database error loading leaderboard: %w", models.ErrStoreUnavailable)
	}
	defer rows.Close()

	entries := make([]models.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.DisplayName, &e.Points, &e.ReviewCount, &e.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leaderboard row iteration failed: %w", err)
	}
	return entries, nil
}

func (r *RepositoryImpl) Anonymize(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users SET
			username = 'deleted_' || LEFT(id::text, 8),
			email = id::text || '@deleted.invalid',
			password_hash = '',
			display_name = NULL,
			avatar_url = NULL,
			is_active = FALSE,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := r.pgpool.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Error anonymizing user", zap.Error(err), zap.String("user_id", id.String()))
		return fmt.Errorf("database error anonymizing user: %w", models.ErrStoreUnavailable)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found: %w", id, models.ErrNotFound)
	}
	return nil
}
