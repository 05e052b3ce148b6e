package admin

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/app/models"
	database "github.com/looquest/looquest/internal/db"
)

var _ Repository = (*RepositoryImpl)(nil)

// Dashboard is the admin landing-page summary.
type Dashboard struct {
	TotalUsers      int                       `json:"total_users"`
	TotalRestrooms  int                       `json:"total_restrooms"`
	TotalReviews    int                       `json:"total_reviews"`
	OpenReports     int                       `json:"open_reports"`
	NewUsers7d      int                       `json:"new_users_7d"`
	NewRestrooms7d  int                       `json:"new_restrooms_7d"`
	NewReviews7d    int                       `json:"new_reviews_7d"`
	TopContributors []models.LeaderboardEntry `json:"top_contributors"`
}

// CityActivity is one row of the analytics top-cities breakdown.
type CityActivity struct {
	City          string `json:"city"`
	Country       string `json:"country"`
	RestroomCount int    `json:"restroom_count"`
	ReviewCount   int    `json:"review_count"`
}

// Analytics summarizes activity inside a rolling window.
type Analytics struct {
	PeriodDays      int            `json:"period_days"`
	NewUsers        int            `json:"new_users"`
	NewRestrooms    int            `json:"new_restrooms"`
	NewReviews      int            `json:"new_reviews"`
	NewReports      int            `json:"new_reports"`
	AutoClosedCount int            `json:"auto_closed_count"`
	TopCities       []CityActivity `json:"top_cities"`
}

// UserFilter narrows the admin user listing. Zero values mean no constraint.
type UserFilter struct {
	Search string
	Role   *models.UserRole
	Active *bool
	Limit  int
	Offset int
}

// RestroomFilter narrows the admin restroom listing.
type RestroomFilter struct {
	Status   *models.RestroomStatus
	Source   *models.RestroomSource
	Verified *bool
	City     *string
	Limit    int
	Offset   int
}

// UserUpdate is the admin-editable slice of a user row.
type UserUpdate struct {
	Role   *models.UserRole
	Active *bool
}

type Repository interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	Analytics(ctx context.Context, periodDays int) (*Analytics, error)

	ListUsers(ctx context.Context, f UserFilter) ([]models.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, u UserUpdate) error

	ListRestrooms(ctx context.Context, f RestroomFilter) ([]models.Restroom, error)
	DeleteRestroom(ctx context.Context, id uuid.UUID) error
	BulkSetVerified(ctx context.Context, ids []uuid.UUID, verified bool) (int, error)
	BulkSetStatus(ctx context.Context, ids []uuid.UUID, status models.RestroomStatus) (int, error)
}

type RepositoryImpl struct {
	logger *zap.Logger
	pgpool database.PGX
}

func NewRepository(pgpool database.PGX, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

func (r *RepositoryImpl) Dashboard(ctx context.Context) (*Dashboard, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM restrooms),
			(SELECT COUNT(*) FROM reviews),
			(SELECT COUNT(*) FROM reports WHERE status = 'open'),
			(SELECT COUNT(*) FROM users WHERE created_at >= NOW() - INTERVAL '7 days'),
			(SELECT COUNT(*) FROM restrooms WHERE created_at >= NOW() - INTERVAL '7 days'),
			(SELECT COUNT(*) FROM reviews WHERE created_at >= NOW() - INTERVAL '7 days')`

	var d Dashboard
	err := r.pgpool.QueryRow(ctx, query).Scan(&d.TotalUsers, &d.TotalRestrooms,
		&d.TotalReviews, &d.OpenReports, &d.NewUsers7d, &d.NewRestrooms7d, &d.NewReviews7d)
	if err != nil {
		r.logger.Error("Error loading dashboard counts", zap.Error(err))
		return nil, fmt.Errorf("database error loading dashboard: %w", models.ErrStoreUnavailable)
	}

	rows, err := r.pgpool.Query(ctx, `
		SELECT u.id, u.username, u.display_name, u.points,
			(SELECT COUNT(*) FROM reviews rv WHERE rv.user_id = u.id),
			RANK() OVER (ORDER BY u.points DESC)
		FROM users u
		WHERE u.is_active
		ORDER BY u.points DESC, u.id ASC
		LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("database error loading contributors: %w", models.ErrStoreUnavailable)
	}
	defer rows.Close()

	d.TopContributors = make([]models.LeaderboardEntry, 0, 5)
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.DisplayName, &e.Points, &e.ReviewCount, &e.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan contributor row: %w", err)
		}
		d.TopContributors = append(d.TopContributors, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("contributor row iteration failed: %w", err)
	}
	return &d, nil
}

func (r *RepositoryImpl) Analytics(ctx context.Context, periodDays int) (*Analytics, error) {
	since := time.Now().AddDate(0, 0, -periodDays)

	query := `
		SELECT
			(SELECT COUNT(*) FROM users WHERE created_at >= $1),
			(SELECT COUNT(*) FROM restrooms WHERE created_at >= $1),
			(SELECT COUNT(*) FROM reviews WHERE created_at >= $1),
			(SELECT COUNT(*) FROM reports WHERE created_at >= $1),
			(SELECT COUNT(*) FROM restrooms WHERE status = 'temporarily_closed' AND updated_at >= $1)`

	a := Analytics{PeriodDays: periodDays}
	err := r.pgpool.QueryRow(ctx, query, since).Scan(&a.NewUsers, &a.NewRestrooms,
		&a.NewReviews, &a.NewReports, &a.AutoClosedCount)
	if err != nil {
		r.logger.Error("Error loading analytics", zap.Error(err))
		return nil, fmt.Errorf("database error loading analytics: %w", models.ErrStoreUnavailable)
	}

	rows, err := r.pgpool.Query(ctx, `
		SELECT r.city, r.country, COUNT(DISTINCT r.id) AS restroom_count,
			COUNT(rv.id) AS review_count
		FROM restrooms r
		LEFT JOIN reviews rv ON rv.restroom_id = r.id AND rv.created_at >= $1
		WHERE r.city IS NOT NULL
		GROUP BY r.city, r.country
		ORDER BY review_count DESC, restroom_count DESC
		LIMIT 10`, since)
	if err != nil {
		return nil, fmt.Errorf("database error loading city analytics: %w", models.ErrStoreUnavailable)
	}
	defer rows.Close()

	a.TopCities = make([]CityActivity, 0, 10)
	for rows.Next() {
		var c CityActivity
		var country *string
		if err := rows.Scan(&c.City, &country, &c.RestroomCount, &c.ReviewCount); err != nil {
			return nil, fmt.Errorf("failed to scan city row: %w", err)
		}
		if country != nil {
			c.Country = *country
		}
		a.TopCities = append(a.TopCities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("city row iteration failed: %w", err)
	}
	return &a, nil
}

func (r *RepositoryImpl) ListUsers(ctx context.Context, f UserFilter) ([]models.User, error) {
	qb := sq.Select("id", "username", "email", "password_hash", "display_name", "avatar_url",
		"role", "points", "badges", "is_active", "created_at", "updated_at", "last_login_at").
		From("users").
		OrderBy("created_at DESC", "id ASC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset)).
		PlaceholderFormat(sq.Dollar)

	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		qb = qb.Where(sq.Or{sq.ILike{"username": pattern}, sq.ILike{"email": pattern}})
	}
	if f.Role != nil {
		qb = qb.Where(sq.Eq{"role": *f.Role})
	}
	if f.Active != nil {
		qb = qb.Where(sq.Eq{"is_active": *f.Active})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user list query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Error listing users", zap.Error(err))
		return nil, fmt.Errorf("database error listing users: %w", models.ErrStoreUnavailable)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName,
			&u.AvatarURL, &u.Role, &u.Points, &u.Badges, &u.IsActive,
			&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("user row iteration failed: %w", err)
	}
	return users, nil
}

func (r *RepositoryImpl) UpdateUser(ctx context.Context, id uuid.UUID, u UserUpdate) error {
	qb := sq.Update("users").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar)
	if u.Role != nil {
		qb = qb.Set("role", *u.Role)
	}
	if u.Active != nil {
		qb = qb.Set("is_active", *u.Active)
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user update query: %w", err)
	}

	tag, err := r.pgpool.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Error updating user", zap.Error(err), zap.String("user_id", id.String()))
		return fmt.Errorf("database error updating user: %w", models.ErrStoreUnavailable)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *RepositoryImpl) ListRestrooms(ctx context.Context, f RestroomFilter) ([]models.Restroom, error) {
	qb := sq.Select("id", "name", "description", "latitude", "longitude", "address", "city",
		"country", "accessibility", "has_baby_changing", "is_gender_neutral",
		"requires_fee", "requires_key", "is_24_hours", "opening_hours", "source",
		"source_id", "status", "is_verified", "avg_overall", "avg_cleanliness",
		"avg_accessibility", "avg_privacy", "avg_safety", "avg_lighting",
		"review_count", "created_by", "created_at", "updated_at").
		From("restrooms").
		OrderBy("created_at DESC", "id ASC").
		Limit(uint64(f.Limit)).
		Offset(uint64(f.Offset)).
		PlaceholderFormat(sq.Dollar)

	if f.Status != nil {
		qb = qb.Where(sq.Eq{"status": *f.Status})
	}
	if f.Source != nil {
		qb = qb.Where(sq.Eq{"source": *f.Source})
	}
	if f.Verified != nil {
		qb = qb.Where(sq.Eq{"is_verified": *f.Verified})
	}
	if f.City != nil {
		qb = qb.Where(sq.ILike{"city": *f.City})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build restroom list query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Error listing restrooms", zap.Error(err))
		return nil, fmt.Errorf("database error listing restrooms: %w", models.ErrStoreUnavailable)
	}
	defer rows.Close()

	restrooms := make([]models.Restroom, 0)
	for rows.Next() {
		var rm models.Restroom
		err := rows.Scan(&rm.ID, &rm.Name, &rm.Description, &rm.Latitude, &rm.Longitude,
			&rm.Address, &rm.City, &rm.Country, &rm.Accessibility, &rm.HasBabyChanging,
			&rm.IsGenderNeutral, &rm.RequiresFee, &rm.RequiresKey, &rm.Is24Hours,
			&rm.OpeningHours, &rm.Source, &rm.SourceID, &rm.Status, &rm.IsVerified,
			&rm.AvgOverall, &rm.AvgCleanliness, &rm.AvgAccessibility, &rm.AvgPrivacy,
			&rm.AvgSafety, &rm.AvgLighting, &rm.ReviewCount, &rm.CreatedBy,
			&rm.CreatedAt, &rm.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan restroom row: %w", err)
		}
		restrooms = append(restrooms, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("restroom row iteration failed: %w", err)
	}
	return restrooms, nil
}

func (r *RepositoryImpl) DeleteRestroom(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx, `DELETE FROM restrooms WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Error deleting restroom", zap.Error(err), zap.String("restroom_id", id.String()))
		return fmt.Errorf("database error deleting restroom: %w", models.ErrStoreUnavailable)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("restroom %s not found: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *RepositoryImpl) BulkSetVerified(ctx context.Context, ids []uuid.UUID, verified bool) (int, error) {
	tag, err := r.pgpool.Exec(ctx,
		`UPDATE restrooms SET is_verified = $2, updated_at = NOW() WHERE id = ANY($1)`,
		ids, verified)
	if err != nil {
		r.logger.Error("Error bulk verifying restrooms", zap.Error(err))
		return 0, fmt.Errorf("database error verifying restrooms: %w", models.ErrStoreUnavailable)
	}
	return int(tag.RowsAffected()), nil
}

func (r *RepositoryImpl) BulkSetStatus(ctx context.Context, ids []uuid.UUID, status models.RestroomStatus) (int, error) {
	tag, err := r.pgpool.Exec(ctx,
		`UPDATE restrooms SET status = $2, updated_at = NOW() WHERE id = ANY($1)`,
		ids, status)
	if err != nil {
		r.logger.Error("Error bulk updating restroom status", zap.Error(err))
		return 0, fmt.Errorf("database error updating restroom status: %w", models.ErrStoreUnavailable)
	}
	return int(tag.RowsAffected()), nil
}
