package favorites

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/app/models"
	database "github.com/looquest/looquest/internal/db"
)

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	Add(ctx context.Context, userID, restroomID uuid.UUID) (*models.Favorite, error)
	Remove(ctx context.Context, userID, restroomID uuid.UUID) error
	// ListRestrooms returns the user's favorited restrooms, newest first.
	ListRestrooms(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Restroom, error)
	IsFavorite(ctx context.Context, userID, restroomID uuid.UUID) (bool, error)
}

type RepositoryImpl struct {
	logger *zap.Logger
	pgpool database.PGX
}

func NewRepository(pgpool database.PGX, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

func (r *RepositoryImpl) Add(ctx context.Context, userID, restroomID uuid.UUID) (*models.Favorite, error) {
	query := `
		INSERT INTO favorites (user_id, restroom_id)
		VALUES ($1, $2)
		RETURNING id, user_id, restroom_id, created_at`

	var f models.Favorite
	err := r.pgpool.QueryRow(ctx, query, userID, restroomID).
		Scan(&f.ID, &f.UserID, &f.RestroomID, &f.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return nil, fmt.Errorf("restroom already favorited: %w", models.ErrConflict)
			case "23503":
				return nil, fmt.Errorf("restroom does not exist: %w", models.ErrNotFound)
			}
		}
		r.logger.Error("Error inserting favorite", zap.Error(err))
		return nil, fmt.Errorf("database error adding favorite: %w", models.ErrStoreUnavailable)
	}
	return &f, nil
}

func (r *RepositoryImpl) Remove(ctx context.Context, userID, restroomID uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND restroom_id = $2`, userID, restroomID)
	if err != nil {
		r.logger.Error("Error deleting favorite", zap.Error(err))
		return fmt.Errorf("database error removing favorite: %w", models.ErrStoreUnavailable)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("favorite not found: %w", models.ErrNotFound)
	}
	return nil
}

func (r *RepositoryImpl) ListRestrooms(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Restroom, error) {
	query := `
		SELECT r.id, r.name, r.description, r.latitude, r.longitude, r.address, r.city,
			r.country, r.accessibility, r.has_baby_changing, r.is_gender_neutral,
			r.requires_fee, r.requires_key, r.is_24_hours, r.opening_hours, r.source,
			r.source_id, r.status, r.is_verified, r.avg_overall, r.avg_cleanliness,
			r.avg_accessibility, r.avg_privacy, r.avg_safety, r.avg_lighting,
			r.review_count, r.created_by, r.created_at, r.updated_at
		FROM favorites f
		JOIN restrooms r ON r.id = f.restroom_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC, f.id ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.pgpool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Error listing favorites", zap.Error(err))
		return nil, fmt.Errorf("database error listing favorites: %w", models.ErrStoreUnavailable)
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
			return nil, fmt.Errorf("failed to scan favorite row: %w", err)
		}
		restrooms = append(restrooms, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("favorite row iteration failed: %w", err)
	}
	return restrooms, nil
}

func (r *RepositoryImpl) IsFavorite(ctx context.Context, userID, restroomID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pgpool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM favorites WHERE user_id = $1 AND restroom_id = $2)`,
		userID, restroomID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("database error checking favorite: %w", models.ErrStoreUnavailable)
	}
	return exists, nil
}
