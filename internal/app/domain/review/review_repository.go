package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/app/models"
	database "github.com/looquest/looquest/internal/db"
)

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	Create(ctx context.Context, rv *models.Review) (*models.Review, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	ListByRestroom(ctx context.Context, restroomID uuid.UUID, limit, offset int) ([]models.Review, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// AddHelpfulVote records a helpful vote and bumps the counter. Returns
	// the review author so callers can credit them.
	AddHelpfulVote(ctx context.Context, reviewID, voterID uuid.UUID) (authorID uuid.UUID, err error)

	// GetAggregates reads the denormalized rating summary straight off the
	// restroom row. No locks taken; this is the public read path.
	GetAggregates(ctx context.Context, restroomID uuid.UUID) (*models.RestroomAggregates, error)

	// RecomputeAggregates recalculates the cached rating aggregates for one
	// restroom inside a transaction that locks the restroom row, so
	// concurrent recomputes for the same restroom serialize.
	RecomputeAggregates(ctx context.Context, restroomID uuid.UUID) (*models.RestroomAggregates, error)
}

type RepositoryImpl struct {
	logger *zap.Logger
	pgpool database.PGX
}

func NewRepository(pgpool database.PGX, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

const reviewColumns = `id, restroom_id, user_id, rating_overall, rating_cleanliness,
		rating_accessibility, rating_privacy, rating_safety, rating_lighting,
		comment, photo_urls, helpful_count, created_at, updated_at`

func scanReview(row pgx.Row, rv *models.Review) error {
	return row.Scan(&rv.ID, &rv.RestroomID, &rv.UserID, &rv.RatingOverall,
		&rv.RatingCleanliness, &rv.RatingAccessibility, &rv.RatingPrivacy,
		&rv.RatingSafety, &rv.RatingLighting, &rv.Comment, &rv.PhotoURLs,
		&rv.HelpfulCount, &rv.CreatedAt, &rv.UpdatedAt)
}

func (r *RepositoryImpl) Create(ctx context.Context, rv *models.Review) (*models.Review, error) {
	query := `
		INSERT INTO reviews (restroom_id, user_id, rating_overall, rating_cleanliness,
			rating_accessibility, rating_privacy, rating_safety, rating_lighting,
			comment, photo_urls)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + reviewColumns

	var out models.Review
	err := scanReview(r.pgpool.QueryRow(ctx, query,
		rv.RestroomID, rv.UserID, rv.RatingOverall, rv.RatingCleanliness,
		rv.RatingAccessibility, rv.RatingPrivacy, rv.RatingSafety,
		rv.RatingLighting, rv.Comment, rv.PhotoURLs), &out)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return nil, fmt.Errorf("user already reviewed this restroom: %w", models.ErrConflict)
			case "23503":
				return nil, fmt.Errorf("restroom does not exist: %w", models.ErrNotFound)
			}
		}
		r.logger.Error("Error inserting review", zap.Error(err))
		return nil, fmt.Errorf("database error creating review: %w", models.ErrStoreUnavailable)
	}
	return &out, nil
}

func (r *RepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`
	var out models.Review
	if err := scanReview(r.pgpool.QueryRow(ctx, query, id), &out); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("review %s not found: %w", id, models.ErrNotFound)
		}
		r.logger.Error("Error fetching review", zap.Error(err), zap.String("review_id", id.String()))
		return nil, fmt.Errorf("database error fetching review: %w", models.ErrStoreUnavailable)
	}
	return &out, nil
}

func (r *RepositoryImpl) listReviews(ctx context.Context, query string, args ...any) ([]models.Review, error) {
	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Error listing reviews", zap.Error(err))
		return nil, fmt.Errorf("database error listing reviews: %w", models.ErrStoreUnavailable)
	}
	defer rows.Close()

	reviews := make([]models.Review, 0)
	for rows.Next() {
		var rv models.Review
		if err := scanReview(rows, &rv); err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("review row iteration failed: %w", err)
	}
	return reviews, nil
}

func (r *RepositoryImpl) ListByRestroom(ctx context.Context, restroomID uuid.UUID, limit, offset int) ([]models.Review, error) {
	query := `SELECT ` + reviewColumns + `
		FROM reviews WHERE restroom_id = $1
		ORDER BY created_at DESC, id ASC LIMIT $2 OFFSET $3`
	return r.listReviews(ctx, query, restroomID, limit, offset)
}

func (r *RepositoryImpl) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Review, error) {
	query := `SELECT ` + reviewColumns + `
		FROM reviews WHERE user_id = $1
		ORDER BY created_at DESC, id ASC LIMIT $2 OFFSET $3`
	return r.listReviews(ctx, query, userID, limit, offset)
}

func (r *RepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pgpool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Error deleting review", zap.Error(err), zap.String("review_id", id.String()))
		return fmt.Errorf("database error deleting review: %w", models.ErrStoreUnavailable)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("review %s not found: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *RepositoryImpl) AddHelpfulVote(ctx context.Context, reviewID, voterID uuid.UUID) (uuid.UUID, error) {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("database error starting vote: %w", models.ErrStoreUnavailable)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO review_helpful_votes (review_id, user_id) VALUES ($1, $2)`,
		reviewID, voterID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return uuid.Nil, fmt.Errorf("already voted on this review: %w", models.ErrConflict)
			case "23503":
				return uuid.Nil, fmt.Errorf("review does not exist: %w", models.ErrNotFound)
			}
		}
		r.logger.Error("Error inserting helpful vote", zap.Error(err))
		return uuid.Nil, fmt.Errorf("database error recording vote: %w", models.ErrStoreUnavailable)
	}

	var authorID uuid.UUID
	err = tx.QueryRow(ctx,
		`UPDATE reviews SET helpful_count = helpful_count + 1 WHERE id = $1 RETURNING user_id`,
		reviewID).Scan(&authorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("review %s not found: %w", reviewID, models.ErrNotFound)
		}
		return uuid.Nil, fmt.Errorf("database error updating helpful count: %w", models.ErrStoreUnavailable)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("database error committing vote: %w", models.ErrStoreUnavailable)
	}
	return authorID, nil
}

func (r *RepositoryImpl) GetAggregates(ctx context.Context, restroomID uuid.UUID) (*models.RestroomAggregates, error) {
	query := `
		SELECT avg_overall, avg_cleanliness, avg_accessibility,
			avg_privacy, avg_safety, avg_lighting, review_count
		FROM restrooms WHERE id = $1`

	agg := models.RestroomAggregates{RestroomID: restroomID}
	err := r.pgpool.QueryRow(ctx, query, restroomID).Scan(&agg.AvgOverall,
		&agg.AvgCleanliness, &agg.AvgAccessibility, &agg.AvgPrivacy,
		&agg.AvgSafety, &agg.AvgLighting, &agg.ReviewCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("restroom %s not found: %w", restroomID, models.ErrNotFound)
		}
		r.logger.Error("Error reading aggregates", zap.Error(err), zap.String("restroom_id", restroomID.String()))
		return nil, fmt.Errorf("database error reading aggregates: %w", models.ErrStoreUnavailable)
	}
	return &agg, nil
}

// RecomputeAggregates reads every review of the restroom under a row lock
// and writes the recomputed averages back in the same transaction.
func (r *RepositoryImpl) RecomputeAggregates(ctx context.Context, restroomID uuid.UUID) (*models.RestroomAggregates, error) {
	ctx, span := otel.Tracer("looquest/review").Start(ctx, "ReviewRepository.RecomputeAggregates", trace.WithAttributes(
		attribute.String("restroom.id", restroomID.String()),
	))
	defer span.End()

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error starting recompute: %w", models.ErrStoreUnavailable)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var lockedID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM restrooms WHERE id = $1 FOR UPDATE`, restroomID).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("restroom %s not found: %w", restroomID, models.ErrNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("database error locking restroom: %w", models.ErrStoreUnavailable)
	}

	rows, err := tx.Query(ctx, `
		SELECT rating_overall, rating_cleanliness, rating_accessibility,
			rating_privacy, rating_safety, rating_lighting
		FROM reviews WHERE restroom_id = $1`, restroomID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading ratings: %w", models.ErrStoreUnavailable)
	}

	var samples []RatingSample
	for rows.Next() {
		var s RatingSample
		if err := rows.Scan(&s.Overall, &s.Cleanliness, &s.Accessibility,
			&s.Privacy, &s.Safety, &s.Lighting); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan rating row: %w", err)
		}
		samples = append(samples, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rating row iteration failed: %w", err)
	}

	agg := ComputeAggregates(restroomID, samples)

	_, err = tx.Exec(ctx, `
		UPDATE restrooms SET
			avg_overall = $2, avg_cleanliness = $3, avg_accessibility = $4,
			avg_privacy = $5, avg_safety = $6, avg_lighting = $7,
			review_count = $8, updated_at = NOW()
		WHERE id = $1`,
		restroomID, agg.AvgOverall, agg.AvgCleanliness, agg.AvgAccessibility,
		agg.AvgPrivacy, agg.AvgSafety, agg.AvgLighting, agg.ReviewCount)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error writing aggregates: %w", models.ErrStoreUnavailable)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("database error committing recompute: %w", models.ErrStoreUnavailable)
	}

	span.SetAttributes(attribute.Int("aggregates.review_count", agg.ReviewCount))
	span.SetStatus(codes.Ok, "Aggregates recomputed")
	return &agg, nil
}
