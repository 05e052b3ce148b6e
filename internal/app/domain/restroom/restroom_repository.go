package restroom

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
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
	Create(ctx context.Context, r *models.Restroom) (*models.Restroom, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Restroom, error)
	Update(ctx context.Context, r *models.Restroom) (*models.Restroom, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetStatus(ctx context.Context, id uuid.UUID, status models.RestroomStatus) error
	SetVerified(ctx context.Context, id uuid.UUID, verified bool) error

	// SearchNearby returns active restrooms within the radius, ordered by
	// distance, then average rating, then ID.
	SearchNearby(ctx context.Context, p models.SearchParams) ([]models.RestroomWithDistance, error)
	// SearchAlongRoute returns active restrooms within the buffer of the
	// straight line between start and end.
	SearchAlongRoute(ctx context.Context, p models.RouteSearchParams) ([]models.RestroomWithDistance, error)

	// UpsertFromSource inserts or refreshes an externally sourced restroom,
	// matched on (source, source_id).
	UpsertFromSource(ctx context.Context, r *models.Restroom) (created bool, err error)
}

type RepositoryImpl struct {
	logger *zap.Logger
	pgpool database.PGX
}

func NewRepository(pgpool database.PGX, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

const restroomColumns = `id, name, description, latitude, longitude, address, city, country,
		accessibility, has_baby_changing, is_gender_neutral, requires_fee, requires_key,
		is_24_hours, opening_hours, source, source_id, status, is_verified,
		avg_overall, avg_cleanliness, avg_accessibility, avg_privacy, avg_safety,
		avg_lighting, review_count, created_by, created_at, updated_at`

func scanRestroom(row pgx.Row, r *models.Restroom) error {
	return row.Scan(&r.ID, &r.Name, &r.Description, &r.Latitude, &r.Longitude,
		&r.Address, &r.City, &r.Country, &r.Accessibility, &r.HasBabyChanging,
		&r.IsGenderNeutral, &r.RequiresFee, &r.RequiresKey, &r.Is24Hours,
		&r.OpeningHours, &r.Source, &r.SourceID, &r.Status, &r.IsVerified,
		&r.AvgOverall, &r.AvgCleanliness, &r.AvgAccessibility, &r.AvgPrivacy,
		&r.AvgSafety, &r.AvgLighting, &r.ReviewCount, &r.CreatedBy,
		&r.CreatedAt, &r.UpdatedAt)
}

func (r *RepositoryImpl) Create(ctx context.Context, in *models.Restroom) (*models.Restroom, error) {
	ctx, span := otel.Tracer("looquest/restroom").Start(ctx, "RestroomRepository.Create", trace.WithAttributes(
		attribute.String("restroom.name", in.Name),
	))
	defer span.End()

	query := `
		INSERT INTO restrooms (name, description, latitude, longitude, location,
			address, city, country, accessibility, has_baby_changing, is_gender_neutral,
			requires_fee, requires_key, is_24_hours, opening_hours, source, source_id,
			status, created_by)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($4, $3), 4326)::geography,
			$5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING ` + restroomColumns

	var out models.Restroom
	err := scanRestroom(r.pgpool.QueryRow(ctx, query,
		in.Name, in.Description, in.Latitude, in.Longitude,
		in.Address, in.City, in.Country, in.Accessibility, in.HasBabyChanging,
		in.IsGenderNeutral, in.RequiresFee, in.RequiresKey, in.Is24Hours,
		in.OpeningHours, in.Source, in.SourceID, in.Status, in.CreatedBy), &out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database insert failed")
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("restroom already exists for source: %w", models.ErrConflict)
		}
		r.logger.Error("Error inserting restroom", zap.Error(err))
		return nil, fmt.Errorf("database error creating restroom: %w", models.ErrStoreUnavailable)
	}
	span.SetStatus(codes.Ok, "Restroom created")
	return &out, nil
}

func (r *RepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Restroom, error) {
	query := `SELECT ` + restroomColumns + ` FROM restrooms WHERE id = $1`
	var out models.Restroom
	err := scanRestroom(r.pgpool.QueryRow(ctx, query, id), &out)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("restroom %s not found: %w", id, models.ErrNotFound)
		}
		r.logger.Error("Error fetching restroom", zap.Error(err), zap.String("restroom_id", id.String()))
		return nil, fmt.Errorf("database error fetching restroom: %w", models.ErrStoreUnavailable)
	}
	return &out, nil
}

func (r *RepositoryImpl) Update(ctx context.Context, in *models.Restroom) (*models.Restroom, error) {
	query := `
		UPDATE restrooms SET
			name = $2, description = $3, latitude = $4, longitude = $5,
			location = ST_SetSRID(ST_MakePoint($5, $4), 4326)::geography,
			address = $6, city = $7, country = $8, accessibility = $9,
			has_baby_changing = $10, is_gender_neutral = $11, requires_fee = $12,
			requires_key = $13, is_24_hours = $14, opening_hours = $15,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + restroomColumns

	var out models.Restroom
	err := scanRestroom(r.pgpool.QueryRow(ctx, query,
		in.ID, in.Name, in.Description, in.Latitude, in.Longitude,
		in.Address, in.City, in.Country, in.Accessibility, in.HasBabyChanging,
		in.IsGenderNeutral, in.RequiresFee, in.RequiresKey, in.Is24Hours,
		in.OpeningHours), &out)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("restroom %s not found: %w", in.ID, models.ErrNotFound)
		}
		r.logger.Error("Error updating restroom", zap.Error(err), zap.String("restroom_id", in.ID.String()))
		return nil, fmt.Errorf("database error updating restroom: %w", models.ErrStoreUnavailable)
	}
	return &out, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
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

func (r *RepositoryImpl) SetStatus(ctx context.Context, id uuid.UUID, status models.RestroomStatus) error {
	tag, err := r.pgpool.Exec(ctx,
		`UPDATE restrooms SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		r.logger.Error("Error updating restroom status", zap.Error(err), zap.String("restroom_id", id.String()))
		return fmt.Errorf("database error updating status: %w", models.ErrStoreUnavailable)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("restroom %s not found: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *RepositoryImpl) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	tag, err := r.pgpool.Exec(ctx,
		`UPDATE restrooms SET is_verified = $2, updated_at = NOW() WHERE id = $1`, id, verified)
	if err != nil {
		r.logger.Error("Error updating restroom verification", zap.Error(err), zap.String("restroom_id", id.String()))
		return fmt.Errorf("database error updating verification: %w", models.ErrStoreUnavailable)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("restroom %s not found: %w", id, models.ErrNotFound)
	}
	return nil
}

// applyFilters adds the optional search constraints to a squirrel builder.
// Search hides permanently closed and pending listings by default;
// temporarily closed restrooms stay visible so users see why a pin exists.
func applyFilters(b sq.SelectBuilder, f models.SearchFilters) sq.SelectBuilder {
	if !f.IncludeClosed {
		b = b.Where(sq.NotEq{"status": []models.RestroomStatus{
			models.StatusPermanentlyClosed, models.StatusPending,
		}})
	}
	if f.Wheelchair != nil {
		if *f.Wheelchair {
			b = b.Where(sq.Eq{"accessibility": models.AccessibilityFull})
		} else {
			b = b.Where(sq.Eq{"accessibility": models.AccessibilityNone})
		}
	}
	if f.BabyChanging != nil && *f.BabyChanging {
		b = b.Where(sq.Eq{"has_baby_changing": true})
	}
	if f.GenderNeutral != nil && *f.GenderNeutral {
		b = b.Where(sq.Eq{"is_gender_neutral": true})
	}
	if f.FreeOnly != nil && *f.FreeOnly {
		b = b.Where(sq.Eq{"requires_fee": false})
	}
	if f.NoKey != nil && *f.NoKey {
		b = b.Where(sq.Eq{"requires_key": false})
	}
	if f.Open24Hours != nil && *f.Open24Hours {
		b = b.Where(sq.Eq{"is_24_hours": true})
	}
	if f.VerifiedOnly != nil && *f.VerifiedOnly {
		b = b.Where(sq.Eq{"is_verified": true})
	}
	if f.MinRating != nil {
		b = b.Where(sq.GtOrEq{"avg_overall": *f.MinRating})
	}
	if f.Source != nil {
		b = b.Where(sq.Eq{"source": *f.Source})
	}
	return b
}

func (r *RepositoryImpl) SearchNearby(ctx context.Context, p models.SearchParams) ([]models.RestroomWithDistance, error) {
	ctx, span := otel.Tracer("looquest/restroom").Start(ctx, "RestroomRepository.SearchNearby", trace.WithAttributes(
		attribute.Float64("search.lat", p.Latitude),
		attribute.Float64("search.lon", p.Longitude),
		attribute.Float64("search.radius_m", p.RadiusMeters),
	))
	defer span.End()

	origin := sq.Expr("ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography", p.Longitude, p.Latitude)

	b := sq.Select(restroomColumns).
		Column(sq.Alias(sq.Expr("ST_Distance(location, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography)", p.Longitude, p.Latitude), "distance_meters")).
		From("restrooms").
		Where(sq.Expr("ST_DWithin(location, ?, ?)", origin, p.RadiusMeters))
	b = applyFilters(b, p.Filters)
	b = b.OrderBy("distance_meters ASC", "avg_overall DESC", "id ASC").
		Limit(uint64(p.Limit)).
		Offset(uint64(p.Offset)).
		PlaceholderFormat(sq.Dollar)

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build search query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		r.logger.Error("Error searching restrooms", zap.Error(err))
		return nil, searchStoreError(err)
	}
	defer rows.Close()

	results, err := collectSearchRows(rows)
	if err != nil {
		span.RecordError(err)
		return nil, searchStoreError(err)
	}
	span.SetAttributes(attribute.Int("search.results", len(results)))
	span.SetStatus(codes.Ok, "Search completed")
	return results, nil
}

func (r *RepositoryImpl) SearchAlongRoute(ctx context.Context, p models.RouteSearchParams) ([]models.RestroomWithDistance, error) {
	ctx, span := otel.Tracer("looquest/restroom").Start(ctx, "RestroomRepository.SearchAlongRoute")
	defer span.End()

	line := sq.Expr("ST_MakeLine(ST_SetSRID(ST_MakePoint(?, ?), 4326), ST_SetSRID(ST_MakePoint(?, ?), 4326))::geography",
		p.StartLon, p.StartLat, p.EndLon, p.EndLat)

	b := sq.Select(restroomColumns).
		Column(sq.Alias(sq.Expr("ST_Distance(location, ST_MakeLine(ST_SetSRID(ST_MakePoint(?, ?), 4326), ST_SetSRID(ST_MakePoint(?, ?), 4326))::geography)",
			p.StartLon, p.StartLat, p.EndLon, p.EndLat), "distance_meters")).
		From("restrooms").
		Where(sq.Expr("ST_DWithin(location, ?, ?)", line, p.BufferMeters))
	b = applyFilters(b, p.Filters)
	b = b.OrderBy("distance_meters ASC", "avg_overall DESC", "id ASC").
		Limit(uint64(p.Limit)).
		PlaceholderFormat(sq.Dollar)

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build route search query: %w", err)
	}

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Database query failed")
		r.logger.Error("Error searching restrooms along route", zap.Error(err))
		return nil, searchStoreError(err)
	}
	defer rows.Close()

	results, err := collectSearchRows(rows)
	if err != nil {
		span.RecordError(err)
		return nil, searchStoreError(err)
	}
	span.SetStatus(codes.Ok, "Route search completed")
	return results, nil
}

func (r *RepositoryImpl) UpsertFromSource(ctx context.Context, in *models.Restroom) (bool, error) {
	query := `
		INSERT INTO restrooms (name, description, latitude, longitude, location,
			address, city, country, accessibility, has_baby_changing, is_gender_neutral,
			requires_fee, requires_key, is_24_hours, opening_hours, source, source_id, status)
		VALUES ($1, $2, $3, $4, ST_SetSRID(ST_MakePoint($4, $3), 4326)::geography,
			$5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 'active')
		ON CONFLICT (source, source_id) DO UPDATE SET
			name = EXCLUDED.name,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			location = EXCLUDED.location,
			accessibility = EXCLUDED.accessibility,
			has_baby_changing = EXCLUDED.has_baby_changing,
			requires_fee = EXCLUDED.requires_fee,
			opening_hours = EXCLUDED.opening_hours,
			updated_at = NOW()
		RETURNING (xmax = 0) AS inserted`

	var inserted bool
	err := r.pgpool.QueryRow(ctx, query,
		in.Name, in.Description, in.Latitude, in.Longitude,
		in.Address, in.City, in.Country, in.Accessibility, in.HasBabyChanging,
		in.IsGenderNeutral, in.RequiresFee, in.RequiresKey, in.Is24Hours,
		in.OpeningHours, in.Source, in.SourceID).Scan(&inserted)
	if err != nil {
		r.logger.Error("Error upserting sourced restroom", zap.Error(err))
		return false, fmt.Errorf("database error upserting restroom: %w", models.ErrStoreUnavailable)
	}
	return inserted, nil
}

func collectSearchRows(rows pgx.Rows) ([]models.RestroomWithDistance, error) {
	results := make([]models.RestroomWithDistance, 0)
	for rows.Next() {
		var item models.RestroomWithDistance
		err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Latitude,
			&item.Longitude, &item.Address, &item.City, &item.Country,
			&item.Accessibility, &item.HasBabyChanging, &item.IsGenderNeutral,
			&item.RequiresFee, &item.RequiresKey, &item.Is24Hours, &item.OpeningHours,
			&item.Source, &item.SourceID, &item.Status, &item.IsVerified,
			&item.AvgOverall, &item.AvgCleanliness, &item.AvgAccessibility,
			&item.AvgPrivacy, &item.AvgSafety, &item.AvgLighting, &item.ReviewCount,
			&item.CreatedBy, &item.CreatedAt, &item.UpdatedAt, &item.DistanceMeters)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search row iteration failed: %w", err)
	}
	return results, nil
}

func searchStoreError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("search timed out: %w", models.ErrTimeout)
	}
	return fmt.Errorf("database error searching restrooms: %w", models.ErrStoreUnavailable)
}
