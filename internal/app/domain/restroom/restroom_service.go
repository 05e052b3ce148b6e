package restroom

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

	"github.com/looquest/looquest/internal/app/models"
	"github.com/looquest/looquest/internal/app/observability/metrics"
	"github.com/looquest/looquest/internal/pkg/cache"
	"github.com/looquest/looquest/internal/pkg/config"
	"github.com/looquest/looquest/internal/pkg/geocode"
)

var _ Service = (*ServiceImpl)(nil)

// PointsAwarder credits contribution points to a user. Implemented by the
// user domain; declared here to avoid a package cycle.
type PointsAwarder interface {
	AwardPoints(ctx context.Context, userID uuid.UUID, points int, reason string) error
}

type Service interface {
	Create(ctx context.Context, userID uuid.UUID, in *models.Restroom) (*models.Restroom, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Restroom, error)
	Update(ctx context.Context, userID uuid.UUID, role models.UserRole, in *models.Restroom) (*models.Restroom, error)
	Delete(ctx context.Context, role models.UserRole, id uuid.UUID) error

	Search(ctx context.Context, p models.SearchParams) ([]models.RestroomWithDistance, error)
	SearchAlongRoute(ctx context.Context, p models.RouteSearchParams) ([]models.RestroomWithDistance, error)

	SetStatus(ctx context.Context, id uuid.UUID, status models.RestroomStatus) error
	SetVerified(ctx context.Context, id uuid.UUID, verified bool) error
}

type ServiceImpl struct {
	logger   *zap.Logger
	repo     Repository
	store    *cache.Store
	geocoder *geocode.Client
	points   PointsAwarder
	cfg      *config.Config
}

func NewService(repo Repository, store *cache.Store, geocoder *geocode.Client, points PointsAwarder, cfg *config.Config, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		repo:     repo,
		store:    store,
		geocoder: geocoder,
		points:   points,
		cfg:      cfg,
	}
}

func (s *ServiceImpl) Create(ctx context.Context, userID uuid.UUID, in *models.Restroom) (*models.Restroom, error) {
	l := s.logger.With(zap.String("method", "Create"), zap.String("user_id", userID.String()))

	if err := validateRestroomInput(in); err != nil {
		return nil, err
	}

	in.CreatedBy = &userID
	in.Source = models.SourceUser
	in.Status = models.StatusActive
	if in.Accessibility == "" {
		in.Accessibility = models.AccessibilityUnknown
	}

	// Best effort address enrichment; a geocoder outage never blocks creation.
	if s.geocoder != nil && (in.Address == nil || in.City == nil) {
		if addr, err := s.geocoder.Reverse(ctx, in.Latitude, in.Longitude); err == nil {
			if in.Address == nil && addr.DisplayName != "" {
				in.Address = &addr.DisplayName
			}
			if in.City == nil && addr.City != "" {
				in.City = &addr.City
			}
			if in.Country == nil && addr.Country != "" {
				in.Country = &addr.Country
			}
		} else {
			l.Debug("Reverse geocoding failed", zap.Error(err))
		}
	}

	created, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	if s.points != nil {
		if err := s.points.AwardPoints(ctx, userID, s.cfg.Points.Restroom, "restroom_added"); err != nil {
			l.Warn("Failed to award points for restroom", zap.Error(err))
		}
	}

	s.invalidateSearchCache(ctx)
	l.Info("Restroom created", zap.String("restroom_id", created.ID.String()))
	return created, nil
}

func (s *ServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Restroom, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ServiceImpl) Update(ctx context.Context, userID uuid.UUID, role models.UserRole, in *models.Restroom) (*models.Restroom, error) {
	if err := validateRestroomInput(in); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	isOwner := existing.CreatedBy != nil && *existing.CreatedBy == userID
	isModerator := role == models.RoleModerator || role == models.RoleAdmin
	if !isOwner && !isModerator {
		return nil, fmt.Errorf("only the creator or a moderator may edit a restroom: %w", models.ErrForbidden)
	}

	updated, err := s.repo.Update(ctx, in)
	if err != nil {
		return nil, err
	}
	s.invalidateSearchCache(ctx)
	return updated, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, role models.UserRole, id uuid.UUID) error {
	if role != models.RoleModerator && role != models.RoleAdmin {
		return fmt.Errorf("only moderators may delete restrooms: %w", models.ErrForbidden)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateSearchCache(ctx)
	return nil
}

// Search runs a proximity search with a short lived response cache.
func (s *ServiceImpl) Search(ctx context.Context, p models.SearchParams) ([]models.RestroomWithDistance, error) {
	ctx, span := otel.Tracer("looquest/restroom").Start(ctx, "RestroomService.Search", trace.WithAttributes(
		attribute.Float64("search.lat", p.Latitude),
		attribute.Float64("search.lon", p.Longitude),
	))
	defer span.End()

	p, err := NormalizeSearchParams(p, s.cfg.Search)
	if err != nil {
		span.SetStatus(codes.Error, "Invalid search parameters")
		return nil, err
	}

	m := metrics.Get()
	m.SearchRequestsTotal.Add(ctx, 1)

	key, err := searchCacheKey(p)
	if err == nil && s.store != nil {
		var cached []models.RestroomWithDistance
		if s.store.Get(ctx, key, &cached) {
			m.SearchCacheHitsTotal.Add(ctx, 1)
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
		m.SearchCacheMissesTotal.Add(ctx, 1)
	}

	results, err := s.repo.SearchNearby(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Search failed")
		return nil, err
	}
	SortSearchResults(results)

	if key != "" && s.store != nil {
		s.store.Set(ctx, key, results, s.cfg.Search.CacheTTL)
	}
	span.SetAttributes(attribute.Int("search.results", len(results)))
	span.SetStatus(codes.Ok, "Search completed")
	return results, nil
}

func (s *ServiceImpl) SearchAlongRoute(ctx context.Context, p models.RouteSearchParams) ([]models.RestroomWithDistance, error) {
	if err := validateRouteParams(&p, s.cfg.Search); err != nil {
		return nil, err
	}

	results, err := s.repo.SearchAlongRoute(ctx, p)
	if err != nil {
		return nil, err
	}
	SortSearchResults(results)
	return results, nil
}

func (s *ServiceImpl) SetStatus(ctx context.Context, id uuid.UUID, status models.RestroomStatus) error {
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return err
	}
	s.invalidateSearchCache(ctx)
	return nil
}

func (s *ServiceImpl) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	if err := s.repo.SetVerified(ctx, id, verified); err != nil {
		return err
	}
	s.invalidateSearchCache(ctx)
	return nil
}

func (s *ServiceImpl) invalidateSearchCache(ctx context.Context) {
	if s.store == nil {
		return
	}
	// Bounded so a slow Redis cannot stall the write path.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	s.store.DeletePattern(ctx, "search:*")
}

func validateRestroomInput(in *models.Restroom) error {
	if in.Name == "" {
		return fmt.Errorf("name is required: %w", models.ErrInvalidArgument)
	}
	if in.Latitude < -90 || in.Latitude > 90 || in.Longitude < -180 || in.Longitude > 180 {
		return fmt.Errorf("coordinates out of range: %w", models.ErrInvalidArgument)
	}
	switch in.Accessibility {
	case "", models.AccessibilityFull, models.AccessibilityPartial, models.AccessibilityNone, models.AccessibilityUnknown:
	default:
		return fmt.Errorf("unknown accessibility level %q: %w", in.Accessibility, models.ErrInvalidArgument)
	}
	return nil
}

func validateRouteParams(p *models.RouteSearchParams, cfg config.SearchConfig) error {
	if p.StartLat < -90 || p.StartLat > 90 || p.EndLat < -90 || p.EndLat > 90 ||
		p.StartLon < -180 || p.StartLon > 180 || p.EndLon < -180 || p.EndLon > 180 {
		return fmt.Errorf("route coordinates out of range: %w", models.ErrInvalidArgument)
	}
	if p.BufferMeters == 0 {
		p.BufferMeters = cfg.DefaultRadiusMeters
	}
	if p.BufferMeters < 0 || p.BufferMeters > cfg.MaxRadiusMeters {
		return fmt.Errorf("buffer must be in (0, %.0f]: %w", cfg.MaxRadiusMeters, models.ErrInvalidArgument)
	}
	if p.Limit == 0 {
		p.Limit = cfg.DefaultLimit
	}
	if p.Limit < 0 || p.Limit > cfg.MaxLimit {
		return fmt.Errorf("limit must be in (0, %d]: %w", cfg.MaxLimit, models.ErrInvalidArgument)
	}
	return nil
}
