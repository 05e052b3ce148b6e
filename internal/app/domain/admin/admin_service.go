package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/app/models"
	"github.com/looquest/looquest/internal/pkg/config"
)

const (
	dashboardCacheKey = "dashboard"
	dashboardTTL      = time.Minute

	defaultAnalyticsPeriod = 30
	maxAnalyticsPeriod     = 365
	maxBulkIDs             = 500
)

var _ Service = (*ServiceImpl)(nil)

// AggregateRecomputer reconciles a restroom's cached rating aggregates.
// Implemented by the review domain.
type AggregateRecomputer interface {
	ForceRecompute(ctx context.Context, restroomID uuid.UUID) (*models.RestroomAggregates, error)
}

// AccountRemover anonymizes a user account. Implemented by the user domain.
type AccountRemover interface {
	DeleteAccount(ctx context.Context, id uuid.UUID) error
}

type Service interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	Analytics(ctx context.Context, periodDays int) (*Analytics, error)

	ListUsers(ctx context.Context, f UserFilter) ([]models.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, u UserUpdate) error
	DeleteUser(ctx context.Context, id uuid.UUID) error

	ListRestrooms(ctx context.Context, f RestroomFilter) ([]models.Restroom, error)
	DeleteRestroom(ctx context.Context, id uuid.UUID) error
	BulkVerifyRestrooms(ctx context.Context, ids []uuid.UUID) (int, error)
	BulkCloseRestrooms(ctx context.Context, ids []uuid.UUID) (int, error)

	RecomputeAggregates(ctx context.Context, restroomID uuid.UUID) (*models.RestroomAggregates, error)
}

type ServiceImpl struct {
	logger     *zap.Logger
	repo       Repository
	recomputer AggregateRecomputer
	accounts   AccountRemover
	dashCache  *gocache.Cache
	cfg        *config.Config
}

func NewService(repo Repository, recomputer AggregateRecomputer, accounts AccountRemover, cfg *config.Config, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		repo:       repo,
		recomputer: recomputer,
		accounts:   accounts,
		dashCache:  gocache.New(dashboardTTL, 5*time.Minute),
		cfg:        cfg,
	}
}

func (s *ServiceImpl) Dashboard(ctx context.Context) (*Dashboard, error) {
	if cached, ok := s.dashCache.Get(dashboardCacheKey); ok {
		return cached.(*Dashboard), nil
	}
	d, err := s.repo.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	s.dashCache.SetDefault(dashboardCacheKey, d)
	return d, nil
}

func (s *ServiceImpl) Analytics(ctx context.Context, periodDays int) (*Analytics, error) {
	if periodDays <= 0 {
		periodDays = defaultAnalyticsPeriod
	}
	if periodDays > maxAnalyticsPeriod {
		return nil, fmt.Errorf("analytics period capped at %d days: %w", maxAnalyticsPeriod, models.ErrInvalidArgument)
	}
	return s.repo.Analytics(ctx, periodDays)
}

func (s *ServiceImpl) ListUsers(ctx context.Context, f UserFilter) ([]models.User, error) {
	f.Limit, f.Offset = s.clampPage(f.Limit, f.Offset)
	return s.repo.ListUsers(ctx, f)
}

func (s *ServiceImpl) UpdateUser(ctx context.Context, id uuid.UUID, u UserUpdate) error {
	if u.Role == nil && u.Active == nil {
		return fmt.Errorf("no fields to update: %w", models.ErrInvalidArgument)
	}
	if u.Role != nil {
		switch *u.Role {
		case models.RoleUser, models.RoleModerator, models.RoleAdmin:
		default:
			return fmt.Errorf("unknown role %q: %w", *u.Role, models.ErrInvalidArgument)
		}
	}
	return s.repo.UpdateUser(ctx, id, u)
}

func (s *ServiceImpl) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.accounts.DeleteAccount(ctx, id)
}

func (s *ServiceImpl) ListRestrooms(ctx context.Context, f RestroomFilter) ([]models.Restroom, error) {
	f.Limit, f.Offset = s.clampPage(f.Limit, f.Offset)
	return s.repo.ListRestrooms(ctx, f)
}

func (s *ServiceImpl) DeleteRestroom(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteRestroom(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Restroom deleted by admin", zap.String("restroom_id", id.String()))
	return nil
}

func (s *ServiceImpl) BulkVerifyRestrooms(ctx context.Context, ids []uuid.UUID) (int, error) {
	if err := validateBulkIDs(ids); err != nil {
		return 0, err
	}
	return s.repo.BulkSetVerified(ctx, ids, true)
}

func (s *ServiceImpl) BulkCloseRestrooms(ctx context.Context, ids []uuid.UUID) (int, error) {
	if err := validateBulkIDs(ids); err != nil {
		return 0, err
	}
	return s.repo.BulkSetStatus(ctx, ids, models.StatusPermanentlyClosed)
}

func (s *ServiceImpl) RecomputeAggregates(ctx context.Context, restroomID uuid.UUID) (*models.RestroomAggregates, error) {
	return s.recomputer.ForceRecompute(ctx, restroomID)
}

func validateBulkIDs(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return fmt.Errorf("no restroom ids given: %w", models.ErrInvalidArgument)
	}
	if len(ids) > maxBulkIDs {
		return fmt.Errorf("bulk operations capped at %d ids: %w", maxBulkIDs, models.ErrInvalidArgument)
	}
	return nil
}

func (s *ServiceImpl) clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.cfg.Search.DefaultLimit
	}
	if limit > s.cfg.Search.MaxLimit {
		limit = s.cfg.Search.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
