package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/app/models"
	"github.com/looquest/looquest/internal/pkg/config"
)

// Badges awarded by EvaluateBadges. Thresholds are review counts except
// contributor, which counts submitted restrooms.
const (
	BadgeFirstReview = "first_review"
	BadgeExplorer10  = "explorer_10"
	BadgeExplorer50  = "explorer_50"
	BadgeContributor = "contributor"

	contributorThreshold = 5
)

const (
	leaderboardKey      = "leaderboard"
	leaderboardTTL      = 5 * time.Minute
	defaultLeaderboard  = 25
	maxLeaderboardLimit = 100
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, p UpdateProfileParams) (*models.User, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error

	GetStats(ctx context.Context, id uuid.UUID) (*models.UserStats, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)

	AwardPoints(ctx context.Context, userID uuid.UUID, points int, reason string) error
	EvaluateBadges(ctx context.Context, userID uuid.UUID) error
}

type ServiceImpl struct {
	logger *zap.Logger
	repo   Repository
	lbc    *gocache.Cache
	cfg    *config.Config
}

func NewService(repo Repository, cfg *config.Config, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		lbc:    gocache.New(leaderboardTTL, 10*time.Minute),
		cfg:    cfg,
	}
}

func (s *ServiceImpl) GetProfile(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ServiceImpl) UpdateProfile(ctx context.Context, id uuid.UUID, p UpdateProfileParams) (*models.User, error) {
	if p.Username != nil {
		name := strings.TrimSpace(*p.Username)
		if len(name) < 3 || len(name) > 50 {
			return nil, fmt.Errorf("username must be 3 to 50 characters: %w", models.ErrInvalidArgument)
		}
		p.Username = &name
	}
	return s.repo.UpdateProfile(ctx, id, p)
}

func (s *ServiceImpl) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Anonymize(ctx, id); err != nil {
		return err
	}
	s.logger.Info("User account anonymized", zap.String("user_id", id.String()))
	return nil
}

func (s *ServiceImpl) GetStats(ctx context.Context, id uuid.UUID) (*models.UserStats, error) {
	return s.repo.GetStats(ctx, id)
}

func (s *ServiceImpl) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboard
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	key := fmt.Sprintf("%s:%d", leaderboardKey, limit)
	if cached, ok := s.lbc.Get(key); ok {
		return cached.([]models.LeaderboardEntry), nil
	}

	entries, err := s.repo.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	s.lbc.SetDefault(key, entries)
	return entries, nil
}

// AwardPoints credits contribution points. Point amounts come from the
// caller so each domain keeps its own tariff.
func (s *ServiceImpl) AwardPoints(ctx context.Context, userID uuid.UUID, points int, reason string) error {
	if points <= 0 {
		return nil
	}
	if err := s.repo.AddPoints(ctx, userID, points); err != nil {
		return err
	}
	s.logger.Debug("Points awarded",
		zap.String("user_id", userID.String()),
		zap.Int("points", points),
		zap.String("reason", reason))
	return nil
}

// EvaluateBadges checks every badge threshold against the user's current
// contribution counts and grants the ones newly crossed. Granting is
// idempotent, so re-evaluating after every contribution is safe.
func (s *ServiceImpl) EvaluateBadges(ctx context.Context, userID uuid.UUID) error {
	reviews, err := s.repo.CountReviews(ctx, userID)
	if err != nil {
		return err
	}

	var grant []string
	if reviews >= 1 {
		grant = append(grant, BadgeFirstReview)
	}
	if reviews >= 10 {
		grant = append(grant, BadgeExplorer10)
	}
	if reviews >= 50 {
		grant = append(grant, BadgeExplorer50)
	}

	restrooms, err := s.repo.CountRestrooms(ctx, userID)
	if err != nil {
		return err
	}
	if restrooms >= contributorThreshold {
		grant = append(grant, BadgeContributor)
	}

	for _, badge := range grant {
		if err := s.repo.AddBadge(ctx, userID, badge); err != nil {
			return fmt.Errorf("failed to grant badge %s: %w", badge, err)
		}
	}
	return nil
}
