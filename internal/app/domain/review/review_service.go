package review

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

var _ Service = (*ServiceImpl)(nil)

// Gamification is the slice of the user domain the review flow needs.
// Declared here to avoid a package cycle.
type Gamification interface {
	AwardPoints(ctx context.Context, userID uuid.UUID, points int, reason string) error
	EvaluateBadges(ctx context.Context, userID uuid.UUID) error
}

type Service interface {
	Create(ctx context.Context, userID uuid.UUID, rv *models.Review) (*models.Review, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	ListByRestroom(ctx context.Context, restroomID uuid.UUID, limit, offset int) ([]models.Review, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Review, error)
	Delete(ctx context.Context, userID uuid.UUID, role models.UserRole, id uuid.UUID) error
	MarkHelpful(ctx context.Context, voterID, reviewID uuid.UUID) error

	// Aggregates returns the restroom's rating summary, reading the stored
	// values on cache miss.
	Aggregates(ctx context.Context, restroomID uuid.UUID) (*models.RestroomAggregates, error)
	// ForceRecompute bypasses the cache. Used by the admin endpoint and
	// after every review write.
	ForceRecompute(ctx context.Context, restroomID uuid.UUID) (*models.RestroomAggregates, error)
}

type ServiceImpl struct {
	logger     *zap.Logger
	repo       Repository
	recomputer *Recomputer
	aggCache   *gocache.Cache
	game       Gamification
	cfg        *config.Config
}

func NewService(repo Repository, recomputer *Recomputer, game Gamification, cfg *config.Config, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		repo:       repo,
		recomputer: recomputer,
		aggCache:   gocache.New(cfg.Cache.AggregatesTTL, 10*time.Minute),
		game:       game,
		cfg:        cfg,
	}
}

func validateReview(rv *models.Review) error {
	for name, v := range map[string]int{
		"rating_overall":       rv.RatingOverall,
		"rating_cleanliness":   rv.RatingCleanliness,
		"rating_accessibility": rv.RatingAccessibility,
		"rating_privacy":       rv.RatingPrivacy,
		"rating_safety":        rv.RatingSafety,
		"rating_lighting":      rv.RatingLighting,
	} {
		if v < 1 || v > 5 {
			return fmt.Errorf("%s must be in [1, 5]: %w", name, models.ErrInvalidArgument)
		}
	}
	if rv.Comment != nil && len(*rv.Comment) > 2000 {
		return fmt.Errorf("comment too long: %w", models.ErrInvalidArgument)
	}
	return nil
}

func (s *ServiceImpl) Create(ctx context.Context, userID uuid.UUID, rv *models.Review) (*models.Review, error) {
	l := s.logger.With(zap.String("method", "Create"), zap.String("user_id", userID.String()))

	if err := validateReview(rv); err != nil {
		return nil, err
	}
	rv.UserID = userID
	if rv.PhotoURLs == nil {
		rv.PhotoURLs = []string{}
	}

	created, err := s.repo.Create(ctx, rv)
	if err != nil {
		return nil, err
	}

	if _, err := s.ForceRecompute(ctx, created.RestroomID); err != nil {
		// The review is stored; stale aggregates self-heal on the next write.
		l.Warn("Aggregate recompute after review failed", zap.Error(err))
	}

	if s.game != nil {
		points := s.cfg.Points.Review
		if len(created.PhotoURLs) > 0 {
			points += s.cfg.Points.Photo
		}
		if err := s.game.AwardPoints(ctx, userID, points, "review_added"); err != nil {
			l.Warn("Failed to award review points", zap.Error(err))
		}
		if err := s.game.EvaluateBadges(ctx, userID); err != nil {
			l.Warn("Failed to evaluate badges", zap.Error(err))
		}
	}

	l.Info("Review created",
		zap.String("review_id", created.ID.String()),
		zap.String("restroom_id", created.RestroomID.String()))
	return created, nil
}

func (s *ServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ServiceImpl) ListByRestroom(ctx context.Context, restroomID uuid.UUID, limit, offset int) ([]models.Review, error) {
	limit, offset = clampPage(limit, offset, s.cfg.Search)
	return s.repo.ListByRestroom(ctx, restroomID, limit, offset)
}

func (s *ServiceImpl) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Review, error) {
	limit, offset = clampPage(limit, offset, s.cfg.Search)
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *ServiceImpl) Delete(ctx context.Context, userID uuid.UUID, role models.UserRole, id uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	isOwner := existing.UserID == userID
	isModerator := role == models.RoleModerator || role == models.RoleAdmin
	if !isOwner && !isModerator {
		return fmt.Errorf("only the author or a moderator may delete a review: %w", models.ErrForbidden)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if _, err := s.ForceRecompute(ctx, existing.RestroomID); err != nil {
		s.logger.Warn("Aggregate recompute after delete failed", zap.Error(err))
	}
	return nil
}

func (s *ServiceImpl) MarkHelpful(ctx context.Context, voterID, reviewID uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if existing.UserID == voterID {
		return fmt.Errorf("cannot vote on your own review: %w", models.ErrForbidden)
	}

	authorID, err := s.repo.AddHelpfulVote(ctx, reviewID, voterID)
	if err != nil {
		return err
	}

	if s.game != nil {
		if err := s.game.AwardPoints(ctx, authorID, s.cfg.Points.Helpful, "helpful_vote"); err != nil {
			s.logger.Warn("Failed to award helpful points", zap.Error(err))
		}
	}
	return nil
}

// Aggregates serves the public read path. On cache miss it reads the
// denormalized values off the restroom row; only review writes and the
// admin endpoint pay for a locked recompute.
func (s *ServiceImpl) Aggregates(ctx context.Context, restroomID uuid.UUID) (*models.RestroomAggregates, error) {
	if cached, ok := s.aggCache.Get(restroomID.String()); ok {
		return cached.(*models.RestroomAggregates), nil
	}
	agg, err := s.repo.GetAggregates(ctx, restroomID)
	if err != nil {
		return nil, err
	}
	s.aggCache.Set(restroomID.String(), agg, gocache.DefaultExpiration)
	return agg, nil
}

func (s *ServiceImpl) ForceRecompute(ctx context.Context, restroomID uuid.UUID) (*models.RestroomAggregates, error) {
	agg, err := s.recomputer.Recompute(ctx, restroomID)
	if err != nil {
		return nil, err
	}
	s.aggCache.Set(restroomID.String(), agg, gocache.DefaultExpiration)
	return agg, nil
}

func clampPage(limit, offset int, cfg config.SearchConfig) (int, int) {
	if limit <= 0 {
		limit = cfg.DefaultLimit
	}
	if limit > cfg.MaxLimit {
		limit = cfg.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
