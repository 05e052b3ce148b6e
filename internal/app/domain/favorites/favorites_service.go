package favorites

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/app/models"
	"github.com/looquest/looquest/internal/pkg/config"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	Add(ctx context.Context, userID, restroomID uuid.UUID) (*models.Favorite, error)
	Remove(ctx context.Context, userID, restroomID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Restroom, error)
	IsFavorite(ctx context.Context, userID, restroomID uuid.UUID) (bool, error)
}

type ServiceImpl struct {
	logger *zap.Logger
	repo   Repository
	cfg    *config.Config
}

func NewService(repo Repository, cfg *config.Config, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo, cfg: cfg}
}

func (s *ServiceImpl) Add(ctx context.Context, userID, restroomID uuid.UUID) (*models.Favorite, error) {
	fav, err := s.repo.Add(ctx, userID, restroomID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Favorite added",
		zap.String("user_id", userID.String()),
		zap.String("restroom_id", restroomID.String()))
	return fav, nil
}

func (s *ServiceImpl) Remove(ctx context.Context, userID, restroomID uuid.UUID) error {
	return s.repo.Remove(ctx, userID, restroomID)
}

func (s *ServiceImpl) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Restroom, error) {
	if limit <= 0 {
		limit = s.cfg.Search.DefaultLimit
	}
	if limit > s.cfg.Search.MaxLimit {
		limit = s.cfg.Search.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListRestrooms(ctx, userID, limit, offset)
}

func (s *ServiceImpl) IsFavorite(ctx context.Context, userID, restroomID uuid.UUID) (bool, error) {
	return s.repo.IsFavorite(ctx, userID, restroomID)
}
