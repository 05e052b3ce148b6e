package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/app/models"
	"github.com/looquest/looquest/internal/pkg/config"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) UpdateProfile(ctx context.Context, id uuid.UUID, p UpdateProfileParams) (*models.User, error) {
	args := m.Called(ctx, id, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) AddPoints(ctx context.Context, id uuid.UUID, points int) error {
	args := m.Called(ctx, id, points)
	return args.Error(0)
}

func (m *MockRepository) AddBadge(ctx context.Context, id uuid.UUID, badge string) error {
	args := m.Called(ctx, id, badge)
	return args.Error(0)
}

func (m *MockRepository) CountReviews(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) CountRestrooms(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) GetStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserStats), args.Error(1)
}

func (m *MockRepository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LeaderboardEntry), args.Error(1)
}

func (m *MockRepository) Anonymize(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestService() (*ServiceImpl, *MockRepository) {
	repo := new(MockRepository)
	return NewService(repo, &config.Config{}, zap.NewNop()), repo
}

func TestEvaluateBadges(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("no contributions grants nothing", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("CountReviews", mock.Anything, userID).Return(0, nil)
		repo.On("CountRestrooms", mock.Anything, userID).Return(0, nil)

		require.NoError(t, svc.EvaluateBadges(ctx, userID))
		repo.AssertNotCalled(t, "AddBadge", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("first review grants first_review only", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("CountReviews", mock.Anything, userID).Return(1, nil)
		repo.On("CountRestrooms", mock.Anything, userID).Return(0, nil)
		repo.On("AddBadge", mock.Anything, userID, BadgeFirstReview).Return(nil)

		require.NoError(t, svc.EvaluateBadges(ctx, userID))
		repo.AssertExpectations(t)
		repo.AssertNumberOfCalls(t, "AddBadge", 1)
	})

	t.Run("ten reviews grants explorer_10 as well", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("CountReviews", mock.Anything, userID).Return(10, nil)
		repo.On("CountRestrooms", mock.Anything, userID).Return(0, nil)
		repo.On("AddBadge", mock.Anything, userID, BadgeFirstReview).Return(nil)
		repo.On("AddBadge", mock.Anything, userID, BadgeExplorer10).Return(nil)

		require.NoError(t, svc.EvaluateBadges(ctx, userID))
		repo.AssertExpectations(t)
	})

	t.Run("fifty reviews and five restrooms grants everything", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("CountReviews", mock.Anything, userID).Return(50, nil)
		repo.On("CountRestrooms", mock.Anything, userID).Return(5, nil)
		for _, b := range []string{BadgeFirstReview, BadgeExplorer10, BadgeExplorer50, BadgeContributor} {
			repo.On("AddBadge", mock.Anything, userID, b).Return(nil)
		}

		require.NoError(t, svc.EvaluateBadges(ctx, userID))
		repo.AssertNumberOfCalls(t, "AddBadge", 4)
	})
}

func TestAwardPoints(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("positive amount hits the store", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("AddPoints", mock.Anything, userID, 10).Return(nil)

		require.NoError(t, svc.AwardPoints(ctx, userID, 10, "review"))
		repo.AssertExpectations(t)
	})

	t.Run("zero amount is a no-op", func(t *testing.T) {
		svc, repo := newTestService()

		require.NoError(t, svc.AwardPoints(ctx, userID, 0, "noop"))
		repo.AssertNotCalled(t, "AddPoints", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUpdateProfileValidation(t *testing.T) {
	svc, repo := newTestService()
	userID := uuid.New()

	short := "ab"
	_, err := svc.UpdateProfile(context.Background(), userID, UpdateProfileParams{Username: &short})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	repo.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestLeaderboardCaching(t *testing.T) {
	svc, repo := newTestService()
	entries := []models.LeaderboardEntry{
		{UserID: uuid.New(), Username: "ada", Points: 420, Rank: 1},
		{UserID: uuid.New(), Username: "grace", Points: 300, Rank: 2},
	}
	repo.On("Leaderboard", mock.Anything, 25).Return(entries, nil).Once()

	first, err := svc.Leaderboard(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	// Second call must come out of the cache.
	second, err := svc.Leaderboard(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	repo.AssertNumberOfCalls(t, "Leaderboard", 1)
}
