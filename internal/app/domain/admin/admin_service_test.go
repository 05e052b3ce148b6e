package admin

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

func (m *MockRepository) Dashboard(ctx context.Context) (*Dashboard, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Dashboard), args.Error(1)
}

func (m *MockRepository) Analytics(ctx context.Context, periodDays int) (*Analytics, error) {
	args := m.Called(ctx, periodDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Analytics), args.Error(1)
}

func (m *MockRepository) ListUsers(ctx context.Context, f UserFilter) ([]models.User, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockRepository) UpdateUser(ctx context.Context, id uuid.UUID, u UserUpdate) error {
	args := m.Called(ctx, id, u)
	return args.Error(0)
}

func (m *MockRepository) ListRestrooms(ctx context.Context, f RestroomFilter) ([]models.Restroom, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Restroom), args.Error(1)
}

func (m *MockRepository) DeleteRestroom(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) BulkSetVerified(ctx context.Context, ids []uuid.UUID, verified bool) (int, error) {
	args := m.Called(ctx, ids, verified)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) BulkSetStatus(ctx context.Context, ids []uuid.UUID, status models.RestroomStatus) (int, error) {
	args := m.Called(ctx, ids, status)
	return args.Int(0), args.Error(1)
}

type MockRecomputer struct {
	mock.Mock
}

func (m *MockRecomputer) ForceRecompute(ctx context.Context, restroomID uuid.UUID) (*models.RestroomAggregates, error) {
	args := m.Called(ctx, restroomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RestroomAggregates), args.Error(1)
}

type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestService() (*ServiceImpl, *MockRepository, *MockRecomputer, *MockAccounts) {
	repo := new(MockRepository)
	rec := new(MockRecomputer)
	acc := new(MockAccounts)
	cfg := &config.Config{}
	cfg.Search.DefaultLimit = 50
	cfg.Search.MaxLimit = 200
	return NewService(repo, rec, acc, cfg, zap.NewNop()), repo, rec, acc
}

func TestUpdateUserValidation(t *testing.T) {
	svc, repo, _, _ := newTestService()
	id := uuid.New()

	t.Run("empty update rejected", func(t *testing.T) {
		err := svc.UpdateUser(context.Background(), id, UserUpdate{})
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		role := models.UserRole("superuser")
		err := svc.UpdateUser(context.Background(), id, UserUpdate{Role: &role})
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("valid role change passes through", func(t *testing.T) {
		role := models.RoleModerator
		repo.On("UpdateUser", mock.Anything, id, UserUpdate{Role: &role}).Return(nil)
		assert.NoError(t, svc.UpdateUser(context.Background(), id, UserUpdate{Role: &role}))
	})
}

func TestBulkOperations(t *testing.T) {
	svc, repo, _, _ := newTestService()

	t.Run("empty id list rejected", func(t *testing.T) {
		_, err := svc.BulkVerifyRestrooms(context.Background(), nil)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("oversized id list rejected", func(t *testing.T) {
		ids := make([]uuid.UUID, maxBulkIDs+1)
		_, err := svc.BulkCloseRestrooms(context.Background(), ids)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("close uses closed status", func(t *testing.T) {
		ids := []uuid.UUID{uuid.New(), uuid.New()}
		repo.On("BulkSetStatus", mock.Anything, ids, models.StatusPermanentlyClosed).Return(2, nil)

		n, err := svc.BulkCloseRestrooms(context.Background(), ids)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestDashboardCaching(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.On("Dashboard", mock.Anything).Return(&Dashboard{TotalUsers: 7}, nil).Once()

	first, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	second, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	repo.AssertNumberOfCalls(t, "Dashboard", 1)
}

func TestAnalyticsPeriod(t *testing.T) {
	svc, repo, _, _ := newTestService()

	t.Run("defaults to thirty days", func(t *testing.T) {
		repo.On("Analytics", mock.Anything, defaultAnalyticsPeriod).
			Return(&Analytics{PeriodDays: defaultAnalyticsPeriod}, nil)

		a, err := svc.Analytics(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, defaultAnalyticsPeriod, a.PeriodDays)
	})

	t.Run("rejects absurd windows", func(t *testing.T) {
		_, err := svc.Analytics(context.Background(), 10000)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})
}

func TestRecomputeDelegates(t *testing.T) {
	svc, _, rec, _ := newTestService()
	restroomID := uuid.New()
	rec.On("ForceRecompute", mock.Anything, restroomID).
		Return(&models.RestroomAggregates{RestroomID: restroomID, AvgOverall: 4.0, ReviewCount: 3}, nil)

	agg, err := svc.RecomputeAggregates(context.Background(), restroomID)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, agg.AvgOverall, 1e-9)
}
