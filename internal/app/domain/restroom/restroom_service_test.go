package restroom

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/app/models"
	"github.com/looquest/looquest/internal/app/observability/metrics"
	"github.com/looquest/looquest/internal/pkg/config"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, r *models.Restroom) (*models.Restroom, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Restroom), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Restroom, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Restroom), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, r *models.Restroom) (*models.Restroom, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Restroom), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) SetStatus(ctx context.Context, id uuid.UUID, status models.RestroomStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockRepository) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	return m.Called(ctx, id, verified).Error(0)
}

func (m *MockRepository) SearchNearby(ctx context.Context, p models.SearchParams) ([]models.RestroomWithDistance, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RestroomWithDistance), args.Error(1)
}

func (m *MockRepository) SearchAlongRoute(ctx context.Context, p models.RouteSearchParams) ([]models.RestroomWithDistance, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RestroomWithDistance), args.Error(1)
}

func (m *MockRepository) UpsertFromSource(ctx context.Context, r *models.Restroom) (bool, error) {
	args := m.Called(ctx, r)
	return args.Bool(0), args.Error(1)
}

type MockPoints struct {
	mock.Mock
}

func (m *MockPoints) AwardPoints(ctx context.Context, userID uuid.UUID, points int, reason string) error {
	return m.Called(ctx, userID, points, reason).Error(0)
}

func serviceConfig() *config.Config {
	return &config.Config{
		Search: config.SearchConfig{
			DefaultRadiusMeters: 5000,
			MaxRadiusMeters:     50000,
			DefaultLimit:        50,
			MaxLimit:            200,
		},
		Points: config.PointsConfig{Restroom: 20},
	}
}

func newTestService(repo Repository, points PointsAwarder) *ServiceImpl {
	metrics.InitAppMetrics()
	return NewService(repo, nil, nil, points, serviceConfig(), zap.NewNop())
}

func TestServiceSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("applies defaults before querying the store", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("SearchNearby", mock.Anything, mock.MatchedBy(func(p models.SearchParams) bool {
			return p.RadiusMeters == 5000 && p.Limit == 50
		})).Return([]models.RestroomWithDistance{}, nil)

		svc := newTestService(repo, nil)
		_, err := svc.Search(ctx, models.SearchParams{Latitude: 40.7580, Longitude: -73.9855})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("nearby hit carries aggregates through", func(t *testing.T) {
		repo := new(MockRepository)
		id := uuid.New()
		repo.On("SearchNearby", mock.Anything, mock.Anything).Return([]models.RestroomWithDistance{
			{
				Restroom:       models.Restroom{ID: id, Name: "Bryant Park Restroom", AvgOverall: 4.0, ReviewCount: 3},
				DistanceMeters: 100.2,
			},
		}, nil)

		svc := newTestService(repo, nil)
		results, err := svc.Search(ctx, models.SearchParams{
			Latitude: 40.7580, Longitude: -73.9855, RadiusMeters: 1000,
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, id, results[0].ID)
		assert.InDelta(t, 4.0, results[0].AvgOverall, 1e-9)
		assert.Equal(t, 3, results[0].ReviewCount)
		assert.InDelta(t, 100.2, results[0].DistanceMeters, 1e-9)
	})

	t.Run("invalid coordinates never reach the store", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, nil)
		_, err := svc.Search(ctx, models.SearchParams{Latitude: 91, Longitude: 0})
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
		repo.AssertNotCalled(t, "SearchNearby")
	})

	t.Run("store errors propagate", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("SearchNearby", mock.Anything, mock.Anything).Return(nil, models.ErrStoreUnavailable)

		svc := newTestService(repo, nil)
		_, err := svc.Search(ctx, models.SearchParams{Latitude: 1, Longitude: 1})
		assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	})

	t.Run("results re-sorted defensively", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("SearchNearby", mock.Anything, mock.Anything).Return([]models.RestroomWithDistance{
			hit(300, 1, "33333333-3333-3333-3333-333333333333"),
			hit(100, 5, "11111111-1111-1111-1111-111111111111"),
		}, nil)

		svc := newTestService(repo, nil)
		results, err := svc.Search(ctx, models.SearchParams{Latitude: 1, Longitude: 1})
		require.NoError(t, err)
		assert.Equal(t, 100.0, results[0].DistanceMeters)
	})
}

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("awards contribution points", func(t *testing.T) {
		repo := new(MockRepository)
		points := new(MockPoints)
		created := &models.Restroom{ID: uuid.New(), Name: "City Hall"}

		repo.On("Create", ctx, mock.AnythingOfType("*models.Restroom")).Return(created, nil)
		points.On("AwardPoints", ctx, userID, 20, "restroom_added").Return(nil)

		svc := newTestService(repo, points)
		out, err := svc.Create(ctx, userID, &models.Restroom{
			Name: "City Hall", Latitude: 40.71, Longitude: -74.0,
		})
		require.NoError(t, err)
		assert.Equal(t, created.ID, out.ID)
		points.AssertExpectations(t)
	})

	t.Run("rejects bad coordinates", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, nil)
		_, err := svc.Create(ctx, userID, &models.Restroom{Name: "x", Latitude: 200})
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})
}

func TestServiceUpdatePermissions(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()
	id := uuid.New()

	existing := &models.Restroom{ID: id, Name: "Old", Latitude: 1, Longitude: 1, CreatedBy: &owner}

	t.Run("stranger forbidden", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByID", ctx, id).Return(existing, nil)

		svc := newTestService(repo, nil)
		_, err := svc.Update(ctx, stranger, models.RoleUser, &models.Restroom{ID: id, Name: "New", Latitude: 1, Longitude: 1})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("moderator allowed", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByID", ctx, id).Return(existing, nil)
		repo.On("Update", ctx, mock.AnythingOfType("*models.Restroom")).Return(existing, nil)

		svc := newTestService(repo, nil)
		_, err := svc.Update(ctx, stranger, models.RoleModerator, &models.Restroom{ID: id, Name: "New", Latitude: 1, Longitude: 1})
		assert.NoError(t, err)
	})

	t.Run("delete requires moderator", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, nil)
		err := svc.Delete(ctx, models.RoleUser, id)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})
}
