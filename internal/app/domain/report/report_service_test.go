package report

import (
	"context"
	"testing"
	"time"

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

func (m *MockRepository) Create(ctx context.Context, rp *models.Report) (*models.Report, error) {
	args := m.Called(ctx, rp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockRepository) ListOpen(ctx context.Context, limit, offset int) ([]models.Report, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Report), args.Error(1)
}

func (m *MockRepository) ListByRestroom(ctx context.Context, restroomID uuid.UUID, limit, offset int) ([]models.Report, error) {
	args := m.Called(ctx, restroomID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Report), args.Error(1)
}

func (m *MockRepository) CountRecentByType(ctx context.Context, restroomID uuid.UUID, t models.ReportType, since time.Time) (int, error) {
	args := m.Called(ctx, restroomID, t, since)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) Resolve(ctx context.Context, id uuid.UUID, resolvedBy uuid.UUID, status models.ReportStatus) error {
	args := m.Called(ctx, id, resolvedBy, status)
	return args.Error(0)
}

func (m *MockRepository) ResolveOpenByType(ctx context.Context, restroomID uuid.UUID, t models.ReportType, resolvedBy *uuid.UUID) error {
	args := m.Called(ctx, restroomID, t, resolvedBy)
	return args.Error(0)
}

type MockStatusSetter struct {
	mock.Mock
}

func (m *MockStatusSetter) SetStatus(ctx context.Context, restroomID uuid.UUID, status models.RestroomStatus) error {
	args := m.Called(ctx, restroomID, status)
	return args.Error(0)
}

func newTestService(t *testing.T) (*ServiceImpl, *MockRepository, *MockStatusSetter) {
	t.Helper()
	metrics.InitAppMetrics()

	repo := new(MockRepository)
	restrooms := new(MockStatusSetter)
	cfg := &config.Config{}
	cfg.Search.DefaultLimit = 50
	cfg.Search.MaxLimit = 200
	return NewService(repo, restrooms, cfg, zap.NewNop()), repo, restrooms
}

func created(restroomID, userID uuid.UUID, t models.ReportType) *models.Report {
	return &models.Report{
		ID:         uuid.New(),
		RestroomID: restroomID,
		UserID:     userID,
		Type:       t,
		Status:     models.ReportOpen,
		CreatedAt:  time.Now(),
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	reporter := &models.User{ID: uuid.New(), Role: models.RoleUser}

	_, err := svc.Create(context.Background(), reporter, &models.Report{
		RestroomID: uuid.New(),
		Type:       models.ReportType("bogus"),
	})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestCreateBelowThresholdLeavesRestroomOpen(t *testing.T) {
	svc, repo, restrooms := newTestService(t)
	restroomID := uuid.New()
	reporter := &models.User{ID: uuid.New(), Role: models.RoleUser}

	repo.On("Create", mock.Anything, mock.Anything).
		Return(created(restroomID, reporter.ID, models.ReportClosed), nil)
	repo.On("CountRecentByType", mock.Anything, restroomID, models.ReportClosed, mock.Anything).
		Return(2, nil)

	_, err := svc.Create(context.Background(), reporter, &models.Report{
		RestroomID: restroomID,
		Type:       models.ReportClosed,
	})
	require.NoError(t, err)
	restrooms.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateThirdReportClosesRestroom(t *testing.T) {
	svc, repo, restrooms := newTestService(t)
	restroomID := uuid.New()
	reporter := &models.User{ID: uuid.New(), Role: models.RoleUser}

	repo.On("Create", mock.Anything, mock.Anything).
		Return(created(restroomID, reporter.ID, models.ReportClosed), nil)
	repo.On("CountRecentByType", mock.Anything, restroomID, models.ReportClosed, mock.Anything).
		Return(3, nil)
	restrooms.On("SetStatus", mock.Anything, restroomID, models.StatusTemporarilyClosed).Return(nil)
	repo.On("ResolveOpenByType", mock.Anything, restroomID, models.ReportClosed, (*uuid.UUID)(nil)).
		Return(nil)

	_, err := svc.Create(context.Background(), reporter, &models.Report{
		RestroomID: restroomID,
		Type:       models.ReportClosed,
	})
	require.NoError(t, err)
	restrooms.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestCreateModeratorReportClosesImmediately(t *testing.T) {
	svc, repo, restrooms := newTestService(t)
	restroomID := uuid.New()
	moderator := &models.User{ID: uuid.New(), Role: models.RoleModerator}

	repo.On("Create", mock.Anything, mock.Anything).
		Return(created(restroomID, moderator.ID, models.ReportClosed), nil)
	restrooms.On("SetStatus", mock.Anything, restroomID, models.StatusTemporarilyClosed).Return(nil)
	repo.On("ResolveOpenByType", mock.Anything, restroomID, models.ReportClosed, (*uuid.UUID)(nil)).
		Return(nil)

	_, err := svc.Create(context.Background(), moderator, &models.Report{
		RestroomID: restroomID,
		Type:       models.ReportClosed,
	})
	require.NoError(t, err)
	repo.AssertNotCalled(t, "CountRecentByType", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	restrooms.AssertExpectations(t)
}

func TestCreateNonClosureTypeNeverCloses(t *testing.T) {
	svc, repo, restrooms := newTestService(t)
	restroomID := uuid.New()
	reporter := &models.User{ID: uuid.New(), Role: models.RoleUser}

	repo.On("Create", mock.Anything, mock.Anything).
		Return(created(restroomID, reporter.ID, models.ReportDirty), nil)

	_, err := svc.Create(context.Background(), reporter, &models.Report{
		RestroomID: restroomID,
		Type:       models.ReportDirty,
	})
	require.NoError(t, err)
	restrooms.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "CountRecentByType", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateCloseFailureDoesNotFailReport(t *testing.T) {
	svc, repo, restrooms := newTestService(t)
	restroomID := uuid.New()
	reporter := &models.User{ID: uuid.New(), Role: models.RoleUser}

	repo.On("Create", mock.Anything, mock.Anything).
		Return(created(restroomID, reporter.ID, models.ReportClosed), nil)
	repo.On("CountRecentByType", mock.Anything, restroomID, models.ReportClosed, mock.Anything).
		Return(5, nil)
	restrooms.On("SetStatus", mock.Anything, restroomID, models.StatusTemporarilyClosed).
		Return(models.ErrStoreUnavailable)

	rp, err := svc.Create(context.Background(), reporter, &models.Report{
		RestroomID: restroomID,
		Type:       models.ReportClosed,
	})
	require.NoError(t, err)
	assert.NotNil(t, rp)
	repo.AssertNotCalled(t, "ResolveOpenByType", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestModeration(t *testing.T) {
	svc, repo, _ := newTestService(t)
	reportID := uuid.New()
	moderatorID := uuid.New()

	repo.On("Resolve", mock.Anything, reportID, moderatorID, models.ReportResolved).Return(nil)
	repo.On("Resolve", mock.Anything, reportID, moderatorID, models.ReportDismissed).Return(nil)

	assert.NoError(t, svc.Resolve(context.Background(), reportID, moderatorID))
	assert.NoError(t, svc.Dismiss(context.Background(), reportID, moderatorID))
	repo.AssertExpectations(t)
}
