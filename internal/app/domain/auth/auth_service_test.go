package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/looquest/looquest/internal/app/models"
	"github.com/looquest/looquest/internal/pkg/config"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	args := m.Called(ctx, username, email, passwordHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, newPasswordHash string) error {
	return m.Called(ctx, userID, newPasswordHash).Error(0)
}

func (m *MockRepository) RecordLogin(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockRepository) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	return m.Called(ctx, userID, tokenHash, expiresAt).Error(0)
}

func (m *MockRepository) ValidateRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockRepository) InvalidateRefreshToken(ctx context.Context, tokenHash string) error {
	return m.Called(ctx, tokenHash).Error(0)
}

func (m *MockRepository) InvalidateAllUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:          "test-secret",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
	}
}

func testUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           uuid.New(),
		Username:     "tester",
		Email:        "tester@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		IsActive:     true,
	}
}

func TestServiceLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success issues both tokens", func(t *testing.T) {
		repo := new(MockRepository)
		user := testUser(t, "correct-horse")
		repo.On("GetUserByEmail", ctx, user.Email).Return(user, nil)
		repo.On("StoreRefreshToken", ctx, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)
		repo.On("RecordLogin", ctx, user.ID).Return(nil)

		svc := NewService(repo, testConfig(), zap.NewNop())
		access, refresh, got, err := svc.Login(ctx, user.Email, "correct-horse")
		require.NoError(t, err)
		assert.NotEmpty(t, access)
		assert.NotEmpty(t, refresh)
		assert.Equal(t, user.ID, got.ID)

		claims, err := ValidateAccessToken("test-secret", access)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID)
		repo.AssertExpectations(t)
	})

	t.Run("wrong password is unauthenticated", func(t *testing.T) {
		repo := new(MockRepository)
		user := testUser(t, "correct-horse")
		repo.On("GetUserByEmail", ctx, user.Email).Return(user, nil)

		svc := NewService(repo, testConfig(), zap.NewNop())
		_, _, _, err := svc.Login(ctx, user.Email, "wrong")
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
	})

	t.Run("unknown email is unauthenticated not not-found", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetUserByEmail", ctx, "nobody@example.com").Return(nil, models.ErrNotFound)

		svc := NewService(repo, testConfig(), zap.NewNop())
		_, _, _, err := svc.Login(ctx, "nobody@example.com", "whatever")
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
		assert.NotErrorIs(t, err, models.ErrNotFound)
	})
}

func TestServiceRefreshSession(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates the refresh token", func(t *testing.T) {
		repo := new(MockRepository)
		user := testUser(t, "pw-doesnt-matter")
		oldToken := uuid.NewString()
		oldHash := HashRefreshToken(oldToken)

		repo.On("ValidateRefreshToken", ctx, oldHash).Return(user.ID, nil)
		repo.On("GetUserByID", ctx, user.ID).Return(user, nil)
		repo.On("StoreRefreshToken", ctx, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)
		repo.On("InvalidateRefreshToken", ctx, oldHash).Return(nil)

		svc := NewService(repo, testConfig(), zap.NewNop())
		access, newToken, err := svc.RefreshSession(ctx, oldToken)
		require.NoError(t, err)
		assert.NotEmpty(t, access)
		assert.NotEqual(t, oldToken, newToken)
		repo.AssertExpectations(t)
	})

	t.Run("failed revocation of the old token fails the rotation", func(t *testing.T) {
		repo := new(MockRepository)
		user := testUser(t, "pw-doesnt-matter")
		oldToken := uuid.NewString()
		oldHash := HashRefreshToken(oldToken)

		repo.On("ValidateRefreshToken", ctx, oldHash).Return(user.ID, nil)
		repo.On("GetUserByID", ctx, user.ID).Return(user, nil)
		repo.On("StoreRefreshToken", ctx, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)
		repo.On("InvalidateRefreshToken", ctx, oldHash).Return(models.ErrStoreUnavailable)

		svc := NewService(repo, testConfig(), zap.NewNop())
		access, newToken, err := svc.RefreshSession(ctx, oldToken)
		assert.ErrorIs(t, err, models.ErrStoreUnavailable)
		assert.Empty(t, access)
		assert.Empty(t, newToken)
	})

	t.Run("revoked token is rejected", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ValidateRefreshToken", ctx, mock.AnythingOfType("string")).
			Return(uuid.Nil, models.ErrUnauthenticated)

		svc := NewService(repo, testConfig(), zap.NewNop())
		_, _, err := svc.RefreshSession(ctx, "revoked")
		assert.ErrorIs(t, err, models.ErrUnauthenticated)
	})
}

func TestServiceRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("short password rejected before hitting the store", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, testConfig(), zap.NewNop())
		_, err := svc.Register(ctx, "tester", "tester@example.com", "short")
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
		repo.AssertNotCalled(t, "CreateUser")
	})

	t.Run("duplicate email surfaces conflict", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("CreateUser", mock.Anything, "tester", "tester@example.com", mock.AnythingOfType("string")).
			Return(nil, models.ErrConflict)

		svc := NewService(repo, testConfig(), zap.NewNop())
		_, err := svc.Register(ctx, "tester", "tester@example.com", "long-enough-pw")
		assert.ErrorIs(t, err, models.ErrConflict)
	})
}

func TestHashRefreshToken(t *testing.T) {
	a := HashRefreshToken("token-a")
	assert.Equal(t, a, HashRefreshToken("token-a"))
	assert.NotEqual(t, a, HashRefreshToken("token-b"))
	assert.Len(t, a, 64)
}
