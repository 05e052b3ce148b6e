package favorites

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/app/models"
)

func TestRepositoryAdd(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewRepository(mockPool, zap.NewNop())
	userID := uuid.New()
	restroomID := uuid.New()

	t.Run("duplicate favorite is a conflict", func(t *testing.T) {
		mockPool.ExpectQuery("INSERT INTO favorites").
			WithArgs(userID, restroomID).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err := repo.Add(context.Background(), userID, restroomID)
		assert.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("unknown restroom is not found", func(t *testing.T) {
		mockPool.ExpectQuery("INSERT INTO favorites").
			WithArgs(userID, restroomID).
			WillReturnError(&pgconn.PgError{Code: "23503"})

		_, err := repo.Add(context.Background(), userID, restroomID)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestRepositoryRemove(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewRepository(mockPool, zap.NewNop())
	userID := uuid.New()
	restroomID := uuid.New()

	t.Run("missing favorite is not found", func(t *testing.T) {
		mockPool.ExpectExec("DELETE FROM favorites").
			WithArgs(userID, restroomID).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := repo.Remove(context.Background(), userID, restroomID)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("removes existing favorite", func(t *testing.T) {
		mockPool.ExpectExec("DELETE FROM favorites").
			WithArgs(userID, restroomID).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		assert.NoError(t, repo.Remove(context.Background(), userID, restroomID))
	})
}
