package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/app/models"
	database "github.com/looquest/looquest/internal/db"
)

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	Create(ctx context.Context, rp *models.Report) (*models.Report, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	ListOpen(ctx context.Context, limit, offset int) ([]models.Report, error)
	ListByRestroom(ctx context.Context, restroomID uuid.UUID, limit, offset int) ([]models.Report, error)

	// CountRecentByType counts reports of one type against a restroom since
	// the given time, regardless of status.
	CountRecentByType(ctx context.Context, restroomID uuid.UUID, t models.ReportType, since time.Time) (int, error)
	// Resolve sets a report's final status.
	Resolve(ctx context.Context, id uuid.UUID, resolvedBy uuid.UUID, status models.ReportStatus) error
	// ResolveOpenByType resolves every open report of one type against a
	// restroom, used when a closure is confirmed.
	ResolveOpenByType(ctx context.Context, restroomID uuid.UUID, t models.ReportType, resolvedBy *uuid.UUID) error
}

type RepositoryImpl struct {
	logger *zap.Logger
	pgpool database.PGX
}

func NewRepository(pgpool database.PGX, logger *zap.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

const reportColumns = `id, restroom_id, user_id, type, comment, status, resolved_by, resolved_at, created_at`

func scanReport(row pgx.Row, rp *models.Report) error {
	return row.Scan(&rp.ID, &rp.RestroomID, &rp.UserID, &rp.Type, &rp.Comment,
		&rp.Status, &rp.ResolvedBy, &rp.ResolvedAt, &rp.CreatedAt)
}

func (r *RepositoryImpl) Create(ctx context.Context, rp *models.Report) (*models.Report, error) {
	query := `
		INSERT INTO reports (restroom_id, user_id, type, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + reportColumns

	var out models.Report
	err := scanReport(r.pgpool.QueryRow(ctx, query, rp.RestroomID, rp.UserID, rp.Type, rp.Comment), &out)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, fmt.Errorf("restroom does not exist: %w", models.ErrNotFound)
		}
		r.logger.Error("Error inserting report", zap.Error(err))
		return nil, fmt.Errorf("database error creating report: %w", models.ErrStoreUnavailable)
	}
	return &out, nil
}

func (r *RepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var out models.Report
	err := scanReport(r.pgpool.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = $1`, id), &out)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("report %s not found: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("database error fetching report: %w", models.ErrStoreUnavailable)
	}
	return &out, nil
}

func (r *RepositoryImpl) listReports(ctx context.Context, query string, args ...any) ([]models.Report, error) {
	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Error listing reports", zap.Error(err))
		return nil, fmt.Errorf("database error listing reports: %w", models.ErrStoreUnavailable)
	}
	defer rows.Close()

	reports := make([]models.Report, 0)
	for rows.Next() {
		var rp models.Report
		if err := scanReport(rows, &rp); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		reports = append(reports, rp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("report row iteration failed: %w", err)
	}
	return reports, nil
}

func (r *RepositoryImpl) ListOpen(ctx context.Context, limit, offset int) ([]models.Report, error) {
	query := `SELECT ` + reportColumns + `
		FROM reports WHERE status = 'open'
		ORDER BY created_at ASC, id ASC LIMIT $1 OFFSET $2`
	return r.listReports(ctx, query, limit, offset)
}

func (r *RepositoryImpl) ListByRestroom(ctx context.Context, restroomID uuid.UUID, limit, offset int) ([]models.Report, error) {
	query := `SELECT ` + reportColumns + `
		FROM reports WHERE restroom_id = $1
		ORDER BY created_at DESC, id ASC LIMIT $2 OFFSET $3`
	return r.listReports(ctx, query, restroomID, limit, offset)
}

func (r *RepositoryImpl) CountRecentByType(ctx context.Context, restroomID uuid.UUID, t models.ReportType, since time.Time) (int, error) {
	var count int
	err := r.pgpool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM reports
		 WHERE restroom_id = $1 AND type = $2 AND created_at >= $3`,
		restroomID, t, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("database error counting reports: %w", models.ErrStoreUnavailable)
	}
	return count, nil
}

func (r *RepositoryImpl) Resolve(ctx context.Context, id uuid.UUID, resolvedBy uuid.UUID, status models.ReportStatus) error {
	tag, err := r.pgpool.Exec(ctx,
		`UPDATE reports SET status = $2, resolved_by = $3, resolved_at = NOW()
		 WHERE id = $1 AND status = 'open'`,
		id, status, resolvedBy)
	if err != nil {
		r.logger.Error("Error resolving report", zap.Error(err), zap.String("report_id", id.String()))
		return fmt.Errorf("database error resolving report: %w", models.ErrStoreUnavailable)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("open report %s not found: %w", id, models.ErrNotFound)
	}
	return nil
}

func (r *RepositoryImpl) ResolveOpenByType(ctx context.Context, restroomID uuid.UUID, t models.ReportType, resolvedBy *uuid.UUID) error {
	_, err := r.pgpool.Exec(ctx,
		`UPDATE reports SET status = 'resolved', resolved_by = $3, resolved_at = NOW()
		 WHERE restroom_id = $1 AND type = $2 AND status = 'open'`,
		restroomID, t, resolvedBy)
	if err != nil {
		r.logger.Error("Error bulk resolving reports", zap.Error(err))
		return fmt.Errorf("database error resolving reports: %w", models.ErrStoreUnavailable)
	}
	return nil
}
