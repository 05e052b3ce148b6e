package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/app/models"
	"github.com/looquest/looquest/internal/app/observability/metrics"
	"github.com/looquest/looquest/internal/pkg/config"
)

// Closure confirmation: this many distinct reporters within the window
// mark a restroom temporarily closed without moderator intervention.
// Permanent closure stays a moderator decision.
const (
	autoCloseThreshold = 3
	autoCloseWindow    = 24 * time.Hour
)

var _ Service = (*ServiceImpl)(nil)

// StatusSetter lets reports close restrooms without importing the
// restroom domain.
type StatusSetter interface {
	SetStatus(ctx context.Context, restroomID uuid.UUID, status models.RestroomStatus) error
}

type Service interface {
	Create(ctx context.Context, reporter *models.User, rp *models.Report) (*models.Report, error)
	ListOpen(ctx context.Context, limit, offset int) ([]models.Report, error)
	ListByRestroom(ctx context.Context, restroomID uuid.UUID, limit, offset int) ([]models.Report, error)
	Resolve(ctx context.Context, reportID, moderatorID uuid.UUID) error
	Dismiss(ctx context.Context, reportID, moderatorID uuid.UUID) error
}

type ServiceImpl struct {
	logger    *zap.Logger
	repo      Repository
	restrooms StatusSetter
	cfg       *config.Config
}

func NewService(repo Repository, restrooms StatusSetter, cfg *config.Config, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo, restrooms: restrooms, cfg: cfg}
}

func (s *ServiceImpl) Create(ctx context.Context, reporter *models.User, rp *models.Report) (*models.Report, error) {
	tracer := otel.Tracer("ReportService")
	ctx, span := tracer.Start(ctx, "Create")
	defer span.End()

	if !rp.Type.Valid() {
		return nil, fmt.Errorf("unknown report type %q: %w", rp.Type, models.ErrInvalidArgument)
	}
	if rp.Comment != nil && len(*rp.Comment) > 2000 {
		return nil, fmt.Errorf("comment exceeds 2000 characters: %w", models.ErrInvalidArgument)
	}
	rp.UserID = reporter.ID

	created, err := s.repo.Create(ctx, rp)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create report")
		return nil, err
	}
	span.SetAttributes(attribute.String("report.type", string(created.Type)))

	if created.Type == models.ReportClosed {
		s.maybeCloseRestroom(ctx, reporter, created)
	}
	return created, nil
}

// maybeCloseRestroom applies the closure rule after a closed-type report
// lands. A moderator's report closes immediately; regular users need
// autoCloseThreshold distinct reporters inside the window. Failures here
// never fail the report itself.
func (s *ServiceImpl) maybeCloseRestroom(ctx context.Context, reporter *models.User, rp *models.Report) {
	l := s.logger.With(zap.String("restroom_id", rp.RestroomID.String()))

	trusted := reporter.Role == models.RoleModerator || reporter.Role == models.RoleAdmin
	if !trusted {
		count, err := s.repo.CountRecentByType(ctx, rp.RestroomID, models.ReportClosed, time.Now().Add(-autoCloseWindow))
		if err != nil {
			l.Warn("Failed to count closure reports, skipping auto-close", zap.Error(err))
			return
		}
		if count < autoCloseThreshold {
			return
		}
	}

	if err := s.restrooms.SetStatus(ctx, rp.RestroomID, models.StatusTemporarilyClosed); err != nil {
		l.Warn("Failed to auto-close restroom", zap.Error(err))
		return
	}
	if err := s.repo.ResolveOpenByType(ctx, rp.RestroomID, models.ReportClosed, nil); err != nil {
		l.Warn("Restroom closed but resolving its reports failed", zap.Error(err))
	}
	metrics.Get().ReportsAutoClosedTotal.Add(ctx, 1)
	l.Info("Restroom auto-closed from closure reports", zap.Bool("trusted_reporter", trusted))
}

func (s *ServiceImpl) ListOpen(ctx context.Context, limit, offset int) ([]models.Report, error) {
	limit, offset = s.clampPage(limit, offset)
	return s.repo.ListOpen(ctx, limit, offset)
}

func (s *ServiceImpl) ListByRestroom(ctx context.Context, restroomID uuid.UUID, limit, offset int) ([]models.Report, error) {
	limit, offset = s.clampPage(limit, offset)
	return s.repo.ListByRestroom(ctx, restroomID, limit, offset)
}

func (s *ServiceImpl) Resolve(ctx context.Context, reportID, moderatorID uuid.UUID) error {
	return s.repo.Resolve(ctx, reportID, moderatorID, models.ReportResolved)
}

func (s *ServiceImpl) Dismiss(ctx context.Context, reportID, moderatorID uuid.UUID) error {
	return s.repo.Resolve(ctx, reportID, moderatorID, models.ReportDismissed)
}

func (s *ServiceImpl) clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.cfg.Search.DefaultLimit
	}
	if limit > s.cfg.Search.MaxLimit {
		limit = s.cfg.Search.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
