package review

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/looquest/looquest/internal/app/models"
	"github.com/looquest/looquest/internal/app/observability/metrics"
)

// RatingSample is one review's ratings as read for aggregation. Every
// dimension is present on every review.
type RatingSample struct {
	Overall       int
	Cleanliness   int
	Accessibility int
	Privacy       int
	Safety        int
	Lighting      int
}

// ComputeAggregates derives the cached rating summary from a full set of
// samples. A restroom with no reviews gets all zeroes.
func ComputeAggregates(restroomID uuid.UUID, samples []RatingSample) models.RestroomAggregates {
	agg := models.RestroomAggregates{RestroomID: restroomID, ReviewCount: len(samples)}
	if len(samples) == 0 {
		return agg
	}

	var sums [6]float64
	for _, s := range samples {
		for i, v := range [6]int{s.Overall, s.Cleanliness, s.Accessibility, s.Privacy, s.Safety, s.Lighting} {
			sums[i] += float64(v)
		}
	}

	n := float64(len(samples))
	avgs := [6]*float64{&agg.AvgOverall, &agg.AvgCleanliness, &agg.AvgAccessibility,
		&agg.AvgPrivacy, &agg.AvgSafety, &agg.AvgLighting}
	for i, sum := range sums {
		*avgs[i] = sum / n
	}
	return agg
}

const (
	recomputeAttempts = 3
	recomputeBackoff  = 50 * time.Millisecond
)

// Recomputer serializes aggregate recomputation per restroom. In-process
// callers collapse onto one flight; across processes the repository's row
// lock serializes writers, so concurrent review writes cannot leave stale
// aggregates behind.
type Recomputer struct {
	repo   Repository
	group  singleflight.Group
	logger *zap.Logger
}

func NewRecomputer(repo Repository, logger *zap.Logger) *Recomputer {
	return &Recomputer{repo: repo, logger: logger}
}

// Recompute refreshes the restroom's cached aggregates, retrying transient
// store failures a bounded number of times.
func (r *Recomputer) Recompute(ctx context.Context, restroomID uuid.UUID) (*models.RestroomAggregates, error) {
	start := time.Now()
	key := restroomID.String()
	run := func() (any, error) {
		var lastErr error
		for attempt := 1; attempt <= recomputeAttempts; attempt++ {
			agg, err := r.repo.RecomputeAggregates(ctx, restroomID)
			if err == nil {
				return agg, nil
			}
			if errors.Is(err, models.ErrNotFound) || ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			r.logger.Warn("Aggregate recompute attempt failed",
				zap.String("restroom_id", key),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if attempt < recomputeAttempts {
				time.Sleep(time.Duration(attempt) * recomputeBackoff)
			}
		}
		return nil, lastErr
	}

	v, err, shared := r.group.Do(key, run)
	if err == nil && shared {
		// A shared flight may have read the store before this caller's own
		// write committed. One more flight, started strictly after the join,
		// is guaranteed to observe it.
		r.group.Forget(key)
		v, err, _ = r.group.Do(key, run)
	}

	m := metrics.Get()
	m.AggregateRecomputesTotal.Add(ctx, 1)
	m.AggregateRecomputeDuration.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	return v.(*models.RestroomAggregates), nil
}
