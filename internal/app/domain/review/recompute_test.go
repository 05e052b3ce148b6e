package review

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/app/models"
	"github.com/looquest/looquest/internal/app/observability/metrics"
)

func TestComputeAggregates(t *testing.T) {
	id := uuid.New()

	t.Run("averages every dimension over all reviews", func(t *testing.T) {
		agg := ComputeAggregates(id, []RatingSample{
			{Overall: 5, Cleanliness: 5, Accessibility: 4, Privacy: 2, Safety: 3, Lighting: 5},
			{Overall: 3, Cleanliness: 2, Accessibility: 2, Privacy: 4, Safety: 3, Lighting: 1},
			{Overall: 4, Cleanliness: 5, Accessibility: 3, Privacy: 3, Safety: 3, Lighting: 3},
		})
		assert.InDelta(t, 4.0, agg.AvgOverall, 1e-9)
		assert.InDelta(t, 4.0, agg.AvgCleanliness, 1e-9)
		assert.InDelta(t, 3.0, agg.AvgAccessibility, 1e-9)
		assert.InDelta(t, 3.0, agg.AvgPrivacy, 1e-9)
		assert.InDelta(t, 3.0, agg.AvgSafety, 1e-9)
		assert.InDelta(t, 3.0, agg.AvgLighting, 1e-9)
		assert.Equal(t, 3, agg.ReviewCount)
	})

	t.Run("no reviews means zeroes", func(t *testing.T) {
		agg := ComputeAggregates(id, nil)
		assert.Equal(t, 0, agg.ReviewCount)
		assert.Zero(t, agg.AvgOverall)
		assert.Zero(t, agg.AvgCleanliness)
		assert.Zero(t, agg.AvgLighting)
	})

	t.Run("non-integral average is exact", func(t *testing.T) {
		agg := ComputeAggregates(id, []RatingSample{
			{Overall: 5}, {Overall: 4}, {Overall: 4},
		})
		assert.InDelta(t, 13.0/3.0, agg.AvgOverall, 1e-9)
	})

	t.Run("single review", func(t *testing.T) {
		agg := ComputeAggregates(id, []RatingSample{
			{Overall: 2, Cleanliness: 1, Accessibility: 1, Privacy: 1, Safety: 1, Lighting: 4},
		})
		assert.InDelta(t, 2.0, agg.AvgOverall, 1e-9)
		assert.InDelta(t, 4.0, agg.AvgLighting, 1e-9)
		assert.Equal(t, 1, agg.ReviewCount)
	})
}

// lockingRepo simulates the row-locked store path: each run snapshots the
// current sample set, so every recompute reflects all writes committed
// before it started.
type lockingRepo struct {
	Repository
	mu         sync.Mutex
	samples    []RatingSample
	calls      atomic.Int64
	failsLeft  atomic.Int64
	concurrent atomic.Int64
	maxSeen    atomic.Int64
}

func (f *lockingRepo) RecomputeAggregates(ctx context.Context, restroomID uuid.UUID) (*models.RestroomAggregates, error) {
	if f.failsLeft.Add(-1) >= 0 {
		return nil, models.ErrStoreUnavailable
	}

	cur := f.concurrent.Add(1)
	if cur > f.maxSeen.Load() {
		f.maxSeen.Store(cur)
	}
	defer f.concurrent.Add(-1)

	// Long enough for concurrent callers to pile onto the same flight.
	time.Sleep(10 * time.Millisecond)

	f.mu.Lock()
	samples := append([]RatingSample(nil), f.samples...)
	f.mu.Unlock()

	f.calls.Add(1)
	agg := ComputeAggregates(restroomID, samples)
	return &agg, nil
}

// stallingRepo snapshots the samples, then blocks the first run until
// released. Later runs complete immediately.
type stallingRepo struct {
	Repository
	mu      sync.Mutex
	samples []RatingSample
	entered chan struct{}
	release chan struct{}
	first   sync.Once
}

func (f *stallingRepo) RecomputeAggregates(ctx context.Context, restroomID uuid.UUID) (*models.RestroomAggregates, error) {
	f.mu.Lock()
	samples := append([]RatingSample(nil), f.samples...)
	f.mu.Unlock()

	f.first.Do(func() {
		close(f.entered)
		<-f.release
	})

	agg := ComputeAggregates(restroomID, samples)
	return &agg, nil
}

func TestRecomputer(t *testing.T) {
	metrics.InitAppMetrics()
	ctx := context.Background()
	id := uuid.New()

	t.Run("retries transient failures", func(t *testing.T) {
		repo := &lockingRepo{samples: []RatingSample{{Overall: 4}}}
		repo.failsLeft.Store(2)

		rc := NewRecomputer(repo, zap.NewNop())
		agg, err := rc.Recompute(ctx, id)
		require.NoError(t, err)
		assert.InDelta(t, 4.0, agg.AvgOverall, 1e-9)
	})

	t.Run("gives up after bounded attempts", func(t *testing.T) {
		repo := &lockingRepo{}
		repo.failsLeft.Store(100)

		rc := NewRecomputer(repo, zap.NewNop())
		_, err := rc.Recompute(ctx, id)
		assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	})

	t.Run("missing restroom is not retried", func(t *testing.T) {
		repo := &notFoundRepo{}
		rc := NewRecomputer(repo, zap.NewNop())
		_, err := rc.Recompute(ctx, id)
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Equal(t, int64(1), repo.calls.Load())
	})

	t.Run("concurrent recomputes of one restroom collapse", func(t *testing.T) {
		repo := &lockingRepo{samples: []RatingSample{{Overall: 5}, {Overall: 3}, {Overall: 4}}}
		repo.failsLeft.Store(0)
		rc := NewRecomputer(repo, zap.NewNop())

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				agg, err := rc.Recompute(ctx, id)
				assert.NoError(t, err)
				assert.InDelta(t, 4.0, agg.AvgOverall, 1e-9)
				assert.Equal(t, 3, agg.ReviewCount)
			}()
		}
		wg.Wait()

		// Overlapping callers collapse onto shared flights; each caller runs
		// at most two, so the store sees far fewer runs than callers.
		assert.Less(t, repo.calls.Load(), int64(32))
	})

	t.Run("caller joining an in-flight recompute still observes its own write", func(t *testing.T) {
		repo := &stallingRepo{
			samples: []RatingSample{{Overall: 4}},
			entered: make(chan struct{}),
			release: make(chan struct{}),
		}
		rc := NewRecomputer(repo, zap.NewNop())

		firstDone := make(chan struct{})
		go func() {
			defer close(firstDone)
			_, err := rc.Recompute(ctx, id)
			assert.NoError(t, err)
		}()
		<-repo.entered

		// A second review commits while the first recompute is mid-flight,
		// having already read the old sample set.
		repo.mu.Lock()
		repo.samples = append(repo.samples, RatingSample{Overall: 2})
		repo.mu.Unlock()

		secondDone := make(chan *models.RestroomAggregates, 1)
		go func() {
			agg, err := rc.Recompute(ctx, id)
			assert.NoError(t, err)
			secondDone <- agg
		}()

		// Give the second caller time to join the stalled flight, then let
		// the flight finish with its stale snapshot.
		time.Sleep(20 * time.Millisecond)
		close(repo.release)
		<-firstDone

		agg := <-secondDone
		require.NotNil(t, agg)
		assert.Equal(t, 2, agg.ReviewCount)
		assert.InDelta(t, 3.0, agg.AvgOverall, 1e-9)
	})
}

type notFoundRepo struct {
	Repository
	calls atomic.Int64
}

func (f *notFoundRepo) RecomputeAggregates(ctx context.Context, restroomID uuid.UUID) (*models.RestroomAggregates, error) {
	f.calls.Add(1)
	return nil, models.ErrNotFound
}
