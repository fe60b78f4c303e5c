package history

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"streakly/internal/analytics"
	"streakly/internal/models"
)

// DefaultTTL is how long a fetched aggregate is served without new queries.
const DefaultTTL = 5 * time.Minute

// ErrFetchFailed wraps any store error hit while building an aggregate.
var ErrFetchFailed = errors.New("history fetch failed")

// MoodSource is the read side of the store the cache aggregates over.
type MoodSource interface {
	QueryMoodRecordsInRange(ctx context.Context, userID int, start, end models.Date) ([]models.MoodRecord, error)
}

// HistoryAggregate is the chart, weekly average and timeline for one reference day.
type HistoryAggregate struct {
	ReferenceDate  string                    `json:"reference_date"`
	ChartSeries    []analytics.ChartPoint    `json:"chart_series"`
	AverageMood    *float64                  `json:"average_mood"`
	TimelineSeries []analytics.TimelinePoint `json:"timeline_series"`
	FetchedAt      time.Time                 `json:"fetched_at"`
	IsStale        bool                      `json:"is_stale"`
}

// Cache holds one user's history aggregate for the lifetime of a session.
// Only its own fetch completion and Invalidate/Close paths mutate it.
type Cache struct {
	userID int
	source MoodSource
	ttl    time.Duration
	logger *zap.Logger

	flight singleflight.Group

	mu           sync.Mutex
	agg          *HistoryAggregate
	fetchedAt    time.Time
	needsRefresh bool
	generation   uint64
	closed       bool
}

func NewCache(userID int, source MoodSource, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		userID: userID,
		source: source,
		ttl:    ttl,
		logger: logger.With(zap.Int("user_id", userID)),
	}
}

// GetOrFetch returns the cached aggregate while it is fresh for now's
// calendar day, and otherwise queries the store. Concurrent callers share a
// single in-flight fetch.
func (c *Cache) GetOrFetch(ctx context.Context, now time.Time) (*HistoryAggregate, error) {
	ref := models.DateOf(now)

	c.mu.Lock()
	if c.freshLocked(now, ref) {
		agg := c.agg.clone()
		c.mu.Unlock()
		return agg, nil
	}
	gen := c.generation
	c.mu.Unlock()

	// Keyed by generation too, so a caller arriving after Invalidate never
	// joins a fetch that started before it.
	key := fmt.Sprintf("%s#%d", ref, gen)
	v, err, shared := c.flight.Do(key, func() (any, error) {
		return c.fetch(ctx, now, gen)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("joined in-flight history fetch", zap.String("reference_date", ref.String()))
	}
	return v.(*HistoryAggregate).clone(), nil
}

func (c *Cache) freshLocked(now time.Time, ref models.Date) bool {
	if c.agg == nil || c.needsRefresh || c.fetchedAt.IsZero() {
		return false
	}
	if c.agg.ReferenceDate != string(ref) {
		return false
	}
	return now.Sub(c.fetchedAt) < c.ttl
}

func (c *Cache) fetch(ctx context.Context, now time.Time, gen uint64) (*HistoryAggregate, error) {
	weekStart, weekEnd := analytics.Window(now, analytics.WeekDays)
	monthStart, monthEnd := analytics.Window(now, analytics.TimelineDays)

	var weekRecs, monthRecs []models.MoodRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		weekRecs, err = c.source.QueryMoodRecordsInRange(gctx, c.userID, models.DateOf(weekStart), models.DateOf(weekEnd))
		return err
	})
	g.Go(func() error {
		var err error
		monthRecs, err = c.source.QueryMoodRecordsInRange(gctx, c.userID, models.DateOf(monthStart), models.DateOf(monthEnd))
		return err
	})
	if err := g.Wait(); err != nil {
		c.logger.Warn("history fetch failed; keeping previous aggregate", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	weekly, err := analytics.BuildWeeklySeries(analytics.MoodPoints(weekRecs), weekEnd)
	if err != nil {
		return nil, err
	}
	timeline, err := analytics.BuildTimelineSeries(analytics.MoodPoints(monthRecs), monthStart, monthEnd)
	if err != nil {
		return nil, err
	}

	agg := &HistoryAggregate{
		ReferenceDate:  models.DateOf(now).String(),
		ChartSeries:    weekly.Points,
		AverageMood:    weekly.Average,
		TimelineSeries: timeline,
		FetchedAt:      now,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		c.logger.Debug("discarding history fetched after session teardown")
	case c.generation != gen:
		c.logger.Debug("discarding history fetched before invalidation")
	case c.agg != nil && (c.agg.ReferenceDate > agg.ReferenceDate || c.agg.FetchedAt.After(now)):
		c.logger.Debug("discarding history older than the cached aggregate",
			zap.String("reference_date", agg.ReferenceDate), zap.String("cached_reference_date", c.agg.ReferenceDate))
	default:
		c.agg = agg
		c.fetchedAt = now
		c.needsRefresh = false
	}
	return agg, nil
}

// Invalidate forces the next GetOrFetch to query the store regardless of TTL.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchedAt = time.Time{}
	c.needsRefresh = true
	c.generation++
}

// Peek returns a copy of the last stored aggregate flagged as stale, or nil.
func (c *Cache) Peek() *HistoryAggregate {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.agg == nil {
		return nil
	}
	agg := c.agg.clone()
	agg.IsStale = true
	return agg
}

// clone deep-copies a so callers can never write through to the cache.
func (a *HistoryAggregate) clone() *HistoryAggregate {
	out := *a
	out.ChartSeries = slices.Clone(a.ChartSeries)
	if a.AverageMood != nil {
		avg := *a.AverageMood
		out.AverageMood = &avg
	}
	out.TimelineSeries = make([]analytics.TimelinePoint, len(a.TimelineSeries))
	for i, p := range a.TimelineSeries {
		if p.Value != nil {
			v := *p.Value
			p.Value = &v
		}
		out.TimelineSeries[i] = p
	}
	return &out
}

// Close ends the session; fetches still in flight are not stored.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.agg = nil
	c.fetchedAt = time.Time{}
}
