package history

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"streakly/internal/models"
)

type fakeSource struct {
	calls   atomic.Int32
	records []models.MoodRecord

	mu      sync.Mutex
	err     error
	release chan struct{} // when set, queries block until closed
}

func (f *fakeSource) QueryMoodRecordsInRange(ctx context.Context, userID int, start, end models.Date) ([]models.MoodRecord, error) {
	f.calls.Add(1)
	f.mu.Lock()
	release, err := f.release, f.err
	f.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	var out []models.MoodRecord
	for _, r := range f.records {
		if r.Date >= start && r.Date <= end {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func TestCacheServesWithinTTLAndRefetchesAfterInvalidate(t *testing.T) {
	src := &fakeSource{records: []models.MoodRecord{{Date: "2026-10-17", Score: 2}}}
	c := NewCache(1, src, DefaultTTL, nil)
	ctx := context.Background()

	first, err := c.GetOrFetch(ctx, now)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Fatalf("expected one query pair (2 calls), got %d", got)
	}

	second, err := c.GetOrFetch(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("expected cached result within TTL, store called %d times", got)
	}
	if !second.FetchedAt.Equal(first.FetchedAt) {
		t.Errorf("expected cached fetchedAt %v, got %v", first.FetchedAt, second.FetchedAt)
	}

	c.Invalidate()
	third, err := c.GetOrFetch(ctx, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("third fetch: %v", err)
	}
	if got := src.calls.Load(); got != 4 {
		t.Errorf("expected a new query pair after invalidate, got %d calls", got)
	}
	if !third.FetchedAt.Equal(now.Add(2 * time.Minute)) {
		t.Errorf("expected refreshed fetchedAt, got %v", third.FetchedAt)
	}
}

func TestCacheRefetchesAfterTTL(t *testing.T) {
	src := &fakeSource{}
	c := NewCache(1, src, DefaultTTL, nil)

	if _, err := c.GetOrFetch(context.Background(), now); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := c.GetOrFetch(context.Background(), now.Add(DefaultTTL)); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := src.calls.Load(); got != 4 {
		t.Errorf("expected refetch once TTL elapsed, got %d calls", got)
	}
}

func TestCacheRefetchesOnNewDay(t *testing.T) {
	src := &fakeSource{}
	c := NewCache(1, src, time.Hour, nil)
	late := time.Date(2026, 10, 18, 23, 58, 0, 0, time.UTC)

	if _, err := c.GetOrFetch(context.Background(), late); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	agg, err := c.GetOrFetch(context.Background(), late.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if agg.ReferenceDate != "2026-10-19" {
		t.Errorf("expected reference date to roll over, got %s", agg.ReferenceDate)
	}
	if got := src.calls.Load(); got != 4 {
		t.Errorf("expected refetch after midnight, got %d calls", got)
	}
}

func TestCacheAggregateShape(t *testing.T) {
	src := &fakeSource{records: []models.MoodRecord{
		{Date: "2026-10-18", Score: 1},
		{Date: "2026-10-01", Score: 4},
	}}
	agg, err := NewCache(1, src, 0, nil).GetOrFetch(context.Background(), now)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(agg.ChartSeries) != 7 {
		t.Errorf("expected 7 chart points, got %d", len(agg.ChartSeries))
	}
	if len(agg.TimelineSeries) != 30 {
		t.Errorf("expected 30 timeline points, got %d", len(agg.TimelineSeries))
	}
	if agg.AverageMood == nil || *agg.AverageMood != 1 {
		t.Errorf("expected weekly average 1, got %v", agg.AverageMood)
	}
	if agg.IsStale {
		t.Error("fresh aggregate must not be stale")
	}
}

func TestCacheKeepsPreviousAggregateOnFailure(t *testing.T) {
	src := &fakeSource{records: []models.MoodRecord{{Date: "2026-10-18", Score: 3}}}
	c := NewCache(1, src, DefaultTTL, nil)

	if _, err := c.GetOrFetch(context.Background(), now); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	boom := errors.New("connection reset")
	src.setErr(boom)
	c.Invalidate()

	_, err := c.GetOrFetch(context.Background(), now.Add(time.Minute))
	if !errors.Is(err, ErrFetchFailed) || !errors.Is(err, boom) {
		t.Fatalf("expected ErrFetchFailed wrapping the store error, got %v", err)
	}

	stale := c.Peek()
	if stale == nil {
		t.Fatal("expected previous aggregate to survive the failure")
	}
	if !stale.IsStale || !stale.FetchedAt.Equal(now) {
		t.Errorf("expected stale aggregate fetched at %v, got %+v", now, stale)
	}

	src.setErr(nil)
	if _, err := c.GetOrFetch(context.Background(), now.Add(2*time.Minute)); err != nil {
		t.Fatalf("retry after recovery: %v", err)
	}
}

func TestCacheDeduplicatesConcurrentFetches(t *testing.T) {
	src := &fakeSource{release: make(chan struct{})}
	c := NewCache(1, src, DefaultTTL, nil)

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrFetch(context.Background(), now)
			errs <- err
		}()
	}

	// Let every caller reach the in-flight fetch before releasing it.
	deadline := time.Now().Add(2 * time.Second)
	for src.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("caller failed: %v", err)
		}
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("expected a single query pair for concurrent callers, got %d calls", got)
	}
}

func TestCacheIgnoresResultAfterClose(t *testing.T) {
	src := &fakeSource{release: make(chan struct{})}
	c := NewCache(1, src, DefaultTTL, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.GetOrFetch(context.Background(), now)
	}()
	for src.calls.Load() < 2 {
		time.Sleep(time.Millisecond)
	}
	c.Close()
	close(src.release)
	<-done

	if c.Peek() != nil {
		t.Error("expected late result to be discarded after close")
	}
}

func TestCacheDoesNotStoreFetchOverlappingInvalidate(t *testing.T) {
	src := &fakeSource{release: make(chan struct{})}
	c := NewCache(1, src, DefaultTTL, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.GetOrFetch(context.Background(), now)
	}()
	for src.calls.Load() < 2 {
		time.Sleep(time.Millisecond)
	}
	c.Invalidate()
	close(src.release)
	<-done

	src.mu.Lock()
	src.release = nil
	src.mu.Unlock()
	if _, err := c.GetOrFetch(context.Background(), now); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := src.calls.Load(); got != 4 {
		t.Errorf("expected refetch after an invalidation during flight, got %d calls", got)
	}
}

func TestCacheResultsDoNotAliasCachedAggregate(t *testing.T) {
	src := &fakeSource{records: []models.MoodRecord{
		{Date: "2026-10-17", Score: 3},
		{Date: "2026-10-18", Score: 4},
	}}
	c := NewCache(1, src, DefaultTTL, nil)
	ctx := context.Background()

	first, err := c.GetOrFetch(ctx, now)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	first.ChartSeries[5].Value = 99
	*first.TimelineSeries[28].Value = 77
	*first.AverageMood = 0

	second, err := c.GetOrFetch(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := second.ChartSeries[5].Value; got != 3 {
		t.Errorf("expected cached chart value 3, got %d", got)
	}
	if got := *second.TimelineSeries[28].Value; got != 3 {
		t.Errorf("expected cached timeline value 3, got %d", got)
	}
	if *second.AverageMood != 3.5 {
		t.Errorf("expected cached average 3.5, got %v", *second.AverageMood)
	}

	second.ChartSeries[6].Value = 1
	*second.TimelineSeries[29].Value = 1
	stale := c.Peek()
	if stale.ChartSeries[6].Value != 4 || *stale.TimelineSeries[29].Value != 4 {
		t.Errorf("expected Peek to be unaffected by caller writes, got %+v", stale.ChartSeries[6])
	}
	stale.ChartSeries[6].Value = 2
	if c.Peek().ChartSeries[6].Value != 4 {
		t.Error("expected writes to a peeked aggregate to stay local")
	}
}

func TestCacheKeepsNewerAggregateOverSlowerFetch(t *testing.T) {
	src := &fakeSource{release: make(chan struct{})}
	c := NewCache(1, src, DefaultTTL, nil)
	gate := src.release

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.GetOrFetch(context.Background(), now)
	}()
	for src.calls.Load() < 2 {
		time.Sleep(time.Millisecond)
	}

	// Later fetches run unblocked while the first stays parked on gate.
	src.mu.Lock()
	src.release = nil
	src.mu.Unlock()
	next := now.Add(24 * time.Hour)
	newest, err := c.GetOrFetch(context.Background(), next)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if newest.ReferenceDate != "2026-10-19" {
		t.Fatalf("expected reference date 2026-10-19, got %s", newest.ReferenceDate)
	}

	close(gate)
	<-done

	cached := c.Peek()
	if cached.ReferenceDate != "2026-10-19" || !cached.FetchedAt.Equal(next) {
		t.Errorf("expected cache to keep the 2026-10-19 aggregate, got ref=%s fetchedAt=%v", cached.ReferenceDate, cached.FetchedAt)
	}
	if _, err := c.GetOrFetch(context.Background(), next.Add(time.Minute)); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got := src.calls.Load(); got != 4 {
		t.Errorf("expected the newer aggregate to be served from cache, got %d calls", got)
	}
}
