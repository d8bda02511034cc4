package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/weather-report/internal/weather"
	"go.uber.org/zap/zaptest"
)

type countingCollector struct {
	calls atomic.Int32
}

func (c *countingCollector) Collect(ctx context.Context) weather.Aggregate {
	n := c.calls.Add(1)

	var agg weather.Aggregate
	agg.Add("Open-Meteo", weather.Reading{
		Temperature: float64(n),
		Description: "Clear sky",
		Source:      "Open-Meteo",
		City:        "Vilnius",
	})
	return agg
}

func TestRefreshStoresLatest(t *testing.T) {
	collector := &countingCollector{}
	r := New(collector, 0, zaptest.NewLogger(t))

	_, ok := r.Latest()
	assert.False(t, ok)

	snap := r.Refresh(context.Background())
	assert.Equal(t, 1, snap.Aggregate.Len())

	latest, ok := r.Latest()
	require.True(t, ok)
	got, _ := latest.Aggregate.Get("Open-Meteo")
	assert.Equal(t, 1.0, got.Temperature)
}

func TestCurrentCollectsOnce(t *testing.T) {
	collector := &countingCollector{}
	r := New(collector, 0, nil)

	r.Current(context.Background())
	r.Current(context.Background())

	assert.Equal(t, int32(1), collector.calls.Load())
}

func TestStartDisabledInterval(t *testing.T) {
	collector := &countingCollector{}
	r := New(collector, 0, nil)

	require.NoError(t, r.Start())
	t.Cleanup(r.Stop)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), collector.calls.Load())
}

func TestStartRunsImmediatelyAndRepeats(t *testing.T) {
	collector := &countingCollector{}
	r := New(collector, 50*time.Millisecond, nil)

	require.NoError(t, r.Start())
	t.Cleanup(r.Stop)

	assert.Eventually(t, func() bool {
		return collector.calls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	_, ok := r.Latest()
	assert.True(t, ok)
}

type ctxKey struct{}

// contextAwareCollector behaves like the aggregator: once ctx is done every
// provider is skipped and the aggregate comes back empty.
type contextAwareCollector struct {
	calls   atomic.Int32
	release chan struct{}

	mu     sync.Mutex
	values []any
}

func (c *contextAwareCollector) Collect(ctx context.Context) weather.Aggregate {
	c.calls.Add(1)

	c.mu.Lock()
	c.values = append(c.values, ctx.Value(ctxKey{}))
	c.mu.Unlock()

	if c.release != nil {
		<-c.release
	}

	var agg weather.Aggregate
	if ctx.Err() != nil {
		return agg
	}
	for _, name := range []string{"Open-Meteo", "wttr.in"} {
		agg.Add(name, weather.Reading{Temperature: 5, Description: "Overcast", Source: name, City: "Vilnius"})
	}
	return agg
}

func TestRefreshIgnoresCallerCancellation(t *testing.T) {
	collector := &contextAwareCollector{}
	r := New(collector, 0, zaptest.NewLogger(t))

	snap := r.Refresh(context.Background())
	require.Equal(t, 2, snap.Aggregate.Len())

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "req-42"))
	cancel()

	snap = r.Refresh(ctx)
	assert.Equal(t, 2, snap.Aggregate.Len())

	latest, ok := r.Latest()
	require.True(t, ok)
	assert.Equal(t, 2, latest.Aggregate.Len())

	collector.mu.Lock()
	defer collector.mu.Unlock()
	assert.Equal(t, "req-42", collector.values[1], "request values reach the collector")
}

func TestCurrentIgnoresCallerCancellation(t *testing.T) {
	collector := &contextAwareCollector{}
	r := New(collector, 0, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap := r.Current(ctx)
	assert.Equal(t, 2, snap.Aggregate.Len())

	latest, ok := r.Latest()
	require.True(t, ok)
	assert.Equal(t, 2, latest.Aggregate.Len())
}

func TestInterruptedCollectionKeepsLatest(t *testing.T) {
	collector := &contextAwareCollector{}
	r := New(collector, 0, zaptest.NewLogger(t))

	first := r.Refresh(context.Background())
	require.Equal(t, 2, first.Aggregate.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap := r.collect(ctx, true)
	assert.Equal(t, first, snap)

	latest, ok := r.Latest()
	require.True(t, ok)
	assert.Equal(t, 2, latest.Aggregate.Len())
	assert.Equal(t, first.CollectedAt, latest.CollectedAt)
}

func TestInterruptedFirstCollectionIsNotStored(t *testing.T) {
	r := New(&contextAwareCollector{}, 0, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap := r.collect(ctx, true)
	assert.True(t, snap.Aggregate.IsEmpty())

	_, ok := r.Latest()
	assert.False(t, ok)
}

func TestCurrentCoalescesConcurrentCollections(t *testing.T) {
	collector := &contextAwareCollector{release: make(chan struct{})}
	r := New(collector, 0, zaptest.NewLogger(t))

	var wg sync.WaitGroup
	results := make([]Snapshot, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Current(context.Background())
		}(i)
	}

	assert.Eventually(t, func() bool {
		return collector.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)
	close(collector.release)
	wg.Wait()

	assert.Equal(t, int32(1), collector.calls.Load())
	for _, snap := range results {
		assert.Equal(t, 2, snap.Aggregate.Len())
	}
}

func TestCurrentRefreshesAfterMaxAge(t *testing.T) {
	collector := &countingCollector{}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := New(collector, 0, zaptest.NewLogger(t),
		WithMaxAge(time.Minute),
		WithClock(func() time.Time { return now }),
	)

	r.Current(context.Background())
	now = now.Add(30 * time.Second)
	r.Current(context.Background())
	assert.Equal(t, int32(1), collector.calls.Load())

	now = now.Add(31 * time.Second)
	snap := r.Current(context.Background())
	assert.Equal(t, int32(2), collector.calls.Load())

	got, _ := snap.Aggregate.Get("Open-Meteo")
	assert.Equal(t, 2.0, got.Temperature)
}
