package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/vzahanych/weather-report/internal/weather"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Collector interface {
	Collect(ctx context.Context) weather.Aggregate
}

// Snapshot is the result of one collection pass.
type Snapshot struct {
	Aggregate   weather.Aggregate
	CollectedAt time.Time
}

// Refresher keeps the latest aggregate warm by collecting on an interval, so
// HTTP requests are answered without fanning out to every provider.
type Refresher struct {
	scheduler *gocron.Scheduler
	collector Collector
	interval  time.Duration
	maxAge    time.Duration
	logger    *zap.Logger
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	flight singleflight.Group

	mu      sync.RWMutex
	latest  Snapshot
	hasData bool
}

type Option func(*Refresher)

// WithMaxAge makes Current collect again once the latest snapshot is older
// than d. Zero keeps a snapshot until the next refresh.
func WithMaxAge(d time.Duration) Option {
	return func(r *Refresher) {
		if d >= 0 {
			r.maxAge = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Refresher) {
		if now != nil {
			r.now = now
		}
	}
}

func New(collector Collector, interval time.Duration, logger *zap.Logger, opts ...Option) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Refresher{
		scheduler: gocron.NewScheduler(time.UTC),
		collector: collector,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start schedules the refresh job; the first run happens immediately. A
// non-positive interval disables scheduling and data is collected on demand.
func (r *Refresher) Start() error {
	if r.interval <= 0 {
		r.logger.Info("Scheduled refresh disabled; collecting on demand", zap.Duration("max_age", r.maxAge))
		return nil
	}

	_, err := r.scheduler.Every(r.interval).SingletonMode().Do(func() {
		r.collect(r.ctx, true)
	})
	if err != nil {
		return err
	}

	r.scheduler.StartAsync()
	r.logger.Info("Scheduled weather refresh", zap.Duration("interval", r.interval))
	return nil
}

// Refresh runs one collection pass now and stores the result. The pass keeps
// the values of ctx (trace, request id) but not its cancellation, so a caller
// that goes away cannot leave an empty snapshot behind.
func (r *Refresher) Refresh(ctx context.Context) Snapshot {
	return r.collect(context.WithoutCancel(ctx), true)
}

// collect coalesces concurrent passes into one. Unless forced, a fresh
// snapshot stored meanwhile is returned instead of collecting again. A pass
// whose context ended before it finished is returned but never stored.
func (r *Refresher) collect(ctx context.Context, force bool) Snapshot {
	v, _, shared := r.flight.Do("collect", func() (interface{}, error) {
		if !force {
			if snap, ok := r.Latest(); ok && !r.stale(snap) {
				return snap, nil
			}
		}

		r.logger.Debug("Running weather refresh")

		agg := r.collector.Collect(ctx)
		snap := Snapshot{Aggregate: agg, CollectedAt: r.now()}

		if err := ctx.Err(); err != nil {
			r.logger.Warn("Discarding interrupted weather refresh",
				zap.Int("sources", agg.Len()),
				zap.Error(err))
			if latest, ok := r.Latest(); ok {
				return latest, nil
			}
			return snap, nil
		}

		r.mu.Lock()
		r.latest = snap
		r.hasData = true
		r.mu.Unlock()

		r.logger.Info("Weather refresh completed", zap.Int("sources", agg.Len()))
		return snap, nil
	})
	if shared {
		r.logger.Debug("Joined in-flight weather refresh")
	}
	return v.(Snapshot)
}

func (r *Refresher) Latest() (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.hasData
}

// Current returns the latest snapshot, collecting first if nothing has been
// collected yet or the snapshot is older than the max age.
func (r *Refresher) Current(ctx context.Context) Snapshot {
	if snap, ok := r.Latest(); ok && !r.stale(snap) {
		return snap
	}
	return r.collect(context.WithoutCancel(ctx), false)
}

func (r *Refresher) stale(snap Snapshot) bool {
	return r.maxAge > 0 && r.now().Sub(snap.CollectedAt) >= r.maxAge
}

func (r *Refresher) Stop() {
	r.cancel()
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
}
