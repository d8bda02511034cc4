package aggregator

import (
	"context"
	"time"

	"github.com/vzahanych/weather-report/internal/weather"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type result struct {
	reading weather.Reading
	ok      bool
}

// collectConcurrent starts one worker per provider, staggered by the politeness
// delay. Workers never return errors, so one provider's failure cannot cancel
// the others; the group is only a join point.
func (a *Aggregator) collectConcurrent(ctx context.Context) weather.Aggregate {
	results := make([]result, len(a.providers))

	var g errgroup.Group
	for i, p := range a.providers {
		i, p := i, p
		g.Go(func() error {
			logger := a.logger.With(zap.Int("worker_id", i), zap.String("provider", p.Name()))

			if stagger := time.Duration(i) * a.delay; stagger > 0 {
				if err := a.sleep(ctx, stagger); err != nil {
					logger.Warn("Collection deadline reached before provider started", zap.Error(err))
					return nil
				}
			}

			logger.Debug("Worker started")
			reading, ok := a.resolve(ctx, p)
			results[i] = result{reading: reading, ok: ok}
			logger.Debug("Worker finished", zap.Bool("ok", ok))
			return nil
		})
	}
	_ = g.Wait()

	var agg weather.Aggregate
	for i, p := range a.providers {
		if results[i].ok {
			agg.Add(p.Name(), results[i].reading)
		}
	}
	return agg
}
