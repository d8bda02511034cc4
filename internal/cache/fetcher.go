package cache

import (
	"context"

	"github.com/vzahanych/weather-report/internal/httpclient"
	"go.uber.org/zap"
)

// Upstream is what the caching fetcher sits in front of, normally *httpclient.Client.
// Bodies are cached exactly as the provider sent them.
type Upstream interface {
	FetchRaw(ctx context.Context, rawURL string, params map[string]string) ([]byte, error)
}

type MetricsRecorder interface {
	RecordCacheHit(ctx context.Context, backend string)
	RecordCacheMiss(ctx context.Context, backend string)
}

// Fetcher serves payloads from a Store and falls through to Upstream on a miss.
type Fetcher struct {
	next    Upstream
	store   Store
	logger  *zap.Logger
	metrics MetricsRecorder
}

func NewFetcher(next Upstream, store Store, logger *zap.Logger, metrics MetricsRecorder) *Fetcher {
	if store == nil {
		store = Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		next:    next,
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string, params map[string]string) (httpclient.Payload, error) {
	if !httpclient.ValidURL(rawURL) {
		return f.fetchUpstream(ctx, rawURL, params)
	}

	key := Key(rawURL, params)

	if raw, ok := f.store.Get(ctx, key); ok {
		payload, err := httpclient.Decode(raw)
		if err == nil {
			f.logger.Debug("Cache hit", zap.String("cache_key", key), zap.String("url", rawURL))
			if f.metrics != nil {
				f.metrics.RecordCacheHit(ctx, f.store.Backend())
			}
			return payload, nil
		}
		f.logger.Warn("Discarding undecodable cached payload", zap.String("cache_key", key), zap.Error(err))
	}

	if f.metrics != nil {
		f.metrics.RecordCacheMiss(ctx, f.store.Backend())
	}

	body, err := f.next.FetchRaw(ctx, rawURL, params)
	if err != nil {
		return nil, err
	}

	payload, err := httpclient.Decode(body)
	if err != nil {
		return nil, err
	}
	f.store.Put(ctx, key, body)

	return payload, nil
}

func (f *Fetcher) fetchUpstream(ctx context.Context, rawURL string, params map[string]string) (httpclient.Payload, error) {
	body, err := f.next.FetchRaw(ctx, rawURL, params)
	if err != nil {
		return nil, err
	}
	return httpclient.Decode(body)
}
