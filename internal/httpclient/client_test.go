package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/weather-report/internal/config"
	"github.com/vzahanych/weather-report/internal/weather"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithLogger(zaptest.NewLogger(t)),
		WithBackOff(FixedBackOff(0)),
		WithTimeout(time.Second),
	}
	return New(append(base, opts...)...)
}

func countingServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func slowHandler(d time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
		fmt.Fprint(w, `{"late": true}`)
	}
}

func TestFetchSuccess(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "j1", r.URL.Query().Get("format"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{"current": {"temp_c": 4.5}}`)
	})

	payload, err := newTestClient(t).Fetch(context.Background(), srv.URL+"/Vilnius", map[string]string{"format": "j1"})
	require.NoError(t, err)

	current, ok := payload["current"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 4.5, current["temp_c"])
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestFetchRawReturnsBodyUnchanged(t *testing.T) {
	const body = `{"z": 1, "id": 12345678901234567890, "a": [1.10]}`
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	})

	raw, err := newTestClient(t).FetchRaw(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, body, string(raw))

	_, err = newTestClient(t).FetchRaw(context.Background(), "file:///etc/passwd", nil)
	assert.True(t, weather.IsKind(err, weather.KindInvalidURL), "%v", err)
}

func TestFetchRejectsInvalidURL(t *testing.T) {
	for _, u := range []string{"", "ftp://example.com", "api.open-meteo.com/v1/forecast", "file:///etc/passwd"} {
		_, err := newTestClient(t).Fetch(context.Background(), u, nil)
		assert.True(t, weather.IsKind(err, weather.KindInvalidURL), "url %q: %v", u, err)
	}
}

func TestFetchNonSuccessStatusIsNotRetried(t *testing.T) {
	srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := newTestClient(t, WithAttempts(3)).Fetch(context.Background(), srv.URL, nil)
	assert.True(t, weather.IsKind(err, weather.KindTransportFailure), "%v", err)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestFetchMalformedBody(t *testing.T) {
	tests := map[string]string{
		"not json":   "<html>rate limited</html>",
		"json array": `[1, 2, 3]`,
		"json null":  `null`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			srv, hits := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			})

			_, err := newTestClient(t, WithAttempts(3)).Fetch(context.Background(), srv.URL, nil)
			assert.True(t, weather.IsKind(err, weather.KindMalformedResponse), "%v", err)
			assert.EqualValues(t, 1, atomic.LoadInt32(hits))
		})
	}
}

func TestFetchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := newTestClient(t).Fetch(context.Background(), addr, nil)
	assert.True(t, weather.IsKind(err, weather.KindTransportFailure), "%v", err)
}

func TestFetchTimeoutExhaustsAttempts(t *testing.T) {
	srv, hits := countingServer(t, slowHandler(2*time.Second))

	client := newTestClient(t, WithTimeout(50*time.Millisecond), WithAttempts(2))
	_, err := client.Fetch(context.Background(), srv.URL, nil)

	assert.True(t, weather.IsKind(err, weather.KindTimeout), "%v", err)
	assert.EqualValues(t, 2, atomic.LoadInt32(hits))
}

func TestFetchRetriesTimeoutThenSucceeds(t *testing.T) {
	var calls int32
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			slowHandler(2*time.Second)(w, r)
			return
		}
		fmt.Fprint(w, `{"ok": true}`)
	})

	payload, err := newTestClient(t, WithTimeout(50*time.Millisecond)).Fetch(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, true, payload["ok"])
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

type recordingBackOff struct {
	calls int
}

func (b *recordingBackOff) NextBackOff() time.Duration {
	b.calls++
	return 0
}

func (b *recordingBackOff) Reset() {}

func TestFetchConsultsBackOffBetweenAttempts(t *testing.T) {
	srv, hits := countingServer(t, slowHandler(2*time.Second))

	policy := &recordingBackOff{}
	client := newTestClient(t,
		WithTimeout(30*time.Millisecond),
		WithAttempts(3),
		WithBackOff(func() backoff.BackOff { return policy }),
	)

	_, err := client.Fetch(context.Background(), srv.URL, nil)
	assert.True(t, weather.IsKind(err, weather.KindTimeout))
	assert.EqualValues(t, 3, atomic.LoadInt32(hits))
	assert.Equal(t, 2, policy.calls)
}

func TestFetchStopsWhenBackOffStops(t *testing.T) {
	srv, hits := countingServer(t, slowHandler(2*time.Second))

	client := newTestClient(t,
		WithTimeout(30*time.Millisecond),
		WithAttempts(5),
		WithBackOff(func() backoff.BackOff { return &backoff.StopBackOff{} }),
	)

	_, err := client.Fetch(context.Background(), srv.URL, nil)
	assert.True(t, weather.IsKind(err, weather.KindTimeout))
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestFetchHonoursParentDeadline(t *testing.T) {
	srv, hits := countingServer(t, slowHandler(2*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := newTestClient(t, WithAttempts(5), WithBackOff(FixedBackOff(time.Second)))
	start := time.Now()
	_, err := client.Fetch(ctx, srv.URL, nil)

	assert.True(t, weather.IsKind(err, weather.KindTimeout), "%v", err)
	assert.Less(t, time.Since(start), time.Second)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestBackOffFactories(t *testing.T) {
	assert.Equal(t, 2*time.Second, FixedBackOff(2*time.Second)().NextBackOff())
	assert.Equal(t, time.Duration(0), FixedBackOff(0)().NextBackOff())
	assert.Equal(t, time.Duration(0), ExponentialBackOff(0, 0)().NextBackOff())

	exp := ExponentialBackOff(100*time.Millisecond, 400*time.Millisecond)()
	for i := 0; i < 10; i++ {
		wait := exp.NextBackOff()
		assert.NotEqual(t, backoff.Stop, wait)
		assert.LessOrEqual(t, wait, 600*time.Millisecond)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.NewDefaultConfig().HTTP
	cfg.Backoff = "exponential"
	cfg.Attempts = 4

	client := NewFromConfig(cfg, zaptest.NewLogger(t), nil)
	assert.Equal(t, 4, client.attempts)
	assert.IsType(t, &backoff.ExponentialBackOff{}, client.newBackOff())
}
