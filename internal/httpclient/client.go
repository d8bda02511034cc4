package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/vzahanych/weather-report/internal/config"
	"github.com/vzahanych/weather-report/internal/weather"
	"github.com/vzahanych/weather-report/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultAttempts  = 2
	DefaultBackoff   = time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; WeatherApp/1.0)"
)

var allowedSchemes = []string{"http://", "https://"}

// Payload is a decoded JSON object returned by a provider.
type Payload map[string]any

// BackOffFactory returns a fresh backoff policy for one Fetch call.
type BackOffFactory func() backoff.BackOff

// Client issues GET requests and retries only on timeouts.
type Client struct {
	rc         *resty.Client
	attempts   int
	newBackOff BackOffFactory
	logger     *zap.Logger
	tele       *telemetry.Telemetry
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.rc.SetTimeout(d) }
}

func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

func WithBackOff(f BackOffFactory) Option {
	return func(c *Client) {
		if f != nil {
			c.newBackOff = f
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.rc.SetHeader("User-Agent", ua)
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
			c.rc.SetLogger(restyLogger{logger.Sugar()})
		}
	}
}

// restyLogger demotes resty's own messages to debug; Fetch reports failures itself.
type restyLogger struct {
	s *zap.SugaredLogger
}

func (l restyLogger) Errorf(format string, v ...interface{}) { l.s.Debugf(format, v...) }
func (l restyLogger) Warnf(format string, v ...interface{})  { l.s.Debugf(format, v...) }
func (l restyLogger) Debugf(format string, v ...interface{}) { l.s.Debugf(format, v...) }

func WithTelemetry(tele *telemetry.Telemetry) Option {
	return func(c *Client) { c.tele = tele }
}

// FixedBackOff waits the same interval before every retry.
func FixedBackOff(d time.Duration) BackOffFactory {
	return func() backoff.BackOff {
		if d <= 0 {
			return &backoff.ZeroBackOff{}
		}
		return backoff.NewConstantBackOff(d)
	}
}

// ExponentialBackOff doubles the wait (with jitter) up to maxInterval.
func ExponentialBackOff(initial, maxInterval time.Duration) BackOffFactory {
	return func() backoff.BackOff {
		if initial <= 0 {
			return &backoff.ZeroBackOff{}
		}
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		if maxInterval > 0 {
			b.MaxInterval = maxInterval
		}
		b.MaxElapsedTime = 0
		b.Reset()
		return b
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		rc:         resty.New(),
		attempts:   DefaultAttempts,
		newBackOff: FixedBackOff(DefaultBackoff),
		logger:     zap.NewNop(),
	}
	c.rc.SetLogger(restyLogger{c.logger.Sugar()})
	c.rc.SetTimeout(DefaultTimeout)
	c.rc.SetHeader("User-Agent", DefaultUserAgent)
	c.rc.SetHeader("Accept", "application/json")

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewFromConfig builds a client from the http section of the configuration.
func NewFromConfig(cfg config.HTTPConfig, logger *zap.Logger, tele *telemetry.Telemetry) *Client {
	policy := FixedBackOff(cfg.BackoffInterval)
	if cfg.Backoff == "exponential" {
		policy = ExponentialBackOff(cfg.BackoffInterval, cfg.BackoffMaxInterval)
	}

	return New(
		WithTimeout(cfg.Timeout),
		WithAttempts(cfg.Attempts),
		WithBackOff(policy),
		WithUserAgent(cfg.UserAgent),
		WithLogger(logger),
		WithTelemetry(tele),
	)
}

// ValidURL reports whether rawURL uses an approved scheme.
func ValidURL(rawURL string) bool {
	for _, scheme := range allowedSchemes {
		if strings.HasPrefix(rawURL, scheme) {
			return true
		}
	}
	return false
}

// Fetch GETs rawURL with params and decodes the body as a JSON object.
// Errors are *weather.Error values classified by kind.
func (c *Client) Fetch(ctx context.Context, rawURL string, params map[string]string) (Payload, error) {
	body, err := c.FetchRaw(ctx, rawURL, params)
	if err != nil {
		return nil, err
	}
	return Decode(body)
}

// FetchRaw is Fetch without the decode step: it returns the response body
// exactly as the provider sent it.
func (c *Client) FetchRaw(ctx context.Context, rawURL string, params map[string]string) ([]byte, error) {
	if !ValidURL(rawURL) {
		return nil, weather.Errorf(weather.KindInvalidURL, "unsupported URL %q", rawURL)
	}

	ctx, span := c.tele.StartSpan(ctx, "httpclient.Fetch", attribute.String("http.url", rawURL))
	defer span.End()

	policy := c.newBackOff()

	for attempt := 1; ; attempt++ {
		span.SetAttributes(attribute.Int("attempts", attempt))

		body, err := c.do(ctx, rawURL, params)
		if err == nil {
			return body, nil
		}

		if !weather.IsKind(err, weather.KindTimeout) || attempt >= c.attempts || ctx.Err() != nil {
			c.tele.RecordError(ctx, err)
			return nil, err
		}

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			return nil, err
		}

		c.logger.Debug("Request timed out, retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait))

		if err := sleep(ctx, wait); err != nil {
			return nil, weather.NewError(weather.KindTimeout, "deadline exceeded during backoff", err)
		}
	}
}

func (c *Client) do(ctx context.Context, rawURL string, params map[string]string) ([]byte, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(rawURL)
	if err != nil {
		if isTimeout(err) {
			return nil, weather.NewError(weather.KindTimeout, "request timed out", err)
		}
		return nil, weather.NewError(weather.KindTransportFailure, "request failed", err)
	}

	if !resp.IsSuccess() {
		return nil, weather.Errorf(weather.KindTransportFailure, "request failed with status: %d", resp.StatusCode())
	}

	return resp.Body(), nil
}

// Decode parses body as a JSON object.
func Decode(body []byte) (Payload, error) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, weather.NewError(weather.KindMalformedResponse, "body is not valid JSON", err)
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, weather.Errorf(weather.KindMalformedResponse, "body is %T, expected a JSON object", decoded)
	}

	return Payload(obj), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
