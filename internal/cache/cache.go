package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vzahanych/weather-report/internal/config"
	"go.uber.org/zap"
)

const (
	DefaultTTL       = time.Hour
	DefaultRetention = 7 * 24 * time.Hour
)

// Store keeps raw provider payloads keyed by request identity. Implementations
// never return errors: a failed read is a miss and a failed write is logged and dropped.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, payload []byte)
	// Sweep removes entries older than the retention window and returns how many were removed.
	Sweep(ctx context.Context) int
	Backend() string
}

// Key derives a cache key from the request URL and its parameters. Parameter
// order does not matter.
func Key(rawURL string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(rawURL)
	b.WriteByte('\n')
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(params[name])
		b.WriteByte('\n')
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

type entry struct {
	WrittenAt time.Time       `json:"written_at"`
	Payload   json.RawMessage `json:"payload"`
}

func encodeEntry(writtenAt time.Time, payload []byte) ([]byte, error) {
	if !json.Valid(payload) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	return json.Marshal(entry{WrittenAt: writtenAt.UTC(), Payload: payload})
}

func decodeEntry(data []byte) (entry, error) {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return entry{}, err
	}
	if e.WrittenAt.IsZero() || len(e.Payload) == 0 {
		return entry{}, fmt.Errorf("incomplete cache entry")
	}
	return e, nil
}

type settings struct {
	ttl       time.Duration
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func newSettings(opts []Option) settings {
	s := settings{
		ttl:       DefaultTTL,
		retention: DefaultRetention,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// fresh reports whether an entry written at writtenAt is still inside the TTL.
func (s settings) fresh(writtenAt time.Time) bool {
	return s.now().Sub(writtenAt) < s.ttl
}

func (s settings) expired(writtenAt time.Time) bool {
	return s.now().Sub(writtenAt) > s.retention
}

type Option func(*settings)

func WithTTL(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func WithRetention(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.retention = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns the store selected by cfg, or a Nop store when caching is disabled.
func New(cfg config.CacheConfig, logger *zap.Logger) (Store, error) {
	if !cfg.Enabled {
		return Nop{}, nil
	}

	opts := []Option{
		WithTTL(cfg.TTL),
		WithRetention(cfg.Retention),
		WithLogger(logger),
	}

	switch cfg.Backend {
	case "file", "":
		return NewFileStore(cfg.Dir, opts...), nil
	case "memory":
		return NewMemoryStore(opts...), nil
	case "redis":
		store, err := NewRedisStore(cfg.Redis, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Nop is the disabled cache: every Get misses and every Put is dropped.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Nop) Put(context.Context, string, []byte)        {}
func (Nop) Sweep(context.Context) int                  { return 0 }
func (Nop) Backend() string                            { return "none" }
