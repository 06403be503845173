package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// GlobalSource is the bucket id used for the process-wide pacing bucket.
const GlobalSource = "global"

// BucketConfig describes one token bucket: Requests per Window, with at most
// MaxInFlight concurrent calls against the source.
type BucketConfig struct {
	Requests    int
	Window      time.Duration
	MaxInFlight int
}

// Config configures the limiter.
type Config struct {
	// Global paces all external calls together.
	Global BucketConfig
	// Sources holds per-source buckets; unknown sources get Default.
	Sources map[string]BucketConfig
	// Default applies to sources without an explicit bucket.
	Default BucketConfig
	Backoff BackoffConfig
}

// SourceStatus is a point-in-time view of one source's bucket.
type SourceStatus struct {
	Throttled    bool
	SuspendedFor time.Duration
	Failures     int
	Acquires     int64
	Waits        int64
	ThrottleHits int64
}

type sourceState struct {
	bucket         *rate.Limiter
	inflight       chan struct{}
	suspendedUntil time.Time
	failures       int
	acquires       int64
	waits          int64
	throttleHits   int64
}

// Limiter enforces per-source and global request pacing with cooperative
// blocking and throttle-driven backoff. Safe for concurrent use.
type Limiter struct {
	mu             sync.Mutex
	cfg            Config
	global         *rate.Limiter
	inflightGlobal chan struct{}
	sources        map[string]*sourceState
	backoff        *backoff
	logger         *zap.Logger
}

// New creates a Limiter. Zero-valued bucket configs fall back to permissive
// defaults so a partially-configured limiter never blocks forever.
func New(cfg Config, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Global.Requests <= 0 {
		cfg.Global = BucketConfig{Requests: 100, Window: time.Second, MaxInFlight: 20}
	}
	if cfg.Default.Requests <= 0 {
		cfg.Default = BucketConfig{Requests: 30, Window: time.Minute, MaxInFlight: 4}
	}

	return &Limiter{
		cfg:            cfg,
		global:         newBucket(cfg.Global),
		inflightGlobal: make(chan struct{}, inflightCap(cfg.Global)),
		sources:        map[string]*sourceState{},
		backoff:        newBackoff(cfg.Backoff),
		logger:         logger,
	}
}

func newBucket(cfg BucketConfig) *rate.Limiter {
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	perSecond := float64(cfg.Requests) / window.Seconds()
	return rate.NewLimiter(rate.Limit(perSecond), cfg.Requests)
}

func inflightCap(cfg BucketConfig) int {
	if cfg.MaxInFlight <= 0 {
		return 4
	}
	return cfg.MaxInFlight
}

func (l *Limiter) state(source string) *sourceState {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s, ok := l.sources[source]; ok {
		return s
	}

	cfg, ok := l.cfg.Sources[source]
	if !ok || cfg.Requests <= 0 {
		cfg = l.cfg.Default
	}
	s := &sourceState{
		bucket:   newBucket(cfg),
		inflight: make(chan struct{}, inflightCap(cfg)),
	}
	l.sources[source] = s
	return s
}

// Acquire blocks cooperatively until a token for the source is available.
// It never fails except on context cancellation. A successful acquisition
// after a throttle report decays the failure count.
func (l *Limiter) Acquire(ctx context.Context, source string) error {
	s := l.state(source)

	// Honor an active suspension first so a queued caller cannot slip in
	// front of the throttle window.
	l.mu.Lock()
	until := s.suspendedUntil
	l.mu.Unlock()
	if wait := time.Until(until); wait > 0 {
		l.mu.Lock()
		s.waits++
		l.mu.Unlock()
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}

	before := time.Now()
	if err := l.global.Wait(ctx); err != nil {
		return err
	}
	if err := s.bucket.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	s.acquires++
	if time.Since(before) > time.Millisecond {
		s.waits++
	}
	if s.failures > 0 {
		s.failures--
	}
	l.mu.Unlock()

	return nil
}

// Begin acquires an in-flight slot for the source (and a global one) in
// addition to a pacing token. The returned release function must be called
// when the external call finishes.
func (l *Limiter) Begin(ctx context.Context, source string) (func(), error) {
	s := l.state(source)

	select {
	case l.inflightGlobal <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case s.inflight <- struct{}{}:
	case <-ctx.Done():
		<-l.inflightGlobal
		return nil, ctx.Err()
	}

	if err := l.Acquire(ctx, source); err != nil {
		<-s.inflight
		<-l.inflightGlobal
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.inflight
			<-l.inflightGlobal
		})
	}, nil
}

// ReportThrottle records explicit backpressure from a source. With a positive
// retryAfter the source is suspended for exactly that duration; otherwise the
// configured backoff strategy decides, with jitter, clamped to the maximum.
func (l *Limiter) ReportThrottle(source string, retryAfter time.Duration) time.Duration {
	s := l.state(source)

	l.mu.Lock()
	defer l.mu.Unlock()

	s.failures++
	s.throttleHits++

	delay := retryAfter
	if delay <= 0 {
		delay = l.backoff.delay(s.failures)
	}

	until := time.Now().Add(delay)
	if until.After(s.suspendedUntil) {
		s.suspendedUntil = until
	}

	l.logger.Debug("source throttled",
		zap.String("source", source),
		zap.Duration("suspend", delay),
		zap.Int("failures", s.failures),
	)

	return delay
}

// Snapshot reports per-source status for health checks.
func (l *Limiter) Snapshot() map[string]SourceStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	out := make(map[string]SourceStatus, len(l.sources))
	for source, s := range l.sources {
		suspended := s.suspendedUntil.Sub(now)
		if suspended < 0 {
			suspended = 0
		}
		out[source] = SourceStatus{
			Throttled:    suspended > 0,
			SuspendedFor: suspended,
			Failures:     s.failures,
			Acquires:     s.acquires,
			Waits:        s.waits,
			ThrottleHits: s.throttleHits,
		}
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limit wait: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
