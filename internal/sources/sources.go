package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/talent-sourcer/internal/cache"
	"github.com/spigell/talent-sourcer/internal/candidate"
	"github.com/spigell/talent-sourcer/internal/ratelimit"
)

// FailureSink collects per-source partial failures for one job.
type FailureSink interface {
	Report(sourceID, reason string)
}

// Failure reasons surfaced through the sink.
const (
	ReasonTransport = "transport"
	ReasonTimeout   = "timeout"
	ReasonCancelled = "cancelled"
	ReasonThrottled = "throttled"
)

// ThrottleError is returned by adapters when the upstream reports explicit
// backpressure (HTTP 429). RetryAfter is zero when the upstream gave no hint.
type ThrottleError struct {
	RetryAfter time.Duration
}

func (e *ThrottleError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("throttled by upstream, retry after %s", e.RetryAfter)
	}
	return "throttled by upstream"
}

// adapter is a provider-specific fetcher. The runner acquires a token before
// calling fetch, which pays for the adapter's first external call; the
// adapter calls acquire before each further call so pacing covers pagination
// and follow-up lookups too.
type adapter interface {
	id() string
	healthy(ctx context.Context) bool
	fetch(ctx context.Context, job *candidate.JobSpec, acquire func(context.Context) error) ([]candidate.RawRecord, error)
}

// Source wraps an adapter with caching, rate limiting, retry with throttle
// reporting, and partial-failure containment. No error escapes Fetch.
type Source struct {
	adapter    adapter
	limiter    *ratelimit.Limiter
	store      cache.Store
	ttl        time.Duration
	maxRetries int
	logger     *zap.Logger
}

// NewSource assembles a runner around an adapter.
func NewSource(a adapter, limiter *ratelimit.Limiter, store cache.Store, ttl time.Duration, maxRetries int, logger *zap.Logger) *Source {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		adapter:    a,
		limiter:    limiter,
		store:      store,
		ttl:        ttl,
		maxRetries: maxRetries,
		logger:     logger.With(zap.String("source", a.id())),
	}
}

// ID returns the source id.
func (s *Source) ID() string { return s.adapter.id() }

// Healthy reports whether the adapter considers its upstream reachable.
func (s *Source) Healthy(ctx context.Context) bool { return s.adapter.healthy(ctx) }

// Fetch yields the raw records for a job. Permanent failures produce an empty
// slice and a structured entry in the sink; they never abort the job.
func (s *Source) Fetch(ctx context.Context, job *candidate.JobSpec, sink FailureSink) []candidate.RawRecord {
	key := cache.SourceKey(s.ID(), Fingerprint(job))

	if s.store != nil {
		if data, hit := s.store.Get(ctx, key); hit {
			var records []candidate.RawRecord
			if err := json.Unmarshal(data, &records); err == nil {
				s.logger.Debug("cache hit", zap.Int("records", len(records)))
				return records
			}
			s.store.Invalidate(ctx, key)
		}
	}

	acquire := func(ctx context.Context) error {
		return s.limiter.Acquire(ctx, s.ID())
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		release, err := s.limiter.Begin(ctx, s.ID())
		if err != nil {
			lastErr = err
			break
		}

		records, err := s.adapter.fetch(ctx, job, acquire)
		release()

		if err == nil {
			s.logger.Debug("fetched", zap.Int("records", len(records)))
			if s.store != nil && len(records) > 0 {
				if data, merr := json.Marshal(records); merr == nil {
					s.store.Put(ctx, key, data, s.ttl)
				}
			}
			return records
		}

		lastErr = err

		var throttle *ThrottleError
		if errors.As(err, &throttle) {
			delay := s.limiter.ReportThrottle(s.ID(), throttle.RetryAfter)
			s.logger.Warn("upstream throttled",
				zap.Duration("delay", delay),
				zap.Int("attempt", attempt+1),
			)
			continue
		}

		if ctx.Err() != nil {
			break
		}

		s.logger.Warn("fetch attempt failed", zap.Error(err), zap.Int("attempt", attempt+1))
	}

	sink.Report(s.ID(), classify(lastErr))
	s.logger.Warn("source gave up", zap.Error(lastErr))
	return nil
}

func classify(err error) string {
	switch {
	case err == nil:
		return ReasonTransport
	case errors.Is(err, context.Canceled):
		return ReasonCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	default:
		var throttle *ThrottleError
		if errors.As(err, &throttle) {
			return ReasonThrottled
		}
		return ReasonTransport
	}
}

// Fingerprint produces the normalized query fingerprint used in cache keys.
// Two specs that describe the same search collapse to the same fingerprint.
func Fingerprint(job *candidate.JobSpec) string {
	req := append([]string(nil), job.RequiredSkills...)
	pref := append([]string(nil), job.PreferredSkills...)
	locs := append([]string(nil), job.LocationPreferences...)
	for _, set := range [][]string{req, pref, locs} {
		for i := range set {
			set[i] = strings.ToLower(strings.TrimSpace(set[i]))
		}
	}
	sort.Strings(req)
	sort.Strings(pref)

	parts := []string{
		strings.ToLower(strings.TrimSpace(job.Description)),
		strings.Join(req, ","),
		strings.Join(pref, ","),
		strings.Join(locs, ","),
		strings.ToLower(job.SeniorityHint),
		fmt.Sprintf("%d", job.MaxCandidates),
	}
	return cache.Fingerprint(strings.Join(parts, "\x00"))
}

// query builds the free-text search string adapters send upstream.
func query(job *candidate.JobSpec) string {
	parts := make([]string, 0, len(job.RequiredSkills)+2)
	if job.Title != "" {
		parts = append(parts, job.Title)
	}
	parts = append(parts, job.RequiredSkills...)
	if job.SeniorityHint != "" && job.SeniorityHint != candidate.SeniorityUnknown {
		parts = append(parts, job.SeniorityHint)
	}
	if len(parts) == 0 {
		parts = append(parts, firstWords(job.Description, 6))
	}
	return strings.Join(parts, " ")
}

func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
