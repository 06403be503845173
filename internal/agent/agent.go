package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/talent-sourcer/internal/cache"
	"github.com/spigell/talent-sourcer/internal/candidate"
	"github.com/spigell/talent-sourcer/internal/outreach"
	"github.com/spigell/talent-sourcer/internal/ratelimit"
	"github.com/spigell/talent-sourcer/internal/scoring"
	"github.com/spigell/talent-sourcer/internal/sources"
)

// Sentinel errors surfaced to the CLI and HTTP collaborators.
var (
	// ErrInvalidJob wraps a JobSpec validation failure; the job never starts.
	ErrInvalidJob = errors.New("invalid job spec")
	// ErrBusy means the admission cap is exhausted.
	ErrBusy = errors.New("engine busy")
)

// State is the orchestrator's per-job phase.
type State string

const (
	StatePending     State = "pending"
	StateDiscovering State = "discovering"
	StateNormalizing State = "normalizing"
	StateMerging     State = "merging"
	StateScoring     State = "scoring"
	StateRanking     State = "ranking"
	StateGenerating  State = "generating"
	StateCompleted   State = "completed"
)

// Source is the adapter surface the orchestrator fans out to.
type Source interface {
	ID() string
	Healthy(ctx context.Context) bool
	Fetch(ctx context.Context, job *candidate.JobSpec, sink sources.FailureSink) []candidate.RawRecord
}

// Config bounds one agent's resource usage.
type Config struct {
	JobTimeout          time.Duration
	SourceTimeout       time.Duration
	OutreachConcurrency int
	MaxConcurrentJobs   int
	ScoreTTL            time.Duration
}

// Agent drives the full sourcing pipeline for one job at a time and any
// number of jobs concurrently up to the admission cap. All engine components
// are construction-time dependencies.
type Agent struct {
	sources    []Source
	normalizer *candidate.Normalizer
	scorer     *scoring.Scorer
	outreach   *outreach.Generator
	limiter    *ratelimit.Limiter
	store      cache.Store
	cfg        Config
	admission  chan struct{}
	logger     *zap.Logger
}

// New assembles an Agent from its components. store may be nil to disable
// score caching.
func New(srcs []Source, normalizer *candidate.Normalizer, scorer *scoring.Scorer, gen *outreach.Generator, limiter *ratelimit.Limiter, store cache.Store, cfg Config, logger *zap.Logger) *Agent {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 120 * time.Second
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = 30 * time.Second
	}
	if cfg.OutreachConcurrency <= 0 {
		cfg.OutreachConcurrency = 4
	}
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 8
	}
	if cfg.ScoreTTL <= 0 {
		cfg.ScoreTTL = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Agent{
		sources:    srcs,
		normalizer: normalizer,
		scorer:     scorer,
		outreach:   gen,
		limiter:    limiter,
		store:      store,
		cfg:        cfg,
		admission:  make(chan struct{}, cfg.MaxConcurrentJobs),
		logger:     logger,
	}
}

// failureSink collects partial failures for one job.
type failureSink struct {
	mu      sync.Mutex
	entries []candidate.PartialFailure
}

func (f *failureSink) Report(sourceID, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, candidate.PartialFailure{SourceID: sourceID, Reason: reason})
}

func (f *failureSink) list() []candidate.PartialFailure {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]candidate.PartialFailure, len(f.entries))
	copy(out, f.entries)
	return out
}

func (f *failureSink) has(reason string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.Reason == reason {
			return true
		}
	}
	return false
}

// Run executes one sourcing job synchronously: discover, normalize, merge,
// score, rank, generate. One failing source never fails the job; a cancelled
// context returns whatever was collected so far.
func (a *Agent) Run(ctx context.Context, job *candidate.JobSpec) (*candidate.JobResult, error) {
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}

	select {
	case a.admission <- struct{}{}:
	default:
		return nil, ErrBusy
	}
	defer func() { <-a.admission }()

	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	start := time.Now()
	log := a.logger.With(zap.String("job_id", job.ID))
	state := StatePending
	advance := func(next State) {
		state = next
		log.Debug("job state", zap.String("state", string(state)))
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.JobTimeout)
	defer cancel()

	sink := &failureSink{}

	// Discovering: all sources fan out concurrently; records stream into the
	// normalizer as they arrive.
	advance(StateDiscovering)
	records := make(chan candidate.RawRecord, 64)

	var wg sync.WaitGroup
	for _, src := range a.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()

			sctx, scancel := context.WithTimeout(ctx, a.cfg.SourceTimeout)
			defer scancel()

			for _, rec := range src.Fetch(sctx, job, sink) {
				select {
				case records <- rec:
				case <-ctx.Done():
					return
				}
			}
		}(src)
	}
	go func() {
		wg.Wait()
		close(records)
	}()

	advance(StateNormalizing)
	var staging []*candidate.Candidate
	for rec := range records {
		c, err := a.normalizer.Normalize(rec)
		if err != nil {
			sink.Report(rec.SourceID, "unparseable")
			continue
		}
		staging = append(staging, c)
	}

	advance(StateMerging)
	merged := candidate.Merge(staging)
	log.Info("candidates merged",
		zap.Int("raw", len(staging)),
		zap.Int("unique", len(merged)),
	)

	advance(StateScoring)
	jobHash := scoreFingerprint(job)
	scored := make([]*candidate.ScoredCandidate, 0, len(merged))
	for _, c := range merged {
		scored = append(scored, a.scoreOne(ctx, c, job, jobHash))
	}

	advance(StateRanking)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Less(scored[j])
	})
	top := scored
	if len(top) > job.MaxCandidates {
		top = top[:job.MaxCandidates]
	}

	var messages []*candidate.OutreachMessage
	if job.IncludeOutreach && len(top) > 0 && ctx.Err() == nil {
		advance(StateGenerating)
		messages = a.generateMessages(ctx, top, job)
	}

	if ctx.Err() != nil && !sink.has(sources.ReasonCancelled) {
		reason := sources.ReasonCancelled
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = sources.ReasonTimeout
		}
		sink.Report("orchestrator", reason)
	}

	advance(StateCompleted)

	result := &candidate.JobResult{
		JobID:            job.ID,
		CandidatesFound:  len(merged),
		TopCandidates:    top,
		Messages:         messages,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		PartialFailures:  sink.list(),
	}

	log.Info("job completed",
		zap.Int("candidates_found", result.CandidatesFound),
		zap.Int("top_candidates", len(result.TopCandidates)),
		zap.Int("partial_failures", len(result.PartialFailures)),
		zap.Int64("processing_time_ms", result.ProcessingTimeMS),
	)

	return result, nil
}

// scoreOne evaluates one candidate, consulting the shared cache under the
// score:<identity>:job:<hash> key form first.
func (a *Agent) scoreOne(ctx context.Context, c *candidate.Candidate, job *candidate.JobSpec, jobHash string) *candidate.ScoredCandidate {
	if a.store == nil {
		return a.scorer.Score(c, job)
	}

	key := cache.ScoreKey(c.IdentityKey, jobHash)
	if data, hit := a.store.Get(ctx, key); hit {
		var cached candidate.ScoredCandidate
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached
		}
		a.store.Invalidate(ctx, key)
	}

	sc := a.scorer.Score(c, job)
	if data, err := json.Marshal(sc); err == nil {
		a.store.Put(ctx, key, data, a.cfg.ScoreTTL)
	}
	return sc
}

// scoreFingerprint hashes the scoring-relevant parts of a job: the query
// fingerprint plus the rubric weights, which do not affect discovery.
func scoreFingerprint(job *candidate.JobSpec) string {
	var b strings.Builder
	b.WriteString(sources.Fingerprint(job))
	for _, dim := range candidate.Dimensions {
		fmt.Fprintf(&b, "|%s=%.6f", dim, job.RubricWeights[dim])
	}
	return cache.Fingerprint(b.String())
}

// generateMessages fans outreach generation out with bounded concurrency.
// Results keep the ranked order.
func (a *Agent) generateMessages(ctx context.Context, top []*candidate.ScoredCandidate, job *candidate.JobSpec) []*candidate.OutreachMessage {
	messages := make([]*candidate.OutreachMessage, len(top))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.OutreachConcurrency)
	for i, sc := range top {
		g.Go(func() error {
			messages[i] = a.outreach.Generate(gctx, sc, job)
			return nil
		})
	}
	g.Wait()

	out := messages[:0]
	for _, m := range messages {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
