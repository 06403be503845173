package agent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/spigell/talent-sourcer/internal/candidate"
	"github.com/spigell/talent-sourcer/internal/ratelimit"
)

// RunBatch processes many jobs with bounded parallelism, returning one result
// per spec in input order. A job that cannot start (validation, admission)
// yields a result whose partial failures record why; batch processing never
// aborts on one bad job.
func (a *Agent) RunBatch(ctx context.Context, jobs []*candidate.JobSpec, parallelism int) []*candidate.JobResult {
	if parallelism <= 0 || parallelism > a.cfg.MaxConcurrentJobs {
		parallelism = a.cfg.MaxConcurrentJobs
	}

	results := make([]*candidate.JobResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, job := range jobs {
		g.Go(func() error {
			result, err := a.Run(gctx, job)
			if err != nil {
				result = &candidate.JobResult{
					JobID: job.ID,
					PartialFailures: []candidate.PartialFailure{
						{SourceID: "orchestrator", Reason: err.Error()},
					},
				}
			}
			results[i] = result
			return nil
		})
	}
	g.Wait()

	return results
}

// Health statuses for the engine and its sources.
const (
	StatusOK          = "ok"
	StatusDegraded    = "degraded"
	StatusThrottled   = "throttled"
	StatusUnavailable = "unavailable"
)

// Health describes the engine and per-source availability.
type Health struct {
	Status  string            `json:"status"`
	Sources map[string]string `json:"sources"`
}

// Health reports engine health from adapter checks and limiter state.
func (a *Agent) Health(ctx context.Context) Health {
	snapshot := map[string]ratelimit.SourceStatus{}
	if a.limiter != nil {
		snapshot = a.limiter.Snapshot()
	}

	h := Health{Status: StatusOK, Sources: make(map[string]string, len(a.sources))}
	for _, src := range a.sources {
		status := StatusOK
		switch {
		case !src.Healthy(ctx):
			status = StatusUnavailable
		case snapshot[src.ID()].Throttled:
			status = StatusThrottled
		}
		h.Sources[src.ID()] = status
		if status != StatusOK {
			h.Status = StatusDegraded
		}
	}

	return h
}
