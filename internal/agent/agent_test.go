package agent

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/talent-sourcer/internal/cache"
	"github.com/spigell/talent-sourcer/internal/candidate"
	"github.com/spigell/talent-sourcer/internal/outreach"
	"github.com/spigell/talent-sourcer/internal/ratelimit"
	"github.com/spigell/talent-sourcer/internal/scoring"
	"github.com/spigell/talent-sourcer/internal/sources"
)

type stubSource struct {
	name    string
	records []candidate.RawRecord
	fail    string
	delay   time.Duration
	healthy bool
}

func (s *stubSource) ID() string                        { return s.name }
func (s *stubSource) Healthy(context.Context) bool      { return s.healthy }
func (s *stubSource) Fetch(ctx context.Context, _ *candidate.JobSpec, sink sources.FailureSink) []candidate.RawRecord {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			sink.Report(s.name, sources.ReasonCancelled)
			return nil
		}
	}
	if s.fail != "" {
		sink.Report(s.name, s.fail)
		return nil
	}
	return s.records
}

func record(sourceID, name, url string, skills ...string) candidate.RawRecord {
	return candidate.RawRecord{
		SourceID:  sourceID,
		FetchedAt: time.Now().UTC(),
		Profile: candidate.RawProfile{
			Name:       name,
			Headline:   "Engineer at Initech",
			Location:   "Austin, TX",
			ProfileURL: url,
			Skills:     skills,
			Experience: []candidate.Experience{
				{Title: "Engineer", Company: "Initech", Start: "2019-01", End: "present"},
			},
		},
	}
}

func newTestAgent(t *testing.T, srcs []Source, cfg Config) *Agent {
	t.Helper()

	limiter := ratelimit.New(ratelimit.Config{
		Global:  ratelimit.BucketConfig{Requests: 1000, Window: time.Second, MaxInFlight: 100},
		Default: ratelimit.BucketConfig{Requests: 1000, Window: time.Second, MaxInFlight: 10},
	}, zap.NewNop())

	return New(
		srcs,
		candidate.NewNormalizer(nil),
		scoring.New(scoring.Config{}, zap.NewNop()),
		outreach.New(nil, limiter, outreach.Config{RecruiterName: "Jordan Reyes"}, zap.NewNop()),
		limiter,
		cache.NewMemory(0),
		cfg,
		zap.NewNop(),
	)
}

func testJob() *candidate.JobSpec {
	return &candidate.JobSpec{
		Description:     "Backend engineer",
		RequiredSkills:  []string{"Go"},
		MaxCandidates:   10,
		IncludeOutreach: false,
	}
}

func TestRunRejectsInvalidSpec(t *testing.T) {
	a := newTestAgent(t, nil, Config{})

	_, err := a.Run(context.Background(), &candidate.JobSpec{MaxCandidates: 0})
	if !errors.Is(err, ErrInvalidJob) {
		t.Fatalf("expected ErrInvalidJob, got %v", err)
	}
}

func TestRunAssignsJobID(t *testing.T) {
	a := newTestAgent(t, []Source{
		&stubSource{name: "linkedin", healthy: true, records: []candidate.RawRecord{
			record("linkedin", "A Person", "https://linkedin.com/in/a", "Go"),
		}},
	}, Config{})

	job := testJob()
	result, err := a.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.JobID == "" {
		t.Fatalf("expected a generated job id")
	}
	if result.CandidatesFound != 1 {
		t.Fatalf("expected 1 candidate, got %d", result.CandidatesFound)
	}
}

func TestRunDeterministicRanking(t *testing.T) {
	srcs := []Source{
		&stubSource{name: "linkedin", healthy: true, records: []candidate.RawRecord{
			record("linkedin", "Alpha One", "https://linkedin.com/in/alpha", "Go", "Python", "Kubernetes"),
			record("linkedin", "Beta Two", "https://linkedin.com/in/beta", "Go"),
			record("linkedin", "Gamma Three", "https://linkedin.com/in/gamma", "Java"),
		}},
	}

	run := func() []string {
		a := newTestAgent(t, srcs, Config{})
		result, err := a.Run(context.Background(), testJob())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		var order []string
		for _, sc := range result.TopCandidates {
			order = append(order, sc.IdentityKey)
		}
		return order
	}

	first := run()
	second := run()

	if len(first) != 3 {
		t.Fatalf("expected 3 ranked candidates, got %d", len(first))
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("ranking is not deterministic:\n%v\nvs\n%v", first, second)
	}
}

func TestRunPartialFailureContainment(t *testing.T) {
	srcs := []Source{
		&stubSource{name: "linkedin", healthy: true, records: []candidate.RawRecord{
			record("linkedin", "A Person", "https://linkedin.com/in/a", "Go"),
		}},
		&stubSource{name: "github", healthy: true, records: []candidate.RawRecord{
			record("github", "B Person", "https://linkedin.com/in/b", "Go"),
		}},
		&stubSource{name: "microblog", healthy: true, records: []candidate.RawRecord{
			record("microblog", "C Person", "https://linkedin.com/in/c", "Go"),
		}},
		&stubSource{name: "website", healthy: true, fail: sources.ReasonTransport},
	}

	a := newTestAgent(t, srcs, Config{})
	result, err := a.Run(context.Background(), testJob())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.CandidatesFound != 3 {
		t.Fatalf("expected the three healthy sources' candidates, got %d", result.CandidatesFound)
	}
	if len(result.PartialFailures) != 1 {
		t.Fatalf("expected exactly one partial failure, got %v", result.PartialFailures)
	}
	pf := result.PartialFailures[0]
	if pf.SourceID != "website" || pf.Reason != sources.ReasonTransport {
		t.Fatalf("expected {website, transport}, got %+v", pf)
	}
}

func TestRunZeroCandidatesStillSucceeds(t *testing.T) {
	srcs := []Source{
		&stubSource{name: "linkedin", healthy: true, fail: sources.ReasonTransport},
	}

	a := newTestAgent(t, srcs, Config{})
	result, err := a.Run(context.Background(), testJob())
	if err != nil {
		t.Fatalf("a job with zero candidates must still succeed: %v", err)
	}
	if len(result.TopCandidates) != 0 {
		t.Fatalf("expected empty top candidates")
	}
	if len(result.PartialFailures) == 0 {
		t.Fatalf("expected the failure to be recorded")
	}
}

func TestRunBusyAdmission(t *testing.T) {
	slow := &stubSource{name: "linkedin", healthy: true, delay: 300 * time.Millisecond}
	a := newTestAgent(t, []Source{slow}, Config{MaxConcurrentJobs: 1})

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Run(context.Background(), testJob())
	}()

	time.Sleep(50 * time.Millisecond)
	_, err := a.Run(context.Background(), testJob())
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy while the only slot is taken, got %v", err)
	}

	<-done
}

func TestRunCancellationLiveness(t *testing.T) {
	hang := &stubSource{name: "linkedin", healthy: true, delay: 10 * time.Second}
	a := newTestAgent(t, []Source{hang}, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	result, err := a.Run(ctx, testJob())
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("cancellation must still return partial results: %v", err)
	}
	if elapsed > 600*time.Millisecond {
		t.Fatalf("engine did not stop within the grace bound: %s", elapsed)
	}

	found := false
	for _, pf := range result.PartialFailures {
		if pf.Reason == sources.ReasonCancelled {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a cancelled entry, got %v", result.PartialFailures)
	}
}

func TestRunGeneratesOutreach(t *testing.T) {
	srcs := []Source{
		&stubSource{name: "linkedin", healthy: true, records: []candidate.RawRecord{
			record("linkedin", "A Person", "https://linkedin.com/in/a", "Go"),
			record("linkedin", "B Person", "https://linkedin.com/in/b", "Go"),
		}},
	}

	a := newTestAgent(t, srcs, Config{})
	job := testJob()
	job.Title = "Backend Engineer"
	job.Company = "Initrode"
	job.IncludeOutreach = true
	job.MaxCandidates = 1

	result, err := a.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.TopCandidates) != 1 {
		t.Fatalf("expected truncation to max_candidates, got %d", len(result.TopCandidates))
	}
	if len(result.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(result.Messages))
	}
	msg := result.Messages[0]
	if msg.Method != candidate.MethodTemplate {
		t.Fatalf("expected template method without an AI backend, got %q", msg.Method)
	}
	if msg.CandidateRef != result.TopCandidates[0].IdentityKey {
		t.Fatalf("message must reference the ranked candidate")
	}
}

func TestRunBatchKeepsOrder(t *testing.T) {
	srcs := []Source{
		&stubSource{name: "linkedin", healthy: true, records: []candidate.RawRecord{
			record("linkedin", "A Person", "https://linkedin.com/in/a", "Go"),
		}},
	}
	a := newTestAgent(t, srcs, Config{MaxConcurrentJobs: 4})

	jobs := []*candidate.JobSpec{
		{ID: "one", Description: "Backend engineer", MaxCandidates: 5},
		{ID: "two", Description: "Backend engineer", MaxCandidates: 5},
		{ID: "bad", Description: "", MaxCandidates: 5},
	}

	results := a.RunBatch(context.Background(), jobs, 2)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].JobID != "one" || results[1].JobID != "two" {
		t.Fatalf("batch results must keep input order")
	}
	if len(results[2].PartialFailures) == 0 {
		t.Fatalf("invalid job must surface its rejection in the result")
	}
}

func TestHealthReportsSources(t *testing.T) {
	srcs := []Source{
		&stubSource{name: "linkedin", healthy: true},
		&stubSource{name: "github", healthy: false},
	}
	a := newTestAgent(t, srcs, Config{})

	h := a.Health(context.Background())

	if h.Status != StatusDegraded {
		t.Fatalf("expected degraded status, got %q", h.Status)
	}
	if h.Sources["linkedin"] != StatusOK {
		t.Fatalf("expected linkedin ok, got %q", h.Sources["linkedin"])
	}
	if h.Sources["github"] != StatusUnavailable {
		t.Fatalf("expected github unavailable, got %q", h.Sources["github"])
	}
}
