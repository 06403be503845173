package outreach

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/talent-sourcer/internal/ai"
	"github.com/spigell/talent-sourcer/internal/candidate"
)

type stubGenerator struct {
	response string
	err      error
	healthy  bool
	calls    int
	failures int
}

func (s *stubGenerator) GenerateContent(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.failures > 0 {
		s.failures--
		return "", errors.New("transient network error")
	}
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Healthy(context.Context) bool { return s.healthy }
func (s *stubGenerator) Model() string                { return "stub-model" }

func sarahChen() *candidate.ScoredCandidate {
	return &candidate.ScoredCandidate{
		Candidate: candidate.Candidate{
			IdentityKey: "https://linkedin.com/in/sarah-chen",
			Name:        "Sarah Chen",
			Headline:    "Senior Machine Learning Engineer at Google",
			Experience: []candidate.Experience{
				{Title: "Senior Machine Learning Engineer", Company: "Google", Start: "2021-03", End: "present"},
			},
			Skills: []string{"machine learning", "python", "pytorch"},
		},
		FitScore:   9.1,
		Confidence: 0.9,
	}
}

func mlJob() *candidate.JobSpec {
	return &candidate.JobSpec{
		ID:             "job-1",
		Title:          "ML Research Engineer",
		Company:        "Acme AI",
		Description:    "Train and optimize LLMs for code generation",
		RequiredSkills: []string{"PyTorch"},
		MaxCandidates:  3,
	}
}

func TestTemplateFallback(t *testing.T) {
	g := New(nil, nil, Config{RecruiterName: "Jordan Reyes"}, zap.NewNop())

	msg := g.Generate(context.Background(), sarahChen(), mlJob())

	if msg.Method != candidate.MethodTemplate {
		t.Fatalf("expected template method, got %q", msg.Method)
	}
	if !strings.HasPrefix(msg.Body, "Hi Sarah,") {
		t.Fatalf("expected greeting 'Hi Sarah,', got %q", firstLine(msg.Body))
	}
	for _, want := range []string{"Google", "PyTorch", "ML Research Engineer", "Acme AI"} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("expected body to mention %q:\n%s", want, msg.Body)
		}
	}

	lines := strings.Split(msg.Body, "\n")
	if lines[len(lines)-1] != "Jordan Reyes" {
		t.Fatalf("expected sign-off line, got %q", lines[len(lines)-1])
	}
	if msg.CharCount != len(msg.Body) {
		t.Fatalf("char_count %d does not match body length %d", msg.CharCount, len(msg.Body))
	}
}

func TestTemplateDeterminism(t *testing.T) {
	g := New(nil, nil, Config{RecruiterName: "Jordan Reyes"}, zap.NewNop())

	first := g.Generate(context.Background(), sarahChen(), mlJob())
	second := g.Generate(context.Background(), sarahChen(), mlJob())

	if first.Body != second.Body {
		t.Fatalf("template output is not byte-identical:\n%q\nvs\n%q", first.Body, second.Body)
	}
}

func TestClassSelection(t *testing.T) {
	tests := []struct {
		title    string
		headline string
		want     Class
	}{
		{"VP of Engineering", "", ClassExecutive},
		{"Research Scientist", "", ClassResearcher},
		{"Software Engineer", "Founder at Stealth Startup", ClassStartup},
		{"Software Engineer", "Building things", ClassDefault},
		{"Senior Developer", "", ClassDefault},
	}

	for _, tt := range tests {
		if got := ClassFor(tt.title, tt.headline); got != tt.want {
			t.Fatalf("ClassFor(%q, %q) = %q, want %q", tt.title, tt.headline, got, tt.want)
		}
	}
}

func TestAIPathUsed(t *testing.T) {
	backend := &stubGenerator{
		healthy: true,
		response: "Hi Sarah,\n\nI was impressed by your machine learning work at Google and wanted to reach out about the ML Research Engineer role at Acme AI.\n\nBest regards,\nJordan Reyes",
	}
	g := New(backend, nil, Config{RecruiterName: "Jordan Reyes"}, zap.NewNop())

	msg := g.Generate(context.Background(), sarahChen(), mlJob())

	if msg.Method != candidate.MethodAI {
		t.Fatalf("expected ai method, got %q", msg.Method)
	}
	if backend.calls != 1 {
		t.Fatalf("expected a single backend call, got %d", backend.calls)
	}
	if msg.CharCount != len(msg.Body) {
		t.Fatalf("char_count mismatch")
	}
}

func TestAIUnhealthyFallsBack(t *testing.T) {
	backend := &stubGenerator{healthy: false, response: "irrelevant"}
	g := New(backend, nil, Config{}, zap.NewNop())

	msg := g.Generate(context.Background(), sarahChen(), mlJob())

	if msg.Method != candidate.MethodTemplate {
		t.Fatalf("expected fallback when backend is unhealthy")
	}
	if backend.calls != 0 {
		t.Fatalf("unhealthy backend must not be called")
	}
}

func TestAIShortResponseFallsBack(t *testing.T) {
	backend := &stubGenerator{healthy: true, response: "Hi Sarah, call me."}
	g := New(backend, nil, Config{}, zap.NewNop())

	msg := g.Generate(context.Background(), sarahChen(), mlJob())

	if msg.Method != candidate.MethodTemplate {
		t.Fatalf("expected fallback for a too-short completion")
	}
}

func TestAIBannedPhraseFallsBack(t *testing.T) {
	backend := &stubGenerator{
		healthy:  true,
		response: "Hi Sarah,\n\nAs an AI language model I think you would be a fantastic fit for this role given your background and experience.\n\nBest regards,\nTeam",
	}
	g := New(backend, nil, Config{}, zap.NewNop())

	msg := g.Generate(context.Background(), sarahChen(), mlJob())

	if msg.Method != candidate.MethodTemplate {
		t.Fatalf("expected fallback for banned phrases")
	}
}

func TestAITransientErrorsRetry(t *testing.T) {
	backend := &stubGenerator{
		healthy:  true,
		failures: 2,
		response: "Hi Sarah,\n\nYour machine learning background at Google stood out; the ML Research Engineer role at Acme AI could be a strong match for your PyTorch experience.\n\nBest regards,\nJordan Reyes",
	}
	g := New(backend, nil, Config{RecruiterName: "Jordan Reyes"}, zap.NewNop())

	msg := g.Generate(context.Background(), sarahChen(), mlJob())

	if msg.Method != candidate.MethodAI {
		t.Fatalf("expected success after transient retries, got %q", msg.Method)
	}
	if backend.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", backend.calls)
	}
}

func TestAIRejectionDoesNotRetry(t *testing.T) {
	backend := &stubGenerator{healthy: true, err: ai.ErrRejected}
	g := New(backend, nil, Config{}, zap.NewNop())

	msg := g.Generate(context.Background(), sarahChen(), mlJob())

	if msg.Method != candidate.MethodTemplate {
		t.Fatalf("expected fallback on rejection")
	}
	if backend.calls != 1 {
		t.Fatalf("model rejections must not retry, got %d calls", backend.calls)
	}
}

func TestAICleaningStripsFiller(t *testing.T) {
	backend := &stubGenerator{
		healthy:  true,
		response: "Sure, here is a draft you could send:\n\nHi Sarah,\n\nYour work at Google caught my eye, and the ML Research Engineer role at Acme AI needs exactly your PyTorch depth.\n\nBest regards,\nJordan Reyes",
	}
	g := New(backend, nil, Config{RecruiterName: "Jordan Reyes"}, zap.NewNop())

	msg := g.Generate(context.Background(), sarahChen(), mlJob())

	if msg.Method != candidate.MethodAI {
		t.Fatalf("expected ai method, got %q", msg.Method)
	}
	if !strings.HasPrefix(msg.Body, "Hi Sarah,") {
		t.Fatalf("expected filler to be stripped, got %q", firstLine(msg.Body))
	}
}

func firstLine(s string) string {
	if idx := strings.Index(s, "\n"); idx >= 0 {
		return s[:idx]
	}
	return s
}
