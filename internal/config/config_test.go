package config

import (
	"testing"
	"time"

	"github.com/spigell/talent-sourcer/internal/ratelimit"
)

func TestFillDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.fillDefaults()

	for _, id := range []string{SourceLinkedIn, SourceGitHub, SourceMicroblog, SourceWebsite} {
		src, ok := cfg.Sources[id]
		if !ok {
			t.Fatalf("expected default source %q", id)
		}
		if !src.Enabled || !src.DemoMode {
			t.Fatalf("unconfigured source %q should default to enabled demo mode: %+v", id, src)
		}
		if src.RequestsPerWindow <= 0 || src.WindowSeconds <= 0 {
			t.Fatalf("source %q missing rate defaults: %+v", id, src)
		}
	}

	if cfg.Cache.Kind != "memory" {
		t.Fatalf("expected memory cache default, got %q", cfg.Cache.Kind)
	}
	if cfg.Orchestrator.JobTimeoutS != 120 {
		t.Fatalf("expected 120s job timeout default, got %d", cfg.Orchestrator.JobTimeoutS)
	}
	if cfg.Orchestrator.OutreachConcurrency != 4 {
		t.Fatalf("expected outreach concurrency 4, got %d", cfg.Orchestrator.OutreachConcurrency)
	}
	if cfg.AI.TimeoutMS != 15000 {
		t.Fatalf("expected 15s AI timeout default, got %d", cfg.AI.TimeoutMS)
	}
}

func TestValidateRejectsUnknownKinds(t *testing.T) {
	cfg := &Config{}
	cfg.fillDefaults()

	cfg.Cache.Kind = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown cache kind to be rejected")
	}

	cfg.Cache.Kind = "memory"
	cfg.Orchestrator.BackoffStrategy = "random"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown backoff strategy to be rejected")
	}
}

func TestValidateChecksWeights(t *testing.T) {
	cfg := &Config{}
	cfg.fillDefaults()

	cfg.Scoring.RubricWeights = map[string]float64{"education": 0.5}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected weights not summing to 1.0 to be rejected")
	}
}

func TestRateLimitDerivation(t *testing.T) {
	cfg := &Config{
		Sources: map[string]Source{
			SourceLinkedIn: {Enabled: true, RequestsPerWindow: 2, WindowSeconds: 60, MaxInFlight: 1},
		},
	}
	cfg.fillDefaults()

	rl := cfg.RateLimit()

	bucket := rl.Sources[SourceLinkedIn]
	if bucket.Requests != 2 || bucket.Window != 60*time.Second || bucket.MaxInFlight != 1 {
		t.Fatalf("unexpected linkedin bucket: %+v", bucket)
	}

	if _, ok := rl.Sources[SourceAI]; !ok {
		t.Fatalf("expected an implicit ai bucket")
	}

	if rl.Backoff.Strategy != ratelimit.StrategyExponential {
		t.Fatalf("expected exponential default, got %q", rl.Backoff.Strategy)
	}
}
