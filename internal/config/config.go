package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/spigell/talent-sourcer/internal/candidate"
	"github.com/spigell/talent-sourcer/internal/ratelimit"
)

// Source ids recognized by the engine.
const (
	SourceLinkedIn  = "linkedin"
	SourceGitHub    = "github"
	SourceMicroblog = "microblog"
	SourceWebsite   = "website"
	SourceAI        = "ai"
)

// Config is the single strongly-typed configuration object supplied at
// process start.
type Config struct {
	Sources      map[string]Source `mapstructure:"sources"`
	AI           AI                `mapstructure:"ai"`
	Cache        Cache             `mapstructure:"cache"`
	Scoring      Scoring           `mapstructure:"scoring"`
	Orchestrator Orchestrator      `mapstructure:"orchestrator"`
	Server       Server            `mapstructure:"server"`
}

// Source configures one source adapter.
type Source struct {
	Enabled           bool   `mapstructure:"enabled"`
	BaseURL           string `mapstructure:"base-url"`
	Credential        string `mapstructure:"credential"`
	CredentialFile    string `mapstructure:"credential-file"`
	RequestsPerWindow int    `mapstructure:"requests-per-window"`
	WindowSeconds     int    `mapstructure:"window-seconds"`
	MaxInFlight       int    `mapstructure:"max-in-flight"`
	MaxRetries        int    `mapstructure:"max-retries"`
	DemoMode          bool   `mapstructure:"demo-mode"`
}

// AI configures the outreach generation backend.
type AI struct {
	Provider       string `mapstructure:"provider"`
	Model          string `mapstructure:"model"`
	Credential     string `mapstructure:"credential"`
	CredentialFile string `mapstructure:"credential-file"`
	TimeoutMS      int    `mapstructure:"timeout-ms"`
	MaxOutputChars int    `mapstructure:"max-output-chars"`
	RecruiterName  string `mapstructure:"recruiter-name"`
}

// Cache configures the shared cache.
type Cache struct {
	Kind        string `mapstructure:"kind"` // memory | external
	DefaultTTLS int    `mapstructure:"default-ttl-s"`
	Capacity    int    `mapstructure:"capacity"`
	Dir         string `mapstructure:"dir"`
}

// Scoring configures the rubric reference sets.
type Scoring struct {
	RubricWeights    map[string]float64 `mapstructure:"rubric-weights"`
	EliteSchools     []string           `mapstructure:"elite-schools"`
	StrongSchools    []string           `mapstructure:"strong-schools"`
	TopTierCompanies []string           `mapstructure:"top-tier-companies"`
	MidTierCompanies []string           `mapstructure:"mid-tier-companies"`
	SkillVocabulary  []string           `mapstructure:"skill-vocabulary"`
}

// Orchestrator configures job-level limits.
type Orchestrator struct {
	JobTimeoutS         int    `mapstructure:"job-timeout-s"`
	SourceTimeoutS      int    `mapstructure:"source-timeout-s"`
	GlobalMaxInFlight   int    `mapstructure:"global-max-in-flight"`
	OutreachConcurrency int    `mapstructure:"outreach-concurrency"`
	MaxConcurrentJobs   int    `mapstructure:"max-concurrent-jobs"`
	BackoffStrategy     string `mapstructure:"backoff-strategy"`
	BackoffBaseMS       int    `mapstructure:"backoff-base-ms"`
	BackoffMaxMS        int    `mapstructure:"backoff-max-ms"`
}

// Server configures the HTTP collaborator surface.
type Server struct {
	Addr string `mapstructure:"addr"`
}

// Load unmarshals the viper-backed configuration and fills defaults.
func Load() (*Config, error) {
	var cfg *Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) fillDefaults() {
	if c.Sources == nil {
		c.Sources = map[string]Source{}
	}
	for _, id := range []string{SourceLinkedIn, SourceGitHub, SourceMicroblog, SourceWebsite} {
		src, ok := c.Sources[id]
		if !ok {
			src = Source{Enabled: true, DemoMode: true}
		}
		if src.RequestsPerWindow <= 0 {
			src.RequestsPerWindow = 30
		}
		if src.WindowSeconds <= 0 {
			src.WindowSeconds = 60
		}
		if src.MaxInFlight <= 0 {
			src.MaxInFlight = 4
		}
		if src.MaxRetries <= 0 {
			src.MaxRetries = 3
		}
		c.Sources[id] = src
	}

	if c.AI.TimeoutMS <= 0 {
		c.AI.TimeoutMS = 15000
	}
	if c.AI.MaxOutputChars <= 0 {
		c.AI.MaxOutputChars = 1200
	}

	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.DefaultTTLS <= 0 {
		c.Cache.DefaultTTLS = 3600
	}

	if c.Orchestrator.JobTimeoutS <= 0 {
		c.Orchestrator.JobTimeoutS = 120
	}
	if c.Orchestrator.SourceTimeoutS <= 0 {
		c.Orchestrator.SourceTimeoutS = 30
	}
	if c.Orchestrator.GlobalMaxInFlight <= 0 {
		c.Orchestrator.GlobalMaxInFlight = 20
	}
	if c.Orchestrator.OutreachConcurrency <= 0 {
		c.Orchestrator.OutreachConcurrency = 4
	}
	if c.Orchestrator.MaxConcurrentJobs <= 0 {
		c.Orchestrator.MaxConcurrentJobs = 8
	}
	if c.Orchestrator.BackoffStrategy == "" {
		c.Orchestrator.BackoffStrategy = string(ratelimit.StrategyExponential)
	}
	if c.Orchestrator.BackoffBaseMS <= 0 {
		c.Orchestrator.BackoffBaseMS = 1000
	}
	if c.Orchestrator.BackoffMaxMS <= 0 {
		c.Orchestrator.BackoffMaxMS = 60000
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Cache.Kind {
	case "memory", "external":
	default:
		return fmt.Errorf("config: unknown cache kind %q", c.Cache.Kind)
	}

	switch ratelimit.Strategy(c.Orchestrator.BackoffStrategy) {
	case ratelimit.StrategyFixed, ratelimit.StrategyLinear, ratelimit.StrategyExponential, ratelimit.StrategyFibonacci:
	default:
		return fmt.Errorf("config: unknown backoff strategy %q", c.Orchestrator.BackoffStrategy)
	}

	if len(c.Scoring.RubricWeights) > 0 {
		probe := candidate.JobSpec{
			Description:   "config weight check",
			MaxCandidates: 1,
			RubricWeights: c.Scoring.RubricWeights,
		}
		if err := probe.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}

	return nil
}

// RateLimit derives the limiter configuration from the per-source settings.
func (c *Config) RateLimit() ratelimit.Config {
	sources := make(map[string]ratelimit.BucketConfig, len(c.Sources)+1)
	for id, src := range c.Sources {
		sources[id] = ratelimit.BucketConfig{
			Requests:    src.RequestsPerWindow,
			Window:      time.Duration(src.WindowSeconds) * time.Second,
			MaxInFlight: src.MaxInFlight,
		}
	}
	// The AI backend shares the limiter under its own source id.
	if _, ok := sources[SourceAI]; !ok {
		sources[SourceAI] = ratelimit.BucketConfig{
			Requests:    30,
			Window:      time.Minute,
			MaxInFlight: c.Orchestrator.OutreachConcurrency,
		}
	}

	return ratelimit.Config{
		Global: ratelimit.BucketConfig{
			Requests:    c.Orchestrator.GlobalMaxInFlight * 5,
			Window:      time.Second,
			MaxInFlight: c.Orchestrator.GlobalMaxInFlight,
		},
		Sources: sources,
		Backoff: ratelimit.BackoffConfig{
			Strategy: ratelimit.Strategy(c.Orchestrator.BackoffStrategy),
			Base:     time.Duration(c.Orchestrator.BackoffBaseMS) * time.Millisecond,
			Max:      time.Duration(c.Orchestrator.BackoffMaxMS) * time.Millisecond,
		},
	}
}

// DefaultTTL returns the cache TTL as a duration.
func (c *Config) DefaultTTL() time.Duration {
	return time.Duration(c.Cache.DefaultTTLS) * time.Second
}
