package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/talent-sourcer/internal/agent"
	"github.com/spigell/talent-sourcer/internal/ai"
	"github.com/spigell/talent-sourcer/internal/ai/gemini"
	"github.com/spigell/talent-sourcer/internal/cache"
	"github.com/spigell/talent-sourcer/internal/candidate"
	"github.com/spigell/talent-sourcer/internal/config"
	"github.com/spigell/talent-sourcer/internal/logger"
	"github.com/spigell/talent-sourcer/internal/outreach"
	"github.com/spigell/talent-sourcer/internal/ratelimit"
	"github.com/spigell/talent-sourcer/internal/scoring"
	"github.com/spigell/talent-sourcer/internal/secrets"
	"github.com/spigell/talent-sourcer/internal/sources"
)

// buildEngine wires all engine components from the configuration. The
// returned cleanup releases the external cache, if any.
func buildEngine(ctx context.Context, cfg *config.Config, log *zap.Logger) (*agent.Agent, func(), error) {
	limiter := ratelimit.New(cfg.RateLimit(), log)

	store, cleanup, err := buildCache(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	normalizer := candidate.NewNormalizer(cfg.Scoring.SkillVocabulary)

	scorer := scoring.New(scoring.Config{
		Weights:          cfg.Scoring.RubricWeights,
		EliteSchools:     cfg.Scoring.EliteSchools,
		StrongSchools:    cfg.Scoring.StrongSchools,
		TopTierCompanies: cfg.Scoring.TopTierCompanies,
		MidTierCompanies: cfg.Scoring.MidTierCompanies,
	}, log)

	backend := buildAIBackend(ctx, cfg, log)

	gen := outreach.New(backend, limiter, outreach.Config{
		Timeout:        time.Duration(cfg.AI.TimeoutMS) * time.Millisecond,
		MaxOutputChars: cfg.AI.MaxOutputChars,
		RecruiterName:  cfg.AI.RecruiterName,
	}, log)

	srcs, err := buildSources(cfg, limiter, store, log)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	a := agent.New(srcs, normalizer, scorer, gen, limiter, store, agent.Config{
		JobTimeout:          time.Duration(cfg.Orchestrator.JobTimeoutS) * time.Second,
		SourceTimeout:       time.Duration(cfg.Orchestrator.SourceTimeoutS) * time.Second,
		OutreachConcurrency: cfg.Orchestrator.OutreachConcurrency,
		MaxConcurrentJobs:   cfg.Orchestrator.MaxConcurrentJobs,
		ScoreTTL:            cfg.DefaultTTL(),
	}, log)

	return a, cleanup, nil
}

func buildCache(cfg *config.Config, log *zap.Logger) (cache.Store, func(), error) {
	if cfg.Cache.Kind == "external" {
		dir := cfg.Cache.Dir
		if dir == "" {
			dir = "data"
		}
		sq, err := cache.OpenSQLite(dir, log)
		if err != nil {
			return nil, nil, fmt.Errorf("opening external cache: %w", err)
		}
		return sq, func() { sq.Close() }, nil
	}

	return cache.NewMemory(cfg.Cache.Capacity), func() {}, nil
}

func buildAIBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) ai.Generator {
	provider := strings.TrimSpace(strings.ToLower(cfg.AI.Provider))
	if provider == "" {
		return nil
	}
	if provider != "gemini" {
		log.Warn("unsupported ai provider, outreach will use templates", zap.String("provider", cfg.AI.Provider))
		return nil
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.AI.Credential,
		File:  cfg.AI.CredentialFile,
	})
	if err != nil {
		log.Warn("ai credential not available, outreach will use templates", zap.Error(err))
		return nil
	}

	backend, err := gemini.NewGenerator(ctx, apiKey, cfg.AI.Model)
	if err != nil {
		log.Warn("building ai backend failed, outreach will use templates", zap.Error(err))
		return nil
	}

	logger.WithCommonFields(log, provider, backend.Model()).Info("ai backend configured")
	return backend
}

func buildSources(cfg *config.Config, limiter *ratelimit.Limiter, store cache.Store, log *zap.Logger) ([]agent.Source, error) {
	ttl := cfg.DefaultTTL()
	var out []agent.Source

	add := func(id string, build func(src config.Source, credential string) (*sources.Source, error)) error {
		src, ok := cfg.Sources[id]
		if !ok || !src.Enabled {
			return nil
		}

		credential := ""
		if !src.DemoMode {
			loaded, err := secrets.Load(secrets.Source{
				Name:  id + " credential",
				Value: src.Credential,
				File:  src.CredentialFile,
			})
			if err != nil {
				log.Warn("source credential not available", zap.String("source", id), zap.Error(err))
			} else {
				credential = loaded
			}
		}

		wrapped, err := build(src, credential)
		if err != nil {
			return err
		}
		out = append(out, wrapped)
		return nil
	}

	if err := add(config.SourceLinkedIn, func(src config.Source, credential string) (*sources.Source, error) {
		adapter := sources.NewLinkedIn(src.BaseURL, credential, src.DemoMode, log)
		return sources.NewSource(adapter, limiter, store, ttl, src.MaxRetries, log), nil
	}); err != nil {
		return nil, err
	}

	if err := add(config.SourceGitHub, func(src config.Source, credential string) (*sources.Source, error) {
		adapter, err := sources.NewGitHub(src.BaseURL, credential, src.DemoMode, log)
		if err != nil {
			return nil, err
		}
		return sources.NewSource(adapter, limiter, store, ttl, src.MaxRetries, log), nil
	}); err != nil {
		return nil, err
	}

	if err := add(config.SourceMicroblog, func(src config.Source, credential string) (*sources.Source, error) {
		adapter := sources.NewMicroblog(src.BaseURL, credential, src.DemoMode, log)
		return sources.NewSource(adapter, limiter, store, ttl, src.MaxRetries, log), nil
	}); err != nil {
		return nil, err
	}

	if err := add(config.SourceWebsite, func(src config.Source, _ string) (*sources.Source, error) {
		adapter := sources.NewWebsite(src.BaseURL, src.DemoMode, log)
		return sources.NewSource(adapter, limiter, store, ttl, src.MaxRetries, log), nil
	}); err != nil {
		return nil, err
	}

	return out, nil
}
