package outreach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/talent-sourcer/internal/ai"
	"github.com/spigell/talent-sourcer/internal/candidate"
	"github.com/spigell/talent-sourcer/internal/ratelimit"
	"github.com/spigell/talent-sourcer/internal/utils"
)

const (
	aiSourceID          = "ai"
	defaultTimeout      = 15 * time.Second
	defaultMaxChars     = 1200
	defaultRecruiter    = "The Recruiting Team"
	minUsableAIBodyLen  = 80
	maxTransientRetries = 2
	maxLogLength        = 200
)

// Phrases that make an AI completion unusable as outreach.
var bannedPhrases = []string{
	"as an ai",
	"language model",
	"i cannot",
	"[insert",
	"{insert",
}

// Leading filler lines stripped from AI completions.
var fillerPrefixes = []string{
	"sure", "certainly", "of course", "here is", "here's", "okay",
}

// Config controls generation.
type Config struct {
	Timeout        time.Duration
	MaxOutputChars int
	RecruiterName  string
	JobHighlights  []string
}

// Generator produces personalized outreach messages, preferring the AI
// backend and falling back to deterministic templates.
type Generator struct {
	backend ai.Generator
	limiter *ratelimit.Limiter
	cfg     Config
	logger  *zap.Logger
}

// New creates a Generator. backend may be nil, which forces template mode.
func New(backend ai.Generator, limiter *ratelimit.Limiter, cfg Config, logger *zap.Logger) *Generator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxOutputChars <= 0 {
		cfg.MaxOutputChars = defaultMaxChars
	}
	if cfg.RecruiterName == "" {
		cfg.RecruiterName = defaultRecruiter
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		backend: backend,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
	}
}

type messageContext struct {
	FirstName     string
	RecentTitle   string
	RecentCompany string
	TopSkill      string
	JobTitle      string
	JobCompany    string
	Highlights    string
	RecruiterName string
}

// Generate builds the message for one scored candidate. It never fails: any
// AI problem degrades to the template path, observable only via Method.
func (g *Generator) Generate(ctx context.Context, sc *candidate.ScoredCandidate, job *candidate.JobSpec) *candidate.OutreachMessage {
	class := ClassFor(recentTitle(sc), sc.Headline)
	mctx := g.buildContext(sc, job)

	if body, ok := g.tryAI(ctx, sc, job, mctx); ok {
		return &candidate.OutreachMessage{
			CandidateRef: sc.IdentityKey,
			Body:         body,
			Method:       candidate.MethodAI,
			GeneratedAt:  time.Now().UTC(),
			CharCount:    len(body),
		}
	}

	body := render(class, mctx)
	return &candidate.OutreachMessage{
		CandidateRef: sc.IdentityKey,
		Body:         body,
		Method:       candidate.MethodTemplate,
		GeneratedAt:  time.Now().UTC(),
		CharCount:    len(body),
	}
}

func (g *Generator) buildContext(sc *candidate.ScoredCandidate, job *candidate.JobSpec) *messageContext {
	first := strings.Fields(sc.Name)
	firstName := "there"
	if len(first) > 0 {
		firstName = strings.TrimSuffix(first[0], ",")
	}

	title := recentTitle(sc)
	if title == "" {
		title = "your current role"
	}
	company := recentCompany(sc)
	if company == "" {
		company = "your current company"
	}

	jobTitle := job.Title
	if jobTitle == "" {
		jobTitle = "new role"
	}
	jobCompany := job.Company
	if jobCompany == "" {
		jobCompany = "our client"
	}

	return &messageContext{
		FirstName:     firstName,
		RecentTitle:   title,
		RecentCompany: company,
		TopSkill:      topSkillOverlap(sc, job),
		JobTitle:      jobTitle,
		JobCompany:    jobCompany,
		Highlights:    formatHighlights(g.cfg.JobHighlights, job.Highlights),
		RecruiterName: g.cfg.RecruiterName,
	}
}

// tryAI attempts the AI path: health check, bounded prompt, wall-clock
// timeout, cleaning. Transient transport errors retry at most twice; a
// model-level rejection never retries.
func (g *Generator) tryAI(ctx context.Context, sc *candidate.ScoredCandidate, job *candidate.JobSpec, mctx *messageContext) (string, bool) {
	if g.backend == nil || !g.backend.Healthy(ctx) {
		return "", false
	}

	prompt := g.buildPrompt(sc, job, mctx)

	for attempt := 0; attempt <= maxTransientRetries; attempt++ {
		if g.limiter != nil {
			if err := g.limiter.Acquire(ctx, aiSourceID); err != nil {
				return "", false
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		raw, err := g.backend.GenerateContent(callCtx, prompt)
		cancel()

		if err != nil {
			if errors.Is(err, ai.ErrRejected) || ctx.Err() != nil {
				g.logger.Debug("ai generation rejected", zap.Error(err))
				return "", false
			}
			g.logger.Warn("ai generation attempt failed",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			if err := utils.WaitFor(ctx, time.Duration(attempt+1)*250*time.Millisecond); err != nil {
				return "", false
			}
			continue
		}

		body, ok := g.clean(raw, mctx)
		if !ok {
			g.logger.Debug("ai response unusable, falling back to template",
				zap.String("response_preview", utils.TruncateForLog(raw, maxLogLength)),
			)
			return "", false
		}
		return body, true
	}

	return "", false
}

func (g *Generator) buildPrompt(sc *candidate.ScoredCandidate, job *candidate.JobSpec, mctx *messageContext) string {
	var b strings.Builder

	b.WriteString("Write a short, professional recruiting outreach message.\n\n")
	b.WriteString("Candidate:\n")
	fmt.Fprintf(&b, "- Name: %s\n", sc.Name)
	if sc.Headline != "" {
		fmt.Fprintf(&b, "- Headline: %s\n", sc.Headline)
	}
	fmt.Fprintf(&b, "- Recent role: %s at %s\n", mctx.RecentTitle, mctx.RecentCompany)
	if len(sc.Skills) > 0 {
		limit := len(sc.Skills)
		if limit > 8 {
			limit = 8
		}
		fmt.Fprintf(&b, "- Skills: %s\n", strings.Join(sc.Skills[:limit], ", "))
	}
	if len(sc.Insights) > 0 {
		fmt.Fprintf(&b, "- Notes: %s\n", strings.Join(sc.Insights, "; "))
	}

	b.WriteString("\nRole:\n")
	fmt.Fprintf(&b, "- Title: %s\n", mctx.JobTitle)
	fmt.Fprintf(&b, "- Company: %s\n", mctx.JobCompany)
	if mctx.Highlights != "" {
		fmt.Fprintf(&b, "- Highlights:\n%s\n", mctx.Highlights)
	}

	b.WriteString("\nRules:\n")
	fmt.Fprintf(&b, "- Start with \"Hi %s,\" and end with a sign-off from %s.\n", mctx.FirstName, mctx.RecruiterName)
	fmt.Fprintf(&b, "- Mention %s and the candidate's experience with %s.\n", mctx.JobCompany, mctx.TopSkill)
	fmt.Fprintf(&b, "- At most %d characters. Plain text only, no placeholders.\n", g.cfg.MaxOutputChars)

	return b.String()
}

// clean normalizes an AI completion: strips leading filler, enforces the
// greeting and a closing, rejects short or banned output.
func (g *Generator) clean(raw string, mctx *messageContext) (string, bool) {
	body := strings.TrimSpace(raw)
	body = strings.Trim(body, "`")

	lower := strings.ToLower(body)
	for _, phrase := range bannedPhrases {
		if strings.Contains(lower, phrase) {
			return "", false
		}
	}

	// Drop leading filler lines until the greeting.
	lines := strings.Split(body, "\n")
	for len(lines) > 0 {
		first := strings.ToLower(strings.TrimSpace(lines[0]))
		if strings.HasPrefix(first, "hi ") || strings.HasPrefix(first, "hello ") || strings.HasPrefix(first, "dear ") {
			break
		}
		isFiller := first == ""
		for _, prefix := range fillerPrefixes {
			if strings.HasPrefix(first, prefix) {
				isFiller = true
			}
		}
		if !isFiller {
			break
		}
		lines = lines[1:]
	}
	body = strings.TrimSpace(strings.Join(lines, "\n"))

	if len(body) < minUsableAIBodyLen {
		return "", false
	}

	if !strings.HasPrefix(strings.ToLower(body), "hi ") &&
		!strings.HasPrefix(strings.ToLower(body), "hello ") &&
		!strings.HasPrefix(strings.ToLower(body), "dear ") {
		body = fmt.Sprintf("Hi %s,\n\n%s", mctx.FirstName, body)
	}

	if !strings.Contains(body, mctx.RecruiterName) {
		body = fmt.Sprintf("%s\n\nBest regards,\n%s", body, mctx.RecruiterName)
	}

	if len(body) > g.cfg.MaxOutputChars {
		return "", false
	}

	return body, true
}

func recentTitle(sc *candidate.ScoredCandidate) string {
	if exp := sc.RecentExperience(); exp != nil && exp.Title != "" {
		return exp.Title
	}
	return sc.Title
}

func recentCompany(sc *candidate.ScoredCandidate) string {
	if exp := sc.RecentExperience(); exp != nil && exp.Company != "" {
		return exp.Company
	}
	return sc.Company
}

// topSkillOverlap returns the first required skill the candidate has, in the
// job's order, falling back to preferred skills, then the candidate's first
// skill. The original casing from the job spec is preserved.
func topSkillOverlap(sc *candidate.ScoredCandidate, job *candidate.JobSpec) string {
	for _, set := range [][]string{job.RequiredSkills, job.PreferredSkills} {
		for _, skill := range set {
			if sc.HasSkill(strings.ToLower(strings.TrimSpace(skill))) {
				return skill
			}
		}
	}
	if len(sc.Skills) > 0 {
		return sc.Skills[0]
	}
	return "your field"
}

func formatHighlights(configured, fromJob []string) string {
	highlights := fromJob
	if len(highlights) == 0 {
		highlights = configured
	}
	if len(highlights) == 0 {
		return ""
	}

	lines := make([]string, 0, len(highlights))
	for _, h := range highlights {
		h = strings.TrimSpace(h)
		if h != "" {
			lines = append(lines, "• "+h)
		}
	}
	return strings.Join(lines, "\n")
}
