package candidate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
)

// PresentMarker is the end date used for a role the person still holds.
const PresentMarker = "present"

// Seniority hints accepted in a JobSpec.
const (
	SeniorityIntern    = "intern"
	SeniorityJunior    = "junior"
	SeniorityMid       = "mid"
	SenioritySenior    = "senior"
	SeniorityStaff     = "staff"
	SeniorityPrincipal = "principal"
	SeniorityLead      = "lead"
	SeniorityManager   = "manager"
	SeniorityDirector  = "director"
	SeniorityVP        = "vp"
	SeniorityCLevel    = "c-level"
	SeniorityUnknown   = "unknown"
)

// Rubric dimension names. Weights in JobSpec.RubricWeights are keyed by these.
const (
	DimEducation        = "education"
	DimCareerTrajectory = "career_trajectory"
	DimCompanyRelevance = "company_relevance"
	DimExperienceMatch  = "experience_match"
	DimLocationMatch    = "location_match"
	DimTenure           = "tenure"
)

// Dimensions lists all rubric dimensions in a fixed order.
var Dimensions = []string{
	DimEducation,
	DimCareerTrajectory,
	DimCompanyRelevance,
	DimExperienceMatch,
	DimLocationMatch,
	DimTenure,
}

var validate = validator.New()

// JobSpec is the structured query describing the role to source for.
type JobSpec struct {
	ID                  string             `json:"id" mapstructure:"id"`
	Title               string             `json:"job_title" mapstructure:"job_title"`
	Company             string             `json:"job_company" mapstructure:"job_company"`
	Description         string             `json:"description" mapstructure:"description" validate:"required"`
	Highlights          []string           `json:"job_highlights,omitempty" mapstructure:"job_highlights"`
	RequiredSkills      []string           `json:"required_skills" mapstructure:"required_skills"`
	PreferredSkills     []string           `json:"preferred_skills" mapstructure:"preferred_skills"`
	LocationPreferences []string           `json:"location_preferences" mapstructure:"location_preferences"`
	SeniorityHint       string             `json:"seniority_hint" mapstructure:"seniority_hint" validate:"omitempty,oneof=intern junior mid senior staff principal lead manager director vp c-level unknown"`
	RubricWeights       map[string]float64 `json:"rubric_weights" mapstructure:"rubric_weights"`
	MaxCandidates       int                `json:"max_candidates" mapstructure:"max_candidates" validate:"min=1"`
	IncludeOutreach     bool               `json:"include_outreach" mapstructure:"include_outreach"`
}

// Validate checks the job spec invariants: weights non-negative and summing
// to 1.0 within 1e-6, max_candidates >= 1.
// An empty weights map is allowed and means "use the configured defaults".
func (j *JobSpec) Validate() error {
	if err := validate.Struct(j); err != nil {
		return fmt.Errorf("job spec: %w", err)
	}

	if len(j.RubricWeights) == 0 {
		return nil
	}

	known := make(map[string]bool, len(Dimensions))
	for _, d := range Dimensions {
		known[d] = true
	}

	sum := 0.0
	for dim, w := range j.RubricWeights {
		if !known[dim] {
			return fmt.Errorf("job spec: unknown rubric dimension %q", dim)
		}
		if w < 0 {
			return fmt.Errorf("job spec: negative weight for dimension %q", dim)
		}
		sum += w
	}

	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("job spec: rubric weights sum to %.6f, want 1.0", sum)
	}

	return nil
}

// RawRecord is an unnormalized, source-specific payload. The profile fields
// are best-effort filled by the adapter that produced it; the Normalizer is
// the only place where their shape is fixed into a Candidate.
type RawRecord struct {
	SourceID  string     `json:"source_id"`
	FetchedAt time.Time  `json:"fetched_at"`
	Synthetic bool       `json:"synthetic,omitempty"`
	Profile   RawProfile `json:"profile"`
}

// RawProfile carries whatever the source knows about a person.
type RawProfile struct {
	Name       string          `json:"name"`
	Headline   string          `json:"headline,omitempty"`
	Location   string          `json:"location,omitempty"`
	ProfileURL string          `json:"profile_url,omitempty"`
	Snippet    string          `json:"snippet,omitempty"`
	Experience []Experience    `json:"experience,omitempty"`
	Education  []Education     `json:"education,omitempty"`
	Skills     []string        `json:"skills,omitempty"`
	GitHub     *GitHubStats    `json:"github,omitempty"`
	Microblog  *MicroblogStats `json:"microblog,omitempty"`
	Website    *WebsiteMeta    `json:"website,omitempty"`
}

// Experience is a single role. Start and End are "YYYY" or "YYYY-MM"; End may
// be "present" for a role still held.
type Experience struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Start       string `json:"start,omitempty"`
	End         string `json:"end,omitempty"`
	Description string `json:"description,omitempty"`
}

// Education is a single degree.
type Education struct {
	Degree string `json:"degree,omitempty"`
	School string `json:"school"`
	Year   int    `json:"year,omitempty"`
}

// GitHubStats is the code-hosting enrichment object.
type GitHubStats struct {
	Login       string   `json:"login"`
	PublicRepos int      `json:"public_repos"`
	Followers   int      `json:"followers"`
	Stars       int      `json:"stars,omitempty"`
	Languages   []string `json:"languages,omitempty"`
}

// MicroblogStats is the short-form posts enrichment object.
type MicroblogStats struct {
	Handle    string `json:"handle"`
	Followers int    `json:"followers"`
	Posts     int    `json:"posts,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

// WebsiteMeta is the personal-site enrichment object.
type WebsiteMeta struct {
	URL          string   `json:"url"`
	SiteTitle    string   `json:"site_title,omitempty"`
	HasBlog      bool     `json:"has_blog,omitempty"`
	HasPortfolio bool     `json:"has_portfolio,omitempty"`
	Topics       []string `json:"topics,omitempty"`
}

// Enrichment is the per-source slice of a Candidate's Sources mapping. The
// variant pointers are tagged: exactly the ones the source produced are set.
type Enrichment struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Synthetic bool            `json:"synthetic,omitempty"`
	GitHub    *GitHubStats    `json:"github,omitempty"`
	Microblog *MicroblogStats `json:"microblog,omitempty"`
	Website   *WebsiteMeta    `json:"website,omitempty"`
}

// Candidate is the normalized representation of a person aggregated across
// sources. Created by the Normalizer, mutated only by the Merger, frozen once
// handed to the Scorer.
type Candidate struct {
	IdentityKey  string                `json:"identity_key"`
	Name         string                `json:"name"`
	Headline     string                `json:"headline,omitempty"`
	Title        string                `json:"title,omitempty"`
	Company      string                `json:"company,omitempty"`
	Location     string                `json:"location,omitempty"`
	ProfileURL   string                `json:"primary_profile_url,omitempty"`
	Experience   []Experience          `json:"experience,omitempty"`
	Education    []Education           `json:"education,omitempty"`
	Skills       []string              `json:"skills,omitempty"`
	Sources      map[string]Enrichment `json:"sources,omitempty"`
	Completeness float64               `json:"completeness"`
}

// HasSkill reports whether the candidate's skill set contains the token.
// Skills are stored lowercased and sorted.
func (c *Candidate) HasSkill(token string) bool {
	i := sort.SearchStrings(c.Skills, token)
	return i < len(c.Skills) && c.Skills[i] == token
}

// RecentExperience returns the most recent role by start date, or nil.
func (c *Candidate) RecentExperience() *Experience {
	if len(c.Experience) == 0 {
		return nil
	}
	recent := &c.Experience[0]
	for i := 1; i < len(c.Experience); i++ {
		if c.Experience[i].Start > recent.Start {
			recent = &c.Experience[i]
		}
	}
	return recent
}

// ScoredCandidate is a Candidate with its rubric evaluation attached.
type ScoredCandidate struct {
	Candidate
	FitScore   float64            `json:"fit_score"`
	Breakdown  map[string]float64 `json:"breakdown"`
	Confidence float64            `json:"confidence"`
	Insights   []string           `json:"insights,omitempty"`
}

// Less is the deterministic ranking order: higher fit score first, ties broken
// by confidence, then completeness, then lexicographic identity key.
func (s *ScoredCandidate) Less(other *ScoredCandidate) bool {
	if s.FitScore != other.FitScore {
		return s.FitScore > other.FitScore
	}
	if s.Confidence != other.Confidence {
		return s.Confidence > other.Confidence
	}
	if s.Completeness != other.Completeness {
		return s.Completeness > other.Completeness
	}
	return s.IdentityKey < other.IdentityKey
}

// Outreach generation methods.
const (
	MethodAI       = "ai"
	MethodTemplate = "template"
)

// OutreachMessage is a generated message for one candidate.
type OutreachMessage struct {
	CandidateRef string    `json:"candidate_ref"`
	Body         string    `json:"body"`
	Method       string    `json:"method"`
	GeneratedAt  time.Time `json:"generated_at"`
	CharCount    int       `json:"char_count"`
}

// PartialFailure records a non-fatal error from one component.
type PartialFailure struct {
	SourceID string `json:"source_id"`
	Reason   string `json:"reason"`
}

// JobResult is the outcome of one sourcing job.
type JobResult struct {
	JobID            string             `json:"job_id"`
	CandidatesFound  int                `json:"candidates_found"`
	TopCandidates    []*ScoredCandidate `json:"top_candidates"`
	Messages         []*OutreachMessage `json:"messages,omitempty"`
	ProcessingTimeMS int64              `json:"processing_time_ms"`
	PartialFailures  []PartialFailure   `json:"partial_failures"`
}
