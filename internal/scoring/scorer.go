package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/talent-sourcer/internal/candidate"
)

const neutralScore = 5.0

// maxInsights caps the insight list per candidate.
const maxInsights = 6

// DefaultWeights returns the rubric's default weighting.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		candidate.DimEducation:        0.20,
		candidate.DimCareerTrajectory: 0.20,
		candidate.DimCompanyRelevance: 0.15,
		candidate.DimExperienceMatch:  0.25,
		candidate.DimLocationMatch:    0.10,
		candidate.DimTenure:           0.10,
	}
}

// Config holds the reference sets the rubric scores against.
type Config struct {
	Weights          map[string]float64
	EliteSchools     []string
	StrongSchools    []string
	TopTierCompanies []string
	MidTierCompanies []string
}

// Scorer applies the weighted rubric to candidates. It is stateless per call
// and safe for concurrent use.
type Scorer struct {
	weights    map[string]float64
	elite      []string
	strong     []string
	topTier    []string
	midTier    []string
	logger     *zap.Logger
}

// New creates a Scorer. Empty reference sets fall back to built-in defaults.
func New(cfg Config, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}

	weights := cfg.Weights
	if len(weights) == 0 {
		weights = DefaultWeights()
	}

	return &Scorer{
		weights: weights,
		elite:   lowerAll(orDefault(cfg.EliteSchools, defaultEliteSchools)),
		strong:  lowerAll(orDefault(cfg.StrongSchools, defaultStrongSchools)),
		topTier: lowerAll(orDefault(cfg.TopTierCompanies, defaultTopTierCompanies)),
		midTier: lowerAll(orDefault(cfg.MidTierCompanies, defaultMidTierCompanies)),
		logger:  logger,
	}
}

// dimension is one rubric evaluation: the raw score and whether its inputs
// were present. Absent inputs score neutral and do not count toward coverage.
type dimension struct {
	value   float64
	present bool
}

func neutral() dimension { return dimension{value: neutralScore} }

// Score evaluates one candidate against a job. The candidate is frozen; the
// result embeds a copy by value.
func (s *Scorer) Score(c *candidate.Candidate, job *candidate.JobSpec) *candidate.ScoredCandidate {
	dims := map[string]dimension{
		candidate.DimEducation:        s.scoreEducation(c),
		candidate.DimCareerTrajectory: s.scoreTrajectory(c),
		candidate.DimCompanyRelevance: s.scoreCompany(c),
		candidate.DimExperienceMatch:  s.scoreExperienceMatch(c, job),
		candidate.DimLocationMatch:    s.scoreLocation(c, job),
		candidate.DimTenure:           s.scoreTenure(c),
	}

	weights := s.weights
	if len(job.RubricWeights) > 0 {
		weights = job.RubricWeights
	}

	fit := 0.0
	covered := 0
	breakdown := make(map[string]float64, len(dims))
	for _, dim := range candidate.Dimensions {
		d := dims[dim]
		breakdown[dim] = d.value
		fit += weights[dim] * d.value
		if d.present {
			covered++
		}
	}

	coverage := float64(covered) / float64(len(candidate.Dimensions))
	confidence := clamp(c.Completeness*coverage+enrichmentBonus(c), 0, 1)

	sc := &candidate.ScoredCandidate{
		Candidate:  *c,
		FitScore:   round1(fit),
		Breakdown:  breakdown,
		Confidence: round2(confidence),
		Insights:   s.insights(c, dims),
	}

	s.logger.Debug("scored candidate",
		zap.String("identity", c.IdentityKey),
		zap.Float64("fit_score", sc.FitScore),
		zap.Float64("confidence", sc.Confidence),
	)

	return sc
}

func (s *Scorer) scoreEducation(c *candidate.Candidate) dimension {
	if len(c.Education) == 0 {
		return neutral()
	}

	best := 0.0
	for _, edu := range c.Education {
		school := normalizeSchool(edu.School)
		degree := strings.ToLower(edu.Degree)

		var base float64
		switch {
		case matchesAny(school, s.elite):
			base = 9.0
		case matchesAny(school, s.strong):
			base = 7.0
		default:
			base = 5.0
		}

		switch {
		case strings.Contains(degree, "phd") || strings.Contains(degree, "doctor"):
			base += 1.0
		case strings.Contains(degree, "master") || strings.HasPrefix(degree, "ms") || strings.HasPrefix(degree, "meng"):
			base += 0.5
		}

		if base > best {
			best = base
		}
	}

	return dimension{value: clamp(best, 0, 10), present: true}
}

func (s *Scorer) scoreTrajectory(c *candidate.Candidate) dimension {
	type step struct {
		level int
		start float64
		title string
	}

	var steps []step
	for _, exp := range c.Experience {
		level := TitleLevel(exp.Title)
		start, ok := parseDate(exp.Start)
		if level > 0 && ok {
			steps = append(steps, step{level: level, start: start, title: exp.Title})
		}
	}

	if len(steps) == 0 {
		return neutral()
	}

	if len(steps) == 1 {
		// A single role gives no slope; anchor near neutral with a nudge
		// for already-senior titles.
		value := neutralScore
		if steps[0].level >= 4 {
			value += 1.0
		}
		return dimension{value: value, present: true}
	}

	first, last := steps[0], steps[0]
	for _, st := range steps[1:] {
		if st.start < first.start {
			first = st
		}
		if st.start > last.start {
			last = st
		}
	}

	span := last.start - first.start
	if span < 1 {
		span = 1
	}
	slope := float64(last.level-first.level) / span

	value := neutralScore + 5*slope
	if last.level >= 4 {
		value += 0.5
	}

	// Cross-function breadth earns at most one extra point.
	buckets := map[string]bool{}
	for _, st := range steps {
		buckets[FunctionBucket(st.title)] = true
	}
	if len(buckets) >= 2 {
		value += 1.0
	}

	return dimension{value: clamp(value, 0, 10), present: true}
}

func (s *Scorer) scoreCompany(c *candidate.Candidate) dimension {
	company := recentEmployer(c)
	if company == "" {
		return neutral()
	}

	lower := strings.ToLower(company)
	switch {
	case matchesAny(lower, s.topTier):
		return dimension{value: 9.5, present: true}
	case matchesAny(lower, s.midTier):
		return dimension{value: 8.0, present: true}
	case matchesAny(lower, offDomainMarkers):
		return dimension{value: 3.5, present: true}
	default:
		return dimension{value: 5.5, present: true}
	}
}

// recentEmployer picks the most recent completed role's company, falling back
// to the current one, then the headline company.
func recentEmployer(c *candidate.Candidate) string {
	var completed, current *candidate.Experience
	for i := range c.Experience {
		exp := &c.Experience[i]
		if exp.Company == "" {
			continue
		}
		if strings.EqualFold(exp.End, candidate.PresentMarker) {
			if current == nil || exp.Start > current.Start {
				current = exp
			}
			continue
		}
		if completed == nil || exp.Start > completed.Start {
			completed = exp
		}
	}

	switch {
	case completed != nil:
		return completed.Company
	case current != nil:
		return current.Company
	default:
		return c.Company
	}
}

func (s *Scorer) scoreExperienceMatch(c *candidate.Candidate, job *candidate.JobSpec) dimension {
	if len(job.RequiredSkills) == 0 {
		return neutral()
	}
	if len(c.Skills) == 0 {
		return neutral()
	}

	matched := 0
	for _, req := range job.RequiredSkills {
		if c.HasSkill(strings.ToLower(strings.TrimSpace(req))) {
			matched++
		}
	}
	match := float64(matched) / float64(len(job.RequiredSkills))

	value := 2 + 8*match

	bonus := 0.0
	for _, pref := range job.PreferredSkills {
		if c.HasSkill(strings.ToLower(strings.TrimSpace(pref))) {
			bonus += 0.5
		}
	}
	if bonus > 1.0 {
		bonus = 1.0
	}

	return dimension{value: clamp(value+bonus, 0, 10), present: true}
}

func (s *Scorer) scoreLocation(c *candidate.Candidate, job *candidate.JobSpec) dimension {
	if len(job.LocationPreferences) == 0 {
		return neutral()
	}
	loc := strings.ToLower(c.Location)
	if loc == "" {
		return neutral()
	}

	remoteAcceptable := false
	for _, pref := range job.LocationPreferences {
		p := strings.ToLower(strings.TrimSpace(pref))
		if p == "" {
			continue
		}
		if p == "remote" {
			remoteAcceptable = true
			continue
		}
		if strings.Contains(loc, p) {
			return dimension{value: 10, present: true}
		}
		if sameMetro(loc, p) {
			return dimension{value: 8, present: true}
		}
	}

	for _, pref := range job.LocationPreferences {
		if sameCountry(loc, strings.ToLower(pref)) {
			return dimension{value: 6, present: true}
		}
	}

	if remoteAcceptable && remoteCapable(c) {
		return dimension{value: 4, present: true}
	}

	return dimension{value: 0, present: true}
}

func (s *Scorer) scoreTenure(c *candidate.Candidate) dimension {
	var tenures []float64
	for _, exp := range c.Experience {
		if strings.EqualFold(exp.End, candidate.PresentMarker) {
			continue
		}
		start, okStart := parseDate(exp.Start)
		end, okEnd := parseDate(exp.End)
		if okStart && okEnd && end > start {
			tenures = append(tenures, end-start)
		}
	}

	if len(tenures) == 0 {
		return neutral()
	}

	sum := 0.0
	for _, t := range tenures {
		sum += t
	}
	avg := sum / float64(len(tenures))

	var value float64
	switch {
	case avg >= 2.0 && avg <= 3.0:
		value = 9.5
	case avg > 3.0 && avg <= 4.0:
		value = 9.0
	case avg >= 1.5 && avg < 2.0:
		value = 8.0
	case avg > 4.0 && avg <= 6.0:
		value = 7.5
	case avg > 6.0:
		value = 6.5
	case avg >= 1.0 && avg < 1.5:
		value = 6.0
	default:
		value = 3.5
	}

	return dimension{value: value, present: true}
}

// enrichmentBonus is the capped confidence contribution of corroborating
// source enrichment. Each enrichment kind counts once: code-hosting stats are
// the strongest verification signal, microblog and personal-site metadata
// weigh less. The total never exceeds 0.25 and never touches the fit score.
func enrichmentBonus(c *candidate.Candidate) float64 {
	var gh, mb, site bool
	for _, e := range c.Sources {
		gh = gh || e.GitHub != nil
		mb = mb || e.Microblog != nil
		site = site || e.Website != nil
	}

	bonus := 0.0
	if gh {
		bonus += 0.15
	}
	if mb {
		bonus += 0.10
	}
	if site {
		bonus += 0.10
	}
	if bonus > 0.25 {
		bonus = 0.25
	}
	return bonus
}

func (s *Scorer) insights(c *candidate.Candidate, dims map[string]dimension) []string {
	var out []string
	add := func(msg string) {
		if len(out) < maxInsights {
			out = append(out, msg)
		}
	}

	if d := dims[candidate.DimExperienceMatch]; d.present && d.value >= 9 {
		add("strong skill match with the role requirements")
	}
	if d := dims[candidate.DimEducation]; d.present && d.value >= 9 {
		add("strong educational background from a leading institution")
	}
	if d := dims[candidate.DimCompanyRelevance]; d.present && d.value >= 9 {
		add("track record at top-tier companies")
	}
	if d := dims[candidate.DimCareerTrajectory]; d.present && d.value >= 8 {
		add("clear career progression")
	}
	if d := dims[candidate.DimTenure]; d.present && d.value >= 9 {
		add("healthy tenure pattern across roles")
	}

	if len(c.Sources) >= 3 {
		add(fmt.Sprintf("profile verified across %d sources", len(c.Sources)))
	}
	for _, enrichment := range c.Sources {
		if gh := enrichment.GitHub; gh != nil && gh.PublicRepos >= 20 {
			add("active open-source contributor (" + strconv.Itoa(gh.PublicRepos) + " public repositories)")
			break
		}
	}
	for _, enrichment := range c.Sources {
		if mb := enrichment.Microblog; mb != nil && mb.Followers >= 1000 {
			add("established audience on public channels")
			break
		}
	}

	return out
}

// parseDate parses "YYYY" or "YYYY-MM" into a fractional year.
func parseDate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, candidate.PresentMarker) {
		return 0, false
	}

	parts := strings.SplitN(s, "-", 2)
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1900 || year > 2200 {
		return 0, false
	}

	month := 1
	if len(parts) == 2 {
		if m, err := strconv.Atoi(parts[1]); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}

	return float64(year) + float64(month-1)/12, true
}

var offDomainMarkers = []string{
	"restaurant", "retail", "hospitality", "grocery", "salon", "staffing agency",
}

var usCountryMarkers = []string{
	"usa", "united states", ", ca", ", wa", ", ny", ", tx", ", ma", ", or",
	"california", "washington", "new york", "texas", "massachusetts", "oregon",
	"colorado", "illinois", "georgia",
}

var metroAreas = [][]string{
	{"bay area", "silicon valley", "san francisco", "mountain view", "palo alto", "menlo park", "sunnyvale", "san jose", "cupertino", "redwood city", "oakland", "fremont", "santa clara"},
	{"new york", "nyc", "brooklyn", "jersey city", "hoboken"},
	{"seattle", "bellevue", "redmond", "kirkland"},
	{"los angeles", "santa monica", "pasadena", "culver city"},
	{"boston", "cambridge", "somerville"},
	{"austin", "round rock"},
}

func sameMetro(a, b string) bool {
	for _, area := range metroAreas {
		inA, inB := false, false
		for _, city := range area {
			if strings.Contains(a, city) {
				inA = true
			}
			if strings.Contains(b, city) {
				inB = true
			}
		}
		if inA && inB {
			return true
		}
	}
	return false
}

func sameCountry(a, b string) bool {
	inA, inB := false, false
	for _, marker := range usCountryMarkers {
		if strings.Contains(a, marker) {
			inA = true
		}
		if strings.Contains(b, marker) {
			inB = true
		}
	}
	// Metro membership implies the country even without a state marker.
	for _, area := range metroAreas {
		for _, city := range area {
			if strings.Contains(a, city) {
				inA = true
			}
			if strings.Contains(b, city) {
				inB = true
			}
		}
	}
	return inA && inB
}

var remoteMarkers = []string{"remote", "distributed", "worldwide", "anywhere", "global"}

func remoteCapable(c *candidate.Candidate) bool {
	text := strings.ToLower(c.Location + " " + c.Headline)
	for _, marker := range remoteMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func normalizeSchool(school string) string {
	s := strings.ToLower(school)
	s = strings.TrimPrefix(s, "the ")
	return strings.TrimSpace(s)
}

func matchesAny(s string, set []string) bool {
	for _, item := range set {
		if item != "" && strings.Contains(s, item) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

func orDefault(in, fallback []string) []string {
	if len(in) > 0 {
		return in
	}
	return fallback
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
