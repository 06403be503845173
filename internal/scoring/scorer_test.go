package scoring

import (
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/talent-sourcer/internal/candidate"
)

func fullCandidate() *candidate.Candidate {
	return &candidate.Candidate{
		IdentityKey: "https://linkedin.com/in/sarah-chen",
		Name:        "Sarah Chen",
		Headline:    "Senior Machine Learning Engineer at Google",
		Location:    "Mountain View, CA",
		ProfileURL:  "https://linkedin.com/in/sarah-chen",
		Experience: []candidate.Experience{
			{Title: "Senior Machine Learning Engineer", Company: "Google", Start: "2021-03", End: "present"},
			{Title: "Machine Learning Engineer", Company: "Uber", Start: "2018-06", End: "2021-02"},
			{Title: "Software Engineer", Company: "Airbnb", Start: "2016-07", End: "2018-05"},
		},
		Education: []candidate.Education{
			{Degree: "MS Computer Science", School: "Stanford University", Year: 2016},
		},
		Skills:       []string{"machine learning", "python", "pytorch", "tensorflow"},
		Sources:      map[string]candidate.Enrichment{"linkedin": {}},
		Completeness: 1.0,
	}
}

func mlJob() *candidate.JobSpec {
	return &candidate.JobSpec{
		ID:                  "job-1",
		Title:               "ML Research Engineer",
		Description:         "Train and optimize models for code generation",
		RequiredSkills:      []string{"Python", "PyTorch"},
		PreferredSkills:     []string{"TensorFlow", "Kubernetes"},
		LocationPreferences: []string{"Mountain View", "remote"},
		MaxCandidates:       5,
	}
}

func TestScoreBounds(t *testing.T) {
	s := New(Config{}, zap.NewNop())

	sc := s.Score(fullCandidate(), mlJob())

	if sc.FitScore < 0 || sc.FitScore > 10 {
		t.Fatalf("fit score out of bounds: %f", sc.FitScore)
	}
	if sc.Confidence < 0 || sc.Confidence > 1 {
		t.Fatalf("confidence out of bounds: %f", sc.Confidence)
	}
	for dim, value := range sc.Breakdown {
		if value < 0 || value > 10 {
			t.Fatalf("dimension %s out of bounds: %f", dim, value)
		}
	}
	if len(sc.Breakdown) != len(candidate.Dimensions) {
		t.Fatalf("expected %d dimensions in breakdown, got %d", len(candidate.Dimensions), len(sc.Breakdown))
	}
	if len(sc.Insights) > 6 {
		t.Fatalf("expected at most 6 insights, got %d", len(sc.Insights))
	}
}

func TestScoreStrongCandidateBeatsSparse(t *testing.T) {
	s := New(Config{}, zap.NewNop())
	job := mlJob()

	strong := s.Score(fullCandidate(), job)

	sparse := s.Score(&candidate.Candidate{
		IdentityKey:  "p:sparse",
		Name:         "Someone Else",
		Completeness: 0.15,
	}, job)

	if strong.FitScore <= sparse.FitScore {
		t.Fatalf("expected strong candidate to outscore sparse one: %f vs %f", strong.FitScore, sparse.FitScore)
	}
	if strong.Confidence <= sparse.Confidence {
		t.Fatalf("expected higher confidence for strong candidate")
	}
}

func TestMissingInputsScoreNeutral(t *testing.T) {
	s := New(Config{}, zap.NewNop())

	empty := &candidate.Candidate{IdentityKey: "p:x", Name: "N", Completeness: 0.15}
	sc := s.Score(empty, mlJob())

	for _, dim := range []string{
		candidate.DimEducation,
		candidate.DimCareerTrajectory,
		candidate.DimExperienceMatch,
		candidate.DimCompanyRelevance,
		candidate.DimTenure,
		candidate.DimLocationMatch,
	} {
		if sc.Breakdown[dim] != 5.0 {
			t.Fatalf("dimension %s: expected neutral 5.0, got %f", dim, sc.Breakdown[dim])
		}
	}

	// Zero coverage drives confidence to zero.
	if sc.Confidence != 0 {
		t.Fatalf("expected zero confidence with no covered dimensions, got %f", sc.Confidence)
	}
}

func TestWeightScalingScalesFit(t *testing.T) {
	full := DefaultWeights()
	halved := map[string]float64{}
	for dim, w := range full {
		halved[dim] = w / 2
	}

	c := fullCandidate()
	base := New(Config{Weights: full}, zap.NewNop()).Score(c, mlJob())
	half := New(Config{Weights: halved}, zap.NewNop()).Score(c, mlJob())

	if math.Abs(base.FitScore-2*half.FitScore) > 0.15 {
		t.Fatalf("halving weights should halve fit: full=%f half=%f", base.FitScore, half.FitScore)
	}
}

func TestJobWeightsOverrideConfig(t *testing.T) {
	c := fullCandidate()
	job := mlJob()
	job.RubricWeights = map[string]float64{candidate.DimExperienceMatch: 1.0}

	s := New(Config{}, zap.NewNop())
	sc := s.Score(c, job)

	if math.Abs(sc.FitScore-sc.Breakdown[candidate.DimExperienceMatch]) > 0.1 {
		t.Fatalf("single-dimension weights should make fit equal that dimension: fit=%f dim=%f",
			sc.FitScore, sc.Breakdown[candidate.DimExperienceMatch])
	}
}

func TestExperienceMatch(t *testing.T) {
	s := New(Config{}, zap.NewNop())

	c := fullCandidate()
	job := mlJob()

	// Full required match plus preferred bonus caps near the top.
	sc := s.Score(c, job)
	if sc.Breakdown[candidate.DimExperienceMatch] < 9.9 {
		t.Fatalf("expected full match to reach 10, got %f", sc.Breakdown[candidate.DimExperienceMatch])
	}

	// Empty required skills scores neutral.
	job2 := mlJob()
	job2.RequiredSkills = nil
	sc2 := s.Score(c, job2)
	if sc2.Breakdown[candidate.DimExperienceMatch] != 5.0 {
		t.Fatalf("expected neutral with empty required skills, got %f", sc2.Breakdown[candidate.DimExperienceMatch])
	}

	// Zero overlap maps to the bottom of the linear range.
	c3 := fullCandidate()
	c3.Skills = []string{"cobol"}
	sc3 := s.Score(c3, job)
	if sc3.Breakdown[candidate.DimExperienceMatch] != 2.0 {
		t.Fatalf("expected floor score 2.0 for no overlap, got %f", sc3.Breakdown[candidate.DimExperienceMatch])
	}
}

func TestLocationMatch(t *testing.T) {
	s := New(Config{}, zap.NewNop())
	job := mlJob()

	tests := []struct {
		name     string
		location string
		want     float64
	}{
		{"exact city", "Mountain View, CA", 10},
		{"same metro", "San Francisco, CA", 8},
		{"same country", "Austin, TX", 6},
		{"remote capable", "Remote (Europe)", 4},
		{"no match", "Sydney", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := fullCandidate()
			c.Location = tt.location
			sc := s.Score(c, job)
			if got := sc.Breakdown[candidate.DimLocationMatch]; got != tt.want {
				t.Fatalf("location %q: expected %f, got %f", tt.location, tt.want, got)
			}
		})
	}
}

func TestTenureCurve(t *testing.T) {
	s := New(Config{}, zap.NewNop())
	job := mlJob()

	makeCandidate := func(spans ...[2]string) *candidate.Candidate {
		c := fullCandidate()
		c.Experience = nil
		for _, span := range spans {
			c.Experience = append(c.Experience, candidate.Experience{
				Title: "Engineer", Company: "Co", Start: span[0], End: span[1],
			})
		}
		return c
	}

	optimal := s.Score(makeCandidate([2]string{"2018-01", "2020-06"}, [2]string{"2020-06", "2023-01"}), job)
	if optimal.Breakdown[candidate.DimTenure] < 9 {
		t.Fatalf("expected peak tenure score, got %f", optimal.Breakdown[candidate.DimTenure])
	}

	hopper := s.Score(makeCandidate([2]string{"2020-01", "2020-07"}, [2]string{"2020-08", "2021-02"}), job)
	if hopper.Breakdown[candidate.DimTenure] > 4 {
		t.Fatalf("expected job-hopping penalty at or below 4, got %f", hopper.Breakdown[candidate.DimTenure])
	}

	longhold := s.Score(makeCandidate([2]string{"2010-01", "2018-01"}), job)
	if longhold.Breakdown[candidate.DimTenure] > 7 {
		t.Fatalf("expected excessive tenure at or below 7, got %f", longhold.Breakdown[candidate.DimTenure])
	}
}

func TestEducationTiers(t *testing.T) {
	s := New(Config{}, zap.NewNop())
	job := mlJob()

	elite := fullCandidate()
	elite.Education = []candidate.Education{{Degree: "PhD Computer Science", School: "MIT", Year: 2018}}
	if got := s.Score(elite, job).Breakdown[candidate.DimEducation]; got < 9 {
		t.Fatalf("expected elite school with PhD at 9+, got %f", got)
	}

	strong := fullCandidate()
	strong.Education = []candidate.Education{{Degree: "BS", School: "UCLA", Year: 2018}}
	if got := s.Score(strong, job).Breakdown[candidate.DimEducation]; got < 7 || got > 8.5 {
		t.Fatalf("expected strong school in 7-8.5, got %f", got)
	}

	standard := fullCandidate()
	standard.Education = []candidate.Education{{Degree: "BS", School: "Some State University", Year: 2018}}
	if got := s.Score(standard, job).Breakdown[candidate.DimEducation]; got < 5 || got > 6.5 {
		t.Fatalf("expected standard degree in 5-6.5, got %f", got)
	}
}

func TestEnrichmentRaisesConfidence(t *testing.T) {
	s := New(Config{}, zap.NewNop())
	job := mlJob()

	plain := fullCandidate()
	plain.Completeness = 0.6
	base := s.Score(plain, job)

	verified := fullCandidate()
	verified.Completeness = 0.6
	verified.Sources = map[string]candidate.Enrichment{
		"linkedin":  {},
		"github":    {GitHub: &candidate.GitHubStats{Login: "x", PublicRepos: 10}},
		"microblog": {Microblog: &candidate.MicroblogStats{Handle: "x", Followers: 10}},
		"website":   {Website: &candidate.WebsiteMeta{URL: "https://x.dev"}},
	}
	enriched := s.Score(verified, job)

	if enriched.Confidence <= base.Confidence {
		t.Fatalf("expected enrichment to raise confidence: %f vs %f", enriched.Confidence, base.Confidence)
	}
	if delta := enriched.Confidence - base.Confidence; delta > 0.25+1e-9 {
		t.Fatalf("enrichment contribution must be capped at 0.25, got %f", delta)
	}
	if enriched.Confidence > 1 {
		t.Fatalf("confidence out of bounds: %f", enriched.Confidence)
	}
	if enriched.FitScore != base.FitScore {
		t.Fatalf("enrichment must not touch the fit score: %f vs %f", enriched.FitScore, base.FitScore)
	}
}

func TestInsightsEmitted(t *testing.T) {
	s := New(Config{}, zap.NewNop())

	c := fullCandidate()
	c.Sources = map[string]candidate.Enrichment{
		"linkedin":  {},
		"github":    {GitHub: &candidate.GitHubStats{PublicRepos: 40, Followers: 500}},
		"microblog": {Microblog: &candidate.MicroblogStats{Followers: 5000}},
	}

	sc := s.Score(c, mlJob())
	if len(sc.Insights) == 0 {
		t.Fatalf("expected insights for a strong multi-source candidate")
	}

	found := false
	for _, insight := range sc.Insights {
		if insight == "profile verified across 3 sources" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected multi-source insight, got %v", sc.Insights)
	}
}
