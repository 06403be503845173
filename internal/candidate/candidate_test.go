package candidate

import (
	"sort"
	"testing"
)

func validSpec() *JobSpec {
	return &JobSpec{
		Description:   "ML Research Engineer working on code generation",
		MaxCandidates: 5,
	}
}

func TestJobSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*JobSpec)
		wantErr bool
	}{
		{
			name:   "valid with default weights",
			mutate: func(*JobSpec) {},
		},
		{
			name: "valid explicit weights",
			mutate: func(j *JobSpec) {
				j.RubricWeights = map[string]float64{
					DimEducation:        0.20,
					DimCareerTrajectory: 0.20,
					DimCompanyRelevance: 0.15,
					DimExperienceMatch:  0.25,
					DimLocationMatch:    0.10,
					DimTenure:           0.10,
				}
			},
		},
		{
			name:    "missing description",
			mutate:  func(j *JobSpec) { j.Description = "" },
			wantErr: true,
		},
		{
			name:    "zero max candidates",
			mutate:  func(j *JobSpec) { j.MaxCandidates = 0 },
			wantErr: true,
		},
		{
			name: "weights do not sum to one",
			mutate: func(j *JobSpec) {
				j.RubricWeights = map[string]float64{DimEducation: 0.5, DimTenure: 0.4}
			},
			wantErr: true,
		},
		{
			name: "negative weight",
			mutate: func(j *JobSpec) {
				j.RubricWeights = map[string]float64{DimEducation: 1.2, DimTenure: -0.2}
			},
			wantErr: true,
		},
		{
			name: "unknown dimension",
			mutate: func(j *JobSpec) {
				j.RubricWeights = map[string]float64{"vibes": 1.0}
			},
			wantErr: true,
		},
		{
			name:    "unknown seniority hint",
			mutate:  func(j *JobSpec) { j.SeniorityHint = "grandmaster" },
			wantErr: true,
		},
		{
			name:   "known seniority hint",
			mutate: func(j *JobSpec) { j.SeniorityHint = SenioritySenior },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(spec)
			err := spec.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRankingTieBreakers(t *testing.T) {
	scored := []*ScoredCandidate{
		{
			Candidate: Candidate{IdentityKey: "a", Completeness: 0.9},
			FitScore:  7.2, Confidence: 0.8,
		},
		{
			Candidate: Candidate{IdentityKey: "b", Completeness: 0.9},
			FitScore:  7.2, Confidence: 0.8,
		},
		{
			Candidate: Candidate{IdentityKey: "c", Completeness: 1.0},
			FitScore:  9.0, Confidence: 1.0,
		},
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Less(scored[j])
	})

	wantOrder := []string{"c", "a", "b"}
	for i, want := range wantOrder {
		if scored[i].IdentityKey != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, scored[i].IdentityKey)
		}
	}
}

func TestRecentExperience(t *testing.T) {
	c := &Candidate{
		Experience: []Experience{
			{Title: "Engineer", Company: "Old Co", Start: "2015-01", End: "2018-01"},
			{Title: "Senior Engineer", Company: "New Co", Start: "2021-06", End: "present"},
		},
	}
	if got := c.RecentExperience(); got == nil || got.Company != "New Co" {
		t.Fatalf("expected most recent role, got %+v", got)
	}

	empty := &Candidate{}
	if empty.RecentExperience() != nil {
		t.Fatalf("expected nil for empty experience")
	}
}
