package sources

import (
	"strings"
	"time"

	"github.com/spigell/talent-sourcer/internal/candidate"
)

// demoProfile is one synthetic person shared by all adapters in demo mode.
// Every flavor carries the same primary profile URL so the merger can union
// the per-source views back into one candidate.
type demoProfile struct {
	Name       string
	Headline   string
	Location   string
	ProfileURL string
	Experience []candidate.Experience
	Education  []candidate.Education
	Skills     []string
	GitHub     candidate.GitHubStats
	Microblog  candidate.MicroblogStats
	Website    candidate.WebsiteMeta
}

var demoProfiles = []demoProfile{
	{
		Name:       "Sarah Chen",
		Headline:   "Senior Machine Learning Engineer at Google",
		Location:   "Mountain View, CA",
		ProfileURL: "https://linkedin.com/in/sarah-chen-ml",
		Experience: []candidate.Experience{
			{Title: "Senior Machine Learning Engineer", Company: "Google", Start: "2021-03", End: "present", Description: "Training and serving large ranking models"},
			{Title: "Machine Learning Engineer", Company: "Uber", Start: "2018-06", End: "2021-02", Description: "Built the feature store for marketplace ML"},
			{Title: "Software Engineer", Company: "Airbnb", Start: "2016-07", End: "2018-05", Description: "Search infrastructure"},
		},
		Education: []candidate.Education{
			{Degree: "MS Computer Science", School: "Stanford University", Year: 2016},
			{Degree: "BS Computer Science", School: "UC Berkeley", Year: 2014},
		},
		Skills: []string{"Python", "PyTorch", "TensorFlow", "Machine Learning", "Deep Learning", "Kubernetes", "GCP"},
		GitHub: candidate.GitHubStats{
			Login: "sarahchen-ml", PublicRepos: 34, Followers: 412, Stars: 1124,
			Languages: []string{"Python", "C++"},
		},
		Microblog: candidate.MicroblogStats{Handle: "sarahchen_ml", Followers: 5400, Posts: 1320, Bio: "ML engineer. Opinions on training infra."},
		Website:   candidate.WebsiteMeta{URL: "https://sarahchen.dev", SiteTitle: "Sarah Chen", HasBlog: true, HasPortfolio: true, Topics: []string{"machine learning", "mlops"}},
	},
	{
		Name:       "Marcus Rodriguez",
		Headline:   "Staff Software Engineer at Meta • Ex-Netflix",
		Location:   "San Francisco, CA",
		ProfileURL: "https://linkedin.com/in/marcus-rodriguez",
		Experience: []candidate.Experience{
			{Title: "Staff Software Engineer", Company: "Meta", Start: "2020-01", End: "present", Description: "Distributed caching for the social graph"},
			{Title: "Senior Software Engineer", Company: "Netflix", Start: "2016-09", End: "2019-12", Description: "Playback microservices"},
			{Title: "Software Engineer", Company: "Dropbox", Start: "2014-02", End: "2016-08", Description: "Sync engine"},
		},
		Education: []candidate.Education{
			{Degree: "BS Computer Science", School: "University of Texas", Year: 2013},
		},
		Skills: []string{"Go", "Java", "Distributed Systems", "Kubernetes", "AWS", "Microservices", "PostgreSQL"},
		GitHub: candidate.GitHubStats{
			Login: "marcusrdz", PublicRepos: 58, Followers: 890, Stars: 1645,
			Languages: []string{"Go", "Java"},
		},
		Microblog: candidate.MicroblogStats{Handle: "marcusrdz", Followers: 2100, Posts: 760, Bio: "Staff eng @ Meta. Distributed systems."},
		Website:   candidate.WebsiteMeta{URL: "https://marcusrdz.io", SiteTitle: "Marcus Rodriguez", HasBlog: true, Topics: []string{"distributed systems", "go"}},
	},
	{
		Name:       "Priya Patel",
		Headline:   "AI Research Scientist at OpenAI • PhD Stanford",
		Location:   "Palo Alto, CA",
		ProfileURL: "https://linkedin.com/in/priya-patel-ai",
		Experience: []candidate.Experience{
			{Title: "AI Research Scientist", Company: "OpenAI", Start: "2022-05", End: "present", Description: "Alignment and evaluation research"},
			{Title: "Research Scientist", Company: "DeepMind", Start: "2019-09", End: "2022-04", Description: "Language model pretraining"},
		},
		Education: []candidate.Education{
			{Degree: "PhD Computer Science", School: "Stanford University", Year: 2019},
			{Degree: "BTech Computer Science", School: "IIT Bombay", Year: 2014},
		},
		Skills: []string{"Python", "PyTorch", "NLP", "Transformers", "Research", "Machine Learning", "LLM"},
		GitHub: candidate.GitHubStats{
			Login: "priyapatel-ai", PublicRepos: 21, Followers: 1230, Stars: 2990,
			Languages: []string{"Python"},
		},
		Microblog: candidate.MicroblogStats{Handle: "priya_ai", Followers: 14500, Posts: 2100, Bio: "Research scientist. LLM evals and alignment."},
		Website:   candidate.WebsiteMeta{URL: "https://priyapatel.ai", SiteTitle: "Priya Patel — Research", HasBlog: true, HasPortfolio: true, Topics: []string{"nlp", "llm", "alignment"}},
	},
	{
		Name:       "Alex Kim",
		Headline:   "Engineering Manager at Stripe • Building Payment Infrastructure",
		Location:   "Seattle, WA",
		ProfileURL: "https://linkedin.com/in/alex-kim-stripe",
		Experience: []candidate.Experience{
			{Title: "Engineering Manager", Company: "Stripe", Start: "2021-06", End: "present", Description: "Leads the payment reliability group"},
			{Title: "Senior Software Engineer", Company: "Amazon", Start: "2017-03", End: "2021-05", Description: "Payments platform"},
			{Title: "Software Engineer", Company: "Zillow", Start: "2014-08", End: "2017-02", Description: "Listing services"},
		},
		Education: []candidate.Education{
			{Degree: "BS Computer Engineering", School: "University of Washington", Year: 2014},
		},
		Skills: []string{"Java", "Go", "AWS", "System Design", "Leadership", "Microservices"},
		GitHub: candidate.GitHubStats{
			Login: "alexkim-dev", PublicRepos: 12, Followers: 96, Stars: 140,
			Languages: []string{"Java", "Go"},
		},
		Microblog: candidate.MicroblogStats{Handle: "alexkim_eng", Followers: 840, Posts: 230, Bio: "EM @ Stripe. Payments and people."},
		Website:   candidate.WebsiteMeta{URL: "https://alexkim.dev", SiteTitle: "Alex Kim", Topics: []string{"engineering management"}},
	},
	{
		Name:       "Emma Thompson",
		Headline:   "Frontend Architect at Figma • React & TypeScript Expert",
		Location:   "New York, NY",
		ProfileURL: "https://linkedin.com/in/emma-thompson-frontend",
		Experience: []candidate.Experience{
			{Title: "Frontend Architect", Company: "Figma", Start: "2022-01", End: "present", Description: "Editor performance and the design system"},
			{Title: "Senior Frontend Engineer", Company: "Shopify", Start: "2018-04", End: "2021-12", Description: "Checkout UI platform"},
			{Title: "Frontend Engineer", Company: "Etsy", Start: "2015-09", End: "2018-03", Description: "Seller tools"},
		},
		Education: []candidate.Education{
			{Degree: "BA Computer Science", School: "NYU", Year: 2015},
		},
		Skills: []string{"JavaScript", "TypeScript", "React", "GraphQL", "CSS", "Node.js"},
		GitHub: candidate.GitHubStats{
			Login: "emmathompson", PublicRepos: 67, Followers: 2300, Stars: 2750,
			Languages: []string{"TypeScript", "JavaScript"},
		},
		Microblog: candidate.MicroblogStats{Handle: "emmabuilds", Followers: 11200, Posts: 3400, Bio: "Frontend architect. React performance."},
		Website:   candidate.WebsiteMeta{URL: "https://emmathompson.dev", SiteTitle: "Emma Thompson", HasBlog: true, HasPortfolio: true, Topics: []string{"react", "typescript", "design systems"}},
	},
	{
		Name:       "David Park",
		Headline:   "DevOps Engineer at Netflix • Kubernetes & Cloud Expert",
		Location:   "Los Angeles, CA",
		ProfileURL: "https://linkedin.com/in/david-park-devops",
		Experience: []candidate.Experience{
			{Title: "DevOps Engineer", Company: "Netflix", Start: "2020-10", End: "present", Description: "Multi-region delivery infrastructure"},
			{Title: "Site Reliability Engineer", Company: "Snap", Start: "2017-05", End: "2020-09", Description: "Kubernetes platform"},
		},
		Education: []candidate.Education{
			{Degree: "BS Information Systems", School: "UCLA", Year: 2016},
		},
		Skills: []string{"Kubernetes", "Docker", "Terraform", "AWS", "Go", "Python", "CI/CD"},
		GitHub: candidate.GitHubStats{
			Login: "dpark-ops", PublicRepos: 29, Followers: 310, Stars: 530,
			Languages: []string{"Go", "HCL"},
		},
		Microblog: candidate.MicroblogStats{Handle: "dpark_ops", Followers: 1900, Posts: 980, Bio: "SRE/DevOps. Kubernetes all the way down."},
		Website:   candidate.WebsiteMeta{URL: "https://davidpark.cloud", SiteTitle: "David Park", HasBlog: true, Topics: []string{"kubernetes", "sre"}},
	},
}

// demoMatches selects profiles relevant to the job deterministically: a
// profile qualifies when it shares a skill with the required set, or when the
// job names no required skills at all.
func demoMatches(job *candidate.JobSpec) []demoProfile {
	if len(job.RequiredSkills) == 0 {
		return demoProfiles
	}

	want := make(map[string]bool, len(job.RequiredSkills))
	for _, s := range job.RequiredSkills {
		want[strings.ToLower(strings.TrimSpace(s))] = true
	}

	out := make([]demoProfile, 0, len(demoProfiles))
	for _, p := range demoProfiles {
		for _, s := range p.Skills {
			if want[strings.ToLower(s)] {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// demoRecords renders the matching profiles as one source's view. Records are
// tagged synthetic; source id and fetched_at behave exactly as in live mode.
func demoRecords(sourceID string, job *candidate.JobSpec) []candidate.RawRecord {
	now := time.Now().UTC()
	matches := demoMatches(job)
	records := make([]candidate.RawRecord, 0, len(matches))

	for _, p := range matches {
		rec := candidate.RawRecord{
			SourceID:  sourceID,
			FetchedAt: now,
			Synthetic: true,
		}

		switch sourceID {
		case "linkedin":
			rec.Profile = candidate.RawProfile{
				Name:       p.Name,
				Headline:   p.Headline,
				Location:   p.Location,
				ProfileURL: p.ProfileURL,
				Experience: p.Experience,
				Education:  p.Education,
				Skills:     p.Skills,
			}
		case "github":
			gh := p.GitHub
			rec.Profile = candidate.RawProfile{
				Name:       p.Name,
				Location:   p.Location,
				ProfileURL: p.ProfileURL,
				Skills:     gh.Languages,
				GitHub:     &gh,
			}
		case "microblog":
			mb := p.Microblog
			rec.Profile = candidate.RawProfile{
				Name:       p.Name,
				Location:   p.Location,
				ProfileURL: p.ProfileURL,
				Snippet:    mb.Bio,
				Microblog:  &mb,
			}
		case "website":
			site := p.Website
			rec.Profile = candidate.RawProfile{
				Name:       p.Name,
				ProfileURL: p.ProfileURL,
				Skills:     site.Topics,
				Website:    &site,
			}
		default:
			rec.Profile = candidate.RawProfile{Name: p.Name, ProfileURL: p.ProfileURL}
		}

		records = append(records, rec)
	}

	return records
}
