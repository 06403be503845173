package candidate

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrUnparseable marks a RawRecord that cannot be turned into a Candidate.
// The orchestrator reports it as a partial failure and drops the record.
var ErrUnparseable = errors.New("unparseable record")

// headline separators that introduce trailing descriptors ("React Expert",
// "Speaker", ...). They are only cut after the " at " split: a pipe or dash
// inside the title part stays ("Senior Python Developer | AI/ML Engineer at
// TechCorp" keeps the whole left side as the title).
var descriptorSeparators = []string{"•", "|", " - ", " – "}

// builtin alias table folded into every skill vocabulary.
var skillAliases = map[string]string{
	"golang":     "go",
	"js":         "javascript",
	"ts":         "typescript",
	"py":         "python",
	"k8s":        "kubernetes",
	"ml":         "machine learning",
	"ai":         "artificial intelligence",
	"nlp":        "natural language processing",
	"tf":         "tensorflow",
	"postgres":   "postgresql",
	"gcloud":     "gcp",
	"amazon web services": "aws",
}

// Normalizer converts RawRecords into canonical Candidates using a stable
// skill vocabulary.
type Normalizer struct {
	vocab map[string]string
}

// NewNormalizer builds a Normalizer. The vocabulary lists canonical skill
// tokens; free tokens outside it pass through lowercased.
func NewNormalizer(vocabulary []string) *Normalizer {
	vocab := make(map[string]string, len(vocabulary)+len(skillAliases))
	for alias, canonical := range skillAliases {
		vocab[alias] = canonical
	}
	for _, token := range vocabulary {
		canonical := strings.ToLower(strings.TrimSpace(token))
		if canonical != "" {
			vocab[canonical] = canonical
		}
	}
	return &Normalizer{vocab: vocab}
}

// Normalize converts one RawRecord into a Candidate. A record with neither a
// name nor a profile URL is unparseable.
func (n *Normalizer) Normalize(rec RawRecord) (*Candidate, error) {
	p := rec.Profile

	name := strings.TrimSpace(p.Name)
	canonicalURL := CanonicalURL(p.ProfileURL)
	if name == "" && canonicalURL == "" {
		return nil, fmt.Errorf("%w: no name and no profile url", ErrUnparseable)
	}

	title, company := SplitHeadline(p.Headline)

	c := &Candidate{
		Name:       name,
		Headline:   strings.TrimSpace(p.Headline),
		Title:      title,
		Company:    company,
		Location:   strings.TrimSpace(p.Location),
		ProfileURL: canonicalURL,
		Experience: cloneExperience(p.Experience),
		Education:  cloneEducation(p.Education),
		Skills:     n.Tokenize(p.Skills),
		Sources:    map[string]Enrichment{},
	}

	enrichment := Enrichment{
		FetchedAt: rec.FetchedAt,
		Synthetic: rec.Synthetic,
		GitHub:    p.GitHub,
		Microblog: p.Microblog,
		Website:   p.Website,
	}
	c.Sources[rec.SourceID] = enrichment

	c.IdentityKey = identityKey(canonicalURL, name, c.Location)
	c.Completeness = Completeness(c)

	return c, nil
}

// Tokenize lowercases, maps through the vocabulary, deduplicates and sorts
// skill tokens.
func (n *Normalizer) Tokenize(skills []string) []string {
	if len(skills) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		token := strings.ToLower(strings.TrimSpace(s))
		if token == "" {
			continue
		}
		if canonical, ok := n.vocab[token]; ok {
			token = canonical
		}
		if !seen[token] {
			seen[token] = true
			out = append(out, token)
		}
	}
	sort.Strings(out)
	return out
}

// SplitHeadline parses a headline into (title, company). " at " takes
// priority over the descriptor separators: when present, everything left of
// it is the title and the company is the right side with trailing
// descriptors stripped. Without an " at " the headline up to the first
// descriptor separator is the title and company is empty.
func SplitHeadline(headline string) (title, company string) {
	head := strings.TrimSpace(headline)
	if head == "" {
		return "", ""
	}

	lower := strings.ToLower(head)
	idx := strings.Index(lower, " at ")
	if idx < 0 {
		return stripDescriptors(head), ""
	}

	title = strings.TrimSpace(head[:idx])
	company = stripDescriptors(strings.TrimSpace(head[idx+len(" at "):]))
	// A company followed by a comma-separated descriptor keeps only the
	// company ("Google, Mountain View" -> "Google").
	if cut := strings.Index(company, ","); cut >= 0 {
		company = strings.TrimSpace(company[:cut])
	}

	return title, company
}

func stripDescriptors(s string) string {
	for _, sep := range descriptorSeparators {
		if idx := strings.Index(s, sep); idx >= 0 {
			s = strings.TrimSpace(s[:idx])
		}
	}
	return s
}

// CanonicalURL lowercases the scheme and host and strips query and fragment.
// Invalid or schemeless input canonicalizes to "".
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")

	return u.String()
}

// identityKey is the canonical profile URL when present, otherwise a stable
// hash over the lowercased name and the first non-empty location token.
func identityKey(canonicalURL, name, location string) string {
	if canonicalURL != "" {
		return canonicalURL
	}

	locToken := ""
	for _, tok := range strings.FieldsFunc(location, func(r rune) bool { return r == ',' || r == '/' }) {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			locToken = strings.ToLower(tok)
			break
		}
	}

	sum := sha256.Sum256([]byte(strings.ToLower(name) + "|" + locToken))
	return fmt.Sprintf("p:%x", sum[:8])
}

// completeness field weights. The expected set and its weighting sum to 1.
var completenessWeights = []struct {
	weight  float64
	present func(*Candidate) bool
}{
	{0.15, func(c *Candidate) bool { return c.Name != "" }},
	{0.15, func(c *Candidate) bool { return c.Headline != "" }},
	{0.10, func(c *Candidate) bool { return c.Location != "" }},
	{0.10, func(c *Candidate) bool { return c.ProfileURL != "" }},
	{0.20, func(c *Candidate) bool { return len(c.Experience) >= 1 }},
	{0.15, func(c *Candidate) bool { return len(c.Education) >= 1 }},
	{0.15, func(c *Candidate) bool { return len(c.Skills) >= 3 }},
}

// Completeness computes the weighted fraction of expected fields present.
func Completeness(c *Candidate) float64 {
	total := 0.0
	for _, fw := range completenessWeights {
		if fw.present(c) {
			total += fw.weight
		}
	}
	if total > 1 {
		total = 1
	}
	return total
}

func cloneExperience(in []Experience) []Experience {
	if len(in) == 0 {
		return nil
	}
	out := make([]Experience, len(in))
	copy(out, in)
	return out
}

func cloneEducation(in []Education) []Education {
	if len(in) == 0 {
		return nil
	}
	out := make([]Education, len(in))
	copy(out, in)
	return out
}
