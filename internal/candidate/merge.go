package candidate

import (
	"sort"
	"strings"
)

// Merge groups candidates by identity key and unions multi-source data for
// the same person. It is idempotent: merging an already-merged set only
// recomputes completeness. Output order is deterministic (by identity key).
func Merge(candidates []*Candidate) []*Candidate {
	groups := make(map[string][]*Candidate)
	keys := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, seen := groups[c.IdentityKey]; !seen {
			keys = append(keys, c.IdentityKey)
		}
		groups[c.IdentityKey] = append(groups[c.IdentityKey], c)
	}

	sort.Strings(keys)

	merged := make([]*Candidate, 0, len(keys))
	for _, key := range keys {
		merged = append(merged, mergeGroup(groups[key]))
	}
	return merged
}

func mergeGroup(group []*Candidate) *Candidate {
	// The most complete record is the base; equal completeness falls back to
	// identity order of appearance for stability.
	base := group[0]
	for _, c := range group[1:] {
		if c.Completeness > base.Completeness {
			base = c
		}
	}

	out := &Candidate{
		IdentityKey: base.IdentityKey,
		Name:        base.Name,
		Headline:    base.Headline,
		Title:       base.Title,
		Company:     base.Company,
		Location:    base.Location,
		ProfileURL:  base.ProfileURL,
		Experience:  cloneExperience(base.Experience),
		Education:   cloneEducation(base.Education),
		Skills:      append([]string(nil), base.Skills...),
		Sources:     map[string]Enrichment{},
	}

	for _, c := range group {
		fillScalars(out, c)
		out.Experience = unionExperience(out.Experience, c.Experience)
		out.Education = unionEducation(out.Education, c.Education)
		out.Skills = unionSkills(out.Skills, c.Skills)
		for sourceID, e := range c.Sources {
			if existing, ok := out.Sources[sourceID]; !ok || e.FetchedAt.After(existing.FetchedAt) {
				out.Sources[sourceID] = e
			}
		}
	}

	out.Completeness = Completeness(out)
	return out
}

// fillScalars fills still-empty scalar fields from another record of the same
// person. The base record always wins when it has a value.
func fillScalars(dst, src *Candidate) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Headline == "" {
		dst.Headline = src.Headline
		dst.Title = src.Title
		dst.Company = src.Company
	}
	if dst.Location == "" {
		dst.Location = src.Location
	}
	if dst.ProfileURL == "" {
		dst.ProfileURL = src.ProfileURL
	}
}

func experienceKey(e Experience) string {
	return strings.ToLower(e.Company) + "\x00" + strings.ToLower(e.Title) + "\x00" + e.Start
}

func unionExperience(dst, src []Experience) []Experience {
	index := make(map[string]int, len(dst))
	for i, e := range dst {
		index[experienceKey(e)] = i
	}
	for _, e := range src {
		if i, ok := index[experienceKey(e)]; ok {
			if len(e.Description) > len(dst[i].Description) {
				dst[i].Description = e.Description
			}
			if dst[i].End == "" {
				dst[i].End = e.End
			}
			continue
		}
		index[experienceKey(e)] = len(dst)
		dst = append(dst, e)
	}
	sort.SliceStable(dst, func(i, j int) bool {
		if dst[i].Start != dst[j].Start {
			return dst[i].Start > dst[j].Start
		}
		return experienceKey(dst[i]) < experienceKey(dst[j])
	})
	return dst
}

func educationKey(e Education) string {
	return strings.ToLower(e.School) + "\x00" + strings.ToLower(e.Degree) + "\x00" + itoa(e.Year)
}

func unionEducation(dst, src []Education) []Education {
	index := make(map[string]bool, len(dst))
	for _, e := range dst {
		index[educationKey(e)] = true
	}
	for _, e := range src {
		if !index[educationKey(e)] {
			index[educationKey(e)] = true
			dst = append(dst, e)
		}
	}
	sort.SliceStable(dst, func(i, j int) bool {
		if dst[i].Year != dst[j].Year {
			return dst[i].Year > dst[j].Year
		}
		return educationKey(dst[i]) < educationKey(dst[j])
	})
	return dst
}

func unionSkills(dst, src []string) []string {
	seen := make(map[string]bool, len(dst)+len(src))
	out := make([]string, 0, len(dst)+len(src))
	for _, s := range dst {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range src {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	digits := [8]byte{}
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}
