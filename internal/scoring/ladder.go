package scoring

import "strings"

// The seniority ladder maps title keywords to monotonic rank integers.
// Unknown titles rank 0 and are excluded from trajectory slopes.
//
//	intern=1 junior=2 mid=3 senior=4 staff=5 principal=6 lead=6
//	manager=7 director=8 vp=9 c-level=11
var ladderKeywords = []struct {
	keyword string
	level   int
}{
	{"chief", 11},
	{"cto", 11},
	{"ceo", 11},
	{"coo", 11},
	{"cio", 11},
	{"founder", 11},
	{"vice president", 9},
	{"president", 10},
	{"vp", 9},
	{"director", 8},
	{"head of", 7},
	{"manager", 7},
	{"principal", 6},
	{"lead", 6},
	{"staff", 5},
	{"senior", 4},
	{"sr.", 4},
	{"junior", 2},
	{"jr.", 2},
	{"associate", 2},
	{"intern", 1},
}

// midLevelRoles are titles that rank mid-level absent a seniority marker.
var midLevelRoles = []string{
	"engineer", "developer", "scientist", "researcher", "architect",
	"analyst", "designer", "consultant", "specialist",
}

// TitleLevel ranks a title on the seniority ladder. 0 means unknown.
func TitleLevel(title string) int {
	t := strings.ToLower(title)
	if t == "" {
		return 0
	}

	for _, entry := range ladderKeywords {
		if containsWord(t, entry.keyword) {
			return entry.level
		}
	}

	for _, role := range midLevelRoles {
		if strings.Contains(t, role) {
			return 3
		}
	}

	return 0
}

// functionBuckets classify titles for the trajectory breadth bonus.
var functionBuckets = map[string][]string{
	"engineering": {"engineer", "developer", "architect", "sre", "devops"},
	"research":    {"research", "scientist"},
	"data":        {"data", "analyst", "analytics"},
	"product":     {"product", "pm"},
	"design":      {"design", "ux", "ui"},
	"management":  {"manager", "director", "vp", "head of", "chief", "lead"},
}

// FunctionBucket assigns a title to a coarse function, or "other".
func FunctionBucket(title string) string {
	t := strings.ToLower(title)
	for _, bucket := range []string{"research", "data", "product", "design", "management", "engineering"} {
		for _, kw := range functionBuckets[bucket] {
			if strings.Contains(t, kw) {
				return bucket
			}
		}
	}
	return "other"
}

// containsWord matches a keyword on word boundaries so "vp" does not match
// inside "developer".
func containsWord(s, keyword string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], keyword)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(keyword)
		leftOK := start == 0 || !isWordChar(s[start-1])
		rightOK := end == len(s) || !isWordChar(s[end])
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
		if idx >= len(s) {
			return false
		}
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
