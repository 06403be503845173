package outreach

import "strings"

// Class is the structural template family used for a candidate.
type Class string

const (
	ClassExecutive  Class = "executive"
	ClassResearcher Class = "researcher"
	ClassStartup    Class = "startup"
	ClassDefault    Class = "default"
)

// Deterministic mapping from title/headline tokens to a template class.
// Earlier rows win.
var classTokens = []struct {
	class  Class
	tokens []string
}{
	{ClassExecutive, []string{"director", "vp", "vice president", "head of", "chief", "cto", "ceo", "president"}},
	{ClassResearcher, []string{"research", "scientist", "phd", "researcher"}},
	{ClassStartup, []string{"founder", "startup", "entrepreneur"}},
}

// ClassFor selects the template class from the candidate's most recent title
// and headline.
func ClassFor(recentTitle, headline string) Class {
	text := strings.ToLower(recentTitle + " " + headline)
	for _, row := range classTokens {
		for _, token := range row.tokens {
			if strings.Contains(text, token) {
				return row.class
			}
		}
	}
	return ClassDefault
}

// Template bodies. Placeholders are substituted literally, so rendering the
// same context always produces the same bytes.
var templates = map[Class]string{
	ClassDefault: `Hi {first_name},

I came across your profile and was impressed by your experience as {recent_title} at {recent_company}. We're currently hiring a {job_title} at {job_company}, and your work with {top_skill} stood out.

{job_highlights}

Would you be open to a brief conversation about this opportunity?

Best regards,
{recruiter_name}`,

	ClassExecutive: `Hi {first_name},

Your leadership experience as {recent_title} at {recent_company} caught my attention, particularly your work with {top_skill}.

I'm reaching out about a {job_title} opportunity at {job_company}. They're seeking someone with your caliber of experience to shape the direction of the team.

{job_highlights}

Would you be interested in learning more?

Best,
{recruiter_name}`,

	ClassResearcher: `Hi {first_name},

I came across your research background at {recent_company} and was particularly impressed by your work with {top_skill}.

I wanted to share a {job_title} opportunity at {job_company} that might align with your research interests.

{job_highlights}

Would you be open to a discussion about this opportunity?

Best regards,
{recruiter_name}`,

	ClassStartup: `Hi {first_name},

I noticed your entrepreneurial background at {recent_company} and thought you might be interested in an opportunity at {job_company}.

They're looking for a talented {job_title} to join a fast-growing team, and your experience with {top_skill} would be a great fit.

{job_highlights}

Interested in learning more?

Cheers,
{recruiter_name}`,
}

// render substitutes the context into the class template and collapses the
// blank block left by empty highlights.
func render(class Class, ctx *messageContext) string {
	body := templates[class]

	replacer := strings.NewReplacer(
		"{first_name}", ctx.FirstName,
		"{recent_title}", ctx.RecentTitle,
		"{recent_company}", ctx.RecentCompany,
		"{top_skill}", ctx.TopSkill,
		"{job_title}", ctx.JobTitle,
		"{job_company}", ctx.JobCompany,
		"{job_highlights}", ctx.Highlights,
		"{recruiter_name}", ctx.RecruiterName,
	)
	body = replacer.Replace(body)

	for strings.Contains(body, "\n\n\n") {
		body = strings.ReplaceAll(body, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(body)
}
