package scoring

// Built-in reference sets, used when the configuration does not override
// them. All matching is lowercase substring.

var defaultEliteSchools = []string{
	"mit", "massachusetts institute of technology", "stanford", "harvard",
	"caltech", "berkeley", "uc berkeley", "cmu", "carnegie mellon", "cornell",
	"princeton", "yale", "columbia", "university of washington", "georgia tech",
	"oxford", "cambridge", "eth zurich", "iit",
}

var defaultStrongSchools = []string{
	"ucla", "usc", "ucsd", "ucsb", "university of michigan",
	"university of illinois", "purdue", "penn state", "virginia tech",
	"texas a&m", "rice university", "duke", "northwestern", "johns hopkins",
	"university of texas", "nyu", "university of pennsylvania", "brown",
	"dartmouth", "vanderbilt", "university of waterloo",
}

var defaultTopTierCompanies = []string{
	"google", "microsoft", "apple", "meta", "facebook", "amazon", "netflix",
	"tesla", "nvidia", "openai", "anthropic", "deepmind", "spacex", "uber",
	"airbnb", "stripe",
}

var defaultMidTierCompanies = []string{
	"twitter", "linkedin", "salesforce", "adobe", "intel", "oracle", "ibm",
	"cisco", "vmware", "databricks", "snowflake", "palantir", "twilio",
	"zoom", "dropbox", "slack", "shopify", "square", "figma", "snap",
	"spotify", "atlassian", "cloudflare", "datadog",
}
