package configuration

import "regexp"

type AuthRule struct {
	Path        string
	Method      string // empty means all methods
	RequireAuth bool   // true means require auth, false means exclude from auth
}

var AuthRulePrefixMatchPath = []AuthRule{
	{Path: "/figures/api/auth", Method: "*", RequireAuth: false},
	{Path: "/figures/api", Method: "*", RequireAuth: true},
}

var AuthRuleExactMatchPath = map[string][]AuthRule{}

// AudienceRule lists the token audiences accepted on matching routes. Routes
// without a rule only accept full access tokens.
type AudienceRule struct {
	ExactPath        string
	Pattern          *regexp.Regexp
	Method           string
	AllowedAudiences []string
}

var AuthAudienceRules = []AudienceRule{
	{
		Pattern:          regexp.MustCompile(`^/figures/api/(reports|site-daily-metrics|course-daily-metrics|general-site-metrics)(/.*)?$`),
		Method:           "GET",
		AllowedAudiences: []string{AudienceAccessToken, AudienceReadOnlyToken},
	},
}
