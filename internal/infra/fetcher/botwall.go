package fetcher

import "strings"

// Classification is the bot-protection verdict over a fetch outcome.
// Blocked is an expected, branch-worthy result that routes the candidate to
// the fallback orchestrator; it is never modeled as an error.
type Classification int

const (
	// Usable means the body can be handed to the title parser.
	Usable Classification = iota
	// Blocked means the response is a challenge/WAF page.
	Blocked
)

// blockStatusCodes are HTTP statuses that challenge systems answer with.
// 202 appears in queue-style interstitials, 403 and 503 in Cloudflare-style
// challenges.
var blockStatusCodes = map[int]bool{
	202: true,
	403: true,
	503: true,
}

// blockPhrases are case-insensitive body signatures of challenge pages.
var blockPhrases = []string{
	"just a moment",
	"checking your browser",
	"enable javascript and cookies",
	"attention required",
}

// blockMarkers are case-sensitive identifiers of specific challenge
// platforms and WAF cookies.
var blockMarkers = []string{
	"cf_chl_",
	"cf-browser-verification",
	"_Incapsula_Resource",
	"awswaf",
}

// Classify decides whether a fetch outcome is a bot-protection page.
// A non-empty body with an ordinary 2xx status and no signatures is Usable.
func Classify(o *Outcome) Classification {
	if o == nil {
		return Blocked
	}

	if blockStatusCodes[o.StatusCode] {
		return Blocked
	}

	body := string(o.Body)
	lower := strings.ToLower(body)

	for _, phrase := range blockPhrases {
		if strings.Contains(lower, phrase) {
			return Blocked
		}
	}
	for _, marker := range blockMarkers {
		if strings.Contains(body, marker) {
			return Blocked
		}
	}
	if strings.Contains(lower, "cloudflare") && strings.Contains(lower, "ray id") {
		return Blocked
	}

	return Usable
}
