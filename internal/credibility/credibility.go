// Package credibility rates evidence sources by the trustworthiness of
// their publishing domain.
package credibility

import (
	"strings"
)

// Tier classifies a source domain.
type Tier string

const (
	TierOfficial        Tier = "official"
	TierPremiumPress    Tier = "premium_press"
	TierMainstreamPress Tier = "mainstream_press"
	TierAggregator      Tier = "aggregator"
	TierSocial          Tier = "social"
	TierUnknown         Tier = "unknown"
)

// UnknownScore is assigned to any source whose domain matches no entry.
const UnknownScore = 0.40

type entry struct {
	pattern string
	tier    Tier
	score   float64
}

// Ordered from most to least credible. The first matching entry wins, so
// more specific patterns must precede broader ones.
var table = []entry{
	{"sec.gov", TierOfficial, 1.00},
	{"investor.*.com", TierOfficial, 0.98},
	{"ir.*.com", TierOfficial, 0.98},

	{"bloomberg.com", TierPremiumPress, 0.94},
	{"reuters.com", TierPremiumPress, 0.93},
	{"wsj.com", TierPremiumPress, 0.92},
	{"ft.com", TierPremiumPress, 0.91},
	{"barrons.com", TierPremiumPress, 0.90},

	{"cnbc.com", TierMainstreamPress, 0.84},
	{"marketwatch.com", TierMainstreamPress, 0.82},
	{"finance.yahoo.com", TierMainstreamPress, 0.80},
	{"investopedia.com", TierMainstreamPress, 0.78},
	{"forbes.com", TierMainstreamPress, 0.75},

	{"seekingalpha.com", TierAggregator, 0.68},
	{"fool.com", TierAggregator, 0.65},
	{"benzinga.com", TierAggregator, 0.62},
	{"zacks.com", TierAggregator, 0.60},

	{"twitter.com", TierSocial, 0.40},
	{"reddit.com", TierSocial, 0.35},
	{"medium.com", TierSocial, 0.30},
}

// Score rates a source URL or bare domain. Unrecognized sources get
// TierUnknown with UnknownScore rather than an error.
func Score(source string) (Tier, float64) {
	domain := extractDomain(source)
	if domain == "" {
		return TierUnknown, UnknownScore
	}
	for _, e := range table {
		if matches(e.pattern, domain) {
			return e.tier, e.score
		}
	}
	return TierUnknown, UnknownScore
}

// extractDomain pulls the lowercased host portion out of a URL, tolerating
// bare domains and missing schemes.
func extractDomain(source string) string {
	s := strings.TrimSpace(strings.ToLower(source))
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	return s
}

// matches reports whether domain satisfies pattern. A pattern may contain
// one "*" segment wildcard; the literal segments around it must appear in
// the domain in order.
func matches(pattern, domain string) bool {
	if !strings.Contains(pattern, "*") {
		return domain == pattern || strings.HasSuffix(domain, "."+pattern)
	}
	parts := strings.SplitN(pattern, "*", 2)
	prefix, suffix := parts[0], parts[1]
	if !strings.HasPrefix(domain, prefix) {
		return false
	}
	rest := domain[len(prefix):]
	return strings.HasSuffix(rest, suffix) && len(rest) > len(suffix)
}
