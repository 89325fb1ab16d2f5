package credibility

import (
	"testing"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		wantTier  Tier
		wantScore float64
	}{
		{
			name:      "sec filing url",
			source:    "https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany",
			wantTier:  TierOfficial,
			wantScore: 1.00,
		},
		{
			name:      "investor relations wildcard",
			source:    "https://investor.apple.com/investor-relations",
			wantTier:  TierOfficial,
			wantScore: 0.98,
		},
		{
			name:      "ir subdomain wildcard",
			source:    "https://ir.tesla.com/press",
			wantTier:  TierOfficial,
			wantScore: 0.98,
		},
		{
			name:      "premium press",
			source:    "https://www.reuters.com/markets/us/some-article",
			wantTier:  TierPremiumPress,
			wantScore: 0.93,
		},
		{
			name:      "mainstream press subdomain",
			source:    "https://finance.yahoo.com/quote/AAPL",
			wantTier:  TierMainstreamPress,
			wantScore: 0.80,
		},
		{
			name:      "aggregator",
			source:    "https://seekingalpha.com/article/12345",
			wantTier:  TierAggregator,
			wantScore: 0.68,
		},
		{
			name:      "social",
			source:    "https://www.reddit.com/r/stocks/comments/abc",
			wantTier:  TierSocial,
			wantScore: 0.35,
		},
		{
			name:      "bare domain without scheme",
			source:    "bloomberg.com",
			wantTier:  TierPremiumPress,
			wantScore: 0.94,
		},
		{
			name:      "uppercase input",
			source:    "HTTPS://WWW.WSJ.COM/articles/xyz",
			wantTier:  TierPremiumPress,
			wantScore: 0.92,
		},
		{
			name:      "unknown domain",
			source:    "https://randomblog.example.net/post",
			wantTier:  TierUnknown,
			wantScore: UnknownScore,
		},
		{
			name:      "empty source",
			source:    "",
			wantTier:  TierUnknown,
			wantScore: UnknownScore,
		},
		{
			name:      "wildcard requires middle segment",
			source:    "https://investor.com",
			wantTier:  TierUnknown,
			wantScore: UnknownScore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, score := Score(tt.source)
			if tier != tt.wantTier {
				t.Errorf("Score(%q) tier = %v, want %v", tt.source, tier, tt.wantTier)
			}
			if score != tt.wantScore {
				t.Errorf("Score(%q) score = %v, want %v", tt.source, score, tt.wantScore)
			}
		})
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"https://www.sec.gov/path", "www.sec.gov"},
		{"http://cnbc.com:8080/video", "cnbc.com"},
		{"reuters.com", "reuters.com"},
		{"https://finance.yahoo.com?p=TSLA", "finance.yahoo.com"},
		{"  Bloomberg.com  ", "bloomberg.com"},
	}

	for _, tt := range tests {
		if got := extractDomain(tt.source); got != tt.want {
			t.Errorf("extractDomain(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}
