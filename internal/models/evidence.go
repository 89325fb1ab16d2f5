package models

// Explanation quality labels, best to worst.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityPoor      = "poor"
)

// RootCauseUndetermined is the sentinel root cause when no explanation holds.
const RootCauseUndetermined = "Unable to determine root cause"

// EvidenceItem is one scored unit of retrieved information: a document
// excerpt or an AI-synthesized summary. All scores are in [0,1].
type EvidenceItem struct {
	Content           string  `json:"content"`
	SourceURL         string  `json:"source_url"`
	SourceCredibility float64 `json:"source_credibility"`
	RelevanceScore    float64 `json:"relevance_score"`
	SpecificityScore  float64 `json:"specificity_score"`
}

// Weight is the ranking key for evidence: credibility times relevance.
func (e EvidenceItem) Weight() float64 {
	return e.SourceCredibility * e.RelevanceScore
}

// Verdict is the structured synthesis result returned by the generative
// model (or computed deterministically when synthesis fails).
type Verdict struct {
	ExplanationFound   bool     `json:"explanation_found"`
	ExplanationQuality string   `json:"explanation_quality"`
	RootCause          string   `json:"root_cause"`
	Confidence         float64  `json:"confidence"`
	Reasoning          string   `json:"reasoning"`
	MissingInfo        []string `json:"missing_info"`
}

// EvidenceEvaluation is the per-iteration verdict over all scored evidence.
// Immutable once produced; fed back into the next query-generation round
// when the investigation continues.
type EvidenceEvaluation struct {
	EvidenceItems      []EvidenceItem
	OverallCredibility float64
	OverallRelevance   float64
	ExplanationFound   bool
	ExplanationQuality string
	RootCause          string
	Confidence         float64
	Reasoning          string
	MissingInfo        []string
}
