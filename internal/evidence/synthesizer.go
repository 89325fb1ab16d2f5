package evidence

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"stocksleuth/internal/logger"
	"stocksleuth/internal/models"
)

// SynthesizerConfig holds the thresholds used when the model cannot
// produce a structured verdict and the synthesizer falls back to
// aggregate-score heuristics.
type SynthesizerConfig struct {
	FallbackCredibilityFloor float64
	FallbackRelevanceFloor   float64
	FallbackConfidenceCap    float64
	FallbackNotFoundScale    float64
	FallbackConfidenceFloor  float64
	TopEvidenceCount         int
}

// DefaultSynthesizerConfig returns the standard fallback thresholds.
func DefaultSynthesizerConfig() SynthesizerConfig {
	return SynthesizerConfig{
		FallbackCredibilityFloor: 0.65,
		FallbackRelevanceFloor:   0.55,
		FallbackConfidenceCap:    0.85,
		FallbackNotFoundScale:    0.6,
		FallbackConfidenceFloor:  0.25,
		TopEvidenceCount:         5,
	}
}

// Synthesizer combines scored evidence into a verdict about the anomaly's
// root cause.
type Synthesizer struct {
	llm StructuredGenerator
	cfg SynthesizerConfig
}

// NewSynthesizer creates a Synthesizer with the given fallback config.
func NewSynthesizer(llm StructuredGenerator, cfg SynthesizerConfig) *Synthesizer {
	return &Synthesizer{llm: llm, cfg: cfg}
}

// OverallCredibility is the relevance-weighted mean of source credibility.
// Returns 0 when total relevance weight is 0.
func OverallCredibility(items []models.EvidenceItem) float64 {
	var weighted, weight float64
	for _, it := range items {
		weighted += it.SourceCredibility * it.RelevanceScore
		weight += it.RelevanceScore
	}
	if weight == 0 {
		return 0
	}
	return weighted / weight
}

// OverallRelevance is the unweighted mean relevance.
func OverallRelevance(items []models.EvidenceItem) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, it := range items {
		sum += it.RelevanceScore
	}
	return sum / float64(len(items))
}

// RankByWeight returns items sorted by credibility times relevance,
// strongest first. The input slice is not modified.
func RankByWeight(items []models.EvidenceItem) []models.EvidenceItem {
	ranked := make([]models.EvidenceItem, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Weight() > ranked[j].Weight()
	})
	return ranked
}

// Evaluate produces an evaluation from scored evidence. It never returns
// an error: an empty item set yields a fixed empty evaluation, and a model
// failure yields a heuristic fallback built from aggregate scores.
func (s *Synthesizer) Evaluate(ctx context.Context, anomaly *models.AnomalyEvent, items []models.EvidenceItem) *models.EvidenceEvaluation {
	if len(items) == 0 {
		return emptyEvaluation(items)
	}

	cred := OverallCredibility(items)
	rel := OverallRelevance(items)

	verdict, err := s.synthesizeVerdict(ctx, anomaly, items)
	if err != nil {
		logger.Warn("Verdict synthesis failed, using score-based fallback: %v", err)
		verdict = s.fallbackVerdict(cred, rel)
	}

	return &models.EvidenceEvaluation{
		EvidenceItems:      items,
		OverallCredibility: cred,
		OverallRelevance:   rel,
		ExplanationFound:   verdict.ExplanationFound,
		ExplanationQuality: normalizeQuality(verdict.ExplanationQuality),
		RootCause:          verdict.RootCause,
		Confidence:         clamp01(verdict.Confidence),
		Reasoning:          verdict.Reasoning,
		MissingInfo:        verdict.MissingInfo,
	}
}

func (s *Synthesizer) synthesizeVerdict(ctx context.Context, anomaly *models.AnomalyEvent, items []models.EvidenceItem) (*models.Verdict, error) {
	top := RankByWeight(items)
	if len(top) > s.cfg.TopEvidenceCount {
		top = top[:s.cfg.TopEvidenceCount]
	}

	var sb strings.Builder
	for i, it := range top {
		fmt.Fprintf(&sb, "%d. [credibility %.2f, relevance %.2f] (%s) %s\n",
			i+1, it.SourceCredibility, it.RelevanceScore, it.SourceURL, it.Content)
	}

	prompt := fmt.Sprintf(`You are a financial analyst determining why a stock moved abnormally.

Anomaly: %s

Overall source credibility: %.2f
Overall relevance: %.2f

Top evidence, strongest first:
%s
Decide whether the evidence explains the anomaly. Respond with JSON:
{
  "explanation_found": bool,
  "explanation_quality": "excellent" | "good" | "fair" | "poor",
  "root_cause": "one-sentence cause, or empty if undetermined",
  "confidence": 0.0 to 1.0,
  "reasoning": "brief justification",
  "missing_info": ["facts that would raise confidence"]
}`, anomaly.Describe(), OverallCredibility(items), OverallRelevance(items), sb.String())

	var verdict models.Verdict
	if err := s.llm.GenerateJSON(ctx, prompt, &verdict); err != nil {
		return nil, err
	}
	if verdict.RootCause == "" {
		verdict.RootCause = models.RootCauseUndetermined
	}
	return &verdict, nil
}

// fallbackVerdict derives a verdict from aggregate scores alone when the
// model is unavailable.
func (s *Synthesizer) fallbackVerdict(cred, rel float64) *models.Verdict {
	found := cred > s.cfg.FallbackCredibilityFloor && rel > s.cfg.FallbackRelevanceFloor

	confidence := 0.5*cred + 0.5*rel
	if confidence > s.cfg.FallbackConfidenceCap {
		confidence = s.cfg.FallbackConfidenceCap
	}
	if !found {
		confidence *= s.cfg.FallbackNotFoundScale
		if confidence < s.cfg.FallbackConfidenceFloor {
			confidence = s.cfg.FallbackConfidenceFloor
		}
	}

	quality := models.QualityPoor
	if found {
		quality = models.QualityFair
	}

	return &models.Verdict{
		ExplanationFound:   found,
		ExplanationQuality: quality,
		RootCause:          models.RootCauseUndetermined,
		Confidence:         confidence,
		Reasoning:          "Verdict derived from aggregate evidence scores; model synthesis unavailable",
		MissingInfo:        []string{"Structured verdict from analysis model"},
	}
}

func emptyEvaluation(items []models.EvidenceItem) *models.EvidenceEvaluation {
	return &models.EvidenceEvaluation{
		EvidenceItems:      items,
		OverallCredibility: 0,
		OverallRelevance:   0,
		ExplanationFound:   false,
		ExplanationQuality: models.QualityPoor,
		RootCause:          models.RootCauseUndetermined,
		Confidence:         0,
		Reasoning:          "No evidence found in search results",
		MissingInfo:        []string{"Any relevant search results"},
	}
}

func normalizeQuality(q string) string {
	switch strings.ToLower(strings.TrimSpace(q)) {
	case models.QualityExcellent:
		return models.QualityExcellent
	case models.QualityGood:
		return models.QualityGood
	case models.QualityFair:
		return models.QualityFair
	default:
		return models.QualityPoor
	}
}

// Evaluator bundles fragment extraction, scoring, and synthesis behind a
// single call used by the investigation controller.
type Evaluator struct {
	scorer      *Scorer
	synthesizer *Synthesizer
}

// NewEvaluator wires a scorer and synthesizer together.
func NewEvaluator(scorer *Scorer, synthesizer *Synthesizer) *Evaluator {
	return &Evaluator{scorer: scorer, synthesizer: synthesizer}
}

// Evaluate scores all evidence in the search results and synthesizes a
// verdict. Never returns nil.
func (e *Evaluator) Evaluate(ctx context.Context, anomaly *models.AnomalyEvent, results map[string]*models.SearchResponse) *models.EvidenceEvaluation {
	fragments := ExtractFragments(results)
	items := e.scorer.ScoreAll(ctx, anomaly, fragments)
	return e.synthesizer.Evaluate(ctx, anomaly, items)
}
