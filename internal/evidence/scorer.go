// Package evidence turns raw search output into scored evidence items and
// synthesizes a verdict about what caused an anomaly.
package evidence

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"stocksleuth/internal/credibility"
	"stocksleuth/internal/logger"
	"stocksleuth/internal/models"
)

// Generator produces free-form text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StructuredGenerator produces JSON decoded into out.
type StructuredGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, out any) error
}

// AISynthesisSource marks evidence fragments that came from the search
// provider's own answer synthesis rather than a retrieved document.
const AISynthesisSource = "tavily_ai_synthesis"

// aiSynthesisCredibility is the fixed credibility for synthesized answers.
// They aggregate multiple sources so they rate above an unknown domain but
// below premium press.
const aiSynthesisCredibility = 0.85

const (
	maxExcerptLen       = 500
	maxPromptContentLen = 300
	maxDocsPerQuery     = 3
	defaultScore        = 0.5
)

// Fragment is a unit of evidence before scoring.
type Fragment struct {
	Content string
	Source  string
	IsAI    bool
}

// ExtractFragments flattens search responses into scoreable fragments.
// Each query contributes its AI answer, when present, plus up to three
// retrieved documents. Queries are processed in sorted order so output is
// deterministic.
func ExtractFragments(results map[string]*models.SearchResponse) []Fragment {
	queries := make([]string, 0, len(results))
	for q := range results {
		queries = append(queries, q)
	}
	sort.Strings(queries)

	var fragments []Fragment
	for _, q := range queries {
		resp := results[q]
		if resp == nil {
			continue
		}
		if resp.Answer != "" {
			fragments = append(fragments, Fragment{
				Content: resp.Answer,
				Source:  AISynthesisSource,
				IsAI:    true,
			})
		}
		for i, r := range resp.Results {
			if i >= maxDocsPerQuery {
				break
			}
			content := r.Content
			if r.Title != "" {
				content = r.Title + ": " + r.Content
			}
			if content == "" {
				continue
			}
			fragments = append(fragments, Fragment{
				Content: content,
				Source:  r.URL,
			})
		}
	}
	return fragments
}

// Scorer assigns credibility, relevance, and specificity to fragments.
type Scorer struct {
	llm Generator
}

// NewScorer creates a Scorer backed by the given text generator.
func NewScorer(llm Generator) *Scorer {
	return &Scorer{llm: llm}
}

// ScoreFragment produces an evidence item for one fragment. Credibility
// comes from the source domain table; relevance and specificity come from
// the model. A model failure degrades to neutral 0.5 scores instead of
// dropping the fragment.
func (s *Scorer) ScoreFragment(ctx context.Context, anomaly *models.AnomalyEvent, frag Fragment) models.EvidenceItem {
	cred := aiSynthesisCredibility
	if !frag.IsAI {
		_, cred = credibility.Score(frag.Source)
	}

	relevance, specificity := s.scoreRelevance(ctx, anomaly, frag.Content)

	return models.EvidenceItem{
		Content:           truncate(frag.Content, maxExcerptLen),
		SourceURL:         frag.Source,
		SourceCredibility: clamp01(cred),
		RelevanceScore:    clamp01(relevance),
		SpecificityScore:  clamp01(specificity),
	}
}

// ScoreAll scores every fragment in order.
func (s *Scorer) ScoreAll(ctx context.Context, anomaly *models.AnomalyEvent, fragments []Fragment) []models.EvidenceItem {
	items := make([]models.EvidenceItem, 0, len(fragments))
	for _, f := range fragments {
		items = append(items, s.ScoreFragment(ctx, anomaly, f))
	}
	return items
}

func (s *Scorer) scoreRelevance(ctx context.Context, anomaly *models.AnomalyEvent, content string) (float64, float64) {
	prompt := fmt.Sprintf(`Rate this evidence for explaining a stock anomaly.

Anomaly: %s

Evidence: %s

Rate two dimensions from 0.0 to 1.0:
- relevance: how directly this evidence addresses the anomaly
- specificity: how concrete the evidence is (named events, dates, figures)

Respond with exactly two decimals separated by a comma, e.g. "0.85,0.70".`,
		anomaly.Describe(), truncate(content, maxPromptContentLen))

	out, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		logger.Warn("Evidence scoring failed, using neutral scores: %v", err)
		return defaultScore, defaultScore
	}

	relevance, specificity, ok := parseScorePair(out)
	if !ok {
		logger.Warn("Unparseable evidence scores %q, using neutral scores", out)
		return defaultScore, defaultScore
	}
	return relevance, specificity
}

// parseScorePair extracts "relevance,specificity" from model output,
// tolerating surrounding prose on other lines.
func parseScorePair(out string) (float64, float64, bool) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.Trim(strings.TrimSpace(line), `"`)
		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			continue
		}
		rel, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		spec, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		// ParseFloat accepts "NaN" and "Inf"; neither clamps to a
		// usable score, so treat them as unparseable.
		if math.IsNaN(rel) || math.IsInf(rel, 0) || math.IsNaN(spec) || math.IsInf(spec, 0) {
			continue
		}
		return rel, spec, true
	}
	return 0, 0, false
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
