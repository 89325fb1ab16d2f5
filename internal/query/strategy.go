// Package query generates and refines web search queries for anomaly
// investigations, escalating strategy as iterations fail.
package query

import (
	"context"
	"fmt"
	"strings"

	"stocksleuth/internal/logger"
	"stocksleuth/internal/models"
)

// TextGenerator produces free-form text from a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// QueriesPerIteration is the exact number of queries each iteration runs.
const QueriesPerIteration = 3

// Selector picks a generation strategy by iteration number: direct
// reasoning first, expert personas second, then critique of the failed
// queries from there on.
type Selector struct {
	llm TextGenerator
}

// NewSelector creates a query Selector.
func NewSelector(llm TextGenerator) *Selector {
	return &Selector{llm: llm}
}

// Generate returns exactly QueriesPerIteration normalized queries for the
// given iteration. Model failures degrade to deterministic fallback
// queries, never to an empty set.
func (s *Selector) Generate(ctx context.Context, anomaly *models.AnomalyEvent, iteration int, previous []string, prevEval *models.EvidenceEvaluation) []string {
	var (
		raw []string
		err error
	)
	switch {
	case iteration <= 0:
		raw, err = s.chainOfThought(ctx, anomaly)
	case iteration == 1:
		raw, err = s.expertPerspectives(ctx, anomaly)
	default:
		raw, err = s.metaOptimize(ctx, anomaly, previous, prevEval)
	}
	if err != nil {
		logger.Warn("Query generation failed at iteration %d, using fallbacks: %v", iteration, err)
		return FallbackQueries(anomaly)
	}

	queries := Normalize(raw)
	return pad(queries, anomaly)
}

// pad trims to QueriesPerIteration or tops up with fallbacks that are not
// already present.
func pad(queries []string, anomaly *models.AnomalyEvent) []string {
	if len(queries) >= QueriesPerIteration {
		return queries[:QueriesPerIteration]
	}
	seen := make(map[string]bool, len(queries))
	for _, q := range queries {
		seen[q] = true
	}
	for _, fb := range FallbackQueries(anomaly) {
		if len(queries) >= QueriesPerIteration {
			break
		}
		if !seen[fb] {
			queries = append(queries, fb)
			seen[fb] = true
		}
	}
	return queries
}

// FallbackQueries returns deterministic queries covering the usual causes
// of large price moves.
func FallbackQueries(anomaly *models.AnomalyEvent) []string {
	tf := anomaly.Timeframe()
	return []string{
		fmt.Sprintf("%s earnings report %s", anomaly.Ticker, tf),
		fmt.Sprintf("%s SEC filing %s", anomaly.Ticker, tf),
		fmt.Sprintf("%s stock drop %s", anomaly.Ticker, tf),
	}
}

func (s *Selector) chainOfThought(ctx context.Context, anomaly *models.AnomalyEvent) ([]string, error) {
	prompt := fmt.Sprintf(`You are a financial research assistant. Generate web search queries to find out why a stock moved abnormally.

Think step by step about the most likely causes, then list the queries.

Example 1:
Anomaly: TSLA dropped 15.20%% to $180.00 with 5.1x volume
Reasoning: A drop this size with heavy volume usually follows earnings, a recall, or executive news.
QUERIES:
1. Tesla TSLA earnings miss January 2024
2. Tesla recall NHTSA investigation January 2024
3. Tesla executive departure announcement January 2024

Example 2:
Anomaly: MSFT surged 11.40%% to $420.00 with 3.8x volume
Reasoning: Surges follow earnings beats, large contracts, or product launches.
QUERIES:
1. Microsoft MSFT earnings beat quarterly results April 2024
2. Microsoft major contract announcement April 2024
3. Microsoft AI product launch stock reaction April 2024

Example 3:
Anomaly: NFLX dropped 12.70%% to $310.00 with 4.5x volume
Reasoning: Streaming stocks drop on subscriber misses and guidance cuts.
QUERIES:
1. Netflix NFLX subscriber growth miss July 2024
2. Netflix guidance cut quarterly earnings July 2024
3. Netflix analyst downgrade price target July 2024

Now the real case:
Anomaly: %s (%s)
Reasoning:`, anomaly.Describe(), anomaly.Timeframe())

	out, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	queries := parseSection(out, "QUERIES:")
	if len(queries) == 0 {
		return nil, fmt.Errorf("no QUERIES section in model output")
	}
	return queries, nil
}

func (s *Selector) expertPerspectives(ctx context.Context, anomaly *models.AnomalyEvent) ([]string, error) {
	earningsPrompt := fmt.Sprintf(`You are a veteran earnings analyst. A stock just moved abnormally:

%s (%s)

From an earnings and guidance perspective, write 2 web search queries that would uncover the cause. One query per line, nothing else.`,
		anomaly.Describe(), anomaly.Timeframe())

	legalPrompt := fmt.Sprintf(`You are a securities lawyer tracking corporate disclosures. A stock just moved abnormally:

%s (%s)

From a regulatory, litigation, and SEC filing perspective, write 2 web search queries that would uncover the cause. One query per line, nothing else.`,
		anomaly.Describe(), anomaly.Timeframe())

	earnings, err := s.llm.Generate(ctx, earningsPrompt)
	if err != nil {
		return nil, err
	}
	legal, err := s.llm.Generate(ctx, legalPrompt)
	if err != nil {
		return nil, err
	}

	earningsQ := Normalize(splitLines(earnings))
	legalQ := Normalize(splitLines(legal))
	fallbacks := FallbackQueries(anomaly)

	pick := func(qs []string, i, fb int) string {
		if i < len(qs) {
			return qs[i]
		}
		return fallbacks[fb]
	}

	// Interleave the two perspectives: earnings lead, legal second.
	return []string{
		pick(earningsQ, 0, 0),
		pick(legalQ, 0, 1),
		pick(earningsQ, 1, 2),
	}, nil
}

func (s *Selector) metaOptimize(ctx context.Context, anomaly *models.AnomalyEvent, previous []string, prevEval *models.EvidenceEvaluation) ([]string, error) {
	var feedback strings.Builder
	if prevEval != nil {
		fmt.Fprintf(&feedback, "Previous evidence confidence: %.2f\n", prevEval.Confidence)
		if len(prevEval.MissingInfo) > 0 {
			feedback.WriteString("Information still missing:\n")
			for _, m := range prevEval.MissingInfo {
				fmt.Fprintf(&feedback, "- %s\n", m)
			}
		}
	}

	prompt := fmt.Sprintf(`Previous web searches failed to explain this stock anomaly:

%s (%s)

Failed queries:
%s
%s
Critique why these queries came up short (too broad, wrong angle, wrong timeframe), then propose replacements.

End your answer with:
IMPROVED QUERIES:
1. ...
2. ...
3. ...`, anomaly.Describe(), anomaly.Timeframe(), numbered(previous), feedback.String())

	out, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	queries := parseSection(out, "IMPROVED QUERIES:")
	if len(queries) == 0 {
		// Nothing parseable; rerunning the previous queries beats running
		// garbage.
		return previous, nil
	}
	return queries, nil
}

// parseSection returns the non-empty lines following the given marker.
func parseSection(out, marker string) []string {
	idx := strings.Index(out, marker)
	if idx < 0 {
		return nil
	}
	return splitLines(out[idx+len(marker):])
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func numbered(queries []string) string {
	var sb strings.Builder
	for i, q := range queries {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, q)
	}
	return sb.String()
}
