package query

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"stocksleuth/internal/models"
)

// scriptedGenerator returns canned responses in order, one per call.
type scriptedGenerator struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if g.calls >= len(g.responses) {
		return "", errors.New("no more scripted responses")
	}
	out := g.responses[g.calls]
	g.calls++
	return out, nil
}

func testAnomaly(t *testing.T) *models.AnomalyEvent {
	t.Helper()
	a, err := models.NewAnomalyEvent("TSLA", 242.50, -12.3, 95_000_000, 4.2, 10.0)
	if err != nil {
		t.Fatalf("NewAnomalyEvent failed: %v", err)
	}
	a.DetectedAt = time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)
	return a
}

func TestGenerateFirstIteration(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`The move suggests earnings or a recall.
QUERIES:
1. Tesla TSLA earnings miss March 2026
2. Tesla recall NHTSA investigation March 2026
3. Tesla executive departure announcement March 2026`}}

	s := NewSelector(gen)
	queries := s.Generate(context.Background(), testAnomaly(t), 0, nil, nil)

	if len(queries) != QueriesPerIteration {
		t.Fatalf("Expected %d queries, got %d: %v", QueriesPerIteration, len(queries), queries)
	}
	if queries[0] != "Tesla TSLA earnings miss March 2026" {
		t.Errorf("Unexpected first query: %q", queries[0])
	}
	if gen.calls != 1 {
		t.Errorf("Expected 1 model call, got %d", gen.calls)
	}
}

func TestGenerateFallbackOnModelError(t *testing.T) {
	s := NewSelector(&scriptedGenerator{err: errors.New("model down")})
	anomaly := testAnomaly(t)

	queries := s.Generate(context.Background(), anomaly, 0, nil, nil)

	want := FallbackQueries(anomaly)
	if len(queries) != len(want) {
		t.Fatalf("Expected %d fallbacks, got %v", len(want), queries)
	}
	for i := range want {
		if queries[i] != want[i] {
			t.Errorf("queries[%d] = %q, want %q", i, queries[i], want[i])
		}
	}
}

func TestGeneratePadsShortOutput(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`QUERIES:
1. Tesla TSLA earnings miss March 2026`}}

	s := NewSelector(gen)
	anomaly := testAnomaly(t)
	queries := s.Generate(context.Background(), anomaly, 0, nil, nil)

	if len(queries) != QueriesPerIteration {
		t.Fatalf("Expected exactly %d queries, got %v", QueriesPerIteration, queries)
	}
	if queries[0] != "Tesla TSLA earnings miss March 2026" {
		t.Errorf("Model query should come first, got %q", queries[0])
	}
	fallbacks := FallbackQueries(anomaly)
	if queries[1] != fallbacks[0] || queries[2] != fallbacks[1] {
		t.Errorf("Expected fallback padding, got %v", queries)
	}
}

func TestGenerateExpertIteration(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		"TSLA quarterly earnings guidance miss details\nTSLA revenue shortfall analyst reaction news",
		"TSLA SEC enforcement action disclosure filing\nTSLA shareholder lawsuit class action news",
	}}

	s := NewSelector(gen)
	queries := s.Generate(context.Background(), testAnomaly(t), 1, nil, nil)

	if len(queries) != QueriesPerIteration {
		t.Fatalf("Expected %d queries, got %v", QueriesPerIteration, queries)
	}
	if queries[0] != "TSLA quarterly earnings guidance miss details" {
		t.Errorf("Expected earnings query first, got %q", queries[0])
	}
	if queries[1] != "TSLA SEC enforcement action disclosure filing" {
		t.Errorf("Expected legal query second, got %q", queries[1])
	}
	if queries[2] != "TSLA revenue shortfall analyst reaction news" {
		t.Errorf("Expected second earnings query third, got %q", queries[2])
	}
	if gen.calls != 2 {
		t.Errorf("Expected 2 model calls, got %d", gen.calls)
	}
}

func TestGenerateMetaIteration(t *testing.T) {
	previous := []string{
		"Tesla TSLA stock news March 2026 general",
		"Tesla stock analysis opinions March 2026",
		"Tesla share price discussion March 2026",
	}

	t.Run("parses improved queries", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{`The queries were too generic.
IMPROVED QUERIES:
1. Tesla Q1 2026 delivery numbers miss consensus
2. Tesla 8-K filing material event March 2026
3. Tesla price target cut analyst downgrade March 2026`}}

		s := NewSelector(gen)
		queries := s.Generate(context.Background(), testAnomaly(t), 2, previous, nil)

		if queries[0] != "Tesla Q1 2026 delivery numbers miss consensus" {
			t.Errorf("Unexpected first query: %q", queries[0])
		}
		if len(queries) != QueriesPerIteration {
			t.Fatalf("Expected %d queries, got %v", QueriesPerIteration, queries)
		}
	})

	t.Run("keeps previous when nothing parses", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{"I cannot improve these queries."}}

		s := NewSelector(gen)
		queries := s.Generate(context.Background(), testAnomaly(t), 2, previous, nil)

		for i := range previous {
			if queries[i] != previous[i] {
				t.Errorf("queries[%d] = %q, want previous %q", i, queries[i], previous[i])
			}
		}
	})

	t.Run("includes missing info feedback", func(t *testing.T) {
		gen := &scriptedGenerator{responses: []string{`IMPROVED QUERIES:
1. Tesla Q1 2026 delivery numbers miss consensus
2. Tesla 8-K filing material event March 2026
3. Tesla price target cut analyst downgrade March 2026`}}

		s := NewSelector(gen)
		eval := &models.EvidenceEvaluation{
			Confidence:  0.3,
			MissingInfo: []string{"Official company statement"},
		}
		s.Generate(context.Background(), testAnomaly(t), 2, previous, eval)

		if len(gen.prompts) != 1 {
			t.Fatalf("Expected 1 prompt, got %d", len(gen.prompts))
		}
		if !containsStr(gen.prompts[0], "Official company statement") {
			t.Error("Expected missing info in critique prompt")
		}
	})
}

func TestFallbackQueries(t *testing.T) {
	anomaly := testAnomaly(t)
	queries := FallbackQueries(anomaly)

	if len(queries) != QueriesPerIteration {
		t.Fatalf("Expected %d fallbacks, got %d", QueriesPerIteration, len(queries))
	}
	for _, q := range queries {
		if !containsStr(q, "TSLA") {
			t.Errorf("Fallback missing ticker: %q", q)
		}
		if !containsStr(q, "March 2026") {
			t.Errorf("Fallback missing timeframe: %q", q)
		}
		if len(q) <= MinQueryLen || len(q) > MaxQueryLen {
			t.Errorf("Fallback outside length bounds: %q", q)
		}
	}
}

func containsStr(s, sub string) bool {
	return strings.Contains(s, sub)
}
