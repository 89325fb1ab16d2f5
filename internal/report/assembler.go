// Package report renders investigation outcomes as markdown and writes
// them to disk.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"stocksleuth/internal/evidence"
	"stocksleuth/internal/models"
)

// Assembler renders and persists investigation reports.
type Assembler struct {
	dir string
}

// NewAssembler creates an Assembler writing into dir.
func NewAssembler(dir string) *Assembler {
	return &Assembler{dir: dir}
}

// Assemble renders the investigation as a markdown report. Missing
// evaluation data degrades to a minimal report rather than failing.
func (a *Assembler) Assemble(state *models.InvestigationState) string {
	if state == nil || state.Anomaly == nil {
		return "# Investigation Report\n\nNo investigation data available.\n"
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "# Investigation Report: %s\n\n", state.Anomaly.Ticker)
	fmt.Fprintf(&sb, "**Anomaly:** %s\n\n", state.Anomaly.Describe())
	fmt.Fprintf(&sb, "**Detected:** %s\n\n", state.Anomaly.DetectedAt.Format("2006-01-02 15:04 MST"))

	ev := state.Evaluation
	if ev == nil {
		sb.WriteString("## Status: INCOMPLETE\n\nThe investigation produced no evaluation.\n")
		return sb.String()
	}

	if ev.ExplanationFound {
		sb.WriteString("## Status: SOLVED\n\n")
	} else {
		sb.WriteString("## Status: UNSOLVED\n\n")
	}

	fmt.Fprintf(&sb, "**Root cause:** %s\n\n", ev.RootCause)
	fmt.Fprintf(&sb, "**Confidence:** %.0f%%\n\n", ev.Confidence*100)
	fmt.Fprintf(&sb, "**Evidence quality:** %s\n\n", ev.ExplanationQuality)
	fmt.Fprintf(&sb, "**Iterations used:** %d\n\n", state.Iteration+1)

	if ev.Reasoning != "" {
		fmt.Fprintf(&sb, "## Analysis\n\n%s\n\n", ev.Reasoning)
	}

	if len(ev.EvidenceItems) > 0 {
		sb.WriteString("## Top Evidence\n\n")
		top := evidence.RankByWeight(ev.EvidenceItems)
		if len(top) > 5 {
			top = top[:5]
		}
		for i, it := range top {
			fmt.Fprintf(&sb, "%d. **%s** (credibility %.2f, relevance %.2f)\n\n   %s\n\n",
				i+1, it.SourceURL, it.SourceCredibility, it.RelevanceScore, it.Content)
		}
	}

	if len(ev.MissingInfo) > 0 {
		sb.WriteString("## Missing Information\n\n")
		for _, m := range ev.MissingInfo {
			fmt.Fprintf(&sb, "- %s\n", m)
		}
		sb.WriteString("\n")
	}

	if len(state.SearchResults) > 0 {
		sb.WriteString("## Queries Run\n\n")
		queries := make([]string, 0, len(state.SearchResults))
		for q := range state.SearchResults {
			queries = append(queries, q)
		}
		sort.Strings(queries)
		for _, q := range queries {
			fmt.Fprintf(&sb, "- %s\n", q)
		}
	}

	return sb.String()
}

// Save writes the assembled report to <TICKER>_<timestamp>.md under the
// assembler's directory and returns the path.
func (a *Assembler) Save(state *models.InvestigationState) (string, error) {
	if state == nil || state.Anomaly == nil {
		return "", fmt.Errorf("cannot save report without investigation data")
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	report := state.FinalReport
	if report == "" {
		report = a.Assemble(state)
	}

	name := fmt.Sprintf("%s_%s.md", state.Anomaly.Ticker, state.Anomaly.DetectedAt.Format("20060102_150405"))
	path := filepath.Join(a.dir, name)
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
