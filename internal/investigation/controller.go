// Package investigation runs the bounded research loop that takes an
// anomaly from generated queries through search and evaluation to a final
// report.
package investigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stocksleuth/internal/logger"
	"stocksleuth/internal/models"
)

// ErrStepLimit is returned when the control loop exceeds its hard step
// ceiling. It indicates a controller defect, not an unsolved anomaly.
var ErrStepLimit = errors.New("investigation: step limit exceeded")

// QueryGenerator produces search queries for one iteration.
type QueryGenerator interface {
	Generate(ctx context.Context, anomaly *models.AnomalyEvent, iteration int, previous []string, prevEval *models.EvidenceEvaluation) []string
}

// Searcher executes queries and returns responses keyed by query.
type Searcher interface {
	SearchAll(ctx context.Context, queries []string, maxResults int) map[string]*models.SearchResponse
}

// Evaluator turns search results into a verdict-bearing evaluation.
type Evaluator interface {
	Evaluate(ctx context.Context, anomaly *models.AnomalyEvent, results map[string]*models.SearchResponse) *models.EvidenceEvaluation
}

// Reporter renders and persists the final report.
type Reporter interface {
	Assemble(state *models.InvestigationState) string
	Save(state *models.InvestigationState) (string, error)
}

// Config holds loop bounds and termination thresholds.
type Config struct {
	MaxRetries          int
	ConfidenceThreshold float64
	MaxSteps            int
	ResultsPerQuery     int
}

// DefaultConfig returns the standard loop configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:          3,
		ConfidenceThreshold: 0.7,
		MaxSteps:            50,
		ResultsPerQuery:     3,
	}
}

// Controller drives one investigation to completion.
type Controller struct {
	queries   QueryGenerator
	searcher  Searcher
	evaluator Evaluator
	reporter  Reporter
	cfg       Config
}

// New creates a Controller.
func New(queries QueryGenerator, searcher Searcher, evaluator Evaluator, reporter Reporter, cfg Config) *Controller {
	return &Controller{
		queries:   queries,
		searcher:  searcher,
		evaluator: evaluator,
		reporter:  reporter,
		cfg:       cfg,
	}
}

// Run executes the investigation loop for one anomaly. The returned state
// is always non-nil; on error it reflects progress up to the failure.
//
// Every iteration evaluates only its own search results, but the state
// accumulates all results across iterations for the final report.
func (c *Controller) Run(ctx context.Context, id string, anomaly *models.AnomalyEvent) (*models.InvestigationState, error) {
	state := &models.InvestigationState{
		ID:            id,
		Anomaly:       anomaly,
		SearchResults: make(map[string]*models.SearchResponse),
		StartedAt:     time.Now(),
	}

	phase := models.PhaseGeneratingQueries
	steps := 0
	var current map[string]*models.SearchResponse

	for phase != models.PhaseDone {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		steps++
		if steps > c.cfg.MaxSteps {
			return state, fmt.Errorf("aborting %s after %d steps: %w", id, c.cfg.MaxSteps, ErrStepLimit)
		}

		logger.Debug("Investigation %s step %d: %s (iteration %d)", id, steps, phase, state.Iteration)

		switch phase {
		case models.PhaseGeneratingQueries:
			state.Queries = c.queries.Generate(ctx, anomaly, state.Iteration, state.Queries, state.Evaluation)
			phase = models.PhaseSearching

		case models.PhaseSearching:
			current = c.searcher.SearchAll(ctx, state.Queries, c.cfg.ResultsPerQuery)
			for q, r := range current {
				state.SearchResults[q] = r
			}
			phase = models.PhaseEvaluating

		case models.PhaseEvaluating:
			state.Evaluation = c.evaluator.Evaluate(ctx, anomaly, current)
			if c.shouldTerminate(state) {
				phase = models.PhaseReporting
			} else {
				phase = models.PhaseRetrying
			}

		case models.PhaseRetrying:
			state.Iteration++
			phase = models.PhaseGeneratingQueries

		case models.PhaseReporting:
			state.FinalReport = c.reporter.Assemble(state)
			path, err := c.reporter.Save(state)
			if err != nil {
				logger.Warn("Failed to save report for %s: %v", id, err)
			} else {
				state.ReportPath = path
			}
			state.Complete = true
			phase = models.PhaseDone

		default:
			return state, fmt.Errorf("investigation %s reached invalid phase %v", id, phase)
		}
	}

	return state, nil
}

// Solved reports whether the investigation ended with an accepted
// explanation.
func (c *Controller) Solved(state *models.InvestigationState) bool {
	ev := state.Evaluation
	return ev != nil && ev.ExplanationFound && ev.Confidence >= c.cfg.ConfidenceThreshold
}

// shouldTerminate stops the loop on an accepted explanation or when the
// retry budget has been spent.
func (c *Controller) shouldTerminate(state *models.InvestigationState) bool {
	if c.Solved(state) {
		return true
	}
	return state.Iteration >= c.cfg.MaxRetries-1
}
