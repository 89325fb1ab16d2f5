package models

import (
	"time"
)

// Phase identifies the controller's position in the investigation loop.
type Phase int

const (
	PhaseGeneratingQueries Phase = iota
	PhaseSearching
	PhaseEvaluating
	PhaseRetrying
	PhaseReporting
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseGeneratingQueries:
		return "generating_queries"
	case PhaseSearching:
		return "searching"
	case PhaseEvaluating:
		return "evaluating"
	case PhaseRetrying:
		return "retrying"
	case PhaseReporting:
		return "reporting"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// SearchResult is one retrieved document excerpt.
type SearchResult struct {
	Title   string
	URL     string
	Content string
}

// SearchResponse is the outcome of one query against the search capability.
// Answer, when present, is an AI-synthesized summary of the result set.
type SearchResponse struct {
	Query   string
	Answer  string
	Results []SearchResult
}

// InvestigationState carries everything the controller mutates across loop
// steps. SearchResults accumulates across iterations, keyed by query.
// Complete is monotonic: once set it is never reset within a run.
type InvestigationState struct {
	ID            string
	Anomaly       *AnomalyEvent
	Queries       []string
	SearchResults map[string]*SearchResponse
	Evaluation    *EvidenceEvaluation
	Iteration     int
	Complete      bool
	FinalReport   string
	ReportPath    string
	StartedAt     time.Time
}

// InvestigationStatus is the registry-visible status of an investigation.
type InvestigationStatus string

const (
	StatusRunning  InvestigationStatus = "running"
	StatusSolved   InvestigationStatus = "solved"
	StatusUnsolved InvestigationStatus = "unsolved"
	StatusFailed   InvestigationStatus = "failed"
)

// InvestigationRecord is the persisted registry entry for one investigation.
// Terminal fields are written exactly once, when the investigation ends.
type InvestigationRecord struct {
	ID          string
	AnomalyID   string
	Ticker      string
	Status      InvestigationStatus
	Iterations  int
	Confidence  float64
	Quality     string
	RootCause   string
	ReportPath  string
	StartedAt   time.Time
	CompletedAt time.Time
}

// Bar is one daily OHLCV observation used by the anomaly detector.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}
