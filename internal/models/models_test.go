package models

import (
	"strings"
	"testing"
	"time"
)

func TestNewAnomalyEvent(t *testing.T) {
	tests := []struct {
		name          string
		ticker        string
		price         float64
		percentChange float64
		volume        int64
		volumeRatio   float64
		threshold     float64
		wantErr       bool
	}{
		{
			name:   "valid drop",
			ticker: "TSLA", price: 242.50, percentChange: -12.3,
			volume: 95_000_000, volumeRatio: 4.2, threshold: 10.0,
		},
		{
			name:   "valid surge",
			ticker: "nvda", price: 900.00, percentChange: 11.1,
			volume: 50_000_000, volumeRatio: 3.5, threshold: 10.0,
		},
		{
			name:   "change below threshold",
			ticker: "AAPL", price: 150.00, percentChange: -4.0,
			volume: 80_000_000, volumeRatio: 3.1, threshold: 10.0,
			wantErr: true,
		},
		{
			name:   "zero price",
			ticker: "AAPL", price: 0, percentChange: -12.0,
			volume: 80_000_000, volumeRatio: 3.1, threshold: 10.0,
			wantErr: true,
		},
		{
			name:   "zero volume",
			ticker: "AAPL", price: 150.00, percentChange: -12.0,
			volume: 0, volumeRatio: 3.1, threshold: 10.0,
			wantErr: true,
		},
		{
			name:   "volume ratio not elevated",
			ticker: "AAPL", price: 150.00, percentChange: -12.0,
			volume: 80_000_000, volumeRatio: 1.0, threshold: 10.0,
			wantErr: true,
		},
		{
			name:   "empty ticker",
			ticker: "  ", price: 150.00, percentChange: -12.0,
			volume: 80_000_000, volumeRatio: 3.1, threshold: 10.0,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := NewAnomalyEvent(tt.ticker, tt.price, tt.percentChange, tt.volume, tt.volumeRatio, tt.threshold)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAnomalyEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if event.Ticker != strings.ToUpper(strings.TrimSpace(tt.ticker)) {
				t.Errorf("Ticker not normalized: %q", event.Ticker)
			}
			if event.DetectedAt.IsZero() {
				t.Error("DetectedAt not set")
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	drop, err := NewAnomalyEvent("TSLA", 242.50, -12.3, 95_000_000, 4.2, 10.0)
	if err != nil {
		t.Fatalf("NewAnomalyEvent failed: %v", err)
	}
	if got := drop.Describe(); got != "TSLA dropped 12.30% to $242.50 with 4.2x volume" {
		t.Errorf("Unexpected description: %q", got)
	}

	surge, err := NewAnomalyEvent("NVDA", 900.00, 11.1, 50_000_000, 3.5, 10.0)
	if err != nil {
		t.Fatalf("NewAnomalyEvent failed: %v", err)
	}
	if got := surge.Describe(); !strings.Contains(got, "surged") {
		t.Errorf("Expected surge description, got %q", got)
	}
}

func TestTimeframe(t *testing.T) {
	event, err := NewAnomalyEvent("TSLA", 242.50, -12.3, 95_000_000, 4.2, 10.0)
	if err != nil {
		t.Fatalf("NewAnomalyEvent failed: %v", err)
	}
	event.DetectedAt = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	if got := event.Timeframe(); got != "March 2026" {
		t.Errorf("Timeframe() = %q, want %q", got, "March 2026")
	}
}

func TestEvidenceItemWeight(t *testing.T) {
	item := EvidenceItem{SourceCredibility: 0.9, RelevanceScore: 0.5}
	if got := item.Weight(); got != 0.45 {
		t.Errorf("Weight() = %v, want 0.45", got)
	}
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseGeneratingQueries, "generating_queries"},
		{PhaseSearching, "searching"},
		{PhaseEvaluating, "evaluating"},
		{PhaseRetrying, "retrying"},
		{PhaseReporting, "reporting"},
		{PhaseDone, "done"},
		{Phase(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}
