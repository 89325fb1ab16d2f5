// Package models defines the core domain entities: anomalies, evidence, and
// investigation state.
package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// AnomalyEvent represents a detected abnormal price/volume move for a single
// ticker. Constructed once by the detector; read-only afterwards.
type AnomalyEvent struct {
	Ticker        string    `json:"ticker"`
	Price         float64   `json:"price"`
	PercentChange float64   `json:"percent_change"`
	Volume        int64     `json:"volume"`
	VolumeRatio   float64   `json:"volume_ratio"`
	DetectedAt    time.Time `json:"detected_at"`
}

// NewAnomalyEvent validates and constructs an AnomalyEvent. The ticker is
// normalized to uppercase. The percent-change magnitude must meet threshold;
// a smaller move is not an anomaly and construction fails.
func NewAnomalyEvent(ticker string, price, percentChange float64, volume int64, volumeRatio, threshold float64) (*AnomalyEvent, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, errors.New("ticker must not be empty")
	}
	if price <= 0 {
		return nil, errors.New("price must be positive")
	}
	if math.Abs(percentChange) < threshold {
		return nil, fmt.Errorf("percent change %.2f%% below anomaly threshold %.2f%%", percentChange, threshold)
	}
	if volume <= 0 {
		return nil, errors.New("volume must be positive")
	}
	if volumeRatio <= 1.0 {
		return nil, errors.New("volume ratio must exceed 1.0")
	}
	return &AnomalyEvent{
		Ticker:        ticker,
		Price:         price,
		PercentChange: percentChange,
		Volume:        volume,
		VolumeRatio:   volumeRatio,
		DetectedAt:    time.Now(),
	}, nil
}

// Describe returns a one-line human-readable description of the anomaly.
func (a *AnomalyEvent) Describe() string {
	direction := "surged"
	if a.PercentChange < 0 {
		direction = "dropped"
	}
	return fmt.Sprintf("%s %s %.2f%% to $%.2f with %.1fx volume",
		a.Ticker, direction, math.Abs(a.PercentChange), a.Price, a.VolumeRatio)
}

// Timeframe returns the month-year token used in generated and fallback
// search queries, derived from the detection timestamp.
func (a *AnomalyEvent) Timeframe() string {
	return a.DetectedAt.Format("January 2006")
}
