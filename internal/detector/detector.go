// Package detector scores daily price and volume behavior to decide
// whether a ticker warrants an investigation.
package detector

import (
	"fmt"
	"math"

	"stocksleuth/internal/models"
)

// rsiPeriod is the lookback for the relative strength index.
const rsiPeriod = 14

// minBars is the smallest history that supports every signal.
const minBars = rsiPeriod + 1

// Config holds detection thresholds.
type Config struct {
	PriceThreshold  float64
	VolumeThreshold float64
	MinScore        int
}

// DefaultConfig returns the standard detection thresholds.
func DefaultConfig() Config {
	return Config{
		PriceThreshold:  10.0,
		VolumeThreshold: 3.0,
		MinScore:        5,
	}
}

// Analysis holds the computed signals for the most recent bar.
type Analysis struct {
	Ticker        string
	Price         float64
	PercentChange float64
	Volume        int64
	VolumeRatio   float64
	Volatility    float64
	RSI           float64
	GapPercent    float64
	Score         int
}

// Detector scores tickers from their daily bar history.
type Detector struct {
	cfg Config
}

// New creates a Detector.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Analyze computes signals and the composite score for the latest bar.
// Bars must be in chronological order and cover at least 15 days.
func (d *Detector) Analyze(ticker string, bars []models.Bar) (*Analysis, error) {
	if len(bars) < minBars {
		return nil, fmt.Errorf("need at least %d bars for %s, got %d", minBars, ticker, len(bars))
	}

	last := bars[len(bars)-1]
	prev := bars[len(bars)-2]
	if prev.Close == 0 {
		return nil, fmt.Errorf("zero previous close for %s", ticker)
	}

	a := &Analysis{
		Ticker:        ticker,
		Price:         last.Close,
		PercentChange: (last.Close - prev.Close) / prev.Close * 100,
		Volume:        last.Volume,
		VolumeRatio:   volumeRatio(bars),
		Volatility:    volatility(bars),
		RSI:           rsi(bars),
		GapPercent:    (last.Open - prev.Close) / prev.Close * 100,
	}
	a.Score = d.score(a)
	return a, nil
}

// Check analyzes the ticker and constructs an anomaly event when the
// score crosses the threshold. A sub-threshold score returns (nil, nil).
// A score driven by secondary signals without a large enough price move
// does not produce a valid event and is also treated as no anomaly.
func (d *Detector) Check(ticker string, bars []models.Bar) (*models.AnomalyEvent, error) {
	analysis, err := d.Analyze(ticker, bars)
	if err != nil {
		return nil, err
	}
	if analysis.Score < d.cfg.MinScore {
		return nil, nil
	}

	event, err := models.NewAnomalyEvent(ticker, analysis.Price, analysis.PercentChange,
		analysis.Volume, analysis.VolumeRatio, d.cfg.PriceThreshold)
	if err != nil {
		return nil, nil
	}
	return event, nil
}

// score weighs the signals. Price magnitude dominates; volume, intraday
// volatility, momentum extremes, and opening gaps each add smaller
// contributions.
func (d *Detector) score(a *Analysis) int {
	score := 0

	abs := math.Abs(a.PercentChange)
	switch {
	case abs >= 10:
		score += 3
	case abs >= 5:
		score += 2
	case abs >= 2:
		score++
	}

	switch {
	case a.VolumeRatio >= 5:
		score += 2
	case a.VolumeRatio >= 3:
		score++
	}

	if a.Volatility > 2 {
		score++
	}

	if a.RSI < 30 || a.RSI > 70 {
		score++
	}

	if math.Abs(a.GapPercent) >= 3 {
		score++
	}

	return score
}

// volumeRatio compares the latest volume against the average of all
// preceding bars.
func volumeRatio(bars []models.Bar) float64 {
	last := bars[len(bars)-1]
	var sum float64
	for _, b := range bars[:len(bars)-1] {
		sum += float64(b.Volume)
	}
	avg := sum / float64(len(bars)-1)
	if avg == 0 {
		return 0
	}
	return float64(last.Volume) / avg
}

// volatility is the standard deviation of daily close-to-close returns, in
// percent, over the latest rsiPeriod bars.
func volatility(bars []models.Bar) float64 {
	window := bars[len(bars)-minBars:]
	returns := make([]float64, 0, rsiPeriod)
	for i := 1; i < len(window); i++ {
		if window[i-1].Close == 0 {
			continue
		}
		returns = append(returns, (window[i].Close-window[i-1].Close)/window[i-1].Close*100)
	}
	if len(returns) == 0 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	return math.Sqrt(variance / float64(len(returns)))
}

// rsi computes the standard 14-period relative strength index over the
// most recent bars.
func rsi(bars []models.Bar) float64 {
	window := bars[len(bars)-minBars:]
	var gains, losses float64
	for i := 1; i < len(window); i++ {
		delta := window[i].Close - window[i-1].Close
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	if losses == 0 {
		if gains == 0 {
			return 50
		}
		return 100
	}
	rs := (gains / rsiPeriod) / (losses / rsiPeriod)
	return 100 - 100/(1+rs)
}
