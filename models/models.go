package models

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// SignalType classifies the trading action a signal recommends.
type SignalType string

const (
	SignalGoLong  SignalType = "GO_LONG"
	SignalGoShort SignalType = "GO_SHORT"
	SignalHold    SignalType = "HOLD"
)

// PatternType classifies a detected candlestick formation.
type PatternType string

const (
	PatternBullishEngulfing PatternType = "BULLISH_ENGULFING"
	PatternBearishEngulfing PatternType = "BEARISH_ENGULFING"
	PatternNone             PatternType = "NO_PATTERN"
)

// ConfidenceLevel buckets a numeric confidence score for reporting.
type ConfidenceLevel string

const (
	ConfidenceLow      ConfidenceLevel = "LOW"
	ConfidenceMedium   ConfidenceLevel = "MEDIUM"
	ConfidenceHigh     ConfidenceLevel = "HIGH"
	ConfidenceVeryHigh ConfidenceLevel = "VERY_HIGH"
)

// ConfidenceLevelFor converts a numeric confidence into its bucket.
func ConfidenceLevelFor(confidence float64) ConfidenceLevel {
	switch {
	case confidence >= 0.9:
		return ConfidenceVeryHigh
	case confidence >= 0.75:
		return ConfidenceHigh
	case confidence >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Candlestick represents a single OHLCV bar for a symbol.
type Candlestick struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Symbol    string    `json:"symbol"`
}

// IsBullish reports whether the candle closed above its open.
func (c Candlestick) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open.
func (c Candlestick) IsBearish() bool {
	return c.Close < c.Open
}

// BodySize returns the absolute size of the candle body.
func (c Candlestick) BodySize() float64 {
	return math.Abs(c.Close - c.Open)
}

// UpperShadow returns the wick size above the body.
func (c Candlestick) UpperShadow() float64 {
	return c.High - math.Max(c.Open, c.Close)
}

// LowerShadow returns the wick size below the body.
func (c Candlestick) LowerShadow() float64 {
	return math.Min(c.Open, c.Close) - c.Low
}

// TotalRange returns the full high-to-low extent of the candle.
func (c Candlestick) TotalRange() float64 {
	return c.High - c.Low
}

// Pattern represents a detected two-candle reversal formation.
// Construct through NewPattern so the invariants hold.
type Pattern struct {
	Type            PatternType     `json:"pattern_type"`
	Confidence      float64         `json:"confidence"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	Timestamp       time.Time       `json:"timestamp"`
	Candles         []Candlestick   `json:"candles"`
	Description     string          `json:"description"`
}

// NewPattern builds a validated Pattern. The candles slice must hold the
// ordered [previous, current] pair and confidence must be within [0, 1].
func NewPattern(patternType PatternType, confidence float64, timestamp time.Time, candles []Candlestick, description string) (*Pattern, error) {
	if confidence < 0.0 || confidence > 1.0 {
		return nil, fmt.Errorf("pattern confidence %.4f out of range [0.0, 1.0]", confidence)
	}
	if len(candles) < 2 {
		return nil, fmt.Errorf("pattern requires at least 2 candles, got %d", len(candles))
	}

	return &Pattern{
		Type:            patternType,
		Confidence:      confidence,
		ConfidenceLevel: ConfidenceLevelFor(confidence),
		Timestamp:       timestamp,
		Candles:         candles,
		Description:     description,
	}, nil
}

// Signal represents an actionable trading recommendation derived from a
// pattern. Construct through NewSignal so the invariants hold.
type Signal struct {
	ID              string          `json:"id"`
	Timestamp       time.Time       `json:"timestamp"`
	Type            SignalType      `json:"signal_type"`
	PatternType     PatternType     `json:"pattern_type"`
	EntryPrice      float64         `json:"entry_price"`
	Confidence      float64         `json:"confidence"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	Commentary      string          `json:"commentary"`
	Pattern         *Pattern        `json:"-"`
	Candle          *Candlestick    `json:"-"`
}

// NewSignal builds a validated Signal.
func NewSignal(id string, timestamp time.Time, signalType SignalType, patternType PatternType,
	entryPrice, confidence float64, commentary string, pattern *Pattern, candle *Candlestick) (*Signal, error) {

	if confidence < 0.0 || confidence > 1.0 {
		return nil, fmt.Errorf("signal confidence %.4f out of range [0.0, 1.0]", confidence)
	}
	if entryPrice <= 0 {
		return nil, fmt.Errorf("signal entry price must be positive, got %.4f", entryPrice)
	}

	return &Signal{
		ID:              id,
		Timestamp:       timestamp,
		Type:            signalType,
		PatternType:     patternType,
		EntryPrice:      entryPrice,
		Confidence:      confidence,
		ConfidenceLevel: ConfidenceLevelFor(confidence),
		Commentary:      commentary,
		Pattern:         pattern,
		Candle:          candle,
	}, nil
}

// MarketData binds a symbol and timeframe to an ordered candle sequence,
// plus any patterns and signals already derived from it.
type MarketData struct {
	Symbol      string        `json:"symbol"`
	Timeframe   string        `json:"timeframe"`
	Candles     []Candlestick `json:"candles"`
	Patterns    []*Pattern    `json:"patterns,omitempty"`
	Signals     []*Signal     `json:"signals,omitempty"`
	LastUpdated time.Time     `json:"last_updated"`
}

// NewMarketData assembles a MarketData value from raw fetched candles.
// Duplicate timestamps collapse to the latest-seen candle and the result is
// sorted ascending by timestamp.
func NewMarketData(symbol, timeframe string, candles []Candlestick) *MarketData {
	unique := make(map[int64]Candlestick, len(candles))
	for _, c := range candles {
		unique[c.Timestamp.UnixNano()] = c
	}

	sorted := make([]Candlestick, 0, len(unique))
	for _, c := range unique {
		sorted = append(sorted, c)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	return &MarketData{
		Symbol:      symbol,
		Timeframe:   timeframe,
		Candles:     sorted,
		LastUpdated: time.Now(),
	}
}

// LatestCandle returns the most recent candle, or nil if there is none.
func (m *MarketData) LatestCandle() *Candlestick {
	if len(m.Candles) == 0 {
		return nil
	}
	return &m.Candles[len(m.Candles)-1]
}

// LatestSignal returns the most recent signal, or nil if there is none.
func (m *MarketData) LatestSignal() *Signal {
	if len(m.Signals) == 0 {
		return nil
	}
	return m.Signals[len(m.Signals)-1]
}

// CandlesByDateRange filters candles to those within [start, end] inclusive.
func (m *MarketData) CandlesByDateRange(start, end time.Time) []Candlestick {
	var out []Candlestick
	for _, c := range m.Candles {
		if !c.Timestamp.Before(start) && !c.Timestamp.After(end) {
			out = append(out, c)
		}
	}
	return out
}

// AnalysisResult summarizes a single detection run for telemetry.
type AnalysisResult struct {
	Timestamp            time.Time `json:"timestamp"`
	Symbol               string    `json:"symbol"`
	TotalCandlesAnalyzed int       `json:"total_candles_analyzed"`
	PatternsDetected     int       `json:"patterns_detected"`
	SignalsGenerated     int       `json:"signals_generated"`
	AnalysisDurationMs   float64   `json:"analysis_duration_ms"`
	Success              bool      `json:"success"`
	ErrorMessage         string    `json:"error_message,omitempty"`
}

// PatternDetectionRate returns patterns per analyzed candle.
func (r AnalysisResult) PatternDetectionRate() float64 {
	if r.TotalCandlesAnalyzed == 0 {
		return 0.0
	}
	return float64(r.PatternsDetected) / float64(r.TotalCandlesAnalyzed)
}

// SignalGenerationRate returns signals per detected pattern.
func (r AnalysisResult) SignalGenerationRate() float64 {
	if r.PatternsDetected == 0 {
		return 0.0
	}
	return float64(r.SignalsGenerated) / float64(r.PatternsDetected)
}
