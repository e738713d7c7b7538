// Package patterns implements candlestick pattern detection over ordered
// candle sequences. The detector scans adjacent candle pairs for bullish
// and bearish engulfing formations and scores each hit with a weighted
// multi-factor confidence heuristic.
package patterns

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/psam21/btct/models"
)

const (
	// minConfidenceFloor discards patterns scored below this value outright.
	minConfidenceFloor = 0.3

	bodyExpansionWeight    = 0.3
	volumeWeight           = 0.2
	bodySignificanceWeight = 0.25
	gapWeight              = 0.25
)

// Detector finds engulfing patterns in candlestick data.
type Detector struct {
	minBodyRatio       float64
	minEngulfmentRatio float64
	logger             zerolog.Logger
}

// New creates a Detector with the default quality thresholds.
func New() *Detector {
	return NewWithThresholds(0.6, 1.1)
}

// NewWithThresholds creates a Detector with explicit thresholds.
// minBodyRatio is the body-to-range floor used by ValidatePattern;
// minEngulfmentRatio normalizes the body expansion confidence factor.
func NewWithThresholds(minBodyRatio, minEngulfmentRatio float64) *Detector {
	return &Detector{
		minBodyRatio:       minBodyRatio,
		minEngulfmentRatio: minEngulfmentRatio,
		logger:             log.With().Str("component", "pattern_detector").Logger(),
	}
}

// Detect scans a chronologically ordered candle sequence and returns every
// qualifying engulfing pattern in scan order. Fewer than two candles yields
// an empty result.
func (d *Detector) Detect(candles []models.Candlestick) []*models.Pattern {
	var patterns []*models.Pattern

	if len(candles) < 2 {
		d.logger.Warn().Int("candles", len(candles)).Msg("Need at least 2 candles for pattern detection")
		return patterns
	}

	for i := 1; i < len(candles); i++ {
		prev := candles[i-1]
		curr := candles[i]

		if p := d.DetectBullishEngulfing(prev, curr); p != nil {
			patterns = append(patterns, p)
			continue
		}
		if p := d.DetectBearishEngulfing(prev, curr); p != nil {
			patterns = append(patterns, p)
		}
	}

	d.logger.Info().
		Int("patterns", len(patterns)).
		Int("candles", len(candles)).
		Msg("Pattern detection complete")
	return patterns
}

// DetectBullishEngulfing checks one candle pair for a bullish engulfing
// formation: a bearish candle followed by a bullish candle whose body fully
// contains the previous body. Returns nil if the criteria or the minimum
// confidence floor are not met.
func (d *Detector) DetectBullishEngulfing(prev, curr models.Candlestick) *models.Pattern {
	if !prev.IsBearish() || !curr.IsBullish() {
		return nil
	}
	if !isBullishEngulfment(prev, curr) {
		return nil
	}

	confidence := d.confidence(prev, curr)
	if confidence < minConfidenceFloor {
		return nil
	}

	pattern, err := models.NewPattern(
		models.PatternBullishEngulfing,
		confidence,
		curr.Timestamp,
		[]models.Candlestick{prev, curr},
		fmt.Sprintf("Bullish Engulfing: %.1f%% confidence", confidence*100),
	)
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to build bullish engulfing pattern")
		return nil
	}

	d.logger.Debug().
		Time("timestamp", curr.Timestamp).
		Float64("confidence", confidence).
		Msg("Bullish engulfing detected")
	return pattern
}

// DetectBearishEngulfing is the mirror of DetectBullishEngulfing: a bullish
// candle followed by a bearish candle that engulfs it.
func (d *Detector) DetectBearishEngulfing(prev, curr models.Candlestick) *models.Pattern {
	if !prev.IsBullish() || !curr.IsBearish() {
		return nil
	}
	if !isBearishEngulfment(prev, curr) {
		return nil
	}

	confidence := d.confidence(prev, curr)
	if confidence < minConfidenceFloor {
		return nil
	}

	pattern, err := models.NewPattern(
		models.PatternBearishEngulfing,
		confidence,
		curr.Timestamp,
		[]models.Candlestick{prev, curr},
		fmt.Sprintf("Bearish Engulfing: %.1f%% confidence", confidence*100),
	)
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to build bearish engulfing pattern")
		return nil
	}

	d.logger.Debug().
		Time("timestamp", curr.Timestamp).
		Float64("confidence", confidence).
		Msg("Bearish engulfing detected")
	return pattern
}

// confidence scores an engulfing pair with four weighted factors. Every
// ratio with a zero denominator falls back to a neutral value instead of
// propagating Inf/NaN.
func (d *Detector) confidence(prev, curr models.Candlestick) float64 {
	total := 0.0

	// Factor 1: body size expansion of the engulfing candle.
	bodyConfidence := 1.0
	if prev.BodySize() > 0 {
		bodyConfidence = math.Min((curr.BodySize()/prev.BodySize())/d.minEngulfmentRatio, 1.0)
	}
	total += bodyConfidence * bodyExpansionWeight

	// Factor 2: volume increase. Flat 0.2 contribution when volume did not
	// grow; the scaled ratio carries the weight when it did.
	volumeConfidence := 0.2
	if curr.Volume > prev.Volume {
		volumeRatio := 1.5
		if prev.Volume > 0 {
			volumeRatio = curr.Volume / prev.Volume
		}
		volumeConfidence = math.Min(volumeRatio/1.5, 1.0) * volumeWeight
	}
	total += volumeConfidence

	// Factor 3: body significance relative to the full candle range.
	prevBodyRatio := 0.0
	if prev.TotalRange() > 0 {
		prevBodyRatio = prev.BodySize() / prev.TotalRange()
	}
	currBodyRatio := 0.0
	if curr.TotalRange() > 0 {
		currBodyRatio = curr.BodySize() / curr.TotalRange()
	}
	total += (prevBodyRatio + currBodyRatio) / 2 * bodySignificanceWeight

	// Factor 4: gap between the candles. Tight gaps score higher.
	gapFactor := 1.0
	if prev.Close != curr.Open {
		gapSize := math.Abs(curr.Open - prev.Close)
		avgBody := (prev.BodySize() + curr.BodySize()) / 2
		gapRatio := 0.0
		if avgBody > 0 {
			gapRatio = gapSize / avgBody
		}
		gapFactor = math.Max(0.5, 1.0-gapRatio)
	}
	total += gapFactor * gapWeight

	return math.Min(math.Max(total, 0.0), 1.0)
}

// ValidatePattern is a stricter secondary quality gate: both candle bodies
// must dominate the larger of the two ranges and the directional engulfment
// must still hold. It is not invoked by Detect; callers opt in.
func (d *Detector) ValidatePattern(pattern *models.Pattern) bool {
	if pattern == nil || len(pattern.Candles) != 2 {
		return false
	}

	prev := pattern.Candles[0]
	curr := pattern.Candles[1]

	minBodySize := math.Max(
		prev.TotalRange()*d.minBodyRatio,
		curr.TotalRange()*d.minBodyRatio,
	)
	if prev.BodySize() < minBodySize || curr.BodySize() < minBodySize {
		return false
	}

	switch pattern.Type {
	case models.PatternBullishEngulfing:
		return isBullishEngulfment(prev, curr)
	case models.PatternBearishEngulfing:
		return isBearishEngulfment(prev, curr)
	default:
		return true
	}
}

// PatternStrength returns a human-readable strength label for a pattern.
func (d *Detector) PatternStrength(pattern *models.Pattern) string {
	switch {
	case pattern.Confidence >= 0.9:
		return "Very Strong"
	case pattern.Confidence >= 0.75:
		return "Strong"
	case pattern.Confidence >= 0.5:
		return "Moderate"
	default:
		return "Weak"
	}
}

func isBullishEngulfment(prev, curr models.Candlestick) bool {
	return curr.Open < prev.Close && curr.Close > prev.Open
}

func isBearishEngulfment(prev, curr models.Candlestick) bool {
	return curr.Open > prev.Close && curr.Close < prev.Open
}
