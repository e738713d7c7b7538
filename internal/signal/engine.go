// Package signal turns detected candlestick patterns into deduplicated,
// timestamped trading signals with generated commentary.
package signal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/psam21/btct/internal/patterns"
	"github.com/psam21/btct/models"
)

const (
	// DefaultMinConfidence is the confidence floor below which patterns
	// produce no signal.
	DefaultMinConfidence = 0.5
	// DefaultSignalTimeoutHours is how long emitted signals stay in the
	// duplicate-suppression window. 168 hours covers one weekly candle.
	DefaultSignalTimeoutHours = 168

	// duplicateWindow suppresses a second signal of the same type whose
	// timestamp lands within this distance of an already emitted one.
	duplicateWindow = time.Hour

	// signalLeadTime offsets a signal to the open of the next weekly candle.
	signalLeadTime = 7 * 24 * time.Hour
)

// Engine generates trading signals from market data. It owns a list of
// recently emitted signals used for duplicate suppression and expiry, so a
// single Engine instance is not safe for concurrent use; construct one
// engine per analysis session or serialize access externally.
type Engine struct {
	minConfidence float64
	signalTimeout time.Duration
	detector      *patterns.Detector
	recentSignals []*models.Signal
	now           func() time.Time
	logger        zerolog.Logger
}

// New creates an Engine with the default thresholds.
func New() *Engine {
	return NewEngine(DefaultMinConfidence, DefaultSignalTimeoutHours)
}

// NewEngine creates an Engine with an explicit confidence floor and signal
// timeout in hours.
func NewEngine(minConfidence float64, signalTimeoutHours int) *Engine {
	return NewEngineWithDetector(minConfidence, signalTimeoutHours, patterns.New())
}

// NewEngineWithDetector creates an Engine around a caller-configured
// pattern detector.
func NewEngineWithDetector(minConfidence float64, signalTimeoutHours int, detector *patterns.Detector) *Engine {
	return &Engine{
		minConfidence: minConfidence,
		signalTimeout: time.Duration(signalTimeoutHours) * time.Hour,
		detector:      detector,
		now:           time.Now,
		logger:        log.With().Str("component", "signal_engine").Logger(),
	}
}

// Analyze runs pattern detection once over the market data and converts
// qualifying patterns into signals, in chronological order. Both the
// detected patterns and the resulting signals are returned, so callers
// that report patterns do not have to re-scan the candles. Insufficient
// data, sub-threshold patterns and duplicates all yield fewer signals,
// not errors.
func (e *Engine) Analyze(md *models.MarketData) ([]*models.Pattern, []*models.Signal) {
	var signals []*models.Signal

	if md == nil || len(md.Candles) < 2 {
		e.logger.Warn().Msg("Insufficient candlestick data for signal generation")
		return nil, signals
	}

	e.cleanupExpiredSignals()

	detected := e.detector.Detect(md.Candles)

	for _, pattern := range detected {
		sig := e.patternToSignal(pattern, md)
		if sig == nil || !e.isValidSignal(sig) {
			continue
		}
		signals = append(signals, sig)
		e.recentSignals = append(e.recentSignals, sig)
	}

	e.logger.Info().
		Int("signals", len(signals)).
		Int("patterns", len(detected)).
		Msg("Signal generation complete")
	return detected, signals
}

// GenerateSignals is Analyze for callers that only need the signals.
func (e *Engine) GenerateSignals(md *models.MarketData) []*models.Signal {
	_, signals := e.Analyze(md)
	return signals
}

// patternToSignal converts one pattern into a signal, or nil when the
// pattern is below the confidence floor or has no directional mapping.
// The entry price comes from the latest candle of the whole series, not
// from the pattern's own engulfing candle.
func (e *Engine) patternToSignal(pattern *models.Pattern, md *models.MarketData) *models.Signal {
	if pattern.Confidence < e.minConfidence {
		e.logger.Debug().
			Float64("confidence", pattern.Confidence).
			Float64("threshold", e.minConfidence).
			Msg("Pattern confidence below threshold")
		return nil
	}

	signalType, ok := signalTypeFor(pattern.Type)
	if !ok {
		return nil
	}

	current := md.LatestCandle()
	if current == nil {
		return nil
	}

	commentary := e.generateCommentary(pattern, signalType)
	id := fmt.Sprintf("%s_%s", pattern.Type, pattern.Timestamp.Format("20060102_150405"))
	timestamp := pattern.Timestamp.Add(signalLeadTime)

	sig, err := models.NewSignal(
		id, timestamp, signalType, pattern.Type,
		current.Close, pattern.Confidence, commentary,
		pattern, current,
	)
	if err != nil {
		e.logger.Warn().Err(err).Str("id", id).Msg("Rejecting malformed signal")
		return nil
	}
	return sig
}

// signalTypeFor maps a pattern type onto the trading action it implies.
// Only the two engulfing patterns are directional.
func signalTypeFor(patternType models.PatternType) (models.SignalType, bool) {
	switch patternType {
	case models.PatternBullishEngulfing:
		return models.SignalGoLong, true
	case models.PatternBearishEngulfing:
		return models.SignalGoShort, true
	case models.PatternNone:
		return models.SignalHold, false
	default:
		return models.SignalHold, false
	}
}

// isValidSignal rejects duplicates of recently emitted signals and
// re-checks the constructor invariants.
func (e *Engine) isValidSignal(sig *models.Signal) bool {
	for _, recent := range e.recentSignals {
		if recent.Type != sig.Type {
			continue
		}
		delta := recent.Timestamp.Sub(sig.Timestamp)
		if delta < 0 {
			delta = -delta
		}
		if delta < duplicateWindow {
			e.logger.Debug().Str("id", sig.ID).Msg("Skipping duplicate signal")
			return false
		}
	}

	if sig.Confidence < 0.0 || sig.Confidence > 1.0 {
		e.logger.Warn().Str("id", sig.ID).Msg("Invalid signal: confidence out of range")
		return false
	}
	if sig.EntryPrice <= 0 {
		e.logger.Warn().Str("id", sig.ID).Msg("Invalid signal: invalid entry price")
		return false
	}
	return true
}

// cleanupExpiredSignals drops signals older than the timeout from the
// duplicate-suppression list.
func (e *Engine) cleanupExpiredSignals() {
	cutoff := e.now().Add(-e.signalTimeout)

	kept := e.recentSignals[:0]
	for _, sig := range e.recentSignals {
		if sig.Timestamp.After(cutoff) {
			kept = append(kept, sig)
		}
	}

	removed := len(e.recentSignals) - len(kept)
	e.recentSignals = kept
	if removed > 0 {
		e.logger.Debug().Int("removed", removed).Msg("Cleaned up expired signals")
	}
}

// generateCommentary renders the deterministic human-readable explanation
// attached to every signal.
func (e *Engine) generateCommentary(pattern *models.Pattern, signalType models.SignalType) string {
	name := titleCase(string(pattern.Type))
	confidencePct := fmt.Sprintf("%.1f%%", pattern.Confidence*100)

	direction := "bullish"
	action := "buying opportunity"
	if signalType == models.SignalGoShort {
		direction = "bearish"
		action = "selling opportunity"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s pattern detected with %s confidence. ", name, confidencePct)
	fmt.Fprintf(&b, "This %s pattern suggests a potential %s at the next candle open. ", direction, action)

	if len(pattern.Candles) >= 2 {
		prev := pattern.Candles[0]
		curr := pattern.Candles[1]

		bodyRatio := 0.0
		if prev.BodySize() > 0 {
			bodyRatio = curr.BodySize() / prev.BodySize()
		}

		volumeChange := ""
		if curr.Volume > prev.Volume && prev.Volume > 0 {
			volIncrease := (curr.Volume/prev.Volume - 1) * 100
			volumeChange = fmt.Sprintf(" with %.1f%% volume increase", volIncrease)
		}

		fmt.Fprintf(&b, "The engulfing candle shows %.1fx body size expansion%s, indicating strong %s momentum.",
			bodyRatio, volumeChange, direction)
	}

	return b.String()
}

// titleCase converts an enum value like BULLISH_ENGULFING into
// "Bullish Engulfing".
func titleCase(s string) string {
	words := strings.Split(strings.ToLower(s), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
