package patterns

import (
	"math"
	"testing"
	"time"

	"github.com/psam21/btct/models"
)

func candleAt(day int, open, high, low, closePrice, volume float64) models.Candlestick {
	return models.Candlestick{
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		Symbol:    "BTCUSDT",
	}
}

func TestDetectBullishEngulfing(t *testing.T) {
	d := New()

	prev := candleAt(0, 45000, 45200, 44500, 44600, 1000)
	curr := candleAt(1, 44400, 46000, 44300, 45800, 1500)

	p := d.DetectBullishEngulfing(prev, curr)
	if p == nil {
		t.Fatal("DetectBullishEngulfing() = nil, want pattern")
	}
	if p.Type != models.PatternBullishEngulfing {
		t.Errorf("Type = %v, want %v", p.Type, models.PatternBullishEngulfing)
	}
	if !p.Timestamp.Equal(curr.Timestamp) {
		t.Errorf("Timestamp = %v, want engulfing candle timestamp %v", p.Timestamp, curr.Timestamp)
	}
	if len(p.Candles) != 2 || p.Candles[0] != prev || p.Candles[1] != curr {
		t.Error("Candles must hold the ordered [previous, current] pair")
	}

	// body 0.3 + volume 0.2 + significance 0.25*avg(400/700, 1400/1700)
	// + gap 0.25*(1 - 200/900)
	want := 0.3 + 0.2 + 0.25*(400.0/700.0+1400.0/1700.0)/2 + 0.25*(1.0-200.0/900.0)
	if math.Abs(p.Confidence-want) > 1e-9 {
		t.Errorf("Confidence = %v, want %v", p.Confidence, want)
	}
	if p.ConfidenceLevel != models.ConfidenceHigh {
		t.Errorf("ConfidenceLevel = %v, want %v", p.ConfidenceLevel, models.ConfidenceHigh)
	}
}

func TestDetectBearishEngulfing(t *testing.T) {
	d := New()

	prev := candleAt(0, 44600, 45200, 44500, 45000, 1000)
	curr := candleAt(1, 45100, 45200, 43500, 43600, 1800)

	p := d.DetectBearishEngulfing(prev, curr)
	if p == nil {
		t.Fatal("DetectBearishEngulfing() = nil, want pattern")
	}
	if p.Type != models.PatternBearishEngulfing {
		t.Errorf("Type = %v, want %v", p.Type, models.PatternBearishEngulfing)
	}
	if p.Confidence < 0.3 || p.Confidence > 1.0 {
		t.Errorf("Confidence = %v, want within [0.3, 1.0]", p.Confidence)
	}
}

func TestDetectRejectsNonEngulfingPairs(t *testing.T) {
	d := New()

	tests := []struct {
		name string
		prev models.Candlestick
		curr models.Candlestick
	}{
		{
			name: "two bullish candles",
			prev: candleAt(0, 100, 106, 99, 105, 1000),
			curr: candleAt(1, 105, 111, 104, 110, 1000),
		},
		{
			name: "bullish body does not engulf",
			prev: candleAt(0, 105, 106, 99, 100, 1000),
			curr: candleAt(1, 101, 104, 100, 103, 1000),
		},
		{
			name: "bearish body does not engulf",
			prev: candleAt(0, 100, 106, 99, 105, 1000),
			curr: candleAt(1, 104, 105, 101, 102, 1000),
		},
		{
			name: "doji current candle",
			prev: candleAt(0, 105, 106, 99, 100, 1000),
			curr: candleAt(1, 100, 103, 98, 100, 1000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if p := d.DetectBullishEngulfing(tt.prev, tt.curr); p != nil {
				t.Errorf("DetectBullishEngulfing() = %+v, want nil", p)
			}
			if p := d.DetectBearishEngulfing(tt.prev, tt.curr); p != nil {
				t.Errorf("DetectBearishEngulfing() = %+v, want nil", p)
			}
		})
	}
}

func TestDetectScansAdjacentPairs(t *testing.T) {
	d := New()

	candles := []models.Candlestick{
		candleAt(0, 100, 106, 99, 105, 1000),
		candleAt(1, 105, 106, 99, 100, 1000),  // bearish setup candle
		candleAt(2, 99, 108, 98, 107, 1500),   // bullish engulfing
		candleAt(3, 107, 112, 106, 111, 1200), // bullish, no pattern
	}

	patterns := d.Detect(candles)
	if len(patterns) != 1 {
		t.Fatalf("Detect() found %d patterns, want 1", len(patterns))
	}
	if patterns[0].Type != models.PatternBullishEngulfing {
		t.Errorf("Type = %v, want %v", patterns[0].Type, models.PatternBullishEngulfing)
	}
	if !patterns[0].Timestamp.Equal(candles[2].Timestamp) {
		t.Errorf("Timestamp = %v, want %v", patterns[0].Timestamp, candles[2].Timestamp)
	}
}

func TestDetectInsufficientData(t *testing.T) {
	d := New()

	if got := d.Detect(nil); len(got) != 0 {
		t.Errorf("Detect(nil) = %d patterns, want 0", len(got))
	}
	if got := d.Detect([]models.Candlestick{candleAt(0, 100, 101, 99, 100.5, 1000)}); len(got) != 0 {
		t.Errorf("Detect(1 candle) = %d patterns, want 0", len(got))
	}
}

func TestConfidenceVolumeContribution(t *testing.T) {
	d := New()

	prev := candleAt(0, 45000, 45200, 44500, 44600, 1000)
	flat := candleAt(1, 44400, 46000, 44300, 45800, 800)
	surge := candleAt(1, 44400, 46000, 44300, 45800, 2000)

	pFlat := d.DetectBullishEngulfing(prev, flat)
	pSurge := d.DetectBullishEngulfing(prev, surge)
	if pFlat == nil || pSurge == nil {
		t.Fatal("both pairs must form a bullish engulfing pattern")
	}

	// The flat contribution for non-increasing volume equals the maximum
	// scaled contribution, so a volume drop scores the same as a 1.5x surge.
	if math.Abs(pFlat.Confidence-pSurge.Confidence) > 1e-9 {
		t.Errorf("flat-volume confidence %v != capped surge confidence %v", pFlat.Confidence, pSurge.Confidence)
	}
}

func TestConfidenceZeroPrevBody(t *testing.T) {
	d := New()

	// Previous body of zero means polarity checks fail, so no pattern. The
	// confidence helper must still not divide by zero on near-doji bodies.
	prev := candleAt(0, 100.0001, 101, 99, 100, 1000)
	curr := candleAt(1, 99.5, 103, 99, 102, 1500)

	p := d.DetectBullishEngulfing(prev, curr)
	if p == nil {
		t.Fatal("near-doji previous candle must still form a pattern")
	}
	if math.IsNaN(p.Confidence) || math.IsInf(p.Confidence, 0) {
		t.Errorf("Confidence = %v, want finite", p.Confidence)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		t.Errorf("Confidence = %v, want within [0, 1]", p.Confidence)
	}
}

func TestValidatePattern(t *testing.T) {
	d := New()

	// Bodies dominate both ranges.
	strongPrev := candleAt(0, 101, 101.05, 99.95, 100, 1000)
	strongCurr := candleAt(1, 99.95, 101.15, 99.9, 101.1, 1500)
	strong, err := models.NewPattern(models.PatternBullishEngulfing, 0.8, strongCurr.Timestamp,
		[]models.Candlestick{strongPrev, strongCurr}, "test")
	if err != nil {
		t.Fatal(err)
	}
	if !d.ValidatePattern(strong) {
		t.Error("ValidatePattern() = false for full-bodied engulfing, want true")
	}

	// Long wicks push both bodies below the 0.6 body-to-range floor.
	weakPrev := candleAt(0, 45000, 45200, 44500, 44600, 1000)
	weakCurr := candleAt(1, 44400, 46000, 44300, 45800, 1500)
	weak, err := models.NewPattern(models.PatternBullishEngulfing, 0.8, weakCurr.Timestamp,
		[]models.Candlestick{weakPrev, weakCurr}, "test")
	if err != nil {
		t.Fatal(err)
	}
	if d.ValidatePattern(weak) {
		t.Error("ValidatePattern() = true for wick-heavy pattern, want false")
	}

	if d.ValidatePattern(nil) {
		t.Error("ValidatePattern(nil) = true, want false")
	}
}

func TestPatternStrength(t *testing.T) {
	d := New()
	ts := time.Now()
	pair := []models.Candlestick{
		candleAt(0, 101, 102, 99, 100, 1000),
		candleAt(1, 99, 103, 98, 102, 1000),
	}

	tests := []struct {
		confidence float64
		expected   string
	}{
		{0.95, "Very Strong"},
		{0.8, "Strong"},
		{0.6, "Moderate"},
		{0.4, "Weak"},
	}

	for _, tt := range tests {
		p, err := models.NewPattern(models.PatternBullishEngulfing, tt.confidence, ts, pair, "test")
		if err != nil {
			t.Fatal(err)
		}
		if got := d.PatternStrength(p); got != tt.expected {
			t.Errorf("PatternStrength(%v) = %v, want %v", tt.confidence, got, tt.expected)
		}
	}
}
