package models

import (
	"testing"
	"time"
)

func TestCandlestickDerivedValues(t *testing.T) {
	c := Candlestick{
		Open:  100,
		High:  110,
		Low:   95,
		Close: 105,
	}

	if !c.IsBullish() {
		t.Error("IsBullish() = false, want true")
	}
	if c.IsBearish() {
		t.Error("IsBearish() = true, want false")
	}
	if got := c.BodySize(); got != 5 {
		t.Errorf("BodySize() = %v, want 5", got)
	}
	if got := c.UpperShadow(); got != 5 {
		t.Errorf("UpperShadow() = %v, want 5", got)
	}
	if got := c.LowerShadow(); got != 5 {
		t.Errorf("LowerShadow() = %v, want 5", got)
	}
	if got := c.TotalRange(); got != 15 {
		t.Errorf("TotalRange() = %v, want 15", got)
	}
}

func TestCandlestickDoji(t *testing.T) {
	c := Candlestick{Open: 100, High: 101, Low: 99, Close: 100}

	if c.IsBullish() || c.IsBearish() {
		t.Error("doji candle must be neither bullish nor bearish")
	}
	if got := c.BodySize(); got != 0 {
		t.Errorf("BodySize() = %v, want 0", got)
	}
}

func TestConfidenceLevelFor(t *testing.T) {
	tests := []struct {
		confidence float64
		expected   ConfidenceLevel
	}{
		{0.0, ConfidenceLow},
		{0.49, ConfidenceLow},
		{0.5, ConfidenceMedium},
		{0.74, ConfidenceMedium},
		{0.75, ConfidenceHigh},
		{0.89, ConfidenceHigh},
		{0.9, ConfidenceVeryHigh},
		{1.0, ConfidenceVeryHigh},
	}

	for _, tt := range tests {
		if got := ConfidenceLevelFor(tt.confidence); got != tt.expected {
			t.Errorf("ConfidenceLevelFor(%v) = %v, want %v", tt.confidence, got, tt.expected)
		}
	}
}

func TestNewPatternValidation(t *testing.T) {
	now := time.Now()
	pair := []Candlestick{
		{Open: 101, Close: 100},
		{Open: 99, Close: 102},
	}

	tests := []struct {
		name       string
		confidence float64
		candles    []Candlestick
		wantErr    bool
	}{
		{"valid", 0.8, pair, false},
		{"confidence above one", 1.1, pair, true},
		{"negative confidence", -0.1, pair, true},
		{"single candle", 0.8, pair[:1], true},
		{"no candles", 0.8, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPattern(PatternBullishEngulfing, tt.confidence, now, tt.candles, "test")
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewPattern() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.ConfidenceLevel != ConfidenceLevelFor(tt.confidence) {
				t.Errorf("ConfidenceLevel = %v, want %v", p.ConfidenceLevel, ConfidenceLevelFor(tt.confidence))
			}
		})
	}
}

func TestNewSignalValidation(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name       string
		entryPrice float64
		confidence float64
		wantErr    bool
	}{
		{"valid", 45000, 0.8, false},
		{"zero entry price", 0, 0.8, true},
		{"negative entry price", -1, 0.8, true},
		{"confidence out of range", 45000, 1.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSignal("id", now, SignalGoLong, PatternBullishEngulfing,
				tt.entryPrice, tt.confidence, "commentary", nil, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSignal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && s.Type != SignalGoLong {
				t.Errorf("Type = %v, want %v", s.Type, SignalGoLong)
			}
		})
	}
}

func TestNewMarketDataDedupAndSort(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []Candlestick{
		{Timestamp: base.Add(48 * time.Hour), Close: 300},
		{Timestamp: base, Close: 100},
		{Timestamp: base.Add(24 * time.Hour), Close: 200},
		// duplicate timestamp, the later entry must win
		{Timestamp: base, Close: 150},
	}

	md := NewMarketData("BTCUSDT", "1d", candles)

	if len(md.Candles) != 3 {
		t.Fatalf("len(Candles) = %d, want 3", len(md.Candles))
	}
	for i := 1; i < len(md.Candles); i++ {
		if md.Candles[i].Timestamp.Before(md.Candles[i-1].Timestamp) {
			t.Fatal("candles are not sorted ascending by timestamp")
		}
	}
	if md.Candles[0].Close != 150 {
		t.Errorf("duplicate timestamp kept Close=%v, want latest-seen 150", md.Candles[0].Close)
	}
	if got := md.LatestCandle().Close; got != 300 {
		t.Errorf("LatestCandle().Close = %v, want 300", got)
	}
}

func TestMarketDataEmpty(t *testing.T) {
	md := NewMarketData("BTCUSDT", "1d", nil)

	if md.LatestCandle() != nil {
		t.Error("LatestCandle() on empty data must be nil")
	}
	if md.LatestSignal() != nil {
		t.Error("LatestSignal() on empty data must be nil")
	}
}

func TestCandlesByDateRange(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var candles []Candlestick
	for i := 0; i < 10; i++ {
		candles = append(candles, Candlestick{Timestamp: base.AddDate(0, 0, i)})
	}
	md := NewMarketData("BTCUSDT", "1d", candles)

	got := md.CandlesByDateRange(base.AddDate(0, 0, 2), base.AddDate(0, 0, 5))
	if len(got) != 4 {
		t.Errorf("CandlesByDateRange() returned %d candles, want 4 (bounds inclusive)", len(got))
	}
}

func TestAnalysisResultRates(t *testing.T) {
	r := AnalysisResult{TotalCandlesAnalyzed: 100, PatternsDetected: 5, SignalsGenerated: 3}
	if got := r.PatternDetectionRate(); got != 0.05 {
		t.Errorf("PatternDetectionRate() = %v, want 0.05", got)
	}
	if got := r.SignalGenerationRate(); got != 0.6 {
		t.Errorf("SignalGenerationRate() = %v, want 0.6", got)
	}

	empty := AnalysisResult{}
	if empty.PatternDetectionRate() != 0 || empty.SignalGenerationRate() != 0 {
		t.Error("rates on an empty result must be 0, not NaN")
	}
}

func TestTimeframeDuration(t *testing.T) {
	tests := []struct {
		timeframe string
		expected  time.Duration
	}{
		{"1m", time.Minute},
		{"1h", time.Hour},
		{"1d", 24 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"unknown", 24 * time.Hour},
	}

	for _, tt := range tests {
		if got := TimeframeDuration(tt.timeframe); got != tt.expected {
			t.Errorf("TimeframeDuration(%q) = %v, want %v", tt.timeframe, got, tt.expected)
		}
	}
}
