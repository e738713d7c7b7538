package models

import "time"

// TimeframeDuration returns the nominal duration of one candle for the
// given timeframe string. Unknown timeframes fall back to one day so batch
// windows stay finite.
func TimeframeDuration(timeframe string) time.Duration {
	switch timeframe {
	case "1m", "1min":
		return time.Minute
	case "5m", "5min":
		return 5 * time.Minute
	case "15m", "15min":
		return 15 * time.Minute
	case "30m", "30min":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d", "1D", "1day":
		return 24 * time.Hour
	case "1w", "1W", "1week":
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
