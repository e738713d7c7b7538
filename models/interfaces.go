package models

import (
	"context"
	"time"
)

// MarketDataSource abstracts an exchange backend that can supply historical
// candle data for a symbol and timeframe over a date range.
type MarketDataSource interface {
	FetchHistoricalData(ctx context.Context, symbol, timeframe string, start, end time.Time) (*MarketData, error)
}
