// Package binance fetches historical candlestick data from the Binance
// futures API in paginated batches and assembles it into MarketData.
package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/psam21/btct/models"
)

const (
	// batchSize is the Binance API kline limit per request.
	batchSize = 1000

	// requestsPerSec stays well under the Binance weight limits.
	requestsPerSec = 10
	requestBurst   = 20
)

// Client wraps the Binance futures REST client with rate limiting.
type Client struct {
	client  *futures.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewClient creates a Binance client. API keys may be empty for public
// market-data endpoints.
func NewClient(apiKey, secretKey string, requestTimeout time.Duration) *Client {
	if requestTimeout == 0 {
		requestTimeout = 10 * time.Second
	}

	httpClient := &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	futuresClient := futures.NewClient(apiKey, secretKey)
	futuresClient.HTTPClient = httpClient

	return &Client{
		client:  futuresClient,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), requestBurst),
		logger:  log.With().Str("component", "binance_client").Logger(),
	}
}

// FetchHistoricalData fetches candles for the date range in batches of up
// to 1000 bars, deduplicates them by timestamp and returns the assembled
// MarketData sorted ascending. A zero start defaults to 2019-01-01 and a
// zero end defaults to now. A failed batch ends the loop; candles fetched
// so far are still returned.
func (c *Client) FetchHistoricalData(ctx context.Context, symbol, timeframe string, start, end time.Time) (*models.MarketData, error) {
	if start.IsZero() {
		start = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if end.IsZero() {
		end = time.Now()
	}

	c.logger.Info().
		Str("symbol", symbol).
		Str("timeframe", timeframe).
		Time("start", start).
		Time("end", end).
		Msg("Fetching historical data")

	batchWindow := models.TimeframeDuration(timeframe) * batchSize

	var all []models.Candlestick
	current := start
	for current.Before(end) {
		batchEnd := current.Add(batchWindow)
		if batchEnd.After(end) {
			batchEnd = end
		}

		klines, err := c.fetchBatch(ctx, symbol, timeframe, current, batchEnd)
		if err != nil {
			c.logger.Error().Err(err).Time("batch_start", current).Msg("Batch fetch failed")
			break
		}
		if len(klines) == 0 {
			c.logger.Debug().Time("batch_start", current).Msg("No data for batch")
			break
		}

		all = append(all, convertKlines(klines, symbol, c.logger)...)
		c.logger.Debug().
			Int("count", len(klines)).
			Time("batch_start", current).
			Time("batch_end", batchEnd).
			Msg("Fetched batch")

		current = batchEnd.Add(time.Second)
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("no historical data fetched for %s", symbol)
	}

	md := models.NewMarketData(symbol, timeframe, all)
	c.logger.Info().Int("candles", len(md.Candles)).Msg("Historical data assembled")
	return md, nil
}

func (c *Client) fetchBatch(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]*futures.Kline, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	klines, err := c.client.NewKlinesService().
		Symbol(symbol).
		Interval(timeframe).
		StartTime(start.UnixMilli()).
		EndTime(end.UnixMilli()).
		Limit(batchSize).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("klines request: %w", err)
	}
	return klines, nil
}

// convertKlines maps Binance kline records onto Candlesticks. Records with
// unparseable prices are skipped, not fatal.
func convertKlines(klines []*futures.Kline, symbol string, logger zerolog.Logger) []models.Candlestick {
	candles := make([]models.Candlestick, 0, len(klines))
	for _, k := range klines {
		open, err1 := strconv.ParseFloat(k.Open, 64)
		high, err2 := strconv.ParseFloat(k.High, 64)
		low, err3 := strconv.ParseFloat(k.Low, 64)
		closePrice, err4 := strconv.ParseFloat(k.Close, 64)
		volume, err5 := strconv.ParseFloat(k.Volume, 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			logger.Warn().Int64("open_time", k.OpenTime).Msg("Skipping unparseable kline")
			continue
		}

		candles = append(candles, models.Candlestick{
			Timestamp: time.UnixMilli(k.OpenTime).UTC(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
			Symbol:    symbol,
		})
	}
	return candles
}
