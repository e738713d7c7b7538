// Package bitfinex fetches historical candlestick data from the Bitfinex
// public API. Bitfinex carries BTC spot history back to 2013, which makes
// it the fallback source for long lookbacks the futures API cannot cover.
package bitfinex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/psam21/btct/models"
)

const (
	defaultBaseURL = "https://api-pub.bitfinex.com"

	// batchLimit is the Bitfinex per-request candle cap.
	batchLimit = 10000

	// batchWindow keeps each request to roughly one year of data.
	batchWindow = 365 * 24 * time.Hour
)

// Client is a rate-limited Bitfinex public API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// NewClient creates a Bitfinex client. Bitfinex allows 30 requests per
// minute on public endpoints, so the limiter paces one request per two
// seconds.
func NewClient(requestTimeout time.Duration) *Client {
	if requestTimeout == 0 {
		requestTimeout = 15 * time.Second
	}
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		logger:  log.With().Str("component", "bitfinex_client").Logger(),
	}
}

// FetchHistoricalData fetches candles in one-year batches, deduplicates
// them by timestamp and returns the assembled MarketData sorted ascending.
// A zero start defaults to 2013-01-01 and a zero end defaults to now. A
// failed batch is skipped rather than aborting the whole fetch.
func (c *Client) FetchHistoricalData(ctx context.Context, symbol, timeframe string, start, end time.Time) (*models.MarketData, error) {
	if start.IsZero() {
		start = time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)
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

	var all []models.Candlestick
	current := start
	for current.Before(end) {
		batchEnd := current.Add(batchWindow)
		if batchEnd.After(end) {
			batchEnd = end
		}

		batch, err := c.fetchBatch(ctx, symbol, timeframe, current, batchEnd)
		if err != nil {
			c.logger.Warn().Err(err).Time("batch_start", current).Msg("Skipping failed batch")
			current = current.Add(batchWindow)
			continue
		}

		all = append(all, batch...)
		c.logger.Debug().
			Int("count", len(batch)).
			Time("batch_start", current).
			Time("batch_end", batchEnd).
			Msg("Fetched batch")

		current = batchEnd.Add(24 * time.Hour)
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("no historical data fetched for %s", symbol)
	}

	md := models.NewMarketData(symbol, timeframe, all)
	c.logger.Info().Int("candles", len(md.Candles)).Msg("Historical data assembled")
	return md, nil
}

// fetchBatch requests one window of candles with rate limiting and
// exponential-backoff retries.
func (c *Client) fetchBatch(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]models.Candlestick, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/candles/trade:%s:%s/hist", c.baseURL, timeframe, symbol)
	params := url.Values{}
	params.Set("start", fmt.Sprintf("%d", start.UnixMilli()))
	params.Set("end", fmt.Sprintf("%d", end.UnixMilli()))
	params.Set("limit", fmt.Sprintf("%d", batchLimit))
	params.Set("sort", "1")

	requestURL := endpoint + "?" + params.Encode()

	var body []byte
	operation := func() error {
		// A fresh request per attempt, so retries never share state.
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("non-200 status code: %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response body: %w", err)
		}
		return nil
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(backoffStrategy, ctx)); err != nil {
		return nil, fmt.Errorf("after retries: %w", err)
	}

	return parseCandles(body, symbol, c.logger)
}

// parseCandles decodes the Bitfinex array-of-arrays payload. The record
// layout is [MTS, OPEN, CLOSE, HIGH, LOW, VOLUME] with millisecond epoch
// timestamps. Short records are skipped.
func parseCandles(body []byte, symbol string, logger zerolog.Logger) ([]models.Candlestick, error) {
	var raw [][]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	candles := make([]models.Candlestick, 0, len(raw))
	for _, rec := range raw {
		if len(rec) < 6 {
			logger.Warn().Int("fields", len(rec)).Msg("Skipping short candle record")
			continue
		}
		candles = append(candles, models.Candlestick{
			Timestamp: time.UnixMilli(int64(rec[0])).UTC(),
			Open:      rec[1],
			Close:     rec[2],
			High:      rec[3],
			Low:       rec[4],
			Volume:    rec[5],
			Symbol:    symbol,
		})
	}
	return candles, nil
}
