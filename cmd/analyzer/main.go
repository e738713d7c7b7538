// Command analyzer runs the full analysis pipeline once: fetch historical
// candles, detect engulfing patterns, generate trading signals and print a
// summary. Signals are persisted when a database is configured.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/psam21/btct/config"
	"github.com/psam21/btct/internal/cache"
	"github.com/psam21/btct/internal/database"
	"github.com/psam21/btct/internal/exchange/binance"
	"github.com/psam21/btct/internal/exchange/bitfinex"
	"github.com/psam21/btct/internal/patterns"
	"github.com/psam21/btct/internal/signal"
	"github.com/psam21/btct/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	lvl, _ := zerolog.ParseLevel(cfg.LogLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	ctx := context.Background()
	requestTimeout := time.Duration(cfg.RequestTimeout) * time.Second

	var source models.MarketDataSource
	symbol := cfg.Symbol
	switch cfg.DataSource {
	case "bitfinex":
		source = bitfinex.NewClient(requestTimeout)
		symbol = cfg.BitfinexSymbol
	default:
		source = binance.NewClient(cfg.BinanceAPIKey, cfg.BinanceSecret, requestTimeout)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
	}
	cacheManager := cache.NewManager(rdb, time.Duration(cfg.CacheTTL)*time.Second, "")

	var start time.Time
	if cfg.HistoryStart != "" {
		start, err = time.Parse("2006-01-02", cfg.HistoryStart)
		if err != nil {
			log.Fatal().Err(err).Str("value", cfg.HistoryStart).Msg("Invalid HISTORY_START, expected YYYY-MM-DD")
		}
	}

	started := time.Now()
	md, err := cacheManager.FetchMarketData(ctx, source, cfg.DataSource, symbol, cfg.Timeframe, start, time.Time{})
	if err != nil {
		log.Fatal().Err(err).Msg("Fetching market data failed")
	}

	detector := patterns.NewWithThresholds(cfg.MinBodyRatio, cfg.MinEngulfmentRatio)
	engine := signal.NewEngineWithDetector(cfg.MinConfidence, cfg.SignalTimeoutHours, detector)

	detected, signals := engine.Analyze(md)
	summary := signal.Summarize(signals)

	result := models.AnalysisResult{
		Timestamp:            started.UTC(),
		Symbol:               symbol,
		TotalCandlesAnalyzed: len(md.Candles),
		PatternsDetected:     len(detected),
		SignalsGenerated:     len(signals),
		AnalysisDurationMs:   float64(time.Since(started).Microseconds()) / 1000.0,
		Success:              true,
	}

	fmt.Printf("Analyzed %d candles for %s (%s)\n", len(md.Candles), symbol, cfg.Timeframe)
	fmt.Printf("Patterns detected: %d\n", len(detected))
	for _, p := range detected {
		validated := ""
		if detector.ValidatePattern(p) {
			validated = " [validated]"
		}
		fmt.Printf("  %s  %s  strength=%s%s\n",
			p.Timestamp.Format("2006-01-02"), p.Description, detector.PatternStrength(p), validated)
	}

	fmt.Printf("\nSignals generated: %d\n", len(signals))
	for _, s := range signals {
		fmt.Printf("  [%s] %s entry=%.2f confidence=%.1f%% (%s)\n",
			s.Timestamp.Format("2006-01-02"), s.Type, s.EntryPrice, s.Confidence*100, s.ConfidenceLevel)
		fmt.Printf("      %s\n", s.Commentary)
	}

	fmt.Printf("\nSummary: total=%d long=%d short=%d avg_confidence=%.2f\n",
		summary.TotalSignals, summary.BuySignals, summary.SellSignals, summary.AvgConfidence)
	for level, count := range summary.ConfidenceDistribution {
		fmt.Printf("  %s: %d\n", level, count)
	}
	fmt.Printf("Detection rate: %.4f patterns/candle, %.2f signals/pattern\n",
		result.PatternDetectionRate(), result.SignalGenerationRate())

	if cfg.DatabaseConfigured() {
		db, err := database.New(database.ConnectionParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to connect to database, skipping persistence")
			return
		}
		defer db.Close()

		if err := db.SaveSignals(signals); err != nil {
			log.Error().Err(err).Msg("Failed to persist signals")
		}
		if err := db.SaveAnalysisResult(result); err != nil {
			log.Error().Err(err).Msg("Failed to persist analysis result")
		}
		log.Info().Int("signals", len(signals)).Msg("Results persisted")
	}
}
