// Command server runs the HTTP API exposing the analysis pipeline.
package main

import (
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
	"github.com/psam21/btct/internal/server"
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

	requestTimeout := time.Duration(cfg.RequestTimeout) * time.Second

	var source models.MarketDataSource
	switch cfg.DataSource {
	case "bitfinex":
		source = bitfinex.NewClient(requestTimeout)
		cfg.Symbol = cfg.BitfinexSymbol
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

	var db *database.DB
	if cfg.DatabaseConfigured() {
		db, err = database.New(database.ConnectionParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
	}

	detector := patterns.NewWithThresholds(cfg.MinBodyRatio, cfg.MinEngulfmentRatio)
	engine := signal.NewEngineWithDetector(cfg.MinConfidence, cfg.SignalTimeoutHours, detector)

	srv := server.New(cfg, engine, source, cfg.DataSource, cacheManager, db)
	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("HTTP server failed")
	}
}
