// Package server exposes the analysis pipeline over HTTP for dashboard
// clients: a health probe, an on-demand analysis endpoint and access to
// persisted signals.
package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/psam21/btct/config"
	"github.com/psam21/btct/internal/cache"
	"github.com/psam21/btct/internal/database"
	"github.com/psam21/btct/internal/signal"
	"github.com/psam21/btct/models"
)

// Server wires the market data source, cache, signal engine and optional
// database behind HTTP handlers. The engine mutates shared dedup state, so
// analysis runs are serialized with a mutex.
type Server struct {
	cfg        *config.Config
	engine     *signal.Engine
	source     models.MarketDataSource
	sourceName string
	cache      *cache.Manager
	db         *database.DB
	logger     zerolog.Logger

	mu sync.Mutex
}

// New creates a Server. db may be nil; the signals endpoint then reports
// that persistence is not configured.
func New(cfg *config.Config, engine *signal.Engine, source models.MarketDataSource,
	sourceName string, cacheManager *cache.Manager, db *database.DB) *Server {

	return &Server{
		cfg:        cfg,
		engine:     engine,
		source:     source,
		sourceName: sourceName,
		cache:      cacheManager,
		db:         db,
		logger:     log.With().Str("component", "http_server").Logger(),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)

	api := router.Group("/api/v1")
	api.GET("/analysis", s.handleAnalysis)
	api.GET("/signals", s.handleSignals)

	return router
}

// Run starts the HTTP server on the configured address.
func (s *Server) Run() error {
	s.logger.Info().Str("addr", s.cfg.HTTPAddr).Msg("Starting HTTP server")
	return s.Router().Run(s.cfg.HTTPAddr)
}

type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{Status: "ok", Time: time.Now().UTC()})
}

type analysisResponse struct {
	Symbol    string                `json:"symbol"`
	Timeframe string                `json:"timeframe"`
	Candles   int                   `json:"candles"`
	Patterns  []*models.Pattern     `json:"patterns"`
	Signals   []*models.Signal      `json:"signals"`
	Summary   signal.Summary        `json:"summary"`
	Result    models.AnalysisResult `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleAnalysis fetches market data (cache-first), runs pattern detection
// and signal generation and returns the full result.
func (s *Server) handleAnalysis(c *gin.Context) {
	symbol := c.DefaultQuery("symbol", s.cfg.Symbol)
	timeframe := c.DefaultQuery("timeframe", s.cfg.Timeframe)

	started := time.Now()

	md, err := s.cache.FetchMarketData(c.Request.Context(), s.source, s.sourceName,
		symbol, timeframe, time.Time{}, time.Time{})
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("Market data fetch failed")
		c.JSON(http.StatusBadGateway, errorResponse{Error: "market data fetch failed"})
		return
	}

	s.mu.Lock()
	detected, signals := s.engine.Analyze(md)
	s.mu.Unlock()

	result := models.AnalysisResult{
		Timestamp:            started.UTC(),
		Symbol:               symbol,
		TotalCandlesAnalyzed: len(md.Candles),
		PatternsDetected:     len(detected),
		SignalsGenerated:     len(signals),
		AnalysisDurationMs:   float64(time.Since(started).Microseconds()) / 1000.0,
		Success:              true,
	}

	if s.db != nil {
		if err := s.db.SaveSignals(signals); err != nil {
			s.logger.Error().Err(err).Msg("Failed to persist signals")
		}
		if err := s.db.SaveAnalysisResult(result); err != nil {
			s.logger.Error().Err(err).Msg("Failed to persist analysis result")
		}
	}

	c.JSON(http.StatusOK, analysisResponse{
		Symbol:    symbol,
		Timeframe: timeframe,
		Candles:   len(md.Candles),
		Patterns:  detected,
		Signals:   signals,
		Summary:   signal.Summarize(signals),
		Result:    result,
	})
}

type signalsResponse struct {
	Signals []*models.Signal `json:"signals"`
	Summary signal.Summary   `json:"summary"`
}

// handleSignals serves the most recently persisted signals.
func (s *Server) handleSignals(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "persistence not configured"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	signals, err := s.db.RecentSignals(limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load signals")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load signals"})
		return
	}

	c.JSON(http.StatusOK, signalsResponse{
		Signals: signals,
		Summary: signal.Summarize(signals),
	})
}
