// Package database persists generated signals, analysis telemetry and
// broadcast subscribers in PostgreSQL.
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/psam21/btct/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection and ensures the schema exists.
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			signal_type TEXT NOT NULL,
			pattern_type TEXT NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			confidence_level TEXT NOT NULL,
			commentary TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_results (
			id SERIAL PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			symbol TEXT NOT NULL,
			total_candles_analyzed INT NOT NULL,
			patterns_detected INT NOT NULL,
			signals_generated INT NOT NULL,
			analysis_duration_ms DOUBLE PRECISION NOT NULL,
			success BOOLEAN NOT NULL,
			error_message TEXT
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS signal_subscribers (
			user_id BIGINT PRIMARY KEY,
			chat_id BIGINT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

// SaveSignals upserts a batch of signals keyed by signal id. Re-running an
// analysis over the same window therefore cannot create duplicate rows.
func (db *DB) SaveSignals(signals []*models.Signal) error {
	for _, sig := range signals {
		_, err := db.Exec(`
			INSERT INTO signals (
				id, timestamp, signal_type, pattern_type, entry_price,
				confidence, confidence_level, commentary
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id)
			DO UPDATE SET
				timestamp = EXCLUDED.timestamp,
				entry_price = EXCLUDED.entry_price,
				confidence = EXCLUDED.confidence,
				confidence_level = EXCLUDED.confidence_level,
				commentary = EXCLUDED.commentary
		`,
			sig.ID, sig.Timestamp, string(sig.Type), string(sig.PatternType),
			sig.EntryPrice, sig.Confidence, string(sig.ConfidenceLevel), sig.Commentary)
		if err != nil {
			return fmt.Errorf("saving signal %s: %w", sig.ID, err)
		}
	}
	return nil
}

// RecentSignals returns the most recently timestamped signals, newest first.
func (db *DB) RecentSignals(limit int) ([]*models.Signal, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Query(`
		SELECT id, timestamp, signal_type, pattern_type, entry_price,
		       confidence, confidence_level, commentary
		FROM signals
		ORDER BY timestamp DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []*models.Signal
	for rows.Next() {
		var (
			id, signalType, patternType, confidenceLevel string
			timestamp                                    time.Time
			entryPrice, confidence                       float64
			commentary                                   sql.NullString
		)
		if err := rows.Scan(&id, &timestamp, &signalType, &patternType,
			&entryPrice, &confidence, &confidenceLevel, &commentary); err != nil {
			return nil, err
		}

		sig, err := models.NewSignal(
			id, timestamp,
			models.SignalType(signalType), models.PatternType(patternType),
			entryPrice, confidence, commentary.String, nil, nil,
		)
		if err != nil {
			return nil, fmt.Errorf("stored signal %s fails validation: %w", id, err)
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// SaveAnalysisResult records one analysis run for telemetry.
func (db *DB) SaveAnalysisResult(result models.AnalysisResult) error {
	_, err := db.Exec(`
		INSERT INTO analysis_results (
			timestamp, symbol, total_candles_analyzed, patterns_detected,
			signals_generated, analysis_duration_ms, success, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		result.Timestamp, result.Symbol, result.TotalCandlesAnalyzed,
		result.PatternsDetected, result.SignalsGenerated,
		result.AnalysisDurationMs, result.Success, result.ErrorMessage)
	return err
}

// Subscriber is a Telegram chat registered for signal broadcasts.
type Subscriber struct {
	UserID int64
	ChatID int64
}

// Subscribe registers a chat for signal broadcasts.
func (db *DB) Subscribe(userID, chatID int64) error {
	_, err := db.Exec(`
		INSERT INTO signal_subscribers (user_id, chat_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET chat_id = EXCLUDED.chat_id
	`, userID, chatID)
	return err
}

// GetAllSubscribers returns every registered broadcast subscriber.
func (db *DB) GetAllSubscribers() ([]Subscriber, error) {
	rows, err := db.Query(`SELECT user_id, chat_id FROM signal_subscribers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscriber
	for rows.Next() {
		var s Subscriber
		if err := rows.Scan(&s.UserID, &s.ChatID); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
