// Command broadcast sends the most recent trading signals to every
// registered Telegram subscriber.
package main

import (
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/psam21/btct/config"
	"github.com/psam21/btct/internal/database"
	"github.com/psam21/btct/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	lvl, _ := zerolog.ParseLevel(cfg.LogLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	if !cfg.DatabaseConfigured() {
		log.Fatal().Msg("Database not configured, nothing to broadcast")
	}
	if cfg.TelegramBotToken == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN not set in environment")
	}

	db, err := database.New(database.ConnectionParams{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	signals, err := db.RecentSignals(5)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load recent signals")
	}
	if len(signals) == 0 {
		log.Info().Msg("No signals to broadcast")
		return
	}

	subscribers, err := db.GetAllSubscribers()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get subscribers from database")
	}
	log.Info().Int("subscribers", len(subscribers)).Int("signals", len(signals)).Msg("Broadcasting signals")

	message := formatSignals(cfg.Symbol, signals)

	successCount := 0
	errorCount := 0
	for i, sub := range subscribers {
		msg := tgbotapi.NewMessage(sub.ChatID, message)
		msg.ParseMode = "Markdown"

		if _, err := bot.Send(msg); err != nil {
			log.Error().Err(err).Int64("chat_id", sub.ChatID).Msg("Failed to send message")
			errorCount++
		} else {
			successCount++
		}

		// Telegram allows 30 messages per second for bots
		if i < len(subscribers)-1 {
			time.Sleep(50 * time.Millisecond)
		}
	}

	log.Info().
		Int("sent", successCount).
		Int("failed", errorCount).
		Int("total", len(subscribers)).
		Msg("Broadcast completed")
}

// formatSignals renders a batch of signals as a Markdown message.
func formatSignals(symbol string, signals []*models.Signal) string {
	out := fmt.Sprintf("*%s latest trading signals*\n\n", symbol)
	for _, s := range signals {
		emoji := "🟢"
		if s.Type == models.SignalGoShort {
			emoji = "🔴"
		}
		out += fmt.Sprintf("%s *%s* (%s)\nEntry: %.2f | Confidence: %.1f%% (%s)\n%s\n\n",
			emoji, s.Type, s.Timestamp.Format("2006-01-02"),
			s.EntryPrice, s.Confidence*100, s.ConfidenceLevel, s.Commentary)
	}
	return out
}
