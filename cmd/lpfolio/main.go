// LPfolio - Telegram bot for tracking liquidity-provider portfolios
//
// Users paste their LP dashboard text (or send a screenshot), an AI model
// cascade extracts the structured fields, and the result is saved under a
// user-chosen account slot. Daily snapshots power day-over-day growth
// reports.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danverbz/lpfolio/internal/bot"
	"github.com/danverbz/lpfolio/internal/config"
	"github.com/danverbz/lpfolio/internal/database"
	"github.com/danverbz/lpfolio/internal/extract"
)

const version = "1.0.0"

func main() {
	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load environment
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("version", version).
		Strs("text_models", cfg.TextModels).
		Strs("vision_models", cfg.VisionModels).
		Msg("📒 LPfolio starting...")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// AI extraction cascade
	extractor := extract.NewClient(
		cfg.AIBaseURL,
		cfg.AIAPIKey,
		cfg.TextModels,
		cfg.VisionModels,
		cfg.RequestTimeout,
		cfg.CascadeTimeout,
	)

	// Telegram bot
	telegramBot, err := bot.New(cfg, db, extractor)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	telegramBot.Start()
	log.Info().Msg("✅ All systems online")
	log.Info().Msg("💡 Send /start to the bot to begin")

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("🛑 Received shutdown signal")
	telegramBot.Stop()
	log.Info().Msg("👋 Goodbye!")
}
