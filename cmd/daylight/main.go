package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/dokzlo13/daylight/internal/app"
	"github.com/dokzlo13/daylight/internal/config"
	"github.com/dokzlo13/daylight/internal/hue"
)

const deviceType = "daylight#daemon"

func main() {
	configPath := flag.StringP("config", "c", "config.yaml", "Path to configuration file")
	previewMode := flag.Bool("preview", false, "Print today's curves and exit")
	step := flag.Duration("step", 15*time.Minute, "Row spacing for --preview")
	pairMode := flag.Bool("pair", false, "Create a bridge token (press the link button first) and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logging
	setupLogging(cfg.Log.GetLevel(), cfg.Log.UseJSON, cfg.Log.Colors)

	if *pairMode {
		if err := pair(cfg); err != nil {
			log.Fatal().Err(err).Msg("Pairing failed")
		}
		return
	}

	log.Info().Str("config", *configPath).Msg("Starting daylight")

	// Create application
	application, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	if *previewMode {
		if err := application.Preview(os.Stdout, *step); err != nil {
			log.Fatal().Err(err).Msg("Failed to render preview")
		}
		return
	}

	// Create context that cancels on shutdown signal
	ctx := app.SignalContext()

	// Start the application
	if err := application.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	// Wait for shutdown
	application.Wait()

	// Graceful shutdown
	if err := application.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}

	if err := application.Err(); err != nil {
		os.Exit(1)
	}
}

func pair(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(app.SignalContext(), cfg.Hue.Timeout.Duration()*4)
	defer cancel()

	host := cfg.Hue.Bridge
	if host == "" {
		found, err := hue.Discover(ctx)
		if err != nil {
			return err
		}
		host = found
	}

	log.Info().Str("bridge", host).Msg("Pairing with bridge")
	token, err := hue.Pair(ctx, host, deviceType)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
