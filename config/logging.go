package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupEnvironment loads .env, then configures zerolog output and level.
// It must run before Load so that .env values are visible.
func SetupEnvironment() {
	err := godotenv.Load()

	production := os.Getenv("ENV") == "production"
	if production {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	zerolog.SetGlobalLevel(parseLevel(os.Getenv("LOGLEVEL"), production))

	// reported after logging is set up
	if err == nil {
		log.Debug().Msg("Loaded .env file")
	} else {
		log.Debug().Msg("No .env file found, using environment variables")
	}
}

func parseLevel(value string, production bool) zerolog.Level {
	if value == "" {
		if production {
			return zerolog.WarnLevel
		}
		return zerolog.InfoLevel
	}
	if value == "warning" {
		value = "warn"
	}
	level, err := zerolog.ParseLevel(value)
	if err != nil {
		log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", value)
		return zerolog.InfoLevel
	}
	return level
}
