package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger. verbose forces debug level.
func Setup(w io.Writer, level string, verbose bool) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return zerolog.Nop(), err
		}
		lvl = parsed
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(lvl)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	log.Logger = logger
	return logger, nil
}
