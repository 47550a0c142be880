package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds a console logger for the given environment and installs it as the
// zerolog global logger. DEV logs at debug level in colour, everything else at info.
func New(environment string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	dev := strings.EqualFold(environment, "DEV")

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    !dev,
	}

	logger := zerolog.New(output).With().
		Timestamp().
		Str("env", environment).
		Logger()

	if dev {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	log.Logger = logger
	return logger
}
