// Package logger holds the process-wide zerolog instance shared by the
// library. The default writes human-readable lines to stdout and is muted
// when running under `go test`.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	w := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	logger = zerolog.New(w).With().Timestamp().Logger()

	if strings.HasSuffix(os.Args[0], ".test") {
		logger = zerolog.Nop()
	}
}

// SetOutput redirects the global logger to w.
func SetOutput(w io.Writer) {
	logger = logger.Output(w)
}

// Set replaces the global logger wholesale.
func Set(l zerolog.Logger) {
	logger = l
}

// Disable mutes all logging.
func Disable() {
	logger = zerolog.Nop()
}

// Logger returns the global logger; components derive their subloggers
// from it.
func Logger() zerolog.Logger {
	return logger
}
