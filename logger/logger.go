package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	log   zerolog.Logger
	level = zerolog.ErrorLevel
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339
	SetOutput(os.Stderr)
}

// SetOutput points the logger at w. Stdout is reserved for the probe's status
// line, so callers should only ever pass stderr or a test buffer.
func SetOutput(w io.Writer) {
	var output io.Writer = zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    w != os.Stderr,
	}

	log = zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func GetLogger() *zerolog.Logger {
	return &log
}

func SetLogLevel(verboseCount int) {
	switch {
	case verboseCount == 1:
		level = zerolog.WarnLevel
	case verboseCount == 2:
		level = zerolog.InfoLevel
	case verboseCount == 3:
		level = zerolog.DebugLevel
	case verboseCount >= 4:
		level = zerolog.TraceLevel
	default:
		level = zerolog.ErrorLevel
	}
	log = log.Level(level)
}

// Disable silences all logging, used while the wizard owns the terminal.
func Disable() {
	level = zerolog.Disabled
	log = log.Level(level)
}
