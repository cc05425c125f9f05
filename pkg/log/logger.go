package log

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type LoggerType uint8

const (
	ConsoleLogger LoggerType = iota
	JSONLogger
)

// The component loggers default to no-ops so library code can log before
// Init runs (tests, embedded use).
var (
	Root  = zerolog.Nop()
	Sim   = zerolog.Nop()
	Store = zerolog.Nop()
)

// Options for the loggers.
type Options struct {
	// LogLevel enables levels up from the given one; the zero value is
	// zerolog.DebugLevel.
	LogLevel zerolog.Level
	Type     LoggerType
}

func ParseLogLevel(loglevel string) (zerolog.Level, error) {
	return zerolog.ParseLevel(loglevel)
}

func Init(opts Options) {
	switch opts.Type {
	case ConsoleLogger:
		cw := newConsoleWriter()
		Root = zerolog.New(cw).Level(opts.LogLevel).
			With().Timestamp().Logger()
	default:
		Root = zerolog.New(os.Stdout).Level(opts.LogLevel).
			With().Timestamp().Logger()
	}
	Sim = Root.With().Str("component", "sim").Logger()
	Store = Root.With().Str("component", "store").Logger()
}

func newConsoleWriter() zerolog.ConsoleWriter {
	cw := zerolog.ConsoleWriter{Out: os.Stdout, NoColor: true, TimeFormat: time.RFC3339}

	cw.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	cw.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s=", i)
	}
	return cw
}
