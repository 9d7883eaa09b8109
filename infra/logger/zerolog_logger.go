package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	outMu   sync.RWMutex
	console           = devEnv()
	output  io.Writer = os.Stdout
)

func setOutput(w io.Writer, human bool) {
	outMu.Lock()
	output, console = w, human
	outMu.Unlock()
}

// ZerologLogger implements Logger on rs/zerolog. Every entry carries the
// component field.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger returns a logger writing to the output chosen by
// Configure, stdout by default. Without a configured format APP_ENV=dev
// switches to the console writer.
func NewZerologLogger(component string) Logger {
	outMu.RLock()
	w, human := output, console
	outMu.RUnlock()
	return newZerolog(component, w, human)
}

func newZerolog(component string, w io.Writer, human bool) *ZerologLogger {
	if human {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return &ZerologLogger{log: zerolog.New(w).With().Timestamp().Str("component", component).Logger()}
}

func devEnv() bool { return strings.EqualFold(os.Getenv("APP_ENV"), "dev") }

func (l *ZerologLogger) Debugf(format string, args ...any) { l.log.Debug().Msgf(format, args...) }

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any)  { l.log.Info().Msgf(format, args...) }
func (l *ZerologLogger) Warnf(format string, args ...any)  { l.log.Warn().Msgf(format, args...) }
func (l *ZerologLogger) Errorf(format string, args ...any) { l.log.Error().Msgf(format, args...) }
