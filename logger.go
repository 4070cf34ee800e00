package strata

import (
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/stratahq/strata/schemas"
)

// DefaultLogger adapts zerolog to the kit's Logger interface. Level changes
// take effect for subsequent messages; the zero value is not usable, use
// NewDefaultLogger.
type DefaultLogger struct {
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewDefaultLogger creates a stderr logger at the given level.
func NewDefaultLogger(level schemas.LogLevel) *DefaultLogger {
	logger := zerolog.New(os.Stderr).
		With().
		Timestamp().
		Str("component", "strata").
		Logger().
		Level(toZerologLevel(level))
	return &DefaultLogger{logger: logger}
}

func toZerologLevel(level schemas.LogLevel) zerolog.Level {
	switch level {
	case schemas.LogLevelDebug:
		return zerolog.DebugLevel
	case schemas.LogLevelWarn:
		return zerolog.WarnLevel
	case schemas.LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *DefaultLogger) Debug(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Debug().Msg(msg)
}

func (l *DefaultLogger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Info().Msg(msg)
}

func (l *DefaultLogger) Warn(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Warn().Msg(msg)
}

func (l *DefaultLogger) Error(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Error().Err(err).Msg("")
}

// SetLevel changes the minimum level logged from now on.
func (l *DefaultLogger) SetLevel(level schemas.LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = l.logger.Level(toZerologLevel(level))
}
