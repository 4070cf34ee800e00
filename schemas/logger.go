package schemas

// LogLevel represents the severity of a log message.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Logger is the interface the kit logs through. Callers may supply their own
// implementation; the kit falls back to a zerolog-backed default.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(err error)
	SetLevel(level LogLevel)
}
