package settings

import "time"

// LogEvent describes one store or gate operation for logging.
type LogEvent struct {
	Op       string
	Key      string
	Engine   string
	Rule     string
	Duration time.Duration
	Err      error
}

// Logger records store events. Implementations adapt whatever logging the
// host application already uses.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

// WithLogger attaches a logger to the store.
func WithLogger(logger Logger) Option {
	return func(cfg *storeConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}
