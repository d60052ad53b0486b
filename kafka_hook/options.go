package kafkahook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger for the extension.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) {
		e.logger = logger
	}
}

// WithWriter replaces the Kafka writer. Used in tests.
func WithWriter(w MessageWriter) Option {
	return func(e *Extension) {
		e.writer = w
	}
}
