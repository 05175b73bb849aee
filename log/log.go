// Package log provides loggers for pipelines and single-shot filters.
package log

import (
	"io"

	"github.com/sirupsen/logrus"

	"pipelined.dev/tensorpipe/config"
)

// Logger is a global interface for tensorpipe loggers.
type Logger = logrus.FieldLogger

// GetLogger returns a new logger instance. Debug level is enabled with
// TENSORPIPE_DEBUG environment variable.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if config.Debug() {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Discard returns a logger that drops all entries.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}
