// Package qlog wires up the process-wide structured logger. It plays the
// same role as the teacher's pkg/errlog: a small amount of global state
// configured once from CLI flags, backing a shared logrus.Logger used
// throughout the scheduler.
package qlog

import (
	"fmt"
	"io"
	"os"

	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
)

// DebugOutput controls whether error logging includes a full trace. Set
// by --verbose.
var DebugOutput = false

// log is the shared logger instance. Exported accessors below are
// preferred over reaching into this directly.
var log = logrus.New()

// Options configures the logger from the command's common flags.
type Options struct {
	Verbose          bool
	JSON             bool
	SuppressWarnings bool
	LogFile          string
}

// Configure applies Options to the shared logger, once at startup after
// flag parsing. Each call with a LogFile adds another file hook, so a
// second such call writes every entry to the file twice.
func Configure(opts Options) error {
	DebugOutput = opts.Verbose

	if opts.JSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level := logrus.InfoLevel
	switch {
	case opts.Verbose:
		level = logrus.DebugLevel
	case opts.SuppressWarnings:
		level = logrus.ErrorLevel
	}
	log.SetLevel(level)

	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening log file %q: %w", opts.LogFile, err)
		}
		writers := lfshook.WriterMap{}
		for _, lvl := range logrus.AllLevels {
			writers[lvl] = f
		}
		log.AddHook(lfshook.NewHook(writers, log.Formatter))
	}

	return nil
}

// Logger returns the shared logger for callers that want a *logrus.Entry
// (e.g. to attach fields).
func Logger() *logrus.Logger { return log }

// SetOutput redirects where non-file-hooked output goes; mainly used by
// tests to silence log output.
func SetOutput(w io.Writer) { log.SetOutput(w) }

// LogError logs err at Error level. When DebugOutput is set, it also
// includes the wrapped cause chain.
func LogError(err error) {
	if err == nil {
		return
	}
	if DebugOutput {
		log.WithField("trace", fmt.Sprintf("%+v", err)).Error(err)
		return
	}
	log.Error(err.Error())
}

// Warn logs a warning, used for the scheduler's best-effort failure paths
// (snapshot write failures, progress-callback panics) that must not abort
// a job.
func Warn(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// Infof logs at Info level.
func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// Debugf logs at Debug level.
func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}
