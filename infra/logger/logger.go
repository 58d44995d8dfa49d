package logger

import corelogger "github.com/kilianp07/railopt/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger discards every message.
type NopLogger = corelogger.Nop

// Options configure loggers created by New.
type Options struct {
	// Level is a zerolog level name; empty keeps "info".
	Level string
	// Console forces the human readable writer regardless of APP_ENV.
	Console bool
}

var defaults Options

// Configure sets the options applied to loggers created afterwards.
func Configure(o Options) { defaults = o }

// New returns a Logger for the given component. The output format follows
// the APP_ENV variable unless Configure forced the console writer.
func New(component string) Logger {
	return NewZerologLogger(component, defaults)
}
