// Package log provides structured, leveled logging for blaze components.
//
// Loggers carry typed fields and are passed explicitly via dependency
// injection; there is no global logger. A child logger created with With
// inherits the parent's fields, which is how components tag their output:
//
//	logger := log.NewLogger(log.WithLevel(log.DebugLevel))
//	fetchLog := logger.With(log.Component("shuffle-fetch"))
//	fetchLog.Info("opened streams", log.Int("workers", n))
//
// Two formatters are provided: TextFormatter for interactive use and
// JSONFormatter for machine consumption. Output defaults to stderr.
package log
