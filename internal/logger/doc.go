// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// The maintainer tool logs to stdout; the launcher redirects the global logger
// to stderr with NewWithSink so the wrapped tool owns stdout.
package logger
