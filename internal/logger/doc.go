// Package logger wraps zap for the qidev binary:
//   - a global sugared logger writing a console format to stderr,
//   - level parsing and switching (the --verbose flag maps to debug),
//   - context helpers so command handlers can carry a named logger,
//   - Component, which hands a named logger to constructors.
//
// stdout is reserved for command results; diagnostics always go to stderr.
package logger
