// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger writing console lines to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing for the --log-level flag,
//   - convenience functions (Info, InfoKV, WarnKV, etc.).
//
// Every pipeline step receives a context and extracts the logger from it, so
// the step name and target chip follow each message.
package logger
