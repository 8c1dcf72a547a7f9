// Package logger provides structured logging with configurable log levels.
// It wraps the standard log/slog package, emits JSON in prod and text
// otherwise, and stamps every record with the service and environment.
package logger
