// Package logger provides structured logging with configurable log levels.
// It wraps the standard log/slog package and can duplicate output into a
// rotated log file for long-running deployments.
package logger
