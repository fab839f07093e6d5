// Package logging provides structured logging for Luma Core.
//
// It wraps the standard log/slog package so every component logs with the
// same handler configuration: JSON or text output, level filtering, and
// default service/version fields.
//
// Usage:
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 8080)
//	logger.Error("failed to connect", "error", err)
//
// Never log secrets, tokens, or password material.
package logging
