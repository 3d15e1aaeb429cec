package asar

import "log/slog"

// extractConfig holds configuration for archive extraction.
type extractConfig struct {
	logger   *slog.Logger
	progress ProgressFunc
}

// ExtractOption configures archive extraction.
type ExtractOption func(*extractConfig)

// ExtractWithLogger sets the logger. If nil, a discard logger is used.
func ExtractWithLogger(logger *slog.Logger) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.logger = logger
	}
}

// ExtractWithProgress sets a callback that receives progress updates.
func ExtractWithProgress(fn ProgressFunc) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.progress = fn
	}
}
