package asar

import "log/slog"

// packConfig holds configuration for archive creation.
type packConfig struct {
	sorted        bool
	matchBasename bool
	unpack        []string
	logger        *slog.Logger
	progress      ProgressFunc
}

// PackOption configures archive creation.
type PackOption func(*packConfig)

// PackWithSortedEntries walks each directory in name order instead of the
// filesystem's native enumeration order, producing reproducible archives.
func PackWithSortedEntries(sorted bool) PackOption {
	return func(cfg *packConfig) {
		cfg.sorted = sorted
	}
}

// PackWithMatchBasename requests that unpack patterns match against file
// base names.
//
// The option is accepted for interface compatibility but is not applied.
func PackWithMatchBasename(match bool) PackOption {
	return func(cfg *packConfig) {
		cfg.matchBasename = match
	}
}

// PackWithUnpack adds glob patterns for files to keep out of the content
// region.
//
// The patterns are accepted for interface compatibility but are not applied:
// every file is packed.
func PackWithUnpack(patterns ...string) PackOption {
	return func(cfg *packConfig) {
		cfg.unpack = append(cfg.unpack, patterns...)
	}
}

// PackWithLogger sets the logger. If nil, a discard logger is used.
func PackWithLogger(logger *slog.Logger) PackOption {
	return func(cfg *packConfig) {
		cfg.logger = logger
	}
}

// PackWithProgress sets a callback that receives progress updates.
func PackWithProgress(fn ProgressFunc) PackOption {
	return func(cfg *packConfig) {
		cfg.progress = fn
	}
}
