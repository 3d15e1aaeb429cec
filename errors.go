package asar

import (
	"github.com/meigma/asar/internal/archive"
)

// Errors re-exported from the archive package.
var (
	// ErrInvalidPath is returned when an archive path lacks the .asar extension
	// or an entry name or link target would escape its root.
	ErrInvalidPath = archive.ErrInvalidPath

	// ErrNotFound is returned when a source directory, archive file, unpacked
	// side-channel directory, or symlink target does not exist.
	ErrNotFound = archive.ErrNotFound

	// ErrDataCorruption is returned when the header or content region is
	// truncated or malformed. Low-level pickle bounds failures are reported
	// wrapped in this error.
	ErrDataCorruption = archive.ErrDataCorruption

	// ErrFormatConversion is returned when a file offset cannot be parsed.
	ErrFormatConversion = archive.ErrFormatConversion

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = archive.ErrSizeOverflow

	// ErrSymlinkLoop is returned when a followed directory link leads back to
	// a directory that is already being packed, or when a link points at its
	// own path or one of its ancestors.
	ErrSymlinkLoop = archive.ErrSymlinkLoop
)
