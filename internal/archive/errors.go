package archive

import "errors"

// Sentinel errors for archive operations.
var (
	// ErrInvalidPath is returned when an archive path lacks the .asar extension
	// or an entry name or link target would escape its root.
	ErrInvalidPath = errors.New("asar: invalid path")

	// ErrNotFound is returned when a source directory, archive file, unpacked
	// side-channel directory, or symlink target does not exist.
	ErrNotFound = errors.New("asar: not found")

	// ErrDataCorruption is returned when the header or content region is
	// truncated or malformed.
	ErrDataCorruption = errors.New("asar: corrupt archive data")

	// ErrFormatConversion is returned when a file offset cannot be parsed.
	ErrFormatConversion = errors.New("asar: invalid file offset")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("asar: size overflow")

	// ErrSymlinkLoop is returned when following a directory symlink leads back
	// to a directory that is already being packed, or when a symlink points at
	// its own path or one of its ancestors.
	ErrSymlinkLoop = errors.New("asar: symlink loop")
)
