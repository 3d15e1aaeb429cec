// Package pathutil validates archive paths and maps slash-separated archive
// paths onto the local filesystem.
package pathutil

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/meigma/asar/internal/archive"
)

// ArchiveExt is the required extension of archive files.
const ArchiveExt = ".asar"

// UnpackedSuffix is appended to an archive path to name its side-channel
// directory of unpacked files.
const UnpackedSuffix = ".unpacked"

// HasArchiveExt reports whether path names an archive file.
func HasArchiveExt(path string) bool {
	return strings.HasSuffix(path, ArchiveExt)
}

// UnpackedDir returns the side-channel directory for archivePath.
func UnpackedDir(archivePath string) string {
	return archivePath + UnpackedSuffix
}

// ValidName reports whether name is usable as a single directory entry:
// non-empty, not "." or "..", and free of separators and NUL bytes.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// Join resolves the slash-separated path rel below root. It returns
// archive.ErrInvalidPath when rel is absolute or escapes root.
func Join(root, rel string) (string, error) {
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q escapes %s", archive.ErrInvalidPath, rel, root)
	}
	return filepath.Join(root, local), nil
}

// Within reports whether target lies inside root (or is root itself) and
// returns its slash-separated path relative to root. Both paths must be
// absolute and free of symlinks.
func Within(root, target string) (string, bool) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", false
	}
	if rel != "." && !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// IsAncestor reports whether the slash-separated archive path dir is p itself
// or one of its parent directories. Both paths are cleaned first; "." and ""
// name the root.
func IsAncestor(dir, p string) bool {
	dir, p = path.Clean(dir), path.Clean(p)
	if dir == "." {
		return true
	}
	return p == dir || strings.HasPrefix(p, dir+"/")
}
