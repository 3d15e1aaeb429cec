package asar

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/meigma/asar/internal/header"
	"github.com/meigma/asar/internal/pathutil"
)

// ReadHeader parses the header of the archive at archivePath without
// touching the content region.
func ReadHeader(archivePath string) (*Header, error) {
	if !pathutil.HasArchiveExt(archivePath) {
		return nil, fmt.Errorf("%w: %s must end in %s", ErrInvalidPath, archivePath, ArchiveExt)
	}
	f, err := os.Open(archivePath) //nolint:gosec // User-provided path is intentional
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: archive %s: %w", ErrNotFound, archivePath, err)
		}
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	return header.Read(f)
}

// List returns the slash-separated path of every entry in the archive, in
// tree order.
func List(archivePath string) ([]string, error) {
	h, err := ReadHeader(archivePath)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = Walk(h.Root, func(path string, _ Node) error {
		paths = append(paths, path)
		return nil
	})
	return paths, err
}
