// Package testutil builds on-disk fixtures for archive tests.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meigma/asar/internal/pickle"
)

// WriteTree creates the files described by files below dir. Keys are
// slash-separated paths; a key ending in "/" creates an empty directory.
func WriteTree(tb testing.TB, dir string, files map[string]string) {
	tb.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			require.NoError(tb, os.MkdirAll(path, 0o755))
			continue
		}
		require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(tb, os.WriteFile(path, []byte(content), 0o644))
	}
}

// ReadTree returns the contents of every file below dir keyed by
// slash-separated path. Directories are included with a trailing "/" and an
// empty value. Symlinks are followed.
func ReadTree(tb testing.TB, dir string) map[string]string {
	tb.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			out[rel+"/"] = ""
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[rel] = string(data)
		return nil
	})
	require.NoError(tb, err)
	return out
}

// EncodeArchive assembles archive bytes from raw header JSON and a content
// region, bypassing the packer. It lets tests describe trees the packer
// would never produce.
func EncodeArchive(tb testing.TB, headerJSON string, content []byte) []byte {
	tb.Helper()

	hp := pickle.New()
	require.NoError(tb, hp.WriteString(headerJSON))
	sp := pickle.New()
	require.NoError(tb, sp.WriteUint32(uint32(len(hp.Bytes())))) //nolint:gosec // test headers are small

	out := make([]byte, 0, len(sp.Bytes())+len(hp.Bytes())+len(content))
	out = append(out, sp.Bytes()...)
	out = append(out, hp.Bytes()...)
	return append(out, content...)
}

// WriteArchive writes EncodeArchive's output to path.
func WriteArchive(tb testing.TB, path, headerJSON string, content []byte) {
	tb.Helper()
	require.NoError(tb, os.WriteFile(path, EncodeArchive(tb, headerJSON, content), 0o644))
}
