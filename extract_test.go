package asar

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/asar/internal/testutil"
)

// writeTestArchive writes an archive with the given header JSON and content
// to a fresh directory and returns its path.
func writeTestArchive(t *testing.T, headerJSON, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.asar")
	testutil.WriteArchive(t, path, headerJSON, []byte(content))
	return path
}

func TestExtract_Scenario(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	require.NoError(t, Extract(context.Background(), writeTestArchive(t, scenarioJSON, "hiyo"), dest))

	assert.Equal(t, map[string]string{
		"a.txt":     "hi",
		"sub/":      "",
		"sub/b.txt": "yo",
	}, testutil.ReadTree(t, dest))
}

func TestExtract_CreatesDestination(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "nested", "out")
	require.NoError(t, Extract(context.Background(), writeTestArchive(t, scenarioJSON, "hiyo"), dest))
	assert.FileExists(t, filepath.Join(dest, "sub", "b.txt"))
}

func TestExtract_ZeroLengthFile(t *testing.T) {
	t.Parallel()

	// The offset of an empty file is never read, even when it lies past the
	// end of the content region.
	archivePath := writeTestArchive(t, `{"files":{"empty":{"offset":"99","size":0}}}`, "")

	dest := t.TempDir()
	require.NoError(t, Extract(context.Background(), archivePath, dest))
	assert.Equal(t, map[string]string{"empty": ""}, testutil.ReadTree(t, dest))
}

func TestExtract_SymlinkBeforeTarget(t *testing.T) {
	t.Parallel()

	archivePath := writeTestArchive(t,
		`{"files":{"alias":{"link":"real"},"note":{"link":"real/f.txt"},"real":{"files":{"f.txt":{"offset":"0","size":3}}}}}`,
		"abc")

	dest := t.TempDir()
	require.NoError(t, Extract(context.Background(), archivePath, dest))

	assert.Equal(t, map[string]string{
		"alias/":      "",
		"alias/f.txt": "abc",
		"note":        "abc",
		"real/":       "",
		"real/f.txt":  "abc",
	}, testutil.ReadTree(t, dest))
}

func TestExtract_SymlinkMissingTarget(t *testing.T) {
	t.Parallel()

	archivePath := writeTestArchive(t, `{"files":{"l":{"link":"nowhere"}}}`, "")
	err := Extract(context.Background(), archivePath, t.TempDir())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExtract_RejectsSymlinkToAncestor(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"parent":  `{"files":{"a":{"files":{"b":{"files":{"f.txt":{"offset":"0","size":1},"up":{"link":"a"}}}}}}}`,
		"root":    `{"files":{"a":{"files":{"f.txt":{"offset":"0","size":1},"top":{"link":"."}}}}}`,
		"self":    `{"files":{"a":{"files":{"f.txt":{"offset":"0","size":1}}},"loop":{"link":"loop"}}}`,
		"unclean": `{"files":{"a":{"files":{"b":{"files":{"f.txt":{"offset":"0","size":1},"up":{"link":"./a/"}}}}}}}`,
	}
	for name, headerJSON := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			dest := t.TempDir()
			err := Extract(context.Background(), writeTestArchive(t, headerJSON, "f"), dest)
			require.ErrorIs(t, err, ErrSymlinkLoop)

			// Nothing below the link location was materialized.
			for _, p := range []string{"a/b/up", "a/top", "loop"} {
				_, statErr := os.Stat(filepath.Join(dest, filepath.FromSlash(p)))
				assert.True(t, os.IsNotExist(statErr), p)
			}
		})
	}
}

func TestExtract_ExecutableMode(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not preserved on windows")
	}

	archivePath := writeTestArchive(t,
		`{"files":{"run":{"offset":"0","size":2,"executable":true},"doc":{"offset":"2","size":2}}}`,
		"MZhi")

	dest := t.TempDir()
	require.NoError(t, Extract(context.Background(), archivePath, dest))

	info, err := os.Stat(filepath.Join(dest, "run"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o100, "owner execute bit")

	info, err = os.Stat(filepath.Join(dest, "doc"))
	require.NoError(t, err)
	assert.Zero(t, info.Mode().Perm()&0o111)
}

func TestExtract_Unpacked(t *testing.T) {
	t.Parallel()

	archivePath := writeTestArchive(t,
		`{"files":{"a.txt":{"offset":"0","size":2},"sub":{"files":{"big.bin":{"size":4,"unpacked":true}}}}}`,
		"hi")
	testutil.WriteTree(t, archivePath+UnpackedSuffix, map[string]string{"sub/big.bin": "data"})

	dest := t.TempDir()
	require.NoError(t, Extract(context.Background(), archivePath, dest))

	assert.Equal(t, map[string]string{
		"a.txt":       "hi",
		"sub/":        "",
		"sub/big.bin": "data",
	}, testutil.ReadTree(t, dest))
}

func TestExtract_UnpackedMissing(t *testing.T) {
	t.Parallel()

	tests := map[string]func(t *testing.T, archivePath string){
		"no side channel": func(*testing.T, string) {},
		"no mirrored file": func(t *testing.T, archivePath string) {
			testutil.WriteTree(t, archivePath+UnpackedSuffix, map[string]string{"other": "x"})
		},
	}
	for name, setup := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			archivePath := writeTestArchive(t, `{"files":{"big.bin":{"size":4,"unpacked":true}}}`, "")
			setup(t, archivePath)
			err := Extract(context.Background(), archivePath, t.TempDir())
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestExtract_RejectsTraversal(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"dot-dot entry":       `{"files":{"..":{"files":{"pwned.txt":{"offset":"0","size":5}}}}}`,
		"separator in name":   `{"files":{"../pwned.txt":{"offset":"0","size":5}}}`,
		"empty name":          `{"files":{"":{"offset":"0","size":5}}}`,
		"link escapes root":   `{"files":{"l":{"link":"../../etc"}}}`,
		"absolute link":       `{"files":{"l":{"link":"/etc/passwd"}}}`,
		"nested link escapes": `{"files":{"d":{"files":{"l":{"link":"d/../../x"}}}}}`,
	}
	for name, headerJSON := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			root := t.TempDir()
			dest := filepath.Join(root, "dest")
			archivePath := writeTestArchive(t, headerJSON, "pwned")

			err := Extract(context.Background(), archivePath, dest)
			require.ErrorIs(t, err, ErrInvalidPath)
			_, statErr := os.Stat(filepath.Join(root, "pwned.txt"))
			require.Error(t, statErr)
		})
	}
}

func TestExtract_Errors(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	short := filepath.Join(tmp, "short.asar")
	require.NoError(t, os.WriteFile(short, []byte{1, 2, 3}, 0o644))

	tests := []struct {
		name    string
		archive string
		want    error
	}{
		{"wrong extension", filepath.Join(tmp, "app.zip"), ErrInvalidPath},
		{"missing archive", filepath.Join(tmp, "missing.asar"), ErrNotFound},
		{"truncated size field", short, ErrDataCorruption},
		{"bad offset", writeTestArchive(t, `{"files":{"a":{"offset":"x","size":1}}}`, "a"), ErrFormatConversion},
		{"truncated content", writeTestArchive(t, scenarioJSON, "hi"), ErrDataCorruption},
		{"malformed json", writeTestArchive(t, `{"files":`, ""), ErrDataCorruption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Extract(context.Background(), tt.archive, t.TempDir())
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExtract_Progress(t *testing.T) {
	t.Parallel()

	var events []ProgressEvent
	err := Extract(context.Background(), writeTestArchive(t, scenarioJSON, "hiyo"), t.TempDir(),
		ExtractWithProgress(func(ev ProgressEvent) { events = append(events, ev) }))
	require.NoError(t, err)

	var stages []ProgressStage
	for _, ev := range events {
		if ev.Path == "" {
			stages = append(stages, ev.Stage)
		}
	}
	assert.Equal(t, []ProgressStage{
		StageReadingHeader,
		StageExtracting,
		StageResolvingSymlinks,
		StageExtracted,
	}, stages)

	last := events[len(events)-1]
	assert.Equal(t, 2, last.FilesDone)
	assert.Equal(t, uint64(4), last.BytesDone)
}
