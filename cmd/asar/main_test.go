package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/asar/internal/testutil"
)

func TestRun_PackListExtract(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{
		"a.txt":     "hi",
		"sub/b.txt": "yo",
	})
	archivePath := filepath.Join(t.TempDir(), "app.asar")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"pack", "--sorted", "--progress", src, archivePath}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Creating temporary file for holding the archive data...")
	assert.Contains(t, stdout.String(), "The archive has been successfully created!")

	stdout.Reset()
	require.NoError(t, run([]string{"list", archivePath}, &stdout, &stderr))
	assert.Equal(t, "/a.txt\n/sub\n/sub/b.txt\n", stdout.String())

	dest := t.TempDir()
	stdout.Reset()
	require.NoError(t, run([]string{"extract", "--log-level", "debug", archivePath, dest}, &stdout, &stderr))
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "archive extracted")
	assert.Equal(t, testutil.ReadTree(t, src), testutil.ReadTree(t, dest))
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no subcommand", nil, "subcommand required"},
		{"unknown subcommand", []string{"frobnicate"}, "unknown subcommand"},
		{"missing arguments", []string{"pack", "only-one"}, "expected 2 arguments"},
		{"bad log level", []string{"list", "--log-level", "loud", "x.asar"}, "invalid log level"},
		{"unknown flag", []string{"extract", "--bogus", "a.asar", "b"}, "unknown flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var stdout, stderr bytes.Buffer
			err := run(tt.args, &stdout, &stderr)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRun_HelpAndVersion(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"version"}, &stdout, &stderr))
	assert.True(t, strings.HasPrefix(stdout.String(), "asar "))

	stdout.Reset()
	require.NoError(t, run([]string{"help"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Subcommands:")

	stderr.Reset()
	require.NoError(t, run([]string{"pack", "--help"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "--sorted")
}

func TestRun_ConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "asar.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log_level: debug\npack:\n  sorted: true\n"), 0o644))

	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{"z": "1", "a": "2"})
	archivePath := filepath.Join(dir, "out.asar")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"pack", "--config", cfgPath, src, archivePath}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "level=DEBUG")

	require.NoError(t, run([]string{"list", archivePath}, &stdout, &stderr))
	assert.Equal(t, "/a\n/z\n", stdout.String())
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "asar.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("full", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadConfigFile(write(t, `
log_level: warn
pack:
  sorted: true
  match_basename: true
  unpack: ["*.node", "*.dll"]
`))
		require.NoError(t, err)
		assert.Equal(t, &Config{
			LogLevel: "warn",
			Pack: PackConfig{
				Sorted:        true,
				MatchBasename: true,
				Unpack:        []string{"*.node", "*.dll"},
			},
		}, cfg)
	})

	t.Run("empty file keeps defaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadConfigFile(write(t, ""))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(write(t, "pack:\n  compress: true\n"))
		require.Error(t, err)
	})

	t.Run("invalid level", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(write(t, "log_level: chatty\n"))
		require.ErrorContains(t, err, "invalid log level")
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestLoadConfig_Env(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asar.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: error\n"), 0o644))
	t.Setenv(configEnv, path)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)

	t.Setenv(configEnv, "")
	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
