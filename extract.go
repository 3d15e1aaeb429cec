package asar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/meigma/asar/internal/archive"
	"github.com/meigma/asar/internal/fileops"
	"github.com/meigma/asar/internal/header"
	"github.com/meigma/asar/internal/pathutil"
	"github.com/meigma/asar/internal/platform"
)

// Extract materializes the archive at archivePath below destDir.
//
// Directories and files are created in a first pass over the tree. Symlink
// entries are queued during that pass and materialized afterwards, in the
// order they were encountered, as copies of their targets. Deferring them
// lets a link appear in the tree before the entry it points to.
//
// Files marked unpacked are copied from the side-channel directory
// archivePath+".unpacked"; if it does not exist Extract returns ErrNotFound.
// Entry names and link targets that would escape destDir are rejected with
// ErrInvalidPath.
//
// Extraction is not atomic: on error, entries created so far remain.
func Extract(ctx context.Context, archivePath, destDir string, opts ...ExtractOption) error {
	cfg := extractConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !pathutil.HasArchiveExt(archivePath) {
		return fmt.Errorf("%w: %s must end in %s", ErrInvalidPath, archivePath, ArchiveExt)
	}

	f, err := os.Open(archivePath) //nolint:gosec // User-provided path is intentional
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: archive %s: %w", ErrNotFound, archivePath, err)
		}
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	x := &extractor{
		cfg:         cfg,
		logger:      cfg.logger,
		archive:     f,
		archivePath: archivePath,
		dest:        destDir,
		buf:         make([]byte, fileops.DefaultBufferSize),
	}
	x.log().Info("extracting archive", "archive", archivePath, "dest", destDir)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	x.reportStage(StageReadingHeader)
	h, err := header.Read(f)
	if err != nil {
		return err
	}
	x.header = h
	x.log().Debug("header read", "header_size", h.Size, "entries", h.Root.Len())

	x.reportStage(StageExtracting)
	if err := x.extractDir(ctx, h.Root, destDir, ""); err != nil {
		return err
	}

	x.reportStage(StageResolvingSymlinks)
	if err := x.resolveSymlinks(ctx); err != nil {
		return err
	}

	x.reportStage(StageExtracted)
	x.log().Info("archive extracted", "archive", archivePath, "files", x.filesDone, "bytes", x.bytesDone, "symlinks", len(x.links))
	return nil
}

// symlinkTask is a link entry waiting for the first pass to finish.
type symlinkTask struct {
	path   string // where the copy is created
	rel    string // archive path of the link entry
	target string // resolved target below the destination
}

// extractor holds the state of one Extract call.
type extractor struct {
	cfg         extractConfig
	logger      *slog.Logger
	archive     io.ReaderAt
	archivePath string
	dest        string
	header      *header.Header
	buf         []byte
	links       []symlinkTask

	unpackedChecked bool
	unpackedErr     error

	filesDone int
	bytesDone uint64
}

// log returns the logger, falling back to a discard logger if nil.
func (x *extractor) log() *slog.Logger {
	if x.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return x.logger
}

func (x *extractor) reportStage(stage ProgressStage) {
	x.log().Debug(stage.String())
	x.report(stage, "")
}

// report sends a progress event if a callback is configured.
func (x *extractor) report(stage ProgressStage, path string) {
	if x.cfg.progress == nil {
		return
	}
	x.cfg.progress(ProgressEvent{
		Stage:     stage,
		Path:      path,
		FilesDone: x.filesDone,
		BytesDone: x.bytesDone,
	})
}

func (x *extractor) extractDir(ctx context.Context, dir *archive.Directory, dest, rel string) error {
	for _, e := range dir.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !pathutil.ValidName(e.Name) {
			return fmt.Errorf("%w: entry name %q in %q", ErrInvalidPath, e.Name, rel)
		}

		path := filepath.Join(dest, e.Name)
		childRel := e.Name
		if rel != "" {
			childRel = rel + "/" + e.Name
		}

		switch n := e.Node.(type) {
		case *archive.Directory:
			if err := os.MkdirAll(path, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", childRel, err)
			}
			if err := x.extractDir(ctx, n, path, childRel); err != nil {
				return err
			}
		case *archive.File:
			if err := x.extractFile(ctx, n, path, childRel); err != nil {
				return err
			}
			x.filesDone++
			x.bytesDone += n.Size
			x.report(StageExtracting, childRel)
		case *archive.Symlink:
			target, err := pathutil.Join(x.dest, n.Link)
			if err != nil {
				return fmt.Errorf("symlink %s: %w", childRel, err)
			}
			if pathutil.IsAncestor(n.Link, childRel) {
				return fmt.Errorf("%w: symlink %s -> %s is an ancestor of the link", ErrSymlinkLoop, childRel, n.Link)
			}
			x.links = append(x.links, symlinkTask{path: path, rel: childRel, target: target})
		default:
			return fmt.Errorf("%w: unexpected node %T at %s", ErrDataCorruption, n, childRel)
		}
	}
	return nil
}

func (x *extractor) extractFile(ctx context.Context, f *archive.File, path, rel string) error {
	if f.Unpacked {
		return x.copyUnpacked(ctx, path, rel)
	}
	return x.writePacked(ctx, f, path, rel)
}

// writePacked creates path from the file's slice of the content region.
func (x *extractor) writePacked(ctx context.Context, f *archive.File, path, rel string) (err error) {
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, platform.FileMode(f.Executable)) //nolint:gosec // path is validated
	if err != nil {
		return fmt.Errorf("create %s: %w", rel, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", rel, cerr)
		}
	}()

	if f.Size == 0 {
		return nil
	}
	if f.Size > math.MaxInt64 {
		return fmt.Errorf("%w: %s size %d", ErrSizeOverflow, rel, f.Size)
	}
	start, err := x.header.ContentOffset(f)
	if err != nil {
		return fmt.Errorf("%s: %w", rel, err)
	}

	src := io.NewSectionReader(x.archive, start, int64(f.Size))
	n, err := fileops.CopyWithContext(ctx, out, src, x.buf)
	if err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	if n != f.Size {
		return fmt.Errorf("%w: %s: got %d of %d bytes", ErrDataCorruption, rel, n, f.Size)
	}
	return nil
}

// copyUnpacked copies an unpacked file from the side-channel directory.
func (x *extractor) copyUnpacked(ctx context.Context, path, rel string) error {
	root := pathutil.UnpackedDir(x.archivePath)
	if err := x.checkUnpacked(root); err != nil {
		return err
	}

	src, err := pathutil.Join(root, rel)
	if err != nil {
		return err
	}
	if err := fileops.CopyFile(ctx, src, path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: unpacked file %s: %w", ErrNotFound, rel, err)
		}
		return fmt.Errorf("copy unpacked %s: %w", rel, err)
	}
	return nil
}

// checkUnpacked verifies once that the side-channel directory exists.
func (x *extractor) checkUnpacked(root string) error {
	if x.unpackedChecked {
		return x.unpackedErr
	}
	x.unpackedChecked = true

	info, err := os.Stat(root)
	switch {
	case err != nil:
		x.unpackedErr = fmt.Errorf("%w: unpacked directory %s: %w", ErrNotFound, root, err)
	case !info.IsDir():
		x.unpackedErr = fmt.Errorf("%w: %s is not a directory", ErrNotFound, root)
	default:
		x.log().Debug("using unpacked directory", "path", root)
	}
	return x.unpackedErr
}

// resolveSymlinks materializes queued links as copies of their targets.
func (x *extractor) resolveSymlinks(ctx context.Context) error {
	for _, l := range x.links {
		if err := ctx.Err(); err != nil {
			return err
		}

		info, err := os.Stat(l.target)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: target of symlink %s: %w", ErrNotFound, l.rel, err)
			}
			return fmt.Errorf("symlink %s: %w", l.rel, err)
		}

		if info.IsDir() {
			err = fileops.CopyDir(ctx, l.target, l.path)
		} else {
			err = fileops.CopyFile(ctx, l.target, l.path)
		}
		if err != nil {
			return fmt.Errorf("symlink %s: %w", l.rel, err)
		}
		x.report(StageResolvingSymlinks, l.rel)
	}
	return nil
}
