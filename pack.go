package asar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/meigma/asar/internal/archive"
	"github.com/meigma/asar/internal/fileops"
	"github.com/meigma/asar/internal/header"
	"github.com/meigma/asar/internal/pathutil"
)

// Pack builds an archive at archivePath from the contents of srcDir.
//
// The source tree is walked depth-first in pre-order. File contents are
// staged in a temporary file while the directory tree is built in memory;
// once the walk completes the header is written to archivePath followed by
// the staged contents. By default each directory is enumerated in the
// filesystem's native order; use PackWithSortedEntries for reproducible
// output.
//
// archivePath must end in ".asar" (ErrInvalidPath) and srcDir must be an
// existing directory (ErrNotFound). The archive is written in place, so a
// failure partway through may leave a truncated file behind.
//
// The context can be used for cancellation of long-running archive creation.
func Pack(ctx context.Context, srcDir, archivePath string, opts ...PackOption) (err error) {
	cfg := packConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	p := &packer{cfg: cfg, logger: cfg.logger}

	if !pathutil.HasArchiveExt(archivePath) {
		return fmt.Errorf("%w: %s must end in %s", ErrInvalidPath, archivePath, ArchiveExt)
	}
	root, err := resolveSourceDir(srcDir)
	if err != nil {
		return err
	}

	p.log().Info("packing archive", "src", srcDir, "archive", archivePath)
	if cfg.matchBasename || len(cfg.unpack) > 0 {
		p.log().Debug("unpack filters are not applied", "match_basename", cfg.matchBasename, "unpack", cfg.unpack)
	}

	p.reportStage(StageCreatingTempFile)
	scratch, err := os.CreateTemp("", "asar-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer p.removeTemp(scratch)
	p.log().Debug("temporary file created", "path", scratch.Name())

	p.reportStage(StageBuildingTree)
	buf := make([]byte, fileops.DefaultBufferSize)
	b := &treeBuilder{
		root:    root,
		content: scratch,
		buf:     buf,
		sorted:  cfg.sorted,
		logger:  p.log(),
		visit:   p.fileVisited,
	}
	tree, contentSize, err := b.buildDir(ctx, root, "", 0, []string{root})
	if err != nil {
		return err
	}
	p.log().Debug("directory tree built", "file_count", p.filesDone, "content_size", contentSize)

	p.reportStage(StageCreatingArchive)
	out, err := os.Create(archivePath) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close archive: %w", cerr)
		}
	}()

	p.reportStage(StageWritingHeader)
	headerSize, err := header.Write(out, tree)
	if err != nil {
		return err
	}

	p.reportStage(StageWritingContents)
	if _, err := scratch.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind temp file: %w", err)
	}
	written, err := fileops.CopyWithContext(ctx, out, scratch, buf)
	if err != nil {
		return fmt.Errorf("write archive contents: %w", err)
	}
	if written != contentSize {
		return fmt.Errorf("write archive contents: wrote %d of %d bytes", written, contentSize)
	}

	p.reportStage(StagePacked)
	p.log().Info("archive created", "archive", archivePath, "header_size", headerSize, "content_size", contentSize)
	return nil
}

// resolveSourceDir checks that dir is an existing directory and returns its
// absolute, symlink-free path.
func resolveSourceDir(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: source directory %s: %w", ErrNotFound, dir, err)
		}
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrNotFound, dir)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// packer holds the observational state of one Pack call.
type packer struct {
	cfg       packConfig
	logger    *slog.Logger
	filesDone int
	bytesDone uint64
}

// log returns the logger, falling back to a discard logger if nil.
func (p *packer) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

func (p *packer) reportStage(stage ProgressStage) {
	p.log().Debug(stage.String())
	p.report(stage, "")
}

func (p *packer) fileVisited(path string, offset uint64) {
	p.filesDone++
	p.bytesDone = offset
	p.report(StageBuildingTree, path)
}

// report sends a progress event if a callback is configured.
func (p *packer) report(stage ProgressStage, path string) {
	if p.cfg.progress == nil {
		return
	}
	p.cfg.progress(ProgressEvent{
		Stage:     stage,
		Path:      path,
		FilesDone: p.filesDone,
		BytesDone: p.bytesDone,
	})
}

// removeTemp closes and deletes the scratch file. Failures are logged and
// otherwise ignored.
func (p *packer) removeTemp(f *os.File) {
	if err := f.Close(); err != nil {
		p.log().Warn("failed to close temporary file", "path", f.Name(), "error", err)
	}
	if err := os.Remove(f.Name()); err != nil {
		p.log().Warn("failed to delete temporary file", "path", f.Name(), "error", err)
		return
	}
	p.log().Debug("deleted temporary file", "path", f.Name())
}

// treeBuilder walks a source directory, streaming file contents to content.
//
// It keeps no running offset of its own: each build method takes the offset
// at which its subtree starts and returns the offset just past it.
type treeBuilder struct {
	root    string
	content io.Writer
	buf     []byte
	sorted  bool
	logger  *slog.Logger
	visit   func(path string, offset uint64)
}

// buildDir builds the node for dir, whose archive path is rel. stack holds
// the real paths of the directories currently being walked.
func (b *treeBuilder) buildDir(ctx context.Context, dir, rel string, offset uint64, stack []string) (*archive.Directory, uint64, error) {
	entries, err := b.readDir(dir)
	if err != nil {
		return nil, 0, err
	}

	node := archive.NewDirectory()
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		childRel := e.Name()
		if rel != "" {
			childRel = rel + "/" + e.Name()
		}
		child, next, ok, err := b.buildEntry(ctx, filepath.Join(dir, e.Name()), childRel, e.Type(), offset, stack)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			continue
		}
		node.Add(e.Name(), child)
		offset = next
	}
	return node, offset, nil
}

// readDir lists dir in native enumeration order, or by name when sorted.
func (b *treeBuilder) readDir(dir string) ([]fs.DirEntry, error) {
	f, err := os.Open(dir) //nolint:gosec // walking a caller-provided tree is intentional
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	if b.sorted {
		slices.SortFunc(entries, func(a, c fs.DirEntry) int {
			return strings.Compare(a.Name(), c.Name())
		})
	}
	return entries, nil
}

// buildEntry builds the node for a single directory entry. ok is false when
// the entry is skipped.
func (b *treeBuilder) buildEntry(ctx context.Context, path, rel string, mode fs.FileMode, offset uint64, stack []string) (archive.Node, uint64, bool, error) {
	switch {
	case mode&fs.ModeSymlink != 0:
		return b.buildSymlink(ctx, path, rel, offset, stack)
	case mode.IsDir():
		dir, next, err := b.buildDir(ctx, path, rel, offset, append(stack, path))
		return dir, next, err == nil, err
	case mode.IsRegular():
		file, next, err := b.buildFile(ctx, path, rel, offset)
		return file, next, err == nil, err
	default:
		b.logger.Debug("skipped special file", "path", rel, "mode", mode.String())
		return nil, offset, false, nil
	}
}

// buildSymlink stores links that resolve inside the source root as Symlink
// nodes and follows links that resolve elsewhere.
func (b *treeBuilder) buildSymlink(ctx context.Context, path, rel string, offset uint64, stack []string) (archive.Node, uint64, bool, error) {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, false, fmt.Errorf("%w: target of symlink %s: %w", ErrNotFound, rel, err)
		}
		return nil, 0, false, err
	}

	if link, ok := pathutil.Within(b.root, target); ok {
		if pathutil.IsAncestor(link, rel) {
			return nil, 0, false, fmt.Errorf("%w: %s -> %s is an ancestor of the link", ErrSymlinkLoop, rel, link)
		}
		b.logger.Debug("stored symlink", "path", rel, "link", link)
		return &archive.Symlink{Link: link}, offset, true, nil
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, 0, false, err
	}
	switch {
	case info.IsDir():
		if slices.Contains(stack, target) {
			return nil, 0, false, fmt.Errorf("%w: %s -> %s", ErrSymlinkLoop, rel, target)
		}
		b.logger.Debug("following external symlink", "path", rel, "target", target)
		dir, next, err := b.buildDir(ctx, target, rel, offset, append(stack, target))
		return dir, next, err == nil, err
	case info.Mode().IsRegular():
		b.logger.Debug("following external symlink", "path", rel, "target", target)
		file, next, err := b.buildFile(ctx, target, rel, offset)
		return file, next, err == nil, err
	default:
		b.logger.Debug("skipped special file", "path", rel, "mode", info.Mode().String())
		return nil, offset, false, nil
	}
}

// buildFile appends the file at path to the content writer and returns its
// node, which starts at offset.
func (b *treeBuilder) buildFile(ctx context.Context, path, rel string, offset uint64) (*archive.File, uint64, error) {
	f, err := os.Open(path) //nolint:gosec // walking a caller-provided tree is intentional
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var marker [2]byte
	n, err := io.ReadFull(f, marker[:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, 0, fmt.Errorf("read %s: %w", rel, err)
	}

	cw := &fileops.CountingWriter{W: b.content}
	if _, err := cw.Write(marker[:n]); err != nil {
		return nil, 0, fmt.Errorf("write %s: %w", rel, err)
	}
	if _, err := fileops.CopyWithContext(ctx, cw, f, b.buf); err != nil {
		return nil, 0, fmt.Errorf("write %s: %w", rel, err)
	}

	if cw.N > ^uint64(0)-offset {
		return nil, 0, fmt.Errorf("%w: %s", ErrSizeOverflow, rel)
	}
	next := offset + cw.N
	if b.visit != nil {
		b.visit(rel, next)
	}
	return &archive.File{
		Offset:     offset,
		Size:       cw.N,
		Executable: fileops.HasExecutableMarker(marker[:n]),
	}, next, nil
}
