// Package fileops provides the file-level helpers used while packing and
// extracting: context-aware copying, byte counting, whole-file and
// whole-tree copies, and the executable marker check.
package fileops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultBufferSize is the copy buffer size used when none is supplied.
const DefaultBufferSize = 32 * 1024

var (
	// ErrOverflow indicates a counter exceeded its maximum value.
	ErrOverflow = errors.New("counter overflow")

	// ErrCopyIntoSelf is returned by CopyDir when dst lies inside src.
	ErrCopyIntoSelf = errors.New("copy into own subtree")
)

// CountingWriter wraps a writer and counts bytes written.
type CountingWriter struct {
	W io.Writer
	N uint64
}

// Write implements io.Writer.
func (cw *CountingWriter) Write(p []byte) (int, error) {
	n, err := cw.W.Write(p)
	if n > 0 {
		//nolint:gosec // n is guaranteed non-negative by io.Writer contract
		if cw.N > ^uint64(0)-uint64(n) {
			return n, ErrOverflow
		}
		cw.N += uint64(n) //nolint:gosec // overflow checked above
	}
	return n, err
}

// CopyWithContext copies from src to dst until EOF or error, checking for
// context cancellation between reads. It returns the number of bytes written.
//
//nolint:gocognit // Follows stdlib io.Copy pattern; complexity is inherent to correct I/O handling
func CopyWithContext(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (uint64, error) {
	if len(buf) == 0 {
		buf = make([]byte, DefaultBufferSize)
	}
	var written uint64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[:nr])
			if nw > 0 {
				//nolint:gosec // nw is guaranteed non-negative by io.Writer contract
				if written > ^uint64(0)-uint64(nw) {
					return written, ErrOverflow
				}
				written += uint64(nw) //nolint:gosec // overflow checked above
			}
			if ew != nil {
				return written, ew
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if er != nil {
			if er == io.EOF {
				return written, nil
			}
			return written, er
		}
	}
}

// CopyFile copies the regular file at src to dst, replacing dst if it exists.
// The permission bits of src are applied to a newly created dst.
func CopyFile(ctx context.Context, src, dst string) (err error) {
	in, err := os.Open(src) //nolint:gosec // caller-provided path is intentional
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("copy %s: not a regular file", src)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm()) //nolint:gosec // caller-provided path is intentional
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := CopyWithContext(ctx, out, in, nil); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}

// CopyDir recursively copies the directory src to dst, creating dst if
// needed. dst must not be src or lie below it; such copies never finish and
// fail with ErrCopyIntoSelf before anything is written.
func CopyDir(ctx context.Context, src, dst string) error {
	if err := checkDisjoint(src, dst); err != nil {
		return err
	}
	return copyDir(ctx, src, dst)
}

func copyDir(ctx context.Context, src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil { //nolint:gosec // extracted directories are world-readable
		return err
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		from := filepath.Join(src, e.Name())
		to := filepath.Join(dst, e.Name())

		// Stat follows links so linked directories are copied as directories.
		info, err := os.Stat(from)
		if err != nil {
			return err
		}
		if info.IsDir() {
			err = copyDir(ctx, from, to)
		} else {
			err = CopyFile(ctx, from, to)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// checkDisjoint rejects a dst equal to or nested below src.
func checkDisjoint(src, dst string) error {
	srcAbs, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	dstAbs, err := filepath.Abs(dst)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(srcAbs, dstAbs)
	if err != nil {
		return nil
	}
	if rel == "." || filepath.IsLocal(rel) {
		return fmt.Errorf("%w: %s -> %s", ErrCopyIntoSelf, src, dst)
	}
	return nil
}
