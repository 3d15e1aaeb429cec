// Package header reads and writes the asar archive header.
//
// An archive starts with two pickles. The first is always 8 bytes long and
// holds a single uint32: the byte length H of the second pickle. The second
// holds the JSON directory tree as a pickled string. File content follows
// immediately, so the content region starts at byte 8+H.
package header

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/meigma/asar/internal/archive"
	"github.com/meigma/asar/internal/pickle"
)

// SizeFieldLen is the length of the size pickle at the start of every archive.
const SizeFieldLen = 8

// Header is a parsed archive header.
type Header struct {
	// Root is the directory tree.
	Root *archive.Directory

	// Size is the byte length of the header pickle (H).
	Size uint32
}

// ContentStart returns the absolute position of the content region.
func (h *Header) ContentStart() int64 {
	return SizeFieldLen + int64(h.Size)
}

// ContentOffset returns the absolute position of f's bytes in the archive.
func (h *Header) ContentOffset(f *archive.File) (int64, error) {
	if f.Offset > uint64(math.MaxInt64-h.ContentStart()) {
		return 0, fmt.Errorf("%w: offset %d", archive.ErrSizeOverflow, f.Offset)
	}
	return h.ContentStart() + int64(f.Offset), nil //nolint:gosec // bounded above
}

// Encode serializes root and returns the size pickle and the header pickle.
func Encode(root *archive.Directory) (sizeField, headerField []byte, err error) {
	text, err := archive.Encode(root)
	if err != nil {
		return nil, nil, fmt.Errorf("encode header json: %w", err)
	}

	hp := pickle.New()
	if err := hp.WriteString(string(text)); err != nil {
		return nil, nil, fmt.Errorf("pickle header: %w", err)
	}
	headerField = hp.Bytes()

	sp := pickle.New()
	if err := sp.WriteUint32(uint32(len(headerField))); err != nil { //nolint:gosec // pickle payloads are bounded to 32 bits
		return nil, nil, fmt.Errorf("pickle header size: %w", err)
	}
	return sp.Bytes(), headerField, nil
}

// Write encodes root and writes both header pickles to w. It returns the
// header pickle length H.
func Write(w io.Writer, root *archive.Directory) (uint32, error) {
	sizeField, headerField, err := Encode(root)
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(sizeField); err != nil {
		return 0, fmt.Errorf("write header size: %w", err)
	}
	if _, err := w.Write(headerField); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	return uint32(len(headerField)), nil //nolint:gosec // bounded by Encode
}

// Read parses the header at the current position of r, which must be the
// start of the archive. On success r is positioned at the content region.
//
// Truncated input and pickle bounds failures are reported as
// archive.ErrDataCorruption.
func Read(r io.Reader) (*Header, error) {
	var sizeField [SizeFieldLen]byte
	if n, err := io.ReadFull(r, sizeField[:]); err != nil {
		return nil, fmt.Errorf("%w: read header size: got %d of %d bytes", archive.ErrDataCorruption, n, SizeFieldLen)
	}

	size, err := pickle.FromBytes(sizeField[:]).Iterator().ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("%w: header size: %w", archive.ErrDataCorruption, err)
	}

	// Read through a LimitReader so a bogus size on a short file does not
	// allocate the full amount up front.
	headerField, err := io.ReadAll(io.LimitReader(r, int64(size)))
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(headerField) != int(size) {
		return nil, fmt.Errorf("%w: read header: got %d of %d bytes", archive.ErrDataCorruption, len(headerField), size)
	}

	text, err := pickle.FromBytes(headerField).Iterator().ReadString()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", archive.ErrDataCorruption, err)
	}

	root, err := archive.Decode([]byte(text))
	if err != nil {
		return nil, err
	}
	return &Header{Root: root, Size: size}, nil
}

// Parse parses a header held entirely in memory.
func Parse(data []byte) (*Header, error) {
	return Read(bytes.NewReader(data))
}
