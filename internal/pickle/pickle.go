// Package pickle implements the length-prefixed, 4-byte aligned binary
// encoding used by asar archive headers.
//
// A Pickle owns a single byte slice split into a header, which holds the
// little-endian payload length, and a payload of appended values. Values are
// read back in the order they were written through an Iterator. The encoding
// carries no type information, so readers must know the sequence of types.
package pickle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Sizes of the fixed-width values in bytes.
const (
	SizeInt32   = 4
	SizeUint32  = 4
	SizeInt64   = 8
	SizeUint64  = 8
	SizeFloat32 = 4
	SizeFloat64 = 8
)

// PayloadUnit is the allocation granularity of the payload.
const PayloadUnit = 64

var (
	// ErrOutOfBounds is returned when a read would cross the declared end of the payload.
	ErrOutOfBounds = errors.New("pickle: read out of bounds")

	// ErrReadOnly is returned when writing to a pickle built from existing bytes.
	ErrReadOnly = errors.New("pickle: read-only")

	// ErrTooLarge is returned when the payload would exceed the 32-bit length field.
	ErrTooLarge = errors.New("pickle: payload too large")
)

// AlignInt rounds n up to the next multiple of alignment, which must be a power of two.
func AlignInt(n, alignment int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}

// Pickle is a growable buffer of aligned values.
//
// The zero value is not usable; create one with New for writing or FromBytes
// for reading.
type Pickle struct {
	data                []byte
	headerSize          int
	capacityAfterHeader int
	writeOffset         int
	readOnly            bool
}

// New returns an empty pickle with a 4-byte header, ready for writing.
func New() *Pickle {
	p := &Pickle{headerSize: SizeUint32}
	p.resize(PayloadUnit)
	p.setPayloadSize(0)
	return p
}

// FromBytes wraps b in a read-only pickle.
//
// The header size is derived as len(b) minus the declared payload length.
// When that value is negative or not 4-byte aligned the pickle is treated as
// having no header and no data, so every subsequent read fails with
// ErrOutOfBounds. FromBytes never returns an error.
func FromBytes(b []byte) *Pickle {
	p := &Pickle{data: b, readOnly: true}
	if len(b) < SizeUint32 {
		p.data = nil
		return p
	}

	header := int64(len(b)) - int64(binary.LittleEndian.Uint32(b))
	if header < 0 || header != int64(AlignInt(int(header), SizeUint32)) {
		header = 0
	}
	if header == 0 {
		p.data = nil
	}
	p.headerSize = int(header)
	return p
}

// HeaderSize returns the number of bytes reserved before the payload.
func (p *Pickle) HeaderSize() int {
	return p.headerSize
}

// PayloadSize returns the declared payload length.
func (p *Pickle) PayloadSize() uint32 {
	if len(p.data) < SizeUint32 {
		return 0
	}
	return binary.LittleEndian.Uint32(p.data)
}

// Bytes returns the header and payload. Spare capacity is never included.
func (p *Pickle) Bytes() []byte {
	end := p.headerSize + int(p.PayloadSize())
	if end > len(p.data) {
		end = len(p.data)
	}
	return p.data[:end]
}

// Iterator returns a read cursor positioned at the start of the payload.
func (p *Pickle) Iterator() *Iterator {
	end := int(p.PayloadSize())
	if avail := len(p.data) - p.headerSize; end > avail {
		end = max(avail, 0)
	}
	return &Iterator{
		data:          p.data,
		payloadOffset: p.headerSize,
		endIndex:      end,
	}
}

// WriteBool writes v as an int32 holding 0 or 1.
func (p *Pickle) WriteBool(v bool) error {
	if v {
		return p.WriteInt32(1)
	}
	return p.WriteInt32(0)
}

// WriteInt32 appends a little-endian int32.
func (p *Pickle) WriteInt32(v int32) error {
	return p.WriteUint32(uint32(v)) //nolint:gosec // bit-preserving conversion
}

// WriteUint32 appends a little-endian uint32.
func (p *Pickle) WriteUint32(v uint32) error {
	var buf [SizeUint32]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return p.writeBytes(buf[:])
}

// WriteInt64 appends a little-endian int64.
func (p *Pickle) WriteInt64(v int64) error {
	return p.WriteUint64(uint64(v)) //nolint:gosec // bit-preserving conversion
}

// WriteUint64 appends a little-endian uint64.
func (p *Pickle) WriteUint64(v uint64) error {
	var buf [SizeUint64]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return p.writeBytes(buf[:])
}

// WriteFloat32 appends an IEEE 754 single-precision value.
func (p *Pickle) WriteFloat32(v float32) error {
	return p.WriteUint32(math.Float32bits(v))
}

// WriteFloat64 appends an IEEE 754 double-precision value.
func (p *Pickle) WriteFloat64(v float64) error {
	return p.WriteUint64(math.Float64bits(v))
}

// WriteString appends the UTF-8 byte length of s as an int32 followed by the
// bytes of s, padded to a 4-byte boundary.
func (p *Pickle) WriteString(s string) error {
	if len(s) > math.MaxInt32 {
		return fmt.Errorf("%w: string of %d bytes", ErrTooLarge, len(s))
	}
	if err := p.WriteInt32(int32(len(s))); err != nil { //nolint:gosec // bounded above
		return err
	}
	return p.writeBytes([]byte(s))
}

// writeBytes appends b followed by zero padding up to the next 4-byte boundary.
func (p *Pickle) writeBytes(b []byte) error {
	if p.readOnly {
		return ErrReadOnly
	}

	aligned := AlignInt(len(b), SizeUint32)
	newSize := p.writeOffset + aligned
	if newSize > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, newSize)
	}
	if newSize > p.capacityAfterHeader {
		p.resize(max(p.capacityAfterHeader*2, newSize))
	}

	at := p.headerSize + p.writeOffset
	n := copy(p.data[at:], b)
	clear(p.data[at+n : at+aligned])

	p.setPayloadSize(uint32(newSize)) //nolint:gosec // bounded above
	p.writeOffset = newSize
	return nil
}

func (p *Pickle) setPayloadSize(n uint32) {
	binary.LittleEndian.PutUint32(p.data, n)
}

// resize grows the capacity after the header to at least capacity bytes,
// rounded up to PayloadUnit.
func (p *Pickle) resize(capacity int) {
	capacity = AlignInt(capacity, PayloadUnit)
	data := make([]byte, p.headerSize+capacity)
	copy(data, p.data)
	p.data = data
	p.capacityAfterHeader = capacity
}
