package pickle

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Iterator reads values sequentially from a pickle's payload.
//
// The cursor only moves forward. A read that would cross the declared end of
// the payload fails with ErrOutOfBounds and pins the cursor at the end, so
// every later read fails as well.
type Iterator struct {
	data          []byte
	payloadOffset int
	readIndex     int
	endIndex      int
}

// Remaining returns the number of unread payload bytes.
func (it *Iterator) Remaining() int {
	return it.endIndex - it.readIndex
}

// ReadBool reads an int32 and reports whether it is non-zero.
func (it *Iterator) ReadBool() (bool, error) {
	v, err := it.ReadInt32()
	return v != 0, err
}

// ReadInt32 reads a little-endian int32.
func (it *Iterator) ReadInt32() (int32, error) {
	v, err := it.ReadUint32()
	return int32(v), err //nolint:gosec // bit-preserving conversion
}

// ReadUint32 reads a little-endian uint32.
func (it *Iterator) ReadUint32() (uint32, error) {
	b, err := it.readBytes(SizeUint32)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadInt64 reads a little-endian int64.
func (it *Iterator) ReadInt64() (int64, error) {
	v, err := it.ReadUint64()
	return int64(v), err //nolint:gosec // bit-preserving conversion
}

// ReadUint64 reads a little-endian uint64.
func (it *Iterator) ReadUint64() (uint64, error) {
	b, err := it.readBytes(SizeUint64)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadFloat32 reads an IEEE 754 single-precision value.
func (it *Iterator) ReadFloat32() (float32, error) {
	v, err := it.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads an IEEE 754 double-precision value.
func (it *Iterator) ReadFloat64() (float64, error) {
	v, err := it.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadString reads an int32 byte length followed by that many bytes.
func (it *Iterator) ReadString() (string, error) {
	n, err := it.ReadInt32()
	if err != nil {
		return "", err
	}
	b, err := it.readBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readBytes returns the next length bytes and advances past their padding.
func (it *Iterator) readBytes(length int) ([]byte, error) {
	if length < 0 || length > it.endIndex-it.readIndex {
		remaining := it.endIndex - it.readIndex
		it.readIndex = it.endIndex
		return nil, fmt.Errorf("%w: want %d bytes, %d remaining", ErrOutOfBounds, length, remaining)
	}

	start := it.payloadOffset + it.readIndex
	it.advance(length)
	return it.data[start : start+length], nil
}

func (it *Iterator) advance(size int) {
	aligned := AlignInt(size, SizeUint32)
	if it.endIndex-it.readIndex < aligned {
		it.readIndex = it.endIndex
		return
	}
	it.readIndex += aligned
}
