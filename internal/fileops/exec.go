package fileops

import "bytes"

// ExecutableMarker is the leading byte sequence of a PE executable.
var ExecutableMarker = []byte("MZ")

// HasExecutableMarker reports whether prefix, the first bytes of a file,
// starts with ExecutableMarker.
func HasExecutableMarker(prefix []byte) bool {
	return bytes.HasPrefix(prefix, ExecutableMarker)
}
