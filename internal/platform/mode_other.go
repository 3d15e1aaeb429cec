//go:build !unix

package platform

import "io/fs"

// FileMode returns the permission bits for an extracted file. Execute bits
// have no meaning on non-Unix systems.
func FileMode(executable bool) fs.FileMode {
	return 0o644
}
