//go:build unix

package platform

import "io/fs"

// FileMode returns the permission bits for an extracted file.
func FileMode(executable bool) fs.FileMode {
	if executable {
		return 0o755
	}
	return 0o644
}
