// Package platform holds the OS-specific details of materializing files.
package platform
