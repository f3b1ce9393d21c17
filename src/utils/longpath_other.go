//go:build !windows

package utils

// LongPath returns p unchanged; short path names only exist on Windows
func LongPath(p string) string {
	return p
}
