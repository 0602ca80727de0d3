//go:build !unix

package scanner

// dirKey has no portable (device, inode) equivalent on this platform, so
// cycle detection is disabled: every directory is treated as unvisited.
func dirKey(path string) (visitKey, bool) {
	return visitKey{}, false
}
